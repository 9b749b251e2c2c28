// Package httpserver wraps net/http with graceful shutdown, functional
// options and health probe handlers.
//
// Run blocks until the context is cancelled or SIGINT/SIGTERM arrives, then
// calls Shutdown: drain hooks first (close event streams here), then
// http.Server.Shutdown, then stop hooks, all bounded by the shutdown timeout.
//
//	srv := httpserver.NewFromConfig(cfg,
//		httpserver.WithLogger(log),
//		httpserver.WithDrainHook(func(context.Context) { _ = bus.Close() }),
//	)
//	r := chi.NewRouter()
//	r.Get("/healthz", httpserver.LivenessHandler())
//	r.Get("/readyz", httpserver.ReadinessHandler(log, 2*time.Second,
//		httpserver.Check{Name: "postgres", Probe: pg.Healthcheck(pool)},
//	))
//	if err := srv.Run(ctx, r); err != nil {
//		log.Error("server stopped", logger.Error(err))
//	}
//
// Start failures wrap ErrStart and shutdown failures wrap ErrShutdown.
package httpserver
