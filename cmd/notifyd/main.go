// Command notifyd serves the notification API and live notification streams.
//
// Storage, preference and directory backends are picked with the
// STORAGE_DRIVER, PREFERENCES_DRIVER and DIRECTORY_DRIVER variables; see
// Config for the full list.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/notifyhub/handler"
	module "github.com/dmitrymomot/notifyhub/modules/notifications"
	"github.com/dmitrymomot/notifyhub/pkg/config"
	"github.com/dmitrymomot/notifyhub/pkg/httpserver"
	"github.com/dmitrymomot/notifyhub/pkg/identity"
	"github.com/dmitrymomot/notifyhub/pkg/logger"
	"github.com/dmitrymomot/notifyhub/pkg/notifications"
	"github.com/dmitrymomot/notifyhub/pkg/pubsub"
	"github.com/dmitrymomot/notifyhub/pkg/requestid"
)

func main() {
	if err := run(context.Background()); err != nil {
		slog.Error("notifyd stopped", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var cfg Config
	if err := config.Load(&cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := logger.New(
		logger.WithEnvironment(cfg.AppEnv, cfg.AppName),
		logger.WithContextExtractors(requestid.LoggerExtractor()),
	)
	logger.SetAsDefault(log)

	b, err := openBackends(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer b.close(context.WithoutCancel(ctx))

	bus := pubsub.NewBus[notifications.Notification](pubsub.WithLogger(log))

	suppression, _ := cfg.Suppression()
	gateway := notifications.NewGateway(b.storage, bus,
		notifications.WithLogger(log),
		notifications.WithPreferences(notifications.NewPreferenceRegistry(
			notifications.NewCachedPreferences(b.preferences, max(cfg.PreferenceCacheSize, 1)),
		)),
		notifications.WithDirectory(b.directory),
		notifications.WithSuppression(suppression),
		notifications.WithBroadcastConcurrency(cfg.BroadcastConcurrency),
	)
	transport := notifications.NewStreamTransport(bus,
		notifications.WithHeartbeat(cfg.StreamHeartbeat),
		notifications.WithStreamBuffer(cfg.StreamBuffer),
		notifications.WithStreamLogger(log),
	)
	svc := module.NewService(gateway, transport,
		module.WithErrorHandler(handler.NewErrorHandler(log, module.MapError)),
	)

	router := chi.NewRouter()
	router.Use(requestid.Middleware)

	live := httpserver.LivenessHandler()
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		log.DebugContext(r.Context(), "liveness probe", slog.Int("active_streams", transport.Active()))
		live(w, r)
	})
	router.Get("/readyz", httpserver.ReadinessHandler(log, cfg.ReadinessTimeout, b.checks...))

	router.Route("/api", func(r chi.Router) {
		r.Use(identity.Middleware(resolver(cfg), unauthorized(log)))
		r.Mount("/", module.Router(svc))
	})

	var httpCfg httpserver.Config
	if err := config.Load(&httpCfg); err != nil {
		return err
	}

	server := httpserver.NewFromConfig(httpCfg,
		httpserver.WithLogger(log),
		httpserver.WithStartHook(func(l *slog.Logger) {
			l.Info("notifyd listening",
				slog.String("addr", httpCfg.Addr),
				slog.String("storage", cfg.StorageDriver),
				slog.String("preferences", cfg.PreferencesDriver),
				slog.String("auth", cfg.AuthMode),
			)
		}),
		// Open streams block http.Server.Shutdown until their queues close.
		httpserver.WithDrainHook(func(ctx context.Context) {
			if err := bus.Close(); err != nil {
				log.WarnContext(ctx, "bus closed with errors", logger.Error(err))
			}
		}),
		httpserver.WithStopHook(func(l *slog.Logger) { l.Info("notifyd stopped") }),
	)

	return server.Run(ctx, router)
}

// resolver builds the identity chain for cfg.AuthMode. EventSource cannot
// send headers, so each mode also reads a query parameter.
func resolver(cfg Config) identity.Resolver {
	if cfg.AuthMode == authJWT {
		return identity.FirstOf(
			identity.JWT([]byte(cfg.JWTSecret), identity.BearerToken, identity.QueryToken("token")),
		)
	}
	return identity.FirstOf(
		identity.Header("X-User-ID", "X-User-Admin"),
		identity.Query("userId"),
	)
}

func unauthorized(log *slog.Logger) func(http.ResponseWriter, *http.Request, error) {
	return func(w http.ResponseWriter, r *http.Request, err error) {
		log.DebugContext(r.Context(), "request rejected", logger.Error(err))
		if rerr := handler.JSONError(handler.ErrUnauthorized).Render(w, r); rerr != nil {
			log.ErrorContext(r.Context(), "failed to write response", logger.Error(rerr))
		}
	}
}
