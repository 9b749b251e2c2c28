// Package pg bootstraps PostgreSQL access with pgx/v5: a retrying pool
// constructor, a health check for readiness probes, goose migrations from an
// fs.FS and helpers that classify driver errors.
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, pgstore.Migrations, "migrations", cfg, log); err != nil {
//	    return err
//	}
package pg
