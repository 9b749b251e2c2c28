package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	mongodrv "go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/dmitrymomot/notifyhub/pkg/config"
	"github.com/dmitrymomot/notifyhub/pkg/httpserver"
	"github.com/dmitrymomot/notifyhub/pkg/logger"
	"github.com/dmitrymomot/notifyhub/pkg/mongo"
	"github.com/dmitrymomot/notifyhub/pkg/notifications"
	"github.com/dmitrymomot/notifyhub/pkg/notifications/mongostore"
	"github.com/dmitrymomot/notifyhub/pkg/notifications/pgstore"
	"github.com/dmitrymomot/notifyhub/pkg/notifications/redisstore"
	"github.com/dmitrymomot/notifyhub/pkg/pg"
	"github.com/dmitrymomot/notifyhub/pkg/redis"
)

// backends holds the storage components picked by the driver settings and
// the connections they share.
type backends struct {
	storage     notifications.Storage
	preferences notifications.PreferenceStorage
	directory   notifications.Directory
	checks      []httpserver.Check

	pool  *pgxpool.Pool
	redis *goredis.Client
	mongo *mongodrv.Database

	log *slog.Logger
}

func openBackends(ctx context.Context, cfg Config, log *slog.Logger) (_ *backends, err error) {
	b := &backends{log: log}
	defer func() {
		if err != nil {
			b.close(context.WithoutCancel(ctx))
		}
	}()

	if cfg.uses(driverPostgres) {
		if err := b.openPostgres(ctx); err != nil {
			return nil, err
		}
	}
	if cfg.uses(driverRedis) {
		if err := b.openRedis(ctx); err != nil {
			return nil, err
		}
	}
	if cfg.uses(driverMongo) {
		if err := b.openMongo(ctx); err != nil {
			return nil, err
		}
	}

	switch cfg.StorageDriver {
	case driverPostgres:
		b.storage = pgstore.NewStore(b.pool)
	case driverMongo:
		store := mongostore.NewStore(b.mongo)
		if err := store.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("mongo indexes: %w", err)
		}
		b.storage = store
	default:
		b.storage = notifications.NewMemoryStorage()
	}

	switch cfg.PreferencesDriver {
	case driverPostgres:
		b.preferences = pgstore.NewPreferences(b.pool)
	case driverRedis:
		var rc redis.Config
		if err := config.Load(&rc); err != nil {
			return nil, err
		}
		b.preferences = redisstore.NewPreferences(b.redis, rc.KeyPrefix)
	default:
		b.preferences = notifications.NewMemoryPreferences()
	}

	switch cfg.DirectoryDriver {
	case driverPostgres:
		b.directory = pgstore.NewDirectory(b.pool, cfg.DirectoryQuery)
	case driverFile:
		dir, err := notifications.LoadDirectoryFile(cfg.DirectoryFile)
		if err != nil {
			return nil, err
		}
		log.InfoContext(ctx, "recipient directory loaded", logger.Count(len(dir)))
		b.directory = dir
	default:
		b.directory = notifications.StaticDirectory(cfg.DirectoryUsers)
	}

	return b, nil
}

func (b *backends) openPostgres(ctx context.Context) error {
	var cfg pg.Config
	if err := config.Load(&cfg); err != nil {
		return err
	}

	pool, err := pg.Connect(ctx, cfg)
	if err != nil {
		return err
	}
	b.pool = pool
	b.checks = append(b.checks, httpserver.Check{Name: "postgres", Probe: pg.Healthcheck(pool)})

	if cfg.AutoMigrate {
		if err := pg.Migrate(ctx, pool, pgstore.Migrations, pgstore.MigrationsDir, cfg, b.log); err != nil {
			return err
		}
	}
	return nil
}

func (b *backends) openRedis(ctx context.Context) error {
	var cfg redis.Config
	if err := config.Load(&cfg); err != nil {
		return err
	}

	client, err := redis.Connect(ctx, cfg)
	if err != nil {
		return err
	}
	b.redis = client
	b.checks = append(b.checks, httpserver.Check{Name: "redis", Probe: redis.Healthcheck(client)})
	return nil
}

func (b *backends) openMongo(ctx context.Context) error {
	var cfg mongo.Config
	if err := config.Load(&cfg); err != nil {
		return err
	}

	db, err := mongo.NewWithDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	b.mongo = db
	b.checks = append(b.checks, httpserver.Check{Name: "mongo", Probe: mongo.Healthcheck(db.Client())})
	return nil
}

// close releases every open connection. Safe on a partially opened set.
func (b *backends) close(ctx context.Context) {
	var errs []error
	if b.mongo != nil {
		errs = append(errs, b.mongo.Client().Disconnect(ctx))
	}
	if b.redis != nil {
		errs = append(errs, b.redis.Close())
	}
	if b.pool != nil {
		b.pool.Close()
	}
	if err := errors.Join(errs...); err != nil {
		b.log.ErrorContext(ctx, "failed to close backends", logger.Error(err))
	}
}
