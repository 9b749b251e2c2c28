// Package pgstore implements notification storage, preference storage and the
// recipient directory on PostgreSQL through pgx/v5.
//
// The schema ships as goose migrations in Migrations:
//
//	if err := pg.Migrate(ctx, pool, pgstore.Migrations, pgstore.MigrationsDir, cfg, log); err != nil {
//	    return err
//	}
//	store := pgstore.NewStore(pool)
package pgstore

import (
	"context"
	"embed"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Migrations holds the goose migrations for every table used by this package.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations.
const MigrationsDir = "migrations"

// DB is the subset of *pgxpool.Pool, *pgx.Conn and pgx.Tx used by the stores.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
