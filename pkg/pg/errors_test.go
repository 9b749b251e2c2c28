package pg_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/notifyhub/pkg/pg"
)

func TestIsNotFoundError(t *testing.T) {
	assert.True(t, pg.IsNotFoundError(pgx.ErrNoRows))
	assert.True(t, pg.IsNotFoundError(fmt.Errorf("get: %w", pgx.ErrNoRows)))
	assert.False(t, pg.IsNotFoundError(errors.New("other")))
	assert.False(t, pg.IsNotFoundError(nil))
}

func TestIsDuplicateKeyError(t *testing.T) {
	assert.True(t, pg.IsDuplicateKeyError(&pgconn.PgError{Code: "23505"}))
	assert.True(t, pg.IsDuplicateKeyError(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, pg.IsDuplicateKeyError(&pgconn.PgError{Code: "23503"}))
	assert.False(t, pg.IsDuplicateKeyError(nil))
}
