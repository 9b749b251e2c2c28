package pgstore

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// DefaultDirectoryQuery lists recipients of all-users broadcasts.
const DefaultDirectoryQuery = `SELECT id::text FROM users ORDER BY id`

// Directory resolves user ids with a single-column query against an
// application-owned table.
type Directory struct {
	db    DB
	query string
}

// NewDirectory uses DefaultDirectoryQuery when query is empty.
func NewDirectory(db DB, query string) *Directory {
	if query == "" {
		query = DefaultDirectoryQuery
	}
	return &Directory{db: db, query: query}
}

func (d *Directory) UserIDs(ctx context.Context) ([]string, error) {
	rows, err := d.db.Query(ctx, d.query)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}
