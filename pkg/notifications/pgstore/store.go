package pgstore

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/notifyhub/pkg/notifications"
	"github.com/dmitrymomot/notifyhub/pkg/pg"
)

const columns = "id, user_id, type, title, message, read, read_at, action_url, created_at"

type row struct {
	ID        string     `db:"id"`
	UserID    string     `db:"user_id"`
	Type      string     `db:"type"`
	Title     string     `db:"title"`
	Message   string     `db:"message"`
	Read      bool       `db:"read"`
	ReadAt    *time.Time `db:"read_at"`
	ActionURL string     `db:"action_url"`
	CreatedAt time.Time  `db:"created_at"`
}

func (r row) notification() notifications.Notification {
	n := notifications.Notification{
		ID:        r.ID,
		UserID:    r.UserID,
		Type:      notifications.Type(r.Type),
		Title:     r.Title,
		Message:   r.Message,
		Read:      r.Read,
		ActionURL: r.ActionURL,
		CreatedAt: r.CreatedAt.UTC(),
	}
	if r.ReadAt != nil {
		at := r.ReadAt.UTC()
		n.ReadAt = &at
	}
	return n
}

// Store implements notifications.Storage on the notifications table.
type Store struct {
	db DB
}

var _ notifications.Storage = (*Store)(nil)

// NewStore expects the schema from Migrations to be applied.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, n notifications.Notification) (notifications.Notification, error) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	// Postgres keeps microseconds; truncate so the returned value round-trips.
	n.CreatedAt = n.CreatedAt.Truncate(time.Microsecond)

	rows, err := s.db.Query(ctx,
		`INSERT INTO notifications (id, user_id, type, title, message, read, read_at, action_url, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING `+columns,
		n.ID, n.UserID, string(n.Type), n.Title, n.Message, n.Read, n.ReadAt, n.ActionURL, n.CreatedAt,
	)
	var stored notifications.Notification
	if err == nil {
		stored, err = one(rows)
	}
	if pg.IsDuplicateKeyError(err) {
		return notifications.Notification{}, fmt.Errorf("%w: duplicate id %q", notifications.ErrStorage, n.ID)
	}
	return stored, err
}

func (s *Store) Get(ctx context.Context, id string) (notifications.Notification, error) {
	rows, err := s.db.Query(ctx, `SELECT `+columns+` FROM notifications WHERE id = $1`, id)
	if err != nil {
		return notifications.Notification{}, err
	}
	return one(rows)
}

func (s *Store) List(ctx context.Context, userID string, opts notifications.ListOptions) ([]notifications.Notification, error) {
	q := newQuery(`SELECT ` + columns + ` FROM notifications WHERE user_id = $1`)
	q.args = append(q.args, userID)
	q.filter(opts)
	q.page(opts)

	rows, err := s.db.Query(ctx, q.String(), q.args...)
	if err != nil {
		return nil, err
	}
	return all(rows)
}

func (s *Store) ListAll(ctx context.Context, opts notifications.ListOptions) ([]notifications.Notification, error) {
	q := newQuery(`SELECT ` + columns + ` FROM notifications WHERE TRUE`)
	q.filter(opts)
	q.page(opts)

	rows, err := s.db.Query(ctx, q.String(), q.args...)
	if err != nil {
		return nil, err
	}
	return all(rows)
}

func (s *Store) CountUnread(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `SELECT count(*) FROM notifications WHERE user_id = $1 AND NOT read`, userID).Scan(&n)
	return n, err
}

func (s *Store) Count(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `SELECT count(*) FROM notifications WHERE user_id = $1`, userID).Scan(&n)
	return n, err
}

func (s *Store) MarkRead(ctx context.Context, id string) (notifications.Notification, error) {
	rows, err := s.db.Query(ctx,
		`UPDATE notifications SET read = TRUE, read_at = COALESCE(read_at, $2)
		 WHERE id = $1
		 RETURNING `+columns,
		id, time.Now().UTC(),
	)
	if err != nil {
		return notifications.Notification{}, err
	}
	return one(rows)
}

func (s *Store) MarkAllRead(ctx context.Context, userID string) (int, error) {
	cutoff := time.Now().UTC()
	tag, err := s.db.Exec(ctx,
		`UPDATE notifications SET read = TRUE, read_at = $2
		 WHERE user_id = $1 AND NOT read AND created_at <= $2`,
		userID, cutoff,
	)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (s *Store) Update(ctx context.Context, id string, fields notifications.UpdateFields) (notifications.Notification, error) {
	rows, err := s.db.Query(ctx,
		`UPDATE notifications SET
		     title = COALESCE($2, title),
		     message = COALESCE($3, message),
		     action_url = COALESCE($4, action_url)
		 WHERE id = $1
		 RETURNING `+columns,
		id, fields.Title, fields.Message, fields.ActionURL,
	)
	if err != nil {
		return notifications.Notification{}, err
	}
	return one(rows)
}

func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func one(rows pgx.Rows) (notifications.Notification, error) {
	r, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[row])
	if pg.IsNotFoundError(err) {
		return notifications.Notification{}, notifications.ErrNotFound
	}
	if err != nil {
		return notifications.Notification{}, err
	}
	return r.notification(), nil
}

func all(rows pgx.Rows) ([]notifications.Notification, error) {
	rs, err := pgx.CollectRows(rows, pgx.RowToStructByName[row])
	if err != nil {
		return nil, err
	}
	out := make([]notifications.Notification, len(rs))
	for i, r := range rs {
		out[i] = r.notification()
	}
	return out, nil
}

type query struct {
	sb   strings.Builder
	args []any
}

func newQuery(base string) *query {
	q := &query{}
	q.sb.WriteString(base)
	return q
}

func (q *query) arg(v any) string {
	q.args = append(q.args, v)
	return "$" + strconv.Itoa(len(q.args))
}

func (q *query) filter(opts notifications.ListOptions) {
	if opts.OnlyUnread {
		q.sb.WriteString(" AND NOT read")
	}
	if len(opts.Types) > 0 {
		types := make([]string, len(opts.Types))
		for i, t := range opts.Types {
			types[i] = string(t)
		}
		q.sb.WriteString(" AND type = ANY(" + q.arg(types) + ")")
	}
}

func (q *query) page(opts notifications.ListOptions) {
	q.sb.WriteString(" ORDER BY created_at DESC, id DESC")
	if opts.Limit > 0 {
		q.sb.WriteString(" LIMIT " + q.arg(opts.Limit))
	}
	if opts.Offset > 0 {
		q.sb.WriteString(" OFFSET " + q.arg(opts.Offset))
	}
}

func (q *query) String() string { return q.sb.String() }
