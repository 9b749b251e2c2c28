package notifications

import "context"

// Storage persists notifications. Implementations must be safe for concurrent use
// and return ErrNotFound for missing ids. Counts are computed from the stored
// records, so CountUnread(u) always equals len(List(u, OnlyUnread)).
type Storage interface {
	// Create stores n, assigning ID and CreatedAt when they are empty, and
	// returns the stored record.
	Create(ctx context.Context, n Notification) (Notification, error)

	Get(ctx context.Context, id string) (Notification, error)

	// List returns userID's notifications, newest first.
	List(ctx context.Context, userID string, opts ListOptions) ([]Notification, error)

	CountUnread(ctx context.Context, userID string) (int, error)

	Count(ctx context.Context, userID string) (int, error)

	// MarkRead sets Read and ReadAt. Marking an already read record keeps its ReadAt.
	MarkRead(ctx context.Context, id string) (Notification, error)

	// MarkAllRead marks every unread record of userID created no later than
	// the start of the call and returns how many changed.
	MarkAllRead(ctx context.Context, userID string) (int, error)

	Update(ctx context.Context, id string, fields UpdateFields) (Notification, error)

	// Delete removes the record and reports whether it existed.
	Delete(ctx context.Context, id string) (bool, error)

	// ListAll returns notifications of every user, newest first.
	ListAll(ctx context.Context, opts ListOptions) ([]Notification, error)
}
