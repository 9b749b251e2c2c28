package notifications_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifyhub/pkg/notifications"
)

func seed(t *testing.T, s notifications.Storage, userID string, n int) []notifications.Notification {
	t.Helper()

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	out := make([]notifications.Notification, 0, n)
	for i := range n {
		stored, err := s.Create(context.Background(), notifications.Notification{
			UserID:    userID,
			Type:      notifications.TypeInfo,
			Title:     fmt.Sprintf("title %d", i),
			Message:   "message",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
		out = append(out, stored)
	}
	return out
}

func TestMemoryStorage_Create(t *testing.T) {
	ctx := context.Background()
	s := notifications.NewMemoryStorage()

	t.Run("assigns id and created at", func(t *testing.T) {
		n, err := s.Create(ctx, notifications.Notification{UserID: "u1", Title: "t", Message: "m"})
		require.NoError(t, err)
		assert.NotEmpty(t, n.ID)
		assert.False(t, n.CreatedAt.IsZero())
		assert.False(t, n.Read)
		assert.Nil(t, n.ReadAt)

		got, err := s.Get(ctx, n.ID)
		require.NoError(t, err)
		assert.Equal(t, n, got)
	})

	t.Run("keeps provided id", func(t *testing.T) {
		n, err := s.Create(ctx, notifications.Notification{ID: "fixed", UserID: "u1"})
		require.NoError(t, err)
		assert.Equal(t, "fixed", n.ID)

		_, err = s.Create(ctx, notifications.Notification{ID: "fixed", UserID: "u2"})
		assert.ErrorIs(t, err, notifications.ErrStorage)
	})
}

func TestMemoryStorage_Get(t *testing.T) {
	s := notifications.NewMemoryStorage()
	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, notifications.ErrNotFound)
}

func TestMemoryStorage_List(t *testing.T) {
	ctx := context.Background()
	s := notifications.NewMemoryStorage()
	created := seed(t, s, "u1", 5)
	seed(t, s, "u2", 2)

	_, err := s.MarkRead(ctx, created[4].ID)
	require.NoError(t, err)
	_, err = s.Create(ctx, notifications.Notification{
		UserID: "u1", Type: notifications.TypeAlert, Title: "alert", Message: "m",
		CreatedAt: created[0].CreatedAt.Add(-time.Hour),
	})
	require.NoError(t, err)

	tests := []struct {
		name   string
		opts   notifications.ListOptions
		titles []string
	}{
		{
			name:   "newest first",
			opts:   notifications.ListOptions{},
			titles: []string{"title 4", "title 3", "title 2", "title 1", "title 0", "alert"},
		},
		{
			name:   "only unread",
			opts:   notifications.ListOptions{OnlyUnread: true},
			titles: []string{"title 3", "title 2", "title 1", "title 0", "alert"},
		},
		{
			name:   "by type",
			opts:   notifications.ListOptions{Types: []notifications.Type{notifications.TypeAlert}},
			titles: []string{"alert"},
		},
		{
			name:   "limit and offset",
			opts:   notifications.ListOptions{Limit: 2, Offset: 1},
			titles: []string{"title 3", "title 2"},
		},
		{
			name:   "offset past end",
			opts:   notifications.ListOptions{Offset: 50},
			titles: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := s.List(ctx, "u1", tt.opts)
			require.NoError(t, err)

			titles := make([]string, 0, len(items))
			for _, n := range items {
				assert.Equal(t, "u1", n.UserID)
				titles = append(titles, n.Title)
			}
			assert.Equal(t, tt.titles, titles)
		})
	}

	t.Run("unknown user", func(t *testing.T) {
		items, err := s.List(ctx, "nobody", notifications.ListOptions{})
		require.NoError(t, err)
		assert.Empty(t, items)
	})
}

func TestMemoryStorage_Counts(t *testing.T) {
	ctx := context.Background()
	s := notifications.NewMemoryStorage()
	created := seed(t, s, "u1", 4)

	_, err := s.MarkRead(ctx, created[1].ID)
	require.NoError(t, err)

	unread, err := s.CountUnread(ctx, "u1")
	require.NoError(t, err)
	listed, err := s.List(ctx, "u1", notifications.ListOptions{OnlyUnread: true})
	require.NoError(t, err)
	assert.Equal(t, 3, unread)
	assert.Len(t, listed, unread)

	total, err := s.Count(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 4, total)
}

func TestMemoryStorage_MarkRead(t *testing.T) {
	ctx := context.Background()
	s := notifications.NewMemoryStorage()
	created := seed(t, s, "u1", 1)

	n, err := s.MarkRead(ctx, created[0].ID)
	require.NoError(t, err)
	assert.True(t, n.Read)
	require.NotNil(t, n.ReadAt)
	firstReadAt := *n.ReadAt

	again, err := s.MarkRead(ctx, created[0].ID)
	require.NoError(t, err)
	assert.Equal(t, firstReadAt, *again.ReadAt)

	_, err = s.MarkRead(ctx, "missing")
	assert.ErrorIs(t, err, notifications.ErrNotFound)
}

func TestMemoryStorage_MarkAllReadIsolation(t *testing.T) {
	ctx := context.Background()
	s := notifications.NewMemoryStorage()
	seed(t, s, "u1", 3)
	seed(t, s, "u2", 2)

	changed, err := s.MarkAllRead(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, changed)

	unread, err := s.CountUnread(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, unread)

	other, err := s.CountUnread(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, 2, other)

	changed, err = s.MarkAllRead(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, changed)
}

func TestMemoryStorage_MarkAllReadSkipsFutureRecords(t *testing.T) {
	ctx := context.Background()
	s := notifications.NewMemoryStorage()
	_, err := s.Create(ctx, notifications.Notification{UserID: "u1", CreatedAt: time.Now().Add(time.Hour)})
	require.NoError(t, err)

	changed, err := s.MarkAllRead(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, changed)
}

func TestMemoryStorage_Update(t *testing.T) {
	ctx := context.Background()
	s := notifications.NewMemoryStorage()
	created := seed(t, s, "u1", 1)

	title := "edited"
	n, err := s.Update(ctx, created[0].ID, notifications.UpdateFields{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "edited", n.Title)
	assert.Equal(t, created[0].Message, n.Message)
	assert.Equal(t, created[0].ID, n.ID)
	assert.Equal(t, created[0].UserID, n.UserID)

	_, err = s.Update(ctx, "missing", notifications.UpdateFields{Title: &title})
	assert.ErrorIs(t, err, notifications.ErrNotFound)
}

func TestMemoryStorage_Delete(t *testing.T) {
	ctx := context.Background()
	s := notifications.NewMemoryStorage()
	created := seed(t, s, "u1", 2)
	seed(t, s, "u2", 1)

	deleted, err := s.Delete(ctx, created[0].ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = s.Delete(ctx, created[0].ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	total, err := s.Count(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	other, err := s.Count(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, 1, other)
}

func TestMemoryStorage_ListAll(t *testing.T) {
	ctx := context.Background()
	s := notifications.NewMemoryStorage()
	seed(t, s, "u1", 2)
	seed(t, s, "u2", 3)

	all, err := s.ListAll(ctx, notifications.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, all, 5)
	for i := 1; i < len(all); i++ {
		assert.False(t, all[i].CreatedAt.After(all[i-1].CreatedAt))
	}

	page, err := s.ListAll(ctx, notifications.ListOptions{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page, 2)
}

func TestMemoryStorage_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := notifications.NewMemoryStorage()
	created := seed(t, s, "u1", 1)

	n, err := s.MarkRead(ctx, created[0].ID)
	require.NoError(t, err)
	*n.ReadAt = time.Time{}

	got, err := s.Get(ctx, created[0].ID)
	require.NoError(t, err)
	assert.False(t, got.ReadAt.IsZero())
}

func TestMemoryStorage_Concurrent(t *testing.T) {
	ctx := context.Background()
	s := notifications.NewMemoryStorage()

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			user := fmt.Sprintf("u%d", n%3)
			for range 50 {
				created, err := s.Create(ctx, notifications.Notification{UserID: user})
				if err != nil {
					t.Error(err)
					return
				}
				_, _ = s.MarkRead(ctx, created.ID)
				_, _ = s.List(ctx, user, notifications.ListOptions{OnlyUnread: true})
			}
		}(i)
	}
	wg.Wait()

	all, err := s.ListAll(ctx, notifications.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, all, 500)
}
