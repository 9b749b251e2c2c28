package notifications_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifyhub/pkg/logger"
	"github.com/dmitrymomot/notifyhub/pkg/notifications"
	"github.com/dmitrymomot/notifyhub/pkg/pubsub"
	"github.com/dmitrymomot/notifyhub/pkg/validator"
)

type failingStorage struct {
	*notifications.MemoryStorage
	mock.Mock
}

func (f *failingStorage) Create(ctx context.Context, n notifications.Notification) (notifications.Notification, error) {
	args := f.Called(n.UserID)
	if err := args.Error(0); err != nil {
		return notifications.Notification{}, err
	}
	return f.MemoryStorage.Create(ctx, n)
}

// cancellingStorage cancels the caller's context once it has stored after records.
type cancellingStorage struct {
	*notifications.MemoryStorage
	after  int32
	calls  atomic.Int32
	cancel context.CancelFunc
}

func (c *cancellingStorage) Create(ctx context.Context, n notifications.Notification) (notifications.Notification, error) {
	if err := ctx.Err(); err != nil {
		return notifications.Notification{}, err
	}
	stored, err := c.MemoryStorage.Create(ctx, n)
	if c.calls.Add(1) == c.after {
		c.cancel()
	}
	return stored, err
}

type failingDirectory struct{ err error }

func (d failingDirectory) UserIDs(context.Context) ([]string, error) { return nil, d.err }

type fixture struct {
	gw    *notifications.Gateway
	store *notifications.MemoryStorage
	bus   *pubsub.Bus[notifications.Notification]
	prefs *notifications.PreferenceRegistry
}

func newFixture(opts ...notifications.GatewayOption) fixture {
	store := notifications.NewMemoryStorage()
	bus := pubsub.NewBus[notifications.Notification](pubsub.WithLogger(logger.Discard()))
	prefs := notifications.NewPreferenceRegistry(notifications.NewMemoryPreferences())
	opts = append([]notifications.GatewayOption{
		notifications.WithLogger(logger.Discard()),
		notifications.WithPreferences(prefs),
	}, opts...)
	return fixture{
		gw:    notifications.NewGateway(store, bus, opts...),
		store: store,
		bus:   bus,
		prefs: prefs,
	}
}

func (f fixture) listen(key string) *pubsub.Queue[notifications.Notification] {
	q := pubsub.NewQueue[notifications.Notification](16)
	f.bus.Subscribe(key, q)
	return q
}

func validInput(userID string) notifications.CreateInput {
	return notifications.CreateInput{
		UserID:  userID,
		Type:    notifications.TypeMeeting,
		Title:   "Standup",
		Message: "Daily standup in 5 minutes",
	}
}

func TestGateway_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("persists then publishes the stored record", func(t *testing.T) {
		f := newFixture()
		q := f.listen("u1")
		other := f.listen("u2")

		n, err := f.gw.Create(ctx, validInput("u1"))
		require.NoError(t, err)
		assert.NotEmpty(t, n.ID)
		assert.False(t, n.Read)

		pushed := <-q.C()
		assert.Equal(t, n, pushed)
		assert.Equal(t, 0, other.Len())

		page, err := f.gw.List(ctx, "u1", notifications.ListOptions{})
		require.NoError(t, err)
		require.Len(t, page.Notifications, 1)
		assert.Equal(t, n, page.Notifications[0])
		assert.Equal(t, 1, page.UnreadCount)
		assert.Equal(t, 1, page.Total)
	})

	t.Run("defaults type and normalises text", func(t *testing.T) {
		f := newFixture()
		n, err := f.gw.Create(ctx, notifications.CreateInput{
			UserID:  " u1 ",
			Title:   "  Café  ",
			Message: "hello",
		})
		require.NoError(t, err)
		assert.Equal(t, notifications.TypeInfo, n.Type)
		assert.Equal(t, "u1", n.UserID)
		assert.Equal(t, "Café", n.Title)
	})

	t.Run("validation happens before persistence", func(t *testing.T) {
		tests := []struct {
			name  string
			in    notifications.CreateInput
			field string
		}{
			{"missing user", notifications.CreateInput{Title: "t", Message: "m"}, "userId"},
			{"missing title", notifications.CreateInput{UserID: "u1", Message: "m"}, "title"},
			{"blank message", notifications.CreateInput{UserID: "u1", Title: "t", Message: "   "}, "message"},
			{"unknown type", notifications.CreateInput{UserID: "u1", Type: "spam", Title: "t", Message: "m"}, "type"},
			{"bad link", notifications.CreateInput{UserID: "u1", Title: "t", Message: "m", ActionURL: "javascript:alert(1)"}, "actionUrl"},
			{"title too long", notifications.CreateInput{UserID: "u1", Title: strings.Repeat("x", notifications.MaxTitleLength+1), Message: "m"}, "title"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				f := newFixture()
				q := f.listen("u1")

				_, err := f.gw.Create(ctx, tt.in)
				require.ErrorIs(t, err, notifications.ErrValidation)
				assert.NotErrorIs(t, err, notifications.ErrNotFound)
				assert.True(t, validator.ExtractValidationErrors(err).Has(tt.field))

				all, err := f.store.ListAll(ctx, notifications.ListOptions{})
				require.NoError(t, err)
				assert.Empty(t, all)
				assert.Equal(t, 0, q.Len())
			})
		}
	})

	t.Run("relative action url accepted", func(t *testing.T) {
		f := newFixture()
		in := validInput("u1")
		in.ActionURL = "/meetings/42"
		n, err := f.gw.Create(ctx, in)
		require.NoError(t, err)
		assert.Equal(t, "/meetings/42", n.ActionURL)
	})

	t.Run("store failure is surfaced and nothing is pushed", func(t *testing.T) {
		boom := errors.New("disk full")
		store := &failingStorage{MemoryStorage: notifications.NewMemoryStorage()}
		store.On("Create", "u1").Return(boom)
		bus := pubsub.NewBus[notifications.Notification](pubsub.WithLogger(logger.Discard()))
		q := pubsub.NewQueue[notifications.Notification](4)
		bus.Subscribe("u1", q)

		gw := notifications.NewGateway(store, bus, notifications.WithLogger(logger.Discard()))
		_, err := gw.Create(ctx, validInput("u1"))
		assert.ErrorIs(t, err, boom)
		assert.ErrorIs(t, err, notifications.ErrStorage)
		assert.Equal(t, 0, q.Len())
	})

	t.Run("disabled type is stored but not pushed by default", func(t *testing.T) {
		f := newFixture()
		q := f.listen("u1")
		_, err := f.prefs.Set(ctx, "u1", notifications.PreferencesPatch{
			notifications.TypeMeeting: {Enabled: ptr(false)},
		})
		require.NoError(t, err)

		n, err := f.gw.Create(ctx, validInput("u1"))
		require.NoError(t, err)
		assert.Equal(t, 0, q.Len())

		got, err := f.gw.Get(ctx, n.ID)
		require.NoError(t, err)
		assert.Equal(t, n.ID, got.ID)
	})

	t.Run("stream channel off suppresses push only", func(t *testing.T) {
		f := newFixture(notifications.WithSuppression(notifications.SuppressAll))
		q := f.listen("u1")
		_, err := f.prefs.Set(ctx, "u1", notifications.PreferencesPatch{
			notifications.TypeMeeting: {Channels: map[string]bool{notifications.ChannelStream: false}},
		})
		require.NoError(t, err)

		_, err = f.gw.Create(ctx, validInput("u1"))
		require.NoError(t, err)
		assert.Equal(t, 0, q.Len())
	})

	t.Run("suppress all drops the record", func(t *testing.T) {
		f := newFixture(notifications.WithSuppression(notifications.SuppressAll))
		_, err := f.prefs.Set(ctx, "u1", notifications.PreferencesPatch{
			notifications.TypeMeeting: {Enabled: ptr(false)},
		})
		require.NoError(t, err)

		_, err = f.gw.Create(ctx, validInput("u1"))
		assert.ErrorIs(t, err, notifications.ErrSuppressed)

		total, err := f.store.Count(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, 0, total)
	})

	t.Run("unavailable preferences do not block delivery", func(t *testing.T) {
		prefStore := &mockPreferenceStorage{}
		prefStore.On("Load", mock.Anything, "u1").Return(notifications.Preferences{}, false, errors.New("redis down"))

		f := newFixture(notifications.WithPreferences(notifications.NewPreferenceRegistry(prefStore)))
		q := f.listen("u1")

		_, err := f.gw.Create(ctx, validInput("u1"))
		require.NoError(t, err)
		assert.Equal(t, 1, q.Len())
	})
}

func TestGateway_CreateBroadcast(t *testing.T) {
	ctx := context.Background()
	content := notifications.BroadcastInput{
		Type:    notifications.TypeSystem,
		Title:   "Maintenance",
		Message: "Scheduled maintenance tonight",
	}

	t.Run("one independent record per user", func(t *testing.T) {
		f := newFixture()
		queues := map[string]*pubsub.Queue[notifications.Notification]{}
		users := []string{"u1", "u2", "u3"}
		for _, u := range users {
			queues[u] = f.listen(u)
		}

		res, err := f.gw.CreateBroadcast(ctx, notifications.Users("u1", "u2", "u3", "u2"), content)
		require.NoError(t, err)
		assert.Equal(t, notifications.BroadcastResult{Recipients: 3, Created: 3}, res)

		ids := map[string]struct{}{}
		for _, u := range users {
			page, err := f.gw.List(ctx, u, notifications.ListOptions{})
			require.NoError(t, err)
			require.Len(t, page.Notifications, 1)
			n := page.Notifications[0]
			assert.Equal(t, u, n.UserID)
			assert.Equal(t, "Maintenance", n.Title)
			ids[n.ID] = struct{}{}

			pushed := <-queues[u].C()
			assert.Equal(t, n.ID, pushed.ID)
		}
		assert.Len(t, ids, 3)

		_, err = f.gw.MarkRead(ctx, firstID(t, f, "u1"))
		require.NoError(t, err)
		unread, err := f.gw.UnreadCount(ctx, "u2")
		require.NoError(t, err)
		assert.Equal(t, 1, unread)
	})

	t.Run("all users from directory", func(t *testing.T) {
		f := newFixture(notifications.WithDirectory(notifications.StaticDirectory{"a", "b"}))
		res, err := f.gw.CreateBroadcast(ctx, notifications.AllUsers(), content)
		require.NoError(t, err)
		assert.Equal(t, 2, res.Created)
	})

	t.Run("failures are counted, not fatal", func(t *testing.T) {
		store := &failingStorage{MemoryStorage: notifications.NewMemoryStorage()}
		store.On("Create", "bad").Return(errors.New("constraint violation"))
		store.On("Create", mock.Anything).Return(nil)
		bus := pubsub.NewBus[notifications.Notification](pubsub.WithLogger(logger.Discard()))

		gw := notifications.NewGateway(store, bus,
			notifications.WithLogger(logger.Discard()),
			notifications.WithBroadcastConcurrency(2),
		)
		res, err := gw.CreateBroadcast(ctx, notifications.Users("u1", "bad", "u2", "u3"), content)
		require.NoError(t, err)
		assert.Equal(t, notifications.BroadcastResult{Recipients: 4, Created: 3, Failed: 1}, res)
	})

	t.Run("suppressed recipients are skipped", func(t *testing.T) {
		f := newFixture(notifications.WithSuppression(notifications.SuppressAll))
		_, err := f.prefs.Set(ctx, "u2", notifications.PreferencesPatch{
			notifications.TypeSystem: {Enabled: ptr(false)},
		})
		require.NoError(t, err)

		res, err := f.gw.CreateBroadcast(ctx, notifications.Users("u1", "u2"), content)
		require.NoError(t, err)
		assert.Equal(t, notifications.BroadcastResult{Recipients: 2, Created: 1, Skipped: 1}, res)
	})

	t.Run("invalid content stores nothing", func(t *testing.T) {
		f := newFixture()
		_, err := f.gw.CreateBroadcast(ctx, notifications.Users("u1"), notifications.BroadcastInput{Title: "t"})
		assert.ErrorIs(t, err, notifications.ErrValidation)

		all, err := f.store.ListAll(ctx, notifications.ListOptions{})
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("empty recipient list", func(t *testing.T) {
		f := newFixture()
		_, err := f.gw.CreateBroadcast(ctx, notifications.Users(" ", ""), content)
		assert.ErrorIs(t, err, notifications.ErrValidation)
	})

	t.Run("directory failure", func(t *testing.T) {
		boom := errors.New("users table missing")
		f := newFixture(notifications.WithDirectory(failingDirectory{err: boom}))
		_, err := f.gw.CreateBroadcast(ctx, notifications.AllUsers(), content)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("caller cancellation does not cut the fan-out short", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		defer cancel()
		store := &cancellingStorage{MemoryStorage: notifications.NewMemoryStorage(), after: 3, cancel: cancel}
		bus := pubsub.NewBus[notifications.Notification](pubsub.WithLogger(logger.Discard()))
		gw := notifications.NewGateway(store, bus,
			notifications.WithLogger(logger.Discard()),
			notifications.WithBroadcastConcurrency(1),
		)

		users := make([]string, 50)
		for i := range users {
			users[i] = fmt.Sprintf("user-%02d", i)
		}
		res, err := gw.CreateBroadcast(cctx, notifications.Users(users...), content)
		require.NoError(t, err)
		assert.Equal(t, notifications.BroadcastResult{Recipients: 50, Created: 50}, res)
		assert.Error(t, cctx.Err())

		all, err := store.ListAll(ctx, notifications.ListOptions{})
		require.NoError(t, err)
		assert.Len(t, all, 50)
	})

	t.Run("large fan-out", func(t *testing.T) {
		users := make([]string, 200)
		for i := range users {
			users[i] = fmt.Sprintf("user-%03d", i)
		}
		f := newFixture(notifications.WithDirectory(notifications.StaticDirectory(users)))

		res, err := f.gw.CreateBroadcast(ctx, notifications.AllUsers(), content)
		require.NoError(t, err)
		assert.Equal(t, 200, res.Created)

		all, err := f.gw.ListAll(ctx, notifications.ListOptions{})
		require.NoError(t, err)
		assert.Len(t, all, 200)
	})
}

func firstID(t *testing.T, f fixture, userID string) string {
	t.Helper()
	page, err := f.gw.List(bg(), userID, notifications.ListOptions{Limit: 1})
	require.NoError(t, err)
	require.NotEmpty(t, page.Notifications)
	return page.Notifications[0].ID
}

func bg() context.Context { return context.Background() }

func TestGateway_ReadState(t *testing.T) {
	f := newFixture()
	a, err := f.gw.Create(bg(), validInput("u1"))
	require.NoError(t, err)
	_, err = f.gw.Create(bg(), validInput("u1"))
	require.NoError(t, err)
	_, err = f.gw.Create(bg(), validInput("u2"))
	require.NoError(t, err)

	read, err := f.gw.MarkRead(bg(), a.ID)
	require.NoError(t, err)
	assert.True(t, read.Read)
	assert.NotNil(t, read.ReadAt)

	_, err = f.gw.MarkRead(bg(), "missing")
	assert.ErrorIs(t, err, notifications.ErrNotFound)
	assert.NotErrorIs(t, err, notifications.ErrValidation)

	changed, err := f.gw.MarkAllRead(bg(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, changed)

	n, err := f.gw.UnreadCount(bg(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = f.gw.UnreadCount(bg(), "u2")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestGateway_List(t *testing.T) {
	f := newFixture()
	for range 3 {
		_, err := f.gw.Create(bg(), validInput("u1"))
		require.NoError(t, err)
	}

	page, err := f.gw.List(bg(), "u1", notifications.ListOptions{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Notifications, 2)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 3, page.UnreadCount)

	tests := []notifications.ListOptions{
		{Limit: -1},
		{Limit: notifications.MaxListLimit + 1},
		{Offset: -1},
		{Types: []notifications.Type{"bogus"}},
	}
	for _, opts := range tests {
		_, err := f.gw.List(bg(), "u1", opts)
		assert.ErrorIs(t, err, notifications.ErrValidation, "%+v", opts)
	}
}

func TestGateway_Update(t *testing.T) {
	f := newFixture()
	n, err := f.gw.Create(bg(), validInput("u1"))
	require.NoError(t, err)

	updated, err := f.gw.Update(bg(), n.ID, notifications.UpdateFields{Title: ptr("  Moved  ")})
	require.NoError(t, err)
	assert.Equal(t, "Moved", updated.Title)
	assert.Equal(t, n.Message, updated.Message)
	assert.Equal(t, n.UserID, updated.UserID)
	assert.Equal(t, n.CreatedAt, updated.CreatedAt)

	updated, err = f.gw.Update(bg(), n.ID, notifications.UpdateFields{ActionURL: ptr("https://example.com/m/1")})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/m/1", updated.ActionURL)

	updated, err = f.gw.Update(bg(), n.ID, notifications.UpdateFields{ActionURL: ptr("")})
	require.NoError(t, err)
	assert.Empty(t, updated.ActionURL)

	tests := []struct {
		name   string
		fields notifications.UpdateFields
	}{
		{"no fields", notifications.UpdateFields{}},
		{"blank title", notifications.UpdateFields{Title: ptr(" ")}},
		{"blank message", notifications.UpdateFields{Message: ptr("")}},
		{"bad link", notifications.UpdateFields{ActionURL: ptr("ftp://x")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.gw.Update(bg(), n.ID, tt.fields)
			assert.ErrorIs(t, err, notifications.ErrValidation)
		})
	}

	_, err = f.gw.Update(bg(), "missing", notifications.UpdateFields{Title: ptr("x")})
	assert.ErrorIs(t, err, notifications.ErrNotFound)
}

func TestGateway_Delete(t *testing.T) {
	f := newFixture()
	n, err := f.gw.Create(bg(), validInput("u1"))
	require.NoError(t, err)

	deleted, err := f.gw.Delete(bg(), n.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = f.gw.Delete(bg(), n.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = f.gw.Get(bg(), n.ID)
	assert.ErrorIs(t, err, notifications.ErrNotFound)
}

func TestGateway_Preferences(t *testing.T) {
	f := newFixture()

	p, err := f.gw.GetPreferences(bg(), "u1")
	require.NoError(t, err)
	assert.True(t, p.Enabled(notifications.TypeAlert))

	p, err = f.gw.SetPreferences(bg(), "u1", notifications.PreferencesPatch{
		notifications.TypeAlert: {Enabled: ptr(false)},
	})
	require.NoError(t, err)
	assert.False(t, p.Enabled(notifications.TypeAlert))

	_, err = f.gw.SetPreferences(bg(), "u1", notifications.PreferencesPatch{"nope": {}})
	assert.ErrorIs(t, err, notifications.ErrValidation)
}
