package notifications_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifyhub/handler"
	module "github.com/dmitrymomot/notifyhub/modules/notifications"
	"github.com/dmitrymomot/notifyhub/pkg/identity"
	"github.com/dmitrymomot/notifyhub/pkg/logger"
	"github.com/dmitrymomot/notifyhub/pkg/notifications"
	"github.com/dmitrymomot/notifyhub/pkg/pubsub"
	"github.com/dmitrymomot/notifyhub/pkg/sse"
)

type fixture struct {
	router    http.Handler
	gateway   *notifications.Gateway
	transport *notifications.StreamTransport
	bus       *pubsub.Bus[notifications.Notification]
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	log := logger.Discard()
	bus := pubsub.NewBus[notifications.Notification](pubsub.WithLogger(log))
	t.Cleanup(func() { _ = bus.Close() })

	gw := notifications.NewGateway(notifications.NewMemoryStorage(), bus,
		notifications.WithLogger(log),
		notifications.WithDirectory(notifications.StaticDirectory{"u1", "u2", "u3"}),
	)
	transport := notifications.NewStreamTransport(bus,
		notifications.WithHeartbeat(10*time.Millisecond),
		notifications.WithStreamLogger(log),
	)
	svc := module.NewService(gw, transport,
		module.WithErrorHandler(handler.NewErrorHandler(log, module.MapError)),
	)

	r := chi.NewRouter()
	r.Use(identity.Middleware(identity.Header("X-User-ID", "X-User-Admin"), nil))
	r.Mount("/api", module.Router(svc))

	return &fixture{router: r, gateway: gw, transport: transport, bus: bus}
}

type response struct {
	Data  json.RawMessage      `json:"data"`
	Error *handler.ErrorDetail `json:"error"`
}

func (f *fixture) do(t *testing.T, user, method, path, body string) (int, response) {
	t.Helper()

	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	if user == "admin" {
		req.Header.Set("X-User-Admin", "true")
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	var resp response
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	}
	return rec.Code, resp
}

func dataAs[T any](t *testing.T, r response) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(r.Data, &v))
	return v
}

func (f *fixture) seed(t *testing.T, userID, title string) notifications.Notification {
	t.Helper()
	n, err := f.gateway.Create(context.Background(), notifications.CreateInput{
		UserID: userID, Type: notifications.TypeInfo, Title: title, Message: "body",
	})
	require.NoError(t, err)
	return n
}

func TestCreateAndList(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	code, resp := f.do(t, "u1", http.MethodPost, "/api/notifications",
		`{"type":"message","title":"  Hello ","message":"World","actionUrl":"/inbox"}`)
	require.Equal(t, http.StatusCreated, code)
	created := dataAs[notifications.Notification](t, resp)
	assert.Equal(t, "u1", created.UserID)
	assert.Equal(t, "Hello", created.Title)
	assert.False(t, created.Read)

	f.seed(t, "u1", "second")
	f.seed(t, "u2", "other user")

	code, resp = f.do(t, "u1", http.MethodGet, "/api/notifications?limit=10", "")
	require.Equal(t, http.StatusOK, code)
	page := dataAs[notifications.Page](t, resp)
	require.Len(t, page.Notifications, 2)
	assert.Equal(t, "second", page.Notifications[0].Title)
	assert.Equal(t, 2, page.UnreadCount)
	assert.Equal(t, 2, page.Total)

	code, resp = f.do(t, "u1", http.MethodGet, "/api/notifications?type=message", "")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, dataAs[notifications.Page](t, resp).Notifications, 1)

	code, resp = f.do(t, "u1", http.MethodGet, "/api/notifications/unread-count", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]int{"unreadCount": 2}, dataAs[map[string]int](t, resp))
}

func TestCreateErrors(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	tests := []struct {
		name   string
		user   string
		body   string
		status int
		code   string
	}{
		{"unauthenticated", "", `{"type":"info","title":"t","message":"m"}`, http.StatusUnauthorized, ""},
		{"for another user", "u1", `{"userId":"u2","type":"info","title":"t","message":"m"}`, http.StatusForbidden, "forbidden"},
		{"missing title", "u1", `{"type":"info","message":"m"}`, http.StatusUnprocessableEntity, "validation_error"},
		{"unknown type", "u1", `{"type":"nope","title":"t","message":"m"}`, http.StatusUnprocessableEntity, "validation_error"},
		{"malformed json", "u1", `{"type":`, http.StatusBadRequest, "bad_request"},
		{"unknown field", "u1", `{"type":"info","title":"t","message":"m","extra":1}`, http.StatusBadRequest, "bad_request"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodPost, "/api/notifications", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			if tt.user != "" {
				req.Header.Set("X-User-ID", tt.user)
			}
			rec := httptest.NewRecorder()
			f.router.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.code != "" {
				assert.Contains(t, rec.Body.String(), `"code":"`+tt.code+`"`)
			}
		})
	}

	t.Run("validation details", func(t *testing.T) {
		t.Parallel()
		code, resp := f.do(t, "u1", http.MethodPost, "/api/notifications", `{"type":"info","message":"m"}`)
		require.Equal(t, http.StatusUnprocessableEntity, code)
		require.NotNil(t, resp.Error)
		assert.Contains(t, resp.Error.Details, "title")
	})

	t.Run("admin creates for another user", func(t *testing.T) {
		t.Parallel()
		code, resp := f.do(t, "admin", http.MethodPost, "/api/notifications", `{"userId":"u3","type":"system","title":"t","message":"m"}`)
		require.Equal(t, http.StatusCreated, code)
		assert.Equal(t, "u3", dataAs[notifications.Notification](t, resp).UserID)
	})
}

func TestReadState(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	mine := f.seed(t, "u1", "a")
	f.seed(t, "u1", "b")
	theirs := f.seed(t, "u2", "c")

	code, resp := f.do(t, "u1", http.MethodPost, "/api/notifications/"+mine.ID+"/read", "")
	require.Equal(t, http.StatusOK, code)
	read := dataAs[notifications.Notification](t, resp)
	assert.True(t, read.Read)
	assert.NotNil(t, read.ReadAt)

	code, _ = f.do(t, "u1", http.MethodPost, "/api/notifications/"+theirs.ID+"/read", "")
	assert.Equal(t, http.StatusNotFound, code, "foreign records look missing")

	code, _ = f.do(t, "u1", http.MethodPost, "/api/notifications/missing/read", "")
	assert.Equal(t, http.StatusNotFound, code)

	code, resp = f.do(t, "u1", http.MethodPost, "/api/notifications/read-all", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]int{"updated": 1}, dataAs[map[string]int](t, resp))

	n, err := f.gateway.UnreadCount(context.Background(), "u2")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "other users are untouched")
}

func TestUpdate(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	n := f.seed(t, "u1", "original")

	code, _ := f.do(t, "u1", http.MethodPatch, "/api/notifications/"+n.ID, `{"title":"hacked"}`)
	assert.Equal(t, http.StatusForbidden, code)

	code, resp := f.do(t, "admin", http.MethodPatch, "/api/notifications/"+n.ID, `{"title":"edited","actionUrl":"https://example.com/x"}`)
	require.Equal(t, http.StatusOK, code)
	updated := dataAs[notifications.Notification](t, resp)
	assert.Equal(t, "edited", updated.Title)
	assert.Equal(t, "body", updated.Message)
	assert.Equal(t, "https://example.com/x", updated.ActionURL)

	code, _ = f.do(t, "admin", http.MethodPatch, "/api/notifications/missing", `{"title":"x"}`)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = f.do(t, "admin", http.MethodPatch, "/api/notifications/"+n.ID, `{"title":"   "}`)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
}

func TestDelete(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	mine := f.seed(t, "u1", "a")
	theirs := f.seed(t, "u2", "b")

	code, _ := f.do(t, "u1", http.MethodDelete, "/api/notifications/"+theirs.ID, "")
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = f.do(t, "u1", http.MethodDelete, "/api/notifications/"+mine.ID, "")
	assert.Equal(t, http.StatusNoContent, code)

	code, _ = f.do(t, "u1", http.MethodDelete, "/api/notifications/"+mine.ID, "")
	assert.Equal(t, http.StatusNoContent, code, "deleting an absent id is a no-op")

	code, _ = f.do(t, "admin", http.MethodDelete, "/api/notifications/"+theirs.ID, "")
	assert.Equal(t, http.StatusNoContent, code)
}

func TestBroadcast(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	code, _ := f.do(t, "u1", http.MethodPost, "/api/notifications/broadcast", `{"type":"system","title":"t","message":"m"}`)
	assert.Equal(t, http.StatusForbidden, code)

	code, resp := f.do(t, "admin", http.MethodPost, "/api/notifications/broadcast", `{"type":"system","title":"Maintenance","message":"Tonight"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, notifications.BroadcastResult{Recipients: 3, Created: 3}, dataAs[notifications.BroadcastResult](t, resp))

	code, resp = f.do(t, "admin", http.MethodPost, "/api/notifications/broadcast", `{"userIds":["u2","u2","u9"],"type":"alert","title":"t","message":"m"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, notifications.BroadcastResult{Recipients: 2, Created: 2}, dataAs[notifications.BroadcastResult](t, resp))

	code, _ = f.do(t, "admin", http.MethodPost, "/api/notifications/broadcast", `{"userIds":[],"type":"alert","title":"t","message":"m"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, resp = f.do(t, "u2", http.MethodGet, "/api/notifications", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 2, dataAs[notifications.Page](t, resp).Total)
}

func TestPreferences(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	code, resp := f.do(t, "u1", http.MethodGet, "/api/notifications/preferences", "")
	require.Equal(t, http.StatusOK, code)
	assert.True(t, dataAs[notifications.Preferences](t, resp).Enabled(notifications.TypeAlert))

	code, resp = f.do(t, "u1", http.MethodPut, "/api/notifications/preferences", `{"types":{"alert":{"enabled":false}}}`)
	require.Equal(t, http.StatusOK, code)
	assert.False(t, dataAs[notifications.Preferences](t, resp).Enabled(notifications.TypeAlert))

	code, _ = f.do(t, "u1", http.MethodPut, "/api/notifications/preferences", `{"types":{"bogus":{"enabled":false}}}`)
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, resp = f.do(t, "u2", http.MethodGet, "/api/notifications/preferences", "")
	require.Equal(t, http.StatusOK, code)
	assert.True(t, dataAs[notifications.Preferences](t, resp).Enabled(notifications.TypeAlert), "preferences are per user")
}

func TestAdminList(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.seed(t, "u1", "a")
	f.seed(t, "u2", "b")

	code, _ := f.do(t, "u1", http.MethodGet, "/api/admin/notifications", "")
	assert.Equal(t, http.StatusForbidden, code)

	code, resp := f.do(t, "admin", http.MethodGet, "/api/admin/notifications", "")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, dataAs[[]notifications.Notification](t, resp), 2)

	code, resp = f.do(t, "admin", http.MethodGet, "/api/notifications?userId=u2", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, dataAs[notifications.Page](t, resp).Total)

	code, _ = f.do(t, "u1", http.MethodGet, "/api/notifications?userId=u2", "")
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = f.do(t, "admin", http.MethodGet, "/api/admin/notifications?limit=1000", "")
	assert.Equal(t, http.StatusUnprocessableEntity, code)
}

func TestStream(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	srv := httptest.NewServer(f.router)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/notifications/stream", nil)
	require.NoError(t, err)
	req.Header.Set("X-User-ID", "u1")
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	require.Eventually(t, func() bool { return f.bus.Subscribers("u1") == 1 }, time.Second, 5*time.Millisecond)

	// Only the recipient's stream sees the event; heartbeats decode to nothing.
	f.seed(t, "u2", "not for u1")
	sent := f.seed(t, "u1", "live")

	got := make(chan notifications.Notification, 1)
	go func() {
		var n notifications.Notification
		if err := sse.NewDecoder(resp.Body).Decode(&n); err == nil {
			got <- n
		}
	}()

	select {
	case n := <-got:
		assert.Equal(t, sent.ID, n.ID)
		assert.Equal(t, "live", n.Title)
	case <-time.After(2 * time.Second):
		require.Fail(t, "no event received")
	}

	cancel()
	require.Eventually(t, func() bool { return f.transport.Active() == 0 }, time.Second, 5*time.Millisecond)
	assert.Zero(t, f.bus.Subscribers("u1"), "disconnect releases the subscription")
}

func TestStreamForeignUser(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	code, _ := f.do(t, "u1", http.MethodGet, "/api/notifications/stream?userId=u2", "")
	assert.Equal(t, http.StatusForbidden, code)
	assert.Zero(t, f.transport.Active())
}
