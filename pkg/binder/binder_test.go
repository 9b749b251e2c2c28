package binder_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifyhub/pkg/binder"
)

type payload struct {
	Title  string  `json:"title"`
	Action *string `json:"actionUrl"`
}

func jsonRequest(body, contentType string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	if contentType != "" {
		r.Header.Set("Content-Type", contentType)
	}
	return r
}

func TestJSON(t *testing.T) {
	t.Parallel()
	bind := binder.JSON()

	t.Run("decodes", func(t *testing.T) {
		t.Parallel()
		var p payload
		require.NoError(t, bind(jsonRequest(`{"title":"hi","actionUrl":""}`, "application/json; charset=utf-8"), &p))
		assert.Equal(t, "hi", p.Title)
		require.NotNil(t, p.Action)
		assert.Empty(t, *p.Action)
	})

	t.Run("absent pointer stays nil", func(t *testing.T) {
		t.Parallel()
		var p payload
		require.NoError(t, bind(jsonRequest(`{"title":"hi"}`, "application/json"), &p))
		assert.Nil(t, p.Action)
	})

	tests := []struct {
		name        string
		body        string
		contentType string
		err         error
	}{
		{"missing content type", `{}`, "", binder.ErrMissingContentType},
		{"wrong media type", `{}`, "text/plain", binder.ErrUnsupportedMediaType},
		{"empty body", ``, "application/json", binder.ErrFailedToParseJSON},
		{"malformed", `{"title":`, "application/json", binder.ErrFailedToParseJSON},
		{"unknown field", `{"nope":1}`, "application/json", binder.ErrFailedToParseJSON},
		{"trailing data", `{"title":"a"}{"title":"b"}`, "application/json", binder.ErrFailedToParseJSON},
		{"too large", `{"title":"` + strings.Repeat("x", int(binder.DefaultMaxJSONSize)) + `"}`, "application/json", binder.ErrFailedToParseJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var p payload
			assert.ErrorIs(t, bind(jsonRequest(tt.body, tt.contentType), &p), tt.err)
		})
	}
}

type listRequest struct {
	ID      string   `path:"id"`
	Unread  bool     `query:"unread"`
	Types   []string `query:"type"`
	Limit   *int     `query:"limit"`
	Offset  int      `query:"offset"`
	Ignored string   `query:"-"`
	Plain   string
}

func TestQuery(t *testing.T) {
	t.Parallel()
	bind := binder.Query()

	t.Run("binds values", func(t *testing.T) {
		t.Parallel()
		r := httptest.NewRequest(http.MethodGet, "/?unread=true&type=info,alert&type=system&limit=5&Ignored=x&Plain=y", nil)
		var req listRequest
		require.NoError(t, bind(r, &req))
		assert.True(t, req.Unread)
		assert.Equal(t, []string{"info", "alert", "system"}, req.Types)
		require.NotNil(t, req.Limit)
		assert.Equal(t, 5, *req.Limit)
		assert.Zero(t, req.Offset)
		assert.Empty(t, req.Ignored)
		assert.Empty(t, req.Plain)
	})

	t.Run("invalid number", func(t *testing.T) {
		t.Parallel()
		r := httptest.NewRequest(http.MethodGet, "/?offset=ten", nil)
		var req listRequest
		assert.ErrorIs(t, bind(r, &req), binder.ErrFailedToParseQuery)
	})

	t.Run("invalid target", func(t *testing.T) {
		t.Parallel()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		var s string
		assert.ErrorIs(t, bind(r, &s), binder.ErrInvalidTarget)
		assert.ErrorIs(t, bind(r, nil), binder.ErrInvalidTarget)
	})
}

func TestPath(t *testing.T) {
	t.Parallel()
	params := map[string]string{"id": "n-1"}
	bind := binder.Path(func(_ *http.Request, name string) string { return params[name] })

	var req listRequest
	require.NoError(t, bind(httptest.NewRequest(http.MethodGet, "/", nil), &req))
	assert.Equal(t, "n-1", req.ID)
}
