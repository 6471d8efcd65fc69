package docserver

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tiliavir/trivial-focus-tracker/internal/docstore"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newServer(t *testing.T, tokens map[string]string) *Server {
	t.Helper()
	store, err := docstore.New(filepath.Join(t.TempDir(), "docs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return New(store, tokens, []string{"todo_events", "event_records"}, zerolog.Nop())
}

func do(s *Server, method, path, token, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	s := newServer(t, map[string]string{"t1": "alice"})
	w := do(s, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestDocumentLifecycle(t *testing.T) {
	s := newServer(t, map[string]string{"t1": "alice"})
	const path = "/v1/docs/todo_events/alice"

	w := do(s, http.MethodGet, path, "t1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(s, http.MethodPut, path, "t1", `{"items":[{"text":"a"}]}`)
	require.Equal(t, http.StatusOK, w.Code)
	tag := w.Header().Get("ETag")
	require.NotEmpty(t, tag)

	w = do(s, http.MethodGet, path, "t1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"items":[{"text":"a"}]}`, w.Body.String())
	assert.Equal(t, tag, w.Header().Get("ETag"))

	w = do(s, http.MethodGet, path, "t1", "", "If-None-Match", tag)
	assert.Equal(t, http.StatusNotModified, w.Code)
	assert.Empty(t, w.Body.String())

	w = do(s, http.MethodDelete, path, "t1", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(s, http.MethodDelete, path, "t1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAuth(t *testing.T) {
	s := newServer(t, map[string]string{"t1": "alice", "t2": "bob"})

	assert.Equal(t, http.StatusUnauthorized, do(s, http.MethodGet, "/v1/docs/todo_events/alice", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(s, http.MethodGet, "/v1/docs/todo_events/alice", "nope", "").Code)
	assert.Equal(t, http.StatusForbidden, do(s, http.MethodPut, "/v1/docs/todo_events/alice", "t2", `{}`).Code)
	assert.Equal(t, http.StatusOK, do(s, http.MethodPut, "/v1/docs/todo_events/bob", "t2", `{}`).Code)
}

func TestAuthDisabledWithoutTokens(t *testing.T) {
	s := newServer(t, nil)
	assert.Equal(t, http.StatusOK, do(s, http.MethodPut, "/v1/docs/todo_events/anyone", "", `{"items":[]}`).Code)
}

func TestRejectsBadInput(t *testing.T) {
	s := newServer(t, map[string]string{"t1": "alice"})

	assert.Equal(t, http.StatusNotFound, do(s, http.MethodPut, "/v1/docs/secrets/alice", "t1", `{}`).Code)
	for _, body := range []string{``, `[]`, `null`, `"x"`, `{broken`} {
		w := do(s, http.MethodPut, "/v1/docs/todo_events/alice", "t1", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, "body %q", body)
	}
}
