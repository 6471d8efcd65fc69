package cloud_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tiliavir/trivial-focus-tracker/internal/cloud"
	"github.com/Tiliavir/trivial-focus-tracker/internal/docserver"
	"github.com/Tiliavir/trivial-focus-tracker/internal/docstore"
	"github.com/Tiliavir/trivial-focus-tracker/internal/storage"
)

var collections = []string{storage.TodoCollection, storage.EventCollection, storage.TimerCollection}

func newDocStore(t *testing.T) *docstore.Store {
	t.Helper()
	store, err := docstore.New(filepath.Join(t.TempDir(), "docs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// bearer adds a static Authorization header.
type bearer struct {
	token string
	next  http.RoundTripper
}

func (b bearer) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+b.token)
	return b.next.RoundTrip(req)
}

func newHTTPRemote(t *testing.T, poll time.Duration) *cloud.HTTPRemote {
	t.Helper()
	gin.SetMode(gin.TestMode)
	srv := docserver.New(newDocStore(t), map[string]string{"secret": "alice"}, collections, zerolog.Nop())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	client := &http.Client{Transport: bearer{token: "secret", next: http.DefaultTransport}}
	return cloud.NewHTTPRemote(ts.URL, client, poll, zerolog.Nop())
}

func remotes(t *testing.T) map[string]cloud.Remote {
	return map[string]cloud.Remote{
		"dir":  cloud.NewDirRemote(t.TempDir(), zerolog.Nop()),
		"sql":  cloud.NewSQLRemote(newDocStore(t)),
		"http": newHTTPRemote(t, 10*time.Millisecond),
	}
}

func TestRemoteGetPut(t *testing.T) {
	for name, r := range remotes(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := r.Get(ctx, storage.TodoCollection, "alice")
			assert.ErrorIs(t, err, cloud.ErrNotFound)

			require.NoError(t, r.Put(ctx, storage.TodoCollection, "alice", []byte(`{"items":[]}`)))
			got, err := r.Get(ctx, storage.TodoCollection, "alice")
			require.NoError(t, err)
			assert.JSONEq(t, `{"items":[]}`, string(got))

			require.NoError(t, r.Put(ctx, storage.TodoCollection, "alice", []byte(`{"items":[{"text":"b"}]}`)))
			got, err = r.Get(ctx, storage.TodoCollection, "alice")
			require.NoError(t, err)
			assert.JSONEq(t, `{"items":[{"text":"b"}]}`, string(got))
		})
	}
}

func TestRemoteSubscribe(t *testing.T) {
	for name, r := range remotes(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, r.Put(ctx, storage.EventCollection, "alice", []byte(`{"events":[]}`)))

			got := make(chan string, 10)
			cancel, err := r.Subscribe(ctx, storage.EventCollection, "alice", func(b []byte) { got <- string(b) })
			require.NoError(t, err)

			require.NoError(t, r.Put(ctx, storage.EventCollection, "alice", []byte(`{"events":[{"event_description":"x"}]}`)))

			select {
			case doc := <-got:
				assert.JSONEq(t, `{"events":[{"event_description":"x"}]}`, doc)
			case <-time.After(3 * time.Second):
				t.Fatal("no change delivered")
			}

			cancel()
			require.NoError(t, r.Put(ctx, storage.EventCollection, "alice", []byte(`{"events":[{"event_description":"late"}]}`)))
			time.Sleep(100 * time.Millisecond)
			for len(got) > 0 {
				assert.NotContains(t, <-got, "late")
			}
		})
	}
}

func TestHTTPRemoteUnauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := docserver.New(newDocStore(t), map[string]string{"secret": "alice"}, collections, zerolog.Nop())
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	r := cloud.NewHTTPRemote(ts.URL, nil, 0, zerolog.Nop())
	err := r.Put(context.Background(), storage.TodoCollection, "alice", []byte(`{}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestGatewayOverHTTP(t *testing.T) {
	g := cloud.NewGateway(newHTTPRemote(t, time.Hour), "alice", nil, zerolog.Nop())
	src := newTodos(t, "one", "two", "three")
	require.True(t, g.Upload(context.Background(), src))

	dst := newTodos(t)
	require.True(t, g.Download(context.Background(), dst))
	assert.Equal(t, 3, dst.Len())
}
