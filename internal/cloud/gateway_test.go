package cloud_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tiliavir/trivial-focus-tracker/internal/cloud"
	"github.com/Tiliavir/trivial-focus-tracker/internal/eventbus"
	"github.com/Tiliavir/trivial-focus-tracker/internal/eventbus/testbus"
	"github.com/Tiliavir/trivial-focus-tracker/internal/model"
	"github.com/Tiliavir/trivial-focus-tracker/internal/storage"
)

// memRemote is an in-memory Remote.
type memRemote struct {
	mu     sync.Mutex
	docs   map[string][]byte
	subs   map[string]func([]byte)
	getErr error
	putErr error
}

func newMemRemote() *memRemote {
	return &memRemote{docs: map[string][]byte{}, subs: map[string]func([]byte){}}
}

func (r *memRemote) Get(_ context.Context, collection, user string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	doc, ok := r.docs[collection+"/"+user]
	if !ok {
		return nil, cloud.ErrNotFound
	}
	return doc, nil
}

func (r *memRemote) Put(_ context.Context, collection, user string, doc []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.putErr != nil {
		return r.putErr
	}
	r.docs[collection+"/"+user] = append([]byte(nil), doc...)
	return nil
}

func (r *memRemote) Subscribe(_ context.Context, collection, user string, fn func([]byte)) (func(), error) {
	k := collection + "/" + user
	r.mu.Lock()
	r.subs[k] = fn
	r.mu.Unlock()
	return func() {
		r.mu.Lock()
		delete(r.subs, k)
		r.mu.Unlock()
	}, nil
}

func (r *memRemote) push(collection, user string, doc []byte) {
	r.mu.Lock()
	fn := r.subs[collection+"/"+user]
	r.mu.Unlock()
	if fn != nil {
		fn(doc)
	}
}

func newTodos(t *testing.T, descs ...string) *storage.TodoStore {
	t.Helper()
	s := storage.NewTodoStore(t.TempDir(), storage.Options{Debounce: -1})
	for _, d := range descs {
		s.Add(model.NewTodoItem(d, model.CategoryDefault, model.PriorityMedium, model.Date{}, time.Now()))
	}
	return s
}

func TestUploadThenDownload(t *testing.T) {
	remote := newMemRemote()
	bus := testbus.New(t)
	g := cloud.NewGateway(remote, "alice", bus.EventBus, zerolog.Nop())

	src := newTodos(t, "a", "b")
	require.True(t, g.Upload(context.Background(), src))

	dst := newTodos(t, "stale")
	require.True(t, g.Download(context.Background(), dst))

	assert.Equal(t, 2, dst.Len())
	srcData, _ := src.ReadFile()
	dstData, _ := dst.ReadFile()
	assert.Equal(t, srcData, dstData)

	done := bus.Payloads(eventbus.EventSyncCompleted)
	require.Len(t, done, 2)
	assert.Equal(t, eventbus.SyncCompletedPayload{Collection: storage.TodoCollection, Direction: cloud.DirectionUp, OK: true}, done[0])
	assert.Equal(t, eventbus.SyncCompletedPayload{Collection: storage.TodoCollection, Direction: cloud.DirectionDown, OK: true}, done[1])
}

func TestDownloadWithoutRemoteDocumentLeavesFileUntouched(t *testing.T) {
	g := cloud.NewGateway(newMemRemote(), "alice", nil, zerolog.Nop())
	s := newTodos(t, "keep me")
	require.NoError(t, s.Save())
	before, err := os.ReadFile(s.Path())
	require.NoError(t, err)

	assert.False(t, g.Download(context.Background(), s))

	after, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.True(t, bytes.Equal(before, after))
	assert.Equal(t, 1, s.Len())
}

func TestDownloadRejectsNonObject(t *testing.T) {
	remote := newMemRemote()
	remote.docs[storage.TodoCollection+"/alice"] = []byte(`[1,2,3]`)
	g := cloud.NewGateway(remote, "alice", nil, zerolog.Nop())
	s := newTodos(t, "keep me")

	assert.False(t, g.Download(context.Background(), s))
	assert.Equal(t, 1, s.Len())
}

func TestFailuresReturnFalse(t *testing.T) {
	remote := newMemRemote()
	remote.getErr = errors.New("network down")
	remote.putErr = errors.New("network down")
	bus := testbus.New(t)
	g := cloud.NewGateway(remote, "alice", bus.EventBus, zerolog.Nop())
	s := newTodos(t, "a")

	assert.False(t, g.Upload(context.Background(), s))
	assert.False(t, g.Download(context.Background(), s))
	assert.Equal(t, 1, s.Len())
	for _, p := range bus.Payloads(eventbus.EventSyncCompleted) {
		assert.False(t, p.(eventbus.SyncCompletedPayload).OK)
	}
}

func TestUploadSaveFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))
	s := storage.NewTodoStore(filepath.Join(blocker, "sub"), storage.Options{Debounce: -1})

	remote := newMemRemote()
	g := cloud.NewGateway(remote, "alice", nil, zerolog.Nop())
	assert.False(t, g.Upload(context.Background(), s))
	assert.Empty(t, remote.docs)
}

func TestAsync(t *testing.T) {
	remote := newMemRemote()
	g := cloud.NewGateway(remote, "alice", nil, zerolog.Nop())
	s := newTodos(t, "a")

	results := make(chan bool, 2)
	g.UploadAsync(context.Background(), s, func(ok bool) { results <- ok })
	assert.True(t, <-results)

	other := newTodos(t)
	g.DownloadAsync(context.Background(), other, func(ok bool) { results <- ok })
	assert.True(t, <-results)
	g.Wait()
	assert.Equal(t, 1, other.Len())
}

func TestSubscribeReplacesLocalState(t *testing.T) {
	remote := newMemRemote()
	g := cloud.NewGateway(remote, "alice", nil, zerolog.Nop())
	defer g.Close()
	s := newTodos(t, "local")

	require.NoError(t, g.Subscribe(context.Background(), s))
	remote.push(storage.TodoCollection, "alice", []byte(`{"items":[{"text":"x"},{"text":"y"}]}`))
	assert.Equal(t, 2, s.Len())

	remote.push(storage.TodoCollection, "alice", []byte(`not json`))
	assert.Equal(t, 2, s.Len(), "invalid payloads are ignored")
}

func TestResubscribeCancelsPrevious(t *testing.T) {
	remote := &countingRemote{memRemote: newMemRemote()}
	g := cloud.NewGateway(remote, "alice", nil, zerolog.Nop())
	s := newTodos(t)

	require.NoError(t, g.Subscribe(context.Background(), s))
	require.NoError(t, g.Subscribe(context.Background(), s))
	assert.Equal(t, 1, remote.cancelled)

	g.Close()
	assert.Equal(t, 2, remote.cancelled)
}

type countingRemote struct {
	*memRemote
	cancelled int
}

func (r *countingRemote) Subscribe(ctx context.Context, collection, user string, fn func([]byte)) (func(), error) {
	cancel, err := r.memRemote.Subscribe(ctx, collection, user, fn)
	return func() {
		r.cancelled++
		cancel()
	}, err
}
