package cloud

import (
	"context"
	"errors"

	"github.com/Tiliavir/trivial-focus-tracker/internal/docstore"
)

// SQLRemote uses a docstore database directly, for a database file on a
// shared volume or for tests.
type SQLRemote struct {
	store *docstore.Store
}

// NewSQLRemote wraps store.
func NewSQLRemote(store *docstore.Store) *SQLRemote {
	return &SQLRemote{store: store}
}

func (r *SQLRemote) Get(ctx context.Context, collection, user string) ([]byte, error) {
	doc, err := r.store.Get(ctx, collection, user)
	if err != nil {
		return nil, mapError(err)
	}
	return doc.Body, nil
}

func (r *SQLRemote) Put(ctx context.Context, collection, user string, doc []byte) error {
	_, err := r.store.Put(ctx, collection, user, doc)
	return mapError(err)
}

// Subscribe reports Puts made through the same docstore.Store.
func (r *SQLRemote) Subscribe(ctx context.Context, collection, user string, fn func([]byte)) (func(), error) {
	ctx, cancel := context.WithCancel(ctx)
	unsubscribe := r.store.Subscribe(collection, user, func(doc docstore.Document) {
		if ctx.Err() == nil {
			fn(doc.Body)
		}
	})
	return func() {
		cancel()
		unsubscribe()
	}, nil
}

func mapError(err error) error {
	if errors.Is(err, docstore.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
