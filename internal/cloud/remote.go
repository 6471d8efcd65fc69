// Package cloud copies collection files to and from a per-user remote
// document. The remote copy is written and read as a whole; the last
// writer wins.
package cloud

import (
	"context"
	"errors"
)

// ErrNotFound is returned by a Remote when the user has no document in a
// collection.
var ErrNotFound = errors.New("remote document not found")

// Remote stores one JSON document per (collection, user).
type Remote interface {
	Get(ctx context.Context, collection, user string) ([]byte, error)
	Put(ctx context.Context, collection, user string, doc []byte) error
	// Subscribe calls fn with the new document whenever it changes
	// remotely, until cancel is called or ctx ends.
	Subscribe(ctx context.Context, collection, user string, fn func([]byte)) (cancel func(), err error)
}

// Syncable is a local collection that can be copied to a Remote.
type Syncable interface {
	Name() string
	Save() error
	ReadFile() ([]byte, error)
	ReplaceFile(data []byte) error
}
