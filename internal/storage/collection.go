// Package storage keeps ordered item collections in memory and persists
// each one as a single JSON file.
package storage

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrIndexOutOfRange is returned when an index is outside [0, Len()).
var ErrIndexOutOfRange = errors.New("index out of range")

// DefaultDebounce is the quiet period before a mutation is persisted.
const DefaultDebounce = 500 * time.Millisecond

// ChangeKind classifies a structural change.
type ChangeKind int

const (
	ChangeInsert ChangeKind = iota
	ChangeRemove
	ChangeUpdate
	ChangeReset
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeInsert:
		return "insert"
	case ChangeRemove:
		return "remove"
	case ChangeUpdate:
		return "update"
	default:
		return "reset"
	}
}

// Change describes a completed mutation. Index is -1 for ChangeReset.
type Change struct {
	Kind  ChangeKind
	Index int
}

// Options configures a Collection.
type Options struct {
	// Debounce is the quiet period before an automatic save. Zero saves
	// synchronously after every mutation; negative disables autosave.
	Debounce time.Duration
	// Logger receives load and save diagnostics. The zero Logger discards.
	Logger zerolog.Logger
	// OnSaveError is called when an automatic save fails.
	OnSaveError func(name string, err error)
}

// Collection is an ordered, mutex-guarded list of T backed by one JSON file.
//
// Every mutation completes under the lock; observers are notified after it
// is released, so they always see a consistent list. Mutations schedule a
// debounced save. A save that has started always runs to completion.
type Collection[T any] struct {
	name    string
	path    string
	rootKey string

	mu    sync.Mutex
	items []T

	saveMu sync.Mutex

	timerMu  sync.Mutex
	timer    *time.Timer
	pending  bool
	debounce time.Duration

	obsMu     sync.Mutex
	observers map[int]func(Change)
	nextObs   int

	logger      zerolog.Logger
	onSaveError func(string, error)
}

// NewCollection returns an empty collection stored at path. Call Load to
// read existing data.
func NewCollection[T any](name, path, rootKey string, opts Options) *Collection[T] {
	return &Collection[T]{
		name:        name,
		path:        path,
		rootKey:     rootKey,
		debounce:    opts.Debounce,
		observers:   make(map[int]func(Change)),
		logger:      opts.Logger.With().Str("collection", name).Logger(),
		onSaveError: opts.OnSaveError,
	}
}

// Name returns the collection name used as the remote document key.
func (c *Collection[T]) Name() string { return c.name }

// Path returns the backing file.
func (c *Collection[T]) Path() string { return c.path }

func (c *Collection[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Items returns a copy of the current items.
func (c *Collection[T]) Items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.items)
}

// At returns the item at i.
func (c *Collection[T]) At(i int) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i < 0 || i >= len(c.items) {
		var zero T
		return zero, fmt.Errorf("%s[%d]: %w", c.name, i, ErrIndexOutOfRange)
	}
	return c.items[i], nil
}

// Add appends item and returns its index.
func (c *Collection[T]) Add(item T) int {
	c.mu.Lock()
	c.items = append(c.items, item)
	i := len(c.items) - 1
	c.mu.Unlock()

	c.changed(Change{Kind: ChangeInsert, Index: i})
	return i
}

// Delete removes the item at i; later items shift down by one.
func (c *Collection[T]) Delete(i int) error {
	c.mu.Lock()
	if i < 0 || i >= len(c.items) {
		n := len(c.items)
		c.mu.Unlock()
		return fmt.Errorf("%s: delete %d of %d: %w", c.name, i, n, ErrIndexOutOfRange)
	}
	c.items = slices.Delete(c.items, i, i+1)
	c.mu.Unlock()

	c.changed(Change{Kind: ChangeRemove, Index: i})
	return nil
}

// Update applies fn to the item at i in place.
func (c *Collection[T]) Update(i int, fn func(*T)) error {
	c.mu.Lock()
	if i < 0 || i >= len(c.items) {
		c.mu.Unlock()
		return fmt.Errorf("%s: update %d: %w", c.name, i, ErrIndexOutOfRange)
	}
	fn(&c.items[i])
	c.mu.Unlock()

	c.changed(Change{Kind: ChangeUpdate, Index: i})
	return nil
}

// SortStable reorders the items with cmp, keeping equal items in their
// current order.
func (c *Collection[T]) SortStable(cmp func(a, b T) int) {
	c.mu.Lock()
	slices.SortStableFunc(c.items, cmp)
	c.mu.Unlock()

	c.changed(Change{Kind: ChangeReset, Index: -1})
}

// Observe registers fn for every completed change and returns a function
// that removes it.
func (c *Collection[T]) Observe(fn func(Change)) func() {
	c.obsMu.Lock()
	defer c.obsMu.Unlock()
	c.nextObs++
	id := c.nextObs
	c.observers[id] = fn
	return func() {
		c.obsMu.Lock()
		delete(c.observers, id)
		c.obsMu.Unlock()
	}
}

func (c *Collection[T]) notify(ch Change) {
	c.obsMu.Lock()
	ids := make([]int, 0, len(c.observers))
	for id := range c.observers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]func(Change), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, c.observers[id])
	}
	c.obsMu.Unlock()

	for _, fn := range fns {
		fn(ch)
	}
}

func (c *Collection[T]) changed(ch Change) {
	c.notify(ch)
	c.scheduleSave()
}

// Load replaces the items with the contents of the backing file. A missing
// file yields an empty collection. A malformed file is moved aside to
// <path>.corrupt and also yields an empty collection.
func (c *Collection[T]) Load() {
	c.saveMu.Lock()
	items := c.readLocked()
	c.saveMu.Unlock()

	c.mu.Lock()
	c.items = items
	c.mu.Unlock()

	c.notify(Change{Kind: ChangeReset, Index: -1})
}

func (c *Collection[T]) readLocked() []T {
	data, err := readFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		c.logger.Warn().Err(err).Msg("load failed, starting empty")
		return nil
	}
	items, skipped, err := decode[T](data)
	if err != nil {
		backupPath := c.path + ".corrupt"
		_ = os.Rename(c.path, backupPath)
		c.logger.Warn().Err(err).Str("backup", backupPath).Msg("corrupt JSON, starting empty")
		return nil
	}
	if skipped > 0 {
		c.logger.Warn().Int("skipped", skipped).Msg("dropped unreadable items")
	}
	c.logger.Debug().Int("items", len(items)).Msg("loaded")
	return items
}

// Save writes the current items to the backing file, cancelling any
// pending automatic save. A failed write leaves the items marked unsaved
// so the next Flush retries it.
func (c *Collection[T]) Save() error {
	c.cancelPending()
	return c.save()
}

func (c *Collection[T]) save() error {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()

	c.mu.Lock()
	data, err := encode(c.rootKey, c.items)
	c.mu.Unlock()
	if err != nil {
		return err
	}
	if err := writeFileAtomic(c.path, data); err != nil {
		c.markUnsaved()
		return err
	}
	c.logger.Debug().Int("bytes", len(data)).Msg("saved")
	return nil
}

// Flush performs a pending automatic save immediately and waits for any
// save already in progress.
func (c *Collection[T]) Flush() error {
	if c.cancelPending() {
		return c.save()
	}
	c.saveMu.Lock()
	c.saveMu.Unlock() //nolint:staticcheck // wait for an in-flight write
	return nil
}

// ReadFile returns the bytes of the backing file.
func (c *Collection[T]) ReadFile() ([]byte, error) {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()
	return readFile(c.path)
}

// ReplaceFile atomically overwrites the backing file with data and reloads.
// A pending automatic save is dropped because data is authoritative.
func (c *Collection[T]) ReplaceFile(data []byte) error {
	c.cancelPending()
	c.saveMu.Lock()
	err := writeFileAtomic(c.path, data)
	c.saveMu.Unlock()
	if err != nil {
		return err
	}
	c.Load()
	return nil
}

func (c *Collection[T]) scheduleSave() {
	switch {
	case c.debounce < 0:
		return
	case c.debounce == 0:
		c.autosave()
		return
	}

	c.timerMu.Lock()
	defer c.timerMu.Unlock()
	c.pending = true
	if c.timer == nil {
		c.timer = time.AfterFunc(c.debounce, c.fire)
		return
	}
	c.timer.Reset(c.debounce)
}

func (c *Collection[T]) fire() {
	if c.cancelPending() {
		c.autosave()
	}
}

// cancelPending clears a scheduled save and reports whether one existed.
func (c *Collection[T]) cancelPending() bool {
	c.timerMu.Lock()
	defer c.timerMu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
	}
	was := c.pending
	c.pending = false
	return was
}

// markUnsaved flags the items for the next Flush without arming the timer.
func (c *Collection[T]) markUnsaved() {
	c.timerMu.Lock()
	c.pending = true
	c.timerMu.Unlock()
}

func (c *Collection[T]) autosave() {
	if err := c.save(); err != nil {
		c.logger.Error().Err(err).Msg("autosave failed")
		if c.onSaveError != nil {
			c.onSaveError(c.name, err)
		}
	}
}
