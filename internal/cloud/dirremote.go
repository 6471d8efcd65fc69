package cloud

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/Tiliavir/trivial-focus-tracker/internal/fsutil"
)

const dirDebounceDelay = 50 * time.Millisecond

// DirRemote keeps documents as files in a shared directory, laid out as
// <dir>/<user>/<collection>.json. It suits folders replicated by a file
// sync tool.
type DirRemote struct {
	dir    string
	logger zerolog.Logger
}

// NewDirRemote returns a remote rooted at dir.
func NewDirRemote(dir string, logger zerolog.Logger) *DirRemote {
	return &DirRemote{dir: dir, logger: logger}
}

func (r *DirRemote) path(collection, user string) string {
	return filepath.Join(r.dir, user, collection+".json")
}

// Get reads the document file.
func (r *DirRemote) Get(_ context.Context, collection, user string) ([]byte, error) {
	data, err := os.ReadFile(r.path(collection, user))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading remote document: %w", err)
	}
	return data, nil
}

// Put writes the document file via temp file and rename.
func (r *DirRemote) Put(_ context.Context, collection, user string, doc []byte) error {
	if err := fsutil.WriteFileAtomic(r.path(collection, user), doc); err != nil {
		return fmt.Errorf("writing remote document: %w", err)
	}
	return nil
}

// Subscribe watches the user's directory and calls fn with the file
// contents after changes to the collection file settle.
func (r *DirRemote) Subscribe(ctx context.Context, collection, user string, fn func([]byte)) (func(), error) {
	userDir := filepath.Join(r.dir, user)
	if err := os.MkdirAll(userDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating remote directory: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := watcher.Add(userDir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watching %s: %w", userDir, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	target := r.path(collection, user)
	var (
		mu    sync.Mutex
		timer *time.Timer
		wg    sync.WaitGroup
	)

	deliver := func() {
		if ctx.Err() != nil {
			return
		}
		data, err := os.ReadFile(target)
		if err != nil {
			r.logger.Warn().Err(err).Str("collection", collection).Msg("reading changed document")
			return
		}
		fn(data)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				mu.Lock()
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(dirDebounceDelay, deliver)
				mu.Unlock()
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				r.logger.Warn().Err(err).Msg("watcher error")
			}
		}
	}()

	return func() {
		cancel()
		_ = watcher.Close()
		wg.Wait()
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}, nil
}
