package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Tiliavir/trivial-focus-tracker/internal/eventbus"
)

// Sync directions reported in SyncCompleted events.
const (
	DirectionUp   = "up"
	DirectionDown = "down"
	DirectionLive = "live"
)

// Gateway uploads and downloads Syncables for one user. Failures are
// logged and reported as false; nothing is retried.
type Gateway struct {
	remote Remote
	user   string
	bus    *eventbus.EventBus
	logger zerolog.Logger

	mu   sync.Mutex
	subs map[string]func()
	wg   sync.WaitGroup
}

// NewGateway returns a gateway for user. bus may be nil.
func NewGateway(remote Remote, user string, bus *eventbus.EventBus, logger zerolog.Logger) *Gateway {
	return &Gateway{
		remote: remote,
		user:   user,
		bus:    bus,
		logger: logger,
		subs:   make(map[string]func()),
	}
}

// Upload saves s and writes its file as the user's remote document.
func (g *Gateway) Upload(ctx context.Context, s Syncable) bool {
	ok := g.upload(ctx, s)
	g.report(s.Name(), DirectionUp, ok)
	return ok
}

func (g *Gateway) upload(ctx context.Context, s Syncable) bool {
	log := g.logger.With().Str("collection", s.Name()).Logger()
	if err := s.Save(); err != nil {
		log.Error().Err(err).Msg("upload: save failed")
		return false
	}
	data, err := s.ReadFile()
	if err != nil {
		log.Error().Err(err).Msg("upload: read failed")
		return false
	}
	if err := g.remote.Put(ctx, s.Name(), g.user, data); err != nil {
		log.Error().Err(err).Msg("upload failed")
		return false
	}
	log.Info().Int("bytes", len(data)).Msg("uploaded")
	return true
}

// Download replaces the local file of s with the user's remote document
// and reloads s. When the document does not exist or is not a JSON object,
// nothing local changes and false is returned.
func (g *Gateway) Download(ctx context.Context, s Syncable) bool {
	ok := g.download(ctx, s)
	g.report(s.Name(), DirectionDown, ok)
	return ok
}

func (g *Gateway) download(ctx context.Context, s Syncable) bool {
	log := g.logger.With().Str("collection", s.Name()).Logger()
	data, err := g.remote.Get(ctx, s.Name(), g.user)
	if errors.Is(err, ErrNotFound) {
		log.Info().Msg("no remote document")
		return false
	}
	if err != nil {
		log.Error().Err(err).Msg("download failed")
		return false
	}
	if !isObject(data) {
		log.Error().Msg("remote document is not a JSON object")
		return false
	}
	if err := s.ReplaceFile(data); err != nil {
		log.Error().Err(err).Msg("download: replacing local file failed")
		return false
	}
	log.Info().Int("bytes", len(data)).Msg("downloaded")
	return true
}

// UploadAsync runs Upload on a new goroutine and passes the result to done.
func (g *Gateway) UploadAsync(ctx context.Context, s Syncable, done func(bool)) {
	g.async(func() bool { return g.Upload(ctx, s) }, done)
}

// DownloadAsync runs Download on a new goroutine and passes the result to
// done.
func (g *Gateway) DownloadAsync(ctx context.Context, s Syncable, done func(bool)) {
	g.async(func() bool { return g.Download(ctx, s) }, done)
}

func (g *Gateway) async(op func() bool, done func(bool)) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		ok := op()
		if done != nil {
			done(ok)
		}
	}()
}

// Wait blocks until all async operations have finished.
func (g *Gateway) Wait() {
	g.wg.Wait()
}

// Subscribe starts live sync for s: every remote change replaces the local
// file. An existing subscription for the same collection is cancelled
// first.
func (g *Gateway) Subscribe(ctx context.Context, s Syncable) error {
	name := s.Name()
	g.Unsubscribe(name)

	log := g.logger.With().Str("collection", name).Logger()
	cancel, err := g.remote.Subscribe(ctx, name, g.user, func(data []byte) {
		ok := g.apply(s, data, log)
		g.report(name, DirectionLive, ok)
	})
	if err != nil {
		log.Error().Err(err).Msg("subscribe failed")
		return err
	}

	g.mu.Lock()
	g.subs[name] = cancel
	g.mu.Unlock()
	log.Info().Msg("live sync started")
	return nil
}

func (g *Gateway) apply(s Syncable, data []byte, log zerolog.Logger) bool {
	if !isObject(data) {
		log.Warn().Msg("ignoring remote change that is not a JSON object")
		return false
	}
	if current, err := s.ReadFile(); err == nil && bytes.Equal(current, data) {
		return true
	}
	if err := s.ReplaceFile(data); err != nil {
		log.Error().Err(err).Msg("live sync: replacing local file failed")
		return false
	}
	log.Info().Int("bytes", len(data)).Msg("remote change applied")
	return true
}

// Unsubscribe cancels live sync for a collection.
func (g *Gateway) Unsubscribe(name string) {
	g.mu.Lock()
	cancel, ok := g.subs[name]
	delete(g.subs, name)
	g.mu.Unlock()
	if ok {
		cancel()
	}
}

// Close cancels every subscription and waits for async operations.
func (g *Gateway) Close() {
	g.mu.Lock()
	subs := g.subs
	g.subs = make(map[string]func())
	g.mu.Unlock()
	for _, cancel := range subs {
		cancel()
	}
	g.wg.Wait()
}

func (g *Gateway) report(collection, direction string, ok bool) {
	if g.bus == nil {
		return
	}
	g.bus.PublishSyncCompleted(eventbus.SyncCompletedPayload{
		Collection: collection,
		Direction:  direction,
		OK:         ok,
	})
}

func isObject(data []byte) bool {
	var v map[string]json.RawMessage
	return json.Unmarshal(data, &v) == nil && v != nil
}
