// Package app wires the stores, timer, recorder and sync gateway into one
// running instance.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Tiliavir/trivial-focus-tracker/internal/cloud"
	"github.com/Tiliavir/trivial-focus-tracker/internal/eventbus"
	"github.com/Tiliavir/trivial-focus-tracker/internal/logging"
	"github.com/Tiliavir/trivial-focus-tracker/internal/model"
	"github.com/Tiliavir/trivial-focus-tracker/internal/recorder"
	"github.com/Tiliavir/trivial-focus-tracker/internal/storage"
	"github.com/Tiliavir/trivial-focus-tracker/internal/tagparse"
	"github.com/Tiliavir/trivial-focus-tracker/internal/timer"
)

// DefaultDescription labels records when no todo is active.
const DefaultDescription = "Focus session"

// ErrNoRemote is returned by sync operations when no remote is configured.
var ErrNoRemote = errors.New("sync is not configured")

// Notifier delivers a user-visible notification.
type Notifier interface {
	Notify(title, message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(title, message string)

func (f NotifierFunc) Notify(title, message string) { f(title, message) }

// RecordPrompt is asked how to label a finished session. It receives the
// suggested description and category and returns the final values; ok false
// discards the session.
type RecordPrompt func(completedMinutes int, description string, category model.Category) (string, model.Category, bool)

// Options configures New.
type Options struct {
	DataDir      string
	UserID       string
	TimerSeconds int
	Store        storage.Options

	// Remote enables the sync gateway. Nil disables sync.
	Remote cloud.Remote
	// Converter is consulted by AddFromText before the tag parser.
	Converter tagparse.Converter
	Notifier  Notifier
	// Prompt defaults to accepting the suggestion unchanged.
	Prompt RecordPrompt
	// Now defaults to time.Now.
	Now    func() time.Time
	Logger zerolog.Logger
}

// App is one running tracker instance.
type App struct {
	Bus      *eventbus.EventBus
	Todos    *storage.TodoStore
	Events   *storage.EventStore
	TimerLog *storage.TimerLog
	Recorder *recorder.Recorder
	Timer    *timer.Machine
	// Gateway is nil when no remote is configured.
	Gateway *cloud.Gateway

	converter tagparse.Converter
	notifier  Notifier
	prompt    RecordPrompt
	now       func() time.Time
	logger    zerolog.Logger

	mu     sync.Mutex
	active int
	unsubs []func()
}

// New builds an App, loads every collection from opts.DataDir and wires the
// event handlers.
func New(opts Options) (*App, error) {
	if opts.DataDir == "" {
		return nil, errors.New("data directory is required")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.TimerSeconds == 0 {
		opts.TimerSeconds = timer.DefaultSeconds
	}
	logger := opts.Logger
	bus := eventbus.New()
	eventbus.RegisterDebugLogger(bus, logging.Component(logger, "eventbus"))

	storeOpts := opts.Store
	storeOpts.Logger = logging.Component(logger, "storage")
	next := storeOpts.OnSaveError
	storeOpts.OnSaveError = func(name string, err error) {
		bus.PublishStoreSaveFailed(eventbus.StoreSaveFailedPayload{Collection: name, Err: err})
		if next != nil {
			next(name, err)
		}
	}

	a := &App{
		Bus:       bus,
		Todos:     storage.NewTodoStore(opts.DataDir, storeOpts),
		Events:    storage.NewEventStore(opts.DataDir, storeOpts),
		TimerLog:  storage.NewTimerLog(opts.DataDir, storeOpts),
		converter: opts.Converter,
		notifier:  opts.Notifier,
		prompt:    opts.Prompt,
		now:       opts.Now,
		logger:    logger,
		active:    -1,
	}
	a.Todos.Load()
	a.Events.Load()
	a.TimerLog.Load()

	a.Recorder = recorder.New(a.Events, bus, logging.Component(logger, "recorder"), recorder.WithClock(opts.Now))
	a.Timer = timer.New(bus, a.Recorder, logging.Component(logger, "timer"), opts.TimerSeconds)
	if opts.Remote != nil {
		a.Gateway = cloud.NewGateway(opts.Remote, opts.UserID, bus, logging.Component(logger, "sync"))
	}

	a.unsubs = append(a.unsubs,
		bus.SubscribeRecordRequested(a.onRecordRequested),
		bus.SubscribeTimerFinished(a.onFinished),
		bus.SubscribeStatusChanged(a.onStatusChanged),
	)
	return a, nil
}

func (a *App) today() model.Date {
	return model.DateOf(a.now())
}

// AddFromText turns free text into a todo and appends it. The converter is
// tried first when configured; #tags are parsed otherwise.
func (a *App) AddFromText(ctx context.Context, text string) (model.TodoItem, error) {
	if strings.TrimSpace(text) == "" {
		return model.TodoItem{}, errors.New("empty todo")
	}
	s, converted := tagparse.ParseWithFallback(ctx, a.converter, text, a.today())
	if s.Text == "" {
		return model.TodoItem{}, errors.New("todo has no text besides tags")
	}
	item := model.NewTodoItem(s.Text, s.Category, s.Priority, s.Deadline, a.now())
	item.EstimatedMinutes = s.EstimatedMinutes
	item.Notes = s.Notes
	a.Todos.Add(item)
	a.logger.Debug().Bool("converted", converted).Str("text", item.Description).Msg("todo added")
	return item, nil
}

// SetActiveTodo selects the todo whose text labels the next record. A
// negative index clears the selection.
func (a *App) SetActiveTodo(i int) error {
	if i >= 0 {
		if _, err := a.Todos.At(i); err != nil {
			return err
		}
	}
	a.mu.Lock()
	a.active = i
	a.mu.Unlock()
	return nil
}

// suggestion returns the label for the next record.
func (a *App) suggestion() (string, model.Category) {
	a.mu.Lock()
	i := a.active
	a.mu.Unlock()
	if i < 0 {
		return DefaultDescription, model.CategoryDefault
	}
	t, err := a.Todos.At(i)
	if err != nil {
		return DefaultDescription, model.CategoryDefault
	}
	return t.Description, t.Category
}

func (a *App) onRecordRequested(p eventbus.RecordRequestedPayload) {
	desc, cat := a.suggestion()
	if a.prompt != nil {
		var ok bool
		desc, cat, ok = a.prompt(p.CompletedMinutes, desc, cat)
		if !ok {
			a.Recorder.CancelSession()
			return
		}
	}
	if strings.TrimSpace(desc) == "" {
		desc = DefaultDescription
	}
	if _, err := a.Recorder.EndSession(desc, cat); err != nil {
		a.logger.Error().Err(err).Msg("record kept unsaved until the next flush")
	}
}

func (a *App) onFinished(p eventbus.TimerFinishedPayload) {
	if a.notifier == nil {
		return
	}
	a.notifier.Notify("🍅 time is up", fmt.Sprintf("%d minute focus session complete", p.TotalSeconds/60))
}

func (a *App) onStatusChanged(p eventbus.StatusChangedPayload) {
	finished := p.New == string(timer.StatusFinished)
	stopped := p.New == string(timer.StatusStopped) &&
		(p.Old == string(timer.StatusRunning) || p.Old == string(timer.StatusPaused))
	if !finished && !stopped {
		return
	}
	a.TimerLog.Add(model.TimerEvent{
		Status:           p.New,
		TotalSeconds:     a.Timer.Snapshot().Total,
		CompletedMinutes: p.Elapsed / 60,
		At:               a.now(),
	})
}

// Syncables returns the collections in sync order.
func (a *App) Syncables() []cloud.Syncable {
	return []cloud.Syncable{a.Todos, a.Events, a.TimerLog}
}

// Syncable returns the collection called name.
func (a *App) Syncable(name string) (cloud.Syncable, bool) {
	for _, s := range a.Syncables() {
		if s.Name() == name {
			return s, true
		}
	}
	return nil, false
}

// SyncAll uploads or downloads every collection and returns the names of
// those that failed.
func (a *App) SyncAll(ctx context.Context, direction string) ([]string, error) {
	if a.Gateway == nil {
		return nil, ErrNoRemote
	}
	var failed []string
	for _, s := range a.Syncables() {
		var ok bool
		switch direction {
		case cloud.DirectionUp:
			ok = a.Gateway.Upload(ctx, s)
		case cloud.DirectionDown:
			ok = a.Gateway.Download(ctx, s)
		default:
			return nil, fmt.Errorf("unknown sync direction %q", direction)
		}
		if !ok {
			failed = append(failed, s.Name())
		}
	}
	return failed, nil
}

// Watch starts live sync for every collection.
func (a *App) Watch(ctx context.Context) error {
	if a.Gateway == nil {
		return ErrNoRemote
	}
	for _, s := range a.Syncables() {
		if err := a.Gateway.Subscribe(ctx, s); err != nil {
			return fmt.Errorf("watching %s: %w", s.Name(), err)
		}
	}
	return nil
}

// Close detaches the handlers, closes the gateway and writes pending
// changes.
func (a *App) Close() error {
	for _, unsub := range a.unsubs {
		unsub()
	}
	a.unsubs = nil
	if a.Gateway != nil {
		a.Gateway.Close()
	}
	return errors.Join(a.Todos.Flush(), a.Events.Flush(), a.TimerLog.Flush())
}
