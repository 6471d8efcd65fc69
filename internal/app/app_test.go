package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tiliavir/trivial-focus-tracker/internal/cloud"
	"github.com/Tiliavir/trivial-focus-tracker/internal/eventbus"
	"github.com/Tiliavir/trivial-focus-tracker/internal/model"
	"github.com/Tiliavir/trivial-focus-tracker/internal/storage"
	"github.com/Tiliavir/trivial-focus-tracker/internal/tagparse"
	"github.com/Tiliavir/trivial-focus-tracker/internal/timer"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newApp(t *testing.T, mutate func(*Options)) (*App, *fakeClock) {
	t.Helper()
	clk := &fakeClock{t: time.Date(2024, time.March, 9, 9, 0, 0, 0, time.Local)}
	opts := Options{
		DataDir:      t.TempDir(),
		UserID:       "alice",
		TimerSeconds: 1500,
		Store:        storage.Options{Debounce: 0},
		Now:          clk.now,
		Logger:       zerolog.Nop(),
	}
	if mutate != nil {
		mutate(&opts)
	}
	a, err := New(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a, clk
}

func tick(a *App, clk *fakeClock, n int) {
	for i := 0; i < n; i++ {
		clk.advance(time.Second)
		a.Timer.Tick()
	}
}

func TestNewRequiresDataDir(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestAddFromText(t *testing.T) {
	a, _ := newApp(t, nil)

	item, err := a.AddFromText(context.Background(), "买菜 #生活 #明天")
	require.NoError(t, err)

	assert.Equal(t, "买菜", item.Description)
	assert.Equal(t, model.CategoryLife, item.Category)
	assert.Equal(t, model.NewDate(2024, time.March, 10), item.Deadline)
	assert.Equal(t, 1, a.Todos.Len())

	_, err = a.AddFromText(context.Background(), "   ")
	assert.Error(t, err)
	_, err = a.AddFromText(context.Background(), "#work #urgent")
	assert.Error(t, err)
	assert.Equal(t, 1, a.Todos.Len())
}

type stubConverter struct{ s tagparse.Suggestion }

func (c stubConverter) Convert(context.Context, string, model.Date) (tagparse.Suggestion, error) {
	return c.s, nil
}

func TestAddFromTextUsesConverter(t *testing.T) {
	a, _ := newApp(t, func(o *Options) {
		o.Converter = stubConverter{tagparse.Suggestion{
			Text:             "Write report",
			Priority:         model.PriorityUrgent,
			Category:         model.CategoryWork,
			EstimatedMinutes: 45,
			Notes:            "for Monday",
		}}
	})

	item, err := a.AddFromText(context.Background(), "report asap")
	require.NoError(t, err)
	assert.Equal(t, "Write report", item.Description)
	assert.Equal(t, model.PriorityUrgent, item.Priority)
	assert.Equal(t, 45, item.EstimatedMinutes)
	assert.Equal(t, "for Monday", item.Notes)
}

func TestStopAfterNinetySecondsRecordsEvent(t *testing.T) {
	a, clk := newApp(t, nil)
	before := a.Events.Len()

	require.True(t, a.Timer.Start())
	tick(a, clk, 90)
	require.True(t, a.Timer.Stop())

	require.Equal(t, before+1, a.Events.Len())
	rec, err := a.Events.At(before)
	require.NoError(t, err)
	assert.Equal(t, int64(90), rec.DurationSeconds)
	assert.Equal(t, DefaultDescription, rec.Description)

	// Saved immediately.
	data, err := os.ReadFile(a.Events.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"duration_seconds": 90`)

	log := a.TimerLog.Items()
	require.Len(t, log, 1)
	assert.Equal(t, "stopped", log[0].Status)
	assert.Equal(t, 1, log[0].CompletedMinutes)
}

func TestShortStopRecordsNothing(t *testing.T) {
	a, clk := newApp(t, nil)

	a.Timer.Start()
	tick(a, clk, 30)
	a.Timer.Stop()

	assert.Equal(t, 0, a.Events.Len())
	_, open := a.Recorder.Active()
	assert.False(t, open)
}

func TestFinishNotifiesAndRecordsActiveTodo(t *testing.T) {
	var titles []string
	a, clk := newApp(t, func(o *Options) {
		o.TimerSeconds = 60
		o.Notifier = NotifierFunc(func(title, _ string) { titles = append(titles, title) })
	})
	_, err := a.AddFromText(context.Background(), "write docs #study")
	require.NoError(t, err)
	require.NoError(t, a.SetActiveTodo(0))

	a.Timer.Start()
	tick(a, clk, 60)

	assert.Equal(t, []string{"🍅 time is up"}, titles)
	assert.Equal(t, timer.StatusStopped, a.Timer.Status())

	recs := a.Events.Items()
	require.Len(t, recs, 1)
	assert.Equal(t, "write docs", recs[0].Description)
	assert.Equal(t, model.CategoryStudy, recs[0].Category)
	assert.Equal(t, int64(60), recs[0].DurationSeconds)

	log := a.TimerLog.Items()
	require.Len(t, log, 1)
	assert.Equal(t, "finished", log[0].Status)
	assert.Equal(t, 60, log[0].TotalSeconds)
}

func TestPromptCanRelabelOrDiscard(t *testing.T) {
	accept := true
	a, clk := newApp(t, func(o *Options) {
		o.Prompt = func(minutes int, desc string, cat model.Category) (string, model.Category, bool) {
			assert.Equal(t, 2, minutes)
			return "reviewed PRs", model.CategoryWork, accept
		}
	})

	a.Timer.Start()
	tick(a, clk, 120)
	a.Timer.Stop()
	require.Equal(t, 1, a.Events.Len())
	rec, _ := a.Events.At(0)
	assert.Equal(t, "reviewed PRs", rec.Description)
	assert.Equal(t, model.CategoryWork, rec.Category)

	accept = false
	a.Timer.Start()
	tick(a, clk, 120)
	a.Timer.Stop()
	assert.Equal(t, 1, a.Events.Len())
	_, open := a.Recorder.Active()
	assert.False(t, open)
}

func TestSetActiveTodoOutOfRange(t *testing.T) {
	a, _ := newApp(t, nil)
	assert.ErrorIs(t, a.SetActiveTodo(3), storage.ErrIndexOutOfRange)
	assert.NoError(t, a.SetActiveTodo(-1))
}

func TestSaveFailurePublished(t *testing.T) {
	a, _ := newApp(t, nil)
	var got []eventbus.StoreSaveFailedPayload
	a.Bus.SubscribeStoreSaveFailed(func(p eventbus.StoreSaveFailedPayload) { got = append(got, p) })

	// A directory in place of the file makes the atomic rename fail.
	require.NoError(t, os.MkdirAll(filepath.Join(a.Todos.Path(), "blocker"), 0o700))
	_, err := a.AddFromText(context.Background(), "anything")
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, storage.TodoCollection, got[0].Collection)
	assert.Error(t, got[0].Err)
}

func TestUnsavedRecordIsWrittenOnClose(t *testing.T) {
	a, clk := newApp(t, func(o *Options) { o.Store = storage.Options{Debounce: 500 * time.Millisecond} })
	var failed []eventbus.StoreSaveFailedPayload
	a.Bus.SubscribeStoreSaveFailed(func(p eventbus.StoreSaveFailedPayload) { failed = append(failed, p) })

	require.NoError(t, os.MkdirAll(a.Events.Path(), 0o700))
	require.True(t, a.Timer.Start())
	tick(a, clk, 90)
	require.True(t, a.Timer.Stop())

	require.Len(t, failed, 1)
	assert.Equal(t, storage.EventCollection, failed[0].Collection)
	assert.Equal(t, 1, a.Events.Len())

	require.NoError(t, os.Remove(a.Events.Path()))
	require.NoError(t, a.Close())

	data, err := os.ReadFile(a.Events.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"duration_seconds": 90`)
}

func TestCloseReportsUnsavedRecord(t *testing.T) {
	a, clk := newApp(t, nil)
	require.NoError(t, os.MkdirAll(a.Events.Path(), 0o700))

	a.Timer.Start()
	tick(a, clk, 90)
	a.Timer.Stop()

	assert.Error(t, a.Close())
}

func TestSyncWithoutRemote(t *testing.T) {
	a, _ := newApp(t, nil)
	_, err := a.SyncAll(context.Background(), cloud.DirectionUp)
	assert.True(t, errors.Is(err, ErrNoRemote))
	assert.ErrorIs(t, a.Watch(context.Background()), ErrNoRemote)
}

func TestSyncAllRoundTrip(t *testing.T) {
	shared := t.TempDir()
	remote := func(o *Options) { o.Remote = cloud.NewDirRemote(shared, zerolog.Nop()) }

	first, _ := newApp(t, remote)
	_, err := first.AddFromText(context.Background(), "ship release #work #urgent")
	require.NoError(t, err)
	failed, err := first.SyncAll(context.Background(), cloud.DirectionUp)
	require.NoError(t, err)
	assert.Empty(t, failed)

	second, _ := newApp(t, remote)
	failed, err = second.SyncAll(context.Background(), cloud.DirectionDown)
	require.NoError(t, err)
	assert.Empty(t, failed)

	require.Equal(t, 1, second.Todos.Len())
	got, _ := second.Todos.At(0)
	assert.Equal(t, "ship release", got.Description)
	assert.Equal(t, model.PriorityUrgent, got.Priority)

	_, err = second.SyncAll(context.Background(), "sideways")
	assert.Error(t, err)
}

func TestSyncable(t *testing.T) {
	a, _ := newApp(t, nil)
	s, ok := a.Syncable(storage.EventCollection)
	require.True(t, ok)
	assert.Equal(t, storage.EventCollection, s.Name())
	_, ok = a.Syncable("nope")
	assert.False(t, ok)
}
