package storage

import (
	"cmp"
	"path/filepath"

	"github.com/Tiliavir/trivial-focus-tracker/internal/model"
)

// Collection names. They double as file base names and remote document
// collections.
const (
	TodoCollection  = "todo_events"
	EventCollection = "event_records"
	TimerCollection = "timer_events"
)

// TodoStore is the todo list.
type TodoStore struct {
	*Collection[model.TodoItem]
}

// NewTodoStore returns an empty todo store backed by dir/todo_events.json.
func NewTodoStore(dir string, opts Options) *TodoStore {
	return &TodoStore{NewCollection[model.TodoItem](TodoCollection, filepath.Join(dir, TodoCollection+".json"), "items", opts)}
}

// ToggleDone flips the done state of the item at i, setting or clearing its
// done date. An invalid index is ignored and false is returned.
func (s *TodoStore) ToggleDone(i int, today model.Date) bool {
	err := s.Update(i, func(t *model.TodoItem) {
		t.SetDone(!t.Done, today)
	})
	return err == nil
}

// Sort orders open items before done ones, then by priority (most urgent
// first), then by deadline (earliest first, no deadline last).
func (s *TodoStore) Sort() {
	s.SortStable(compareTodos)
}

func compareTodos(a, b model.TodoItem) int {
	if a.Done != b.Done {
		if a.Done {
			return 1
		}
		return -1
	}
	if c := cmp.Compare(b.Priority, a.Priority); c != 0 {
		return c
	}
	switch {
	case a.Deadline == b.Deadline:
		return 0
	case a.Deadline.IsZero():
		return 1
	case b.Deadline.IsZero():
		return -1
	case a.Deadline.Before(b.Deadline):
		return -1
	default:
		return 1
	}
}

// EventStore holds completed focus records.
type EventStore struct {
	*Collection[model.EventRecord]
}

// NewEventStore returns an empty event store backed by
// dir/event_records.json.
func NewEventStore(dir string, opts Options) *EventStore {
	return &EventStore{NewCollection[model.EventRecord](EventCollection, filepath.Join(dir, EventCollection+".json"), "events", opts)}
}

// OnDate returns the records whose start time falls on d in the local zone.
func (s *EventStore) OnDate(d model.Date) []model.EventRecord {
	var out []model.EventRecord
	for _, e := range s.Items() {
		if model.DateOf(e.StartTime.Local()) == d {
			out = append(out, e)
		}
	}
	return out
}

// TimerLog records timer lifecycle transitions.
type TimerLog struct {
	*Collection[model.TimerEvent]
}

// NewTimerLog returns an empty timer log backed by dir/timer_events.json.
func NewTimerLog(dir string, opts Options) *TimerLog {
	return &TimerLog{NewCollection[model.TimerEvent](TimerCollection, filepath.Join(dir, TimerCollection+".json"), "events", opts)}
}
