// Package recorder turns timer sessions into persisted event records.
package recorder

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Tiliavir/trivial-focus-tracker/internal/eventbus"
	"github.com/Tiliavir/trivial-focus-tracker/internal/model"
	"github.com/Tiliavir/trivial-focus-tracker/internal/storage"
	"github.com/Tiliavir/trivial-focus-tracker/internal/timecalc"
)

// Recorder tracks at most one open session and appends a record to the
// event store when it is closed.
type Recorder struct {
	store  *storage.EventStore
	bus    *eventbus.EventBus
	logger zerolog.Logger
	now    func() time.Time

	mu    sync.Mutex
	start time.Time
	open  bool
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) { r.now = now }
}

// New returns a recorder writing into store.
func New(store *storage.EventStore, bus *eventbus.EventBus, logger zerolog.Logger, opts ...Option) *Recorder {
	r := &Recorder{store: store, bus: bus, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// StartSession opens a session at the current time. It does nothing if a
// session is already open.
func (r *Recorder) StartSession() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.open {
		return
	}
	r.start = r.now()
	r.open = true
	r.logger.Debug().Time("start", r.start).Msg("session opened")
}

// CancelSession discards the open session, if any.
func (r *Recorder) CancelSession() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.open {
		r.logger.Debug().Msg("session discarded")
	}
	r.open = false
	r.start = time.Time{}
}

// Active reports whether a session is open and when it started.
func (r *Recorder) Active() (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.start, r.open
}

// EndSession closes the open session, appends its record to the store and
// saves the store. It returns nil, nil when no session is open. When the
// save fails the record stays in the store, marked unsaved, a
// StoreSaveFailed event is published and the error is returned with it.
func (r *Recorder) EndSession(description string, category model.Category) (*model.EventRecord, error) {
	r.mu.Lock()
	if !r.open {
		r.mu.Unlock()
		return nil, nil
	}
	rec := model.NewEventRecord(description, category, r.start, r.now())
	r.open = false
	r.start = time.Time{}
	r.mu.Unlock()

	r.store.Add(rec)
	if err := r.save(); err != nil {
		return &rec, fmt.Errorf("saving event record: %w", err)
	}
	r.logger.Info().
		Str("description", rec.Description).
		Str("category", string(rec.Category)).
		Int64("duration", rec.DurationSeconds).
		Msg("event recorded")
	r.bus.PublishEventRecorded(eventbus.EventRecordedPayload{Record: rec})
	return &rec, nil
}

// DeleteRecord removes the record at i and saves the store.
func (r *Recorder) DeleteRecord(i int) error {
	if err := r.store.Delete(i); err != nil {
		return err
	}
	if err := r.save(); err != nil {
		return fmt.Errorf("saving event records: %w", err)
	}
	return nil
}

func (r *Recorder) save() error {
	err := r.store.Save()
	if err != nil {
		r.logger.Error().Err(err).Msg("saving event records failed")
		r.bus.PublishStoreSaveFailed(eventbus.StoreSaveFailedPayload{Collection: r.store.Name(), Err: err})
	}
	return err
}

// CategoryStats aggregates the records of one category.
type CategoryStats struct {
	Count         int
	TotalDuration int64
	Descriptions  []string
}

// Summary aggregates the records of one day.
type Summary struct {
	Date                 model.Date
	TotalEvents          int
	TotalDurationSeconds int64
	PerCategory          map[model.Category]CategoryStats
}

// Formatted renders the total duration as "Hh Mm".
func (s Summary) Formatted() string {
	return timecalc.FormatHoursMinutes(s.TotalDurationSeconds)
}

// Categories returns the categories present in s in a stable order.
func (s Summary) Categories() []model.Category {
	cats := make([]model.Category, 0, len(s.PerCategory))
	for c := range s.PerCategory {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })
	return cats
}

// SummaryFor aggregates the records that started on d.
func (r *Recorder) SummaryFor(d model.Date) Summary {
	return Summarize(d, r.store.OnDate(d))
}

// Summarize aggregates records under date d without filtering them.
func Summarize(d model.Date, records []model.EventRecord) Summary {
	s := Summary{Date: d, PerCategory: make(map[model.Category]CategoryStats)}
	for _, e := range records {
		s.TotalEvents++
		s.TotalDurationSeconds += e.DurationSeconds
		st := s.PerCategory[e.Category]
		st.Count++
		st.TotalDuration += e.DurationSeconds
		st.Descriptions = append(st.Descriptions, e.Description)
		s.PerCategory[e.Category] = st
	}
	return s
}
