// Package timer implements the focus countdown state machine.
package timer

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Tiliavir/trivial-focus-tracker/internal/eventbus"
)

// Status is the machine state.
type Status string

const (
	StatusStopped  Status = "stopped"
	StatusRunning  Status = "running"
	StatusPaused   Status = "paused"
	StatusFinished Status = "finished"
)

// Bounds for the countdown length, in seconds.
const (
	MinSeconds     = 60
	MaxSeconds     = 3 * 60 * 60
	DefaultSeconds = 15 * 60
)

// Clamp limits seconds to [MinSeconds, MaxSeconds].
func Clamp(seconds int) int {
	return max(MinSeconds, min(MaxSeconds, seconds))
}

// SessionRecorder opens and discards recording sessions. Closing a session
// is left to whoever handles RecordRequested.
type SessionRecorder interface {
	StartSession()
	CancelSession()
}

// Snapshot is a consistent copy of the machine state.
type Snapshot struct {
	Status        Status
	Total         int
	Remaining     int
	SessionActive bool
}

// Machine is a single countdown session. All methods are safe for
// concurrent use; events are published after the internal lock is
// released, on the caller's goroutine. Invalid transitions are ignored and
// reported as false.
type Machine struct {
	mu            sync.Mutex
	status        Status
	total         int
	remaining     int
	sessionActive bool

	bus      *eventbus.EventBus
	recorder SessionRecorder
	logger   zerolog.Logger
}

// New returns a stopped machine set to seconds (clamped). recorder may be
// nil.
func New(bus *eventbus.EventBus, recorder SessionRecorder, logger zerolog.Logger, seconds int) *Machine {
	total := Clamp(seconds)
	return &Machine{
		status:    StatusStopped,
		total:     total,
		remaining: total,
		bus:       bus,
		recorder:  recorder,
		logger:    logger,
	}
}

// Snapshot returns the current state.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		Status:        m.status,
		Total:         m.total,
		Remaining:     m.remaining,
		SessionActive: m.sessionActive,
	}
}

// Status returns the current state.
func (m *Machine) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// SetTimer changes the countdown length. Only allowed while stopped.
func (m *Machine) SetTimer(seconds int) bool {
	m.mu.Lock()
	if m.status != StatusStopped {
		m.mu.Unlock()
		return false
	}
	m.total = Clamp(seconds)
	m.remaining = m.total
	total := m.total
	m.mu.Unlock()

	m.logger.Debug().Int("total", total).Msg("timer set")
	m.bus.PublishTimeUpdated(eventbus.TimeUpdatedPayload{Remaining: total})
	m.publishStatus(StatusStopped, StatusStopped, 0)
	return true
}

// Start begins or resumes the countdown and opens a recording session if
// none is active.
func (m *Machine) Start() bool {
	m.mu.Lock()
	old := m.status
	if old != StatusStopped && old != StatusPaused {
		m.mu.Unlock()
		return false
	}
	m.status = StatusRunning
	open := !m.sessionActive
	m.sessionActive = true
	remaining := m.remaining
	elapsed := m.total - m.remaining
	m.mu.Unlock()

	if open && m.recorder != nil {
		m.recorder.StartSession()
	}
	m.logger.Info().Str("remaining", clock(remaining)).Msg("timer started")
	m.publishStatus(old, StatusRunning, elapsed)
	return true
}

// Pause suspends a running countdown.
func (m *Machine) Pause() bool {
	m.mu.Lock()
	if m.status != StatusRunning {
		m.mu.Unlock()
		return false
	}
	m.status = StatusPaused
	remaining := m.remaining
	elapsed := m.total - m.remaining
	m.mu.Unlock()

	m.logger.Info().Str("remaining", clock(remaining)).Msg("timer paused")
	m.publishStatus(StatusRunning, StatusPaused, elapsed)
	return true
}

// Stop ends a running or paused countdown. A record is requested when a
// session was open and at least one whole minute elapsed; otherwise the
// session is cancelled.
func (m *Machine) Stop() bool {
	m.mu.Lock()
	old := m.status
	if old != StatusRunning && old != StatusPaused {
		m.mu.Unlock()
		return false
	}
	elapsed := m.total - m.remaining
	completed := elapsed / 60
	m.remaining = m.total
	m.status = StatusStopped
	active := m.sessionActive
	m.sessionActive = false
	total := m.total
	m.mu.Unlock()

	m.logger.Info().Int("completed_minutes", completed).Msg("timer stopped")
	m.bus.PublishTimeUpdated(eventbus.TimeUpdatedPayload{Remaining: total})
	m.publishStatus(old, StatusStopped, elapsed)
	switch {
	case active && completed >= 1:
		m.bus.PublishRecordRequested(eventbus.RecordRequestedPayload{CompletedMinutes: completed})
	case active && m.recorder != nil:
		m.recorder.CancelSession()
	}
	return true
}

// Tick advances a running countdown by one second. Reaching zero finishes
// the session and returns the machine to stopped.
func (m *Machine) Tick() {
	m.mu.Lock()
	if m.status != StatusRunning {
		m.mu.Unlock()
		return
	}
	if m.remaining > 0 {
		m.remaining--
	}
	remaining := m.remaining
	if remaining > 0 {
		m.mu.Unlock()
		m.bus.PublishTimeUpdated(eventbus.TimeUpdatedPayload{Remaining: remaining})
		return
	}
	m.status = StatusFinished
	active := m.sessionActive
	m.sessionActive = false
	total := m.total
	m.mu.Unlock()

	m.logger.Info().Int("total", total).Msg("timer finished")
	m.bus.PublishTimeUpdated(eventbus.TimeUpdatedPayload{Remaining: 0})
	m.publishStatus(StatusRunning, StatusFinished, total)
	m.bus.PublishTimerFinished(eventbus.TimerFinishedPayload{TotalSeconds: total})
	if active {
		m.bus.PublishRecordRequested(eventbus.RecordRequestedPayload{CompletedMinutes: total / 60})
	}
	m.Reset()
}

// Reset returns a finished machine to stopped with a full countdown.
func (m *Machine) Reset() bool {
	m.mu.Lock()
	if m.status != StatusFinished {
		m.mu.Unlock()
		return false
	}
	m.status = StatusStopped
	m.remaining = m.total
	total := m.total
	m.mu.Unlock()

	m.bus.PublishTimeUpdated(eventbus.TimeUpdatedPayload{Remaining: total})
	m.publishStatus(StatusFinished, StatusStopped, total)
	return true
}

func (m *Machine) publishStatus(old, next Status, elapsed int) {
	m.bus.PublishStatusChanged(eventbus.StatusChangedPayload{Old: string(old), New: string(next), Elapsed: elapsed})
}

// Display renders the state for a status line.
func (m *Machine) Display() string {
	s := m.Snapshot()
	switch s.Status {
	case StatusRunning:
		return "⏰ " + clock(s.Remaining)
	case StatusPaused:
		return "⏸ " + clock(s.Remaining)
	case StatusFinished:
		return "✅ done"
	default:
		return fmt.Sprintf("Timer %dm", s.Total/60)
	}
}

func clock(seconds int) string {
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
