// Package eventbus provides a typed publish/subscribe bus for
// cross-component notifications. Delivery is synchronous: Publish returns
// after every subscriber has run, on the publisher's goroutine.
package eventbus

import "github.com/Tiliavir/trivial-focus-tracker/internal/model"

// Event names a topic on the bus.
type Event string

// Keep list sorted A-Z.
const (
	EventRecorderEventRecorded Event = "recorder.event-recorded"
	EventStoreSaveFailed       Event = "store.save-failed"
	EventSyncCompleted         Event = "sync.completed"
	EventTimerFinished         Event = "timer.finished"
	EventTimerRecordRequested  Event = "timer.record-requested"
	EventTimerStatusChanged    Event = "timer.status-changed"
	EventTimerTimeUpdated      Event = "timer.time-updated"
)

// Events lists every event, used by recorders that subscribe to all of them.
var Events = []Event{
	EventRecorderEventRecorded,
	EventStoreSaveFailed,
	EventSyncCompleted,
	EventTimerFinished,
	EventTimerRecordRequested,
	EventTimerStatusChanged,
	EventTimerTimeUpdated,
}

// TimeUpdatedPayload carries the remaining countdown seconds.
type TimeUpdatedPayload struct {
	Remaining int
}

// StatusChangedPayload is emitted on every timer status transition.
type StatusChangedPayload struct {
	Old string
	New string
	// Elapsed is the number of seconds counted down in the current session
	// at the time of the transition.
	Elapsed int
}

// TimerFinishedPayload is emitted when a countdown reaches zero.
type TimerFinishedPayload struct {
	TotalSeconds int
}

// RecordRequestedPayload asks the application to close the open recording
// session and persist an event record.
type RecordRequestedPayload struct {
	CompletedMinutes int
}

// EventRecordedPayload is emitted after a record is appended and saved.
type EventRecordedPayload struct {
	Record model.EventRecord
}

// SyncCompletedPayload reports the outcome of an upload or download.
type SyncCompletedPayload struct {
	Collection string
	Direction  string
	OK         bool
}

// StoreSaveFailedPayload reports a failed save. The items stay in memory
// and are written by the next successful save or flush.
type StoreSaveFailedPayload struct {
	Collection string
	Err        error
}
