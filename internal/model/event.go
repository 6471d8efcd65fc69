package model

import (
	"encoding/json"
	"time"
)

// DefaultEventType is used for records produced by the focus timer.
const DefaultEventType = "pomodoro"

// EventRecord is a completed focus interval.
type EventRecord struct {
	Base
	StartTime       time.Time
	EndTime         time.Time // zero while unknown
	DurationSeconds int64
	EventType       string
}

// NewEventRecord builds a record for [start, end]. Both bounds are cut to
// whole seconds; an end before start is clamped to start so the duration is
// never negative and always equals EndTime-StartTime.
func NewEventRecord(description string, category Category, start, end time.Time) EventRecord {
	start = start.Truncate(time.Second)
	end = end.Truncate(time.Second)
	if end.Before(start) {
		end = start
	}
	return EventRecord{
		Base: Base{
			ID:          newID(),
			Description: description,
			Category:    ParseCategory(string(category)),
			CreatedTime: end,
		},
		StartTime:       start,
		EndTime:         end,
		DurationSeconds: int64(end.Sub(start) / time.Second),
		EventType:       DefaultEventType,
	}
}

func (EventRecord) Kind() Kind     { return KindRecord }
func (e EventRecord) Common() Base { return e.Base }
func (EventRecord) isItem()        {}

type eventJSON struct {
	ID               string   `json:"id,omitempty"`
	EventDescription string   `json:"event_description"`
	Description      string   `json:"description,omitempty"`
	StartTime        *string  `json:"start_time"`
	EndTime          *string  `json:"end_time"`
	DurationSeconds  int64    `json:"duration_seconds"`
	EventType        string   `json:"event_type"`
	Category         Category `json:"category"`
	CreatedTime      *string  `json:"created_time,omitempty"`
	ItemType         Kind     `json:"item_type"`
}

func (e EventRecord) MarshalJSON() ([]byte, error) {
	eventType := e.EventType
	if eventType == "" {
		eventType = DefaultEventType
	}
	return json.Marshal(eventJSON{
		ID:               e.ID,
		EventDescription: e.Description,
		StartTime:        formatTimestamp(e.StartTime),
		EndTime:          formatTimestamp(e.EndTime),
		DurationSeconds:  e.DurationSeconds,
		EventType:        eventType,
		Category:         ParseCategory(string(e.Category)),
		CreatedTime:      formatTimestamp(e.CreatedTime),
		ItemType:         KindRecord,
	})
}

// UnmarshalJSON degrades malformed timestamps to zero and negative
// durations to 0.
func (e *EventRecord) UnmarshalJSON(data []byte) error {
	raw := eventJSON{Category: CategoryDefault}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	desc := raw.EventDescription
	if desc == "" {
		desc = raw.Description
	}
	if raw.EventType == "" {
		raw.EventType = DefaultEventType
	}
	if raw.DurationSeconds < 0 {
		raw.DurationSeconds = 0
	}
	*e = EventRecord{
		Base: Base{
			ID:          raw.ID,
			Description: desc,
			Category:    raw.Category,
			CreatedTime: parseTimestampPtr(raw.CreatedTime),
		},
		StartTime:       parseTimestampPtr(raw.StartTime),
		EndTime:         parseTimestampPtr(raw.EndTime),
		DurationSeconds: raw.DurationSeconds,
		EventType:       raw.EventType,
	}
	return nil
}

// TimerEvent is one entry of the timer lifecycle log.
type TimerEvent struct {
	Status           string    `json:"status"`
	TotalSeconds     int       `json:"total_seconds"`
	CompletedMinutes int       `json:"completed_minutes"`
	At               time.Time `json:"at"`
}
