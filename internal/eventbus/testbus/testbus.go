// Package testbus provides test utilities for the event bus.
// It wraps a real EventBus with event recording and assertion helpers.
package testbus

import (
	"sync"
	"testing"

	"github.com/Tiliavir/trivial-focus-tracker/internal/eventbus"
)

// RecordedEvent holds a captured event name and payload.
type RecordedEvent struct {
	Event   eventbus.Event
	Payload any
}

// Bus wraps a real EventBus with event recording for tests.
type Bus struct {
	*eventbus.EventBus

	mu     sync.Mutex
	events []RecordedEvent
}

// New creates a test bus that records every event published on it.
func New(t *testing.T) *Bus {
	t.Helper()

	tb := &Bus{EventBus: eventbus.New()}
	cancel := tb.SubscribeAll(func(ev eventbus.Event, p any) {
		tb.mu.Lock()
		tb.events = append(tb.events, RecordedEvent{Event: ev, Payload: p})
		tb.mu.Unlock()
	})
	t.Cleanup(cancel)
	return tb
}

// Events returns a copy of all recorded events in publish order.
func (b *Bus) Events() []RecordedEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]RecordedEvent, len(b.events))
	copy(out, b.events)
	return out
}

// Payloads returns the payloads recorded for event, in order.
func (b *Bus) Payloads(event eventbus.Event) []any {
	var out []any
	for _, e := range b.Events() {
		if e.Event == event {
			out = append(out, e.Payload)
		}
	}
	return out
}

// Count returns how many times event was published.
func (b *Bus) Count(event eventbus.Event) int {
	return len(b.Payloads(event))
}

// Reset drops everything recorded so far.
func (b *Bus) Reset() {
	b.mu.Lock()
	b.events = nil
	b.mu.Unlock()
}

// AssertPublished fails the test if event was never published.
func (b *Bus) AssertPublished(t *testing.T, event eventbus.Event) {
	t.Helper()
	if b.Count(event) == 0 {
		t.Errorf("expected event %q to be published", event)
	}
}

// AssertNotPublished fails the test if event was published.
func (b *Bus) AssertNotPublished(t *testing.T, event eventbus.Event) {
	t.Helper()
	if n := b.Count(event); n > 0 {
		t.Errorf("expected event %q not to be published, got %d", event, n)
	}
}
