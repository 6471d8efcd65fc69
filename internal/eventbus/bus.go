package eventbus

import "sync"

type handler struct {
	id int
	fn func(any)
}

// EventBus routes payloads to subscribers registered per Event.
type EventBus struct {
	mu     sync.RWMutex
	subs   map[Event][]handler
	nextID int

	hooks hooks
}

// New returns an empty bus.
func New() *EventBus {
	return &EventBus{subs: make(map[Event][]handler)}
}

// subscribe registers fn for event and returns a function removing it.
func (bus *EventBus) subscribe(event Event, fn func(any)) func() {
	bus.mu.Lock()
	bus.nextID++
	id := bus.nextID
	bus.subs[event] = append(bus.subs[event], handler{id: id, fn: fn})
	bus.mu.Unlock()

	return func() {
		bus.mu.Lock()
		defer bus.mu.Unlock()
		hs := bus.subs[event]
		for i, h := range hs {
			if h.id == id {
				bus.subs[event] = append(hs[:i:i], hs[i+1:]...)
				break
			}
		}
	}
}

// publish delivers payload to a snapshot of the current subscribers. A
// panicking subscriber is reported through OnPanic hooks and does not stop
// delivery to the others.
func (bus *EventBus) publish(event Event, payload any) {
	bus.mu.RLock()
	hs := make([]handler, len(bus.subs[event]))
	copy(hs, bus.subs[event])
	bus.mu.RUnlock()

	bus.runOnPublish(event, payload)
	for _, h := range hs {
		bus.dispatch(event, payload, h.fn)
	}
}

func (bus *EventBus) dispatch(event Event, payload any, fn func(any)) {
	defer func() {
		if r := recover(); r != nil {
			bus.runOnPanic(event, payload, r)
		}
	}()
	fn(payload)
}

// Publish sends an untyped payload. Prefer the typed Publish* helpers.
func (bus *EventBus) Publish(event Event, payload any) {
	bus.publish(event, payload)
}

// SubscribeAll registers fn for every event in Events.
func (bus *EventBus) SubscribeAll(fn func(Event, any)) func() {
	cancels := make([]func(), 0, len(Events))
	for _, ev := range Events {
		ev := ev
		cancels = append(cancels, bus.subscribe(ev, func(p any) { fn(ev, p) }))
	}
	return func() {
		for _, c := range cancels {
			c()
		}
	}
}
