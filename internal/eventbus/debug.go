package eventbus

import (
	"fmt"

	"github.com/rs/zerolog"
)

// RegisterDebugLogger registers bus hooks that log all event activity at
// debug level and subscriber panics at error level. Time updates fire once
// per second and are logged at trace level.
func RegisterDebugLogger(bus *EventBus, logger zerolog.Logger) {
	bus.OnPublish(func(event Event, _ any) {
		lvl := zerolog.DebugLevel
		if event == EventTimerTimeUpdated {
			lvl = zerolog.TraceLevel
		}
		logger.WithLevel(lvl).Str("event", string(event)).Msg("event fired")
	})

	bus.OnPanic(func(event Event, _ any, recovered any) {
		logger.Error().
			Str("event", string(event)).
			Str("panic", fmt.Sprint(recovered)).
			Msg("subscriber panicked")
	})
}
