package timer

import (
	"context"
	"time"
)

// Run ticks m once per interval while it is running and waits while it is
// paused. It returns the final status once ctx is done or the machine is
// stopped, so callers start the machine first.
func Run(ctx context.Context, m *Machine, interval time.Duration) Status {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return m.Status()
		case <-ticker.C:
			switch m.Status() {
			case StatusRunning:
				m.Tick()
				if m.Status() == StatusStopped {
					return StatusStopped
				}
			case StatusStopped:
				return StatusStopped
			}
		}
	}
}
