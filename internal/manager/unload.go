package manager

import (
	"context"
	"time"
)

// Shutdown drains and releases the engine before process exit.
//   - Marks the manager draining so new Acquire/Generate calls are rejected.
//   - Waits up to the drain timeout (or ctx) for in-flight generations.
//   - Evicts the engine; a generation still running keeps it until it ends.
//
// Shutdown always evicts, even when the drain wait is cut short.
func (m *Manager) Shutdown(ctx context.Context) {
	m.draining.Store(true)
	m.publisher.Publish(Event{Name: "shutdown_start", Fields: map[string]any{"inflight": m.inflight.Load()}})

	deadline := time.NewTimer(m.drainTimeout)
	defer deadline.Stop()
	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()
wait:
	for m.inflight.Load() > 0 {
		select {
		case <-ctx.Done():
			break wait
		case <-deadline.C:
			m.log.Warn().Str("event", "drain_timeout").Int64("inflight", m.inflight.Load()).Msg("shutdown drain timed out")
			m.publisher.Publish(Event{Name: "drain_timeout", Fields: map[string]any{"inflight": m.inflight.Load()}})
			break wait
		case <-tick.C:
		}
	}

	m.evictFor(ReasonShutdown)
	m.log.Info().Str("event", "shutdown_done").Msg("engine released")
	m.publisher.Publish(Event{Name: "shutdown_done", Fields: map[string]any{}})
}
