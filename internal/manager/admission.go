package manager

import (
	"context"
	"errors"
)

// beginGeneration waits for a generation slot. In serialized mode the gate
// admits one generation at a time; in concurrent mode it is sized by
// MaxConcurrent or absent. Returns a release func to be deferred.
func (m *Manager) beginGeneration(ctx context.Context) (func(), error) {
	if m.draining.Load() {
		return func() {}, ErrShuttingDown
	}
	// Fast path: respect an already-canceled context
	if err := ctx.Err(); err != nil {
		return func() {}, err
	}
	if m.gate != nil {
		m.waiting.Add(1)
		wctx, cancel := context.WithTimeout(ctx, m.maxWait)
		err := m.gate.Acquire(wctx, 1)
		cancel()
		m.waiting.Add(-1)
		if err != nil {
			if ctx.Err() != nil {
				return func() {}, ctx.Err()
			}
			if errors.Is(err, context.DeadlineExceeded) {
				return func() {}, tooBusyError{waited: m.maxWait.String()}
			}
			return func() {}, err
		}
	}
	m.inflight.Add(1)
	generationsInflight.Inc()
	return func() {
		generationsInflight.Dec()
		m.inflight.Add(-1)
		if m.gate != nil {
			m.gate.Release(1)
		}
	}, nil
}
