package manager

import "context"

// Preload kicks off a background Acquire so the first request does not pay
// the cold-start cost. The returned channel receives the load result and is
// closed afterwards. The load is subject to the same memory checks as any
// Acquire and is followed by normal idle accounting.
func (m *Manager) Preload(ctx context.Context) <-chan error {
	out := make(chan error, 1)
	go func() {
		defer close(out)
		_, err := m.Acquire(ctx)
		if err != nil {
			m.log.Warn().Str("event", "preload_failed").Err(err).Msg("engine preload failed")
		}
		out <- err
	}()
	return out
}
