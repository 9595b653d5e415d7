package manager

import "time"

// Evict releases the resident engine, if any, and reclaims memory. Evicting
// an absent engine is a no-op. A generation still streaming on the evicted
// handle keeps the engine alive until it finishes.
func (m *Manager) Evict() { m.evictFor(ReasonManual) }

// evictFor evicts with the given reason and reports whether an engine was resident.
func (m *Manager) evictFor(reason string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.evictLocked(reason)
}

// EvictIfIdle evicts the engine when it has not been used for longer than
// timeout and no generation is in flight on it. The test and the eviction
// happen atomically under the state guard.
func (m *Manager) EvictIfIdle(timeout time.Duration) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handle == nil || m.handle.inUse() > 0 {
		return false
	}
	idle := m.now().Sub(m.LastUsed())
	if idle <= timeout {
		return false
	}
	m.log.Info().Str("event", "idle_timeout").Dur("idle", idle).Dur("timeout", timeout).Msg("engine idle")
	return m.evictLocked(ReasonIdle)
}

func (m *Manager) evictLocked(reason string) bool {
	h := m.handle
	if h == nil {
		return false
	}
	m.handle = nil
	m.setState(StateUnloaded)
	closedNow := h.retire()
	m.evictionsTotal.Add(1)
	evictionsTotal.WithLabelValues(reason).Inc()
	m.Reclaim()
	m.log.Info().Str("event", "evict").Str("reason", reason).Uint64("handle", h.id).Bool("deferred_close", !closedNow).Msg("engine evicted")
	m.publisher.Publish(Event{Name: "evict", Fields: map[string]any{"reason": reason, "handle": h.id, "deferred_close": !closedNow}})
	return true
}
