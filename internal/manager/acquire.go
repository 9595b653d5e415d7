package manager

import (
	"context"
	"fmt"
	"time"
)

// Acquire returns the resident engine, loading it first if absent. Loading
// happens under the state guard, so concurrent callers wait for the single
// in-flight load and then share its Handle.
func (m *Manager) Acquire(ctx context.Context) (*Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.draining.Load() {
		return nil, ErrShuttingDown
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handle != nil {
		m.markUsed()
		return m.handle, nil
	}
	// Re-check after waiting on the guard: a shutdown may have evicted meanwhile.
	if m.draining.Load() {
		return nil, ErrShuttingDown
	}
	if err := m.ensureHeadroomLocked(); err != nil {
		return nil, err
	}

	start := m.now()
	m.setState(StateLoading)
	m.log.Info().Str("event", "load_start").Str("model", m.cfg.ModelPath).Msg("loading engine")
	m.publisher.Publish(Event{Name: "load_start", Fields: map[string]any{"model": m.cfg.ModelPath}})

	eng, err := m.loadEngine()
	if err != nil {
		m.setState(StateUnloaded)
		m.loadFailures.Add(1)
		loadFailuresTotal.Inc()
		m.Reclaim()
		m.log.Error().Str("event", "load_failed").Err(err).Msg("engine load failed")
		m.publisher.Publish(Event{Name: "load_failed", Fields: map[string]any{"error": err.Error()}})
		return nil, engineLoadError{cause: err}
	}

	now := m.now()
	h := newHandle(m.nextID.Add(1), eng, now, m.log)
	m.handle = h
	m.markUsed()
	m.setState(StateLoaded)
	m.loadsTotal.Add(1)
	loadsTotal.Inc()
	dur := now.Sub(start)
	loadDuration.Observe(dur.Seconds())
	m.log.Info().Str("event", "load_done").Uint64("handle", h.id).Dur("dur", dur).Msg("engine loaded")
	m.publisher.Publish(Event{Name: "load_done", Fields: map[string]any{"handle": h.id, "dur_ms": int(dur / time.Millisecond)}})
	return h, nil
}

// Touch records activity without loading, extending the idle window.
func (m *Manager) Touch() { m.markUsed() }

// loadEngine calls the loader, converting panics into errors.
func (m *Manager) loadEngine() (eng Engine, err error) {
	defer func() {
		if r := recover(); r != nil {
			eng, err = nil, fmt.Errorf("loader panic: %v", r)
		}
	}()
	eng, err = m.loader.Load(m.cfg)
	if err == nil && eng == nil {
		err = fmt.Errorf("loader returned no engine")
	}
	return eng, err
}

// ensureHeadroomLocked fails with insufficientMemoryError when available host
// memory stays below the load threshold after one reclamation pass. Sampling
// failures do not block the load.
func (m *Manager) ensureHeadroomLocked() error {
	if m.minAvailableBytes == 0 {
		return nil
	}
	s, err := m.SampleMemory()
	if err != nil {
		m.log.Warn().Str("event", "memory_sample_error").Err(err).Msg("cannot sample memory before load")
		return nil
	}
	if s.TotalBytes == 0 || s.AvailableBytes >= m.minAvailableBytes {
		return nil
	}
	m.log.Warn().Str("event", "low_memory_before_load").Uint64("available_mb", s.AvailableBytes>>20).Msg("reclaiming before load")
	m.Reclaim()
	if s2, err := m.SampleMemory(); err == nil {
		s = s2
	}
	if s.AvailableBytes >= m.minAvailableBytes {
		return nil
	}
	e := insufficientMemoryError{AvailableMB: s.AvailableBytes >> 20, RequiredMB: m.minAvailableBytes >> 20}
	m.log.Error().Str("event", "insufficient_memory").Uint64("available_mb", e.AvailableMB).Uint64("required_mb", e.RequiredMB).Msg("refusing to load engine")
	m.publisher.Publish(Event{Name: "insufficient_memory", Fields: map[string]any{"available_mb": e.AvailableMB, "required_mb": e.RequiredMB}})
	return e
}
