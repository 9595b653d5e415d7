package manager

import (
	"time"

	"medchatd/pkg/types"
)

// Snapshot is a read-only projection of the engine state.
type Snapshot struct {
	State    State
	LastUsed time.Time
	Inflight int64
	Waiting  int64
	Draining bool
}

// Snapshot returns a read-only view of the manager state without taking the
// state guard.
func (m *Manager) Snapshot() Snapshot {
	return Snapshot{
		State:    m.currentState(),
		LastUsed: m.LastUsed(),
		Inflight: m.inflight.Load(),
		Waiting:  m.waiting.Load(),
		Draining: m.draining.Load(),
	}
}

// Health builds the /health payload. It never loads the engine and never
// waits for an in-progress load.
func (m *Manager) Health() types.HealthResponse {
	snap := m.Snapshot()
	now := m.now()
	resp := types.HealthResponse{
		Status:            "ok",
		EngineLoaded:      snap.State == StateLoaded,
		Inflight:          snap.Inflight,
		Waiting:           snap.Waiting,
		GenerationMode:    m.mode,
		LoadsTotal:        m.loadsTotal.Load(),
		LoadFailuresTotal: m.loadFailures.Load(),
		EvictionsTotal:    m.evictionsTotal.Load(),
		Draining:          snap.Draining,
		UptimeSeconds:     int64(now.Sub(m.startTime) / time.Second),
	}
	if !snap.LastUsed.IsZero() {
		resp.LastUsedUnix = snap.LastUsed.Unix()
		resp.IdleSeconds = int64(now.Sub(snap.LastUsed) / time.Second)
	}
	s, err := m.SampleMemory()
	if err != nil {
		resp.MemoryError = err.Error()
		return resp
	}
	resp.MemoryUsedPercent = s.UsedPercent
	resp.ResidentBytes = s.ResidentBytes
	resp.ResidentMB = s.ResidentBytes >> 20
	resp.AvailableMB = s.AvailableBytes >> 20
	return resp
}
