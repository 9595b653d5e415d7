package manager

import (
	"medchatd/internal/common/fsutil"
	"medchatd/pkg/types"
)

// Preflight validates that the engine can be loaded: the artifact exists, the
// binary carries the engine, and the host currently has the required headroom.
// It does not mutate state and is safe to call at any time.
func (m *Manager) Preflight() types.PreflightReport {
	r := types.PreflightReport{
		ModelPath:   m.cfg.ModelPath,
		RequiredMB:  m.minAvailableBytes >> 20,
		EngineBuilt: llamaBuilt,
	}
	if s, err := m.SampleMemory(); err == nil {
		r.AvailableMB = s.AvailableBytes >> 20
	}
	fi, err := fsutil.RegularFile(m.cfg.ModelPath)
	if err != nil {
		r.Error = err.Error()
		return r
	}
	r.ModelFound = true
	r.ModelSizeMB = estimateFootprintMB(fi.Size())
	if !r.EngineBuilt {
		r.Error = "llama support not built (missing 'llama' build tag)"
		return r
	}
	if r.AvailableMB > 0 && r.AvailableMB < r.RequiredMB {
		r.Error = insufficientMemoryError{AvailableMB: r.AvailableMB, RequiredMB: r.RequiredMB}.Error()
	}
	return r
}

// estimateFootprintMB approximates resident size from the artifact size in MB,
// never returning less than 1 so unknown sizes do not read as free.
func estimateFootprintMB(size int64) uint64 {
	mb := uint64(size >> 20)
	if mb == 0 {
		mb = 1
	}
	return mb
}
