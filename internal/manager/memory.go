package manager

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/prometheus/procfs"
)

// MemorySample is a point-in-time view of process and host memory.
// TotalBytes is zero when host memory cannot be determined.
type MemorySample struct {
	ResidentBytes  uint64
	AvailableBytes uint64
	TotalBytes     uint64
	UsedPercent    float64
}

// MemorySampler reads current memory usage.
type MemorySampler interface {
	Sample() (MemorySample, error)
}

// SamplerFunc adapts a function to MemorySampler.
type SamplerFunc func() (MemorySample, error)

func (f SamplerFunc) Sample() (MemorySample, error) { return f() }

// procSampler reads /proc/meminfo and /proc/self/stat.
type procSampler struct {
	fs procfs.FS
}

// NewProcSampler returns a sampler over the proc filesystem mounted at mountPoint.
func NewProcSampler(mountPoint string) (MemorySampler, error) {
	fs, err := procfs.NewFS(mountPoint)
	if err != nil {
		return nil, fmt.Errorf("open procfs: %w", err)
	}
	return procSampler{fs: fs}, nil
}

// DefaultSampler uses /proc when available and falls back to Go runtime
// statistics (host totals unknown) elsewhere.
func DefaultSampler() MemorySampler {
	if s, err := NewProcSampler(procfs.DefaultMountPoint); err == nil {
		return s
	}
	return runtimeSampler{}
}

func (s procSampler) Sample() (MemorySample, error) {
	mi, err := s.fs.Meminfo()
	if err != nil {
		return MemorySample{}, fmt.Errorf("read meminfo: %w", err)
	}
	if mi.MemTotal == nil || *mi.MemTotal == 0 {
		return MemorySample{}, errors.New("meminfo: MemTotal missing")
	}
	out := MemorySample{TotalBytes: *mi.MemTotal * 1024}
	if mi.MemAvailable != nil {
		out.AvailableBytes = *mi.MemAvailable * 1024
	} else {
		// Kernels before 3.14 lack MemAvailable.
		for _, v := range []*uint64{mi.MemFree, mi.Buffers, mi.Cached} {
			if v != nil {
				out.AvailableBytes += *v * 1024
			}
		}
	}
	if out.AvailableBytes > out.TotalBytes {
		out.AvailableBytes = out.TotalBytes
	}
	out.UsedPercent = 100 * float64(out.TotalBytes-out.AvailableBytes) / float64(out.TotalBytes)

	if p, err := s.fs.Self(); err == nil {
		if st, err := p.Stat(); err == nil && st.ResidentMemory() > 0 {
			out.ResidentBytes = uint64(st.ResidentMemory())
		}
	}
	return out, nil
}

type runtimeSampler struct{}

func (runtimeSampler) Sample() (MemorySample, error) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return MemorySample{ResidentBytes: ms.Sys}, nil
}

// SampleMemory reads current memory usage and updates the memory gauges.
func (m *Manager) SampleMemory() (MemorySample, error) {
	s, err := m.sampler.Sample()
	if err != nil {
		return s, err
	}
	memoryUsedPercent.Set(s.UsedPercent)
	residentBytes.Set(float64(s.ResidentBytes))
	return s, nil
}
