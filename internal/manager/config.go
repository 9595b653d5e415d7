package manager

import (
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

// Defaults applied when corresponding ManagerConfig fields are unset.
const (
	defaultMinAvailableMB = 500
	defaultMaxWait        = 30 * time.Second
	defaultDrainTimeout   = 10 * time.Second
)

// Generation admission modes.
const (
	ModeSerialized = "serialized"
	ModeConcurrent = "concurrent"
)

// EngineConfig describes how the engine is constructed and the sampling
// defaults applied to every generation. It is built once at startup and never
// mutated afterwards.
type EngineConfig struct {
	ModelPath   string
	ContextSize int
	Threads     int
	BatchSize   int

	Temperature   float32
	TopP          float32
	TopK          int
	RepeatPenalty float32
	MaxTokens     int
	Stop          []string

	MMap      bool
	MLock     bool
	F16KV     bool
	GPULayers int
}

// ManagerConfig encapsulates all tunables for Manager construction.
type ManagerConfig struct {
	Engine EngineConfig
	// MinAvailableMB is the host memory that must be available before a load
	// is attempted. Zero applies the package default; negative disables the check.
	MinAvailableMB int
	// GenerationMode is ModeSerialized (default) or ModeConcurrent.
	GenerationMode string
	// MaxConcurrent bounds concurrent generations in ModeConcurrent (0 = unbounded).
	MaxConcurrent int
	// MaxWait bounds how long a generation waits for admission.
	MaxWait time.Duration
	// DrainTimeout bounds how long Shutdown waits for in-flight generations.
	DrainTimeout time.Duration

	Loader    EngineLoader
	Sampler   MemorySampler
	Reclaimer Reclaimer
	Publisher EventPublisher
	Logger    *zerolog.Logger
	// Now overrides the clock (tests).
	Now func() time.Time
}

// NewWithConfig constructs a Manager from ManagerConfig.
func NewWithConfig(cfg ManagerConfig) *Manager {
	m := &Manager{
		cfg:       cfg.Engine,
		loader:    cfg.Loader,
		sampler:   cfg.Sampler,
		reclaimer: cfg.Reclaimer,
		publisher: cfg.Publisher,
		now:       cfg.Now,
	}
	if cfg.Logger != nil {
		m.log = cfg.Logger.With().Str("component", "manager").Logger()
	} else {
		m.log = zerolog.Nop()
	}
	if m.loader == nil {
		m.loader = NewLlamaLoader()
	}
	if m.sampler == nil {
		m.sampler = DefaultSampler()
	}
	if m.reclaimer == nil {
		m.reclaimer = RuntimeReclaimer()
	}
	if m.publisher == nil {
		m.publisher = noopPublisher{}
	}
	if m.now == nil {
		m.now = time.Now
	}
	// Apply defaults if unset
	switch {
	case cfg.MinAvailableMB == 0:
		m.minAvailableBytes = defaultMinAvailableMB << 20
	case cfg.MinAvailableMB > 0:
		m.minAvailableBytes = uint64(cfg.MinAvailableMB) << 20
	}
	if cfg.MaxWait <= 0 {
		m.maxWait = defaultMaxWait
	} else {
		m.maxWait = cfg.MaxWait
	}
	if cfg.DrainTimeout <= 0 {
		m.drainTimeout = defaultDrainTimeout
	} else {
		m.drainTimeout = cfg.DrainTimeout
	}
	m.mode = ModeSerialized
	if cfg.GenerationMode == ModeConcurrent {
		m.mode = ModeConcurrent
	}
	switch {
	case m.mode == ModeSerialized:
		m.gate = semaphore.NewWeighted(1)
	case cfg.MaxConcurrent > 0:
		m.gate = semaphore.NewWeighted(int64(cfg.MaxConcurrent))
	}
	m.startTime = m.now()
	return m
}
