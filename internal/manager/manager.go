package manager

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

// Manager is the lifecycle controller for the inference engine. It owns zero
// or one resident Handle; every transition between absent and resident happens
// while holding mu.
type Manager struct {
	mu     sync.Mutex
	handle *Handle

	// lastUsed is written under mu (and by Touch) but read lock-free so that
	// health reporting never waits behind a load.
	lastUsed atomic.Int64
	state    atomic.Value // State
	draining atomic.Bool

	cfg       EngineConfig
	loader    EngineLoader
	sampler   MemorySampler
	reclaimer Reclaimer
	publisher EventPublisher
	log       zerolog.Logger
	now       func() time.Time

	minAvailableBytes uint64
	maxWait           time.Duration
	drainTimeout      time.Duration

	// Generation admission
	mode     string
	gate     *semaphore.Weighted
	inflight atomic.Int64
	waiting  atomic.Int64

	nextID         atomic.Uint64
	loadsTotal     atomic.Uint64
	loadFailures   atomic.Uint64
	evictionsTotal atomic.Uint64
	startTime      time.Time
}

// New constructs a Manager for the given engine configuration with package defaults.
func New(cfg EngineConfig) *Manager {
	return NewWithConfig(ManagerConfig{Engine: cfg})
}

// EngineConfig returns the immutable engine configuration.
func (m *Manager) EngineConfig() EngineConfig { return m.cfg }

// GenerationMode reports the admission mode (ModeSerialized or ModeConcurrent).
func (m *Manager) GenerationMode() string { return m.mode }

// Loaded reports whether an engine is resident. It does not wait for an
// in-progress load.
func (m *Manager) Loaded() bool { return m.currentState() == StateLoaded }

// Ready reports whether the manager accepts new work. The engine itself is
// loaded lazily, so a manager without a resident engine is still ready.
func (m *Manager) Ready() bool { return !m.draining.Load() }

// LastUsed returns the last time the engine was acquired or touched.
func (m *Manager) LastUsed() time.Time {
	ns := m.lastUsed.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

func (m *Manager) markUsed() { m.lastUsed.Store(m.now().UnixNano()) }

func (m *Manager) currentState() State {
	if s, ok := m.state.Load().(State); ok {
		return s
	}
	return StateUnloaded
}

func (m *Manager) setState(s State) {
	m.state.Store(s)
	engineLoaded.Set(boolGauge(s == StateLoaded))
}

// Handle is a resident engine as handed out by Acquire. All callers that
// acquire while the engine stays resident receive the same Handle.
type Handle struct {
	id       uint64
	engine   Engine
	loadedAt time.Time
	log      zerolog.Logger

	mu      sync.Mutex
	refs    int
	retired bool
	closed  bool
}

func newHandle(id uint64, eng Engine, at time.Time, log zerolog.Logger) *Handle {
	return &Handle{id: id, engine: eng, loadedAt: at, log: log}
}

// ID identifies the load that produced this handle; it increases with every load.
func (h *Handle) ID() uint64 { return h.id }

// LoadedAt is the time the engine finished loading.
func (h *Handle) LoadedAt() time.Time { return h.loadedAt }

// Closed reports whether the engine behind this handle has been released.
func (h *Handle) Closed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// retain pins the engine for one generation. It fails once the handle was evicted.
func (h *Handle) retain() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.retired {
		return false
	}
	h.refs++
	return true
}

func (h *Handle) release() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.refs--
	if h.refs <= 0 && h.retired {
		h.closeLocked()
	}
}

func (h *Handle) inUse() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.refs
}

// retire detaches the handle. The engine is closed now if no generation holds
// it, otherwise when the last one releases it. Reports whether it closed now.
func (h *Handle) retire() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.retired = true
	if h.refs > 0 {
		return false
	}
	h.closeLocked()
	return true
}

// closeLocked releases the engine best-effort; failures are logged, never returned.
func (h *Handle) closeLocked() {
	if h.closed {
		return
	}
	h.closed = true
	defer func() {
		if r := recover(); r != nil {
			h.log.Warn().Str("event", "engine_close_panic").Uint64("handle", h.id).Str("panic", fmt.Sprint(r)).Msg("engine close panicked")
		}
	}()
	if err := h.engine.Close(); err != nil {
		h.log.Warn().Str("event", "engine_close_error").Uint64("handle", h.id).Err(err).Msg("engine close failed")
	}
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
