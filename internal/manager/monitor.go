package manager

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Defaults applied when corresponding MonitorConfig fields are unset.
const (
	defaultMonitorInterval  = 20 * time.Second
	defaultIdleTimeout      = 180 * time.Second
	defaultHighWaterPercent = 80.0
)

// CheckOutcome is the result of one monitor cycle.
type CheckOutcome string

const (
	CheckNoop              CheckOutcome = "noop"
	CheckIdleEvicted       CheckOutcome = "idle_evicted"
	CheckPressureEvicted   CheckOutcome = "pressure_evicted"
	CheckPressureReclaimed CheckOutcome = "pressure_reclaimed"
	CheckSampleError       CheckOutcome = "sample_error"
	CheckPanic             CheckOutcome = "panic"
)

// MonitorConfig tunes the background memory monitor.
type MonitorConfig struct {
	Interval    time.Duration
	IdleTimeout time.Duration
	// HighWaterPercent is the host memory-used percentage above which the
	// engine is evicted (or memory reclaimed when no engine is resident).
	HighWaterPercent float64
	Logger           *zerolog.Logger
}

// Monitor bounds memory usage independently of request traffic: it evicts the
// engine after IdleTimeout without use and reacts to host memory pressure.
type Monitor struct {
	mgr         *Manager
	interval    time.Duration
	idleTimeout time.Duration
	highWater   float64
	log         zerolog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewMonitor builds a Monitor for mgr; call Start to run it.
func NewMonitor(mgr *Manager, cfg MonitorConfig) *Monitor {
	mo := &Monitor{
		mgr:         mgr,
		interval:    cfg.Interval,
		idleTimeout: cfg.IdleTimeout,
		highWater:   cfg.HighWaterPercent,
	}
	if mo.interval <= 0 {
		mo.interval = defaultMonitorInterval
	}
	if mo.idleTimeout <= 0 {
		mo.idleTimeout = defaultIdleTimeout
	}
	if mo.highWater <= 0 {
		mo.highWater = defaultHighWaterPercent
	}
	if cfg.Logger != nil {
		mo.log = cfg.Logger.With().Str("component", "monitor").Logger()
	} else {
		mo.log = zerolog.Nop()
	}
	return mo
}

// Start runs the monitor loop in a goroutine until ctx is canceled or Stop is
// called. Starting a running monitor is a no-op.
func (mo *Monitor) Start(ctx context.Context) {
	mo.mu.Lock()
	defer mo.mu.Unlock()
	if mo.done != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	mo.cancel, mo.done = cancel, done
	go func() {
		defer close(done)
		mo.Run(ctx)
	}()
}

// Stop signals the loop to exit and waits for it.
func (mo *Monitor) Stop() {
	mo.mu.Lock()
	cancel, done := mo.cancel, mo.done
	mo.cancel, mo.done = nil, nil
	mo.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Run executes checks every interval until ctx is done. A failing check never
// terminates the loop.
func (mo *Monitor) Run(ctx context.Context) {
	mo.log.Info().Str("event", "monitor_start").Dur("interval", mo.interval).Dur("idle_timeout", mo.idleTimeout).Float64("high_water_percent", mo.highWater).Msg("memory monitor started")
	ticker := time.NewTicker(mo.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			mo.log.Info().Str("event", "monitor_stop").Msg("memory monitor stopped")
			return
		case <-ticker.C:
			mo.Check()
		}
	}
}

// Check runs one monitor cycle.
func (mo *Monitor) Check() (out CheckOutcome) {
	defer func() {
		if r := recover(); r != nil {
			mo.log.Error().Str("event", "monitor_panic").Str("panic", fmt.Sprint(r)).Msg("monitor check panicked")
			out = CheckPanic
		}
		monitorChecksTotal.WithLabelValues(string(out)).Inc()
	}()

	if mo.mgr.EvictIfIdle(mo.idleTimeout) {
		return CheckIdleEvicted
	}
	s, err := mo.mgr.SampleMemory()
	if err != nil {
		mo.log.Warn().Str("event", "monitor_sample_error").Err(err).Msg("memory sample failed")
		return CheckSampleError
	}
	if s.TotalBytes == 0 || s.UsedPercent <= mo.highWater {
		return CheckNoop
	}
	mo.log.Warn().Str("event", "memory_pressure").Float64("used_percent", s.UsedPercent).Float64("high_water_percent", mo.highWater).Msg("host memory above high-water mark")
	if mo.mgr.evictFor(ReasonPressure) {
		return CheckPressureEvicted
	}
	mo.mgr.Reclaim()
	return CheckPressureReclaimed
}
