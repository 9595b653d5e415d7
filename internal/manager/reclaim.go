package manager

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Reclaimer returns unused memory to the operating system without touching
// the engine. Implementations are best-effort and safe to call concurrently.
type Reclaimer interface {
	Reclaim()
}

// ReclaimFunc adapts a function to Reclaimer.
type ReclaimFunc func()

func (f ReclaimFunc) Reclaim() { f() }

type runtimeReclaimer struct{}

// RuntimeReclaimer collects garbage, returns freed Go heap pages to the OS and,
// in llama builds on Linux, trims the native allocator.
func RuntimeReclaimer() Reclaimer { return runtimeReclaimer{} }

func (runtimeReclaimer) Reclaim() {
	runtime.GC()
	debug.FreeOSMemory()
	trimNativeHeap()
}

// Reclaim runs the cleanup hook. It never fails the caller.
func (m *Manager) Reclaim() {
	defer func() {
		if r := recover(); r != nil {
			m.log.Warn().Str("event", "reclaim_panic").Str("panic", fmt.Sprint(r)).Msg("reclaim panicked")
		}
	}()
	m.reclaimer.Reclaim()
	reclaimsTotal.Inc()
}
