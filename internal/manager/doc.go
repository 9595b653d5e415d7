// Package manager owns the lifecycle of the single in-process inference engine.
// It is structured into small files by concern:
//
//   - manager.go: core Manager type, engine state and the Handle it hands out.
//   - config.go: EngineConfig, ManagerConfig and package defaults; NewWithConfig applies defaults.
//   - types.go: lifecycle state, finish reasons and generation options.
//   - errors.go: error types and helpers (IsInsufficientMemory, IsEngineLoadFailed, ...).
//   - acquire.go: Acquire/Touch, lazy loading under the state guard.
//   - evict.go: Evict/EvictIfIdle, best-effort teardown.
//   - monitor.go: background Monitor for idle timeout and memory pressure.
//   - memory.go: MemorySampler backed by /proc (prometheus/procfs).
//   - reclaim.go: Reclaimer hook returning freed memory to the OS.
//   - admission.go: generation admission gate (serialized or concurrent).
//   - generate.go: the generation pass (limits, stop sequences, cleanup).
//   - unload.go: graceful drain and eviction on shutdown.
//   - status_report.go, sanity.go: Health and Preflight reports.
//   - events.go: lifecycle events for observers.
//
// Build tags and runtimes:
//
//   - In-process llama (standard):
//     Uses the go-llama.cpp adapter. Enabled with `-tags=llama`.
//     Files: adapter_llama.go, llama_cgo.go (linker rpath hints),
//     reclaim_trim_llama.go (glibc malloc_trim).
//     A no-CGO stub exists when the tag is not set: adapter_llama_stub.go.
//
// External packages should inject a Manager into handlers and use its public
// methods only (NewWithConfig, Acquire, Generate, Touch, Evict, Health, Shutdown).
package manager
