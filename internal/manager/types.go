package manager

// State represents lifecycle state of the engine.
type State string

const (
	StateUnloaded State = "unloaded"
	StateLoading  State = "loading"
	StateLoaded   State = "loaded"
)

// Finish reasons reported by Generate.
const (
	FinishLength    = "length"
	FinishStop      = "stop"
	FinishEOS       = "eos"
	FinishCancelled = "cancelled"
	FinishError     = "error"
)

// Eviction reasons, used for logging, events and metrics.
const (
	ReasonManual   = "manual"
	ReasonIdle     = "idle"
	ReasonPressure = "memory_pressure"
	ReasonShutdown = "shutdown"
)

// GenerateOptions bounds one generation pass. Zero values fall back to the
// EngineConfig sampling defaults.
type GenerateOptions struct {
	// MaxFragments stops generation after this many fragments were emitted.
	MaxFragments int
	// Stop sequences end generation; text from the stop sequence on is not emitted.
	Stop          []string
	Temperature   float32
	TopP          float32
	TopK          int
	RepeatPenalty float32
	Seed          int
}

// GenerateResult summarizes a generation pass.
type GenerateResult struct {
	Fragments    int
	FinishReason string
}
