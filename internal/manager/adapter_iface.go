package manager

import "context"

// EngineLoader constructs engines. Load is expensive and is only ever called
// while the Manager holds its state guard, so implementations need not be
// safe for concurrent use.
type EngineLoader interface {
	Load(cfg EngineConfig) (Engine, error)
}

// LoaderFunc adapts a function to EngineLoader.
type LoaderFunc func(cfg EngineConfig) (Engine, error)

func (f LoaderFunc) Load(cfg EngineConfig) (Engine, error) { return f(cfg) }

// Engine is a resident inference resource.
type Engine interface {
	// Generate streams fragments for the given prompt. onToken is invoked for
	// each fragment in order; when it returns an error generation must stop and
	// that error must be returned. Implementations must return when ctx is canceled.
	Generate(ctx context.Context, prompt string, params InferParams, onToken func(string) error) (FinalResult, error)
	// Close releases the memory held by the engine.
	Close() error
}

// InferParams captures generation parameters passed to the engine.
type InferParams struct {
	Temperature   float32
	TopP          float32
	TopK          int
	MaxTokens     int
	Stop          []string
	Seed          int
	RepeatPenalty float32
}

// FinalResult summarizes the generation after streaming.
type FinalResult struct {
	Content      string
	FinishReason string
}
