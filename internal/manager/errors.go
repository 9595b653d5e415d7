package manager

import (
	"errors"
	"fmt"
	"net/http"
)

// insufficientMemoryError reports that the host lacks headroom to load the
// engine even after a reclamation pass. Retryable.
type insufficientMemoryError struct {
	AvailableMB uint64
	RequiredMB  uint64
}

func (e insufficientMemoryError) Error() string {
	return fmt.Sprintf("insufficient memory: %d MB available, %d MB required", e.AvailableMB, e.RequiredMB)
}

func (e insufficientMemoryError) StatusCode() int { return http.StatusServiceUnavailable }

// IsInsufficientMemory reports whether err indicates missing memory headroom (return 503).
func IsInsufficientMemory(err error) bool {
	var e insufficientMemoryError
	return errors.As(err, &e)
}

// engineLoadError wraps a failed engine construction. The engine stays absent
// and a later Acquire may retry.
type engineLoadError struct{ cause error }

func (e engineLoadError) Error() string { return "engine load failed: " + e.cause.Error() }
func (e engineLoadError) Unwrap() error { return e.cause }
func (e engineLoadError) StatusCode() int {
	return http.StatusServiceUnavailable
}

// IsEngineLoadFailed reports whether err indicates a failed engine construction.
func IsEngineLoadFailed(err error) bool {
	var e engineLoadError
	return errors.As(err, &e)
}

// generationError wraps a failure while streaming fragments.
type generationError struct{ cause error }

func (e generationError) Error() string { return "generation failed: " + e.cause.Error() }
func (e generationError) Unwrap() error { return e.cause }
func (e generationError) StatusCode() int {
	return http.StatusInternalServerError
}

// IsGenerationFailed reports whether err indicates a mid-stream failure.
func IsGenerationFailed(err error) bool {
	var e generationError
	return errors.As(err, &e)
}

// tooBusyError signals admission timeout for 429 mapping.
type tooBusyError struct{ waited string }

func (e tooBusyError) Error() string   { return "too busy: no generation slot within " + e.waited }
func (e tooBusyError) StatusCode() int { return http.StatusTooManyRequests }

// IsTooBusy reports whether err indicates backpressure (return 429).
func IsTooBusy(err error) bool {
	var e tooBusyError
	return errors.As(err, &e)
}

// ErrShuttingDown is returned by Acquire and Generate once Shutdown started.
var ErrShuttingDown = shuttingDownError{}

type shuttingDownError struct{}

func (shuttingDownError) Error() string   { return "shutting down" }
func (shuttingDownError) StatusCode() int { return http.StatusServiceUnavailable }

// IsShuttingDown reports whether err indicates the manager is draining.
func IsShuttingDown(err error) bool { return errors.Is(err, ErrShuttingDown) }

// ErrEngineUnloaded is returned by Generate when the handle was evicted before
// the generation could start, e.g. while it waited for a slot. The engine is
// merely absent, so it maps to 503 and a fresh Acquire may succeed.
var ErrEngineUnloaded = engineUnloadedError{}

type engineUnloadedError struct{}

func (engineUnloadedError) Error() string   { return "engine was unloaded" }
func (engineUnloadedError) StatusCode() int { return http.StatusServiceUnavailable }

// IsEngineUnloaded reports whether err indicates an evicted handle.
func IsEngineUnloaded(err error) bool { return errors.Is(err, ErrEngineUnloaded) }

// ErrConsumerGone wraps emit failures: the consumer stopped reading.
var ErrConsumerGone = errors.New("consumer gone")

// errStopGeneration ends a generation early without being a failure.
var errStopGeneration = errors.New("stop generation")

var errLlamaNotBuilt = errors.New("llama support not built (missing 'llama' build tag)")
