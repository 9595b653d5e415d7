//go:build !llama

package manager

// This file provides a no-CGO stub for the llama loader. It is compiled when
// the 'llama' build tag is NOT set, keeping default builds and CI CGO-free.
// The real loader lives in adapter_llama.go (tagged 'llama').

// llamaBuilt indicates this binary was compiled without llama support.
const llamaBuilt = false

// llamaLoader refuses to load without the 'llama' build tag. Acquire surfaces
// this as an engine load failure, so the service stays up and answers 503.
type llamaLoader struct{}

// NewLlamaLoader returns the stub loader.
func NewLlamaLoader() EngineLoader { return llamaLoader{} }

func (llamaLoader) Load(EngineConfig) (Engine, error) {
	return nil, errLlamaNotBuilt
}
