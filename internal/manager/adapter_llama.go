//go:build llama

package manager

import (
	"context"
	"errors"
	"strings"

	llama "github.com/go-skynet/go-llama.cpp"
)

// llamaBuilt indicates this binary was compiled with real llama support.
const llamaBuilt = true

// llamaLoader loads a go-llama.cpp model in-process.
type llamaLoader struct{}

// NewLlamaLoader returns the in-process go-llama.cpp loader.
func NewLlamaLoader() EngineLoader { return llamaLoader{} }

// llamaEngine owns the loaded model.
type llamaEngine struct {
	model   *llama.LLama
	threads int
	batch   int
}

func (llamaLoader) Load(cfg EngineConfig) (Engine, error) {
	if strings.TrimSpace(cfg.ModelPath) == "" {
		return nil, errors.New("model path is empty")
	}
	mo := []llama.ModelOption{
		llama.SetContext(max(1, cfg.ContextSize)),
		llama.SetNBatch(max(1, cfg.BatchSize)),
		llama.SetMMap(cfg.MMap),
		llama.SetMlock(cfg.MLock),
	}
	if cfg.F16KV {
		mo = append(mo, llama.EnableF16Memory)
	}
	if cfg.GPULayers > 0 {
		mo = append(mo, llama.SetGPULayers(cfg.GPULayers))
	}
	m, err := llama.New(cfg.ModelPath, mo...)
	if err != nil {
		return nil, err
	}
	return &llamaEngine{model: m, threads: cfg.Threads, batch: cfg.BatchSize}, nil
}

// Generate runs one prediction. go-llama.cpp keeps a single token callback per
// model, so concurrent calls on one engine are not safe; run the manager in
// serialized mode with this engine.
func (e *llamaEngine) Generate(ctx context.Context, prompt string, params InferParams, onToken func(string) error) (FinalResult, error) {
	if e.model == nil {
		return FinalResult{}, errors.New("llama model not initialized")
	}
	var cbErr error
	e.model.SetTokenCallback(func(tok string) bool {
		if err := ctx.Err(); err != nil {
			cbErr = err
			return false
		}
		if err := onToken(tok); err != nil {
			cbErr = err
			return false
		}
		return true
	})

	text, err := e.model.Predict(prompt, e.predictOptions(params)...)
	if cbErr != nil {
		return FinalResult{Content: text}, cbErr
	}
	if err != nil {
		if ctx.Err() != nil {
			return FinalResult{}, ctx.Err()
		}
		return FinalResult{}, err
	}
	return FinalResult{Content: text, FinishReason: FinishEOS}, nil
}

func (e *llamaEngine) Close() error {
	if e.model != nil {
		e.model.Free()
		e.model = nil
	}
	return nil
}

// predictOptions converts adapter params into go-llama.cpp options.
func (e *llamaEngine) predictOptions(params InferParams) []llama.PredictOption {
	po := []llama.PredictOption{
		llama.SetTokens(max(1, params.MaxTokens)),
		llama.SetThreads(max(1, e.threads)),
		llama.SetBatch(max(1, e.batch)),
		llama.SetTopP(zf(params.TopP, llama.DefaultOptions.TopP)),
		llama.SetTopK(zn(params.TopK, llama.DefaultOptions.TopK)),
		llama.SetTemperature(zf(params.Temperature, llama.DefaultOptions.Temperature)),
		llama.SetPenalty(zf(params.RepeatPenalty, llama.DefaultOptions.Penalty)),
	}
	if params.Seed != 0 {
		po = append(po, llama.SetSeed(params.Seed))
	}
	if len(params.Stop) > 0 {
		po = append(po, llama.SetStopWords(params.Stop...))
	}
	return po
}
