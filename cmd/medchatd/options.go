package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"medchatd/internal/config"
	"medchatd/internal/httpapi"
	"medchatd/internal/manager"
)

// Overrides registered on the root command; applied only when set explicitly.
var (
	flagAddr           string
	flagModelPath      string
	flagThreads        int
	flagContextSize    int
	flagMaxTokens      int
	flagIdleTimeout    int
	flagHighWater      float64
	flagGenerationMode string
	flagMaxConcurrent  int
	flagPreload        bool
	flagCORSOrigins    string
	flagLogLevel       string
	flagLogFormat      string
)

func bindOverrideFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringVar(&flagAddr, "addr", "", "HTTP listen address, e.g. :8080")
	f.StringVar(&flagModelPath, "model-path", "", "GGUF model file, or a directory holding one")
	f.IntVar(&flagThreads, "threads", 0, "CPU threads used by the engine")
	f.IntVar(&flagContextSize, "ctx-size", 0, "engine context window in tokens")
	f.IntVar(&flagMaxTokens, "max-tokens", 0, "server-wide cap on generated fragments")
	f.IntVar(&flagIdleTimeout, "idle-timeout", 0, "seconds without use before the engine is evicted")
	f.Float64Var(&flagHighWater, "high-water", 0, "host memory-used percent that triggers eviction")
	f.StringVar(&flagGenerationMode, "generation-mode", "", "serialized or concurrent")
	f.IntVar(&flagMaxConcurrent, "max-concurrent", 0, "concurrent generations in concurrent mode (0=unbounded)")
	f.BoolVar(&flagPreload, "preload", false, "load the engine at startup instead of on first request")
	f.StringVar(&flagCORSOrigins, "cors-origins", "", "comma-separated allowed CORS origins")
	f.StringVar(&flagLogLevel, "log-level", "", "trace, debug, info, warn or error")
	f.StringVar(&flagLogFormat, "log-format", "", "json or console")
}

// resolveConfig layers defaults < config file < MEDCHAT_* env < explicit flags
// and validates the result.
func resolveConfig(flags *pflag.FlagSet, getenv func(string) string) (config.Config, error) {
	cfg := config.Defaults()
	if cfgFile != "" {
		var err error
		if cfg, err = config.Load(cfgFile); err != nil {
			return cfg, err
		}
	}
	if err := config.ApplyEnv(&cfg, getenv); err != nil {
		return cfg, err
	}
	applyFlags(&cfg, flags)
	return cfg, cfg.Validate()
}

func applyFlags(cfg *config.Config, flags *pflag.FlagSet) {
	set := func(name string, apply func()) {
		if flags.Changed(name) {
			apply()
		}
	}
	set("addr", func() { cfg.Addr = flagAddr })
	set("model-path", func() { cfg.ModelPath = flagModelPath })
	set("threads", func() { cfg.Threads = flagThreads })
	set("ctx-size", func() { cfg.ContextSize = flagContextSize })
	set("max-tokens", func() { cfg.MaxTokens = flagMaxTokens })
	set("idle-timeout", func() { cfg.IdleTimeoutSeconds = flagIdleTimeout })
	set("high-water", func() { cfg.HighWaterPercent = flagHighWater })
	set("generation-mode", func() { cfg.GenerationMode = flagGenerationMode })
	set("max-concurrent", func() { cfg.MaxConcurrent = flagMaxConcurrent })
	set("preload", func() { cfg.Preload = flagPreload })
	set("cors-origins", func() { cfg.CORSOrigins = config.SplitCSV(flagCORSOrigins) })
	set("log-level", func() { cfg.LogLevel = flagLogLevel })
	set("log-format", func() { cfg.LogFormat = flagLogFormat })
}

func newLogger(cfg config.Config, out io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	if cfg.LogFormat == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Str("service", "medchatd").Logger()
}

func engineConfig(cfg config.Config, modelPath string) manager.EngineConfig {
	return manager.EngineConfig{
		ModelPath:     modelPath,
		ContextSize:   cfg.ContextSize,
		Threads:       cfg.Threads,
		BatchSize:     cfg.BatchSize,
		Temperature:   cfg.Temperature,
		TopP:          cfg.TopP,
		TopK:          cfg.TopK,
		RepeatPenalty: cfg.RepeatPenalty,
		MaxTokens:     cfg.MaxTokens,
		Stop:          append([]string(nil), cfg.Stop...),
		MMap:          cfg.MMap,
		MLock:         cfg.MLock,
		F16KV:         cfg.F16KV,
		GPULayers:     cfg.GPULayers,
	}
}

// newManager builds the lifecycle manager. Loader and reclaimer use the
// package defaults; the sampler reads procfs under cfg.ProcMount when present.
func newManager(cfg config.Config, modelPath string, log *zerolog.Logger) *manager.Manager {
	sampler, err := manager.NewProcSampler(cfg.ProcMount)
	if err != nil {
		log.Warn().Err(err).Str("proc_mount", cfg.ProcMount).Msg("procfs unavailable; using runtime memory stats")
		sampler = manager.DefaultSampler()
	}
	return manager.NewWithConfig(manager.ManagerConfig{
		Engine:         engineConfig(cfg, modelPath),
		MinAvailableMB: cfg.MinAvailableMB,
		GenerationMode: cfg.GenerationMode,
		MaxConcurrent:  cfg.MaxConcurrent,
		MaxWait:        seconds(cfg.MaxWaitSeconds),
		DrainTimeout:   seconds(cfg.DrainTimeoutSeconds),
		Sampler:        sampler,
		Logger:         log,
	})
}

func monitorConfig(cfg config.Config, log *zerolog.Logger) manager.MonitorConfig {
	return manager.MonitorConfig{
		Interval:         seconds(cfg.MonitorIntervalSeconds),
		IdleTimeout:      seconds(cfg.IdleTimeoutSeconds),
		HighWaterPercent: cfg.HighWaterPercent,
		Logger:           log,
	}
}

// configureHTTPAPI applies the HTTP settings of cfg to the httpapi package.
func configureHTTPAPI(base context.Context, cfg config.Config, log zerolog.Logger) {
	httpapi.SetLogger(log)
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	httpapi.SetStreamTimeoutSeconds(int64(cfg.StreamTimeoutSeconds))
	httpapi.SetRetryAfterSeconds(cfg.RetryAfterSeconds)
	httpapi.SetCORSOptions(cfg.CORSEnabled, cfg.CORSOrigins, cfg.CORSMethods, cfg.CORSHeaders)
	httpapi.SetRequestLogLevel(cfg.RequestLogLevel)
	httpapi.SetBaseContext(base)
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

func configSummary(cfg config.Config) string {
	return fmt.Sprintf("mode=%s idle=%ds high_water=%.0f%% min_available=%dMB", cfg.GenerationMode, cfg.IdleTimeoutSeconds, cfg.HighWaterPercent, cfg.MinAvailableMB)
}
