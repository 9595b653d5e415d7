package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the service. Durations are in seconds.
type Config struct {
	Addr string `json:"addr" yaml:"addr" toml:"addr" validate:"required"`

	// Engine construction.
	ModelPath   string `json:"model_path" yaml:"model_path" toml:"model_path" validate:"required"`
	ContextSize int    `json:"context_size" yaml:"context_size" toml:"context_size" validate:"gte=1"`
	Threads     int    `json:"threads" yaml:"threads" toml:"threads" validate:"gte=1"`
	BatchSize   int    `json:"batch_size" yaml:"batch_size" toml:"batch_size" validate:"gte=1"`
	MMap        bool   `json:"mmap" yaml:"mmap" toml:"mmap"`
	MLock       bool   `json:"mlock" yaml:"mlock" toml:"mlock"`
	F16KV       bool   `json:"f16_kv" yaml:"f16_kv" toml:"f16_kv"`
	GPULayers   int    `json:"gpu_layers" yaml:"gpu_layers" toml:"gpu_layers" validate:"gte=0"`

	// Sampling defaults.
	Temperature   float32  `json:"temperature" yaml:"temperature" toml:"temperature" validate:"gte=0"`
	TopP          float32  `json:"top_p" yaml:"top_p" toml:"top_p" validate:"gte=0,lte=1"`
	TopK          int      `json:"top_k" yaml:"top_k" toml:"top_k" validate:"gte=0"`
	RepeatPenalty float32  `json:"repeat_penalty" yaml:"repeat_penalty" toml:"repeat_penalty" validate:"gte=0"`
	MaxTokens     int      `json:"max_tokens" yaml:"max_tokens" toml:"max_tokens" validate:"gte=1"`
	Stop          []string `json:"stop" yaml:"stop" toml:"stop"`

	// Lifecycle and memory.
	MinAvailableMB         int     `json:"min_available_mb" yaml:"min_available_mb" toml:"min_available_mb"`
	IdleTimeoutSeconds     int     `json:"idle_timeout_seconds" yaml:"idle_timeout_seconds" toml:"idle_timeout_seconds" validate:"gte=1"`
	MonitorIntervalSeconds int     `json:"monitor_interval_seconds" yaml:"monitor_interval_seconds" toml:"monitor_interval_seconds" validate:"gte=1"`
	HighWaterPercent       float64 `json:"high_water_percent" yaml:"high_water_percent" toml:"high_water_percent" validate:"gt=0,lte=100"`
	GenerationMode         string  `json:"generation_mode" yaml:"generation_mode" toml:"generation_mode" validate:"oneof=serialized concurrent"`
	MaxConcurrent          int     `json:"max_concurrent" yaml:"max_concurrent" toml:"max_concurrent" validate:"gte=0"`
	MaxWaitSeconds         int     `json:"max_wait_seconds" yaml:"max_wait_seconds" toml:"max_wait_seconds" validate:"gte=1"`
	DrainTimeoutSeconds    int     `json:"drain_timeout_seconds" yaml:"drain_timeout_seconds" toml:"drain_timeout_seconds" validate:"gte=0"`
	Preload                bool    `json:"preload" yaml:"preload" toml:"preload"`
	ProcMount              string  `json:"proc_mount" yaml:"proc_mount" toml:"proc_mount"`

	// HTTP.
	StreamTimeoutSeconds   int      `json:"stream_timeout_seconds" yaml:"stream_timeout_seconds" toml:"stream_timeout_seconds" validate:"gte=0"`
	ShutdownTimeoutSeconds int      `json:"shutdown_timeout_seconds" yaml:"shutdown_timeout_seconds" toml:"shutdown_timeout_seconds" validate:"gte=1"`
	RetryAfterSeconds      int      `json:"retry_after_seconds" yaml:"retry_after_seconds" toml:"retry_after_seconds" validate:"gte=0"`
	MaxBodyBytes           int64    `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes" validate:"gte=0"`
	CORSEnabled            bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSOrigins            []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
	CORSMethods            []string `json:"cors_methods" yaml:"cors_methods" toml:"cors_methods"`
	CORSHeaders            []string `json:"cors_headers" yaml:"cors_headers" toml:"cors_headers"`

	// Logging.
	LogLevel        string `json:"log_level" yaml:"log_level" toml:"log_level" validate:"oneof=trace debug info warn error"`
	LogFormat       string `json:"log_format" yaml:"log_format" toml:"log_format" validate:"oneof=json console"`
	RequestLogLevel string `json:"request_log_level" yaml:"request_log_level" toml:"request_log_level" validate:"oneof=off error info debug"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Addr:        ":8080",
		ModelPath:   "./Mistral-7B-Instruct-v0.3.Q5_K_S.gguf",
		ContextSize: 32768,
		Threads:     12,
		BatchSize:   64,
		MMap:        true,
		F16KV:       true,

		Temperature:   0.7,
		TopP:          0.95,
		TopK:          40,
		RepeatPenalty: 1.2,
		MaxTokens:     4096,
		Stop:          []string{"</s>", "[INST]"},

		MinAvailableMB:         500,
		IdleTimeoutSeconds:     180,
		MonitorIntervalSeconds: 20,
		HighWaterPercent:       80,
		GenerationMode:         "serialized",
		MaxWaitSeconds:         30,
		DrainTimeoutSeconds:    10,
		ProcMount:              "/proc",

		ShutdownTimeoutSeconds: 15,
		RetryAfterSeconds:      5,
		MaxBodyBytes:           1 << 20,
		CORSEnabled:            true,
		CORSOrigins:            []string{"http://localhost:3000"},
		CORSMethods:            []string{"GET", "POST", "OPTIONS"},
		CORSHeaders:            []string{"Content-Type", "Authorization", "X-Log-Level"},

		LogLevel:        "info",
		LogFormat:       "json",
		RequestLogLevel: "info",
	}
}

// Load reads a configuration file based on its extension, on top of Defaults.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

var validate = func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		return name
	})
	return v
}()

// Validate checks field constraints and reports every violated field by its
// configuration key.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return fmt.Errorf("invalid config: %w", err)
	}
	parts := make([]string, 0, len(ves))
	for _, fe := range ves {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s: %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
		}
	}
	return fmt.Errorf("invalid config: %s", strings.Join(parts, ", "))
}
