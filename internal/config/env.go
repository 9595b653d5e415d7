package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "MEDCHAT_"

type envSetter func(c *Config, v string) error

func setString(dst func(*Config) *string) envSetter {
	return func(c *Config, v string) error { *dst(c) = v; return nil }
}

func setInt(dst func(*Config) *int) envSetter {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return err
		}
		*dst(c) = n
		return nil
	}
}

func setInt64(dst func(*Config) *int64) envSetter {
	return func(c *Config, v string) error {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return err
		}
		*dst(c) = n
		return nil
	}
}

func setFloat32(dst func(*Config) *float32) envSetter {
	return func(c *Config, v string) error {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 32)
		if err != nil {
			return err
		}
		*dst(c) = float32(f)
		return nil
	}
}

func setFloat64(dst func(*Config) *float64) envSetter {
	return func(c *Config, v string) error {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return err
		}
		*dst(c) = f
		return nil
	}
}

func setBool(dst func(*Config) *bool) envSetter {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return err
		}
		*dst(c) = b
		return nil
	}
}

func setList(dst func(*Config) *[]string) envSetter {
	return func(c *Config, v string) error { *dst(c) = SplitCSV(v); return nil }
}

// envVars maps variable names (without prefix) to Config fields.
var envVars = map[string]envSetter{
	"ADDR":                     setString(func(c *Config) *string { return &c.Addr }),
	"MODEL_PATH":               setString(func(c *Config) *string { return &c.ModelPath }),
	"CONTEXT_SIZE":             setInt(func(c *Config) *int { return &c.ContextSize }),
	"THREADS":                  setInt(func(c *Config) *int { return &c.Threads }),
	"BATCH_SIZE":               setInt(func(c *Config) *int { return &c.BatchSize }),
	"MMAP":                     setBool(func(c *Config) *bool { return &c.MMap }),
	"MLOCK":                    setBool(func(c *Config) *bool { return &c.MLock }),
	"F16_KV":                   setBool(func(c *Config) *bool { return &c.F16KV }),
	"GPU_LAYERS":               setInt(func(c *Config) *int { return &c.GPULayers }),
	"TEMPERATURE":              setFloat32(func(c *Config) *float32 { return &c.Temperature }),
	"TOP_P":                    setFloat32(func(c *Config) *float32 { return &c.TopP }),
	"TOP_K":                    setInt(func(c *Config) *int { return &c.TopK }),
	"REPEAT_PENALTY":           setFloat32(func(c *Config) *float32 { return &c.RepeatPenalty }),
	"MAX_TOKENS":               setInt(func(c *Config) *int { return &c.MaxTokens }),
	"STOP":                     setList(func(c *Config) *[]string { return &c.Stop }),
	"MIN_AVAILABLE_MB":         setInt(func(c *Config) *int { return &c.MinAvailableMB }),
	"IDLE_TIMEOUT_SECONDS":     setInt(func(c *Config) *int { return &c.IdleTimeoutSeconds }),
	"MONITOR_INTERVAL_SECONDS": setInt(func(c *Config) *int { return &c.MonitorIntervalSeconds }),
	"HIGH_WATER_PERCENT":       setFloat64(func(c *Config) *float64 { return &c.HighWaterPercent }),
	"GENERATION_MODE":          setString(func(c *Config) *string { return &c.GenerationMode }),
	"MAX_CONCURRENT":           setInt(func(c *Config) *int { return &c.MaxConcurrent }),
	"MAX_WAIT_SECONDS":         setInt(func(c *Config) *int { return &c.MaxWaitSeconds }),
	"DRAIN_TIMEOUT_SECONDS":    setInt(func(c *Config) *int { return &c.DrainTimeoutSeconds }),
	"PRELOAD":                  setBool(func(c *Config) *bool { return &c.Preload }),
	"PROC_MOUNT":               setString(func(c *Config) *string { return &c.ProcMount }),
	"STREAM_TIMEOUT_SECONDS":   setInt(func(c *Config) *int { return &c.StreamTimeoutSeconds }),
	"SHUTDOWN_TIMEOUT_SECONDS": setInt(func(c *Config) *int { return &c.ShutdownTimeoutSeconds }),
	"RETRY_AFTER_SECONDS":      setInt(func(c *Config) *int { return &c.RetryAfterSeconds }),
	"MAX_BODY_BYTES":           setInt64(func(c *Config) *int64 { return &c.MaxBodyBytes }),
	"CORS_ENABLED":             setBool(func(c *Config) *bool { return &c.CORSEnabled }),
	"CORS_ORIGINS":             setList(func(c *Config) *[]string { return &c.CORSOrigins }),
	"CORS_METHODS":             setList(func(c *Config) *[]string { return &c.CORSMethods }),
	"CORS_HEADERS":             setList(func(c *Config) *[]string { return &c.CORSHeaders }),
	"LOG_LEVEL":                setString(func(c *Config) *string { return &c.LogLevel }),
	"LOG_FORMAT":               setString(func(c *Config) *string { return &c.LogFormat }),
	"REQUEST_LOG_LEVEL":        setString(func(c *Config) *string { return &c.RequestLogLevel }),
}

// ApplyEnv overlays MEDCHAT_* variables read through getenv onto cfg. Unset or
// empty variables are ignored; malformed values are reported together.
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	var errs []error
	for name, set := range envVars {
		v := getenv(EnvPrefix + name)
		if v == "" {
			continue
		}
		if err := set(cfg, v); err != nil {
			errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
		}
	}
	return errors.Join(errs...)
}

// SplitCSV splits a comma-separated list, trimming spaces and dropping empty items.
func SplitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
