package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Defaults are the wav option values used when a flag is not given
type Defaults struct {
	BPM       float64 `yaml:"bpm"`
	PPQ       int     `yaml:"ppq"`
	Frequency string  `yaml:"frequency"`
	Amplitude int     `yaml:"amplitude"`
	Depth     int     `yaml:"depth"`
	Width     int     `yaml:"width"`
	Bipolar   bool    `yaml:"bipolar"`
}

// Config holds all configuration for the tool
type Config struct {
	LogLevel   string
	LogFile    string
	PresetPath string
	Defaults   Defaults
}

// BuiltinDefaults returns the defaults of the generate wav command
func BuiltinDefaults() Defaults {
	return Defaults{
		BPM:       120,
		PPQ:       24,
		Frequency: "44.1",
		Amplitude: 100,
		Depth:     16,
		Width:     50,
		Bipolar:   false,
	}
}

// Load loads configuration from environment variables and an optional preset file
func Load() (*Config, error) {
	// Try to load .env file (optional)
	_ = godotenv.Load()

	d := BuiltinDefaults()
	var err error
	if d.BPM, err = envFloat("CLICKTRACK_BPM", d.BPM); err != nil {
		return nil, err
	}
	if d.PPQ, err = envInt("CLICKTRACK_PPQ", d.PPQ); err != nil {
		return nil, err
	}
	d.Frequency = envStr("CLICKTRACK_FREQUENCY", d.Frequency)
	if d.Amplitude, err = envInt("CLICKTRACK_AMPLITUDE", d.Amplitude); err != nil {
		return nil, err
	}
	if d.Depth, err = envInt("CLICKTRACK_DEPTH", d.Depth); err != nil {
		return nil, err
	}
	if d.Width, err = envInt("CLICKTRACK_WIDTH", d.Width); err != nil {
		return nil, err
	}
	if d.Bipolar, err = envBool("CLICKTRACK_BIPOLAR", d.Bipolar); err != nil {
		return nil, err
	}

	cfg := &Config{
		LogLevel:   envStr("CLICKTRACK_LOG_LEVEL", "info"),
		LogFile:    os.Getenv("CLICKTRACK_LOG_FILE"),
		PresetPath: os.Getenv("CLICKTRACK_PRESET"),
		Defaults:   d,
	}
	if cfg.PresetPath != "" {
		if err := cfg.ApplyPreset(cfg.PresetPath); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func envFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func envBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}
