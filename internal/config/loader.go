package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.SessionIdleTimeout < 0 {
		errs = append(errs, fmt.Errorf("server.session_idle_timeout must not be negative"))
	}

	if cfg.Upstream.APIKeyEnv == "" {
		errs = append(errs, fmt.Errorf("upstream.api_key_env is required"))
	}
	if cfg.Scoring.APIKeyEnv == "" {
		errs = append(errs, fmt.Errorf("scoring.api_key_env is required"))
	}

	if cfg.Questions.Count < 0 {
		errs = append(errs, fmt.Errorf("questions.count must not be negative"))
	}
	if cfg.Interview.MinChunks < 0 {
		errs = append(errs, fmt.Errorf("interview.min_chunks must not be negative"))
	}
	for name, d := range map[string]time.Duration{
		"interview.min_answer":     cfg.Interview.MinAnswer,
		"interview.grace_delay":    cfg.Interview.GraceDelay,
		"interview.safety_timeout": cfg.Interview.SafetyTimeout,
		"vad.speech_confirm":       cfg.VAD.SpeechConfirm,
		"vad.silence_timeout":      cfg.VAD.SilenceTimeout,
		"vad.min_turn":             cfg.VAD.MinTurn,
	} {
		if d < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative", name))
		}
	}

	if cfg.VAD.BaseThreshold < 0 || cfg.VAD.BaseThreshold > 1 {
		errs = append(errs, fmt.Errorf("vad.base_threshold must be in [0, 1]"))
	}
	if cfg.VAD.NoiseFloorMultiplier < 0 {
		errs = append(errs, fmt.Errorf("vad.noise_floor_multiplier must not be negative"))
	}
	if cfg.VAD.PreRollFrames < 0 {
		errs = append(errs, fmt.Errorf("vad.pre_roll_frames must not be negative"))
	}

	return errors.Join(errs...)
}
