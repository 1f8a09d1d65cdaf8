// Package config loads the run configuration file for a work chain.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/scfchain/scfchain/internal/pyscf"
)

type BackoffConfig struct {
	InitialDelayMS int     `json:"initial_delay_ms,omitempty" yaml:"initial_delay_ms,omitempty"`
	BackoffFactor  float64 `json:"backoff_factor,omitempty" yaml:"backoff_factor,omitempty"`
	MaxDelayMS     int     `json:"max_delay_ms,omitempty" yaml:"max_delay_ms,omitempty"`
	Jitter         bool    `json:"jitter,omitempty" yaml:"jitter,omitempty"`
}

type RunConfigFile struct {
	Version int `json:"version" yaml:"version"`

	Pyscf struct {
		Executable string `json:"executable,omitempty" yaml:"executable,omitempty"`
	} `json:"pyscf,omitempty" yaml:"pyscf,omitempty"`

	Workchain struct {
		MaxAttempts int           `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty"`
		Backoff     BackoffConfig `json:"backoff,omitempty" yaml:"backoff,omitempty"`
	} `json:"workchain,omitempty" yaml:"workchain,omitempty"`

	Job struct {
		WalltimeMS int `json:"walltime_ms,omitempty" yaml:"walltime_ms,omitempty"`
	} `json:"job,omitempty" yaml:"job,omitempty"`

	LogsRoot string `json:"logs_root,omitempty" yaml:"logs_root,omitempty"`

	Parameters pyscf.Parameters `json:"parameters" yaml:"parameters"`
}

// Load reads a run configuration from a YAML or JSON file, applying defaults
// and validating the result. Unknown fields are rejected.
func Load(path string) (*RunConfigFile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg RunConfigFile
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		if err := decodeJSONStrict(b, &cfg); err != nil {
			return nil, err
		}
	default:
		if err := decodeYAMLStrict(b, &cfg); err != nil {
			return nil, err
		}
	}
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func decodeJSONStrict(b []byte, cfg *RunConfigFile) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return err
	}
	var trailing any
	if err := dec.Decode(&trailing); err != io.EOF {
		if err == nil {
			return fmt.Errorf("json: multiple top-level values are not allowed")
		}
		return err
	}
	return nil
}

func decodeYAMLStrict(b []byte, cfg *RunConfigFile) error {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return err
	}
	var trailing any
	if err := dec.Decode(&trailing); err != io.EOF {
		if err == nil {
			return fmt.Errorf("yaml: multiple documents are not allowed")
		}
		return err
	}
	return nil
}

func applyDefaults(cfg *RunConfigFile) {
	if cfg == nil {
		return
	}
	if cfg.Version == 0 {
		cfg.Version = 1
	}
	if strings.TrimSpace(cfg.Pyscf.Executable) == "" {
		cfg.Pyscf.Executable = "python"
	}
	if cfg.Workchain.MaxAttempts == 0 {
		cfg.Workchain.MaxAttempts = 5
	}
	if cfg.Workchain.Backoff.BackoffFactor == 0 {
		cfg.Workchain.Backoff.BackoffFactor = 2.0
	}
	if cfg.Workchain.Backoff.MaxDelayMS == 0 {
		cfg.Workchain.Backoff.MaxDelayMS = 60_000
	}
}

func validate(cfg *RunConfigFile) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported config version: %d", cfg.Version)
	}
	if cfg.Workchain.MaxAttempts < 1 {
		return fmt.Errorf("workchain.max_attempts must be >= 1")
	}
	if cfg.Workchain.Backoff.InitialDelayMS < 0 {
		return fmt.Errorf("workchain.backoff.initial_delay_ms must be >= 0")
	}
	if cfg.Workchain.Backoff.MaxDelayMS < 0 {
		return fmt.Errorf("workchain.backoff.max_delay_ms must be >= 0")
	}
	if cfg.Workchain.Backoff.BackoffFactor <= 0 {
		return fmt.Errorf("workchain.backoff.backoff_factor must be > 0")
	}
	if cfg.Job.WalltimeMS < 0 {
		return fmt.Errorf("job.walltime_ms must be >= 0")
	}
	if err := cfg.Parameters.Validate(); err != nil {
		return fmt.Errorf("parameters: %w", err)
	}
	return nil
}
