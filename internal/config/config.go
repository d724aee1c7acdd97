// Package config holds the simulator's startup configuration: every
// tunable recognised at launch, with a YAML file overlaying built-in
// defaults.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is every tunable the simulator recognises at startup.
type Config struct {
	SetpointS       float64 `yaml:"setpoint_s"`
	SampleIntervalS float64 `yaml:"sample_interval_s"`

	Kp        float64 `yaml:"kp"`
	Kd        float64 `yaml:"kd"`
	DeadbandS float64 `yaml:"deadband_s"`

	MinWorkers int `yaml:"min_workers"`
	MaxWorkers int `yaml:"max_workers"`

	FBaseHz          float64 `yaml:"f_base_hz"`
	BaseProcessingMs float64 `yaml:"base_processing_ms"`
	BaselineJittered bool    `yaml:"baseline_jittered"`

	FBurstHz       float64 `yaml:"f_burst_hz"`
	BurstDurationS float64 `yaml:"burst_duration_s"`

	SLOBandS   float64 `yaml:"slo_band_s"`
	SLOWindowS float64 `yaml:"slo_window_s"`

	WorkloadCSVPath string `yaml:"workload_csv_path"`

	ListenAddr string `yaml:"listen_addr"`
	Dev        bool   `yaml:"dev"`
}

// Default returns the simulator's built-in defaults, tuned for a
// 1-second setpoint and a modest worker pool.
func Default() Config {
	return Config{
		SetpointS:       1.0,
		SampleIntervalS: 0.5,

		Kp:        0.8,
		Kd:        7.0,
		DeadbandS: 0.1,

		MinWorkers: 1,
		MaxWorkers: 10,

		FBaseHz:          2,
		BaseProcessingMs: 1000,
		BaselineJittered: false,

		FBurstHz:       8,
		BurstDurationS: 6,

		SLOBandS:   0.2,
		SLOWindowS: 60,

		ListenAddr: ":8090",
	}
}

// Load reads a YAML file at path, overlaying it onto Default(). A missing
// file is not an error — defaults apply.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the invariants required at startup: max_workers >=
// min_workers, and a positive setpoint/sample interval.
func (c Config) Validate() error {
	if c.MinWorkers < 1 {
		return fmt.Errorf("min_workers must be >= 1, got %d", c.MinWorkers)
	}
	if c.MaxWorkers < c.MinWorkers {
		return fmt.Errorf("max_workers (%d) must be >= min_workers (%d)", c.MaxWorkers, c.MinWorkers)
	}
	if c.SetpointS <= 0 {
		return fmt.Errorf("setpoint_s must be > 0, got %f", c.SetpointS)
	}
	if c.SampleIntervalS <= 0 {
		return fmt.Errorf("sample_interval_s must be > 0, got %f", c.SampleIntervalS)
	}
	return nil
}
