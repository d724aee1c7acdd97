package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadWithEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadWithMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverlaysProvidedFieldsOntoDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sim.yaml")
	yamlBody := "setpoint_s: 2.5\nmax_workers: 20\n"
	require.NoError(t, os.WriteFile(path, []byte(yamlBody), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2.5, cfg.SetpointS)
	assert.Equal(t, 20, cfg.MaxWorkers)
	// Unspecified fields keep their defaults.
	assert.Equal(t, Default().Kp, cfg.Kp)
	assert.Equal(t, Default().MinWorkers, cfg.MinWorkers)
}

func TestLoadWithMalformedYAMLReturnsError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("not: [valid: yaml"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidateRejectsZeroMinWorkers(t *testing.T) {
	cfg := Default()
	cfg.MinWorkers = 0
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsMaxBelowMin(t *testing.T) {
	cfg := Default()
	cfg.MinWorkers = 5
	cfg.MaxWorkers = 4
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsNonPositiveSetpoint(t *testing.T) {
	cfg := Default()
	cfg.SetpointS = 0
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsNonPositiveSampleInterval(t *testing.T) {
	cfg := Default()
	cfg.SampleIntervalS = -1
	assert.Error(t, cfg.Validate())
}
