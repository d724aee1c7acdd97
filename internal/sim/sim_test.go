package sim

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loadsim/internal/config"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.MinWorkers = 1
	cfg.MaxWorkers = 6
	cfg.SampleIntervalS = 0.05
	cfg.FBaseHz = 30
	cfg.BaseProcessingMs = 150
	cfg.SetpointS = 1.0
	return cfg
}

func TestNewSeedsMinWorkersAndRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	s, err := New(cfg, prometheus.NewRegistry(), nil)
	require.NoError(t, err)
	assert.Equal(t, cfg.MinWorkers, s.Manager.WorkerCount())

	bad := testConfig()
	bad.MinWorkers = 0
	_, err = New(bad, prometheus.NewRegistry(), nil)
	assert.Error(t, err)
}

// Under sustained load above setpoint, the worker pool should grow past
// MinWorkers.
func TestSimulationScalesUpUnderSustainedLoad(t *testing.T) {
	cfg := testConfig()
	s, err := New(cfg, prometheus.NewRegistry(), nil)
	require.NoError(t, err)

	s.Start()
	defer s.Shutdown()

	require.Eventually(t, func() bool {
		return s.Manager.WorkerCount() > cfg.MinWorkers
	}, 3*time.Second, 20*time.Millisecond, "pool should scale beyond min_workers under load")
}

// Shutdown must return in bounded time while baseline load is running.
func TestShutdownCompletesWithoutHanging(t *testing.T) {
	cfg := testConfig()
	s, err := New(cfg, prometheus.NewRegistry(), nil)
	require.NoError(t, err)

	s.Start()
	time.Sleep(100 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		s.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("shutdown did not complete in time")
	}
}
