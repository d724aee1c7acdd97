// Package sim wires the Worker/Manager/Collector/Sampler/Controller/Client
// components into one runnable Simulation, and owns the shutdown order:
// stop the client first (no more arrivals), then the sampler (no more
// control signals), then the manager (drain and stop workers).
package sim

import (
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"loadsim/internal/client"
	"loadsim/internal/collector"
	"loadsim/internal/config"
	"loadsim/internal/controller"
	"loadsim/internal/manager"
	"loadsim/internal/sampler"
)

// Simulation holds every component of one closed-loop run.
type Simulation struct {
	ID  string
	Cfg config.Config

	SimStart time.Time

	Manager    *manager.Manager
	Collector  *collector.Collector
	Sampler    *sampler.Sampler
	Controller *controller.Controller
	Client     *client.Client
	CSVSource  *client.CSVSource

	log *zap.SugaredLogger
}

// New validates cfg, builds every component and seeds the worker pool to
// MinWorkers. The manager's dispatcher and the seeded workers are already
// running when New returns; the sampler and the workload generators start
// only on Start.
func New(cfg config.Config, reg prometheus.Registerer, log *zap.SugaredLogger) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	simStart := time.Now()

	metrics := collector.NewMetricsSink(reg)
	coll := collector.New(simStart, metrics)

	mgr := manager.New(cfg.MinWorkers, cfg.MaxWorkers, simStart, coll, log)
	for i := 0; i < cfg.MinWorkers; i++ {
		mgr.CreateWorker()
	}

	ctl := controller.New(cfg.Kp, cfg.Kd, cfg.DeadbandS, mgr, log)

	interval := time.Duration(cfg.SampleIntervalS * float64(time.Second))
	smp := sampler.New(mgr, ctl, coll, simStart, cfg.SetpointS, interval, log)

	variant := client.BaselineFixed
	if cfg.BaselineJittered {
		variant = client.BaselineJittered
	}
	cl := client.New(mgr, client.Config{
		FBaseHz:         cfg.FBaseHz,
		BaseProcessingS: cfg.BaseProcessingMs / 1000,
		Variant:         variant,
	}, log)

	var csvSrc *client.CSVSource
	if cfg.WorkloadCSVPath != "" {
		csvSrc = client.NewCSVSource(mgr, cfg.WorkloadCSVPath, log)
	}

	if log != nil {
		log.Infow("simulation constructed", "run_id", id, "min_workers", cfg.MinWorkers, "max_workers", cfg.MaxWorkers)
	}

	return &Simulation{
		ID:         id,
		Cfg:        cfg,
		SimStart:   simStart,
		Manager:    mgr,
		Collector:  coll,
		Sampler:    smp,
		Controller: ctl,
		Client:     cl,
		CSVSource:  csvSrc,
		log:        log,
	}, nil
}

// Start boots the Sampler and the workload generator(s).
func (s *Simulation) Start() {
	s.Sampler.Start()
	s.Client.Start(s.SimStart)
	if s.CSVSource != nil {
		s.CSVSource.Start(s.SimStart)
	}
	if s.log != nil {
		s.log.Infow("simulation started", "run_id", s.ID)
	}
}

// Shutdown stops tasks in order: client first (no more arrivals), then
// the sampler (no more control signals), then the manager (drain and
// stop workers).
func (s *Simulation) Shutdown() {
	s.Client.Stop()
	if s.CSVSource != nil {
		s.CSVSource.Stop()
	}
	s.Sampler.Stop()
	s.Manager.Shutdown()
	if s.log != nil {
		s.log.Infow("simulation stopped", "run_id", s.ID)
	}
}
