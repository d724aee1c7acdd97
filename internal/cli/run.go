package cli

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"loadsim/internal/config"
	"loadsim/internal/httpapi"
	"loadsim/internal/logging"
	"loadsim/internal/sim"
)

// runFlags mirrors every field of config.Config that makes sense as a
// command-line override.
type runFlags struct {
	setpointS       float64
	sampleIntervalS float64
	kp              float64
	kd              float64
	deadbandS       float64
	minWorkers      int
	maxWorkers      int
	fBaseHz         float64
	baseProcMs      float64
	jittered        bool
	fBurstHz        float64
	burstDurationS  float64
	sloBandS        float64
	sloWindowS      float64
	csvPath         string
	listenAddr      string
}

func (a *App) addRunCmd() {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the simulator and serve its HTTP control/observability surface",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSimulator(flags)
		},
	}

	cmd.Flags().Float64Var(&flags.setpointS, "setpoint-s", 0, "initial desired latency in seconds (0 = use default/config)")
	cmd.Flags().Float64Var(&flags.sampleIntervalS, "sample-interval-s", 0, "sampler cadence in seconds")
	cmd.Flags().Float64Var(&flags.kp, "kp", 0, "proportional gain (retained for tuning; unused by the thresholded term)")
	cmd.Flags().Float64Var(&flags.kd, "kd", 0, "derivative gain")
	cmd.Flags().Float64Var(&flags.deadbandS, "deadband-s", 0, "controller deadband in seconds")
	cmd.Flags().IntVar(&flags.minWorkers, "min-workers", 0, "minimum worker count")
	cmd.Flags().IntVar(&flags.maxWorkers, "max-workers", 0, "maximum worker count")
	cmd.Flags().Float64Var(&flags.fBaseHz, "f-base-hz", 0, "baseline arrival rate in Hz")
	cmd.Flags().Float64Var(&flags.baseProcMs, "base-processing-ms", 0, "baseline processing time in ms")
	cmd.Flags().BoolVar(&flags.jittered, "baseline-jittered", false, "use the legacy jittered baseline inter-arrival distribution")
	cmd.Flags().Float64Var(&flags.fBurstHz, "f-burst-hz", 0, "default burst arrival rate in Hz")
	cmd.Flags().Float64Var(&flags.burstDurationS, "burst-duration-s", 0, "default burst duration in seconds")
	cmd.Flags().Float64Var(&flags.sloBandS, "slo-band-s", 0, "SLO tolerance band in seconds")
	cmd.Flags().Float64Var(&flags.sloWindowS, "slo-window-s", 0, "SLO evaluation window in seconds")
	cmd.Flags().StringVar(&flags.csvPath, "workload-csv-path", "", "path to a (wait_ms,processing_ms) CSV workload")
	cmd.Flags().StringVar(&flags.listenAddr, "listen-addr", "", "HTTP listen address")

	a.rootCmd.AddCommand(cmd)
}

func (a *App) addVersionCmd() {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "loadsim %s (commit %s, built %s)\n", a.version, a.commit, a.date)
			return nil
		},
	}
	a.rootCmd.AddCommand(cmd)
}

func overrideFloat(dst *float64, v float64) {
	if v != 0 {
		*dst = v
	}
}

func overrideInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func (a *App) runSimulator(flags runFlags) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	overrideFloat(&cfg.SetpointS, flags.setpointS)
	overrideFloat(&cfg.SampleIntervalS, flags.sampleIntervalS)
	overrideFloat(&cfg.Kp, flags.kp)
	overrideFloat(&cfg.Kd, flags.kd)
	overrideFloat(&cfg.DeadbandS, flags.deadbandS)
	overrideInt(&cfg.MinWorkers, flags.minWorkers)
	overrideInt(&cfg.MaxWorkers, flags.maxWorkers)
	overrideFloat(&cfg.FBaseHz, flags.fBaseHz)
	overrideFloat(&cfg.BaseProcessingMs, flags.baseProcMs)
	if flags.jittered {
		cfg.BaselineJittered = true
	}
	overrideFloat(&cfg.FBurstHz, flags.fBurstHz)
	overrideFloat(&cfg.BurstDurationS, flags.burstDurationS)
	overrideFloat(&cfg.SLOBandS, flags.sloBandS)
	overrideFloat(&cfg.SLOWindowS, flags.sloWindowS)
	if flags.csvPath != "" {
		cfg.WorkloadCSVPath = flags.csvPath
	}
	if flags.listenAddr != "" {
		cfg.ListenAddr = flags.listenAddr
	}
	if a.dev {
		cfg.Dev = true
	}

	log, err := logging.New(cfg.Dev)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	reg := prometheus.NewRegistry()
	simulation, err := sim.New(cfg, reg, log)
	if err != nil {
		return fmt.Errorf("construct simulation: %w", err)
	}
	simulation.Start()

	mux := httpapi.NewMux(simulation, reg, log)
	server := &http.Server{Addr: cfg.ListenAddr, Handler: mux}

	go func() {
		log.Infow("listening", "addr", cfg.ListenAddr, "run_id", simulation.ID)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "err", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Infow("received signal, shutting down", "signal", sig.String())

	simulation.Shutdown()
	return server.Close()
}
