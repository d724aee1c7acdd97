// Package httpapi is the simulator's visualiser-facing HTTP surface: a
// pull side (series/SLO/status/metrics) and a push side
// (setpoint/interval/max-workers/burst).
package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"loadsim/internal/sim"
)

// NewMux builds the HTTP handler tree for one Simulation.
func NewMux(s *sim.Simulation, reg *prometheus.Registry, log *zap.SugaredLogger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		handleStatus(w, s)
	})

	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	mux.HandleFunc("/series", func(w http.ResponseWriter, r *http.Request) {
		handleSeries(w, s)
	})

	mux.HandleFunc("/slo", func(w http.ResponseWriter, r *http.Request) {
		handleSLO(w, r, s)
	})

	mux.HandleFunc("/setpoint", func(w http.ResponseWriter, r *http.Request) {
		handleSetpoint(w, r, s, log)
	})

	mux.HandleFunc("/interval", func(w http.ResponseWriter, r *http.Request) {
		handleInterval(w, r, s, log)
	})

	mux.HandleFunc("/max-workers", func(w http.ResponseWriter, r *http.Request) {
		handleMaxWorkers(w, r, s, log)
	})

	mux.HandleFunc("/burst", func(w http.ResponseWriter, r *http.Request) {
		handleBurst(w, r, s, log)
	})

	return mux
}

func handleStatus(w http.ResponseWriter, s *sim.Simulation) {
	workers := s.Manager.Workers()
	status := map[string]interface{}{
		"run_id":       s.ID,
		"worker_count": len(workers),
		"min_workers":  s.Manager.MinWorkers(),
		"max_workers":  s.Manager.MaxWorkers(),
		"setpoint_s":   s.Sampler.Setpoint(),
		"burst_active": s.Client.BurstActive(),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}

func handleSeries(w http.ResponseWriter, s *sim.Simulation) {
	samples, completions := s.Collector.Snapshot()
	body := map[string]interface{}{
		"samples":     samples,
		"completions": completions,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(body)
}

func handleSLO(w http.ResponseWriter, r *http.Request, s *sim.Simulation) {
	q := r.URL.Query()
	windowS := parseFloatOr(q.Get("window_s"), s.Cfg.SLOWindowS)
	setpointS := parseFloatOr(q.Get("setpoint_s"), s.Sampler.Setpoint())
	bandS := parseFloatOr(q.Get("band_s"), s.Cfg.SLOBandS)

	pct := s.Collector.SLOCompliance(windowS, setpointS, bandS)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]float64{"compliance_percent": pct})
}

func parseFloatOr(s string, fallback float64) float64 {
	if s == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fallback
	}
	return v
}

type valueRequest struct {
	ValueS float64 `json:"value_s"`
}

func handleSetpoint(w http.ResponseWriter, r *http.Request, s *sim.Simulation, log *zap.SugaredLogger) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body valueRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		if log != nil {
			log.Warnw("rejected setpoint request body", "error", err)
		}
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	s.Sampler.SetSetpoint(body.ValueS)
	w.WriteHeader(http.StatusNoContent)
}

func handleInterval(w http.ResponseWriter, r *http.Request, s *sim.Simulation, log *zap.SugaredLogger) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body valueRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		if log != nil {
			log.Warnw("rejected interval request body", "error", err)
		}
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	s.Sampler.SetInterval(time.Duration(body.ValueS * float64(time.Second)))
	w.WriteHeader(http.StatusNoContent)
}

type maxWorkersRequest struct {
	Value int `json:"value"`
}

func handleMaxWorkers(w http.ResponseWriter, r *http.Request, s *sim.Simulation, log *zap.SugaredLogger) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body maxWorkersRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		if log != nil {
			log.Warnw("rejected max_workers request body", "error", err)
		}
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	s.Manager.SetMaxWorkers(body.Value)
	w.WriteHeader(http.StatusNoContent)
}

type burstRequest struct {
	DurationS float64 `json:"duration_s"`
	FreqHz    float64 `json:"freq_hz"`
}

func handleBurst(w http.ResponseWriter, r *http.Request, s *sim.Simulation, log *zap.SugaredLogger) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body burstRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		if log != nil {
			log.Warnw("rejected burst request body", "error", err)
		}
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	durationS := body.DurationS
	if durationS <= 0 {
		durationS = s.Cfg.BurstDurationS
	}
	freqHz := body.FreqHz
	if freqHz <= 0 {
		freqHz = s.Cfg.FBurstHz
	}
	s.Client.TriggerBurst(time.Duration(durationS*float64(time.Second)), freqHz)
	w.WriteHeader(http.StatusAccepted)
}
