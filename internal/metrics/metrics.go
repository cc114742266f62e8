package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	processStarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "orchestrator",
			Subsystem: "process",
			Name:      "starts_total",
			Help:      "Number of successful process starts.",
		}, []string{"name"},
	)
	processRestarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "orchestrator",
			Subsystem: "process",
			Name:      "restarts_total",
			Help:      "Number of restarts following any exit (crash or recycle) while no shutdown was requested.",
		}, []string{"name"},
	)
	processStops = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "orchestrator",
			Subsystem: "process",
			Name:      "stops_total",
			Help:      "Number of observed process exits, whatever their cause.",
		}, []string{"name"},
	)
	processRecycles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "orchestrator",
			Subsystem: "process",
			Name:      "recycles_total",
			Help:      "Number of threshold-triggered recycles.",
		}, []string{"name", "reason"},
	)
	processSpawnFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "orchestrator",
			Subsystem: "process",
			Name:      "spawn_failures_total",
			Help:      "Number of failed spawn attempts.",
		}, []string{"name"},
	)
	liveProcessCount = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "orchestrator",
			Name:      "live_process_count",
			Help:      "Current number of live supervised processes.",
		},
	)
	processMemoryMB = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "orchestrator",
			Subsystem: "process",
			Name:      "memory_mb",
			Help:      "Most recently observed resident memory in megabytes.",
		}, []string{"name"},
	)
	processUptimeSeconds = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "orchestrator",
			Subsystem: "process",
			Name:      "uptime_seconds",
			Help:      "Most recently observed process uptime in seconds.",
		}, []string{"name"},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{
		processStarts, processRestarts, processStops, processRecycles,
		processSpawnFailures, liveProcessCount, processMemoryMB, processUptimeSeconds,
	}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler returns an http.Handler that serves Prometheus metrics for the DefaultGatherer.
// The caller is responsible for starting an HTTP server and wiring the route.
func Handler() http.Handler { return promhttp.Handler() }

// Recorder implements engine.Recorder. Every method no-ops until Register
// has succeeded, so an Engine can hold one unconditionally without the
// caller needing to decide whether metrics are enabled.
type Recorder struct{}

func (Recorder) IncStart(name string) {
	if regOK.Load() {
		processStarts.WithLabelValues(name).Inc()
	}
}

func (Recorder) IncStop(name string) {
	if regOK.Load() {
		processStops.WithLabelValues(name).Inc()
	}
}

func (Recorder) IncRecycle(name, reason string) {
	if regOK.Load() {
		processRecycles.WithLabelValues(name, reason).Inc()
	}
}

func (Recorder) IncRestart(name string) {
	if regOK.Load() {
		processRestarts.WithLabelValues(name).Inc()
	}
}

func (Recorder) IncSpawnFailure(name string) {
	if regOK.Load() {
		processSpawnFailures.WithLabelValues(name).Inc()
	}
}

func (Recorder) SetLiveCount(n int) {
	if regOK.Load() {
		liveProcessCount.Set(float64(n))
	}
}

func (Recorder) ObserveMemoryMB(name string, v float64) {
	if regOK.Load() {
		processMemoryMB.WithLabelValues(name).Set(v)
	}
}

func (Recorder) ObserveUptimeSeconds(name string, v float64) {
	if regOK.Load() {
		processUptimeSeconds.WithLabelValues(name).Set(v)
	}
}
