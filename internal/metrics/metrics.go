// Package metrics records per-run package metrics in a private Prometheus
// registry and writes them in textfile-collector format.
package metrics

import (
	"monorun/internal/output"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Recorder struct {
	registry *prometheus.Registry

	visits      *prometheus.CounterVec
	duration    prometheus.Histogram
	inFlight    prometheus.Gauge
	runDuration prometheus.Gauge
	exitCode    prometheus.Gauge
}

func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		visits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "monorun_visits_total",
			Help: "Packages visited, labelled by outcome status.",
		}, []string{"status"}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "monorun_visit_duration_seconds",
			Help:    "Wall time of each package command.",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		}),
		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "monorun_visits_in_flight",
			Help: "Packages currently running.",
		}),
		runDuration: factory.NewGauge(prometheus.GaugeOpts{
			Name: "monorun_run_duration_seconds",
			Help: "Wall time of the whole run.",
		}),
		exitCode: factory.NewGauge(prometheus.GaugeOpts{
			Name: "monorun_run_exit_code",
			Help: "Exit code of the run.",
		}),
	}
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) PackageStarted(string) {
	r.inFlight.Inc()
}

func (r *Recorder) PackageFinished(res output.Result) {
	r.inFlight.Dec()
	r.visits.WithLabelValues(string(res.Status)).Inc()
	if res.Status != output.StatusSkipped {
		r.duration.Observe((time.Duration(res.Duration) * time.Millisecond).Seconds())
	}
}

// RunFinished records the run-level gauges.
func (r *Recorder) RunFinished(elapsed time.Duration, exitCode int) {
	r.runDuration.Set(elapsed.Seconds())
	r.exitCode.Set(float64(exitCode))
}

// WriteFile writes the registry to path in Prometheus text format.
func (r *Recorder) WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
