package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the solver metrics. It satisfies scheduler.Recorder.
type Collector struct {
	trials      *prometheus.CounterVec
	days        *prometheus.CounterVec
	runs        *prometheus.CounterVec
	solveTime   prometheus.Histogram
	runDuration prometheus.Histogram

	gatherer prometheus.Gatherer
}

// NewCollector registers the metrics on reg. A nil reg uses a fresh
// registry, so tests and multiple servers in one process do not collide.
func NewCollector(reg *prometheus.Registry) *Collector {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	c := &Collector{
		trials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roster_trials_total",
			Help: "Solve attempts by outcome (optimal, infeasible, error)",
		}, []string{"outcome"}),
		days: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roster_days_total",
			Help: "Days scheduled by result (solved, failed)",
		}, []string{"result"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roster_runs_total",
			Help: "Schedule runs by entry point",
		}, []string{"source"}),
		solveTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "roster_solve_duration_seconds",
			Help:    "Time spent in the MILP backend per trial",
			Buckets: prometheus.DefBuckets,
		}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "roster_run_duration_seconds",
			Help:    "Wall time of a whole schedule run",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
		}),
		gatherer: reg,
	}
	reg.MustRegister(c.trials, c.days, c.runs, c.solveTime, c.runDuration)
	return c
}

// ObserveTrial records one backend solve
func (c *Collector) ObserveTrial(outcome string, took time.Duration) {
	c.trials.WithLabelValues(outcome).Inc()
	c.solveTime.Observe(took.Seconds())
}

// ObserveDay records whether a day needed the unassigned fallback
func (c *Collector) ObserveDay(failed bool) {
	result := "solved"
	if failed {
		result = "failed"
	}
	c.days.WithLabelValues(result).Inc()
}

// ObserveRun records a finished run from the given entry point (api, cli)
func (c *Collector) ObserveRun(source string, took time.Duration) {
	c.runs.WithLabelValues(source).Inc()
	c.runDuration.Observe(took.Seconds())
}

// Handler serves the registry in the Prometheus text format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}
