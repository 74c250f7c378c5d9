package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Reaper holds the reconciler's Prometheus collectors. A nil *Reaper records nothing.
type Reaper struct {
	passes        *prometheus.CounterVec
	passFailures  prometheus.Counter
	passDuration  prometheus.Histogram
	lastPass      prometheus.Gauge
	verdicts      *prometheus.CounterVec
	terminations  *prometheus.CounterVec
	danglingFound prometheus.Gauge
	scanned       prometheus.Gauge

	gatherer prometheus.Gatherer
}

// NewReaper creates the collectors and registers them with reg. A nil reg
// uses a fresh private registry.
func NewReaper(reg *prometheus.Registry) *Reaper {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	r := &Reaper{
		passes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "execreaper_passes_total",
				Help: "Reconciliation passes by result",
			},
			[]string{"result"}, // "ok", "failed"
		),
		passFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "execreaper_pass_failures_total",
				Help: "Reconciliation passes aborted by a registry or backend read error",
			},
		),
		passDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "execreaper_pass_duration_seconds",
				Help:    "Wall time of a reconciliation pass",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
			},
		),
		lastPass: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "execreaper_last_pass_timestamp_seconds",
				Help: "Unix time the last successful pass finished",
			},
		),
		verdicts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "execreaper_verdicts_total",
				Help: "Classifier verdicts by action and reason",
			},
			[]string{"action", "reason"},
		),
		terminations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "execreaper_terminations_total",
				Help: "Terminate requests sent to the execution backend by result",
			},
			[]string{"result"}, // "ok", "failed"
		),
		danglingFound: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "execreaper_dangling_executions",
				Help: "Dangling executions found by the last pass",
			},
		),
		scanned: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "execreaper_scanned_executions",
				Help: "Executions read by the last pass",
			},
		),
		gatherer: reg,
	}

	reg.MustRegister(
		r.passes,
		r.passFailures,
		r.passDuration,
		r.lastPass,
		r.verdicts,
		r.terminations,
		r.danglingFound,
		r.scanned,
	)
	return r
}

// ObservePass records a finished pass. A non-nil err marks it failed.
func (r *Reaper) ObservePass(duration time.Duration, err error) {
	if r == nil {
		return
	}
	r.passDuration.Observe(duration.Seconds())
	if err != nil {
		r.passes.WithLabelValues("failed").Inc()
		r.passFailures.Inc()
		return
	}
	r.passes.WithLabelValues("ok").Inc()
	r.lastPass.SetToCurrentTime()
}

// RecordVerdict counts one classifier verdict
func (r *Reaper) RecordVerdict(action, reason string) {
	if r == nil {
		return
	}
	r.verdicts.WithLabelValues(action, reason).Inc()
}

// RecordTermination counts one terminate request
func (r *Reaper) RecordTermination(err error) {
	if r == nil {
		return
	}
	if err != nil {
		r.terminations.WithLabelValues("failed").Inc()
		return
	}
	r.terminations.WithLabelValues("ok").Inc()
}

// SetPassTotals publishes the size of the last pass
func (r *Reaper) SetPassTotals(scanned, dangling int) {
	if r == nil {
		return
	}
	r.scanned.Set(float64(scanned))
	r.danglingFound.Set(float64(dangling))
}

// Gatherer returns the registry the collectors are registered with
func (r *Reaper) Gatherer() prometheus.Gatherer {
	return r.gatherer
}

// Handler serves the registry in the Prometheus exposition format
func (r *Reaper) Handler() http.Handler {
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}
