// Package metrics provides Prometheus-based metrics recording for commands,
// webhook events and outbound calls.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder holds the bot's collectors. The zero value is not usable; a nil
// *Recorder is, and records nothing.
type Recorder struct {
	registry       *prometheus.Registry
	commandsTotal  *prometheus.CounterVec
	eventsTotal    *prometheus.CounterVec
	remoteCalls    *prometheus.CounterVec
	remoteDuration *prometheus.HistogramVec
	jobsTotal      *prometheus.CounterVec
	queueDepth     prometheus.Gauge
}

// NewRecorder creates a recorder with its own registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Recorder{
		registry: reg,
		commandsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ctrl_commands_total",
				Help: "Slash commands handled, by verb and outcome category",
			},
			[]string{"verb", "outcome"},
		),
		eventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ctrl_github_events_total",
				Help: "GitHub webhook events handled, by event, action and outcome",
			},
			[]string{"event", "action", "outcome"},
		),
		remoteCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ctrl_remote_calls_total",
				Help: "Outbound GitHub calls, by operation and status",
			},
			[]string{"operation", "status"},
		),
		remoteDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ctrl_remote_call_duration_seconds",
				Help:    "Duration of outbound GitHub calls in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		jobsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ctrl_dispatch_jobs_total",
				Help: "Background response jobs, by status",
			},
			[]string{"status"},
		),
		queueDepth: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "ctrl_dispatch_queue_depth",
				Help: "Jobs waiting in the response queue",
			},
		),
	}
}

// Handler exposes the recorder's registry for scraping.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry, mainly for tests.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) ObserveCommand(verb, outcome string) {
	if r == nil {
		return
	}
	r.commandsTotal.WithLabelValues(verb, outcome).Inc()
}

func (r *Recorder) ObserveEvent(event, action, outcome string) {
	if r == nil {
		return
	}
	r.eventsTotal.WithLabelValues(event, action, outcome).Inc()
}

func (r *Recorder) ObserveRemoteCall(operation string, err error, duration time.Duration) {
	if r == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	r.remoteCalls.WithLabelValues(operation, status).Inc()
	r.remoteDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (r *Recorder) ObserveJob(status string) {
	if r == nil {
		return
	}
	r.jobsTotal.WithLabelValues(status).Inc()
}

func (r *Recorder) SetQueueDepth(n int) {
	if r == nil {
		return
	}
	r.queueDepth.Set(float64(n))
}
