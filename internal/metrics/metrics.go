// Package metrics exposes Prometheus counters for the bot. A nil *Collector
// is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fintrack/internal/core"
)

// Collector holds all Prometheus metrics for the application
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Dialog metrics
	MessagesHandled *prometheus.CounterVec
	FlowsCompleted  *prometheus.CounterVec
	Reprompts       *prometheus.CounterVec
	SessionsEvicted *prometheus.CounterVec

	// Ledger metrics
	LedgerMutations     *prometheus.CounterVec
	PersistenceFailures prometheus.Counter

	// Sheets mirror metrics
	SheetsSync *prometheus.CounterVec
}

// NewCollector creates a collector with its own registry, so tests can
// create as many as they like.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		MessagesHandled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_handled_total",
			Help:      "Total number of chat messages handled",
		}, []string{"transport"}),
		FlowsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flows_completed_total",
			Help:      "Total number of dialog flows that reached a terminal state",
		}, []string{"flow"}),
		Reprompts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_reprompts_total",
			Help:      "Total number of rejected inputs that re-prompted the user",
		}, []string{"state"}),
		SessionsEvicted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_evicted_total",
			Help:      "Total number of dialog sessions dropped before the flow ended",
		}, []string{"reason"}),
		LedgerMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_mutations_total",
			Help:      "Total number of committed ledger mutations",
		}, []string{"kind", "operation"}),
		PersistenceFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persistence_failures_total",
			Help:      "Total number of failed dataset saves",
		}),
		SheetsSync: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sheets_sync_total",
			Help:      "Total number of ledger events mirrored to Google Sheets",
		}, []string{"event", "status"}),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.MessagesHandled,
		c.FlowsCompleted,
		c.Reprompts,
		c.SessionsEvicted,
		c.LedgerMutations,
		c.PersistenceFailures,
		c.SheetsSync,
		collectors.NewGoCollector(),
	)
	return c
}

// Registry returns the Prometheus registry for this collector
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) ObserveHTTP(method, route string, status int, d time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (c *Collector) MessageHandled(transport string) {
	if c == nil {
		return
	}
	c.MessagesHandled.WithLabelValues(transport).Inc()
}

func (c *Collector) FlowCompleted(flow string) {
	if c == nil {
		return
	}
	c.FlowsCompleted.WithLabelValues(flow).Inc()
}

func (c *Collector) Reprompt(state string) {
	if c == nil {
		return
	}
	c.Reprompts.WithLabelValues(state).Inc()
}

// SessionEvicted implements dialog.SessionObserver.
func (c *Collector) SessionEvicted(reason string) {
	if c == nil {
		return
	}
	c.SessionsEvicted.WithLabelValues(reason).Inc()
}

// LedgerMutation implements ledger.Recorder.
func (c *Collector) LedgerMutation(kind core.Kind, op string) {
	if c == nil {
		return
	}
	c.LedgerMutations.WithLabelValues(kind.String(), op).Inc()
}

// PersistenceFailure implements ledger.Recorder.
func (c *Collector) PersistenceFailure() {
	if c == nil {
		return
	}
	c.PersistenceFailures.Inc()
}

func (c *Collector) SheetsSynced(event string, ok bool) {
	if c == nil {
		return
	}
	status := "ok"
	if !ok {
		status = "error"
	}
	c.SheetsSync.WithLabelValues(event, status).Inc()
}
