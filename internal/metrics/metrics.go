// Package metrics holds the Prometheus instrumentation for billing and
// payment polling. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "billdesk"

// Metrics owns a private registry and the collectors registered on it.
type Metrics struct {
	registry *prometheus.Registry

	quotesTotal     *prometheus.CounterVec
	invoicesCreated prometheus.Counter
	paymentsMatched prometheus.Counter
	pollErrors      *prometheus.CounterVec
	pollDuration    prometheus.Histogram
	pendingInvoices prometheus.Gauge
	httpDuration    *prometheus.HistogramVec
	httpRequests    *prometheus.CounterVec
}

// New creates a Metrics instance with Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		quotesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pricing",
				Name:      "quotes_total",
				Help:      "Total price quotes by how the price was derived.",
			},
			[]string{"basis"},
		),
		invoicesCreated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "invoice",
				Name:      "created_total",
				Help:      "Total invoices created.",
			},
		),
		paymentsMatched: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "payment",
				Name:      "matched_total",
				Help:      "Total invoices settled by an on-chain transfer.",
			},
		),
		pollErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "payment",
				Name:      "poll_errors_total",
				Help:      "Total payment poll errors by stage.",
			},
			[]string{"stage"},
		),
		pollDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "payment",
				Name:      "poll_duration_seconds",
				Help:      "Duration of one payment poll cycle.",
				Buckets:   prometheus.DefBuckets,
			},
		),
		pendingInvoices: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "payment",
				Name:      "pending_invoices",
				Help:      "Pending invoices examined in the last poll cycle.",
			},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration by route.",
				Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "route"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total HTTP requests by route and status.",
			},
			[]string{"method", "route", "status"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.quotesTotal,
		m.invoicesCreated,
		m.paymentsMatched,
		m.pollErrors,
		m.pollDuration,
		m.pendingInvoices,
		m.httpDuration,
		m.httpRequests,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveQuote counts a quote derived with the given basis.
func (m *Metrics) ObserveQuote(basis string) {
	if m == nil {
		return
	}
	m.quotesTotal.WithLabelValues(basis).Inc()
}

// ObserveInvoiceCreated counts a newly created invoice.
func (m *Metrics) ObserveInvoiceCreated() {
	if m == nil {
		return
	}
	m.invoicesCreated.Inc()
}

// ObservePaymentMatched counts an invoice settled by the poller.
func (m *Metrics) ObservePaymentMatched() {
	if m == nil {
		return
	}
	m.paymentsMatched.Inc()
}

// ObservePollError counts a poll failure at stage ("list", "fetch", "mark").
func (m *Metrics) ObservePollError(stage string) {
	if m == nil {
		return
	}
	m.pollErrors.WithLabelValues(stage).Inc()
}

// ObservePoll records one finished poll cycle.
func (m *Metrics) ObservePoll(d time.Duration, pending int) {
	if m == nil {
		return
	}
	m.pollDuration.Observe(d.Seconds())
	m.pendingInvoices.Set(float64(pending))
}

// ObserveHTTP records one served request. route is the matched route
// pattern, not the raw path.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}
