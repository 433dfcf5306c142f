// Package metrics collects and exposes Prometheus metrics for the portal shell.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the set of observations the shell reports.
type Recorder interface {
	RecordNavigation(outcome string)
	RecordLogin(success bool)
	RecordAPIResponse(method string, status int)
	RecordForcedLogout()
	RecordPageLoad(page string, ok bool, duration time.Duration)
	SetActiveSessions(n int)
}

// Collector is the Prometheus implementation of Recorder.
type Collector struct {
	navigations  *prometheus.CounterVec
	logins       *prometheus.CounterVec
	apiResponses *prometheus.CounterVec
	forcedLogout prometheus.Counter
	pageLoads    *prometheus.CounterVec
	pageLoadTime prometheus.Histogram
	sessions     prometheus.Gauge
}

var _ Recorder = (*Collector)(nil)

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		navigations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_navigations_total",
			Help: "Navigation decisions by outcome.",
		}, []string{"outcome"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_logins_total",
			Help: "Login attempts by result.",
		}, []string{"result"}),
		apiResponses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_api_responses_total",
			Help: "Hospital API responses by method and status class.",
		}, []string{"method", "class"}),
		forcedLogout: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portal_forced_logouts_total",
			Help: "Sessions cleared because the API rejected their token.",
		}),
		pageLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_page_loads_total",
			Help: "Lazy page loads by page and result.",
		}, []string{"page", "result"}),
		pageLoadTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "portal_page_load_seconds",
			Help:    "Time spent loading page code.",
			Buckets: prometheus.DefBuckets,
		}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "portal_active_session_stores",
			Help: "Session stores held in memory.",
		}),
	}

	reg.MustRegister(
		c.navigations,
		c.logins,
		c.apiResponses,
		c.forcedLogout,
		c.pageLoads,
		c.pageLoadTime,
		c.sessions,
	)

	return c
}

// RecordNavigation counts one navigation decision.
func (c *Collector) RecordNavigation(outcome string) {
	c.navigations.WithLabelValues(outcome).Inc()
}

// RecordLogin counts a login attempt.
func (c *Collector) RecordLogin(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	c.logins.WithLabelValues(result).Inc()
}

// RecordAPIResponse counts an API response by status class (2xx, 4xx, ...).
func (c *Collector) RecordAPIResponse(method string, status int) {
	c.apiResponses.WithLabelValues(method, strconv.Itoa(status/100)+"xx").Inc()
}

// RecordForcedLogout counts a session cleared by the 401 interceptor.
func (c *Collector) RecordForcedLogout() {
	c.forcedLogout.Inc()
}

// RecordPageLoad counts a lazy page load.
func (c *Collector) RecordPageLoad(page string, ok bool, duration time.Duration) {
	result := "error"
	if ok {
		result = "ok"
	}
	c.pageLoads.WithLabelValues(page, result).Inc()
	c.pageLoadTime.Observe(duration.Seconds())
}

// SetActiveSessions reports the number of session stores in memory.
func (c *Collector) SetActiveSessions(n int) {
	c.sessions.Set(float64(n))
}

// Handler returns the HTTP handler for Prometheus scrapes.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards every observation.
type Nop struct{}

var _ Recorder = Nop{}

func (Nop) RecordNavigation(string) {}
func (Nop) RecordLogin(bool) {}
func (Nop) RecordAPIResponse(string, int) {}
func (Nop) RecordForcedLogout() {}
func (Nop) RecordPageLoad(string, bool, time.Duration) {}
func (Nop) SetActiveSessions(int) {}
