// Package metrics exposes dispatch and http metrics to prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/linesmerrill/sos-dispatch-api/models"
)

// Collector records dispatch outcomes and http latency
type Collector struct {
	requests      *prometheus.CounterVec
	transitions   *prometheus.CounterVec
	chains        *prometheus.CounterVec
	noResponder   *prometheus.CounterVec
	notifications *prometheus.CounterVec
	httpLatency   *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// NewCollector registers the collectors on reg. A nil reg uses the default
// registry. Collectors that are already registered are reused.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatch_requests_created_total",
			Help: "Dispatch requests created, by service type and whether they were reassignments",
		}, []string{"service_type", "reassignment"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatch_transitions_total",
			Help: "Dispatch request status transitions",
		}, []string{"service_type", "status"}),
		chains: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatch_chain_outcomes_total",
			Help: "How declined and expired requests were followed up",
		}, []string{"service_type", "outcome"}),
		noResponder: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatch_no_responder_total",
			Help: "Requests rejected because no responder was available",
		}, []string{"service_type"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Emergency contact notifications by result",
		}, []string{"result"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Latency of http requests by route and status code",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "code"}),
	}

	var err error
	if c.requests, err = registerCounter(reg, c.requests); err != nil {
		return nil, err
	}
	if c.transitions, err = registerCounter(reg, c.transitions); err != nil {
		return nil, err
	}
	if c.chains, err = registerCounter(reg, c.chains); err != nil {
		return nil, err
	}
	if c.noResponder, err = registerCounter(reg, c.noResponder); err != nil {
		return nil, err
	}
	if c.notifications, err = registerCounter(reg, c.notifications); err != nil {
		return nil, err
	}
	if err := reg.Register(c.httpLatency); err != nil {
		are, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil, err
		}
		c.httpLatency = are.ExistingCollector.(*prometheus.HistogramVec)
	}

	if g, ok := reg.(prometheus.Gatherer); ok {
		c.gatherer = g
	} else {
		c.gatherer = prometheus.DefaultGatherer
	}
	return c, nil
}

func registerCounter(reg prometheus.Registerer, cv *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(cv); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(*prometheus.CounterVec), nil
		}
		return nil, err
	}
	return cv, nil
}

// RequestCreated counts a new request; hop > 0 marks a reassignment
func (c *Collector) RequestCreated(service models.ServiceType, hop int) {
	c.requests.WithLabelValues(string(service), strconv.FormatBool(hop > 0)).Inc()
}

// RequestTransitioned counts a status change
func (c *Collector) RequestTransitioned(service models.ServiceType, to models.RequestStatus) {
	c.transitions.WithLabelValues(string(service), string(to)).Inc()
}

// ChainResolved counts the follow-up of a declined or expired request
func (c *Collector) ChainResolved(service models.ServiceType, outcome models.ChainOutcome) {
	c.chains.WithLabelValues(string(service), string(outcome)).Inc()
}

// NoResponder counts a create that found nobody
func (c *Collector) NoResponder(service models.ServiceType) {
	c.noResponder.WithLabelValues(string(service)).Inc()
}

// Notified adds the result of an emergency contact fan-out
func (c *Collector) Notified(sent, failed int) {
	c.notifications.WithLabelValues("sent").Add(float64(sent))
	c.notifications.WithLabelValues("failed").Add(float64(failed))
}

// ObserveHTTP records the latency of one http request
func (c *Collector) ObserveHTTP(method, route string, code int, d time.Duration) {
	c.httpLatency.WithLabelValues(method, route, strconv.Itoa(code)).Observe(d.Seconds())
}

// Handler serves the metrics of the registry the collector was built on
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}
