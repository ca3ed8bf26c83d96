package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Resolution outcomes used as the "result" label.
const (
	ResultOK       = "ok"
	ResultNotFound = "not_found"
	ResultError    = "error"
)

// Metrics holds Prometheus counters and gauges for the audio HLS proxy.
type Metrics struct {
	registry                *prometheus.Registry
	requestsTotal           prometheus.Counter
	errorsTotal             prometheus.Counter
	resolutionsTotal        *prometheus.CounterVec
	manifestsRewrittenTotal prometheus.Counter
	relayBytesTotal         prometheus.Counter
	activeRelays            prometheus.Gauge
}

// New creates and registers Prometheus metrics on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audiohls_requests_total",
		Help: "Total number of HTTP requests received",
	})
	errorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audiohls_errors_total",
		Help: "Total number of HTTP responses with error status (4xx or 5xx)",
	})
	resolutionsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "audiohls_resolutions_total",
		Help: "Video id resolutions by outcome",
	}, []string{"result"})
	manifestsRewrittenTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audiohls_manifests_rewritten_total",
		Help: "Total number of manifests rewritten and served",
	})
	relayBytesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audiohls_relay_bytes_total",
		Help: "Total number of segment bytes relayed to clients",
	})
	activeRelays := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "audiohls_active_relays",
		Help: "Number of segment relays currently streaming",
	})

	registry.MustRegister(
		requestsTotal,
		errorsTotal,
		resolutionsTotal,
		manifestsRewrittenTotal,
		relayBytesTotal,
		activeRelays,
	)

	return &Metrics{
		registry:                registry,
		requestsTotal:           requestsTotal,
		errorsTotal:             errorsTotal,
		resolutionsTotal:        resolutionsTotal,
		manifestsRewrittenTotal: manifestsRewrittenTotal,
		relayBytesTotal:         relayBytesTotal,
		activeRelays:            activeRelays,
	}
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// IncResolutions counts one resolution with the given result label.
func (m *Metrics) IncResolutions(result string) {
	m.resolutionsTotal.WithLabelValues(result).Inc()
}

// IncManifestsRewritten increments the rewritten manifests counter.
func (m *Metrics) IncManifestsRewritten() {
	m.manifestsRewrittenTotal.Inc()
}

// ResolutionsCounter returns the resolutions counter for one result label.
func (m *Metrics) ResolutionsCounter(result string) prometheus.Counter {
	return m.resolutionsTotal.WithLabelValues(result)
}

// AddRelayBytes adds n to the relayed bytes counter.
func (m *Metrics) AddRelayBytes(n int64) {
	m.relayBytesTotal.Add(float64(n))
}

// RelayStarted marks a segment relay as in flight. The returned func marks
// it finished.
func (m *Metrics) RelayStarted() func() {
	m.activeRelays.Inc()
	return m.activeRelays.Dec
}

// Handler returns an http.Handler that serves Prometheus metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
