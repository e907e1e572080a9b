package metric

import (
	"crypto/tls"
	"errors"
	"net/http"
	"net/http/httptrace"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cfgclient"

// Handshake results.
const (
	HandshakeOK           = "ok"
	HandshakeVerifyFailed = "verify_failed"
	HandshakeFailed       = "failed"
)

// Registry holds all application metrics.
type Registry struct {
	registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	InFlight        prometheus.Gauge
	TLSHandshakes   *prometheus.CounterVec
	FetchAttempts   *prometheus.CounterVec
}

// NewRegistry creates a registry with the client metrics and the Go and
// process collectors registered.
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http_client",
			Name:      "requests_total",
			Help:      "Requests sent to the config server, by status code and method.",
		}, []string{"code", "method"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http_client",
			Name:      "request_duration_seconds",
			Help:      "Latency of requests to the config server.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"code", "method"}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http_client",
			Name:      "in_flight_requests",
			Help:      "Requests currently in flight.",
		}),
		TLSHandshakes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tls",
			Name:      "handshakes_total",
			Help:      "TLS handshakes with the config server, by result.",
		}, []string{"result"}),
		FetchAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "locator",
			Name:      "fetch_attempts_total",
			Help:      "Attempts to fetch remote configuration, by outcome.",
		}, []string{"outcome"}),
	}

	r.registry.MustRegister(
		r.RequestsTotal,
		r.RequestDuration,
		r.InFlight,
		r.TLSHandshakes,
		r.FetchAttempts,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return r
}

// Register adds further collectors, e.g. a TLSCollector.
func (r *Registry) Register(c prometheus.Collector) error {
	return r.registry.Register(c)
}

// Gatherer exposes the registry for tests and custom exposition.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// InstrumentRoundTripper wraps next with request, latency, in-flight and
// TLS handshake metrics.
func (r *Registry) InstrumentRoundTripper(next http.RoundTripper) http.RoundTripper {
	rt := promhttp.InstrumentRoundTripperInFlight(r.InFlight,
		promhttp.InstrumentRoundTripperCounter(r.RequestsTotal,
			promhttp.InstrumentRoundTripperDuration(r.RequestDuration, next),
		),
	)
	return &handshakeTracer{next: rt, handshakes: r.TLSHandshakes}
}

// ObserveFetch counts one fetch attempt. It implements locator.FetchObserver;
// outcome is one of the locator.Outcome values.
func (r *Registry) ObserveFetch(outcome string) {
	r.FetchAttempts.WithLabelValues(outcome).Inc()
}

// handshakeTracer counts TLS handshakes via httptrace, so reused
// connections are not counted again.
type handshakeTracer struct {
	next       http.RoundTripper
	handshakes *prometheus.CounterVec
}

func (h *handshakeTracer) RoundTrip(req *http.Request) (*http.Response, error) {
	trace := &httptrace.ClientTrace{
		TLSHandshakeDone: func(_ tls.ConnectionState, err error) {
			h.handshakes.WithLabelValues(HandshakeResult(err)).Inc()
		},
	}
	return h.next.RoundTrip(req.WithContext(httptrace.WithClientTrace(req.Context(), trace)))
}

// HandshakeResult classifies a handshake error.
func HandshakeResult(err error) string {
	if err == nil {
		return HandshakeOK
	}
	var verifyErr *tls.CertificateVerificationError
	if errors.As(err, &verifyErr) {
		return HandshakeVerifyFailed
	}
	return HandshakeFailed
}
