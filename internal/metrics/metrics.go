package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics captures the trust-boundary counters: proxied requests per service
// and gate rejections per reason.
type Metrics interface {
	ObserveProxyRequest(service, status string, durationSeconds float64)
	IncAdmissionRejected(reason string)
	IncRateLimited(scope string)
}

// Noop implements Metrics without emitting anything.
type Noop struct{}

func (Noop) ObserveProxyRequest(string, string, float64) {}
func (Noop) IncAdmissionRejected(string)                 {}
func (Noop) IncRateLimited(string)                       {}

// Prom implements Metrics backed by Prometheus collectors.
type Prom struct {
	proxyRequests     *prometheus.HistogramVec
	admissionRejected *prometheus.CounterVec
	rateLimited       *prometheus.CounterVec
	once              sync.Once
}

func NewProm(namespace string) *Prom {
	p := &Prom{
		proxyRequests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "proxy_request_duration_seconds",
			Help:      "Proxied request latency by service and status",
			Buckets:   prometheus.DefBuckets,
		}, []string{"service", "status"}),
		admissionRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admission_rejected_total",
			Help:      "Ingress gate rejections by reason",
		}, []string{"reason"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter per scope",
		}, []string{"scope"}),
	}
	p.register()
	return p
}

func (p *Prom) register() {
	p.once.Do(func() {
		prometheus.MustRegister(p.proxyRequests, p.admissionRejected, p.rateLimited)
	})
}

func (p *Prom) ObserveProxyRequest(service, status string, durationSeconds float64) {
	p.proxyRequests.WithLabelValues(service, status).Observe(durationSeconds)
}

func (p *Prom) IncAdmissionRejected(reason string) {
	p.admissionRejected.WithLabelValues(reason).Inc()
}

func (p *Prom) IncRateLimited(scope string) {
	p.rateLimited.WithLabelValues(scope).Inc()
}

// Handler exposes the default registry for a /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
