package metrics

import (
	"net/http"

	"rent_payment_service/internal/domain/entities"
	"rent_payment_service/internal/usecase/interfaces"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "payment_service"

// Metrics holds the in-process counters. They reset only on restart.
type Metrics struct {
	registry     *prometheus.Registry
	initiate     prometheus.Counter
	status       prometheus.Counter
	webhook      prometheus.Counter
	timeoutSweep prometheus.Counter
	transitions  *prometheus.CounterVec
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

var _ interfaces.IPaymentMetrics = (*Metrics)(nil)

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		initiate: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "initiate_calls_total", Help: "Payment initiation calls.",
		}),
		status: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "status_calls_total", Help: "Payment status queries.",
		}),
		webhook: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "webhook_calls_total", Help: "Gateway webhook and redirect calls.",
		}),
		timeoutSweep: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "timeout_jobs_run_total", Help: "Timeout sweep runs.",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "status_transitions_total", Help: "Applied terminal transitions.",
		}, []string{"status"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "http_requests_total", Help: "HTTP requests served.",
		}, []string{"method", "route", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "http_request_duration_seconds", Help: "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	reg.MustRegister(
		m.initiate, m.status, m.webhook, m.timeoutSweep, m.transitions,
		m.httpRequests, m.httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) IncInitiateCalls() { m.initiate.Inc() }
func (m *Metrics) IncStatusCalls()   { m.status.Inc() }
func (m *Metrics) IncWebhookCalls()  { m.webhook.Inc() }
func (m *Metrics) IncTimeoutSweeps() { m.timeoutSweep.Inc() }

func (m *Metrics) IncTransitions(status entities.PaymentStatus) {
	m.transitions.WithLabelValues(string(status)).Inc()
}

func (m *Metrics) ObserveHTTP(method, route, code string, seconds float64) {
	m.httpRequests.WithLabelValues(method, route, code).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(seconds)
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
