package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service. It satisfies
// usecase.Observer.
type Metrics struct {
	ChatReplies     *prometheus.CounterVec
	FallbackErrors  prometheus.Counter
	Refunds         *prometheus.CounterVec
	Escalations     *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// NewMetrics registers the instruments with reg. A nil reg uses the default
// Prometheus registry.
func NewMetrics(namespace string, reg *prometheus.Registry) *Metrics {
	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if reg != nil {
		registerer, gatherer = reg, reg
	}
	factory := promauto.With(registerer)

	return &Metrics{
		ChatReplies: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_replies_total",
			Help:      "Chat replies by resolver source.",
		}, []string{"source"}),
		FallbackErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallback_errors_total",
			Help:      "Fallback responder calls that failed.",
		}),
		Refunds: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refunds_total",
			Help:      "Refund requests by outcome.",
		}, []string{"outcome"}),
		Escalations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "escalations_total",
			Help:      "Escalations recorded by origin.",
		}, []string{"origin"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"route"}),
		gatherer: gatherer,
	}
}

func (m *Metrics) ObserveReply(source string) {
	m.ChatReplies.WithLabelValues(source).Inc()
}

func (m *Metrics) ObserveFallbackError() {
	m.FallbackErrors.Inc()
}

func (m *Metrics) ObserveRefund(outcome string) {
	m.Refunds.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveEscalation(origin string) {
	m.Escalations.WithLabelValues(origin).Inc()
}

func (m *Metrics) ObserveRequest(route string, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.RequestDuration.WithLabelValues(route).Observe(d.Seconds())
}

// Handler serves the registry the metrics were created in.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
