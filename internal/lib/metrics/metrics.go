// Package metrics описывает метрики Prometheus сервиса qrpay.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Исходы подтверждения платежа, кроме классов ошибок.
const (
	OutcomeVerified  = "verified"
	OutcomeDuplicate = "duplicate"
	OutcomeTest      = "test"
)

// Metrics набор метрик подтверждения платежей.
type Metrics struct {
	verifications   *prometheus.CounterVec
	providerLatency *prometheus.HistogramVec
}

// New регистрирует метрики в reg. Для nil используется prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		verifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qrpay",
			Name:      "payment_verifications_total",
			Help:      "Number of payment verification requests by outcome.",
		}, []string{"outcome"}),
		providerLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "qrpay",
			Name:      "provider_request_duration_seconds",
			Help:      "Latency of payment provider verification requests.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"status"}),
	}
}

// Nop возвращает метрики, не привязанные ни к одному реестру.
func Nop() *Metrics {
	return New(prometheus.NewRegistry())
}

// ObserveVerification учитывает исход подтверждения.
func (m *Metrics) ObserveVerification(outcome string) {
	m.verifications.WithLabelValues(outcome).Inc()
}

// ObserveProviderRequest учитывает длительность запроса к провайдеру.
// status 0 означает, что ответ не получен.
func (m *Metrics) ObserveProviderRequest(status int, d time.Duration) {
	label := "no_response"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.providerLatency.WithLabelValues(label).Observe(d.Seconds())
}
