// Package metrics содержит Prometheus-метрики сервиса: счётчик переходов
// жизненного цикла подписок и гистограмму длительности HTTP-запросов.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "subscription_manager"

// Result значения метки result для переходов.
const (
	ResultOK       = "ok"
	ResultRejected = "rejected"
	ResultError    = "error"
)

// Metrics объединяет метрики сервиса.
type Metrics struct {
	transitions     *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New создаёт метрики и регистрирует их в reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscription_transitions_total",
			Help:      "Number of subscription lifecycle operations by operation and result.",
		}, []string{"operation", "result"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern, method and status code.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method", "code"}),
	}
	reg.MustRegister(m.transitions, m.requestDuration)
	return m
}

// ObserveTransition учитывает результат операции жизненного цикла.
func (m *Metrics) ObserveTransition(operation, result string) {
	m.transitions.WithLabelValues(operation, result).Inc()
}

// ObserveRequest учитывает длительность HTTP-запроса в секундах.
func (m *Metrics) ObserveRequest(route, method, code string, seconds float64) {
	m.requestDuration.WithLabelValues(route, method, code).Observe(seconds)
}
