package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "activity_sentry"

// Metrics agent 的 Prometheus 计数器，nil *Metrics 可以直接使用，不记录任何数据
type Metrics struct {
	EventsTotal           *prometheus.CounterVec
	AlertsTotal           *prometheus.CounterVec
	StoreWriteErrorsTotal *prometheus.CounterVec
	CallbackFailuresTotal *prometheus.CounterVec
}

// NewMetrics 在 reg 上注册全部计数器
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		EventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Total number of captured events by kind",
		}, []string{"kind"}),
		AlertsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_total",
			Help:      "Total number of alerts raised by type",
		}, []string{"type"}),
		StoreWriteErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_write_errors_total",
			Help:      "Total number of records dropped because the write failed",
		}, []string{"table"}),
		CallbackFailuresTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "callback_failures_total",
			Help:      "Total number of producer callbacks that returned an error or panicked",
		}, []string{"producer"}),
	}
}

func (m *Metrics) IncrementEvents(kind string) {
	if m == nil {
		return
	}
	m.EventsTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncrementAlerts(alertType string) {
	if m == nil {
		return
	}
	m.AlertsTotal.WithLabelValues(alertType).Inc()
}

// IncrementStoreWriteErrors 写库失败、记录被丢弃
func (m *Metrics) IncrementStoreWriteErrors(table string) {
	if m == nil {
		return
	}
	m.StoreWriteErrorsTotal.WithLabelValues(table).Inc()
}

// IncrementCallbackFailures 回调返回错误或 panic
func (m *Metrics) IncrementCallbackFailures(producer string) {
	if m == nil {
		return
	}
	m.CallbackFailuresTotal.WithLabelValues(producer).Inc()
}

// Handler /metrics 端点
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
