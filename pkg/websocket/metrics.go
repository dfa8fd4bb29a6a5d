package websocket

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics - метрики хаба. Все методы безопасны для nil.
type Metrics struct {
	viewers          *prometheus.GaugeVec
	broadcasts       *prometheus.CounterVec
	deliveryFailures *prometheus.CounterVec
}

// NewMetrics регистрирует метрики в reg. При reg == nil метрики работают без регистрации.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		viewers: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "turnos",
			Subsystem: "hub",
			Name:      "viewers",
			Help:      "Количество подключённых зрителей по филиалам.",
		}, []string{"branch"}),
		broadcasts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "turnos",
			Subsystem: "hub",
			Name:      "broadcasts_total",
			Help:      "Количество рассылок снимка очереди.",
		}, []string{"branch"}),
		deliveryFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "turnos",
			Subsystem: "hub",
			Name:      "delivery_failures_total",
			Help:      "Неудачные доставки, после которых соединение удалено.",
		}, []string{"branch"}),
	}
}

func branchLabel(branchID int64) string {
	return strconv.FormatInt(branchID, 10)
}

func (m *Metrics) setViewers(branchID int64, n int) {
	if m == nil {
		return
	}
	if n == 0 {
		m.viewers.DeleteLabelValues(branchLabel(branchID))
		return
	}
	m.viewers.WithLabelValues(branchLabel(branchID)).Set(float64(n))
}

func (m *Metrics) incBroadcast(branchID int64) {
	if m == nil {
		return
	}
	m.broadcasts.WithLabelValues(branchLabel(branchID)).Inc()
}

func (m *Metrics) addFailures(branchID int64, n int) {
	if m == nil || n == 0 {
		return
	}
	m.deliveryFailures.WithLabelValues(branchLabel(branchID)).Add(float64(n))
}
