package physics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics - Prometheus-метрики резолвера.
//
// Метрики:
// * <ns>_step_duration_seconds - histogram
// * <ns>_steps_total - counter
// * <ns>_colliders - gauge (сущности с Collider на последнем шаге)
// * <ns>_collisions_total{kind="active|next"} - counter
type Metrics struct {
	stepDuration prometheus.Histogram
	steps        prometheus.Counter
	colliders    prometheus.Gauge
	collisions   *prometheus.CounterVec
}

// NewMetrics создаёт метрики и регистрирует их в reg.
// reg == nil - регистрация в дефолтном регистре.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		stepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Длительность шага разрешения коллизий.",
			Buckets:   []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05},
		}),
		steps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steps_total",
			Help:      "Общее число выполненных шагов.",
		}),
		colliders: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "colliders",
			Help:      "Количество сущностей с коллайдером на последнем шаге.",
		}),
		collisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collisions_total",
			Help:      "Обнаруженные столкновения по виду (active/next).",
		}, []string{"kind"}),
	}

	reg.MustRegister(m.stepDuration, m.steps, m.colliders, m.collisions)
	return m
}

func (m *Metrics) observe(stats StepStats) {
	if m == nil {
		return
	}
	m.stepDuration.Observe(stats.Duration.Seconds())
	m.steps.Inc()
	m.colliders.Set(float64(stats.Colliders))
	m.collisions.WithLabelValues("active").Add(float64(stats.Active))
	m.collisions.WithLabelValues("next").Add(float64(stats.Next))
}
