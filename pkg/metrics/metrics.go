package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonny/askuser-bot/internal/domain/model"
	"github.com/jonny/askuser-bot/internal/domain/port/outbound"
)

const namespace = "askuser"

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	SessionsTotal     *prometheus.CounterVec
	SessionDuration   *prometheus.HistogramVec
	RemindersTotal    prometheus.Counter
	RemindersFinished *prometheus.CounterVec
	RemindersPending  prometheus.Gauge

	gatherer prometheus.Gatherer
}

var _ outbound.MetricsRecorder = (*Metrics)(nil)

// New registers the instruments with reg. A nil reg uses a fresh registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		SessionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Finished interaction sessions by kind and outcome.",
		}, []string{"kind", "outcome"}),
		SessionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Time from posting a request to its terminal outcome.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 900},
		}, []string{"kind"}),
		RemindersTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_scheduled_total",
			Help:      "Reminders scheduled.",
		}),
		RemindersFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_finished_total",
			Help:      "Reminders that left the schedule, by result.",
		}, []string{"result"}),
		RemindersPending: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reminders_pending",
			Help:      "Reminders waiting to fire.",
		}),
		gatherer: reg,
	}
}

func (m *Metrics) SessionFinished(kind model.Kind, outcome model.Outcome, d time.Duration) {
	m.SessionsTotal.WithLabelValues(string(kind), string(outcome)).Inc()
	m.SessionDuration.WithLabelValues(string(kind)).Observe(d.Seconds())
}

func (m *Metrics) ReminderScheduled() {
	m.RemindersTotal.Inc()
}

func (m *Metrics) ReminderFinished(result string) {
	m.RemindersFinished.WithLabelValues(result).Inc()
}

func (m *Metrics) SetPendingReminders(n int) {
	m.RemindersPending.Set(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
