package services

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the notification pipeline's Prometheus collectors.
type Metrics struct {
	NotificationsScheduled prometheus.Counter
	NotificationsCanceled  prometheus.Counter
	NotificationsDelivered *prometheus.CounterVec
	NotificationsPruned    prometheus.Counter
	WorkerTicks            prometheus.Counter
	RolloversApplied       prometheus.Counter
}

// NewMetrics builds and registers the pipeline collectors. Pass nil to keep
// the collectors unregistered (tests).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		NotificationsScheduled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notifications_scheduled_total",
			Help: "Total number of deadline notifications scheduled",
		}),
		NotificationsCanceled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notifications_canceled_total",
			Help: "Total number of pending notifications canceled",
		}),
		NotificationsDelivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_delivered_total",
			Help: "Total number of delivery attempts by outcome",
		}, []string{"outcome"}),
		NotificationsPruned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notifications_pruned_total",
			Help: "Total number of sent notifications removed by retention",
		}),
		WorkerTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notification_worker_ticks_total",
			Help: "Total number of delivery worker ticks executed",
		}),
		RolloversApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "task_rollovers_total",
			Help: "Total number of recurring task deadlines rolled forward",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.NotificationsScheduled,
			m.NotificationsCanceled,
			m.NotificationsDelivered,
			m.NotificationsPruned,
			m.WorkerTicks,
			m.RolloversApplied,
		)
	}

	return m
}
