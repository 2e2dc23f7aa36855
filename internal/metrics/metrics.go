package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "mealbox"

var (
	DeliveriesScheduled = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "delivery",
		Name:      "scheduled_total",
		Help:      "Number of deliveries booked, by time slot.",
	}, []string{"time_slot"})

	CapacityRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "delivery",
		Name:      "capacity_rejections_total",
		Help:      "Number of bookings rejected because the slot was full.",
	}, []string{"time_slot"})

	StatusTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "delivery",
		Name:      "status_transitions_total",
		Help:      "Number of applied delivery status transitions, by target status.",
	}, []string{"status"})

	NotificationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "notification",
		Name:      "failures_total",
		Help:      "Number of notifier calls that failed and were swallowed.",
	}, []string{"type"})

	RecurringOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "recurring",
		Name:      "expansion_outcomes_total",
		Help:      "Per-date outcomes of recurring delivery expansion.",
	}, []string{"outcome"})
)
