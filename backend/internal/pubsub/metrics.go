package pubsub

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	publishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "threed",
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Events published on the local bus",
		},
		[]string{"topic"},
	)

	deliveredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "threed",
			Subsystem: "events",
			Name:      "delivered_total",
			Help:      "Events handed to a subscriber buffer",
		},
		[]string{"topic"},
	)

	droppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "threed",
			Subsystem: "events",
			Name:      "dropped_total",
			Help:      "Events dropped because a subscriber buffer was full",
		},
		[]string{"topic"},
	)

	predicateErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "threed",
			Subsystem: "events",
			Name:      "predicate_errors_total",
			Help:      "Deliveries skipped because the subscriber filter failed",
		},
		[]string{"topic"},
	)

	activeSubscriptions = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "threed",
			Subsystem: "events",
			Name:      "subscriptions",
			Help:      "Live subscriptions per topic",
		},
		[]string{"topic"},
	)
)
