package hub

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionsMetric = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "hub",
		Subsystem: "sessions",
		Name:      "active",
		Help:      "Number of authenticated worker sessions",
	})

	dispatchedMetric = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hub",
		Subsystem: "dispatch",
		Name:      "orders_total",
		Help:      "Number of dispatched work orders",
	}, []string{"path"})

	commitsMetric = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hub",
		Subsystem: "commit",
		Name:      "accepted_total",
		Help:      "Number of committed measurements",
	})

	droppedResultsMetric = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hub",
		Subsystem: "commit",
		Name:      "dropped_total",
		Help:      "Number of dropped result submissions",
	}, []string{"reason"})

	expiredCallsMetric = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hub",
		Subsystem: "dispatch",
		Name:      "expired_total",
		Help:      "Number of dispatched work orders that expired without a result",
	})
)
