package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rally",
		Subsystem: "gateway",
		Name:      "actions_total",
		Help:      "Client actions processed, by kind and outcome.",
	}, []string{"kind", "outcome"})

	metricConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "rally",
		Subsystem: "gateway",
		Name:      "connections",
		Help:      "Currently registered websocket connections.",
	})

	metricPartiesActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "rally",
		Subsystem: "party",
		Name:      "active",
		Help:      "Recruitment sessions currently open or full.",
	})

	metricBallots = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "rally",
		Subsystem: "vote",
		Name:      "ballots_total",
		Help:      "Ballots accepted across all vote rounds.",
	})

	metricRoundsResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rally",
		Subsystem: "vote",
		Name:      "rounds_resolved_total",
		Help:      "Vote rounds resolved, by resolution method.",
	}, []string{"method"})

	metricRolls = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "rally",
		Subsystem: "roll",
		Name:      "assignments_total",
		Help:      "Completed role assignments.",
	})
)

func recordAction(kind string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metricActions.WithLabelValues(kind, outcome).Inc()
}
