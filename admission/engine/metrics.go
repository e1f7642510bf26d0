package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var joinEventDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name: "gatehouse_join_event_duration_sec",
	Help: "Total duration of join event processing",
})

var joinEventCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "gatehouse_join_events_processed",
	Help: "Number of join events processed, by pipeline outcome",
}, []string{"outcome"})

var responseEventCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "gatehouse_response_events_processed",
	Help: "Number of challenge responses processed, by outcome",
}, []string{"outcome"})

var challengeIssuedCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "gatehouse_challenges_issued",
	Help: "Number of challenges issued, by mode",
}, []string{"mode"})

var challengeDeliveryCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "gatehouse_challenge_deliveries",
	Help: "Number of challenge delivery attempts, by channel and result",
}, []string{"channel", "result"})

var altSignalCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "gatehouse_alt_signals_recorded",
	Help: "Number of suspected-alt-account signals recorded from join heuristics",
})

var escalationSentCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "gatehouse_escalations_sent",
	Help: "Number of staff escalation notices sent",
})

var escalationSuppressedCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "gatehouse_escalations_suppressed",
	Help: "Number of staff escalations suppressed, by cause",
}, []string{"cause"})

var challengeSweptCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "gatehouse_challenges_swept",
	Help: "Number of overdue challenges expired by the background sweeper",
})
