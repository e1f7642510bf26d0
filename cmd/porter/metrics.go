package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("porter")

var joinsReceived = promauto.NewCounter(prometheus.CounterOpts{
	Name: "porter_joins_received",
	Help: "Number of member join events received",
})

var leavesReceived = promauto.NewCounter(prometheus.CounterOpts{
	Name: "porter_leaves_received",
	Help: "Number of member leave events received",
})

var messagesReceived = promauto.NewCounter(prometheus.CounterOpts{
	Name: "porter_messages_received",
	Help: "Number of message events received",
})

var interactionsReceived = promauto.NewCounter(prometheus.CounterOpts{
	Name: "porter_interactions_received",
	Help: "Number of interaction events received",
})

var eventsFailed = promauto.NewCounter(prometheus.CounterOpts{
	Name: "porter_events_failed",
	Help: "Number of gateway events that failed processing",
})

var eventsSkipped = promauto.NewCounter(prometheus.CounterOpts{
	Name: "porter_events_skipped",
	Help: "Number of gateway events dropped as unknown or unroutable",
})

var gatewayReconnects = promauto.NewCounter(prometheus.CounterOpts{
	Name: "porter_gateway_reconnects",
	Help: "Number of times the gateway stream was re-dialed",
})

var currentSeq = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "porter_current_seq",
	Help: "Current sequence number",
})
