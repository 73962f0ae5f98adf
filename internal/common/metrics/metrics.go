package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var EventsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "relay_events_received_total",
	Help: "Normalized inbound events by kind.",
}, []string{"kind"})

var EventsDropped = promauto.NewCounter(prometheus.CounterOpts{
	Name: "relay_events_dropped_total",
	Help: "Inbound events dropped as malformed.",
})

var AccessRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "relay_access_requests_total",
	Help: "Access request outcomes.",
}, []string{"outcome"})

var Violations = promauto.NewCounter(prometheus.CounterOpts{
	Name: "relay_moderation_violations_total",
	Help: "Messages matching the forbidden-term policy.",
})

var Bans = promauto.NewCounter(prometheus.CounterOpts{
	Name: "relay_bans_total",
	Help: "Users transitioned to the banned state.",
})

var DeliveryFailures = promauto.NewCounter(prometheus.CounterOpts{
	Name: "relay_delivery_failures_total",
	Help: "Outbound sends that failed after the state change was committed.",
})
