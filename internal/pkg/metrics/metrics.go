// Package metrics defines and registers all custom Prometheus metrics for the
// relay API. It is the single source of truth for metric names, labels, and
// help strings.
//
// Metrics are registered with the default Prometheus registry on package
// initialisation via promauto; the router exposes them at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "relay"

// ── Chat metrics ──────────────────────────────────────────────────────────────

// ConnectionsActive tracks the current size of the registry's active set.
var ConnectionsActive = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "connections_active",
		Help:      "Current number of admitted duplex connections.",
	},
)

// ConnectionsTotal counts admissions since start.
var ConnectionsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "connections_total",
		Help:      "Total number of duplex connections admitted.",
	},
)

// MessagesDelivered counts per-member deliveries.
// Label:
//   - kind: "personal" or "broadcast"
var MessagesDelivered = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_delivered_total",
		Help:      "Total number of messages handed to a member's transport.",
	},
	[]string{"kind"},
)

// SendFailures counts deliveries the transport refused.
// Label:
//   - kind: "personal" or "broadcast"
var SendFailures = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "send_failures_total",
		Help:      "Total number of deliveries that failed at the transport.",
	},
	[]string{"kind"},
)

// InboundDropped counts inbound frames discarded by the transport adapter.
// Label:
//   - reason: "rate_limited"
var InboundDropped = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "inbound_dropped_total",
		Help:      "Total number of inbound frames discarded before relay.",
	},
	[]string{"reason"},
)

// ── Auth metrics ──────────────────────────────────────────────────────────────

// LoginsTotal counts login attempts.
// Label:
//   - result: "success", "invalid_credentials", "invalid_role", "throttled", "error"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by outcome.",
	},
	[]string{"result"},
)

// RegistrationsTotal counts registration attempts.
// Label:
//   - result: "success", "duplicate", "error"
var RegistrationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrations_total",
		Help:      "Total number of registration attempts, by outcome.",
	},
	[]string{"result"},
)
