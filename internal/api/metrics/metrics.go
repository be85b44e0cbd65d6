// Package metrics defines and registers all custom Prometheus metrics for
// the municipal report API. It is the single source of truth for metric
// names, labels, and help strings.
//
// Metrics register with the default Prometheus registry via promauto at
// package load; the /metrics endpoint exposes them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "civicfix"

// ── Report lifecycle metrics ──────────────────────────────────────────────────

// ReportsCreatedTotal counts newly filed reports.
// Label:
//   - type: the report type (e.g. "pothole", "lighting")
var ReportsCreatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reports_created_total",
		Help:      "Total number of reports filed, by report type.",
	},
	[]string{"type"},
)

// TransitionsTotal counts committed status transitions.
// Label:
//   - status: the target status applied (e.g. "assigned", "resolved")
var TransitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transitions_total",
		Help:      "Total number of committed report status transitions.",
	},
	[]string{"status"},
)

// TransitionConflictsTotal counts transitions rejected by the
// optimistic-concurrency guard (stale writer lost the race).
var TransitionConflictsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transition_conflicts_total",
		Help:      "Total number of transitions rejected with a version conflict.",
	},
)

// ── Aggregation metrics ───────────────────────────────────────────────────────

// AggregationDuration measures how long one analytics endpoint takes end-to-end.
// Label:
//   - endpoint: "overview", "trends", "heatmap", "performance", "comparative"
var AggregationDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "aggregation_duration_seconds",
		Help:      "Duration of analytics aggregations per endpoint.",
		Buckets:   prometheus.DefBuckets, // .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10
	},
	[]string{"endpoint"},
)

// AggregationErrorsTotal counts failed aggregations.
// Labels:
//   - endpoint: the analytics endpoint
//   - reason: "timeout" or "error"
var AggregationErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "aggregation_errors_total",
		Help:      "Total number of analytics aggregations that failed.",
	},
	[]string{"endpoint", "reason"},
)

// ── Notification metrics ──────────────────────────────────────────────────────

// NotificationsEnqueuedTotal counts notifications accepted for delivery.
var NotificationsEnqueuedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_enqueued_total",
		Help:      "Total number of notifications enqueued for delivery.",
	},
)

// NotificationFailuresTotal counts delivery failures.
// Label:
//   - reason: short description of the failure (e.g. "send_failed")
var NotificationFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notification_failures_total",
		Help:      "Total number of notification deliveries that failed.",
	},
	[]string{"reason"},
)

// NotificationQueueDepth tracks the current number of notifications waiting
// in each worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var NotificationQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "notification_queue_depth",
		Help:      "Current number of notifications pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)
