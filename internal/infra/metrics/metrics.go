// Package metrics provides Prometheus metrics for backlogd: transition
// counters, admission rejections, ledger growth, and data-integrity
// warnings. Registered on import; the daemon exposes them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Lifecycle ──────────────────────────────────────────────────────────────

// Transitions counts committed status transitions by target status.
var Transitions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "backlogd",
	Name:      "transitions_total",
	Help:      "Committed status transitions by target status.",
}, []string{"to"})

// AdmissionsRejected counts refused admission attempts by reason.
var AdmissionsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "backlogd",
	Name:      "admissions_rejected_total",
	Help:      "Admission attempts refused, by reason.",
}, []string{"reason"})

// TasksInProgress tracks the number of currently in-progress tasks.
var TasksInProgress = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "backlogd",
	Name:      "tasks_in_progress",
	Help:      "Tasks currently holding IN_PROGRESS.",
})

// ─── Integrity & Reconciliation ─────────────────────────────────────────────

// IntegrityWarnings counts dangling-blocker detections. These are
// surfaced and counted but never block the originating operation.
var IntegrityWarnings = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "backlogd",
	Name:      "integrity_warnings_total",
	Help:      "Dangling blocker references detected during eligibility checks.",
})

// ReconcileResults counts reconciliation outcomes by classification.
var ReconcileResults = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "backlogd",
	Name:      "reconcile_results_total",
	Help:      "Reconciliation outcomes by classification.",
}, []string{"classification"})

// ─── Ledger ─────────────────────────────────────────────────────────────────

// LearningsAppended counts learning ledger appends.
var LearningsAppended = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "backlogd",
	Name:      "learnings_appended_total",
	Help:      "Entries appended to the learning ledger.",
})
