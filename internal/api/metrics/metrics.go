// Package metrics defines and registers all custom Prometheus metrics for the
// hosting control plane. It is the single source of truth for metric names,
// labels, and help strings.
//
// All metrics register with the default Prometheus registry at package init;
// the /metrics endpoint exposes them alongside the echo request metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "hosting"

// ── Provisioning metrics ──────────────────────────────────────────────────────

// ProvisionOpsTotal counts storage lifecycle operations by outcome.
// Labels:
//   - op: "provision", "deprovision", or "delete"
//   - result: "ok" or "error"
var ProvisionOpsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "provision_ops_total",
		Help:      "Total number of storage lifecycle operations, by operation and result.",
	},
	[]string{"op", "result"},
)

// ProvisionOpDuration observes wall-clock time of storage lifecycle
// operations. Same op label values as ProvisionOpsTotal.
var ProvisionOpDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "provision_op_duration_seconds",
		Help:      "Duration of storage lifecycle operations in seconds.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"op"},
)

// TemplateFilesWrittenTotal counts objects written during template application.
// Label:
//   - template: the template name that was applied
var TemplateFilesWrittenTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "template_files_written_total",
		Help:      "Total number of site objects written while applying templates.",
	},
	[]string{"template"},
)

// TeardownQueueDepth tracks the number of teardown retry jobs waiting in each
// worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var TeardownQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "teardown_queue_depth",
		Help:      "Current number of teardown jobs pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// TeardownRetriesTotal counts teardown retry attempts by outcome.
// Label:
//   - result: "ok", "retry", or "dropped"
var TeardownRetriesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "teardown_retries_total",
		Help:      "Total number of background teardown attempts, by result.",
	},
	[]string{"result"},
)

// ── Identity metrics ──────────────────────────────────────────────────────────

// LoginsTotal counts scoped login attempts by backing identity source.
// Labels:
//   - backend: "local" or "federated"
//   - result: "ok" or "error"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of scoped login attempts, by identity backend and result.",
	},
	[]string{"backend", "result"},
)

// SessionsIssuedTotal counts sessions issued across logins and signups.
var SessionsIssuedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_issued_total",
		Help:      "Total number of scoped sessions issued.",
	},
)
