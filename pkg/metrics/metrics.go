// Package metrics exports Prometheus counters for the file-safety core.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "sumerian"

// Registry holds all core metrics on a dedicated prometheus.Registry so
// several sessions (or tests) can coexist in one process.
type Registry struct {
	reg *prometheus.Registry

	Operations        *prometheus.CounterVec
	SnapshotsCaptured prometheus.Counter
	SnapshotFailures  prometheus.Counter
	SnapshotsPruned   prometheus.Counter
	UndoOutcomes      *prometheus.CounterVec
	Checkpoints       *prometheus.CounterVec
	CheckpointSkipped prometheus.Counter
	WatchEvents       *prometheus.CounterVec
	WatchErrors       prometheus.Counter
	AuditFailures     prometheus.Counter
}

// NewRegistry creates and registers every metric.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "file_operations_total",
			Help:      "File operations by action and result.",
		}, []string{"action", "result"}),
		SnapshotsCaptured: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_captured_total",
			Help:      "Snapshots written before destructive agent operations.",
		}),
		SnapshotFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_capture_failures_total",
			Help:      "Snapshot captures that failed; the operation proceeded as irreversible.",
		}),
		SnapshotsPruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_pruned_total",
			Help:      "Snapshot directories removed by retention.",
		}),
		UndoOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "undo_total",
			Help:      "Undo calls by outcome.",
		}, []string{"outcome"}),
		Checkpoints: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkpoint_operations_total",
			Help:      "Checkpoint operations by kind (create, rollback, delete, evict).",
		}, []string{"op"}),
		CheckpointSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkpoint_files_skipped_total",
			Help:      "Files skipped during checkpoint capture or rollback.",
		}),
		WatchEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "watch_events_total",
			Help:      "Coalesced watch events delivered, by type.",
		}, []string{"type"}),
		WatchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "watch_errors_total",
			Help:      "Watcher errors caught and logged.",
		}),
		AuditFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_write_failures_total",
			Help:      "Audit entries that could not be appended.",
		}),
	}
	r.reg.MustRegister(
		r.Operations,
		r.SnapshotsCaptured,
		r.SnapshotFailures,
		r.SnapshotsPruned,
		r.UndoOutcomes,
		r.Checkpoints,
		r.CheckpointSkipped,
		r.WatchEvents,
		r.WatchErrors,
		r.AuditFailures,
	)
	return r
}

// Gatherer exposes the registry for an HTTP handler or a test.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the process-wide registry, creating it on first use.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// OrDefault returns r, or the process-wide registry when r is nil.
func OrDefault(r *Registry) *Registry {
	if r == nil {
		return Default()
	}
	return r
}
