package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EditsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dlgedit_edits_total",
		Help: "Total number of committed edits, labelled by operation.",
	}, []string{"op"})

	EditsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dlgedit_edits_rejected_total",
		Help: "Total number of edits refused before mutating, labelled by operation and reason.",
	}, []string{"op", "reason"})

	IntegrityViolations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dlgedit_integrity_violations_total",
		Help: "Total number of integrity violations found by validation, labelled by kind.",
	}, []string{"violation"})

	Repairs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dlgedit_repairs_total",
		Help: "Total number of repair passes, labelled by outcome (clean or residual).",
	}, []string{"outcome"})

	Saves = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dlgedit_saves_total",
		Help: "Total number of save attempts, labelled by status.",
	}, []string{"status"})

	OrphansRemoved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dlgedit_orphans_removed_total",
		Help: "Total number of unreachable nodes swept after deletions.",
	})

	TrashStored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dlgedit_trash_stored_total",
		Help: "Total number of node copies written to the trash store.",
	})

	ClonedNodes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dlgedit_cloned_nodes",
		Help:    "Number of nodes produced per clone, stubs included.",
		Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 500},
	})

	SnapshotsTaken = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dlgedit_snapshots_taken_total",
		Help: "Total number of undo snapshots recorded.",
	})

	OpenDialogs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dlgedit_open_dialogs",
		Help: "Number of dialogs currently open in the workspace.",
	})

	ValidationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dlgedit_validation_duration_ms",
		Help:    "Time spent validating one dialog in milliseconds.",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 25, 50, 100, 250},
	})

	BatchQueueUtilization = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dlgedit_batch_queue_utilization_ratio",
		Help: "Current batch validation queue utilization (0–1).",
	})
)
