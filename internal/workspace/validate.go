package workspace

import (
	"context"
	"time"

	"github.com/gyaneshwarpardhi/dlgedit/internal/container"
	"github.com/gyaneshwarpardhi/dlgedit/internal/dialog"
	"github.com/gyaneshwarpardhi/dlgedit/internal/metrics"
)

// FileReport is the outcome of validating one dialog file.
type FileReport struct {
	Path        string   `json:"path"`
	Nodes       int      `json:"nodes"`
	Violations  []string `json:"violations,omitempty"`
	Unreachable int      `json:"unreachable"`
	LinkOrphans []string `json:"link_orphans,omitempty"`
	DurationMs  int64    `json:"duration_ms"`
	Error       string   `json:"error,omitempty"`
}

// OK reports whether the file loaded and has no index violations.
func (r FileReport) OK() bool { return r.Error == "" && len(r.Violations) == 0 }

type fileJob struct {
	ctx   context.Context
	index int
	path  string
}

func validateFile(j fileJob) (r FileReport) {
	r.Path = j.path
	if err := j.ctx.Err(); err != nil {
		r.Error = err.Error()
		return r
	}
	start := time.Now()
	defer func() {
		r.DurationMs = time.Since(start).Milliseconds()
	}()

	f, err := container.ReadFile(j.path)
	if err != nil {
		r.Error = err.Error()
		return r
	}
	d, err := dialog.Build(f)
	if err != nil {
		r.Error = err.Error()
		return r
	}
	r.Nodes = d.NodeCount()
	for _, e := range dialog.ValidateIndices(d) {
		metrics.IntegrityViolations.WithLabelValues(string(e.Violation)).Inc()
		r.Violations = append(r.Violations, e.Error())
	}
	r.Unreachable = r.Nodes - len(dialog.ReachableSet(d))
	for _, s := range dialog.OrphanedLinkChildren(d, nil) {
		r.LinkOrphans = append(r.LinkOrphans, dialog.NodeID(s))
	}
	metrics.ValidationDuration.Observe(float64(time.Since(start).Microseconds()) / 1000)
	return r
}

// ValidateFiles checks independent dialog files on the worker pool and
// returns one report per path, in input order. Files not yet started when
// ctx ends are reported with the context error.
func (w *Workspace) ValidateFiles(ctx context.Context, paths []string) ([]FileReport, error) {
	reports := make([]FileReport, len(paths))
	out := make(chan outcome[fileJob, FileReport], len(paths))
	pending := 0
	for i, p := range paths {
		if err := w.pool.Submit(ctx, fileJob{ctx: ctx, index: i, path: p}, out); err != nil {
			for j := i; j < len(paths); j++ {
				reports[j] = FileReport{Path: paths[j], Error: err.Error()}
			}
			break
		}
		pending++
		metrics.BatchQueueUtilization.Set(w.QueueUtilization())
	}
	for ; pending > 0; pending-- {
		select {
		case o := <-out:
			reports[o.in.index] = o.val
		case <-ctx.Done():
			return reports, ctx.Err()
		}
	}
	metrics.BatchQueueUtilization.Set(w.QueueUtilization())
	return reports, ctx.Err()
}
