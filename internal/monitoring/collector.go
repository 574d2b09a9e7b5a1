// Package monitoring summarizes the training run ledger and raises alerts
// when runs fail too often or the published model's score drops.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/thyroid-cli/internal/model"
	"github.com/sells-group/thyroid-cli/internal/store"
)

// collectLimit caps how many ledger rows a single snapshot reads.
const collectLimit = 1000

// RunLister is the slice of the store the collector reads from.
type RunLister interface {
	ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error)
}

// MetricsSnapshot is a point-in-time summary of recent training runs.
type MetricsSnapshot struct {
	RunsTotal      int     `json:"runs_total"`
	RunsComplete   int     `json:"runs_complete"`
	RunsFailed     int     `json:"runs_failed"`
	RunsInProgress int     `json:"runs_in_progress"`
	FailRate       float64 `json:"fail_rate"`
	GateFailures   int     `json:"gate_failures"`

	AvgTestF1     float64 `json:"avg_test_f1"`
	LatestTestF1  float64 `json:"latest_test_f1"`
	LatestVersion int     `json:"latest_version"`
	LatestRunID   string  `json:"latest_run_id,omitempty"`

	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// Collector builds snapshots from the run ledger.
type Collector struct {
	runs RunLister
	now  func() time.Time
}

// NewCollector creates a Collector backed by the given store.
func NewCollector(runs RunLister) *Collector {
	return &Collector{runs: runs, now: time.Now}
}

// Collect summarizes runs created within the last lookbackHours. A
// non-positive lookback covers the whole ledger.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	runs, err := c.runs.ListRuns(ctx, store.RunFilter{Limit: collectLimit})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}

	now := c.now().UTC()
	snap := &MetricsSnapshot{LookbackHours: lookbackHours, CollectedAt: now}

	var cutoff time.Time
	if lookbackHours > 0 {
		cutoff = now.Add(-time.Duration(lookbackHours) * time.Hour)
	}

	var f1Sum float64
	var latest *model.Run
	for i := range runs {
		r := &runs[i]
		if r.CreatedAt.Before(cutoff) {
			continue
		}
		snap.RunsTotal++

		switch r.Status {
		case model.RunStatusComplete:
			snap.RunsComplete++
			if r.Result != nil {
				f1Sum += r.Result.TestF1
				if latest == nil || r.CreatedAt.After(latest.CreatedAt) {
					latest = r
				}
			}
		case model.RunStatusFailed:
			snap.RunsFailed++
			if gateFailed(r.Result) {
				snap.GateFailures++
			}
		default:
			snap.RunsInProgress++
		}
	}

	if finished := snap.RunsComplete + snap.RunsFailed; finished > 0 {
		snap.FailRate = float64(snap.RunsFailed) / float64(finished)
	}
	if snap.RunsComplete > 0 {
		snap.AvgTestF1 = f1Sum / float64(snap.RunsComplete)
	}
	if latest != nil {
		snap.LatestTestF1 = latest.Result.TestF1
		snap.LatestVersion = latest.Result.Version
		snap.LatestRunID = latest.ID
	}
	return snap, nil
}

// gateFailed reports whether a failed run was stopped by a quality gate
// rather than an error.
func gateFailed(result *model.RunResult) bool {
	if result == nil {
		return false
	}
	for _, s := range result.Stages {
		if s.Name != model.StageTrainer {
			continue
		}
		if _, ok := s.Metadata["gate"]; ok {
			return true
		}
	}
	return false
}
