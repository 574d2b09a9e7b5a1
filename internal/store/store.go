// Package store persists patient records and the training run ledger.
package store

import (
	"context"

	"github.com/sells-group/thyroid-cli/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the training pipeline.
type Store interface {
	// Documents
	InsertDocuments(ctx context.Context, database, collection string, docs []model.Document) (int64, error)
	FindDocuments(ctx context.Context, database, collection string) ([]model.Document, error)
	DeleteCollection(ctx context.Context, database, collection string) (int64, error)

	// Runs
	CreateRun(ctx context.Context, run model.TrainingRun) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	UpdateRunResult(ctx context.Context, runID string, result *model.RunResult) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Stages
	CreateStage(ctx context.Context, runID string, name string) (*model.RunStage, error)
	CompleteStage(ctx context.Context, stageID string, result *model.StageResult) error
	ListStages(ctx context.Context, runID string) ([]model.RunStage, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// resultStatus is the final run status implied by a result.
func resultStatus(result *model.RunResult) model.RunStatus {
	if result != nil && result.Error != "" {
		return model.RunStatusFailed
	}
	return model.RunStatusComplete
}

const defaultListLimit = 100
