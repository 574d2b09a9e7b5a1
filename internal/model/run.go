package model

import (
	"path/filepath"
	"time"
)

// RunDirLayout is the time layout used to name a training run's artifact directory.
const RunDirLayout = "01_02_2006__03_04_05"

// RunStatus represents the current state of a training run.
type RunStatus string

const (
	RunStatusQueued       RunStatus = "queued"
	RunStatusIngesting    RunStatus = "ingesting"
	RunStatusValidating   RunStatus = "validating"
	RunStatusTransforming RunStatus = "transforming"
	RunStatusTraining     RunStatus = "training"
	RunStatusRegistering  RunStatus = "registering"
	RunStatusComplete     RunStatus = "complete"
	RunStatusFailed       RunStatus = "failed"
)

// TrainingRun is one timestamped execution of the training pipeline. All
// stage outputs are written under ArtifactDir.
type TrainingRun struct {
	ID          string    `json:"id"`
	ArtifactDir string    `json:"artifact_dir"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewTrainingRun returns a run rooted at <root>/<timestamp>.
func NewTrainingRun(id, root string, now time.Time) TrainingRun {
	return TrainingRun{
		ID:          id,
		ArtifactDir: filepath.Join(root, now.Format(RunDirLayout)),
		CreatedAt:   now,
	}
}

// Run is the ledger record of a training run.
type Run struct {
	ID          string     `json:"id"`
	ArtifactDir string     `json:"artifact_dir"`
	Status      RunStatus  `json:"status"`
	Result      *RunResult `json:"result,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// RunResult holds the final outcome of a run.
type RunResult struct {
	TrainF1   float64       `json:"f1_train_score"`
	TestF1    float64       `json:"f1_test_score"`
	Version   int           `json:"version"`
	ModelPath string        `json:"model_path,omitempty"`
	Stages    []StageResult `json:"stages"`
	Error     string        `json:"error,omitempty"`
}

// RunStage represents a stage within a run.
type RunStage struct {
	ID        string       `json:"id"`
	RunID     string       `json:"run_id"`
	Name      string       `json:"name"`
	Status    StageStatus  `json:"status"`
	Result    *StageResult `json:"result,omitempty"`
	StartedAt time.Time    `json:"started_at"`
}

// StageStatus represents the current state of a pipeline stage.
type StageStatus string

const (
	StageStatusRunning  StageStatus = "running"
	StageStatusComplete StageStatus = "complete"
	StageStatusFailed   StageStatus = "failed"
)

// StageResult holds the outcome of a pipeline stage.
type StageResult struct {
	Name     string         `json:"name"`
	Status   StageStatus    `json:"status"`
	Duration int64          `json:"duration_ms"`
	Error    string         `json:"error,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}
