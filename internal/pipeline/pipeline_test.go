package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/thyroid-cli/internal/config"
	"github.com/sells-group/thyroid-cli/internal/model"
	"github.com/sells-group/thyroid-cli/internal/registry"
	"github.com/sells-group/thyroid-cli/internal/store"
)

var testNow = time.Date(2026, 3, 9, 14, 5, 7, 0, time.UTC)

func steppingClock(start time.Time) func() time.Time {
	var n int
	return func() time.Time {
		n++
		return start.Add(time.Duration(n) * time.Second)
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	cfg := &config.Config{}
	cfg.Source.Database = "thyroid-deases"
	cfg.Source.Collection = "thyroid"
	cfg.Pipeline = config.PipelineConfig{
		ArtifactRoot:         filepath.Join(dir, "artifact"),
		TestSize:             0.2,
		RandomSeed:           42,
		MissingThreshold:     0.25,
		BaseFilePath:         filepath.Join(dir, "hypothyroid_cleaned.csv"),
		DriftPValue:          0.05,
		KNNNeighbors:         3,
		ExpectedScore:        0.7,
		OverfittingThreshold: 0.1,
	}
	cfg.Model = config.ModelConfig{
		NumClass:            4,
		NEstimators:         20,
		MaxDepth:            4,
		LearningRate:        0.3,
		EarlyStoppingRounds: 5,
	}
	cfg.Registry.Root = filepath.Join(dir, "saved_models")

	writeBaseCSV(t, cfg.Pipeline.BaseFilePath, syntheticDocuments(200))
	return cfg
}

// seededSQLite returns a migrated SQLite store holding n synthetic patients.
func seededSQLite(t *testing.T, cfg *config.Config, n int) store.Store {
	t.Helper()
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "thyroid.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	require.NoError(t, s.Migrate(context.Background()))

	docs := syntheticDocuments(n)
	for i := range docs {
		docs[i].Delete(model.IDField)
	}
	_, err = s.InsertDocuments(context.Background(), cfg.Source.Database, cfg.Source.Collection, docs)
	require.NoError(t, err)
	return s
}

func TestPipeline_Run_EndToEnd(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	st := seededSQLite(t, cfg, 200)
	resolver := registry.NewResolver(cfg.Registry.Root)

	p := New(cfg, st, st, resolver, nil)
	p.now = steppingClock(testNow)

	run, err := p.Run(ctx)
	require.NoError(t, err)
	require.NotNil(t, run.Result)

	assert.Equal(t, model.RunStatusComplete, run.Status)
	assert.Empty(t, run.Result.Error)
	assert.GreaterOrEqual(t, run.Result.TestF1, 0.7)
	assert.Equal(t, 0, run.Result.Version)
	assert.Equal(t, filepath.Join(cfg.Registry.Root, "0", model.ModelDirName, model.ModelFileName), run.Result.ModelPath)

	require.Len(t, run.Result.Stages, 5)
	names := make([]string, len(run.Result.Stages))
	for i, s := range run.Result.Stages {
		names[i] = s.Name
		assert.Equal(t, model.StageStatusComplete, s.Status, s.Name)
	}
	assert.Equal(t, []string{
		model.StageIngestion, model.StageValidation, model.StageTransformation,
		model.StageTrainer, model.StageRegister,
	}, names)

	for _, path := range []string{
		filepath.Join(run.ArtifactDir, model.StageIngestion, "feature_store", model.FeatureStoreFileName),
		filepath.Join(run.ArtifactDir, model.StageValidation, model.ReportFileName),
		filepath.Join(run.ArtifactDir, model.StageTransformation, "transformed", model.TrainArrayFileName),
		filepath.Join(run.ArtifactDir, model.StageTrainer, model.ModelDirName, model.ModelFileName),
	} {
		assert.FileExists(t, path)
	}

	stored, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, stored.Status)
	require.NotNil(t, stored.Result)
	assert.InDelta(t, run.Result.TestF1, stored.Result.TestF1, 1e-9)

	stages, err := st.ListStages(ctx, run.ID)
	require.NoError(t, err)
	assert.Len(t, stages, 5)

	// A second run publishes the next version.
	second, err := p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, second.Result.Version)
	assert.NotEqual(t, run.ArtifactDir, second.ArtifactDir)

	latest, ok, err := resolver.LatestDir()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(cfg.Registry.Root, "1"), latest)
}

func TestPipeline_Run_GateFailureStopsBeforeRegister(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Pipeline.ExpectedScore = 1.01
	st := seededSQLite(t, cfg, 200)
	resolver := registry.NewResolver(cfg.Registry.Root)

	p := New(cfg, st, st, resolver, nil)
	p.now = steppingClock(testNow)

	run, err := p.Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrModelNotGoodEnough)
	require.NotNil(t, run)

	assert.Equal(t, model.RunStatusFailed, run.Status)
	require.Len(t, run.Result.Stages, 4)
	trainer := run.Result.Stages[3]
	assert.Equal(t, model.StageTrainer, trainer.Name)
	assert.Equal(t, model.StageStatusFailed, trainer.Status)
	assert.Equal(t, GateExpectedScore, trainer.Metadata["gate"])

	versions, err := resolver.Versions()
	require.NoError(t, err)
	assert.Empty(t, versions)

	stored, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, stored.Status)
	assert.Contains(t, stored.Result.Error, "model not good enough")
}

func TestPipeline_Run_StopsOnIngestionFailure(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	src := &mockSource{}
	src.On("FindDocuments", mock.Anything, "thyroid-deases", "thyroid").Return(nil, errors.New("connection refused"))

	st := &mockStore{}
	st.On("CreateRun", mock.Anything, mock.AnythingOfType("model.TrainingRun")).Return(&model.Run{
		ID:     "run-001",
		Status: model.RunStatusQueued,
	}, nil)
	st.On("UpdateRunStatus", mock.Anything, "run-001", model.RunStatusIngesting).Return(nil)
	st.On("CreateStage", mock.Anything, "run-001", model.StageIngestion).Return(&model.RunStage{ID: "stage-001"}, nil)
	st.On("CompleteStage", mock.Anything, "stage-001", mock.MatchedBy(func(r *model.StageResult) bool {
		return r.Status == model.StageStatusFailed && r.Name == model.StageIngestion
	})).Return(nil)
	st.On("UpdateRunResult", mock.Anything, "run-001", mock.MatchedBy(func(r *model.RunResult) bool {
		return r.Error != "" && len(r.Stages) == 1
	})).Return(nil)

	p := New(cfg, st, src, registry.NewResolver(cfg.Registry.Root), nil)
	run, err := p.Run(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, model.RunStatusFailed, run.Status)

	st.AssertExpectations(t)
	src.AssertExpectations(t)
	st.AssertNotCalled(t, "UpdateRunStatus", mock.Anything, "run-001", model.RunStatusValidating)
}

func TestPipeline_Run_LedgerFailuresAreNotFatal(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	docs := syntheticDocuments(200)
	src := &mockSource{}
	src.On("FindDocuments", mock.Anything, "thyroid-deases", "thyroid").Return(docs, nil)

	ledgerErr := errors.New("database is locked")
	st := &mockStore{}
	st.On("CreateRun", mock.Anything, mock.AnythingOfType("model.TrainingRun")).Return(&model.Run{ID: "run-001"}, nil)
	st.On("UpdateRunStatus", mock.Anything, "run-001", mock.AnythingOfType("model.RunStatus")).Return(ledgerErr)
	st.On("CreateStage", mock.Anything, "run-001", mock.AnythingOfType("string")).Return(nil, ledgerErr)
	st.On("UpdateRunResult", mock.Anything, "run-001", mock.AnythingOfType("*model.RunResult")).Return(ledgerErr)

	mirror := &mockMirror{}
	mirror.On("Upload", mock.Anything, 0, mock.AnythingOfType("registry.VersionPaths")).Return(nil)

	p := New(cfg, st, src, registry.NewResolver(cfg.Registry.Root), mirror)
	run, err := p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, run.Status)
	assert.Len(t, run.Result.Stages, 5)

	st.AssertNotCalled(t, "CompleteStage", mock.Anything, mock.Anything, mock.Anything)
	mirror.AssertExpectations(t)
}

func TestPipeline_Run_CreateRunError(t *testing.T) {
	cfg := testConfig(t)

	st := &mockStore{}
	st.On("CreateRun", mock.Anything, mock.Anything).Return(nil, errors.New("disk full"))

	p := New(cfg, st, &mockSource{}, registry.NewResolver(cfg.Registry.Root), nil)
	run, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Nil(t, run)
	assert.Contains(t, err.Error(), "create run")
}
