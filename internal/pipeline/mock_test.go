package pipeline

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/thyroid-cli/internal/model"
	"github.com/sells-group/thyroid-cli/internal/registry"
	"github.com/sells-group/thyroid-cli/internal/store"
)

// --- Document Source Mock ---

type mockSource struct {
	mock.Mock
}

func (m *mockSource) FindDocuments(ctx context.Context, database, collection string) ([]model.Document, error) {
	args := m.Called(ctx, database, collection)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Document), args.Error(1)
}

// --- Mirror Mock ---

type mockMirror struct {
	mock.Mock
}

func (m *mockMirror) Upload(ctx context.Context, version int, files registry.VersionPaths) error {
	args := m.Called(ctx, version, files)
	return args.Error(0)
}

// --- Store Mock ---

type mockStore struct {
	mock.Mock
}

func (m *mockStore) InsertDocuments(ctx context.Context, database, collection string, docs []model.Document) (int64, error) {
	args := m.Called(ctx, database, collection, docs)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockStore) FindDocuments(ctx context.Context, database, collection string) ([]model.Document, error) {
	args := m.Called(ctx, database, collection)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Document), args.Error(1)
}

func (m *mockStore) DeleteCollection(ctx context.Context, database, collection string) (int64, error) {
	args := m.Called(ctx, database, collection)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockStore) CreateRun(ctx context.Context, run model.TrainingRun) (*model.Run, error) {
	args := m.Called(ctx, run)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Run), args.Error(1)
}

func (m *mockStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	args := m.Called(ctx, runID, status)
	return args.Error(0)
}

func (m *mockStore) UpdateRunResult(ctx context.Context, runID string, result *model.RunResult) error {
	args := m.Called(ctx, runID, result)
	return args.Error(0)
}

func (m *mockStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Run), args.Error(1)
}

func (m *mockStore) ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Run), args.Error(1)
}

func (m *mockStore) CreateStage(ctx context.Context, runID string, name string) (*model.RunStage, error) {
	args := m.Called(ctx, runID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RunStage), args.Error(1)
}

func (m *mockStore) CompleteStage(ctx context.Context, stageID string, result *model.StageResult) error {
	args := m.Called(ctx, stageID, result)
	return args.Error(0)
}

func (m *mockStore) ListStages(ctx context.Context, runID string) ([]model.RunStage, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.RunStage), args.Error(1)
}

func (m *mockStore) Migrate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// --- Ensure interface compliance ---

var (
	_ DocumentSource = (*mockSource)(nil)
	_ Mirror         = (*mockMirror)(nil)
	_ store.Store    = (*mockStore)(nil)
	_ DocumentSource = (store.Store)(nil)
)
