package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/thyroid-cli/internal/config"
	"github.com/sells-group/thyroid-cli/internal/model"
	"github.com/sells-group/thyroid-cli/internal/registry"
	"github.com/sells-group/thyroid-cli/internal/store"
)

// Pipeline runs the training stages for one timestamped run.
type Pipeline struct {
	cfg      *config.Config
	store    store.Store
	source   DocumentSource
	resolver *registry.Resolver
	mirror   Mirror
	now      func() time.Time
}

// New creates a Pipeline. source is usually the store itself; mirror may be nil.
func New(cfg *config.Config, st store.Store, source DocumentSource, resolver *registry.Resolver, mirror Mirror) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		store:    st,
		source:   source,
		resolver: resolver,
		mirror:   mirror,
		now:      time.Now,
	}
}

// booster maps the model section of the configuration onto the trainer.
func (p *Pipeline) booster() model.BoosterConfig {
	m := p.cfg.Model
	return model.BoosterConfig{
		NumClass:            m.NumClass,
		NEstimators:         m.NEstimators,
		MaxDepth:            m.MaxDepth,
		LearningRate:        m.LearningRate,
		Lambda:              m.Lambda,
		MinChildWeight:      m.MinChildWeight,
		EarlyStoppingRounds: m.EarlyStoppingRounds,
		Seed:                p.cfg.Pipeline.RandomSeed,
	}
}

// Run executes ingest, validate, transform, train and register in order.
// The first failing stage stops the run; the returned Run carries the
// recorded result in both cases.
func (p *Pipeline) Run(ctx context.Context) (*model.Run, error) {
	pc := p.cfg.Pipeline
	tr := model.NewTrainingRun(uuid.New().String(), pc.ArtifactRoot, p.now())

	log := zap.L().With(zap.String("run_id", tr.ID), zap.String("artifact_dir", tr.ArtifactDir))
	log.Info("pipeline: starting training run")

	run, err := p.store.CreateRun(ctx, tr)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create run")
	}

	result := &model.RunResult{}

	setStatus := func(status model.RunStatus) {
		if statusErr := p.store.UpdateRunStatus(ctx, run.ID, status); statusErr != nil {
			log.Warn("pipeline: failed to update status", zap.Error(statusErr))
		}
		run.Status = status
	}

	trackStage := func(name string, fn func() (*model.StageResult, error)) error {
		stage, stageErr := p.store.CreateStage(ctx, run.ID, name)
		if stageErr != nil {
			log.Warn("pipeline: failed to create stage", zap.String("stage", name), zap.Error(stageErr))
		}

		start := time.Now()
		stageResult, fnErr := fn()
		duration := time.Since(start).Milliseconds()

		if stageResult == nil {
			stageResult = &model.StageResult{}
		}
		stageResult.Name = name
		stageResult.Duration = duration

		if fnErr != nil {
			stageResult.Status = model.StageStatusFailed
			stageResult.Error = fnErr.Error()
			log.Error("pipeline: stage failed",
				zap.String("stage", name),
				zap.Int64("duration_ms", duration),
				zap.Error(fnErr),
			)
		} else {
			stageResult.Status = model.StageStatusComplete
			log.Info("pipeline: stage complete",
				zap.String("stage", name),
				zap.Int64("duration_ms", duration),
			)
		}

		if stage != nil {
			if completeErr := p.store.CompleteStage(ctx, stage.ID, stageResult); completeErr != nil {
				log.Warn("pipeline: failed to complete stage", zap.String("stage", name), zap.Error(completeErr))
			}
		}
		result.Stages = append(result.Stages, *stageResult)
		return fnErr
	}

	finish := func(runErr error) (*model.Run, error) {
		if runErr != nil {
			result.Error = runErr.Error()
			run.Status = model.RunStatusFailed
		} else {
			run.Status = model.RunStatusComplete
		}
		if saveErr := p.store.UpdateRunResult(ctx, run.ID, result); saveErr != nil {
			log.Warn("pipeline: failed to save run result", zap.Error(saveErr))
		}
		run.Result = result
		run.UpdatedAt = p.now().UTC()
		return run, runErr
	}

	// ===== Stage 1: Ingestion =====
	setStatus(model.RunStatusIngesting)
	var ingestion model.IngestionArtifact
	err = trackStage(model.StageIngestion, func() (*model.StageResult, error) {
		cfg := model.NewIngestionConfig(tr, p.cfg.Source.Database, p.cfg.Source.Collection, pc.TestSize, pc.RandomSeed)
		art, ingestErr := Ingest(ctx, cfg, p.source)
		if ingestErr != nil {
			return nil, ingestErr
		}
		ingestion = art
		return &model.StageResult{
			Metadata: map[string]any{
				"feature_store_path": art.FeatureStorePath,
				"train_path":         art.TrainPath,
				"test_path":          art.TestPath,
			},
		}, nil
	})
	if err != nil {
		return finish(eris.Wrap(err, "pipeline: data ingestion"))
	}

	// ===== Stage 2: Validation =====
	setStatus(model.RunStatusValidating)
	err = trackStage(model.StageValidation, func() (*model.StageResult, error) {
		cfg := model.NewValidationConfig(tr, pc.BaseFilePath, pc.MissingThreshold, pc.DriftPValue)
		art, validateErr := Validate(cfg, ingestion)
		if validateErr != nil {
			return nil, validateErr
		}
		return &model.StageResult{
			Metadata: map[string]any{"report_path": art.ReportPath},
		}, nil
	})
	if err != nil {
		return finish(eris.Wrap(err, "pipeline: data validation"))
	}

	// ===== Stage 3: Transformation =====
	setStatus(model.RunStatusTransforming)
	var transformation model.TransformationArtifact
	err = trackStage(model.StageTransformation, func() (*model.StageResult, error) {
		cfg := model.NewTransformationConfig(tr, pc.KNNNeighbors, pc.TestSize, pc.RandomSeed)
		art, transformErr := Transform(cfg, ingestion)
		if transformErr != nil {
			return nil, transformErr
		}
		transformation = art
		return &model.StageResult{
			Metadata: map[string]any{
				"train_array_path": art.TrainArrayPath,
				"test_array_path":  art.TestArrayPath,
			},
		}, nil
	})
	if err != nil {
		return finish(eris.Wrap(err, "pipeline: data transformation"))
	}

	// ===== Stage 4: Training =====
	setStatus(model.RunStatusTraining)
	var trainer model.TrainerArtifact
	err = trackStage(model.StageTrainer, func() (*model.StageResult, error) {
		cfg := model.NewTrainerConfig(tr, pc.ExpectedScore, pc.OverfittingThreshold, p.booster())
		art, trainErr := Train(cfg, transformation)
		if trainErr != nil {
			var gate *GateError
			if errors.As(trainErr, &gate) {
				return &model.StageResult{
					Metadata: map[string]any{
						"gate":      gate.Gate,
						"score":     gate.Score,
						"threshold": gate.Threshold,
					},
				}, trainErr
			}
			return nil, trainErr
		}
		trainer = art
		return &model.StageResult{
			Metadata: map[string]any{
				"f1_train_score": art.TrainF1,
				"f1_test_score":  art.TestF1,
			},
		}, nil
	})
	if err != nil {
		return finish(eris.Wrap(err, "pipeline: model trainer"))
	}
	result.TrainF1 = trainer.TrainF1
	result.TestF1 = trainer.TestF1

	// ===== Stage 5: Register =====
	setStatus(model.RunStatusRegistering)
	err = trackStage(model.StageRegister, func() (*model.StageResult, error) {
		art, registerErr := Register(ctx, p.resolver, p.mirror, transformation, trainer)
		if art.Dir != "" {
			result.Version = art.Version
			result.ModelPath = registry.PathsIn(art.Dir).Model
		}
		if registerErr != nil {
			return nil, registerErr
		}
		return &model.StageResult{
			Metadata: map[string]any{
				"version": art.Version,
				"dir":     art.Dir,
			},
		}, nil
	})
	if err != nil {
		return finish(eris.Wrap(err, "pipeline: model register"))
	}

	log.Info("pipeline: training run complete",
		zap.Float64("model.score.train", result.TrainF1),
		zap.Float64("model.score.test", result.TestF1),
		zap.Int("version", result.Version),
	)
	return finish(nil)
}
