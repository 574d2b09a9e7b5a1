package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/thyroid-cli/internal/frame"
	"github.com/sells-group/thyroid-cli/internal/learn"
	"github.com/sells-group/thyroid-cli/internal/model"
)

// DocumentSource reads every record of a collection.
type DocumentSource interface {
	FindDocuments(ctx context.Context, database, collection string) ([]model.Document, error)
}

// Ingest exports the source collection to the feature store and splits it
// into train and test files. The artifact is returned only after all three
// files are written.
func Ingest(ctx context.Context, cfg model.IngestionConfig, src DocumentSource) (model.IngestionArtifact, error) {
	log := zap.L().With(zap.String("stage", model.StageIngestion))

	docs, err := src.FindDocuments(ctx, cfg.Database, cfg.Collection)
	if err != nil {
		return model.IngestionArtifact{}, eris.Wrapf(err, "ingest: read collection %s.%s", cfg.Database, cfg.Collection)
	}
	for i := range docs {
		docs[i].Delete(model.IDField)
	}

	df, err := frame.FromDocuments(docs)
	if err != nil {
		return model.IngestionArtifact{}, eris.Wrap(err, "ingest: build frame")
	}
	replaced := df.NullifyValue(model.MissingSentinel)
	log.Info("ingest: collection exported",
		zap.Int("data.samples", df.NumRows()),
		zap.Int("data.features", df.NumCols()),
		zap.Int("data.missing_replaced", replaced),
	)

	if err := df.WriteCSVFile(cfg.FeatureStorePath); err != nil {
		return model.IngestionArtifact{}, eris.Wrap(err, "ingest: write feature store")
	}

	trainIdx, testIdx, err := learn.TrainTestSplit(df.NumRows(), cfg.TestSize, cfg.Seed)
	if err != nil {
		return model.IngestionArtifact{}, eris.Wrap(err, "ingest: split dataset")
	}
	train, err := df.Take(trainIdx)
	if err != nil {
		return model.IngestionArtifact{}, eris.Wrap(err, "ingest: take train rows")
	}
	test, err := df.Take(testIdx)
	if err != nil {
		return model.IngestionArtifact{}, eris.Wrap(err, "ingest: take test rows")
	}

	if err := train.WriteCSVFile(cfg.TrainPath); err != nil {
		return model.IngestionArtifact{}, eris.Wrap(err, "ingest: write train dataset")
	}
	if err := test.WriteCSVFile(cfg.TestPath); err != nil {
		return model.IngestionArtifact{}, eris.Wrap(err, "ingest: write test dataset")
	}

	log.Info("ingest: dataset split",
		zap.Int("data.train_samples", train.NumRows()),
		zap.Int("data.test_samples", test.NumRows()),
	)
	return model.IngestionArtifact{
		FeatureStorePath: cfg.FeatureStorePath,
		TrainPath:        cfg.TrainPath,
		TestPath:         cfg.TestPath,
	}, nil
}
