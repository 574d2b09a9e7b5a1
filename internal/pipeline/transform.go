package pipeline

import (
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/sells-group/thyroid-cli/internal/frame"
	"github.com/sells-group/thyroid-cli/internal/learn"
	"github.com/sells-group/thyroid-cli/internal/model"
	"github.com/sells-group/thyroid-cli/internal/storage"
)

// NewTransformer returns the unfitted feature transformer: clinical flags
// ordinal-encoded, referral source one-hot encoded, everything else passed
// through.
func NewTransformer() *learn.ColumnTransformer {
	return learn.NewColumnTransformer(model.FlagColumns, model.OneHotColumns)
}

// splitTarget separates the target column from the features.
func splitTarget(df *frame.Frame) (*frame.Frame, []frame.Cell, error) {
	target, err := df.Column(model.TargetColumn)
	if err != nil {
		return nil, nil, eris.Wrap(err, "transform: target column")
	}
	return df.Drop(model.TargetColumn), target, nil
}

// Transform encodes the raw ingestion splits, imputes and balances them, and
// persists the resulting arrays with the fitted transformer and label
// encoder. Nothing is written until every fit has succeeded, and a failed
// save removes the artifacts already written.
func Transform(cfg model.TransformationConfig, ingestion model.IngestionArtifact) (model.TransformationArtifact, error) {
	log := zap.L().With(zap.String("stage", model.StageTransformation))

	trainDF, err := frame.ReadCSVFile(ingestion.TrainPath)
	if err != nil {
		return model.TransformationArtifact{}, eris.Wrap(err, "transform: read train dataset")
	}
	testDF, err := frame.ReadCSVFile(ingestion.TestPath)
	if err != nil {
		return model.TransformationArtifact{}, eris.Wrap(err, "transform: read test dataset")
	}

	trainX, trainLabels, err := splitTarget(trainDF)
	if err != nil {
		return model.TransformationArtifact{}, err
	}
	testX, testLabels, err := splitTarget(testDF)
	if err != nil {
		return model.TransformationArtifact{}, err
	}

	encoder := &learn.LabelEncoder{}
	if err := encoder.Fit(trainLabels); err != nil {
		return model.TransformationArtifact{}, eris.Wrap(err, "transform: fit label encoder")
	}
	trainY, err := encoder.Transform(trainLabels)
	if err != nil {
		return model.TransformationArtifact{}, eris.Wrap(err, "transform: encode train target")
	}
	testY, err := encoder.Transform(testLabels)
	if err != nil {
		return model.TransformationArtifact{}, eris.Wrap(err, "transform: encode test target")
	}

	transformer := NewTransformer()
	if err := transformer.Fit(trainX); err != nil {
		return model.TransformationArtifact{}, eris.Wrap(err, "transform: fit transformer")
	}
	trainM, err := transformer.Transform(trainX)
	if err != nil {
		return model.TransformationArtifact{}, eris.Wrap(err, "transform: encode train features")
	}
	testM, err := transformer.Transform(testX)
	if err != nil {
		return model.TransformationArtifact{}, eris.Wrap(err, "transform: encode test features")
	}

	trainArr, testArr, err := balance(trainM, testM, trainY, testY, cfg)
	if err != nil {
		return model.TransformationArtifact{}, err
	}

	if err := saveArtifacts(cfg, trainArr, testArr, transformer, encoder); err != nil {
		return model.TransformationArtifact{}, err
	}

	trainRows, width := trainArr.Dims()
	testRows, _ := testArr.Dims()
	log.Info("transform: arrays written",
		zap.Int("data.train_samples", trainRows),
		zap.Int("data.test_samples", testRows),
		zap.Int("data.features", width-1),
		zap.Strings("data.classes", encoder.Classes),
	)
	return model.TransformationArtifact{
		TransformerPath:   cfg.TransformerPath,
		TargetEncoderPath: cfg.TargetEncoderPath,
		TrainArrayPath:    cfg.TrainArrayPath,
		TestArrayPath:     cfg.TestArrayPath,
	}, nil
}

// saveArtifacts writes the transformation outputs in order. When one save
// fails, the files written before it are removed.
func saveArtifacts(cfg model.TransformationConfig, trainArr, testArr *mat.Dense, transformer, encoder storage.Persistable) error {
	saves := []struct {
		path string
		what string
		save func() error
	}{
		{cfg.TrainArrayPath, "train array", func() error { return storage.SaveArray(cfg.TrainArrayPath, trainArr) }},
		{cfg.TestArrayPath, "test array", func() error { return storage.SaveArray(cfg.TestArrayPath, testArr) }},
		{cfg.TransformerPath, "transformer", func() error { return storage.SaveObject(cfg.TransformerPath, transformer) }},
		{cfg.TargetEncoderPath, "target encoder", func() error { return storage.SaveObject(cfg.TargetEncoderPath, encoder) }},
	}

	for i, s := range saves {
		if err := s.save(); err != nil {
			for _, done := range saves[:i] {
				if rmErr := os.Remove(done.path); rmErr != nil && !os.IsNotExist(rmErr) {
					zap.L().Warn("transform: remove partial artifact",
						zap.String("path", done.path),
						zap.Error(rmErr),
					)
				}
			}
			return eris.Wrapf(err, "transform: save %s", s.what)
		}
	}
	return nil
}

// balance stacks the encoded splits, imputes missing values from the nearest
// neighbours, oversamples minority classes to parity and re-splits. Each
// returned array carries the encoded target as its last column.
func balance(trainX, testX *mat.Dense, trainY, testY []float64, cfg model.TransformationConfig) (*mat.Dense, *mat.Dense, error) {
	trainRows, cols := trainX.Dims()
	testRows, testCols := testX.Dims()
	if cols != testCols {
		return nil, nil, eris.Errorf("transform: train has %d features, test has %d", cols, testCols)
	}

	stacked := mat.NewDense(trainRows+testRows, cols, nil)
	stacked.Stack(trainX, testX)
	labels := make([]float64, 0, trainRows+testRows)
	labels = append(labels, trainY...)
	labels = append(labels, testY...)

	imputed := learn.KNNImputer{K: cfg.KNNNeighbors}.FitTransform(stacked)

	x, y, err := learn.RandomOverSampler{Seed: cfg.Seed}.FitResample(imputed, labels)
	if err != nil {
		return nil, nil, eris.Wrap(err, "transform: oversample")
	}
	n, _ := x.Dims()
	zap.L().Debug("transform: balanced dataset",
		zap.Int("data.samples.before", trainRows+testRows),
		zap.Int("data.samples.after", n),
	)

	trainIdx, testIdx, err := learn.TrainTestSplit(n, cfg.TestSize, cfg.Seed)
	if err != nil {
		return nil, nil, eris.Wrap(err, "transform: split balanced dataset")
	}
	return withTarget(x, y, trainIdx), withTarget(x, y, testIdx), nil
}

// withTarget gathers rows of x and appends the matching label as a final column.
func withTarget(x *mat.Dense, y []float64, rows []int) *mat.Dense {
	_, cols := x.Dims()
	out := mat.NewDense(len(rows), cols+1, nil)
	for i, r := range rows {
		for j := 0; j < cols; j++ {
			out.Set(i, j, x.At(r, j))
		}
		out.Set(i, cols, y[r])
	}
	return out
}
