package pipeline

import (
	"errors"
	"math"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/thyroid-cli/internal/frame"
	"github.com/sells-group/thyroid-cli/internal/learn"
	"github.com/sells-group/thyroid-cli/internal/model"
	"github.com/sells-group/thyroid-cli/internal/storage"
)

// DropMissingColumns removes every column whose null fraction is strictly
// greater than threshold and records the removed names under key, even when
// none were removed. When no columns remain, the empty frame is returned
// together with frame.ErrNoColumns.
func DropMissingColumns(df *frame.Frame, threshold float64, key string, report *Report) (*frame.Frame, error) {
	drop := []string{}
	for _, col := range df.Columns() {
		frac, err := df.NullFraction(col)
		if err != nil {
			return nil, eris.Wrapf(err, "validate: null fraction of %s", col)
		}
		if frac > threshold {
			drop = append(drop, col)
		}
	}

	zap.L().Debug("validate: dropping sparse columns",
		zap.String("key", key),
		zap.Strings("columns", drop),
		zap.Float64("threshold", threshold),
	)
	report.SetColumns(key, drop)

	out := df.Drop(drop...)
	if out.NumCols() == 0 {
		return out, eris.Wrapf(frame.ErrNoColumns, "validate: %s", key)
	}
	return out, nil
}

// RequiredColumnsExist reports whether every column of base is present in
// current. Missing names are recorded under key only when there are any.
// Extra columns in current are allowed.
func RequiredColumnsExist(base, current *frame.Frame, key string, report *Report) bool {
	var missing []string
	for _, col := range base.Columns() {
		if !current.HasColumn(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) == 0 {
		return true
	}
	zap.L().Info("validate: required columns missing",
		zap.String("key", key),
		zap.Strings("columns", missing),
	)
	report.SetColumns(key, missing)
	return false
}

// DataDrift runs a two-sample Kolmogorov-Smirnov test per numeric column
// over non-null values and records the p-value and verdict under key. Two
// samples share a distribution when the p-value exceeds pValue. Columns
// absent from either frame are skipped.
func DataDrift(base, current *frame.Frame, numericColumns []string, pValue float64, key string, report *Report) error {
	var results []ColumnDrift
	for _, col := range numericColumns {
		if !base.HasColumn(col) || !current.HasColumn(col) {
			continue
		}
		a, err := base.Floats(col)
		if err != nil {
			return eris.Wrapf(err, "validate: base column %s", col)
		}
		b, err := current.Floats(col)
		if err != nil {
			return eris.Wrapf(err, "validate: current column %s", col)
		}

		_, p, err := learn.KS2Samp(a, b)
		if err != nil {
			zap.L().Warn("validate: drift test undefined",
				zap.String("column", col),
				zap.Error(err),
			)
			p = math.NaN()
		}
		results = append(results, ColumnDrift{
			Column:           col,
			PValue:           p,
			SameDistribution: p > pValue,
		})
	}
	report.SetDrift(key, results)
	return nil
}

// Validate compares the ingested train and test files against the base
// dataset and writes the validation report. Data-quality findings never fail
// the stage; only I/O and malformed numeric values do.
func Validate(cfg model.ValidationConfig, ingestion model.IngestionArtifact) (model.ValidationArtifact, error) {
	log := zap.L().With(zap.String("stage", model.StageValidation))
	report := NewReport()

	base, err := frame.ReadCSVFile(cfg.BaseFilePath)
	if err != nil {
		return model.ValidationArtifact{}, eris.Wrap(err, "validate: read base dataset")
	}
	base.NullifyValue(model.MissingSentinel)

	train, err := frame.ReadCSVFile(ingestion.TrainPath)
	if err != nil {
		return model.ValidationArtifact{}, eris.Wrap(err, "validate: read train dataset")
	}
	test, err := frame.ReadCSVFile(ingestion.TestPath)
	if err != nil {
		return model.ValidationArtifact{}, eris.Wrap(err, "validate: read test dataset")
	}

	drop := func(df *frame.Frame, key string) (*frame.Frame, error) {
		out, err := DropMissingColumns(df, cfg.MissingThreshold, key, report)
		if errors.Is(err, frame.ErrNoColumns) {
			log.Warn("validate: no columns left after dropping", zap.String("key", key))
			return out, nil
		}
		return out, err
	}
	if base, err = drop(base, KeyMissingValuesBase); err != nil {
		return model.ValidationArtifact{}, err
	}
	if train, err = drop(train, KeyMissingValuesTrain); err != nil {
		return model.ValidationArtifact{}, err
	}
	if test, err = drop(test, KeyMissingValuesTest); err != nil {
		return model.ValidationArtifact{}, err
	}

	if RequiredColumnsExist(base, train, KeyMissingColumnsTrain, report) {
		if err := DataDrift(base, train, model.NumericalColumns, cfg.DriftPValue, KeyDriftTrain, report); err != nil {
			return model.ValidationArtifact{}, err
		}
	}
	if RequiredColumnsExist(base, test, KeyMissingColumnsTest, report) {
		if err := DataDrift(base, test, model.NumericalColumns, cfg.DriftPValue, KeyDriftTest, report); err != nil {
			return model.ValidationArtifact{}, err
		}
	}

	if err := storage.WriteYAML(cfg.ReportPath, report); err != nil {
		return model.ValidationArtifact{}, eris.Wrap(err, "validate: write report")
	}
	log.Info("validate: report written",
		zap.String("path", cfg.ReportPath),
		zap.Int("data.columns.base", base.NumCols()),
		zap.Int("data.columns.train", train.NumCols()),
		zap.Int("data.columns.test", test.NumCols()),
	)
	return model.ValidationArtifact{ReportPath: cfg.ReportPath}, nil
}
