// Package predict serves thyroid class predictions from the latest model
// registry version.
package predict

import (
	"path/filepath"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/sells-group/thyroid-cli/internal/frame"
	"github.com/sells-group/thyroid-cli/internal/learn"
	"github.com/sells-group/thyroid-cli/internal/model"
	"github.com/sells-group/thyroid-cli/internal/registry"
	"github.com/sells-group/thyroid-cli/internal/storage"
)

// Predictor holds one registry version's fitted transformer, target
// encoder and classifier. It is read-only after Load.
type Predictor struct {
	Version     int
	Dir         string
	transformer *learn.ColumnTransformer
	encoder     *learn.LabelEncoder
	classifier  *learn.GradientBoostingClassifier
}

// Load reads the three objects of the latest registry version. All three
// come from the same directory even if a newer version is published while
// loading.
func Load(resolver *registry.Resolver) (*Predictor, error) {
	dir, ok, err := resolver.LatestDir()
	if err != nil {
		return nil, eris.Wrap(err, "predict: resolve latest version")
	}
	if !ok {
		return nil, registry.ErrNotAvailable
	}
	return LoadDir(dir)
}

// LoadDir reads a predictor from a single version directory.
func LoadDir(dir string) (*Predictor, error) {
	version, err := strconv.Atoi(filepath.Base(dir))
	if err != nil {
		return nil, eris.Wrapf(err, "predict: %s is not a version directory", dir)
	}
	paths := registry.PathsIn(dir)

	p := &Predictor{
		Version:     version,
		Dir:         dir,
		transformer: &learn.ColumnTransformer{},
		encoder:     &learn.LabelEncoder{},
		classifier:  &learn.GradientBoostingClassifier{},
	}
	if err := storage.LoadObject(paths.Transformer, p.transformer); err != nil {
		return nil, eris.Wrap(err, "predict: load transformer")
	}
	if err := storage.LoadObject(paths.TargetEncoder, p.encoder); err != nil {
		return nil, eris.Wrap(err, "predict: load target encoder")
	}
	if err := storage.LoadObject(paths.Model, p.classifier); err != nil {
		return nil, eris.Wrap(err, "predict: load model")
	}

	zap.L().Info("predict: model loaded",
		zap.Int("version", version),
		zap.String("dir", dir),
		zap.Strings("classes", p.encoder.Classes),
	)
	return p, nil
}

// Classes returns the labels the model can predict.
func (p *Predictor) Classes() []string {
	return append([]string(nil), p.encoder.Classes...)
}

// recordFrame builds a one-row frame from a request. Empty and "?" text
// fields are treated as missing, like the raw dataset. Columns the
// transformer was fitted on that a request cannot carry are left missing.
func (p *Predictor) recordFrame(rec model.PatientRecord) (*frame.Frame, error) {
	columns := append([]string(nil), model.PatientColumns...)
	known := make(map[string]bool, len(columns))
	for _, c := range columns {
		known[c] = true
	}
	for _, group := range [][]string{p.transformer.Ordinal.Columns, p.transformer.OneHot.Columns, p.transformer.Passthrough} {
		for _, c := range group {
			if !known[c] {
				known[c] = true
				columns = append(columns, c)
			}
		}
	}

	df, err := frame.New(columns)
	if err != nil {
		return nil, err
	}
	row := make([]frame.Cell, len(columns))
	for i := range row {
		row[i] = frame.NA
	}
	for i, v := range rec.Values() {
		if v != "" && v != model.MissingSentinel {
			row[i] = frame.Str(v)
		}
	}
	if err := df.AppendRow(row); err != nil {
		return nil, err
	}
	return df, nil
}

// Predict returns the class label for one patient.
func (p *Predictor) Predict(rec model.PatientRecord) (string, error) {
	df, err := p.recordFrame(rec)
	if err != nil {
		return "", eris.Wrap(err, "predict: build request frame")
	}
	x, err := p.transformer.Transform(df)
	if err != nil {
		return "", eris.Wrap(err, "predict: transform request")
	}
	class, err := p.classifier.PredictRow(mat.Row(nil, 0, x))
	if err != nil {
		return "", eris.Wrap(err, "predict: classify")
	}
	return p.encoder.Inverse(class)
}
