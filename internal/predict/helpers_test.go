package predict

import (
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/sells-group/thyroid-cli/internal/frame"
	"github.com/sells-group/thyroid-cli/internal/learn"
	"github.com/sells-group/thyroid-cli/internal/model"
	"github.com/sells-group/thyroid-cli/internal/registry"
	"github.com/sells-group/thyroid-cli/internal/storage"
)

var fixtureClasses = []string{"hypothyroid", "negative", "hyperthyroid"}

// fixtureTT4 separates the classes on TT4 alone.
func fixtureTT4(class, i int) float64 {
	return []float64{25, 105, 200}[class] + float64(i%5)
}

func patient(tt4 float64) model.PatientRecord {
	return model.PatientRecord{
		Age: 45, Sex: "F",
		OnThyroxine: "f", QueryOnThyroxine: "f", OnAntithyroidMedication: "f",
		Sick: "f", Pregnant: "f", ThyroidSurgery: "f", I131Treatment: "f",
		QueryHypothyroid: "f", QueryHyperthyroid: "f", Lithium: "f",
		Goitre: "f", Tumor: "f", Hypopituitary: "f", Psych: "f",
		T3: 2.0, TT4: tt4, T4U: 1.0, FTI: tt4,
		ReferralSource: "SVHC",
	}
}

// writeVersion fits a small transformer, encoder and model and saves them
// as registry version v under root.
func writeVersion(t *testing.T, root string, v int) string {
	t.Helper()

	df, err := frame.New(model.PatientColumns)
	require.NoError(t, err)
	var labels []frame.Cell
	for i := 0; i < 45; i++ {
		class := i % 3
		rec := patient(fixtureTT4(class, i))
		rec.Age = 20 + i
		if i%2 == 0 {
			rec.Sex = "M"
			rec.ReferralSource = "other"
		}
		row := make([]frame.Cell, len(model.PatientColumns))
		for j, val := range rec.Values() {
			row[j] = frame.Str(val)
		}
		require.NoError(t, df.AppendRow(row))
		labels = append(labels, frame.Str(fixtureClasses[class]))
	}

	transformer := learn.NewColumnTransformer(model.FlagColumns, model.OneHotColumns)
	require.NoError(t, transformer.Fit(df))
	x, err := transformer.Transform(df)
	require.NoError(t, err)

	encoder := &learn.LabelEncoder{}
	require.NoError(t, encoder.Fit(labels))
	y, err := encoder.Transform(labels)
	require.NoError(t, err)

	params := learn.DefaultBoosterParams(3)
	params.NEstimators = 10
	params.MaxDepth = 3
	clf := learn.NewGradientBoostingClassifier(params)
	require.NoError(t, clf.Fit(x, y, &learn.EvalSet{X: mat.DenseCopyOf(x), Y: y}))

	dir := filepath.Join(root, strconv.Itoa(v))
	paths := registry.PathsIn(dir)
	require.NoError(t, storage.SaveObject(paths.Transformer, transformer))
	require.NoError(t, storage.SaveObject(paths.TargetEncoder, encoder))
	require.NoError(t, storage.SaveObject(paths.Model, clf))
	return dir
}
