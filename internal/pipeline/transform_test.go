package pipeline

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/sells-group/thyroid-cli/internal/frame"
	"github.com/sells-group/thyroid-cli/internal/learn"
	"github.com/sells-group/thyroid-cli/internal/model"
	"github.com/sells-group/thyroid-cli/internal/storage"
)

func ingestedSplits(t *testing.T, dir string, n int) model.IngestionArtifact {
	t.Helper()
	docs := syntheticDocuments(n)
	cut := n * 4 / 5
	art := model.IngestionArtifact{
		TrainPath: filepath.Join(dir, "train.csv"),
		TestPath:  filepath.Join(dir, "test.csv"),
	}
	writeSplitCSV(t, art.TrainPath, docs[:cut])
	writeSplitCSV(t, art.TestPath, docs[cut:])
	return art
}

func TestTransform_WritesBalancedArrays(t *testing.T) {
	dir := t.TempDir()
	run := model.NewTrainingRun("r", filepath.Join(dir, "artifact"), testNow)
	cfg := model.NewTransformationConfig(run, 3, 0.2, 42)

	art, err := Transform(cfg, ingestedSplits(t, dir, 100))
	require.NoError(t, err)

	trainArr, err := storage.LoadArray(art.TrainArrayPath)
	require.NoError(t, err)
	testArr, err := storage.LoadArray(art.TestArrayPath)
	require.NoError(t, err)

	trainRows, width := trainArr.Dims()
	testRows, testWidth := testArr.Dims()
	assert.Equal(t, width, testWidth)

	// 100 rows with 60 negatives oversample to 4 x 60; 20% of 240 is 48.
	assert.Equal(t, 240, trainRows+testRows)
	assert.Equal(t, 48, testRows)

	transformer := NewTransformer()
	require.NoError(t, storage.LoadObject(art.TransformerPath, transformer))
	assert.Equal(t, transformer.Width()+1, width)

	encoder := &learn.LabelEncoder{}
	require.NoError(t, storage.LoadObject(art.TargetEncoderPath, encoder))
	assert.Equal(t, []string{
		"compensated_hypothyroid", "negative", "primary_hypothyroid", "secondary_hypothyroid",
	}, encoder.Classes)

	counts := make(map[float64]int)
	for _, arr := range []*mat.Dense{trainArr, testArr} {
		rows, cols := arr.Dims()
		for i := 0; i < rows; i++ {
			counts[arr.At(i, cols-1)]++
			for j := 0; j < cols; j++ {
				assert.False(t, math.IsNaN(arr.At(i, j)), "row %d col %d", i, j)
			}
		}
	}
	assert.Equal(t, map[float64]int{0: 60, 1: 60, 2: 60, 3: 60}, counts)
}

func TestTransformer_UnseenReferralSourceIsZero(t *testing.T) {
	dir := t.TempDir()
	run := model.NewTrainingRun("r", filepath.Join(dir, "artifact"), testNow)
	cfg := model.NewTransformationConfig(run, 3, 0.2, 42)

	art, err := Transform(cfg, ingestedSplits(t, dir, 60))
	require.NoError(t, err)

	transformer := NewTransformer()
	require.NoError(t, storage.LoadObject(art.TransformerPath, transformer))

	rec := model.PatientRecord{
		Age: 41, Sex: "F",
		OnThyroxine: "f", QueryOnThyroxine: "f", OnAntithyroidMedication: "f",
		Sick: "f", Pregnant: "f", ThyroidSurgery: "f", I131Treatment: "f",
		QueryHypothyroid: "f", QueryHyperthyroid: "f", Lithium: "f", Goitre: "f",
		Tumor: "f", Hypopituitary: "f", Psych: "f",
		T3: 1.3, TT4: 104, T4U: 1.08, FTI: 96,
		ReferralSource: "never-seen",
	}
	df, err := frame.New(model.PatientColumns)
	require.NoError(t, err)
	row := make([]frame.Cell, len(model.PatientColumns))
	for i, v := range rec.Values() {
		row[i] = frame.Str(v)
	}
	require.NoError(t, df.AppendRow(row))

	x, err := transformer.Transform(df)
	require.NoError(t, err)

	start := len(transformer.Ordinal.Columns)
	for j := start; j < start+transformer.OneHot.Width(); j++ {
		assert.Zero(t, x.At(0, j), "one-hot column %d", j)
	}
}

func TestTransform_MissingTarget(t *testing.T) {
	dir := t.TempDir()
	run := model.NewTrainingRun("r", filepath.Join(dir, "artifact"), testNow)
	cfg := model.NewTransformationConfig(run, 3, 0.2, 42)

	art := model.IngestionArtifact{
		TrainPath: filepath.Join(dir, "train.csv"),
		TestPath:  filepath.Join(dir, "test.csv"),
	}
	writeCSV(t, art.TrainPath, "age,sex", "41,F")
	writeCSV(t, art.TestPath, "age,sex", "50,M")

	_, err := Transform(cfg, art)
	require.Error(t, err)
	assert.NoFileExists(t, cfg.TrainArrayPath)
	assert.NoFileExists(t, cfg.TransformerPath)
}

func TestTransform_FailedSaveRemovesWrittenArtifacts(t *testing.T) {
	dir := t.TempDir()
	run := model.NewTrainingRun("r", filepath.Join(dir, "artifact"), testNow)
	cfg := model.NewTransformationConfig(run, 3, 0.2, 42)

	// A regular file where the target encoder directory belongs makes the
	// last save fail.
	blocker := filepath.Dir(cfg.TargetEncoderPath)
	require.NoError(t, os.MkdirAll(filepath.Dir(blocker), 0o755))
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	_, err := Transform(cfg, ingestedSplits(t, dir, 100))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transform: save target encoder")
	assert.NoFileExists(t, cfg.TrainArrayPath)
	assert.NoFileExists(t, cfg.TestArrayPath)
	assert.NoFileExists(t, cfg.TransformerPath)
}
