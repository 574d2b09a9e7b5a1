package pipeline

import (
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/thyroid-cli/internal/frame"
	"github.com/sells-group/thyroid-cli/internal/model"
)

var testClasses = []string{"negative", "compensated_hypothyroid", "primary_hypothyroid", "secondary_hypothyroid"}

var testReferrals = []string{"other", "SVI", "SVHC", "STMW"}

// classFor skews the class mix towards negative like the real dataset.
func classFor(i int) int {
	switch i % 10 {
	case 6, 7:
		return 1
	case 8:
		return 2
	case 9:
		return 3
	default:
		return 0
	}
}

// syntheticDocuments builds n patient documents whose class is determined
// by TT4 and FTI, so any reasonable classifier separates them. Every tenth
// patient has an unknown T3 and every seventeenth an unknown sex.
func syntheticDocuments(n int) []model.Document {
	rng := rand.New(rand.NewSource(7))
	flag := func(v bool) string {
		if v {
			return "t"
		}
		return "f"
	}

	docs := make([]model.Document, n)
	for i := range docs {
		class := classFor(i)
		var d model.Document
		d.Set(model.IDField, int64(i+1))
		d.Set("age", 20+rng.Intn(60))
		if i%17 == 0 {
			d.Set("sex", model.MissingSentinel)
		} else if i%2 == 0 {
			d.Set("sex", "F")
		} else {
			d.Set("sex", "M")
		}
		for j, col := range model.FlagColumns[1:] {
			d.Set(col, flag((i+j)%3 == 0))
		}
		if i%10 == 3 {
			d.Set("T3", model.MissingSentinel)
		} else {
			d.Set("T3", 1+rng.Float64()*2)
		}
		d.Set("TT4", 40+float64(class)*45+rng.Float64()*10)
		d.Set("T4U", 0.8+rng.Float64()*0.4)
		d.Set("FTI", 35+float64(class)*40+rng.Float64()*10)
		d.Set(model.ReferralSourceColumn, testReferrals[i%len(testReferrals)])
		d.Set(model.TargetColumn, testClasses[class])
		docs[i] = d
	}
	return docs
}

func docsFrame(t *testing.T, docs []model.Document) *frame.Frame {
	t.Helper()
	clean := make([]model.Document, len(docs))
	for i, d := range docs {
		c := model.Document{Fields: append([]model.Field(nil), d.Fields...)}
		c.Delete(model.IDField)
		clean[i] = c
	}
	df, err := frame.FromDocuments(clean)
	require.NoError(t, err)
	return df
}

// writeBaseCSV writes docs as the reference dataset, keeping the "?" markers.
func writeBaseCSV(t *testing.T, path string, docs []model.Document) {
	t.Helper()
	require.NoError(t, docsFrame(t, docs).WriteCSVFile(path))
}

// writeSplitCSV writes docs the way ingestion does, with unknowns as nulls.
func writeSplitCSV(t *testing.T, path string, docs []model.Document) {
	t.Helper()
	df := docsFrame(t, docs)
	df.NullifyValue(model.MissingSentinel)
	require.NoError(t, df.WriteCSVFile(path))
}

// writeCSV writes a small literal table, one string per line.
func writeCSV(t *testing.T, path string, lines ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	var body string
	for _, l := range lines {
		body += l + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

// testRun returns a training run rooted in a temp directory.
func testRun(t *testing.T) model.TrainingRun {
	t.Helper()
	return model.NewTrainingRun("run-test", filepath.Join(t.TempDir(), "artifact"), testNow)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
