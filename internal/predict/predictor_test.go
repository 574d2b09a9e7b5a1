package predict

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/thyroid-cli/internal/registry"
)

func TestLoad_LatestVersion(t *testing.T) {
	root := t.TempDir()
	writeVersion(t, root, 0)
	writeVersion(t, root, 2)
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".staging-abc"), 0o755))

	p, err := Load(registry.NewResolver(root))
	require.NoError(t, err)
	assert.Equal(t, 2, p.Version)
	assert.Equal(t, filepath.Join(root, "2"), p.Dir)
	assert.Equal(t, []string{"hyperthyroid", "hypothyroid", "negative"}, p.Classes())
}

func TestLoad_EmptyRegistry(t *testing.T) {
	_, err := Load(registry.NewResolver(filepath.Join(t.TempDir(), "saved_models")))
	require.ErrorIs(t, err, registry.ErrNotAvailable)
}

func TestLoadDir_MissingObject(t *testing.T) {
	root := t.TempDir()
	dir := writeVersion(t, root, 0)
	require.NoError(t, os.Remove(registry.PathsIn(dir).Model))

	_, err := LoadDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load model")
}

func TestLoadDir_NotAVersion(t *testing.T) {
	_, err := LoadDir(t.TempDir())
	require.Error(t, err)
}

func TestPredictor_Predict(t *testing.T) {
	root := t.TempDir()
	writeVersion(t, root, 0)
	p, err := Load(registry.NewResolver(root))
	require.NoError(t, err)

	tests := []struct {
		tt4  float64
		want string
	}{
		{27, "hypothyroid"},
		{106, "negative"},
		{202, "hyperthyroid"},
	}
	for _, tt := range tests {
		got, err := p.Predict(patient(tt.tt4))
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "TT4=%v", tt.tt4)
	}
}

func TestPredictor_PredictMissingAndUnseenValues(t *testing.T) {
	root := t.TempDir()
	writeVersion(t, root, 0)
	p, err := Load(registry.NewResolver(root))
	require.NoError(t, err)

	rec := patient(106)
	rec.Sex = "?"
	rec.ReferralSource = "STMW"
	got, err := p.Predict(rec)
	require.NoError(t, err)
	assert.Equal(t, "negative", got)

	rec = patient(106)
	rec.Pregnant = "maybe"
	_, err = p.Predict(rec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transform request")
}
