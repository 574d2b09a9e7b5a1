package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/thyroid-cli/internal/model"
	"github.com/sells-group/thyroid-cli/internal/registry"
)

func fittedArtifacts(t *testing.T, dir string) (model.TransformationArtifact, model.TrainerArtifact) {
	t.Helper()
	transformation := model.TransformationArtifact{
		TransformerPath:   filepath.Join(dir, "transformer.json"),
		TargetEncoderPath: filepath.Join(dir, "target_encoder.json"),
	}
	trainer := model.TrainerArtifact{ModelPath: filepath.Join(dir, "model.json")}
	for _, p := range []string{transformation.TransformerPath, transformation.TargetEncoderPath, trainer.ModelPath} {
		require.NoError(t, os.WriteFile(p, []byte(filepath.Base(p)), 0o644))
	}
	return transformation, trainer
}

func TestRegister_PublishesNextVersion(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "saved_models")
	for _, v := range []string{"0", "1", "2"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, v), 0o755))
	}
	resolver := registry.NewResolver(root)
	transformation, trainer := fittedArtifacts(t, dir)

	art, err := Register(context.Background(), resolver, nil, transformation, trainer)
	require.NoError(t, err)
	assert.Equal(t, 3, art.Version)
	assert.Equal(t, filepath.Join(root, "3"), art.Dir)

	latest, err := resolver.LatestModelPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "3", model.ModelDirName, model.ModelFileName), latest)
	body, err := os.ReadFile(latest)
	require.NoError(t, err)
	assert.Equal(t, "model.json", string(body))
}

func TestRegister_UploadsToMirror(t *testing.T) {
	dir := t.TempDir()
	resolver := registry.NewResolver(filepath.Join(dir, "saved_models"))
	transformation, trainer := fittedArtifacts(t, dir)

	mirror := &mockMirror{}
	mirror.On("Upload", mock.Anything, 0, registry.PathsIn(filepath.Join(resolver.Root, "0"))).Return(nil)

	art, err := Register(context.Background(), resolver, mirror, transformation, trainer)
	require.NoError(t, err)
	assert.Equal(t, 0, art.Version)
	mirror.AssertExpectations(t)
}

func TestRegister_MirrorFailureKeepsLocalVersion(t *testing.T) {
	dir := t.TempDir()
	resolver := registry.NewResolver(filepath.Join(dir, "saved_models"))
	transformation, trainer := fittedArtifacts(t, dir)

	mirror := &mockMirror{}
	mirror.On("Upload", mock.Anything, 0, mock.Anything).Return(errors.New("bucket unreachable"))

	art, err := Register(context.Background(), resolver, mirror, transformation, trainer)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket unreachable")
	assert.Equal(t, 0, art.Version)
	assert.DirExists(t, art.Dir)
}

func TestRegister_MissingArtifact(t *testing.T) {
	dir := t.TempDir()
	resolver := registry.NewResolver(filepath.Join(dir, "saved_models"))
	transformation, trainer := fittedArtifacts(t, dir)
	trainer.ModelPath = filepath.Join(dir, "absent.json")

	_, err := Register(context.Background(), resolver, nil, transformation, trainer)
	require.Error(t, err)

	versions, err := resolver.Versions()
	require.NoError(t, err)
	assert.Empty(t, versions)
}
