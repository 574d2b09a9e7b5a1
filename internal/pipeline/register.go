package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/thyroid-cli/internal/model"
	"github.com/sells-group/thyroid-cli/internal/registry"
)

// Mirror copies a published registry version to secondary storage.
type Mirror interface {
	Upload(ctx context.Context, version int, files registry.VersionPaths) error
}

// Register publishes the fitted transformer, target encoder and model as the
// next registry version. When a mirror is configured the published files are
// uploaded after the local publish succeeds.
func Register(ctx context.Context, resolver *registry.Resolver, mirror Mirror, transformation model.TransformationArtifact, trainer model.TrainerArtifact) (model.RegistryArtifact, error) {
	src := registry.VersionPaths{
		Transformer:   transformation.TransformerPath,
		TargetEncoder: transformation.TargetEncoderPath,
		Model:         trainer.ModelPath,
	}
	art, err := resolver.Publish(ctx, src)
	if err != nil {
		return model.RegistryArtifact{}, eris.Wrap(err, "register: publish")
	}

	if mirror != nil {
		if err := mirror.Upload(ctx, art.Version, registry.PathsIn(art.Dir)); err != nil {
			return art, eris.Wrapf(err, "register: mirror version %d", art.Version)
		}
		zap.L().Info("register: version mirrored", zap.Int("version", art.Version))
	}
	return art, nil
}
