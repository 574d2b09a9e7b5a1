package registry

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/thyroid-cli/internal/model"
	"github.com/sells-group/thyroid-cli/internal/resilience"
)

// stagingPrefix marks in-progress publishes. Staging names never parse as
// versions, so readers ignore them.
const stagingPrefix = ".staging-"

// errVersionTaken signals that another writer claimed the version first.
var errVersionTaken = eris.New("registry: version already taken")

// Publish copies the three artifacts of src into a staging directory under
// the root and renames it to the next free version. Readers see either the
// complete version or nothing. If another writer claims the version between
// the scan and the rename, the next version is recomputed and the rename
// retried.
func (r *Resolver) Publish(ctx context.Context, src VersionPaths) (model.RegistryArtifact, error) {
	if err := os.MkdirAll(r.Root, 0o755); err != nil {
		return model.RegistryArtifact{}, eris.Wrapf(err, "registry: create root %s", r.Root)
	}

	staging := filepath.Join(r.Root, stagingPrefix+uuid.NewString())
	dst := PathsIn(staging)
	published := false
	defer func() {
		if !published {
			os.RemoveAll(staging) //nolint:errcheck,gosec
		}
	}()

	for _, pair := range [][2]string{
		{src.Transformer, dst.Transformer},
		{src.TargetEncoder, dst.TargetEncoder},
		{src.Model, dst.Model},
	} {
		if err := copyFile(pair[0], pair[1]); err != nil {
			return model.RegistryArtifact{}, err
		}
	}

	cfg := resilience.RetryConfig{
		MaxAttempts:    5,
		InitialBackoff: 10 * time.Millisecond,
		MaxBackoff:     200 * time.Millisecond,
		ShouldRetry:    func(err error) bool { return errors.Is(err, errVersionTaken) },
		OnRetry:        resilience.RetryLogger("registry", "publish"),
	}
	art, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (model.RegistryArtifact, error) {
		if err := ctx.Err(); err != nil {
			return model.RegistryArtifact{}, eris.Wrap(err, "registry: publish cancelled")
		}
		v, err := r.NextVersion()
		if err != nil {
			return model.RegistryArtifact{}, err
		}
		dir := r.dir(v)
		if err := os.Rename(staging, dir); err != nil {
			if errors.Is(err, fs.ErrExist) {
				return model.RegistryArtifact{}, eris.Wrapf(errVersionTaken, "registry: version %d", v)
			}
			return model.RegistryArtifact{}, eris.Wrapf(err, "registry: rename %s to %s", staging, dir)
		}
		return model.RegistryArtifact{Version: v, Dir: dir}, nil
	})
	if err != nil {
		return model.RegistryArtifact{}, eris.Wrap(err, "registry: publish version")
	}
	published = true

	zap.L().Info("registry: published version",
		zap.Int("version", art.Version),
		zap.String("dir", art.Dir),
	)
	return art, nil
}

// CleanStaging removes staging directories left behind by interrupted
// publishes. It returns the number removed.
func (r *Resolver) CleanStaging() (int, error) {
	entries, err := os.ReadDir(r.Root)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, eris.Wrapf(err, "registry: list %s", r.Root)
	}
	var n int
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), stagingPrefix) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(r.Root, e.Name())); err != nil {
			return n, eris.Wrapf(err, "registry: remove %s", e.Name())
		}
		n++
	}
	return n, nil
}

// VersionDir returns the directory of a published version.
func (r *Resolver) VersionDir(version int) (string, error) {
	dir := r.dir(version)
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return "", eris.Wrapf(ErrNotAvailable, "registry: version %d", version)
	}
	if err != nil {
		return "", eris.Wrapf(err, "registry: stat %s", dir)
	}
	if !info.IsDir() {
		return "", eris.Errorf("registry: %s is not a directory", dir)
	}
	return dir, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return eris.Wrapf(err, "registry: open %s", src)
	}
	defer in.Close() //nolint:errcheck

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return eris.Wrapf(err, "registry: create dir for %s", dst)
	}
	out, err := os.Create(dst)
	if err != nil {
		return eris.Wrapf(err, "registry: create %s", dst)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close() //nolint:errcheck,gosec
		return eris.Wrapf(err, "registry: copy %s", src)
	}
	if err := out.Sync(); err != nil {
		out.Close() //nolint:errcheck,gosec
		return eris.Wrapf(err, "registry: sync %s", dst)
	}
	return eris.Wrapf(out.Close(), "registry: close %s", dst)
}
