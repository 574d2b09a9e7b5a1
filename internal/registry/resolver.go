// Package registry resolves and publishes model versions stored as
// integer-named directories under a registry root.
package registry

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/thyroid-cli/internal/model"
)

// ErrNotAvailable is returned when a reader asks for the latest version of
// an empty registry.
var ErrNotAvailable = eris.New("registry: no model version available")

// VersionPaths are the three artifact files of one version directory.
type VersionPaths struct {
	Transformer   string
	TargetEncoder string
	Model         string
}

// PathsIn returns the fixed artifact layout of a version directory.
func PathsIn(dir string) VersionPaths {
	return VersionPaths{
		Transformer:   filepath.Join(dir, model.TransformerDirName, model.TransformerFileName),
		TargetEncoder: filepath.Join(dir, model.TargetEncoderDirName, model.TargetEncoderFileName),
		Model:         filepath.Join(dir, model.ModelDirName, model.ModelFileName),
	}
}

// Resolver maps a registry root to read and write paths. It holds no state
// and re-scans the root on every call.
type Resolver struct {
	Root string
}

// NewResolver returns a resolver for root.
func NewResolver(root string) *Resolver {
	return &Resolver{Root: root}
}

// parseVersion accepts directory names made only of ASCII digits.
func parseVersion(name string) (int, bool) {
	if name == "" {
		return 0, false
	}
	for _, r := range name {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	v, err := strconv.Atoi(name)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Versions returns the published versions in ascending order. A missing
// root is an empty registry.
func (r *Resolver) Versions() ([]int, error) {
	entries, err := os.ReadDir(r.Root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "registry: list %s", r.Root)
	}

	var versions []int
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if v, ok := parseVersion(e.Name()); ok {
			versions = append(versions, v)
		}
	}
	sort.Ints(versions)
	return versions, nil
}

func (r *Resolver) dir(version int) string {
	return filepath.Join(r.Root, strconv.Itoa(version))
}

// LatestVersion returns the highest published version. ok is false when
// the registry is empty.
func (r *Resolver) LatestVersion() (version int, ok bool, err error) {
	versions, err := r.Versions()
	if err != nil || len(versions) == 0 {
		return 0, false, err
	}
	return versions[len(versions)-1], true, nil
}

// LatestDir returns the directory of the highest published version. ok is
// false when the registry is empty.
func (r *Resolver) LatestDir() (dir string, ok bool, err error) {
	v, ok, err := r.LatestVersion()
	if err != nil || !ok {
		return "", ok, err
	}
	return r.dir(v), true, nil
}

// Latest returns the artifact paths of the highest published version, or
// ErrNotAvailable.
func (r *Resolver) Latest() (VersionPaths, error) {
	dir, ok, err := r.LatestDir()
	if err != nil {
		return VersionPaths{}, err
	}
	if !ok {
		return VersionPaths{}, ErrNotAvailable
	}
	return PathsIn(dir), nil
}

// LatestTransformerPath returns the transformer file of the latest version.
func (r *Resolver) LatestTransformerPath() (string, error) {
	p, err := r.Latest()
	return p.Transformer, err
}

// LatestTargetEncoderPath returns the target encoder file of the latest version.
func (r *Resolver) LatestTargetEncoderPath() (string, error) {
	p, err := r.Latest()
	return p.TargetEncoder, err
}

// LatestModelPath returns the model file of the latest version.
func (r *Resolver) LatestModelPath() (string, error) {
	p, err := r.Latest()
	return p.Model, err
}

// NextVersion returns the latest version plus one, or 0 for an empty registry.
func (r *Resolver) NextVersion() (int, error) {
	v, ok, err := r.LatestVersion()
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return v + 1, nil
}

// NextDir returns the directory the next published version will occupy.
func (r *Resolver) NextDir() (string, error) {
	v, err := r.NextVersion()
	if err != nil {
		return "", err
	}
	return r.dir(v), nil
}

// Next returns the artifact paths of the next version.
func (r *Resolver) Next() (VersionPaths, error) {
	dir, err := r.NextDir()
	if err != nil {
		return VersionPaths{}, err
	}
	return PathsIn(dir), nil
}

// NextTransformerPath returns the transformer file of the next version.
func (r *Resolver) NextTransformerPath() (string, error) {
	p, err := r.Next()
	return p.Transformer, err
}

// NextTargetEncoderPath returns the target encoder file of the next version.
func (r *Resolver) NextTargetEncoderPath() (string, error) {
	p, err := r.Next()
	return p.TargetEncoder, err
}

// NextModelPath returns the model file of the next version.
func (r *Resolver) NextModelPath() (string, error) {
	p, err := r.Next()
	return p.Model, err
}
