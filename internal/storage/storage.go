// Package storage saves and loads pipeline artifacts: numeric arrays, fitted
// objects and YAML reports.
package storage

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"
)

// objectVersion is the envelope format version written by SaveObject.
const objectVersion = 1

// Persistable is a fitted object that can be saved with SaveObject.
type Persistable interface {
	ObjectKind() string
}

type envelope struct {
	Kind    string          `json:"kind"`
	Version int             `json:"version"`
	Payload json.RawMessage `json:"payload"`
}

func createFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, eris.Wrapf(err, "storage: create dir for %s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, eris.Wrapf(err, "storage: create %s", path)
	}
	return f, nil
}

// SaveArray writes a matrix in gonum's binary encoding.
func SaveArray(path string, m *mat.Dense) error {
	f, err := createFile(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if _, err := m.MarshalBinaryTo(w); err != nil {
		f.Close() //nolint:errcheck,gosec
		return eris.Wrapf(err, "storage: encode array %s", path)
	}
	if err := w.Flush(); err != nil {
		f.Close() //nolint:errcheck,gosec
		return eris.Wrapf(err, "storage: flush array %s", path)
	}
	return eris.Wrapf(f.Close(), "storage: close %s", path)
}

// LoadArray reads a matrix written by SaveArray.
func LoadArray(path string) (*mat.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "storage: open array %s", path)
	}
	defer f.Close() //nolint:errcheck

	var m mat.Dense
	if _, err := m.UnmarshalBinaryFrom(bufio.NewReader(f)); err != nil {
		return nil, eris.Wrapf(err, "storage: decode array %s", path)
	}
	return &m, nil
}

// SaveObject writes v as a JSON envelope tagged with its kind.
func SaveObject(path string, v Persistable) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return eris.Wrapf(err, "storage: encode %s", v.ObjectKind())
	}
	data, err := json.Marshal(envelope{Kind: v.ObjectKind(), Version: objectVersion, Payload: payload})
	if err != nil {
		return eris.Wrapf(err, "storage: encode envelope for %s", v.ObjectKind())
	}

	f, err := createFile(path)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close() //nolint:errcheck,gosec
		return eris.Wrapf(err, "storage: write %s", path)
	}
	return eris.Wrapf(f.Close(), "storage: close %s", path)
}

// LoadObject reads an envelope written by SaveObject into v. The stored kind
// must match v's kind.
func LoadObject(path string, v Persistable) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrapf(err, "storage: read object %s", path)
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return eris.Wrapf(err, "storage: decode envelope %s", path)
	}
	if env.Kind != v.ObjectKind() {
		return eris.Errorf("storage: %s holds a %q, want %q", path, env.Kind, v.ObjectKind())
	}
	if env.Version != objectVersion {
		return eris.Errorf("storage: %s has unsupported version %d", path, env.Version)
	}
	if err := json.Unmarshal(env.Payload, v); err != nil {
		return eris.Wrapf(err, "storage: decode %s payload", env.Kind)
	}
	return nil
}

// WriteYAML writes v as a YAML document, replacing any existing file.
func WriteYAML(path string, v any) error {
	f, err := createFile(path)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		f.Close() //nolint:errcheck,gosec
		return eris.Wrapf(err, "storage: encode yaml %s", path)
	}
	if err := enc.Close(); err != nil {
		f.Close() //nolint:errcheck,gosec
		return eris.Wrapf(err, "storage: flush yaml %s", path)
	}
	return eris.Wrapf(f.Close(), "storage: close %s", path)
}
