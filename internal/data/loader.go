// Package data loads the auxiliary data files pages declare as explicit
// dependencies.
package data

import (
	"os"
	"path/filepath"
	"strings"

	siteerrors "github.com/conneroisu/pagesmith/internal/errors"
	"gopkg.in/yaml.v3"
)

// Loader reads data files relative to a root directory.
type Loader struct {
	root string
}

// NewLoader creates a loader rooted at dir.
func NewLoader(dir string) *Loader {
	return &Loader{root: dir}
}

// Root returns the data directory.
func (l *Loader) Root() string {
	return l.root
}

// Path returns the filesystem path of a data file key.
func (l *Loader) Path(rel string) string {
	return filepath.Join(l.root, filepath.FromSlash(rel))
}

// Load decodes one data file. YAML and JSON files are decoded into plain Go
// values (JSON through the YAML decoder); any other file is returned as its
// text.
func (l *Loader) Load(rel string) (interface{}, error) {
	path := l.Path(rel)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, siteerrors.NewDataError("cannot read data file", err).WithFile(rel)
	}

	switch strings.ToLower(filepath.Ext(rel)) {
	case ".yml", ".yaml", ".json":
		var value interface{}
		if err := yaml.Unmarshal(raw, &value); err != nil {
			return nil, siteerrors.NewDataError("cannot decode data file", err).WithFile(rel)
		}
		return value, nil
	default:
		return string(raw), nil
	}
}

// LoadAll loads every file in rels, keyed by its path. The first failure
// stops the load.
func (l *Loader) LoadAll(rels []string) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(rels))
	for _, rel := range rels {
		value, err := l.Load(rel)
		if err != nil {
			return nil, err
		}
		out[rel] = value
	}
	return out, nil
}
