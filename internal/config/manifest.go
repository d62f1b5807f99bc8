package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	siteerrors "github.com/conneroisu/pagesmith/internal/errors"
	"github.com/conneroisu/pagesmith/internal/language"
	"github.com/conneroisu/pagesmith/internal/page"
	"gopkg.in/yaml.v3"
)

// LoadManifest decodes the page manifest at path. Unknown keys are
// rejected. An empty manifest declares no pages.
func LoadManifest(path string) ([]page.Spec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, siteerrors.NewConfigError(siteerrors.ErrCodeManifestInvalid, "cannot read page manifest: "+err.Error()).WithFile(path)
	}
	return ParseManifest(raw, path)
}

// ParseManifest decodes manifest bytes. name is used in error messages.
func ParseManifest(raw []byte, name string) ([]page.Spec, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(raw))
	decoder.KnownFields(true)

	var specs []page.Spec
	if err := decoder.Decode(&specs); err != nil {
		if errors.Is(err, io.EOF) {
			return []page.Spec{}, nil
		}
		return nil, siteerrors.NewConfigError(siteerrors.ErrCodeManifestInvalid, "invalid page manifest: "+err.Error()).WithFile(name)
	}
	return specs, nil
}

// BuildPages constructs the pages declared by specs, expanding multi-language
// entries. The first invalid entry stops construction.
func BuildPages(specs []page.Spec, defaultLanguage *language.Language) ([]*page.Page, error) {
	pages := make([]*page.Page, 0, len(specs))
	for i, spec := range specs {
		expanded, err := page.Expand(spec, defaultLanguage)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}
		pages = append(pages, expanded...)
	}
	return pages, nil
}

// LoadPages reads the configured manifest and constructs its pages.
func (c *Config) LoadPages() ([]*page.Page, error) {
	specs, err := LoadManifest(c.Project.PagesFile)
	if err != nil {
		return nil, err
	}

	lang, err := c.DefaultLanguage()
	if err != nil {
		return nil, err
	}

	return BuildPages(specs, lang)
}
