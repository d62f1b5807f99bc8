// Package rebuild maps changed source files to the pages built from them and
// rebuilds exactly those pages.
//
// Each handler normalises the changed path to a registry key relative to its
// root directory. A path outside the root is passed through unchanged and so
// matches nothing. Render and data failures are logged and swallowed: the
// handler returns the outputs written before the failure and the watch loop
// keeps going. Failures writing output are returned to the caller.
package rebuild

import (
	"context"
	"path/filepath"
	"strings"

	siteerrors "github.com/conneroisu/pagesmith/internal/errors"
	"github.com/conneroisu/pagesmith/internal/logging"
	"github.com/conneroisu/pagesmith/internal/metrics"
	"github.com/conneroisu/pagesmith/internal/page"
	"github.com/conneroisu/pagesmith/internal/registry"
)

// StillWatching is logged after every failed rebuild.
const StillWatching = "Still watching for changes"

// Handler reacts to a changed file.
type Handler interface {
	// Source names the kind of file the handler watches.
	Source() string
	// Root is the directory paths are made relative to.
	Root() string
	// OnChanged rebuilds the pages affected by path and returns their
	// output paths.
	OnChanged(ctx context.Context, path string) ([]string, error)
}

// PageBuilder is the part of the builder the handlers drive.
type PageBuilder interface {
	BuildMany(ctx context.Context, pages []*page.Page) ([]string, error)
	Refresh(ctx context.Context, pages []*page.Page) error
}

// base holds what every handler shares.
type base struct {
	source   string
	root     string
	registry *registry.DependencyRegistry
	builder  PageBuilder
	recorder metrics.Recorder
	logger   logging.Logger
}

func newBase(source, root string, reg *registry.DependencyRegistry, builder PageBuilder, recorder metrics.Recorder, logger logging.Logger) base {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return base{
		source:   source,
		root:     root,
		registry: reg,
		builder:  builder,
		recorder: recorder,
		logger:   logger.WithComponent("rebuild").With("source", source),
	}
}

func (b *base) Source() string { return b.source }

func (b *base) Root() string { return b.root }

// Normalize returns path relative to root in slash form. A path outside
// root is returned unchanged.
func Normalize(root, path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return filepath.ToSlash(rel)
}

// rebuild builds pages and applies the failure policy.
func (b *base) rebuild(ctx context.Context, key string, pages []*page.Page) ([]string, error) {
	if len(pages) == 0 {
		return []string{}, nil
	}

	outputs, err := b.builder.BuildMany(ctx, pages)
	if outputs == nil {
		outputs = []string{}
	}

	if err != nil {
		b.recorder.IncRebuildFailure(b.source)
		b.recorder.IncRebuild(b.source, len(outputs))

		if !siteerrors.IsRecoverable(err) {
			return outputs, err
		}

		fields := []interface{}{"changed", key, "built", len(outputs)}
		if se, ok := siteerrors.As(err); ok {
			fields = append(fields, "destination", se.Destination, "file", se.FilePath)
		}
		b.logger.Error(ctx, err, "Rebuild failed", fields...)
		b.logger.Info(ctx, StillWatching)
		return outputs, nil
	}

	b.recorder.IncRebuild(b.source, len(outputs))
	b.logger.Info(ctx, "Pages rebuilt", "changed", key, "pages", len(outputs))
	return outputs, nil
}
