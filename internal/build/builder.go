// Package build scans pages into the dependency registry and renders them
// into the publish directory.
//
// Builds are sequential. BuildMany renders and writes pages one after the
// other in the order given and stops at the first failure, returning the
// outputs that were written before it.
package build

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/a-h/templ"
	"github.com/conneroisu/pagesmith/internal/data"
	siteerrors "github.com/conneroisu/pagesmith/internal/errors"
	"github.com/conneroisu/pagesmith/internal/logging"
	"github.com/conneroisu/pagesmith/internal/markdown"
	"github.com/conneroisu/pagesmith/internal/metrics"
	"github.com/conneroisu/pagesmith/internal/page"
	"github.com/conneroisu/pagesmith/internal/registry"
)

// Options configures a Builder.
type Options struct {
	// PublishDir is the output root.
	PublishDir string
	// Globals are merged into every render context before the page's own
	// context.
	Globals map[string]interface{}
	// DryRun runs every step except the final write.
	DryRun   bool
	Recorder metrics.Recorder
}

// Builder owns the scan and build steps.
type Builder struct {
	renderer  page.Renderer
	resolver  page.CompositionResolver
	registry  *registry.DependencyRegistry
	loader    *data.Loader
	converter *markdown.Converter
	opts      Options
	stats     *Stats
	logger    logging.Logger
}

// NewBuilder creates a builder. The registry is shared with the change
// handlers that call back into the builder.
func NewBuilder(
	renderer page.Renderer,
	resolver page.CompositionResolver,
	reg *registry.DependencyRegistry,
	loader *data.Loader,
	opts Options,
	logger logging.Logger,
) *Builder {
	if opts.Recorder == nil {
		opts.Recorder = metrics.NoopRecorder{}
	}
	if opts.Globals == nil {
		opts.Globals = make(map[string]interface{})
	}
	return &Builder{
		renderer:  renderer,
		resolver:  resolver,
		registry:  reg,
		loader:    loader,
		converter: markdown.NewConverter(),
		opts:      opts,
		stats:     NewStats(),
		logger:    logger.WithComponent("builder"),
	}
}

// Registry returns the dependency registry.
func (b *Builder) Registry() *registry.DependencyRegistry {
	return b.registry
}

// Stats returns the build counters.
func (b *Builder) Stats() StatsSnapshot {
	return b.stats.Snapshot()
}

// DryRun reports whether writes are skipped.
func (b *Builder) DryRun() bool {
	return b.opts.DryRun
}

// Scan rebuilds the registry from scratch for pages and returns every
// template encountered, without duplicates, in first-seen order. Pages are
// registered into a staging registry that replaces the shared one only when
// every page scanned, so a failed scan leaves the previous associations in
// place.
func (b *Builder) Scan(ctx context.Context, pages []*page.Page) ([]string, error) {
	op := logging.StartOperation(b.logger, "scan")

	staging := registry.NewDependencyRegistry(b.logger)
	names, err := register(staging, b.resolver, pages)
	if err != nil {
		op.EndWithError(ctx, err, "pages", len(pages))
		return nil, err
	}
	b.registry.Replace(staging)

	b.opts.Recorder.ObserveScan(op.Elapsed(), len(names))
	op.End(ctx, "pages", len(pages), "templates", len(names))
	return names, nil
}

// Refresh registers pages again without clearing the registry, so that
// templates they started to include are tracked. Links they dropped stay.
func (b *Builder) Refresh(ctx context.Context, pages []*page.Page) error {
	if _, err := register(b.registry, b.resolver, pages); err != nil {
		return err
	}
	b.logger.Debug(ctx, "Registry refreshed", "pages", len(pages))
	return nil
}

func register(reg *registry.DependencyRegistry, resolver page.CompositionResolver, pages []*page.Page) ([]string, error) {
	seen := make(map[string]bool)
	names := make([]string, 0)

	for _, p := range pages {
		deps, err := p.DiscoverDependencies(resolver)
		if err != nil {
			if se, ok := siteerrors.As(err); ok {
				se.WithDestination(p.Destination())
			}
			return nil, err
		}

		reg.Register(p, deps.Templates)
		reg.RegisterData(p, deps.Datas)

		for _, name := range deps.Templates {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	return names, nil
}

// Build renders p and writes it under the publish directory. It returns the
// absolute output path, which is also returned in dry-run mode.
func (b *Builder) Build(ctx context.Context, p *page.Page) (string, error) {
	start := time.Now()
	out, err := b.build(ctx, p)
	d := time.Since(start)

	b.stats.Record(d, err)
	b.opts.Recorder.ObservePageBuild(string(p.Kind), d, err == nil)

	if err != nil {
		return "", err
	}
	b.logger.Debug(ctx, "Page built", "destination", p.Destination(), "output", out, "duration_ms", d.Milliseconds())
	return out, nil
}

func (b *Builder) build(ctx context.Context, p *page.Page) (string, error) {
	dest := p.Destination()

	out, err := filepath.Abs(filepath.Join(b.opts.PublishDir, filepath.FromSlash(dest)))
	if err != nil {
		return "", siteerrors.NewIOError(siteerrors.ErrCodeWriteFailed, "cannot resolve output path", err).WithDestination(dest)
	}

	vars, err := b.vars(p)
	if err != nil {
		return "", withDestination(err, dest)
	}

	component := p.Component(b.renderer, vars)

	if b.opts.DryRun {
		if err := component.Render(ctx, io.Discard); err != nil {
			return "", withDestination(err, dest)
		}
		return out, nil
	}

	if err := writeComponent(ctx, out, component); err != nil {
		return "", withDestination(err, dest)
	}
	return out, nil
}

// writeComponent streams component into a temporary file next to out and
// renames it into place, so a failed render leaves the previous output
// untouched and readers never see a partial page.
func writeComponent(ctx context.Context, out string, component templ.Component) error {
	dir := filepath.Dir(out)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return siteerrors.ErrWriteFailed(out, err)
	}

	tmp, err := os.CreateTemp(dir, ".pagesmith-*.tmp")
	if err != nil {
		return siteerrors.ErrWriteFailed(out, err)
	}
	defer os.Remove(tmp.Name())

	if err := component.Render(ctx, tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return siteerrors.ErrWriteFailed(out, err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return siteerrors.ErrWriteFailed(out, err)
	}
	if err := os.Rename(tmp.Name(), out); err != nil {
		return siteerrors.ErrWriteFailed(out, err)
	}
	return nil
}

// vars assembles the render context, loading data files and the document
// source.
func (b *Builder) vars(p *page.Page) (map[string]interface{}, error) {
	vars := p.Vars(b.opts.Globals)

	loaded, err := b.loader.LoadAll(p.Datas)
	if err != nil {
		return nil, err
	}
	vars[page.VarData] = loaded

	if p.Kind == page.KindDocument {
		doc, err := b.converter.Load(b.loader.Path(p.Source))
		if err != nil {
			return nil, err
		}
		vars[page.VarContent] = doc.HTML
		vars[page.VarMeta] = doc.Meta
	}
	return vars, nil
}

func withDestination(err error, dest string) error {
	if se, ok := siteerrors.As(err); ok {
		if se.Destination == "" {
			se.WithDestination(dest)
		}
		return err
	}
	return fmt.Errorf("build %s: %w", dest, err)
}

// BuildMany builds pages in order. On failure it returns the outputs
// written so far together with the error.
func (b *Builder) BuildMany(ctx context.Context, pages []*page.Page) ([]string, error) {
	if len(pages) == 0 {
		b.logger.Info(ctx, "No pages to build")
		return []string{}, nil
	}

	outputs := make([]string, 0, len(pages))
	for _, p := range pages {
		out, err := b.Build(ctx, p)
		if err != nil {
			return outputs, err
		}
		outputs = append(outputs, out)
	}
	return outputs, nil
}

// BuildAll builds every registered page.
func (b *Builder) BuildAll(ctx context.Context) ([]string, error) {
	op := logging.StartOperation(b.logger, "build")

	outputs, err := b.BuildMany(ctx, b.registry.Pages())
	if err != nil {
		op.EndWithError(ctx, err, "built", len(outputs))
		return outputs, err
	}

	op.End(ctx, "built", len(outputs), "dry_run", b.opts.DryRun)
	return outputs, nil
}
