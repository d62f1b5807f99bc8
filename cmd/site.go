package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/conneroisu/pagesmith/internal/assets"
	"github.com/conneroisu/pagesmith/internal/build"
	"github.com/conneroisu/pagesmith/internal/config"
	"github.com/conneroisu/pagesmith/internal/data"
	"github.com/conneroisu/pagesmith/internal/logging"
	"github.com/conneroisu/pagesmith/internal/metrics"
	"github.com/conneroisu/pagesmith/internal/page"
	"github.com/conneroisu/pagesmith/internal/registry"
	"github.com/conneroisu/pagesmith/internal/templates"
	"github.com/spf13/cobra"
)

// site bundles everything a command needs to build a project.
type site struct {
	cfg      *config.Config
	logger   logging.Logger
	assets   *assets.Environment
	engine   *templates.HTMLEngine
	registry *registry.DependencyRegistry
	builder  *build.Builder
	pages    []*page.Page
}

// loadConfig reads the viper state. Any failure here is fatal.
func loadConfig(dryRun bool) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if dryRun {
		cfg.Build.DryRun = true
	}
	return cfg, nil
}

// newSite wires the engine, registry and builder for cfg and loads the page
// manifest. Logs go to logOut.
func newSite(cfg *config.Config, logOut io.Writer, recorder metrics.Recorder) (*site, error) {
	lc, err := cfg.LoggerConfig()
	if err != nil {
		return nil, err
	}
	lc.Output = logOut
	logger := logging.NewLogger(lc)

	env, err := cfg.Environment(logger)
	if err != nil {
		return nil, err
	}

	engine := templates.NewDirEngine(cfg.Project.TemplatesDir, templates.WithFuncs(env.Funcs()))
	reg := registry.NewDependencyRegistry(logger)
	builder := build.NewBuilder(engine, engine.Resolver(), reg, data.NewLoader(cfg.Project.DataDir), build.Options{
		PublishDir: cfg.Project.PublishDir,
		Globals:    cfg.Site.Globals,
		DryRun:     cfg.Build.DryRun,
		Recorder:   recorder,
	}, logger)

	pages, err := cfg.LoadPages()
	if err != nil {
		return nil, fmt.Errorf("failed to load pages: %w", err)
	}

	return &site{
		cfg:      cfg,
		logger:   logger,
		assets:   env,
		engine:   engine,
		registry: reg,
		builder:  builder,
		pages:    pages,
	}, nil
}

// commandContext returns the command's context, or Background when the
// command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
