package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/conneroisu/pagesmith/internal/metrics"
	"github.com/conneroisu/pagesmith/internal/rebuild"
	"github.com/conneroisu/pagesmith/internal/watcher"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Aliases: []string{"w"},
	Short:   "Build, then rebuild affected pages on change",
	Long: `Build every page, then watch the templates, data and assets
directories. A change rebuilds only the pages that depend on the changed
file. Template, render and data errors are reported and watching continues.

Examples:
  pagesmith watch                          # Watch with default settings
  pagesmith watch --metrics-addr :9100     # Also expose Prometheus metrics`,
	RunE: runWatch,
}

var watchMetricsAddr string

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVar(&watchMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9100)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(false)
	if err != nil {
		return err
	}

	var recorder metrics.Recorder = metrics.NoopRecorder{}
	var promRegistry *prometheus.Registry
	if watchMetricsAddr != "" {
		promRegistry = prometheus.NewRegistry()
		recorder = metrics.NewPrometheusRecorder(promRegistry)
	}

	s, err := newSite(cfg, cmd.ErrOrStderr(), recorder)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if promRegistry != nil {
		server := &http.Server{
			Addr:              watchMetricsAddr,
			Handler:           metricsMux(promRegistry),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			fmt.Fprintf(cmd.OutOrStdout(), "📊 Serving metrics on %s/metrics\n", watchMetricsAddr)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				s.logger.Error(ctx, err, "Metrics server stopped")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}()
	}

	if _, err := fullBuild(cmd, s); err != nil {
		return err
	}

	return watchSite(ctx, cmd.OutOrStdout(), s, recorder)
}

func metricsMux(reg *prometheus.Registry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.HTTPHandler(reg))
	return mux
}

// watchSite subscribes the template, data and asset handlers and blocks
// until ctx is cancelled.
func watchSite(ctx context.Context, out io.Writer, s *site, recorder metrics.Recorder) error {
	fw, err := watcher.NewFileWatcher(s.logger)
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fw.Stop()
	fw.AddFilter(watcher.ExcludeDirFilter(s.cfg.Project.PublishDir))

	dispatcher := rebuild.NewDispatcher(s.logger)
	dispatcher.Notify = func(r rebuild.Result) {
		if r.Err != nil {
			fmt.Fprintf(out, "❌ %s %s: %v\n", r.Source, r.Event.Target(), r.Err)
			return
		}
		fmt.Fprintf(out, "🔄 %s %s: %d pages rebuilt in %v\n", r.Source, r.Event.Target(), len(r.Outputs), r.Duration.Round(time.Millisecond))
	}

	project := s.cfg.Project
	patterns := s.cfg.Build
	subscriptions := []struct {
		handler  rebuild.Handler
		patterns []string
	}{
		{rebuild.NewTemplateHandler(project.TemplatesDir, s.registry, s.builder, recorder, s.logger), patterns.TemplatePatterns},
		{rebuild.NewDataHandler(project.DataDir, s.registry, s.builder, recorder, s.logger), patterns.DataPatterns},
		{rebuild.NewAssetHandler(project.AssetsDir, s.assets, s.registry, s.builder, recorder, s.logger), patterns.AssetPatterns},
	}

	fmt.Fprintln(out, "🔍 Setting up file watching...")
	for _, sub := range subscriptions {
		root := sub.handler.Root()
		if info, err := os.Stat(root); err != nil || !info.IsDir() {
			fmt.Fprintf(out, "   - Skipping %s (%s directory not found)\n", root, sub.handler.Source())
			continue
		}
		if err := fw.Watch(root, sub.patterns, true, dispatcher.Subscribe(ctx, sub.handler)); err != nil {
			return fmt.Errorf("failed to watch %s: %w", root, err)
		}
		fmt.Fprintf(out, "   - Watching: %s\n", root)
	}

	if err := fw.Start(ctx); err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}

	fmt.Fprintln(out, "👀 Watching for changes... (Press Ctrl+C to stop)")
	<-ctx.Done()
	fmt.Fprintln(out, "\n🛑 Stopping file watcher...")

	return nil
}
