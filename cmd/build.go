package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/conneroisu/pagesmith/internal/metrics"
	"github.com/spf13/cobra"
)

var buildCmd = &cobra.Command{
	Use:     "build",
	Aliases: []string{"b"},
	Short:   "Build every page once",
	Long: `Build every page declared in the page manifest.

The dependency registry is populated first, then each page is rendered and
written under the publish directory. The first failing page stops the build.

Examples:
  pagesmith build              # Build all pages
  pagesmith build --dry-run    # Render everything without writing`,
	RunE: runBuild,
}

var buildDryRun bool

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().BoolVar(&buildDryRun, "dry-run", false, "Render pages without writing output")
}

func runBuild(cmd *cobra.Command, args []string) error {
	startTime := time.Now()
	out := cmd.OutOrStdout()

	cfg, err := loadConfig(buildDryRun)
	if err != nil {
		return err
	}

	s, err := newSite(cfg, cmd.ErrOrStderr(), metrics.NoopRecorder{})
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "🔨 Starting build...")

	outputs, err := fullBuild(cmd, s)
	if err != nil {
		return err
	}

	printBuildSummary(out, s, outputs, time.Since(startTime))
	return nil
}

// fullBuild scans every page and builds them all.
func fullBuild(cmd *cobra.Command, s *site) ([]string, error) {
	ctx := commandContext(cmd)

	names, err := s.builder.Scan(ctx, s.pages)
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "📁 Tracking %d templates across %d pages\n", len(names), s.registry.Len())

	outputs, err := s.builder.BuildAll(ctx)
	if err != nil {
		return outputs, fmt.Errorf("build failed after %d pages: %w", len(outputs), err)
	}
	return outputs, nil
}

func printBuildSummary(out io.Writer, s *site, outputs []string, duration time.Duration) {
	stats := s.builder.Stats()

	if s.builder.DryRun() {
		fmt.Fprintf(out, "✅ Dry run completed in %v\n", duration)
	} else {
		fmt.Fprintf(out, "✅ Build completed in %v\n", duration)
	}
	fmt.Fprintf(out, "   - %d pages rendered\n", len(outputs))
	fmt.Fprintf(out, "   - Average page time: %v\n", stats.AverageDuration)
	if !s.builder.DryRun() {
		fmt.Fprintf(out, "   - Output written to: %s\n", s.cfg.Project.PublishDir)
	}
}
