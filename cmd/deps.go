package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"text/tabwriter"

	"github.com/conneroisu/pagesmith/internal/metrics"
	"github.com/conneroisu/pagesmith/internal/registry"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var depsCmd = &cobra.Command{
	Use:     "deps [source...]",
	Aliases: []string{"d"},
	Short:   "Show which pages depend on which templates and data files",
	Long: `Scan the page manifest and print the dependency indices: for every
template and data file, the destinations of the pages that would be rebuilt
when it changes. Nothing is rendered. With arguments, only the listed
templates (relative to the templates directory) and data files (relative to
the data directory) are shown.

Examples:
  pagesmith deps                       # Table output
  pagesmith deps -o json               # JSON output
  pagesmith deps -o yaml               # YAML output
  pagesmith deps base.html site.yml    # Pages affected by these files`,
	RunE: runDeps,
}

var depsFormat = newFormatValue("table", "table", "json", "yaml")

func init() {
	rootCmd.AddCommand(depsCmd)

	addFormatFlag(depsCmd.Flags(), "output", "o", depsFormat)
}

func runDeps(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(true)
	if err != nil {
		return err
	}

	s, err := newSite(cfg, cmd.ErrOrStderr(), metrics.NoopRecorder{})
	if err != nil {
		return err
	}

	if _, err := s.builder.Scan(commandContext(cmd), s.pages); err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	snapshot := s.registry.Snapshot()
	if len(args) > 0 {
		snapshot = sourcesSnapshot(s.registry, args)
	}
	return writeSnapshot(cmd.OutOrStdout(), snapshot, depsFormat.String())
}

// sourcesSnapshot restricts the indices to the given template names and
// data paths. A source may be both.
func sourcesSnapshot(reg *registry.DependencyRegistry, sources []string) registry.Snapshot {
	snapshot := registry.Snapshot{
		Templates: make(map[string][]string),
		Datas:     make(map[string][]string),
	}
	for _, source := range sources {
		key := filepath.ToSlash(filepath.Clean(source))
		if dests := reg.DestinationsForTemplate(key); len(dests) > 0 {
			snapshot.Templates[key] = dests
		}
		if dests := reg.DestinationsForData(key); len(dests) > 0 {
			snapshot.Datas[key] = dests
		}
	}
	return snapshot
}

func writeSnapshot(out io.Writer, snapshot registry.Snapshot, format string) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(snapshot)
	case "yaml":
		encoder := yaml.NewEncoder(out)
		encoder.SetIndent(2)
		if err := encoder.Encode(snapshot); err != nil {
			return err
		}
		return encoder.Close()
	default:
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "KIND\tSOURCE\tPAGES")
		writeIndex(w, "template", snapshot.Templates)
		writeIndex(w, "data", snapshot.Datas)
		return w.Flush()
	}
}

func writeIndex(w io.Writer, kind string, index map[string][]string) {
	keys := make([]string, 0, len(index))
	for k := range index {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		for i, dest := range index[k] {
			source := k
			if i > 0 {
				source = ""
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", kind, source, dest)
		}
	}
}
