package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/conneroisu/pagesmith/internal/version"
	"github.com/spf13/cobra"
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long: `Display the pagesmith version, commit, build time, Go version and
target platform.

Examples:
  pagesmith version            # Human-readable output
  pagesmith version -f json    # JSON output`,
	RunE: runVersionCommand,
}

var versionFormat = newFormatValue("text", "text", "json")

func init() {
	rootCmd.AddCommand(versionCmd)

	addFormatFlag(versionCmd.Flags(), "format", "f", versionFormat)
}

func runVersionCommand(cmd *cobra.Command, args []string) error {
	info := version.Get()
	out := cmd.OutOrStdout()

	if versionFormat.String() == "json" {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(info)
	}

	writeVersionText(out, info)
	return nil
}

func writeVersionText(out io.Writer, info *version.BuildInfo) {
	fmt.Fprintln(out, info.Short())
	if !info.BuildTime.IsZero() {
		fmt.Fprintf(out, "Built: %s\n", info.BuildTime.UTC().Format("2006-01-02 15:04:05 UTC"))
	}
	fmt.Fprintf(out, "Go: %s\n", info.GoVersion)
	fmt.Fprintf(out, "Platform: %s\n", info.Platform)
}
