// Package cmd provides the pagesmith command-line interface.
//
// Configuration System:
//
//	Configuration is read from several sources with clear precedence:
//	1. Command-line flags (--config, --log-level, --dry-run) - highest priority
//	2. Individual environment variables (PAGESMITH_PROJECT_PUBLISH_DIR, etc.)
//	3. PAGESMITH_CONFIG_FILE environment variable - custom config file path
//	4. Configuration file (.pagesmith.yml) - lowest priority
//
// A .env file in the working directory is loaded before any of the above,
// so PAGESMITH_ variables can live next to the project.
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/conneroisu/pagesmith/internal/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pagesmith",
	Short: "Static site generator with incremental rebuilds",
	Long: `Pagesmith renders pages from html/template files, YAML/JSON data and
markdown documents. In watch mode it tracks which pages depend on which
templates, data files and asset bundles, and rebuilds only the affected
pages when one of them changes.

Quick Start:
  pagesmith build                 Build every page in pages.yml
  pagesmith watch                 Build, then rebuild on change
  pagesmith deps                  Show template and data dependencies
  pagesmith version               Show version information`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .pagesmith.yml, can also use PAGESMITH_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "", "log level (debug, info, warn, error)")
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// initConfig points viper at the configuration file and environment.
//
// Configuration file lookup (highest to lowest):
//  1. --config flag
//  2. PAGESMITH_CONFIG_FILE environment variable
//  3. .pagesmith.yml in the current directory
//
// A missing file is not an error; defaults apply.
func initConfig() {
	if err := loadDotEnv(".env"); err != nil {
		fmt.Fprintln(os.Stderr, "Cannot load .env:", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv(config.EnvPrefix + "_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".pagesmith")
	}

	viper.SetEnvPrefix(config.EnvPrefix)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(config.EnvKeyReplacer())
	if err := config.BindEnvs(); err != nil {
		fmt.Fprintln(os.Stderr, "Cannot bind environment:", err)
	}

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadDotEnv loads path into the environment without overriding variables
// that are already set. A missing file is not an error.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
