// Package config provides configuration management for pagesmith using Viper
// for loading from files, environment variables and command-line flags.
//
// The configuration names the project directories, the site-wide render
// globals, the asset bundles and the watch patterns. Environment variables
// with the PAGESMITH_ prefix override file values. The page manifest is a
// separate YAML file decoded by LoadManifest.
package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/conneroisu/pagesmith/internal/assets"
	siteerrors "github.com/conneroisu/pagesmith/internal/errors"
	"github.com/conneroisu/pagesmith/internal/language"
	"github.com/conneroisu/pagesmith/internal/logging"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "PAGESMITH"

// envKeys are the scalar keys that can be overridden from the environment.
var envKeys = []string{
	"project.templates_dir",
	"project.data_dir",
	"project.assets_dir",
	"project.publish_dir",
	"project.pages_file",
	"site.default_language",
	"assets.url",
	"build.dry_run",
	"logging.level",
	"logging.format",
}

// EnvKeyReplacer maps nested keys to environment variable names.
func EnvKeyReplacer() *strings.Replacer {
	return strings.NewReplacer(".", "_")
}

// BindEnvs binds every overridable key so that Unmarshal sees environment
// values for keys absent from the config file.
func BindEnvs() error {
	for _, key := range envKeys {
		if err := viper.BindEnv(key); err != nil {
			return err
		}
	}
	return nil
}

type Config struct {
	Project ProjectConfig `mapstructure:"project" yaml:"project"`
	Site    SiteConfig    `mapstructure:"site" yaml:"site"`
	Assets  AssetsConfig  `mapstructure:"assets" yaml:"assets"`
	Build   BuildConfig   `mapstructure:"build" yaml:"build"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

type ProjectConfig struct {
	TemplatesDir string `mapstructure:"templates_dir" yaml:"templates_dir"`
	DataDir      string `mapstructure:"data_dir" yaml:"data_dir"`
	AssetsDir    string `mapstructure:"assets_dir" yaml:"assets_dir"`
	PublishDir   string `mapstructure:"publish_dir" yaml:"publish_dir"`
	PagesFile    string `mapstructure:"pages_file" yaml:"pages_file"`
}

type SiteConfig struct {
	// Globals are merged into every render context. Viper lower-cases
	// their keys.
	Globals         map[string]interface{} `mapstructure:"globals" yaml:"globals"`
	DefaultLanguage string                 `mapstructure:"default_language" yaml:"default_language"`
}

type AssetsConfig struct {
	URL     string                  `mapstructure:"url" yaml:"url"`
	Bundles map[string]BundleConfig `mapstructure:"bundles" yaml:"bundles"`
}

type BundleConfig struct {
	Output   string   `mapstructure:"output" yaml:"output"`
	Contents []string `mapstructure:"contents" yaml:"contents"`
}

type BuildConfig struct {
	DryRun           bool     `mapstructure:"dry_run" yaml:"dry_run"`
	TemplatePatterns []string `mapstructure:"template_patterns" yaml:"template_patterns"`
	DataPatterns     []string `mapstructure:"data_patterns" yaml:"data_patterns"`
	AssetPatterns    []string `mapstructure:"asset_patterns" yaml:"asset_patterns"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Load unmarshals the global viper state, applies defaults and validates
// the result.
func Load() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, siteerrors.NewConfigError(siteerrors.ErrCodeConfigInvalid, "cannot decode configuration: "+err.Error())
	}

	applyDefaults(&config)

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	var config Config
	applyDefaults(&config)
	return &config
}

func applyDefaults(config *Config) {
	if config.Project.TemplatesDir == "" {
		config.Project.TemplatesDir = "templates"
	}
	if config.Project.DataDir == "" {
		config.Project.DataDir = "data"
	}
	if config.Project.AssetsDir == "" {
		config.Project.AssetsDir = "assets"
	}
	if config.Project.PublishDir == "" {
		config.Project.PublishDir = "public"
	}
	if config.Project.PagesFile == "" {
		config.Project.PagesFile = "pages.yml"
	}

	if config.Site.Globals == nil {
		config.Site.Globals = make(map[string]interface{})
	}

	if config.Assets.URL == "" {
		config.Assets.URL = "/"
	}
	if config.Assets.Bundles == nil {
		config.Assets.Bundles = make(map[string]BundleConfig)
	}

	if len(config.Build.TemplatePatterns) == 0 {
		config.Build.TemplatePatterns = []string{"*.html"}
	}
	if len(config.Build.DataPatterns) == 0 {
		config.Build.DataPatterns = []string{"*.yml", "*.yaml", "*.json", "*.md"}
	}
	if len(config.Build.AssetPatterns) == 0 {
		config.Build.AssetPatterns = []string{"*"}
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}
	if config.Logging.Format == "" {
		config.Logging.Format = "text"
	}
}

// DefaultLanguage parses site.default_language. An empty code yields nil.
func (c *Config) DefaultLanguage() (*language.Language, error) {
	if c.Site.DefaultLanguage == "" {
		return nil, nil
	}
	lang, err := language.Parse(c.Site.DefaultLanguage)
	if err != nil {
		return nil, err
	}
	return &lang, nil
}

// LoggerConfig converts the logging section.
func (c *Config) LoggerConfig() (*logging.LoggerConfig, error) {
	level, err := logging.ParseLevel(c.Logging.Level)
	if err != nil {
		return nil, siteerrors.NewConfigError(siteerrors.ErrCodeConfigInvalid, err.Error())
	}
	lc := logging.DefaultConfig()
	lc.Level = level
	lc.Format = c.Logging.Format
	return lc, nil
}

// AssetOptions converts the asset settings.
func (c *Config) AssetOptions() assets.Options {
	return assets.Options{
		AssetsDir:  c.Project.AssetsDir,
		PublishDir: c.Project.PublishDir,
		URL:        c.Assets.URL,
		DryRun:     c.Build.DryRun,
	}
}

// Environment creates the asset environment with every configured bundle,
// registered in name order.
func (c *Config) Environment(logger logging.Logger) (*assets.Environment, error) {
	env := assets.NewEnvironment(c.AssetOptions(), logger)

	names := make([]string, 0, len(c.Assets.Bundles))
	for name := range c.Assets.Bundles {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		b := c.Assets.Bundles[name]
		if err := env.Register(assets.Bundle{Name: name, Output: b.Output, Contents: b.Contents}); err != nil {
			return nil, fmt.Errorf("assets config: %w", err)
		}
	}
	return env, nil
}
