package config

import (
	"fmt"
	"path/filepath"
	"strings"

	siteerrors "github.com/conneroisu/pagesmith/internal/errors"
	"github.com/conneroisu/pagesmith/internal/language"
	"github.com/conneroisu/pagesmith/internal/logging"
)

// validateConfig validates configuration values for correctness
func validateConfig(config *Config) error {
	if err := validateProjectConfig(&config.Project); err != nil {
		return invalid("project config", err)
	}

	if err := validateSiteConfig(&config.Site); err != nil {
		return invalid("site config", err)
	}

	if err := validateAssetsConfig(&config.Assets); err != nil {
		return invalid("assets config", err)
	}

	if err := validateBuildConfig(&config.Build); err != nil {
		return invalid("build config", err)
	}

	if err := validateLoggingConfig(&config.Logging); err != nil {
		return invalid("logging config", err)
	}

	return nil
}

func invalid(section string, err error) error {
	return siteerrors.NewConfigError(
		siteerrors.ErrCodeConfigInvalid,
		fmt.Sprintf("invalid configuration: %s: %v", section, err),
	)
}

func validateProjectConfig(config *ProjectConfig) error {
	paths := map[string]string{
		"templates_dir": config.TemplatesDir,
		"data_dir":      config.DataDir,
		"assets_dir":    config.AssetsDir,
		"publish_dir":   config.PublishDir,
		"pages_file":    config.PagesFile,
	}
	for _, key := range []string{"templates_dir", "data_dir", "assets_dir", "publish_dir", "pages_file"} {
		if err := validatePath(paths[key]); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}

	if filepath.Clean(config.PublishDir) == filepath.Clean(config.TemplatesDir) {
		return fmt.Errorf("publish_dir must differ from templates_dir")
	}

	return nil
}

func validateSiteConfig(config *SiteConfig) error {
	if config.DefaultLanguage == "" {
		return nil
	}
	if _, err := language.Parse(config.DefaultLanguage); err != nil {
		return fmt.Errorf("default_language: %w", err)
	}
	return nil
}

func validateAssetsConfig(config *AssetsConfig) error {
	for name, bundle := range config.Bundles {
		if bundle.Output == "" {
			return fmt.Errorf("bundle %q has no output", name)
		}
		if len(bundle.Contents) == 0 {
			return fmt.Errorf("bundle %q has no contents", name)
		}
	}
	return nil
}

func validateBuildConfig(config *BuildConfig) error {
	groups := map[string][]string{
		"template_patterns": config.TemplatePatterns,
		"data_patterns":     config.DataPatterns,
		"asset_patterns":    config.AssetPatterns,
	}
	for key, patterns := range groups {
		for _, pattern := range patterns {
			if _, err := filepath.Match(pattern, ""); err != nil {
				return fmt.Errorf("%s: invalid pattern %q: %w", key, pattern, err)
			}
		}
	}
	return nil
}

func validateLoggingConfig(config *LoggingConfig) error {
	if _, err := logging.ParseLevel(config.Level); err != nil {
		return err
	}
	switch config.Format {
	case "text", "json":
		return nil
	default:
		return fmt.Errorf("unknown log format %q", config.Format)
	}
}

// validatePath validates a configured file path
func validatePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("empty path")
	}

	dangerousChars := []string{";", "&", "|", "$", "`", "<", ">", "\"", "'", "\x00"}
	for _, char := range dangerousChars {
		if strings.Contains(path, char) {
			return fmt.Errorf("path contains dangerous character: %q", char)
		}
	}

	return nil
}
