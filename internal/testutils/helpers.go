package testutils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/conneroisu/pagesmith/internal/config"
	"github.com/stretchr/testify/require"
)

// CreateTempProject creates a temporary project structure for testing
func CreateTempProject(t *testing.T) string {
	t.Helper()
	tempDir := t.TempDir()

	dirs := []string{
		"templates/partials",
		"data",
		"assets/css",
		"public",
	}

	for _, dir := range dirs {
		err := os.MkdirAll(filepath.Join(tempDir, dir), 0755)
		require.NoError(t, err)
	}

	return tempDir
}

// WriteFile writes content to path, creating parent directories.
func WriteFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// CreateTestTemplate creates a template file under the project's templates
// directory. name is slash-separated.
func CreateTestTemplate(t *testing.T, projectDir, name, content string) string {
	t.Helper()
	return WriteFile(t, filepath.Join(projectDir, "templates", filepath.FromSlash(name)), content)
}

// CreateTestData creates a data file under the project's data directory.
func CreateTestData(t *testing.T, projectDir, name, content string) string {
	t.Helper()
	return WriteFile(t, filepath.Join(projectDir, "data", filepath.FromSlash(name)), content)
}

// CreateTestConfig creates a test configuration
func CreateTestConfig(projectDir string) *config.Config {
	return &config.Config{
		Project: config.ProjectConfig{
			TemplatesDir: filepath.Join(projectDir, "templates"),
			DataDir:      filepath.Join(projectDir, "data"),
			AssetsDir:    filepath.Join(projectDir, "assets"),
			PublishDir:   filepath.Join(projectDir, "public"),
			PagesFile:    filepath.Join(projectDir, "pages.yml"),
		},
		Site: config.SiteConfig{
			Globals:         map[string]interface{}{"site_name": "Test Site"},
			DefaultLanguage: "en",
		},
		Assets: config.AssetsConfig{
			URL: "/",
			Bundles: map[string]config.BundleConfig{
				"site-css": {
					Output:   "css/site.css",
					Contents: []string{"css/reset.css", "css/main.css"},
				},
			},
		},
		Build: config.BuildConfig{
			TemplatePatterns: []string{"*.html"},
			DataPatterns:     []string{"*.yml", "*.yaml", "*.json", "*.md"},
			AssetPatterns:    []string{"*"},
		},
		Logging: config.LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// StandardTemplates is a small site: index and about extend base, base
// includes the nav partial, other stands alone.
var StandardTemplates = map[string]string{
	"base.html": `<!DOCTYPE html>
<html lang="{{.language.Code}}">
<head><title>{{.title}}</title></head>
<body>
{{template "partials/nav.html" .}}
{{block "content" .}}{{end}}
</body>
</html>`,
	"partials/nav.html": `<nav><a href="{{.relative_position}}index.html">Home</a></nav>`,
	"index.html":        `{{define "content"}}<h1>{{.title}}</h1>{{end}}{{template "base.html" .}}`,
	"about.html":        `{{define "content"}}<h1>About {{.site_name}}</h1>{{end}}{{template "base.html" .}}`,
	"other.html":        `<p>{{.title}}</p>`,
}

// StandardManifest declares one page per standard template.
const StandardManifest = `- title: Home
  template: index.html
  destination: index.html
- title: About
  template: about.html
  destination: about/index.html
- title: Other
  template: other.html
  destination: other.html
  datas:
    - site.yml
`

// CreateStandardSite creates a project populated with StandardTemplates, a
// data file, two stylesheets and StandardManifest.
func CreateStandardSite(t *testing.T) string {
	t.Helper()
	projectDir := CreateTempProject(t)

	for name, content := range StandardTemplates {
		CreateTestTemplate(t, projectDir, name, content)
	}
	CreateTestData(t, projectDir, "site.yml", "name: Test Site\n")
	WriteFile(t, filepath.Join(projectDir, "assets", "css", "reset.css"), "*{margin:0}")
	WriteFile(t, filepath.Join(projectDir, "assets", "css", "main.css"), "body{color:#333}")
	WriteFile(t, filepath.Join(projectDir, "pages.yml"), StandardManifest)

	return projectDir
}

// AssertFilePermissions checks that files have the expected permissions
func AssertFilePermissions(t *testing.T, path string, expectedMode os.FileMode) {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)

	actualMode := info.Mode()
	require.Equal(t, expectedMode, actualMode&os.FileMode(0777),
		"File %s has incorrect permissions: got %o, want %o",
		path, actualMode&os.FileMode(0777), expectedMode)
}

// WaitForFileChange waits for a file to be modified (useful for testing file watchers)
func WaitForFileChange(
	t *testing.T,
	filePath string,
	originalModTime time.Time,
	timeout time.Duration,
) {
	t.Helper()
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		info, err := os.Stat(filePath)
		if err == nil && info.ModTime().After(originalModTime) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Fatalf("File %s was not modified within %v", filePath, timeout)
}
