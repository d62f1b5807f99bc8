package assets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	siteerrors "github.com/conneroisu/pagesmith/internal/errors"
	"github.com/conneroisu/pagesmith/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEnvironment(t *testing.T, dryRun bool) (*Environment, string, string) {
	t.Helper()
	assetsDir := t.TempDir()
	publishDir := t.TempDir()

	require.NoError(t, os.MkdirAll(filepath.Join(assetsDir, "css"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(assetsDir, "css", "reset.css"), []byte("*{margin:0}"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(assetsDir, "css", "site.css"), []byte("body{color:red}"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(assetsDir, "app.js"), []byte("console.log(1)"), 0644))

	env := NewEnvironment(Options{
		AssetsDir:  assetsDir,
		PublishDir: publishDir,
		URL:        "/static/",
		DryRun:     dryRun,
	}, logging.NewNopLogger())

	require.NoError(t, env.Register(Bundle{Name: "site-css", Output: "css/site.min.css", Contents: []string{"css/reset.css", "./css/site.css"}}))
	require.NoError(t, env.Register(Bundle{Name: "app-js", Output: "js/app.js", Contents: []string{"app.js"}}))

	return env, assetsDir, publishDir
}

func TestRegisterValidation(t *testing.T) {
	env := NewEnvironment(Options{}, logging.NewNopLogger())

	err := env.Register(Bundle{Name: "empty", Output: "x.css"})
	assert.True(t, siteerrors.IsType(err, siteerrors.ErrorTypeConfig))

	require.NoError(t, env.Register(Bundle{Name: "a", Output: "a.css", Contents: []string{"a.css"}}))
	assert.Error(t, env.Register(Bundle{Name: "a", Output: "b.css", Contents: []string{"b.css"}}))
}

func TestPathToBundle(t *testing.T) {
	env, _, _ := newTestEnvironment(t, false)

	mapping := env.PathToBundle()
	assert.Equal(t, map[string]string{
		"css/reset.css": "site-css",
		"css/site.css":  "site-css",
		"app.js":        "app-js",
	}, mapping)

	name, ok := env.BundleFor("app.js")
	assert.True(t, ok)
	assert.Equal(t, "app-js", name)

	_, ok = env.BundleFor("unknown.css")
	assert.False(t, ok)

	assert.Equal(t, []string{"app-js", "site-css"}, env.Names())
	assert.Len(t, env.Bundles(), 2)
}

func TestResolveBuildsOutput(t *testing.T) {
	env, _, publishDir := newTestEnvironment(t, false)

	urls, err := env.Resolve("site-css")
	require.NoError(t, err)
	require.Len(t, urls, 1)
	assert.True(t, strings.HasPrefix(urls[0], "/static/css/site.min.css?v="))

	out, err := os.ReadFile(filepath.Join(publishDir, "css", "site.min.css"))
	require.NoError(t, err)
	assert.Equal(t, "*{margin:0}\nbody{color:red}", string(out))

	again, err := env.Resolve("site-css")
	require.NoError(t, err)
	assert.Equal(t, urls, again)
}

func TestResolveRebuildsStaleBundle(t *testing.T) {
	env, assetsDir, publishDir := newTestEnvironment(t, false)

	first, err := env.Resolve("site-css")
	require.NoError(t, err)

	output := filepath.Join(publishDir, "css", "site.min.css")
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(output, past, past))

	src := filepath.Join(assetsDir, "css", "site.css")
	require.NoError(t, os.WriteFile(src, []byte("body{color:blue}"), 0644))

	second, err := env.Resolve("site-css")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	out, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(out), "blue")
}

func TestResolveDryRun(t *testing.T) {
	env, _, publishDir := newTestEnvironment(t, true)

	urls, err := env.Resolve("app-js")
	require.NoError(t, err)
	assert.Len(t, urls, 1)
	assert.NoFileExists(t, filepath.Join(publishDir, "js", "app.js"))
}

func TestResolveErrors(t *testing.T) {
	env, assetsDir, _ := newTestEnvironment(t, false)

	_, err := env.Resolve("missing")
	require.Error(t, err)
	se, ok := siteerrors.As(err)
	require.True(t, ok)
	assert.Equal(t, siteerrors.ErrCodeBundleNotFound, se.Code)

	require.NoError(t, os.Remove(filepath.Join(assetsDir, "app.js")))
	_, err = env.Resolve("app-js")
	assert.True(t, siteerrors.IsType(err, siteerrors.ErrorTypeData))
}

func TestFuncs(t *testing.T) {
	env, _, _ := newTestEnvironment(t, true)
	fn, ok := env.Funcs()["asset_urls"].(func(string) ([]string, error))
	require.True(t, ok)

	urls, err := fn("app-js")
	require.NoError(t, err)
	assert.Len(t, urls, 1)
}
