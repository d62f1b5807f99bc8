package data

import (
	"os"
	"path/filepath"
	"testing"

	siteerrors "github.com/conneroisu/pagesmith/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "team.yml", "members:\n  - name: Ada\n  - name: Linus\n")
	writeFile(t, dir, "nested/site.json", `{"name": "Example", "year": 2026}`)
	writeFile(t, dir, "notes.txt", "plain text")

	loader := NewLoader(dir)

	team, err := loader.Load("team.yml")
	require.NoError(t, err)
	members := team.(map[string]interface{})["members"].([]interface{})
	assert.Len(t, members, 2)

	site, err := loader.Load("nested/site.json")
	require.NoError(t, err)
	assert.Equal(t, "Example", site.(map[string]interface{})["name"])
	assert.Equal(t, 2026, site.(map[string]interface{})["year"])

	notes, err := loader.Load("notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "plain text", notes)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.yml", "key: [unclosed")
	loader := NewLoader(dir)

	_, err := loader.Load("broken.yml")
	require.Error(t, err)
	se, ok := siteerrors.As(err)
	require.True(t, ok)
	assert.Equal(t, siteerrors.ErrorTypeData, se.Type)
	assert.Equal(t, "broken.yml", se.FilePath)
	assert.True(t, se.Recoverable)

	_, err = loader.Load("missing.yml")
	assert.True(t, siteerrors.IsType(err, siteerrors.ErrorTypeData))
}

func TestLoadAll(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yml", "a: 1")
	writeFile(t, dir, "b.yml", "b: 2")
	loader := NewLoader(dir)

	all, err := loader.LoadAll([]string{"a.yml", "b.yml"})
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, map[string]interface{}{"a": 1}, all["a.yml"])

	_, err = loader.LoadAll([]string{"a.yml", "nope.yml"})
	assert.Error(t, err)

	empty, err := loader.LoadAll(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
