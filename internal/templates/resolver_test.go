package templates

import (
	"errors"
	"io/fs"
	"testing"
	"testing/fstest"

	siteerrors "github.com/conneroisu/pagesmith/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type graphFinder map[string][]string

func (g graphFinder) DirectReferences(name string) ([]string, error) {
	refs, ok := g[name]
	if !ok {
		return nil, errors.New("unknown template " + name)
	}
	return refs, nil
}

func TestCompositionExtendsInclude(t *testing.T) {
	resolver := NewResolver(graphFinder{
		"T": {"B"},
		"B": {"I"},
		"I": {},
	})

	closure, err := resolver.Composition("T")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"B", "I"}, closure)
}

func TestCompositionDepthFirstPreOrder(t *testing.T) {
	resolver := NewResolver(graphFinder{
		"page":    {"layout", "sidebar"},
		"layout":  {"nav", "footer"},
		"sidebar": {"nav", "widget"},
		"nav":     {},
		"footer":  {},
		"widget":  {},
	})

	closure, err := resolver.Composition("page")
	require.NoError(t, err)
	assert.Equal(t, []string{"layout", "nav", "footer", "sidebar", "widget"}, closure)
}

func TestCompositionCycleTerminates(t *testing.T) {
	resolver := NewResolver(graphFinder{
		"a": {"b"},
		"b": {"c", "a"},
		"c": {"b"},
	})

	closure, err := resolver.Composition("a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, closure)

	self := NewResolver(graphFinder{"loop": {"loop"}})
	closure, err = self.Composition("loop")
	require.NoError(t, err)
	assert.Empty(t, closure)
}

func TestCompositionPropagatesErrors(t *testing.T) {
	resolver := NewResolver(graphFinder{"a": {"missing"}})
	_, err := resolver.Composition("a")
	assert.Error(t, err)
}

// missingFinder reports names absent from the graph as missing files.
type missingFinder map[string][]string

func (g missingFinder) DirectReferences(name string) ([]string, error) {
	refs, ok := g[name]
	if !ok {
		return nil, siteerrors.ErrTemplateNotFound(name, fs.ErrNotExist)
	}
	return refs, nil
}

func TestCompositionKeepsMissingReferencesAsLeaves(t *testing.T) {
	resolver := NewResolver(missingFinder{
		"index.html": {"base.html", "partials/new.html"},
		"base.html":  {"partials/nav.html"},
	})

	closure, err := resolver.Composition("index.html")
	require.NoError(t, err)
	assert.Equal(t, []string{"base.html", "partials/nav.html", "partials/new.html"}, closure)

	_, err = resolver.Composition("absent.html")
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestClosure(t *testing.T) {
	resolver := NewResolver(graphFinder{
		"index.html": {"base.html"},
		"about.html": {"base.html"},
		"base.html":  {"nav.html"},
		"nav.html":   {},
	})

	names, err := resolver.Closure("index.html", "about.html")
	require.NoError(t, err)
	assert.Equal(t, []string{"index.html", "base.html", "nav.html", "about.html"}, names)
}

func TestEngineResolverOnFiles(t *testing.T) {
	engine := NewHTMLEngine(fstest.MapFS{
		"T.html":       {Data: []byte(`{{template "B.html" .}}{{define "body"}}t{{end}}`)},
		"B.html":       {Data: []byte(`{{template "inc/I.html" .}}{{block "body" .}}{{end}}`)},
		"inc/I.html":   {Data: []byte(`i`)},
		"cycle/a.html": {Data: []byte(`{{template "cycle/b.html" .}}`)},
		"cycle/b.html": {Data: []byte(`{{template "cycle/a.html" .}}`)},
	})

	closure, err := engine.Resolver().Composition("T.html")
	require.NoError(t, err)
	assert.Equal(t, []string{"B.html", "inc/I.html"}, closure)

	closure, err = engine.Resolver().Composition("cycle/a.html")
	require.NoError(t, err)
	assert.Equal(t, []string{"cycle/b.html"}, closure)
}
