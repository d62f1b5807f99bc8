package templates

import (
	"context"
	"html/template"
	"strings"
	"testing"
	"testing/fstest"

	siteerrors "github.com/conneroisu/pagesmith/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func siteFS() fstest.MapFS {
	return fstest.MapFS{
		"base.html": {Data: []byte(
			`<html><head><title>{{.title}}</title></head><body>` +
				`{{template "partials/nav.html" .}}{{block "content" .}}default{{end}}</body></html>`)},
		"partials/nav.html": {Data: []byte(`<nav>{{.language.Code}}</nav>`)},
		"index.html": {Data: []byte(
			`{{template "base.html" .}}{{define "content"}}<main>{{.body}}</main>{{end}}`)},
		"other.html":     {Data: []byte(`<p>{{template "missing-block" .}}</p>{{define "missing-block"}}x{{end}}`)},
		"pending.html":   {Data: []byte(`A{{template "partials/later.html" .}}{{template "sidebar" .}}B`)},
		"broken.html":    {Data: []byte(`{{if .x}}unterminated`)},
		"badexec.html":   {Data: []byte(`{{index .list 5}}`)},
		"uses-func.html": {Data: []byte(`<a href="{{rel .relative_position "/css/site.css"}}">{{shout .title}}</a>`)},
	}
}

func TestDirectReferences(t *testing.T) {
	engine := NewHTMLEngine(siteFS())

	testCases := []struct {
		name     string
		expected []string
	}{
		{"index.html", []string{"base.html"}},
		{"base.html", []string{"partials/nav.html"}},
		{"partials/nav.html", []string{}},
		{"other.html", []string{}},
		{"pending.html", []string{"partials/later.html"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			refs, err := engine.DirectReferences(tc.name)
			require.NoError(t, err)
			assert.ElementsMatch(t, tc.expected, refs)
		})
	}
}

func TestDirectReferencesOrderAndBranches(t *testing.T) {
	fsys := fstest.MapFS{
		"page.html": {Data: []byte(
			`{{if .a}}{{template "b.html" .}}{{else}}{{template "a.html" .}}{{end}}` +
				`{{range .items}}{{template "b.html" .}}{{end}}{{with .x}}{{template "c.html" .}}{{end}}` +
				`{{define "local"}}{{template "d.html" .}}{{end}}`)},
		"a.html": {Data: []byte(`a`)},
		"b.html": {Data: []byte(`b`)},
		"c.html": {Data: []byte(`c`)},
		"d.html": {Data: []byte(`d`)},
	}

	refs, err := NewHTMLEngine(fsys).DirectReferences("page.html")
	require.NoError(t, err)
	assert.Equal(t, []string{"b.html", "a.html", "c.html", "d.html"}, refs)
}

func TestDirectReferencesErrors(t *testing.T) {
	engine := NewHTMLEngine(siteFS())

	_, err := engine.DirectReferences("nope.html")
	require.Error(t, err)
	se, ok := siteerrors.As(err)
	require.True(t, ok)
	assert.Equal(t, siteerrors.ErrCodeTemplateNotFound, se.Code)
	assert.True(t, se.Recoverable)

	_, err = engine.DirectReferences("broken.html")
	require.Error(t, err)
	assert.True(t, siteerrors.IsType(err, siteerrors.ErrorTypeTemplate))
}

func TestRenderComposition(t *testing.T) {
	engine := NewHTMLEngine(siteFS())

	out, err := engine.Render(context.Background(), "index.html", map[string]interface{}{
		"title":    "Home",
		"body":     "hello <world>",
		"language": struct{ Code string }{"fr_FR"},
	})
	require.NoError(t, err)

	assert.Contains(t, out, "<title>Home</title>")
	assert.Contains(t, out, "<nav>fr_FR</nav>")
	assert.Contains(t, out, "<main>hello &lt;world&gt;</main>")
	assert.NotContains(t, out, "default")
}

func TestRenderBaseUsesDefaultBlock(t *testing.T) {
	engine := NewHTMLEngine(siteFS())

	out, err := engine.Render(context.Background(), "base.html", map[string]interface{}{
		"language": struct{ Code string }{"en"},
	})
	require.NoError(t, err)
	assert.Contains(t, out, "default")
}

func TestRenderErrors(t *testing.T) {
	engine := NewHTMLEngine(siteFS())
	ctx := context.Background()

	_, err := engine.Render(ctx, "broken.html", nil)
	assert.True(t, siteerrors.IsType(err, siteerrors.ErrorTypeTemplate))

	_, err = engine.Render(ctx, "badexec.html", map[string]interface{}{"list": []int{1}})
	require.Error(t, err)
	assert.True(t, siteerrors.IsType(err, siteerrors.ErrorTypeRender))
	assert.True(t, siteerrors.IsRecoverable(err))

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = engine.Render(canceled, "index.html", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMissingIncludeIsTrackedButFailsToRender(t *testing.T) {
	engine := NewHTMLEngine(siteFS())

	closure, err := engine.Resolver().Composition("pending.html")
	require.NoError(t, err)
	assert.Equal(t, []string{"partials/later.html"}, closure)

	_, err = engine.Render(context.Background(), "pending.html", nil)
	require.Error(t, err)
	assert.True(t, siteerrors.IsType(err, siteerrors.ErrorTypeRender))
	assert.True(t, siteerrors.IsRecoverable(err))
}

func TestFileNamedBlockDefinedByChild(t *testing.T) {
	engine := NewHTMLEngine(fstest.MapFS{
		"layout.html": {Data: []byte(`<body>{{template "body.html" .}}</body>`)},
		"page.html":   {Data: []byte(`{{template "layout.html" .}}{{define "body.html"}}<p>{{.title}}</p>{{end}}`)},
	})

	closure, err := engine.Resolver().Composition("page.html")
	require.NoError(t, err)
	assert.Equal(t, []string{"layout.html", "body.html"}, closure)

	out, err := engine.Render(context.Background(), "page.html", map[string]interface{}{"title": "hi"})
	require.NoError(t, err)
	assert.Equal(t, "<body><p>hi</p></body>", out)
}

func TestRenderWithFuncs(t *testing.T) {
	engine := NewHTMLEngine(siteFS(), WithFuncs(template.FuncMap{
		"shout": strings.ToUpper,
	}))

	out, err := engine.Render(context.Background(), "uses-func.html", map[string]interface{}{
		"title":             "docs",
		"relative_position": "../../",
	})
	require.NoError(t, err)
	assert.Equal(t, `<a href="../../css/site.css">DOCS</a>`, out)
}

func TestComponent(t *testing.T) {
	engine := NewHTMLEngine(siteFS())

	var sb strings.Builder
	err := engine.Component("partials/nav.html", map[string]interface{}{
		"language": struct{ Code string }{"de"},
	}).Render(context.Background(), &sb)
	require.NoError(t, err)
	assert.Equal(t, "<nav>de</nav>", sb.String())
}

func TestExists(t *testing.T) {
	engine := NewHTMLEngine(siteFS())
	assert.True(t, engine.Exists("partials/nav.html"))
	assert.False(t, engine.Exists("partials"))
	assert.False(t, engine.Exists("../escape.html"))
}
