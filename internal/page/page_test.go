package page

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/a-h/templ"
	siteerrors "github.com/conneroisu/pagesmith/internal/errors"
	"github.com/conneroisu/pagesmith/internal/language"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultLanguage() *language.Language {
	lang := language.MustParse("en_US")
	return &lang
}

func TestNewRequiredAttributes(t *testing.T) {
	testCases := []struct {
		name      string
		spec      Spec
		attribute string
	}{
		{"missing title", Spec{Template: "index.html", Destination: "index.html"}, "title"},
		{"missing destination", Spec{Title: "Home", Template: "index.html"}, "destination"},
		{"missing template", Spec{Title: "Home", Destination: "index.html"}, "template"},
		{"document without source", Spec{Title: "Doc", Kind: KindDocument, Destination: "doc.html"}, "source"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.spec, defaultLanguage())
			require.Error(t, err)

			se, ok := siteerrors.As(err)
			require.True(t, ok)
			assert.Equal(t, siteerrors.ErrorTypeConfig, se.Type)
			assert.Equal(t, tc.attribute, se.Context["attribute"])
		})
	}
}

func TestNewUnknownKind(t *testing.T) {
	_, err := New(Spec{Title: "X", Kind: "video", Destination: "x.html"}, defaultLanguage())
	assert.True(t, siteerrors.IsType(err, siteerrors.ErrorTypeConfig))
}

func TestResolveLanguage(t *testing.T) {
	spec := Spec{Title: "Home", Template: "index.html", Destination: "index.html"}

	p, err := New(spec, defaultLanguage())
	require.NoError(t, err)
	assert.Equal(t, "en_US", p.Language.Code)

	spec.Language = "fr_FR"
	p, err = New(spec, defaultLanguage())
	require.NoError(t, err)
	assert.Equal(t, "fr_FR", p.Language.Code)
	assert.Equal(t, "FR", p.Language.Region)

	spec.Language = ""
	_, err = New(spec, nil)
	require.Error(t, err)
	se, ok := siteerrors.As(err)
	require.True(t, ok)
	assert.Equal(t, siteerrors.ErrCodeNoLanguage, se.Code)
}

func TestLanguageSubstitution(t *testing.T) {
	p, err := New(Spec{
		Title:       "Home",
		Template:    "{language_code}/index.html",
		Destination: "index_{language_code}.html",
		Language:    "fr_FR",
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, "index_fr_FR.html", p.Destination())
	assert.Equal(t, "fr_FR/index.html", p.TemplateName())
	assert.Equal(t, "index_{language_code}.html", p.DestinationPattern())
	assert.Equal(t, "{language_code}/index.html", p.TemplatePattern())

	plain, err := New(Spec{Title: "Home", Template: "index.html", Destination: "index.html", Language: "de"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "index.html", plain.Destination())
}

func TestDestinationNormalisation(t *testing.T) {
	testCases := []struct {
		destination string
		expected    string
		relative    string
	}{
		{"index.html", "index.html", ""},
		{"./blog/./post.html", "blog/post.html", "../"},
		{"a/b/../c/index.html", "a/c/index.html", "../../"},
		{"fr/../../outside.html", "../outside.html", "../"},
	}

	for _, tc := range testCases {
		t.Run(tc.destination, func(t *testing.T) {
			p, err := New(Spec{Title: "T", Template: "t.html", Destination: tc.destination}, defaultLanguage())
			require.NoError(t, err)
			assert.Equal(t, tc.expected, p.Destination())
			assert.Equal(t, tc.relative, p.RelativePosition())
		})
	}
}

func TestExpand(t *testing.T) {
	pages, err := Expand(Spec{
		Title:       "Home",
		Template:    "index.html",
		Destination: "{language_code}/index.html",
		Languages:   []string{"en_US", "fr_FR"},
		Context:     map[string]interface{}{"hero": true},
	}, nil)
	require.NoError(t, err)
	require.Len(t, pages, 2)

	assert.Equal(t, "en_US/index.html", pages[0].Destination())
	assert.Equal(t, "fr_FR/index.html", pages[1].Destination())

	pages[0].Context["hero"] = false
	assert.Equal(t, true, pages[1].Context["hero"])

	_, err = Expand(Spec{Title: "Home", Template: "index.html", Destination: "x.html", Languages: []string{"!!"}}, nil)
	assert.Error(t, err)
}

func TestVars(t *testing.T) {
	p, err := New(Spec{
		Title:       "About",
		Template:    "about.html",
		Destination: "en/about.html",
		Language:    "en_US",
		Context:     map[string]interface{}{"tagline": "page", "title": "ignored"},
		Datas:       []string{"./team.yml"},
	}, nil)
	require.NoError(t, err)

	vars := p.Vars(map[string]interface{}{"site_name": "Example", "tagline": "global"})
	assert.Equal(t, "Example", vars["site_name"])
	assert.Equal(t, "page", vars["tagline"])
	assert.Equal(t, "About", vars[VarTitle])
	assert.Equal(t, "en/about.html", vars[VarDestination])
	assert.Equal(t, "../", vars[VarRelativePosition])
	assert.Equal(t, []string{"team.yml"}, vars[VarDatas])
	assert.Equal(t, p.Language, vars[VarLanguage])
	assert.Equal(t, "en-US", vars[VarLang])
}

type fakeResolver map[string][]string

func (f fakeResolver) Composition(name string) ([]string, error) {
	closure, ok := f[name]
	if !ok {
		return nil, errors.New("unknown template " + name)
	}
	return closure, nil
}

func TestDiscoverDependencies(t *testing.T) {
	resolver := fakeResolver{"child.html": {"base.html", "nav.html"}}

	p, err := New(Spec{Title: "C", Template: "child.html", Destination: "c.html", Datas: []string{"a.yml"}}, defaultLanguage())
	require.NoError(t, err)
	deps, err := p.DiscoverDependencies(resolver)
	require.NoError(t, err)
	assert.Equal(t, []string{"child.html", "base.html", "nav.html"}, deps.Templates)
	assert.Equal(t, []string{"a.yml"}, deps.Datas)

	doc, err := New(Spec{Title: "D", Kind: KindDocument, Source: "docs/intro.md", Destination: "intro.html"}, defaultLanguage())
	require.NoError(t, err)
	deps, err = doc.DiscoverDependencies(resolver)
	require.NoError(t, err)
	assert.Empty(t, deps.Templates)
	assert.Equal(t, []string{"docs/intro.md"}, deps.Datas)

	missing, err := New(Spec{Title: "M", Template: "missing.html", Destination: "m.html"}, defaultLanguage())
	require.NoError(t, err)
	_, err = missing.DiscoverDependencies(resolver)
	assert.Error(t, err)
}

type recordingRenderer struct {
	calls []string
}

func (r *recordingRenderer) Render(_ context.Context, name string, _ map[string]interface{}) (string, error) {
	r.calls = append(r.calls, name)
	return "rendered:" + name, nil
}

func TestRenderVariants(t *testing.T) {
	ctx := context.Background()
	renderer := &recordingRenderer{}

	blank, err := New(Spec{Title: "B", Kind: KindBlank, Destination: ".nojekyll"}, defaultLanguage())
	require.NoError(t, err)
	out, err := blank.Render(ctx, renderer, blank.Vars(nil))
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Empty(t, blank.TemplateName())

	doc, err := New(Spec{Title: "D", Kind: KindDocument, Source: "intro.md", Destination: "intro.html"}, defaultLanguage())
	require.NoError(t, err)
	vars := doc.Vars(nil)
	vars[VarContent] = "<p>hello</p>"
	out, err = doc.Render(ctx, renderer, vars)
	require.NoError(t, err)
	assert.Equal(t, "<p>hello</p>", out)

	tmpl, err := New(Spec{Title: "T", Template: "index.html", Destination: "index.html"}, defaultLanguage())
	require.NoError(t, err)
	out, err = tmpl.Render(ctx, renderer, tmpl.Vars(nil))
	require.NoError(t, err)
	assert.Equal(t, "rendered:index.html", out)
	assert.Equal(t, []string{"index.html"}, renderer.calls)
}

// streamingRenderer streams templates through Component and fails Render so
// that a test notices which path was taken.
type streamingRenderer struct {
	recordingRenderer
}

func (r *streamingRenderer) Render(context.Context, string, map[string]interface{}) (string, error) {
	return "", errors.New("Render called on a streaming renderer")
}

func (r *streamingRenderer) Component(name string, _ map[string]interface{}) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		r.calls = append(r.calls, name)
		_, err := io.WriteString(w, "streamed:"+name)
		return err
	})
}

func TestComponent(t *testing.T) {
	ctx := context.Background()
	render := func(c templ.Component) string {
		t.Helper()
		var sb strings.Builder
		require.NoError(t, c.Render(ctx, &sb))
		return sb.String()
	}

	tmpl, err := New(Spec{Title: "T", Template: "index.html", Destination: "index.html"}, defaultLanguage())
	require.NoError(t, err)

	streaming := &streamingRenderer{}
	assert.Equal(t, "streamed:index.html", render(tmpl.Component(streaming, tmpl.Vars(nil))))
	assert.Equal(t, []string{"index.html"}, streaming.calls)

	plain := &recordingRenderer{}
	assert.Equal(t, "rendered:index.html", render(tmpl.Component(plain, tmpl.Vars(nil))))

	blank, err := New(Spec{Title: "B", Kind: KindBlank, Destination: ".nojekyll"}, defaultLanguage())
	require.NoError(t, err)
	assert.Empty(t, render(blank.Component(streaming, blank.Vars(nil))))
	assert.Len(t, streaming.calls, 1)

	doc, err := New(Spec{Title: "D", Kind: KindDocument, Source: "intro.md", Destination: "intro.html"}, defaultLanguage())
	require.NoError(t, err)
	vars := doc.Vars(nil)
	vars[VarContent] = "<p>hello</p>"
	assert.Equal(t, "<p>hello</p>", render(doc.Component(streaming, vars)))
}
