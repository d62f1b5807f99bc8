package page

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

// Context keys set from the page itself. They win over globals and over the
// page's own Context entries.
const (
	VarTitle            = "title"
	VarDestination      = "destination"
	VarLanguage         = "language"
	VarLang             = "lang"
	VarRelativePosition = "relative_position"
	VarDatas            = "datas"
	VarData             = "data"
	VarContent          = "content"
	VarMeta             = "meta"
)

// Renderer renders a named template against a context.
type Renderer interface {
	Render(ctx context.Context, name string, data map[string]interface{}) (string, error)
}

// ComponentRenderer is a Renderer that can also stream a template as a
// templ component.
type ComponentRenderer interface {
	Renderer
	Component(name string, data map[string]interface{}) templ.Component
}

// CompositionResolver returns the templates transitively referenced by a
// template, excluding the template itself.
type CompositionResolver interface {
	Composition(name string) ([]string, error)
}

// Dependencies lists the source artifacts a page is built from.
type Dependencies struct {
	Templates []string
	Datas     []string
}

// Vars builds the render context: globals, then the page context, then the
// values derived from the page.
func (p *Page) Vars(globals map[string]interface{}) map[string]interface{} {
	vars := make(map[string]interface{}, len(globals)+len(p.Context)+6)
	for k, v := range globals {
		vars[k] = v
	}
	for k, v := range p.Context {
		vars[k] = v
	}

	datas := make([]string, len(p.Datas))
	copy(datas, p.Datas)

	vars[VarTitle] = p.Title
	vars[VarDestination] = p.Destination()
	vars[VarLanguage] = p.Language
	vars[VarLang] = p.Language.Tag().String()
	vars[VarRelativePosition] = p.RelativePosition()
	vars[VarDatas] = datas

	return vars
}

// DataDependencies returns the data files the page reads, including the
// markdown source of a document page.
func (p *Page) DataDependencies() []string {
	out := make([]string, 0, len(p.Datas)+1)
	if p.Kind == KindDocument && p.Source != "" {
		out = append(out, p.Source)
	}
	return append(out, p.Datas...)
}

// DiscoverDependencies returns the page's template (followed by its
// composition closure) and its data files.
func (p *Page) DiscoverDependencies(resolver CompositionResolver) (Dependencies, error) {
	deps := Dependencies{Datas: p.DataDependencies()}
	if !p.HasTemplate() {
		return deps, nil
	}

	name := p.TemplateName()
	closure, err := resolver.Composition(name)
	if err != nil {
		return deps, fmt.Errorf("discover composition of %s: %w", name, err)
	}

	deps.Templates = append([]string{name}, closure...)
	return deps, nil
}

// Render produces the page body. Blank pages render to the empty string and
// a document without a template renders its converted content directly.
func (p *Page) Render(ctx context.Context, r Renderer, vars map[string]interface{}) (string, error) {
	switch {
	case p.Kind == KindBlank:
		return "", nil
	case p.Kind == KindDocument && !p.HasTemplate():
		content, ok := vars[VarContent]
		if !ok || content == nil {
			return "", nil
		}
		return fmt.Sprint(content), nil
	default:
		return r.Render(ctx, p.TemplateName(), vars)
	}
}

// Component returns the page body as a templ component. A page with a
// template streams straight from a ComponentRenderer; every other case
// writes what Render returns.
func (p *Page) Component(r Renderer, vars map[string]interface{}) templ.Component {
	if cr, ok := r.(ComponentRenderer); ok && p.HasTemplate() {
		return cr.Component(p.TemplateName(), vars)
	}
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		body, err := p.Render(ctx, r, vars)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, body)
		return err
	})
}
