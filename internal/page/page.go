// Package page models the output artifacts of a site.
//
// A Page pairs a template with a destination and a render context. Template
// names and destinations are template-strings that may contain the
// {language_code} placeholder; both are fixed at construction while the
// context and data list stay readable across any number of rebuilds.
package page

import (
	"fmt"
	"path"
	"strings"

	siteerrors "github.com/conneroisu/pagesmith/internal/errors"
	"github.com/conneroisu/pagesmith/internal/language"
)

// LanguagePlaceholder is replaced by the page's language code in template
// names and destinations.
const LanguagePlaceholder = "{language_code}"

// Kind tags the page variant.
type Kind string

const (
	// KindTemplate renders a template against the page context.
	KindTemplate Kind = "template"
	// KindDocument renders a markdown source, optionally wrapped in a template.
	KindDocument Kind = "document"
	// KindBlank has no template and renders to an empty file.
	KindBlank Kind = "blank"
)

// Spec is the declarative form of a page as written in the page manifest.
type Spec struct {
	Title       string                 `yaml:"title" json:"title"`
	Kind        Kind                   `yaml:"kind,omitempty" json:"kind,omitempty"`
	Template    string                 `yaml:"template,omitempty" json:"template,omitempty"`
	Destination string                 `yaml:"destination" json:"destination"`
	Language    string                 `yaml:"language,omitempty" json:"language,omitempty"`
	Languages   []string               `yaml:"languages,omitempty" json:"languages,omitempty"`
	Source      string                 `yaml:"source,omitempty" json:"source,omitempty"`
	Context     map[string]interface{} `yaml:"context,omitempty" json:"context,omitempty"`
	Datas       []string               `yaml:"datas,omitempty" json:"datas,omitempty"`
}

// Page is one output artifact.
type Page struct {
	Title    string
	Kind     Kind
	Language language.Language
	// Context is merged into the render context on every build.
	Context map[string]interface{}
	// Datas lists data-file paths relative to the data directory.
	Datas []string
	// Source is the markdown document of a KindDocument page, relative to
	// the data directory.
	Source string

	templatePattern    string
	destinationPattern string
}

// New constructs a page from its spec. The spec's own language wins over
// defaultLanguage; a page with neither is a configuration error.
func New(spec Spec, defaultLanguage *language.Language) (*Page, error) {
	if err := validate(spec); err != nil {
		return nil, err
	}

	lang, err := ResolveLanguage(spec, defaultLanguage)
	if err != nil {
		return nil, err
	}

	kind := spec.Kind
	if kind == "" {
		kind = KindTemplate
	}

	p := &Page{
		Title:              spec.Title,
		Kind:               kind,
		Language:           lang,
		Context:            spec.Context,
		templatePattern:    spec.Template,
		destinationPattern: spec.Destination,
	}
	if p.Context == nil {
		p.Context = make(map[string]interface{})
	}
	if spec.Source != "" {
		p.Source = CleanPath(spec.Source)
	}
	for _, d := range spec.Datas {
		p.Datas = append(p.Datas, CleanPath(d))
	}

	return p, nil
}

// Expand constructs one page per language listed in spec.Languages, or a
// single page when the list is empty. Each language yields a distinct Page
// with its own copy of the context.
func Expand(spec Spec, defaultLanguage *language.Language) ([]*Page, error) {
	if len(spec.Languages) == 0 {
		p, err := New(spec, defaultLanguage)
		if err != nil {
			return nil, err
		}
		return []*Page{p}, nil
	}

	pages := make([]*Page, 0, len(spec.Languages))
	for _, code := range spec.Languages {
		single := spec
		single.Languages = nil
		single.Language = code
		single.Context = copyContext(spec.Context)

		p, err := New(single, defaultLanguage)
		if err != nil {
			return nil, fmt.Errorf("language %s: %w", code, err)
		}
		pages = append(pages, p)
	}
	return pages, nil
}

// ResolveLanguage returns the spec's language, falling back to the project
// default.
func ResolveLanguage(spec Spec, defaultLanguage *language.Language) (language.Language, error) {
	if spec.Language != "" {
		return language.Parse(spec.Language)
	}
	if defaultLanguage != nil && !defaultLanguage.IsZero() {
		return *defaultLanguage, nil
	}
	return language.Language{}, siteerrors.ErrNoLanguage(specName(spec))
}

func validate(spec Spec) error {
	name := specName(spec)

	if strings.TrimSpace(spec.Title) == "" {
		return siteerrors.ErrMissingAttribute("title", name)
	}
	if strings.TrimSpace(spec.Destination) == "" {
		return siteerrors.ErrMissingAttribute("destination", name)
	}

	switch spec.Kind {
	case "", KindTemplate:
		if strings.TrimSpace(spec.Template) == "" {
			return siteerrors.ErrMissingAttribute("template", name)
		}
	case KindDocument:
		if strings.TrimSpace(spec.Source) == "" {
			return siteerrors.ErrMissingAttribute("source", name)
		}
	case KindBlank:
	default:
		return siteerrors.NewConfigError(
			siteerrors.ErrCodeConfigInvalid,
			fmt.Sprintf("page %q has unknown kind %q", name, spec.Kind),
		)
	}

	return nil
}

func specName(spec Spec) string {
	switch {
	case spec.Destination != "":
		return spec.Destination
	case spec.Title != "":
		return spec.Title
	default:
		return "<unnamed>"
	}
}

func copyContext(ctx map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(ctx))
	for k, v := range ctx {
		out[k] = v
	}
	return out
}

// CleanPath normalises a slash-separated relative path the way registry keys
// are stored.
func CleanPath(p string) string {
	return path.Clean(strings.ReplaceAll(p, "\\", "/"))
}

func (p *Page) substitute(pattern string) string {
	return strings.ReplaceAll(pattern, LanguagePlaceholder, p.Language.Code)
}

// TemplatePattern returns the unresolved template name.
func (p *Page) TemplatePattern() string {
	return p.templatePattern
}

// DestinationPattern returns the unresolved destination.
func (p *Page) DestinationPattern() string {
	return p.destinationPattern
}

// HasTemplate reports whether rendering goes through the template engine.
func (p *Page) HasTemplate() bool {
	return p.Kind != KindBlank && p.templatePattern != ""
}

// TemplateName returns the template name with the language substituted.
func (p *Page) TemplateName() string {
	if !p.HasTemplate() {
		return ""
	}
	return p.substitute(p.templatePattern)
}

// Destination returns the language-substituted, normalised destination. A
// destination with leading ".." segments stays outside its natural
// directory.
func (p *Page) Destination() string {
	return CleanPath(p.substitute(p.destinationPattern))
}

// Depth is the number of path separators in the destination.
func (p *Page) Depth() int {
	return strings.Count(p.Destination(), "/")
}

// RelativePosition is the prefix leading from the destination back to the
// publish root, for example "../../" for "a/b/index.html".
func (p *Page) RelativePosition() string {
	return strings.Repeat("../", p.Depth())
}

func (p *Page) String() string {
	return p.Destination()
}
