// Package templates loads html/template files from a directory, reports the
// templates each file references and renders a template together with its
// composition closure.
//
// Composition follows the html/template idiom: a child invokes its parent
// with {{template "base.html" .}} and overrides blocks with {{define}};
// includes are plain {{template "partials/nav.html" .}} calls. Template
// names are slash-separated paths relative to the templates directory.
package templates

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/a-h/templ"
	siteerrors "github.com/conneroisu/pagesmith/internal/errors"
)

// Engine is the templating engine consumed by the builder.
type Engine interface {
	ReferenceFinder
	Render(ctx context.Context, name string, data map[string]interface{}) (string, error)
}

// HTMLEngine renders html/template files. Sources are read on every call so
// that edits are picked up without restarting.
type HTMLEngine struct {
	fsys     fs.FS
	funcs    template.FuncMap
	resolver *Resolver
}

// Option configures an HTMLEngine.
type Option func(*HTMLEngine)

// WithFuncs adds template functions. Later options override earlier ones.
func WithFuncs(funcs template.FuncMap) Option {
	return func(e *HTMLEngine) {
		for name, fn := range funcs {
			e.funcs[name] = fn
		}
	}
}

// NewHTMLEngine creates an engine reading templates from fsys.
func NewHTMLEngine(fsys fs.FS, opts ...Option) *HTMLEngine {
	e := &HTMLEngine{
		fsys:  fsys,
		funcs: defaultFuncs(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.resolver = NewResolver(e)
	return e
}

// NewDirEngine creates an engine reading templates from dir.
func NewDirEngine(dir string, opts ...Option) *HTMLEngine {
	return NewHTMLEngine(os.DirFS(dir), opts...)
}

func defaultFuncs() template.FuncMap {
	return template.FuncMap{
		// rel joins the page's relative position with a site-root path.
		"rel": func(prefix, p string) string {
			return prefix + strings.TrimPrefix(p, "/")
		},
	}
}

// Resolver returns the composition resolver bound to this engine.
func (e *HTMLEngine) Resolver() *Resolver {
	return e.resolver
}

// Exists reports whether name is a template file.
func (e *HTMLEngine) Exists(name string) bool {
	if !fs.ValidPath(name) {
		return false
	}
	info, err := fs.Stat(e.fsys, name)
	return err == nil && !info.IsDir()
}

func (e *HTMLEngine) source(name string) (string, error) {
	if !fs.ValidPath(name) {
		return "", siteerrors.ErrTemplateNotFound(name, fs.ErrInvalid)
	}
	b, err := fs.ReadFile(e.fsys, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", siteerrors.ErrTemplateNotFound(name, err)
		}
		return "", siteerrors.NewTemplateError(siteerrors.ErrCodeTemplateNotFound, "cannot read template", err).WithFile(name)
	}
	return string(b), nil
}

// load parses name and its composition closure into one template set. The
// closure is parsed deepest first and the root last so that the root's
// {{define}} blocks override the blocks declared by its ancestors. Closure
// members without a file are skipped; invoking one fails at execution.
func (e *HTMLEngine) load(name string) (*template.Template, error) {
	closure, err := e.resolver.Composition(name)
	if err != nil {
		return nil, err
	}

	root := template.New(name).Funcs(e.funcs)
	for i := len(closure) - 1; i >= 0; i-- {
		dep := closure[i]
		src, err := e.source(dep)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if _, err := root.New(dep).Parse(src); err != nil {
			return nil, siteerrors.NewTemplateError(siteerrors.ErrCodeTemplateParse, "cannot parse template", err).WithFile(dep)
		}
	}

	src, err := e.source(name)
	if err != nil {
		return nil, err
	}
	if _, err := root.Parse(src); err != nil {
		return nil, siteerrors.NewTemplateError(siteerrors.ErrCodeTemplateParse, "cannot parse template", err).WithFile(name)
	}

	return root, nil
}

// Component returns name rendered against data as a templ component.
func (e *HTMLEngine) Component(name string, data map[string]interface{}) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		tmpl, err := e.load(name)
		if err != nil {
			return err
		}
		if err := tmpl.ExecuteTemplate(w, name, data); err != nil {
			return siteerrors.NewRenderError("template execution failed", err).WithFile(name)
		}
		return nil
	})
}

// Render renders name against data.
func (e *HTMLEngine) Render(ctx context.Context, name string, data map[string]interface{}) (string, error) {
	var buf bytes.Buffer
	if err := e.Component(name, data).Render(ctx, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
