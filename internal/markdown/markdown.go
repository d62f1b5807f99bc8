// Package markdown converts document sources (markdown with optional
// frontmatter) into HTML for document pages.
package markdown

import (
	"bytes"
	"html/template"
	"os"

	"github.com/adrg/frontmatter"
	siteerrors "github.com/conneroisu/pagesmith/internal/errors"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// Document is a converted markdown source.
type Document struct {
	// Meta holds the frontmatter; empty when the source has none.
	Meta map[string]interface{}
	// HTML is the rendered body, safe to embed in html/template output.
	HTML template.HTML
}

// Converter renders markdown with GitHub-flavoured extensions.
type Converter struct {
	md goldmark.Markdown
}

// NewConverter creates a converter.
func NewConverter() *Converter {
	return &Converter{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(
				parser.WithAutoHeadingID(),
			),
			goldmark.WithRendererOptions(
				gmhtml.WithUnsafe(),
			),
		),
	}
}

// Convert splits off frontmatter and renders the remaining body.
func (c *Converter) Convert(src []byte) (*Document, error) {
	meta := make(map[string]interface{})
	body, err := frontmatter.Parse(bytes.NewReader(src), &meta)
	if err != nil {
		return nil, siteerrors.NewDataError("invalid frontmatter", err)
	}

	var buf bytes.Buffer
	if err := c.md.Convert(body, &buf); err != nil {
		return nil, siteerrors.NewDataError("cannot convert markdown", err)
	}

	return &Document{
		Meta: meta,
		HTML: template.HTML(buf.String()),
	}, nil
}

// Load reads and converts the document at path.
func (c *Converter) Load(path string) (*Document, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, siteerrors.NewDataError("cannot read document", err).WithFile(path)
	}

	doc, err := c.Convert(src)
	if err != nil {
		if se, ok := siteerrors.As(err); ok {
			se.WithFile(path)
		}
		return nil, err
	}
	return doc, nil
}
