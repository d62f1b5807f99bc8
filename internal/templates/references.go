package templates

import (
	"io/fs"
	"path"
	"sort"
	"text/template/parse"

	siteerrors "github.com/conneroisu/pagesmith/internal/errors"
)

// ReferenceFinder reports the templates referenced directly by a template.
type ReferenceFinder interface {
	DirectReferences(name string) ([]string, error)
}

// DirectReferences returns, in source order and without duplicates, the
// template files invoked by name through {{template}} actions. Names defined
// inside the same file are blocks, not references. A name with no backing
// file is still a reference when it looks like a file path, so that a page
// including a partial that does not exist yet is rebuilt once it appears.
func (e *HTMLEngine) DirectReferences(name string) ([]string, error) {
	src, err := e.source(name)
	if err != nil {
		return nil, err
	}

	invoked, defined, err := scanActions(name, src)
	if err != nil {
		return nil, siteerrors.NewTemplateError(siteerrors.ErrCodeTemplateParse, "cannot parse template", err).WithFile(name)
	}

	refs := make([]string, 0, len(invoked))
	for _, ref := range invoked {
		if ref == name || defined[ref] {
			continue
		}
		if !e.Exists(ref) && !fileLike(ref) {
			continue
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// fileLike reports whether a {{template}} name could name a template file.
// Block names such as "content" carry no extension.
func fileLike(name string) bool {
	return fs.ValidPath(name) && path.Ext(name) != ""
}

// scanActions parses src without checking functions and returns the
// template names invoked, in order of first appearance, plus the set of
// names the source defines.
func scanActions(name, src string) ([]string, map[string]bool, error) {
	trees := make(map[string]*parse.Tree)
	tree := parse.New(name)
	tree.Mode = parse.SkipFuncCheck
	if _, err := tree.Parse(src, "", "", trees); err != nil {
		return nil, nil, err
	}

	defined := make(map[string]bool, len(trees))
	keys := make([]string, 0, len(trees))
	for key := range trees {
		defined[key] = true
		if key != name {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	seen := make(map[string]bool)
	var invoked []string
	collect := func(n string) {
		if !seen[n] {
			seen[n] = true
			invoked = append(invoked, n)
		}
	}

	if main, ok := trees[name]; ok && main.Root != nil {
		walk(main.Root, collect)
	}
	for _, key := range keys {
		if t := trees[key]; t.Root != nil {
			walk(t.Root, collect)
		}
	}

	return invoked, defined, nil
}

func walk(node parse.Node, collect func(string)) {
	switch n := node.(type) {
	case *parse.ListNode:
		if n == nil {
			return
		}
		for _, child := range n.Nodes {
			walk(child, collect)
		}
	case *parse.TemplateNode:
		collect(n.Name)
	case *parse.IfNode:
		walkBranch(&n.BranchNode, collect)
	case *parse.RangeNode:
		walkBranch(&n.BranchNode, collect)
	case *parse.WithNode:
		walkBranch(&n.BranchNode, collect)
	}
}

func walkBranch(b *parse.BranchNode, collect func(string)) {
	if b.List != nil {
		walk(b.List, collect)
	}
	if b.ElseList != nil {
		walk(b.ElseList, collect)
	}
}
