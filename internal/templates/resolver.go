package templates

import (
	"errors"
	"io/fs"
)

// Resolver computes the composition closure of a template by repeatedly
// applying a one-level reference query.
type Resolver struct {
	finder ReferenceFinder
}

// NewResolver creates a resolver over finder.
func NewResolver(finder ReferenceFinder) *Resolver {
	return &Resolver{finder: finder}
}

// Composition returns every template reachable from name, in depth-first
// pre-order. Each template appears once; name itself is never part of its
// own closure. A template already visited ends its branch, so cyclic
// compositions terminate. A referenced template that does not exist is kept
// in the closure as a leaf; only a missing root is an error.
func (r *Resolver) Composition(name string) ([]string, error) {
	visited := map[string]bool{name: true}
	closure := make([]string, 0)
	if err := r.walk(name, true, visited, &closure); err != nil {
		return nil, err
	}
	return closure, nil
}

func (r *Resolver) walk(name string, root bool, visited map[string]bool, closure *[]string) error {
	refs, err := r.finder.DirectReferences(name)
	if err != nil {
		if !root && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}

	for _, ref := range refs {
		if visited[ref] {
			continue
		}
		visited[ref] = true
		*closure = append(*closure, ref)
		if err := r.walk(ref, false, visited, closure); err != nil {
			return err
		}
	}
	return nil
}

// Closure returns the de-duplicated union of names and their compositions,
// in first-seen order.
func (r *Resolver) Closure(names ...string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	add := func(n string) {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}

	for _, name := range names {
		add(name)
		closure, err := r.Composition(name)
		if err != nil {
			return nil, err
		}
		for _, n := range closure {
			add(n)
		}
	}
	return out, nil
}
