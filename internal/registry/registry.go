// Package registry holds the inverted indices from source artifacts to the
// pages that depend on them.
//
// Every destination that appears under a template or data key is also in the
// destination index; both are written under the same lock when a page is
// registered. Registration only ever inserts. Callers that need stale links
// gone register into a fresh registry and Replace, or Reset and register
// again.
package registry

import (
	"context"
	"sort"
	"sync"

	"github.com/conneroisu/pagesmith/internal/logging"
	"github.com/conneroisu/pagesmith/internal/page"
)

// DependencyRegistry maps template names and data paths to destinations, and
// destinations back to pages.
type DependencyRegistry struct {
	mutex        sync.RWMutex
	templates    map[string]map[string]struct{}
	datas        map[string]map[string]struct{}
	destinations map[string]*page.Page
	order        map[string]int
	seq          int
	logger       logging.Logger
}

// NewDependencyRegistry creates an empty registry.
func NewDependencyRegistry(logger logging.Logger) *DependencyRegistry {
	r := &DependencyRegistry{logger: logger.WithComponent("registry")}
	r.init()
	return r
}

func (r *DependencyRegistry) init() {
	r.templates = make(map[string]map[string]struct{})
	r.datas = make(map[string]map[string]struct{})
	r.destinations = make(map[string]*page.Page)
	r.order = make(map[string]int)
	r.seq = 0
}

// Reset drops every association.
func (r *DependencyRegistry) Reset() {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.init()
}

// Replace swaps in every association of other. other must not be used
// afterwards.
func (r *DependencyRegistry) Replace(other *DependencyRegistry) {
	other.mutex.Lock()
	templates, datas := other.templates, other.datas
	destinations, order, seq := other.destinations, other.order, other.seq
	other.init()
	other.mutex.Unlock()

	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.templates, r.datas = templates, datas
	r.destinations, r.order, r.seq = destinations, order, seq
}

// Register records that p is built from each of the named templates.
func (r *DependencyRegistry) Register(p *page.Page, templateNames []string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	dest := r.index(p)
	for _, name := range templateNames {
		insert(r.templates, name, dest)
	}
}

// RegisterData records that p reads each of the data paths.
func (r *DependencyRegistry) RegisterData(p *page.Page, dataPaths []string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	dest := r.index(p)
	for _, path := range dataPaths {
		insert(r.datas, path, dest)
	}
}

// index stores p under its destination. A later page with the same
// destination replaces the earlier one but keeps its position.
func (r *DependencyRegistry) index(p *page.Page) string {
	dest := p.Destination()
	r.destinations[dest] = p
	if _, seen := r.order[dest]; !seen {
		r.order[dest] = r.seq
		r.seq++
	}
	return dest
}

func insert(index map[string]map[string]struct{}, key, dest string) {
	set, ok := index[key]
	if !ok {
		set = make(map[string]struct{})
		index[key] = set
	}
	set[dest] = struct{}{}
}

// PagesForTemplate returns the pages that depend on the template. An unknown
// name yields an empty slice and a warning.
func (r *DependencyRegistry) PagesForTemplate(name string) []*page.Page {
	return r.lookup(r.templates, "template", name)
}

// PagesForData returns the pages that read the data file.
func (r *DependencyRegistry) PagesForData(path string) []*page.Page {
	return r.lookup(r.datas, "data", path)
}

// DestinationsForTemplate returns the sorted destinations depending on name.
func (r *DependencyRegistry) DestinationsForTemplate(name string) []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return sortedKeys(r.templates[name])
}

// DestinationsForData returns the sorted destinations depending on path.
func (r *DependencyRegistry) DestinationsForData(path string) []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return sortedKeys(r.datas[path])
}

func (r *DependencyRegistry) lookup(index map[string]map[string]struct{}, kind, key string) []*page.Page {
	r.mutex.RLock()
	set, ok := index[key]
	var pages []*page.Page
	if ok {
		pages = make([]*page.Page, 0, len(set))
		for dest := range set {
			if p, found := r.destinations[dest]; found {
				pages = append(pages, p)
			}
		}
		r.sortByOrder(pages)
	}
	r.mutex.RUnlock()

	if !ok {
		r.logger.Warn(context.Background(), nil, "No pages depend on this "+kind, kind, key)
		return []*page.Page{}
	}
	return pages
}

// sortByOrder orders pages by first registration. Caller holds the lock.
func (r *DependencyRegistry) sortByOrder(pages []*page.Page) {
	sort.SliceStable(pages, func(i, j int) bool {
		return r.order[pages[i].Destination()] < r.order[pages[j].Destination()]
	})
}

// Page returns the page registered under dest.
func (r *DependencyRegistry) Page(dest string) (*page.Page, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	p, ok := r.destinations[dest]
	return p, ok
}

// Pages returns every registered page in registration order.
func (r *DependencyRegistry) Pages() []*page.Page {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	pages := make([]*page.Page, 0, len(r.destinations))
	for _, p := range r.destinations {
		pages = append(pages, p)
	}
	r.sortByOrder(pages)
	return pages
}

// Templates returns the tracked template names, sorted.
func (r *DependencyRegistry) Templates() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return sortedKeys(r.templates)
}

// Datas returns the tracked data paths, sorted.
func (r *DependencyRegistry) Datas() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return sortedKeys(r.datas)
}

// Len returns the number of registered destinations.
func (r *DependencyRegistry) Len() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return len(r.destinations)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot is a point-in-time copy of the indices keyed by artifact.
type Snapshot struct {
	Templates map[string][]string `json:"templates" yaml:"templates"`
	Datas     map[string][]string `json:"datas" yaml:"datas"`
}

// Snapshot copies the template and data indices.
func (r *DependencyRegistry) Snapshot() Snapshot {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	s := Snapshot{
		Templates: make(map[string][]string, len(r.templates)),
		Datas:     make(map[string][]string, len(r.datas)),
	}
	for name, set := range r.templates {
		s.Templates[name] = sortedKeys(set)
	}
	for path, set := range r.datas {
		s.Datas[path] = sortedKeys(set)
	}
	return s
}
