// Package assets holds named bundles of asset source files and compiles each
// bundle into one output file under the publish directory.
//
// The environment decides on its own when a bundle is stale: Resolve
// recompiles a bundle whose output is missing or older than any of its
// sources.
package assets

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"html/template"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	siteerrors "github.com/conneroisu/pagesmith/internal/errors"
	"github.com/conneroisu/pagesmith/internal/logging"
)

// Bundle is a named collection of source files compiled to Output.
type Bundle struct {
	Name string
	// Output is relative to the publish directory.
	Output string
	// Contents are relative to the assets directory.
	Contents []string
}

// Options configures an Environment.
type Options struct {
	AssetsDir  string
	PublishDir string
	// URL prefixes every resolved bundle URL.
	URL    string
	DryRun bool
}

// Environment is the registry of bundles.
type Environment struct {
	opts    Options
	logger  logging.Logger
	mutex   sync.Mutex
	bundles map[string]*Bundle
	order   []string
}

// NewEnvironment creates an empty environment.
func NewEnvironment(opts Options, logger logging.Logger) *Environment {
	if opts.URL == "" {
		opts.URL = "/"
	}
	return &Environment{
		opts:    opts,
		logger:  logger.WithComponent("assets"),
		bundles: make(map[string]*Bundle),
	}
}

// Register adds a bundle.
func (e *Environment) Register(b Bundle) error {
	if b.Name == "" || b.Output == "" || len(b.Contents) == 0 {
		return siteerrors.NewConfigError(
			siteerrors.ErrCodeConfigInvalid,
			fmt.Sprintf("bundle %q needs a name, an output and at least one source", b.Name),
		)
	}

	e.mutex.Lock()
	defer e.mutex.Unlock()

	if _, exists := e.bundles[b.Name]; exists {
		return siteerrors.NewConfigError(
			siteerrors.ErrCodeConfigInvalid,
			fmt.Sprintf("bundle %q registered twice", b.Name),
		)
	}

	contents := make([]string, len(b.Contents))
	for i, c := range b.Contents {
		contents[i] = path.Clean(filepath.ToSlash(c))
	}
	b.Contents = contents
	b.Output = path.Clean(filepath.ToSlash(b.Output))

	e.bundles[b.Name] = &b
	e.order = append(e.order, b.Name)
	return nil
}

// Bundles returns the registered bundles in registration order.
func (e *Environment) Bundles() []Bundle {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	out := make([]Bundle, 0, len(e.order))
	for _, name := range e.order {
		out = append(out, *e.bundles[name])
	}
	return out
}

// PathToBundle maps every source path, relative to the assets directory, to
// the name of the bundle that contains it. A source shared by two bundles
// maps to the one registered first.
func (e *Environment) PathToBundle() map[string]string {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	out := make(map[string]string)
	for _, name := range e.order {
		for _, src := range e.bundles[name].Contents {
			if _, taken := out[src]; !taken {
				out[src] = name
			}
		}
	}
	return out
}

// BundleFor returns the bundle owning rel.
func (e *Environment) BundleFor(rel string) (string, bool) {
	name, ok := e.PathToBundle()[rel]
	return name, ok
}

// Resolve rebuilds the bundle if it is stale and returns its URLs.
func (e *Environment) Resolve(name string) ([]string, error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	b, ok := e.bundles[name]
	if !ok {
		return nil, siteerrors.NewConfigError(siteerrors.ErrCodeBundleNotFound, "unknown bundle: "+name)
	}

	content, err := e.compile(b)
	if err != nil {
		return nil, err
	}

	sum := sha256.Sum256(content)
	version := hex.EncodeToString(sum[:])[:8]
	url := strings.TrimSuffix(e.opts.URL, "/") + "/" + b.Output + "?v=" + version
	return []string{url}, nil
}

// compile returns the bundle output, rewriting it first when stale.
func (e *Environment) compile(b *Bundle) ([]byte, error) {
	out := filepath.Join(e.opts.PublishDir, filepath.FromSlash(b.Output))

	stale, err := e.isStale(b, out)
	if err != nil {
		return nil, err
	}
	if !stale && !e.opts.DryRun {
		existing, err := os.ReadFile(out)
		if err == nil {
			return existing, nil
		}
	}

	var buf bytes.Buffer
	for i, src := range b.Contents {
		raw, err := os.ReadFile(filepath.Join(e.opts.AssetsDir, filepath.FromSlash(src)))
		if err != nil {
			return nil, siteerrors.NewDataError("cannot read bundle source", err).WithFile(src)
		}
		if i > 0 && buf.Len() > 0 && !bytes.HasSuffix(buf.Bytes(), []byte("\n")) {
			buf.WriteByte('\n')
		}
		buf.Write(raw)
	}

	if e.opts.DryRun {
		return buf.Bytes(), nil
	}

	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return nil, siteerrors.ErrWriteFailed(out, err)
	}
	if err := os.WriteFile(out, buf.Bytes(), 0644); err != nil {
		return nil, siteerrors.ErrWriteFailed(out, err)
	}
	e.logger.Debug(context.Background(), "Bundle compiled", "bundle", b.Name, "output", b.Output, "sources", len(b.Contents))

	return buf.Bytes(), nil
}

func (e *Environment) isStale(b *Bundle, out string) (bool, error) {
	info, err := os.Stat(out)
	if err != nil {
		return true, nil
	}
	built := info.ModTime()

	for _, src := range b.Contents {
		srcInfo, err := os.Stat(filepath.Join(e.opts.AssetsDir, filepath.FromSlash(src)))
		if err != nil {
			return false, siteerrors.NewDataError("cannot stat bundle source", err).WithFile(src)
		}
		if srcInfo.ModTime().After(built) {
			return true, nil
		}
	}
	return false, nil
}

// Funcs exposes the environment to templates:
//
//	{{range asset_urls "site-css"}}<link rel="stylesheet" href="{{.}}">{{end}}
func (e *Environment) Funcs() template.FuncMap {
	return template.FuncMap{
		"asset_urls": e.Resolve,
	}
}

// Names returns the bundle names, sorted.
func (e *Environment) Names() []string {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	names := make([]string, len(e.order))
	copy(names, e.order)
	sort.Strings(names)
	return names
}
