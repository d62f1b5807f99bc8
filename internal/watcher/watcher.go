// Package watcher turns fsnotify notifications into change events for
// subscribed directory trees.
//
// Events are delivered one at a time on a single goroutine, in the order
// the operating system reported them. Nothing is debounced: two writes to
// the same file produce two events.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/conneroisu/pagesmith/internal/logging"
	"github.com/fsnotify/fsnotify"
)

// DefaultRenameWindow is how long a rename waits for the create that
// completes it before it is reported as a deletion.
const DefaultRenameWindow = 100 * time.Millisecond

// FileWatcher watches directory trees and dispatches change events
type FileWatcher struct {
	watcher       *fsnotify.Watcher
	filters       []FileFilter
	subscriptions []*subscription
	renameWindow  time.Duration
	pending       string
	logger        logging.Logger
	mutex         sync.RWMutex
	started       bool
	done          chan struct{}
}

// ChangeEvent represents a file change event
type ChangeEvent struct {
	Type EventType
	// Path is the changed file, or the origin of a move.
	Path string
	// Dest is the new location of a moved file.
	Dest    string
	ModTime time.Time
	Size    int64
}

// Target is the path that identifies the file after the change.
func (e ChangeEvent) Target() string {
	if e.Type == EventTypeMoved && e.Dest != "" {
		return e.Dest
	}
	return e.Path
}

// EventType represents the type of file change
type EventType int

const (
	EventTypeCreated EventType = iota
	EventTypeModified
	EventTypeDeleted
	EventTypeMoved
)

// String returns the string representation of the EventType
func (e EventType) String() string {
	switch e {
	case EventTypeCreated:
		return "created"
	case EventTypeModified:
		return "modified"
	case EventTypeDeleted:
		return "deleted"
	case EventTypeMoved:
		return "moved"
	default:
		return "unknown"
	}
}

// FileFilter determines if a file should be watched
type FileFilter func(path string) bool

// ChangeHandler handles one change event. A returned error is logged and
// watching continues.
type ChangeHandler func(event ChangeEvent) error

type subscription struct {
	root      string
	patterns  []string
	recursive bool
	handler   ChangeHandler
}

// NewFileWatcher creates a watcher that ignores editor temporary files and
// version-control directories.
func NewFileWatcher(logger logging.Logger) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &FileWatcher{
		watcher:      watcher,
		filters:      []FileFilter{NoEditorTempFilter, NoGitFilter},
		renameWindow: DefaultRenameWindow,
		logger:       logger.WithComponent("watcher"),
		done:         make(chan struct{}),
	}, nil
}

// AddFilter adds a file filter. Every filter must accept a path before any
// subscription sees it.
func (fw *FileWatcher) AddFilter(filter FileFilter) {
	fw.mutex.Lock()
	defer fw.mutex.Unlock()
	fw.filters = append(fw.filters, filter)
}

// Watch subscribes handler to files under root whose base name matches one
// of patterns. A recursive subscription covers subdirectories, including
// ones created later.
func (fw *FileWatcher) Watch(root string, patterns []string, recursive bool, handler ChangeHandler) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("invalid root path: %w", err)
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		return fmt.Errorf("invalid root path: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("invalid root path: %s is not a directory", root)
	}

	for _, pattern := range patterns {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
	}

	if recursive {
		err = fw.addTree(absRoot, nil)
	} else {
		err = fw.watcher.Add(absRoot)
	}
	if err != nil {
		return err
	}

	fw.mutex.Lock()
	fw.subscriptions = append(fw.subscriptions, &subscription{
		root:      absRoot,
		patterns:  patterns,
		recursive: recursive,
		handler:   handler,
	})
	fw.mutex.Unlock()

	fw.logger.Debug(context.Background(), "Watching directory", "root", absRoot, "patterns", patterns, "recursive", recursive)
	return nil
}

// addTree watches dir and every directory below it. Files found on the way
// are passed to visit when it is not nil.
func (fw *FileWatcher) addTree(dir string, visit func(path string)) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if !NoGitFilter(path) {
				return filepath.SkipDir
			}
			return fw.watcher.Add(path)
		}
		if visit != nil {
			visit(path)
		}
		return nil
	})
}

// addCreatedTree watches a directory that appeared under a recursive root
// and reports the files already inside it as created. A directory moved in
// from elsewhere arrives with its contents and no notification of its own
// for them.
func (fw *FileWatcher) addCreatedTree(ctx context.Context, dir string) {
	var files []string
	if err := fw.addTree(dir, func(path string) { files = append(files, path) }); err != nil {
		fw.logger.Warn(ctx, err, "Cannot watch new directory", "path", dir)
	}
	for _, path := range files {
		fw.emit(ctx, ChangeEvent{Type: EventTypeCreated, Path: path})
	}
}

// Start starts the file watcher. Events are processed until ctx is done or
// Stop is called.
func (fw *FileWatcher) Start(ctx context.Context) error {
	fw.mutex.Lock()
	defer fw.mutex.Unlock()

	if fw.started {
		return fmt.Errorf("file watcher already started")
	}
	fw.started = true

	go fw.watchLoop(ctx)
	return nil
}

// Stop stops the file watcher and waits for the event loop to exit.
func (fw *FileWatcher) Stop() error {
	err := fw.watcher.Close()

	fw.mutex.RLock()
	started := fw.started
	fw.mutex.RUnlock()

	if started {
		<-fw.done
	}
	return err
}

func (fw *FileWatcher) watchLoop(ctx context.Context) {
	defer close(fw.done)

	var expire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			fw.flushRename(ctx)
			return
		case event, ok := <-fw.watcher.Events:
			if !ok {
				fw.flushRename(ctx)
				return
			}
			fw.handleFsnotifyEvent(ctx, event)
			if fw.pending != "" {
				expire = time.After(fw.renameWindow)
			} else {
				expire = nil
			}
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Error(ctx, err, "File watcher error")
		case <-expire:
			expire = nil
			fw.flushRename(ctx)
		}
	}
}

// handleFsnotifyEvent translates one notification. A rename is held until
// the next notification: a create right after it completes a move, anything
// else reports the renamed file as deleted.
func (fw *FileWatcher) handleFsnotifyEvent(ctx context.Context, event fsnotify.Event) {
	switch {
	case event.Has(fsnotify.Create):
		origin := fw.pending
		fw.pending = ""

		if isDir(event.Name) {
			if fw.coveredRecursively(event.Name) {
				fw.addCreatedTree(ctx, event.Name)
			}
			return
		}

		if origin != "" {
			fw.emit(ctx, ChangeEvent{Type: EventTypeMoved, Path: origin, Dest: event.Name})
			return
		}
		fw.emit(ctx, ChangeEvent{Type: EventTypeCreated, Path: event.Name})

	case event.Has(fsnotify.Write):
		fw.flushRename(ctx)
		fw.emit(ctx, ChangeEvent{Type: EventTypeModified, Path: event.Name})

	case event.Has(fsnotify.Remove):
		fw.flushRename(ctx)
		fw.emit(ctx, ChangeEvent{Type: EventTypeDeleted, Path: event.Name})

	case event.Has(fsnotify.Rename):
		fw.flushRename(ctx)
		fw.pending = event.Name

	default:
		// chmod
	}
}

// flushRename reports a rename that was never completed as a deletion.
func (fw *FileWatcher) flushRename(ctx context.Context) {
	if fw.pending == "" {
		return
	}
	path := fw.pending
	fw.pending = ""
	fw.emit(ctx, ChangeEvent{Type: EventTypeDeleted, Path: path})
}

// emit delivers event to every subscription covering its target.
func (fw *FileWatcher) emit(ctx context.Context, event ChangeEvent) {
	target := event.Target()

	fw.mutex.RLock()
	filters := fw.filters
	subs := fw.subscriptions
	fw.mutex.RUnlock()

	for _, filter := range filters {
		if !filter(target) {
			return
		}
	}

	if info, err := os.Stat(target); err == nil {
		event.ModTime = info.ModTime()
		event.Size = info.Size()
	}

	for _, sub := range subs {
		if !sub.matches(target) {
			continue
		}
		if err := sub.handler(event); err != nil {
			fw.logger.Error(ctx, err, "File watcher handler error", "path", target, "event", event.Type.String())
		}
	}
}

func (fw *FileWatcher) coveredRecursively(dir string) bool {
	fw.mutex.RLock()
	defer fw.mutex.RUnlock()

	for _, sub := range fw.subscriptions {
		if sub.recursive && within(sub.root, dir) {
			return true
		}
	}
	return false
}

func (s *subscription) matches(path string) bool {
	if !within(s.root, path) || path == s.root {
		return false
	}
	if !s.recursive && filepath.Dir(path) != s.root {
		return false
	}
	return MatchAny(s.patterns, filepath.Base(path))
}

// MatchAny reports whether name matches one of patterns. An empty pattern
// list matches everything.
func MatchAny(patterns []string, name string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, pattern := range patterns {
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

func within(root, path string) bool {
	return path == root || strings.HasPrefix(path, root+string(filepath.Separator))
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// NoEditorTempFilter rejects swap, backup and lock files written by editors.
func NoEditorTempFilter(path string) bool {
	base := filepath.Base(path)
	switch {
	case strings.HasPrefix(base, ".#"),
		strings.HasSuffix(base, "~"),
		strings.HasSuffix(base, ".swp"),
		strings.HasSuffix(base, ".swx"),
		base == "4913":
		return false
	}
	return true
}

// ExcludeDirFilter rejects paths inside dir, such as a publish directory
// nested under a watched tree.
func ExcludeDirFilter(dir string) FileFilter {
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = filepath.Clean(dir)
	}
	return func(path string) bool {
		return !within(abs, path)
	}
}

// NoGitFilter rejects paths inside a .git directory.
func NoGitFilter(path string) bool {
	slashed := filepath.ToSlash(path)
	return !strings.HasPrefix(slashed, ".git/") && !strings.Contains(slashed, "/.git/") && filepath.Base(path) != ".git"
}
