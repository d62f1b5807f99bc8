//go:build property

package watcher

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/conneroisu/pagesmith/internal/logging"
	"github.com/fsnotify/fsnotify"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestFileWatcherProperties validates the event translation of the file
// watcher without touching the filesystem.
func TestFileWatcherProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(9876)
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	dir := t.TempDir()
	extensions := []string{".html", ".css", ".yml", ".swp"}

	properties.Property("delivery follows the subscription pattern", prop.ForAll(
		func(name string, ext int) bool {
			fw, err := NewFileWatcher(logging.NewNopLogger())
			if err != nil {
				return false
			}
			defer fw.Stop()

			delivered := 0
			if err := fw.Watch(dir, []string{"*.html"}, true, func(ChangeEvent) error {
				delivered++
				return nil
			}); err != nil {
				return false
			}

			file := filepath.Join(dir, name+extensions[ext])
			fw.handleFsnotifyEvent(context.Background(), fsnotify.Event{Name: file, Op: fsnotify.Write})

			want := 0
			if extensions[ext] == ".html" {
				want = 1
			}
			return delivered == want
		},
		gen.Identifier(),
		gen.IntRange(0, len(extensions)-1),
	))

	properties.Property("a rename completed by a create is one move", prop.ForAll(
		func(from, to string) bool {
			fw, err := NewFileWatcher(logging.NewNopLogger())
			if err != nil {
				return false
			}
			defer fw.Stop()

			var events []ChangeEvent
			if err := fw.Watch(dir, nil, true, func(e ChangeEvent) error {
				events = append(events, e)
				return nil
			}); err != nil {
				return false
			}

			ctx := context.Background()
			src := filepath.Join(dir, from+".yml")
			dst := filepath.Join(dir, to+".yml")
			fw.handleFsnotifyEvent(ctx, fsnotify.Event{Name: src, Op: fsnotify.Rename})
			fw.handleFsnotifyEvent(ctx, fsnotify.Event{Name: dst, Op: fsnotify.Create})
			fw.flushRename(ctx)

			return len(events) == 1 &&
				events[0].Type == EventTypeMoved &&
				events[0].Path == src &&
				events[0].Target() == dst
		},
		gen.Identifier(),
		gen.Identifier(),
	))

	properties.TestingRun(t)
}
