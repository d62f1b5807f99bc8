package rebuild

import (
	"context"
	"fmt"
	"time"

	"github.com/conneroisu/pagesmith/internal/logging"
	"github.com/conneroisu/pagesmith/internal/watcher"
	"github.com/google/uuid"
)

// Result describes one handled change.
type Result struct {
	Batch    string
	Source   string
	Event    watcher.ChangeEvent
	Outputs  []string
	Err      error
	Duration time.Duration
}

// Dispatcher routes watcher events to handlers. It never lets a failure
// escape: errors and panics are logged and watching continues.
type Dispatcher struct {
	logger logging.Logger
	// Notify, when set, receives every result except ignored deletions.
	Notify func(Result)
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(logger logging.Logger) *Dispatcher {
	return &Dispatcher{logger: logger.WithComponent("dispatcher")}
}

// Handle runs h for event. Deletions are ignored; moves are handled by
// their destination.
func (d *Dispatcher) Handle(ctx context.Context, h Handler, event watcher.ChangeEvent) (result Result) {
	result = Result{
		Batch:  uuid.NewString(),
		Source: h.Source(),
		Event:  event,
	}

	if event.Type == watcher.EventTypeDeleted {
		d.logger.Debug(ctx, "Ignoring deleted file", "path", event.Path, "source", h.Source())
		return result
	}

	logger := d.logger.With("batch", result.Batch, "source", h.Source())
	target := event.Target()
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			result.Err = fmt.Errorf("panic while handling %s: %v", target, r)
			result.Outputs = []string{}
			logger.Error(ctx, result.Err, "Rebuild panicked", "path", target)
			logger.Info(ctx, StillWatching)
		}
		result.Duration = time.Since(start)
		if d.Notify != nil {
			d.Notify(result)
		}
	}()

	logger.Debug(ctx, "Change detected", "path", target, "event", event.Type.String())

	outputs, err := h.OnChanged(ctx, target)
	result.Outputs = outputs
	result.Err = err

	if err != nil {
		logger.Error(ctx, err, "Rebuild failed", "path", target, "built", len(outputs))
		logger.Info(ctx, StillWatching)
		return result
	}

	logger.Debug(ctx, "Change handled", "path", target, "pages", len(outputs))
	return result
}

// Subscribe returns a watcher callback dispatching to h.
func (d *Dispatcher) Subscribe(ctx context.Context, h Handler) watcher.ChangeHandler {
	return func(event watcher.ChangeEvent) error {
		d.Handle(ctx, h, event)
		return nil
	}
}
