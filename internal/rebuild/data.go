package rebuild

import (
	"context"

	"github.com/conneroisu/pagesmith/internal/logging"
	"github.com/conneroisu/pagesmith/internal/metrics"
	"github.com/conneroisu/pagesmith/internal/registry"
)

// DataHandler rebuilds the pages that declared a changed data file.
type DataHandler struct {
	base
}

// NewDataHandler creates a handler for data files under root.
func NewDataHandler(root string, reg *registry.DependencyRegistry, builder PageBuilder, recorder metrics.Recorder, logger logging.Logger) *DataHandler {
	return &DataHandler{base: newBase(metrics.SourceData, root, reg, builder, recorder, logger)}
}

// OnChanged rebuilds the pages reading path.
func (h *DataHandler) OnChanged(ctx context.Context, path string) ([]string, error) {
	key := Normalize(h.root, path)
	return h.rebuild(ctx, key, h.registry.PagesForData(key))
}
