package rebuild

import (
	"context"

	"github.com/conneroisu/pagesmith/internal/logging"
	"github.com/conneroisu/pagesmith/internal/metrics"
	"github.com/conneroisu/pagesmith/internal/registry"
)

// TemplateHandler rebuilds the pages whose composition includes a changed
// template.
type TemplateHandler struct {
	base
}

// NewTemplateHandler creates a handler for templates under root.
func NewTemplateHandler(root string, reg *registry.DependencyRegistry, builder PageBuilder, recorder metrics.Recorder, logger logging.Logger) *TemplateHandler {
	return &TemplateHandler{base: newBase(metrics.SourceTemplate, root, reg, builder, recorder, logger)}
}

// OnChanged rebuilds the pages depending on path, then registers them again
// so that templates the edit started to reference are tracked.
func (h *TemplateHandler) OnChanged(ctx context.Context, path string) ([]string, error) {
	key := Normalize(h.root, path)
	pages := h.registry.PagesForTemplate(key)

	outputs, err := h.rebuild(ctx, key, pages)
	if err != nil {
		return outputs, err
	}

	if len(pages) > 0 {
		if err := h.builder.Refresh(ctx, pages); err != nil {
			h.logger.Warn(ctx, err, "Cannot refresh template dependencies", "template", key)
		}
	}
	return outputs, nil
}
