package rebuild

import (
	"context"

	siteerrors "github.com/conneroisu/pagesmith/internal/errors"
	"github.com/conneroisu/pagesmith/internal/logging"
	"github.com/conneroisu/pagesmith/internal/metrics"
	"github.com/conneroisu/pagesmith/internal/registry"
)

// BundleResolver is the asset environment seen by the asset handler.
type BundleResolver interface {
	PathToBundle() map[string]string
	Resolve(name string) ([]string, error)
}

// AssetHandler recompiles the bundle owning a changed asset and rebuilds
// every registered page. Bundle URLs are not attributed to pages, so any
// page may embed the bundle.
type AssetHandler struct {
	base
	bundles BundleResolver
}

// NewAssetHandler creates a handler for asset sources under root.
func NewAssetHandler(root string, bundles BundleResolver, reg *registry.DependencyRegistry, builder PageBuilder, recorder metrics.Recorder, logger logging.Logger) *AssetHandler {
	return &AssetHandler{
		base:    newBase(metrics.SourceAsset, root, reg, builder, recorder, logger),
		bundles: bundles,
	}
}

// OnChanged rebuilds all pages when path belongs to a bundle.
func (h *AssetHandler) OnChanged(ctx context.Context, path string) ([]string, error) {
	key := Normalize(h.root, path)

	bundle, ok := h.bundles.PathToBundle()[key]
	if !ok {
		h.logger.Debug(ctx, "Asset is not part of any bundle", "asset", key)
		return []string{}, nil
	}

	if _, err := h.bundles.Resolve(bundle); err != nil {
		if !siteerrors.IsRecoverable(err) {
			return []string{}, err
		}
		h.recorder.IncRebuildFailure(h.source)
		h.logger.Error(ctx, err, "Bundle compilation failed", "bundle", bundle, "asset", key)
		h.logger.Info(ctx, StillWatching)
		return []string{}, nil
	}

	return h.rebuild(ctx, key, h.registry.Pages())
}
