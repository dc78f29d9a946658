package handler

import (
	"context"
	"log/slog"
	"net/http"

	"ygnbus/internal/store"
)

// Invalidator drops cached catalogs.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Loader reloads the catalog from its source.
type Loader interface {
	Load(ctx context.Context, withLocation bool)
}

type CatalogHandler struct {
	cache   Invalidator
	loader  Loader
	catalog *store.CatalogStore
	logger  *slog.Logger
}

func NewCatalogHandler(cache Invalidator, loader Loader, catalog *store.CatalogStore, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{
		cache:   cache,
		loader:  loader,
		catalog: catalog,
		logger:  logger.With("handler", "catalog"),
	}
}

// Refresh bypasses the catalog cache and reloads stops and lines.
func (h *CatalogHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Warn("catalog cache invalidation failed", "error", err)
	}
	h.loader.Load(r.Context(), false)
	respondJSON(w, http.StatusOK, h.catalog.Stats())
}
