package handler

import (
	"net/http"
	"time"

	"ygnbus/internal/store"
)

// Readiness is satisfied once the catalog has loaded at least once.
type Readiness interface {
	IsReady() bool
}

type HealthHandler struct {
	ready   Readiness
	catalog *store.CatalogStore
}

func NewHealthHandler(ready Readiness, catalog *store.CatalogStore) *HealthHandler {
	return &HealthHandler{
		ready:   ready,
		catalog: catalog,
	}
}

func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

type ReadyResponse struct {
	Ready      bool      `json:"ready"`
	StopCount  int       `json:"stopCount"`
	LineCount  int       `json:"lineCount"`
	ServerTime time.Time `json:"serverTime"`
}

func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ready := h.ready.IsReady()
	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}

	stats := h.catalog.Stats()
	respondJSON(w, status, ReadyResponse{
		Ready:      ready,
		StopCount:  stats.StopsCount,
		LineCount:  stats.LinesCount,
		ServerTime: time.Now(),
	})
}
