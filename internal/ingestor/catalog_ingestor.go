package ingestor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"ygnbus/internal/domain"
)

// Source fetches the stop and line catalogs.
type Source interface {
	FetchStops(ctx context.Context) ([]domain.Stop, error)
	FetchLines(ctx context.Context) ([]domain.Line, error)
}

// Target receives loaded data.
type Target interface {
	SetStops(stops []domain.Stop)
	SetLines(lines []domain.Line)
	RefreshLocation(ctx context.Context) error
}

// CatalogIngestor loads the catalog and the device location at startup and
// refreshes the catalog periodically. The three loads are independent: a
// failure in one never holds back the others.
type CatalogIngestor struct {
	source          Source
	target          Target
	refreshInterval time.Duration
	logger          *slog.Logger

	ready   bool
	readyMu sync.RWMutex
}

func NewCatalogIngestor(source Source, target Target, refreshInterval time.Duration, logger *slog.Logger) *CatalogIngestor {
	return &CatalogIngestor{
		source:          source,
		target:          target,
		refreshInterval: refreshInterval,
		logger:          logger.With("component", "catalog_ingestor"),
	}
}

func (i *CatalogIngestor) Start(ctx context.Context) {
	i.load(ctx, true)

	if i.refreshInterval <= 0 {
		return
	}

	ticker := time.NewTicker(i.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			i.load(ctx, false)
		}
	}
}

// Load runs a single load of stops and lines, and the location when
// withLocation is set.
func (i *CatalogIngestor) Load(ctx context.Context, withLocation bool) {
	i.load(ctx, withLocation)
}

func (i *CatalogIngestor) load(ctx context.Context, withLocation bool) {
	start := time.Now()
	i.logger.Info("starting catalog load", "with_location", withLocation)

	var wg sync.WaitGroup
	var stopsErr, linesErr error
	var stopsCount, linesCount int

	wg.Add(2)

	go func() {
		defer wg.Done()
		stops, err := i.source.FetchStops(ctx)
		if err != nil {
			stopsErr = err
			return
		}
		stopsCount = len(stops)
		i.target.SetStops(stops)
	}()

	go func() {
		defer wg.Done()
		lines, err := i.source.FetchLines(ctx)
		if err != nil {
			linesErr = err
			return
		}
		linesCount = len(lines)
		i.target.SetLines(lines)
	}()

	if withLocation {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := i.target.RefreshLocation(ctx); err != nil {
				i.logger.Warn("failed to fetch device location", "error", err)
			}
		}()
	}

	wg.Wait()

	if stopsErr != nil {
		i.logger.Error("failed to fetch bus stops", "error", stopsErr)
	}
	if linesErr != nil {
		i.logger.Error("failed to fetch bus lines", "error", linesErr)
	}

	if !i.IsReady() && (stopsErr == nil || linesErr == nil) {
		i.setReady(true)
		i.logger.Info("ingestor ready", "stops", stopsCount, "lines", linesCount)
	}

	i.logger.Info("catalog load completed",
		"stops", stopsCount,
		"lines", linesCount,
		"stops_ok", stopsErr == nil,
		"lines_ok", linesErr == nil,
		"total_duration", time.Since(start),
	)
}

func (i *CatalogIngestor) IsReady() bool {
	i.readyMu.RLock()
	defer i.readyMu.RUnlock()
	return i.ready
}

func (i *CatalogIngestor) setReady(ready bool) {
	i.readyMu.Lock()
	defer i.readyMu.Unlock()
	i.ready = ready
}
