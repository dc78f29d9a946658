package handler

import (
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"ygnbus/internal/bridge"
	"ygnbus/internal/cache"
	"ygnbus/internal/hub"
	"ygnbus/internal/route"
	"ygnbus/internal/store"
)

// Stats tracks server-wide counters.
type Stats struct {
	startTime        time.Time
	requestCount     atomic.Int64
	wsConnections    atomic.Int64
	wsMessagesIn     atomic.Int64
	wsMessagesOut    atomic.Int64
	rateLimitBlocked atomic.Int64
}

var ServerStats = &Stats{
	startTime: time.Now(),
}

func (s *Stats) IncRequests()         { s.requestCount.Add(1) }
func (s *Stats) IncWSConnections()    { s.wsConnections.Add(1) }
func (s *Stats) DecWSConnections()    { s.wsConnections.Add(-1) }
func (s *Stats) IncWSMessagesIn()     { s.wsMessagesIn.Add(1) }
func (s *Stats) IncWSMessagesOut()    { s.wsMessagesOut.Add(1) }
func (s *Stats) IncRateLimitBlocked() { s.rateLimitBlocked.Add(1) }

// RouteSource reports the current route negotiation state.
type RouteSource interface {
	Snapshot() route.Snapshot
}

type StatsHandler struct {
	catalog *store.CatalogStore
	hub     *hub.Hub
	bridge  *bridge.Bridge
	cache   *cache.Catalog
	route   RouteSource
}

func NewStatsHandler(catalog *store.CatalogStore, h *hub.Hub, b *bridge.Bridge, c *cache.Catalog, r RouteSource) *StatsHandler {
	return &StatsHandler{
		catalog: catalog,
		hub:     h,
		bridge:  b,
		cache:   c,
		route:   r,
	}
}

type StatsResponse struct {
	Server   ServerStatsResponse   `json:"server"`
	Catalog  store.CatalogStats    `json:"catalog"`
	Route    RouteStatsResponse    `json:"route"`
	Renderer RendererStatsResponse `json:"renderer"`
	Cache    CacheStatsResponse    `json:"cache"`
	Go       GoStatsResponse       `json:"go"`
}

type ServerStatsResponse struct {
	Uptime        string    `json:"uptime"`
	UptimeSeconds float64   `json:"uptime_seconds"`
	StartTime     time.Time `json:"start_time"`
	RequestCount  int64     `json:"request_count"`
	RateLimited   int64     `json:"rate_limited"`
	Version       string    `json:"version"`
}

type RouteStatsResponse struct {
	State      route.State `json:"state"`
	Token      route.Token `json:"token"`
	Candidates int         `json:"candidates"`
}

type RendererStatsResponse struct {
	Connections int64 `json:"connections"`
	Clients     int   `json:"clients"`
	LatestBytes int   `json:"latest_snapshot_bytes"`
	MessagesIn  int64 `json:"messages_in"`
	MessagesOut int64 `json:"messages_out"`
	Published   int64 `json:"published"`
	Skipped     int64 `json:"skipped"`
	Received    int64 `json:"received"`
	Rejected    int64 `json:"rejected"`
}

type CacheStatsResponse struct {
	Hits       int64   `json:"hits"`
	RemoteHits int64   `json:"remote_hits"`
	Misses     int64   `json:"misses"`
	Ratio      float64 `json:"hit_ratio"`
}

type GoStatsResponse struct {
	Goroutines  int     `json:"goroutines"`
	HeapAlloc   uint64  `json:"heap_alloc_bytes"`
	HeapAllocMB float64 `json:"heap_alloc_mb"`
	NumGC       uint32  `json:"num_gc"`
	GoVersion   string  `json:"go_version"`
}

func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	uptime := time.Since(ServerStats.startTime)

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	cs := h.cache.Stats()
	var ratio float64
	if total := cs.Hits + cs.RemoteHits + cs.Misses; total > 0 {
		ratio = float64(cs.Hits+cs.RemoteHits) / float64(total)
	}

	snap := h.route.Snapshot()
	bs := h.bridge.Stats()

	response := StatsResponse{
		Server: ServerStatsResponse{
			Uptime:        uptime.Round(time.Second).String(),
			UptimeSeconds: uptime.Seconds(),
			StartTime:     ServerStats.startTime,
			RequestCount:  ServerStats.requestCount.Load(),
			RateLimited:   ServerStats.rateLimitBlocked.Load(),
			Version:       "1.0.0",
		},
		Catalog: h.catalog.Stats(),
		Route: RouteStatsResponse{
			State:      snap.State,
			Token:      snap.Token,
			Candidates: len(snap.Lines),
		},
		Renderer: RendererStatsResponse{
			Connections: ServerStats.wsConnections.Load(),
			Clients:     h.hub.ClientCount(),
			LatestBytes: len(h.hub.Latest()),
			MessagesIn:  ServerStats.wsMessagesIn.Load(),
			MessagesOut: ServerStats.wsMessagesOut.Load(),
			Published:   bs.Published,
			Skipped:     bs.Skipped,
			Received:    bs.Received,
			Rejected:    bs.Rejected,
		},
		Cache: CacheStatsResponse{
			Hits:       cs.Hits,
			RemoteHits: cs.RemoteHits,
			Misses:     cs.Misses,
			Ratio:      ratio,
		},
		Go: GoStatsResponse{
			Goroutines:  runtime.NumGoroutine(),
			HeapAlloc:   mem.HeapAlloc,
			HeapAllocMB: float64(mem.HeapAlloc) / 1024 / 1024,
			NumGC:       mem.NumGC,
			GoVersion:   runtime.Version(),
		},
	}

	w.Header().Set("Cache-Control", "no-cache")
	respondJSON(w, http.StatusOK, response)
}
