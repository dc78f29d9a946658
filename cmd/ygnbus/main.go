package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"ygnbus/internal/bridge"
	"ygnbus/internal/cache"
	"ygnbus/internal/config"
	"ygnbus/internal/handler"
	"ygnbus/internal/hub"
	"ygnbus/internal/ingestor"
	"ygnbus/internal/location"
	"ygnbus/internal/middleware"
	"ygnbus/internal/nav"
	"ygnbus/internal/route"
	"ygnbus/internal/session"
	"ygnbus/internal/store"
	"ygnbus/pkg/busapi"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("starting ygnbus server",
		"log_level", cfg.LogLevel.String(),
		"http_addr", cfg.HTTPAddr,
		"bus_api", cfg.BusAPIURL,
		"redis_enabled", cfg.RedisEnabled,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	apiClient := busapi.New(cfg.BusAPIURL, cfg.BusAPITimeout)

	var remote cache.Remote
	if cfg.RedisEnabled {
		rc, err := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger)
		if err != nil {
			logger.Warn("redis unavailable, using in-process cache only", "error", err)
		} else {
			defer rc.Close()
			remote = rc
		}
	}
	catalogCache := cache.NewCatalog(apiClient, remote, cfg.CatalogCacheSize, cfg.CatalogCacheTTL, logger)

	catalogStore := store.NewCatalogStore()
	navCtx := nav.NewContext()
	rendererHub := hub.NewHub(logger)
	renderBridge := bridge.New(rendererHub, logger)
	negotiator := route.NewNegotiator(ctx, apiClient, navCtx, cfg.RouteTimeout, logger)

	initial, err := location.ParsePair(cfg.DefaultLocation)
	if err != nil {
		logger.Warn("ignoring invalid default location", "value", cfg.DefaultLocation, "error", err)
		initial = nil
	}
	reported := location.NewReported(initial)
	locator := location.NewGated(reported, cfg.LocationPermission)

	sess := session.New(ctx, catalogStore, navCtx, negotiator, renderBridge, locator, session.Options{
		StopsBatchSize:     cfg.StopsBatchSize,
		LinesBatchSize:     cfg.LinesBatchSize,
		EndpointsBatchSize: cfg.EndpointsBatchSize,
		LocationTimeout:    cfg.LocationTimeout,
	}, logger)
	renderBridge.SetSink(sess)

	ing := ingestor.NewCatalogIngestor(catalogCache, sess, cfg.CatalogRefreshInterval, logger)

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerWindow, cfg.RateLimitWindow, cfg.RateLimitWhitelist, logger)
	limiter.OnBlocked(handler.ServerStats.IncRateLimitBlocked)

	healthHandler := handler.NewHealthHandler(ing, catalogStore)
	statsHandler := handler.NewStatsHandler(catalogStore, rendererHub, renderBridge, catalogCache, negotiator)
	rendererHandler := handler.NewRendererHandler(rendererHub, renderBridge, cfg.RendererSendBuffer, logger)
	sessionHandler := handler.NewSessionHandler(sess, reported, logger)
	catalogHandler := handler.NewCatalogHandler(catalogCache, ing, catalogStore, logger)

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(handler.RequestLogger(logger))
	r.Use(handler.CORSMiddleware(cfg.CORSAllowedOrigins))

	r.Get("/healthz", healthHandler.Healthz)
	r.Get("/readyz", healthHandler.Readyz)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/renderer", rendererHandler.ServeWS)

		r.Group(func(r chi.Router) {
			r.Use(handler.CountRequests)
			r.Use(limiter.Middleware)
			r.Use(handler.GzipMiddleware)
			r.Get("/stats", statsHandler.GetStats)
			r.Post("/catalog/refresh", catalogHandler.Refresh)
			sessionHandler.Routes(r)
		})
	})

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go rendererHub.Run(ctx)
	go limiter.Run(ctx)
	go ing.Start(ctx)

	go func() {
		logger.Info("starting HTTP server", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigChan:
		logger.Info("shutdown signal received")
	case <-ctx.Done():
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}
	sess.WaitRoute()

	logger.Info("shutdown complete")
}
