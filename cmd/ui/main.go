package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"market-dashboard/internal/analytics"
	"market-dashboard/internal/cache"
	"market-dashboard/internal/config"
	"market-dashboard/internal/logger"
	"market-dashboard/internal/market"
	"market-dashboard/internal/source"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

//go:embed web/index.html
var webFS embed.FS

func main() {
	// Load configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load the market table
	loader, err := source.New(&cfg, log)
	if err != nil {
		log.Fatal("Failed to set up market data source", zap.Error(err))
	}
	store := market.NewStore(log, loader, market.Options{
		MovingAverageWindow: cfg.Data.MovingAverageWindow,
		PartitionByTicker:   cfg.Data.PartitionMovingAverage,
	})
	if err := store.Reload(ctx); err != nil {
		log.Fatal("Failed to load market data", zap.Error(err))
	}
	go store.Run(ctx, time.Duration(cfg.Data.ReloadInterval)*time.Second)

	// Optional Redis chart cache
	var rdb *redis.Client
	if cfg.Cache.Addr != "" {
		if rdb, err = cache.NewRedisClient(ctx, cfg.Cache.Addr, cfg.Cache.Password, cfg.Cache.DB); err != nil {
			log.Warn("Redis unavailable, running without chart cache", zap.Error(err))
			rdb = nil
		} else {
			defer rdb.Close()
			log.Info("Chart cache enabled", zap.String("addr", cfg.Cache.Addr))
		}
	}
	charts := cache.NewChartCache(rdb, time.Duration(cfg.Cache.TTL)*time.Second, analytics.NewService(store), cfg.Cache.Namespace, log)

	page, err := template.ParseFS(webFS, "web/index.html")
	if err != nil {
		log.Fatal("Failed to parse dashboard template", zap.Error(err))
	}

	// Setup HTTP server
	mux := http.NewServeMux()
	NewAPIHandler(log, charts, store, page).Routes(mux)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		log.Info("Shutdown signal received, gracefully shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("Server shutdown failed", zap.Error(err))
		}
	}()

	log.Info("Starting web server", zap.String("address", addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("Web server failed", zap.Error(err))
	}
	log.Info("Dashboard has been shut down.")
}
