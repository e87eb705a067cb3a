package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"github.com/BruksfildServices01/homeservices-coverage/internal/audit"
	"github.com/BruksfildServices01/homeservices-coverage/internal/config"
	dbpkg "github.com/BruksfildServices01/homeservices-coverage/internal/db"
	"github.com/BruksfildServices01/homeservices-coverage/internal/domain/coverage"
	"github.com/BruksfildServices01/homeservices-coverage/internal/geocoding"
	"github.com/BruksfildServices01/homeservices-coverage/internal/infra/cache"
	"github.com/BruksfildServices01/homeservices-coverage/internal/infra/repository"
	"github.com/BruksfildServices01/homeservices-coverage/internal/logger"
	"github.com/BruksfildServices01/homeservices-coverage/internal/metrics"
	"github.com/BruksfildServices01/homeservices-coverage/internal/postalcode"
	"github.com/BruksfildServices01/homeservices-coverage/internal/routes"
)

func main() {
	lg := logger.Setup()
	cfg := config.Load()

	// ------------------------------
	// STORAGE
	// ------------------------------
	var (
		repo  coverage.Repository
		store postalcode.Store
	)
	switch cfg.StorageDriver {
	case "memory":
		repo = repository.NewMemoryRepository()
		store = repository.NewPostalCodeMemoryStore()
		lg.Warn("running with in-memory storage, nothing survives a restart")
	default:
		db := dbpkg.NewDB(cfg)
		repo = repository.NewCoverageGormRepository(db)
		store = repository.NewPostalCodeGormStore(db)
	}

	// ------------------------------
	// POSTAL CODE REGISTRY
	// ------------------------------
	index, err := postalcode.NewIndex(cfg.SpatialIndex, cfg.GridCellDeg)
	if err != nil {
		log.Fatalf("failed to build spatial index: %v", err)
	}
	registry := postalcode.NewRegistry(store, index, cfg.CentroidPadDeg)

	loadCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	n, err := registry.Load(loadCtx)
	cancel()
	if err != nil {
		log.Fatalf("failed to load postal codes: %v", err)
	}
	if n == 0 {
		lg.Warn("postal code registry is empty, polygon resolution reports not_computed until a dataset is imported")
	}

	writer := postalcode.NewWriter(store, 100)
	registry.SetWriter(writer)

	// ------------------------------
	// COVERAGE CACHE
	// ------------------------------
	var (
		coverageCache coverage.Cache
		client        *redis.Client
	)
	if cfg.RedisAddr != "" {
		client = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := client.Ping(pingCtx).Err(); err != nil {
			lg.Warn("redis unreachable, cache reads will miss until it recovers", "addr", cfg.RedisAddr, "err", err)
		}
		cancel()
		coverageCache = cache.NewRedisCoverageCache(client, cfg.CacheTTL)
	} else {
		coverageCache = cache.NewMemoryCoverageCache(cfg.CacheTTL)
	}

	// ------------------------------
	// GEOCODING
	// ------------------------------
	var lookup geocoding.Lookup
	if client := geocoding.NewClient(cfg.GoogleMapsAPIKey, cfg.GeocodeTimeout); client != nil {
		lookup = client
	} else {
		lg.Info("GOOGLE_MAPS_API_KEY not set, unknown postal codes will be dropped")
	}
	enricher := geocoding.NewEnricher(lookup, registry, cfg.GeocodeBatchSize, cfg.GeocodeRPS)

	dispatcher := audit.NewDispatcher(repo)

	// ------------------------------
	// HTTP
	// ------------------------------
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":       "ok",
			"postal_codes": registry.Len(),
		})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	routes.RegisterRoutes(r, routes.Deps{
		Repo:     repo,
		Registry: registry,
		Cache:    coverageCache,
		Enricher: enricher,
		Audit:    dispatcher,
	}, cfg)

	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: r,
	}

	// ------------------------------
	// GRACEFUL SHUTDOWN
	// ------------------------------
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("Server running on %s", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	stop()
	lg.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Error("server shutdown", "err", err)
	}

	// handlers are drained; flush what they queued
	dispatcher.Close()
	writer.Close()
	if client != nil {
		_ = client.Close()
	}
	lg.Info("server stopped")
}
