package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"vegprice-service/internal/auth"
	"vegprice-service/internal/config"
	"vegprice-service/internal/db"
	httphandler "vegprice-service/internal/http"
	"vegprice-service/internal/http/middleware"
	"vegprice-service/internal/inference"
	"vegprice-service/internal/logger"
	"vegprice-service/internal/pricing"
	"vegprice-service/internal/repository"
	"vegprice-service/internal/service"
	"vegprice-service/internal/storage"
)

const modelHealthInterval = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.Environment, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	catalog := pricing.DefaultCatalog()
	engine := pricing.NewEngine(catalog, time.Now)
	ledger := pricing.NewLedger(catalog, time.Now)

	opts := []service.Option{
		service.WithRandSource(service.NewRandSource(cfg.Detection.RandomSeed)),
		service.WithDefaults(cfg.Detection.DefaultLocation, cfg.Detection.ConfidenceThreshold),
	}

	// База нужна только для аудита, без неё сервис работает.
	database, err := db.New(cfg, appLogger)
	switch {
	case errors.Is(err, db.ErrNotConfigured):
		appLogger.Warn().Msg("DB_DSN not set, scan and contribution audit disabled")
	case err != nil:
		appLogger.Fatal().Err(err).Msg("failed to connect database")
	default:
		opts = append(opts, service.WithAudit(repository.NewAuditRepository(database)))
	}

	if cfg.Inference.URL != "" {
		detector := inference.NewClient(cfg.Inference.URL, cfg.Inference.Timeout)
		go watchModel(ctx, detector, appLogger)
		opts = append(opts, service.WithDetector(detector))
	} else {
		appLogger.Info().Msg("INFERENCE_URL not set, using color heuristic detector")
	}

	marketService := service.NewMarketService(engine, ledger, appLogger, opts...)

	var snapshots httphandler.SnapshotStore
	if cfg.StorageEnabled() {
		snapshotClient, err := storage.NewSnapshotClient(cfg.Storage)
		if err != nil {
			appLogger.Fatal().Err(err).Msg("failed to initialize S3 client")
		}
		snapshots = snapshotClient
	} else {
		appLogger.Warn().Msg("S3 storage not configured, scan photos will not be archived")
	}

	var authMiddleware gin.HandlerFunc
	if cfg.Auth.AccessSecret != "" {
		authMiddleware = middleware.Auth(auth.NewParser(cfg.Auth.AccessSecret))
	} else {
		appLogger.Warn().Msg("JWT_ACCESS_SECRET not set, contributions endpoint is public")
	}

	handler := httphandler.NewHandler(marketService, cfg, appLogger, snapshots)
	router := httphandler.NewRouter(handler, authMiddleware, cfg.Environment, database, appLogger)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	appLogger.Info().
		Str("addr", addr).
		Int("vegetables", catalog.Len()).
		Str("default_location", cfg.Detection.DefaultLocation).
		Msg("starting vegetable pricing service")

	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error().Err(err).Msg("failed to start server")
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	appLogger.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error().Err(err).Msg("server forced to shutdown")
	}

	appLogger.Info().Msg("server exited")
}

// watchModel периодически проверяет сервер модели; пока он недоступен, работает эвристика.
func watchModel(ctx context.Context, detector *inference.Client, log zerolog.Logger) {
	check := func() {
		wasLoaded := detector.Loaded()
		checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		err := detector.CheckHealth(checkCtx)
		switch {
		case err != nil && wasLoaded:
			log.Warn().Err(err).Msg("model server became unavailable, switching to color heuristic")
		case err == nil && !wasLoaded:
			log.Info().Msg("model server is available")
		case err != nil:
			log.Debug().Err(err).Msg("model server still unavailable")
		}
	}

	check()
	ticker := time.NewTicker(modelHealthInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			check()
		}
	}
}
