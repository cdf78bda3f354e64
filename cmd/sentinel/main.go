package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"fleet-sentinel/internal/access"
	"fleet-sentinel/internal/attendance"
	"fleet-sentinel/internal/auth"
	"fleet-sentinel/internal/config"
	"fleet-sentinel/internal/geo"
	"fleet-sentinel/internal/pipeline"
	"fleet-sentinel/internal/scan"
	"fleet-sentinel/internal/store"
	transporthttp "fleet-sentinel/internal/transport/http"
	"fleet-sentinel/internal/trend"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file, using system environment")
	}

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := store.NewPostgresStore(ctx, cfg)
	if err != nil {
		logger.Fatal("postgres connect failed", zap.Error(err))
	}
	defer db.Close()

	redis, err := store.NewRedisStore(ctx, cfg)
	if err != nil {
		logger.Fatal("redis connect failed", zap.Error(err))
	}
	defer redis.Close()

	zoneCfg, err := geo.LoadZoneConfig(cfg.ZoneConfigPath)
	if err != nil {
		logger.Fatal("zone config load failed",
			zap.String("path", cfg.ZoneConfigPath), zap.Error(err))
	}
	if len(zoneCfg.Zones) == 0 {
		logger.Warn("no zones configured: all assets resolve UNASSIGNED, non-admin views are empty",
			zap.String("path", cfg.ZoneConfigPath))
	}

	resolver := geo.NewResolver(zoneCfg.Zones)
	filter := access.NewFilter(resolver, zoneCfg.Assignments, logger)
	scanner := scan.NewScanner(resolver, db, scan.Config{
		OfflineThreshold: time.Duration(cfg.OfflineAfterHours) * time.Hour,
	}, logger)
	classifier := attendance.NewClassifier(resolver, attendance.Thresholds{
		ExpectedStart: cfg.ExpectedStart,
		ExpectedEnd:   cfg.ExpectedEnd,
	}, logger)
	aggregator := trend.NewAggregator(db, logger)

	dispatcher := pipeline.NewDispatcher(cfg.DBChannelSize, cfg.StateChannelSize)
	scanRunner := pipeline.NewScanRunner(scanner, db, redis, cfg.FleetID,
		time.Duration(cfg.ScanIntervalSeconds)*time.Second, logger)

	var wg sync.WaitGroup
	for i := 0; i < cfg.DBWriterWorkers; i++ {
		w := pipeline.NewDBWriter(dispatcher.DBChan, db, cfg.DBBatchSize, cfg.DBFlushIntervalMS, logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Run(ctx)
		}()
	}
	for i := 0; i < cfg.StateWriterWorkers; i++ {
		w := pipeline.NewStateWriter(dispatcher.StateChan, redis, logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Run(ctx)
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		scanRunner.Run(ctx)
	}()

	authenticator := auth.NewAuthenticator(cfg, redis)
	server := transporthttp.NewServer(dispatcher, scanRunner, filter, classifier,
		aggregator, db, redis, cfg.FleetID, logger)

	httpServer := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: server.Router(transporthttp.NewAuthMiddleware(authenticator)),
	}

	go func() {
		logger.Info("listening", zap.String("port", cfg.HTTPPort))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	cancel()
	wg.Wait()
}
