package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"textlens/internal/common"
	"textlens/internal/export"
	"textlens/internal/ocr"
	"textlens/internal/pipeline"
	"textlens/internal/preprocess"
	"textlens/internal/repository"
	"textlens/internal/search"
	"textlens/internal/server"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repository.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("opening database", "error", err)
		os.Exit(1)
	}
	defer repository.Close(db, logger)

	if err := repository.Migrate(db); err != nil {
		logger.Error("running migrations", "error", err)
		os.Exit(1)
	}
	if err := repository.HealthCheck(ctx, db, cfg.Database.DialTimeout, logger); err != nil {
		logger.Error("database health check failed", "error", err)
		os.Exit(1)
	}
	logger.Info("database ready", "driver", cfg.Database.Driver)

	engine, err := ocr.New(ocr.Config{
		Engine:    cfg.OCR.Engine,
		Tesseract: cfg.OCR.Tesseract,
		Language:  cfg.OCR.Language,
		OEM:       cfg.OCR.OEM,
		PSM:       cfg.OCR.PSM,
	}, logger)
	if err != nil {
		logger.Error("configuring OCR engine", "error", err)
		os.Exit(1)
	}

	repo := repository.NewImageRepository(db, logger)
	prep := preprocess.New(cfg.OCR.ScratchDir, logger)
	pipe := pipeline.New(prep, engine, repo, cfg.Server.UploadDir, logger)
	gateway := search.NewGateway(repo, logger)
	exporter := export.NewService(repo, logger)

	if err := os.MkdirAll(cfg.Server.UploadDir, 0o755); err != nil {
		logger.Error("creating upload dir", "error", err)
		os.Exit(1)
	}

	srv := server.New(pipe, gateway, repo, exporter, cfg.Server, logger)
	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: srv.Router(),
	}

	go func() {
		logger.Info("http serving", "addr", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
	logger.Info("stopped")
}
