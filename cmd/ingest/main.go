// ingest bulk-processes a directory of images through the same pipeline
// the server uses, copying each asset into the upload dir.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"

	"textlens/internal/common"
	"textlens/internal/ingest"
	"textlens/internal/ocr"
	"textlens/internal/pipeline"
	"textlens/internal/preprocess"
	"textlens/internal/repository"
)

func main() {
	_ = godotenv.Load()

	root := flag.String("dir", "", "directory to ingest (required)")
	exts := flag.String("ext", "", "comma-separated extensions to include (default: common image types)")
	skipHidden := flag.Bool("skip-hidden", true, "skip hidden files and directories")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if *root == "" {
		logger.Error("usage", "cmd", "ingest -dir <path> [-ext jpg,png] [-skip-hidden]")
		os.Exit(2)
	}

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	db, err := repository.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("open db", "error", err)
		os.Exit(1)
	}
	defer repository.Close(db, logger)

	if err := repository.Migrate(db); err != nil {
		logger.Error("migrations failed", "error", err)
		os.Exit(1)
	}

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

	var includeExts []string
	if *exts != "" {
		includeExts = strings.Split(*exts, ",")
	}

	ing := ingest.New(pipe, cfg.Server.UploadDir, logger)
	outcomes, stats, err := ing.IngestDirectory(ctx, *root, includeExts, *skipHidden)
	if err != nil {
		logger.Error("ingest aborted", "error", err)
		os.Exit(1)
	}

	for _, out := range outcomes {
		if out.Err != "" {
			logger.Warn("ingest.file", "path", out.Path, "status", string(out.Status), "error", out.Err)
		} else {
			logger.Info("ingest.file", "path", out.Path, "status", string(out.Status), "image", out.ImageRef)
		}
	}
	logger.Info("ingest.done",
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"completed", stats.Completed,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
	)
}
