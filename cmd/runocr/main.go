// runocr preprocesses and recognizes a single image file, printing the
// extracted text. Useful for checking an OCR install without the server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"textlens/internal/common"
	"textlens/internal/ocr"
	"textlens/internal/preprocess"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if len(os.Args) != 2 {
		logger.Error("usage", "cmd", "runocr <image-file>")
		os.Exit(2)
	}
	path := os.Args[1]

	cfg := common.LoadConfig()
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

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	prep := preprocess.New(cfg.OCR.ScratchDir, logger)

	start := time.Now()
	artifact, err := prep.Prepare(path)
	if err != nil {
		logger.Error("preprocessing failed", "path", path, "error", err)
		os.Exit(1)
	}
	defer os.Remove(artifact)

	text, err := engine.Recognize(ctx, artifact)
	if err != nil {
		logger.Error("recognition failed", "path", path, "error", err)
		os.Exit(1)
	}

	logger.Info("recognition OK",
		"path", path,
		"bytes", len(text),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	fmt.Println(text)
}
