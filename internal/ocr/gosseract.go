package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"textlens/internal/common"
)

// GosseractEngine recognizes text in-process through the Tesseract C API.
// A fresh client per call keeps recognitions independent across requests.
type GosseractEngine struct {
	cfg    Config
	logger *slog.Logger
}

func NewGosseractEngine(cfg Config, logger *slog.Logger) *GosseractEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &GosseractEngine{cfg: cfg.withDefaults(), logger: logger}
}

func (e *GosseractEngine) Recognize(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrOCRFailure, err)
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(e.cfg.Language); err != nil {
		return "", fmt.Errorf("%w: set language: %v", common.ErrOCRFailure, err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		return "", fmt.Errorf("%w: set psm: %v", common.ErrOCRFailure, err)
	}
	if err := client.SetImage(path); err != nil {
		return "", fmt.Errorf("%w: set image: %v", common.ErrOCRFailure, err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrOCRFailure, err)
	}
	e.logger.Debug("ocr.gosseract.ok", "path", path, "bytes", len(text))
	return strings.TrimSpace(text), nil
}
