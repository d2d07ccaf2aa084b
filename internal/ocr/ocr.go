// Package ocr wraps the external OCR engine behind a single Recognize
// call. Language, engine mode and page segmentation are fixed by
// configuration; retry policy belongs to callers.
package ocr

import (
	"context"
	"fmt"
	"log/slog"

	"textlens/internal/common"
)

type Config struct {
	Engine    string // "tesseract" | "gosseract"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	Language string // default "eng"
	OEM      int    // 1 = LSTM
	PSM      int    // 3 = fully automatic page segmentation
}

func (c Config) withDefaults() Config {
	if c.Engine == "" {
		c.Engine = "tesseract"
	}
	if c.Tesseract == "" {
		c.Tesseract = "tesseract"
	}
	if c.Language == "" {
		c.Language = "eng"
	}
	if c.OEM == 0 {
		c.OEM = 1
	}
	if c.PSM == 0 {
		c.PSM = 3
	}
	return c
}

// Engine recognizes text in a preprocessed image. Implementations return
// whitespace-trimmed text and never retry internally; whatever the engine
// produced is returned, even if empty.
type Engine interface {
	Recognize(ctx context.Context, path string) (string, error)
}

// New selects an engine implementation from configuration.
func New(cfg Config, logger *slog.Logger) (Engine, error) {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Engine {
	case "tesseract":
		return NewTesseractEngine(cfg, logger), nil
	case "gosseract":
		return NewGosseractEngine(cfg, logger), nil
	default:
		return nil, fmt.Errorf("%w: unknown OCR engine %q", common.ErrValidation, cfg.Engine)
	}
}
