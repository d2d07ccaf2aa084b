package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"textlens/internal/common"
)

// TesseractEngine shells out to the tesseract binary:
//
//	tesseract <file> stdout -l <lang> --oem <n> --psm <n>
type TesseractEngine struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewTesseractEngine(cfg Config, logger *slog.Logger) *TesseractEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &TesseractEngine{cfg: cfg.withDefaults(), runner: execRunner{}, logger: logger}
}

func (e *TesseractEngine) Recognize(ctx context.Context, path string) (string, error) {
	args := []string{
		path, "stdout",
		"-l", e.cfg.Language,
		"--oem", strconv.Itoa(e.cfg.OEM),
		"--psm", strconv.Itoa(e.cfg.PSM),
	}
	e.logger.Debug("ocr.tesseract.run", "path", path, "lang", e.cfg.Language)

	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, args...)
	if err != nil {
		detail := strings.TrimSpace(string(errb))
		if detail == "" {
			detail = err.Error()
		}
		return "", fmt.Errorf("%w: tesseract: %s", common.ErrOCRFailure, detail)
	}
	return strings.TrimSpace(string(out)), nil
}
