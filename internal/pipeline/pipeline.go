// Package pipeline orchestrates preprocess -> recognize -> persist for
// each uploaded or re-processed image. Files in a batch are independent:
// one failure never aborts siblings.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"textlens/internal/common"
	"textlens/internal/entity"
	"textlens/internal/ocr"
	"textlens/internal/preprocess"
	"textlens/internal/repository"
)

// Status is the terminal state of one file's run.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusSkipped   Status = "skipped" // OCR produced empty text; nothing persisted
	StatusFailed    Status = "failed"
)

// FileResult reports one file's outcome. Record is set only on
// StatusCompleted. Confidence is reserved for a future engine score and
// is always zero.
type FileResult struct {
	ImageRef   string
	Text       string
	Status     Status
	Record     *entity.ImageRecord
	Confidence float32
	Err        error
}

// BatchFile is one member of an upload batch: the stored asset name and
// its absolute path on disk.
type BatchFile struct {
	ImageRef string
	Path     string
}

type Pipeline struct {
	prep      *preprocess.Preprocessor
	engine    ocr.Engine
	repo      repository.ImageRepository
	uploadDir string
	logger    *slog.Logger
}

func New(prep *preprocess.Preprocessor, engine ocr.Engine, repo repository.ImageRepository, uploadDir string, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{prep: prep, engine: engine, repo: repo, uploadDir: uploadDir, logger: logger}
}

// Process runs one file through the full chain and persists non-empty
// text as a new record.
func (p *Pipeline) Process(ctx context.Context, file BatchFile) FileResult {
	text, err := p.extract(ctx, file.Path)
	if err != nil {
		p.logger.Error("pipeline.extract.failed", "image", file.ImageRef, "error", err)
		return FileResult{ImageRef: file.ImageRef, Status: StatusFailed, Err: err}
	}
	if text == "" {
		p.logger.Info("pipeline.extract.empty", "image", file.ImageRef)
		return FileResult{ImageRef: file.ImageRef, Status: StatusSkipped}
	}

	rec, err := p.repo.Create(ctx, file.ImageRef, text)
	if err != nil {
		p.logger.Error("pipeline.persist.failed", "image", file.ImageRef, "error", err)
		return FileResult{ImageRef: file.ImageRef, Text: text, Status: StatusFailed, Err: err}
	}
	p.logger.Info("pipeline.completed", "image", file.ImageRef, "id", rec.ID, "chars", len(text))
	return FileResult{ImageRef: file.ImageRef, Text: text, Status: StatusCompleted, Record: rec}
}

// ProcessBatch runs files sequentially in upload order and reports every
// file's terminal state.
func (p *Pipeline) ProcessBatch(ctx context.Context, files []BatchFile) []FileResult {
	results := make([]FileResult, 0, len(files))
	for _, f := range files {
		results = append(results, p.Process(ctx, f))
	}
	return results
}

// Regenerate re-runs OCR against an existing record's asset. Non-empty
// text overwrites the record in place; empty text leaves the record and
// its prior text untouched and reports updated=false.
func (p *Pipeline) Regenerate(ctx context.Context, id uuid.UUID) (*entity.ImageRecord, bool, error) {
	rec, err := p.repo.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}

	src := filepath.Join(p.uploadDir, rec.ImageRef)
	if _, err := os.Stat(src); err != nil {
		return nil, false, fmt.Errorf("%w: asset %s", common.ErrNotFound, rec.ImageRef)
	}

	text, err := p.extract(ctx, src)
	if err != nil {
		return nil, false, err
	}
	if text == "" {
		p.logger.Info("pipeline.regenerate.empty", "id", id, "image", rec.ImageRef)
		return rec, false, nil
	}

	updated, err := p.repo.UpdateText(ctx, id, text)
	if err != nil {
		return nil, false, err
	}
	p.logger.Info("pipeline.regenerate.ok", "id", id, "image", rec.ImageRef, "chars", len(text))
	return updated, true, nil
}

// extract preprocesses the source and recognizes text in the derived
// artifact. The artifact is removed best-effort once OCR finishes,
// whatever the outcome; removal failures are swallowed.
func (p *Pipeline) extract(ctx context.Context, srcPath string) (string, error) {
	artifact, err := p.prep.Prepare(srcPath)
	if err != nil {
		return "", err
	}
	defer func() {
		if rmErr := os.Remove(artifact); rmErr != nil {
			p.logger.Debug("pipeline.artifact.cleanup_failed", "artifact", artifact, "error", rmErr)
		}
	}()

	text, err := p.engine.Recognize(ctx, artifact)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// StoredFilename derives a collision-free name for an uploaded asset,
// preserving the original extension.
func StoredFilename(original string) string {
	ext := strings.ToLower(filepath.Ext(original))
	return fmt.Sprintf("%d_%s%s", time.Now().UnixNano(), uuid.NewString()[:8], ext)
}
