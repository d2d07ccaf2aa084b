// Package ingest feeds images from the local filesystem into the
// processing pipeline, for bulk intake outside the HTTP surface.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"textlens/internal/pipeline"
)

// DefaultExtensions are the image extensions ingested when none are
// supplied.
var DefaultExtensions = map[string]struct{}{
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"gif":  {},
	"bmp":  {},
	"tif":  {},
	"tiff": {},
	"webp": {},
}

// FileOutcome is the per-file ingest result.
type FileOutcome struct {
	Path     string
	ImageRef string
	Status   pipeline.Status
	Err      string
}

// DirStats summarizes a directory ingest.
type DirStats struct {
	Scanned   uint32
	Matched   uint32
	Completed uint32
	Skipped   uint32
	Failed    uint32
}

type Ingestor struct {
	pipe      *pipeline.Pipeline
	uploadDir string
	logger    *slog.Logger
}

func New(pipe *pipeline.Pipeline, uploadDir string, logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{pipe: pipe, uploadDir: uploadDir, logger: logger}
}

// IngestDirectory walks root, filters by includeExts (or defaults), skips
// hidden entries if requested, and runs every matching file through the
// pipeline. Returns per-file results plus aggregate stats.
func (i *Ingestor) IngestDirectory(ctx context.Context, root string, includeExts []string, skipHidden bool) ([]FileOutcome, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}

	exts := DefaultExtensions
	if len(includeExts) > 0 {
		exts = map[string]struct{}{}
		for _, e := range includeExts {
			e = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(e), "."))
			if e != "" {
				exts[e] = struct{}{}
			}
		}
	}

	var outcomes []FileOutcome
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			stats.Failed++
			outcomes = append(outcomes, FileOutcome{Path: path, Status: pipeline.StatusFailed, Err: walkErr.Error()})
			return nil // continue walking
		}
		if skipHidden && strings.HasPrefix(d.Name(), ".") && d.Name() != "." {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		stats.Scanned++

		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
		if _, ok := exts[ext]; !ok {
			return nil
		}
		stats.Matched++

		outcome := i.ingestFile(ctx, path)
		outcomes = append(outcomes, outcome)
		switch outcome.Status {
		case pipeline.StatusCompleted:
			stats.Completed++
		case pipeline.StatusSkipped:
			stats.Skipped++
		default:
			stats.Failed++
		}
		return ctx.Err()
	})
	if err != nil {
		return outcomes, stats, err
	}
	return outcomes, stats, nil
}

// ingestFile copies the source into the upload dir under a stored name,
// then runs the pipeline against the copy so the record's asset lives
// where the server expects it.
func (i *Ingestor) ingestFile(ctx context.Context, path string) FileOutcome {
	name := pipeline.StoredFilename(path)
	dst := filepath.Join(i.uploadDir, name)
	if err := copyFile(path, dst); err != nil {
		i.logger.Error("ingest.copy_failed", "path", path, "error", err)
		return FileOutcome{Path: path, Status: pipeline.StatusFailed, Err: err.Error()}
	}

	res := i.pipe.Process(ctx, pipeline.BatchFile{ImageRef: name, Path: dst})
	out := FileOutcome{Path: path, ImageRef: name, Status: res.Status}
	if res.Err != nil {
		out.Err = res.Err.Error()
	}
	return out
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return out.Close()
}
