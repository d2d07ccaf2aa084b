package server

import (
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"textlens/internal/common"
	"textlens/internal/pipeline"
)

type uploadResult struct {
	Image string `json:"image"`
	Text  string `json:"text"`
	Saved bool   `json:"saved"`
}

// handleUpload accepts up to MaxBatchFiles images in the "images" field,
// stores each asset and runs the processing pipeline. The batch always
// answers 200 with per-file granularity, except when zero valid files
// were submitted.
func (s *Server) handleUpload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		s.respondError(c, fmt.Errorf("%w: parse multipart form: %v", common.ErrValidation, err))
		return
	}

	files := form.File["images"]
	if len(files) == 0 {
		s.respondError(c, fmt.Errorf("%w: no files uploaded", common.ErrValidation))
		return
	}
	if len(files) > s.cfg.MaxBatchFiles {
		s.respondError(c, fmt.Errorf("%w: at most %d files per batch", common.ErrValidation, s.cfg.MaxBatchFiles))
		return
	}

	if err := os.MkdirAll(s.cfg.UploadDir, 0o755); err != nil {
		s.respondError(c, fmt.Errorf("%w: create upload dir: %v", common.ErrPersistence, err))
		return
	}

	var batch []pipeline.BatchFile
	for _, fh := range files {
		if !s.acceptUpload(fh) {
			continue
		}
		name := pipeline.StoredFilename(fh.Filename)
		dst := filepath.Join(s.cfg.UploadDir, name)
		if err := c.SaveUploadedFile(fh, dst); err != nil {
			s.logger.Error("upload.save_failed", "file", fh.Filename, "error", err)
			continue
		}
		batch = append(batch, pipeline.BatchFile{ImageRef: name, Path: dst})
	}
	if len(batch) == 0 {
		s.respondError(c, fmt.Errorf("%w: no valid image files in batch", common.ErrValidation))
		return
	}

	// A client disconnect must not abort an in-flight OCR run; the
	// engine call finishes before cleanup.
	ctx := context.WithoutCancel(c.Request.Context())
	outcomes := s.pipe.ProcessBatch(ctx, batch)

	results := make([]uploadResult, 0, len(outcomes))
	saved := 0
	for _, out := range outcomes {
		switch out.Status {
		case pipeline.StatusCompleted:
			results = append(results, uploadResult{Image: out.ImageRef, Text: out.Text, Saved: true})
			saved++
		case pipeline.StatusSkipped:
			results = append(results, uploadResult{Image: out.ImageRef, Saved: false})
		}
		// Failed files are excluded from the results list.
	}

	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("processed %d of %d image(s), saved %d", len(batch), len(files), saved),
		"results": results,
	})
}

// acceptUpload enforces the per-file constraints: image MIME type only
// and a bounded size. Rejected files are dropped from the batch, not
// fatal to it.
func (s *Server) acceptUpload(fh *multipart.FileHeader) bool {
	if fh.Size > s.cfg.MaxFileSize {
		s.logger.Warn("upload.rejected", "file", fh.Filename, "reason", "too large", "size", fh.Size)
		return false
	}
	contentType := fh.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		s.logger.Warn("upload.rejected", "file", fh.Filename, "reason", "not an image", "content_type", contentType)
		return false
	}
	return true
}
