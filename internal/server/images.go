package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"textlens/internal/common"
)

type searchResult struct {
	ID        string    `json:"id"`
	Image     string    `json:"image"`
	Text      string    `json:"text"`
	Matched   bool      `json:"matched"`
	CreatedAt time.Time `json:"createdAt"`
}

// handleSearch lists records, optionally narrowed by the "search" query
// parameter. An empty query lists the most recent records.
func (s *Server) handleSearch(c *gin.Context) {
	query := c.Query("search")

	matches, err := s.gateway.Search(c.Request.Context(), query, 0)
	if err != nil {
		s.respondError(c, err)
		return
	}

	results := make([]searchResult, len(matches))
	for i, m := range matches {
		results[i] = searchResult{
			ID:        m.Record.ID.String(),
			Image:     m.Record.ImageRef,
			Text:      m.Record.Text,
			Matched:   m.Matched,
			CreatedAt: m.Record.CreatedAt,
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"query":   query,
		"count":   len(results),
		"results": results,
	})
}

type updateRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleUpdate(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		s.respondError(c, err)
		return
	}

	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, fmt.Errorf("%w: invalid JSON body: %v", common.ErrValidation, err))
		return
	}

	rec, err := s.repo.UpdateText(c.Request.Context(), id, req.Text)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "text updated",
		"result":  rec,
	})
}

func (s *Server) handleRegenerate(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		s.respondError(c, err)
		return
	}

	// As with uploads, a disconnect does not abort the engine call.
	ctx := context.WithoutCancel(c.Request.Context())
	rec, updated, err := s.pipe.Regenerate(ctx, id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if !updated {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  "no text extracted",
			"detail": "regeneration produced empty text; existing record left unchanged",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "text regenerated",
		"result":  rec,
	})
}

func (s *Server) handleDelete(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		s.respondError(c, err)
		return
	}

	rec, err := s.repo.Delete(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}

	// Deletion also removes the underlying asset; a missing file is fine.
	asset := filepath.Join(s.cfg.UploadDir, rec.ImageRef)
	if err := os.Remove(asset); err != nil && !os.IsNotExist(err) {
		s.logger.Error("delete.asset_failed", "asset", asset, "error", err)
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "image deleted",
		"deleted": rec,
	})
}

func (s *Server) handleExport(c *gin.Context) {
	data, err := s.exporter.ExportXLSX(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}

	filename := fmt.Sprintf("images_%s.xlsx", time.Now().UTC().Format("20060102_150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func parseID(c *gin.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: malformed id %q", common.ErrValidation, c.Param("id"))
	}
	return id, nil
}
