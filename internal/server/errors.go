package server

import (
	"errors"

	"github.com/gin-gonic/gin"

	"textlens/internal/common"
)

// respondError writes the taxonomy-mapped status with a human-readable
// message and the underlying detail preserved for diagnostics.
func (s *Server) respondError(c *gin.Context, err error) {
	status := common.StatusForError(err)
	if status >= 500 {
		s.logger.Error("http.error", "path", c.Request.URL.Path, "error", err)
	}
	c.JSON(status, gin.H{
		"error":  errorMessage(err),
		"detail": err.Error(),
	})
}

func errorMessage(err error) string {
	switch {
	case errors.Is(err, common.ErrValidation):
		return "invalid request"
	case errors.Is(err, common.ErrInvalidImage):
		return "invalid image"
	case errors.Is(err, common.ErrNotFound):
		return "not found"
	case errors.Is(err, common.ErrOCRFailure):
		return "text recognition failed"
	default:
		return "internal server error"
	}
}
