// Package server exposes the processing core over HTTP with gin.
package server

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"textlens/internal/common"
	"textlens/internal/export"
	"textlens/internal/pipeline"
	"textlens/internal/repository"
	"textlens/internal/search"
)

type Server struct {
	pipe     *pipeline.Pipeline
	gateway  *search.Gateway
	repo     repository.ImageRepository
	exporter *export.Service
	cfg      common.ServerConfig
	logger   *slog.Logger
}

func New(pipe *pipeline.Pipeline, gateway *search.Gateway, repo repository.ImageRepository, exporter *export.Service, cfg common.ServerConfig, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		pipe:     pipe,
		gateway:  gateway,
		repo:     repo,
		exporter: exporter,
		cfg:      cfg,
		logger:   logger,
	}
}

// Router builds the gin engine with all routes and middleware attached.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(RequestLogger(s.logger))
	router.Use(gin.CustomRecovery(HandlePanics(s.logger)))

	router.POST("/image", s.handleUpload)
	router.GET("/image", s.handleSearch)
	router.GET("/image/export", s.handleExport)
	router.PATCH("/image/:id", s.handleUpdate)
	router.POST("/image/:id/regenerate", s.handleRegenerate)
	router.DELETE("/image/:id", s.handleDelete)
	router.GET("/health", s.handleHealth)

	// Uploaded assets are served back under a static path keyed by
	// their stored filename.
	router.Static("/uploads", s.cfg.UploadDir)

	return router
}
