// Package search resolves free-text queries against stored image text.
// An empty query lists the most recent records instead of erroring.
package search

import (
	"context"
	"log/slog"
	"strings"

	"textlens/internal/entity"
	"textlens/internal/repository"
)

// Result annotates each record with how it was produced: matched=true for
// the substring-search path, matched=false for the unconditional listing.
type Result struct {
	Record  *entity.ImageRecord
	Matched bool
}

type Gateway struct {
	repo   repository.ImageRepository
	logger *slog.Logger
}

func NewGateway(repo repository.ImageRepository, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{repo: repo, logger: logger}
}

// Search returns matches ordered by recency only; there is no relevance
// ranking beyond match/no-match.
func (g *Gateway) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	query = strings.TrimSpace(query)

	if query == "" {
		recs, err := g.repo.List(ctx, limit)
		if err != nil {
			return nil, err
		}
		return annotate(recs, false), nil
	}

	recs, err := g.repo.SearchText(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	g.logger.Debug("search.ok", "query", query, "hits", len(recs))
	return annotate(recs, true), nil
}

func annotate(recs []*entity.ImageRecord, matched bool) []Result {
	results := make([]Result, len(recs))
	for i, rec := range recs {
		results[i] = Result{Record: rec, Matched: matched}
	}
	return results
}
