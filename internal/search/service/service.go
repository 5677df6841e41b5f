package service

import (
	"context"
	"math"
	"strings"

	"labor_pipeline_backend/internal/search/repository"
	"labor_pipeline_backend/internal/search/transport"
	"labor_pipeline_backend/platform/apperr"
)

type Repository interface {
	GlobalSearch(ctx context.Context, query string, limit int) ([]repository.SearchResult, error)
}

type Service struct {
	repo Repository
}

func New(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) GlobalSearch(ctx context.Context, req transport.SearchRequest) (*transport.SearchResponse, error) {
	q := strings.TrimSpace(req.Query)
	if q == "" {
		return &transport.SearchResponse{Items: []transport.SearchResultItem{}, Total: 0}, nil
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 10
	}

	results, err := s.repo.GlobalSearch(ctx, q, limit)
	if err != nil {
		appErr := apperr.Internal("search failed").WithOp("search.GlobalSearch")
		appErr.Err = err
		return nil, appErr
	}

	total := 0
	if len(results) > 0 {
		// COUNT(*) OVER() returns bigint
		if results[0].Total > math.MaxInt32 {
			total = math.MaxInt32
		} else {
			total = int(results[0].Total)
		}
	}

	items := make([]transport.SearchResultItem, len(results))
	for i, r := range results {
		items[i] = transport.SearchResultItem{
			ID:           r.ID.String(),
			Type:         r.Type,
			Title:        r.Title,
			Subtitle:     r.Subtitle,
			Preview:      r.Preview,
			Status:       r.Status,
			Link:         buildFrontendLink(r.Type, r.LinkID),
			Score:        float64(r.Score),
			MatchedField: r.MatchedField,
			CreatedAt:    r.CreatedAt,
		}
	}

	return &transport.SearchResponse{Items: items, Total: total}, nil
}

func buildFrontendLink(entityType, linkID string) string {
	switch entityType {
	case "candidate":
		return "/app/candidates/" + linkID
	case "complaint":
		return "/app/complaints/" + linkID
	default:
		return ""
	}
}
