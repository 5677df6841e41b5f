package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"labor_pipeline_backend/internal/search/repository"
	"labor_pipeline_backend/internal/search/transport"
	"labor_pipeline_backend/platform/apperr"

	"github.com/google/uuid"
)

type stubRepo struct {
	results []repository.SearchResult
	err     error
	query   string
	limit   int
}

func (r *stubRepo) GlobalSearch(_ context.Context, query string, limit int) ([]repository.SearchResult, error) {
	r.query, r.limit = query, limit
	return r.results, r.err
}

func TestGlobalSearchBuildsLinksAndDefaultsLimit(t *testing.T) {
	id := uuid.New()
	repo := &stubRepo{results: []repository.SearchResult{{
		ID: id, Type: "candidate", Title: "Imran Khan", Status: "training",
		LinkID: id.String(), Score: 1.2, CreatedAt: time.Now(), Total: 1,
	}}}
	svc := New(repo)

	res, err := svc.GlobalSearch(context.Background(), transport.SearchRequest{Query: "  imran  "})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if repo.query != "imran" || repo.limit != 10 {
		t.Fatalf("expected trimmed query and default limit, got %q %d", repo.query, repo.limit)
	}
	if res.Total != 1 || res.Items[0].Link != "/app/candidates/"+id.String() {
		t.Fatalf("unexpected response %+v", res)
	}
}

func TestGlobalSearchBlankQuery(t *testing.T) {
	repo := &stubRepo{}
	res, err := New(repo).GlobalSearch(context.Background(), transport.SearchRequest{Query: "   "})
	if err != nil || res.Total != 0 || res.Items == nil {
		t.Fatalf("expected empty non-nil result, got %+v err=%v", res, err)
	}
	if repo.query != "" {
		t.Fatal("blank query should not hit the repository")
	}
}

func TestGlobalSearchWrapsRepositoryError(t *testing.T) {
	_, err := New(&stubRepo{err: errors.New("db down")}).GlobalSearch(context.Background(), transport.SearchRequest{Query: "visa"})
	if !apperr.Is(err, apperr.KindInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
}
