package db

import (
	"context"
	"errors"
	"testing"

	"labor_pipeline_backend/platform/apperr"
)

func TestRetryOnConflictRetriesOnce(t *testing.T) {
	calls := 0
	err := RetryOnConflict(context.Background(), func(context.Context) error {
		calls++
		if calls == 1 {
			return StaleVersion("training")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success on second attempt, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestRetryOnConflictSurfacesRepeatedConflict(t *testing.T) {
	calls := 0
	err := RetryOnConflict(context.Background(), func(context.Context) error {
		calls++
		return StaleVersion("complaint")
	})
	if !apperr.Is(err, apperr.KindConcurrencyConflict) {
		t.Fatalf("expected concurrency conflict, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected exactly 2 calls, got %d", calls)
	}
}

func TestRetryOnConflictDoesNotRetryOtherErrors(t *testing.T) {
	calls := 0
	want := errors.New("boom")
	err := RetryOnConflict(context.Background(), func(context.Context) error {
		calls++
		return want
	})
	if !errors.Is(err, want) || calls != 1 {
		t.Fatalf("expected single call returning original error, got calls=%d err=%v", calls, err)
	}
}
