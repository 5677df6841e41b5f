package apperr

import (
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusMapping(t *testing.T) {
	tests := []struct {
		err  *Error
		want int
	}{
		{Validation("bad score"), http.StatusBadRequest},
		{InvalidTransition("guard not satisfied"), http.StatusUnprocessableEntity},
		{ConcurrencyConflict("stale version"), http.StatusConflict},
		{NotFound("missing"), http.StatusNotFound},
		{Forbidden("nope"), http.StatusForbidden},
		{Internal("boom"), http.StatusInternalServerError},
	}

	for _, tc := range tests {
		if got := tc.err.HTTPStatus(); got != tc.want {
			t.Errorf("%q: HTTPStatus() = %d, want %d", tc.err.Message, got, tc.want)
		}
	}
}

func TestGetKindUnwrapsChain(t *testing.T) {
	wrapped := fmt.Errorf("complete track: %w", InvalidTransition("no passing final assessment"))
	if !Is(wrapped, KindInvalidTransition) {
		t.Fatalf("expected wrapped error to carry KindInvalidTransition, got %v", GetKind(wrapped))
	}
	if GetKind(fmt.Errorf("plain")) != KindUnknown {
		t.Fatal("expected plain error to be KindUnknown")
	}
}

func TestErrorIncludesOp(t *testing.T) {
	err := Validation("score must not exceed max score").WithOp("training.RecordAssessment")
	if err.Error() != "training.RecordAssessment: score must not exceed max score" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
