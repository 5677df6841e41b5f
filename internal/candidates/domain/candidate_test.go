package domain

import (
	"testing"
	"time"

	"labor_pipeline_backend/platform/apperr"
)

var now = time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)

func candidateAt(s Status) Candidate {
	return Candidate{Status: s, StatusChangedAt: now}
}

func TestNewCandidateNormalizes(t *testing.T) {
	c, err := NewCandidate(Registration{
		FullName: "  Ahmed Raza ",
		CNIC:     "3520212345671",
		Phone:    "0300 1234567",
		Trade:    "electrician",
	}, now)
	if err != nil {
		t.Fatalf("new candidate: %v", err)
	}
	if c.CNIC != "35202-1234567-1" {
		t.Fatalf("unexpected cnic %q", c.CNIC)
	}
	if c.Phone != "+923001234567" {
		t.Fatalf("unexpected phone %q", c.Phone)
	}
	if c.Status != StatusNew || c.FullName != "Ahmed Raza" {
		t.Fatalf("unexpected candidate %+v", c)
	}

	if _, err := NewCandidate(Registration{FullName: "x", CNIC: "123", Phone: "03001234567"}, now); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected Validation for short cnic, got %v", err)
	}
	if _, err := NewCandidate(Registration{FullName: "x", CNIC: "35202-1234567-1", Phone: "12"}, now); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected Validation for bad phone, got %v", err)
	}
}

func TestAttemptImmediateNextOnly(t *testing.T) {
	c := candidateAt(StatusNew)
	if _, _, err := c.Attempt(StatusRegistered, "", Guards{}, now); !apperr.Is(err, apperr.KindInvalidTransition) {
		t.Fatalf("expected skipping screening to be rejected, got %v", err)
	}
	ch, changed, err := c.Attempt(StatusScreening, "", Guards{}, now)
	if err != nil || !changed || ch.From != StatusNew || ch.To != StatusScreening {
		t.Fatalf("unexpected attempt result %+v %v %v", ch, changed, err)
	}
	if _, changed, err := c.Attempt(StatusScreening, "", Guards{}, now); err != nil || changed {
		t.Fatalf("same status must be a no-op, changed=%v err=%v", changed, err)
	}
	if _, _, err := c.Attempt(StatusNew, "", Guards{}, now); !apperr.Is(err, apperr.KindInvalidTransition) {
		t.Fatalf("expected backward move to be rejected, got %v", err)
	}
}

func TestAttemptGuardsNeverClamp(t *testing.T) {
	cases := []struct {
		from, to Status
		guards   Guards
	}{
		{StatusTraining, StatusVisaProcess, Guards{}},
		{StatusVisaProcess, StatusReady, Guards{TrainingCompleted: true}},
		{StatusReady, StatusDeparted, Guards{TrainingCompleted: true, VisaIssued: true}},
	}
	for _, tc := range cases {
		c := candidateAt(tc.from)
		if _, _, err := c.Attempt(tc.to, "", tc.guards, now); !apperr.Is(err, apperr.KindInvalidTransition) {
			t.Errorf("%s -> %s: expected InvalidTransition, got %v", tc.from, tc.to, err)
		}
		if c.Status != tc.from {
			t.Errorf("%s -> %s: status changed to %s on failed guard", tc.from, tc.to, c.Status)
		}
	}
}

func TestRejectFromAnyNonTerminal(t *testing.T) {
	for _, s := range Pipeline.Stages() {
		c := candidateAt(s)
		_, changed, err := c.Attempt(StatusRejected, "failed medical", Guards{}, now)
		if s == StatusDeparted {
			if !apperr.Is(err, apperr.KindInvalidTransition) {
				t.Errorf("expected departed candidate to refuse rejection, got %v", err)
			}
			continue
		}
		if err != nil || !changed || c.Status != StatusRejected || c.RejectionReason == nil {
			t.Errorf("reject from %s: changed=%v err=%v status=%s", s, changed, err, c.Status)
		}
	}

	c := candidateAt(StatusScreening)
	if _, _, err := c.Attempt(StatusRejected, " ", Guards{}, now); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected Validation without reason, got %v", err)
	}
}

func TestSyncNeverRegressesAndIsIdempotent(t *testing.T) {
	all := Guards{TrainingCompleted: true, VisaIssued: true, Departed: true}

	c := candidateAt(StatusReady)
	if _, changed, err := c.Sync(StatusVisaProcess, all, now); err != nil || changed {
		t.Fatalf("sync behind current status must be a no-op, changed=%v err=%v", changed, err)
	}

	c = candidateAt(StatusTraining)
	g := Guards{TrainingCompleted: true}
	if _, changed, err := c.Sync(StatusVisaProcess, g, now); err != nil || !changed {
		t.Fatalf("first sync: changed=%v err=%v", changed, err)
	}
	if _, changed, err := c.Sync(StatusVisaProcess, g, now); err != nil || changed {
		t.Fatalf("second sync must be a no-op, changed=%v err=%v", changed, err)
	}

	c = candidateAt(StatusRejected)
	if _, changed, err := c.Sync(StatusReady, all, now); err != nil || changed || c.Status != StatusRejected {
		t.Fatalf("rejected candidate must be untouched, changed=%v err=%v", changed, err)
	}
}

func TestSyncJumpRequiresEveryGuard(t *testing.T) {
	c := candidateAt(StatusTraining)
	if _, _, err := c.Sync(StatusReady, Guards{VisaIssued: true}, now); !apperr.Is(err, apperr.KindInvalidTransition) {
		t.Fatalf("expected jump over an unmet training guard to fail, got %v", err)
	}
	ch, changed, err := c.Sync(StatusReady, Guards{TrainingCompleted: true, VisaIssued: true}, now)
	if err != nil || !changed || ch.From != StatusTraining || ch.To != StatusReady {
		t.Fatalf("unexpected jump result %+v %v %v", ch, changed, err)
	}
}

func TestReconcile(t *testing.T) {
	c := candidateAt(StatusRegistered)
	ch, changed, err := c.Reconcile(Guards{TrainingCompleted: true, VisaIssued: true}, now)
	if err != nil || !changed || ch.To != StatusReady {
		t.Fatalf("expected reconcile to ready, got %+v %v %v", ch, changed, err)
	}
	if _, changed, err := c.Reconcile(Guards{TrainingCompleted: true, VisaIssued: true}, now); err != nil || changed {
		t.Fatalf("second reconcile must be a no-op, changed=%v err=%v", changed, err)
	}

	stale := candidateAt(StatusReady)
	if _, _, err := stale.Reconcile(Guards{TrainingCompleted: true}, now); !apperr.Is(err, apperr.KindInvalidTransition) {
		t.Fatalf("expected contradiction to fail closed, got %v", err)
	}
	if stale.Status != StatusReady {
		t.Fatal("reconcile must never lower the status")
	}

	fresh := candidateAt(StatusScreening)
	if _, changed, err := fresh.Reconcile(Guards{}, now); err != nil || changed {
		t.Fatalf("no tracker progress means no change, changed=%v err=%v", changed, err)
	}
}

func TestParseStatusLegacy(t *testing.T) {
	for raw, want := range map[string]Status{"visa": StatusVisaProcess, "deployed": StatusDeparted, "READY": StatusReady} {
		got, err := ParseStatus(raw)
		if err != nil || got != want {
			t.Errorf("ParseStatus(%q) = %q, %v; want %q", raw, got, err, want)
		}
	}
	if _, err := ParseStatus("abroad"); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected Validation, got %v", err)
	}
}
