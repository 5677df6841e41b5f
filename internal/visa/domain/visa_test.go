package domain

import (
	"testing"
	"time"

	"labor_pipeline_backend/platform/apperr"

	"github.com/google/uuid"
)

var testNow = time.Date(2026, 4, 2, 8, 30, 0, 0, time.UTC)

func completed(stage Stage) Outcome {
	date := testNow.Add(-24 * time.Hour)
	return Outcome{
		Stage:   stage,
		Status:  StatusCompleted,
		Details: StageDetails{OutcomeDate: &date, Center: "Gerry's Lahore"},
	}
}

func mustRecord(t *testing.T, v *VisaProcess, o Outcome) Transition {
	t.Helper()
	tr, err := v.RecordOutcome(o, testNow)
	if err != nil {
		t.Fatalf("RecordOutcome(%s=%s): %v", o.Stage, o.Status, err)
	}
	return tr
}

func TestNewProcessIsInitiated(t *testing.T) {
	v := NewVisaProcess(uuid.New(), testNow)
	if v.OverallStatus != OverallInitiated {
		t.Fatalf("expected initiated, got %s", v.OverallStatus)
	}
}

func TestRefusalShortCircuits(t *testing.T) {
	v := NewVisaProcess(uuid.New(), testNow)
	mustRecord(t, &v, completed(StageInterview))
	tr := mustRecord(t, &v, Outcome{Stage: StageTradeTest, Status: StatusRefused})

	if v.OverallStatus != OverallRefused || tr != TransitionRefused {
		t.Fatalf("expected refused, got %s (%v)", v.OverallStatus, tr)
	}
	if v.StageStatus(StageMedical) != StatusNotApplied {
		t.Fatal("medical should be untouched")
	}
	if v.RefusedAt == nil {
		t.Fatal("refused_at must be set")
	}
	if stage, ok := v.RefusedStage(); !ok || stage != StageTradeTest {
		t.Fatalf("RefusedStage = %s, %v", stage, ok)
	}
}

func TestRefusedIffAnyStageRefused(t *testing.T) {
	statuses := []StageStatus{StatusNotApplied, StatusApplied, StatusCompleted, StatusRefused}
	stages := Stages.Stages()
	// Walk every combination of the first three stages' statuses.
	for _, a := range statuses {
		for _, b := range statuses {
			for _, c := range statuses {
				v := NewVisaProcess(uuid.New(), testNow)
				for i, st := range []StageStatus{a, b, c} {
					v.Stages[stages[i]] = StageRecord{Status: st}
				}
				v.Recompute(testNow)
				anyRefused := a == StatusRefused || b == StatusRefused || c == StatusRefused
				if (v.OverallStatus == OverallRefused) != anyRefused {
					t.Fatalf("%s/%s/%s: overall %s", a, b, c, v.OverallStatus)
				}
				if v.OverallStatus == OverallIssued {
					t.Fatal("issued with stages still open")
				}
			}
		}
	}
}

func TestOutOfOrderStagesDoNotAdvanceOverall(t *testing.T) {
	v := NewVisaProcess(uuid.New(), testNow)
	mustRecord(t, &v, completed(StageBiometric))
	if v.OverallStatus != OverallInterview {
		t.Fatalf("expected overall to stay at interview, got %s", v.OverallStatus)
	}
	mustRecord(t, &v, completed(StageInterview))
	if v.OverallStatus != OverallTradeTest {
		t.Fatalf("expected trade_test, got %s", v.OverallStatus)
	}
	mustRecord(t, &v, completed(StageVisaIssuance))
	mustRecord(t, &v, completed(StageMedical))
	if v.OverallStatus != OverallTradeTest {
		t.Fatalf("late entries must not skip trade_test, got %s", v.OverallStatus)
	}
	tr := mustRecord(t, &v, completed(StageTradeTest))
	if v.OverallStatus != OverallIssued || tr != TransitionIssued || v.IssuedAt == nil {
		t.Fatalf("expected issued, got %s (%v)", v.OverallStatus, tr)
	}
}

func TestIssuedImpliesAllStagesCompleted(t *testing.T) {
	v := NewVisaProcess(uuid.New(), testNow)
	for _, s := range Stages.Stages() {
		mustRecord(t, &v, completed(s))
	}
	if !v.IsIssued() {
		t.Fatal("expected issued")
	}
	for _, s := range Stages.Stages() {
		if v.StageStatus(s) != StatusCompleted {
			t.Fatalf("stage %s is %s in an issued process", s, v.StageStatus(s))
		}
	}
}

func TestCompletedRequiresDateAndCenter(t *testing.T) {
	v := NewVisaProcess(uuid.New(), testNow)
	_, err := v.RecordOutcome(Outcome{Stage: StageMedical, Status: StatusCompleted}, testNow)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	o := completed(StageMedical)
	o.Details.Center = "  "
	if _, err := v.RecordOutcome(o, testNow); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for blank center, got %v", err)
	}
	if v.StageStatus(StageMedical) != StatusNotApplied {
		t.Fatal("rejected outcome must not be stored")
	}
}

func TestTerminalProcessIsImmutable(t *testing.T) {
	v := NewVisaProcess(uuid.New(), testNow)
	mustRecord(t, &v, Outcome{Stage: StageInterview, Status: StatusRefused})

	_, err := v.RecordOutcome(completed(StageTradeTest), testNow)
	if !apperr.Is(err, apperr.KindInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
}

func TestCompletedStageCannotRegress(t *testing.T) {
	v := NewVisaProcess(uuid.New(), testNow)
	mustRecord(t, &v, completed(StageInterview))
	_, err := v.RecordOutcome(Outcome{Stage: StageInterview, Status: StatusInProgress}, testNow)
	if !apperr.Is(err, apperr.KindInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
}

func TestOverrideReopensRefusedProcess(t *testing.T) {
	v := NewVisaProcess(uuid.New(), testNow)
	mustRecord(t, &v, Outcome{Stage: StageInterview, Status: StatusRefused})

	if _, err := v.Override(completed(StageInterview), testNow); err != nil {
		t.Fatalf("Override: %v", err)
	}
	if v.OverallStatus != OverallTradeTest || v.RefusedAt != nil {
		t.Fatalf("expected trade_test after override, got %s refusedAt=%v", v.OverallStatus, v.RefusedAt)
	}
}

func TestUnknownStageRejected(t *testing.T) {
	if _, err := ParseStage("police_clearance"); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	v := NewVisaProcess(uuid.New(), testNow)
	if _, err := v.RecordOutcome(Outcome{Stage: "police_clearance", Status: StatusApplied}, testNow); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseStageStatusLegacy(t *testing.T) {
	got, err := ParseStageStatus("Passed")
	if err != nil || got != StatusCompleted {
		t.Fatalf("ParseStageStatus(Passed) = %s, %v", got, err)
	}
	if o, err := ParseOverallStatus("stamped"); err != nil || o != OverallIssued {
		t.Fatalf("ParseOverallStatus(stamped) = %s, %v", o, err)
	}
}
