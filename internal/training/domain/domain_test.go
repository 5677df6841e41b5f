package domain

import (
	"math"
	"testing"
	"time"

	"labor_pipeline_backend/internal/stagegate"
	"labor_pipeline_backend/platform/apperr"

	"github.com/google/uuid"
)

var testNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func TestEvaluateBoundaryAtThresholdPasses(t *testing.T) {
	got, err := Evaluate(60, 100, DefaultPassThreshold)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if got.Result != ResultPass || got.Grade != GradeC || got.Percentage != 60 {
		t.Fatalf("expected 60%% C pass, got %+v", got)
	}
}

func TestEvaluateJustBelowThresholdFailsWithF(t *testing.T) {
	got, err := Evaluate(59, 100, DefaultPassThreshold)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if got.Result != ResultFail || got.Grade != GradeF {
		t.Fatalf("expected F fail, got %+v", got)
	}
}

func TestEvaluatePassIffPercentageAtLeastThreshold(t *testing.T) {
	for _, threshold := range []float64{40, 50, 60, 75} {
		for max := 1.0; max <= 40; max += 3 {
			for score := 0.0; score <= max; score++ {
				got, err := Evaluate(score, max, threshold)
				if err != nil {
					t.Fatalf("Evaluate(%v, %v): %v", score, max, err)
				}
				wantPass := score*100 >= threshold*max
				if (got.Result == ResultPass) != wantPass {
					t.Fatalf("Evaluate(%v, %v, %v) result = %s", score, max, threshold, got.Result)
				}
			}
		}
	}
}

func TestGradeBands(t *testing.T) {
	tests := []struct {
		score float64
		want  Grade
	}{
		{100, GradeAPlus},
		{90, GradeAPlus},
		{89.5, GradeA},
		{80, GradeA},
		{70, GradeB},
		{65, GradeC},
		{20, GradeF},
	}
	for _, tc := range tests {
		got, _ := Evaluate(tc.score, 100, DefaultPassThreshold)
		if got.Grade != tc.want {
			t.Errorf("score %v: grade %s, want %s", tc.score, got.Grade, tc.want)
		}
	}
}

func TestGradeDReachableWithLowerThreshold(t *testing.T) {
	got, _ := Evaluate(55, 100, 50)
	if got.Result != ResultPass || got.Grade != GradeD {
		t.Fatalf("expected D pass at 50%% threshold, got %+v", got)
	}
}

func TestEvaluateRejectsMalformedInput(t *testing.T) {
	tests := []struct {
		name       string
		score, max float64
	}{
		{"negative score", -1, 100},
		{"score above max", 101, 100},
		{"zero max", 0, 0},
		{"negative max", 5, -10},
		{"nan", math.NaN(), 100},
		{"inf max", 10, math.Inf(1)},
	}
	for _, tc := range tests {
		if _, err := Evaluate(tc.score, tc.max, DefaultPassThreshold); !apperr.Is(err, apperr.KindValidation) {
			t.Errorf("%s: expected validation error, got %v", tc.name, err)
		}
	}
}

func TestRecomputeHalfComplete(t *testing.T) {
	tr := NewTraining(uuid.New(), testNow)
	tr.TechnicalStatus = stagegate.Completed
	tr.SoftSkillsStatus = stagegate.InProgress
	if tr.Recompute(testNow) {
		t.Fatal("training must not complete with one track open")
	}
	if tr.CompletionPercentage != 50 || tr.CompletedAt != nil {
		t.Fatalf("expected 50%% and no completed_at, got %d %v", tr.CompletionPercentage, tr.CompletedAt)
	}
}

func TestCompletedAtSetIffBothTracksCompleted(t *testing.T) {
	statuses := []stagegate.StageStatus{stagegate.NotStarted, stagegate.InProgress, stagegate.Completed}
	for _, tech := range statuses {
		for _, soft := range statuses {
			tr := NewTraining(uuid.New(), testNow)
			tr.TechnicalStatus = tech
			tr.SoftSkillsStatus = soft
			tr.Recompute(testNow)
			both := tech.IsCompleted() && soft.IsCompleted()
			if (tr.CompletedAt != nil) != both {
				t.Fatalf("tech=%s soft=%s: completed_at=%v", tech, soft, tr.CompletedAt)
			}
		}
	}
}

func TestRecomputeKeepsOriginalCompletedAt(t *testing.T) {
	tr := NewTraining(uuid.New(), testNow)
	tr.TechnicalStatus = stagegate.Completed
	tr.SoftSkillsStatus = stagegate.Completed
	if !tr.Recompute(testNow) {
		t.Fatal("expected first recompute to complete the training")
	}
	if tr.Recompute(testNow.Add(time.Hour)) {
		t.Fatal("second recompute must be a no-op")
	}
	if !tr.CompletedAt.Equal(testNow) {
		t.Fatalf("completed_at moved to %v", tr.CompletedAt)
	}
}

func TestObserveAssessmentStartsCoveredTracksOnly(t *testing.T) {
	tr := NewTraining(uuid.New(), testNow)
	if !tr.ObserveAssessment(TrainingTechnical) {
		t.Fatal("expected technical track to start")
	}
	if tr.TechnicalStatus != stagegate.InProgress || tr.SoftSkillsStatus != stagegate.NotStarted {
		t.Fatalf("unexpected statuses %s/%s", tr.TechnicalStatus, tr.SoftSkillsStatus)
	}
	tr.TechnicalStatus = stagegate.Completed
	tr.ObserveAssessment(TrainingBoth)
	if tr.TechnicalStatus != stagegate.Completed {
		t.Fatal("completed track regressed")
	}
	if tr.SoftSkillsStatus != stagegate.InProgress {
		t.Fatal("expected soft skills to start from a both-track assessment")
	}
}

func TestCompleteTrackGuardAndIdempotence(t *testing.T) {
	tr := NewTraining(uuid.New(), testNow)
	interim := Assessment{AssessmentType: AssessmentInterim, TrainingType: TrainingTechnical, Result: ResultPass}
	failedFinal := Assessment{AssessmentType: AssessmentFinal, TrainingType: TrainingTechnical, Result: ResultFail}

	if _, err := tr.CompleteTrack(TrackTechnical, []Assessment{interim, failedFinal}, testNow); !apperr.Is(err, apperr.KindInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}

	passingBoth := Assessment{AssessmentType: AssessmentFinal, TrainingType: TrainingBoth, Result: ResultPass}
	changed, err := tr.CompleteTrack(TrackTechnical, []Assessment{passingBoth}, testNow)
	if err != nil || !changed {
		t.Fatalf("expected completion, got changed=%v err=%v", changed, err)
	}
	changed, err = tr.CompleteTrack(TrackTechnical, nil, testNow.Add(time.Minute))
	if err != nil || changed {
		t.Fatalf("second completion should be a silent no-op, got changed=%v err=%v", changed, err)
	}
	if !tr.TechnicalCompletedAt.Equal(testNow) {
		t.Fatal("completion timestamp moved on repeat call")
	}
}

func TestCanCompleteRespectsTrainingType(t *testing.T) {
	softFinal := []Assessment{{AssessmentType: AssessmentFinal, TrainingType: TrainingSoftSkills, Result: ResultPass}}
	if CanComplete(TrackTechnical, softFinal) {
		t.Fatal("soft-skills final must not unlock the technical track")
	}
	if !CanComplete(TrackSoftSkills, softFinal) {
		t.Fatal("soft-skills final should unlock the soft-skills track")
	}
}

func TestIssueCertificateRequiresCompletion(t *testing.T) {
	tr := NewTraining(uuid.New(), testNow)
	if _, err := tr.IssueCertificate(testNow); !apperr.Is(err, apperr.KindInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	tr.TechnicalStatus = stagegate.Completed
	tr.SoftSkillsStatus = stagegate.Completed
	tr.Recompute(testNow)

	issued, err := tr.IssueCertificate(testNow)
	if err != nil || !issued || tr.CertificateNumber == nil {
		t.Fatalf("expected certificate, got issued=%v err=%v", issued, err)
	}
	first := *tr.CertificateNumber
	issued, err = tr.IssueCertificate(testNow.Add(24 * time.Hour))
	if err != nil || issued || *tr.CertificateNumber != first {
		t.Fatal("re-issuing must return the existing certificate")
	}
}

func TestParseTrack(t *testing.T) {
	if got, err := ParseTrack("Soft-Skills"); err != nil || got != TrackSoftSkills {
		t.Fatalf("ParseTrack = %q, %v", got, err)
	}
	if _, err := ParseTrack("cooking"); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestEvaluateRejectsPrecisionTheColumnsDrop(t *testing.T) {
	for _, tc := range []struct{ score, max float64 }{
		{59.996, 100},
		{10, 100.001},
		{10, 100000},
	} {
		if _, err := Evaluate(tc.score, tc.max, DefaultPassThreshold); !apperr.Is(err, apperr.KindValidation) {
			t.Errorf("Evaluate(%v, %v): expected validation error, got %v", tc.score, tc.max, err)
		}
	}

	got, err := Evaluate(59.99, 99999.99, DefaultPassThreshold)
	if err != nil {
		t.Fatalf("two-decimal score rejected: %v", err)
	}
	if got.Result != ResultFail {
		t.Fatalf("expected fail, got %+v", got)
	}
}

func TestGradeFollowsStoredPercentage(t *testing.T) {
	// 269.99 / 300 is 89.9966%, stored as 90.00.
	got, err := Evaluate(269.99, 300, DefaultPassThreshold)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if got.Percentage != 90 || got.Grade != GradeAPlus {
		t.Fatalf("expected 90%% A+, got %+v", got)
	}
}
