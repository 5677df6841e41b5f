// Package domain holds the pure training rules: assessment scoring, track
// progression and certificate eligibility. Nothing here touches storage.
package domain

import (
	"fmt"
	"math"
	"strings"
	"time"

	"labor_pipeline_backend/platform/apperr"

	"github.com/google/uuid"
)

// DefaultPassThreshold is the pass mark, in percent, when none is configured.
const DefaultPassThreshold = 60.0

type AssessmentType string

const (
	AssessmentInitial   AssessmentType = "initial"
	AssessmentInterim   AssessmentType = "interim"
	AssessmentMidterm   AssessmentType = "midterm"
	AssessmentPractical AssessmentType = "practical"
	AssessmentFinal     AssessmentType = "final"
)

func ParseAssessmentType(raw string) (AssessmentType, error) {
	switch t := AssessmentType(strings.ToLower(strings.TrimSpace(raw))); t {
	case AssessmentInitial, AssessmentInterim, AssessmentMidterm, AssessmentPractical, AssessmentFinal:
		return t, nil
	}
	return "", apperr.Validationf("unknown assessment type %q", raw)
}

// TrainingType says which track(s) an assessment covers.
type TrainingType string

const (
	TrainingTechnical  TrainingType = "technical"
	TrainingSoftSkills TrainingType = "soft_skills"
	TrainingBoth       TrainingType = "both"
)

func ParseTrainingType(raw string) (TrainingType, error) {
	switch t := TrainingType(strings.ToLower(strings.TrimSpace(raw))); t {
	case TrainingTechnical, TrainingSoftSkills, TrainingBoth:
		return t, nil
	}
	return "", apperr.Validationf("unknown training type %q", raw)
}

// Covers reports whether an assessment of this training type counts for track.
func (t TrainingType) Covers(track Track) bool {
	switch t {
	case TrainingBoth:
		return true
	case TrainingTechnical:
		return track == TrackTechnical
	case TrainingSoftSkills:
		return track == TrackSoftSkills
	}
	return false
}

// Tracks returns the tracks an assessment of this training type touches.
func (t TrainingType) Tracks() []Track {
	out := make([]Track, 0, 2)
	for _, track := range Tracks.Stages() {
		if t.Covers(track) {
			out = append(out, track)
		}
	}
	return out
}

type Result string

const (
	ResultPass Result = "pass"
	ResultFail Result = "fail"
)

type Grade string

const (
	GradeAPlus Grade = "A+"
	GradeA     Grade = "A"
	GradeB     Grade = "B"
	GradeC     Grade = "C"
	GradeD     Grade = "D"
	GradeF     Grade = "F"
)

var gradeBands = []struct {
	min   float64
	grade Grade
}{
	{90, GradeAPlus},
	{80, GradeA},
	{70, GradeB},
	{60, GradeC},
	{50, GradeD},
}

// GradeFor maps a percentage to its band. A failing result always grades F.
func GradeFor(percentage float64, result Result) Grade {
	if result == ResultFail {
		return GradeF
	}
	for _, band := range gradeBands {
		if percentage >= band.min {
			return band.grade
		}
	}
	return GradeF
}

// Evaluation is the scored outcome of one attempt.
type Evaluation struct {
	Percentage float64
	Grade      Grade
	Result     Result
}

// Evaluate scores an attempt against threshold (percent).
func Evaluate(score, maxScore, threshold float64) (Evaluation, error) {
	if err := ValidateScore(score, maxScore); err != nil {
		return Evaluation{}, err
	}
	if math.IsNaN(threshold) || threshold <= 0 || threshold > 100 {
		return Evaluation{}, apperr.Validationf("pass threshold must be in (0, 100], got %v", threshold)
	}

	// Compare without dividing so a score exactly at the threshold passes.
	result := ResultFail
	if score*100 >= threshold*maxScore {
		result = ResultPass
	}
	percentage := math.Round(score/maxScore*100*100) / 100

	return Evaluation{
		Percentage: percentage,
		Grade:      GradeFor(percentage, result),
		Result:     result,
	}, nil
}

// maxStoredScore is the largest value a NUMERIC(7,2) score column holds.
const maxStoredScore = 99999.99

// ValidateScore rejects non-finite, negative or out-of-range scores, and
// scores with more precision than the stored columns keep.
func ValidateScore(score, maxScore float64) error {
	if !isFinite(score) || !isFinite(maxScore) {
		return apperr.Validation("score and max score must be finite numbers")
	}
	if !hasAtMostTwoDecimals(score) || !hasAtMostTwoDecimals(maxScore) {
		return apperr.Validation("score and max score allow at most 2 decimal places")
	}
	if maxScore > maxStoredScore {
		return apperr.Validationf("max score must not exceed %v", maxStoredScore)
	}
	if maxScore <= 0 {
		return apperr.Validation("max score must be greater than 0")
	}
	if score < 0 {
		return apperr.Validation("score must not be negative")
	}
	if score > maxScore {
		return apperr.Validation(fmt.Sprintf("score %v exceeds max score %v", score, maxScore))
	}
	return nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func hasAtMostTwoDecimals(f float64) bool {
	return math.Round(f*100)/100 == f
}

// Assessment is one recorded attempt.
type Assessment struct {
	ID             uuid.UUID
	TrainingID     uuid.UUID
	CandidateID    uuid.UUID
	AssessmentType AssessmentType
	TrainingType   TrainingType
	Score          float64
	MaxScore       float64
	Percentage     float64
	Grade          Grade
	Result         Result
	EvidencePath   *string
	AssessedBy     *uuid.UUID
	AssessedAt     time.Time
}

// IsPassingFinalFor reports whether a counts toward completing track.
func (a Assessment) IsPassingFinalFor(track Track) bool {
	return a.AssessmentType == AssessmentFinal && a.Result == ResultPass && a.TrainingType.Covers(track)
}
