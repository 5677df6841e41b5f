package domain

import (
	"fmt"
	"strings"
	"time"

	"labor_pipeline_backend/internal/stagegate"
	"labor_pipeline_backend/platform/apperr"

	"github.com/google/uuid"
)

// Track is one of the two parallel curricula.
type Track string

const (
	TrackTechnical  Track = "technical"
	TrackSoftSkills Track = "soft_skills"
)

// Tracks is the training pipeline. Order is only used for reporting; the
// tracks progress independently.
var Tracks = stagegate.New(TrackTechnical, TrackSoftSkills)

func ParseTrack(raw string) (Track, error) {
	t := Track(strings.ToLower(strings.TrimSpace(raw)))
	if t == "softskills" || t == "soft-skills" {
		t = TrackSoftSkills
	}
	if !Tracks.Contains(t) {
		return "", apperr.Validationf("unknown training track %q", raw)
	}
	return t, nil
}

// Training is the per-candidate training record.
type Training struct {
	ID                    uuid.UUID
	CandidateID           uuid.UUID
	TechnicalStatus       stagegate.StageStatus
	TechnicalCompletedAt  *time.Time
	SoftSkillsStatus      stagegate.StageStatus
	SoftSkillsCompletedAt *time.Time
	CompletionPercentage  int
	CompletedAt           *time.Time
	CertificateNumber     *string
	CertificateIssuedAt   *time.Time
	Version               int
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// NewTraining returns a fresh record with both tracks not started.
func NewTraining(candidateID uuid.UUID, now time.Time) Training {
	return Training{
		ID:               uuid.New(),
		CandidateID:      candidateID,
		TechnicalStatus:  stagegate.NotStarted,
		SoftSkillsStatus: stagegate.NotStarted,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// TrackStatus returns the status of one track.
func (t *Training) TrackStatus(track Track) stagegate.StageStatus {
	if track == TrackTechnical {
		return t.TechnicalStatus
	}
	return t.SoftSkillsStatus
}

func (t *Training) setTrack(track Track, status stagegate.StageStatus, at *time.Time) {
	if track == TrackTechnical {
		t.TechnicalStatus = status
		t.TechnicalCompletedAt = at
		return
	}
	t.SoftSkillsStatus = status
	t.SoftSkillsCompletedAt = at
}

func (t *Training) trackCompleted(track Track) bool {
	return t.TrackStatus(track).IsCompleted()
}

// ObserveAssessment moves every covered track that has not started to
// in_progress. It reports whether anything changed.
func (t *Training) ObserveAssessment(trainingType TrainingType) bool {
	changed := false
	for _, track := range trainingType.Tracks() {
		current := t.TrackStatus(track)
		if next := current.Advance(); next != current {
			t.setTrack(track, next, nil)
			changed = true
		}
	}
	return changed
}

// Recompute derives completion_percentage and completed_at from the track
// statuses. It is the only writer of those two fields and reports whether
// the training became complete in this call.
func (t *Training) Recompute(now time.Time) (becameComplete bool) {
	done := Tracks.CountComplete(t.trackCompleted)
	t.CompletionPercentage = done * 100 / Tracks.Len()

	if Tracks.AllComplete(t.trackCompleted) {
		if t.CompletedAt == nil {
			at := now
			t.CompletedAt = &at
			becameComplete = true
		}
	} else {
		t.CompletedAt = nil
	}
	return becameComplete
}

// TrackEvaluation is the answer to "where is this track and can it finish".
type TrackEvaluation struct {
	Track       Track                 `json:"track"`
	Status      stagegate.StageStatus `json:"status"`
	CanComplete bool                  `json:"canComplete"`
}

// CanComplete is true iff some assessment is a passing final for track.
func CanComplete(track Track, assessments []Assessment) bool {
	for _, a := range assessments {
		if a.IsPassingFinalFor(track) {
			return true
		}
	}
	return false
}

// EvaluateTrack reports the track status and whether it may be completed.
func (t *Training) EvaluateTrack(track Track, assessments []Assessment) TrackEvaluation {
	return TrackEvaluation{
		Track:       track,
		Status:      t.TrackStatus(track),
		CanComplete: CanComplete(track, assessments),
	}
}

// CompleteTrack applies the guarded transition to completed. A track that is
// already completed is left untouched and changed is false.
func (t *Training) CompleteTrack(track Track, assessments []Assessment, now time.Time) (changed bool, err error) {
	if t.trackCompleted(track) {
		return false, nil
	}
	if !CanComplete(track, assessments) {
		return false, apperr.InvalidTransitionf("%s track has no passing final assessment", track)
	}
	at := now
	t.setTrack(track, stagegate.Completed, &at)
	return true, nil
}

// IsEligibleForCertificate is a pure query on the aggregate.
func (t *Training) IsEligibleForCertificate() bool {
	return t.CompletedAt != nil
}

// IssueCertificate assigns a certificate number once the training is
// complete. An already issued certificate is returned unchanged.
func (t *Training) IssueCertificate(now time.Time) (issued bool, err error) {
	if t.CertificateNumber != nil {
		return false, nil
	}
	if !t.IsEligibleForCertificate() {
		return false, apperr.InvalidTransition("training is not complete; certificate cannot be issued")
	}
	number := fmt.Sprintf("CERT-%d-%s", now.Year(), strings.ToUpper(strings.ReplaceAll(t.ID.String(), "-", "")[:10]))
	at := now
	t.CertificateNumber = &number
	t.CertificateIssuedAt = &at
	return true, nil
}
