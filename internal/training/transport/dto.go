package transport

import (
	"time"

	"labor_pipeline_backend/internal/training/domain"

	"github.com/google/uuid"
)

type CreateTrainingRequest struct {
	CandidateID uuid.UUID `json:"candidateId" validate:"required"`
}

type RecordAssessmentRequest struct {
	AssessmentType string   `json:"assessmentType" validate:"required,oneof=initial interim midterm practical final"`
	TrainingType   string   `json:"trainingType" validate:"required,oneof=technical soft_skills both"`
	Score          *float64 `json:"score" validate:"required,gte=0"`
	MaxScore       *float64 `json:"maxScore" validate:"required,gt=0"`
	EvidencePath   *string  `json:"evidencePath,omitempty" validate:"omitempty,notblank,max=512"`
}

type TrainingResponse struct {
	ID                    uuid.UUID  `json:"id"`
	CandidateID           uuid.UUID  `json:"candidateId"`
	TechnicalStatus       string     `json:"technicalTrainingStatus"`
	TechnicalCompletedAt  *time.Time `json:"technicalCompletedAt,omitempty"`
	SoftSkillsStatus      string     `json:"softSkillsStatus"`
	SoftSkillsCompletedAt *time.Time `json:"softSkillsCompletedAt,omitempty"`
	CompletionPercentage  int        `json:"completionPercentage"`
	CompletedAt           *time.Time `json:"completedAt,omitempty"`
	CertificateEligible   bool       `json:"certificateEligible"`
	CertificateNumber     *string    `json:"certificateNumber,omitempty"`
	CertificateIssuedAt   *time.Time `json:"certificateIssuedAt,omitempty"`
	Version               int        `json:"version"`
	UpdatedAt             time.Time  `json:"updatedAt"`
}

type AssessmentResponse struct {
	ID             uuid.UUID `json:"id"`
	TrainingID     uuid.UUID `json:"trainingId"`
	CandidateID    uuid.UUID `json:"candidateId"`
	AssessmentType string    `json:"assessmentType"`
	TrainingType   string    `json:"trainingType"`
	Score          float64   `json:"score"`
	MaxScore       float64   `json:"maxScore"`
	Percentage     float64   `json:"percentage"`
	Grade          string    `json:"grade"`
	Result         string    `json:"result"`
	EvidencePath   *string   `json:"evidencePath,omitempty"`
	AssessedAt     time.Time `json:"assessedAt"`
}

func ToTrainingResponse(t domain.Training) TrainingResponse {
	return TrainingResponse{
		ID:                    t.ID,
		CandidateID:           t.CandidateID,
		TechnicalStatus:       string(t.TechnicalStatus),
		TechnicalCompletedAt:  t.TechnicalCompletedAt,
		SoftSkillsStatus:      string(t.SoftSkillsStatus),
		SoftSkillsCompletedAt: t.SoftSkillsCompletedAt,
		CompletionPercentage:  t.CompletionPercentage,
		CompletedAt:           t.CompletedAt,
		CertificateEligible:   t.IsEligibleForCertificate(),
		CertificateNumber:     t.CertificateNumber,
		CertificateIssuedAt:   t.CertificateIssuedAt,
		Version:               t.Version,
		UpdatedAt:             t.UpdatedAt,
	}
}

func ToAssessmentResponse(a domain.Assessment) AssessmentResponse {
	return AssessmentResponse{
		ID:             a.ID,
		TrainingID:     a.TrainingID,
		CandidateID:    a.CandidateID,
		AssessmentType: string(a.AssessmentType),
		TrainingType:   string(a.TrainingType),
		Score:          a.Score,
		MaxScore:       a.MaxScore,
		Percentage:     a.Percentage,
		Grade:          string(a.Grade),
		Result:         string(a.Result),
		EvidencePath:   a.EvidencePath,
		AssessedAt:     a.AssessedAt,
	}
}
