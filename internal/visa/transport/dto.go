package transport

import (
	"time"

	"labor_pipeline_backend/internal/visa/domain"

	"github.com/google/uuid"
)

type OpenVisaProcessRequest struct {
	CandidateID uuid.UUID `json:"candidateId" validate:"required"`
}

type StageOutcomeRequest struct {
	Status       string     `json:"status" validate:"required,notblank,max=32"`
	OutcomeDate  *time.Time `json:"outcomeDate,omitempty"`
	Center       string     `json:"center,omitempty" validate:"max=200"`
	Reference    string     `json:"reference,omitempty" validate:"max=200"`
	Notes        string     `json:"notes,omitempty" validate:"max=2000"`
	EvidencePath *string    `json:"evidencePath,omitempty" validate:"omitempty,notblank,max=512"`
}

type StageOverrideRequest struct {
	StageOutcomeRequest
	Reason string `json:"reason" validate:"required,notblank,max=1000"`
}

type StageResponse struct {
	Stage        string              `json:"stage"`
	Status       string              `json:"status"`
	Details      domain.StageDetails `json:"details"`
	EvidencePath *string             `json:"evidencePath,omitempty"`
	UpdatedAt    *time.Time          `json:"updatedAt,omitempty"`
}

type VisaProcessResponse struct {
	ID            uuid.UUID       `json:"id"`
	CandidateID   uuid.UUID       `json:"candidateId"`
	Stages        []StageResponse `json:"stages"`
	OverallStatus string          `json:"overallStatus"`
	IssuedAt      *time.Time      `json:"issuedAt,omitempty"`
	RefusedAt     *time.Time      `json:"refusedAt,omitempty"`
	Version       int             `json:"version"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

func ToVisaProcessResponse(v domain.VisaProcess) VisaProcessResponse {
	stages := make([]StageResponse, 0, domain.Stages.Len())
	for _, s := range domain.Stages.Stages() {
		rec := v.Stages[s]
		stages = append(stages, StageResponse{
			Stage:        string(s),
			Status:       string(v.StageStatus(s)),
			Details:      rec.Details,
			EvidencePath: rec.EvidencePath,
			UpdatedAt:    rec.UpdatedAt,
		})
	}
	return VisaProcessResponse{
		ID:            v.ID,
		CandidateID:   v.CandidateID,
		Stages:        stages,
		OverallStatus: string(v.OverallStatus),
		IssuedAt:      v.IssuedAt,
		RefusedAt:     v.RefusedAt,
		Version:       v.Version,
		UpdatedAt:     v.UpdatedAt,
	}
}
