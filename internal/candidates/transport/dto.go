package transport

import (
	"time"

	"labor_pipeline_backend/internal/candidates/domain"

	"github.com/google/uuid"
)

type CreateCandidateRequest struct {
	FullName string `json:"fullName" validate:"required,notblank,max=200"`
	CNIC     string `json:"cnic" validate:"required,notblank,max=20"`
	Phone    string `json:"phone" validate:"required,notblank,max=32"`
	Trade    string `json:"trade" validate:"max=100"`
}

type TransitionRequest struct {
	Status string `json:"status" validate:"required,notblank,max=32"`
	Reason string `json:"reason,omitempty" validate:"max=1000"`
}

type RejectRequest struct {
	Reason string `json:"reason" validate:"required,notblank,max=1000"`
}

type CandidateResponse struct {
	ID              uuid.UUID `json:"id"`
	FullName        string    `json:"fullName"`
	CNIC            string    `json:"cnic"`
	Phone           string    `json:"phone"`
	Trade           string    `json:"trade,omitempty"`
	Status          string    `json:"status"`
	RejectionReason *string   `json:"rejectionReason,omitempty"`
	StatusChangedAt time.Time `json:"statusChangedAt"`
	Version         int       `json:"version"`
	CreatedAt       time.Time `json:"createdAt"`
}

func ToCandidateResponse(c domain.Candidate) CandidateResponse {
	return CandidateResponse{
		ID:              c.ID,
		FullName:        c.FullName,
		CNIC:            c.CNIC,
		Phone:           c.Phone,
		Trade:           c.Trade,
		Status:          string(c.Status),
		RejectionReason: c.RejectionReason,
		StatusChangedAt: c.StatusChangedAt,
		Version:         c.Version,
		CreatedAt:       c.CreatedAt,
	}
}
