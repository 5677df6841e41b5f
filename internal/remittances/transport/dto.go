package transport

import (
	"time"

	"labor_pipeline_backend/internal/remittances/domain"
	"labor_pipeline_backend/internal/remittances/service"

	"github.com/google/uuid"
)

type RecordRemittanceRequest struct {
	CandidateID   uuid.UUID `json:"candidateId" validate:"required"`
	Amount        float64   `json:"amount" validate:"required,gt=0"`
	Currency      string    `json:"currency" validate:"required,len=3"`
	TransferredAt time.Time `json:"transferredAt" validate:"required"`
	Reference     string    `json:"reference,omitempty" validate:"max=200"`
}

type ListAlertsQuery struct {
	CandidateID     string `form:"candidateId" validate:"required,uuid"`
	IncludeResolved bool   `form:"includeResolved"`
}

type ResolveAlertRequest struct {
	ResolutionNotes *string `json:"resolutionNotes,omitempty" validate:"omitempty,max=1000"`
}

type ScanRequest struct {
	AsOf *time.Time `json:"asOf,omitempty"`
}

type RemittanceResponse struct {
	ID             uuid.UUID  `json:"id"`
	CandidateID    uuid.UUID  `json:"candidateId"`
	Amount         float64    `json:"amount"`
	Currency       string     `json:"currency"`
	TransferredAt  time.Time  `json:"transferredAt"`
	Reference      string     `json:"reference,omitempty"`
	RecordedBy     *uuid.UUID `json:"recordedBy,omitempty"`
	ResolvedAlerts int        `json:"resolvedAlerts"`
	CreatedAt      time.Time  `json:"createdAt"`
}

func ToRemittanceResponse(res service.RecordResult) RemittanceResponse {
	r := res.Remittance
	return RemittanceResponse{
		ID:             r.ID,
		CandidateID:    r.CandidateID,
		Amount:         r.Amount,
		Currency:       r.Currency,
		TransferredAt:  r.TransferredAt,
		Reference:      r.Reference,
		RecordedBy:     r.RecordedBy,
		ResolvedAlerts: res.ResolvedAlerts,
		CreatedAt:      r.CreatedAt,
	}
}

type AlertResponse struct {
	ID              uuid.UUID  `json:"id"`
	CandidateID     uuid.UUID  `json:"candidateId"`
	RemittanceID    *uuid.UUID `json:"remittanceId,omitempty"`
	AlertType       string     `json:"alertType"`
	Severity        string     `json:"severity"`
	Message         string     `json:"message"`
	IsResolved      bool       `json:"isResolved"`
	ResolvedAt      *time.Time `json:"resolvedAt,omitempty"`
	ResolvedBy      *uuid.UUID `json:"resolvedBy,omitempty"`
	ResolutionNotes *string    `json:"resolutionNotes,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

func ToAlertResponse(a domain.Alert) AlertResponse {
	return AlertResponse{
		ID:              a.ID,
		CandidateID:     a.CandidateID,
		RemittanceID:    a.RemittanceID,
		AlertType:       string(a.AlertType),
		Severity:        string(a.Severity),
		Message:         a.Message,
		IsResolved:      a.IsResolved,
		ResolvedAt:      a.ResolvedAt,
		ResolvedBy:      a.ResolvedBy,
		ResolutionNotes: a.ResolutionNotes,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

func ToAlertResponses(items []domain.Alert) []AlertResponse {
	out := make([]AlertResponse, 0, len(items))
	for _, a := range items {
		out = append(out, ToAlertResponse(a))
	}
	return out
}

type ScanResponse struct {
	AsOf    time.Time   `json:"asOf"`
	Checked int         `json:"checked"`
	Created []uuid.UUID `json:"created"`
	Raised  []uuid.UUID `json:"raised"`
}

func ToScanResponse(res service.ScanResult) ScanResponse {
	created, raised := res.Created, res.Raised
	if created == nil {
		created = []uuid.UUID{}
	}
	if raised == nil {
		raised = []uuid.UUID{}
	}
	return ScanResponse{AsOf: res.AsOf, Checked: res.Checked, Created: created, Raised: raised}
}
