package transport

import (
	"time"

	"labor_pipeline_backend/internal/complaints/domain"
	"labor_pipeline_backend/internal/complaints/service"

	"github.com/google/uuid"
)

type RegisterComplaintRequest struct {
	CandidateID  *uuid.UUID `json:"candidateId,omitempty"`
	Category     string     `json:"category" validate:"required,notblank,max=100"`
	Description  string     `json:"description" validate:"required,notblank,max=4000"`
	Priority     string     `json:"priority,omitempty" validate:"max=32"`
	SLADays      *int       `json:"slaDays,omitempty" validate:"omitempty,min=1,max=365"`
	RegisteredAt *time.Time `json:"registeredAt,omitempty"`
	AssignedTo   *uuid.UUID `json:"assignedTo,omitempty"`
}

type UpdateStatusRequest struct {
	Status          string  `json:"status" validate:"required,notblank,max=32"`
	ResolutionNotes *string `json:"resolutionNotes,omitempty" validate:"omitempty,max=4000"`
}

type EscalateRequest struct {
	Reason      string     `json:"reason" validate:"required,notblank,max=1000"`
	EscalatedTo *uuid.UUID `json:"escalatedTo,omitempty"`
}

type ScanRequest struct {
	AsOf *time.Time `json:"asOf,omitempty"`
}

type ComplaintResponse struct {
	ID              uuid.UUID  `json:"id"`
	CandidateID     *uuid.UUID `json:"candidateId,omitempty"`
	Category        string     `json:"category"`
	Description     string     `json:"description"`
	Status          string     `json:"status"`
	Priority        string     `json:"priority"`
	RegisteredAt    time.Time  `json:"registeredAt"`
	SLADays         int        `json:"slaDays"`
	SLADueDate      time.Time  `json:"slaDueDate"`
	SLABreached     bool       `json:"slaBreached"`
	SLABreachedAt   *time.Time `json:"slaBreachedAt,omitempty"`
	EscalationLevel int        `json:"escalationLevel"`
	AssignedTo      *uuid.UUID `json:"assignedTo,omitempty"`
	EscalatedTo     *uuid.UUID `json:"escalatedTo,omitempty"`
	ResolutionNotes *string    `json:"resolutionNotes,omitempty"`
	ResolvedAt      *time.Time `json:"resolvedAt,omitempty"`
	ClosedAt        *time.Time `json:"closedAt,omitempty"`
	ReopenCount     int        `json:"reopenCount"`
	Version         int        `json:"version"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

func ToComplaintResponse(c domain.Complaint) ComplaintResponse {
	return ComplaintResponse{
		ID:              c.ID,
		CandidateID:     c.CandidateID,
		Category:        c.Category,
		Description:     c.Description,
		Status:          string(c.Status),
		Priority:        string(c.Priority),
		RegisteredAt:    c.RegisteredAt,
		SLADays:         c.SLADays,
		SLADueDate:      c.SLADueDate,
		SLABreached:     c.SLABreached,
		SLABreachedAt:   c.SLABreachedAt,
		EscalationLevel: c.Escalation.Int(),
		AssignedTo:      c.AssignedTo,
		EscalatedTo:     c.EscalatedTo,
		ResolutionNotes: c.ResolutionNotes,
		ResolvedAt:      c.ResolvedAt,
		ClosedAt:        c.ClosedAt,
		ReopenCount:     c.ReopenCount,
		Version:         c.Version,
		UpdatedAt:       c.UpdatedAt,
	}
}

type EscalationResponse struct {
	FromLevel   int        `json:"fromLevel"`
	ToLevel     int        `json:"toLevel"`
	Reason      string     `json:"reason"`
	Automatic   bool       `json:"automatic"`
	EscalatedTo *uuid.UUID `json:"escalatedTo,omitempty"`
	EscalatedBy *uuid.UUID `json:"escalatedBy,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func ToEscalationResponses(items []domain.Escalation) []EscalationResponse {
	out := make([]EscalationResponse, 0, len(items))
	for _, e := range items {
		out = append(out, EscalationResponse{
			FromLevel:   e.FromLevel,
			ToLevel:     e.ToLevel,
			Reason:      e.Reason,
			Automatic:   e.Automatic,
			EscalatedTo: e.EscalatedTo,
			EscalatedBy: e.EscalatedBy,
			CreatedAt:   e.CreatedAt,
		})
	}
	return out
}

type ScanResponse struct {
	AsOf     time.Time   `json:"asOf"`
	Breached []uuid.UUID `json:"breached"`
	Skipped  int         `json:"skipped"`
}

func ToScanResponse(r service.ScanResult) ScanResponse {
	breached := r.Breached
	if breached == nil {
		breached = []uuid.UUID{}
	}
	return ScanResponse{AsOf: r.AsOf, Breached: breached, Skipped: r.Skipped}
}
