// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"labor_pipeline_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var (
	NewBaseEvent   = events.NewBaseEvent
	NewBaseEventAt = events.NewBaseEventAt
)

// =============================================================================
// Training Domain Events
// =============================================================================

// TrainingCompleted is published once, when both training tracks are completed.
type TrainingCompleted struct {
	BaseEvent
	TrainingID  uuid.UUID `json:"trainingId"`
	CandidateID uuid.UUID `json:"candidateId"`
	CompletedAt time.Time `json:"completedAt"`
}

func (e TrainingCompleted) EventName() string { return "training.completed" }

// CertificateIssued is published when a training certificate number is assigned.
type CertificateIssued struct {
	BaseEvent
	TrainingID        uuid.UUID `json:"trainingId"`
	CandidateID       uuid.UUID `json:"candidateId"`
	CertificateNumber string    `json:"certificateNumber"`
}

func (e CertificateIssued) EventName() string { return "training.certificate.issued" }

// =============================================================================
// Visa Domain Events
// =============================================================================

// VisaIssued is published when every visa stage is completed.
type VisaIssued struct {
	BaseEvent
	VisaProcessID uuid.UUID `json:"visaProcessId"`
	CandidateID   uuid.UUID `json:"candidateId"`
	IssuedAt      time.Time `json:"issuedAt"`
}

func (e VisaIssued) EventName() string { return "visa.issued" }

// VisaRefused is published when any visa stage is refused.
type VisaRefused struct {
	BaseEvent
	VisaProcessID uuid.UUID `json:"visaProcessId"`
	CandidateID   uuid.UUID `json:"candidateId"`
	Stage         string    `json:"stage"`
	RefusedAt     time.Time `json:"refusedAt"`
}

func (e VisaRefused) EventName() string { return "visa.refused" }

// =============================================================================
// Departure Domain Events
// =============================================================================

// CandidateDeparted is published when a departure is marked departed.
type CandidateDeparted struct {
	BaseEvent
	DepartureID uuid.UUID `json:"departureId"`
	CandidateID uuid.UUID `json:"candidateId"`
	DepartedAt  time.Time `json:"departedAt"`
}

func (e CandidateDeparted) EventName() string { return "departure.departed" }

// =============================================================================
// Complaint Domain Events
// =============================================================================

// ComplaintSLABreached is published by the breach scan for each newly breached complaint.
type ComplaintSLABreached struct {
	BaseEvent
	ComplaintID     uuid.UUID  `json:"complaintId"`
	CandidateID     *uuid.UUID `json:"candidateId,omitempty"`
	EscalationLevel int        `json:"escalationLevel"`
	SLADueDate      time.Time  `json:"slaDueDate"`
	BreachedAt      time.Time  `json:"breachedAt"`
}

func (e ComplaintSLABreached) EventName() string { return "complaint.sla.breached" }

// ComplaintEscalated is published on a manual escalation.
type ComplaintEscalated struct {
	BaseEvent
	ComplaintID     uuid.UUID  `json:"complaintId"`
	CandidateID     *uuid.UUID `json:"candidateId,omitempty"`
	EscalationLevel int        `json:"escalationLevel"`
	EscalatedTo     *uuid.UUID `json:"escalatedTo,omitempty"`
	Reason          string     `json:"reason"`
}

func (e ComplaintEscalated) EventName() string { return "complaint.escalated" }

// =============================================================================
// Remittance Domain Events
// =============================================================================

// RemittanceAlertCreated is published when the compliance scan opens an alert.
type RemittanceAlertCreated struct {
	BaseEvent
	AlertID     uuid.UUID `json:"alertId"`
	CandidateID uuid.UUID `json:"candidateId"`
	AlertType   string    `json:"alertType"`
	Severity    string    `json:"severity"`
	Message     string    `json:"message"`
}

func (e RemittanceAlertCreated) EventName() string { return "remittance.alert.created" }

// =============================================================================
// Candidate Domain Events
// =============================================================================

// CandidateStatusChanged is published for every applied master-status transition.
type CandidateStatusChanged struct {
	BaseEvent
	CandidateID uuid.UUID `json:"candidateId"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	Source      string    `json:"source"`
}

func (e CandidateStatusChanged) EventName() string { return "candidate.status.changed" }
