// Package domain holds the complaint status machine and SLA rules.
package domain

import (
	"strings"
	"time"

	"labor_pipeline_backend/internal/legacy"
	"labor_pipeline_backend/internal/stagegate"
	"labor_pipeline_backend/platform/apperr"

	"github.com/google/uuid"
)

const (
	DefaultSLADays      = 7
	maxSLADays          = 365
	maxEscalationReason = 1000
)

type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusClosed     Status = "closed"
)

// Workflow is the forward order of complaint handling. Reopen is the only
// backward move and is handled separately.
var Workflow = stagegate.New(StatusOpen, StatusInProgress, StatusResolved, StatusClosed)

func ParseStatus(raw string) (Status, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if mapped, ok := legacy.Lookup(legacy.FieldComplaintStatus, v); ok {
		v = mapped
	}
	if s := Status(v); Workflow.Contains(s) {
		return s, nil
	}
	return "", apperr.Validationf("unknown complaint status %q", raw)
}

// IsSettled reports whether the complaint no longer runs against its SLA.
func (s Status) IsSettled() bool {
	return s == StatusResolved || s == StatusClosed
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func ParsePriority(raw string) (Priority, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "" {
		return PriorityNormal, nil
	}
	if mapped, ok := legacy.Lookup(legacy.FieldComplaintPriority, v); ok {
		v = mapped
	}
	switch p := Priority(v); p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return p, nil
	}
	return "", apperr.Validationf("unknown complaint priority %q", raw)
}

// Complaint is a grievance raised by or about a candidate.
type Complaint struct {
	ID              uuid.UUID
	CandidateID     *uuid.UUID
	Category        string
	Description     string
	Status          Status
	Priority        Priority
	RegisteredAt    time.Time
	SLADays         int
	SLADueDate      time.Time
	SLABreached     bool
	SLABreachedAt   *time.Time
	Escalation      stagegate.Level
	AssignedTo      *uuid.UUID
	EscalatedTo     *uuid.UUID
	ResolutionNotes *string
	ResolvedAt      *time.Time
	ClosedAt        *time.Time
	ReopenCount     int
	Version         int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Escalation records one increase of the escalation level.
type Escalation struct {
	ID          uuid.UUID
	ComplaintID uuid.UUID
	FromLevel   int
	ToLevel     int
	Reason      string
	Automatic   bool
	EscalatedTo *uuid.UUID
	EscalatedBy *uuid.UUID
	CreatedAt   time.Time
}

// Registration is the input for a new complaint.
type Registration struct {
	CandidateID  *uuid.UUID
	Category     string
	Description  string
	Priority     Priority
	SLADays      int
	RegisteredAt time.Time
	AssignedTo   *uuid.UUID
}

// SLADueDate is registeredAt plus slaDays calendar days.
func SLADueDate(registeredAt time.Time, slaDays int) time.Time {
	return registeredAt.AddDate(0, 0, slaDays)
}

func Register(in Registration, now time.Time) (Complaint, error) {
	category := strings.TrimSpace(in.Category)
	description := strings.TrimSpace(in.Description)
	if category == "" {
		return Complaint{}, apperr.Validation("category is required")
	}
	if description == "" {
		return Complaint{}, apperr.Validation("description is required")
	}
	if in.SLADays < 1 || in.SLADays > maxSLADays {
		return Complaint{}, apperr.Validationf("sla days must be between 1 and %d", maxSLADays)
	}
	priority := in.Priority
	if priority == "" {
		priority = PriorityNormal
	}
	registeredAt := in.RegisteredAt
	if registeredAt.IsZero() {
		registeredAt = now
	}

	return Complaint{
		ID:           uuid.New(),
		CandidateID:  in.CandidateID,
		Category:     category,
		Description:  description,
		Status:       StatusOpen,
		Priority:     priority,
		RegisteredAt: registeredAt,
		SLADays:      in.SLADays,
		SLADueDate:   SLADueDate(registeredAt, in.SLADays),
		AssignedTo:   in.AssignedTo,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// TransitionTo moves the complaint along the workflow. Moving to the
// current status is a no-op. Resolved and closed complaints may be
// reopened; the escalation level and breach flag survive the reopen.
func (c *Complaint) TransitionTo(to Status, notes *string, now time.Time) (changed bool, err error) {
	if !Workflow.Contains(to) {
		return false, apperr.Validationf("unknown complaint status %q", to)
	}
	if c.Status == to {
		return false, nil
	}

	switch {
	case to == StatusOpen && c.Status.IsSettled():
		c.ReopenCount++
		c.ResolvedAt = nil
		c.ClosedAt = nil
	case Workflow.IsImmediateNext(c.Status, to):
		at := now
		switch to {
		case StatusResolved:
			c.ResolvedAt = &at
			if notes != nil {
				c.ResolutionNotes = notes
			}
		case StatusClosed:
			c.ClosedAt = &at
		}
	default:
		return false, apperr.InvalidTransitionf("complaint cannot move from %s to %s", c.Status, to)
	}

	c.Status = to
	c.UpdatedAt = now
	return true, nil
}

// Escalate raises the level by one for a manual escalation.
func (c *Complaint) Escalate(reason string, to, by *uuid.UUID, now time.Time) (Escalation, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return Escalation{}, apperr.Validation("an escalation reason is required")
	}
	if len(reason) > maxEscalationReason {
		return Escalation{}, apperr.Validationf("escalation reason exceeds %d characters", maxEscalationReason)
	}
	if c.Status.IsSettled() {
		return Escalation{}, apperr.InvalidTransitionf("a %s complaint cannot be escalated", c.Status)
	}
	esc := c.raise(reason, false, now)
	esc.EscalatedTo = to
	esc.EscalatedBy = by
	if to != nil {
		c.EscalatedTo = to
	}
	return esc, nil
}

// IsOverdue reports whether the breach scan should pick the complaint up.
func (c *Complaint) IsOverdue(asOf time.Time) bool {
	return !c.Status.IsSettled() && !c.SLABreached && asOf.After(c.SLADueDate)
}

// MarkBreached flags an overdue complaint and escalates it. A complaint
// is breached at most once.
func (c *Complaint) MarkBreached(asOf time.Time) (Escalation, bool) {
	if !c.IsOverdue(asOf) {
		return Escalation{}, false
	}
	at := asOf
	c.SLABreached = true
	c.SLABreachedAt = &at
	return c.raise("SLA due date passed", true, asOf), true
}

func (c *Complaint) raise(reason string, automatic bool, now time.Time) Escalation {
	from := c.Escalation
	c.Escalation = from.Raise()
	c.UpdatedAt = now
	return Escalation{
		ID:          uuid.New(),
		ComplaintID: c.ID,
		FromLevel:   from.Int(),
		ToLevel:     c.Escalation.Int(),
		Reason:      reason,
		Automatic:   automatic,
		CreatedAt:   now,
	}
}
