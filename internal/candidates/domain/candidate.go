// Package domain holds the candidate master status and its guards.
package domain

import (
	"regexp"
	"strings"
	"time"

	"labor_pipeline_backend/internal/legacy"
	"labor_pipeline_backend/internal/stagegate"
	"labor_pipeline_backend/platform/apperr"
	"labor_pipeline_backend/platform/phone"

	"github.com/google/uuid"
)

type Status string

const (
	StatusNew         Status = "new"
	StatusScreening   Status = "screening"
	StatusRegistered  Status = "registered"
	StatusTraining    Status = "training"
	StatusVisaProcess Status = "visa_process"
	StatusReady       Status = "ready"
	StatusDeparted    Status = "departed"
	StatusRejected    Status = "rejected"
)

// Pipeline is the forward order of the master status. Rejected sits
// outside the order and is reachable from every non-terminal status.
var Pipeline = stagegate.New(
	StatusNew,
	StatusScreening,
	StatusRegistered,
	StatusTraining,
	StatusVisaProcess,
	StatusReady,
	StatusDeparted,
)

func ParseStatus(raw string) (Status, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if mapped, ok := legacy.Lookup(legacy.FieldCandidateStatus, v); ok {
		v = mapped
	}
	s := Status(v)
	if s == StatusRejected || Pipeline.Contains(s) {
		return s, nil
	}
	return "", apperr.Validationf("unknown candidate status %q", raw)
}

func (s Status) IsTerminal() bool {
	return s == StatusDeparted || s == StatusRejected
}

// Guards is the sub-tracker state the master status depends on.
type Guards struct {
	TrainingCompleted bool
	VisaIssued        bool
	Departed          bool
}

// Allows reports whether the guard for entering s holds.
func (g Guards) Allows(s Status) bool {
	switch s {
	case StatusVisaProcess:
		return g.TrainingCompleted
	case StatusReady:
		return g.TrainingCompleted && g.VisaIssued
	case StatusDeparted:
		return g.TrainingCompleted && g.VisaIssued && g.Departed
	}
	return true
}

// Furthest is the most advanced tracker-driven status the guards support.
// Statuses without a tracker behind them are never derived.
func (g Guards) Furthest() (Status, bool) {
	for _, s := range []Status{StatusDeparted, StatusReady, StatusVisaProcess} {
		if g.Allows(s) {
			return s, true
		}
	}
	return "", false
}

func guardMessage(s Status) string {
	switch s {
	case StatusVisaProcess:
		return "training must be completed before visa processing"
	case StatusReady:
		return "visa must be issued before the candidate is ready"
	case StatusDeparted:
		return "departure must be confirmed before the candidate is departed"
	}
	return "transition guard not satisfied"
}

// Candidate is the master record of a person in the pipeline.
type Candidate struct {
	ID              uuid.UUID
	FullName        string
	CNIC            string
	Phone           string
	Trade           string
	Status          Status
	RejectionReason *string
	StatusChangedAt time.Time
	Version         int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

var cnicDigits = regexp.MustCompile(`^\d{13}$`)

// NormalizeCNIC accepts 13 digits with or without dashes and returns the
// 5-7-1 dashed form.
func NormalizeCNIC(raw string) (string, error) {
	digits := strings.NewReplacer("-", "", " ", "").Replace(strings.TrimSpace(raw))
	if !cnicDigits.MatchString(digits) {
		return "", apperr.Validation("cnic must be 13 digits")
	}
	return digits[:5] + "-" + digits[5:12] + "-" + digits[12:], nil
}

// Registration is the input for a new candidate.
type Registration struct {
	FullName string
	CNIC     string
	Phone    string
	Trade    string
}

func NewCandidate(in Registration, now time.Time) (Candidate, error) {
	name := strings.TrimSpace(in.FullName)
	if name == "" {
		return Candidate{}, apperr.Validation("full name is required")
	}
	cnic, err := NormalizeCNIC(in.CNIC)
	if err != nil {
		return Candidate{}, err
	}
	e164, err := phone.ParseE164(in.Phone)
	if err != nil {
		return Candidate{}, apperr.Validation("phone number is invalid")
	}
	return Candidate{
		ID:              uuid.New(),
		FullName:        name,
		CNIC:            cnic,
		Phone:           e164,
		Trade:           strings.TrimSpace(in.Trade),
		Status:          StatusNew,
		StatusChangedAt: now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// Change describes an applied status move.
type Change struct {
	From Status
	To   Status
}

// Sources of a status change.
const (
	SourceManual    = "manual"
	SourceTraining  = "training"
	SourceVisa      = "visa"
	SourceDeparture = "departure"
	SourceReconcile = "reconcile"
)

// HistoryEntry is one row of the status log.
type HistoryEntry struct {
	ID          uuid.UUID
	CandidateID uuid.UUID
	From        Status
	To          Status
	Source      string
	ActorID     *uuid.UUID
	CreatedAt   time.Time
}

// Attempt applies a manual transition: the immediate next status, or
// rejected with a reason. Asking for the current status is a no-op.
func (c *Candidate) Attempt(target Status, reason string, g Guards, now time.Time) (Change, bool, error) {
	if target != StatusRejected && !Pipeline.Contains(target) {
		return Change{}, false, apperr.Validationf("unknown candidate status %q", target)
	}
	if target == c.Status {
		return Change{}, false, nil
	}
	if c.Status.IsTerminal() {
		return Change{}, false, apperr.InvalidTransitionf("candidate is %s", c.Status)
	}

	if target == StatusRejected {
		reason = strings.TrimSpace(reason)
		if reason == "" {
			return Change{}, false, apperr.Validation("a rejection reason is required")
		}
		ch := c.move(StatusRejected, now)
		c.RejectionReason = &reason
		return ch, true, nil
	}

	if !Pipeline.IsImmediateNext(c.Status, target) {
		return Change{}, false, apperr.InvalidTransitionf("candidate cannot move from %s to %s", c.Status, target)
	}
	if !g.Allows(target) {
		return Change{}, false, apperr.InvalidTransition(guardMessage(target))
	}
	return c.move(target, now), true, nil
}

// Sync moves the candidate forward to target on behalf of a tracker. It
// never regresses and never touches a terminal candidate. Jumping over
// intermediate statuses requires every guard on the way to hold.
func (c *Candidate) Sync(target Status, g Guards, now time.Time) (Change, bool, error) {
	if !Pipeline.Contains(target) {
		return Change{}, false, apperr.Validationf("unknown candidate status %q", target)
	}
	if c.Status.IsTerminal() || !Pipeline.Before(c.Status, target) {
		return Change{}, false, nil
	}
	for _, step := range Pipeline.Between(c.Status, target) {
		if !g.Allows(step) {
			return Change{}, false, apperr.InvalidTransition(guardMessage(step))
		}
	}
	return c.move(target, now), true, nil
}

// Violations lists the guards the current status contradicts.
func (c *Candidate) Violations(g Guards) []string {
	if c.Status == StatusRejected {
		return nil
	}
	var out []string
	for _, s := range []Status{StatusVisaProcess, StatusReady, StatusDeparted} {
		if !Pipeline.Before(c.Status, s) && !g.Allows(s) {
			out = append(out, guardMessage(s))
		}
	}
	return out
}

// Reconcile derives the most advanced legal status from the guards and
// applies it. A status the guards no longer support is reported instead of
// being lowered.
func (c *Candidate) Reconcile(g Guards, now time.Time) (Change, bool, error) {
	if v := c.Violations(g); len(v) > 0 {
		return Change{}, false, apperr.InvalidTransition("candidate status contradicts tracker state").
			WithDetails(map[string]any{"status": c.Status, "violations": v})
	}
	target, ok := g.Furthest()
	if !ok {
		return Change{}, false, nil
	}
	return c.Sync(target, g, now)
}

func (c *Candidate) move(to Status, now time.Time) Change {
	ch := Change{From: c.Status, To: to}
	c.Status = to
	c.StatusChangedAt = now
	c.UpdatedAt = now
	return ch
}
