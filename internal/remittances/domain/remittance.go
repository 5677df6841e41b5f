// Package domain holds remittance records and the post-departure
// compliance rule.
package domain

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"labor_pipeline_backend/platform/apperr"

	"github.com/google/uuid"
)

const DefaultComplianceDays = 90

// Remittance is one money transfer home by a departed worker.
type Remittance struct {
	ID            uuid.UUID
	CandidateID   uuid.UUID
	Amount        float64
	Currency      string
	TransferredAt time.Time
	Reference     string
	RecordedBy    *uuid.UUID
	CreatedAt     time.Time
}

var currencyCode = regexp.MustCompile(`^[A-Z]{3}$`)

func NewRemittance(candidateID uuid.UUID, amount float64, currency string, transferredAt time.Time, reference string, now time.Time) (Remittance, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return Remittance{}, apperr.Validation("amount must be a positive number")
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if !currencyCode.MatchString(currency) {
		return Remittance{}, apperr.Validation("currency must be a three-letter ISO code")
	}
	if transferredAt.IsZero() {
		return Remittance{}, apperr.Validation("transfer date is required")
	}
	if transferredAt.After(now) {
		return Remittance{}, apperr.Validation("transfer date cannot be in the future")
	}
	return Remittance{
		ID:            uuid.New(),
		CandidateID:   candidateID,
		Amount:        math.Round(amount*100) / 100,
		Currency:      currency,
		TransferredAt: transferredAt.UTC(),
		Reference:     strings.TrimSpace(reference),
		CreatedAt:     now,
	}, nil
}

type AlertType string

const AlertNoRemittance AlertType = "no_remittance"

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Rank orders severities so an open alert can only be raised.
func (s Severity) Rank() int {
	switch s {
	case SeverityInfo:
		return 1
	case SeverityWarning:
		return 2
	case SeverityCritical:
		return 3
	}
	return 0
}

// Alert is a compliance finding that stays open until resolved.
type Alert struct {
	ID              uuid.UUID
	CandidateID     uuid.UUID
	RemittanceID    *uuid.UUID
	AlertType       AlertType
	Severity        Severity
	Message         string
	IsResolved      bool
	ResolvedAt      *time.Time
	ResolvedBy      *uuid.UUID
	ResolutionNotes *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Resolve closes the alert. Resolving twice keeps the first resolution.
func (a *Alert) Resolve(notes *string, by *uuid.UUID, now time.Time) bool {
	if a.IsResolved {
		return false
	}
	at := now
	a.IsResolved = true
	a.ResolvedAt = &at
	a.ResolvedBy = by
	a.ResolutionNotes = notes
	a.UpdatedAt = now
	return true
}

// Subject is a departed worker the compliance scan looks at.
type Subject struct {
	CandidateID      uuid.UUID
	DepartedAt       time.Time
	LastRemittanceAt *time.Time
}

// Finding is the outcome of assessing one subject.
type Finding struct {
	Severity  Severity
	Message   string
	DaysSince int
}

// Assess applies the no-remittance rule: a warning once windowDays pass
// without a transfer since departure or the last remittance, critical at
// twice the window.
func Assess(s Subject, asOf time.Time, windowDays int) (Finding, bool) {
	if windowDays < 1 {
		windowDays = DefaultComplianceDays
	}
	since := s.DepartedAt
	what := "departure"
	if s.LastRemittanceAt != nil && s.LastRemittanceAt.After(since) {
		since = *s.LastRemittanceAt
		what = "last remittance"
	}
	if !asOf.After(since) {
		return Finding{}, false
	}
	days := int(asOf.Sub(since).Hours() / 24)

	switch {
	case days >= 2*windowDays:
		return Finding{
			Severity:  SeverityCritical,
			Message:   fmt.Sprintf("no remittance in %d days since %s", days, what),
			DaysSince: days,
		}, true
	case days >= windowDays:
		return Finding{
			Severity:  SeverityWarning,
			Message:   fmt.Sprintf("no remittance in %d days since %s", days, what),
			DaysSince: days,
		}, true
	}
	return Finding{}, false
}

// UpsertOutcome says what storing an alert finding did.
type UpsertOutcome int

const (
	UpsertUnchanged UpsertOutcome = iota
	UpsertCreated
	UpsertRaised
)

// NewAlert opens an alert for a finding.
func NewAlert(candidateID uuid.UUID, f Finding, now time.Time) Alert {
	return Alert{
		ID:          uuid.New(),
		CandidateID: candidateID,
		AlertType:   AlertNoRemittance,
		Severity:    f.Severity,
		Message:     f.Message,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
