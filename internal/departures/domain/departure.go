// Package domain holds the departure checklist gate.
package domain

import (
	"strings"
	"time"

	"labor_pipeline_backend/internal/legacy"
	"labor_pipeline_backend/internal/stagegate"
	"labor_pipeline_backend/platform/apperr"

	"github.com/google/uuid"
)

// Item names a checklist entry.
type Item string

const (
	ItemBriefingCompleted     Item = "briefing_completed"
	ItemPTNStatus             Item = "ptn_status"
	ItemProtectorStatus       Item = "protector_status"
	ItemSalaryConfirmed       Item = "salary_confirmed"
	ItemAccommodationVerified Item = "accommodation_verified"
	ItemNinetyDayCompliance   Item = "ninety_day_compliance"
)

// Checklist is the pre-departure gate. Every item must be accepted before
// the candidate is ready to depart.
var Checklist = stagegate.New(
	ItemBriefingCompleted,
	ItemPTNStatus,
	ItemProtectorStatus,
	ItemSalaryConfirmed,
	ItemAccommodationVerified,
)

func ParseItem(raw string) (Item, error) {
	item := Item(strings.ToLower(strings.TrimSpace(raw)))
	if item == "accommodation" {
		item = ItemAccommodationVerified
	}
	if Checklist.Contains(item) || item == ItemNinetyDayCompliance {
		return item, nil
	}
	return "", apperr.Validationf("unknown checklist item %q", raw)
}

func (i Item) isFlag() bool {
	switch i {
	case ItemBriefingCompleted, ItemSalaryConfirmed, ItemAccommodationVerified:
		return true
	}
	return false
}

// ItemStatus is the state of a clearance with an external office.
type ItemStatus string

const (
	ItemPending ItemStatus = "pending"
	ItemApplied ItemStatus = "applied"
	ItemDone    ItemStatus = "done"
)

func ParseItemStatus(raw string) (ItemStatus, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if mapped, ok := legacy.Lookup(legacy.FieldDepartureItemStatus, v); ok {
		v = mapped
	}
	switch s := ItemStatus(v); s {
	case ItemPending, ItemApplied, ItemDone:
		return s, nil
	}
	return "", apperr.Validationf("unknown checklist status %q", raw)
}

type ComplianceStatus string

const (
	CompliancePending      ComplianceStatus = "pending"
	ComplianceCompliant    ComplianceStatus = "compliant"
	ComplianceNonCompliant ComplianceStatus = "non_compliant"
)

func ParseComplianceStatus(raw string) (ComplianceStatus, error) {
	switch s := ComplianceStatus(strings.ToLower(strings.TrimSpace(raw))); s {
	case CompliancePending, ComplianceCompliant, ComplianceNonCompliant:
		return s, nil
	}
	return "", apperr.Validationf("unknown compliance status %q", raw)
}

// FinalStatus is the derived departure status.
type FinalStatus string

const (
	FinalProcessing    FinalStatus = "processing"
	FinalReadyToDepart FinalStatus = "ready_to_depart"
	FinalDeparted      FinalStatus = "departed"
)

func ParseFinalStatus(raw string) (FinalStatus, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if mapped, ok := legacy.Lookup(legacy.FieldDepartureStatus, v); ok {
		v = mapped
	}
	switch s := FinalStatus(v); s {
	case FinalProcessing, FinalReadyToDepart, FinalDeparted:
		return s, nil
	}
	return "", apperr.Validationf("unknown departure status %q", raw)
}

// Ticket is informational and never gates departure.
type Ticket struct {
	Number     string     `json:"number,omitempty"`
	Airline    string     `json:"airline,omitempty"`
	FlightDate *time.Time `json:"flightDate,omitempty"`
}

// Departure is a candidate's departure checklist.
type Departure struct {
	ID                    uuid.UUID
	CandidateID           uuid.UUID
	BriefingCompleted     bool
	BriefingCompletedAt   *time.Time
	PTNStatus             ItemStatus
	ProtectorStatus       ItemStatus
	SalaryConfirmed       bool
	AccommodationVerified bool
	Ticket                Ticket
	NinetyDayCompliance   ComplianceStatus
	NinetyDayCheckedAt    *time.Time
	FinalStatus           FinalStatus
	DepartedAt            *time.Time
	Version               int
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

func NewDeparture(candidateID uuid.UUID, now time.Time) Departure {
	return Departure{
		ID:                  uuid.New(),
		CandidateID:         candidateID,
		PTNStatus:           ItemPending,
		ProtectorStatus:     ItemPending,
		NinetyDayCompliance: CompliancePending,
		FinalStatus:         FinalProcessing,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

// ItemAccepted reports whether a pre-departure item is in its accepted
// terminal value.
func (d *Departure) ItemAccepted(item Item) bool {
	switch item {
	case ItemBriefingCompleted:
		return d.BriefingCompleted
	case ItemPTNStatus:
		return d.PTNStatus == ItemDone
	case ItemProtectorStatus:
		return d.ProtectorStatus == ItemDone
	case ItemSalaryConfirmed:
		return d.SalaryConfirmed
	case ItemAccommodationVerified:
		return d.AccommodationVerified
	}
	return false
}

// EvaluateReadiness derives readiness from the items on every call.
func EvaluateReadiness(d Departure) bool {
	return Checklist.AllComplete(d.ItemAccepted)
}

// PendingItems lists the pre-departure items not yet accepted.
func (d *Departure) PendingItems() []Item {
	var out []Item
	for _, item := range Checklist.Stages() {
		if !d.ItemAccepted(item) {
			out = append(out, item)
		}
	}
	return out
}

func (d *Departure) IsDeparted() bool { return d.FinalStatus == FinalDeparted }

// Recompute is the only writer of FinalStatus before departure.
func (d *Departure) Recompute() {
	if d.IsDeparted() {
		return
	}
	if EvaluateReadiness(*d) {
		d.FinalStatus = FinalReadyToDepart
	} else {
		d.FinalStatus = FinalProcessing
	}
}

// ItemValue is either a flag or a status, depending on the item.
type ItemValue struct {
	Flag   *bool
	Status string
}

// MarkItem sets one checklist item. Pre-departure items are frozen once
// departed; the 90-day compliance item only opens after departure.
func (d *Departure) MarkItem(item Item, value ItemValue, now time.Time) error {
	if item == ItemNinetyDayCompliance {
		if !d.IsDeparted() {
			return apperr.InvalidTransition("90-day compliance applies only after departure")
		}
		status, err := ParseComplianceStatus(value.Status)
		if err != nil {
			return err
		}
		at := now
		d.NinetyDayCompliance = status
		d.NinetyDayCheckedAt = &at
		d.UpdatedAt = now
		return nil
	}

	if !Checklist.Contains(item) {
		return apperr.Validationf("unknown checklist item %q", item)
	}
	if d.IsDeparted() {
		return apperr.InvalidTransition("departure is final; checklist items can no longer change")
	}

	if item.isFlag() {
		if value.Flag == nil {
			return apperr.Validationf("%s expects a true/false value", item)
		}
		flag := *value.Flag
		switch item {
		case ItemBriefingCompleted:
			d.BriefingCompleted = flag
			if flag {
				at := now
				d.BriefingCompletedAt = &at
			} else {
				d.BriefingCompletedAt = nil
			}
		case ItemSalaryConfirmed:
			d.SalaryConfirmed = flag
		case ItemAccommodationVerified:
			d.AccommodationVerified = flag
		}
	} else {
		status, err := ParseItemStatus(value.Status)
		if err != nil {
			return err
		}
		if item == ItemPTNStatus {
			d.PTNStatus = status
		} else {
			d.ProtectorStatus = status
		}
	}

	d.UpdatedAt = now
	d.Recompute()
	return nil
}

// SetTicket replaces the ticket details until departure.
func (d *Departure) SetTicket(t Ticket, now time.Time) error {
	if d.IsDeparted() {
		return apperr.InvalidTransition("departure is final; ticket can no longer change")
	}
	d.Ticket = t
	d.UpdatedAt = now
	return nil
}

// MarkDeparted is the terminal transition. It is only allowed when the
// checklist is ready; marking an already departed record changes nothing.
func (d *Departure) MarkDeparted(now time.Time) (changed bool, err error) {
	if d.IsDeparted() {
		return false, nil
	}
	if !EvaluateReadiness(*d) {
		return false, apperr.InvalidTransition("departure checklist is incomplete").
			WithDetails(map[string]any{"pendingItems": d.PendingItems()})
	}
	at := now
	d.FinalStatus = FinalDeparted
	d.DepartedAt = &at
	d.UpdatedAt = now
	return true, nil
}
