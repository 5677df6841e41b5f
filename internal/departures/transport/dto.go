package transport

import (
	"encoding/json"
	"strings"
	"time"

	"labor_pipeline_backend/internal/departures/domain"
	"labor_pipeline_backend/internal/departures/service"
	"labor_pipeline_backend/platform/apperr"

	"github.com/google/uuid"
)

type OpenDepartureRequest struct {
	CandidateID uuid.UUID `json:"candidateId" validate:"required"`
}

// ChecklistItemRequest carries either a boolean or a status string,
// depending on the item.
type ChecklistItemRequest struct {
	Value json.RawMessage `json:"value" validate:"required"`
}

// ItemValue decodes the raw value into the domain representation.
func (r ChecklistItemRequest) ItemValue() (domain.ItemValue, error) {
	if strings.TrimSpace(string(r.Value)) == "null" {
		return domain.ItemValue{}, apperr.Validation("value is required")
	}
	var flag bool
	if err := json.Unmarshal(r.Value, &flag); err == nil {
		return domain.ItemValue{Flag: &flag}, nil
	}
	var status string
	if err := json.Unmarshal(r.Value, &status); err == nil {
		return domain.ItemValue{Status: status}, nil
	}
	return domain.ItemValue{}, apperr.Validation("value must be a boolean or a status string")
}

type TicketRequest struct {
	Number     string     `json:"number" validate:"max=64"`
	Airline    string     `json:"airline" validate:"max=120"`
	FlightDate *time.Time `json:"flightDate,omitempty"`
}

type DepartureResponse struct {
	ID                    uuid.UUID     `json:"id"`
	CandidateID           uuid.UUID     `json:"candidateId"`
	BriefingCompleted     bool          `json:"briefingCompleted"`
	BriefingCompletedAt   *time.Time    `json:"briefingCompletedAt,omitempty"`
	PTNStatus             string        `json:"ptnStatus"`
	ProtectorStatus       string        `json:"protectorStatus"`
	SalaryConfirmed       bool          `json:"salaryConfirmed"`
	AccommodationVerified bool          `json:"accommodationVerified"`
	Ticket                domain.Ticket `json:"ticket"`
	NinetyDayCompliance   string        `json:"ninetyDayCompliance"`
	NinetyDayCheckedAt    *time.Time    `json:"ninetyDayCheckedAt,omitempty"`
	FinalDepartureStatus  string        `json:"finalDepartureStatus"`
	DepartedAt            *time.Time    `json:"departedAt,omitempty"`
	Version               int           `json:"version"`
	UpdatedAt             time.Time     `json:"updatedAt"`
}

func ToDepartureResponse(d domain.Departure) DepartureResponse {
	return DepartureResponse{
		ID:                    d.ID,
		CandidateID:           d.CandidateID,
		BriefingCompleted:     d.BriefingCompleted,
		BriefingCompletedAt:   d.BriefingCompletedAt,
		PTNStatus:             string(d.PTNStatus),
		ProtectorStatus:       string(d.ProtectorStatus),
		SalaryConfirmed:       d.SalaryConfirmed,
		AccommodationVerified: d.AccommodationVerified,
		Ticket:                d.Ticket,
		NinetyDayCompliance:   string(d.NinetyDayCompliance),
		NinetyDayCheckedAt:    d.NinetyDayCheckedAt,
		FinalDepartureStatus:  string(d.FinalStatus),
		DepartedAt:            d.DepartedAt,
		Version:               d.Version,
		UpdatedAt:             d.UpdatedAt,
	}
}

type ReadinessResponse struct {
	Ready        bool     `json:"ready"`
	PendingItems []string `json:"pendingItems"`
	FinalStatus  string   `json:"finalDepartureStatus"`
}

func ToReadinessResponse(r service.Readiness) ReadinessResponse {
	pending := make([]string, 0, len(r.PendingItems))
	for _, item := range r.PendingItems {
		pending = append(pending, string(item))
	}
	return ReadinessResponse{Ready: r.Ready, PendingItems: pending, FinalStatus: string(r.FinalStatus)}
}
