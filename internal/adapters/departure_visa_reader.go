package adapters

import (
	"context"

	departuresvc "labor_pipeline_backend/internal/departures/service"
	"labor_pipeline_backend/platform/apperr"

	"github.com/google/uuid"
)

// DepartureVisaReader tells the departure tracker whether a visa was issued.
type DepartureVisaReader struct {
	visas VisaReader
}

func NewDepartureVisaReader(visas VisaReader) *DepartureVisaReader {
	return &DepartureVisaReader{visas: visas}
}

func (r *DepartureVisaReader) IsVisaIssued(ctx context.Context, candidateID uuid.UUID) (bool, error) {
	v, err := r.visas.ForCandidate(ctx, candidateID)
	if apperr.Is(err, apperr.KindNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return v.IsIssued(), nil
}

var _ departuresvc.VisaReader = (*DepartureVisaReader)(nil)
