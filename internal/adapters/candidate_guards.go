// Package adapters connects bounded contexts without letting them import
// each other's services.
package adapters

import (
	"context"

	candidatedomain "labor_pipeline_backend/internal/candidates/domain"
	candidatesvc "labor_pipeline_backend/internal/candidates/service"
	departuredomain "labor_pipeline_backend/internal/departures/domain"
	trainingdomain "labor_pipeline_backend/internal/training/domain"
	visadomain "labor_pipeline_backend/internal/visa/domain"
	"labor_pipeline_backend/platform/apperr"

	"github.com/google/uuid"
)

type TrainingReader interface {
	ForCandidate(ctx context.Context, candidateID uuid.UUID) (trainingdomain.Training, error)
}

type VisaReader interface {
	ForCandidate(ctx context.Context, candidateID uuid.UUID) (visadomain.VisaProcess, error)
}

type DepartureReader interface {
	ForCandidate(ctx context.Context, candidateID uuid.UUID) (departuredomain.Departure, error)
}

// CandidateGuards derives the aggregator's guard facts from the trackers. A
// tracker with no record for the candidate counts as not satisfied.
type CandidateGuards struct {
	trainings  TrainingReader
	visas      VisaReader
	departures DepartureReader
}

func NewCandidateGuards(trainings TrainingReader, visas VisaReader, departures DepartureReader) *CandidateGuards {
	return &CandidateGuards{trainings: trainings, visas: visas, departures: departures}
}

func (g *CandidateGuards) Guards(ctx context.Context, candidateID uuid.UUID) (candidatedomain.Guards, error) {
	var out candidatedomain.Guards

	tr, err := g.trainings.ForCandidate(ctx, candidateID)
	switch {
	case err == nil:
		out.TrainingCompleted = tr.CompletedAt != nil
	case !apperr.Is(err, apperr.KindNotFound):
		return out, err
	}

	v, err := g.visas.ForCandidate(ctx, candidateID)
	switch {
	case err == nil:
		out.VisaIssued = v.IsIssued()
	case !apperr.Is(err, apperr.KindNotFound):
		return out, err
	}

	d, err := g.departures.ForCandidate(ctx, candidateID)
	switch {
	case err == nil:
		out.Departed = d.IsDeparted()
	case !apperr.Is(err, apperr.KindNotFound):
		return out, err
	}
	return out, nil
}

var _ candidatesvc.GuardReader = (*CandidateGuards)(nil)
