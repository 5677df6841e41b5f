package adapters

import (
	"context"
	"errors"
	"testing"
	"time"

	departuredomain "labor_pipeline_backend/internal/departures/domain"
	trainingdomain "labor_pipeline_backend/internal/training/domain"
	visadomain "labor_pipeline_backend/internal/visa/domain"
	"labor_pipeline_backend/platform/apperr"

	"github.com/google/uuid"
)

type trainingStub struct {
	t   trainingdomain.Training
	err error
}

func (s trainingStub) ForCandidate(context.Context, uuid.UUID) (trainingdomain.Training, error) {
	return s.t, s.err
}

type visaStub struct {
	v   visadomain.VisaProcess
	err error
}

func (s visaStub) ForCandidate(context.Context, uuid.UUID) (visadomain.VisaProcess, error) {
	return s.v, s.err
}

type departureStub struct {
	d   departuredomain.Departure
	err error
}

func (s departureStub) ForCandidate(context.Context, uuid.UUID) (departuredomain.Departure, error) {
	return s.d, s.err
}

var missing = apperr.NotFound("not found")

func TestGuardsTreatMissingRecordsAsUnsatisfied(t *testing.T) {
	g := NewCandidateGuards(trainingStub{err: missing}, visaStub{err: missing}, departureStub{err: missing})
	got, err := g.Guards(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("guards: %v", err)
	}
	if got.TrainingCompleted || got.VisaIssued || got.Departed {
		t.Fatalf("expected no guard satisfied, got %+v", got)
	}
}

func TestGuardsReadTrackerState(t *testing.T) {
	done := time.Now()
	g := NewCandidateGuards(
		trainingStub{t: trainingdomain.Training{CompletedAt: &done}},
		visaStub{v: visadomain.VisaProcess{OverallStatus: visadomain.OverallIssued}},
		departureStub{d: departuredomain.Departure{FinalStatus: departuredomain.FinalReadyToDepart}},
	)
	got, err := g.Guards(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("guards: %v", err)
	}
	if !got.TrainingCompleted || !got.VisaIssued || got.Departed {
		t.Fatalf("unexpected guards %+v", got)
	}
}

func TestGuardsSurfaceStorageErrors(t *testing.T) {
	boom := errors.New("connection reset")
	g := NewCandidateGuards(trainingStub{}, visaStub{err: boom}, departureStub{err: missing})
	if _, err := g.Guards(context.Background(), uuid.New()); !errors.Is(err, boom) {
		t.Fatalf("expected storage error, got %v", err)
	}
}

func TestDepartureVisaReader(t *testing.T) {
	r := NewDepartureVisaReader(visaStub{err: missing})
	if ok, err := r.IsVisaIssued(context.Background(), uuid.New()); ok || err != nil {
		t.Fatalf("expected false without error, got %v %v", ok, err)
	}
	r = NewDepartureVisaReader(visaStub{v: visadomain.VisaProcess{OverallStatus: visadomain.OverallIssued}})
	if ok, _ := r.IsVisaIssued(context.Background(), uuid.New()); !ok {
		t.Fatal("expected issued visa")
	}
}
