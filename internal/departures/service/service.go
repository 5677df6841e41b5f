// Package service implements the departure readiness tracker.
package service

import (
	"context"
	"fmt"
	"time"

	"labor_pipeline_backend/internal/audit"
	"labor_pipeline_backend/internal/departures/domain"
	"labor_pipeline_backend/internal/events"
	"labor_pipeline_backend/platform/apperr"
	"labor_pipeline_backend/platform/db"
	"labor_pipeline_backend/platform/logger"

	"github.com/google/uuid"
)

const subjectDeparture = "departure"

// Repository is the persistence port for departures.
type Repository interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
	Create(ctx context.Context, d domain.Departure) error
	GetByID(ctx context.Context, id uuid.UUID) (domain.Departure, error)
	GetByCandidateID(ctx context.Context, candidateID uuid.UUID) (domain.Departure, error)
	Update(ctx context.Context, d *domain.Departure) error
}

// VisaReader answers whether a candidate's visa has been issued.
type VisaReader interface {
	IsVisaIssued(ctx context.Context, candidateID uuid.UUID) (bool, error)
}

type Service struct {
	repo  Repository
	visas VisaReader
	bus   events.Bus
	audit audit.Recorder
	log   *logger.Logger
	now   func() time.Time
}

func New(repo Repository, visas VisaReader, bus events.Bus, recorder audit.Recorder, log *logger.Logger) *Service {
	if recorder == nil {
		recorder = audit.Nop{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		repo:  repo,
		visas: visas,
		bus:   bus,
		audit: recorder,
		log:   log,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Open creates the departure checklist once the candidate's visa is issued.
func (s *Service) Open(ctx context.Context, candidateID, actorID uuid.UUID) (domain.Departure, error) {
	issued, err := s.visas.IsVisaIssued(ctx, candidateID)
	if err != nil {
		return domain.Departure{}, err
	}
	if !issued {
		return domain.Departure{}, apperr.InvalidTransition("departure requires an issued visa")
	}

	d := domain.NewDeparture(candidateID, s.now())
	if err := s.repo.Create(ctx, d); err != nil {
		return domain.Departure{}, err
	}
	s.audit.Record(ctx, audit.Entry{
		ActorID:     actorID,
		Action:      "departure.opened",
		SubjectType: subjectDeparture,
		SubjectID:   d.ID,
		Description: "departure checklist opened for candidate " + candidateID.String(),
	})
	return d, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (domain.Departure, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ForCandidate(ctx context.Context, candidateID uuid.UUID) (domain.Departure, error) {
	return s.repo.GetByCandidateID(ctx, candidateID)
}

// MarkChecklistInput sets one checklist item.
type MarkChecklistInput struct {
	DepartureID uuid.UUID
	Item        domain.Item
	Value       domain.ItemValue
	ActorID     uuid.UUID
}

func (s *Service) MarkChecklistItem(ctx context.Context, in MarkChecklistInput) (domain.Departure, error) {
	var before domain.FinalStatus
	d, err := s.mutate(ctx, in.DepartureID, func(d *domain.Departure, now time.Time) error {
		before = d.FinalStatus
		return d.MarkItem(in.Item, in.Value, now)
	})
	if err != nil {
		return domain.Departure{}, err
	}
	s.audit.Record(ctx, audit.Entry{
		ActorID:     in.ActorID,
		Action:      "departure.checklist.updated",
		SubjectType: subjectDeparture,
		SubjectID:   d.ID,
		Description: fmt.Sprintf("%s updated, departure %s", in.Item, d.FinalStatus),
		Metadata: map[string]any{
			"item":        in.Item,
			"value":       describeValue(in.Value),
			"finalBefore": before,
			"finalAfter":  d.FinalStatus,
		},
	})
	return d, nil
}

// UpdateTicket stores the ticket details. Tickets never gate departure.
func (s *Service) UpdateTicket(ctx context.Context, id uuid.UUID, ticket domain.Ticket, actorID uuid.UUID) (domain.Departure, error) {
	d, err := s.mutate(ctx, id, func(d *domain.Departure, now time.Time) error {
		return d.SetTicket(ticket, now)
	})
	if err != nil {
		return domain.Departure{}, err
	}
	s.audit.Record(ctx, audit.Entry{
		ActorID:     actorID,
		Action:      "departure.ticket.updated",
		SubjectType: subjectDeparture,
		SubjectID:   d.ID,
		Description: "ticket details updated",
	})
	return d, nil
}

// Readiness is the derived answer of EvaluateReadiness.
type Readiness struct {
	Ready        bool
	PendingItems []domain.Item
	FinalStatus  domain.FinalStatus
}

// EvaluateReadiness re-derives readiness from the stored checklist items.
func (s *Service) EvaluateReadiness(ctx context.Context, id uuid.UUID) (Readiness, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Readiness{}, err
	}
	return Readiness{
		Ready:        domain.EvaluateReadiness(d),
		PendingItems: d.PendingItems(),
		FinalStatus:  d.FinalStatus,
	}, nil
}

// MarkDeparted is the terminal transition. Repeat calls return the current
// record without publishing again.
func (s *Service) MarkDeparted(ctx context.Context, id, actorID uuid.UUID) (domain.Departure, error) {
	var changed bool
	d, err := s.mutateIf(ctx, id, func(d *domain.Departure, now time.Time) (bool, error) {
		var err error
		changed, err = d.MarkDeparted(now)
		return changed, err
	})
	if err != nil {
		return domain.Departure{}, err
	}
	if !changed {
		return d, nil
	}

	s.audit.Record(ctx, audit.Entry{
		ActorID:     actorID,
		Action:      "departure.departed",
		SubjectType: subjectDeparture,
		SubjectID:   d.ID,
		Description: "candidate departed",
	})
	if s.bus != nil {
		err := s.bus.PublishSync(ctx, events.CandidateDeparted{
			BaseEvent:   events.NewBaseEventAt(*d.DepartedAt),
			DepartureID: d.ID,
			CandidateID: d.CandidateID,
			DepartedAt:  *d.DepartedAt,
		})
		if err != nil {
			s.log.WithContext(ctx).SideEffectFailed("departure.departed", subjectDeparture, d.ID.String(), err)
		}
	}
	return d, nil
}

func (s *Service) mutate(ctx context.Context, id uuid.UUID, apply func(d *domain.Departure, now time.Time) error) (domain.Departure, error) {
	return s.mutateIf(ctx, id, func(d *domain.Departure, now time.Time) (bool, error) {
		return true, apply(d, now)
	})
}

// mutateIf writes the departure back only when apply reports a change.
func (s *Service) mutateIf(ctx context.Context, id uuid.UUID, apply func(d *domain.Departure, now time.Time) (bool, error)) (domain.Departure, error) {
	var result domain.Departure
	err := db.RetryOnConflict(ctx, func(ctx context.Context) error {
		return s.repo.WithinTx(ctx, func(ctx context.Context) error {
			d, err := s.repo.GetByID(ctx, id)
			if err != nil {
				return err
			}
			changed, err := apply(&d, s.now())
			if err != nil {
				return err
			}
			if changed {
				if err := s.repo.Update(ctx, &d); err != nil {
					return err
				}
			}
			result = d
			return nil
		})
	})
	return result, err
}

func describeValue(v domain.ItemValue) any {
	if v.Flag != nil {
		return *v.Flag
	}
	return v.Status
}
