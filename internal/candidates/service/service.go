// Package service implements the candidate status aggregator.
package service

import (
	"context"
	"fmt"
	"time"

	"labor_pipeline_backend/internal/audit"
	"labor_pipeline_backend/internal/candidates/domain"
	"labor_pipeline_backend/internal/events"
	"labor_pipeline_backend/platform/db"
	"labor_pipeline_backend/platform/logger"

	"github.com/google/uuid"
)

const subjectCandidate = "candidate"

// Repository is the persistence port for candidates.
type Repository interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
	Create(ctx context.Context, c domain.Candidate) error
	GetByID(ctx context.Context, id uuid.UUID) (domain.Candidate, error)
	UpdateStatus(ctx context.Context, c *domain.Candidate) error
	InsertHistory(ctx context.Context, h domain.HistoryEntry) error
}

// GuardReader reads the sub-tracker state behind the status guards.
type GuardReader interface {
	Guards(ctx context.Context, candidateID uuid.UUID) (domain.Guards, error)
}

type Service struct {
	repo   Repository
	guards GuardReader
	bus    events.Bus
	audit  audit.Recorder
	log    *logger.Logger
	now    func() time.Time
}

func New(repo Repository, guards GuardReader, bus events.Bus, recorder audit.Recorder, log *logger.Logger) *Service {
	if recorder == nil {
		recorder = audit.Nop{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		repo:   repo,
		guards: guards,
		bus:    bus,
		audit:  recorder,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Create registers a candidate with status new.
func (s *Service) Create(ctx context.Context, in domain.Registration, actorID uuid.UUID) (domain.Candidate, error) {
	c, err := domain.NewCandidate(in, s.now())
	if err != nil {
		return domain.Candidate{}, err
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return domain.Candidate{}, err
	}
	s.audit.Record(ctx, audit.Entry{
		ActorID:     actorID,
		Action:      "candidate.created",
		SubjectType: subjectCandidate,
		SubjectID:   c.ID,
		Description: "candidate registered",
	})
	return c, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (domain.Candidate, error) {
	return s.repo.GetByID(ctx, id)
}

// TransitionInput is a manual status change.
type TransitionInput struct {
	CandidateID uuid.UUID
	Target      domain.Status
	Reason      string
	ActorID     uuid.UUID
}

// AttemptTransition applies a guarded manual transition.
func (s *Service) AttemptTransition(ctx context.Context, in TransitionInput) (domain.Candidate, error) {
	return s.apply(ctx, in.CandidateID, domain.SourceManual, in.ActorID, func(c *domain.Candidate, g domain.Guards, now time.Time) (domain.Change, bool, error) {
		return c.Attempt(in.Target, in.Reason, g, now)
	})
}

// Reject moves the candidate to rejected with a reason.
func (s *Service) Reject(ctx context.Context, id uuid.UUID, reason string, actorID uuid.UUID) (domain.Candidate, error) {
	return s.AttemptTransition(ctx, TransitionInput{CandidateID: id, Target: domain.StatusRejected, Reason: reason, ActorID: actorID})
}

// SyncFromTracker mirrors a tracker milestone onto the master status.
func (s *Service) SyncFromTracker(ctx context.Context, candidateID uuid.UUID, target domain.Status, source string) (domain.Candidate, error) {
	return s.apply(ctx, candidateID, source, audit.SystemActor, func(c *domain.Candidate, g domain.Guards, now time.Time) (domain.Change, bool, error) {
		return c.Sync(target, g, now)
	})
}

// Reconcile re-derives the status from every tracker and applies it.
func (s *Service) Reconcile(ctx context.Context, id, actorID uuid.UUID) (domain.Candidate, error) {
	return s.apply(ctx, id, domain.SourceReconcile, actorID, func(c *domain.Candidate, g domain.Guards, now time.Time) (domain.Change, bool, error) {
		return c.Reconcile(g, now)
	})
}

type transition func(c *domain.Candidate, g domain.Guards, now time.Time) (domain.Change, bool, error)

func (s *Service) apply(ctx context.Context, id uuid.UUID, source string, actorID uuid.UUID, fn transition) (domain.Candidate, error) {
	var (
		result  domain.Candidate
		change  domain.Change
		changed bool
	)
	err := db.RetryOnConflict(ctx, func(ctx context.Context) error {
		return s.repo.WithinTx(ctx, func(ctx context.Context) error {
			c, err := s.repo.GetByID(ctx, id)
			if err != nil {
				return err
			}
			g, err := s.guards.Guards(ctx, id)
			if err != nil {
				return err
			}
			if change, changed, err = fn(&c, g, s.now()); err != nil {
				return err
			}
			if changed {
				if err := s.repo.UpdateStatus(ctx, &c); err != nil {
					return err
				}
				entry := domain.HistoryEntry{
					ID:          uuid.New(),
					CandidateID: c.ID,
					From:        change.From,
					To:          change.To,
					Source:      source,
					CreatedAt:   c.StatusChangedAt,
				}
				if actorID != audit.SystemActor {
					actor := actorID
					entry.ActorID = &actor
				}
				if err := s.repo.InsertHistory(ctx, entry); err != nil {
					return err
				}
			}
			result = c
			return nil
		})
	})
	if err != nil {
		return domain.Candidate{}, err
	}
	if changed {
		s.afterChange(ctx, result, change, source, actorID)
	}
	return result, nil
}

func (s *Service) afterChange(ctx context.Context, c domain.Candidate, ch domain.Change, source string, actorID uuid.UUID) {
	desc := fmt.Sprintf("status %s -> %s (%s)", ch.From, ch.To, source)
	if ch.To == domain.StatusRejected && c.RejectionReason != nil {
		desc += ": " + *c.RejectionReason
	}
	s.audit.Record(ctx, audit.Entry{
		ActorID:     actorID,
		Action:      "candidate.status.changed",
		SubjectType: subjectCandidate,
		SubjectID:   c.ID,
		Description: desc,
		Metadata:    map[string]any{"from": ch.From, "to": ch.To, "source": source},
	})
	if s.bus != nil {
		s.bus.Publish(ctx, events.CandidateStatusChanged{
			BaseEvent:   events.NewBaseEventAt(c.StatusChangedAt),
			CandidateID: c.ID,
			From:        string(ch.From),
			To:          string(ch.To),
			Source:      source,
		})
	}
}

// Handle mirrors tracker milestones published on the event bus.
func (s *Service) Handle(ctx context.Context, event events.Event) error {
	var (
		candidateID uuid.UUID
		target      domain.Status
		source      string
	)
	switch e := event.(type) {
	case events.TrainingCompleted:
		candidateID, target, source = e.CandidateID, domain.StatusVisaProcess, domain.SourceTraining
	case events.VisaIssued:
		candidateID, target, source = e.CandidateID, domain.StatusReady, domain.SourceVisa
	case events.CandidateDeparted:
		candidateID, target, source = e.CandidateID, domain.StatusDeparted, domain.SourceDeparture
	default:
		return nil
	}
	if _, err := s.SyncFromTracker(ctx, candidateID, target, source); err != nil {
		s.log.WithContext(ctx).SideEffectFailed("candidate.sync", subjectCandidate, candidateID.String(), err)
		return err
	}
	return nil
}

// Subscribe registers the aggregator for tracker milestones.
func (s *Service) Subscribe(bus events.Bus) {
	for _, name := range []string{
		events.TrainingCompleted{}.EventName(),
		events.VisaIssued{}.EventName(),
		events.CandidateDeparted{}.EventName(),
	} {
		bus.Subscribe(name, s)
	}
}
