// Package service implements the complaint SLA engine.
package service

import (
	"context"
	"fmt"
	"time"

	"labor_pipeline_backend/internal/audit"
	"labor_pipeline_backend/internal/complaints/domain"
	"labor_pipeline_backend/internal/events"
	"labor_pipeline_backend/platform/config"
	"labor_pipeline_backend/platform/db"
	"labor_pipeline_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	subjectComplaint = "complaint"
	scanBatchSize    = 200
)

// Repository is the persistence port for complaints.
type Repository interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
	Create(ctx context.Context, c domain.Complaint) error
	GetByID(ctx context.Context, id uuid.UUID) (domain.Complaint, error)
	Update(ctx context.Context, c *domain.Complaint) error
	ApplyBreach(ctx context.Context, c *domain.Complaint) (bool, error)
	ListOverdue(ctx context.Context, asOf time.Time, limit int) ([]domain.Complaint, error)
	InsertEscalation(ctx context.Context, e domain.Escalation) error
	ListEscalations(ctx context.Context, complaintID uuid.UUID) ([]domain.Escalation, error)
}

type Service struct {
	repo  Repository
	bus   events.Bus
	audit audit.Recorder
	cfg   config.PipelineConfig
	log   *logger.Logger
	now   func() time.Time
}

func New(repo Repository, bus events.Bus, recorder audit.Recorder, cfg config.PipelineConfig, log *logger.Logger) *Service {
	if recorder == nil {
		recorder = audit.Nop{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		repo:  repo,
		bus:   bus,
		audit: recorder,
		cfg:   cfg,
		log:   log,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) defaultSLADays() int {
	if s.cfg == nil || s.cfg.GetComplaintDefaultSLADays() < 1 {
		return domain.DefaultSLADays
	}
	return s.cfg.GetComplaintDefaultSLADays()
}

// RegisterInput describes a new complaint. A nil SLADays uses the
// configured default.
type RegisterInput struct {
	CandidateID  *uuid.UUID
	Category     string
	Description  string
	Priority     domain.Priority
	SLADays      *int
	RegisteredAt *time.Time
	AssignedTo   *uuid.UUID
	ActorID      uuid.UUID
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (domain.Complaint, error) {
	now := s.now()
	reg := domain.Registration{
		CandidateID: in.CandidateID,
		Category:    in.Category,
		Description: in.Description,
		Priority:    in.Priority,
		SLADays:     s.defaultSLADays(),
		AssignedTo:  in.AssignedTo,
	}
	if in.SLADays != nil {
		reg.SLADays = *in.SLADays
	}
	if in.RegisteredAt != nil {
		reg.RegisteredAt = in.RegisteredAt.UTC()
	}

	c, err := domain.Register(reg, now)
	if err != nil {
		return domain.Complaint{}, err
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return domain.Complaint{}, err
	}
	s.audit.Record(ctx, audit.Entry{
		ActorID:     in.ActorID,
		Action:      "complaint.registered",
		SubjectType: subjectComplaint,
		SubjectID:   c.ID,
		Description: fmt.Sprintf("%s complaint registered, due %s", c.Category, c.SLADueDate.Format(time.RFC3339)),
	})
	return c, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (domain.Complaint, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Escalations(ctx context.Context, id uuid.UUID) ([]domain.Escalation, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.ListEscalations(ctx, id)
}

// UpdateStatus moves the complaint through its workflow.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, to domain.Status, notes *string, actorID uuid.UUID) (domain.Complaint, error) {
	var (
		result  domain.Complaint
		from    domain.Status
		changed bool
	)
	err := db.RetryOnConflict(ctx, func(ctx context.Context) error {
		return s.repo.WithinTx(ctx, func(ctx context.Context) error {
			c, err := s.repo.GetByID(ctx, id)
			if err != nil {
				return err
			}
			from = c.Status
			if changed, err = c.TransitionTo(to, notes, s.now()); err != nil {
				return err
			}
			if changed {
				if err := s.repo.Update(ctx, &c); err != nil {
					return err
				}
			}
			result = c
			return nil
		})
	})
	if err != nil {
		return domain.Complaint{}, err
	}
	if changed {
		s.audit.Record(ctx, audit.Entry{
			ActorID:     actorID,
			Action:      "complaint.status.changed",
			SubjectType: subjectComplaint,
			SubjectID:   id,
			Description: fmt.Sprintf("status %s -> %s", from, to),
			Metadata:    map[string]any{"from": from, "to": to, "reopenCount": result.ReopenCount},
		})
	}
	return result, nil
}

// EscalateInput is a manual escalation.
type EscalateInput struct {
	ComplaintID uuid.UUID
	Reason      string
	EscalatedTo *uuid.UUID
	ActorID     uuid.UUID
}

// Escalate raises the escalation level by one and records the reason.
func (s *Service) Escalate(ctx context.Context, in EscalateInput) (domain.Complaint, error) {
	var (
		result domain.Complaint
		esc    domain.Escalation
	)
	var by *uuid.UUID
	if in.ActorID != audit.SystemActor {
		actor := in.ActorID
		by = &actor
	}
	err := db.RetryOnConflict(ctx, func(ctx context.Context) error {
		return s.repo.WithinTx(ctx, func(ctx context.Context) error {
			c, err := s.repo.GetByID(ctx, in.ComplaintID)
			if err != nil {
				return err
			}
			if esc, err = c.Escalate(in.Reason, in.EscalatedTo, by, s.now()); err != nil {
				return err
			}
			if err := s.repo.Update(ctx, &c); err != nil {
				return err
			}
			if err := s.repo.InsertEscalation(ctx, esc); err != nil {
				return err
			}
			result = c
			return nil
		})
	})
	if err != nil {
		return domain.Complaint{}, err
	}

	s.audit.Record(ctx, audit.Entry{
		ActorID:     in.ActorID,
		Action:      "complaint.escalated",
		SubjectType: subjectComplaint,
		SubjectID:   result.ID,
		Description: fmt.Sprintf("escalated to level %d: %s", esc.ToLevel, esc.Reason),
	})
	if s.bus != nil {
		s.bus.Publish(ctx, events.ComplaintEscalated{
			BaseEvent:       events.NewBaseEventAt(esc.CreatedAt),
			ComplaintID:     result.ID,
			CandidateID:     result.CandidateID,
			EscalationLevel: esc.ToLevel,
			EscalatedTo:     in.EscalatedTo,
			Reason:          esc.Reason,
		})
	}
	return result, nil
}

// ScanResult summarizes one breach scan.
type ScanResult struct {
	AsOf     time.Time
	Breached []uuid.UUID
	Skipped  int
}

// ScanForBreaches flags every overdue, unsettled, unbreached complaint as of
// asOf. Each complaint is handled in its own transaction; re-running with
// the same asOf changes nothing. A complaint that conflicts twice aborts the
// scan with a ConcurrencyConflict so the run can be retried.
func (s *Service) ScanForBreaches(ctx context.Context, asOf time.Time) (ScanResult, error) {
	asOf = asOf.UTC()
	result := ScanResult{AsOf: asOf}
	seen := make(map[uuid.UUID]struct{})

	for {
		batch, err := s.repo.ListOverdue(ctx, asOf, scanBatchSize)
		if err != nil {
			return result, err
		}
		fresh := 0
		for _, c := range batch {
			if _, ok := seen[c.ID]; ok {
				continue
			}
			seen[c.ID] = struct{}{}
			fresh++
			if err := ctx.Err(); err != nil {
				return result, err
			}

			breached, ok, err := s.breach(ctx, c.ID, asOf)
			if err != nil {
				return result, err
			}
			if !ok {
				result.Skipped++
				continue
			}
			result.Breached = append(result.Breached, breached.ID)
			s.afterBreach(ctx, breached, asOf)
		}
		if len(batch) < scanBatchSize || fresh == 0 {
			return result, nil
		}
	}
}

func (s *Service) breach(ctx context.Context, id uuid.UUID, asOf time.Time) (domain.Complaint, bool, error) {
	var (
		c       domain.Complaint
		applied bool
	)
	err := db.RetryOnConflict(ctx, func(ctx context.Context) error {
		return s.repo.WithinTx(ctx, func(ctx context.Context) error {
			var err error
			applied = false
			if c, err = s.repo.GetByID(ctx, id); err != nil {
				return err
			}
			esc, overdue := c.MarkBreached(asOf)
			if !overdue {
				return nil
			}
			if applied, err = s.repo.ApplyBreach(ctx, &c); err != nil {
				return err
			}
			// The row was still unbreached when read, so a miss means it moved.
			if !applied {
				return db.StaleVersion("complaint")
			}
			return s.repo.InsertEscalation(ctx, esc)
		})
	})
	return c, applied, err
}

func (s *Service) afterBreach(ctx context.Context, c domain.Complaint, asOf time.Time) {
	s.audit.Record(ctx, audit.Entry{
		ActorID:     audit.SystemActor,
		Action:      "complaint.sla.breached",
		SubjectType: subjectComplaint,
		SubjectID:   c.ID,
		Description: fmt.Sprintf("SLA due %s passed, escalated to level %d", c.SLADueDate.Format(time.RFC3339), c.Escalation.Int()),
	})
	if s.bus != nil {
		s.bus.Publish(ctx, events.ComplaintSLABreached{
			BaseEvent:       events.NewBaseEventAt(asOf),
			ComplaintID:     c.ID,
			CandidateID:     c.CandidateID,
			EscalationLevel: c.Escalation.Int(),
			SLADueDate:      c.SLADueDate,
			BreachedAt:      asOf,
		})
	}
}
