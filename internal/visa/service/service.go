// Package service implements the visa stage tracker.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"labor_pipeline_backend/internal/audit"
	"labor_pipeline_backend/internal/events"
	"labor_pipeline_backend/internal/visa/domain"
	"labor_pipeline_backend/platform/apperr"
	"labor_pipeline_backend/platform/db"
	"labor_pipeline_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	subjectVisa          = "visa_process"
	ActionStageOverride  = "visa.stage.override"
	actionStageRecorded  = "visa.stage.recorded"
	actionVisaIssued     = "visa.issued"
	actionVisaRefused    = "visa.refused"
	actionProcessOpened  = "visa.opened"
	maxOverrideReasonLen = 1000
)

// Repository is the persistence port for visa processes.
type Repository interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
	Create(ctx context.Context, v domain.VisaProcess) error
	GetByID(ctx context.Context, id uuid.UUID) (domain.VisaProcess, error)
	GetLatestByCandidateID(ctx context.Context, candidateID uuid.UUID) (domain.VisaProcess, error)
	Update(ctx context.Context, v *domain.VisaProcess) error
}

type Service struct {
	repo  Repository
	bus   events.Bus
	audit audit.Recorder
	log   *logger.Logger
	now   func() time.Time
}

func New(repo Repository, bus events.Bus, recorder audit.Recorder, log *logger.Logger) *Service {
	if recorder == nil {
		recorder = audit.Nop{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{repo: repo, bus: bus, audit: recorder, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// Open starts a visa process. A candidate may hold a new process only when
// the previous one was refused.
func (s *Service) Open(ctx context.Context, candidateID, actorID uuid.UUID) (domain.VisaProcess, error) {
	var v domain.VisaProcess
	err := s.repo.WithinTx(ctx, func(ctx context.Context) error {
		latest, err := s.repo.GetLatestByCandidateID(ctx, candidateID)
		switch {
		case err == nil && latest.OverallStatus != domain.OverallRefused:
			return apperr.Conflict("candidate already has an active visa process")
		case err != nil && !apperr.Is(err, apperr.KindNotFound):
			return err
		}
		v = domain.NewVisaProcess(candidateID, s.now())
		return s.repo.Create(ctx, v)
	})
	if err != nil {
		return domain.VisaProcess{}, err
	}
	s.audit.Record(ctx, audit.Entry{
		ActorID:     actorID,
		Action:      actionProcessOpened,
		SubjectType: subjectVisa,
		SubjectID:   v.ID,
		Description: "visa process opened for candidate " + candidateID.String(),
	})
	return v, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (domain.VisaProcess, error) {
	return s.repo.GetByID(ctx, id)
}

// ForCandidate returns the candidate's latest visa process.
func (s *Service) ForCandidate(ctx context.Context, candidateID uuid.UUID) (domain.VisaProcess, error) {
	return s.repo.GetLatestByCandidateID(ctx, candidateID)
}

// RecordStageInput is one stage outcome submitted by staff.
type RecordStageInput struct {
	VisaProcessID uuid.UUID
	Outcome       domain.Outcome
	ActorID       uuid.UUID
}

// RecordStageOutcome stores the outcome and recomputes the overall status.
func (s *Service) RecordStageOutcome(ctx context.Context, in RecordStageInput) (domain.VisaProcess, error) {
	v, transition, err := s.mutate(ctx, in.VisaProcessID, func(v *domain.VisaProcess, now time.Time) (domain.Transition, error) {
		return v.RecordOutcome(in.Outcome, now)
	})
	if err != nil {
		return domain.VisaProcess{}, err
	}
	s.audit.Record(ctx, audit.Entry{
		ActorID:     in.ActorID,
		Action:      actionStageRecorded,
		SubjectType: subjectVisa,
		SubjectID:   v.ID,
		Description: fmt.Sprintf("%s stage set to %s", in.Outcome.Stage, in.Outcome.Status),
	})
	s.afterTransition(ctx, v, transition, in.ActorID)
	return v, nil
}

// OverrideStageInput is an administrative correction.
type OverrideStageInput struct {
	VisaProcessID uuid.UUID
	Outcome       domain.Outcome
	Reason        string
	ActorID       uuid.UUID
}

// AdminOverrideStage sets a stage outcome even on a terminal process. The
// override is always audited with its reason.
func (s *Service) AdminOverrideStage(ctx context.Context, in OverrideStageInput) (domain.VisaProcess, error) {
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return domain.VisaProcess{}, apperr.Validation("an override reason is required")
	}
	if len(reason) > maxOverrideReasonLen {
		return domain.VisaProcess{}, apperr.Validationf("override reason exceeds %d characters", maxOverrideReasonLen)
	}

	var previous domain.StageStatus
	v, transition, err := s.mutate(ctx, in.VisaProcessID, func(v *domain.VisaProcess, now time.Time) (domain.Transition, error) {
		previous = v.StageStatus(in.Outcome.Stage)
		return v.Override(in.Outcome, now)
	})
	if err != nil {
		return domain.VisaProcess{}, err
	}
	s.audit.Record(ctx, audit.Entry{
		ActorID:     in.ActorID,
		Action:      ActionStageOverride,
		SubjectType: subjectVisa,
		SubjectID:   v.ID,
		Description: fmt.Sprintf("%s stage overridden from %s to %s: %s", in.Outcome.Stage, previous, in.Outcome.Status, reason),
		Metadata: map[string]any{
			"stage":         in.Outcome.Stage,
			"from":          previous,
			"to":            in.Outcome.Status,
			"reason":        reason,
			"overallStatus": v.OverallStatus,
		},
	})
	s.afterTransition(ctx, v, transition, in.ActorID)
	return v, nil
}

func (s *Service) mutate(
	ctx context.Context,
	id uuid.UUID,
	apply func(v *domain.VisaProcess, now time.Time) (domain.Transition, error),
) (domain.VisaProcess, domain.Transition, error) {
	var (
		result     domain.VisaProcess
		transition domain.Transition
	)
	err := db.RetryOnConflict(ctx, func(ctx context.Context) error {
		return s.repo.WithinTx(ctx, func(ctx context.Context) error {
			v, err := s.repo.GetByID(ctx, id)
			if err != nil {
				return err
			}
			if transition, err = apply(&v, s.now()); err != nil {
				return err
			}
			if err := s.repo.Update(ctx, &v); err != nil {
				return err
			}
			result = v
			return nil
		})
	})
	return result, transition, err
}

func (s *Service) afterTransition(ctx context.Context, v domain.VisaProcess, transition domain.Transition, actorID uuid.UUID) {
	switch transition {
	case domain.TransitionIssued:
		s.audit.Record(ctx, audit.Entry{
			ActorID:     actorID,
			Action:      actionVisaIssued,
			SubjectType: subjectVisa,
			SubjectID:   v.ID,
			Description: "all visa stages completed",
		})
		if s.bus == nil {
			return
		}
		err := s.bus.PublishSync(ctx, events.VisaIssued{
			BaseEvent:     events.NewBaseEventAt(*v.IssuedAt),
			VisaProcessID: v.ID,
			CandidateID:   v.CandidateID,
			IssuedAt:      *v.IssuedAt,
		})
		if err != nil {
			s.log.WithContext(ctx).SideEffectFailed("visa.issued", subjectVisa, v.ID.String(), err)
		}
	case domain.TransitionRefused:
		stage, _ := v.RefusedStage()
		s.audit.Record(ctx, audit.Entry{
			ActorID:     actorID,
			Action:      actionVisaRefused,
			SubjectType: subjectVisa,
			SubjectID:   v.ID,
			Description: string(stage) + " stage refused",
		})
		if s.bus != nil {
			s.bus.Publish(ctx, events.VisaRefused{
				BaseEvent:     events.NewBaseEventAt(*v.RefusedAt),
				VisaProcessID: v.ID,
				CandidateID:   v.CandidateID,
				Stage:         string(stage),
				RefusedAt:     *v.RefusedAt,
			})
		}
	}
}
