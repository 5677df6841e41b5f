// Package service records remittances and runs the post-departure
// compliance scan.
package service

import (
	"context"
	"fmt"
	"time"

	"labor_pipeline_backend/internal/audit"
	"labor_pipeline_backend/internal/events"
	"labor_pipeline_backend/internal/remittances/domain"
	"labor_pipeline_backend/platform/config"
	"labor_pipeline_backend/platform/logger"
	"labor_pipeline_backend/platform/sanitize"

	"github.com/google/uuid"
)

const (
	subjectRemittance = "remittance"
	subjectAlert      = "remittance_alert"
	maxNotesLength    = 1000
)

// Repository is the persistence port for remittances and alerts.
type Repository interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
	InsertRemittance(ctx context.Context, rem domain.Remittance) error
	ListSubjects(ctx context.Context) ([]domain.Subject, error)
	UpsertOpenAlert(ctx context.Context, a domain.Alert) (domain.Alert, domain.UpsertOutcome, error)
	GetAlert(ctx context.Context, id uuid.UUID) (domain.Alert, error)
	ListAlerts(ctx context.Context, candidateID uuid.UUID, includeResolved bool) ([]domain.Alert, error)
	ResolveAlert(ctx context.Context, a domain.Alert) (bool, error)
	ResolveOpenAlerts(ctx context.Context, candidateID uuid.UUID, alertType domain.AlertType, remittanceID uuid.UUID, at time.Time) (int, error)
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

func (s *Service) windowDays() int {
	if s.cfg == nil || s.cfg.GetRemittanceComplianceDays() < 1 {
		return domain.DefaultComplianceDays
	}
	return s.cfg.GetRemittanceComplianceDays()
}

type RecordInput struct {
	CandidateID   uuid.UUID
	Amount        float64
	Currency      string
	TransferredAt time.Time
	Reference     string
	ActorID       uuid.UUID
}

// RecordResult is the stored remittance and the number of open
// no-remittance alerts it cleared.
type RecordResult struct {
	Remittance     domain.Remittance
	ResolvedAlerts int
}

// Record stores a remittance. Open no-remittance alerts for the candidate
// are resolved in the same transaction.
func (s *Service) Record(ctx context.Context, in RecordInput) (RecordResult, error) {
	now := s.now()
	rem, err := domain.NewRemittance(in.CandidateID, in.Amount, in.Currency, in.TransferredAt, sanitize.Text(in.Reference), now)
	if err != nil {
		return RecordResult{}, err
	}
	if in.ActorID != audit.SystemActor {
		actor := in.ActorID
		rem.RecordedBy = &actor
	}

	var resolved int
	err = s.repo.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.repo.InsertRemittance(ctx, rem); err != nil {
			return err
		}
		var err error
		resolved, err = s.repo.ResolveOpenAlerts(ctx, rem.CandidateID, domain.AlertNoRemittance, rem.ID, now)
		return err
	})
	if err != nil {
		return RecordResult{}, err
	}

	s.audit.Record(ctx, audit.Entry{
		ActorID:     in.ActorID,
		Action:      "remittance.recorded",
		SubjectType: subjectRemittance,
		SubjectID:   rem.ID,
		Description: fmt.Sprintf("%.2f %s transferred %s", rem.Amount, rem.Currency, rem.TransferredAt.Format("2006-01-02")),
		Metadata:    map[string]any{"candidateId": rem.CandidateID, "resolvedAlerts": resolved},
	})
	return RecordResult{Remittance: rem, ResolvedAlerts: resolved}, nil
}

// ScanResult summarizes one compliance scan.
type ScanResult struct {
	AsOf    time.Time
	Checked int
	Created []uuid.UUID
	Raised  []uuid.UUID
}

// ScanCompliance opens a no-remittance alert for every departed worker past
// the compliance window as of asOf. An open alert is never duplicated; its
// severity only moves up. Re-running with the same asOf changes nothing.
func (s *Service) ScanCompliance(ctx context.Context, asOf time.Time) (ScanResult, error) {
	asOf = asOf.UTC()
	result := ScanResult{AsOf: asOf}
	window := s.windowDays()

	subjects, err := s.repo.ListSubjects(ctx)
	if err != nil {
		return result, err
	}
	for _, subj := range subjects {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Checked++

		finding, due := domain.Assess(subj, asOf, window)
		if !due {
			continue
		}
		alert, outcome, err := s.repo.UpsertOpenAlert(ctx, domain.NewAlert(subj.CandidateID, finding, asOf))
		if err != nil {
			return result, err
		}
		switch outcome {
		case domain.UpsertCreated:
			result.Created = append(result.Created, alert.ID)
		case domain.UpsertRaised:
			result.Raised = append(result.Raised, alert.ID)
		default:
			continue
		}
		s.afterAlert(ctx, alert, outcome, asOf)
	}
	return result, nil
}

func (s *Service) afterAlert(ctx context.Context, a domain.Alert, outcome domain.UpsertOutcome, asOf time.Time) {
	action := "remittance.alert.created"
	if outcome == domain.UpsertRaised {
		action = "remittance.alert.raised"
	}
	s.audit.Record(ctx, audit.Entry{
		ActorID:     audit.SystemActor,
		Action:      action,
		SubjectType: subjectAlert,
		SubjectID:   a.ID,
		Description: a.Message,
		Metadata:    map[string]any{"candidateId": a.CandidateID, "severity": a.Severity},
	})
	if s.bus != nil {
		s.bus.Publish(ctx, events.RemittanceAlertCreated{
			BaseEvent:   events.NewBaseEventAt(asOf),
			AlertID:     a.ID,
			CandidateID: a.CandidateID,
			AlertType:   string(a.AlertType),
			Severity:    string(a.Severity),
			Message:     a.Message,
		})
	}
}

func (s *Service) GetAlert(ctx context.Context, id uuid.UUID) (domain.Alert, error) {
	return s.repo.GetAlert(ctx, id)
}

func (s *Service) ListAlerts(ctx context.Context, candidateID uuid.UUID, includeResolved bool) ([]domain.Alert, error) {
	return s.repo.ListAlerts(ctx, candidateID, includeResolved)
}

// ResolveAlert closes an alert. Resolving an already resolved alert returns
// it unchanged.
func (s *Service) ResolveAlert(ctx context.Context, id uuid.UUID, notes *string, actorID uuid.UUID) (domain.Alert, error) {
	a, err := s.repo.GetAlert(ctx, id)
	if err != nil {
		return domain.Alert{}, err
	}
	if notes != nil {
		cleaned := sanitize.Truncate(sanitize.Text(*notes), maxNotesLength)
		notes = &cleaned
	}
	by := &actorID
	if actorID == audit.SystemActor {
		by = nil
	}
	if !a.Resolve(notes, by, s.now()) {
		return a, nil
	}

	changed, err := s.repo.ResolveAlert(ctx, a)
	if err != nil {
		return domain.Alert{}, err
	}
	if !changed {
		// Resolved concurrently; report the stored resolution.
		return s.repo.GetAlert(ctx, id)
	}
	s.audit.Record(ctx, audit.Entry{
		ActorID:     actorID,
		Action:      "remittance.alert.resolved",
		SubjectType: subjectAlert,
		SubjectID:   a.ID,
		Description: "alert resolved",
		Metadata:    map[string]any{"candidateId": a.CandidateID},
	})
	return a, nil
}
