// Package service implements the assessment evaluator and the training
// progress tracker on top of the pure rules in training/domain.
package service

import (
	"context"
	"time"

	"labor_pipeline_backend/internal/audit"
	"labor_pipeline_backend/internal/events"
	"labor_pipeline_backend/internal/training/domain"
	"labor_pipeline_backend/platform/config"
	"labor_pipeline_backend/platform/db"
	"labor_pipeline_backend/platform/logger"

	"github.com/google/uuid"
)

const subjectTraining = "training"

// Repository is the persistence port for trainings.
type Repository interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
	Create(ctx context.Context, t domain.Training) error
	GetByID(ctx context.Context, id uuid.UUID) (domain.Training, error)
	GetByCandidateID(ctx context.Context, candidateID uuid.UUID) (domain.Training, error)
	Update(ctx context.Context, t *domain.Training) error
	InsertAssessment(ctx context.Context, a domain.Assessment) error
	ListAssessments(ctx context.Context, trainingID uuid.UUID) ([]domain.Assessment, error)
}

// Service coordinates training state changes.
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

func (s *Service) passThreshold() float64 {
	if s.cfg == nil || s.cfg.GetAssessmentPassThreshold() <= 0 {
		return domain.DefaultPassThreshold
	}
	return s.cfg.GetAssessmentPassThreshold()
}

// Create opens the training record for a candidate.
func (s *Service) Create(ctx context.Context, candidateID, actorID uuid.UUID) (domain.Training, error) {
	t := domain.NewTraining(candidateID, s.now())
	t.Recompute(t.CreatedAt)
	if err := s.repo.Create(ctx, t); err != nil {
		return domain.Training{}, err
	}
	s.audit.Record(ctx, audit.Entry{
		ActorID:     actorID,
		Action:      "training.created",
		SubjectType: subjectTraining,
		SubjectID:   t.ID,
		Description: "training opened for candidate " + candidateID.String(),
	})
	return t, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (domain.Training, error) {
	return s.repo.GetByID(ctx, id)
}

// RecordAssessmentInput carries one scored attempt.
type RecordAssessmentInput struct {
	TrainingID     uuid.UUID
	AssessmentType domain.AssessmentType
	TrainingType   domain.TrainingType
	Score          float64
	MaxScore       float64
	EvidencePath   *string
	ActorID        uuid.UUID
}

// RecordAssessment scores the attempt, stores it and starts the covered
// tracks, all in one transaction. Validation happens before any write.
func (s *Service) RecordAssessment(ctx context.Context, in RecordAssessmentInput) (domain.Assessment, error) {
	eval, err := domain.Evaluate(in.Score, in.MaxScore, s.passThreshold())
	if err != nil {
		return domain.Assessment{}, err
	}

	assessment := domain.Assessment{
		ID:             uuid.New(),
		TrainingID:     in.TrainingID,
		AssessmentType: in.AssessmentType,
		TrainingType:   in.TrainingType,
		Score:          in.Score,
		MaxScore:       in.MaxScore,
		Percentage:     eval.Percentage,
		Grade:          eval.Grade,
		Result:         eval.Result,
		EvidencePath:   in.EvidencePath,
		AssessedAt:     s.now(),
	}
	if in.ActorID != audit.SystemActor {
		actor := in.ActorID
		assessment.AssessedBy = &actor
	}

	err = db.RetryOnConflict(ctx, func(ctx context.Context) error {
		return s.repo.WithinTx(ctx, func(ctx context.Context) error {
			t, err := s.repo.GetByID(ctx, in.TrainingID)
			if err != nil {
				return err
			}
			assessment.CandidateID = t.CandidateID
			if err := s.repo.InsertAssessment(ctx, assessment); err != nil {
				return err
			}
			if !t.ObserveAssessment(in.TrainingType) {
				return nil
			}
			t.Recompute(assessment.AssessedAt)
			t.UpdatedAt = assessment.AssessedAt
			return s.repo.Update(ctx, &t)
		})
	})
	if err != nil {
		return domain.Assessment{}, err
	}

	s.audit.Record(ctx, audit.Entry{
		ActorID:     in.ActorID,
		Action:      "training.assessment.recorded",
		SubjectType: subjectTraining,
		SubjectID:   in.TrainingID,
		Description: string(in.AssessmentType) + " " + string(in.TrainingType) + " assessment: " + string(eval.Grade) + " " + string(eval.Result),
		Metadata: map[string]any{
			"assessmentId": assessment.ID,
			"score":        in.Score,
			"maxScore":     in.MaxScore,
			"percentage":   eval.Percentage,
		},
	})
	return assessment, nil
}

// EvaluateTrack reports a track's status and whether it can be completed.
func (s *Service) EvaluateTrack(ctx context.Context, trainingID uuid.UUID, track domain.Track) (domain.TrackEvaluation, error) {
	t, err := s.repo.GetByID(ctx, trainingID)
	if err != nil {
		return domain.TrackEvaluation{}, err
	}
	assessments, err := s.repo.ListAssessments(ctx, trainingID)
	if err != nil {
		return domain.TrackEvaluation{}, err
	}
	return t.EvaluateTrack(track, assessments), nil
}

// CompleteTrack marks a track completed when a passing final assessment
// exists. Completing an already completed track returns the current state.
func (s *Service) CompleteTrack(ctx context.Context, trainingID uuid.UUID, track domain.Track, actorID uuid.UUID) (domain.Training, error) {
	var (
		result         domain.Training
		changed        bool
		becameComplete bool
	)
	err := db.RetryOnConflict(ctx, func(ctx context.Context) error {
		return s.repo.WithinTx(ctx, func(ctx context.Context) error {
			t, err := s.repo.GetByID(ctx, trainingID)
			if err != nil {
				return err
			}
			assessments, err := s.repo.ListAssessments(ctx, trainingID)
			if err != nil {
				return err
			}
			now := s.now()
			changed, err = t.CompleteTrack(track, assessments, now)
			if err != nil {
				return err
			}
			if !changed {
				result = t
				return nil
			}
			becameComplete = t.Recompute(now)
			t.UpdatedAt = now
			if err := s.repo.Update(ctx, &t); err != nil {
				return err
			}
			result = t
			return nil
		})
	})
	if err != nil {
		return domain.Training{}, err
	}
	if !changed {
		return result, nil
	}

	s.audit.Record(ctx, audit.Entry{
		ActorID:     actorID,
		Action:      "training.track.completed",
		SubjectType: subjectTraining,
		SubjectID:   trainingID,
		Description: string(track) + " track completed",
	})
	if becameComplete {
		s.audit.Record(ctx, audit.Entry{
			ActorID:     actorID,
			Action:      "training.completed",
			SubjectType: subjectTraining,
			SubjectID:   trainingID,
			Description: "both training tracks completed",
		})
		s.publishSync(ctx, events.TrainingCompleted{
			BaseEvent:   events.NewBaseEventAt(*result.CompletedAt),
			TrainingID:  result.ID,
			CandidateID: result.CandidateID,
			CompletedAt: *result.CompletedAt,
		}, result.ID)
	}
	return result, nil
}

// IsEligibleForCertificate reports whether the training is complete.
func (s *Service) IsEligibleForCertificate(ctx context.Context, trainingID uuid.UUID) (bool, error) {
	t, err := s.repo.GetByID(ctx, trainingID)
	if err != nil {
		return false, err
	}
	return t.IsEligibleForCertificate(), nil
}

// IssueCertificate assigns the certificate number once. Later calls return
// the same training unchanged.
func (s *Service) IssueCertificate(ctx context.Context, trainingID, actorID uuid.UUID) (domain.Training, error) {
	var (
		result domain.Training
		issued bool
	)
	err := db.RetryOnConflict(ctx, func(ctx context.Context) error {
		return s.repo.WithinTx(ctx, func(ctx context.Context) error {
			t, err := s.repo.GetByID(ctx, trainingID)
			if err != nil {
				return err
			}
			now := s.now()
			if issued, err = t.IssueCertificate(now); err != nil {
				return err
			}
			if issued {
				t.UpdatedAt = now
				if err := s.repo.Update(ctx, &t); err != nil {
					return err
				}
			}
			result = t
			return nil
		})
	})
	if err != nil {
		return domain.Training{}, err
	}
	if issued {
		s.audit.Record(ctx, audit.Entry{
			ActorID:     actorID,
			Action:      "training.certificate.issued",
			SubjectType: subjectTraining,
			SubjectID:   trainingID,
			Description: "certificate " + *result.CertificateNumber + " issued",
		})
		s.publish(ctx, events.CertificateIssued{
			BaseEvent:         events.NewBaseEventAt(*result.CertificateIssuedAt),
			TrainingID:        result.ID,
			CandidateID:       result.CandidateID,
			CertificateNumber: *result.CertificateNumber,
		})
	}
	return result, nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.bus != nil {
		s.bus.Publish(ctx, event)
	}
}

func (s *Service) publishSync(ctx context.Context, event events.Event, subjectID uuid.UUID) {
	if s.bus == nil {
		return
	}
	if err := s.bus.PublishSync(ctx, event); err != nil {
		s.log.WithContext(ctx).SideEffectFailed(event.EventName(), subjectTraining, subjectID.String(), err)
	}
}

// ForCandidate returns the training record of a candidate.
func (s *Service) ForCandidate(ctx context.Context, candidateID uuid.UUID) (domain.Training, error) {
	return s.repo.GetByCandidateID(ctx, candidateID)
}
