package repository

import (
	"context"
	"errors"
	"fmt"

	"labor_pipeline_backend/internal/stagegate"
	"labor_pipeline_backend/internal/training/domain"
	"labor_pipeline_backend/platform/apperr"
	"labor_pipeline_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const trainingNotFoundMsg = "training not found"

// Repository provides database operations for trainings and assessments.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new training repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithinTx runs fn in a transaction shared by every repository call made with
// the ctx it receives.
func (r *Repository) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return db.InTx(ctx, r.pool, fn)
}

const trainingColumns = `
	id, candidate_id, technical_training_status, technical_completed_at,
	soft_skills_status, soft_skills_completed_at, completion_percentage,
	completed_at, certificate_number, certificate_issued_at, version,
	created_at, updated_at`

func scanTraining(row pgx.Row) (domain.Training, error) {
	var t domain.Training
	var technical, soft string
	err := row.Scan(
		&t.ID, &t.CandidateID, &technical, &t.TechnicalCompletedAt,
		&soft, &t.SoftSkillsCompletedAt, &t.CompletionPercentage,
		&t.CompletedAt, &t.CertificateNumber, &t.CertificateIssuedAt, &t.Version,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return domain.Training{}, err
	}
	if t.TechnicalStatus, err = stagegate.ParseStageStatus(technical); err != nil {
		return domain.Training{}, fmt.Errorf("training %s: %w", t.ID, err)
	}
	if t.SoftSkillsStatus, err = stagegate.ParseStageStatus(soft); err != nil {
		return domain.Training{}, fmt.Errorf("training %s: %w", t.ID, err)
	}
	return t, nil
}

func (r *Repository) Create(ctx context.Context, t domain.Training) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO trainings (
			id, candidate_id, technical_training_status, soft_skills_status,
			completion_percentage, version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, t.ID, t.CandidateID, t.TechnicalStatus, t.SoftSkillsStatus,
		t.CompletionPercentage, t.Version, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperr.Conflict("candidate already has a training record")
		}
		return fmt.Errorf("insert training: %w", err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (domain.Training, error) {
	t, err := scanTraining(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+trainingColumns+` FROM trainings WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Training{}, apperr.NotFound(trainingNotFoundMsg)
	}
	if err != nil {
		return domain.Training{}, fmt.Errorf("get training: %w", err)
	}
	return t, nil
}

func (r *Repository) GetByCandidateID(ctx context.Context, candidateID uuid.UUID) (domain.Training, error) {
	t, err := scanTraining(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+trainingColumns+` FROM trainings WHERE candidate_id = $1`, candidateID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Training{}, apperr.NotFound(trainingNotFoundMsg)
	}
	if err != nil {
		return domain.Training{}, fmt.Errorf("get training by candidate: %w", err)
	}
	return t, nil
}

// Update writes t if its version still matches and bumps t.Version.
func (r *Repository) Update(ctx context.Context, t *domain.Training) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE trainings SET
			technical_training_status = $3,
			technical_completed_at = $4,
			soft_skills_status = $5,
			soft_skills_completed_at = $6,
			completion_percentage = $7,
			completed_at = $8,
			certificate_number = $9,
			certificate_issued_at = $10,
			version = version + 1,
			updated_at = $11
		WHERE id = $1 AND version = $2
	`, t.ID, t.Version, t.TechnicalStatus, t.TechnicalCompletedAt,
		t.SoftSkillsStatus, t.SoftSkillsCompletedAt, t.CompletionPercentage,
		t.CompletedAt, t.CertificateNumber, t.CertificateIssuedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update training: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return db.StaleVersion("training")
	}
	t.Version++
	return nil
}

func (r *Repository) InsertAssessment(ctx context.Context, a domain.Assessment) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO training_assessments (
			id, training_id, candidate_id, assessment_type, training_type,
			score, max_score, percentage, grade, result, evidence_path,
			assessed_by, assessed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, a.ID, a.TrainingID, a.CandidateID, a.AssessmentType, a.TrainingType,
		a.Score, a.MaxScore, a.Percentage, a.Grade, a.Result, a.EvidencePath,
		a.AssessedBy, a.AssessedAt)
	if err != nil {
		return fmt.Errorf("insert assessment: %w", err)
	}
	return nil
}

func (r *Repository) ListAssessments(ctx context.Context, trainingID uuid.UUID) ([]domain.Assessment, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT id, training_id, candidate_id, assessment_type, training_type,
			score, max_score, percentage, grade, result, evidence_path,
			assessed_by, assessed_at
		FROM training_assessments
		WHERE training_id = $1
		ORDER BY assessed_at ASC
	`, trainingID)
	if err != nil {
		return nil, fmt.Errorf("list assessments: %w", err)
	}
	defer rows.Close()

	var out []domain.Assessment
	for rows.Next() {
		var a domain.Assessment
		if err := rows.Scan(
			&a.ID, &a.TrainingID, &a.CandidateID, &a.AssessmentType, &a.TrainingType,
			&a.Score, &a.MaxScore, &a.Percentage, &a.Grade, &a.Result, &a.EvidencePath,
			&a.AssessedBy, &a.AssessedAt,
		); err != nil {
			return nil, fmt.Errorf("scan assessment: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assessments: %w", err)
	}
	return out, nil
}
