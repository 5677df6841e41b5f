package repository

import (
	"context"
	"errors"
	"fmt"

	"labor_pipeline_backend/internal/candidates/domain"
	"labor_pipeline_backend/platform/apperr"
	"labor_pipeline_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const candidateNotFoundMsg = "candidate not found"

// Repository provides database operations for candidates.
type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return db.InTx(ctx, r.pool, fn)
}

const selectColumns = `id, full_name, cnic, phone, trade, status, rejection_reason,
	status_changed_at, version, created_at, updated_at`

func scanCandidate(row pgx.Row) (domain.Candidate, error) {
	var (
		c      domain.Candidate
		status string
	)
	err := row.Scan(&c.ID, &c.FullName, &c.CNIC, &c.Phone, &c.Trade, &status, &c.RejectionReason,
		&c.StatusChangedAt, &c.Version, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return domain.Candidate{}, err
	}
	if c.Status, err = domain.ParseStatus(status); err != nil {
		return domain.Candidate{}, fmt.Errorf("candidate %s: %w", c.ID, err)
	}
	return c, nil
}

func (r *Repository) Create(ctx context.Context, c domain.Candidate) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO candidates (`+selectColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		c.ID, c.FullName, c.CNIC, c.Phone, c.Trade, c.Status, c.RejectionReason,
		c.StatusChangedAt, c.Version, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperr.Conflict("a candidate with this cnic already exists")
		}
		return fmt.Errorf("insert candidate: %w", err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (domain.Candidate, error) {
	c, err := scanCandidate(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+selectColumns+` FROM candidates WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Candidate{}, apperr.NotFound(candidateNotFoundMsg)
	}
	if err != nil {
		return domain.Candidate{}, fmt.Errorf("get candidate: %w", err)
	}
	return c, nil
}

// UpdateStatus writes the status columns if the version still matches.
func (r *Repository) UpdateStatus(ctx context.Context, c *domain.Candidate) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE candidates SET
			status = $3,
			rejection_reason = $4,
			status_changed_at = $5,
			updated_at = $6,
			version = version + 1
		WHERE id = $1 AND version = $2`,
		c.ID, c.Version, c.Status, c.RejectionReason, c.StatusChangedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update candidate status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return db.StaleVersion("candidate")
	}
	c.Version++
	return nil
}

// InsertHistory appends one row to the candidate status log.
func (r *Repository) InsertHistory(ctx context.Context, h domain.HistoryEntry) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO candidate_status_history (id, candidate_id, from_status, to_status, source, actor_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		h.ID, h.CandidateID, h.From, h.To, h.Source, h.ActorID, h.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert candidate status history: %w", err)
	}
	return nil
}
