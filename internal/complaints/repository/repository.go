package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"labor_pipeline_backend/internal/complaints/domain"
	"labor_pipeline_backend/internal/stagegate"
	"labor_pipeline_backend/platform/apperr"
	"labor_pipeline_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const complaintNotFoundMsg = "complaint not found"

// Repository provides database operations for complaints.
type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return db.InTx(ctx, r.pool, fn)
}

const selectColumns = `id, candidate_id, category, description, status, priority, registered_at,
	sla_days, sla_due_date, sla_breached, sla_breached_at, escalation_level, assigned_to,
	escalated_to, resolution_notes, resolved_at, closed_at, reopen_count, version,
	created_at, updated_at`

func scanComplaint(row pgx.Row) (domain.Complaint, error) {
	var (
		c                domain.Complaint
		status, priority string
		level            int
	)
	err := row.Scan(
		&c.ID, &c.CandidateID, &c.Category, &c.Description, &status, &priority, &c.RegisteredAt,
		&c.SLADays, &c.SLADueDate, &c.SLABreached, &c.SLABreachedAt, &level, &c.AssignedTo,
		&c.EscalatedTo, &c.ResolutionNotes, &c.ResolvedAt, &c.ClosedAt, &c.ReopenCount, &c.Version,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return domain.Complaint{}, err
	}
	if c.Status, err = domain.ParseStatus(status); err != nil {
		return domain.Complaint{}, fmt.Errorf("complaint %s: %w", c.ID, err)
	}
	if c.Priority, err = domain.ParsePriority(priority); err != nil {
		return domain.Complaint{}, fmt.Errorf("complaint %s: %w", c.ID, err)
	}
	c.Escalation = stagegate.LevelOf(level)
	return c, nil
}

func (r *Repository) Create(ctx context.Context, c domain.Complaint) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO complaints (`+selectColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`,
		c.ID, c.CandidateID, c.Category, c.Description, c.Status, c.Priority, c.RegisteredAt,
		c.SLADays, c.SLADueDate, c.SLABreached, c.SLABreachedAt, c.Escalation.Int(), c.AssignedTo,
		c.EscalatedTo, c.ResolutionNotes, c.ResolvedAt, c.ClosedAt, c.ReopenCount, c.Version,
		c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert complaint: %w", err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (domain.Complaint, error) {
	c, err := scanComplaint(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+selectColumns+` FROM complaints WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Complaint{}, apperr.NotFound(complaintNotFoundMsg)
	}
	if err != nil {
		return domain.Complaint{}, fmt.Errorf("get complaint: %w", err)
	}
	return c, nil
}

// Update writes c if its version still matches. The escalation level is
// written with GREATEST so a stale writer can never lower it.
func (r *Repository) Update(ctx context.Context, c *domain.Complaint) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE complaints SET
			status = $3,
			priority = $4,
			escalation_level = GREATEST(escalation_level, $5),
			assigned_to = $6,
			escalated_to = $7,
			resolution_notes = $8,
			resolved_at = $9,
			closed_at = $10,
			reopen_count = $11,
			updated_at = $12,
			version = version + 1
		WHERE id = $1 AND version = $2`,
		c.ID, c.Version, c.Status, c.Priority, c.Escalation.Int(), c.AssignedTo,
		c.EscalatedTo, c.ResolutionNotes, c.ResolvedAt, c.ClosedAt, c.ReopenCount, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update complaint: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return db.StaleVersion("complaint")
	}
	c.Version++
	return nil
}

// ApplyBreach persists a breach computed by the domain. The update only
// lands while the row is still unbreached at the same version; applied is
// false when another writer got there first.
func (r *Repository) ApplyBreach(ctx context.Context, c *domain.Complaint) (applied bool, err error) {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE complaints SET
			sla_breached = true,
			sla_breached_at = $3,
			escalation_level = GREATEST(escalation_level, $4),
			updated_at = $5,
			version = version + 1
		WHERE id = $1 AND version = $2 AND sla_breached = false`,
		c.ID, c.Version, c.SLABreachedAt, c.Escalation.Int(), c.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("apply sla breach: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}
	c.Version++
	return true, nil
}

// ListOverdue returns up to limit complaints the breach scan should visit,
// oldest due date first.
func (r *Repository) ListOverdue(ctx context.Context, asOf time.Time, limit int) ([]domain.Complaint, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT `+selectColumns+`
		FROM complaints
		WHERE status NOT IN ('resolved', 'closed')
			AND sla_breached = false
			AND sla_due_date < $1
		ORDER BY sla_due_date ASC
		LIMIT $2`, asOf, limit)
	if err != nil {
		return nil, fmt.Errorf("list overdue complaints: %w", err)
	}
	defer rows.Close()

	var out []domain.Complaint
	for rows.Next() {
		c, err := scanComplaint(rows)
		if err != nil {
			return nil, fmt.Errorf("scan overdue complaint: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate overdue complaints: %w", err)
	}
	return out, nil
}

func (r *Repository) InsertEscalation(ctx context.Context, e domain.Escalation) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO complaint_escalations
			(id, complaint_id, from_level, to_level, reason, automatic, escalated_to, escalated_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.ID, e.ComplaintID, e.FromLevel, e.ToLevel, e.Reason, e.Automatic, e.EscalatedTo, e.EscalatedBy, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert complaint escalation: %w", err)
	}
	return nil
}

func (r *Repository) ListEscalations(ctx context.Context, complaintID uuid.UUID) ([]domain.Escalation, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT id, complaint_id, from_level, to_level, reason, automatic, escalated_to, escalated_by, created_at
		FROM complaint_escalations
		WHERE complaint_id = $1
		ORDER BY created_at ASC, to_level ASC`, complaintID)
	if err != nil {
		return nil, fmt.Errorf("list complaint escalations: %w", err)
	}
	defer rows.Close()

	var out []domain.Escalation
	for rows.Next() {
		var e domain.Escalation
		if err := rows.Scan(&e.ID, &e.ComplaintID, &e.FromLevel, &e.ToLevel, &e.Reason, &e.Automatic, &e.EscalatedTo, &e.EscalatedBy, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan complaint escalation: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
