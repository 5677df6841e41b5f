package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"labor_pipeline_backend/internal/remittances/domain"
	"labor_pipeline_backend/platform/apperr"
	"labor_pipeline_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const alertNotFoundMsg = "remittance alert not found"

// Repository provides database operations for remittances and their
// compliance alerts.
type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return db.InTx(ctx, r.pool, fn)
}

func (r *Repository) InsertRemittance(ctx context.Context, rem domain.Remittance) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO remittances (id, candidate_id, amount, currency, transferred_at, reference, recorded_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rem.ID, rem.CandidateID, rem.Amount, rem.Currency, rem.TransferredAt, rem.Reference, rem.RecordedBy, rem.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert remittance: %w", err)
	}
	return nil
}

// ListSubjects returns every departed worker with the time of their latest
// remittance, for the compliance scan.
func (r *Repository) ListSubjects(ctx context.Context) ([]domain.Subject, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT d.candidate_id, d.departed_at, MAX(rm.transferred_at)
		FROM departures d
		LEFT JOIN remittances rm ON rm.candidate_id = d.candidate_id
		WHERE d.final_departure_status = 'departed' AND d.departed_at IS NOT NULL
		GROUP BY d.candidate_id, d.departed_at
		ORDER BY d.departed_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list compliance subjects: %w", err)
	}
	defer rows.Close()

	var out []domain.Subject
	for rows.Next() {
		var s domain.Subject
		if err := rows.Scan(&s.CandidateID, &s.DepartedAt, &s.LastRemittanceAt); err != nil {
			return nil, fmt.Errorf("scan compliance subject: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate compliance subjects: %w", err)
	}
	return out, nil
}

const severityRank = `CASE %s WHEN 'critical' THEN 3 WHEN 'warning' THEN 2 WHEN 'info' THEN 1 ELSE 0 END`

// UpsertOpenAlert opens the alert, or raises the severity of the open alert
// of the same type. The partial unique index on unresolved alerts keeps at
// most one open alert per candidate and type.
func (r *Repository) UpsertOpenAlert(ctx context.Context, a domain.Alert) (domain.Alert, domain.UpsertOutcome, error) {
	query := fmt.Sprintf(`
		INSERT INTO remittance_alerts
			(id, candidate_id, remittance_id, alert_type, severity, message, is_resolved, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, false, $7, $8)
		ON CONFLICT (candidate_id, alert_type) WHERE is_resolved = false
		DO UPDATE SET severity = EXCLUDED.severity, message = EXCLUDED.message, updated_at = EXCLUDED.updated_at
		WHERE %s < %s
		RETURNING id, (xmax = 0) AS inserted`,
		fmt.Sprintf(severityRank, "remittance_alerts.severity"),
		fmt.Sprintf(severityRank, "EXCLUDED.severity"),
	)

	var inserted bool
	err := db.Conn(ctx, r.pool).QueryRow(ctx, query,
		a.ID, a.CandidateID, a.RemittanceID, a.AlertType, a.Severity, a.Message, a.CreatedAt, a.UpdatedAt,
	).Scan(&a.ID, &inserted)
	if errors.Is(err, pgx.ErrNoRows) {
		return a, domain.UpsertUnchanged, nil
	}
	if err != nil {
		return domain.Alert{}, domain.UpsertUnchanged, fmt.Errorf("upsert remittance alert: %w", err)
	}
	if inserted {
		return a, domain.UpsertCreated, nil
	}
	return a, domain.UpsertRaised, nil
}

const alertColumns = `id, candidate_id, remittance_id, alert_type, severity, message, is_resolved,
	resolved_at, resolved_by, resolution_notes, created_at, updated_at`

func scanAlert(row pgx.Row) (domain.Alert, error) {
	var (
		a                   domain.Alert
		alertType, severity string
	)
	err := row.Scan(&a.ID, &a.CandidateID, &a.RemittanceID, &alertType, &severity, &a.Message, &a.IsResolved,
		&a.ResolvedAt, &a.ResolvedBy, &a.ResolutionNotes, &a.CreatedAt, &a.UpdatedAt)
	a.AlertType = domain.AlertType(alertType)
	a.Severity = domain.Severity(severity)
	return a, err
}

func (r *Repository) GetAlert(ctx context.Context, id uuid.UUID) (domain.Alert, error) {
	a, err := scanAlert(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+alertColumns+` FROM remittance_alerts WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Alert{}, apperr.NotFound(alertNotFoundMsg)
	}
	if err != nil {
		return domain.Alert{}, fmt.Errorf("get remittance alert: %w", err)
	}
	return a, nil
}

func (r *Repository) ListAlerts(ctx context.Context, candidateID uuid.UUID, includeResolved bool) ([]domain.Alert, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT `+alertColumns+`
		FROM remittance_alerts
		WHERE candidate_id = $1 AND ($2 OR is_resolved = false)
		ORDER BY created_at DESC`, candidateID, includeResolved)
	if err != nil {
		return nil, fmt.Errorf("list remittance alerts: %w", err)
	}
	defer rows.Close()

	var out []domain.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scan remittance alert: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ResolveAlert marks one alert resolved. Already resolved alerts are left
// untouched; resolved reports whether this call changed the row.
func (r *Repository) ResolveAlert(ctx context.Context, a domain.Alert) (resolved bool, err error) {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE remittance_alerts SET
			is_resolved = true,
			resolved_at = $2,
			resolved_by = $3,
			resolution_notes = $4,
			updated_at = $2
		WHERE id = $1 AND is_resolved = false`,
		a.ID, a.ResolvedAt, a.ResolvedBy, a.ResolutionNotes,
	)
	if err != nil {
		return false, fmt.Errorf("resolve remittance alert: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ResolveOpenAlerts closes the candidate's open alerts of one type, linking
// them to the remittance that cleared them.
func (r *Repository) ResolveOpenAlerts(ctx context.Context, candidateID uuid.UUID, alertType domain.AlertType, remittanceID uuid.UUID, at time.Time) (int, error) {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE remittance_alerts SET
			is_resolved = true,
			resolved_at = $4,
			remittance_id = $3,
			resolution_notes = 'remittance recorded',
			updated_at = $4
		WHERE candidate_id = $1 AND alert_type = $2 AND is_resolved = false`,
		candidateID, alertType, remittanceID, at,
	)
	if err != nil {
		return 0, fmt.Errorf("auto-resolve remittance alerts: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
