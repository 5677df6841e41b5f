package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"labor_pipeline_backend/internal/departures/domain"
	"labor_pipeline_backend/platform/apperr"
	"labor_pipeline_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const departureNotFoundMsg = "departure not found"

// Repository provides database operations for departures.
type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return db.InTx(ctx, r.pool, fn)
}

const selectColumns = `id, candidate_id, briefing_completed, briefing_completed_at, ptn_status,
	protector_status, salary_confirmed, accommodation_verified, ticket_details,
	ninety_day_compliance, ninety_day_checked_at, final_departure_status, departed_at,
	version, created_at, updated_at`

func scanDeparture(row pgx.Row) (domain.Departure, error) {
	var (
		d                              domain.Departure
		ptn, protector, compliance, fs string
		ticket                         []byte
	)
	err := row.Scan(
		&d.ID, &d.CandidateID, &d.BriefingCompleted, &d.BriefingCompletedAt, &ptn,
		&protector, &d.SalaryConfirmed, &d.AccommodationVerified, &ticket,
		&compliance, &d.NinetyDayCheckedAt, &fs, &d.DepartedAt,
		&d.Version, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return domain.Departure{}, err
	}
	if d.PTNStatus, err = domain.ParseItemStatus(ptn); err != nil {
		return domain.Departure{}, fmt.Errorf("departure %s ptn_status: %w", d.ID, err)
	}
	if d.ProtectorStatus, err = domain.ParseItemStatus(protector); err != nil {
		return domain.Departure{}, fmt.Errorf("departure %s protector_status: %w", d.ID, err)
	}
	if d.NinetyDayCompliance, err = domain.ParseComplianceStatus(compliance); err != nil {
		return domain.Departure{}, fmt.Errorf("departure %s compliance: %w", d.ID, err)
	}
	if d.FinalStatus, err = domain.ParseFinalStatus(fs); err != nil {
		return domain.Departure{}, fmt.Errorf("departure %s final status: %w", d.ID, err)
	}
	if len(ticket) > 0 {
		if err := json.Unmarshal(ticket, &d.Ticket); err != nil {
			return domain.Departure{}, fmt.Errorf("departure %s ticket: %w", d.ID, err)
		}
	}
	return d, nil
}

func (r *Repository) Create(ctx context.Context, d domain.Departure) error {
	ticket, err := json.Marshal(d.Ticket)
	if err != nil {
		return fmt.Errorf("marshal ticket: %w", err)
	}
	_, err = db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO departures (`+selectColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		d.ID, d.CandidateID, d.BriefingCompleted, d.BriefingCompletedAt, d.PTNStatus,
		d.ProtectorStatus, d.SalaryConfirmed, d.AccommodationVerified, ticket,
		d.NinetyDayCompliance, d.NinetyDayCheckedAt, d.FinalStatus, d.DepartedAt,
		d.Version, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperr.Conflict("candidate already has a departure record")
		}
		return fmt.Errorf("insert departure: %w", err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (domain.Departure, error) {
	d, err := scanDeparture(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+selectColumns+` FROM departures WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Departure{}, apperr.NotFound(departureNotFoundMsg)
	}
	if err != nil {
		return domain.Departure{}, fmt.Errorf("get departure: %w", err)
	}
	return d, nil
}

func (r *Repository) GetByCandidateID(ctx context.Context, candidateID uuid.UUID) (domain.Departure, error) {
	d, err := scanDeparture(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+selectColumns+` FROM departures WHERE candidate_id = $1`, candidateID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Departure{}, apperr.NotFound(departureNotFoundMsg)
	}
	if err != nil {
		return domain.Departure{}, fmt.Errorf("get departure by candidate: %w", err)
	}
	return d, nil
}

// Update writes d if its version still matches and bumps d.Version.
func (r *Repository) Update(ctx context.Context, d *domain.Departure) error {
	ticket, err := json.Marshal(d.Ticket)
	if err != nil {
		return fmt.Errorf("marshal ticket: %w", err)
	}
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE departures SET
			briefing_completed = $3,
			briefing_completed_at = $4,
			ptn_status = $5,
			protector_status = $6,
			salary_confirmed = $7,
			accommodation_verified = $8,
			ticket_details = $9,
			ninety_day_compliance = $10,
			ninety_day_checked_at = $11,
			final_departure_status = $12,
			departed_at = $13,
			updated_at = $14,
			version = version + 1
		WHERE id = $1 AND version = $2`,
		d.ID, d.Version, d.BriefingCompleted, d.BriefingCompletedAt, d.PTNStatus,
		d.ProtectorStatus, d.SalaryConfirmed, d.AccommodationVerified, ticket,
		d.NinetyDayCompliance, d.NinetyDayCheckedAt, d.FinalStatus, d.DepartedAt, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update departure: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return db.StaleVersion("departure")
	}
	d.Version++
	return nil
}
