package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"labor_pipeline_backend/internal/visa/domain"
	"labor_pipeline_backend/platform/apperr"
	"labor_pipeline_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const visaNotFoundMsg = "visa process not found"

// Repository provides database operations for visa processes. Each stage
// owns a <stage>_status, <stage>_details and <stage>_evidence_path column.
type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return db.InTx(ctx, r.pool, fn)
}

var selectColumns = func() string {
	cols := []string{"id", "candidate_id"}
	for _, s := range domain.Stages.Stages() {
		cols = append(cols, string(s)+"_status", string(s)+"_details", string(s)+"_evidence_path", string(s)+"_updated_at")
	}
	cols = append(cols, "overall_status", "issued_at", "refused_at", "version", "created_at", "updated_at")
	return strings.Join(cols, ", ")
}()

type stageRow struct {
	status    string
	details   []byte
	evidence  *string
	updatedAt *time.Time
}

func scanVisa(row pgx.Row) (domain.VisaProcess, error) {
	var v domain.VisaProcess
	stages := make([]stageRow, domain.Stages.Len())
	var overall string

	dest := []any{&v.ID, &v.CandidateID}
	for i := range stages {
		dest = append(dest, &stages[i].status, &stages[i].details, &stages[i].evidence, &stages[i].updatedAt)
	}
	dest = append(dest, &overall, &v.IssuedAt, &v.RefusedAt, &v.Version, &v.CreatedAt, &v.UpdatedAt)

	if err := row.Scan(dest...); err != nil {
		return domain.VisaProcess{}, err
	}

	v.Stages = make(map[domain.Stage]domain.StageRecord, len(stages))
	for i, s := range domain.Stages.Stages() {
		status, err := domain.ParseStageStatus(stages[i].status)
		if err != nil {
			return domain.VisaProcess{}, fmt.Errorf("visa process %s: %w", v.ID, err)
		}
		rec := domain.StageRecord{Status: status, EvidencePath: stages[i].evidence, UpdatedAt: stages[i].updatedAt}
		if len(stages[i].details) > 0 {
			if err := json.Unmarshal(stages[i].details, &rec.Details); err != nil {
				return domain.VisaProcess{}, fmt.Errorf("visa process %s %s details: %w", v.ID, s, err)
			}
		}
		v.Stages[s] = rec
	}

	var err error
	if v.OverallStatus, err = domain.ParseOverallStatus(overall); err != nil {
		return domain.VisaProcess{}, fmt.Errorf("visa process %s: %w", v.ID, err)
	}
	return v, nil
}

func stageArgs(v domain.VisaProcess) ([]any, error) {
	args := make([]any, 0, domain.Stages.Len()*4)
	for _, s := range domain.Stages.Stages() {
		rec := v.Stages[s]
		details, err := json.Marshal(rec.Details)
		if err != nil {
			return nil, fmt.Errorf("marshal %s details: %w", s, err)
		}
		args = append(args, v.StageStatus(s), details, rec.EvidencePath, rec.UpdatedAt)
	}
	return args, nil
}

func (r *Repository) Create(ctx context.Context, v domain.VisaProcess) error {
	args, err := stageArgs(v)
	if err != nil {
		return err
	}
	cols := []string{"id", "candidate_id"}
	for _, s := range domain.Stages.Stages() {
		cols = append(cols, string(s)+"_status", string(s)+"_details", string(s)+"_evidence_path", string(s)+"_updated_at")
	}
	cols = append(cols, "overall_status", "version", "created_at", "updated_at")

	all := append([]any{v.ID, v.CandidateID}, args...)
	all = append(all, v.OverallStatus, v.Version, v.CreatedAt, v.UpdatedAt)

	query := fmt.Sprintf(`INSERT INTO visa_processes (%s) VALUES (%s)`, strings.Join(cols, ", "), placeholders(1, len(all)))
	if _, err := db.Conn(ctx, r.pool).Exec(ctx, query, all...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperr.Conflict("candidate already has an active visa process")
		}
		return fmt.Errorf("insert visa process: %w", err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (domain.VisaProcess, error) {
	v, err := scanVisa(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+selectColumns+` FROM visa_processes WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.VisaProcess{}, apperr.NotFound(visaNotFoundMsg)
	}
	if err != nil {
		return domain.VisaProcess{}, fmt.Errorf("get visa process: %w", err)
	}
	return v, nil
}

// GetLatestByCandidateID returns the most recently opened process.
func (r *Repository) GetLatestByCandidateID(ctx context.Context, candidateID uuid.UUID) (domain.VisaProcess, error) {
	v, err := scanVisa(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+selectColumns+` FROM visa_processes WHERE candidate_id = $1 ORDER BY created_at DESC LIMIT 1`, candidateID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.VisaProcess{}, apperr.NotFound(visaNotFoundMsg)
	}
	if err != nil {
		return domain.VisaProcess{}, fmt.Errorf("get visa process by candidate: %w", err)
	}
	return v, nil
}

// Update writes v if its version still matches and bumps v.Version.
func (r *Repository) Update(ctx context.Context, v *domain.VisaProcess) error {
	args, err := stageArgs(*v)
	if err != nil {
		return err
	}
	sets := make([]string, 0, domain.Stages.Len()*4+5)
	n := 3
	for _, s := range domain.Stages.Stages() {
		for _, suffix := range []string{"_status", "_details", "_evidence_path", "_updated_at"} {
			sets = append(sets, fmt.Sprintf("%s%s = $%d", s, suffix, n))
			n++
		}
	}
	sets = append(sets,
		fmt.Sprintf("overall_status = $%d", n),
		fmt.Sprintf("issued_at = $%d", n+1),
		fmt.Sprintf("refused_at = $%d", n+2),
		fmt.Sprintf("updated_at = $%d", n+3),
		"version = version + 1",
	)

	all := append([]any{v.ID, v.Version}, args...)
	all = append(all, v.OverallStatus, v.IssuedAt, v.RefusedAt, v.UpdatedAt)

	query := `UPDATE visa_processes SET ` + strings.Join(sets, ", ") + ` WHERE id = $1 AND version = $2`
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, query, all...)
	if err != nil {
		return fmt.Errorf("update visa process: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return db.StaleVersion("visa process")
	}
	v.Version++
	return nil
}

func placeholders(from, count int) string {
	ph := make([]string, count)
	for i := range ph {
		ph[i] = fmt.Sprintf("$%d", from+i)
	}
	return strings.Join(ph, ", ")
}
