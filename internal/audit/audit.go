// Package audit records who changed what. Every state-changing operation in
// the pipeline writes one entry after its transaction commits; a failed write
// is logged and never undoes the change it describes.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"labor_pipeline_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SystemActor marks entries written by background scans and event handlers.
var SystemActor = uuid.Nil

// Entry is one audit record.
type Entry struct {
	ActorID     uuid.UUID
	Action      string
	SubjectType string
	SubjectID   uuid.UUID
	Description string
	Metadata    map[string]any
}

// Recorder is the collaborator interface consumed by the trackers.
type Recorder interface {
	Record(ctx context.Context, entry Entry)
}

// Store persists entries.
type Store interface {
	Insert(ctx context.Context, entry Entry, at time.Time) error
}

// Service writes entries and swallows storage failures after logging them.
type Service struct {
	store Store
	log   *logger.Logger
	now   func() time.Time
}

func NewService(store Store, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{store: store, log: log, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Service) Record(ctx context.Context, entry Entry) {
	if s == nil || s.store == nil {
		return
	}
	if err := s.store.Insert(ctx, entry, s.now()); err != nil {
		s.log.WithContext(ctx).SideEffectFailed("audit", entry.SubjectType, entry.SubjectID.String(), err)
	}
}

// Nop discards entries.
type Nop struct{}

func (Nop) Record(context.Context, Entry) {}

// Repository stores entries in audit_logs.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Insert(ctx context.Context, entry Entry, at time.Time) error {
	var actor *uuid.UUID
	if entry.ActorID != SystemActor {
		actor = &entry.ActorID
	}
	var metadata []byte
	if len(entry.Metadata) > 0 {
		var err error
		if metadata, err = json.Marshal(entry.Metadata); err != nil {
			return fmt.Errorf("marshal audit metadata: %w", err)
		}
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO audit_logs (id, actor_id, action, subject_type, subject_id, description, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, uuid.New(), actor, entry.Action, entry.SubjectType, entry.SubjectID, entry.Description, metadata, at)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

var (
	_ Recorder = (*Service)(nil)
	_ Recorder = Nop{}
	_ Store    = (*Repository)(nil)
)
