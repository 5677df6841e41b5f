package inapp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"labor_pipeline_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	opCreate      = "notification.inapp.repository.create"
	opList        = "notification.inapp.repository.list"
	opCountUnread = "notification.inapp.repository.count_unread"
	opMarkRead    = "notification.inapp.repository.mark_read"

	errRepoNotConfigured = "in-app notification repository not configured"
)

// RecipientType says how RecipientID is interpreted.
type RecipientType string

const (
	RecipientUser      RecipientType = "user"
	RecipientRole      RecipientType = "role"
	RecipientCandidate RecipientType = "candidate"
)

func (t RecipientType) Valid() bool {
	switch t {
	case RecipientUser, RecipientRole, RecipientCandidate:
		return true
	}
	return false
}

// Recipient is an addressable inbox: a user id, a role name, or a candidate id.
type Recipient struct {
	Type RecipientType
	ID   string
}

func (r Recipient) Key() string { return string(r.Type) + ":" + r.ID }

type Notification struct {
	ID            uuid.UUID       `json:"id"`
	RecipientType RecipientType   `json:"recipientType"`
	RecipientID   string          `json:"recipientId"`
	AlertType     string          `json:"alertType"`
	Title         string          `json:"title"`
	Content       string          `json:"content"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	ResourceType  *string         `json:"resourceType,omitempty"`
	ResourceID    *uuid.UUID      `json:"resourceId,omitempty"`
	IsRead        bool            `json:"isRead"`
	CreatedAt     time.Time       `json:"createdAt"`
}

type CreateParams struct {
	Recipient    Recipient
	AlertType    string
	Title        string
	Content      string
	Payload      json.RawMessage
	ResourceType *string
	ResourceID   *uuid.UUID
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Create(ctx context.Context, p CreateParams) (Notification, error) {
	if r == nil || r.pool == nil {
		return Notification{}, apperr.Internal(errRepoNotConfigured).WithOp(opCreate)
	}

	var n Notification
	err := r.pool.QueryRow(ctx, `
		INSERT INTO in_app_notifications
		(recipient_type, recipient_id, alert_type, title, content, payload, resource_type, resource_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, recipient_type, recipient_id, alert_type, title, content, payload, resource_type, resource_id, is_read, created_at
	`, p.Recipient.Type, p.Recipient.ID, p.AlertType, p.Title, p.Content, p.Payload, p.ResourceType, p.ResourceID).Scan(
		&n.ID, &n.RecipientType, &n.RecipientID, &n.AlertType, &n.Title, &n.Content, &n.Payload, &n.ResourceType, &n.ResourceID, &n.IsRead, &n.CreatedAt,
	)
	if err != nil {
		return Notification{}, apperr.Internal(fmt.Sprintf("create in-app notification failed: %v", err)).WithOp(opCreate)
	}
	return n, nil
}

// List returns notifications addressed to any of the given inboxes, newest first.
func (r *Repository) List(ctx context.Context, inboxes []string, limit, offset int) ([]Notification, int, error) {
	if r == nil || r.pool == nil {
		return nil, 0, apperr.Internal(errRepoNotConfigured).WithOp(opList)
	}

	var total int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM in_app_notifications
		WHERE recipient_type || ':' || recipient_id = ANY($1)
	`, inboxes).Scan(&total)
	if err != nil {
		return nil, 0, apperr.Internal(fmt.Sprintf("count notifications failed: %v", err)).WithOp(opList)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, recipient_type, recipient_id, alert_type, title, content, payload, resource_type, resource_id, is_read, created_at
		FROM in_app_notifications
		WHERE recipient_type || ':' || recipient_id = ANY($1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, inboxes, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal(fmt.Sprintf("list notifications query failed: %v", err)).WithOp(opList)
	}
	defer rows.Close()

	items := make([]Notification, 0, limit)
	for rows.Next() {
		var n Notification
		if scanErr := rows.Scan(&n.ID, &n.RecipientType, &n.RecipientID, &n.AlertType, &n.Title, &n.Content, &n.Payload, &n.ResourceType, &n.ResourceID, &n.IsRead, &n.CreatedAt); scanErr != nil {
			return nil, 0, apperr.Internal(fmt.Sprintf("scan notifications failed: %v", scanErr)).WithOp(opList)
		}
		items = append(items, n)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, 0, apperr.Internal(fmt.Sprintf("iterate notifications failed: %v", rowsErr)).WithOp(opList)
	}
	return items, total, nil
}

func (r *Repository) CountUnread(ctx context.Context, inboxes []string) (int, error) {
	if r == nil || r.pool == nil {
		return 0, apperr.Internal(errRepoNotConfigured).WithOp(opCountUnread)
	}
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM in_app_notifications
		WHERE recipient_type || ':' || recipient_id = ANY($1) AND is_read = FALSE
	`, inboxes).Scan(&count)
	if err != nil {
		return 0, apperr.Internal(fmt.Sprintf("count unread notifications failed: %v", err)).WithOp(opCountUnread)
	}
	return count, nil
}

// MarkRead flags one notification as read. Role notifications share one read
// flag across every holder of the role.
func (r *Repository) MarkRead(ctx context.Context, inboxes []string, notificationID uuid.UUID) error {
	if r == nil || r.pool == nil {
		return apperr.Internal(errRepoNotConfigured).WithOp(opMarkRead)
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE in_app_notifications
		SET is_read = TRUE, read_at = now()
		WHERE id = $1 AND recipient_type || ':' || recipient_id = ANY($2)
	`, notificationID, inboxes)
	if err != nil {
		return apperr.Internal(fmt.Sprintf("mark notification read failed: %v", err)).WithOp(opMarkRead)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("notification not found").WithOp(opMarkRead)
	}
	return nil
}
