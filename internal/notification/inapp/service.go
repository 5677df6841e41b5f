package inapp

import (
	"context"
	"encoding/json"

	"labor_pipeline_backend/internal/notification/sse"
	"labor_pipeline_backend/platform/apperr"
	"labor_pipeline_backend/platform/httpkit"
	"labor_pipeline_backend/platform/logger"

	"github.com/google/uuid"
)

// Store is the persistence port for in-app notifications.
type Store interface {
	Create(ctx context.Context, p CreateParams) (Notification, error)
	List(ctx context.Context, inboxes []string, limit, offset int) ([]Notification, int, error)
	CountUnread(ctx context.Context, inboxes []string) (int, error)
	MarkRead(ctx context.Context, inboxes []string, notificationID uuid.UUID) error
}

type Service struct {
	repo Store
	sse  *sse.Service
	log  *logger.Logger
}

func NewService(repo Store, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{repo: repo, log: log}
}

// SetSSE enables live push to connected dashboards.
func (s *Service) SetSSE(sseSvc *sse.Service) {
	s.sse = sseSvc
}

// Send persists the notification and pushes it to any connected inbox.
func (s *Service) Send(ctx context.Context, p CreateParams) (Notification, error) {
	if s == nil || s.repo == nil {
		return Notification{}, apperr.Internal("in-app notification service not configured")
	}
	if !p.Recipient.Type.Valid() || p.Recipient.ID == "" {
		return Notification{}, apperr.Validationf("invalid recipient %q", p.Recipient.Key())
	}
	if p.Title == "" {
		return Notification{}, apperr.Validation("title is required")
	}
	if len(p.Payload) == 0 {
		p.Payload = json.RawMessage(`{}`)
	}

	n, err := s.repo.Create(ctx, p)
	if err != nil {
		s.log.WithContext(ctx).Error("failed to persist in-app notification", "error", err, "recipient", p.Recipient.Key())
		return Notification{}, err
	}
	if s.sse != nil {
		s.sse.Publish(p.Recipient.Key(), sse.Event{Type: sse.EventNotification, Message: n.Title, Data: n})
	}
	return n, nil
}

// Inboxes lists every inbox the identity reads: its own and each role's.
func Inboxes(identity httpkit.Identity) []string {
	out := []string{Recipient{Type: RecipientUser, ID: identity.UserID().String()}.Key()}
	for _, role := range identity.Roles() {
		out = append(out, Recipient{Type: RecipientRole, ID: role}.Key())
	}
	return out
}

func (s *Service) List(ctx context.Context, identity httpkit.Identity, page, pageSize int) ([]Notification, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return s.repo.List(ctx, Inboxes(identity), pageSize, (page-1)*pageSize)
}

func (s *Service) CountUnread(ctx context.Context, identity httpkit.Identity) (int, error) {
	return s.repo.CountUnread(ctx, Inboxes(identity))
}

func (s *Service) MarkRead(ctx context.Context, identity httpkit.Identity, id uuid.UUID) error {
	return s.repo.MarkRead(ctx, Inboxes(identity), id)
}
