package notification

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"labor_pipeline_backend/internal/email"
	"labor_pipeline_backend/internal/events"
	"labor_pipeline_backend/internal/notification/inapp"

	"github.com/google/uuid"
)

type memStore struct {
	mu    sync.Mutex
	items []inapp.Notification
	fail  error
}

func (s *memStore) Create(_ context.Context, p inapp.CreateParams) (inapp.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return inapp.Notification{}, s.fail
	}
	n := inapp.Notification{
		ID:            uuid.New(),
		RecipientType: p.Recipient.Type,
		RecipientID:   p.Recipient.ID,
		AlertType:     p.AlertType,
		Title:         p.Title,
		Content:       p.Content,
		Payload:       p.Payload,
		ResourceType:  p.ResourceType,
		ResourceID:    p.ResourceID,
		CreatedAt:     time.Now(),
	}
	s.items = append(s.items, n)
	return n, nil
}

func (s *memStore) List(_ context.Context, inboxes []string, limit, offset int) ([]inapp.Notification, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []inapp.Notification
	for _, n := range s.items {
		for _, inbox := range inboxes {
			if (inapp.Recipient{Type: n.RecipientType, ID: n.RecipientID}).Key() == inbox {
				out = append(out, n)
			}
		}
	}
	return out, len(out), nil
}

func (s *memStore) CountUnread(ctx context.Context, inboxes []string) (int, error) {
	items, _, err := s.List(ctx, inboxes, 0, 0)
	return len(items), err
}

func (s *memStore) MarkRead(context.Context, []string, uuid.UUID) error { return nil }

type queue struct {
	sent []email.Alert
	fail error
}

func (q *queue) EnqueueAlertEmail(_ context.Context, a email.Alert) error {
	if q.fail != nil {
		return q.fail
	}
	q.sent = append(q.sent, a)
	return nil
}

type opsConfig struct{ addr string }

func (c opsConfig) GetOpsEmailAddress() string { return c.addr }

func TestSLABreachNotifiesOpsInboxAndEmails(t *testing.T) {
	store := &memStore{}
	q := &queue{}
	m := newModule(store, q, opsConfig{addr: "ops@example.com"}, nil)

	complaintID := uuid.New()
	err := m.Handle(context.Background(), events.ComplaintSLABreached{
		BaseEvent:       events.NewBaseEvent(),
		ComplaintID:     complaintID,
		EscalationLevel: 1,
		SLADueDate:      time.Date(2026, 6, 8, 0, 0, 0, 0, time.UTC),
		BreachedAt:      time.Date(2026, 6, 9, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(store.items) != 1 {
		t.Fatalf("expected one notification, got %d", len(store.items))
	}
	n := store.items[0]
	if n.RecipientType != inapp.RecipientRole || n.RecipientID != RoleOps || n.AlertType != AlertComplaintSLABreached {
		t.Fatalf("unexpected notification %+v", n)
	}
	if n.ResourceID == nil || *n.ResourceID != complaintID {
		t.Fatal("expected complaint resource id")
	}
	var payload map[string]any
	if err := json.Unmarshal(n.Payload, &payload); err != nil || payload["severity"] != "critical" {
		t.Fatalf("unexpected payload %s", n.Payload)
	}
	if len(q.sent) != 1 || q.sent[0].To != "ops@example.com" {
		t.Fatalf("expected one ops email, got %+v", q.sent)
	}
}

func TestEscalationGoesToAssignee(t *testing.T) {
	store := &memStore{}
	m := newModule(store, nil, nil, nil)
	officer := uuid.New()
	_ = m.Handle(context.Background(), events.ComplaintEscalated{
		BaseEvent:       events.NewBaseEvent(),
		ComplaintID:     uuid.New(),
		EscalationLevel: 2,
		EscalatedTo:     &officer,
		Reason:          "employer unresponsive",
	})
	if len(store.items) != 1 || store.items[0].RecipientType != inapp.RecipientUser || store.items[0].RecipientID != officer.String() {
		t.Fatalf("unexpected notifications %+v", store.items)
	}
}

func TestWarningRemittanceAlertSkipsEmail(t *testing.T) {
	store := &memStore{}
	q := &queue{}
	m := newModule(store, q, opsConfig{addr: "ops@example.com"}, nil)
	base := events.RemittanceAlertCreated{
		BaseEvent:   events.NewBaseEvent(),
		AlertID:     uuid.New(),
		CandidateID: uuid.New(),
		AlertType:   "no_remittance",
		Message:     "no remittance in 95 days since departure",
	}
	warning := base
	warning.Severity = "warning"
	_ = m.Handle(context.Background(), warning)
	if len(q.sent) != 0 {
		t.Fatal("warning alerts should not email")
	}
	critical := base
	critical.Severity = "critical"
	_ = m.Handle(context.Background(), critical)
	if len(q.sent) != 1 || len(store.items) != 2 {
		t.Fatalf("expected critical email and two notifications, got %d / %d", len(q.sent), len(store.items))
	}
}

func TestStatusChangeNotifiesCandidate(t *testing.T) {
	store := &memStore{}
	m := newModule(store, nil, nil, nil)
	candidate := uuid.New()
	_ = m.Handle(context.Background(), events.CandidateStatusChanged{
		BaseEvent:   events.NewBaseEvent(),
		CandidateID: candidate,
		From:        "training",
		To:          "visa_process",
		Source:      "training",
	})
	items, _, _ := store.List(context.Background(), []string{"candidate:" + candidate.String()}, 10, 0)
	if len(items) != 1 || items[0].AlertType != AlertCandidateStatus {
		t.Fatalf("unexpected notifications %+v", items)
	}
}

func TestEmailFailureDoesNotFailNotification(t *testing.T) {
	store := &memStore{}
	m := newModule(store, &queue{fail: errors.New("redis down")}, opsConfig{addr: "ops@example.com"}, nil)
	err := m.Handle(context.Background(), events.VisaRefused{
		BaseEvent:     events.NewBaseEvent(),
		VisaProcessID: uuid.New(),
		CandidateID:   uuid.New(),
		Stage:         "medical",
	})
	if err != nil || len(store.items) != 1 {
		t.Fatalf("expected notification despite email failure, err=%v items=%d", err, len(store.items))
	}
}

func TestStoreFailureIsReturned(t *testing.T) {
	boom := errors.New("db down")
	m := newModule(&memStore{fail: boom}, nil, nil, nil)
	err := m.Notify(context.Background(), inapp.RecipientRole, RoleOps, AlertVisaRefused, Payload{Title: "x"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}
}
