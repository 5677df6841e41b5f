// Package notification delivers pipeline alerts: persisted in-app
// notifications, live SSE push, and operations email. It subscribes to
// domain events and never participates in the transactions that raised them.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"labor_pipeline_backend/internal/email"
	"labor_pipeline_backend/internal/events"
	apphttp "labor_pipeline_backend/internal/http"
	"labor_pipeline_backend/internal/notification/handler"
	"labor_pipeline_backend/internal/notification/inapp"
	"labor_pipeline_backend/internal/notification/sse"
	"labor_pipeline_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RoleOps is the role whose shared inbox receives operational alerts.
const RoleOps = "ops"

const (
	AlertComplaintSLABreached = "complaint_sla_breached"
	AlertComplaintEscalated   = "complaint_escalated"
	AlertRemittance           = "remittance_alert"
	AlertCandidateStatus      = "candidate_status_changed"
	AlertVisaRefused          = "visa_refused"
)

// EmailQueue hands alert emails to the delivery worker.
type EmailQueue interface {
	EnqueueAlertEmail(ctx context.Context, alert email.Alert) error
}

// InlineEmail sends immediately. Used when no task queue is configured.
type InlineEmail struct {
	Sender email.Sender
}

func (q InlineEmail) EnqueueAlertEmail(ctx context.Context, alert email.Alert) error {
	return q.Sender.SendAlert(ctx, alert)
}

type Config interface {
	GetOpsEmailAddress() string
}

// Payload is the content of one notification.
type Payload struct {
	Title        string
	Content      string
	Severity     string
	ResourceType string
	ResourceID   *uuid.UUID
	Data         map[string]any
}

type Module struct {
	inapp   *inapp.Service
	sse     *sse.Service
	handler *handler.HTTPHandler
	emails  EmailQueue
	cfg     Config
	log     *logger.Logger
}

func New(pool *pgxpool.Pool, emails EmailQueue, cfg Config, log *logger.Logger) *Module {
	return newModule(inapp.NewRepository(pool), emails, cfg, log)
}

func newModule(store inapp.Store, emails EmailQueue, cfg Config, log *logger.Logger) *Module {
	if log == nil {
		log = logger.Nop()
	}
	sseSvc := sse.New(log)
	svc := inapp.NewService(store, log)
	svc.SetSSE(sseSvc)
	return &Module{
		inapp:   svc,
		sse:     sseSvc,
		handler: handler.NewHTTPHandler(svc, sseSvc),
		emails:  emails,
		cfg:     cfg,
		log:     log,
	}
}

func (m *Module) Name() string {
	return "notification"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/notifications"))
}

// Notify persists an in-app notification for one recipient and pushes it to
// connected dashboards.
func (m *Module) Notify(ctx context.Context, recipientType inapp.RecipientType, recipientID, alertType string, payload Payload) error {
	data := payload.Data
	if data == nil {
		data = map[string]any{}
	}
	if payload.Severity != "" {
		data["severity"] = payload.Severity
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode notification payload: %w", err)
	}

	var resourceType *string
	if payload.ResourceType != "" {
		resourceType = &payload.ResourceType
	}
	_, err = m.inapp.Send(ctx, inapp.CreateParams{
		Recipient:    inapp.Recipient{Type: recipientType, ID: recipientID},
		AlertType:    alertType,
		Title:        payload.Title,
		Content:      payload.Content,
		Payload:      raw,
		ResourceType: resourceType,
		ResourceID:   payload.ResourceID,
	})
	return err
}

// RegisterHandlers subscribes to the events that produce alerts.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.ComplaintSLABreached{}.EventName(), m)
	bus.Subscribe(events.ComplaintEscalated{}.EventName(), m)
	bus.Subscribe(events.RemittanceAlertCreated{}.EventName(), m)
	bus.Subscribe(events.CandidateStatusChanged{}.EventName(), m)
	bus.Subscribe(events.VisaRefused{}.EventName(), m)

	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.ComplaintSLABreached:
		return m.handleSLABreached(ctx, e)
	case events.ComplaintEscalated:
		return m.handleEscalated(ctx, e)
	case events.RemittanceAlertCreated:
		return m.handleRemittanceAlert(ctx, e)
	case events.CandidateStatusChanged:
		return m.handleStatusChanged(ctx, e)
	case events.VisaRefused:
		return m.handleVisaRefused(ctx, e)
	default:
		m.log.Warn("unhandled event type", "event", event.EventName())
		return nil
	}
}

func (m *Module) handleSLABreached(ctx context.Context, e events.ComplaintSLABreached) error {
	id := e.ComplaintID
	title := "Complaint SLA breached"
	content := fmt.Sprintf("Complaint %s passed its due date %s and is now at escalation level %d.",
		shortID(id), e.SLADueDate.Format(time.DateOnly), e.EscalationLevel)
	err := m.Notify(ctx, inapp.RecipientRole, RoleOps, AlertComplaintSLABreached, Payload{
		Title:        title,
		Content:      content,
		Severity:     "critical",
		ResourceType: "complaint",
		ResourceID:   &id,
		Data:         map[string]any{"escalationLevel": e.EscalationLevel, "slaDueDate": e.SLADueDate},
	})
	m.emailOps(ctx, "complaint", id, email.Alert{
		Subject:  title,
		Heading:  title,
		Severity: "critical",
		Body:     content,
		Facts: []email.Fact{
			{Label: "Complaint", Value: id.String()},
			{Label: "Due", Value: e.SLADueDate.Format(time.RFC3339)},
			{Label: "Escalation level", Value: fmt.Sprint(e.EscalationLevel)},
		},
	})
	return err
}

func (m *Module) handleEscalated(ctx context.Context, e events.ComplaintEscalated) error {
	id := e.ComplaintID
	recipientType, recipientID := inapp.RecipientRole, RoleOps
	if e.EscalatedTo != nil {
		recipientType, recipientID = inapp.RecipientUser, e.EscalatedTo.String()
	}
	return m.Notify(ctx, recipientType, recipientID, AlertComplaintEscalated, Payload{
		Title:        fmt.Sprintf("Complaint escalated to level %d", e.EscalationLevel),
		Content:      e.Reason,
		Severity:     "warning",
		ResourceType: "complaint",
		ResourceID:   &id,
		Data:         map[string]any{"escalationLevel": e.EscalationLevel},
	})
}

func (m *Module) handleRemittanceAlert(ctx context.Context, e events.RemittanceAlertCreated) error {
	candidateID := e.CandidateID
	title := "No remittance recorded"
	err := m.Notify(ctx, inapp.RecipientRole, RoleOps, AlertRemittance, Payload{
		Title:        title,
		Content:      e.Message,
		Severity:     e.Severity,
		ResourceType: "candidate",
		ResourceID:   &candidateID,
		Data:         map[string]any{"alertId": e.AlertID, "alertType": e.AlertType},
	})
	if e.Severity == "critical" {
		m.emailOps(ctx, "remittance_alert", e.AlertID, email.Alert{
			Subject:  title,
			Heading:  title,
			Severity: e.Severity,
			Body:     e.Message,
			Facts:    []email.Fact{{Label: "Candidate", Value: candidateID.String()}},
		})
	}
	return err
}

func (m *Module) handleStatusChanged(ctx context.Context, e events.CandidateStatusChanged) error {
	candidateID := e.CandidateID
	return m.Notify(ctx, inapp.RecipientCandidate, candidateID.String(), AlertCandidateStatus, Payload{
		Title:        "Status updated",
		Content:      fmt.Sprintf("Your application moved from %s to %s.", e.From, e.To),
		Severity:     "info",
		ResourceType: "candidate",
		ResourceID:   &candidateID,
		Data:         map[string]any{"from": e.From, "to": e.To, "source": e.Source},
	})
}

func (m *Module) handleVisaRefused(ctx context.Context, e events.VisaRefused) error {
	candidateID := e.CandidateID
	title := "Visa refused"
	content := fmt.Sprintf("The %s stage was refused for candidate %s.", e.Stage, shortID(candidateID))
	err := m.Notify(ctx, inapp.RecipientRole, RoleOps, AlertVisaRefused, Payload{
		Title:        title,
		Content:      content,
		Severity:     "warning",
		ResourceType: "visa_process",
		ResourceID:   &e.VisaProcessID,
		Data:         map[string]any{"stage": e.Stage, "candidateId": candidateID},
	})
	m.emailOps(ctx, "visa_process", e.VisaProcessID, email.Alert{
		Subject:  title,
		Heading:  title,
		Severity: "warning",
		Body:     content,
		Facts:    []email.Fact{{Label: "Stage", Value: e.Stage}, {Label: "Candidate", Value: candidateID.String()}},
	})
	return err
}

// emailOps enqueues an email to the operations mailbox when one is
// configured. Failures are logged only.
func (m *Module) emailOps(ctx context.Context, subjectType string, subjectID uuid.UUID, alert email.Alert) {
	if m.emails == nil || m.cfg == nil || m.cfg.GetOpsEmailAddress() == "" {
		return
	}
	alert.To = m.cfg.GetOpsEmailAddress()
	if err := m.emails.EnqueueAlertEmail(ctx, alert); err != nil {
		m.log.WithContext(ctx).SideEffectFailed("email", subjectType, subjectID.String(), err)
	}
}

func shortID(id uuid.UUID) string {
	return id.String()[:8]
}

var _ apphttp.Module = (*Module)(nil)
