package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"labor_pipeline_backend/internal/events"
	"labor_pipeline_backend/internal/remittances/domain"
	"labor_pipeline_backend/platform/apperr"

	"github.com/google/uuid"
)

type fakeRepo struct {
	mu          sync.Mutex
	remittances []domain.Remittance
	departures  map[uuid.UUID]time.Time
	alerts      map[uuid.UUID]domain.Alert
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{departures: map[uuid.UUID]time.Time{}, alerts: map[uuid.UUID]domain.Alert{}}
}

func (r *fakeRepo) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (r *fakeRepo) InsertRemittance(_ context.Context, rem domain.Remittance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.remittances = append(r.remittances, rem)
	return nil
}

func (r *fakeRepo) ListSubjects(context.Context) ([]domain.Subject, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Subject
	for id, departed := range r.departures {
		s := domain.Subject{CandidateID: id, DepartedAt: departed}
		for _, rem := range r.remittances {
			if rem.CandidateID != id {
				continue
			}
			if s.LastRemittanceAt == nil || rem.TransferredAt.After(*s.LastRemittanceAt) {
				at := rem.TransferredAt
				s.LastRemittanceAt = &at
			}
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *fakeRepo) UpsertOpenAlert(_ context.Context, a domain.Alert) (domain.Alert, domain.UpsertOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, open := range r.alerts {
		if open.CandidateID != a.CandidateID || open.AlertType != a.AlertType || open.IsResolved {
			continue
		}
		if open.Severity.Rank() >= a.Severity.Rank() {
			return open, domain.UpsertUnchanged, nil
		}
		open.Severity = a.Severity
		open.Message = a.Message
		open.UpdatedAt = a.UpdatedAt
		r.alerts[id] = open
		return open, domain.UpsertRaised, nil
	}
	r.alerts[a.ID] = a
	return a, domain.UpsertCreated, nil
}

func (r *fakeRepo) GetAlert(_ context.Context, id uuid.UUID) (domain.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.alerts[id]
	if !ok {
		return domain.Alert{}, apperr.NotFound("remittance alert not found")
	}
	return a, nil
}

func (r *fakeRepo) ListAlerts(_ context.Context, candidateID uuid.UUID, includeResolved bool) ([]domain.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Alert
	for _, a := range r.alerts {
		if a.CandidateID == candidateID && (includeResolved || !a.IsResolved) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeRepo) ResolveAlert(_ context.Context, a domain.Alert) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.alerts[a.ID].IsResolved {
		return false, nil
	}
	r.alerts[a.ID] = a
	return true, nil
}

func (r *fakeRepo) ResolveOpenAlerts(_ context.Context, candidateID uuid.UUID, alertType domain.AlertType, remittanceID uuid.UUID, at time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, a := range r.alerts {
		if a.CandidateID != candidateID || a.AlertType != alertType || a.IsResolved {
			continue
		}
		resolvedAt := at
		a.IsResolved = true
		a.ResolvedAt = &resolvedAt
		a.RemittanceID = &remittanceID
		r.alerts[id] = a
		n++
	}
	return n, nil
}

func (r *fakeRepo) openAlerts(candidateID uuid.UUID) []domain.Alert {
	alerts, _ := r.ListAlerts(context.Background(), candidateID, false)
	return alerts
}

type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(_ context.Context, e events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

func (b *recordingBus) PublishSync(ctx context.Context, e events.Event) error {
	b.Publish(ctx, e)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

type windowConfig struct{ days int }

func (c windowConfig) GetAssessmentPassThreshold() float64 { return 60 }
func (c windowConfig) GetComplaintDefaultSLADays() int     { return 7 }
func (c windowConfig) GetRemittanceComplianceDays() int    { return c.days }

var departed = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func newTestService(repo *fakeRepo, bus *recordingBus) *Service {
	svc := New(repo, bus, nil, windowConfig{days: 90}, nil)
	svc.now = func() time.Time { return departed.AddDate(1, 0, 0) }
	return svc
}

func TestScanOpensOneAlertAndRaisesSeverity(t *testing.T) {
	repo := newFakeRepo()
	bus := &recordingBus{}
	svc := newTestService(repo, bus)
	worker := uuid.New()
	repo.departures[worker] = departed

	res, err := svc.ScanCompliance(context.Background(), departed.AddDate(0, 0, 89))
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if res.Checked != 1 || len(res.Created) != 0 {
		t.Fatalf("expected nothing due at day 89, got %+v", res)
	}

	res, _ = svc.ScanCompliance(context.Background(), departed.AddDate(0, 0, 95))
	if len(res.Created) != 1 {
		t.Fatalf("expected one alert at day 95, got %+v", res)
	}
	res, _ = svc.ScanCompliance(context.Background(), departed.AddDate(0, 0, 95))
	if len(res.Created) != 0 || len(res.Raised) != 0 {
		t.Fatalf("expected re-run to change nothing, got %+v", res)
	}

	res, _ = svc.ScanCompliance(context.Background(), departed.AddDate(0, 0, 200))
	if len(res.Raised) != 1 {
		t.Fatalf("expected severity raise at day 200, got %+v", res)
	}
	open := repo.openAlerts(worker)
	if len(open) != 1 || open[0].Severity != domain.SeverityCritical {
		t.Fatalf("expected a single critical alert, got %+v", open)
	}
	if len(bus.events) != 2 {
		t.Fatalf("expected two alert events, got %d", len(bus.events))
	}
	if _, ok := bus.events[0].(events.RemittanceAlertCreated); !ok {
		t.Fatalf("unexpected event %T", bus.events[0])
	}
}

func TestRecordResolvesOpenAlert(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &recordingBus{})
	worker := uuid.New()
	repo.departures[worker] = departed

	if _, err := svc.ScanCompliance(context.Background(), departed.AddDate(0, 0, 100)); err != nil {
		t.Fatalf("scan: %v", err)
	}
	res, err := svc.Record(context.Background(), RecordInput{
		CandidateID:   worker,
		Amount:        250,
		Currency:      "sar",
		TransferredAt: departed.AddDate(0, 0, 101),
		ActorID:       uuid.New(),
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if res.ResolvedAlerts != 1 || res.Remittance.Currency != "SAR" {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(repo.openAlerts(worker)) != 0 {
		t.Fatal("expected no open alerts after a remittance")
	}

	scan, _ := svc.ScanCompliance(context.Background(), departed.AddDate(0, 0, 150))
	if len(scan.Created) != 0 {
		t.Fatalf("window restarts at the last remittance, got %+v", scan)
	}
}

func TestRecordRejectsInvalidInput(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &recordingBus{})
	_, err := svc.Record(context.Background(), RecordInput{
		CandidateID:   uuid.New(),
		Amount:        -1,
		Currency:      "PKR",
		TransferredAt: departed,
	})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(repo.remittances) != 0 {
		t.Fatal("nothing should be written on validation failure")
	}
}

func TestResolveAlertIsIdempotent(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &recordingBus{})
	worker := uuid.New()
	repo.departures[worker] = departed
	res, _ := svc.ScanCompliance(context.Background(), departed.AddDate(0, 0, 100))
	if len(res.Created) != 1 {
		t.Fatalf("expected alert, got %+v", res)
	}
	id := res.Created[0]

	notes := "worker on unpaid leave"
	first, err := svc.ResolveAlert(context.Background(), id, &notes, uuid.New())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	other := "second attempt"
	second, err := svc.ResolveAlert(context.Background(), id, &other, uuid.New())
	if err != nil {
		t.Fatalf("resolve again: %v", err)
	}
	if !second.IsResolved || second.ResolutionNotes == nil || *second.ResolutionNotes != notes {
		t.Fatalf("expected first resolution to stick, got %+v", second)
	}
	if !first.ResolvedAt.Equal(*second.ResolvedAt) {
		t.Fatal("resolution time changed on second resolve")
	}

	all, _ := svc.ListAlerts(context.Background(), worker, true)
	open, _ := svc.ListAlerts(context.Background(), worker, false)
	if len(all) != 1 || len(open) != 0 {
		t.Fatalf("unexpected listings all=%d open=%d", len(all), len(open))
	}
}

func TestResolveUnknownAlert(t *testing.T) {
	svc := newTestService(newFakeRepo(), &recordingBus{})
	if _, err := svc.ResolveAlert(context.Background(), uuid.New(), nil, uuid.New()); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
