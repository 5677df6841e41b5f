package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"labor_pipeline_backend/internal/audit"
	"labor_pipeline_backend/internal/events"
	"labor_pipeline_backend/internal/visa/domain"
	"labor_pipeline_backend/platform/apperr"
	"labor_pipeline_backend/platform/db"

	"github.com/google/uuid"
)

type fakeRepo struct {
	mu        sync.Mutex
	processes map[uuid.UUID]domain.VisaProcess
	conflicts int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{processes: map[uuid.UUID]domain.VisaProcess{}}
}

func (r *fakeRepo) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func clone(v domain.VisaProcess) domain.VisaProcess {
	stages := make(map[domain.Stage]domain.StageRecord, len(v.Stages))
	for k, rec := range v.Stages {
		stages[k] = rec
	}
	v.Stages = stages
	return v
}

func (r *fakeRepo) Create(_ context.Context, v domain.VisaProcess) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processes[v.ID] = clone(v)
	return nil
}

func (r *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (domain.VisaProcess, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.processes[id]
	if !ok {
		return domain.VisaProcess{}, apperr.NotFound("visa process not found")
	}
	return clone(v), nil
}

func (r *fakeRepo) GetLatestByCandidateID(_ context.Context, candidateID uuid.UUID) (domain.VisaProcess, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *domain.VisaProcess
	for _, v := range r.processes {
		if v.CandidateID != candidateID {
			continue
		}
		if latest == nil || v.CreatedAt.After(latest.CreatedAt) {
			v := v
			latest = &v
		}
	}
	if latest == nil {
		return domain.VisaProcess{}, apperr.NotFound("visa process not found")
	}
	return clone(*latest), nil
}

func (r *fakeRepo) Update(_ context.Context, v *domain.VisaProcess) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conflicts > 0 {
		r.conflicts--
		return db.StaleVersion("visa process")
	}
	if r.processes[v.ID].Version != v.Version {
		return db.StaleVersion("visa process")
	}
	v.Version++
	r.processes[v.ID] = clone(*v)
	return nil
}

type recordingBus struct {
	mu          sync.Mutex
	syncEvents  []string
	asyncEvents []string
}

func (b *recordingBus) Publish(_ context.Context, e events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.asyncEvents = append(b.asyncEvents, e.EventName())
}

func (b *recordingBus) PublishSync(_ context.Context, e events.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.syncEvents = append(b.syncEvents, e.EventName())
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

type recordingAudit struct {
	entries []audit.Entry
}

func (a *recordingAudit) Record(_ context.Context, e audit.Entry) { a.entries = append(a.entries, e) }

func (a *recordingAudit) has(action string) bool {
	for _, e := range a.entries {
		if e.Action == action {
			return true
		}
	}
	return false
}

var testNow = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

func newTestService() (*Service, *fakeRepo, *recordingBus, *recordingAudit) {
	repo := newFakeRepo()
	bus := &recordingBus{}
	rec := &recordingAudit{}
	svc := New(repo, bus, rec, nil)
	svc.now = func() time.Time { return testNow }
	return svc, repo, bus, rec
}

func completedOutcome(stage domain.Stage) domain.Outcome {
	date := testNow.AddDate(0, 0, -2)
	return domain.Outcome{
		Stage:   stage,
		Status:  domain.StatusCompleted,
		Details: domain.StageDetails{OutcomeDate: &date, Center: "Karachi GAMCA"},
	}
}

func TestIssuingPublishesSynchronously(t *testing.T) {
	svc, _, bus, rec := newTestService()
	ctx := context.Background()
	v, err := svc.Open(ctx, uuid.New(), uuid.New())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	for _, stage := range domain.Stages.Stages() {
		if v, err = svc.RecordStageOutcome(ctx, RecordStageInput{VisaProcessID: v.ID, Outcome: completedOutcome(stage)}); err != nil {
			t.Fatalf("RecordStageOutcome(%s): %v", stage, err)
		}
	}
	if v.OverallStatus != domain.OverallIssued {
		t.Fatalf("expected issued, got %s", v.OverallStatus)
	}
	if len(bus.syncEvents) != 1 || bus.syncEvents[0] != (events.VisaIssued{}).EventName() {
		t.Fatalf("expected one synchronous VisaIssued, got %v", bus.syncEvents)
	}
	if !rec.has(actionVisaIssued) {
		t.Fatal("issuance must be audited")
	}
}

func TestRecordAfterRefusalRejected(t *testing.T) {
	svc, _, bus, _ := newTestService()
	ctx := context.Background()
	v, _ := svc.Open(ctx, uuid.New(), uuid.New())

	v, err := svc.RecordStageOutcome(ctx, RecordStageInput{VisaProcessID: v.ID, Outcome: completedOutcome(domain.StageInterview)})
	if err != nil {
		t.Fatal(err)
	}
	v, err = svc.RecordStageOutcome(ctx, RecordStageInput{
		VisaProcessID: v.ID,
		Outcome:       domain.Outcome{Stage: domain.StageTradeTest, Status: domain.StatusRefused},
	})
	if err != nil {
		t.Fatal(err)
	}
	if v.OverallStatus != domain.OverallRefused {
		t.Fatalf("expected refused, got %s", v.OverallStatus)
	}
	if len(bus.asyncEvents) != 1 {
		t.Fatalf("expected VisaRefused to be published, got %v", bus.asyncEvents)
	}

	_, err = svc.RecordStageOutcome(ctx, RecordStageInput{VisaProcessID: v.ID, Outcome: completedOutcome(domain.StageMedical)})
	if !apperr.Is(err, apperr.KindInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
}

func TestOverrideRequiresReasonAndIsAudited(t *testing.T) {
	svc, _, _, rec := newTestService()
	ctx := context.Background()
	v, _ := svc.Open(ctx, uuid.New(), uuid.New())
	_, _ = svc.RecordStageOutcome(ctx, RecordStageInput{
		VisaProcessID: v.ID,
		Outcome:       domain.Outcome{Stage: domain.StageInterview, Status: domain.StatusRefused},
	})

	_, err := svc.AdminOverrideStage(ctx, OverrideStageInput{VisaProcessID: v.ID, Outcome: completedOutcome(domain.StageInterview)})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error without reason, got %v", err)
	}

	v, err = svc.AdminOverrideStage(ctx, OverrideStageInput{
		VisaProcessID: v.ID,
		Outcome:       completedOutcome(domain.StageInterview),
		Reason:        "embassy reversed the interview decision",
		ActorID:       uuid.New(),
	})
	if err != nil {
		t.Fatalf("AdminOverrideStage: %v", err)
	}
	if v.OverallStatus != domain.OverallTradeTest {
		t.Fatalf("expected trade_test after override, got %s", v.OverallStatus)
	}
	if !rec.has(ActionStageOverride) {
		t.Fatal("override must be audited")
	}
}

func TestOpenRejectsSecondActiveProcess(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()
	candidate := uuid.New()
	if _, err := svc.Open(ctx, candidate, uuid.New()); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Open(ctx, candidate, uuid.New()); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestStageOutcomeRetriesOnConflict(t *testing.T) {
	svc, repo, _, _ := newTestService()
	ctx := context.Background()
	v, _ := svc.Open(ctx, uuid.New(), uuid.New())
	repo.conflicts = 1

	v, err := svc.RecordStageOutcome(ctx, RecordStageInput{VisaProcessID: v.ID, Outcome: completedOutcome(domain.StageInterview)})
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if v.StageStatus(domain.StageInterview) != domain.StatusCompleted {
		t.Fatal("interview should be completed")
	}
}
