package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"labor_pipeline_backend/internal/candidates/domain"
	"labor_pipeline_backend/internal/events"
	"labor_pipeline_backend/platform/apperr"
	"labor_pipeline_backend/platform/db"

	"github.com/google/uuid"
)

type fakeRepo struct {
	txMu       sync.Mutex
	mu         sync.Mutex
	candidates map[uuid.UUID]domain.Candidate
	history    []domain.HistoryEntry
	conflicts  int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{candidates: map[uuid.UUID]domain.Candidate{}}
}

func (r *fakeRepo) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()
	r.mu.Lock()
	snapshot := make(map[uuid.UUID]domain.Candidate, len(r.candidates))
	for k, v := range r.candidates {
		snapshot[k] = v
	}
	history := len(r.history)
	r.mu.Unlock()

	if err := fn(ctx); err != nil {
		r.mu.Lock()
		r.candidates = snapshot
		r.history = r.history[:history]
		r.mu.Unlock()
		return err
	}
	return nil
}

func (r *fakeRepo) Create(_ context.Context, c domain.Candidate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.candidates[c.ID] = c
	return nil
}

func (r *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (domain.Candidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.candidates[id]
	if !ok {
		return domain.Candidate{}, apperr.NotFound("candidate not found")
	}
	return c, nil
}

func (r *fakeRepo) UpdateStatus(_ context.Context, c *domain.Candidate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conflicts > 0 {
		r.conflicts--
		return db.StaleVersion("candidate")
	}
	if r.candidates[c.ID].Version != c.Version {
		return db.StaleVersion("candidate")
	}
	c.Version++
	r.candidates[c.ID] = *c
	return nil
}

func (r *fakeRepo) InsertHistory(_ context.Context, h domain.HistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = append(r.history, h)
	return nil
}

type guardStub struct {
	mu sync.Mutex
	g  domain.Guards
}

func (s *guardStub) Guards(context.Context, uuid.UUID) (domain.Guards, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.g, nil
}

func (s *guardStub) set(g domain.Guards) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.g = g
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

func (b *recordingBus) statusChanges() []events.CandidateStatusChanged {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []events.CandidateStatusChanged
	for _, e := range b.events {
		if ch, ok := e.(events.CandidateStatusChanged); ok {
			out = append(out, ch)
		}
	}
	return out
}

var clock = time.Date(2026, 8, 3, 7, 30, 0, 0, time.UTC)

func setup(status domain.Status) (*Service, *fakeRepo, *guardStub, *recordingBus, uuid.UUID) {
	repo := newFakeRepo()
	guards := &guardStub{}
	bus := &recordingBus{}
	svc := New(repo, guards, bus, nil, nil)
	svc.now = func() time.Time { return clock }
	id := uuid.New()
	repo.candidates[id] = domain.Candidate{ID: id, Status: status, StatusChangedAt: clock}
	return svc, repo, guards, bus, id
}

func TestCreateStartsAsNew(t *testing.T) {
	svc, _, _, _, _ := setup(domain.StatusNew)
	c, err := svc.Create(context.Background(), domain.Registration{
		FullName: "Bilal Khan",
		CNIC:     "35202-7654321-3",
		Phone:    "+92 300 7654321",
		Trade:    "welder",
	}, uuid.New())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.Status != domain.StatusNew {
		t.Fatalf("expected new, got %s", c.Status)
	}
}

func TestTrainingCompletedEventMovesToVisaProcess(t *testing.T) {
	svc, repo, guards, bus, id := setup(domain.StatusTraining)
	guards.set(domain.Guards{TrainingCompleted: true})

	err := svc.Handle(context.Background(), events.TrainingCompleted{CandidateID: id, TrainingID: uuid.New(), CompletedAt: clock})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	got, _ := svc.Get(context.Background(), id)
	if got.Status != domain.StatusVisaProcess {
		t.Fatalf("expected visa_process, got %s", got.Status)
	}
	changes := bus.statusChanges()
	if len(changes) != 1 || changes[0].From != "training" || changes[0].To != "visa_process" || changes[0].Source != domain.SourceTraining {
		t.Fatalf("unexpected status events %+v", changes)
	}
	if len(repo.history) != 1 || repo.history[0].ActorID != nil {
		t.Fatalf("expected one system history entry, got %+v", repo.history)
	}
}

func TestConcurrentSyncConverges(t *testing.T) {
	svc, _, guards, bus, id := setup(domain.StatusTraining)
	guards.set(domain.Guards{TrainingCompleted: true})

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.SyncFromTracker(context.Background(), id, domain.StatusVisaProcess, domain.SourceTraining); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("sync: %v", err)
	}

	got, _ := svc.Get(context.Background(), id)
	if got.Status != domain.StatusVisaProcess || got.Version != 1 {
		t.Fatalf("expected a single applied transition, got %+v", got)
	}
	if n := len(bus.statusChanges()); n != 1 {
		t.Fatalf("expected exactly one status event, got %d", n)
	}
}

func TestAttemptTransitionGuardFailure(t *testing.T) {
	svc, _, guards, bus, id := setup(domain.StatusVisaProcess)
	guards.set(domain.Guards{TrainingCompleted: true})

	_, err := svc.AttemptTransition(context.Background(), TransitionInput{CandidateID: id, Target: domain.StatusReady, ActorID: uuid.New()})
	if !apperr.Is(err, apperr.KindInvalidTransition) {
		t.Fatalf("expected InvalidTransition, got %v", err)
	}
	got, _ := svc.Get(context.Background(), id)
	if got.Status != domain.StatusVisaProcess {
		t.Fatalf("status must not change, got %s", got.Status)
	}
	if len(bus.statusChanges()) != 0 {
		t.Fatal("no event expected on a rejected transition")
	}
}

func TestRejectAndTerminalSync(t *testing.T) {
	svc, _, guards, _, id := setup(domain.StatusTraining)
	actor := uuid.New()
	got, err := svc.Reject(context.Background(), id, "failed medical", actor)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if got.Status != domain.StatusRejected || got.RejectionReason == nil || *got.RejectionReason != "failed medical" {
		t.Fatalf("unexpected candidate %+v", got)
	}

	guards.set(domain.Guards{TrainingCompleted: true})
	got, err = svc.SyncFromTracker(context.Background(), id, domain.StatusVisaProcess, domain.SourceTraining)
	if err != nil || got.Status != domain.StatusRejected {
		t.Fatalf("sync must leave rejected candidates alone, got %s %v", got.Status, err)
	}
}

func TestVisaIssuedAfterReentryDoesNotRegress(t *testing.T) {
	svc, _, guards, _, id := setup(domain.StatusReady)
	guards.set(domain.Guards{TrainingCompleted: true, VisaIssued: true})

	if err := svc.Handle(context.Background(), events.TrainingCompleted{CandidateID: id}); err != nil {
		t.Fatalf("handle: %v", err)
	}
	got, _ := svc.Get(context.Background(), id)
	if got.Status != domain.StatusReady {
		t.Fatalf("late training completion must not regress, got %s", got.Status)
	}
}

func TestReconcileRetriesOnce(t *testing.T) {
	svc, repo, guards, _, id := setup(domain.StatusRegistered)
	guards.set(domain.Guards{TrainingCompleted: true, VisaIssued: true, Departed: true})

	repo.conflicts = 1
	got, err := svc.Reconcile(context.Background(), id, uuid.New())
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if got.Status != domain.StatusDeparted {
		t.Fatalf("expected departed, got %s", got.Status)
	}
	if len(repo.history) != 1 || repo.history[0].Source != domain.SourceReconcile {
		t.Fatalf("expected one reconcile history entry, got %+v", repo.history)
	}

	svc2, repo2, guards2, _, id2 := setup(domain.StatusNew)
	guards2.set(domain.Guards{TrainingCompleted: true})
	repo2.conflicts = 2
	if _, err := svc2.Reconcile(context.Background(), id2, uuid.New()); !apperr.Is(err, apperr.KindConcurrencyConflict) {
		t.Fatalf("expected second conflict to surface, got %v", err)
	}
}
