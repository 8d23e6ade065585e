package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"scenario-solver-service/internal/domain"
)

func TestAttemptStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewAttemptStore(time.Hour)
	attempt := sampleAttempt(time.Now())

	if err := store.Create(ctx, attempt); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Create(ctx, attempt); err == nil {
		t.Fatalf("expected duplicate create to fail")
	}

	got, err := store.Get(ctx, "a1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Version != 1 || got.Session.CurrentStepID() != "s1" {
		t.Fatalf("unexpected attempt: %+v", got)
	}

	next := got
	next.Version = 2
	next.Session = domain.NewTerminalSession("scenario-1", 3, []domain.PathEntry{{StepID: "s1", OptionID: "o2"}})
	if err := store.Replace(ctx, 1, next); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if err := store.Replace(ctx, 1, next); !errors.Is(err, domain.ErrVersionConflict) {
		t.Fatalf("expected version conflict, got %v", err)
	}

	if err := store.Delete(ctx, "a1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, "a1"); !errors.Is(err, domain.ErrAttemptNotFound) {
		t.Fatalf("expected attempt removed, got %v", err)
	}
}

func TestAttemptStoreExpiresStaleAttempts(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewAttemptStore(10 * time.Minute)
	store.clock = func() time.Time { return now }

	if err := store.Create(ctx, sampleAttempt(now)); err != nil {
		t.Fatalf("create: %v", err)
	}
	now = now.Add(11 * time.Minute)

	if _, err := store.Get(ctx, "a1"); !errors.Is(err, domain.ErrAttemptNotFound) {
		t.Fatalf("expected expired attempt to be hidden, got %v", err)
	}
	if removed := store.Sweep(); removed != 1 {
		t.Fatalf("expected sweep to remove 1 attempt, removed %d", removed)
	}
}

func TestAttemptStoreIgnoresCallerTimestamps(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewAttemptStore(time.Hour)
	store.clock = func() time.Time { return now }

	// The caller's clock lags far behind the store's.
	if err := store.Create(ctx, sampleAttempt(now.Add(-48*time.Hour))); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.Get(ctx, "a1"); err != nil {
		t.Fatalf("expected fresh attempt regardless of UpdatedAt, got %v", err)
	}
}

func TestAttemptStoreReplaceRefreshesLease(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewAttemptStore(10 * time.Minute)
	store.clock = func() time.Time { return now }

	attempt := sampleAttempt(now)
	if err := store.Create(ctx, attempt); err != nil {
		t.Fatalf("create: %v", err)
	}
	now = now.Add(8 * time.Minute)
	next := attempt
	next.Version = 2
	if err := store.Replace(ctx, 1, next); err != nil {
		t.Fatalf("replace: %v", err)
	}

	now = now.Add(8 * time.Minute)
	got, err := store.Get(ctx, "a1")
	if err != nil {
		t.Fatalf("expected replace to extend the lease, got %v", err)
	}
	if got.Version != 2 {
		t.Fatalf("unexpected version %d", got.Version)
	}

	now = now.Add(3 * time.Minute)
	if _, err := store.Get(ctx, "a1"); !errors.Is(err, domain.ErrAttemptNotFound) {
		t.Fatalf("expected attempt to expire, got %v", err)
	}
	if err := store.Create(ctx, attempt); err != nil {
		t.Fatalf("expected expired id to be reusable, got %v", err)
	}
}

func TestResultRecorderOverwrites(t *testing.T) {
	rec := NewResultRecorder()
	ctx := context.Background()

	_ = rec.RecordResult(ctx, domain.AttemptResult{AttemptID: "a1", Grade: domain.GradeResult{FinalScore: 1}})
	_ = rec.RecordResult(ctx, domain.AttemptResult{AttemptID: "a1", Grade: domain.GradeResult{FinalScore: 1}})

	result, ok := rec.Result("a1")
	if !ok || result.Grade.FinalScore != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func sampleAttempt(now time.Time) domain.Attempt {
	return domain.Attempt{
		ID:         "a1",
		ScenarioID: "scenario-1",
		UserID:     "u1",
		Version:    1,
		Session:    domain.NewActiveSession("scenario-1", "s1", 0, nil),
		StartedAt:  now,
		UpdatedAt:  now,
	}
}
