package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"scenario-solver-service/internal/domain"
)

// AttemptStore is an in-memory implementation of app.AttemptRepository.
// Every write refreshes the attempt's lease to ttl on the store's own clock;
// attempts whose lease ran out read as not found.
type AttemptStore struct {
	ttl   time.Duration
	clock func() time.Time

	mu       sync.RWMutex
	attempts map[string]storedAttempt
}

type storedAttempt struct {
	attempt   domain.Attempt
	expiresAt time.Time
}

func NewAttemptStore(ttl time.Duration) *AttemptStore {
	return &AttemptStore{
		ttl:      ttl,
		clock:    time.Now,
		attempts: make(map[string]storedAttempt),
	}
}

func (s *AttemptStore) Create(_ context.Context, attempt domain.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, exists := s.attempts[attempt.ID]; exists && !s.expired(current) {
		return fmt.Errorf("attempt %q already exists", attempt.ID)
	}
	s.attempts[attempt.ID] = s.lease(attempt)
	return nil
}

func (s *AttemptStore) Get(_ context.Context, attemptID string) (domain.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	current, ok := s.attempts[attemptID]
	if !ok || s.expired(current) {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	return current.attempt, nil
}

func (s *AttemptStore) Replace(_ context.Context, expectedVersion int, attempt domain.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.attempts[attempt.ID]
	if !ok || s.expired(current) {
		return domain.ErrAttemptNotFound
	}
	if current.attempt.Version != expectedVersion {
		return domain.ErrVersionConflict
	}
	s.attempts[attempt.ID] = s.lease(attempt)
	return nil
}

func (s *AttemptStore) Delete(_ context.Context, attemptID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.attempts, attemptID)
	return nil
}

// Sweep drops expired attempts and reports how many were removed.
func (s *AttemptStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, current := range s.attempts {
		if s.expired(current) {
			delete(s.attempts, id)
			removed++
		}
	}
	return removed
}

func (s *AttemptStore) lease(attempt domain.Attempt) storedAttempt {
	stored := storedAttempt{attempt: attempt}
	if s.ttl > 0 {
		stored.expiresAt = s.clock().Add(s.ttl)
	}
	return stored
}

func (s *AttemptStore) expired(stored storedAttempt) bool {
	return !stored.expiresAt.IsZero() && !s.clock().Before(stored.expiresAt)
}

// ResultRecorder keeps graded results in memory, keyed by attempt.
type ResultRecorder struct {
	mu      sync.RWMutex
	results map[string]domain.AttemptResult
}

func NewResultRecorder() *ResultRecorder {
	return &ResultRecorder{results: make(map[string]domain.AttemptResult)}
}

func (r *ResultRecorder) RecordResult(_ context.Context, result domain.AttemptResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[result.AttemptID] = result
	return nil
}

// Result returns the recorded result for an attempt.
func (r *ResultRecorder) Result(attemptID string) (domain.AttemptResult, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result, ok := r.results[attemptID]
	return result, ok
}
