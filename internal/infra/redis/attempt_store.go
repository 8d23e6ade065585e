package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"scenario-solver-service/internal/domain"
)

// AttemptStore keeps attempt snapshots in Redis so any instance can serve the
// next choice. Each attempt is one JSON value under scenario:attempt:{id},
// refreshed to ttl on every write.
type AttemptStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewAttemptStore(client *redis.Client, ttl time.Duration) *AttemptStore {
	return &AttemptStore{client: client, ttl: ttl}
}

func (s *AttemptStore) Create(ctx context.Context, attempt domain.Attempt) error {
	payload, err := json.Marshal(attempt)
	if err != nil {
		return err
	}
	ok, err := s.client.SetNX(ctx, s.key(attempt.ID), payload, s.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("attempt %q already exists", attempt.ID)
	}
	return nil
}

func (s *AttemptStore) Get(ctx context.Context, attemptID string) (domain.Attempt, error) {
	return s.get(ctx, s.client, attemptID)
}

// Replace writes attempt only if the stored version still equals
// expectedVersion. The key is watched, so a concurrent writer between the
// read and the MULTI/EXEC makes the transaction fail with a version conflict.
func (s *AttemptStore) Replace(ctx context.Context, expectedVersion int, attempt domain.Attempt) error {
	payload, err := json.Marshal(attempt)
	if err != nil {
		return err
	}
	key := s.key(attempt.ID)

	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := s.get(ctx, tx, attempt.ID)
		if err != nil {
			return err
		}
		if current.Version != expectedVersion {
			return domain.ErrVersionConflict
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, s.ttl)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return domain.ErrVersionConflict
	}
	return err
}

func (s *AttemptStore) Delete(ctx context.Context, attemptID string) error {
	return s.client.Del(ctx, s.key(attemptID)).Err()
}

func (s *AttemptStore) get(ctx context.Context, cmd stringGetter, attemptID string) (domain.Attempt, error) {
	payload, err := cmd.Get(ctx, s.key(attemptID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	if err != nil {
		return domain.Attempt{}, err
	}
	var attempt domain.Attempt
	if err := json.Unmarshal(payload, &attempt); err != nil {
		return domain.Attempt{}, fmt.Errorf("decode attempt %q: %w", attemptID, err)
	}
	return attempt, nil
}

// stringGetter is satisfied by both *redis.Client and *redis.Tx.
type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *AttemptStore) key(attemptID string) string {
	return "scenario:attempt:" + attemptID
}
