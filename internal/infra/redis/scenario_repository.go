package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"scenario-solver-service/internal/app"
	"scenario-solver-service/internal/domain"
)

// ScenarioRepository caches published scenarios in Redis and falls back to a
// loader on cache miss. Entries are stored as:
//
//	SET scenario:{scenarioID}:published {json PublishedScenario} EX ttl
//
// Only scenarios that passed validation are ever written, so instances
// sharing the cache never re-run validation on a hit.
type ScenarioRepository struct {
	client *redis.Client
	loader app.ScenarioLoader
	ttl    time.Duration
	logger *zap.Logger
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex
}

func NewScenarioRepository(client *redis.Client, loader app.ScenarioLoader, ttl time.Duration, logger *zap.Logger) *ScenarioRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScenarioRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		logger: logger.Named("scenario_cache"),
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *ScenarioRepository) GetScenario(ctx context.Context, scenarioID string) (domain.PublishedScenario, error) {
	if scenario, ok := r.cached(ctx, scenarioID); ok {
		return scenario, nil
	}

	result, err, _ := r.sf.Do(scenarioID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if scenario, ok := r.cached(ctx, scenarioID); ok {
			return scenario, nil
		}

		scenario, err := r.loader.LoadScenario(ctx, scenarioID)
		if err != nil {
			return domain.PublishedScenario{}, err
		}

		payload, err := json.Marshal(scenario)
		if err != nil {
			return domain.PublishedScenario{}, err
		}
		if err := r.client.Set(ctx, r.key(scenarioID), payload, r.ttlWithJitter()).Err(); err != nil {
			// The loaded scenario is still good; only caching failed.
			r.logger.Warn("Failed to cache scenario", zap.String("scenarioID", scenarioID), zap.Error(err))
		}
		return scenario, nil
	})
	if err != nil {
		return domain.PublishedScenario{}, err
	}
	return result.(domain.PublishedScenario), nil
}

// Invalidate drops the cached copy so the next read reloads and revalidates.
func (r *ScenarioRepository) Invalidate(ctx context.Context, scenarioID string) error {
	return r.client.Del(ctx, r.key(scenarioID)).Err()
}

func (r *ScenarioRepository) cached(ctx context.Context, scenarioID string) (domain.PublishedScenario, bool) {
	payload, err := r.client.Get(ctx, r.key(scenarioID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn("Scenario cache read failed", zap.String("scenarioID", scenarioID), zap.Error(err))
		}
		return domain.PublishedScenario{}, false
	}
	var scenario domain.PublishedScenario
	if err := json.Unmarshal(payload, &scenario); err != nil {
		r.logger.Warn("Discarding undecodable cached scenario", zap.String("scenarioID", scenarioID), zap.Error(err))
		return domain.PublishedScenario{}, false
	}
	return scenario, true
}

func (r *ScenarioRepository) key(scenarioID string) string {
	return "scenario:" + scenarioID + ":published"
}

func (r *ScenarioRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
