package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"scenario-solver-service/internal/app"
	"scenario-solver-service/internal/domain"
)

// ScenarioRepository caches published scenarios with TTL so validation runs
// once per load rather than once per request.
type ScenarioRepository struct {
	loader app.ScenarioLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex

	mu    sync.RWMutex
	cache map[string]cachedScenario
}

type cachedScenario struct {
	scenario  domain.PublishedScenario
	expiresAt time.Time
}

func NewScenarioRepository(loader app.ScenarioLoader, ttl time.Duration) *ScenarioRepository {
	return &ScenarioRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedScenario),
	}
}

func (r *ScenarioRepository) GetScenario(ctx context.Context, scenarioID string) (domain.PublishedScenario, error) {
	if scenario, ok := r.cached(scenarioID); ok {
		return scenario, nil
	}

	result, err, _ := r.sf.Do(scenarioID, func() (interface{}, error) {
		if scenario, ok := r.cached(scenarioID); ok {
			return scenario, nil
		}

		scenario, err := r.loader.LoadScenario(ctx, scenarioID)
		if err != nil {
			return domain.PublishedScenario{}, err
		}

		r.mu.Lock()
		r.cache[scenarioID] = cachedScenario{
			scenario:  scenario,
			expiresAt: r.clock().Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return scenario, nil
	})
	if err != nil {
		return domain.PublishedScenario{}, err
	}
	return result.(domain.PublishedScenario), nil
}

// Purge drops every cached scenario so edited content is revalidated on
// the next read.
func (r *ScenarioRepository) Purge() {
	r.mu.Lock()
	r.cache = make(map[string]cachedScenario)
	r.mu.Unlock()
}

func (r *ScenarioRepository) cached(scenarioID string) (domain.PublishedScenario, bool) {
	now := r.clock()
	r.mu.RLock()
	defer r.mu.RUnlock()
	if entry, ok := r.cache[scenarioID]; ok && entry.expiresAt.After(now) {
		return entry.scenario, true
	}
	return domain.PublishedScenario{}, false
}

func (r *ScenarioRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticDefinitionLoader is a simple loader backed by an in-memory map (useful for tests/demos).
type StaticDefinitionLoader struct {
	definitions map[string]domain.ScenarioDefinition
}

func NewStaticDefinitionLoader(definitions ...domain.ScenarioDefinition) *StaticDefinitionLoader {
	m := make(map[string]domain.ScenarioDefinition, len(definitions))
	for _, def := range definitions {
		m[def.ID] = def
	}
	return &StaticDefinitionLoader{definitions: m}
}

func (l *StaticDefinitionLoader) LoadDefinition(_ context.Context, scenarioID string) (domain.ScenarioDefinition, error) {
	if def, ok := l.definitions[scenarioID]; ok {
		return def, nil
	}
	return domain.ScenarioDefinition{}, domain.ErrScenarioNotFound
}
