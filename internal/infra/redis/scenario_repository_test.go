package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"scenario-solver-service/internal/app"
	"scenario-solver-service/internal/domain"
	"scenario-solver-service/internal/engine"
	"scenario-solver-service/internal/infra/memory"
)

func TestScenarioRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)
	loader := newCountingLoader(sampleDefinition())
	repo := NewScenarioRepository(client, loader, time.Minute, zap.NewNop())

	first, err := repo.GetScenario(context.Background(), "scenario-1")
	if err != nil {
		t.Fatalf("get scenario: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists("scenario:scenario-1:published") {
		t.Fatalf("expected published scenario to be cached")
	}
	if ttl := mr.TTL("scenario:scenario-1:published"); ttl < time.Minute || ttl > time.Minute+6*time.Second {
		t.Fatalf("unexpected ttl %v", ttl)
	}

	// Second call should hit cache, loader not incremented.
	second, err := repo.GetScenario(context.Background(), "scenario-1")
	if err != nil {
		t.Fatalf("get scenario 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if second.Report.ComputedPerfectScore != first.Report.ComputedPerfectScore || !second.Report.Usable() {
		t.Fatalf("cached report differs: %+v", second.Report)
	}
	opt, ok := second.Definition.Steps["s1"].Option("o2")
	if !ok {
		t.Fatalf("cached definition lost option o2")
	}
	if next, ok := opt.Transition.Next(); !ok || next != "s2" {
		t.Fatalf("cached definition lost transition: %+v", opt)
	}

	if err := repo.Invalidate(context.Background(), "scenario-1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	_, _ = repo.GetScenario(context.Background(), "scenario-1")
	if loader.calls != 2 {
		t.Fatalf("expected reload after invalidate, loader calls=%d", loader.calls)
	}
}

func TestScenarioRepositoryNeverCachesRejectedScenarios(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	broken := sampleDefinition()
	broken.Steps["s2"] = domain.Step{
		ID:      "s2",
		Options: []domain.Option{{ID: "loop", Score: 1, Transition: domain.Continue("s1")}},
	}
	repo := NewScenarioRepository(newClient(mr), newCountingLoader(broken), time.Minute, nil)

	_, err = repo.GetScenario(context.Background(), "scenario-1")
	var notPublishable *domain.NotPublishableError
	if !errors.As(err, &notPublishable) {
		t.Fatalf("expected not publishable, got %v", err)
	}
	if !errors.Is(notPublishable.Report.Errors[0], domain.ErrCyclicGraph) {
		t.Fatalf("expected cycle error, got %v", notPublishable.Report.Errors)
	}
	if mr.Exists("scenario:scenario-1:published") {
		t.Fatalf("rejected scenario must not be cached")
	}
}

func TestScenarioRepositoryIgnoresCorruptEntries(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	if err := mr.Set("scenario:scenario-1:published", "{not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	loader := newCountingLoader(sampleDefinition())
	repo := NewScenarioRepository(newClient(mr), loader, time.Minute, nil)

	if _, err := repo.GetScenario(context.Background(), "scenario-1"); err != nil {
		t.Fatalf("get scenario: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected corrupt entry to be reloaded, loader calls=%d", loader.calls)
	}
}

type countingLoader struct {
	app.ScenarioLoader
	calls int
}

func newCountingLoader(defs ...domain.ScenarioDefinition) *countingLoader {
	return &countingLoader{
		ScenarioLoader: app.NewPublishingLoader(memory.NewStaticDefinitionLoader(defs...), engine.New(nil), zap.NewNop()),
	}
}

func (l *countingLoader) LoadScenario(ctx context.Context, scenarioID string) (domain.PublishedScenario, error) {
	l.calls++
	return l.ScenarioLoader.LoadScenario(ctx, scenarioID)
}

func sampleDefinition() domain.ScenarioDefinition {
	return domain.ScenarioDefinition{
		ID:           "scenario-1",
		Title:        "Greeting",
		StartStepID:  "s1",
		PassingScore: 2,
		Steps: map[string]domain.Step{
			"s1": {
				ID:        "s1",
				Situation: "Someone walks in.",
				Options: []domain.Option{
					{ID: "o1", Text: "Ignore them", Score: -1},
					{ID: "o2", Text: "Say hello", Score: 1, IsCorrect: true, Transition: domain.Continue("s2")},
				},
			},
			"s2": {
				ID:        "s2",
				Situation: "They ask for help.",
				Options: []domain.Option{
					{ID: "o3", Text: "Help", Score: 2, IsCorrect: true},
				},
			},
		},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
