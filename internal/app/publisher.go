package app

import (
	"context"

	"go.uber.org/zap"
	"scenario-solver-service/internal/domain"
	"scenario-solver-service/internal/engine"
	"scenario-solver-service/internal/metrics"
)

// DefinitionLoader fetches raw scenario definitions from a backing store
// (files, Postgres, static fixtures).
type DefinitionLoader interface {
	LoadDefinition(ctx context.Context, scenarioID string) (domain.ScenarioDefinition, error)
}

// ScenarioLoader yields only scenarios that passed validation.
type ScenarioLoader interface {
	LoadScenario(ctx context.Context, scenarioID string) (domain.PublishedScenario, error)
}

// PublishingLoader validates definitions as they are loaded and refuses to
// serve any with content errors.
type PublishingLoader struct {
	definitions DefinitionLoader
	engine      *engine.Engine
	logger      *zap.Logger
}

func NewPublishingLoader(definitions DefinitionLoader, eng *engine.Engine, logger *zap.Logger) *PublishingLoader {
	return &PublishingLoader{
		definitions: definitions,
		engine:      eng,
		logger:      logger.Named("publisher"),
	}
}

func (l *PublishingLoader) LoadScenario(ctx context.Context, scenarioID string) (domain.PublishedScenario, error) {
	def, err := l.definitions.LoadDefinition(ctx, scenarioID)
	if err != nil {
		return domain.PublishedScenario{}, err
	}
	return l.Publish(def)
}

// Publish validates def and returns it with its report, or a
// *domain.NotPublishableError carrying the report.
func (l *PublishingLoader) Publish(def domain.ScenarioDefinition) (domain.PublishedScenario, error) {
	log := l.logger.With(zap.String("scenarioID", def.ID))

	report, err := l.engine.Validate(def)
	if err != nil {
		metrics.ValidationsTotal.WithLabelValues("rejected").Inc()
		log.Error("Malformed scenario definition", zap.Error(err))
		return domain.PublishedScenario{}, err
	}

	for _, w := range report.Warnings {
		metrics.ValidationWarningsTotal.Inc()
		log.Warn("Scenario validation warning", zap.String("kind", string(w.Kind())), zap.String("detail", w.Error()))
	}

	if !report.Usable() {
		metrics.ValidationsTotal.WithLabelValues("rejected").Inc()
		for _, issue := range report.Errors {
			log.Error("Scenario content error", zap.String("kind", string(issue.Kind())), zap.String("detail", issue.Error()))
		}
		return domain.PublishedScenario{}, &domain.NotPublishableError{Report: report}
	}

	metrics.ValidationsTotal.WithLabelValues("published").Inc()
	log.Info("Scenario published", zap.Int("perfectScore", report.ComputedPerfectScore), zap.Int("steps", len(def.Steps)))
	return domain.PublishedScenario{Definition: def, Report: report}, nil
}
