package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"scenario-solver-service/internal/domain"
)

// DefinitionLoader loads scenario definition JSONB from Postgres.
type DefinitionLoader struct {
	pool *pgxpool.Pool
}

func NewDefinitionLoader(pool *pgxpool.Pool) *DefinitionLoader {
	return &DefinitionLoader{pool: pool}
}

// LoadDefinition goes through the same schema and shape checks as file
// content, so a hand-edited row cannot bypass them.
func (l *DefinitionLoader) LoadDefinition(ctx context.Context, scenarioID string) (domain.ScenarioDefinition, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM scenarios WHERE id=$1`, scenarioID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ScenarioDefinition{}, domain.ErrScenarioNotFound
	}
	if err != nil {
		return domain.ScenarioDefinition{}, fmt.Errorf("load scenario: %w", err)
	}
	def, err := domain.ParseDefinitionJSON(raw)
	if err != nil {
		return domain.ScenarioDefinition{}, err
	}
	if def.ID != scenarioID {
		return domain.ScenarioDefinition{}, &domain.MalformedDefinitionError{
			ScenarioID: scenarioID,
			Reason:     fmt.Sprintf("stored document has id %q", def.ID),
		}
	}
	return def, nil
}
