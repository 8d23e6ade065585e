package postgres

import (
	"context"
	"time"

	"github.com/uptrace/bun"
	"scenario-solver-service/internal/domain"
)

type scenarioRow struct {
	bun.BaseModel `bun:"table:scenarios"`

	ID        string                    `bun:"id,pk"`
	Title     string                    `bun:"title,notnull"`
	Data      domain.ScenarioDefinition `bun:"data,type:jsonb,notnull"`
	UpdatedAt time.Time                 `bun:"updated_at,notnull"`
}

// Seeder upserts scenario definitions into the scenarios table.
type Seeder struct {
	db  *bun.DB
	now func() time.Time
}

func NewSeeder(db *bun.DB) *Seeder {
	return &Seeder{db: db, now: time.Now}
}

// Seed writes defs in one statement. Callers validate first; the seeder
// stores whatever it is given.
func (s *Seeder) Seed(ctx context.Context, defs ...domain.ScenarioDefinition) error {
	if len(defs) == 0 {
		return nil
	}
	now := s.now().UTC()
	rows := make([]scenarioRow, 0, len(defs))
	for _, def := range defs {
		rows = append(rows, scenarioRow{ID: def.ID, Title: def.Title, Data: def, UpdatedAt: now})
	}
	_, err := s.db.NewInsert().
		Model(&rows).
		On("CONFLICT (id) DO UPDATE").
		Set("title = EXCLUDED.title").
		Set("data = EXCLUDED.data").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}
