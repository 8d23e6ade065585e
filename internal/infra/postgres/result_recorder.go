package postgres

import (
	"context"
	"time"

	"github.com/uptrace/bun"
	"scenario-solver-service/internal/domain"
)

type attemptResultRow struct {
	bun.BaseModel `bun:"table:scenario_attempt_results"`

	AttemptID    string             `bun:"attempt_id,pk"`
	ScenarioID   string             `bun:"scenario_id,notnull"`
	UserID       string             `bun:"user_id,notnull"`
	FinalScore   int                `bun:"final_score,notnull"`
	PassingScore int                `bun:"passing_score,notnull"`
	PerfectScore int                `bun:"perfect_score,notnull"`
	Passed       bool               `bun:"passed,notnull"`
	Percentage   float64            `bun:"percentage,notnull"`
	Path         []domain.PathEntry `bun:"path,type:jsonb,notnull"`
	CompletedAt  time.Time          `bun:"completed_at,notnull"`
}

// ResultRecorder stores graded attempts in scenario_attempt_results.
// Recording an attempt again overwrites the earlier row.
type ResultRecorder struct {
	db *bun.DB
}

func NewResultRecorder(db *bun.DB) *ResultRecorder {
	return &ResultRecorder{db: db}
}

func (r *ResultRecorder) RecordResult(ctx context.Context, result domain.AttemptResult) error {
	row := attemptResultRow{
		AttemptID:    result.AttemptID,
		ScenarioID:   result.ScenarioID,
		UserID:       result.UserID,
		FinalScore:   result.Grade.FinalScore,
		PassingScore: result.Grade.PassingScore,
		PerfectScore: result.Grade.PerfectScore,
		Passed:       result.Grade.Passed,
		Percentage:   result.Grade.Percentage,
		Path:         result.Path,
		CompletedAt:  result.CompletedAt.UTC(),
	}
	_, err := r.db.NewInsert().
		Model(&row).
		On("CONFLICT (attempt_id) DO UPDATE").
		Set("final_score = EXCLUDED.final_score").
		Set("passing_score = EXCLUDED.passing_score").
		Set("perfect_score = EXCLUDED.perfect_score").
		Set("passed = EXCLUDED.passed").
		Set("percentage = EXCLUDED.percentage").
		Set("path = EXCLUDED.path").
		Set("completed_at = EXCLUDED.completed_at").
		Exec(ctx)
	return err
}

// Result reads back a recorded attempt.
func (r *ResultRecorder) Result(ctx context.Context, attemptID string) (domain.AttemptResult, error) {
	var row attemptResultRow
	if err := r.db.NewSelect().Model(&row).Where("attempt_id = ?", attemptID).Scan(ctx); err != nil {
		return domain.AttemptResult{}, err
	}
	return domain.AttemptResult{
		AttemptID:  row.AttemptID,
		ScenarioID: row.ScenarioID,
		UserID:     row.UserID,
		Grade: domain.GradeResult{
			ScenarioID:   row.ScenarioID,
			FinalScore:   row.FinalScore,
			PassingScore: row.PassingScore,
			PerfectScore: row.PerfectScore,
			Passed:       row.Passed,
			Percentage:   row.Percentage,
		},
		Path:        row.Path,
		CompletedAt: row.CompletedAt,
	}, nil
}
