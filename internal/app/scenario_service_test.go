package app_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"scenario-solver-service/internal/app"
	"scenario-solver-service/internal/domain"
	"scenario-solver-service/internal/engine"
	"scenario-solver-service/internal/infra/memory"
)

func TestStartAttemptShowsFirstStep(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()

	attempt, view, err := service.StartAttempt(ctx, "desk", "u1")
	require.NoError(t, err)

	assert.Equal(t, "attempt-1", attempt.ID)
	assert.Equal(t, 1, attempt.Version)
	assert.Equal(t, "greet", view.StepID)
	require.Len(t, view.Options, 2)
	assert.Equal(t, domain.OptionView{ID: "smile", Text: "Smile"}, view.Options[0])
}

func TestChooseThroughToGrade(t *testing.T) {
	ctx := context.Background()
	service, results := newTestService()

	attempt, _, err := service.StartAttempt(ctx, "desk", "u1")
	require.NoError(t, err)

	first, err := service.Choose(ctx, attempt.ID, "u1", 1, "smile")
	require.NoError(t, err)
	assert.Equal(t, "They smile back.", first.Consequence)
	assert.Equal(t, 10, first.ScoreDelta)
	require.NotNil(t, first.NextStep)
	assert.Equal(t, "resolve", first.NextStep.StepID)
	assert.Nil(t, first.Grade)
	assert.Equal(t, 2, first.Attempt.Version)

	second, err := service.Choose(ctx, attempt.ID, "u1", 2, "refund")
	require.NoError(t, err)
	assert.Nil(t, second.NextStep)
	require.NotNil(t, second.Grade)
	assert.Equal(t, 25, second.Grade.FinalScore)
	assert.True(t, second.Grade.Passed)
	assert.Equal(t, 100.0, second.Grade.Percentage)

	recorded, ok := results.Result(attempt.ID)
	require.True(t, ok)
	assert.Equal(t, *second.Grade, recorded.Grade)
	assert.Equal(t, []domain.PathEntry{
		{StepID: "greet", OptionID: "smile"},
		{StepID: "resolve", OptionID: "refund"},
	}, recorded.Path)

	again, err := service.Grade(ctx, attempt.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, *second.Grade, again)

	_, err = service.Choose(ctx, attempt.ID, "u1", 3, "refund")
	assert.ErrorIs(t, err, domain.ErrInvalidSessionState)
}

func TestChooseRejectsStaleVersion(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()

	attempt, _, err := service.StartAttempt(ctx, "desk", "u1")
	require.NoError(t, err)

	_, err = service.Choose(ctx, attempt.ID, "u1", 1, "smile")
	require.NoError(t, err)

	// A double-submitted click replays the old version.
	_, err = service.Choose(ctx, attempt.ID, "u1", 1, "ignore")
	assert.ErrorIs(t, err, domain.ErrVersionConflict)

	view, err := service.CurrentStep(ctx, attempt.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, "resolve", view.StepID)
}

func TestChooseUsageErrors(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()

	attempt, _, err := service.StartAttempt(ctx, "desk", "u1")
	require.NoError(t, err)

	_, err = service.Choose(ctx, attempt.ID, "u1", 1, "refund")
	assert.ErrorIs(t, err, domain.ErrUnknownOption)

	_, err = service.Choose(ctx, attempt.ID, "u2", 1, "smile")
	assert.ErrorIs(t, err, domain.ErrAttemptNotFound)

	_, err = service.Choose(ctx, "nope", "u1", 1, "smile")
	assert.ErrorIs(t, err, domain.ErrAttemptNotFound)

	_, err = service.Grade(ctx, attempt.ID, "u1")
	assert.ErrorIs(t, err, domain.ErrSessionNotTerminal)
}

func TestAbandonAndRestart(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()

	attempt, _, err := service.StartAttempt(ctx, "desk", "u1")
	require.NoError(t, err)
	_, err = service.Choose(ctx, attempt.ID, "u1", 1, "ignore")
	require.NoError(t, err)

	require.NoError(t, service.Abandon(ctx, attempt.ID, "u1"))
	_, err = service.CurrentStep(ctx, attempt.ID, "u1")
	assert.ErrorIs(t, err, domain.ErrAttemptNotFound)

	restarted, view, err := service.StartAttempt(ctx, "desk", "u1")
	require.NoError(t, err)
	assert.NotEqual(t, attempt.ID, restarted.ID)
	assert.Equal(t, "greet", view.StepID)
}

func TestUnpublishableScenarioIsRefused(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()

	_, _, err := service.StartAttempt(ctx, "broken", "u1")
	require.ErrorIs(t, err, domain.ErrScenarioNotPublishable)

	var notPublishable *domain.NotPublishableError
	require.True(t, errors.As(err, &notPublishable))
	require.Len(t, notPublishable.Report.Errors, 1)
	assert.ErrorIs(t, notPublishable.Report.Errors[0], domain.ErrDanglingReference)

	_, _, err = service.StartAttempt(ctx, "missing", "u1")
	assert.ErrorIs(t, err, domain.ErrScenarioNotFound)
}

func TestReportCarriesWarnings(t *testing.T) {
	service, _ := newTestService()

	report, err := service.Report(context.Background(), "desk")
	require.NoError(t, err)
	assert.Equal(t, 25, report.ComputedPerfectScore)
	require.Len(t, report.Warnings, 1)
	assert.Equal(t, domain.KindPerfectScoreMismatch, report.Warnings[0].Kind())
}

func TestAttemptOutlivesLaggingServiceClock(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()
	service = service.WithClock(func() time.Time { return time.Now().Add(-2 * time.Hour) }, func() string { return "lagging" })

	attempt, _, err := service.StartAttempt(ctx, "desk", "u1")
	require.NoError(t, err)

	view, err := service.CurrentStep(ctx, attempt.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, "greet", view.StepID)
}

func newTestService() (*app.ScenarioService, *memory.ResultRecorder) {
	desk := domain.ScenarioDefinition{
		ID:                   "desk",
		Title:                "Refund desk",
		StartStepID:          "greet",
		PassingScore:         20,
		AuthoredPerfectScore: domain.IntPtr(30),
		Steps: map[string]domain.Step{
			"greet": {
				ID:        "greet",
				Situation: "A customer approaches.",
				Options: []domain.Option{
					{ID: "smile", Text: "Smile", Consequence: "They smile back.", Score: 10, Transition: domain.Continue("resolve")},
					{ID: "ignore", Text: "Keep typing", Consequence: "They clear their throat.", Score: -5, Transition: domain.Continue("resolve")},
				},
			},
			"resolve": {
				ID:        "resolve",
				Situation: "They want a refund.",
				Options: []domain.Option{
					{ID: "refund", Text: "Process it", Score: 15},
					{ID: "stall", Text: "Ask them to come back later", Score: -10},
				},
			},
		},
	}
	broken := domain.ScenarioDefinition{
		ID:          "broken",
		StartStepID: "a",
		Steps: map[string]domain.Step{
			"a": {ID: "a", Options: []domain.Option{{ID: "o", Score: 1, Transition: domain.Continue("ghost")}}},
		},
	}

	eng := engine.New(nil)
	logger := zap.NewNop()
	loader := app.NewPublishingLoader(memory.NewStaticDefinitionLoader(desk, broken), eng, logger)
	scenarios := memory.NewScenarioRepository(loader, 5*time.Minute)
	results := memory.NewResultRecorder()

	ids := 0
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	service := app.NewScenarioService(scenarios, memory.NewAttemptStore(time.Hour), results, eng, logger).
		WithClock(func() time.Time { return now }, func() string {
			ids++
			return fmt.Sprintf("attempt-%d", ids)
		})
	return service, results
}
