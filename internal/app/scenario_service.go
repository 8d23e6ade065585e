package app

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"scenario-solver-service/internal/domain"
	"scenario-solver-service/internal/engine"
	"scenario-solver-service/internal/metrics"
)

// ScenarioRepository serves published scenarios (from cache/backing store).
type ScenarioRepository interface {
	GetScenario(ctx context.Context, scenarioID string) (domain.PublishedScenario, error)
}

// AttemptRepository abstracts how attempt snapshots are stored (in-memory, Redis, etc).
// Replace must fail with domain.ErrVersionConflict when the stored version is
// not expectedVersion.
type AttemptRepository interface {
	Create(ctx context.Context, attempt domain.Attempt) error
	Get(ctx context.Context, attemptID string) (domain.Attempt, error)
	Replace(ctx context.Context, expectedVersion int, attempt domain.Attempt) error
	Delete(ctx context.Context, attemptID string) error
}

// ResultRecorder persists graded attempts. Recording the same attempt twice
// must be harmless.
type ResultRecorder interface {
	RecordResult(ctx context.Context, result domain.AttemptResult) error
}

// ScenarioService contains the scenario attempt use cases.
type ScenarioService struct {
	scenarios ScenarioRepository
	attempts  AttemptRepository
	results   ResultRecorder
	engine    *engine.Engine
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string
}

func NewScenarioService(scenarios ScenarioRepository, attempts AttemptRepository, results ResultRecorder, eng *engine.Engine, logger *zap.Logger) *ScenarioService {
	return &ScenarioService{
		scenarios: scenarios,
		attempts:  attempts,
		results:   results,
		engine:    eng,
		logger:    logger.Named("scenario_service"),
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// WithClock is test-only for deterministic timestamps and ids.
func (s *ScenarioService) WithClock(now func() time.Time, newID func() string) *ScenarioService {
	clone := *s
	clone.now = now
	clone.newID = newID
	return &clone
}

// StartAttempt opens a new attempt at the scenario's start step.
func (s *ScenarioService) StartAttempt(ctx context.Context, scenarioID, userID string) (domain.Attempt, domain.StepView, error) {
	pub, err := s.scenarios.GetScenario(ctx, scenarioID)
	if err != nil {
		return domain.Attempt{}, domain.StepView{}, err
	}

	session, err := s.engine.Start(pub.Definition)
	if err != nil {
		return domain.Attempt{}, domain.StepView{}, err
	}

	now := s.now()
	attempt := domain.Attempt{
		ID:         s.newID(),
		ScenarioID: scenarioID,
		UserID:     userID,
		Version:    1,
		Session:    session,
		StartedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.attempts.Create(ctx, attempt); err != nil {
		s.logger.Error("Failed to store new attempt", zap.String("scenarioID", scenarioID), zap.Error(err))
		return domain.Attempt{}, domain.StepView{}, err
	}

	metrics.AttemptsStartedTotal.Inc()
	s.logger.Info("Attempt started",
		zap.String("attemptID", attempt.ID),
		zap.String("scenarioID", scenarioID),
		zap.String("userID", userID),
	)
	return attempt, domain.NewStepView(pub.Definition.Steps[session.CurrentStepID()]), nil
}

// CurrentStep returns the step an active attempt is waiting on.
func (s *ScenarioService) CurrentStep(ctx context.Context, attemptID, userID string) (domain.StepView, error) {
	attempt, err := s.loadOwned(ctx, attemptID, userID)
	if err != nil {
		return domain.StepView{}, err
	}
	if attempt.Session.IsTerminal() {
		return domain.StepView{}, &domain.InvalidSessionStateError{Reason: "session already finished"}
	}
	pub, err := s.scenarios.GetScenario(ctx, attempt.ScenarioID)
	if err != nil {
		return domain.StepView{}, err
	}
	step, ok := pub.Definition.Steps[attempt.Session.CurrentStepID()]
	if !ok {
		return domain.StepView{}, &domain.InvalidSessionStateError{Reason: "current step no longer exists"}
	}
	return domain.NewStepView(step), nil
}

// Choose applies the learner's option to the attempt. expectedVersion must
// match the stored attempt; a double-submitted choice loses with
// domain.ErrVersionConflict instead of advancing twice.
func (s *ScenarioService) Choose(ctx context.Context, attemptID, userID string, expectedVersion int, optionID string) (domain.ChoiceOutcome, error) {
	log := s.logger.With(
		zap.String("attemptID", attemptID),
		zap.String("userID", userID),
		zap.String("optionID", optionID),
	)

	attempt, err := s.loadOwned(ctx, attemptID, userID)
	if err != nil {
		return domain.ChoiceOutcome{}, err
	}
	if attempt.Version != expectedVersion {
		metrics.ChoicesTotal.WithLabelValues("conflict").Inc()
		log.Warn("Stale attempt version", zap.Int("expected", expectedVersion), zap.Int("stored", attempt.Version))
		return domain.ChoiceOutcome{}, domain.ErrVersionConflict
	}

	pub, err := s.scenarios.GetScenario(ctx, attempt.ScenarioID)
	if err != nil {
		return domain.ChoiceOutcome{}, err
	}

	stepID := attempt.Session.CurrentStepID()
	next, err := s.engine.Choose(pub.Definition, attempt.Session, optionID)
	if err != nil {
		metrics.ChoicesTotal.WithLabelValues("rejected").Inc()
		log.Warn("Choice rejected", zap.String("stepID", stepID), zap.Error(err))
		return domain.ChoiceOutcome{}, err
	}
	opt, _ := pub.Definition.Steps[stepID].Option(optionID)

	updated := attempt
	updated.Version = attempt.Version + 1
	updated.Session = next
	updated.UpdatedAt = s.now()
	if err := s.attempts.Replace(ctx, expectedVersion, updated); err != nil {
		if errors.Is(err, domain.ErrVersionConflict) {
			metrics.ChoicesTotal.WithLabelValues("conflict").Inc()
			log.Warn("Attempt changed concurrently")
		} else {
			log.Error("Failed to store attempt", zap.Error(err))
		}
		return domain.ChoiceOutcome{}, err
	}

	outcome := domain.ChoiceOutcome{
		Attempt:     updated,
		OptionID:    opt.ID,
		Consequence: opt.Consequence,
		ScoreDelta:  opt.Score,
	}

	if !next.IsTerminal() {
		metrics.ChoicesTotal.WithLabelValues("continued").Inc()
		view := domain.NewStepView(pub.Definition.Steps[next.CurrentStepID()])
		outcome.NextStep = &view
		return outcome, nil
	}

	metrics.ChoicesTotal.WithLabelValues("finished").Inc()
	grade, err := s.complete(ctx, updated, pub.Report)
	if err != nil {
		// The terminal snapshot is stored; Grade can be retried.
		return outcome, err
	}
	outcome.Grade = &grade
	return outcome, nil
}

// Grade returns the result of a finished attempt, recording it again if
// needed. Safe to retry.
func (s *ScenarioService) Grade(ctx context.Context, attemptID, userID string) (domain.GradeResult, error) {
	attempt, err := s.loadOwned(ctx, attemptID, userID)
	if err != nil {
		return domain.GradeResult{}, err
	}
	pub, err := s.scenarios.GetScenario(ctx, attempt.ScenarioID)
	if err != nil {
		return domain.GradeResult{}, err
	}
	return s.complete(ctx, attempt, pub.Report)
}

// Abandon discards an attempt. Starting over is Abandon followed by StartAttempt.
func (s *ScenarioService) Abandon(ctx context.Context, attemptID, userID string) error {
	if _, err := s.loadOwned(ctx, attemptID, userID); err != nil {
		return err
	}
	if err := s.attempts.Delete(ctx, attemptID); err != nil {
		return err
	}
	s.logger.Info("Attempt abandoned", zap.String("attemptID", attemptID), zap.String("userID", userID))
	return nil
}

// Report returns the validation report of a published scenario.
func (s *ScenarioService) Report(ctx context.Context, scenarioID string) (domain.ValidationReport, error) {
	pub, err := s.scenarios.GetScenario(ctx, scenarioID)
	if err != nil {
		return domain.ValidationReport{}, err
	}
	return pub.Report, nil
}

func (s *ScenarioService) complete(ctx context.Context, attempt domain.Attempt, report domain.ValidationReport) (domain.GradeResult, error) {
	grade, err := s.engine.Grade(attempt.Session, report)
	if err != nil {
		return domain.GradeResult{}, err
	}

	result := domain.AttemptResult{
		AttemptID:   attempt.ID,
		ScenarioID:  attempt.ScenarioID,
		UserID:      attempt.UserID,
		Grade:       grade,
		Path:        attempt.Session.Path(),
		CompletedAt: attempt.UpdatedAt,
	}
	if err := s.results.RecordResult(ctx, result); err != nil {
		s.logger.Error("Failed to record attempt result", zap.String("attemptID", attempt.ID), zap.Error(err))
		return domain.GradeResult{}, err
	}

	metrics.GradesTotal.WithLabelValues(strconv.FormatBool(grade.Passed)).Inc()
	metrics.GradePercentage.Observe(grade.Percentage)
	s.logger.Info("Attempt graded",
		zap.String("attemptID", attempt.ID),
		zap.String("scenarioID", attempt.ScenarioID),
		zap.Int("finalScore", grade.FinalScore),
		zap.Bool("passed", grade.Passed),
		zap.Float64("percentage", grade.Percentage),
	)
	return grade, nil
}

// loadOwned hides attempts that belong to someone else behind ErrAttemptNotFound.
func (s *ScenarioService) loadOwned(ctx context.Context, attemptID, userID string) (domain.Attempt, error) {
	attempt, err := s.attempts.Get(ctx, attemptID)
	if err != nil {
		return domain.Attempt{}, err
	}
	if attempt.UserID != userID {
		s.logger.Warn("User attempted to access attempt they do not own",
			zap.String("attemptID", attemptID),
			zap.String("userID", userID),
		)
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	return attempt, nil
}
