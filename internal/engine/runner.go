package engine

import (
	"fmt"

	"scenario-solver-service/internal/domain"
)

// Start returns the initial snapshot Active(startStep, 0, []).
func (e *Engine) Start(def domain.ScenarioDefinition) (domain.SessionState, error) {
	if _, ok := def.Steps[def.StartStepID]; !ok {
		return domain.SessionState{}, &domain.InvalidSessionStateError{
			Reason: fmt.Sprintf("start step %q not in scenario %q", def.StartStepID, def.ID),
		}
	}
	return domain.NewActiveSession(def.ID, def.StartStepID, 0, nil), nil
}

// Choose applies one option selection and returns the next snapshot. The
// input session is left untouched, so calling Choose twice with the same
// arguments yields equal results.
func (e *Engine) Choose(def domain.ScenarioDefinition, session domain.SessionState, optionID string) (domain.SessionState, error) {
	if session.IsTerminal() {
		return domain.SessionState{}, &domain.InvalidSessionStateError{Reason: "session already finished"}
	}
	if session.ScenarioID() != def.ID {
		return domain.SessionState{}, &domain.InvalidSessionStateError{
			Reason: fmt.Sprintf("session belongs to scenario %q, not %q", session.ScenarioID(), def.ID),
		}
	}
	step, ok := def.Steps[session.CurrentStepID()]
	if !ok {
		return domain.SessionState{}, &domain.InvalidSessionStateError{
			Reason: fmt.Sprintf("current step %q not in scenario %q", session.CurrentStepID(), def.ID),
		}
	}
	opt, ok := step.Option(optionID)
	if !ok {
		return domain.SessionState{}, &domain.UnknownOptionError{StepID: step.ID, OptionID: optionID}
	}

	score := session.Score() + opt.Score
	path := append(session.Path(), domain.PathEntry{StepID: step.ID, OptionID: opt.ID})

	if next, ok := opt.Transition.Next(); ok {
		return domain.NewActiveSession(def.ID, next, score, path), nil
	}
	return domain.NewTerminalSession(def.ID, score, path), nil
}
