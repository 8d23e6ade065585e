package domain

import "time"

// PublishedScenario is a definition that passed validation, served together
// with its report.
type PublishedScenario struct {
	Definition ScenarioDefinition `json:"definition"`
	Report     ValidationReport   `json:"report"`
}

// Attempt wraps one learner's session snapshot with the bookkeeping the
// service needs to persist it.
type Attempt struct {
	ID         string       `json:"id"`
	ScenarioID string       `json:"scenarioId"`
	UserID     string       `json:"userId"`
	Version    int          `json:"version"`
	Session    SessionState `json:"session"`
	StartedAt  time.Time    `json:"startedAt"`
	UpdatedAt  time.Time    `json:"updatedAt"`
}

// AttemptResult is the record written once an attempt is graded.
type AttemptResult struct {
	AttemptID   string      `json:"attemptId"`
	ScenarioID  string      `json:"scenarioId"`
	UserID      string      `json:"userId"`
	Grade       GradeResult `json:"grade"`
	Path        []PathEntry `json:"path"`
	CompletedAt time.Time   `json:"completedAt"`
}

// OptionView is what a learner sees of an option; scores and targets stay hidden.
type OptionView struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// StepView is the learner-facing rendering of a step.
type StepView struct {
	StepID    string       `json:"stepId"`
	Situation string       `json:"situation"`
	Context   string       `json:"context,omitempty"`
	Options   []OptionView `json:"options"`
}

// NewStepView strips grading data from a step.
func NewStepView(step Step) StepView {
	opts := make([]OptionView, 0, len(step.Options))
	for _, opt := range step.Options {
		opts = append(opts, OptionView{ID: opt.ID, Text: opt.Text})
	}
	return StepView{
		StepID:    step.ID,
		Situation: step.Situation,
		Context:   step.Context,
		Options:   opts,
	}
}

// ChoiceOutcome summarizes what happened after a learner picked an option.
type ChoiceOutcome struct {
	Attempt     Attempt      `json:"attempt"`
	OptionID    string       `json:"optionId"`
	Consequence string       `json:"consequence,omitempty"`
	ScoreDelta  int          `json:"scoreDelta"`
	NextStep    *StepView    `json:"nextStep,omitempty"`
	Grade       *GradeResult `json:"grade,omitempty"`
}
