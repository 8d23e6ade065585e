package domain

import (
	"encoding/json"
	"fmt"
)

// Transition says what happens after an option is picked: either the scenario
// continues at another step or it ends. The zero value terminates.
type Transition struct {
	next string
}

// Continue returns a transition to the given step.
func Continue(nextStepID string) Transition {
	return Transition{next: nextStepID}
}

// Terminate returns a transition that ends the scenario.
func Terminate() Transition {
	return Transition{}
}

// Next returns the target step and true, or "" and false for a terminal transition.
func (t Transition) Next() (string, bool) {
	return t.next, t.next != ""
}

// IsTerminal reports whether selecting the option ends the scenario.
func (t Transition) IsTerminal() bool {
	return t.next == ""
}

func (t Transition) String() string {
	if t.IsTerminal() {
		return "terminate"
	}
	return "continue(" + t.next + ")"
}

// Option is one learner-facing choice inside a Step.
type Option struct {
	ID          string
	Text        string
	Consequence string
	Score       int
	// IsCorrect only drives UI styling; grading looks at Score alone.
	IsCorrect  bool
	Transition Transition
}

type optionWire struct {
	ID          string  `json:"id"`
	Text        string  `json:"text"`
	Consequence string  `json:"consequence,omitempty"`
	Score       int     `json:"score"`
	IsCorrect   bool    `json:"isCorrect,omitempty"`
	NextStepID  *string `json:"nextStepId,omitempty"`
}

func (o Option) MarshalJSON() ([]byte, error) {
	w := optionWire{
		ID:          o.ID,
		Text:        o.Text,
		Consequence: o.Consequence,
		Score:       o.Score,
		IsCorrect:   o.IsCorrect,
	}
	if next, ok := o.Transition.Next(); ok {
		w.NextStepID = &next
	}
	return json.Marshal(w)
}

func (o *Option) UnmarshalJSON(data []byte) error {
	var w optionWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.NextStepID != nil && *w.NextStepID == "" {
		return &MalformedDefinitionError{Reason: fmt.Sprintf("option %q has an empty nextStepId", w.ID)}
	}
	*o = Option{
		ID:          w.ID,
		Text:        w.Text,
		Consequence: w.Consequence,
		Score:       w.Score,
		IsCorrect:   w.IsCorrect,
	}
	if w.NextStepID != nil {
		o.Transition = Continue(*w.NextStepID)
	}
	return nil
}

// Step is one situation node of a scenario.
type Step struct {
	ID        string   `json:"id"`
	Situation string   `json:"situation"`
	Context   string   `json:"context,omitempty"`
	Options   []Option `json:"options"`
}

// Option looks up an option by id.
func (s Step) Option(optionID string) (Option, bool) {
	for _, opt := range s.Options {
		if opt.ID == optionID {
			return opt, true
		}
	}
	return Option{}, false
}

// ScenarioDefinition is the authored step graph. It is shared read-only
// between all attempts once validated.
type ScenarioDefinition struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	Description  string          `json:"description,omitempty"`
	StartStepID  string          `json:"startStepId"`
	Steps        map[string]Step `json:"steps"`
	PassingScore int             `json:"passingScore"`
	// AuthoredPerfectScore is a hint from the author; grading never uses it.
	AuthoredPerfectScore *int `json:"perfectScore,omitempty"`
}

// NewScenarioDefinition assembles a definition from a list of steps and checks
// its shape.
func NewScenarioDefinition(id, title, startStepID string, passingScore int, authoredPerfectScore *int, steps ...Step) (ScenarioDefinition, error) {
	def := ScenarioDefinition{
		ID:                   id,
		Title:                title,
		StartStepID:          startStepID,
		Steps:                make(map[string]Step, len(steps)),
		PassingScore:         passingScore,
		AuthoredPerfectScore: authoredPerfectScore,
	}
	for _, step := range steps {
		if _, dup := def.Steps[step.ID]; dup {
			return ScenarioDefinition{}, &MalformedDefinitionError{
				ScenarioID: id,
				Reason:     fmt.Sprintf("duplicate step id %q", step.ID),
			}
		}
		def.Steps[step.ID] = step
	}
	if err := def.CheckShape(); err != nil {
		return ScenarioDefinition{}, err
	}
	return def, nil
}

// CheckShape rejects definitions that cannot even be treated as a graph.
// Graph-level problems (dangling references, cycles) are left to the validator.
func (d ScenarioDefinition) CheckShape() error {
	malformed := func(format string, args ...any) error {
		return &MalformedDefinitionError{ScenarioID: d.ID, Reason: fmt.Sprintf(format, args...)}
	}
	if d.StartStepID == "" {
		return malformed("missing startStepId")
	}
	if len(d.Steps) == 0 {
		return malformed("missing steps")
	}
	for key, step := range d.Steps {
		if step.ID == "" {
			return malformed("step %q has no id", key)
		}
		if step.ID != key {
			return malformed("step keyed %q declares id %q", key, step.ID)
		}
		if len(step.Options) == 0 {
			return malformed("step %q has no options", key)
		}
		seen := make(map[string]struct{}, len(step.Options))
		for _, opt := range step.Options {
			if opt.ID == "" {
				return malformed("step %q has an option without id", key)
			}
			if _, dup := seen[opt.ID]; dup {
				return malformed("step %q has duplicate option id %q", key, opt.ID)
			}
			seen[opt.ID] = struct{}{}
		}
	}
	return nil
}

// IntPtr is a small helper for authored perfect scores in literals.
func IntPtr(v int) *int {
	return &v
}
