package domain

import (
	"encoding/json"
	"fmt"
)

// SessionStatus distinguishes the two shapes a session snapshot can take.
type SessionStatus string

const (
	SessionActive   SessionStatus = "active"
	SessionTerminal SessionStatus = "terminal"
)

// PathEntry records one choice made during a session.
type PathEntry struct {
	StepID   string `json:"stepId"`
	OptionID string `json:"optionId"`
}

// SessionState is an immutable snapshot of one attempt: either
// Active(currentStep, score, path) or Terminal(finalScore, path).
// Every transition builds a new value; nothing here is mutated after construction.
type SessionState struct {
	scenarioID    string
	status        SessionStatus
	currentStepID string
	score         int
	path          []PathEntry
}

// NewActiveSession builds an active snapshot. The path is copied.
func NewActiveSession(scenarioID, currentStepID string, score int, path []PathEntry) SessionState {
	return SessionState{
		scenarioID:    scenarioID,
		status:        SessionActive,
		currentStepID: currentStepID,
		score:         score,
		path:          clonePath(path),
	}
}

// NewTerminalSession builds a terminal snapshot. The path is copied.
func NewTerminalSession(scenarioID string, finalScore int, path []PathEntry) SessionState {
	return SessionState{
		scenarioID: scenarioID,
		status:     SessionTerminal,
		score:      finalScore,
		path:       clonePath(path),
	}
}

func (s SessionState) ScenarioID() string    { return s.scenarioID }
func (s SessionState) Status() SessionStatus { return s.status }
func (s SessionState) IsTerminal() bool      { return s.status == SessionTerminal }

// CurrentStepID is empty for terminal sessions.
func (s SessionState) CurrentStepID() string { return s.currentStepID }

// Score is the running total while active and the final score once terminal.
func (s SessionState) Score() int { return s.score }

// Path returns a copy of the choices made so far.
func (s SessionState) Path() []PathEntry { return clonePath(s.path) }

// PathLen avoids copying when only the number of choices matters.
func (s SessionState) PathLen() int { return len(s.path) }

func clonePath(path []PathEntry) []PathEntry {
	out := make([]PathEntry, len(path))
	copy(out, path)
	return out
}

type sessionWire struct {
	ScenarioID    string        `json:"scenarioId"`
	Status        SessionStatus `json:"status"`
	CurrentStepID string        `json:"currentStepId,omitempty"`
	Score         int           `json:"score"`
	Path          []PathEntry   `json:"path"`
}

func (s SessionState) MarshalJSON() ([]byte, error) {
	return json.Marshal(sessionWire{
		ScenarioID:    s.scenarioID,
		Status:        s.status,
		CurrentStepID: s.currentStepID,
		Score:         s.score,
		Path:          clonePath(s.path),
	})
}

func (s *SessionState) UnmarshalJSON(data []byte) error {
	var w sessionWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	switch w.Status {
	case SessionActive:
		if w.CurrentStepID == "" {
			return fmt.Errorf("active session without current step")
		}
		*s = NewActiveSession(w.ScenarioID, w.CurrentStepID, w.Score, w.Path)
	case SessionTerminal:
		*s = NewTerminalSession(w.ScenarioID, w.Score, w.Path)
	default:
		return fmt.Errorf("unknown session status %q", w.Status)
	}
	return nil
}

// GradeResult is the outcome of grading a terminal session.
type GradeResult struct {
	ScenarioID   string  `json:"scenarioId"`
	FinalScore   int     `json:"finalScore"`
	PassingScore int     `json:"passingScore"`
	PerfectScore int     `json:"perfectScore"`
	Passed       bool    `json:"passed"`
	Percentage   float64 `json:"percentage"`
}
