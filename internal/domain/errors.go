package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMalformedDefinition is returned when a definition is missing required parts.
	ErrMalformedDefinition = errors.New("malformed scenario definition")
	// ErrDanglingReference marks an option pointing at a step that does not exist.
	ErrDanglingReference = errors.New("dangling step reference")
	// ErrUnreachableStep marks a step that cannot be reached from the start step.
	ErrUnreachableStep = errors.New("unreachable step")
	// ErrCyclicGraph marks a step graph that loops back onto itself.
	ErrCyclicGraph = errors.New("cyclic step graph")

	// ErrInvalidSessionState is returned when a session cannot take the requested transition.
	ErrInvalidSessionState = errors.New("invalid session state")
	// ErrUnknownOption indicates a submitted option ID is not offered at the current step.
	ErrUnknownOption = errors.New("unknown option")
	// ErrSessionNotTerminal is returned when grading a session that is still active.
	ErrSessionNotTerminal = errors.New("session is not terminal")
	// ErrReportNotUsable is returned when grading against a report that carries errors.
	ErrReportNotUsable = errors.New("validation report is not usable")

	// ErrScenarioNotFound indicates the scenario content could not be loaded.
	ErrScenarioNotFound = errors.New("scenario not found")
	// ErrScenarioNotPublishable is returned for scenarios whose validation failed.
	ErrScenarioNotPublishable = errors.New("scenario failed validation")
	// ErrAttemptNotFound is returned for unknown, expired, or foreign attempts.
	ErrAttemptNotFound = errors.New("attempt not found")
	// ErrVersionConflict is returned when an attempt changed since the caller last read it.
	ErrVersionConflict = errors.New("attempt version conflict")
)

// MalformedDefinitionError describes why a definition was rejected at parse time.
type MalformedDefinitionError struct {
	ScenarioID string
	Reason     string
	Err        error
}

func (e *MalformedDefinitionError) Error() string {
	var b strings.Builder
	b.WriteString(ErrMalformedDefinition.Error())
	if e.ScenarioID != "" {
		fmt.Fprintf(&b, " %q", e.ScenarioID)
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *MalformedDefinitionError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrMalformedDefinition}
	}
	return []error{ErrMalformedDefinition, e.Err}
}

// InvalidSessionStateError explains why a session snapshot was refused.
type InvalidSessionStateError struct {
	Reason string
}

func (e *InvalidSessionStateError) Error() string {
	return ErrInvalidSessionState.Error() + ": " + e.Reason
}

func (e *InvalidSessionStateError) Unwrap() error { return ErrInvalidSessionState }

// UnknownOptionError names the option that is not available at the step.
type UnknownOptionError struct {
	StepID   string
	OptionID string
}

func (e *UnknownOptionError) Error() string {
	return fmt.Sprintf("%s %q at step %q", ErrUnknownOption, e.OptionID, e.StepID)
}

func (e *UnknownOptionError) Unwrap() error { return ErrUnknownOption }

// NotPublishableError carries the report of a scenario that failed validation.
type NotPublishableError struct {
	Report ValidationReport
}

func (e *NotPublishableError) Error() string {
	msgs := make([]string, 0, len(e.Report.Errors))
	for _, issue := range e.Report.Errors {
		msgs = append(msgs, issue.Error())
	}
	return fmt.Sprintf("%s: scenario %q: %s", ErrScenarioNotPublishable, e.Report.ScenarioID, strings.Join(msgs, "; "))
}

func (e *NotPublishableError) Unwrap() error { return ErrScenarioNotPublishable }
