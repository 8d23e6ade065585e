package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// IssueKind tags the variants a validation report can carry.
type IssueKind string

const (
	KindDanglingReference    IssueKind = "dangling_reference"
	KindUnreachableStep      IssueKind = "unreachable_step"
	KindCyclicGraph          IssueKind = "cyclic_graph"
	KindPerfectScoreMismatch IssueKind = "perfect_score_mismatch"
)

// Issue is a single finding of the validator. Errors make a definition
// unusable, warnings do not.
type Issue interface {
	error
	Kind() IssueKind
}

// DanglingReferenceError: an option (or the start pointer, when OptionID is
// empty) names a step that does not exist.
type DanglingReferenceError struct {
	StepID   string `json:"stepId,omitempty"`
	OptionID string `json:"optionId,omitempty"`
	Target   string `json:"target"`
}

func (e *DanglingReferenceError) Error() string {
	if e.OptionID == "" {
		return fmt.Sprintf("%s: start step %q does not exist", ErrDanglingReference, e.Target)
	}
	return fmt.Sprintf("%s: step %q option %q points to missing step %q", ErrDanglingReference, e.StepID, e.OptionID, e.Target)
}

func (e *DanglingReferenceError) Unwrap() error   { return ErrDanglingReference }
func (e *DanglingReferenceError) Kind() IssueKind { return KindDanglingReference }

// UnreachableStepError: no path from the start step leads here.
type UnreachableStepError struct {
	StepID string `json:"stepId"`
}

func (e *UnreachableStepError) Error() string {
	return fmt.Sprintf("%s: %q", ErrUnreachableStep, e.StepID)
}

func (e *UnreachableStepError) Unwrap() error   { return ErrUnreachableStep }
func (e *UnreachableStepError) Kind() IssueKind { return KindUnreachableStep }

// CyclicGraphError carries the loop that was found; the first and last
// entries name the same step.
type CyclicGraphError struct {
	Path []string `json:"path"`
}

func (e *CyclicGraphError) Error() string {
	return fmt.Sprintf("%s: %s", ErrCyclicGraph, strings.Join(e.Path, " -> "))
}

func (e *CyclicGraphError) Unwrap() error   { return ErrCyclicGraph }
func (e *CyclicGraphError) Kind() IssueKind { return KindCyclicGraph }

// PerfectScoreMismatchWarning: the authored perfect score disagrees with the
// computed optimum. The computed value wins.
type PerfectScoreMismatchWarning struct {
	Authored int `json:"authored"`
	Computed int `json:"computed"`
}

func (w *PerfectScoreMismatchWarning) Error() string {
	return fmt.Sprintf("authored perfect score %d differs from computed %d", w.Authored, w.Computed)
}

func (w *PerfectScoreMismatchWarning) Kind() IssueKind { return KindPerfectScoreMismatch }

// ValidationReport is the outcome of validating one definition.
type ValidationReport struct {
	ScenarioID string
	Errors     []Issue
	Warnings   []Issue
	// ComputedPerfectScore is only meaningful when PerfectScoreComputed is set.
	ComputedPerfectScore int
	PerfectScoreComputed bool
	PassingScore         int
	// ReachableSteps lists, sorted, every step reachable from the start step.
	ReachableSteps []string
}

// Usable reports whether sessions may be started against the definition.
func (r ValidationReport) Usable() bool {
	return len(r.Errors) == 0 && r.PerfectScoreComputed
}

type issueWire struct {
	Kind    IssueKind       `json:"kind"`
	Message string          `json:"message"`
	Detail  json.RawMessage `json:"detail"`
}

type reportWire struct {
	ScenarioID           string      `json:"scenarioId"`
	Errors               []issueWire `json:"errors"`
	Warnings             []issueWire `json:"warnings"`
	ComputedPerfectScore int         `json:"computedPerfectScore"`
	PerfectScoreComputed bool        `json:"perfectScoreComputed"`
	PassingScore         int         `json:"passingScore"`
	ReachableSteps       []string    `json:"reachableSteps"`
}

func (r ValidationReport) MarshalJSON() ([]byte, error) {
	errs, err := encodeIssues(r.Errors)
	if err != nil {
		return nil, err
	}
	warns, err := encodeIssues(r.Warnings)
	if err != nil {
		return nil, err
	}
	reachable := r.ReachableSteps
	if reachable == nil {
		reachable = []string{}
	}
	return json.Marshal(reportWire{
		ScenarioID:           r.ScenarioID,
		Errors:               errs,
		Warnings:             warns,
		ComputedPerfectScore: r.ComputedPerfectScore,
		PerfectScoreComputed: r.PerfectScoreComputed,
		PassingScore:         r.PassingScore,
		ReachableSteps:       reachable,
	})
}

func (r *ValidationReport) UnmarshalJSON(data []byte) error {
	var w reportWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	errs, err := decodeIssues(w.Errors)
	if err != nil {
		return err
	}
	warns, err := decodeIssues(w.Warnings)
	if err != nil {
		return err
	}
	*r = ValidationReport{
		ScenarioID:           w.ScenarioID,
		Errors:               errs,
		Warnings:             warns,
		ComputedPerfectScore: w.ComputedPerfectScore,
		PerfectScoreComputed: w.PerfectScoreComputed,
		PassingScore:         w.PassingScore,
		ReachableSteps:       w.ReachableSteps,
	}
	return nil
}

func encodeIssues(issues []Issue) ([]issueWire, error) {
	out := make([]issueWire, 0, len(issues))
	for _, issue := range issues {
		detail, err := json.Marshal(issue)
		if err != nil {
			return nil, fmt.Errorf("encode %s issue: %w", issue.Kind(), err)
		}
		out = append(out, issueWire{Kind: issue.Kind(), Message: issue.Error(), Detail: detail})
	}
	return out, nil
}

func decodeIssues(wires []issueWire) ([]Issue, error) {
	if len(wires) == 0 {
		return nil, nil
	}
	out := make([]Issue, 0, len(wires))
	for _, w := range wires {
		var issue Issue
		switch w.Kind {
		case KindDanglingReference:
			issue = &DanglingReferenceError{}
		case KindUnreachableStep:
			issue = &UnreachableStepError{}
		case KindCyclicGraph:
			issue = &CyclicGraphError{}
		case KindPerfectScoreMismatch:
			issue = &PerfectScoreMismatchWarning{}
		default:
			return nil, fmt.Errorf("unknown issue kind %q", w.Kind)
		}
		if err := json.Unmarshal(w.Detail, issue); err != nil {
			return nil, fmt.Errorf("decode %s issue: %w", w.Kind, err)
		}
		out = append(out, issue)
	}
	return out, nil
}
