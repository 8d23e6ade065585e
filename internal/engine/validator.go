package engine

import (
	"sort"

	"go.uber.org/zap"
	"scenario-solver-service/internal/domain"
)

// Validate checks the step graph of def and computes its perfect score.
// All graph problems are collected into the report rather than returned one by
// one; the error return is reserved for definitions that are not even
// well-formed (see domain.ScenarioDefinition.CheckShape).
func (e *Engine) Validate(def domain.ScenarioDefinition) (domain.ValidationReport, error) {
	if err := def.CheckShape(); err != nil {
		return domain.ValidationReport{}, err
	}

	report := domain.ValidationReport{
		ScenarioID:   def.ID,
		PassingScore: def.PassingScore,
	}
	ids := sortedStepIDs(def)

	dangling := danglingReferences(def, ids)
	report.Errors = append(report.Errors, dangling...)

	reachable := reachableSteps(def)
	for _, id := range ids {
		if _, ok := reachable[id]; !ok {
			report.Errors = append(report.Errors, &domain.UnreachableStepError{StepID: id})
		}
	}
	report.ReachableSteps = make([]string, 0, len(reachable))
	for id := range reachable {
		report.ReachableSteps = append(report.ReachableSteps, id)
	}
	sort.Strings(report.ReachableSteps)

	postOrder, cycles := walkGraph(def, ids)
	report.Errors = append(report.Errors, cycles...)

	if len(dangling) == 0 && len(cycles) == 0 {
		best := bestScores(def, postOrder)
		report.ComputedPerfectScore = best[def.StartStepID]
		report.PerfectScoreComputed = true
		if def.AuthoredPerfectScore != nil && *def.AuthoredPerfectScore != report.ComputedPerfectScore {
			report.Warnings = append(report.Warnings, &domain.PerfectScoreMismatchWarning{
				Authored: *def.AuthoredPerfectScore,
				Computed: report.ComputedPerfectScore,
			})
		}
	}

	if !report.Usable() {
		e.logger.Debug("scenario failed validation",
			zap.String("scenarioID", def.ID),
			zap.Int("errors", len(report.Errors)),
		)
	}
	return report, nil
}

func sortedStepIDs(def domain.ScenarioDefinition) []string {
	ids := make([]string, 0, len(def.Steps))
	for id := range def.Steps {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func danglingReferences(def domain.ScenarioDefinition, ids []string) []domain.Issue {
	var issues []domain.Issue
	if _, ok := def.Steps[def.StartStepID]; !ok {
		issues = append(issues, &domain.DanglingReferenceError{Target: def.StartStepID})
	}
	for _, id := range ids {
		for _, opt := range def.Steps[id].Options {
			next, ok := opt.Transition.Next()
			if !ok {
				continue
			}
			if _, exists := def.Steps[next]; !exists {
				issues = append(issues, &domain.DanglingReferenceError{StepID: id, OptionID: opt.ID, Target: next})
			}
		}
	}
	return issues
}

// reachableSteps runs a breadth-first traversal from the start step.
func reachableSteps(def domain.ScenarioDefinition) map[string]struct{} {
	seen := make(map[string]struct{}, len(def.Steps))
	if _, ok := def.Steps[def.StartStepID]; !ok {
		return seen
	}
	queue := []string{def.StartStepID}
	seen[def.StartStepID] = struct{}{}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, opt := range def.Steps[id].Options {
			next, ok := opt.Transition.Next()
			if !ok {
				continue
			}
			if _, exists := def.Steps[next]; !exists {
				continue
			}
			if _, visited := seen[next]; visited {
				continue
			}
			seen[next] = struct{}{}
			queue = append(queue, next)
		}
	}
	return seen
}

const (
	unvisited = iota
	onPath
	done
)

type frame struct {
	stepID string
	next   int
}

// walkGraph is an iterative depth-first traversal over every step, start step
// first. It returns the steps in post-order (successors before predecessors)
// and one CyclicGraphError per back-edge found.
func walkGraph(def domain.ScenarioDefinition, ids []string) ([]string, []domain.Issue) {
	state := make(map[string]int, len(def.Steps))
	postOrder := make([]string, 0, len(def.Steps))
	var cycles []domain.Issue

	roots := ids
	if _, ok := def.Steps[def.StartStepID]; ok {
		roots = append([]string{def.StartStepID}, ids...)
	}

	for _, root := range roots {
		if state[root] != unvisited {
			continue
		}
		stack := []frame{{stepID: root}}
		state[root] = onPath
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			options := def.Steps[top.stepID].Options
			if top.next == len(options) {
				state[top.stepID] = done
				postOrder = append(postOrder, top.stepID)
				stack = stack[:len(stack)-1]
				continue
			}
			opt := options[top.next]
			top.next++

			next, ok := opt.Transition.Next()
			if !ok {
				continue
			}
			if _, exists := def.Steps[next]; !exists {
				continue
			}
			switch state[next] {
			case unvisited:
				state[next] = onPath
				stack = append(stack, frame{stepID: next})
			case onPath:
				cycles = append(cycles, &domain.CyclicGraphError{Path: cyclePath(stack, next)})
			}
		}
	}
	return postOrder, cycles
}

func cyclePath(stack []frame, reentered string) []string {
	start := 0
	for i, f := range stack {
		if f.stepID == reentered {
			start = i
			break
		}
	}
	path := make([]string, 0, len(stack)-start+1)
	for _, f := range stack[start:] {
		path = append(path, f.stepID)
	}
	return append(path, reentered)
}

// bestScores computes, for every step, the highest total reachable from it.
// postOrder must list successors before predecessors, so each value is
// computed exactly once from already-known ones.
func bestScores(def domain.ScenarioDefinition, postOrder []string) map[string]int {
	best := make(map[string]int, len(postOrder))
	for _, id := range postOrder {
		first := true
		var top int
		for _, opt := range def.Steps[id].Options {
			total := opt.Score
			if next, ok := opt.Transition.Next(); ok {
				total += best[next]
			}
			if first || total > top {
				top = total
				first = false
			}
		}
		best[id] = top
	}
	return best
}
