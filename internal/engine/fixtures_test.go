package engine_test

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"scenario-solver-service/internal/domain"
)

// customerService is the upset-customer role-play: best path 35 + 35 = 70.
func customerService(t *testing.T) domain.ScenarioDefinition {
	t.Helper()
	def, err := domain.NewScenarioDefinition("customer-service", "Handling an upset customer", "step-1", 70, domain.IntPtr(70),
		domain.Step{
			ID:        "step-1",
			Situation: "A customer calls, furious that their order arrived damaged for the second time.",
			Options: []domain.Option{
				{ID: "acknowledge", Text: "Acknowledge the frustration", Score: 35, IsCorrect: true, Transition: domain.Continue("step-2-excellent")},
				{ID: "policy", Text: "Explain the returns policy", Score: 10, Transition: domain.Continue("step-2-policy")},
				{ID: "blame", Text: "Point out the courier is responsible", Score: -20, Transition: domain.Continue("step-2-escalation")},
			},
		},
		domain.Step{
			ID:        "step-2-excellent",
			Situation: "The customer calms down and asks what you can do.",
			Options: []domain.Option{
				{ID: "replace", Text: "Ship an expedited replacement", Score: 35, IsCorrect: true},
				{ID: "refund", Text: "Offer a refund only", Score: 20},
				{ID: "transfer", Text: "Transfer to another department", Score: 5},
			},
		},
		domain.Step{
			ID:        "step-2-policy",
			Situation: "The customer interrupts: they do not care about policy.",
			Options: []domain.Option{
				{ID: "apologize-fix", Text: "Apologize and arrange a fix", Score: 20, IsCorrect: true},
				{ID: "repeat", Text: "Repeat the policy", Score: -10},
			},
		},
		domain.Step{
			ID:        "step-2-escalation",
			Situation: "The customer demands a manager.",
			Options: []domain.Option{
				{ID: "apologize", Text: "Apologize sincerely", Score: 10, IsCorrect: true},
				{ID: "supervisor", Text: "Hand over to a supervisor", Score: 0},
				{ID: "hang-up", Text: "End the call", Score: -30},
			},
		},
	)
	require.NoError(t, err)
	return def
}

// randomDAG builds an acyclic graph where options only point to higher-numbered
// steps. Some steps may end up unreachable.
func randomDAG(t *testing.T, rnd *rand.Rand, steps int) domain.ScenarioDefinition {
	t.Helper()
	list := make([]domain.Step, 0, steps)
	for i := 0; i < steps; i++ {
		n := 1 + rnd.Intn(3)
		opts := make([]domain.Option, 0, n)
		for j := 0; j < n; j++ {
			opt := domain.Option{
				ID:    fmt.Sprintf("o%d", j),
				Score: rnd.Intn(61) - 20,
			}
			if i < steps-1 && rnd.Intn(4) != 0 {
				target := i + 1 + rnd.Intn(steps-i-1)
				opt.Transition = domain.Continue(fmt.Sprintf("s%d", target))
			}
			opts = append(opts, opt)
		}
		list = append(list, domain.Step{ID: fmt.Sprintf("s%d", i), Options: opts})
	}
	def, err := domain.NewScenarioDefinition("random", "random", "s0", 0, nil, list...)
	require.NoError(t, err)
	return def
}

// bruteForceBest enumerates every path from stepID to a terminal option.
func bruteForceBest(def domain.ScenarioDefinition, stepID string) int {
	best := 0
	for i, opt := range def.Steps[stepID].Options {
		total := opt.Score
		if next, ok := opt.Transition.Next(); ok {
			total += bruteForceBest(def, next)
		}
		if i == 0 || total > best {
			best = total
		}
	}
	return best
}
