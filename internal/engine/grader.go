package engine

import (
	"fmt"

	"go.uber.org/zap"
	"scenario-solver-service/internal/domain"
)

// Grade scores a finished session against the computed optimum in report.
// The authored perfect score never takes part.
func (e *Engine) Grade(session domain.SessionState, report domain.ValidationReport) (domain.GradeResult, error) {
	if !session.IsTerminal() {
		return domain.GradeResult{}, domain.ErrSessionNotTerminal
	}
	if session.ScenarioID() != report.ScenarioID {
		return domain.GradeResult{}, &domain.InvalidSessionStateError{
			Reason: fmt.Sprintf("session for scenario %q graded against report for %q", session.ScenarioID(), report.ScenarioID),
		}
	}
	if !report.Usable() {
		return domain.GradeResult{}, domain.ErrReportNotUsable
	}

	final := session.Score()
	perfect := report.ComputedPerfectScore

	var pct float64
	if perfect > 0 {
		raw := float64(final) / float64(perfect) * 100
		if raw > 100 {
			// The validator should have made this impossible.
			e.logger.Warn("final score exceeds computed perfect score",
				zap.String("scenarioID", report.ScenarioID),
				zap.Int("finalScore", final),
				zap.Int("perfectScore", perfect),
				zap.Float64("rawPercentage", raw),
			)
		}
		pct = clamp(raw, 0, 100)
	} else if final >= perfect {
		pct = 100
	}

	return domain.GradeResult{
		ScenarioID:   report.ScenarioID,
		FinalScore:   final,
		PassingScore: report.PassingScore,
		PerfectScore: perfect,
		Passed:       final >= report.PassingScore,
		Percentage:   pct,
	}, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
