// Package engine validates branching scenarios, advances learner sessions
// through them, and grades finished sessions.
//
// All operations are synchronous and work on immutable inputs; an Engine may
// be shared freely between goroutines.
package engine

import "go.uber.org/zap"

// Engine bundles the validator, session runner, and grader.
type Engine struct {
	logger *zap.Logger
}

// New returns an Engine. A nil logger disables logging.
func New(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger.Named("engine")}
}
