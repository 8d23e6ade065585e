package http

import (
	"errors"
	"net/http"

	"scenario-solver-service/internal/domain"
)

// errorCode maps domain errors onto the stable codes clients switch on.
func errorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrVersionConflict):
		return "version_conflict"
	case errors.Is(err, domain.ErrUnknownOption):
		return "unknown_option"
	case errors.Is(err, domain.ErrInvalidSessionState):
		return "invalid_session_state"
	case errors.Is(err, domain.ErrSessionNotTerminal):
		return "session_not_terminal"
	case errors.Is(err, domain.ErrReportNotUsable):
		return "report_not_usable"
	case errors.Is(err, domain.ErrAttemptNotFound):
		return "attempt_not_found"
	case errors.Is(err, domain.ErrScenarioNotFound):
		return "scenario_not_found"
	case errors.Is(err, domain.ErrScenarioNotPublishable):
		return "scenario_not_publishable"
	case errors.Is(err, domain.ErrMalformedDefinition):
		return "malformed_definition"
	default:
		return "internal"
	}
}

func httpStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrScenarioNotFound), errors.Is(err, domain.ErrAttemptNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrScenarioNotPublishable), errors.Is(err, domain.ErrMalformedDefinition),
		errors.Is(err, domain.ErrReportNotUsable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrVersionConflict), errors.Is(err, domain.ErrInvalidSessionState),
		errors.Is(err, domain.ErrSessionNotTerminal):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUnknownOption):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func newErrorPayload(err error) errorPayload {
	code := errorCode(err)
	msg := err.Error()
	if code == "internal" {
		msg = "internal error"
	}
	return errorPayload{Code: code, Message: msg}
}
