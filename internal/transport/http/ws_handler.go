package http

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"scenario-solver-service/internal/app"
	"scenario-solver-service/internal/domain"
)

type WSHandler struct {
	service  *app.ScenarioService
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.ScenarioService, logger *zap.Logger) *WSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WSHandler{
		service: service,
		logger:  logger.Named("ws"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type choosePayload struct {
	AttemptID string `json:"attemptId"`
	Version   int    `json:"version"`
	OptionID  string `json:"optionId"`
}

type attemptPayload struct {
	AttemptID string `json:"attemptId"`
}

type startedPayload struct {
	AttemptID  string          `json:"attemptId"`
	ScenarioID string          `json:"scenarioId"`
	Version    int             `json:"version"`
	Step       domain.StepView `json:"step"`
}

type outcomePayload struct {
	AttemptID   string              `json:"attemptId"`
	Version     int                 `json:"version"`
	OptionID    string              `json:"optionId"`
	Consequence string              `json:"consequence,omitempty"`
	ScoreDelta  int                 `json:"scoreDelta"`
	Score       int                 `json:"score"`
	NextStep    *domain.StepView    `json:"nextStep,omitempty"`
	Grade       *domain.GradeResult `json:"grade,omitempty"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

// ServeWS upgrades HTTP requests to websockets and runs one learner's
// attempts over the connection. Messages are handled in arrival order.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	scenarioID := r.URL.Query().Get("scenarioId")
	userID := r.URL.Query().Get("userId")
	if scenarioID == "" || userID == "" {
		http.Error(w, "missing scenarioId or userId", http.StatusBadRequest)
		return
	}
	log := h.logger.With(zap.String("scenarioID", scenarioID), zap.String("userID", userID))

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("WS upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx := r.Context()
	attempt, step, err := h.service.StartAttempt(ctx, scenarioID, userID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: newErrorPayload(err)})
		return
	}

	out := newOutbox(conn, log)
	defer out.close()

	sendError := func(err error) {
		out.push("error", newErrorPayload(err))
	}
	sendBadRequest := func(msg string) {
		out.push("error", errorPayload{Code: "bad_request", Message: msg})
	}

	out.push("started", startedPayload{
		AttemptID:  attempt.ID,
		ScenarioID: scenarioID,
		Version:    attempt.Version,
		Step:       step,
	})

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "choose":
			var payload choosePayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.AttemptID == "" || payload.OptionID == "" {
				sendBadRequest("invalid choose payload")
				continue
			}
			outcome, err := h.service.Choose(ctx, payload.AttemptID, userID, payload.Version, payload.OptionID)
			if err != nil {
				sendError(err)
				continue
			}
			out.push("outcome", outcomePayload{
				AttemptID:   outcome.Attempt.ID,
				Version:     outcome.Attempt.Version,
				OptionID:    outcome.OptionID,
				Consequence: outcome.Consequence,
				ScoreDelta:  outcome.ScoreDelta,
				Score:       outcome.Attempt.Session.Score(),
				NextStep:    outcome.NextStep,
				Grade:       outcome.Grade,
			})
		case "current":
			var payload attemptPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.AttemptID == "" {
				sendBadRequest("invalid current payload")
				continue
			}
			view, err := h.service.CurrentStep(ctx, payload.AttemptID, userID)
			if err != nil {
				sendError(err)
				continue
			}
			out.push("step", view)
		case "grade":
			var payload attemptPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.AttemptID == "" {
				sendBadRequest("invalid grade payload")
				continue
			}
			grade, err := h.service.Grade(ctx, payload.AttemptID, userID)
			if err != nil {
				sendError(err)
				continue
			}
			out.push("grade", grade)
		case "restart":
			var payload attemptPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.AttemptID == "" {
				sendBadRequest("invalid restart payload")
				continue
			}
			if err := h.service.Abandon(ctx, payload.AttemptID, userID); err != nil {
				sendError(err)
				continue
			}
			attempt, step, err := h.service.StartAttempt(ctx, scenarioID, userID)
			if err != nil {
				sendError(err)
				continue
			}
			out.push("started", startedPayload{
				AttemptID:  attempt.ID,
				ScenarioID: scenarioID,
				Version:    attempt.Version,
				Step:       step,
			})
		default:
			sendBadRequest("unsupported message type")
		}
	}
}
