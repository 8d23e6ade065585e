package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"
	"scenario-solver-service/internal/app"
	"scenario-solver-service/internal/domain"
)

// ReportHandler exposes validation reports so authors can see why a
// scenario was refused.
type ReportHandler struct {
	service *app.ScenarioService
	logger  *zap.Logger
}

func NewReportHandler(service *app.ScenarioService, logger *zap.Logger) *ReportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportHandler{service: service, logger: logger.Named("report")}
}

// ServeReport handles GET /scenarios/{id}/report. A refused scenario answers
// 422 with its report as the body.
func (h *ReportHandler) ServeReport(w http.ResponseWriter, r *http.Request) {
	scenarioID := r.PathValue("id")
	if scenarioID == "" {
		http.Error(w, "missing scenario id", http.StatusBadRequest)
		return
	}

	report, err := h.service.Report(r.Context(), scenarioID)
	if err != nil {
		var notPublishable *domain.NotPublishableError
		if errors.As(err, &notPublishable) {
			writeJSON(w, http.StatusUnprocessableEntity, notPublishable.Report)
			return
		}
		status := httpStatus(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("Failed to load scenario report", zap.String("scenarioID", scenarioID), zap.Error(err))
		}
		writeJSON(w, status, newErrorPayload(err))
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
