package http

import (
	"net/http"

	"go.uber.org/zap"
	"scenario-solver-service/internal/app"
)

// Register mounts the learner and author endpoints on mux.
func Register(mux *http.ServeMux, service *app.ScenarioService, logger *zap.Logger) {
	ws := NewWSHandler(service, logger)
	reports := NewReportHandler(service, logger)

	mux.HandleFunc("/ws", ws.ServeWS)
	mux.HandleFunc("GET /scenarios/{id}/report", reports.ServeReport)
}
