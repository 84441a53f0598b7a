package web

import (
	"context"
	"net/http"
	"time"

	"github.com/JonMunkholm/solarerp/internal/core"
)

// healthResponse is the body of GET /api/health.
type healthResponse struct {
	Status    string                   `json:"status"`
	Database  string                   `json:"database"`
	Resources int                      `json:"resources"`
	Reports   core.ReportLimiterStatus `json:"reports"`
	Time      time.Time                `json:"time"`
}

// handleHealth reports liveness and database connectivity. A failed ping
// answers 503 so load balancers drain the instance.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    "ok",
		Database:  "ok",
		Resources: core.Count(),
		Reports:   s.reports.Status(),
		Time:      time.Now().UTC(),
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	if err := s.service.Ping(ctx); err != nil {
		resp.Status = "degraded"
		resp.Database = "unreachable"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, r, status, resp)
}
