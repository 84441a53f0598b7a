package web

import (
	"fmt"
	"net/http"

	"github.com/JonMunkholm/solarerp/internal/report"
)

// handleFinanceOverview returns the finance overview for ?from=&to=
// (default: the current calendar year).
func (s *Server) handleFinanceOverview(w http.ResponseWriter, r *http.Request) {
	period, err := s.service.ParsePeriodNow(r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	ov, err := s.service.Overview(r.Context(), period)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, ov)
}

// handleFinanceDashboard returns headline counts and the year-to-date overview.
func (s *Server) handleFinanceDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.service.Dashboard(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, d)
}

// handleFinanceReport downloads the overview as a report (?format=pdf by
// default).
func (s *Server) handleFinanceReport(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("format")
	if name == "" {
		name = string(report.FormatPDF)
	}
	format, err := report.ParseFormat(name)
	if err != nil {
		respondError(w, r, err)
		return
	}
	period, err := s.service.ParsePeriodNow(r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	err = s.reports.Do(r.Context(), func() error {
		ov, err := s.service.Overview(r.Context(), period)
		if err != nil {
			return err
		}
		filename := format.Filename(fmt.Sprintf("finance_%s_%s", ov.Period.From, ov.Period.To))
		return s.writeReport(w, r, format, report.FinanceTable(ov), filename)
	})
	if err != nil {
		respondError(w, r, err)
	}
}
