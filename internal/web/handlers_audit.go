package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/solarerp/internal/core"
)

// handleAuditLog lists audit entries, newest first.
// Query: resource, action, from, to, page, page_size.
func (s *Server) handleAuditLog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := core.AuditFilter{
		Resource: q.Get("resource"),
		Action:   core.AuditAction(q.Get("action")),
		From:     q.Get("from"),
		To:       q.Get("to"),
		Page:     parseIntParam(r, "page", 1),
		PageSize: parseIntParam(r, "page_size", 50),
	}

	// Accept URL slugs as well as table names.
	if filter.Resource != "" {
		if def, err := core.Resolve(filter.Resource); err == nil {
			filter.Resource = def.Info.Key
		}
	}

	page, err := s.service.ListAudit(r.Context(), filter)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, page)
}

// handleAuditLogEntry returns a single audit entry with its changes.
func (s *Server) handleAuditLogEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := s.service.GetAudit(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, entry)
}
