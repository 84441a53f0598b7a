package web

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/solarerp/internal/core"
	"github.com/JonMunkholm/solarerp/internal/logging"
	"github.com/JonMunkholm/solarerp/internal/report"
)

// listResponse is ListResult with client-ready rows.
type listResponse struct {
	Rows         []map[string]any  `json:"rows"`
	TotalRows    int64             `json:"totalRows"`
	Page         int               `json:"page"`
	PageSize     int               `json:"pageSize"`
	TotalPages   int               `json:"totalPages"`
	Sorts        []core.SortSpec   `json:"sorts"`
	Aggregations core.Aggregations `json:"aggregations,omitempty"`
}

// resolve looks up the {resource} URL parameter.
func resolve(r *http.Request) (core.ResourceDefinition, error) {
	return core.Resolve(chi.URLParam(r, "resource"))
}

// handleListResources returns every registered resource with its fields.
func (s *Server) handleListResources(w http.ResponseWriter, r *http.Request) {
	defs := core.All()
	out := make([]resourceSummary, len(defs))
	for i, def := range defs {
		out[i] = summarize(def)
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"resources": out,
		"groups":    core.Groups(),
	})
}

// handleResourceSchema returns the JSON Schema of a resource's form.
func (s *Server) handleResourceSchema(w http.ResponseWriter, r *http.Request) {
	def, err := resolve(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, ResourceSchema(def))
}

// handleRequestSchema returns the JSON Schema of a named request body.
func (s *Server) handleRequestSchema(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	v, ok := requestSchemas[name]
	if !ok {
		respondError(w, r, fmt.Errorf("schema %q: %w", name, core.ErrNotFound))
		return
	}
	writeJSON(w, r, http.StatusOK, reflectSchema(v))
}

// handleList returns one page of a resource.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	def, err := resolve(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	q, err := parseListQuery(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	result, err := s.service.List(r.Context(), def.Info.Key, q)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, listResponse{
		Rows:         def.OutputRows(result.Rows),
		TotalRows:    result.TotalRows,
		Page:         result.Page,
		PageSize:     result.PageSize,
		TotalPages:   result.TotalPages,
		Sorts:        result.Sorts,
		Aggregations: result.Aggregations,
	})
}

// handleGet returns one record.
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	def, err := resolve(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	rec, err := s.service.GetByID(r.Context(), def.Info.Key, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, def.Output(rec))
}

// handleCreate inserts a record from a JSON object.
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	def, err := resolve(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	var input map[string]any
	if err := decodeJSON(w, r, &input); err != nil {
		respondError(w, r, err)
		return
	}

	rec, err := s.service.Create(r.Context(), def.Info.Key, input)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, def.Output(rec))
}

// handleUpdate applies a partial update; fields absent from the body keep
// their stored values.
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	def, err := resolve(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	var input map[string]any
	if err := decodeJSON(w, r, &input); err != nil {
		respondError(w, r, err)
		return
	}

	rec, err := s.service.Update(r.Context(), def.Info.Key, chi.URLParam(r, "id"), input)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, def.Output(rec))
}

// handleDelete removes a record.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	def, err := resolve(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	if err := s.service.Delete(r.Context(), def.Info.Key, id); err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"deleted": true, "id": id})
}

// handleImport inserts the rows of a CSV request body.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	def, err := resolve(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, MaxImportBodySize)

	log := logging.FromContext(r.Context()).With("resource", def.Info.Key)
	result, err := s.service.Import(r.Context(), def.Info.Key, r.Body)
	if err != nil {
		respondError(w, r, err)
		return
	}
	log.Info("import complete",
		"total", result.TotalRows,
		"inserted", result.Inserted,
		"failed", len(result.Failed),
	)

	status := http.StatusOK
	if result.Inserted > 0 {
		status = http.StatusCreated
	}
	writeJSON(w, r, status, result)
}

// handleExport downloads a resource listing as csv, xlsx, pdf or html.
// The listing's search, filters and sort apply; paging does not.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	def, err := resolve(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	format, err := report.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	q, err := parseListQuery(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	filename := format.Filename(fmt.Sprintf("%s_%s", def.Info.Path, time.Now().Format("2006-01-02")))

	err = s.reports.Do(r.Context(), func() error {
		if format == report.FormatCSV {
			return s.streamCSV(w, r, def, q, filename)
		}

		rows, err := s.service.All(r.Context(), def.Info.Key, q)
		if err != nil {
			return err
		}
		t := report.FromRows(def, rows)
		return s.writeReport(w, r, format, t, filename)
	})
	if err != nil {
		respondError(w, r, err)
	}
}

// streamCSV writes rows to the response as they are read. Errors after the
// first row cannot change the status, so they are only logged.
func (s *Server) streamCSV(w http.ResponseWriter, r *http.Request, def core.ResourceDefinition, q core.ListQuery, filename string) error {
	fields := def.VisibleFields()
	headers := make([]string, len(fields))
	for i, spec := range fields {
		headers[i] = spec.DisplayLabel()
	}

	started := false
	var stream *report.CSVStream
	err := s.service.Stream(r.Context(), def.Info.Key, q, func(rec core.Record) error {
		if !started {
			setDownloadHeaders(w, report.FormatCSV, filename)
			var err error
			if stream, err = report.NewCSVStream(w, headers); err != nil {
				return err
			}
			started = true
		}
		row := make([]any, len(fields))
		for i, spec := range fields {
			row[i] = rec[spec.Name]
		}
		return stream.Row(row)
	})

	if !started {
		if err != nil {
			return err
		}
		setDownloadHeaders(w, report.FormatCSV, filename)
		if stream, err = report.NewCSVStream(w, headers); err != nil {
			return err
		}
	}
	if err != nil {
		logging.FromContext(r.Context()).Error("csv export interrupted", "resource", def.Info.Key, "error", err)
		return nil
	}
	if err := stream.Close(); err != nil {
		logging.FromContext(r.Context()).Warn("csv export flush", "error", err)
	}
	return nil
}

// writeReport renders t into memory first so a rendering failure still
// produces a JSON error instead of a truncated download.
func (s *Server) writeReport(w http.ResponseWriter, r *http.Request, format report.Format, t *report.Table, filename string) error {
	t.Company = s.cfg.Report.CompanyName
	t.Formatter = s.formatter

	var buf bytes.Buffer
	if err := report.Write(r.Context(), &buf, format, t); err != nil {
		return err
	}

	setDownloadHeaders(w, format, filename)
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		logging.FromContext(r.Context()).Warn("report write", "error", err)
	}
	return nil
}

func setDownloadHeaders(w http.ResponseWriter, format report.Format, filename string) {
	w.Header().Set("Content-Type", format.ContentType())
	if format == report.FormatHTML {
		w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", filename))
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
}
