package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/JonMunkholm/solarerp/internal/core"
	"github.com/JonMunkholm/solarerp/internal/logging"
)

// Request body limits.
const (
	MaxJSONBodySize   = 1 << 20   // 1MB
	MaxImportBodySize = 100 << 20 // 100MB
)

// parseIntParam parses a positive integer query parameter with a default.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// parseSorts parses comma-separated sort and dir parameters:
// ?sort=status,amount&dir=asc,desc
func parseSorts(r *http.Request) []core.SortSpec {
	sortStr := r.URL.Query().Get("sort")
	if sortStr == "" {
		return nil
	}
	dirs := strings.Split(r.URL.Query().Get("dir"), ",")

	var sorts []core.SortSpec
	for i, col := range strings.Split(sortStr, ",") {
		col = strings.TrimSpace(col)
		if col == "" {
			continue
		}
		dir := "asc"
		if i < len(dirs) && strings.EqualFold(strings.TrimSpace(dirs[i]), "desc") {
			dir = "desc"
		}
		sorts = append(sorts, core.SortSpec{Column: col, Dir: dir})
		if len(sorts) >= core.MaxSortLevels {
			break
		}
	}
	return sorts
}

// parseFilters extracts filter[column]=op:value parameters. A value without
// a known operator prefix means equality. Column names and values are checked
// by the service.
func parseFilters(r *http.Request) core.FilterSet {
	var filters []core.ColumnFilter

	for key, values := range r.URL.Query() {
		if !strings.HasPrefix(key, "filter[") || !strings.HasSuffix(key, "]") {
			continue
		}
		col := key[len("filter[") : len(key)-1]
		if col == "" {
			continue
		}

		for _, val := range values {
			// A prefix that is not an operator belongs to the value,
			// so "ref:42" is an equality match.
			op, value := core.OpEquals, val
			if prefix, rest, found := strings.Cut(val, ":"); found {
				if parsed, ok := core.ParseOperator(prefix); ok {
					op, value = parsed, rest
				}
			}
			if strings.TrimSpace(value) == "" {
				continue
			}
			filters = append(filters, core.ColumnFilter{Column: col, Operator: op, Value: value})
		}
	}

	return core.FilterSet{Filters: filters}
}

// parseListQuery reads page, page_size, sort, dir, q, filter[...], from, to.
// A malformed or reversed date range is a validation error.
func parseListQuery(r *http.Request) (core.ListQuery, error) {
	q := r.URL.Query()
	from, to, err := core.ValidateDateRange(q.Get("from"), q.Get("to"))
	if err != nil {
		return core.ListQuery{}, err
	}
	return core.ListQuery{
		Page:     parseIntParam(r, "page", 1),
		PageSize: parseIntParam(r, "page_size", core.DefaultPageSize),
		Sorts:    parseSorts(r),
		Search:   strings.TrimSpace(q.Get("q")),
		Filters:  parseFilters(r),
		From:     from,
		To:       to,
	}, nil
}

// decodeJSON reads a size-limited JSON body into v. Numbers decode as
// json.Number so money values keep their exact digits.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxJSONBodySize)
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		var maxBytes *http.MaxBytesError
		switch {
		case errors.As(err, &maxBytes):
			return err
		case errors.Is(err, io.EOF):
			return badRequest("body", "request body is empty")
		default:
			return badRequest("body", "invalid JSON: %s", err.Error())
		}
	}
	return nil
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context()).Warn("json encode error", "error", err)
	}
}
