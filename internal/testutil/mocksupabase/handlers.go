package mocksupabase

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

// handleSelect handles GET /rest/v1/{table}.
// It supports the select and limit query parameters and the Accept-Profile
// schema header. Error bodies mirror PostgREST 12.
func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "table")
	schema := r.Header.Get("Accept-Profile")
	key := name
	if schema != "" && schema != "public" {
		key = schema + "." + name
	}
	if schema == "" {
		schema = "public"
	}

	s.state.mu.RLock()
	defer s.state.mu.RUnlock()

	table, ok := s.state.tables[key]
	if !ok {
		hint := fmt.Sprintf("Perhaps you meant the table '%s.%s'", schema, s.closestTable())
		if len(s.state.tables) == 0 {
			hint = ""
		}
		s.writeError(w, http.StatusNotFound, "PGRST205", hint,
			fmt.Sprintf("Could not find the table '%s.%s' in the schema cache", schema, name))
		return
	}

	if table.Denied {
		s.writeError(w, http.StatusUnauthorized, "42501", "",
			fmt.Sprintf("permission denied for table %s", name))
		return
	}

	columns := parseSelect(r.URL.Query().Get("select"))
	if len(table.Rows) > 0 {
		for _, col := range columns {
			if _, ok := table.Rows[0][col]; !ok {
				s.writeError(w, http.StatusBadRequest, "42703", "",
					fmt.Sprintf("column %s.%s does not exist", name, col))
				return
			}
		}
	}

	limit := len(table.Rows)
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 0 {
			s.writeError(w, http.StatusBadRequest, "PGRST100", "",
				fmt.Sprintf("failed to parse limit (%s)", l))
			return
		}
		if parsed < limit {
			limit = parsed
		}
	}

	rows := make([]Row, 0, limit)
	for _, row := range table.Rows[:limit] {
		rows = append(rows, project(row, columns))
	}

	writeJSON(w, http.StatusOK, rows)
}

// closestTable returns any registered table name for the PostgREST-style hint.
// Callers must hold the state lock.
func (s *Server) closestTable() string {
	best := ""
	for name := range s.state.tables {
		if best == "" || name < best {
			best = name
		}
	}
	return best
}

// parseSelect splits a select parameter into column names; nil means all columns.
func parseSelect(sel string) []string {
	if sel == "" || sel == "*" {
		return nil
	}
	var cols []string
	for _, c := range strings.Split(sel, ",") {
		if c = strings.TrimSpace(c); c != "" {
			cols = append(cols, c)
		}
	}
	return cols
}

func project(row Row, columns []string) Row {
	if columns == nil {
		out := make(Row, len(row))
		for k, v := range row {
			out[k] = v
		}
		return out
	}
	out := make(Row, len(columns))
	for _, c := range columns {
		out[c] = row[c]
	}
	return out
}

// writeJSON writes a JSON response with correct Content-Type and no trailing newline.
func writeJSON(w http.ResponseWriter, status int, v any) {
	//nolint:errcheck
	data, _ := json.Marshal(v)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	//nolint:errcheck
	w.Write(data)
}

// writeError writes an error response in the PostgREST format. Empty hint
// is encoded as null.
func (s *Server) writeError(w http.ResponseWriter, status int, code, hint, message string) {
	resp := ErrorResponse{Code: code, Message: message}
	if hint != "" {
		resp.Hint = &hint
	}
	writeJSON(w, status, resp)
}
