package mocksupabase

import (
	"encoding/json"
	"net/http"
)

// handleAdminCreateTable handles POST /admin/tables
// Creates or replaces a table from a Table JSON body.
func (s *Server) handleAdminCreateTable(w http.ResponseWriter, r *http.Request) {
	var req Table
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "", "", "Invalid request body")
		return
	}
	if req.Name == "" {
		s.writeError(w, http.StatusBadRequest, "", "", "Table name is required")
		return
	}

	if req.Denied {
		s.DenyTable(req.Name)
	} else {
		s.AddTable(req.Name, req.Rows...)
	}

	writeJSON(w, http.StatusCreated, req)
}

// handleAdminReset handles DELETE /admin/reset
// Clears all tables, keys, failure injection and the request counter.
func (s *Server) handleAdminReset(w http.ResponseWriter, r *http.Request) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	s.state.tables = make(map[string]*Table)
	s.state.keys = make(map[string]bool)
	s.state.failWith = 0
	s.state.requests = 0
	w.WriteHeader(http.StatusNoContent)
}

// handleAdminState handles GET /admin/state
// Returns the full server state for debugging
func (s *Server) handleAdminState(w http.ResponseWriter, r *http.Request) {
	resp := StateResponse{
		Tables:   s.Tables(),
		Requests: s.Requests(),
	}
	writeJSON(w, http.StatusOK, resp)
}
