// Package mocksupabase provides a mock Supabase PostgREST server for testing.
package mocksupabase

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is a mock Supabase API server for testing.
type Server struct {
	*httptest.Server
	router *chi.Mux
	state  *State
}

// New creates and starts a new mock server. Any non-empty API key is accepted
// until SetKeys is called.
func New() *Server {
	return NewWithLogger(nil)
}

// NewWithLogger creates and starts a mock server that logs every request.
func NewWithLogger(logger *slog.Logger) *Server {
	s := &Server{state: NewState()}
	s.router = s.routes(logger)
	s.Server = httptest.NewServer(s.router)
	return s
}

// NewUnstarted creates a mock server whose handler can be mounted on a
// regular http.Server (see cmd/mocksupabase).
func NewUnstarted(logger *slog.Logger) *Server {
	s := &Server{state: NewState()}
	s.router = s.routes(logger)
	return s
}

func (s *Server) routes(logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(LoggingMiddleware(logger))

	r.Route("/rest/v1", func(r chi.Router) {
		r.Use(s.countRequests)
		r.Use(s.failureInjection)
		r.Use(s.requireAPIKey)
		r.Get("/{table}", s.handleSelect)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Get("/state", s.handleAdminState)
		r.Post("/tables", s.handleAdminCreateTable)
		r.Delete("/reset", s.handleAdminReset)
	})

	return r
}

// URL returns the base URL of the running server.
func (s *Server) URL() string {
	if s.Server == nil {
		return ""
	}
	return s.Server.URL
}

// Handler returns the server's router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close shuts down a started server. It is a no-op for unstarted servers.
func (s *Server) Close() {
	if s.Server != nil {
		s.Server.Close()
	}
}

// AddTable registers a readable table with the given rows, replacing any
// existing table of the same name. Schema-qualified names ("stats.pings")
// are served when the client sends a matching Accept-Profile header.
func (s *Server) AddTable(name string, rows ...Row) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	s.state.tables[name] = &Table{Name: name, Rows: rows}
}

// DenyTable registers a table that exists but cannot be read with the
// request's role, the same as a missing GRANT SELECT.
func (s *Server) DenyTable(name string) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	s.state.tables[name] = &Table{Name: name, Denied: true}
}

// SetKeys restricts the accepted API keys.
func (s *Server) SetKeys(keys ...string) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	s.state.keys = make(map[string]bool, len(keys))
	for _, k := range keys {
		s.state.keys[k] = true
	}
}

// FailWith makes every subsequent REST request return the given status.
// A status of 0 disables failure injection.
func (s *Server) FailWith(status int) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	s.state.failWith = status
}

// Requests returns how many REST requests reached the server.
func (s *Server) Requests() int {
	s.state.mu.RLock()
	defer s.state.mu.RUnlock()
	return s.state.requests
}

// Tables returns a snapshot of all tables sorted by name.
func (s *Server) Tables() []Table {
	s.state.mu.RLock()
	defer s.state.mu.RUnlock()
	tables := make([]Table, 0, len(s.state.tables))
	for _, t := range s.state.tables {
		tables = append(tables, *t)
	}
	sort.Slice(tables, func(i, j int) bool {
		return tables[i].Name < tables[j].Name
	})
	return tables
}
