package mocksupabase

import "sync"

// Row is a single table row keyed by column name.
type Row map[string]any

// Table is an in-memory relation served under /rest/v1/{name}.
type Table struct {
	Name   string `json:"name"`
	Rows   []Row  `json:"rows"`
	Denied bool   `json:"denied"` // reads fail with 42501 permission denied
}

// ErrorResponse is the PostgREST error body shape.
type ErrorResponse struct {
	Code    string  `json:"code,omitempty"`
	Details *string `json:"details"`
	Hint    *string `json:"hint"`
	Message string  `json:"message"`
}

// State holds the mock server's mutable data.
type State struct {
	mu       sync.RWMutex
	tables   map[string]*Table
	keys     map[string]bool
	failWith int
	requests int
}

// NewState creates a new State instance for the mock server.
func NewState() *State {
	return &State{
		tables: make(map[string]*Table),
		keys:   make(map[string]bool),
	}
}

// StateResponse is the response for GET /admin/state
type StateResponse struct {
	Tables   []Table `json:"tables"`
	Requests int     `json:"requests"`
}
