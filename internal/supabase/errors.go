// Package supabase provides a minimal PostgREST client for Supabase projects.
package supabase

import (
	"errors"
	"fmt"
)

// APIError represents a structured error body returned by PostgREST or the
// Supabase API gateway.
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details"`
	Hint       string `json:"hint"`
}

// Error implements the error interface for APIError.
func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "request failed"
	}
	if e.Code != "" {
		return fmt.Sprintf("supabase: %s (code %s, status %d)", msg, e.Code, e.StatusCode)
	}
	return fmt.Sprintf("supabase: %s (status %d)", msg, e.StatusCode)
}

// Sentinel errors for the failure classes a liveness probe distinguishes.
// Errors returned by Client wrap one of these together with an *APIError
// when the server sent a structured body.
var (
	ErrTableNotFound     = errors.New("supabase: table not found")
	ErrAccessDenied      = errors.New("supabase: access denied")
	ErrInvalidCredential = errors.New("supabase: invalid API key")
	ErrInvalidEndpoint   = errors.New("supabase: invalid endpoint")
)

// PostgREST and Postgres error codes used for classification.
const (
	codeSchemaCacheMiss  = "PGRST205"
	codeUndefinedTable   = "42P01"
	codeInsufficientPriv = "42501"
	codeJWTInvalid       = "PGRST301"
	codeJWTMissing       = "PGRST302"
)

// classError wraps a sentinel and keeps the underlying API error reachable
// via errors.As.
type classError struct {
	class error
	api   *APIError
}

func (e *classError) Error() string {
	if e.api == nil {
		return e.class.Error()
	}
	return e.class.Error() + ": " + e.api.Message
}

func (e *classError) Unwrap() []error {
	if e.api == nil {
		return []error{e.class}
	}
	return []error{e.class, e.api}
}
