package mocksupabase

import (
	"bytes"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sipico/supabase-keepalive/internal/logging"
)

// LoggingMiddleware logs all HTTP requests and responses to the mock server.
// Only active when logger is provided (non-nil).
func LoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if logger == nil {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()

			logger.Info("MockSupabase received request",
				"method", r.Method,
				"url", r.URL.String(),
				"request_id", r.Header.Get("X-Request-ID"),
				"headers", logging.MaskHeaders(r.Header),
			)

			rec := &responseRecorder{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
				body:           new(bytes.Buffer),
			}

			next.ServeHTTP(rec, r)

			logger.Info("MockSupabase sent response",
				"method", r.Method,
				"url", r.URL.String(),
				"status_code", rec.statusCode,
				"duration_ms", time.Since(start).Milliseconds(),
				"body", rec.body.String(),
			)
		})
	}
}

// responseRecorder captures response details for logging.
type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
}

// WriteHeader captures the status code and writes it to the response.
func (r *responseRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

// Write captures the response body and writes it to the response.
func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.state.mu.Lock()
		s.state.requests++
		s.state.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) failureInjection(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.state.mu.RLock()
		status := s.state.failWith
		s.state.mu.RUnlock()

		if status != 0 {
			writeJSON(w, status, ErrorResponse{Message: http.StatusText(status)})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireAPIKey mimics the Supabase API gateway: an apikey header (or query
// parameter) must be present and, when keys are restricted, known. A bearer
// token that does not match a known key is rejected by PostgREST as a bad JWT.
func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("apikey")
		if key == "" {
			key = r.URL.Query().Get("apikey")
		}
		if key == "" {
			writeJSON(w, http.StatusUnauthorized, ErrorResponse{
				Message: "No API key found in request",
				Hint:    strPtr("No `apikey` request header or url param was found."),
			})
			return
		}

		s.state.mu.RLock()
		restricted := len(s.state.keys) > 0
		known := s.state.keys[key]
		var tokenKnown bool
		token, hasBearer := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if hasBearer {
			tokenKnown = s.state.keys[token]
		}
		s.state.mu.RUnlock()

		if restricted && !known {
			writeJSON(w, http.StatusUnauthorized, ErrorResponse{
				Message: "Invalid API key",
				Hint:    strPtr("Double check your Supabase `anon` or `service_role` API key."),
			})
			return
		}
		if restricted && hasBearer && !tokenKnown {
			writeJSON(w, http.StatusUnauthorized, ErrorResponse{
				Code:    "PGRST301",
				Message: "JWSError JWSInvalidSignature",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func strPtr(s string) *string {
	return &s
}
