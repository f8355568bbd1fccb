package supabase

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/sipico/supabase-keepalive/internal/logging"
)

// RequestIDHeader carries a per-request UUID so a ping can be matched with
// the Supabase API gateway logs.
const RequestIDHeader = "X-Request-ID"

// LoggingTransport wraps an http.RoundTripper and logs all HTTP interactions
// at debug level. It redacts the apikey and Authorization headers.
type LoggingTransport struct {
	Transport http.RoundTripper
	Logger    *slog.Logger
}

// RoundTrip implements http.RoundTripper interface
func (t *LoggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	// RoundTrippers must not modify the caller's request.
	req = req.Clone(req.Context())
	requestID := req.Header.Get(RequestIDHeader)
	if requestID == "" {
		requestID = uuid.New().String()
		req.Header.Set(RequestIDHeader, requestID)
	}

	t.logger().Debug("HTTP Request",
		"request_id", requestID,
		"method", req.Method,
		"url", req.URL.String(),
		"headers", logging.MaskHeaders(req.Header),
	)

	resp, err := t.transport().RoundTrip(req)
	duration := time.Since(start)

	if err != nil {
		t.logger().Debug("HTTP request failed",
			"request_id", requestID,
			"method", req.Method,
			"url", req.URL.String(),
			"duration_ms", duration.Milliseconds(),
			"error", err,
		)
		return nil, err
	}

	respBodyBytes, err := io.ReadAll(resp.Body)
	//nolint:errcheck
	resp.Body.Close()
	if err != nil {
		return nil, err
	}
	// Restore body for caller
	resp.Body = io.NopCloser(bytes.NewReader(respBodyBytes))

	t.logger().Debug("HTTP Response",
		"request_id", requestID,
		"status_code", resp.StatusCode,
		"duration_ms", duration.Milliseconds(),
		"body", string(respBodyBytes),
	)

	return resp, nil
}

// transport returns the underlying transport or DefaultTransport if nil
func (t *LoggingTransport) transport() http.RoundTripper {
	if t.Transport != nil {
		return t.Transport
	}
	return http.DefaultTransport
}

func (t *LoggingTransport) logger() *slog.Logger {
	if t.Logger != nil {
		return t.Logger
	}
	return slog.Default()
}
