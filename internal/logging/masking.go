// Package logging provides slog setup and masking of secrets before they are logged.
package logging

import (
	"net/http"
	"net/url"
	"strings"
)

// MaskHeader redacts sensitive header values based on header name.
// Returns the redacted value suitable for logging.
//
// Rules:
// - Password/secret headers: "[REDACTED]" (no partial reveal)
// - Token/API key headers: "****" + last4chars (e.g., "****ab3f")
// - Other headers: returned unchanged
func MaskHeader(name, value string) string {
	lowerName := strings.ToLower(name)

	if strings.Contains(lowerName, "password") ||
		strings.Contains(lowerName, "secret") ||
		strings.Contains(lowerName, "private-key") {
		return "[REDACTED]"
	}

	if lowerName == "authorization" ||
		lowerName == "apikey" ||
		lowerName == "x-api-key" {
		return MaskSecret(value)
	}

	return value
}

// MaskSecret keeps only the last four characters of a secret.
// Values shorter than eight characters are fully masked.
func MaskSecret(value string) string {
	if len(value) < 8 {
		return "****"
	}
	return "****" + value[len(value)-4:]
}

// MaskHeaders flattens headers into a map with sensitive values masked.
func MaskHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		masked := make([]string, len(v))
		for i, val := range v {
			masked[i] = MaskHeader(k, val)
		}
		out[k] = strings.Join(masked, ", ")
	}
	return out
}

// MaskDSN replaces the password in a database URL with "xxxxx", the same
// placeholder url.URL.Redacted uses. Keyword/value DSNs ("host=... password=...")
// have their password field replaced.
// Unparseable input is fully redacted.
func MaskDSN(dsn string) string {
	if dsn == "" {
		return ""
	}
	if strings.Contains(dsn, "://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "[REDACTED]"
		}
		if q := u.Query(); q.Has("password") {
			q.Set("password", "xxxxx")
			u.RawQuery = q.Encode()
		}
		return u.Redacted()
	}

	fields := strings.Fields(dsn)
	for i, f := range fields {
		if k, _, ok := strings.Cut(f, "="); ok && strings.EqualFold(k, "password") {
			fields[i] = k + "=xxxxx"
		}
	}
	return strings.Join(fields, " ")
}
