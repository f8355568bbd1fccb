package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	// DefaultRESTPath is the path prefix under which Supabase serves PostgREST.
	DefaultRESTPath = "/rest/v1"

	// DefaultUserAgent identifies the client in Supabase request logs.
	DefaultUserAgent = "supabase-keepalive"
)

// Client is an HTTP client for the PostgREST API of a Supabase project.
type Client struct {
	baseURL    string
	restPath   string
	apiKey     string
	userAgent  string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithRESTPath overrides the PostgREST path prefix (useful for self-hosted
// PostgREST without the Supabase gateway). "/" or "" addresses tables at the
// server root.
func WithRESTPath(path string) Option {
	return func(c *Client) {
		c.restPath = strings.TrimRight(path, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithUserAgent sets the User-Agent header sent on every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// NewClient creates a new PostgREST client for the project at baseURL,
// authenticated with apiKey. The URL is not checked until the first request;
// use ParseEndpoint to validate it up front.
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		restPath:   DefaultRESTPath,
		apiKey:     apiKey,
		userAgent:  DefaultUserAgent,
		httpClient: http.DefaultClient,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// ParseEndpoint validates a project URL. It must be an absolute http or https
// URL with a host and nothing after it: the REST path is appended by the
// client, so a path, query or fragment would address the wrong resource.
// Failures wrap ErrInvalidEndpoint.
func ParseEndpoint(raw string) (*url.URL, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("%w: URL is empty", ErrInvalidEndpoint)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEndpoint, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidEndpoint, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host in %q", ErrInvalidEndpoint, raw)
	}
	if u.Path != "" && u.Path != "/" {
		return nil, fmt.Errorf("%w: unexpected path %q, use the project URL only", ErrInvalidEndpoint, u.Path)
	}
	if u.RawQuery != "" || u.ForceQuery {
		return nil, fmt.Errorf("%w: unexpected query in %q", ErrInvalidEndpoint, raw)
	}
	if u.Fragment != "" || strings.Contains(raw, "#") {
		return nil, fmt.Errorf("%w: unexpected fragment in %q", ErrInvalidEndpoint, raw)
	}
	return u, nil
}

// SelectOptions restricts a Select request.
type SelectOptions struct {
	Columns []string // empty selects "*"
	Limit   int      // 0 means no limit
}

// SelectResponse holds the rows returned by a Select request.
type SelectResponse struct {
	Rows []json.RawMessage
}

// Count returns the number of rows returned.
func (r *SelectResponse) Count() int {
	return len(r.Rows)
}

// Select reads rows from table. A table given as "schema.table" is read from
// that schema via the Accept-Profile header.
// GET /rest/v1/{table}?select=...&limit=...
func (c *Client) Select(ctx context.Context, table string, opts *SelectOptions) (*SelectResponse, error) {
	if opts == nil {
		opts = &SelectOptions{}
	}
	if table == "" {
		return nil, fmt.Errorf("supabase: table name is required")
	}
	if _, err := ParseEndpoint(c.baseURL); err != nil {
		return nil, err
	}

	schema, name := splitTable(table)

	query := url.Values{}
	if len(opts.Columns) > 0 {
		query.Set("select", strings.Join(opts.Columns, ","))
	} else {
		query.Set("select", "*")
	}
	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
	}

	endpoint := c.baseURL + c.restPath + "/" + url.PathEscape(name) + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEndpoint, err)
	}
	c.setHeaders(req)
	if schema != "" {
		req.Header.Set("Accept-Profile", schema)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer func() {
		//nolint:errcheck
		resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return nil, parseError(resp.StatusCode, body)
	}

	var rows []json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &SelectResponse{Rows: rows}, nil
}

// setHeaders applies the Supabase authentication headers. The gateway checks
// apikey and PostgREST derives the database role from the bearer token.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
}

// splitTable separates an optional schema qualifier from the table name.
func splitTable(table string) (schema, name string) {
	if i := strings.IndexByte(table, '.'); i > 0 && i < len(table)-1 {
		return table[:i], table[i+1:]
	}
	return "", table
}

// classifyTransportError maps failures before any HTTP response to the error
// taxonomy. Unresolvable hosts and refused connections mean the endpoint is
// wrong; everything else (timeouts, resets, cancellation) stays generic.
func classifyTransportError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("supabase: request failed: %w", err)
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && !dnsErr.IsTimeout {
		return fmt.Errorf("%w: cannot resolve host %q", ErrInvalidEndpoint, dnsErr.Name)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" && !opErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrInvalidEndpoint, opErr.Err)
	}

	return fmt.Errorf("supabase: request failed: %w", err)
}

// parseError parses API error responses and returns an appropriate error.
func parseError(statusCode int, body []byte) error {
	var apiErr *APIError
	var decoded APIError
	if err := json.Unmarshal(body, &decoded); err == nil && (decoded.Message != "" || decoded.Code != "") {
		decoded.StatusCode = statusCode
		apiErr = &decoded
	}

	code := ""
	if apiErr != nil {
		code = apiErr.Code
	}

	// PostgREST always names a missing table with a code. A 404 without one
	// came from something in front of it, i.e. the URL is wrong.
	switch {
	case code == codeSchemaCacheMiss || code == codeUndefinedTable:
		return &classError{class: ErrTableNotFound, api: apiErr}
	case statusCode == http.StatusNotFound:
		return &classError{class: ErrInvalidEndpoint, api: apiErr}
	case code == codeInsufficientPriv || statusCode == http.StatusForbidden:
		return &classError{class: ErrAccessDenied, api: apiErr}
	case code == codeJWTInvalid || code == codeJWTMissing || statusCode == http.StatusUnauthorized:
		return &classError{class: ErrInvalidCredential, api: apiErr}
	case apiErr != nil:
		return apiErr
	case statusCode >= http.StatusInternalServerError:
		return fmt.Errorf("supabase: server error (status %d)", statusCode)
	default:
		return fmt.Errorf("supabase: request failed (status %d)", statusCode)
	}
}
