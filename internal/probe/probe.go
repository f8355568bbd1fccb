// Package probe implements the keep-alive liveness ping: one bounded,
// read-only query against a configured table, classified into a small error
// taxonomy so the scheduler's run history shows why a run failed.
package probe

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Kind classifies a failed probe.
type Kind int

const (
	// TransportFailure covers network faults, timeouts, server errors and
	// anything else not classified more precisely.
	TransportFailure Kind = iota
	// ResourceNotFound means the target table does not exist.
	ResourceNotFound
	// AccessDenied means the credential is valid but may not read the table.
	AccessDenied
	// InvalidCredential means the credential is empty, malformed or rejected.
	InvalidCredential
	// InvalidEndpoint means the endpoint is empty, malformed or unreachable.
	InvalidEndpoint
)

// String returns the snake_case name used in logs and metric labels.
func (k Kind) String() string {
	switch k {
	case ResourceNotFound:
		return "resource_not_found"
	case AccessDenied:
		return "access_denied"
	case InvalidCredential:
		return "invalid_credential"
	case InvalidEndpoint:
		return "invalid_endpoint"
	default:
		return "transport_failure"
	}
}

// Target identifies what to read. For the REST prober Endpoint is the
// project URL and Credential the API key; for the SQL prober Endpoint is the
// database URL and Credential is unused.
type Target struct {
	Endpoint   string
	Credential string
	Table      string
	Column     string
}

// Result describes a successful probe.
type Result struct {
	Table    string
	Rows     int // 0 or 1
	Duration time.Duration
}

// Error is returned for every failed probe.
type Error struct {
	Kind  Kind
	Table string
	Err   error
}

// Error implements the error interface with a message suitable for the
// scheduler's run log.
func (e *Error) Error() string {
	var head string
	switch e.Kind {
	case ResourceNotFound:
		head = fmt.Sprintf("table %q does not exist", e.Table)
	case AccessDenied:
		head = fmt.Sprintf("access denied reading table %q", e.Table)
	case InvalidCredential:
		head = "invalid credential"
	case InvalidEndpoint:
		head = "invalid endpoint"
	default:
		head = fmt.Sprintf("reading table %q failed", e.Table)
	}
	if e.Err == nil {
		return head
	}
	return head + ": " + e.Err.Error()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of err, or TransportFailure when err carries none.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return TransportFailure
}

// Prober performs the single read behind a ping.
type Prober interface {
	// Validate rejects targets that cannot succeed, without any network I/O.
	Validate(t Target) error
	// Probe reads at most one row of t.Column from t.Table and returns the
	// number of rows read.
	Probe(ctx context.Context, t Target) (int, error)
}

// Ping validates the target and runs exactly one probe. There is no retry;
// the next scheduled run is the recovery mechanism. All returned errors are
// *Error.
func Ping(ctx context.Context, p Prober, t Target) (*Result, error) {
	if err := p.Validate(t); err != nil {
		return nil, asError(err, t.Table)
	}

	start := time.Now()
	rows, err := p.Probe(ctx, t)
	if err != nil {
		return nil, asError(err, t.Table)
	}

	return &Result{
		Table:    t.Table,
		Rows:     rows,
		Duration: time.Since(start),
	}, nil
}

func asError(err error, table string) *Error {
	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}
	return &Error{Kind: TransportFailure, Table: table, Err: err}
}

// validateCommon checks the fields every prober needs.
func validateCommon(t Target) error {
	if t.Table == "" {
		return &Error{Kind: ResourceNotFound, Table: t.Table, Err: errors.New("table name is empty")}
	}
	if t.Column == "" {
		return &Error{Kind: TransportFailure, Table: t.Table, Err: errors.New("column name is empty")}
	}
	return nil
}
