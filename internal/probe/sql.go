package probe

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	// Registers the "pgx" database/sql driver.
	_ "github.com/jackc/pgx/v5/stdlib"
)

// DefaultDriver is the database/sql driver used for direct Postgres probes.
const DefaultDriver = "pgx"

// SQLSTATE codes used for classification.
const (
	sqlstateUndefinedTable     = "42P01"
	sqlstateInsufficientPriv   = "42501"
	sqlstateInvalidPassword    = "28P01"
	sqlstateInvalidAuthSpec    = "28000"
	sqlstateInvalidCatalogName = "3D000"
)

// SQLProber reads directly over the Postgres wire protocol using a
// database/sql driver. Each probe opens and closes its own handle.
type SQLProber struct {
	Driver string // defaults to DefaultDriver
}

// NewSQLProber creates a SQLProber for the named database/sql driver.
func NewSQLProber(driver string) *SQLProber {
	return &SQLProber{Driver: driver}
}

func (p *SQLProber) driver() string {
	if p.Driver == "" {
		return DefaultDriver
	}
	return p.Driver
}

// Validate implements Prober.
func (p *SQLProber) Validate(t Target) error {
	if strings.TrimSpace(t.Endpoint) == "" {
		return &Error{Kind: InvalidEndpoint, Table: t.Table, Err: errors.New("database URL is empty")}
	}
	return validateCommon(t)
}

// Probe implements Prober.
func (p *SQLProber) Probe(ctx context.Context, t Target) (n int, err error) {
	db, err := sql.Open(p.driver(), t.Endpoint)
	if err != nil {
		return 0, &Error{Kind: InvalidEndpoint, Table: t.Table, Err: err}
	}
	defer func() {
		//nolint:errcheck
		db.Close()
	}()
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		return 0, &Error{Kind: sqlKind(err), Table: t.Table, Err: fmt.Errorf("connect: %w", err)}
	}

	query := fmt.Sprintf("SELECT %s FROM %s LIMIT 1", quoteIdent(t.Column), quoteQualified(t.Table))
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return 0, &Error{Kind: sqlKind(err), Table: t.Table, Err: err}
	}
	defer func() {
		//nolint:errcheck
		rows.Close()
	}()

	for rows.Next() {
		n++
	}
	if err := rows.Err(); err != nil {
		return 0, &Error{Kind: sqlKind(err), Table: t.Table, Err: err}
	}

	return n, nil
}

// sqlKind classifies database errors by SQLSTATE, falling back to network
// error types and, for drivers without SQLSTATE, the error text.
func sqlKind(err error) Kind {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlstateUndefinedTable:
			return ResourceNotFound
		case sqlstateInsufficientPriv:
			return AccessDenied
		case sqlstateInvalidPassword, sqlstateInvalidAuthSpec:
			return InvalidCredential
		case sqlstateInvalidCatalogName:
			return InvalidEndpoint
		}
		return TransportFailure
	}

	var parseErr *pgconn.ParseConfigError
	if errors.As(err, &parseErr) {
		return InvalidEndpoint
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return TransportFailure
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && !dnsErr.IsTimeout {
		return InvalidEndpoint
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" && !opErr.Timeout() {
		return InvalidEndpoint
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "no such table"):
		return ResourceNotFound
	case strings.Contains(msg, "permission denied"):
		return AccessDenied
	}
	return TransportFailure
}

// quoteIdent quotes a SQL identifier, doubling embedded quotes.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// quoteQualified quotes "schema.table" part by part.
func quoteQualified(name string) string {
	schema, table, ok := strings.Cut(name, ".")
	if !ok || schema == "" || table == "" {
		return quoteIdent(name)
	}
	return quoteIdent(schema) + "." + quoteIdent(table)
}
