package probe

import (
	"context"
	"errors"
	"strings"

	"github.com/sipico/supabase-keepalive/internal/supabase"
)

// RESTProber reads through the Supabase PostgREST API, the same request the
// JavaScript client's from(table).select(column).limit(1) makes.
type RESTProber struct {
	Options []supabase.Option
}

// NewRESTProber creates a RESTProber whose clients use opts.
func NewRESTProber(opts ...supabase.Option) *RESTProber {
	return &RESTProber{Options: opts}
}

// Validate implements Prober.
func (p *RESTProber) Validate(t Target) error {
	if _, err := supabase.ParseEndpoint(t.Endpoint); err != nil {
		return &Error{Kind: InvalidEndpoint, Table: t.Table, Err: err}
	}
	if strings.TrimSpace(t.Credential) == "" {
		return &Error{Kind: InvalidCredential, Table: t.Table, Err: errors.New("API key is empty")}
	}
	if strings.ContainsAny(t.Credential, " \t\r\n") {
		return &Error{Kind: InvalidCredential, Table: t.Table, Err: errors.New("API key contains whitespace")}
	}
	return validateCommon(t)
}

// Probe implements Prober.
func (p *RESTProber) Probe(ctx context.Context, t Target) (int, error) {
	client := supabase.NewClient(t.Endpoint, t.Credential, p.Options...)

	resp, err := client.Select(ctx, t.Table, &supabase.SelectOptions{
		Columns: []string{t.Column},
		Limit:   1,
	})
	if err != nil {
		return 0, &Error{Kind: restKind(err), Table: t.Table, Err: err}
	}

	return resp.Count(), nil
}

func restKind(err error) Kind {
	switch {
	case errors.Is(err, supabase.ErrTableNotFound):
		return ResourceNotFound
	case errors.Is(err, supabase.ErrAccessDenied):
		return AccessDenied
	case errors.Is(err, supabase.ErrInvalidCredential):
		return InvalidCredential
	case errors.Is(err, supabase.ErrInvalidEndpoint):
		return InvalidEndpoint
	default:
		return TransportFailure
	}
}
