package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/sipico/supabase-keepalive/internal/config"
	"github.com/sipico/supabase-keepalive/internal/logging"
	"github.com/sipico/supabase-keepalive/internal/metrics"
	"github.com/sipico/supabase-keepalive/internal/probe"
	"github.com/sipico/supabase-keepalive/internal/supabase"
)

// probeFlags are the overrides shared by ping and watch.
type probeFlags struct {
	table  string
	column string
	mode   string
}

func (f *probeFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.table, "table", "", "table to read (overrides KEEPALIVE_TABLE)")
	cmd.Flags().StringVar(&f.column, "column", "", "column to select (overrides KEEPALIVE_COLUMN)")
	cmd.Flags().StringVar(&f.mode, "mode", "", "probe mode, rest or sql (overrides PROBE_MODE)")
}

func (f *probeFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("table") {
		cfg.Table = f.table
	}
	if cmd.Flags().Changed("column") {
		cfg.Column = f.column
	}
	if cmd.Flags().Changed("mode") {
		cfg.ProbeMode = f.mode
	}
}

func (a *app) pingCmd() *cobra.Command {
	var flags probeFlags
	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Read one row from the keepalive table",
		Long: `Read at most one row of one column from the keepalive table.

On success prints "Supabase ping succeeded: Found N records in TABLE" and
exits 0. An empty table is a success. Any failure prints
"Supabase ping failed: ..." to stderr and exits 1. Configuration errors
exit 2. There is no retry; the next scheduled run is the retry.

Example:
  SUPABASE_URL=https://abc.supabase.co SUPABASE_KEY=... supabase-keepalive ping
  supabase-keepalive ping --table stats.pings --column created_at`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config(func(c *config.Config) { flags.apply(cmd, c) })
			if err != nil {
				return err
			}
			r, err := newRunner(cfg, a.stderr)
			if err != nil {
				return err
			}
			a.exitCode = r.ping(cmd.Context(), a.stdout, a.stderr)
			return nil
		},
	}
	flags.bind(cmd)
	return cmd
}

// runner performs pings for one configuration and records their metrics.
type runner struct {
	cfg        *config.Config
	logger     *slog.Logger
	registry   *prometheus.Registry
	httpClient *http.Client
	prober     probe.Prober
}

func newRunner(cfg *config.Config, logOut io.Writer) (*runner, error) {
	logger, err := logging.New(logOut, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	if err := metrics.Init(registry, version); err != nil {
		return nil, err
	}

	httpClient := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: &supabase.LoggingTransport{Logger: logger},
	}

	r := &runner{
		cfg:        cfg,
		logger:     logger,
		registry:   registry,
		httpClient: httpClient,
	}

	switch cfg.ProbeMode {
	case "sql":
		r.prober = probe.NewSQLProber(probe.DefaultDriver)
	default:
		opts := []supabase.Option{
			supabase.WithHTTPClient(httpClient),
			supabase.WithUserAgent(supabase.DefaultUserAgent + "/" + version),
		}
		if cfg.RESTPath != "" {
			opts = append(opts, supabase.WithRESTPath(cfg.RESTPath))
		}
		r.prober = probe.NewRESTProber(opts...)
	}

	return r, nil
}

func (r *runner) target() probe.Target {
	t := probe.Target{Table: r.cfg.Table, Column: r.cfg.Column}
	if r.cfg.ProbeMode == "sql" {
		t.Endpoint = r.cfg.DatabaseURL
		return t
	}
	t.Endpoint = r.cfg.SupabaseURL
	t.Credential = r.cfg.SupabaseKey
	return t
}

// ping runs a single probe, reports it and returns the exit code.
func (r *runner) ping(ctx context.Context, stdout, stderr io.Writer) int {
	t := r.target()

	endpoint := t.Endpoint
	if r.cfg.ProbeMode == "sql" {
		endpoint = logging.MaskDSN(endpoint)
	}
	logger := r.logger.With("table", t.Table, "mode", r.cfg.ProbeMode)
	logger.Info("Pinging Supabase", "endpoint", endpoint)

	probeCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	start := time.Now()
	res, err := probe.Ping(probeCtx, r.prober, t)
	if err != nil {
		kind := probe.KindOf(err)
		metrics.RecordFailure(t.Table, kind.String(), time.Since(start))
		logger.Error("Ping failed", "kind", kind.String(), "error", err)
	} else {
		metrics.RecordSuccess(t.Table, res.Rows, res.Duration, time.Now())
		logger.Info("Ping succeeded", "rows", res.Rows, "duration", res.Duration)
	}

	r.exportMetrics(ctx)

	return probe.Report(stdout, stderr, res, err)
}

// exportMetrics pushes and writes metrics when configured. Failures are
// logged and never change the run's outcome.
func (r *runner) exportMetrics(ctx context.Context) {
	if r.cfg.PushgatewayURL != "" {
		pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.Timeout)
		defer cancel()
		if err := metrics.Push(pushCtx, r.cfg.PushgatewayURL, r.registry, r.httpClient); err != nil {
			r.logger.Warn("Failed to push metrics", "pushgateway", r.cfg.PushgatewayURL, "error", err)
		}
	}
	if r.cfg.MetricsTextfile != "" {
		if err := metrics.WriteTextfile(r.cfg.MetricsTextfile, r.registry); err != nil {
			r.logger.Warn("Failed to write metrics textfile", "path", r.cfg.MetricsTextfile, "error", err)
		}
	}
}
