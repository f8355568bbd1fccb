// Package main provides the supabase-keepalive command, a scheduled liveness
// ping that keeps a Supabase project from auto-pausing.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sipico/supabase-keepalive/internal/config"
	"github.com/sipico/supabase-keepalive/internal/probe"
)

const version = "0.1.0"

// app carries the output streams and the exit code chosen by a subcommand.
type app struct {
	stdout   io.Writer
	stderr   io.Writer
	exitCode int

	// Replaced in tests.
	loadConfig func() (*config.Config, error)
	now        func() time.Time
}

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

// execute runs the command line and returns the process exit code. Errors
// returned by a command (bad flags, bad configuration) exit with
// probe.ExitConfig; probe failures set exitCode themselves.
func execute(args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, stderr: stderr, loadConfig: config.Load, now: time.Now}
	return a.run(args)
}

func (a *app) run(args []string) int {
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	if err := root.ExecuteContext(context.Background()); err != nil {
		//nolint:errcheck
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return probe.ExitConfig
	}
	return a.exitCode
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "supabase-keepalive",
		Short: "Keep a Supabase project awake with a scheduled read",
		Long: `Keep a Supabase project awake with a scheduled read.

Supabase pauses free-tier projects after a period of inactivity. Run
"supabase-keepalive ping" from a scheduler (GitHub Actions, cron, systemd)
to read a single row from a table and exit non-zero if the read fails.

Configuration is read from the environment, and from a .env file in the
working directory when present.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(a.pingCmd())
	root.AddCommand(a.scheduleCmd())
	root.AddCommand(a.watchCmd())
	root.AddCommand(a.versionCmd())

	return root
}

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			//nolint:errcheck
			fmt.Fprintf(a.stdout, "supabase-keepalive %s\n", version)
		},
	}
}

// config loads configuration, applies command-line overrides and validates
// the result.
func (a *app) config(override func(*config.Config)) (*config.Config, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}
	if override != nil {
		override(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
