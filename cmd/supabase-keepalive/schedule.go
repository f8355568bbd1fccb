package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sipico/supabase-keepalive/internal/config"
	"github.com/sipico/supabase-keepalive/internal/schedule"
)

func (a *app) scheduleCmd() *cobra.Command {
	var (
		expr  string
		count int
	)
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Show the next fire times of a cron schedule",
		Long: `Validate a 5-field cron expression and print its next fire times in UTC.

Use this to check the expression in .github/workflows/keepalive.yml before
committing it. Without --expr the KEEPALIVE_SCHEDULE setting is used.

Example:
  supabase-keepalive schedule
  supabase-keepalive schedule --expr "0 9 * * 1,4" --count 10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 {
				return fmt.Errorf("--count must be at least 1, got %d", count)
			}
			if !cmd.Flags().Changed("expr") {
				cfg, err := a.loadConfig()
				if err != nil {
					return err
				}
				expr = cfg.Schedule
			}

			c, err := schedule.ParseCron(expr)
			if err != nil {
				return err
			}

			times := c.Upcoming(a.now().UTC(), count)
			if len(times) == 0 {
				return fmt.Errorf("%q: %w", expr, schedule.ErrNeverFires)
			}

			//nolint:errcheck
			fmt.Fprintf(a.stdout, "Schedule: %s (UTC)\n", c)
			for _, t := range times {
				//nolint:errcheck
				fmt.Fprintln(a.stdout, t.Format(time.RFC3339))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&expr, "expr", "", "cron expression, minute hour day month weekday (default KEEPALIVE_SCHEDULE)")
	cmd.Flags().IntVarP(&count, "count", "n", 5, "number of fire times to print")
	return cmd
}

func (a *app) watchCmd() *cobra.Command {
	var (
		flags probeFlags
		expr  string
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Ping on a cron schedule until interrupted",
		Long: `Run in the foreground and ping at every fire time of a cron schedule.

For hosts without a scheduler of their own. Each tick is an independent
ping; a failed ping is logged and the next tick runs as usual. Stop with
SIGINT or SIGTERM.

Example:
  supabase-keepalive watch
  supabase-keepalive watch --expr "0 */12 * * *"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config(func(c *config.Config) {
				flags.apply(cmd, c)
				if cmd.Flags().Changed("expr") {
					c.Schedule = expr
				}
			})
			if err != nil {
				return err
			}
			c, err := cfg.CronSchedule()
			if err != nil {
				return err
			}
			r, err := newRunner(cfg, a.stderr)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			w := &schedule.Watcher{Schedule: c, Logger: r.logger}
			err = w.Run(ctx, func(ctx context.Context) {
				r.ping(ctx, a.stdout, a.stderr)
			})
			if errors.Is(err, context.Canceled) {
				r.logger.Info("Watch stopped")
				return nil
			}
			return err
		},
	}
	flags.bind(cmd)
	cmd.Flags().StringVar(&expr, "expr", "", "cron expression (overrides KEEPALIVE_SCHEDULE)")
	return cmd
}
