package schedule

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ErrNeverFires is returned by Watcher.Run for schedules with no future
// fire time.
var ErrNeverFires = errors.New("schedule never fires")

// Watcher runs a function at every fire time of a schedule until its
// context is cancelled. Runs are strictly sequential: a run that overlaps
// the next fire time delays it rather than running concurrently.
type Watcher struct {
	Schedule *CronSchedule
	Logger   *slog.Logger

	// Now and After default to time.Now and time.After.
	Now   func() time.Time
	After func(time.Duration) <-chan time.Time
}

// Run blocks until ctx is done, calling fn at each fire time. It returns
// ctx.Err() on cancellation.
func (w *Watcher) Run(ctx context.Context, fn func(context.Context)) error {
	now := w.Now
	if now == nil {
		now = time.Now
	}
	after := w.After
	if after == nil {
		after = time.After
	}
	logger := w.Logger
	if logger == nil {
		logger = slog.Default()
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		current := now().UTC()
		next := w.Schedule.Next(current)
		if next.IsZero() {
			return ErrNeverFires
		}

		logger.Info("Waiting for next scheduled ping",
			"schedule", w.Schedule.String(),
			"next_run", next.Format(time.RFC3339),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-after(next.Sub(current)):
		}

		fn(ctx)
	}
}
