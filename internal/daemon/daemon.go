// Package daemon runs the periodic care task catch-up on a cron schedule.
package daemon

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/zulandar/carecal/internal/caretask"
	"github.com/zulandar/carecal/internal/config"
	"github.com/zulandar/carecal/internal/logging"
	"gorm.io/gorm"
)

// Opts configures the catch-up daemon.
type Opts struct {
	DB         *gorm.DB
	Schedule   string        // 5-field cron expression
	Horizon    time.Duration // how far past now each run materializes
	RunOnStart bool
	Logger     logging.Logger
	Now        func() time.Time
}

// Run materializes every team's care tasks up to now+Horizon each time the
// schedule fires. It blocks until ctx is cancelled. A failed run is logged
// and retried at the next fire time.
func Run(ctx context.Context, opts Opts) error {
	if opts.DB == nil {
		return fmt.Errorf("daemon: db is required")
	}
	if opts.Horizon <= 0 {
		return fmt.Errorf("daemon: horizon must be positive")
	}
	sched, err := config.CronParser.Parse(opts.Schedule)
	if err != nil {
		return fmt.Errorf("daemon: schedule %q: %w", opts.Schedule, err)
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	opts.Logger.Info("catch-up daemon starting", "schedule", opts.Schedule, "horizon", opts.Horizon)
	defer opts.Logger.Info("catch-up daemon stopped")

	if opts.RunOnStart {
		RunOnce(opts.DB, opts.Now(), opts.Horizon, opts.Logger)
	}
	for {
		wait := untilNext(sched, opts.Now())
		opts.Logger.Debug("next catch-up", "in", wait)
		if !sleepWithContext(ctx, wait) {
			return nil
		}
		RunOnce(opts.DB, opts.Now(), opts.Horizon, opts.Logger)
	}
}

// RunOnce performs a single catch-up pass and logs its outcome.
func RunOnce(db *gorm.DB, now time.Time, horizon time.Duration, log logging.Logger) ([]caretask.Result, error) {
	results, err := caretask.CatchUp(db, now, horizon)
	for _, r := range results {
		log.Info("catch-up", "team", r.TeamID, "inserted", r.Inserted, "cursor", r.Cursor)
	}
	if err != nil {
		log.Error("catch-up failed", "error", err)
	}
	return results, err
}

func untilNext(sched cron.Schedule, now time.Time) time.Duration {
	d := sched.Next(now).Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// sleepWithContext waits for d and reports false if ctx ended first.
func sleepWithContext(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
