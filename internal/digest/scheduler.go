package digest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/coder/quartz"
	"github.com/robfig/cron/v3"

	"github.com/gafc98/temperature-logger/internal/mailer"
	"github.com/gafc98/temperature-logger/internal/modules/dispatches/types"
)

// DefaultSchedule fires every Monday at 02:00.
const DefaultSchedule = "0 2 * * 1"

// Runner sends one digest.
type Runner interface {
	Send(ctx context.Context, ref time.Time, simulate bool) (types.Dispatch, error)
}

// Scheduler sleeps until each occurrence of a cron schedule and sends the
// digest for that date. Missed occurrences are not caught up.
type Scheduler struct {
	schedule cron.Schedule
	runner   Runner
	clock    quartz.Clock
	loc      *time.Location
	logger   *slog.Logger
}

func NewScheduler(spec string, runner Runner, clock quartz.Clock, loc *time.Location, logger *slog.Logger) (*Scheduler, error) {
	if spec == "" {
		spec = DefaultSchedule
	}
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	if clock == nil {
		clock = quartz.NewReal()
	}
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{schedule: schedule, runner: runner, clock: clock, loc: loc, logger: logger}, nil
}

// Next returns the first occurrence strictly after now.
func (s *Scheduler) Next(now time.Time) time.Time {
	return s.schedule.Next(now.In(s.loc))
}

// Run loops until ctx is canceled or a send fails. A week without
// subscribers is logged and skipped instead of ending the loop, so an empty
// mailing list does not stop later digests; every other send error is
// returned.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		now := s.clock.Now()
		next := s.Next(now)
		s.logger.Info("next digest scheduled", "at", next, "in", next.Sub(now).Round(time.Second))

		timer := s.clock.NewTimer(next.Sub(now), "digest", "wait")
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}

		if _, err := s.runner.Send(ctx, next, false); err != nil {
			if errors.Is(err, mailer.ErrNoRecipients) {
				s.logger.Warn("digest skipped: no subscribers", "at", next)
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("digest for %s: %w", next.Format(time.DateOnly), err)
		}
	}
}
