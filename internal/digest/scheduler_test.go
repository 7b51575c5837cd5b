package digest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gafc98/temperature-logger/internal/mailer"
	"github.com/gafc98/temperature-logger/internal/modules/dispatches/types"
)

type fakeRunner struct {
	refs chan time.Time
	errs []error
}

func (f *fakeRunner) Send(_ context.Context, ref time.Time, simulate bool) (types.Dispatch, error) {
	f.refs <- ref
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return types.Dispatch{}, err
	}
	return types.Dispatch{Simulated: simulate}, nil
}

func TestSchedulerNext(t *testing.T) {
	s, err := NewScheduler(DefaultSchedule, nil, nil, time.UTC, discard)
	require.NoError(t, err)

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{name: "midweek", now: time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC), want: time.Date(2024, 1, 8, 2, 0, 0, 0, time.UTC)},
		{name: "monday before two", now: time.Date(2024, 1, 8, 1, 0, 0, 0, time.UTC), want: time.Date(2024, 1, 8, 2, 0, 0, 0, time.UTC)},
		{name: "monday at two", now: time.Date(2024, 1, 8, 2, 0, 0, 0, time.UTC), want: time.Date(2024, 1, 15, 2, 0, 0, 0, time.UTC)},
		{name: "sunday night", now: time.Date(2024, 1, 14, 23, 59, 0, 0, time.UTC), want: time.Date(2024, 1, 15, 2, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, s.Next(tt.now).Equal(tt.want), "Next(%v) = %v, want %v", tt.now, s.Next(tt.now), tt.want)
		})
	}
}

func TestNewScheduler_invalidSpec(t *testing.T) {
	_, err := NewScheduler("every monday", nil, nil, time.UTC, discard)
	assert.Error(t, err)
}

func TestSchedulerRun(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clk := quartz.NewMock(t)
	clk.Set(time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC))
	trap := clk.Trap().NewTimer("digest", "wait")
	defer trap.Close()

	runner := &fakeRunner{refs: make(chan time.Time, 2)}
	s, err := NewScheduler(DefaultSchedule, runner, clk, time.UTC, discard)
	require.NoError(t, err)

	runCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- s.Run(runCtx) }()

	call := trap.MustWait(ctx)
	call.MustRelease(ctx)
	assert.Equal(t, 4*24*time.Hour+16*time.Hour, call.Duration)
	clk.Advance(call.Duration).MustWait(ctx)

	select {
	case ref := <-runner.refs:
		assert.True(t, ref.Equal(time.Date(2024, 1, 8, 2, 0, 0, 0, time.UTC)), "ref = %v", ref)
	case <-ctx.Done():
		t.Fatal("digest was not sent")
	}

	call = trap.MustWait(ctx)
	call.MustRelease(ctx)
	assert.Equal(t, 7*24*time.Hour, call.Duration)

	stop()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-ctx.Done():
		t.Fatal("Run did not return after cancel")
	}
}

func TestSchedulerRun_skipsWeekWithoutSubscribers(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clk := quartz.NewMock(t)
	clk.Set(time.Date(2024, 1, 8, 1, 0, 0, 0, time.UTC))
	trap := clk.Trap().NewTimer("digest", "wait")
	defer trap.Close()

	runner := &fakeRunner{refs: make(chan time.Time, 2), errs: []error{mailer.ErrNoRecipients}}
	s, err := NewScheduler(DefaultSchedule, runner, clk, time.UTC, discard)
	require.NoError(t, err)

	runCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- s.Run(runCtx) }()

	call := trap.MustWait(ctx)
	call.MustRelease(ctx)
	assert.Equal(t, time.Hour, call.Duration)
	clk.Advance(call.Duration).MustWait(ctx)
	<-runner.refs

	// the loop keeps going after the skipped week
	call = trap.MustWait(ctx)
	call.MustRelease(ctx)
	stop()
	require.NoError(t, <-done)
}

func TestSchedulerRun_stopsOnSendFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clk := quartz.NewMock(t)
	clk.Set(time.Date(2024, 1, 8, 1, 0, 0, 0, time.UTC))
	trap := clk.Trap().NewTimer("digest", "wait")
	defer trap.Close()

	boom := errors.New("smtp down")
	runner := &fakeRunner{refs: make(chan time.Time, 1), errs: []error{boom}}
	s, err := NewScheduler(DefaultSchedule, runner, clk, time.UTC, discard)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	call := trap.MustWait(ctx)
	call.MustRelease(ctx)
	clk.Advance(call.Duration).MustWait(ctx)

	select {
	case err := <-done:
		assert.ErrorIs(t, err, boom)
	case <-ctx.Done():
		t.Fatal("Run did not return the send error")
	}
}
