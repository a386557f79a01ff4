// Copyright (C) 2025 SeismoHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

// Package scheduler registers the extraction task with the cron machinery
// and declares its retry/concurrency/catch-up parameters. Cadence and the
// single-flight guarantee come from robfig/cron; retry spacing comes from
// cenkalti/backoff. Run-history persistence stays with the scheduler's
// collaborators: outputs are overwrite-idempotent, so catch-up is recomputed
// from the configured start date on every boot and replays are safe.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/seismohq/quakefeed/internal/window"
)

// TaskFunc is the unit of work the driver invokes once per due interval.
type TaskFunc func(ctx context.Context, w window.Window) error

// Descriptor declares a schedulable task: identity, cadence, catch-up
// origin, retry policy, concurrency ceiling, and descriptive metadata.
type Descriptor struct {
	ID            string
	Owner         string
	Cron          string // standard 5-field expression, evaluated in UTC
	StartDate     time.Time
	Retries       int
	RetryDelay    time.Duration
	MaxConcurrent int
	Tags          []string
	Short         string
	Long          string
}

// Validate rejects descriptors the driver cannot honor.
func (d Descriptor) Validate() error {
	if d.ID == "" {
		return errors.New("scheduler: descriptor ID is required")
	}
	if _, err := cron.ParseStandard(d.Cron); err != nil {
		return fmt.Errorf("scheduler: cron expression %q: %w", d.Cron, err)
	}
	if d.StartDate.IsZero() {
		return errors.New("scheduler: start date is required")
	}
	if d.Retries < 0 {
		return errors.New("scheduler: retries must not be negative")
	}
	if d.RetryDelay < 0 {
		return errors.New("scheduler: retry delay must not be negative")
	}
	if d.MaxConcurrent > 1 {
		return errors.New("scheduler: only a concurrency ceiling of 1 is supported")
	}
	return nil
}

// Driver owns the cron runner and the interval bookkeeping for one task.
type Driver struct {
	ll   *slog.Logger
	cron *cron.Cron
	now  func() time.Time

	desc  Descriptor
	fn    TaskFunc
	sched cron.Schedule

	// runMu keeps catch-up and live firings from overlapping; nextStart is
	// the start boundary of the next due interval.
	runMu     sync.Mutex
	stateMu   sync.Mutex
	nextStart time.Time

	ctx context.Context
}

// DriverOption configures a Driver.
type DriverOption func(*Driver)

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) DriverOption {
	return func(d *Driver) { d.now = now }
}

// NewDriver builds an empty driver. The cron runner evaluates expressions in
// UTC and skips a firing while the previous one is still running.
func NewDriver(ll *slog.Logger, opts ...DriverOption) *Driver {
	if ll == nil {
		ll = slog.Default()
	}
	d := &Driver{ll: ll, now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	cl := cronLogger{ll: ll}
	d.cron = cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	return d
}

// Register wires the task into the cron runner. Exactly one task may be
// registered per driver.
func (d *Driver) Register(desc Descriptor, fn TaskFunc) error {
	if fn == nil {
		return errors.New("scheduler: task func is required")
	}
	if err := desc.Validate(); err != nil {
		return err
	}
	if d.fn != nil {
		return errors.New("scheduler: a task is already registered")
	}
	sched, err := cron.ParseStandard(desc.Cron)
	if err != nil {
		return fmt.Errorf("scheduler: cron expression %q: %w", desc.Cron, err)
	}
	if _, err := d.cron.AddFunc(desc.Cron, d.fire); err != nil {
		return fmt.Errorf("scheduler: register %s: %w", desc.ID, err)
	}

	d.desc = desc
	d.fn = fn
	d.sched = sched
	d.nextStart = firstSlot(sched, desc.StartDate)

	d.ll.Info("Task registered",
		slog.String("task", desc.ID),
		slog.String("owner", desc.Owner),
		slog.String("cron", desc.Cron),
		slog.Time("start_date", desc.StartDate),
		slog.Int("retries", desc.Retries),
		slog.Duration("retry_delay", desc.RetryDelay),
		slog.Any("tags", desc.Tags))
	return nil
}

// Start runs catch-up for every interval missed since the descriptor's start
// date, then hands cadence over to cron. It returns after catch-up; firings
// continue in the background until Stop.
func (d *Driver) Start(ctx context.Context) error {
	if d.fn == nil {
		return errors.New("scheduler: no task registered")
	}
	d.ctx = ctx

	d.runMu.Lock()
	d.drain(ctx, d.now())
	d.runMu.Unlock()

	d.cron.Start()
	d.ll.Info("Schedule driver started", slog.String("task", d.desc.ID))
	return nil
}

// Stop halts the cron runner and waits for an in-flight firing to finish.
func (d *Driver) Stop() {
	<-d.cron.Stop().Done()
	d.ll.Info("Schedule driver stopped", slog.String("task", d.desc.ID))
}

// fire services one cron activation. It drains every interval due by now, so
// a firing that slipped past its slot also heals the backlog.
func (d *Driver) fire() {
	if !d.runMu.TryLock() {
		d.ll.Info("Previous run still active, skipping firing", slog.String("task", d.desc.ID))
		return
	}
	defer d.runMu.Unlock()

	ctx := d.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	d.drain(ctx, d.now())
}

// drain executes, in increasing order, every interval that became due at or
// before until. A terminally failed interval is logged and skipped so later
// intervals are not blocked; its output can be backfilled later.
func (d *Driver) drain(ctx context.Context, until time.Time) {
	d.stateMu.Lock()
	anchor := d.nextStart
	d.stateMu.Unlock()

	for _, iv := range PendingIntervals(d.sched, anchor, until) {
		if ctx.Err() != nil {
			return
		}
		if err := d.runInterval(ctx, iv); err != nil {
			d.ll.Error("Firing failed terminally",
				slog.String("task", d.desc.ID),
				slog.Time("interval_start", iv.Start),
				slog.Time("interval_end", iv.End),
				slog.Any("error", err))
		}
		d.stateMu.Lock()
		d.nextStart = iv.End
		d.stateMu.Unlock()
	}
}

// runInterval executes one firing with the descriptor's retry policy:
// constant spacing, a fixed number of attempts, then terminal failure.
func (d *Driver) runInterval(ctx context.Context, iv Interval) error {
	w, err := window.Compute(iv.Start, iv.End)
	if err != nil {
		// An invalid window never becomes valid; retrying is pointless.
		return err
	}

	firingID := uuid.NewString()
	ll := d.ll.With(
		slog.String("task", d.desc.ID),
		slog.String("firing_id", firingID),
		slog.String("window", w.String()))
	ll.Info("Firing")

	attempt := 0
	op := func() error {
		attempt++
		return d.fn(ctx, w)
	}
	notify := func(err error, next time.Duration) {
		ll.Warn("Firing attempt failed, will retry",
			slog.Int("attempt", attempt),
			slog.Duration("retry_in", next),
			slog.Any("error", err))
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(d.desc.RetryDelay), uint64(d.desc.Retries)),
		ctx)
	return backoff.RetryNotify(op, policy, notify)
}

// cronLogger adapts slog to the cron.Logger interface.
type cronLogger struct {
	ll *slog.Logger
}

func (c cronLogger) Info(msg string, kv ...any) {
	c.ll.Debug(msg, kv...)
}

func (c cronLogger) Error(err error, msg string, kv ...any) {
	c.ll.Error(msg, append(kv, slog.Any("error", err))...)
}
