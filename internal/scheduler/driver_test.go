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

package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seismohq/quakefeed/internal/window"
)

func testDescriptor() Descriptor {
	return Descriptor{
		ID:            "raw_from_api_to_s3",
		Owner:         "data-platform",
		Cron:          "0 5 * * *",
		StartDate:     time.Date(2025, 10, 20, 0, 0, 0, 0, time.UTC),
		Retries:       3,
		RetryDelay:    time.Hour,
		MaxConcurrent: 1,
		Tags:          []string{"s3", "raw"},
	}
}

func TestDescriptorValidate(t *testing.T) {
	require.NoError(t, testDescriptor().Validate())

	tests := []struct {
		name   string
		mutate func(*Descriptor)
	}{
		{"missing id", func(d *Descriptor) { d.ID = "" }},
		{"bad cron", func(d *Descriptor) { d.Cron = "every day at five" }},
		{"zero start date", func(d *Descriptor) { d.StartDate = time.Time{} }},
		{"negative retries", func(d *Descriptor) { d.Retries = -1 }},
		{"negative delay", func(d *Descriptor) { d.RetryDelay = -time.Second }},
		{"ceiling above one", func(d *Descriptor) { d.MaxConcurrent = 2 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desc := testDescriptor()
			tt.mutate(&desc)
			require.Error(t, desc.Validate())
		})
	}
}

func TestRegister(t *testing.T) {
	d := NewDriver(slog.Default())
	noop := func(context.Context, window.Window) error { return nil }

	require.NoError(t, d.Register(testDescriptor(), noop))

	// Second registration is rejected.
	require.Error(t, d.Register(testDescriptor(), noop))

	// Nil task func is rejected.
	d2 := NewDriver(slog.Default())
	require.Error(t, d2.Register(testDescriptor(), nil))
}

func TestStart_RequiresRegisteredTask(t *testing.T) {
	d := NewDriver(slog.Default())
	require.Error(t, d.Start(context.Background()))
}

func TestStart_CatchUpRunsMissedIntervalsInOrder(t *testing.T) {
	now := time.Date(2025, 10, 22, 6, 0, 0, 0, time.UTC)
	d := NewDriver(slog.Default(), WithClock(func() time.Time { return now }))

	var mu sync.Mutex
	var got []window.Window
	fn := func(_ context.Context, w window.Window) error {
		mu.Lock()
		got = append(got, w)
		mu.Unlock()
		return nil
	}

	require.NoError(t, d.Register(testDescriptor(), fn))
	require.NoError(t, d.Start(context.Background()))
	d.Stop()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 2)
	assert.Equal(t, window.Window{StartDate: "2025-10-20", EndDate: "2025-10-21"}, got[0])
	assert.Equal(t, window.Window{StartDate: "2025-10-21", EndDate: "2025-10-22"}, got[1])
}

func TestDrain_AdvancesPastTerminalFailure(t *testing.T) {
	now := time.Date(2025, 10, 22, 6, 0, 0, 0, time.UTC)
	d := NewDriver(slog.Default(), WithClock(func() time.Time { return now }))

	desc := testDescriptor()
	desc.Retries = 0

	var calls []string
	fn := func(_ context.Context, w window.Window) error {
		calls = append(calls, w.StartDate)
		if w.StartDate == "2025-10-20" {
			return errors.New("upstream down")
		}
		return nil
	}

	require.NoError(t, d.Register(desc, fn))
	d.runMu.Lock()
	d.drain(context.Background(), now)
	d.runMu.Unlock()

	// A failed firing does not block the firings behind it.
	assert.Equal(t, []string{"2025-10-20", "2025-10-21"}, calls)
}

func TestRunInterval_RetriesWithFixedCount(t *testing.T) {
	d := NewDriver(slog.Default())
	desc := testDescriptor()
	desc.Retries = 3
	desc.RetryDelay = 0 // keep the test fast; spacing is the library's concern

	attempts := 0
	boom := errors.New("HTTP 503")
	require.NoError(t, d.Register(desc, func(context.Context, window.Window) error {
		attempts++
		return boom
	}))

	iv := Interval{
		Start: time.Date(2025, 10, 20, 5, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 10, 21, 5, 0, 0, 0, time.UTC),
	}
	err := d.runInterval(context.Background(), iv)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 4, attempts) // first attempt plus three retries
}

func TestRunInterval_SucceedsAfterTransientFailure(t *testing.T) {
	d := NewDriver(slog.Default())
	desc := testDescriptor()
	desc.RetryDelay = 0

	attempts := 0
	require.NoError(t, d.Register(desc, func(context.Context, window.Window) error {
		attempts++
		if attempts < 3 {
			return errors.New("flaky")
		}
		return nil
	}))

	iv := Interval{
		Start: time.Date(2025, 10, 20, 5, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 10, 21, 5, 0, 0, 0, time.UTC),
	}
	require.NoError(t, d.runInterval(context.Background(), iv))
	assert.Equal(t, 3, attempts)
}

func TestRunInterval_InvalidWindowNotRetried(t *testing.T) {
	d := NewDriver(slog.Default())
	attempts := 0
	require.NoError(t, d.Register(testDescriptor(), func(context.Context, window.Window) error {
		attempts++
		return nil
	}))

	at := time.Date(2025, 10, 20, 5, 0, 0, 0, time.UTC)
	err := d.runInterval(context.Background(), Interval{Start: at, End: at})
	require.ErrorIs(t, err, window.ErrInvalidWindow)
	assert.Zero(t, attempts)
}

func TestFire_SkipsWhileRunActive(t *testing.T) {
	now := time.Date(2025, 10, 22, 6, 0, 0, 0, time.UTC)
	d := NewDriver(slog.Default(), WithClock(func() time.Time { return now }))

	calls := 0
	require.NoError(t, d.Register(testDescriptor(), func(context.Context, window.Window) error {
		calls++
		return nil
	}))

	// Simulate an in-flight run holding the run lock; a firing must not
	// execute a second concurrent unit of work.
	d.runMu.Lock()
	d.fire()
	d.runMu.Unlock()
	assert.Zero(t, calls)

	// With the lock free the firing drains the backlog.
	d.fire()
	assert.Equal(t, 2, calls)
}

func TestFire_NothingDueIsANoOp(t *testing.T) {
	// Clock sits before the first interval's end: firing runs nothing.
	now := time.Date(2025, 10, 20, 12, 0, 0, 0, time.UTC)
	d := NewDriver(slog.Default(), WithClock(func() time.Time { return now }))

	calls := 0
	require.NoError(t, d.Register(testDescriptor(), func(context.Context, window.Window) error {
		calls++
		return nil
	}))

	d.fire()
	assert.Zero(t, calls)
}
