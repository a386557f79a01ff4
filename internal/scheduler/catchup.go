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
	"time"

	"github.com/robfig/cron/v3"
)

// Interval is one schedule slot's half-open execution interval. The firing
// that covers [Start, End) becomes due at End.
type Interval struct {
	Start time.Time
	End   time.Time
}

// PendingIntervals enumerates, in increasing order, every interval anchored
// at a schedule slot at or after anchor whose end lies at or before until.
// The anchor must itself be a slot boundary (or the catch-up origin for the
// very first call).
func PendingIntervals(sched cron.Schedule, anchor, until time.Time) []Interval {
	var out []Interval
	start := anchor
	for {
		end := sched.Next(start)
		if end.IsZero() || end.After(until) {
			return out
		}
		out = append(out, Interval{Start: start, End: end})
		start = end
	}
}

// MissedIntervals enumerates the catch-up intervals for a task whose history
// begins at startDate: the first interval starts at the first schedule slot
// at or after startDate, and only intervals already ended by now are due.
func MissedIntervals(sched cron.Schedule, startDate, now time.Time) []Interval {
	return PendingIntervals(sched, firstSlot(sched, startDate), now)
}

// firstSlot returns the first schedule activation at or after t.
func firstSlot(sched cron.Schedule, t time.Time) time.Time {
	// cron.Schedule.Next is strictly-after; step back one second so an exact
	// slot boundary counts as its own first activation.
	return sched.Next(t.Add(-time.Second))
}
