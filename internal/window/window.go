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

// Package window derives the half-open [start, end) calendar-date interval
// covered by one scheduled extraction run from the scheduler's interval
// boundaries.
package window

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout is the wire format for window boundaries, as understood by both
// the upstream API and the destination path scheme.
const DateLayout = "2006-01-02"

// ErrInvalidWindow is returned when the scheduler hands us an interval whose
// end does not lie after its start.
var ErrInvalidWindow = errors.New("invalid extraction window")

// Window is the half-open [StartDate, EndDate) calendar-date interval covered
// by one firing. Both fields are formatted as YYYY-MM-DD.
type Window struct {
	StartDate string
	EndDate   string
}

// Compute formats the scheduler's interval boundaries as calendar dates,
// preserving input order. Each timestamp is rendered in its own location so
// that backfilled runs for past intervals produce correct historical dates;
// the wall clock is never consulted.
func Compute(intervalStart, intervalEnd time.Time) (Window, error) {
	if !intervalEnd.After(intervalStart) {
		return Window{}, fmt.Errorf("%w: interval end %s is not after interval start %s",
			ErrInvalidWindow, intervalEnd.Format(time.RFC3339), intervalStart.Format(time.RFC3339))
	}
	return Window{
		StartDate: intervalStart.Format(DateLayout),
		EndDate:   intervalEnd.Format(DateLayout),
	}, nil
}

// Validate reports whether the window carries two well-formed dates with the
// start strictly before the end.
func (w Window) Validate() error {
	start, err := time.Parse(DateLayout, w.StartDate)
	if err != nil {
		return fmt.Errorf("%w: bad start date %q: %w", ErrInvalidWindow, w.StartDate, err)
	}
	end, err := time.Parse(DateLayout, w.EndDate)
	if err != nil {
		return fmt.Errorf("%w: bad end date %q: %w", ErrInvalidWindow, w.EndDate, err)
	}
	if !end.After(start) {
		return fmt.Errorf("%w: end date %s is not after start date %s", ErrInvalidWindow, w.EndDate, w.StartDate)
	}
	return nil
}

func (w Window) String() string {
	return w.StartDate + "/" + w.EndDate
}
