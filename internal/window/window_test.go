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

package window

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompute_DailyInterval(t *testing.T) {
	start := time.Date(2025, 10, 20, 5, 0, 0, 0, time.UTC)
	end := time.Date(2025, 10, 21, 5, 0, 0, 0, time.UTC)

	w, err := Compute(start, end)
	require.NoError(t, err)
	assert.Equal(t, "2025-10-20", w.StartDate)
	assert.Equal(t, "2025-10-21", w.EndDate)
}

// Dates must come from the interval timestamps in their own location, not from
// a UTC conversion. Midnight in Moscow is still the previous day in UTC.
func TestCompute_MoscowMidnights(t *testing.T) {
	msk, err := time.LoadLocation("Europe/Moscow")
	require.NoError(t, err)

	start := time.Date(2025, 10, 20, 0, 0, 0, 0, msk)
	end := time.Date(2025, 10, 21, 0, 0, 0, 0, msk)

	w, err := Compute(start, end)
	require.NoError(t, err)
	assert.Equal(t, "2025-10-20", w.StartDate)
	assert.Equal(t, "2025-10-21", w.EndDate)
}

func TestCompute_PreservesInputOrder(t *testing.T) {
	start := time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)

	w, err := Compute(start, end)
	require.NoError(t, err)
	assert.LessOrEqual(t, w.StartDate, w.EndDate)
}

func TestCompute_RejectsEmptyInterval(t *testing.T) {
	at := time.Date(2025, 10, 20, 5, 0, 0, 0, time.UTC)

	_, err := Compute(at, at)
	require.ErrorIs(t, err, ErrInvalidWindow)
}

func TestCompute_RejectsReversedInterval(t *testing.T) {
	start := time.Date(2025, 10, 21, 5, 0, 0, 0, time.UTC)
	end := time.Date(2025, 10, 20, 5, 0, 0, 0, time.UTC)

	_, err := Compute(start, end)
	require.ErrorIs(t, err, ErrInvalidWindow)
}

func TestCompute_NoWallClockDependence(t *testing.T) {
	// A historical backfill interval must yield historical dates.
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)

	w, err := Compute(start, end)
	require.NoError(t, err)
	assert.Equal(t, "2020-01-01", w.StartDate)
	assert.Equal(t, "2020-01-02", w.EndDate)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		w       Window
		wantErr bool
	}{
		{"valid", Window{StartDate: "2025-10-20", EndDate: "2025-10-21"}, false},
		{"equal", Window{StartDate: "2025-10-20", EndDate: "2025-10-20"}, true},
		{"reversed", Window{StartDate: "2025-10-21", EndDate: "2025-10-20"}, true},
		{"malformed start", Window{StartDate: "20251020", EndDate: "2025-10-21"}, true},
		{"malformed end", Window{StartDate: "2025-10-20", EndDate: "tomorrow"}, true},
		{"empty", Window{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.w.Validate()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidWindow)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestWindowString(t *testing.T) {
	w := Window{StartDate: "2025-10-20", EndDate: "2025-10-21"}
	assert.Equal(t, "2025-10-20/2025-10-21", w.String())
}
