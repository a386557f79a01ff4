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

package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/seismohq/quakefeed/config"
	"github.com/seismohq/quakefeed/internal/window"
)

var (
	backfillFrom string
	backfillTo   string
)

func init() {
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Re-run historical daily windows",
		Long:  "Execute one extraction per calendar day over [--from, --to), in increasing order. Outputs are keyed by start date, so existing objects are overwritten, not duplicated.",
		RunE:  backfill,
	}
	cmd.Flags().StringVar(&backfillFrom, "from", "", "First day to ingest (YYYY-MM-DD, inclusive)")
	cmd.Flags().StringVar(&backfillTo, "to", "", "Day to stop before (YYYY-MM-DD, exclusive)")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")

	rootCmd.AddCommand(cmd)
}

func backfill(c *cobra.Command, _ []string) error {
	from, err := time.ParseInLocation(window.DateLayout, backfillFrom, time.UTC)
	if err != nil {
		return fmt.Errorf("--from: %w", err)
	}
	to, err := time.ParseInLocation(window.DateLayout, backfillTo, time.UTC)
	if err != nil {
		return fmt.Errorf("--to: %w", err)
	}
	if !to.After(from) {
		return fmt.Errorf("--to must lie after --from")
	}

	ctx, cancel := handleSignals(c.Context())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	ll := slog.Default()
	task, err := buildTask(cfg, ll)
	if err != nil {
		return err
	}

	days := 0
	for day := from; day.Before(to); day = day.AddDate(0, 0, 1) {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		w, err := window.Compute(day, day.AddDate(0, 0, 1))
		if err != nil {
			return err
		}
		if err := task.Run(ctx, w); err != nil {
			return fmt.Errorf("backfill %s: %w", w, err)
		}
		days++
	}

	ll.Info("Backfill complete", slog.Int("days", days))
	return nil
}
