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
	runOnceStart string
	runOnceEnd   string
)

func init() {
	cmd := &cobra.Command{
		Use:   "run-once",
		Short: "Execute a single extraction window ad hoc",
		RunE:  runOnce,
	}
	cmd.Flags().StringVar(&runOnceStart, "start", "", "Window start date (YYYY-MM-DD, inclusive)")
	cmd.Flags().StringVar(&runOnceEnd, "end", "", "Window end date (YYYY-MM-DD, exclusive; defaults to the day after --start)")
	_ = cmd.MarkFlagRequired("start")

	rootCmd.AddCommand(cmd)
}

func runOnce(c *cobra.Command, _ []string) error {
	start, err := time.ParseInLocation(window.DateLayout, runOnceStart, time.UTC)
	if err != nil {
		return fmt.Errorf("--start: %w", err)
	}
	end := start.AddDate(0, 0, 1)
	if runOnceEnd != "" {
		end, err = time.ParseInLocation(window.DateLayout, runOnceEnd, time.UTC)
		if err != nil {
			return fmt.Errorf("--end: %w", err)
		}
	}
	w, err := window.Compute(start, end)
	if err != nil {
		return err
	}

	ctx, cancel := handleSignals(c.Context())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	task, err := buildTask(cfg, slog.Default())
	if err != nil {
		return err
	}
	return task.Run(ctx, w)
}
