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
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/seismohq/quakefeed/config"
	"github.com/seismohq/quakefeed/internal/scheduler"
)

func init() {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the scheduled ingestion service",
		Long:  "Catch up on every interval missed since the configured start date, then keep firing on the cron cadence until interrupted.",
		RunE: func(c *cobra.Command, _ []string) error {
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
			desc, err := taskDescriptor(cfg)
			if err != nil {
				return err
			}

			driver := scheduler.NewDriver(ll)
			if err := driver.Register(desc, task.Run); err != nil {
				return err
			}
			if err := driver.Start(ctx); err != nil {
				return err
			}

			<-ctx.Done()
			slog.Info("Shutting down")
			driver.Stop()
			return nil
		},
	}

	rootCmd.AddCommand(cmd)
}
