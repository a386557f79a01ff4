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
	"strings"

	"github.com/spf13/cobra"

	"github.com/seismohq/quakefeed/config"
)

func init() {
	cmd := &cobra.Command{
		Use:   "describe",
		Short: "Print the scheduled task's registration surface",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			desc, err := taskDescriptor(cfg)
			if err != nil {
				return err
			}

			fmt.Printf("id:             %s\n", desc.ID)
			fmt.Printf("owner:          %s\n", desc.Owner)
			fmt.Printf("cron:           %s (UTC)\n", desc.Cron)
			fmt.Printf("start date:     %s\n", desc.StartDate.Format("2006-01-02 MST"))
			fmt.Printf("retries:        %d, spaced %s\n", desc.Retries, desc.RetryDelay)
			fmt.Printf("max concurrent: %d\n", desc.MaxConcurrent)
			fmt.Printf("tags:           %s\n", strings.Join(desc.Tags, ", "))
			fmt.Printf("summary:        %s\n", desc.Short)
			fmt.Printf("\n%s\n", desc.Long)
			return nil
		},
	}

	rootCmd.AddCommand(cmd)
}
