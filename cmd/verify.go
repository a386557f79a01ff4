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
	"time"

	"github.com/spf13/cobra"

	"github.com/seismohq/quakefeed/config"
	"github.com/seismohq/quakefeed/internal/extract"
	"github.com/seismohq/quakefeed/internal/window"
)

func init() {
	verifyCmd := &cobra.Command{
		Use:   "verify <date>",
		Short: "Check that a day's output object exists in storage",
		Args:  cobra.ExactArgs(1),
		RunE:  verify,
	}
	lsCmd := &cobra.Command{
		Use:   "ls [date]",
		Short: "List output objects for the dataset, optionally for one day",
		Args:  cobra.MaximumNArgs(1),
		RunE:  ls,
	}
	rootCmd.AddCommand(verifyCmd, lsCmd)
}

func verify(c *cobra.Command, args []string) error {
	start, err := time.ParseInLocation(window.DateLayout, args[0], time.UTC)
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}
	w, err := window.Compute(start, start.AddDate(0, 0, 1))
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	client, err := storageClient(c.Context(), cfg)
	if err != nil {
		return err
	}

	key := extract.ObjectKey(cfg.Dataset.Layer, cfg.Dataset.Source, w)
	info, found, err := client.HeadObject(c.Context(), cfg.Storage.Bucket, key)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("s3://%s/%s: not found", cfg.Storage.Bucket, key)
	}
	fmt.Printf("s3://%s/%s\t%d bytes\t%s\t%s\n",
		cfg.Storage.Bucket, info.Key, info.Size, info.ETag, info.LastModified.Format(time.RFC3339))
	return nil
}

func ls(c *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	client, err := storageClient(c.Context(), cfg)
	if err != nil {
		return err
	}

	prefix := cfg.Dataset.Layer + "/" + cfg.Dataset.Source + "/"
	if len(args) == 1 {
		if _, err := time.ParseInLocation(window.DateLayout, args[0], time.UTC); err != nil {
			return fmt.Errorf("date: %w", err)
		}
		prefix += args[0] + "/"
	}

	objects, err := client.ListPrefix(c.Context(), cfg.Storage.Bucket, prefix)
	if err != nil {
		return err
	}
	for _, obj := range objects {
		fmt.Printf("s3://%s/%s\t%d bytes\t%s\n",
			cfg.Storage.Bucket, obj.Key, obj.Size, obj.LastModified.Format(time.RFC3339))
	}
	return nil
}
