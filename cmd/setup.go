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
	"context"
	"fmt"
	"log/slog"

	"github.com/seismohq/quakefeed/config"
	"github.com/seismohq/quakefeed/internal/cloudstorage"
	"github.com/seismohq/quakefeed/internal/duckdbx"
	"github.com/seismohq/quakefeed/internal/extract"
	"github.com/seismohq/quakefeed/internal/scheduler"
	"github.com/seismohq/quakefeed/internal/secrets"
)

const secretPrefix = "QUAKEFEED"

const longDescription = `Daily extraction of earthquake event records from the USGS FDSN event API
into the raw layer of the data lake. Each run covers one calendar-day window
and writes a single gzip-compressed Parquet object whose path is keyed by the
window's start date, so reruns overwrite rather than duplicate.`

// engineAdapter narrows duckdbx.S3DB to the session interface the task needs.
type engineAdapter struct {
	db *duckdbx.S3DB
}

func (a engineAdapter) Acquire(ctx context.Context) (extract.Session, func(), error) {
	return a.db.Acquire(ctx)
}

// buildTask wires secrets, engine, and configuration into an extraction task.
func buildTask(cfg *config.Config, ll *slog.Logger) (*extract.Task, error) {
	accessKey, secretKey, err := secrets.Keys(secrets.EnvProvider{Prefix: secretPrefix})
	if err != nil {
		return nil, fmt.Errorf("resolve storage credentials: %w", err)
	}

	db, err := duckdbx.NewS3DB(duckdbx.S3Config{
		Endpoint:        cfg.Storage.Endpoint,
		Region:          cfg.Storage.Region,
		Bucket:          cfg.Storage.Bucket,
		URLStyle:        cfg.Storage.URLStyle,
		UseSSL:          cfg.Storage.UseSSL,
		AccessKeyID:     accessKey,
		SecretAccessKey: secretKey,
	}, duckdbx.WithMemoryLimitMB(cfg.DuckDB.MemoryLimitMB))
	if err != nil {
		return nil, err
	}

	return extract.NewTask(engineAdapter{db: db}, extract.Config{
		SourceBaseURL: cfg.Source.BaseURL,
		Bucket:        cfg.Storage.Bucket,
		Layer:         cfg.Dataset.Layer,
		Source:        cfg.Dataset.Source,
	}, ll)
}

// taskDescriptor declares the scheduled unit of work from configuration.
func taskDescriptor(cfg *config.Config) (scheduler.Descriptor, error) {
	startDate, err := cfg.StartDate()
	if err != nil {
		return scheduler.Descriptor{}, err
	}
	return scheduler.Descriptor{
		ID:            cfg.Schedule.ID,
		Owner:         cfg.Schedule.Owner,
		Cron:          cfg.Schedule.Cron,
		StartDate:     startDate,
		Retries:       cfg.Schedule.Retries,
		RetryDelay:    cfg.Schedule.RetryDelay,
		MaxConcurrent: cfg.Schedule.MaxConcurrent,
		Tags:          cfg.Schedule.Tags,
		Short:         "Ingest USGS earthquake events into the raw layer",
		Long:          longDescription,
	}, nil
}

// storageClient builds the verification-side S3 client from the same
// configuration the engine writes with.
func storageClient(ctx context.Context, cfg *config.Config) (*cloudstorage.S3Client, error) {
	accessKey, secretKey, err := secrets.Keys(secrets.EnvProvider{Prefix: secretPrefix})
	if err != nil {
		return nil, fmt.Errorf("resolve storage credentials: %w", err)
	}
	return cloudstorage.NewS3Client(ctx, cloudstorage.Config{
		Endpoint:        cfg.Storage.Endpoint,
		Region:          cfg.Storage.Region,
		URLStyle:        cfg.Storage.URLStyle,
		UseSSL:          cfg.Storage.UseSSL,
		AccessKeyID:     accessKey,
		SecretAccessKey: secretKey,
	})
}
