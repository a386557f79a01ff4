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

// Package config aggregates configuration for the application.
package config

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config aggregates configuration for the application.
type Config struct {
	Source   SourceConfig   `mapstructure:"source"`
	Dataset  DatasetConfig  `mapstructure:"dataset"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	DuckDB   DuckDBConfig   `mapstructure:"duckdb"`
}

// SourceConfig describes the upstream event API.
type SourceConfig struct {
	// BaseURL is the query endpoint without parameters.
	BaseURL string `mapstructure:"base_url"`
}

// DatasetConfig names the destination dataset: the data-maturity layer and
// the upstream source identifier that together key the output path.
type DatasetConfig struct {
	Layer  string `mapstructure:"layer"`
	Source string `mapstructure:"source"`
}

// StorageConfig describes the S3-compatible destination store. Credentials
// are NOT part of this struct; they come from the secret provider.
type StorageConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Region   string `mapstructure:"region"`
	Bucket   string `mapstructure:"bucket"`
	URLStyle string `mapstructure:"url_style"`
	UseSSL   bool   `mapstructure:"use_ssl"`
}

// ScheduleConfig declares the schedule-driver parameters for the ingestion
// task: cadence, catch-up origin, and the retry policy the driver applies.
type ScheduleConfig struct {
	ID            string        `mapstructure:"id"`
	Owner         string        `mapstructure:"owner"`
	Cron          string        `mapstructure:"cron"`
	StartDate     string        `mapstructure:"start_date"`
	Timezone      string        `mapstructure:"timezone"`
	Retries       int           `mapstructure:"retries"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"`
	MaxConcurrent int           `mapstructure:"max_concurrent"`
	Tags          []string      `mapstructure:"tags"`
}

// DuckDBConfig holds engine-specific settings.
type DuckDBConfig struct {
	// MemoryLimitMB caps engine memory per session (0 = unlimited).
	MemoryLimitMB int64 `mapstructure:"memory_limit_mb"`
}

// Default returns the configuration the service ships with.
func Default() *Config {
	return &Config{
		Source: SourceConfig{
			BaseURL: "https://earthquake.usgs.gov/fdsnws/event/1/query",
		},
		Dataset: DatasetConfig{
			Layer:  "raw",
			Source: "earthquake",
		},
		Storage: StorageConfig{
			Endpoint: "minio:9000",
			Region:   "us-east-1",
			Bucket:   "prod",
			URLStyle: "path",
			UseSSL:   false,
		},
		Schedule: ScheduleConfig{
			ID:            "raw_from_api_to_s3",
			Owner:         "data-platform",
			Cron:          "0 5 * * *",
			StartDate:     "2025-10-20",
			Timezone:      "Europe/Moscow",
			Retries:       3,
			RetryDelay:    time.Hour,
			MaxConcurrent: 1,
			Tags:          []string{"s3", "raw"},
		},
		DuckDB: DuckDBConfig{},
	}
}

// Load reads configuration from files and environment variables.
// Environment variables use the prefix "QUAKEFEED" and the dot character in
// keys is replaced by an underscore. For example, "storage.endpoint" becomes
// "QUAKEFEED_STORAGE_ENDPOINT".
func Load() (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.SetEnvPrefix("QUAKEFEED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvs(v, cfg)
	_ = v.ReadInConfig()

	// Environment values arrive as strings; decode them weakly so booleans
	// and integers round-trip.
	if err := v.Unmarshal(cfg, func(dc *mapstructure.DecoderConfig) { dc.WeaklyTypedInput = true }); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	if c.Source.BaseURL == "" {
		return fmt.Errorf("config: source.base_url is required")
	}
	if c.Dataset.Layer == "" || c.Dataset.Source == "" {
		return fmt.Errorf("config: dataset.layer and dataset.source are required")
	}
	if c.Storage.Endpoint == "" || c.Storage.Bucket == "" {
		return fmt.Errorf("config: storage.endpoint and storage.bucket are required")
	}
	if c.Schedule.Cron == "" {
		return fmt.Errorf("config: schedule.cron is required")
	}
	if _, err := c.StartDate(); err != nil {
		return err
	}
	if c.Schedule.Retries < 0 {
		return fmt.Errorf("config: schedule.retries must not be negative")
	}
	if c.Schedule.RetryDelay < 0 {
		return fmt.Errorf("config: schedule.retry_delay must not be negative")
	}
	return nil
}

// StartDate parses the catch-up origin in the configured timezone.
func (c *Config) StartDate() (time.Time, error) {
	loc, err := time.LoadLocation(c.Schedule.Timezone)
	if err != nil {
		return time.Time{}, fmt.Errorf("config: schedule.timezone %q: %w", c.Schedule.Timezone, err)
	}
	t, err := time.ParseInLocation("2006-01-02", c.Schedule.StartDate, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("config: schedule.start_date %q: %w", c.Schedule.StartDate, err)
	}
	return t, nil
}

// bindEnvs registers all keys within cfg so that viper will look up
// corresponding environment variables when unmarshalling.
func bindEnvs(v *viper.Viper, cfg any, parts ...string) {
	val := reflect.ValueOf(cfg)
	typ := reflect.TypeOf(cfg)
	if typ.Kind() == reflect.Ptr {
		val = val.Elem()
		typ = typ.Elem()
	}
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		tag := f.Tag.Get("mapstructure")
		if tag == "" {
			tag = strings.ToLower(f.Name)
		}
		key := append(parts, tag)
		if f.Type.Kind() == reflect.Struct {
			bindEnvs(v, val.Field(i).Interface(), key...)
			continue
		}
		_ = v.BindEnv(strings.Join(key, "."))
	}
}
