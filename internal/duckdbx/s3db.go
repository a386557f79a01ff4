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

// Package duckdbx wraps the embedded DuckDB engine as the data-access
// collaborator: it hands out in-memory sessions preconfigured for HTTP reads
// (httpfs) and S3-compatible writes. CSV parsing, Parquet encoding, and the
// object-storage protocol all live inside the engine.
package duckdbx

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "github.com/marcboeker/go-duckdb/v2"
)

// Extension/secret DDL may crash when issued concurrently across engine
// instances, so it is serialized process-wide.
var duckdbDDLMu sync.Mutex

// S3Config describes the destination object store for a session's secret.
type S3Config struct {
	Endpoint        string // host:port, e.g. "minio:9000"
	Region          string
	Bucket          string // secret scope: s3://<bucket>
	URLStyle        string // "path" or "vhost"
	UseSSL          bool
	AccessKeyID     string
	SecretAccessKey string
}

func (c S3Config) validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("duckdbx: storage endpoint is required")
	}
	if c.Bucket == "" {
		return fmt.Errorf("duckdbx: bucket is required")
	}
	if c.AccessKeyID == "" || c.SecretAccessKey == "" {
		return fmt.Errorf("duckdbx: storage credentials are required")
	}
	return nil
}

// S3DB creates one engine instance per acquired session. A session is local
// to one task invocation and never shared across firings.
type S3DB struct {
	s3            S3Config
	memoryLimitMB int64
	sessionTZ     string

	installOnce sync.Once
	installErr  error
}

// Option configures an S3DB.
type Option func(*S3DB)

// WithMemoryLimitMB caps engine memory per session. Zero means unlimited.
func WithMemoryLimitMB(mb int64) Option {
	return func(d *S3DB) { d.memoryLimitMB = mb }
}

// NewS3DB builds the engine factory. Credentials arrive through cfg; nothing
// is read from the environment.
func NewS3DB(cfg S3Config, opts ...Option) (*S3DB, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.URLStyle == "" {
		cfg.URLStyle = "path"
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	d := &S3DB{s3: cfg, sessionTZ: "UTC"}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Acquire opens a fresh in-memory engine session, configures it for network
// and object-storage access, and returns it together with a release func.
// The release func must run on every exit path; it tears the whole instance
// down.
func (d *S3DB) Acquire(ctx context.Context) (*sql.Conn, func(), error) {
	if err := d.ensureInstall(ctx); err != nil {
		return nil, nil, err
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, nil, fmt.Errorf("open duckdb: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	conn, err := db.Conn(ctx)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("duckdb connection: %w", err)
	}

	if err := d.setupConn(ctx, conn); err != nil {
		_ = conn.Close()
		_ = db.Close()
		return nil, nil, err
	}

	release := func() {
		_ = conn.Close()
		_ = db.Close()
	}
	return conn, release, nil
}

// ensureInstall performs a best-effort one-time INSTALL so that later LOADs
// in fresh instances hit the local extension cache.
func (d *S3DB) ensureInstall(ctx context.Context) error {
	d.installOnce.Do(func() {
		db, err := sql.Open("duckdb", "")
		if err != nil {
			d.installErr = fmt.Errorf("open duckdb for install: %w", err)
			return
		}
		defer func() { _ = db.Close() }()
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)

		conn, err := db.Conn(ctx)
		if err != nil {
			d.installErr = fmt.Errorf("duckdb connection for install: %w", err)
			return
		}
		defer func() { _ = conn.Close() }()

		duckdbDDLMu.Lock()
		_, d.installErr = conn.ExecContext(ctx, "INSTALL httpfs;")
		duckdbDDLMu.Unlock()
	})
	return d.installErr
}

func (d *S3DB) setupConn(ctx context.Context, conn *sql.Conn) error {
	if _, err := conn.ExecContext(ctx, fmt.Sprintf("SET TIMEZONE='%s';", escapeSingle(d.sessionTZ))); err != nil {
		return fmt.Errorf("set timezone: %w", err)
	}
	if d.memoryLimitMB > 0 {
		if _, err := conn.ExecContext(ctx, fmt.Sprintf("SET memory_limit='%dMB';", d.memoryLimitMB)); err != nil {
			return fmt.Errorf("set memory_limit: %w", err)
		}
	}

	duckdbDDLMu.Lock()
	defer duckdbDDLMu.Unlock()

	if _, err := conn.ExecContext(ctx, "LOAD httpfs;"); err != nil {
		return fmt.Errorf("LOAD httpfs: %w", err)
	}
	if _, err := conn.ExecContext(ctx, secretStatement(d.s3)); err != nil {
		return fmt.Errorf("create storage secret: %w", err)
	}
	return nil
}

// secretStatement builds the CREATE OR REPLACE SECRET DDL scoped to the
// destination bucket.
func secretStatement(cfg S3Config) string {
	useSSL := "false"
	if cfg.UseSSL {
		useSSL = "true"
	}
	name := "secret_" + strings.ReplaceAll(cfg.Bucket, "-", "_")

	var b strings.Builder
	_, _ = fmt.Fprintf(&b, "CREATE OR REPLACE SECRET %s (\n", quoteIdent(name))
	_, _ = fmt.Fprintf(&b, "  TYPE S3,\n")
	_, _ = fmt.Fprintf(&b, "  ENDPOINT '%s',\n", escapeSingle(cfg.Endpoint))
	_, _ = fmt.Fprintf(&b, "  URL_STYLE '%s',\n", escapeSingle(cfg.URLStyle))
	_, _ = fmt.Fprintf(&b, "  USE_SSL '%s',\n", useSSL)
	_, _ = fmt.Fprintf(&b, "  KEY_ID '%s',\n", escapeSingle(cfg.AccessKeyID))
	_, _ = fmt.Fprintf(&b, "  SECRET '%s',\n", escapeSingle(cfg.SecretAccessKey))
	_, _ = fmt.Fprintf(&b, "  REGION '%s',\n", escapeSingle(cfg.Region))
	_, _ = fmt.Fprintf(&b, "  SCOPE 's3://%s'\n", escapeSingle(cfg.Bucket))
	_, _ = fmt.Fprintf(&b, ");")
	return b.String()
}

func escapeSingle(s string) string { return strings.ReplaceAll(s, `'`, `''`) }
func quoteIdent(s string) string   { return `"` + strings.ReplaceAll(s, `"`, `""`) + `"` }
