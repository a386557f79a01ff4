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

// Package extract runs one ingestion window end to end: it composes the
// upstream CSV query and the destination object key, then delegates the
// actual fetch/parse/encode/write to the analytical engine in a single COPY
// statement.
package extract

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/seismohq/quakefeed/internal/window"
)

// Session is one scoped engine session. *sql.Conn satisfies it.
type Session interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Engine hands out scoped sessions that are already configured for network
// and object-storage access. The release func must be called on every exit
// path.
type Engine interface {
	Acquire(ctx context.Context) (Session, func(), error)
}

// Config carries everything a Task needs beyond the window itself.
type Config struct {
	// SourceBaseURL is the upstream event API endpoint, without query
	// parameters.
	SourceBaseURL string
	// Bucket, Layer, and Source address the destination object.
	Bucket string
	Layer  string
	Source string
}

func (c Config) validate() error {
	if c.SourceBaseURL == "" {
		return fmt.Errorf("extract: source base URL is required")
	}
	if c.Bucket == "" {
		return fmt.Errorf("extract: destination bucket is required")
	}
	if c.Layer == "" || c.Source == "" {
		return fmt.Errorf("extract: destination layer and source are required")
	}
	return nil
}

// Task is the unit of work the schedule driver fires once per interval.
type Task struct {
	engine Engine
	cfg    Config
	ll     *slog.Logger
}

// NewTask builds a Task. The engine and configuration are injected once at
// construction; nothing is read from process-global state at run time.
func NewTask(engine Engine, cfg Config, ll *slog.Logger) (*Task, error) {
	if engine == nil {
		return nil, fmt.Errorf("extract: engine is required")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if ll == nil {
		ll = slog.Default()
	}
	return &Task{engine: engine, cfg: cfg, ll: ll}, nil
}

// Run executes one firing. Any engine failure (network, auth, malformed
// response, storage write) propagates to the caller unclassified; the
// schedule driver's retry policy governs recovery.
func (t *Task) Run(ctx context.Context, w window.Window) error {
	sourceURL, err := SourceURL(t.cfg.SourceBaseURL, w)
	if err != nil {
		return err
	}
	key := ObjectKey(t.cfg.Layer, t.cfg.Source, w)

	t.ll.Info("Starting extraction",
		slog.String("start_date", w.StartDate),
		slog.String("end_date", w.EndDate))

	sess, release, err := t.engine.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire engine session: %w", err)
	}
	defer release()

	if _, err := sess.ExecContext(ctx, copyStatement(sourceURL, t.cfg.Bucket, key)); err != nil {
		return fmt.Errorf("copy window %s to s3://%s/%s: %w", w, t.cfg.Bucket, key, err)
	}

	t.ll.Info("Extraction succeeded",
		slog.String("start_date", w.StartDate),
		slog.String("object", key))
	return nil
}
