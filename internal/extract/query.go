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

package extract

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/seismohq/quakefeed/internal/window"
)

// SourceURL builds the CSV retrieval URL for one window. The upstream FDSN
// event API takes starttime/endtime as YYYY-MM-DD; a date-only endtime is
// interpreted as midnight UTC, so passing the window's exclusive end keeps
// the query effectively half-open.
func SourceURL(base string, w window.Window) (string, error) {
	if err := w.Validate(); err != nil {
		return "", err
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse source base URL %q: %w", base, err)
	}
	q := u.Query()
	q.Set("format", "csv")
	q.Set("starttime", w.StartDate)
	q.Set("endtime", w.EndDate)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ObjectKey builds the destination key for one window. The key is a pure
// function of (layer, source, start date), so re-running a window overwrites
// the same object instead of duplicating it.
func ObjectKey(layer, source string, w window.Window) string {
	return fmt.Sprintf("%s/%s/%s/%s_00-00-00.gz.parquet", layer, source, w.StartDate, w.StartDate)
}

// copyStatement assembles the single extraction statement: read every row the
// upstream returns and land it as gzip-compressed Parquet at the destination.
func copyStatement(sourceURL, bucket, key string) string {
	return fmt.Sprintf(
		"COPY (SELECT * FROM read_csv_auto('%s')) TO 's3://%s/%s' (FORMAT parquet, COMPRESSION gzip);",
		escapeSingle(sourceURL), escapeSingle(bucket), escapeSingle(key))
}

func escapeSingle(s string) string { return strings.ReplaceAll(s, `'`, `''`) }
