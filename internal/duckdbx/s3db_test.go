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

package duckdbx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testS3Config() S3Config {
	return S3Config{
		Endpoint:        "minio:9000",
		Bucket:          "prod",
		URLStyle:        "path",
		UseSSL:          false,
		AccessKeyID:     "AKIA",
		SecretAccessKey: "shh",
	}
}

func TestNewS3DB_Defaults(t *testing.T) {
	cfg := testS3Config()
	cfg.URLStyle = ""
	cfg.Region = ""

	d, err := NewS3DB(cfg)
	require.NoError(t, err)
	assert.Equal(t, "path", d.s3.URLStyle)
	assert.Equal(t, "us-east-1", d.s3.Region)
	assert.Equal(t, "UTC", d.sessionTZ)
}

func TestNewS3DB_Validation(t *testing.T) {
	cfg := testS3Config()
	cfg.Endpoint = ""
	_, err := NewS3DB(cfg)
	require.Error(t, err)

	cfg = testS3Config()
	cfg.Bucket = ""
	_, err = NewS3DB(cfg)
	require.Error(t, err)

	cfg = testS3Config()
	cfg.SecretAccessKey = ""
	_, err = NewS3DB(cfg)
	require.Error(t, err)
}

func TestSecretStatement(t *testing.T) {
	stmt := secretStatement(S3Config{
		Endpoint:        "minio:9000",
		Region:          "us-east-1",
		Bucket:          "prod",
		URLStyle:        "path",
		UseSSL:          false,
		AccessKeyID:     "AKIA",
		SecretAccessKey: "shh",
	})

	assert.Contains(t, stmt, `CREATE OR REPLACE SECRET "secret_prod"`)
	assert.Contains(t, stmt, "TYPE S3")
	assert.Contains(t, stmt, "ENDPOINT 'minio:9000'")
	assert.Contains(t, stmt, "URL_STYLE 'path'")
	assert.Contains(t, stmt, "USE_SSL 'false'")
	assert.Contains(t, stmt, "KEY_ID 'AKIA'")
	assert.Contains(t, stmt, "SECRET 'shh'")
	assert.Contains(t, stmt, "REGION 'us-east-1'")
	assert.Contains(t, stmt, "SCOPE 's3://prod'")
}

func TestSecretStatement_SSLAndDashes(t *testing.T) {
	stmt := secretStatement(S3Config{
		Endpoint:        "s3.eu-west-1.amazonaws.com",
		Region:          "eu-west-1",
		Bucket:          "data-lake",
		URLStyle:        "vhost",
		UseSSL:          true,
		AccessKeyID:     "AKIA",
		SecretAccessKey: "shh",
	})

	assert.Contains(t, stmt, `CREATE OR REPLACE SECRET "secret_data_lake"`)
	assert.Contains(t, stmt, "USE_SSL 'true'")
	assert.Contains(t, stmt, "SCOPE 's3://data-lake'")
}

func TestSecretStatement_EscapesCredentials(t *testing.T) {
	stmt := secretStatement(S3Config{
		Endpoint:        "minio:9000",
		Bucket:          "prod",
		AccessKeyID:     "key'id",
		SecretAccessKey: "se'cret",
	})

	assert.Contains(t, stmt, "KEY_ID 'key''id'")
	assert.Contains(t, stmt, "SECRET 'se''cret'")
	assert.NotContains(t, stmt, "KEY_ID 'key'id'")
}
