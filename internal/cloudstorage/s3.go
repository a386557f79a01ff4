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

// Package cloudstorage inspects the destination object store. The engine
// does all writing; this client only verifies what landed (HEAD, LIST), so
// operators can confirm the idempotent-path contract without the scheduler
// UI.
package cloudstorage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// Config mirrors the engine's view of the destination store so that HEADs
// and the engine's writes always address the same endpoint.
type Config struct {
	Endpoint        string // host:port, e.g. "minio:9000"
	Region          string
	URLStyle        string // "path" or "vhost"
	UseSSL          bool
	AccessKeyID     string
	SecretAccessKey string
}

// ObjectInfo describes one stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	LastModified time.Time
}

// S3Client is a thin wrapper over the AWS SDK S3 client for S3-compatible
// stores like MinIO.
type S3Client struct {
	client *s3.Client
}

// NewS3Client builds a client for the configured endpoint with static
// credentials and path-style addressing when requested.
func NewS3Client(ctx context.Context, cfg Config) (*S3Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("cloudstorage: endpoint is required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("cloudstorage: load AWS config: %w", err)
	}

	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(scheme + "://" + cfg.Endpoint)
		o.UsePathStyle = cfg.URLStyle != "vhost"
	})
	return &S3Client{client: client}, nil
}

// HeadObject returns the object's metadata, or found=false when the key does
// not exist. Other failures (auth, connectivity) surface as errors.
func (c *S3Client) HeadObject(ctx context.Context, bucket, key string) (ObjectInfo, bool, error) {
	out, err := c.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return ObjectInfo{}, false, nil
		}
		return ObjectInfo{}, false, fmt.Errorf("head s3://%s/%s: %w", bucket, key, err)
	}
	return objectInfo(key, out.ContentLength, out.ETag, out.LastModified), true, nil
}

// ListPrefix returns every object under the prefix, in key order.
func (c *S3Client) ListPrefix(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error) {
	var out []ObjectInfo
	p := s3.NewListObjectsV2Paginator(c.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list s3://%s/%s: %w", bucket, prefix, err)
		}
		for _, obj := range page.Contents {
			out = append(out, objectInfo(aws.ToString(obj.Key), obj.Size, obj.ETag, obj.LastModified))
		}
	}
	return out, nil
}

func objectInfo(key string, size *int64, etag *string, modified *time.Time) ObjectInfo {
	info := ObjectInfo{Key: key}
	if size != nil {
		info.Size = *size
	}
	if etag != nil {
		info.ETag = *etag
	}
	if modified != nil {
		info.LastModified = *modified
	}
	return info
}

func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NotFound" || code == "NoSuchKey"
	}
	return false
}
