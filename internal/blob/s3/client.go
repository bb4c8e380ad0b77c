// Package s3blob is the cold-storage backend for archived signals and
// trades. It speaks to AWS S3 or any S3-compatible store (MinIO, R2,
// iDrive e2) through aws-sdk-go-v2.
package s3blob

import (
	"context"
	"fmt"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ClientConfig holds connection parameters for the object store.
type ClientConfig struct {
	// Endpoint overrides the AWS endpoint for S3-compatible providers.
	// Leave empty for standard AWS S3.
	Endpoint string
	Region   string
	// Bucket receives every archive object.
	Bucket    string
	AccessKey string
	SecretKey string
	// UseSSL selects the scheme when Endpoint carries none.
	UseSSL bool
	// ForcePathStyle puts the bucket in the path instead of the subdomain.
	// Most S3-compatible providers require it.
	ForcePathStyle bool
}

// Client wraps the SDK client together with the archive bucket name.
type Client struct {
	s3     *s3.Client
	bucket string
}

// New builds a Client from static credentials and verifies nothing: call
// Health to probe the bucket.
func New(ctx context.Context, cfg ClientConfig) (*Client, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3blob: bucket name is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("s3blob: region is required")
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("s3blob: load aws config: %w", err)
	}

	var opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		endpoint := withScheme(cfg.Endpoint, cfg.UseSSL)
		opts = append(opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
	}
	if cfg.ForcePathStyle {
		opts = append(opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return &Client{
		s3:     s3.NewFromConfig(awsCfg, opts...),
		bucket: cfg.Bucket,
	}, nil
}

// Health probes the archive bucket with a HeadBucket call.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.s3.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(c.bucket),
	})
	if err != nil {
		return fmt.Errorf("s3blob: health check failed for bucket %s: %w", c.bucket, err)
	}
	return nil
}

// Close exists for wiring symmetry; the SDK's HTTP client needs no teardown.
func (c *Client) Close() error {
	return nil
}

// S3 exposes the raw SDK client to the writer.
func (c *Client) S3() *s3.Client {
	return c.s3
}

// Bucket returns the archive bucket name.
func (c *Client) Bucket() string {
	return c.bucket
}

// withScheme prepends https:// or http:// when the endpoint has no scheme.
func withScheme(endpoint string, useSSL bool) string {
	parsed, err := url.Parse(endpoint)
	if err == nil && parsed.Scheme != "" {
		return endpoint
	}
	scheme := "http"
	if useSSL {
		scheme = "https"
	}
	return scheme + "://" + endpoint
}
