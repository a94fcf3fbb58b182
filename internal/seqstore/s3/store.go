// Package s3 implements a seqstore.Fetcher against an S3-compatible
// bucket, serving byte ranges via the HTTP Range header instead of
// whole objects.
package s3

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Fetcher serves sequence ranges from one S3-compatible bucket, one
// object per identifier.
type Fetcher struct {
	client *s3.Client
	bucket string
	ctx    context.Context
}

// Config describes how to reach the bucket.
type Config struct {
	Region          string
	Bucket          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	PathStyle       bool
}

// Environment variables:
//
//	TAXOPLACE_SEQSTORE_S3_BUCKET=<bucket> (required)
//	TAXOPLACE_SEQSTORE_S3_REGION=<region> (default us-east-1)
//	TAXOPLACE_SEQSTORE_S3_ENDPOINT=<url> (optional, for MinIO)
//	TAXOPLACE_SEQSTORE_S3_PATH_STYLE=true|false (default false)
//	TAXOPLACE_SEQSTORE_S3_ACCESS_KEY_ID=<key> (optional, static credentials)
//	TAXOPLACE_SEQSTORE_S3_SECRET_ACCESS_KEY=<secret> (optional)
//	TAXOPLACE_SEQSTORE_S3_SESSION_TOKEN=<token> (optional)

// New creates an S3-backed fetcher from Config.
func New(ctx context.Context, cfg Config) (*Fetcher, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken,
		)))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = awssdk.String(cfg.Endpoint)
		}
	})
	return &Fetcher{client: client, bucket: cfg.Bucket, ctx: ctx}, nil
}

// OpenFromEnv constructs an S3 fetcher from process environment.
func OpenFromEnv(ctx context.Context) (*Fetcher, error) {
	bucket := os.Getenv("TAXOPLACE_SEQSTORE_S3_BUCKET")
	if bucket == "" {
		return nil, fmt.Errorf("TAXOPLACE_SEQSTORE_S3_BUCKET required for s3 sequence storage")
	}
	cfg := Config{
		Bucket:          bucket,
		Region:          os.Getenv("TAXOPLACE_SEQSTORE_S3_REGION"),
		Endpoint:        os.Getenv("TAXOPLACE_SEQSTORE_S3_ENDPOINT"),
		PathStyle:       strings.EqualFold(os.Getenv("TAXOPLACE_SEQSTORE_S3_PATH_STYLE"), "true"),
		AccessKeyID:     os.Getenv("TAXOPLACE_SEQSTORE_S3_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("TAXOPLACE_SEQSTORE_S3_SECRET_ACCESS_KEY"),
		SessionToken:    os.Getenv("TAXOPLACE_SEQSTORE_S3_SESSION_TOKEN"),
	}
	return New(ctx, cfg)
}

// Fetch implements seqstore.Fetcher via a ranged GetObject call.
func (f *Fetcher) Fetch(id string, start, stop int) ([]byte, error) {
	if start < 1 || stop < start {
		return nil, fmt.Errorf("sequence %q: range [%d,%d] out of bounds", id, start, stop)
	}
	rng := fmt.Sprintf("bytes=%d-%d", start-1, stop-1)
	out, err := f.client.GetObject(f.ctx, &s3.GetObjectInput{
		Bucket: awssdk.String(f.bucket),
		Key:    awssdk.String(id),
		Range:  awssdk.String(rng),
	})
	if err != nil {
		return nil, fmt.Errorf("sequence %q: %w", id, err)
	}
	defer func() { _ = out.Body.Close() }()
	b, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("sequence %q: read body: %w", id, err)
	}
	if len(b) != stop-start+1 {
		return nil, fmt.Errorf("sequence %q: range [%d,%d] out of bounds (got %d bytes)", id, start, stop, len(b))
	}
	return b, nil
}
