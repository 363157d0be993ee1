// Package storage presigns direct browser uploads to S3-compatible storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config describes the bucket avatars are uploaded to.
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Expires   time.Duration
}

// Enabled reports whether enough is configured to presign uploads.
func (c S3Config) Enabled() bool {
	return c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

// Presigner issues presigned PUT URLs.
type Presigner struct {
	client  *s3.PresignClient
	bucket  string
	expires time.Duration
}

// NewPresigner builds a Presigner. A custom endpoint (MinIO and friends)
// switches the client to path-style addressing.
func NewPresigner(ctx context.Context, cfg S3Config) (*Presigner, error) {
	if !cfg.Enabled() {
		return nil, errors.New("storage: bucket and credentials are required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("storage: load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	expires := cfg.Expires
	if expires <= 0 {
		expires = 15 * time.Minute
	}
	return &Presigner{client: s3.NewPresignClient(client), bucket: cfg.Bucket, expires: expires}, nil
}

// PresignUpload returns a URL that accepts one PUT of key with contentType.
func (p *Presigner) PresignUpload(ctx context.Context, key, contentType string) (string, time.Time, error) {
	req, err := p.client.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(p.expires))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("storage: presign put %s: %w", key, err)
	}
	return req.URL, time.Now().Add(p.expires), nil
}
