package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"vegprice-service/internal/config"
)

var ErrNotConfigured = errors.New("s3 storage is not configured")

// SnapshotClient archives uploaded produce photos in an S3-compatible bucket.
type SnapshotClient struct {
	client        *s3.Client
	bucket        string
	endpoint      string
	publicBaseURL string
}

func NewSnapshotClient(cfg config.StorageConfig) (*SnapshotClient, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" || cfg.AccessKey == "" || cfg.SecretKey == "" || cfg.Bucket == "" {
		return nil, ErrNotConfigured
	}
	region := cfg.Region
	if region == "" {
		region = "auto"
	}

	awsCfg := aws.Config{
		Region:      region,
		Credentials: credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	return &SnapshotClient{
		client:        client,
		bucket:        cfg.Bucket,
		endpoint:      strings.TrimRight(endpoint, "/"),
		publicBaseURL: strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/"),
	}, nil
}

func (c *SnapshotClient) Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error) {
	if c == nil || c.client == nil {
		return "", ErrNotConfigured
	}
	if size <= 0 {
		return "", fmt.Errorf("empty file")
	}
	input := &s3.PutObjectInput{
		Bucket:        &c.bucket,
		Key:           &key,
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	}
	if _, err := c.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("s3 upload failed: %w", err)
	}
	return c.ObjectURL(key), nil
}

func (c *SnapshotClient) ObjectURL(key string) string {
	trimmedKey := strings.TrimLeft(key, "/")
	if c.publicBaseURL != "" {
		return fmt.Sprintf("%s/%s/%s", c.publicBaseURL, c.bucket, trimmedKey)
	}
	return fmt.Sprintf("%s/%s/%s", c.endpoint, c.bucket, trimmedKey)
}

// ScanKey раскладывает снимки по датам: scans/2026/10/15/<id>.jpg
func ScanKey(id uuid.UUID, at time.Time, format string) string {
	ext := strings.ToLower(strings.TrimPrefix(format, "."))
	if ext == "" || ext == "jpeg" {
		ext = "jpg"
	}
	return fmt.Sprintf("scans/%s/%s.%s", at.UTC().Format("2006/01/02"), id.String(), ext)
}
