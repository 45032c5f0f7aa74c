// Package s3 provides the AWS S3 implementation of the crawl artifact store.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"
)

// Config captures the knobs needed to reach S3 or an S3-compatible endpoint.
// Endpoint plus static credentials and path-style addressing is the LocalStack
// shape used in local environments.
type Config struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// Store writes crawl artifacts to S3 buckets.
type Store struct {
	client *s3.Client
	logger *zap.Logger
}

// New builds an S3 client from the config and wraps it.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Store, error) {
	opts := []func(*awscfg.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, awscfg.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsConfig, err := awscfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	if cfg.Endpoint != "" {
		awsConfig.BaseEndpoint = aws.String(cfg.Endpoint)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})
	return NewWithClient(client, logger)
}

// NewWithClient wraps an existing S3 client (primarily for testing).
func NewWithClient(client *s3.Client, logger *zap.Logger) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("s3 client is required")
	}
	return &Store{client: client, logger: logger}, nil
}

// EnsureBucket creates the bucket when absent and purges every object it
// holds when present.
func (s *Store) EnsureBucket(ctx context.Context, bucket string) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
	if err != nil {
		var notFound *types.NotFound
		if !errors.As(err, &notFound) {
			return fmt.Errorf("head bucket %s: %w", bucket, err)
		}
		if _, err := s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucket)}); err != nil {
			return fmt.Errorf("create bucket %s: %w", bucket, err)
		}
		s.logger.Info("Created destination bucket", zap.String("bucket", bucket))
		return nil
	}

	purged := 0
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{Bucket: aws.String(bucket)})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("list bucket %s: %w", bucket, err)
		}
		for _, object := range page.Contents {
			_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(bucket),
				Key:    object.Key,
			})
			if err != nil {
				return fmt.Errorf("delete object %s/%s: %w", bucket, aws.ToString(object.Key), err)
			}
			purged++
		}
	}
	s.logger.Info("Reusing existing bucket",
		zap.String("bucket", bucket),
		zap.Int("objects_purged", purged),
	)
	return nil
}

// PutObject uploads data and returns the object's storage path.
func (s *Store) PutObject(ctx context.Context, bucket, object, contentType string, data []byte) (string, error) {
	if strings.TrimSpace(object) == "" {
		return "", fmt.Errorf("object name is required")
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(object),
		Body:   bytes.NewReader(data),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("put object %s/%s: %w", bucket, object, err)
	}
	return fmt.Sprintf("%s/%s", bucket, object), nil
}

// Close implements storage.Store; the S3 client holds no long-lived
// connections that need releasing.
func (s *Store) Close() error { return nil }
