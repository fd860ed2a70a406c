// Package objstore stores uploaded artifacts (payment evidence, attachments)
// in an object store keyed by order.
package objstore

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Store persists uploaded files and returns the stable key they live under.
type Store interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) error
}

// s3Store implements Store on AWS S3.
type s3Store struct {
	client *s3.Client
	bucket string
	logger zerolog.Logger
}

// NewS3Store creates an S3-backed Store.
func NewS3Store(ctx context.Context, bucket, region string, logger zerolog.Logger) (Store, error) {
	logger = logger.With().Str("component", "s3-objstore").Logger()

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		logger.Error().Err(err).Msg("failed to load AWS configuration")
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	client := s3.NewFromConfig(cfg)

	logger.Info().
		Str("bucket", bucket).
		Str("region", region).
		Msg("object store initialised")

	return &s3Store{
		client: client,
		bucket: bucket,
		logger: logger,
	}, nil
}

// Put uploads one object under key.
func (s *s3Store) Put(ctx context.Context, key string, body io.Reader, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("bucket", s.bucket).
			Str("key", key).
			Msg("failed to put object")
		return fmt.Errorf("failed to put object (bucket=%s, key=%s): %w", s.bucket, key, err)
	}

	s.logger.Info().
		Str("bucket", s.bucket).
		Str("key", key).
		Msg("object stored")
	return nil
}

// EvidenceKey builds the object key for payment evidence of one order. The
// random suffix keeps resubmissions from overwriting each other.
func EvidenceKey(orderID uuid.UUID, filename string) string {
	return fmt.Sprintf("payment-evidence/%s/%s-%s", orderID, uuid.New(), filename)
}
