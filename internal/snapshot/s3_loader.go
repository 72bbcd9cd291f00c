package snapshot

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// objectStore is the subset of *s3.Client used here.
type objectStore interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store loads and stores snapshots in an S3 bucket.
type S3Store struct {
	client objectStore
	bucket string
	logger zerolog.Logger
}

// NewS3Store creates an S3 snapshot store using the default AWS credential chain.
func NewS3Store(ctx context.Context, bucket, region string, logger zerolog.Logger) (*S3Store, error) {
	logger = logger.With().Str("component", "s3-snapshot-store").Logger()

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		logger.Error().Err(err).Msg("failed to load AWS configuration")
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	logger.Info().
		Str("bucket", bucket).
		Str("region", region).
		Msg("S3 snapshot store initialised")

	return newS3Store(s3.NewFromConfig(cfg), bucket, logger), nil
}

func newS3Store(client objectStore, bucket string, logger zerolog.Logger) *S3Store {
	return &S3Store{client: client, bucket: bucket, logger: logger}
}

// Load reads the gzipped snapshot stored under key.
func (s *S3Store) Load(ctx context.Context, key string) (*Snapshot, error) {
	s.logger.Info().Str("bucket", s.bucket).Str("key", key).Msg("loading snapshot from S3")

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		s.logger.Error().Err(err).Str("bucket", s.bucket).Str("key", key).Msg("failed to get object from S3")
		return nil, fmt.Errorf("failed to get object from S3 (bucket=%s, key=%s): %w", s.bucket, key, err)
	}
	defer result.Body.Close()

	snap, err := Decode(ctx, result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode S3 snapshot %s: %w", key, err)
	}

	s.logger.Info().
		Str("key", key).
		Int("records", snap.Len()).
		Msg("snapshot loaded from S3")

	return snap, nil
}

// Save uploads snap under key.
func (s *S3Store) Save(ctx context.Context, key string, snap *Snapshot) error {
	var buf bytes.Buffer
	if err := Write(&buf, snap); err != nil {
		return err
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:          aws.String(s.bucket),
		Key:             aws.String(key),
		Body:            bytes.NewReader(buf.Bytes()),
		ContentType:     aws.String("application/x-ndjson"),
		ContentEncoding: aws.String("gzip"),
	})
	if err != nil {
		s.logger.Error().Err(err).Str("bucket", s.bucket).Str("key", key).Msg("failed to put object to S3")
		return fmt.Errorf("failed to put object to S3 (bucket=%s, key=%s): %w", s.bucket, key, err)
	}

	s.logger.Info().Str("key", key).Int("records", snap.Len()).Msg("snapshot uploaded to S3")
	return nil
}

// fallbackLoader tries S3 first, then the local file system.
type fallbackLoader struct {
	s3Loader   Loader
	fileLoader Loader
	s3Prefix   string
	logger     zerolog.Logger
	s3Enabled  bool
}

// NewFallbackLoader creates a loader that tries S3 first, then falls back to local file system.
// If s3Loader is nil, it will only use the file loader.
func NewFallbackLoader(s3Loader, fileLoader Loader, s3Prefix string, s3Enabled bool, logger zerolog.Logger) Loader {
	return &fallbackLoader{
		s3Loader:   s3Loader,
		fileLoader: fileLoader,
		s3Prefix:   s3Prefix,
		s3Enabled:  s3Enabled,
		logger:     logger.With().Str("component", "fallback-loader").Logger(),
	}
}

// Load reads s3Prefix+path from S3, or path from disk if that fails.
func (l *fallbackLoader) Load(ctx context.Context, path string) (*Snapshot, error) {
	if l.s3Enabled && l.s3Loader != nil {
		s3Key := l.s3Prefix + path

		snap, err := l.s3Loader.Load(ctx, s3Key)
		if err == nil {
			return snap, nil
		}

		l.logger.Warn().
			Err(err).
			Str("s3_key", s3Key).
			Msg("failed to load from S3, falling back to local file system")
	}

	return l.fileLoader.Load(ctx, path)
}
