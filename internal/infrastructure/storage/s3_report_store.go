// Package storage archives catalog sync batch reports in object storage.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	appintegration "github.com/catalogsync/backend/internal/application/integration"
	infraconfig "github.com/catalogsync/backend/internal/infrastructure/config"
)

// DefaultReportPrefix is the key prefix used when none is configured
const DefaultReportPrefix = "catalog-sync/batches"

// Ensure S3ReportStore implements ReportStore
var _ appintegration.ReportStore = (*S3ReportStore)(nil)

// S3ReportStore stores batch results as JSON objects in any S3-compatible
// backend (AWS S3, MinIO, RustFS).
type S3ReportStore struct {
	client            *s3.Client
	presignClient     *s3.PresignClient
	bucket            string
	prefix            string
	presignExpiration time.Duration
	logger            *zap.Logger
}

// S3ReportStoreOption is a functional option for configuring S3ReportStore
type S3ReportStoreOption func(*S3ReportStore)

// WithLogger sets a custom logger
func WithLogger(logger *zap.Logger) S3ReportStoreOption {
	return func(s *S3ReportStore) {
		s.logger = logger
	}
}

// NewS3ReportStore creates a new S3ReportStore from configuration
func NewS3ReportStore(cfg *infraconfig.StorageConfig, opts ...S3ReportStoreOption) (*S3ReportStore, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	if cfg.AccessKey == "" {
		return nil, errors.New("storage access key is required")
	}
	if cfg.SecretKey == "" {
		return nil, errors.New("storage secret key is required")
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "http://localhost:9000"
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		if cfg.UseSSL {
			endpoint = "https://" + endpoint
		} else {
			endpoint = "http://" + endpoint
		}
	}
	if _, err := url.Parse(endpoint); err != nil {
		return nil, fmt.Errorf("invalid storage endpoint: %w", err)
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		o.BaseEndpoint = aws.String(endpoint)
	})

	prefix := strings.Trim(cfg.ReportPrefix, "/")
	if prefix == "" {
		prefix = DefaultReportPrefix
	}

	store := &S3ReportStore{
		client:            client,
		presignClient:     s3.NewPresignClient(client),
		bucket:            cfg.Bucket,
		prefix:            prefix,
		presignExpiration: cfg.PresignExpiration,
		logger:            zap.NewNop(),
	}
	for _, opt := range opts {
		opt(store)
	}
	if store.presignExpiration == 0 {
		store.presignExpiration = 24 * time.Hour
	}
	return store, nil
}

// EnsureBucket creates the bucket if it doesn't exist
func (s *S3ReportStore) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	s.logger.Info("Creating report bucket", zap.String("bucket", s.bucket))
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		var alreadyOwned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &alreadyOwned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// ReportKey returns the object key of a batch report
func ReportKey(prefix, batchID string) string {
	return path.Join(prefix, batchID+".json")
}

// Archive uploads the batch result and returns a presigned download link.
// When presigning fails the s3:// location is returned instead.
func (s *S3ReportStore) Archive(ctx context.Context, result *appintegration.BatchResult) (string, error) {
	if result == nil || result.BatchID == "" {
		return "", errors.New("batch id is required")
	}

	body, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("failed to encode batch report: %w", err)
	}

	key := ReportKey(s.prefix, result.BatchID)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload batch report: %w", err)
	}
	s.logger.Debug("Batch report archived", zap.String("bucket", s.bucket), zap.String("key", key))

	presigned, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.presignExpiration))
	if err != nil {
		s.logger.Warn("Failed to presign batch report", zap.String("key", key), zap.Error(err))
		return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
	}
	return presigned.URL, nil
}

// Load reads back an archived batch result
func (s *S3ReportStore) Load(ctx context.Context, batchID string) (*appintegration.BatchResult, error) {
	if batchID == "" {
		return nil, errors.New("batch id is required")
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(ReportKey(s.prefix, batchID)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		var notFound *types.NotFound
		if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
			return nil, appintegration.ErrReportNotFound
		}
		return nil, fmt.Errorf("failed to read batch report: %w", err)
	}
	defer out.Body.Close()

	var result appintegration.BatchResult
	if err := json.NewDecoder(out.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode batch report: %w", err)
	}
	return &result, nil
}

// Bucket returns the bucket name
func (s *S3ReportStore) Bucket() string {
	return s.bucket
}
