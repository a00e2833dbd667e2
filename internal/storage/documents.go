package storage

import (
	"bytes"
	"context"
	"path"
	"strings"
	"time"

	"atsengine/internal/config"
	"atsengine/internal/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/minio/minio-go/v7"
	miniocreds "github.com/minio/minio-go/v7/pkg/credentials"
)

// objectKey joins the configured prefix and key without a leading slash.
func objectKey(prefix, key string) string {
	return strings.TrimPrefix(path.Join(prefix, key), "/")
}

func presignExpiry(d time.Duration) time.Duration {
	// S3 presigned URLs are valid for at most seven days.
	const maxExpiry = 7 * 24 * time.Hour
	switch {
	case d <= 0:
		return 24 * time.Hour
	case d > maxExpiry:
		return maxExpiry
	}
	return d
}

// MinIODocumentStore keeps rendered documents in a MinIO bucket.
type MinIODocumentStore struct {
	client *minio.Client
	bucket string
	prefix string
	expiry time.Duration
	logger *errors.Logger
}

// NewMinIODocumentStore connects to MinIO and creates the bucket if needed.
func NewMinIODocumentStore(ctx context.Context, cfg config.MinIOConfig, docs config.DocumentsConfig, logger *errors.Logger) (*MinIODocumentStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  miniocreds.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.NewStorageUnavailable("failed to create minio client", err)
	}

	m := &MinIODocumentStore{
		client: client,
		bucket: cfg.Bucket,
		prefix: docs.KeyPrefix,
		expiry: presignExpiry(docs.PresignExpiry),
		logger: logger,
	}
	if err := m.ensureBucket(ctx, cfg.Region); err != nil {
		return nil, err
	}

	logger.Info("MinIO document store ready", "endpoint", cfg.Endpoint, "bucket", cfg.Bucket)
	return m, nil
}

func (m *MinIODocumentStore) ensureBucket(ctx context.Context, region string) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return errors.NewStorageUnavailable("failed to check bucket", err).WithContext("bucket", m.bucket)
	}
	if exists {
		return nil
	}
	if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{Region: region}); err != nil {
		return errors.NewStorageUnavailable("failed to create bucket", err).WithContext("bucket", m.bucket)
	}
	m.logger.Info("Bucket created", "bucket", m.bucket)
	return nil
}

// Put uploads data and returns a presigned GET URL.
func (m *MinIODocumentStore) Put(ctx context.Context, key string, data []byte, mediaType string) (string, error) {
	name := objectKey(m.prefix, key)
	_, err := m.client.PutObject(ctx, m.bucket, name, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: mediaType})
	if err != nil {
		return "", errors.NewStorageUnavailable("failed to upload document", err).WithContext("key", name)
	}

	u, err := m.client.PresignedGetObject(ctx, m.bucket, name, m.expiry, nil)
	if err != nil {
		return "", errors.NewStorageUnavailable("failed to presign document URL", err).WithContext("key", name)
	}
	m.logger.Debug("Document stored", "bucket", m.bucket, "key", name, "size", len(data))
	return u.String(), nil
}

// Close is a no-op; the MinIO client holds no persistent connection.
func (m *MinIODocumentStore) Close() error { return nil }

// S3DocumentStore keeps rendered documents in S3 or an S3-compatible
// service such as R2.
type S3DocumentStore struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
	prefix  string
	expiry  time.Duration
	logger  *errors.Logger
}

// NewS3DocumentStore builds the client and checks bucket access.
func NewS3DocumentStore(ctx context.Context, cfg config.S3Config, docs config.DocumentsConfig, logger *errors.Logger) (*S3DocumentStore, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.NewStorageUnavailable("failed to load AWS config", err)
	}

	client := newS3Client(awsCfg, cfg)
	s := &S3DocumentStore{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  cfg.Bucket,
		prefix:  docs.KeyPrefix,
		expiry:  presignExpiry(docs.PresignExpiry),
		logger:  logger,
	}

	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(cfg.Bucket)}); err != nil {
		return nil, errors.NewStorageUnavailable("failed to access bucket", err).WithContext("bucket", cfg.Bucket)
	}

	logger.Info("S3 document store ready", "endpoint", cfg.Endpoint, "bucket", cfg.Bucket, "region", cfg.Region)
	return s, nil
}

func newS3Client(awsCfg aws.Config, cfg config.S3Config) *s3.Client {
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
}

// Put uploads data and returns a presigned GET URL.
func (s *S3DocumentStore) Put(ctx context.Context, key string, data []byte, mediaType string) (string, error) {
	name := objectKey(s.prefix, key)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(name),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(mediaType),
	})
	if err != nil {
		return "", errors.NewStorageUnavailable("failed to upload document", err).WithContext("key", name)
	}

	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(name),
	}, s3.WithPresignExpires(s.expiry))
	if err != nil {
		return "", errors.NewStorageUnavailable("failed to presign document URL", err).WithContext("key", name)
	}
	s.logger.Debug("Document stored", "bucket", s.bucket, "key", name, "size", len(data))
	return req.URL, nil
}

// Close is a no-op for the HTTP-based S3 client.
func (s *S3DocumentStore) Close() error { return nil }
