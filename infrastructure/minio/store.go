package minio

import (
	"context"
	"fmt"

	"transcode-worker/domain/storage"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// API is the subset of the MinIO client used by Store
type API interface {
	FGetObject(ctx context.Context, bucketName, objectName, filePath string, opts minio.GetObjectOptions) error
	FPutObject(ctx context.Context, bucketName, objectName, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

// Config holds connection settings for a MinIO (or other S3-compatible) server
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
}

// Store implements storage.ObjectStore on MinIO
type Store struct {
	client API
	logger *zap.Logger
}

// NewClient creates a MinIO client with static credentials
func NewClient(cfg Config) (*minio.Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint is required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return client, nil
}

// NewStore wraps an existing client
func NewStore(client API, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{client: client, logger: logger}
}

// Fetch downloads bucket/key into localPath
func (s *Store) Fetch(ctx context.Context, bucket, key, localPath string) error {
	if err := s.client.FGetObject(ctx, bucket, key, localPath, minio.GetObjectOptions{}); err != nil {
		return fmt.Errorf("get object: %w", err)
	}
	s.logger.Debug("downloaded object", zap.String("bucket", bucket), zap.String("key", key))
	return nil
}

// Store uploads localPath to bucket/key
func (s *Store) Store(ctx context.Context, bucket, localPath, key, contentType string) error {
	info, err := s.client.FPutObject(ctx, bucket, key, localPath, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	s.logger.Debug("uploaded object",
		zap.String("bucket", bucket),
		zap.String("key", key),
		zap.Int64("bytes", info.Size),
	)
	return nil
}

// Remove deletes one object
func (s *Store) Remove(ctx context.Context, bucket, key string) error {
	if err := s.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object: %w", err)
	}
	s.logger.Debug("deleted object", zap.String("bucket", bucket), zap.String("key", key))
	return nil
}

var _ storage.ObjectStore = (*Store)(nil)
