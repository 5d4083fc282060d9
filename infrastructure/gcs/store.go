package gcs

import (
	"context"
	"fmt"
	"io"
	"os"

	"transcode-worker/domain/storage"
	"transcode-worker/infrastructure/googleauth"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	gstorage "google.golang.org/api/storage/v1"
)

// ObjectsService defines the Cloud Storage object operations used by Store.
// This allows mocking the JSON API in tests.
type ObjectsService interface {
	Download(ctx context.Context, bucket, object string) (io.ReadCloser, error)
	Insert(ctx context.Context, bucket, object, contentType string, media io.Reader) error
	Delete(ctx context.Context, bucket, object string) error
}

// GoogleObjectsService is the production implementation using the Cloud Storage JSON API
type GoogleObjectsService struct {
	service *gstorage.Service
}

// Download opens the object's media
func (s *GoogleObjectsService) Download(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
	resp, err := s.service.Objects.Get(bucket, object).Context(ctx).Download()
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Insert uploads media as bucket/object
func (s *GoogleObjectsService) Insert(ctx context.Context, bucket, object, contentType string, media io.Reader) error {
	_, err := s.service.Objects.Insert(bucket, &gstorage.Object{
		Name:        object,
		ContentType: contentType,
	}).Media(media).Context(ctx).Do()
	return err
}

// Delete removes bucket/object
func (s *GoogleObjectsService) Delete(ctx context.Context, bucket, object string) error {
	return s.service.Objects.Delete(bucket, object).Context(ctx).Do()
}

// Store implements storage.ObjectStore on Google Cloud Storage
type Store struct {
	objects   ObjectsService
	tokenFile string
	logger    *zap.Logger
}

// StoreOption is a functional option for configuring Store
type StoreOption func(*Store)

// WithObjectsService sets a custom objects service (for testing)
func WithObjectsService(svc ObjectsService) StoreOption {
	return func(s *Store) {
		s.objects = svc
	}
}

// WithTokenFile sets the saved OAuth token used when the credentials file
// is an OAuth client secret
func WithTokenFile(path string) StoreOption {
	return func(s *Store) {
		s.tokenFile = path
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore creates a Cloud Storage store.
// If no objects service is provided, one is built from credentialsFile.
func NewStore(ctx context.Context, credentialsFile string, opts ...StoreOption) (*Store, error) {
	s := &Store{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	if s.objects == nil {
		client, err := googleauth.HTTPClient(ctx, googleauth.Config{
			CredentialsFile: credentialsFile,
			TokenFile:       s.tokenFile,
			Scopes:          []string{googleauth.ScopeStorage},
		})
		if err != nil {
			return nil, err
		}
		srv, err := gstorage.NewService(ctx, option.WithHTTPClient(client))
		if err != nil {
			return nil, fmt.Errorf("unable to create storage service: %w", err)
		}
		s.objects = &GoogleObjectsService{service: srv}
	}
	return s, nil
}

// Fetch downloads bucket/key into localPath
func (s *Store) Fetch(ctx context.Context, bucket, key, localPath string) error {
	body, err := s.objects.Download(ctx, bucket, key)
	if err != nil {
		return fmt.Errorf("failed to download object: %w", err)
	}
	defer body.Close()

	f, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", localPath, err)
	}
	n, err := io.Copy(f, body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", localPath, err)
	}

	s.logger.Debug("downloaded object", zap.String("bucket", bucket), zap.String("key", key), zap.Int64("bytes", n))
	return nil
}

// Store uploads localPath to bucket/key
func (s *Store) Store(ctx context.Context, bucket, localPath, key, contentType string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	if err := s.objects.Insert(ctx, bucket, key, contentType, f); err != nil {
		return fmt.Errorf("failed to upload object: %w", err)
	}
	s.logger.Debug("uploaded object", zap.String("bucket", bucket), zap.String("key", key))
	return nil
}

// Remove deletes one object
func (s *Store) Remove(ctx context.Context, bucket, key string) error {
	if err := s.objects.Delete(ctx, bucket, key); err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	s.logger.Debug("deleted object", zap.String("bucket", bucket), zap.String("key", key))
	return nil
}

var _ storage.ObjectStore = (*Store)(nil)
