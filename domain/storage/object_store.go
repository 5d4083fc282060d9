package storage

import "context"

// ObjectStore defines the interface for bucket based object transfer
// This is a port that can be implemented by different infrastructure adapters
type ObjectStore interface {
	// Fetch downloads bucket/key into localPath
	Fetch(ctx context.Context, bucket, key, localPath string) error

	// Store uploads localPath to bucket under key
	Store(ctx context.Context, bucket, localPath, key, contentType string) error

	// Remove deletes exactly one object
	Remove(ctx context.Context, bucket, key string) error
}
