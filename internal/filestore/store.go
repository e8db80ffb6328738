// Package filestore defines the interface for object storage backends that
// receive generated exports, and publishes rendered databases to them.
//
// Callers depend only on this package, never on a specific provider package.
//
// Usage:
//
//	cfg := filestore.DefaultConfig("localhost:9000", "minioadmin", "minioadmin")
//	store, err := minio.New(ctx, cfg)
//	if err != nil { ... }
//	defer store.Close()
//
//	info, err := filestore.Publish(ctx, store, cfg.Bucket, "runs/university.facts", db, filestore.FormatFacts)
package filestore

import (
	"context"
	"io"
	"time"
)

// Store is the interface all file storage providers implement.
type Store interface {
	// Ping verifies the storage backend is reachable.
	Ping(ctx context.Context) error

	// Close releases any held resources (connections, goroutines, etc.).
	Close() error

	// EnsureBucket creates bucket unless it already exists.
	EnsureBucket(ctx context.Context, bucket string) error

	// PutObject stores size bytes read from r at key inside bucket,
	// replacing any previous object.
	PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) (*ObjectInfo, error)

	// PresignGetURL returns a time-limited URL that allows anyone to download
	// the object at key inside bucket without credentials.
	PresignGetURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
}
