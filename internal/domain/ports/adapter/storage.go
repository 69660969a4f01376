package adapter

import (
	"context"
	"time"
)

// ObjectStore is the hex port for the blob store holding input videos and
// pipeline output artifacts. All operations are reads; the core never writes
// objects itself.
type ObjectStore interface {
	// List returns the object names (relative to the prefix) currently
	// present under prefix.
	List(ctx context.Context, prefix string) ([]string, error)
	Exists(ctx context.Context, key string) (bool, error)
	// SignURL returns a time-limited signed URL for key.
	SignURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}
