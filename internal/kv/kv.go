// Package kv defines the persistent key-value substrate the entity maps are
// flushed to. Values are opaque JSON blobs; durability is per installation.
package kv

import "context"

// Store is the substrate contract. Implementations must not corrupt
// previously persisted state on a failed write (write-then-swap, never a
// partial in-place overwrite).
type Store interface {
	// Get returns the blob stored under key, with ok=false when absent.
	Get(ctx context.Context, key string) (blob []byte, ok bool, err error)
	Set(ctx context.Context, key string, blob []byte) error
	Delete(ctx context.Context, key string) error
	DeleteMany(ctx context.Context, keys []string) error
	Close() error
}

// Driver names a substrate backend, selected through config.
type Driver string

const (
	DriverMemory   Driver = "memory"
	DriverFile     Driver = "file"
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)
