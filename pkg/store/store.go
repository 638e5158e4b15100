// Package store provides the record store adapter over the backing
// key-value database.
//
// A [Store] is a single logical partition of the backing database: the
// catalog uses one partition for module records and one for vendor
// implementation records. Implementations exist for different backends:
//   - redis: Redis-backed storage for production deployments
//   - mongo: MongoDB-backed storage for deployments without Redis
//   - memory: In-memory storage for development/testing
//
// All values are raw JSON. Absent keys are indistinguishable from keys
// holding an empty object: Get returns "{}" for both, and no caller ever
// branches on true absence at this layer.
package store

import (
	"context"

	"github.com/mazrik/modcat/pkg/errors"
)

// EmptyObject is the sentinel value returned for absent keys.
var EmptyObject = []byte("{}")

// Store is a single logical partition of the backing key-value store.
type Store interface {
	// Name returns the partition name (e.g. "modules", "vendors").
	Name() string

	// Get retrieves the raw value stored under key.
	// Absent keys yield EmptyObject, never an error.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes the given keys and returns how many actually existed.
	Delete(ctx context.Context, keys ...string) (int, error)

	// ScanKeys returns every key currently present in the partition.
	ScanKeys(ctx context.Context) ([]string, error)

	// Close releases the underlying connection.
	Close() error
}

// IsEmpty reports whether value is the empty-object sentinel.
func IsEmpty(value []byte) bool {
	return len(value) == 0 || string(value) == "{}"
}

// unavailable wraps a backend error as STORE_UNAVAILABLE with the
// failing operation and key for context.
func unavailable(cause error, op, partition, key string) error {
	if key == "" {
		return errors.Wrap(errors.ErrCodeStoreUnavailable, cause, "%s %s", op, partition)
	}
	return errors.Wrap(errors.ErrCodeStoreUnavailable, cause, "%s %s/%s", op, partition, key)
}
