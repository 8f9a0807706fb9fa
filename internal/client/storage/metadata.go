package storage

import "context"

// MetadataStorage defines interface for storing client metadata
type MetadataStorage interface {
	// SaveLastSyncTimestamp saves serverTimestamp of the last successful sync
	SaveLastSyncTimestamp(ctx context.Context, timestamp string) error

	// GetLastSyncTimestamp retrieves serverTimestamp of the last successful sync
	// Returns "" if no sync has been performed yet
	GetLastSyncTimestamp(ctx context.Context) (string, error)
}
