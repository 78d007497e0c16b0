// Package cache provides the local key-value cache for projects and action items.
//
// Entries live in named partitions that can be cleared independently. There is
// no expiry: an entry stays until its partition is cleared.
package cache

import "context"

// Partition is a named, independently clearable key-value namespace.
// Get never fails: an absent or unreadable entry is reported as a miss.
type Partition interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string) error
	Clear(ctx context.Context) error
}

// Store hands out partitions by name
type Store interface {
	Partition(name string) Partition
	Close() error
}

// Counter is implemented by stores that can report entry counts
type Counter interface {
	Count(ctx context.Context, partition string) (int, error)
}
