// Package storage defines the narrow key→bytes primitive the channel
// store is built on. Keys are logical paths; "/" is the
// separator used by List.
package storage

import "context"

// ReadResult is the return value of ReadFrom.
type ReadResult struct {
	Content   []byte
	NewOffset int64
}

// Backend is a primitive append-only-friendly byte store. Implementations
// must never error on a missing key for Read/ReadFrom/Exists; Write and
// Append are atomic from the reader's perspective.
type Backend interface {
	// Read returns the full content of key, or nil if key is absent.
	Read(ctx context.Context, key string) ([]byte, error)

	// ReadFrom returns content starting at byte offset. If offset >=
	// size, it returns empty content with NewOffset == size. If key is
	// absent, it returns empty content with NewOffset == 0.
	ReadFrom(ctx context.Context, key string, offset int64) (ReadResult, error)

	// Write atomically replaces key's content. Parent "directories" are
	// created on demand.
	Write(ctx context.Context, key string, content []byte) error

	// Append atomically appends content to key, creating it if absent.
	// Concurrent appenders must never interleave partial bytes.
	Append(ctx context.Context, key string, content []byte) error

	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// List returns every key under prefix, relative to prefix,
	// recursively, sorted lexicographically.
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes key. Idempotent: deleting an absent key is not an
	// error.
	Delete(ctx context.Context, key string) error
}

// Watcher is an optional capability: backends that can report external
// changes to a key's directory without polling implement it. The
// memory backend does not (there is nothing external to watch); the
// disk backend does, via fsnotify.
type Watcher interface {
	// Watch returns a channel that receives a signal whenever the
	// directory named by key changes on disk, plus a cancel function
	// to stop watching and release the underlying handle. The
	// directory is created if absent.
	Watch(key string) (<-chan struct{}, func(), error)
}
