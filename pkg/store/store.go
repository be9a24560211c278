// Package store persists the editor draft and the player snapshot.
//
// Every write replaces the whole snapshot stored under a key, so writes are
// idempotent and a crash never leaves a half-applied edit behind. Two keys
// are used:
//
//   - [KeyEditorState]: the draft being authored, see [LoadDraft]
//   - [KeyPlayerState]: the reader's position, see [LoadPlayer]
//
// Backends:
//
//   - memory: process-local, for tests and the server's default
//   - file: one JSON file per key in a directory (CLI default)
//   - sqlite: a single-table database file
//   - redis: shared state for several server instances
//   - mongo: one document per key
//
// Writes from interactive sessions go through a [Debouncer] so a burst of
// edits produces a single write.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Snapshot keys.
const (
	KeyEditorState = "storyEditorState"
	KeyPlayerState = "storyPlayerState"
	// KeyEditorUndo holds the draft before the last destructive edit.
	KeyEditorUndo = "storyEditorUndo"
)

// ErrNotFound is returned by Load when nothing is stored under a key.
var ErrNotFound = errors.New("not found")

// Store is a key to snapshot map.
type Store interface {
	// Load returns the snapshot stored under key or ErrNotFound.
	Load(ctx context.Context, key string) ([]byte, error)
	// Save replaces the snapshot under key.
	Save(ctx context.Context, key string, data []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	Close() error
}

// Driver names accepted by [Open].
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
	DriverMongo  = "mongo"
)

// Config selects and configures a backend.
type Config struct {
	Driver string `toml:"driver" env:"DRIVER"`
	// Path is the directory (file) or database file (sqlite).
	Path string `toml:"path" env:"PATH"`
	// URL is the connection string for redis and mongo.
	URL string `toml:"url" env:"URL"`
	// Database and Collection name the mongo collection.
	Database   string `toml:"database" env:"DATABASE"`
	Collection string `toml:"collection" env:"COLLECTION"`
	// Prefix namespaces redis keys.
	Prefix string `toml:"prefix" env:"PREFIX"`
}

// Open returns the backend named by cfg.Driver.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case DriverMemory, "":
		return NewMemoryStore(), nil
	case DriverFile:
		return NewFileStore(cfg.Path)
	case DriverSQLite:
		return OpenSQLite(cfg.Path)
	case DriverRedis:
		return NewRedisStore(ctx, cfg.URL, cfg.Prefix)
	case DriverMongo:
		return NewMongoStore(ctx, cfg.URL, cfg.Database, cfg.Collection)
	}
	return nil, fmt.Errorf("unknown store driver %q (want memory, file, sqlite, redis or mongo)", cfg.Driver)
}

func checkKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("store key is required")
	}
	return nil
}
