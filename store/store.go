// Package store is the durable key-value persistence behind the catalog.
//
// Every backend reports failures wrapped in ErrUnavailable so callers can
// degrade to session-only operation with a single errors.Is check.
package store

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound    = errors.New("key not found")
	ErrUnavailable = errors.New("storage unavailable")
)

// Store holds string values under string keys.
type Store interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Close() error
}

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Config selects and locates a backend.
type Config struct {
	Backend string
	Path    string
}

// Open builds the configured backend. Path is ignored for the memory backend.
func Open(cfg Config) (Store, error) {
	switch cfg.Backend {
	case BackendFile, "":
		return OpenFile(cfg.Path)
	case BackendSQLite:
		return OpenSQLite(cfg.Path)
	case BackendMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
}
