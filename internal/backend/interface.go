// Package backend builds the persistence backend selected by configuration.
package backend

import (
	"context"

	"fintrack/internal/ledger"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// ReadyFunc reports whether the backend can serve requests.
type ReadyFunc func(ctx context.Context) error

// BackendResult contains the repository and its lifecycle hooks
type BackendResult struct {
	Repository ledger.Repository
	Ready      ReadyFunc
	Cleanup    CleanupFunc
}

// Close runs Cleanup when there is one.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// JSON file specific
	DataFile string

	// SQLite specific
	SQLiteDBPath string
}

// BackendType represents the type of backend
type BackendType string

const (
	JSONBackend   BackendType = "json"
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case JSONBackend, SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
