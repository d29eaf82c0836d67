package backend

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"fintrack/internal/log"
	"fintrack/internal/storage"
	"fintrack/internal/storage/jsonfile"
	"fintrack/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Default(log.ComponentBackend)
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case JSONBackend:
		return f.createJSONBackend(ctx, config)
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(ctx)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createJSONBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo := jsonfile.New(config.DataFile)
	dir := filepath.Dir(repo.Path())

	f.logger.InfoContext(ctx, "Initialized JSON file backend", "path", repo.Path())

	return &BackendResult{
		Repository: repo,
		Ready: func(context.Context) error {
			info, err := os.Stat(dir)
			if err != nil {
				return fmt.Errorf("data directory: %w", err)
			}
			if !info.IsDir() {
				return fmt.Errorf("data directory %s is not a directory", dir)
			}
			return nil
		},
	}, nil
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Repository: repo,
		Ready:      repo.Ping,
		Cleanup:    repo.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(ctx context.Context) (*BackendResult, error) {
	f.logger.WarnContext(ctx, "Initialized memory backend, data is lost on restart")

	return &BackendResult{
		Repository: memory.New(nil),
		Ready:      func(context.Context) error { return nil },
	}, nil
}
