package backend

import (
	"context"
	"fmt"
	"log/slog"

	"aulas/internal/sources/google"
	"aulas/internal/sources/httpapi"
	"aulas/internal/sources/memory"
	"aulas/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case HTTPBackend:
		return f.createHTTPBackend(config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	case SheetsBackend:
		return f.createSheetsBackend(ctx, config)
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case MySQLBackend:
		return f.createMySQLBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createHTTPBackend(config Config) (*BackendResult, error) {
	cli, err := httpapi.New(config.HTTP)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize HTTP source: %w", err)
	}

	f.logger.Info("Initialized HTTP backend",
		"base_url", config.HTTP.BaseURL,
		"timeout", config.HTTP.Timeout)

	return &BackendResult{Source: cli}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data"
	}

	store, err := memory.NewFromFiles(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load seed files: %w", err)
	}

	f.logger.Info("Initialized memory backend", "data_directory", dataDir)

	return &BackendResult{Source: store}, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*BackendResult, error) {
	cli, err := google.New(ctx, config.Google)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.Info("Initialized Google Sheets backend",
		"spreadsheet_id", config.Google.SpreadsheetID)

	return &BackendResult{Source: cli}, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{Source: repo, Cleanup: repo.Close}, nil
}

func (f *DefaultFactory) createMySQLBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewMySQLRepository(config.MySQLDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MySQL repository: %w", err)
	}

	f.logger.Info("Initialized MySQL backend")

	return &BackendResult{Source: repo, Cleanup: repo.Close}, nil
}
