package backend

import (
	"context"

	"aulas/internal/sources"
	"aulas/internal/sources/google"
	"aulas/internal/sources/httpapi"
)

// CleanupFunc releases resources held by a backend
type CleanupFunc func() error

// BackendResult contains the source and an optional cleanup function
type BackendResult struct {
	Source  sources.Source
	Cleanup CleanupFunc
}

// Factory creates data sources based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// HTTP JSON endpoints
	HTTP httpapi.Config

	// Seed files for the memory backend
	DataDirectory string

	// Relational storage
	SQLiteDBPath string
	MySQLDSN     string

	// Google Sheets
	Google google.Config
}

// BackendType represents the type of backend
type BackendType string

const (
	HTTPBackend   BackendType = "http"
	MemoryBackend BackendType = "memory"
	SheetsBackend BackendType = "sheets"
	SQLiteBackend BackendType = "sqlite"
	MySQLBackend  BackendType = "mysql"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case HTTPBackend, MemoryBackend, SheetsBackend, SQLiteBackend, MySQLBackend:
		return true
	default:
		return false
	}
}
