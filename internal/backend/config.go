package backend

import (
	"errors"
	"fmt"

	"aulas/internal/config"
	"aulas/internal/sources/google"
	"aulas/internal/sources/httpapi"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type: backendType,

		HTTP: httpapi.Config{
			BaseURL:     appConfig.SourceBaseURL,
			LessonsPath: appConfig.SourceLessonsPath,
			ClientsPath: appConfig.SourceClientsPath,
			Timeout:     appConfig.SourceTimeout,
		},

		DataDirectory: appConfig.DataDir,

		SQLiteDBPath: appConfig.SQLiteDBPath,
		MySQLDSN:     appConfig.MySQLDSN,

		Google: google.Config{
			SpreadsheetID:   appConfig.GoogleSpreadsheetID,
			LessonsSheet:    appConfig.GoogleLessonsSheet,
			ClientsSheet:    appConfig.GoogleClientsSheet,
			CredentialsJSON: appConfig.GoogleServiceAccountJSON,
			CredentialsFile: appConfig.GoogleServiceAccountFile,
		},
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case HTTPBackend:
		if c.HTTP.BaseURL == "" {
			return errors.New("source base URL is required for http backend")
		}
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return errors.New("SQLite database path is required for sqlite backend")
		}
	case MySQLBackend:
		if c.MySQLDSN == "" {
			return errors.New("MySQL DSN is required for mysql backend")
		}
	case SheetsBackend:
		if c.Google.SpreadsheetID == "" {
			return errors.New("Google Spreadsheet ID is required for sheets backend")
		}
	case MemoryBackend:
		// DataDirectory defaults to "data"
	}

	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{HTTPBackend, MemoryBackend, SheetsBackend, SQLiteBackend, MySQLBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}
