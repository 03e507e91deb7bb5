package backend

import (
	"fmt"

	"economize/internal/config"
)

// Config holds the per-backend settings the factory needs.
type Config struct {
	Type Type

	// Memory backend
	DataDirectory string

	// SQLite backend
	SQLiteDBPath string

	// Firestore backend
	FirestoreProjectID       string
	FirestoreCredentialsFile string
}

// FromAppConfig converts the application config to backend config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := Type(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:                     backendType,
		DataDirectory:            appConfig.DataDirectory,
		SQLiteDBPath:             appConfig.SQLiteDBPath,
		FirestoreProjectID:       appConfig.FirestoreProjectID,
		FirestoreCredentialsFile: appConfig.FirestoreCredentialsFile,
	}, nil
}

// Validate validates the backend configuration.
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case FirestoreBackend:
		if c.FirestoreProjectID == "" {
			return fmt.Errorf("Firestore project ID is required for firestore backend")
		}
	case MemoryBackend:
		// DataDirectory is optional; empty means no snapshots.
	}

	return nil
}
