package backend

import (
	"context"
	"fmt"
	"log/slog"

	fstore "economize/internal/store/firestore"
	"economize/internal/store/memory"
	"economize/internal/store/sqlite"
)

// DefaultFactory implements the Factory interface.
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory.
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend implements Factory.CreateBackend.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case MemoryBackend:
		return f.createMemoryBackend(config)
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case FirestoreBackend:
		return f.createFirestoreBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*Result, error) {
	var s *memory.Store
	if config.DataDirectory != "" {
		s = memory.NewFromDir(config.DataDirectory)
	} else {
		s = memory.New()
	}

	f.logger.Info("Initialized memory backend", "data_directory", config.DataDirectory)

	return &Result{Backend: s, Cleanup: nil}, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*Result, error) {
	repo, err := sqlite.NewRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &Result{Backend: repo, Cleanup: repo.Close}, nil
}

func (f *DefaultFactory) createFirestoreBackend(ctx context.Context, config Config) (*Result, error) {
	s, err := fstore.New(ctx, config.FirestoreProjectID, config.FirestoreCredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("initialize Firestore client: %w", err)
	}

	f.logger.Info("Initialized Firestore backend", "project_id", config.FirestoreProjectID)

	return &Result{Backend: s, Cleanup: s.Close}, nil
}
