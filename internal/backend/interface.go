package backend

import (
	"context"

	"economize/internal/store"
)

// Backend bundles every persistence port one data backend provides.
type Backend interface {
	store.CardStore
	store.PurchaseStore
	store.CategoryStore
	store.ResponsibleStore
	store.CycleStore
	store.Seeder
}

// CleanupFunc releases backend resources on shutdown.
type CleanupFunc func() error

// Result contains the backend instance and optional cleanup function.
type Result struct {
	Backend Backend
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

// Type identifies a data backend.
type Type string

const (
	MemoryBackend    Type = "memory"
	SQLiteBackend    Type = "sqlite"
	FirestoreBackend Type = "firestore"
)

// String implements fmt.Stringer.
func (t Type) String() string {
	return string(t)
}

// IsValid reports whether the backend type is known.
func (t Type) IsValid() bool {
	switch t {
	case MemoryBackend, SQLiteBackend, FirestoreBackend:
		return true
	default:
		return false
	}
}
