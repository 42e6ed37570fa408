package history

import "context"

// Repository defines the interface for plan history persistence.
type Repository interface {
	// Save stores a record. Saving an existing ID is a no-op.
	Save(ctx context.Context, rec Record) error

	// Get retrieves a record by ID.
	Get(ctx context.Context, id string) (*Record, error)

	// List returns the most recent records, newest first.
	List(ctx context.Context, limit int) ([]Record, error)
}
