package result

import "context"

// Repository defines the interface for session result persistence
type Repository interface {
	// Save persists a finalized result and returns the document path
	Save(ctx context.Context, r *SessionResult) (string, error)

	// FindAll retrieves every stored result, newest first
	FindAll(ctx context.Context) ([]*SessionResult, error)

	// FindByFolder retrieves all results recorded for a session folder
	FindByFolder(ctx context.Context, folder string) ([]*SessionResult, error)
}
