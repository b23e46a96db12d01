package audit

import "context"

// Repository defines the interface for audit trail persistence
type Repository interface {
	// AppendEntry appends a single entry, creating the trail on first use
	AppendEntry(ctx context.Context, scanID string, entry *Entry) error

	// FindByScanID retrieves the audit trail for a scan
	FindByScanID(ctx context.Context, scanID string) (*AuditTrail, error)

	// Seal hashes the persisted trail and writes the digest next to it
	Seal(ctx context.Context, scanID, algorithm string) (string, error)

	// VerifyIntegrity recomputes the digest and compares it with the sealed one
	VerifyIntegrity(ctx context.Context, scanID string) (bool, error)

	// List returns the IDs of every recorded scan, newest first
	List(ctx context.Context) ([]string, error)
}
