package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/khanhnv2901/privscan/internal/domain/audit"
)

// DefaultHashAlgorithm seals trails written by a scan.
const DefaultHashAlgorithm = "sha256"

// Service provides application-level audit operations
type Service struct {
	repo audit.Repository
	now  func() time.Time
}

// NewService creates a new audit service
func NewService(repo audit.Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

// FolderRecord is what a scan knows about one finished folder.
type FolderRecord struct {
	Folder   string
	Target   string
	Status   string
	Issues   int
	Document string
	Err      error
	Duration float64
}

// RecordFolder appends the outcome of one folder to the scan's trail.
func (s *Service) RecordFolder(ctx context.Context, scanID string, rec FolderRecord) error {
	entry := &audit.Entry{
		Timestamp:       s.now(),
		ScanID:          scanID,
		Folder:          rec.Folder,
		Target:          rec.Target,
		Status:          rec.Status,
		Issues:          rec.Issues,
		Document:        rec.Document,
		DurationSeconds: rec.Duration,
	}
	if rec.Err != nil {
		entry.Status = audit.StatusError
		entry.Error = rec.Err.Error()
	}

	if err := s.repo.AppendEntry(ctx, scanID, entry); err != nil {
		return fmt.Errorf("failed to record audit entry: %w", err)
	}
	return nil
}

// GetAuditTrail retrieves the audit trail for a scan
func (s *Service) GetAuditTrail(ctx context.Context, scanID string) (*audit.AuditTrail, error) {
	auditTrail, err := s.repo.FindByScanID(ctx, scanID)
	if err != nil {
		return nil, fmt.Errorf("failed to get audit trail: %w", err)
	}
	return auditTrail, nil
}

// SealAuditTrail seals an audit trail with a cryptographic hash
func (s *Service) SealAuditTrail(ctx context.Context, scanID, hashAlgorithm string) (string, error) {
	hash, err := s.repo.Seal(ctx, scanID, hashAlgorithm)
	if err != nil {
		return "", fmt.Errorf("failed to seal audit trail: %w", err)
	}
	return hash, nil
}

// VerifyIntegrity verifies the integrity of an audit trail
func (s *Service) VerifyIntegrity(ctx context.Context, scanID string) (bool, error) {
	valid, err := s.repo.VerifyIntegrity(ctx, scanID)
	if err != nil {
		return false, fmt.Errorf("failed to verify integrity: %w", err)
	}
	return valid, nil
}

// ListScans returns recorded scan IDs, newest first.
func (s *Service) ListScans(ctx context.Context) ([]string, error) {
	return s.repo.List(ctx)
}
