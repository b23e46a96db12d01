package json

import (
	"context"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/csv"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/khanhnv2901/privscan/internal/domain/audit"
	"github.com/khanhnv2901/privscan/internal/shared/constants"
	sharedErrors "github.com/khanhnv2901/privscan/internal/shared/errors"
	"github.com/khanhnv2901/privscan/internal/shared/security"
)

const (
	auditDirName    = "audit"
	auditFilePrefix = "scan_"
	auditFileSuffix = ".csv"
)

var auditHeader = []string{
	"timestamp",
	"scan_id",
	"folder",
	"target",
	"status",
	"issues",
	"document",
	"error",
	"duration_seconds",
}

// AuditRepository implements the audit.Repository interface using CSV file storage.
// Trails live in <results>/audit/scan_<id>.csv with an optional .sha256/.sha512 digest.
type AuditRepository struct {
	dir string
	mu  sync.RWMutex
}

// NewAuditRepository creates a new CSV-based audit repository
func NewAuditRepository(resultsDir string) (*AuditRepository, error) {
	if resultsDir == "" {
		return nil, fmt.Errorf("results directory cannot be empty")
	}

	dir := filepath.Join(resultsDir, auditDirName)
	if err := os.MkdirAll(dir, constants.DefaultDirPerm); err != nil {
		return nil, fmt.Errorf("failed to create audit directory: %w", err)
	}

	return &AuditRepository{dir: dir}, nil
}

// Dir returns the directory audit trails are written to.
func (r *AuditRepository) Dir() string {
	return r.dir
}

// Path returns the CSV path for a scan.
func (r *AuditRepository) Path(scanID string) (string, error) {
	if scanID == "" {
		return "", sharedErrors.ErrEmptyScanID
	}
	return security.ResolveWithin(r.dir, auditFilePrefix+security.SafeFileComponent(scanID)+auditFileSuffix)
}

// AppendEntry appends a single entry, writing the header when the file is new.
func (r *AuditRepository) AppendEntry(ctx context.Context, scanID string, entry *audit.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if entry == nil {
		return fmt.Errorf("%w: nil audit entry", sharedErrors.ErrInvalidInput)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	filePath, err := r.Path(scanID)
	if err != nil {
		return err
	}
	if r.sealedLocked(filePath) {
		return fmt.Errorf("cannot append to sealed audit trail %s", scanID)
	}

	fileExists := true
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		fileExists = false
	}

	file, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, constants.DefaultFilePerm)
	if err != nil {
		return fmt.Errorf("failed to open audit file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if !fileExists {
		if err := writer.Write(auditHeader); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	record := []string{
		entry.Timestamp.UTC().Format(time.RFC3339),
		scanID,
		entry.Folder,
		entry.Target,
		entry.Status,
		strconv.Itoa(entry.Issues),
		entry.Document,
		entry.Error,
		fmt.Sprintf("%.3f", entry.DurationSeconds),
	}
	if err := writer.Write(record); err != nil {
		return fmt.Errorf("failed to write entry: %w", err)
	}

	writer.Flush()
	return writer.Error()
}

// FindByScanID retrieves the audit trail for a scan
func (r *AuditRepository) FindByScanID(ctx context.Context, scanID string) (*audit.AuditTrail, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	filePath, err := r.Path(scanID)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil, sharedErrors.ErrAuditTrailNotFound
	}

	return r.loadFromFile(filePath, scanID)
}

// Seal computes the digest of the trail and writes it as "<hash>  <file>" next to the CSV.
func (r *AuditRepository) Seal(ctx context.Context, scanID, algorithm string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !audit.SupportedAlgorithm(algorithm) {
		return "", sharedErrors.ErrInvalidHashAlgorithm
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	filePath, err := r.Path(scanID)
	if err != nil {
		return "", err
	}
	if r.sealedLocked(filePath) {
		return "", fmt.Errorf("audit trail %s is already sealed", scanID)
	}

	sum, err := computeHash(filePath, algorithm)
	if err != nil {
		return "", err
	}

	hashContent := fmt.Sprintf("%s  %s\n", sum, filepath.Base(filePath))
	if err := os.WriteFile(filePath+"."+algorithm, []byte(hashContent), constants.DefaultFilePerm); err != nil {
		return "", fmt.Errorf("failed to write hash file: %w", err)
	}
	return sum, nil
}

// VerifyIntegrity verifies the integrity of an audit trail
func (r *AuditRepository) VerifyIntegrity(ctx context.Context, scanID string) (bool, error) {
	trail, err := r.FindByScanID(ctx, scanID)
	if err != nil {
		return false, err
	}
	if !trail.IsSealed() {
		return false, sharedErrors.ErrAuditTrailNotSealed
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	filePath, err := r.Path(scanID)
	if err != nil {
		return false, err
	}
	actual, err := computeHash(filePath, trail.HashAlgorithm())
	if err != nil {
		return false, err
	}
	return trail.VerifyIntegrity(actual), nil
}

// List returns the IDs of every recorded scan, newest file first.
func (r *AuditRepository) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: read audit directory: %v", sharedErrors.ErrRepositoryOperation, err)
	}

	type scanFile struct {
		id  string
		mod time.Time
	}
	var files []scanFile
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, auditFilePrefix) || !strings.HasSuffix(name, auditFileSuffix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		id := strings.TrimSuffix(strings.TrimPrefix(name, auditFilePrefix), auditFileSuffix)
		files = append(files, scanFile{id: id, mod: info.ModTime()})
	}

	sort.SliceStable(files, func(i, j int) bool {
		if files[i].mod.Equal(files[j].mod) {
			return files[i].id < files[j].id
		}
		return files[i].mod.After(files[j].mod)
	})

	ids := make([]string, len(files))
	for i, f := range files {
		ids[i] = f.id
	}
	return ids, nil
}

// Helper methods

func (r *AuditRepository) sealedLocked(filePath string) bool {
	for _, alg := range []string{"sha256", "sha512"} {
		if _, err := os.Stat(filePath + "." + alg); err == nil {
			return true
		}
	}
	return false
}

func computeHash(filePath, algorithm string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", sharedErrors.ErrAuditTrailNotFound
		}
		return "", fmt.Errorf("failed to open audit file: %w", err)
	}
	defer file.Close()

	var h hash.Hash
	switch algorithm {
	case "sha256":
		h = sha256.New()
	case "sha512":
		h = sha512.New()
	default:
		return "", sharedErrors.ErrInvalidHashAlgorithm
	}

	if _, err := io.Copy(h, file); err != nil {
		return "", fmt.Errorf("failed to compute hash: %w", err)
	}

	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

func (r *AuditRepository) loadFromFile(filePath, scanID string) (*audit.AuditTrail, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = len(auditHeader)

	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("%w: read audit header: %v", sharedErrors.ErrDeserializationFailed, err)
	}

	entries := make([]*audit.Entry, 0)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read audit record: %v", sharedErrors.ErrDeserializationFailed, err)
		}

		timestamp, err := time.Parse(time.RFC3339, record[0])
		if err != nil {
			return nil, fmt.Errorf("%w: parse timestamp: %v", sharedErrors.ErrDeserializationFailed, err)
		}
		issues, _ := strconv.Atoi(record[5])
		duration, _ := strconv.ParseFloat(record[8], 64)

		entries = append(entries, &audit.Entry{
			Timestamp:       timestamp,
			ScanID:          record[1],
			Folder:          record[2],
			Target:          record[3],
			Status:          record[4],
			Issues:          issues,
			Document:        record[6],
			Error:           record[7],
			DurationSeconds: duration,
		})
	}

	var sum, algorithm string
	for _, alg := range []string{"sha256", "sha512"} {
		content, err := os.ReadFile(filePath + "." + alg)
		if err != nil {
			continue
		}
		fields := strings.Fields(string(content))
		if len(fields) > 0 {
			sum, algorithm = fields[0], alg
			break
		}
	}

	createdAt := time.Now()
	if len(entries) > 0 {
		createdAt = entries[0].Timestamp
	}

	return audit.Reconstruct(scanID, entries, sum, algorithm, createdAt, sum != ""), nil
}
