package audit

import (
	"errors"
	"time"
)

// Folder outcome statuses recorded in an audit trail.
const (
	StatusPassed       = "passed"
	StatusFailed       = "failed"
	StatusUnanalyzable = "unanalyzable"
	StatusError        = "error"
)

// AuditTrail is the append-only record of one scan run, one entry per folder.
// Sealing fixes a digest of the persisted trail so it can be verified later.
type AuditTrail struct {
	scanID        string
	entries       []*Entry
	hash          string
	hashAlgorithm string
	createdAt     time.Time
	sealed        bool // Once sealed, no more entries can be added
}

// Entry represents a single audit trail entry
type Entry struct {
	Timestamp       time.Time
	ScanID          string
	Folder          string
	Target          string
	Status          string
	Issues          int
	Document        string
	Error           string
	DurationSeconds float64
}

// NewAuditTrail creates a new audit trail
func NewAuditTrail(scanID string) (*AuditTrail, error) {
	if scanID == "" {
		return nil, errors.New("scan ID cannot be empty")
	}

	return &AuditTrail{
		scanID:    scanID,
		entries:   make([]*Entry, 0),
		createdAt: time.Now(),
	}, nil
}

// Reconstruct creates an audit trail from persisted data
func Reconstruct(scanID string, entries []*Entry, hash, hashAlgorithm string, createdAt time.Time, sealed bool) *AuditTrail {
	return &AuditTrail{
		scanID:        scanID,
		entries:       entries,
		hash:          hash,
		hashAlgorithm: hashAlgorithm,
		createdAt:     createdAt,
		sealed:        sealed,
	}
}

// AppendEntry adds a new entry to the audit trail
func (at *AuditTrail) AppendEntry(entry *Entry) error {
	if at.sealed {
		return errors.New("cannot append to a sealed audit trail")
	}

	if entry == nil {
		return errors.New("entry cannot be nil")
	}

	if entry.ScanID != at.scanID {
		return errors.New("entry scan ID does not match audit trail")
	}

	at.entries = append(at.entries, entry)
	return nil
}

// Seal finalizes the audit trail with the digest of its persisted form.
func (at *AuditTrail) Seal(hash, algorithm string) error {
	if at.sealed {
		return errors.New("audit trail is already sealed")
	}

	if hash == "" {
		return errors.New("hash cannot be empty")
	}

	if !SupportedAlgorithm(algorithm) {
		return errors.New("unsupported hash algorithm")
	}

	at.hash = hash
	at.hashAlgorithm = algorithm
	at.sealed = true
	return nil
}

// VerifyIntegrity checks if the computed hash matches the expected hash
func (at *AuditTrail) VerifyIntegrity(computedHash string) bool {
	return at.sealed && at.hash == computedHash
}

// Counts returns how many entries ended in each status.
func (at *AuditTrail) Counts() map[string]int {
	counts := make(map[string]int)
	for _, e := range at.entries {
		counts[e.Status]++
	}
	return counts
}

// SupportedAlgorithm reports whether the trail can be sealed with algorithm.
func SupportedAlgorithm(algorithm string) bool {
	return algorithm == "sha256" || algorithm == "sha512"
}

// Getters

func (at *AuditTrail) ScanID() string {
	return at.scanID
}

func (at *AuditTrail) Entries() []*Entry {
	entriesCopy := make([]*Entry, len(at.entries))
	copy(entriesCopy, at.entries)
	return entriesCopy
}

func (at *AuditTrail) Hash() string {
	return at.hash
}

func (at *AuditTrail) HashAlgorithm() string {
	return at.hashAlgorithm
}

func (at *AuditTrail) CreatedAt() time.Time {
	return at.createdAt
}

func (at *AuditTrail) IsSealed() bool {
	return at.sealed
}
