package json

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/khanhnv2901/privscan/internal/domain/finding"
	"github.com/khanhnv2901/privscan/internal/domain/result"
	"github.com/khanhnv2901/privscan/internal/domain/session"
	"github.com/khanhnv2901/privscan/internal/shared/constants"
	sharedErrors "github.com/khanhnv2901/privscan/internal/shared/errors"
	"github.com/khanhnv2901/privscan/internal/shared/security"
)

const (
	resultFilePrefix = "result_"
	resultFileSuffix = ".json"
)

// timestampLayouts are accepted when reading documents back; the first is used for writing.
var timestampLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999"}

// sessionResultDTO is the data transfer object for JSON serialization
type sessionResultDTO struct {
	ScanID       string `json:"scan_id"`
	Folder       string `json:"folder"`
	TargetURL    string `json:"target_url,omitempty"`
	Analyzable   bool   `json:"analyzable"`
	Diagnostic   string `json:"diagnostic,omitempty"`
	SkippedLines int    `json:"skipped_lines"`

	UniqueTrackingPixels      []string `json:"unique_tracking_pixels"`
	UniqueSuspiciousResources []string `json:"unique_suspicious_resources"`
	UniqueSuspiciousRequests  []string `json:"unique_suspicious_requests"`
	UniqueUnnecessaryCookies  []string `json:"unique_unnecessary_cookies"`
	ThirdPartyResources       []string `json:"third_party_resources"`
	TrackingIssueCount        int      `json:"tracking_issue_count"`

	CrossPageTrackingFound bool                  `json:"cross_page_tracking_found"`
	CrossPageTrackers      []crossPageTrackerDTO `json:"cross_page_trackers"`
	OverallPassed          bool                  `json:"overall_passed"`

	LocalStorageIssues   [][]storageEntryDTO `json:"local_storage_issues"`
	SessionStorageIssues [][]storageEntryDTO `json:"session_storage_issues"`

	CookieIssues []cookieIssueDTO `json:"cookie_issues"`

	EncryptionResults     encryptionDTO      `json:"encryption_results"`
	ProbedDomain          string             `json:"probed_domain,omitempty"`
	EncryptionDiagnostics []probeOutcomeDTO  `json:"encryption_diagnostics"`
	LegacyProtocols       []protocolProbeDTO `json:"legacy_protocols,omitempty"`
	TLSDetails            *tlsDetailsDTO     `json:"tls_details,omitempty"`

	Criteria  []criterionDTO `json:"criteria"`
	Timestamp string         `json:"timestamp"`
}

type crossPageTrackerDTO struct {
	TrackerURL string   `json:"tracker_url"`
	PageCount  int      `json:"page_count"`
	Pages      []string `json:"pages"`
}

type storageEntryDTO struct {
	URL   string `json:"url"`
	Key   string `json:"key"`
	Value string `json:"value"`
}

type cookieIssueDTO struct {
	Type      string              `json:"type"`
	Name      string              `json:"name"`
	Domain    string              `json:"domain,omitempty"`
	Path      string              `json:"path,omitempty"`
	Details   cookieDetailsDTO    `json:"details"`
	Knowledge *cookieKnowledgeDTO `json:"knowledge,omitempty"`
}

type cookieDetailsDTO struct {
	Expires  *float64 `json:"expires,omitempty"`
	HTTPOnly bool     `json:"httpOnly"`
	Secure   bool     `json:"secure"`
	SameSite string   `json:"sameSite,omitempty"`
	Value    string   `json:"value,omitempty"`
}

type cookieKnowledgeDTO struct {
	Category        string `json:"category,omitempty"`
	Platform        string `json:"platform,omitempty"`
	DataController  string `json:"data_controller,omitempty"`
	Description     string `json:"description,omitempty"`
	RetentionPeriod string `json:"retention_period,omitempty"`
	PrivacyLink     string `json:"privacy_link,omitempty"`
}

type encryptionDTO struct {
	HTTPSAvailable      bool `json:"https_available"`
	HTTPDisabled        bool `json:"http_disabled"`
	HTTPToHTTPSRedirect bool `json:"http_to_https_redirect"`
	TLSSSLSecure        bool `json:"tls_ssl_secure"`
}

type probeOutcomeDTO struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

type protocolProbeDTO struct {
	Protocol  string `json:"protocol"`
	Supported bool   `json:"supported"`
	Reason    string `json:"reason,omitempty"`
}

type tlsDetailsDTO struct {
	Version           string `json:"version"`
	CipherSuite       string `json:"cipher_suite"`
	Issuer            string `json:"issuer,omitempty"`
	CertificateExpiry string `json:"certificate_expiry,omitempty"`
	ExpiresSoon       bool   `json:"expires_soon"`
}

type criterionDTO struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Passed      bool   `json:"passed"`
	Explanation string `json:"explanation,omitempty"`
}

// ResultRepository implements the result.Repository interface using one JSON document per folder
type ResultRepository struct {
	resultsDir string
	mu         sync.RWMutex
}

// NewResultRepository creates a new JSON-based result repository
func NewResultRepository(resultsDir string) (*ResultRepository, error) {
	if resultsDir == "" {
		return nil, fmt.Errorf("results directory cannot be empty")
	}

	if err := os.MkdirAll(resultsDir, constants.DefaultDirPerm); err != nil {
		return nil, fmt.Errorf("failed to create results directory: %w", err)
	}

	return &ResultRepository{
		resultsDir: resultsDir,
	}, nil
}

// Dir returns the directory documents are written to.
func (r *ResultRepository) Dir() string {
	return r.resultsDir
}

// Save writes result_<folder>_<timestamp>.json and returns its path. When two
// folders share a name and second, a numeric suffix keeps both documents.
func (r *ResultRepository) Save(ctx context.Context, res *result.SessionResult) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !res.Finalized() {
		return "", fmt.Errorf("%w: result for %s is not finalized", sharedErrors.ErrRepositoryOperation, res.Folder())
	}

	data, err := json.MarshalIndent(r.toDTO(res), "", "  ")
	if err != nil {
		return "", fmt.Errorf("%w: %v", sharedErrors.ErrSerializationFailed, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	base := resultFilePrefix + security.SafeFileComponent(res.Folder()) + "_" + res.Timestamp().Format(constants.ResultTimestampLayout)
	for attempt := 1; ; attempt++ {
		name := base + resultFileSuffix
		if attempt > 1 {
			name = fmt.Sprintf("%s_%d%s", base, attempt, resultFileSuffix)
		}

		filePath, err := security.ResolveWithin(r.resultsDir, name)
		if err != nil {
			return "", fmt.Errorf("%w: %v", sharedErrors.ErrUnsafePath, err)
		}

		f, err := os.OpenFile(filePath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, constants.DefaultFilePerm)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to create result document: %w", err)
		}

		_, writeErr := f.Write(data)
		closeErr := f.Close()
		if writeErr != nil {
			return "", fmt.Errorf("failed to save result: %w", writeErr)
		}
		if closeErr != nil {
			return "", fmt.Errorf("failed to save result: %w", closeErr)
		}
		return filePath, nil
	}
}

// FindAll retrieves every readable result document, newest first
func (r *ResultRepository) FindAll(ctx context.Context) ([]*result.SessionResult, error) {
	return r.find(ctx, func(*result.SessionResult) bool { return true })
}

// FindByFolder retrieves all results for a folder, newest first
func (r *ResultRepository) FindByFolder(ctx context.Context, folder string) ([]*result.SessionResult, error) {
	if folder == "" {
		return nil, sharedErrors.ErrEmptyFolder
	}
	return r.find(ctx, func(res *result.SessionResult) bool { return res.Folder() == folder })
}

// Load reads a single result document.
func (r *ResultRepository) Load(filePath string) (*result.SessionResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loadFromFile(filePath)
}

// Helper methods

func (r *ResultRepository) find(ctx context.Context, keep func(*result.SessionResult) bool) ([]*result.SessionResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries, err := os.ReadDir(r.resultsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read results directory: %w", err)
	}

	results := make([]*result.SessionResult, 0)
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, resultFilePrefix) || !strings.HasSuffix(name, resultFileSuffix) {
			continue
		}

		res, err := r.loadFromFile(filepath.Join(r.resultsDir, name))
		if err != nil {
			continue
		}
		if keep(res) {
			results = append(results, res)
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Timestamp().After(results[j].Timestamp())
	})
	return results, nil
}

func (r *ResultRepository) loadFromFile(filePath string) (*result.SessionResult, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", sharedErrors.ErrResultNotFound, filePath)
		}
		return nil, err
	}

	var dto sessionResultDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return nil, fmt.Errorf("%w: %v", sharedErrors.ErrDeserializationFailed, err)
	}

	return r.fromDTO(dto)
}

func (r *ResultRepository) toDTO(res *result.SessionResult) sessionResultDTO {
	enc := res.Encryption()
	cross := res.CrossPage()

	dto := sessionResultDTO{
		ScanID:                    res.ScanID(),
		Folder:                    res.Folder(),
		TargetURL:                 res.TargetURL(),
		Analyzable:                res.Analyzable(),
		Diagnostic:                res.Diagnostic(),
		SkippedLines:              res.SkippedLines(),
		UniqueTrackingPixels:      res.TrackingPixels(),
		UniqueSuspiciousResources: res.SuspiciousResources(),
		UniqueSuspiciousRequests:  res.SuspiciousRequests(),
		UniqueUnnecessaryCookies:  res.UnnecessaryCookies(),
		ThirdPartyResources:       res.ThirdPartyResources(),
		TrackingIssueCount:        res.TrackingIssueCount(),
		CrossPageTrackingFound:    res.CrossPageTrackingFound(),
		CrossPageTrackers:         make([]crossPageTrackerDTO, 0, len(cross.Trackers)),
		OverallPassed:             res.OverallPassed(),
		LocalStorageIssues:        storageGroupsToDTO(res.LocalStorageIssues()),
		SessionStorageIssues:      storageGroupsToDTO(res.SessionStorageIssues()),
		CookieIssues:              make([]cookieIssueDTO, 0),
		EncryptionResults: encryptionDTO{
			HTTPSAvailable:      enc.HTTPSAvailable,
			HTTPDisabled:        enc.HTTPDisabled,
			HTTPToHTTPSRedirect: enc.HTTPToHTTPSRedirect,
			TLSSSLSecure:        enc.TLSSSLSecure,
		},
		ProbedDomain:          enc.Domain,
		EncryptionDiagnostics: make([]probeOutcomeDTO, 0, len(enc.Probes)),
		Criteria:              make([]criterionDTO, 0),
		Timestamp:             res.Timestamp().Format(timestampLayouts[0]),
	}

	for _, t := range cross.Trackers {
		dto.CrossPageTrackers = append(dto.CrossPageTrackers, crossPageTrackerDTO{
			TrackerURL: t.TrackerURL,
			PageCount:  t.PageCount,
			Pages:      t.Pages,
		})
	}

	for _, c := range res.CookieIssues() {
		item := cookieIssueDTO{
			Type:   string(c.Kind),
			Name:   c.Name,
			Domain: c.Domain,
			Path:   c.Path,
			Details: cookieDetailsDTO{
				Expires:  c.Details.Expires,
				HTTPOnly: c.Details.HTTPOnly,
				Secure:   c.Details.Secure,
				SameSite: c.Details.SameSite,
				Value:    c.Details.Value,
			},
		}
		if c.Knowledge != nil {
			item.Knowledge = &cookieKnowledgeDTO{
				Category:        c.Knowledge.Category,
				Platform:        c.Knowledge.Platform,
				DataController:  c.Knowledge.DataController,
				Description:     c.Knowledge.Description,
				RetentionPeriod: c.Knowledge.RetentionPeriod,
				PrivacyLink:     c.Knowledge.PrivacyLink,
			}
		}
		dto.CookieIssues = append(dto.CookieIssues, item)
	}

	for _, p := range enc.Probes {
		dto.EncryptionDiagnostics = append(dto.EncryptionDiagnostics, probeOutcomeDTO{Name: p.Name, OK: p.OK, Reason: p.Reason})
	}
	for _, p := range enc.LegacyProtocols {
		dto.LegacyProtocols = append(dto.LegacyProtocols, protocolProbeDTO{Protocol: p.Protocol, Supported: p.Supported, Reason: p.Reason})
	}
	if enc.TLS != nil {
		dto.TLSDetails = &tlsDetailsDTO{
			Version:     enc.TLS.Version,
			CipherSuite: enc.TLS.CipherSuite,
			Issuer:      enc.TLS.Issuer,
			ExpiresSoon: enc.TLS.ExpiresSoon,
		}
		if !enc.TLS.CertificateExpiry.IsZero() {
			dto.TLSDetails.CertificateExpiry = enc.TLS.CertificateExpiry.Format(time.RFC3339)
		}
	}

	for _, c := range res.Criteria() {
		dto.Criteria = append(dto.Criteria, criterionDTO{Code: c.Code, Name: c.Name, Passed: c.Passed, Explanation: c.Explanation})
	}

	return dto
}

func (r *ResultRepository) fromDTO(dto sessionResultDTO) (*result.SessionResult, error) {
	if dto.Folder == "" {
		return nil, fmt.Errorf("%w: %v", sharedErrors.ErrDeserializationFailed, sharedErrors.ErrEmptyFolder)
	}

	timestamp, err := parseTimestamp(dto.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("failed to parse timestamp: %w", err)
	}

	snap := result.Snapshot{
		ScanID:              dto.ScanID,
		Folder:              dto.Folder,
		TargetURL:           dto.TargetURL,
		Analyzable:          dto.Analyzable,
		Diagnostic:          dto.Diagnostic,
		SkippedLines:        dto.SkippedLines,
		TrackingPixels:      dto.UniqueTrackingPixels,
		SuspiciousResources: dto.UniqueSuspiciousResources,
		SuspiciousRequests:  dto.UniqueSuspiciousRequests,
		UnnecessaryCookies:  dto.UniqueUnnecessaryCookies,
		ThirdParty:          dto.ThirdPartyResources,
		TrackingIssueCount:  dto.TrackingIssueCount,
		CrossPage:           finding.CrossPageAnalysis{HasCrossPageTracking: dto.CrossPageTrackingFound},
		LocalIssues:         storageGroupsFromDTO(dto.LocalStorageIssues),
		SessionIssues:       storageGroupsFromDTO(dto.SessionStorageIssues),
		Encryption: finding.EncryptionResult{
			Domain:              dto.ProbedDomain,
			HTTPSAvailable:      dto.EncryptionResults.HTTPSAvailable,
			HTTPDisabled:        dto.EncryptionResults.HTTPDisabled,
			HTTPToHTTPSRedirect: dto.EncryptionResults.HTTPToHTTPSRedirect,
			TLSSSLSecure:        dto.EncryptionResults.TLSSSLSecure,
		},
		Timestamp: timestamp,
	}

	for _, t := range dto.CrossPageTrackers {
		snap.CrossPage.Trackers = append(snap.CrossPage.Trackers, finding.CrossPageTracker{
			TrackerURL: t.TrackerURL,
			PageCount:  t.PageCount,
			Pages:      t.Pages,
		})
	}

	for _, c := range dto.CookieIssues {
		issue := finding.NewCookieIssue(session.CookieRecord{
			Name:     c.Name,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Details.Expires,
			HTTPOnly: c.Details.HTTPOnly,
			Secure:   c.Details.Secure,
			SameSite: c.Details.SameSite,
			Value:    c.Details.Value,
		})
		if c.Type != "" {
			issue.Kind = finding.IssueKind(c.Type)
		}
		if c.Knowledge != nil {
			issue.Knowledge = &finding.CookieKnowledge{
				Category:        c.Knowledge.Category,
				Platform:        c.Knowledge.Platform,
				DataController:  c.Knowledge.DataController,
				Description:     c.Knowledge.Description,
				RetentionPeriod: c.Knowledge.RetentionPeriod,
				PrivacyLink:     c.Knowledge.PrivacyLink,
			}
		}
		snap.CookieIssues = append(snap.CookieIssues, issue)
	}

	for _, p := range dto.EncryptionDiagnostics {
		snap.Encryption.Probes = append(snap.Encryption.Probes, finding.ProbeOutcome{Name: p.Name, OK: p.OK, Reason: p.Reason})
	}
	for _, p := range dto.LegacyProtocols {
		snap.Encryption.LegacyProtocols = append(snap.Encryption.LegacyProtocols, finding.ProtocolProbe{Protocol: p.Protocol, Supported: p.Supported, Reason: p.Reason})
	}
	if dto.TLSDetails != nil {
		details := &finding.TLSDetails{
			Version:     dto.TLSDetails.Version,
			CipherSuite: dto.TLSDetails.CipherSuite,
			Issuer:      dto.TLSDetails.Issuer,
			ExpiresSoon: dto.TLSDetails.ExpiresSoon,
		}
		if dto.TLSDetails.CertificateExpiry != "" {
			expiry, err := time.Parse(time.RFC3339, dto.TLSDetails.CertificateExpiry)
			if err != nil {
				return nil, fmt.Errorf("failed to parse certificate expiry: %w", err)
			}
			details.CertificateExpiry = expiry
		}
		snap.Encryption.TLS = details
	}

	for _, c := range dto.Criteria {
		snap.Criteria = append(snap.Criteria, result.CriterionVerdict{Code: c.Code, Name: c.Name, Passed: c.Passed, Explanation: c.Explanation})
	}

	return result.Reconstruct(snap), nil
}

// storageGroupsToDTO emits one group per folder: [[...]] with violations, [] without.
func storageGroupsToDTO(entries []finding.UnauthorizedEntry) [][]storageEntryDTO {
	if len(entries) == 0 {
		return [][]storageEntryDTO{}
	}
	group := make([]storageEntryDTO, 0, len(entries))
	for _, e := range entries {
		group = append(group, storageEntryDTO{URL: e.PageURL, Key: e.Key, Value: e.Value})
	}
	return [][]storageEntryDTO{group}
}

func storageGroupsFromDTO(groups [][]storageEntryDTO) []finding.UnauthorizedEntry {
	var entries []finding.UnauthorizedEntry
	for _, group := range groups {
		for _, e := range group {
			entries = append(entries, finding.UnauthorizedEntry{PageURL: e.URL, Key: e.Key, Value: e.Value})
		}
	}
	return entries
}

func parseTimestamp(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
