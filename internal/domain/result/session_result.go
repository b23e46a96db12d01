package result

import (
	"errors"
	"sort"
	"time"

	"github.com/khanhnv2901/privscan/internal/domain/finding"
	sharedErrors "github.com/khanhnv2901/privscan/internal/shared/errors"
)

// SessionResult is the aggregate root holding every finding for one session folder.
// It is built incrementally by the scan service and becomes immutable once finalized.
type SessionResult struct {
	scanID     string
	folder     string
	targetURL  string
	analyzable bool
	diagnostic string

	skippedLines int

	trackingPixels      stringSet
	suspiciousResources stringSet
	suspiciousRequests  stringSet
	unnecessaryCookies  stringSet
	thirdParty          stringSet

	trackingIssueCount int
	crossPage          finding.CrossPageAnalysis
	cookieIssues       []finding.CookieIssue

	localIssues   []finding.UnauthorizedEntry
	sessionIssues []finding.UnauthorizedEntry

	encryption finding.EncryptionResult
	criteria   []CriterionVerdict

	timestamp time.Time
	finalized bool
}

// CriterionVerdict is the pass/fail outcome of one compliance criterion.
type CriterionVerdict struct {
	Code        string
	Name        string
	Passed      bool
	Explanation string
}

// New creates an empty, analyzable result for a folder.
func New(scanID, folder string) (*SessionResult, error) {
	if scanID == "" {
		return nil, sharedErrors.ErrEmptyScanID
	}
	if folder == "" {
		return nil, sharedErrors.ErrEmptyFolder
	}

	return &SessionResult{
		scanID:              scanID,
		folder:              folder,
		analyzable:          true,
		trackingPixels:      stringSet{},
		suspiciousResources: stringSet{},
		suspiciousRequests:  stringSet{},
		unnecessaryCookies:  stringSet{},
		thirdParty:          stringSet{},
	}, nil
}

// Business methods

func (r *SessionResult) mutable() error {
	if r.finalized {
		return sharedErrors.ErrResultImmutable
	}
	return nil
}

// SetTarget records the representative page URL the session was captured from.
func (r *SessionResult) SetTarget(url string) error {
	if err := r.mutable(); err != nil {
		return err
	}
	r.targetURL = url
	return nil
}

// MarkUnanalyzable flags the folder as having no usable session data.
func (r *SessionResult) MarkUnanalyzable(reason string) error {
	if err := r.mutable(); err != nil {
		return err
	}
	r.analyzable = false
	r.diagnostic = reason
	return nil
}

// SetSkippedLines records how many log lines failed parsing or validation.
func (r *SessionResult) SetSkippedLines(n int) error {
	if err := r.mutable(); err != nil {
		return err
	}
	r.skippedLines = n
	return nil
}

// AddTrackingIssues folds tracking issues into the unique URL sets.
func (r *SessionResult) AddTrackingIssues(issues []finding.Issue) error {
	if err := r.mutable(); err != nil {
		return err
	}

	for _, issue := range issues {
		r.trackingIssueCount++
		url := issue.URL()
		if url == "" {
			continue
		}
		switch issue.Kind {
		case finding.KindTrackingPixel:
			r.trackingPixels.add(url)
		case finding.KindSuspiciousResource:
			r.suspiciousResources.add(url)
		case finding.KindSuspiciousRequest:
			r.suspiciousRequests.add(url)
		}
		if issue.ThirdParty {
			r.thirdParty.add(url)
		}
	}
	return nil
}

// SetCrossPage stores the correlator output.
func (r *SessionResult) SetCrossPage(analysis finding.CrossPageAnalysis) error {
	if err := r.mutable(); err != nil {
		return err
	}
	r.crossPage = analysis
	return nil
}

// AddCookieIssues records unnecessary cookies.
func (r *SessionResult) AddCookieIssues(issues []finding.CookieIssue) error {
	if err := r.mutable(); err != nil {
		return err
	}
	for _, issue := range issues {
		r.cookieIssues = append(r.cookieIssues, issue)
		r.unnecessaryCookies.add(issue.Name)
	}
	return nil
}

// AddStorageViolations records unauthorized local and session storage keys.
func (r *SessionResult) AddStorageViolations(local, sess []finding.UnauthorizedEntry) error {
	if err := r.mutable(); err != nil {
		return err
	}
	r.localIssues = append(r.localIssues, local...)
	r.sessionIssues = append(r.sessionIssues, sess...)
	return nil
}

// SetEncryption stores the prober output.
func (r *SessionResult) SetEncryption(enc finding.EncryptionResult) error {
	if err := r.mutable(); err != nil {
		return err
	}
	r.encryption = enc
	return nil
}

// SetCriteria stores per-criterion verdicts.
func (r *SessionResult) SetCriteria(verdicts []CriterionVerdict) error {
	if err := r.mutable(); err != nil {
		return err
	}
	r.criteria = append([]CriterionVerdict(nil), verdicts...)
	return nil
}

// Finalize stamps the processing time and freezes the result.
func (r *SessionResult) Finalize(at time.Time) error {
	if r.finalized {
		return errors.New("session result already finalized")
	}
	r.timestamp = at
	r.finalized = true
	return nil
}

// Getters

func (r *SessionResult) ScanID() string     { return r.scanID }
func (r *SessionResult) Folder() string     { return r.folder }
func (r *SessionResult) TargetURL() string  { return r.targetURL }
func (r *SessionResult) Analyzable() bool   { return r.analyzable }
func (r *SessionResult) Diagnostic() string { return r.diagnostic }
func (r *SessionResult) SkippedLines() int  { return r.skippedLines }

func (r *SessionResult) Timestamp() time.Time { return r.timestamp }
func (r *SessionResult) Finalized() bool      { return r.finalized }

func (r *SessionResult) TrackingPixels() []string      { return r.trackingPixels.sorted() }
func (r *SessionResult) SuspiciousResources() []string { return r.suspiciousResources.sorted() }
func (r *SessionResult) SuspiciousRequests() []string  { return r.suspiciousRequests.sorted() }
func (r *SessionResult) UnnecessaryCookies() []string  { return r.unnecessaryCookies.sorted() }
func (r *SessionResult) ThirdPartyResources() []string { return r.thirdParty.sorted() }

func (r *SessionResult) TrackingIssueCount() int { return r.trackingIssueCount }

func (r *SessionResult) CrossPage() finding.CrossPageAnalysis {
	out := r.crossPage
	out.Trackers = append([]finding.CrossPageTracker(nil), r.crossPage.Trackers...)
	return out
}

func (r *SessionResult) CrossPageTrackingFound() bool {
	return r.crossPage.HasCrossPageTracking
}

// CookieIssues returns issues ordered by cookie name.
func (r *SessionResult) CookieIssues() []finding.CookieIssue {
	out := append([]finding.CookieIssue(nil), r.cookieIssues...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *SessionResult) LocalStorageIssues() []finding.UnauthorizedEntry {
	return append([]finding.UnauthorizedEntry(nil), r.localIssues...)
}

func (r *SessionResult) SessionStorageIssues() []finding.UnauthorizedEntry {
	return append([]finding.UnauthorizedEntry(nil), r.sessionIssues...)
}

func (r *SessionResult) Encryption() finding.EncryptionResult { return r.encryption }

func (r *SessionResult) Criteria() []CriterionVerdict {
	return append([]CriterionVerdict(nil), r.criteria...)
}

// TrackingPassed is false when any tracking issue was found or a tracker
// followed the visitor across pages.
func (r *SessionResult) TrackingPassed() bool {
	return r.trackingIssueCount == 0 && !r.crossPage.HasCrossPageTracking
}

// LocalStoragePassed reports whether no unauthorized local storage key was seen.
func (r *SessionResult) LocalStoragePassed() bool { return len(r.localIssues) == 0 }

// SessionStoragePassed reports whether no unauthorized session storage key was seen.
func (r *SessionResult) SessionStoragePassed() bool { return len(r.sessionIssues) == 0 }

// CookiesPassed reports whether every cookie was classified essential.
func (r *SessionResult) CookiesPassed() bool { return len(r.cookieIssues) == 0 }

// OverallPassed excludes the encryption result, which is reported separately.
func (r *SessionResult) OverallPassed() bool {
	return r.TrackingPassed() && r.LocalStoragePassed() && r.SessionStoragePassed() && r.CookiesPassed()
}

type stringSet map[string]struct{}

func newStringSet(values []string) stringSet {
	s := make(stringSet, len(values))
	for _, v := range values {
		s.add(v)
	}
	return s
}

func (s stringSet) add(v string) { s[v] = struct{}{} }

func (s stringSet) sorted() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
