package result

import (
	"time"

	"github.com/khanhnv2901/privscan/internal/domain/finding"
	"github.com/khanhnv2901/privscan/internal/domain/session"
)

// Snapshot is the persisted form of a SessionResult.
type Snapshot struct {
	ScanID       string
	Folder       string
	TargetURL    string
	Analyzable   bool
	Diagnostic   string
	SkippedLines int

	TrackingPixels      []string
	SuspiciousResources []string
	SuspiciousRequests  []string
	UnnecessaryCookies  []string
	ThirdParty          []string

	TrackingIssueCount int
	CrossPage          finding.CrossPageAnalysis
	CookieIssues       []finding.CookieIssue

	LocalIssues   []finding.UnauthorizedEntry
	SessionIssues []finding.UnauthorizedEntry

	Encryption finding.EncryptionResult
	Criteria   []CriterionVerdict
	Timestamp  time.Time
}

// Reconstruct rebuilds a finalized SessionResult from persisted data.
func Reconstruct(s Snapshot) *SessionResult {
	cookies := append([]finding.CookieIssue(nil), s.CookieIssues...)
	unnecessary := newStringSet(s.UnnecessaryCookies)
	for _, c := range cookies {
		unnecessary.add(c.Name)
	}
	// Documents written without cookie details still need CookiesPassed to hold.
	for name := range unnecessary {
		if !hasCookie(cookies, name) {
			cookies = append(cookies, finding.NewCookieIssue(session.CookieRecord{Name: name}))
		}
	}

	count := s.TrackingIssueCount
	if floor := len(s.TrackingPixels) + len(s.SuspiciousResources) + len(s.SuspiciousRequests); count < floor {
		count = floor
	}

	return &SessionResult{
		scanID:              s.ScanID,
		folder:              s.Folder,
		targetURL:           s.TargetURL,
		analyzable:          s.Analyzable,
		diagnostic:          s.Diagnostic,
		skippedLines:        s.SkippedLines,
		trackingPixels:      newStringSet(s.TrackingPixels),
		suspiciousResources: newStringSet(s.SuspiciousResources),
		suspiciousRequests:  newStringSet(s.SuspiciousRequests),
		unnecessaryCookies:  unnecessary,
		thirdParty:          newStringSet(s.ThirdParty),
		trackingIssueCount:  count,
		crossPage:           s.CrossPage,
		cookieIssues:        cookies,
		localIssues:         s.LocalIssues,
		sessionIssues:       s.SessionIssues,
		encryption:          s.Encryption,
		criteria:            s.Criteria,
		timestamp:           s.Timestamp,
		finalized:           true,
	}
}

func hasCookie(issues []finding.CookieIssue, name string) bool {
	for _, c := range issues {
		if c.Name == name {
			return true
		}
	}
	return false
}
