package result

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/khanhnv2901/privscan/internal/domain/finding"
	"github.com/khanhnv2901/privscan/internal/domain/session"
	sharedErrors "github.com/khanhnv2901/privscan/internal/shared/errors"
)

func pixel(page, url string) finding.Issue {
	return finding.NewResourceIssue(finding.KindTrackingPixel, page, session.Resource{Type: "img", URL: url}, false)
}

func TestNew_Validation(t *testing.T) {
	if _, err := New("", "folder"); !errors.Is(err, sharedErrors.ErrEmptyScanID) {
		t.Errorf("expected ErrEmptyScanID, got %v", err)
	}
	if _, err := New("scan", ""); !errors.Is(err, sharedErrors.ErrEmptyFolder) {
		t.Errorf("expected ErrEmptyFolder, got %v", err)
	}
}

func TestOverallPassed_VacuouslyTrue(t *testing.T) {
	r, err := New("scan-1", "site")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !r.OverallPassed() {
		t.Error("empty session should pass")
	}
	// Encryption does not factor into the overall verdict.
	_ = r.SetEncryption(finding.EncryptionResult{})
	if !r.OverallPassed() {
		t.Error("encryption failures must not affect overall_passed")
	}
}

func TestOverallPassed_EachFindingFails(t *testing.T) {
	tests := []struct {
		name  string
		apply func(r *SessionResult)
	}{
		{"tracking", func(r *SessionResult) { _ = r.AddTrackingIssues([]finding.Issue{pixel("p", "u")}) }},
		{"request", func(r *SessionResult) {
			_ = r.AddTrackingIssues([]finding.Issue{finding.NewRequestIssue(session.NetworkRequest{URL: "https://t/collect"}, false)})
		}},
		{"cross page", func(r *SessionResult) {
			_ = r.SetCrossPage(finding.CrossPageAnalysis{HasCrossPageTracking: true})
		}},
		{"cookie", func(r *SessionResult) {
			_ = r.AddCookieIssues([]finding.CookieIssue{finding.NewCookieIssue(session.CookieRecord{Name: "_ga"})})
		}},
		{"local storage", func(r *SessionResult) {
			_ = r.AddStorageViolations([]finding.UnauthorizedEntry{{PageURL: "p", Key: "k"}}, nil)
		}},
		{"session storage", func(r *SessionResult) {
			_ = r.AddStorageViolations(nil, []finding.UnauthorizedEntry{{PageURL: "p", Key: "k"}})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := New("scan", "folder")
			tt.apply(r)
			if r.OverallPassed() {
				t.Error("expected overall_passed=false")
			}
		})
	}
}

func TestUniqueSetsAreSortedAndDeduplicated(t *testing.T) {
	r, _ := New("scan", "folder")
	_ = r.AddTrackingIssues([]finding.Issue{
		pixel("p2", "https://z.test/px.gif"),
		pixel("p1", "https://a.test/px.gif"),
		pixel("p1", "https://z.test/px.gif"),
		finding.NewResourceIssue(finding.KindSuspiciousResource, "p1", session.Resource{Type: "script", URL: "https://a.test/analytics.js"}, true),
	})

	want := []string{"https://a.test/px.gif", "https://z.test/px.gif"}
	if got := r.TrackingPixels(); !reflect.DeepEqual(got, want) {
		t.Errorf("tracking pixels = %v, want %v", got, want)
	}
	if got := r.SuspiciousResources(); !reflect.DeepEqual(got, []string{"https://a.test/analytics.js"}) {
		t.Errorf("suspicious resources = %v", got)
	}
	if got := r.ThirdPartyResources(); !reflect.DeepEqual(got, []string{"https://a.test/analytics.js"}) {
		t.Errorf("third party = %v", got)
	}
	if r.TrackingIssueCount() != 4 {
		t.Errorf("expected 4 issues counted, got %d", r.TrackingIssueCount())
	}
}

func TestFinalizeFreezesResult(t *testing.T) {
	r, _ := New("scan", "folder")
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := r.Finalize(now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !r.Timestamp().Equal(now) {
		t.Errorf("expected timestamp %v, got %v", now, r.Timestamp())
	}
	if err := r.AddTrackingIssues([]finding.Issue{pixel("p", "u")}); !errors.Is(err, sharedErrors.ErrResultImmutable) {
		t.Errorf("expected ErrResultImmutable, got %v", err)
	}
	if err := r.Finalize(now); err == nil {
		t.Error("expected error finalizing twice")
	}
}

func TestReconstructKeepsVerdicts(t *testing.T) {
	r := Reconstruct(Snapshot{
		ScanID:             "scan",
		Folder:             "folder",
		Analyzable:         true,
		UnnecessaryCookies: []string{"_ga"},
		TrackingPixels:     []string{"https://ads.test/px.gif"},
	})
	if r.CookiesPassed() || r.TrackingPassed() || r.OverallPassed() {
		t.Error("reconstructed result lost failing verdicts")
	}
	if !r.Finalized() {
		t.Error("reconstructed result should be finalized")
	}
	if got := r.UnnecessaryCookies(); !reflect.DeepEqual(got, []string{"_ga"}) {
		t.Errorf("cookies = %v", got)
	}
}
