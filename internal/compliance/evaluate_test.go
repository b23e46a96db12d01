package compliance

import (
	"strings"
	"testing"

	"github.com/khanhnv2901/privscan/internal/domain/finding"
	"github.com/khanhnv2901/privscan/internal/domain/result"
	"github.com/khanhnv2901/privscan/internal/domain/session"
)

func newResult(t *testing.T) *result.SessionResult {
	t.Helper()
	r, err := result.New("scan-1", "folder")
	if err != nil {
		t.Fatalf("result.New: %v", err)
	}
	return r
}

func verdictMap(verdicts []result.CriterionVerdict) map[string]result.CriterionVerdict {
	m := make(map[string]result.CriterionVerdict, len(verdicts))
	for _, v := range verdicts {
		m[v.Code] = v
	}
	return m
}

func secureEncryption() finding.EncryptionResult {
	return finding.EncryptionResult{
		Domain:              "example.com",
		HTTPSAvailable:      true,
		HTTPDisabled:        false,
		HTTPToHTTPSRedirect: true,
		TLSSSLSecure:        true,
	}
}

func TestEvaluate_CleanResultPassesEverything(t *testing.T) {
	r := newResult(t)
	if err := r.SetEncryption(secureEncryption()); err != nil {
		t.Fatal(err)
	}

	verdicts := Evaluate(r)
	if len(verdicts) != len(Criteria()) {
		t.Fatalf("expected %d verdicts, got %d", len(Criteria()), len(verdicts))
	}
	for i := 1; i < len(verdicts); i++ {
		if verdicts[i-1].Code >= verdicts[i].Code {
			t.Errorf("verdicts not ordered by code: %s before %s", verdicts[i-1].Code, verdicts[i].Code)
		}
	}
	for _, v := range verdicts {
		if !v.Passed {
			t.Errorf("%s should pass, got %q", v.Code, v.Explanation)
		}
	}
}

func TestEvaluate_Findings(t *testing.T) {
	r := newResult(t)
	w, h := 1.0, 1.0
	pixel := session.Resource{Type: "img", URL: "https://t.example/p.gif", Width: &w, Height: &h}
	issues := []finding.Issue{
		finding.NewResourceIssue(finding.KindTrackingPixel, "https://site/a", pixel, true),
		finding.NewResourceIssue(finding.KindTrackingPixel, "https://site/b", pixel, true),
	}
	if err := r.AddTrackingIssues(issues); err != nil {
		t.Fatal(err)
	}
	if err := r.SetCrossPage(finding.CrossPageAnalysis{
		Trackers:             []finding.CrossPageTracker{{TrackerURL: pixel.URL, PageCount: 2, Pages: []string{"https://site/a", "https://site/b"}}},
		HasCrossPageTracking: true,
	}); err != nil {
		t.Fatal(err)
	}

	ga := finding.NewCookieIssue(session.CookieRecord{Name: "_ga"})
	ga.Knowledge = &finding.CookieKnowledge{Category: "Analytics", Platform: "Google Analytics"}
	other := finding.NewCookieIssue(session.CookieRecord{Name: "prefs"})
	if err := r.AddCookieIssues([]finding.CookieIssue{ga, other}); err != nil {
		t.Fatal(err)
	}
	if err := r.AddStorageViolations([]finding.UnauthorizedEntry{{PageURL: "https://site/a", Key: "uid", Value: "1"}}, nil); err != nil {
		t.Fatal(err)
	}
	if err := r.SetEncryption(secureEncryption()); err != nil {
		t.Fatal(err)
	}

	got := verdictMap(Evaluate(r))

	tests := []struct {
		code     string
		passed   bool
		contains string
	}{
		{CodeNonEssentialCookies, false, "_ga, prefs"},
		{CodeConsentCookies, false, "_ga (Analytics)"},
		{CodeTrackingPixels, false, "1 tracking pixel(s)"},
		{CodeBrowserStorage, false, "1 unauthorized local storage key(s)"},
		{CodeTrackingMechanisms, false, "1 cross-page tracker(s)"},
		{CodeHTTPSOnly, true, ""},
		{CodeHTTPRedirect, true, ""},
		{CodeLegacyProtocols, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			v, ok := got[tt.code]
			if !ok {
				t.Fatalf("missing verdict for %s", tt.code)
			}
			if v.Passed != tt.passed {
				t.Errorf("Passed = %v, want %v (%s)", v.Passed, tt.passed, v.Explanation)
			}
			if tt.contains != "" && !strings.Contains(v.Explanation, tt.contains) {
				t.Errorf("explanation %q should contain %q", v.Explanation, tt.contains)
			}
		})
	}
}

func TestEvaluate_Encryption(t *testing.T) {
	tests := []struct {
		name     string
		enc      finding.EncryptionResult
		want     map[string]bool
		contains map[string]string
	}{
		{
			name: "http disabled without redirect still passes https only",
			enc:  finding.EncryptionResult{HTTPSAvailable: true, HTTPDisabled: true, TLSSSLSecure: true},
			want: map[string]bool{CodeHTTPSOnly: true, CodeHTTPRedirect: false, CodeLegacyProtocols: true},
		},
		{
			name: "plain http served",
			enc:  finding.EncryptionResult{HTTPSAvailable: true, TLSSSLSecure: true},
			want: map[string]bool{CodeHTTPSOnly: false, CodeHTTPRedirect: false, CodeLegacyProtocols: true},
		},
		{
			name: "legacy protocol accepted",
			enc: finding.EncryptionResult{
				HTTPSAvailable:      true,
				HTTPToHTTPSRedirect: true,
				LegacyProtocols: []finding.ProtocolProbe{
					{Protocol: "TLS 1.0", Supported: true},
					{Protocol: "TLS 1.1"},
				},
			},
			want:     map[string]bool{CodeHTTPSOnly: true, CodeHTTPRedirect: true, CodeLegacyProtocols: false},
			contains: map[string]string{CodeLegacyProtocols: "TLS 1.0"},
		},
		{
			name:     "unprobed",
			enc:      finding.Unprobed("probing disabled"),
			want:     map[string]bool{CodeHTTPSOnly: false, CodeHTTPRedirect: false, CodeLegacyProtocols: false},
			contains: map[string]string{CodeHTTPSOnly: "probing disabled", CodeLegacyProtocols: "probing disabled"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newResult(t)
			if err := r.SetEncryption(tt.enc); err != nil {
				t.Fatal(err)
			}
			got := verdictMap(Evaluate(r))
			for code, want := range tt.want {
				if got[code].Passed != want {
					t.Errorf("%s Passed = %v, want %v (%s)", code, got[code].Passed, want, got[code].Explanation)
				}
			}
			for code, sub := range tt.contains {
				if !strings.Contains(got[code].Explanation, sub) {
					t.Errorf("%s explanation %q should contain %q", code, got[code].Explanation, sub)
				}
			}
		})
	}
}

func TestEvaluate_UnanalyzableFailsSessionCriteria(t *testing.T) {
	r := newResult(t)
	if err := r.MarkUnanalyzable("no valid entries"); err != nil {
		t.Fatal(err)
	}
	if err := r.SetEncryption(secureEncryption()); err != nil {
		t.Fatal(err)
	}

	for _, v := range Evaluate(r) {
		c, _ := GetCriterion(v.Code)
		if c.Category == "encryption" {
			if !v.Passed {
				t.Errorf("%s should be evaluated from the probe result", v.Code)
			}
			continue
		}
		if v.Passed || !strings.Contains(v.Explanation, "no valid entries") {
			t.Errorf("%s should fail with the diagnostic, got %+v", v.Code, v)
		}
	}
}

func TestList_Truncates(t *testing.T) {
	got := list([]string{"a", "b", "c", "d", "e", "f", "g"})
	if got != "a, b, c, d, e and 2 more" {
		t.Errorf("list() = %q", got)
	}
}

func TestCriteriaForFramework(t *testing.T) {
	bsi := CriteriaForFramework("bsi")
	if len(bsi) != 2 || bsi[0].Code != CodeHTTPSOnly || bsi[1].Code != CodeLegacyProtocols {
		t.Errorf("unexpected bsi criteria: %+v", bsi)
	}
	for _, c := range Criteria() {
		for id := range c.References {
			if _, ok := GetFramework(id); !ok {
				t.Errorf("%s cites unknown framework %q", c.Code, id)
			}
		}
	}
}
