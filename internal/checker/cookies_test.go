package checker

import (
	"testing"

	"github.com/khanhnv2901/privscan/internal/domain/finding"
	"github.com/khanhnv2901/privscan/internal/domain/session"
)

type staticAnnotator map[string]finding.CookieKnowledge

func (s staticAnnotator) Lookup(name string) (finding.CookieKnowledge, bool) {
	k, ok := s[name]
	return k, ok
}

func TestCookieChecker_IsEssential(t *testing.T) {
	c := NewCookieChecker(DefaultCookieRules(), nil)

	tests := []struct {
		name      string
		essential bool
	}{
		{"PHPSESSID", true},
		{"JSESSIONID", true},
		{"ASPSESSIONID", true},
		{"my_session_id", true},
		{"XSRF-TOKEN", true},
		{"csrftoken", true},
		{"api_token", true},
		{"OAuth_state", true},
		{"CookieConsent", true},
		{"CookieBot_pref", true},
		{"_ga", false},
		{"_fbp", false},
		{"token", false},
		{"aspsessionidXYZ", true},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.IsEssential(tt.name); got != tt.essential {
				t.Errorf("IsEssential(%q) = %v, want %v", tt.name, got, tt.essential)
			}
		})
	}
}

func TestCookieChecker_CollectFirstSeenWins(t *testing.T) {
	c := NewCookieChecker(DefaultCookieRules(), nil)
	entries := []session.Entry{
		{URL: "p1", CookiesAndOrigins: session.CookieJar{Cookies: []session.CookieRecord{
			{Name: "_ga", Domain: "first.test"},
			{Name: "sid_session"},
		}}},
		{URL: "p2", CookiesAndOrigins: session.CookieJar{Cookies: []session.CookieRecord{
			{Name: "_ga", Domain: "second.test"},
			{Name: "_fbp"},
		}}},
	}

	records := c.Collect(entries)
	if len(records) != 3 {
		t.Fatalf("expected 3 unique cookies, got %d", len(records))
	}
	if records[0].Domain != "first.test" {
		t.Errorf("first occurrence should win, got domain %s", records[0].Domain)
	}

	issues := c.Check(records)
	if len(issues) != 2 {
		t.Fatalf("expected 2 issues, got %d", len(issues))
	}
	for _, issue := range issues {
		if issue.Kind != finding.KindUnnecessaryCookie {
			t.Errorf("unexpected kind %s", issue.Kind)
		}
	}
	if issues[0].Name != "_ga" || issues[0].Domain != "first.test" {
		t.Errorf("unexpected first issue %+v", issues[0])
	}
}

func TestCookieChecker_CollectSkipsNamelessCookies(t *testing.T) {
	c := NewCookieChecker(DefaultCookieRules(), nil)
	entry, err := session.NewEntry([]byte(`{"url":"https://a.test/","cookies_and_origins":{"cookies":[{"domain":"a.test","value":"x"},{"name":"PHPSESSID","domain":"a.test"}]},"local_storage":{},"session_storage":{},"resources":[]}`))
	if err != nil {
		t.Fatalf("NewEntry: %v", err)
	}

	records := c.Collect([]session.Entry{entry})
	if len(records) != 1 || records[0].Name != "PHPSESSID" {
		t.Fatalf("expected only PHPSESSID, got %+v", records)
	}
	if issues := c.Check(records); len(issues) != 0 {
		t.Errorf("expected no issues, got %+v", issues)
	}
}

func TestCookieChecker_AnnotationDoesNotReclassify(t *testing.T) {
	annotator := staticAnnotator{
		"_ga":       {Category: "Analytics", Platform: "Google Analytics"},
		"PHPSESSID": {Category: "Marketing", Platform: "Odd"},
	}
	c := NewCookieChecker(DefaultCookieRules(), annotator)

	issues := c.Check([]session.CookieRecord{{Name: "_ga"}, {Name: "PHPSESSID"}, {Name: "unknown"}})
	if len(issues) != 2 {
		t.Fatalf("expected 2 issues, got %d", len(issues))
	}
	if issues[0].Knowledge == nil || issues[0].Knowledge.Platform != "Google Analytics" {
		t.Errorf("expected knowledge on _ga, got %+v", issues[0].Knowledge)
	}
	if issues[1].Name != "unknown" || issues[1].Knowledge != nil {
		t.Errorf("unexpected second issue %+v", issues[1])
	}
}
