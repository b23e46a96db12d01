package checker

import (
	"testing"

	"github.com/khanhnv2901/privscan/internal/domain/finding"
	"github.com/khanhnv2901/privscan/internal/domain/session"
)

func dim(v float64) *float64 { return &v }

func img(url string, w, h float64) session.Resource {
	return session.Resource{Type: "img", URL: url, Width: dim(w), Height: dim(h)}
}

func TestTrackingChecker_PixelBoundary(t *testing.T) {
	c := NewTrackingChecker(DefaultTrackingRules())

	tests := []struct {
		name  string
		res   session.Resource
		pixel bool
	}{
		{"1x1", img("https://a.test/1.gif", 1, 1), true},
		{"3x3 inclusive", img("https://a.test/3.gif", 3, 3), true},
		{"4x4", img("https://a.test/4.gif", 4, 4), false},
		{"3x4", img("https://a.test/34.gif", 3, 4), false},
		{"4x1", img("https://a.test/41.gif", 4, 1), false},
		{"missing dimensions", session.Resource{Type: "img", URL: "https://a.test/x.gif"}, true},
		{"tiny iframe", session.Resource{Type: "iframe", URL: "https://a.test/f", Width: dim(1), Height: dim(1)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.IsTrackingPixel(tt.res); got != tt.pixel {
				t.Errorf("IsTrackingPixel = %v, want %v", got, tt.pixel)
			}
		})
	}
}

func TestTrackingChecker_ConfigurableThreshold(t *testing.T) {
	c := NewTrackingChecker(DefaultTrackingRules().WithPixelThreshold(2))
	if c.IsTrackingPixel(img("https://a.test/3.gif", 3, 3)) {
		t.Error("3x3 must not be a pixel with threshold 2")
	}
	if !c.IsTrackingPixel(img("https://a.test/2.gif", 2, 2)) {
		t.Error("2x2 must be a pixel with threshold 2")
	}
}

func TestTrackingChecker_CheckResources(t *testing.T) {
	c := NewTrackingChecker(DefaultTrackingRules())
	entries := []session.Entry{
		{URL: "https://shop.example.com/", Resources: []session.Resource{
			img("https://ads.other.net/pixel.gif", 1, 1),
			{Type: "script", URL: "https://cdn.example.com/Analytics.js"},
			img("https://cdn.example.com/logo.png", 200, 80),
		}},
		{URL: "https://shop.example.com/cart", Resources: []session.Resource{
			{Type: "iframe", URL: "https://www.example.com/visitor-counter"},
		}},
	}

	issues := c.CheckResources(entries)
	want := []struct {
		kind  finding.IssueKind
		url   string
		page  string
		third bool
	}{
		{finding.KindTrackingPixel, "https://ads.other.net/pixel.gif", "https://shop.example.com/", true},
		{finding.KindSuspiciousResource, "https://ads.other.net/pixel.gif", "https://shop.example.com/", true},
		{finding.KindSuspiciousResource, "https://cdn.example.com/Analytics.js", "https://shop.example.com/", false},
		{finding.KindSuspiciousResource, "https://www.example.com/visitor-counter", "https://shop.example.com/cart", false},
	}

	if len(issues) != len(want) {
		t.Fatalf("expected %d issues, got %d: %+v", len(want), len(issues), issues)
	}
	for i, w := range want {
		got := issues[i]
		if got.Kind != w.kind || got.URL() != w.url || got.PageURL != w.page || got.ThirdParty != w.third {
			t.Errorf("issue %d = {%s %s %s %v}, want %+v", i, got.Kind, got.URL(), got.PageURL, got.ThirdParty, w)
		}
	}
}

func TestTrackingChecker_CheckRequests(t *testing.T) {
	c := NewTrackingChecker(DefaultTrackingRules())
	requests := []session.NetworkRequest{
		{URL: "https://www.google-analytics.com/g/collect?v=2", ResourceType: "xhr"},
		{URL: "https://connect.facebook.net/en_US/fbevents.js", ResourceType: "script"},
		{URL: "https://example.com/api/METRICS", ResourceType: "fetch"},
		{URL: "https://example.com/img/hero.jpg", ResourceType: "image"},
		{URL: "https://t.example/b", ResourceType: "beacon"},
		{URL: "https://px.example/pixel", ResourceType: "image"},
	}

	issues := c.Check([]session.Entry{{URL: "https://example.com/"}}, requests)
	if len(issues) != 3 {
		t.Fatalf("expected 3 request issues, got %d: %+v", len(issues), issues)
	}
	wantURLs := []string{
		"https://www.google-analytics.com/g/collect?v=2",
		"https://example.com/api/METRICS",
		"https://px.example/pixel",
	}
	for i, u := range wantURLs {
		if issues[i].Kind != finding.KindSuspiciousRequest || issues[i].URL() != u {
			t.Errorf("issue %d = %s %s, want %s", i, issues[i].Kind, issues[i].URL(), u)
		}
	}
	if !issues[0].ThirdParty || issues[1].ThirdParty {
		t.Error("third-party attribution mismatch")
	}
}

func TestIsThirdParty(t *testing.T) {
	tests := []struct {
		page, res string
		want      bool
	}{
		{"https://www.example.co.uk/", "https://cdn.example.co.uk/x.js", false},
		{"https://www.example.co.uk/", "https://tracker.net/x.js", true},
		{"https://example.com/", "/relative.png", false},
		{"https://example.com/", "data:image/gif;base64,R0lGOD", false},
	}
	for _, tt := range tests {
		if got := IsThirdParty(tt.page, tt.res); got != tt.want {
			t.Errorf("IsThirdParty(%q, %q) = %v, want %v", tt.page, tt.res, got, tt.want)
		}
	}
}
