package checker

import (
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/khanhnv2901/privscan/internal/domain/finding"
	"github.com/khanhnv2901/privscan/internal/domain/session"
)

// TrackingChecker finds tracking pixels, suspicious resources and suspicious requests.
type TrackingChecker struct {
	rules TrackingRules
	kinds map[string]struct{}
}

// NewTrackingChecker creates a checker with lower-cased copies of the rule terms.
func NewTrackingChecker(rules TrackingRules) *TrackingChecker {
	rules.ResourceTerms = lowerAll(rules.ResourceTerms)
	rules.RequestTerms = lowerAll(rules.RequestTerms)

	kinds := make(map[string]struct{}, len(rules.RequestKinds))
	for _, k := range rules.RequestKinds {
		kinds[strings.ToLower(k)] = struct{}{}
	}
	return &TrackingChecker{rules: rules, kinds: kinds}
}

// IsTrackingPixel reports whether an img resource fits inside the pixel bounds.
// Missing dimensions count as zero.
func (t *TrackingChecker) IsTrackingPixel(res session.Resource) bool {
	if !res.IsImage() {
		return false
	}
	w, h := res.Dimensions()
	return w <= t.rules.PixelMaxWidth && h <= t.rules.PixelMaxHeight
}

// CheckResources scans every resource on every page, in page-then-resource order.
// An img can yield both a tracking_pixel and a suspicious_resource issue.
func (t *TrackingChecker) CheckResources(entries []session.Entry) []finding.Issue {
	var issues []finding.Issue
	for _, e := range entries {
		for _, res := range e.Resources {
			third := IsThirdParty(e.URL, res.URL)
			if t.IsTrackingPixel(res) {
				issues = append(issues, finding.NewResourceIssue(finding.KindTrackingPixel, e.URL, res, third))
			}
			if containsAny(strings.ToLower(res.URL), t.rules.ResourceTerms) {
				issues = append(issues, finding.NewResourceIssue(finding.KindSuspiciousResource, e.URL, res, third))
			}
		}
	}
	return issues
}

// CheckRequests flags captured requests whose kind is inspected and whose URL
// contains a request term. siteURL is used for third-party attribution.
func (t *TrackingChecker) CheckRequests(siteURL string, requests []session.NetworkRequest) []finding.Issue {
	var issues []finding.Issue
	for _, req := range requests {
		if _, ok := t.kinds[strings.ToLower(req.ResourceType)]; !ok {
			continue
		}
		if !containsAny(strings.ToLower(req.URL), t.rules.RequestTerms) {
			continue
		}
		issues = append(issues, finding.NewRequestIssue(req, IsThirdParty(siteURL, req.URL)))
	}
	return issues
}

// Check runs the resource pass followed by the request pass.
func (t *TrackingChecker) Check(entries []session.Entry, requests []session.NetworkRequest) []finding.Issue {
	issues := t.CheckResources(entries)
	if len(requests) > 0 {
		site := ""
		if len(entries) > 0 {
			site = entries[0].URL
		}
		issues = append(issues, t.CheckRequests(site, requests)...)
	}
	return issues
}

// IsThirdParty reports whether resourceURL belongs to a different registrable
// domain than pageURL. Unparseable or relative URLs are first-party.
func IsThirdParty(pageURL, resourceURL string) bool {
	page := registrableDomain(pageURL)
	res := registrableDomain(resourceURL)
	if page == "" || res == "" {
		return false
	}
	return page != res
}

func registrableDomain(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return ""
	}
	d, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return d
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.ToLower(s))
	}
	return out
}

func contains(s, sub string) bool {
	return strings.Contains(s, sub)
}
