package checker

import (
	"strings"

	"github.com/khanhnv2901/privscan/internal/domain/finding"
	"github.com/khanhnv2901/privscan/internal/domain/session"
)

// CookieAnnotator supplies background knowledge about a cookie name.
type CookieAnnotator interface {
	Lookup(name string) (finding.CookieKnowledge, bool)
}

// CookieChecker flags cookies that are not needed for the site to function.
type CookieChecker struct {
	rules     CookieRules
	names     map[string]struct{}
	annotator CookieAnnotator
}

// NewCookieChecker creates a checker. annotator may be nil.
func NewCookieChecker(rules CookieRules, annotator CookieAnnotator) *CookieChecker {
	names := make(map[string]struct{}, len(rules.EssentialNames))
	for _, n := range rules.EssentialNames {
		names[strings.ToLower(n)] = struct{}{}
	}
	terms := make([]string, 0, len(rules.EssentialTerms))
	for _, t := range rules.EssentialTerms {
		terms = append(terms, strings.ToLower(t))
	}
	rules.EssentialTerms = terms

	return &CookieChecker{rules: rules, names: names, annotator: annotator}
}

// Collect returns one record per cookie name across all entries; the first
// occurrence of a name fixes its attributes. Records without a name are
// dropped.
func (c *CookieChecker) Collect(entries []session.Entry) []session.CookieRecord {
	seen := make(map[string]struct{})
	var records []session.CookieRecord
	for _, e := range entries {
		for _, cookie := range e.Cookies() {
			if cookie.Name == "" {
				continue
			}
			if _, ok := seen[cookie.Name]; ok {
				continue
			}
			seen[cookie.Name] = struct{}{}
			records = append(records, cookie)
		}
	}
	return records
}

// IsEssential reports whether a cookie name matches the essential rules.
func (c *CookieChecker) IsEssential(name string) bool {
	lower := strings.ToLower(name)
	if _, ok := c.names[lower]; ok {
		return true
	}
	return containsAny(lower, c.rules.EssentialTerms)
}

// Check returns an issue for every non-essential cookie, in input order.
func (c *CookieChecker) Check(records []session.CookieRecord) []finding.CookieIssue {
	var issues []finding.CookieIssue
	for _, rec := range records {
		if c.IsEssential(rec.Name) {
			continue
		}
		issue := finding.NewCookieIssue(rec)
		if c.annotator != nil {
			if k, ok := c.annotator.Lookup(rec.Name); ok {
				issue.Knowledge = &k
			}
		}
		issues = append(issues, issue)
	}
	return issues
}
