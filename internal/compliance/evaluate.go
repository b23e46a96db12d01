package compliance

import (
	"fmt"
	"strings"

	"github.com/khanhnv2901/privscan/internal/domain/finding"
	"github.com/khanhnv2901/privscan/internal/domain/result"
)

// maxListed caps how many names an explanation spells out.
const maxListed = 5

// Evaluate maps a result onto per-criterion verdicts, ordered by code.
// Session criteria fail for a result that could not be analyzed.
func Evaluate(r *result.SessionResult) []result.CriterionVerdict {
	verdicts := make([]result.CriterionVerdict, 0, len(criteria))
	for _, c := range Criteria() {
		passed, why := evaluate(c, r)
		verdicts = append(verdicts, result.CriterionVerdict{
			Code:        c.Code,
			Name:        c.Name,
			Passed:      passed,
			Explanation: why,
		})
	}
	return verdicts
}

func evaluate(c Criterion, r *result.SessionResult) (bool, string) {
	if c.Category != "encryption" && !r.Analyzable() {
		return false, "session could not be analyzed: " + r.Diagnostic()
	}

	switch c.Code {
	case CodeNonEssentialCookies:
		names := r.UnnecessaryCookies()
		if len(names) == 0 {
			return true, "only essential cookies were set"
		}
		return false, fmt.Sprintf("%d non-essential cookie(s): %s", len(names), list(names))

	case CodeConsentCookies:
		issues := r.CookieIssues()
		if len(issues) == 0 {
			return true, "no cookie requiring consent was set"
		}
		return false, consentExplanation(issues)

	case CodeTrackingPixels:
		pixels := r.TrackingPixels()
		if len(pixels) == 0 {
			return true, "no tracking pixel found"
		}
		return false, fmt.Sprintf("%d tracking pixel(s): %s", len(pixels), list(pixels))

	case CodeBrowserStorage:
		local, sess := r.LocalStorageIssues(), r.SessionStorageIssues()
		if len(local) == 0 && len(sess) == 0 {
			return true, "no unauthorized storage key"
		}
		return false, fmt.Sprintf("%d unauthorized local storage key(s), %d unauthorized session storage key(s)",
			len(local), len(sess))

	case CodeTrackingMechanisms:
		if r.TrackingPassed() {
			return true, "no tracking mechanism found"
		}
		var parts []string
		if n := r.TrackingIssueCount(); n > 0 {
			parts = append(parts, fmt.Sprintf("%d tracking issue(s)", n))
		}
		if trackers := r.CrossPage().Trackers; len(trackers) > 0 {
			parts = append(parts, fmt.Sprintf("%d cross-page tracker(s)", len(trackers)))
		}
		return false, strings.Join(parts, ", ")

	case CodeHTTPSOnly:
		enc := r.Encryption()
		if enc.HTTPSAvailable && (enc.HTTPDisabled || enc.HTTPToHTTPSRedirect) {
			return true, "site is only reachable over HTTPS"
		}
		if !enc.HTTPSAvailable {
			return false, probeReason(enc, finding.ProbeHTTPS, "HTTPS is not available")
		}
		return false, "site is also served over plain HTTP without redirect"

	case CodeHTTPRedirect:
		enc := r.Encryption()
		if enc.HTTPToHTTPSRedirect {
			return true, "HTTP redirects to HTTPS"
		}
		return false, probeReason(enc, finding.ProbeHTTPRedirect, "HTTP does not redirect to HTTPS")

	case CodeLegacyProtocols:
		enc := r.Encryption()
		if enc.TLSSSLSecure {
			return true, "outdated protocols are rejected"
		}
		var supported []string
		for _, p := range enc.LegacyProtocols {
			if p.Supported {
				supported = append(supported, p.Protocol)
			}
		}
		if len(supported) > 0 {
			return false, "outdated protocol(s) accepted: " + strings.Join(supported, ", ")
		}
		return false, probeReason(enc, finding.ProbeLegacyTLS, "protocol support could not be verified")
	}
	return false, "unknown criterion"
}

func consentExplanation(issues []finding.CookieIssue) string {
	var known, unknown []string
	for _, is := range issues {
		if is.Knowledge != nil && is.Knowledge.Category != "" {
			known = append(known, fmt.Sprintf("%s (%s)", is.Name, is.Knowledge.Category))
		} else {
			unknown = append(unknown, is.Name)
		}
	}
	var parts []string
	if len(known) > 0 {
		parts = append(parts, "known: "+list(known))
	}
	if len(unknown) > 0 {
		parts = append(parts, "unclassified: "+list(unknown))
	}
	return fmt.Sprintf("%d cookie(s) require consent; %s", len(issues), strings.Join(parts, "; "))
}

// probeReason returns the recorded failure reason of the named probe, falling
// back to the first failed probe (for example an unprobed target).
func probeReason(enc finding.EncryptionResult, name, fallback string) string {
	var first string
	for _, p := range enc.Probes {
		if p.OK || p.Reason == "" {
			continue
		}
		if p.Name == name {
			return fallback + ": " + p.Reason
		}
		if first == "" {
			first = p.Reason
		}
	}
	if first != "" {
		return fallback + ": " + first
	}
	return fallback
}

func list(names []string) string {
	if len(names) <= maxListed {
		return strings.Join(names, ", ")
	}
	return fmt.Sprintf("%s and %d more", strings.Join(names[:maxListed], ", "), len(names)-maxListed)
}
