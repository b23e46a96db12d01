// Package checker holds the rule-based privacy checks run against a recorded
// browsing session.
//
// Architecture overview:
//
//   - CookieChecker, TrackingChecker and StorageAuditor classify the entries of
//     one session log. Their term lists and thresholds come from Rules so the
//     caller can swap them without touching the algorithms.
//   - Correlate turns tracking-pixel issues into cross-page trackers.
//   - EncryptionProber runs the live transport checks (HTTPS availability,
//     HTTP disabled, HTTP to HTTPS redirect, legacy TLS/SSL rejection) against
//     the site's domain. Probe failures are recorded as values, never errors.
//   - Runner coordinates folder-level work with a bounded worker pool and a
//     global rate limit, invoking an AuditFunc after each item.
//
// Helpers such as ParseTarget, IsThirdParty and DescribeTLS are exported so the
// CLI can reuse them for one-off probes.
package checker
