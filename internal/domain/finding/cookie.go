package finding

import "github.com/khanhnv2901/privscan/internal/domain/session"

// CookieIssue is a cookie classified as non-essential.
type CookieIssue struct {
	Kind      IssueKind
	Name      string
	Domain    string
	Path      string
	Details   session.CookieRecord
	Knowledge *CookieKnowledge
}

// NewCookieIssue flags a cookie record as unnecessary.
func NewCookieIssue(c session.CookieRecord) CookieIssue {
	return CookieIssue{
		Kind:    KindUnnecessaryCookie,
		Name:    c.Name,
		Domain:  c.Domain,
		Path:    c.Path,
		Details: c,
	}
}

// CookieKnowledge is what the cookie knowledge base knows about a cookie name.
type CookieKnowledge struct {
	Category        string
	Platform        string
	DataController  string
	Description     string
	RetentionPeriod string
	PrivacyLink     string
}
