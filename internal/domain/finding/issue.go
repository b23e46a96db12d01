package finding

import "github.com/khanhnv2901/privscan/internal/domain/session"

// IssueKind discriminates the Issue union.
type IssueKind string

const (
	KindTrackingPixel      IssueKind = "tracking_pixel"
	KindSuspiciousResource IssueKind = "suspicious_resource"
	KindSuspiciousRequest  IssueKind = "suspicious_request"
	KindUnnecessaryCookie  IssueKind = "unnecessary_cookie"
)

// Issue is a tracking finding. Resource issues (tracking_pixel,
// suspicious_resource) carry Resource and PageURL; request issues carry Request.
type Issue struct {
	Kind       IssueKind
	PageURL    string
	Resource   *session.Resource
	Request    *session.NetworkRequest
	ThirdParty bool
}

// NewResourceIssue builds an issue about an embedded element on a page.
func NewResourceIssue(kind IssueKind, pageURL string, res session.Resource, thirdParty bool) Issue {
	r := res
	return Issue{Kind: kind, PageURL: pageURL, Resource: &r, ThirdParty: thirdParty}
}

// NewRequestIssue builds an issue about a captured network request.
func NewRequestIssue(req session.NetworkRequest, thirdParty bool) Issue {
	r := req
	return Issue{Kind: KindSuspiciousRequest, Request: &r, ThirdParty: thirdParty}
}

// URL returns the flagged resource or request URL.
func (i Issue) URL() string {
	switch {
	case i.Resource != nil:
		return i.Resource.URL
	case i.Request != nil:
		return i.Request.URL
	}
	return ""
}

// IsRequest reports whether the issue came from the network requests file.
func (i Issue) IsRequest() bool {
	return i.Request != nil
}
