package compliance

import "sort"

// Criterion codes evaluated from a session scan.
const (
	CodeNonEssentialCookies = "RDS-CUC-371"
	CodeConsentCookies      = "RDS-CUC-372"
	CodeTrackingPixels      = "RDS-CUC-373"
	CodeBrowserStorage      = "RDS-CUC-374"
	CodeTrackingMechanisms  = "RDS-CUC-377"
	CodeHTTPSOnly           = "ITS-ENC-359"
	CodeHTTPRedirect        = "ITS-ENC-360"
	CodeLegacyProtocols     = "ITS-ENC-361"
)

// Criterion is a numbered requirement a session result passes or fails.
type Criterion struct {
	Code        string
	Name        string
	Description string
	Category    string              // "cookies", "tracking", "storage" or "encryption"
	References  map[string][]string // Framework ID -> provisions
}

var criteria = map[string]Criterion{
	CodeNonEssentialCookies: {
		Code:        CodeNonEssentialCookies,
		Name:        "Non-essential cookies",
		Description: "No cookies are set that are not required to operate the website.",
		Category:    "cookies",
		References: map[string][]string{
			"gdpr":     {"Art. 5(1)(c)", "Art. 6(1)"},
			"eprivacy": {"Art. 5(3)"},
			"tdddg":    {"§ 25(2)"},
		},
	},
	CodeConsentCookies: {
		Code:        CodeConsentCookies,
		Name:        "Cookies requiring consent",
		Description: "No cookies are set for which consent would be required.",
		Category:    "cookies",
		References: map[string][]string{
			"gdpr":     {"Art. 7"},
			"eprivacy": {"Art. 5(3)"},
			"tdddg":    {"§ 25(1)"},
		},
	},
	CodeTrackingPixels: {
		Code:        CodeTrackingPixels,
		Name:        "Tracking pixels",
		Description: "No tracking pixels are embedded.",
		Category:    "tracking",
		References: map[string][]string{
			"gdpr":     {"Art. 6(1)"},
			"eprivacy": {"Art. 5(3)"},
			"tdddg":    {"§ 25(1)"},
		},
	},
	CodeBrowserStorage: {
		Code:        CodeBrowserStorage,
		Name:        "Local browser storage",
		Description: "No data requiring consent is stored in local or session storage.",
		Category:    "storage",
		References: map[string][]string{
			"eprivacy": {"Art. 5(3)"},
			"tdddg":    {"§ 25(1)", "§ 25(2)"},
		},
	},
	CodeTrackingMechanisms: {
		Code:        CodeTrackingMechanisms,
		Name:        "Tracking mechanisms",
		Description: "No tracking mechanisms are used, including trackers that follow the visitor across pages.",
		Category:    "tracking",
		References: map[string][]string{
			"gdpr":  {"Art. 5(1)(b)", "Art. 6(1)"},
			"tdddg": {"§ 25(1)"},
		},
	},
	CodeHTTPSOnly: {
		Code:        CodeHTTPSOnly,
		Name:        "Website only reachable via https://",
		Description: "Pages are only served over HTTPS.",
		Category:    "encryption",
		References: map[string][]string{
			"gdpr": {"Art. 32(1)(a)"},
			"bsi":  {"2.1"},
		},
	},
	CodeHTTPRedirect: {
		Code:        CodeHTTPRedirect,
		Name:        "HTTP to HTTPS redirect",
		Description: "Requests over http:// are redirected to https://.",
		Category:    "encryption",
		References: map[string][]string{
			"gdpr": {"Art. 32(1)(a)"},
		},
	},
	CodeLegacyProtocols: {
		Code:        CodeLegacyProtocols,
		Name:        "Rejection of outdated TLS/SSL protocols",
		Description: "Handshakes with SSL 2.0/3.0, TLS 1.0 and TLS 1.1 are refused.",
		Category:    "encryption",
		References: map[string][]string{
			"gdpr": {"Art. 32(1)(a)"},
			"bsi":  {"3.2"},
		},
	},
}

// GetCriterion returns the criterion registered under code.
func GetCriterion(code string) (Criterion, bool) {
	c, ok := criteria[code]
	return c, ok
}

// Criteria returns every evaluated criterion ordered by code.
func Criteria() []Criterion {
	out := make([]Criterion, 0, len(criteria))
	for _, c := range criteria {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// CriteriaForFramework returns the criteria that cite the given framework.
func CriteriaForFramework(frameworkID string) []Criterion {
	var out []Criterion
	for _, c := range Criteria() {
		if _, ok := c.References[frameworkID]; ok {
			out = append(out, c)
		}
	}
	return out
}
