package checker

// CookieRules decides which cookie names count as essential.
type CookieRules struct {
	// EssentialTerms match anywhere in the lower-cased cookie name.
	EssentialTerms []string
	// EssentialNames must equal the lower-cased cookie name.
	EssentialNames []string
}

// TrackingRules drives tracking pixel and suspicious URL detection.
type TrackingRules struct {
	// PixelMaxWidth and PixelMaxHeight are inclusive bounds for a tracking pixel.
	PixelMaxWidth  float64
	PixelMaxHeight float64
	// ResourceTerms flag embedded resources of any kind.
	ResourceTerms []string
	// RequestTerms flag captured network requests.
	RequestTerms []string
	// RequestKinds limits which request resource types are inspected.
	RequestKinds []string
}

// Rules bundles every classification rule set.
type Rules struct {
	Cookies  CookieRules
	Tracking TrackingRules
}

// DefaultPixelThreshold is the inclusive width/height bound for tracking pixels.
const DefaultPixelThreshold = 3

// DefaultCookieRules returns the built-in essential cookie heuristics.
func DefaultCookieRules() CookieRules {
	return CookieRules{
		EssentialTerms: []string{"session", "csrf", "xsrf", "_token", "oauth", "cookieconsent", "cookiebot"},
		EssentialNames: []string{"jsessionid", "phpsessid", "aspsessionid"},
	}
}

// DefaultTrackingRules returns the built-in tracking heuristics.
func DefaultTrackingRules() TrackingRules {
	return TrackingRules{
		PixelMaxWidth:  DefaultPixelThreshold,
		PixelMaxHeight: DefaultPixelThreshold,
		ResourceTerms:  []string{"analytics", "track", "pixel", "beacon", "counter"},
		RequestTerms: []string{
			"track", "pixel", "analytics", "collect", "beacon", "telemetry", "metric",
			"piwik", "ga.js", "gtm.js", "fbevents", "insight", "consent",
		},
		RequestKinds: []string{"image", "fetch", "xhr", "beacon"},
	}
}

// DefaultRules returns the built-in rule sets.
func DefaultRules() Rules {
	return Rules{
		Cookies:  DefaultCookieRules(),
		Tracking: DefaultTrackingRules(),
	}
}

// WithPixelThreshold returns a copy using n for both pixel bounds.
func (t TrackingRules) WithPixelThreshold(n float64) TrackingRules {
	t.PixelMaxWidth = n
	t.PixelMaxHeight = n
	return t
}

func containsAny(s string, terms []string) bool {
	for _, term := range terms {
		if term != "" && contains(s, term) {
			return true
		}
	}
	return false
}
