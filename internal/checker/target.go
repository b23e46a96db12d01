package checker

import (
	"net/url"
	"strings"
)

// TargetInfo contains parsed target information
type TargetInfo struct {
	Original string // Original target string
	Scheme   string // http or https
	Host     string // Hostname (without protocol, path, port)
	Port     string // Port if specified
	Netloc   string // Host plus optional port, as written
	Path     string // Path if specified
	FullURL  string // Full normalized URL
}

// ParseTarget parses a site URL or bare domain. Inputs without an http(s)
// scheme are treated as https://.
//   - example.com
//   - http://example.com
//   - https://example.com:8443/path
//   - example.com:8080
func ParseTarget(target string) *TargetInfo {
	target = strings.TrimSpace(target)
	info := &TargetInfo{
		Original: target,
	}

	raw := target
	lower := strings.ToLower(raw)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		raw = "https://" + raw
	}

	parsed, err := url.Parse(raw)
	if err == nil {
		info.Scheme = strings.ToLower(parsed.Scheme)
		info.Host = parsed.Hostname()
		info.Port = parsed.Port()
		info.Netloc = parsed.Host
		info.Path = parsed.Path
		info.FullURL = parsed.String()
	}

	// Fallback: if URL parsing failed, extract host manually
	if info.Host == "" {
		host := strings.TrimPrefix(strings.TrimPrefix(raw, "https://"), "http://")
		host = strings.Split(host, "/")[0]
		host = strings.Split(host, "?")[0]
		info.Netloc = host
		parts := strings.Split(host, ":")
		info.Host = parts[0]
		if len(parts) > 1 {
			info.Port = parts[1]
		}
		if info.Scheme == "" {
			info.Scheme = "https"
		}
		info.FullURL = info.Scheme + "://" + host
	}

	return info
}

// HTTPSURL returns the target rewritten to the https scheme.
func (t *TargetInfo) HTTPSURL() string {
	return "https://" + t.Netloc + t.Path
}

// HTTPURL returns the plain-http form of the domain.
func (t *TargetInfo) HTTPURL() string {
	return "http://" + t.Netloc
}

// ExtractDomain returns the scheme-insensitive netloc of a URL.
func ExtractDomain(target string) string {
	return ParseTarget(target).Netloc
}

// ExtractHost extracts just the hostname from a target.
func ExtractHost(target string) string {
	return ParseTarget(target).Host
}
