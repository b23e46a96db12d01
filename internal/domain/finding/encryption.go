package finding

import "time"

// Probe names used in ProbeOutcome.
const (
	ProbeHTTPS        = "https_available"
	ProbeHTTP         = "http_disabled"
	ProbeHTTPRedirect = "http_to_https_redirect"
	ProbeLegacyTLS    = "tls_ssl_secure"
)

// ProbeOutcome is success or failure(reason) of a single live check.
type ProbeOutcome struct {
	Name   string
	OK     bool
	Reason string
}

// Succeeded returns a successful outcome.
func Succeeded(name string) ProbeOutcome {
	return ProbeOutcome{Name: name, OK: true}
}

// Failed returns a failed outcome with the reason kept for diagnostics.
func Failed(name, reason string) ProbeOutcome {
	return ProbeOutcome{Name: name, Reason: reason}
}

// ProtocolProbe records whether a legacy protocol handshake was accepted.
type ProtocolProbe struct {
	Protocol  string
	Supported bool
	Reason    string
}

// TLSDetails is what the HTTPS probe negotiated.
type TLSDetails struct {
	Version           string
	CipherSuite       string
	Issuer            string
	CertificateExpiry time.Time
	ExpiresSoon       bool
}

// EncryptionResult is the outcome of the four live probes for one domain.
type EncryptionResult struct {
	Domain              string
	HTTPSAvailable      bool
	HTTPDisabled        bool
	HTTPToHTTPSRedirect bool
	TLSSSLSecure        bool
	Probes              []ProbeOutcome
	LegacyProtocols     []ProtocolProbe
	TLS                 *TLSDetails
}

// Unprobed is the all-false result used when no domain could be derived.
func Unprobed(reason string) EncryptionResult {
	return EncryptionResult{
		Probes: []ProbeOutcome{Failed("target", reason)},
	}
}
