package checker

import (
	"crypto/tls"
	"fmt"
	"time"

	"github.com/khanhnv2901/privscan/internal/domain/finding"
	"github.com/khanhnv2901/privscan/internal/shared/constants"
)

// versionSSL30 represents the legacy SSL 3.0 protocol version (0x0300).
// Defined locally so we can detect/report SSL 3.0 without referencing the
// deprecated tls.VersionSSL30 symbol.
const versionSSL30 uint16 = 0x0300

// DescribeTLS summarizes a negotiated connection for the result document.
func DescribeTLS(connState *tls.ConnectionState, now time.Time) *finding.TLSDetails {
	if connState == nil {
		return nil
	}

	details := &finding.TLSDetails{
		Version:     tlsVersionString(connState.Version),
		CipherSuite: cipherSuiteString(connState.CipherSuite),
	}

	if len(connState.PeerCertificates) > 0 {
		cert := connState.PeerCertificates[0]
		details.Issuer = cert.Issuer.String()
		details.CertificateExpiry = cert.NotAfter.UTC()
		// Warn if expiring within 14 days
		details.ExpiresSoon = cert.NotAfter.Sub(now) < constants.TLSSoonExpiryWindow
	}

	return details
}

// tlsVersionString converts TLS version constant to string
func tlsVersionString(version uint16) string {
	switch version {
	case versionSSL30:
		return "SSL 3.0"
	case tls.VersionTLS10:
		return "TLS 1.0"
	case tls.VersionTLS11:
		return "TLS 1.1"
	case tls.VersionTLS12:
		return "TLS 1.2"
	case tls.VersionTLS13:
		return "TLS 1.3"
	default:
		return fmt.Sprintf("Unknown (0x%04x)", version)
	}
}

// cipherSuiteString converts cipher suite constant to string
func cipherSuiteString(suite uint16) string {
	name := tls.CipherSuiteName(suite)
	if name != "" {
		return name
	}
	return fmt.Sprintf("Unknown (0x%04x)", suite)
}
