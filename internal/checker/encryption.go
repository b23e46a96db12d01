package checker

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/khanhnv2901/privscan/internal/domain/finding"
	"github.com/khanhnv2901/privscan/internal/shared/constants"
)

// ProbeTarget is the set of endpoints the prober contacts for one site.
type ProbeTarget struct {
	Domain   string // netloc the result is reported under
	HTTPSURL string
	HTTPURL  string
	TLSAddr  string // host:port for legacy handshakes
	TLSHost  string // SNI for legacy handshakes
}

// NewProbeTarget derives the probe endpoints from a representative page URL.
func NewProbeTarget(rawURL string, tlsPort int) (ProbeTarget, error) {
	info := ParseTarget(rawURL)
	if info.Host == "" {
		return ProbeTarget{}, fmt.Errorf("no host in %q", rawURL)
	}
	if tlsPort <= 0 {
		tlsPort = constants.DefaultTLSPort
	}
	return ProbeTarget{
		Domain:   info.Netloc,
		HTTPSURL: info.HTTPSURL(),
		HTTPURL:  info.HTTPURL(),
		TLSAddr:  net.JoinHostPort(info.Host, strconv.Itoa(tlsPort)),
		TLSHost:  info.Host,
	}, nil
}

// EncryptionProber runs the live transport-security checks against a site.
// Every failure becomes a ProbeOutcome; nothing is returned as an error.
type EncryptionProber struct {
	Timeout          time.Duration
	HandshakeTimeout time.Duration
	Port             int
	// NewClient builds the HTTP client used by the HTTP probes.
	NewClient func(timeout time.Duration) *http.Client
	Dialer    Dialer
	Logger    *zap.SugaredLogger
	Now       func() time.Time
}

// NewEncryptionProber returns a prober with default timeouts, port 443 and a
// certificate-verifying HTTP client.
func NewEncryptionProber(logger *zap.SugaredLogger) *EncryptionProber {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &EncryptionProber{
		Timeout:          constants.DefaultProbeTimeout,
		HandshakeTimeout: constants.DefaultHandshakeTimeout,
		Port:             constants.DefaultTLSPort,
		NewClient:        defaultClient,
		Dialer:           &net.Dialer{},
		Logger:           logger,
		Now:              time.Now,
	}
}

func defaultClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{InsecureSkipVerify: false},
		},
	}
}

// ProbeURL derives the target from a page URL and probes it.
func (p *EncryptionProber) ProbeURL(ctx context.Context, rawURL string) finding.EncryptionResult {
	target, err := NewProbeTarget(rawURL, p.Port)
	if err != nil {
		return finding.Unprobed(err.Error())
	}
	return p.Probe(ctx, target)
}

// Probe runs the HTTPS, HTTP, redirect and legacy protocol checks concurrently.
func (p *EncryptionProber) Probe(ctx context.Context, target ProbeTarget) finding.EncryptionResult {
	p.defaults()

	var (
		httpsOut, httpOut, redirectOut finding.ProbeOutcome
		tlsDetails                     *finding.TLSDetails
		legacy                         = make([]finding.ProtocolProbe, 3)
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		httpsOut, tlsDetails = p.checkHTTPS(gctx, target.HTTPSURL)
		return nil
	})
	g.Go(func() error {
		httpOut = p.checkHTTPDisabled(gctx, target.HTTPURL)
		return nil
	})
	g.Go(func() error {
		redirectOut = p.checkRedirect(gctx, target.HTTPURL)
		return nil
	})
	g.Go(func() error {
		legacy[0] = probeTLSVersion(gctx, p.Dialer, target.TLSAddr, target.TLSHost, tls.VersionTLS10, p.HandshakeTimeout)
		return nil
	})
	g.Go(func() error {
		legacy[1] = probeTLSVersion(gctx, p.Dialer, target.TLSAddr, target.TLSHost, tls.VersionTLS11, p.HandshakeTimeout)
		return nil
	})
	g.Go(func() error {
		legacy[2] = probeSSL3(gctx, p.Dialer, target.TLSAddr, p.HandshakeTimeout)
		return nil
	})
	_ = g.Wait()

	legacyOut := finding.Succeeded(finding.ProbeLegacyTLS)
	var supported []string
	for _, lp := range legacy {
		if lp.Supported {
			supported = append(supported, lp.Protocol)
		}
	}
	if len(supported) > 0 {
		legacyOut = finding.Failed(finding.ProbeLegacyTLS, "legacy protocols accepted: "+strings.Join(supported, ", "))
	}

	result := finding.EncryptionResult{
		Domain:              target.Domain,
		HTTPSAvailable:      httpsOut.OK,
		HTTPDisabled:        httpOut.OK,
		HTTPToHTTPSRedirect: redirectOut.OK,
		TLSSSLSecure:        legacyOut.OK,
		Probes:              []finding.ProbeOutcome{httpsOut, httpOut, redirectOut, legacyOut},
		LegacyProtocols:     legacy,
		TLS:                 tlsDetails,
	}

	for _, o := range result.Probes {
		if o.OK {
			p.Logger.Infow("encryption probe passed", "domain", target.Domain, "probe", o.Name)
		} else {
			p.Logger.Infow("encryption probe failed", "domain", target.Domain, "probe", o.Name, "reason", o.Reason)
		}
	}
	return result
}

func (p *EncryptionProber) defaults() {
	if p.Timeout <= 0 {
		p.Timeout = constants.DefaultProbeTimeout
	}
	if p.HandshakeTimeout <= 0 {
		p.HandshakeTimeout = constants.DefaultHandshakeTimeout
	}
	if p.NewClient == nil {
		p.NewClient = defaultClient
	}
	if p.Dialer == nil {
		p.Dialer = &net.Dialer{}
	}
	if p.Logger == nil {
		p.Logger = zap.NewNop().Sugar()
	}
	if p.Now == nil {
		p.Now = time.Now
	}
}

// get issues a GET with redirects followed and drains the body.
func (p *EncryptionProber) get(ctx context.Context, url string) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := p.NewClient(p.Timeout).Do(req)
	if err != nil {
		return nil, err
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
	return resp, nil
}

// checkHTTPS: a status below 400 means the site is served over HTTPS.
func (p *EncryptionProber) checkHTTPS(ctx context.Context, url string) (finding.ProbeOutcome, *finding.TLSDetails) {
	resp, err := p.get(ctx, url)
	if err != nil {
		return finding.Failed(finding.ProbeHTTPS, fmt.Sprintf("request failed: %v", err)), nil
	}
	details := DescribeTLS(resp.TLS, p.Now())
	if resp.StatusCode >= 400 {
		return finding.Failed(finding.ProbeHTTPS, fmt.Sprintf("status %d", resp.StatusCode)), details
	}
	return finding.Succeeded(finding.ProbeHTTPS), details
}

// checkHTTPDisabled succeeds when plain HTTP fails or answers with an error status.
func (p *EncryptionProber) checkHTTPDisabled(ctx context.Context, url string) finding.ProbeOutcome {
	resp, err := p.get(ctx, url)
	if err != nil {
		return finding.ProbeOutcome{Name: finding.ProbeHTTP, OK: true, Reason: fmt.Sprintf("unreachable: %v", err)}
	}
	if resp.StatusCode >= 400 {
		return finding.ProbeOutcome{Name: finding.ProbeHTTP, OK: true, Reason: fmt.Sprintf("status %d", resp.StatusCode)}
	}
	return finding.Failed(finding.ProbeHTTP, fmt.Sprintf("reachable over http (status %d)", resp.StatusCode))
}

// checkRedirect succeeds when the plain HTTP URL ends up on https://.
func (p *EncryptionProber) checkRedirect(ctx context.Context, url string) finding.ProbeOutcome {
	resp, err := p.get(ctx, url)
	if err != nil {
		return finding.Failed(finding.ProbeHTTPRedirect, fmt.Sprintf("request failed: %v", err))
	}
	final := resp.Request.URL.String()
	if !strings.HasPrefix(final, "https://") {
		return finding.Failed(finding.ProbeHTTPRedirect, "final URL "+final)
	}
	return finding.ProbeOutcome{Name: finding.ProbeHTTPRedirect, OK: true, Reason: "final URL " + final}
}
