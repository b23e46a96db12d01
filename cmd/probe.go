package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/khanhnv2901/privscan/internal/checker"
	"github.com/khanhnv2901/privscan/internal/domain/finding"
	"github.com/khanhnv2901/privscan/internal/shared/constants"
)

var (
	probeTimeoutSecs = defaultTimeoutSeconds
	probePort        = constants.DefaultTLSPort
	probeFormat      = "text"
)

var probeCmd = &cobra.Command{
	Use:   "probe <domain-or-url>",
	Short: "Run the live HTTPS, redirect and legacy TLS checks against one site",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)

		if probeFormat != "text" && probeFormat != "json" {
			return fmt.Errorf("unsupported format %q (use text or json)", probeFormat)
		}

		target, err := checker.NewProbeTarget(args[0], probePort)
		if err != nil {
			return fmt.Errorf("invalid target: %w", err)
		}

		prober := checker.NewEncryptionProber(appCtx.Logger)
		prober.Timeout = time.Duration(probeTimeoutSecs) * time.Second
		prober.HandshakeTimeout = prober.Timeout
		prober.Port = probePort

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		res := prober.Probe(ctx, target)

		if probeFormat == "json" {
			return writeProbeJSON(cmd.OutOrStdout(), res)
		}
		printProbeResult(cmd.OutOrStdout(), res)
		return nil
	},
}

func init() {
	probeCmd.Flags().IntVar(&probeTimeoutSecs, "timeout", probeTimeoutSecs, "timeout in seconds for each request and handshake")
	probeCmd.Flags().IntVar(&probePort, "port", probePort, "port used for legacy TLS/SSL handshakes")
	probeCmd.Flags().StringVar(&probeFormat, "format", probeFormat, "output format (text, json)")
}

func printProbeResult(w io.Writer, res finding.EncryptionResult) {
	fmt.Fprintf(w, "%s %s\n", colorInfo("Encryption checks for"), res.Domain)

	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CHECK\tSTATUS\tNOTES")
	for _, p := range res.Probes {
		notes := p.Reason
		if notes == "" {
			notes = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.Name, passLabel(p.OK), notes)
	}
	if err := tw.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to flush probe table: %v\n", err)
	}

	if len(res.LegacyProtocols) > 0 {
		fmt.Fprintln(w)
		for _, lp := range res.LegacyProtocols {
			status := colorSuccess("Rejected (Secure)")
			if lp.Supported {
				status = colorError("Supported (Insecure)")
			}
			fmt.Fprintf(w, "  %-10s %s\n", lp.Protocol, status)
		}
	}

	if res.TLS != nil {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "  TLS: %s, %s\n", res.TLS.Version, res.TLS.CipherSuite)
		expiry := res.TLS.CertificateExpiry.Format(time.RFC3339)
		if res.TLS.ExpiresSoon {
			expiry = colorWarn(expiry + " (expires soon)")
		}
		fmt.Fprintf(w, "  Certificate issuer: %s, expires %s\n", res.TLS.Issuer, expiry)
	}
}

type probeOutput struct {
	Domain              string              `json:"domain"`
	HTTPSAvailable      bool                `json:"https_available"`
	HTTPDisabled        bool                `json:"http_disabled"`
	HTTPToHTTPSRedirect bool                `json:"http_to_https_redirect"`
	TLSSSLSecure        bool                `json:"tls_ssl_secure"`
	Probes              []probeOutcomeJSON  `json:"diagnostics"`
	LegacyProtocols     []protocolProbeJSON `json:"legacy_protocols,omitempty"`
	TLS                 *tlsDetailsJSON     `json:"tls_details,omitempty"`
}

type probeOutcomeJSON struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

type protocolProbeJSON struct {
	Protocol  string `json:"protocol"`
	Supported bool   `json:"supported"`
	Reason    string `json:"reason,omitempty"`
}

type tlsDetailsJSON struct {
	Version           string    `json:"version"`
	CipherSuite       string    `json:"cipher_suite"`
	Issuer            string    `json:"issuer"`
	CertificateExpiry time.Time `json:"certificate_expiry"`
	ExpiresSoon       bool      `json:"expires_soon"`
}

func writeProbeJSON(w io.Writer, res finding.EncryptionResult) error {
	out := probeOutput{
		Domain:              res.Domain,
		HTTPSAvailable:      res.HTTPSAvailable,
		HTTPDisabled:        res.HTTPDisabled,
		HTTPToHTTPSRedirect: res.HTTPToHTTPSRedirect,
		TLSSSLSecure:        res.TLSSSLSecure,
		Probes:              make([]probeOutcomeJSON, 0, len(res.Probes)),
	}
	for _, p := range res.Probes {
		out.Probes = append(out.Probes, probeOutcomeJSON{Name: p.Name, OK: p.OK, Reason: p.Reason})
	}
	for _, lp := range res.LegacyProtocols {
		out.LegacyProtocols = append(out.LegacyProtocols, protocolProbeJSON{Protocol: lp.Protocol, Supported: lp.Supported, Reason: lp.Reason})
	}
	if res.TLS != nil {
		out.TLS = &tlsDetailsJSON{
			Version:           res.TLS.Version,
			CipherSuite:       res.TLS.CipherSuite,
			Issuer:            res.TLS.Issuer,
			CertificateExpiry: res.TLS.CertificateExpiry,
			ExpiresSoon:       res.TLS.ExpiresSoon,
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
