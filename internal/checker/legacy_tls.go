package checker

import (
	"context"
	"crypto/rand"
	"crypto/tls"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/khanhnv2901/privscan/internal/domain/finding"
)

// Legacy protocol labels reported in ProtocolProbe.
const (
	ProtocolTLS10 = "TLS 1.0"
	ProtocolTLS11 = "TLS 1.1"
	ProtocolSSL   = "SSL v2/v3"
)

// legacyCipherSuites widens the offer so old servers can find a common suite.
var legacyCipherSuites = []uint16{
	tls.TLS_ECDHE_RSA_WITH_AES_128_CBC_SHA,
	tls.TLS_ECDHE_RSA_WITH_AES_256_CBC_SHA,
	tls.TLS_ECDHE_ECDSA_WITH_AES_128_CBC_SHA,
	tls.TLS_ECDHE_ECDSA_WITH_AES_256_CBC_SHA,
	tls.TLS_RSA_WITH_AES_128_CBC_SHA,
	tls.TLS_RSA_WITH_AES_256_CBC_SHA,
	tls.TLS_ECDHE_RSA_WITH_3DES_EDE_CBC_SHA,
	tls.TLS_RSA_WITH_3DES_EDE_CBC_SHA,
	tls.TLS_ECDHE_RSA_WITH_RC4_128_SHA,
	tls.TLS_RSA_WITH_RC4_128_SHA,
}

// Dialer opens raw connections for handshake probes.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// probeTLSVersion attempts a handshake pinned to exactly one protocol version.
// Certificate verification is off: only protocol support matters here.
func probeTLSVersion(ctx context.Context, d Dialer, addr, serverName string, version uint16, timeout time.Duration) finding.ProtocolProbe {
	probe := finding.ProtocolProbe{Protocol: tlsVersionString(version)}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		probe.Reason = fmt.Sprintf("connect: %v", err)
		return probe
	}
	defer conn.Close()

	tlsConn := tls.Client(conn, &tls.Config{
		ServerName:         serverName,
		MinVersion:         version,
		MaxVersion:         version,
		CipherSuites:       legacyCipherSuites,
		InsecureSkipVerify: true,
	})
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		probe.Reason = fmt.Sprintf("handshake rejected: %v", err)
		return probe
	}

	probe.Supported = true
	return probe
}

// probeSSL3 writes a raw SSL 3.0 ClientHello, since crypto/tls cannot speak it.
// The server supports SSL 3.0 iff it answers with a ServerHello carrying 0x0300.
func probeSSL3(ctx context.Context, d Dialer, addr string, timeout time.Duration) finding.ProtocolProbe {
	probe := finding.ProtocolProbe{Protocol: ProtocolSSL}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		probe.Reason = fmt.Sprintf("connect: %v", err)
		return probe
	}
	defer conn.Close()

	deadline, _ := ctx.Deadline()
	_ = conn.SetDeadline(deadline)

	hello, err := sslv3ClientHello()
	if err != nil {
		probe.Reason = fmt.Sprintf("build client hello: %v", err)
		return probe
	}
	if _, err := conn.Write(hello); err != nil {
		probe.Reason = fmt.Sprintf("write client hello: %v", err)
		return probe
	}

	version, err := readServerHelloVersion(conn)
	if err != nil {
		probe.Reason = fmt.Sprintf("handshake rejected: %v", err)
		return probe
	}
	if version != versionSSL30 {
		probe.Reason = fmt.Sprintf("server answered with %s", tlsVersionString(version))
		return probe
	}

	probe.Supported = true
	return probe
}

func sslv3ClientHello() ([]byte, error) {
	suites := []uint16{0x002f, 0x0035, 0x000a, 0x0005, 0x0004, 0x0009}

	body := make([]byte, 0, 64)
	body = binary.BigEndian.AppendUint16(body, versionSSL30)
	random := make([]byte, 32)
	if _, err := rand.Read(random); err != nil {
		return nil, err
	}
	body = append(body, random...)
	body = append(body, 0) // session id length
	body = binary.BigEndian.AppendUint16(body, uint16(len(suites)*2))
	for _, s := range suites {
		body = binary.BigEndian.AppendUint16(body, s)
	}
	body = append(body, 1, 0) // one compression method: null

	handshake := []byte{0x01, byte(len(body) >> 16), byte(len(body) >> 8), byte(len(body))}
	handshake = append(handshake, body...)

	record := []byte{0x16}
	record = binary.BigEndian.AppendUint16(record, versionSSL30)
	record = binary.BigEndian.AppendUint16(record, uint16(len(handshake)))
	return append(record, handshake...), nil
}

func readServerHelloVersion(r io.Reader) (uint16, error) {
	header := make([]byte, 5)
	if _, err := io.ReadFull(r, header); err != nil {
		return 0, fmt.Errorf("read record header: %w", err)
	}
	switch header[0] {
	case 0x16:
	case 0x15:
		return 0, fmt.Errorf("alert received")
	default:
		return 0, fmt.Errorf("unexpected record type 0x%02x", header[0])
	}

	// handshake type (1) + length (3) + server_version (2)
	hs := make([]byte, 6)
	if _, err := io.ReadFull(r, hs); err != nil {
		return 0, fmt.Errorf("read handshake header: %w", err)
	}
	if hs[0] != 0x02 {
		return 0, fmt.Errorf("unexpected handshake message 0x%02x", hs[0])
	}
	return binary.BigEndian.Uint16(hs[4:6]), nil
}
