package httpd

import (
	"crypto/tls"
	"net"

	"golang.org/x/crypto/acme"
	"golang.org/x/crypto/acme/autocert"
)

// TLSAdapter is the seam between the acceptor and a TLS implementation:
// Bind lets the adapter observe or wrap the raw listener, Wrap upgrades
// one accepted connection to TLS (returning NoSSLError if the client sent
// plaintext, FatalSSLAlertError for an unrecoverable handshake failure),
// and returns an environment map of TLS session details for the gateway
// to inspect.
type TLSAdapter interface {
	Bind(ln net.Listener) (net.Listener, error)
	Wrap(conn net.Conn) (net.Conn, map[string]string, error)
}

// StaticTLSAdapter wraps connections with a fixed *tls.Config, for
// deployments that manage their own certificates.
type StaticTLSAdapter struct {
	Config *tls.Config
}

func NewStaticTLSAdapter(cfg *tls.Config) *StaticTLSAdapter {
	return &StaticTLSAdapter{Config: cfg}
}

func (a *StaticTLSAdapter) Bind(ln net.Listener) (net.Listener, error) {
	return ln, nil
}

func (a *StaticTLSAdapter) Wrap(conn net.Conn) (net.Conn, map[string]string, error) {
	tlsConn := tls.Server(conn, a.Config)
	if err := tlsConn.Handshake(); err != nil {
		return nil, nil, classifyHandshakeError(err)
	}
	state := tlsConn.ConnectionState()
	env := map[string]string{
		"HTTPS":           "on",
		"SSL_PROTOCOL":    tlsVersionName(state.Version),
		"SSL_CIPHER":      tls.CipherSuiteName(state.CipherSuite),
		"SSL_SERVER_NAME": state.ServerName,
	}
	return tlsConn, env, nil
}

// AutocertTLSAdapter obtains and renews certificates automatically via
// ACME (Let's Encrypt).
type AutocertTLSAdapter struct {
	Manager *autocert.Manager
}

// NewAutocertTLSAdapter builds an adapter that caches certificates under
// cacheDir and manages the given hostnames.
func NewAutocertTLSAdapter(cacheDir string, hostnames ...string) *AutocertTLSAdapter {
	m := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(hostnames...),
	}
	if cacheDir != "" {
		m.Cache = autocert.DirCache(cacheDir)
	}
	return &AutocertTLSAdapter{Manager: m}
}

// Bind returns ln unchanged: port-80 ACME HTTP-01 challenge routing is
// handled by whatever plaintext Server the caller runs on port 80, in
// parallel with this TLS listener.
func (a *AutocertTLSAdapter) Bind(ln net.Listener) (net.Listener, error) {
	return ln, nil
}

func (a *AutocertTLSAdapter) Wrap(conn net.Conn) (net.Conn, map[string]string, error) {
	cfg := &tls.Config{
		GetCertificate: a.Manager.GetCertificate,
		NextProtos:     []string{acme.ALPNProto},
	}
	tlsConn := tls.Server(conn, cfg)
	if err := tlsConn.Handshake(); err != nil {
		return nil, nil, classifyHandshakeError(err)
	}
	state := tlsConn.ConnectionState()
	env := map[string]string{
		"HTTPS":           "on",
		"SSL_PROTOCOL":    tlsVersionName(state.Version),
		"SSL_CIPHER":      tls.CipherSuiteName(state.CipherSuite),
		"SSL_SERVER_NAME": state.ServerName,
	}
	return tlsConn, env, nil
}

func classifyHandshakeError(err error) error {
	if isPlaintextOnTLSPort(err) {
		return &NoSSLError{}
	}
	return &FatalSSLAlertError{Err: err}
}

// isPlaintextOnTLSPort reports whether a handshake error looks like a
// client sending plain HTTP at a TLS-only listener. crypto/tls surfaces
// this as a RecordHeaderError.
func isPlaintextOnTLSPort(err error) bool {
	_, ok := err.(tls.RecordHeaderError)
	return ok
}

func tlsVersionName(v uint16) string {
	switch v {
	case tls.VersionTLS10:
		return "TLSv1"
	case tls.VersionTLS11:
		return "TLSv1.1"
	case tls.VersionTLS12:
		return "TLSv1.2"
	case tls.VersionTLS13:
		return "TLSv1.3"
	default:
		return "unknown"
	}
}
