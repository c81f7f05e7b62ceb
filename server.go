package httpd

import (
	"log"
	"net"
	"os"
	"strconv"
	"sync"
	"time"
)

// Logger is the minimal logging seam httpd writes diagnostics through: a
// single Printf-shaped method so any structured logger can be adapted
// trivially.
type Logger interface {
	Printf(format string, args ...interface{})
}

var defaultLogger Logger = log.New(os.Stderr, "", log.LstdFlags)

const (
	defaultMaxRequestHeaderBytes = 64 * 1024
	defaultConnectionTimeout     = 10 * time.Second
	defaultShutdownGrace         = 5 * time.Second
	defaultMinThreads            = 10
	defaultMaxThreads            = 1000
)

// Server holds the configuration and running state of an HTTP engine:
// accept loop, worker pool, and the per-connection limits the request
// parser enforces. Zero-valued fields fall back to sane defaults through
// the lazy accessor methods below.
type Server struct {
	// Addr is either "host:port" or "unix:/path/to/socket".
	Addr string

	// Gateway turns parsed requests into responses. Required.
	Gateway Gateway

	// Logger receives diagnostic output; nil uses a default stderr logger.
	Logger Logger

	// Name is reported in the Server response header; empty disables it.
	Name string

	// Protocol is the highest protocol version this server negotiates.
	// Zero value defaults to HTTP/1.1.
	Protocol ProtocolVersion

	// MaxRequestHeaderBytes bounds the request-line + header block.
	// <= 0 uses defaultMaxRequestHeaderBytes.
	MaxRequestHeaderBytes int64

	// MaxRequestBodyBytes bounds a request body (Content-Length or
	// decoded chunked total). <= 0 means unlimited.
	MaxRequestBodyBytes int64

	// ConnectionTimeout bounds how long a connection may sit idle between
	// requests, and how long a partially-received request may take.
	// <= 0 uses defaultConnectionTimeout.
	ConnectionTimeout time.Duration

	// ShutdownGrace bounds how long Stop waits for in-flight connections
	// to finish. <= 0 uses defaultShutdownGrace.
	ShutdownGrace time.Duration

	// MinThreads bounds the worker pool from below; <= 0 uses
	// defaultMinThreads. MaxThreads bounds it from above; 0 uses
	// defaultMaxThreads, and a negative value means unbounded.
	MinThreads int
	MaxThreads int

	ReadBufferSize  int
	WriteBufferSize int

	// ReusePort enables SO_REUSEPORT on the listening socket, letting
	// multiple processes share one port.
	ReusePort bool

	// TLS, if set, upgrades every accepted connection before it is
	// handed to a worker.
	TLS TLSAdapter

	// Stats collects running counters for this Server. A zero Server
	// allocates one lazily on first use.
	Stats *Stats

	mu       sync.Mutex
	listener net.Listener
	pool     *workerPool
	shutdown *shutdownController
	started  bool
}

func (s *Server) protocolVersion() ProtocolVersion {
	if s.Protocol.Major == 0 {
		return ProtocolVersion{Major: 1, Minor: 1}
	}
	return s.Protocol
}

// serverName exposes the configured Name field through the same accessor
// pattern as the other knobs below, for use from request.go without
// clashing with the exported field.
func (s *Server) serverName() string { return s.Name }

func (s *Server) maxRequestHeaderSize() int64 {
	if s.MaxRequestHeaderBytes <= 0 {
		return defaultMaxRequestHeaderBytes
	}
	return s.MaxRequestHeaderBytes
}

func (s *Server) maxRequestBodySize() int64 { return s.MaxRequestBodyBytes }

func (s *Server) connectionTimeout() time.Duration {
	if s.ConnectionTimeout <= 0 {
		return defaultConnectionTimeout
	}
	return s.ConnectionTimeout
}

func (s *Server) shutdownGrace() time.Duration {
	if s.ShutdownGrace <= 0 {
		return defaultShutdownGrace
	}
	return s.ShutdownGrace
}

func (s *Server) minThreads() int {
	if s.MinThreads <= 0 {
		return defaultMinThreads
	}
	return s.MinThreads
}

// maxThreads returns the configured worker-pool ceiling: 0 (unset) uses
// defaultMaxThreads, a negative value is passed through as-is to signal
// "unbounded" to the worker pool, per spec's maxthreads default of -1.
func (s *Server) maxThreads() int {
	if s.MaxThreads == 0 {
		return defaultMaxThreads
	}
	return s.MaxThreads
}

func (s *Server) logger() Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return defaultLogger
}

func (s *Server) logf(format string, args ...interface{}) {
	s.logger().Printf(format, args...)
}

func (s *Server) stats() *Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Stats == nil {
		s.Stats = &Stats{}
	}
	return s.Stats
}

// ListenAndServe binds s.Addr and serves until Stop is called or the
// listener errors.
func (s *Server) ListenAndServe() error {
	ln, err := bindListener(s.Addr, s.ReusePort)
	if err != nil {
		return err
	}
	if s.TLS != nil {
		ln, err = s.TLS.Bind(ln)
		if err != nil {
			return err
		}
	}
	return s.Serve(ln)
}

// Serve runs the accept loop over ln, dispatching each accepted
// connection to the worker pool, until the listener is closed via Stop or
// Accept returns a non-retryable error.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errAlreadyStarted
	}
	s.started = true
	s.listener = ln
	s.pool = newWorkerPool(s.minThreads(), s.maxThreads())
	s.shutdown = newShutdownController(ln)
	pool := s.pool
	shutdown := s.shutdown
	s.mu.Unlock()

	pool.Start()
	sharedDateCache.start()
	defer sharedDateCache.stopClient()

	for {
		nc, err := ln.Accept()
		if err != nil {
			if shutdown.isShuttingDown() {
				return nil
			}
			if isRetryableAcceptError(err) || isTimeout(err) {
				continue
			}
			shutdown.interrupt(err, pool)
			return err
		}

		conn, env, err := s.wrapTLS(nc)
		if err != nil {
			s.handleAcceptError(nc, err)
			continue
		}

		s.stats().connectionOpened()
		c := newConnection(conn, s, env)
		if !pool.Serve(c) {
			c.close()
		}
	}
}

var errAlreadyStarted = &serverStateError{"httpd: server already started"}

type serverStateError struct{ msg string }

func (e *serverStateError) Error() string { return e.msg }

func (s *Server) wrapTLS(nc net.Conn) (net.Conn, map[string]string, error) {
	if s.TLS == nil {
		return nc, nil, nil
	}
	return s.TLS.Wrap(nc)
}

// noSSLMessage is written as a raw, unencrypted 400 response when a
// plaintext client connects to a TLS-only port, so the client sees why it
// was rejected instead of just a dropped connection.
const noSSLMessage = "The client sent a plain HTTP request, but this server only speaks HTTPS on this port."

// handleAcceptError handles a TLS handshake failure at accept time: a
// plaintext client on a TLS-only port is told so with a raw 400 response
// before lingering and closing; anything else closes silently.
func (s *Server) handleAcceptError(nc net.Conn, err error) {
	if _, ok := err.(*NoSSLError); ok {
		writeNoSSLResponse(nc, s.protocolVersion())
		lingerClose(nc)
		return
	}
	nc.Close()
}

// writeNoSSLResponse writes a self-contained, unencrypted "400 Bad Request"
// response straight to nc: status line, Content-Length, Content-Type, and
// the explanatory body, with no chunked framing or further negotiation.
func writeNoSSLResponse(nc net.Conn, proto ProtocolVersion) {
	buf := []byte(proto.String() + " 400 Bad Request\r\n" +
		"Content-Length: " + strconv.Itoa(len(noSSLMessage)) + "\r\n" +
		"Content-Type: text/plain\r\n\r\n" +
		noSSLMessage)
	_ = nc.SetWriteDeadline(time.Now().Add(time.Second))
	for len(buf) > 0 {
		n, err := nc.Write(buf)
		if err != nil {
			return
		}
		buf = buf[n:]
	}
}

// Stop closes the listener and waits up to ShutdownGrace for in-flight
// connections to finish.
func (s *Server) Stop() error {
	s.mu.Lock()
	shutdown := s.shutdown
	pool := s.pool
	s.mu.Unlock()
	if shutdown == nil {
		return nil
	}
	return shutdown.stop(pool, s.shutdownGrace())
}

func lingerClose(nc net.Conn) {
	buf := make([]byte, 512)
	_ = nc.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
	for {
		if _, err := nc.Read(buf); err != nil {
			break
		}
	}
	nc.Close()
}
