package httpd

import (
	"fmt"
	"net"
	"time"
)

// Connection drives the request/response cycle for one accepted socket,
// including HTTP/1.1 persistence and pipelining: Communicate loops reading
// and responding to requests off the same socket until the connection
// should close.
type Connection struct {
	netConn net.Conn
	server  *Server
	reader  *WireReader
	writer  *WireWriter
	tlsEnv  map[string]string

	remoteAddr string
	localAddr  string
}

func newConnection(nc net.Conn, server *Server, tlsEnv map[string]string) *Connection {
	return &Connection{
		netConn:    nc,
		server:     server,
		reader:     NewWireReader(nc, server.ReadBufferSize),
		writer:     NewWireWriter(nc, server.WriteBufferSize),
		tlsEnv:     tlsEnv,
		remoteAddr: nc.RemoteAddr().String(),
		localAddr:  nc.LocalAddr().String(),
	}
}

func (c *Connection) close() {
	stats := c.server.stats()
	stats.connectionClosed()
	stats.addBytesRead(c.reader.BytesRead())
	stats.addBytesWritten(c.writer.BytesWritten())
	_ = c.netConn.Close()
}

// Communicate reads and responds to requests on the connection until a
// framing error, I/O error, or the negotiated persistence rules call for
// closing it. It never panics out to the worker goroutine: gateway panics
// are recovered and reported as a 500.
//
// Error handling follows a fixed policy:
//
//   - a clean EOF while waiting for the next request line closes silently
//     (idle persistent connection hanging up);
//   - a read timeout while idle closes silently; a read timeout mid-request
//     (the client started sending a request but stalled) gets a 408 if
//     nothing has been written yet;
//   - a framing error gets 400 Bad Request;
//   - an oversize request/header gets 413, with the version-dependent
//     Connection: close rule SimpleResponse already applies;
//   - an unsupported Transfer-Encoding gets 501; a protocol version the
//     server doesn't speak gets 505;
//   - any other error is logged and answered with 500 if possible, then the
//     connection is always closed.
func (c *Connection) Communicate() {
	defer c.close()

	for {
		req := newRequest(c, c.server)

		if d := c.server.connectionTimeout(); d > 0 {
			_ = c.netConn.SetReadDeadline(time.Now().Add(d))
		}

		sc := NewSizeCheckReader(c.reader, c.server.maxRequestHeaderSize())
		err := req.ParseRequestLine(sc)
		started := err == nil
		if err == nil {
			err = req.ParseHeaders(sc)
		}
		if err != nil {
			c.handleParseError(req, err, started)
			return
		}

		_ = c.netConn.SetReadDeadline(time.Time{})

		if err := req.NegotiateProtocol(); err != nil {
			_ = req.SimpleResponse(505, "HTTP Version Not Supported")
			return
		}
		req.DeterminePersistence()

		if err := req.InstallBodyReader(c.reader, c.server.maxRequestBodySize()); err != nil {
			c.handleParseError(req, err, true)
			return
		}

		if req.ExpectsContinue() && req.RequestProtocol.atLeast11() {
			if err := req.SendContinue(); err != nil {
				return
			}
		}

		c.server.stats().requestStarted()
		if !c.dispatch(req) {
			return
		}

		if req.closeConnection {
			return
		}
	}
}

// dispatch invokes the gateway for req, recovering a panic as a 500, and
// finishes the response. It returns false if the connection must close
// (I/O error mid-response, or the gateway/finish failed).
func (c *Connection) dispatch(req *Request) (keepGoing bool) {
	var responder Responder

	func() {
		defer func() {
			if rec := recover(); rec != nil {
				c.server.stats().errorOccurred()
				c.server.logf("ERROR: panic handling request: %v", rec)
				req.closeConnection = true
				responder = nil
			}
		}()
		responder = c.server.Gateway.Gateway(req)
	}()

	if responder != nil {
		err := func() (err error) {
			defer func() {
				if rec := recover(); rec != nil {
					err = fmt.Errorf("panic handling request: %v", rec)
				}
			}()
			return responder.Respond(req)
		}()
		if err != nil {
			if isConnClosed(err) {
				return false
			}
			c.server.stats().errorOccurred()
			c.server.logf("ERROR: %v", err)
			req.closeConnection = true
			if !req.sentHeaders {
				_ = req.SimpleResponse(500, reason500)
				return true
			}
		}
	} else if !req.sentHeaders {
		_ = req.SimpleResponse(500, reason500)
		return true
	}

	if err := req.Finish(); err != nil {
		return false
	}
	return true
}

// handleParseError classifies a request-line/header-parse or body-install
// error and responds accordingly, per the policy table in Communicate's
// doc comment.
func (c *Connection) handleParseError(req *Request, err error, started bool) {
	switch {
	case err == errConnectionClosed:
		return
	case isTimeout(err):
		c.server.stats().timeoutOccurred()
		if !started {
			return
		}
		_ = req.SimpleResponse(408, "Request Timeout")
	case err == ErrUnimplementedTransferEncoding:
		_ = req.SimpleResponse(501, "Not Implemented")
	case isMaxSizeExceeded(err):
		_ = req.SimpleResponse(413, "Request Entity Too Large")
	case isConnClosed(err), isIgnorableSocketError(err):
		return
	default:
		c.server.logf("WARNING: %v", err)
		_ = req.SimpleResponse(400, "Bad Request")
	}
}

func isMaxSizeExceeded(err error) bool {
	_, ok := err.(*MaxSizeExceededError)
	return ok
}
