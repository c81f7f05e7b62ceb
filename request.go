package httpd

import (
	"strconv"
	"strings"

	"github.com/valyala/bytebufferpool"
)

// Request bundles both the inbound parse state and the outbound response
// assembly for a single HTTP transaction on a connection, rather than
// splitting a Request/ResponseWriter pair: a gateway needs both halves
// together to make framing decisions, since whether the connection stays
// alive depends on both the request's Connection header and what the
// gateway decides to send back.
type Request struct {
	conn   *Connection
	server *Server

	// Inbound
	Method          string
	URI             *RequestURI
	RequestProtocol ProtocolVersion
	InHeaders       InHeaders
	Body            BoundedReader

	contentLength int64
	chunkedRead   bool

	// Outbound
	ResponseProtocol ProtocolVersion
	Status           string
	OutHeaders       OutHeaders

	statusCode    int
	sentHeaders   bool
	chunkedWrite  bool
	noMessageBody bool

	closeConnection bool
}

// newRequest allocates a Request bound to conn/server, ready for
// ParseRequestLine.
func newRequest(conn *Connection, server *Server) *Request {
	return &Request{
		conn:             conn,
		server:           server,
		InHeaders:        make(InHeaders),
		ResponseProtocol: server.protocolVersion(),
	}
}

// reset clears a Request for reuse on the next pipelined transaction.
func (r *Request) reset() {
	r.Method = ""
	r.URI = nil
	r.RequestProtocol = ProtocolVersion{}
	r.InHeaders = make(InHeaders)
	r.Body = nil
	r.contentLength = 0
	r.chunkedRead = false
	r.ResponseProtocol = r.server.protocolVersion()
	r.Status = ""
	r.OutHeaders = nil
	r.statusCode = 0
	r.sentHeaders = false
	r.chunkedWrite = false
	r.noMessageBody = false
	r.closeConnection = false
}

// ParseRequestLine reads and parses the request line (method, Request-URI,
// protocol version) from sc, which guards the header phase against oversize
// input. Exactly one leading bare CRLF is tolerated, to accommodate clients
// that send a spurious blank line after a previous request's body (RFC 2616
// section 4.1); a second bare CRLF in a row is a framing error rather than
// tolerated, since unbounded tolerance would let a client wedge a worker
// forever feeding it blank lines.
func (r *Request) ParseRequestLine(sc *SizeCheckReader) error {
	line, err := r.readRequestLine(sc)
	if err != nil {
		return err
	}
	if len(line) == 0 {
		line, err = r.readRequestLine(sc)
		if err != nil {
			return err
		}
		if len(line) == 0 {
			return ErrFraming
		}
	}

	parts := strings.SplitN(string(line), " ", 3)
	if len(parts) != 3 {
		return ErrFraming
	}
	method, rawURI, versionStr := parts[0], parts[1], parts[2]
	if method == "" {
		return ErrFraming
	}

	ver, err := parseProtocolVersion(versionStr)
	if err != nil {
		return err
	}
	uri, err := ParseRequestURI(rawURI)
	if err != nil {
		return err
	}

	r.Method = method
	r.URI = uri
	r.RequestProtocol = ver
	return nil
}

// readRequestLine reads one line from sc and trims its CRLF, returning
// errConnectionClosed for a true EOF (no bytes at all) so the caller can
// distinguish "peer hung up" from "peer sent a blank line".
func (r *Request) readRequestLine(sc *SizeCheckReader) ([]byte, error) {
	raw, err := sc.ReadLine(0)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, errConnectionClosed
	}
	return trimCRLF(raw), nil
}

// ParseHeaders reads the header block from sc into r.InHeaders.
func (r *Request) ParseHeaders(sc *SizeCheckReader) error {
	headers, err := NewHeaderParser(sc).Parse()
	if err != nil {
		return err
	}
	r.InHeaders = headers
	return nil
}

// NegotiateProtocol picks ResponseProtocol from RequestProtocol and the
// server's configured version.
func (r *Request) NegotiateProtocol() error {
	v, err := negotiateProtocol(r.RequestProtocol, r.server.protocolVersion())
	if err != nil {
		return err
	}
	r.ResponseProtocol = v
	return nil
}

// DeterminePersistence sets closeConnection from the inbound Connection
// header: HTTP/1.1 closes only on a literal "close" token; HTTP/1.0 closes
// unless a literal "Keep-Alive" token (exact casing) is present.
func (r *Request) DeterminePersistence() {
	conn := r.InHeaders.Get("Connection")
	if r.RequestProtocol.atLeast11() {
		if conn == "close" {
			r.closeConnection = true
		}
	} else {
		if conn != "Keep-Alive" {
			r.closeConnection = true
		}
	}
}

// InstallBodyReader installs the body BoundedReader directly over raw (the
// connection's raw WireReader), bypassing the header-phase SizeCheckReader.
// maxBodySize <= 0 means unlimited.
func (r *Request) InstallBodyReader(raw rawReader, maxBodySize int64) error {
	te := r.InHeaders.Get("Transfer-Encoding")
	if te != "" {
		if !strings.EqualFold(te, "chunked") {
			return ErrUnimplementedTransferEncoding
		}
		r.chunkedRead = true
		r.Body = NewChunkedReader(raw, maxBodySize)
		return nil
	}

	cl := r.InHeaders.Get("Content-Length")
	if cl != "" {
		n, err := strconv.ParseInt(cl, 10, 64)
		if err != nil || n < 0 {
			return ErrFraming
		}
		if maxBodySize > 0 && n > maxBodySize {
			return &MaxSizeExceededError{Limit: maxBodySize}
		}
		r.contentLength = n
		r.Body = NewKnownLengthReader(raw, n)
		return nil
	}

	r.Body = NewKnownLengthReader(raw, 0)
	return nil
}

// ExpectsContinue reports whether the client sent "Expect: 100-continue".
func (r *Request) ExpectsContinue() bool {
	return strings.EqualFold(r.InHeaders.Get("Expect"), "100-continue")
}

// SendContinue writes the interim "100 Continue" response, for use before
// reading the body of a request that sent Expect: 100-continue.
func (r *Request) SendContinue() error {
	w := r.conn.writer
	if err := w.WriteAll([]byte(r.ResponseProtocol.String() + " 100 Continue\r\n\r\n")); err != nil {
		return err
	}
	return w.Flush()
}

// SendHeaders assembles and writes the status line and response headers,
// applying the following framing rules:
//
//   - 1xx/204/205/304 never carry a message body: Content-Length is
//     stripped and chunked framing is never applied.
//   - otherwise, if no Content-Length was set by the gateway: HTTP/1.1
//     non-HEAD responses switch to chunked transfer-encoding; everything
//     else must close the connection to signal end-of-body.
//   - the Connection header is added to match the negotiated persistence:
//     "close" on HTTP/1.1 when closing, "Keep-Alive" on HTTP/1.0 when not.
//   - Date and Server headers are filled in if the gateway didn't set them.
//   - any unread request body is drained first so a pipelined next request
//     can be parsed off the same connection.
func (r *Request) SendHeaders() error {
	if r.sentHeaders {
		return nil
	}
	r.sentHeaders = true

	code, normalized, err := parseStatus(r.Status)
	if err != nil {
		code = 500
		normalized = "500 Illegal Status"
	}
	r.statusCode = code

	r.noMessageBody = code < 200 || code == 204 || code == 205 || code == 304
	if r.noMessageBody {
		r.OutHeaders.Del("Content-Length")
	} else if _, ok := r.OutHeaders.Get("Content-Length"); !ok {
		if r.ResponseProtocol.atLeast11() && r.Method != "HEAD" {
			r.chunkedWrite = true
			r.OutHeaders.Set("Transfer-Encoding", "chunked")
		} else {
			r.closeConnection = true
		}
	}

	if r.ResponseProtocol.atLeast11() {
		if r.closeConnection && !r.OutHeaders.Has("Connection") {
			r.OutHeaders.Add("Connection", "close")
		}
	} else if !r.closeConnection {
		r.OutHeaders.Set("Connection", "Keep-Alive")
	}

	if !r.OutHeaders.Has("Date") {
		r.OutHeaders.Add("Date", httpDate())
	}
	if name := r.server.serverName(); name != "" && !r.OutHeaders.Has("Server") {
		r.OutHeaders.Add("Server", name)
	}

	if r.Body != nil {
		_ = r.Body.Close()
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	buf.WriteString(r.ResponseProtocol.String())
	buf.WriteString(" ")
	buf.WriteString(normalized)
	buf.WriteString("\r\n")
	for _, f := range r.OutHeaders {
		buf.WriteString(f.Name)
		buf.WriteString(": ")
		buf.WriteString(f.Value)
		buf.WriteString("\r\n")
	}
	buf.WriteString("\r\n")

	if err := r.conn.writer.WriteAll(buf.B); err != nil {
		return err
	}
	return r.conn.writer.Flush()
}

// Write sends a chunk of response body, sending headers first if they
// haven't been sent yet. Writes after a no-body status are silently
// discarded.
func (r *Request) Write(chunk []byte) (int, error) {
	if !r.sentHeaders {
		if err := r.SendHeaders(); err != nil {
			return 0, err
		}
	}
	if r.noMessageBody || len(chunk) == 0 {
		return 0, nil
	}
	if r.chunkedWrite {
		return r.writeChunk(chunk)
	}
	if err := r.conn.writer.WriteAll(chunk); err != nil {
		return 0, err
	}
	return len(chunk), nil
}

func (r *Request) writeChunk(chunk []byte) (int, error) {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	buf.B = writeHexInt(buf.B, len(chunk))
	buf.WriteString("\r\n")
	buf.Write(chunk)
	buf.WriteString("\r\n")
	if err := r.conn.writer.WriteAll(buf.B); err != nil {
		return 0, err
	}
	return len(chunk), nil
}

// Finish completes the response: sending headers if the gateway never
// wrote a body, and terminating chunked framing with the zero-size final
// chunk.
func (r *Request) Finish() error {
	if !r.sentHeaders {
		if err := r.SendHeaders(); err != nil {
			return err
		}
	}
	if r.chunkedWrite {
		if err := r.conn.writer.WriteAll([]byte("0\r\n\r\n")); err != nil {
			return err
		}
	}
	return r.conn.writer.Flush()
}

// SimpleResponse sends a minimal canned response with a plain-text body,
// for use before or instead of invoking the gateway (400 Bad Request, 408
// Request Timeout, 500 Internal Server Error, and so on). 413 and 414
// force the connection closed — there is no way to safely keep reading
// framing-recovered bytes after a too-large request — and since HTTP/1.0
// has no 413/414 status codes of its own, a 1.0 response is downgraded to
// 400 Bad Request.
func (r *Request) SimpleResponse(code int, message string) error {
	if r.sentHeaders {
		return nil
	}

	if code == 413 || code == 414 {
		r.closeConnection = true
		if !r.ResponseProtocol.atLeast11() {
			code = 400
			message = "Bad Request"
		}
	}

	r.Status = strconv.Itoa(code) + " " + message
	body := []byte(message)
	r.OutHeaders = OutHeaders{}
	r.OutHeaders.Add("Content-Length", strconv.Itoa(len(body)))
	r.OutHeaders.Add("Content-Type", "text/plain; charset=utf-8")
	if err := r.SendHeaders(); err != nil {
		return err
	}
	if len(body) == 0 || r.noMessageBody {
		return nil
	}
	if err := r.conn.writer.WriteAll(body); err != nil {
		return err
	}
	return r.conn.writer.Flush()
}

// errConnectionClosed signals a clean EOF while waiting for the next
// request line on a persistent connection — not an error condition, just
// the end of the connection's lifetime.
var errConnectionClosed = &connectionClosedError{}

type connectionClosedError struct{}

func (*connectionClosedError) Error() string { return "httpd: connection closed" }
