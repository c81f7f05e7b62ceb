package httpd

import (
	"bytes"
	"io"

	"github.com/valyala/bytebufferpool"
)

// BoundedReader is the uniform body-reading contract a Request installs
// before invoking a Gateway: Read drains the decoded body, ReadLine/
// ReadLines give line-oriented access for gateways that want it, BytesRead
// reports the decoded byte count, and Close drains any unread remainder so
// a pipelined connection can move on to the next request.
//
// Exactly one of KnownLengthReader or ChunkedReader is installed as a
// Request's body reader, never SizeCheckReader — that one guards only the
// start-line/header phase.
type BoundedReader interface {
	Read(p []byte) (int, error)
	ReadLine(limit int) ([]byte, error)
	ReadLines(hint int) ([][]byte, error)
	BytesRead() int64
	Close() error
}

// SizeCheckReader caps the total bytes consumed from r and reports
// MaxSizeExceededError once that cap is crossed. It is used only for the
// request-line + header phase, installed over the connection's raw
// WireReader before a single byte of the start line is read. ReadLine with
// no explicit limit chunks in 256-byte pieces rather than reading an
// unbounded line in one call, so a client that never sends LF still gets
// bounded per-call memory use.
type SizeCheckReader struct {
	r         rawReader
	maxlen    int64
	bytesRead int64
}

// NewSizeCheckReader wraps r, capping cumulative reads at maxlen bytes.
// maxlen <= 0 means unlimited.
func NewSizeCheckReader(r rawReader, maxlen int64) *SizeCheckReader {
	return &SizeCheckReader{r: r, maxlen: maxlen}
}

// BytesRead returns the cumulative bytes consumed so far.
func (s *SizeCheckReader) BytesRead() int64 { return s.bytesRead }

func (s *SizeCheckReader) checkLimit() error {
	if s.maxlen > 0 && s.bytesRead > s.maxlen {
		return &MaxSizeExceededError{Limit: s.maxlen}
	}
	return nil
}

// Read reads up to len(p) bytes, erroring once the cumulative cap is
// exceeded.
func (s *SizeCheckReader) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	s.bytesRead += int64(n)
	if lerr := s.checkLimit(); lerr != nil {
		return n, lerr
	}
	return n, err
}

// sizeCheckChunk is the per-call chunk size SizeCheckReader's unlimited
// ReadLine uses.
const sizeCheckChunk = 256

// ReadLine reads a line, bounded by limit if positive. limit <= 0 reads the
// line in 256-byte chunks so a pathological client cannot force an
// unbounded single allocation.
func (s *SizeCheckReader) ReadLine(limit int) ([]byte, error) {
	if limit > 0 {
		line, err := s.r.ReadLine(limit)
		s.bytesRead += int64(len(line))
		if lerr := s.checkLimit(); lerr != nil {
			return line, lerr
		}
		return line, err
	}

	var all []byte
	for {
		chunk, err := s.r.ReadLine(sizeCheckChunk)
		s.bytesRead += int64(len(chunk))
		all = append(all, chunk...)
		if lerr := s.checkLimit(); lerr != nil {
			return all, lerr
		}
		if err != nil {
			return all, err
		}
		if len(chunk) == 0 {
			return all, nil
		}
		if chunk[len(chunk)-1] == '\n' {
			return all, nil
		}
		if len(chunk) < sizeCheckChunk {
			return all, nil
		}
	}
}

// KnownLengthReader clamps reads to a declared Content-Length, reporting
// io.EOF once that many bytes have been delivered regardless of how much
// more data the client sends.
type KnownLengthReader struct {
	r         rawReader
	remaining int64
	bytesRead int64
}

// NewKnownLengthReader wraps r, exposing exactly contentLength bytes.
func NewKnownLengthReader(r rawReader, contentLength int64) *KnownLengthReader {
	return &KnownLengthReader{r: r, remaining: contentLength}
}

func (k *KnownLengthReader) BytesRead() int64 { return k.bytesRead }

func (k *KnownLengthReader) Read(p []byte) (int, error) {
	if k.remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > k.remaining {
		p = p[:k.remaining]
	}
	n, err := k.r.Read(p)
	k.remaining -= int64(n)
	k.bytesRead += int64(n)
	return n, err
}

func (k *KnownLengthReader) ReadLine(limit int) ([]byte, error) {
	if k.remaining <= 0 {
		return nil, io.EOF
	}
	if limit <= 0 || int64(limit) > k.remaining {
		limit = int(k.remaining)
	}
	line, err := k.r.ReadLine(limit)
	k.remaining -= int64(len(line))
	k.bytesRead += int64(len(line))
	return line, err
}

func (k *KnownLengthReader) ReadLines(hint int) ([][]byte, error) {
	var lines [][]byte
	total := 0
	for k.remaining > 0 {
		line, err := k.ReadLine(0)
		if len(line) > 0 {
			lines = append(lines, line)
			total += len(line)
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return lines, err
		}
		if len(line) == 0 {
			break
		}
		if hint > 0 && total >= hint {
			break
		}
	}
	return lines, nil
}

// Close drains any unread bytes of the declared body so the connection can
// be reused for a pipelined next request.
func (k *KnownLengthReader) Close() error {
	buf := make([]byte, 8192)
	for k.remaining > 0 {
		_, err := k.Read(buf)
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
	return nil
}

// ChunkedReader decodes an HTTP chunked-transfer-coded body: a sequence of
// "<hex-size>[;ext]\r\n<size bytes>\r\n" chunks terminated by a zero-size
// chunk and an optional trailer header block. Chunk-extensions are
// ignored, the trailing CRLF of each chunk is validated, and maxlen is
// enforced against the running decoded total.
type ChunkedReader struct {
	r         rawReader
	maxlen    int64
	bytesRead int64
	buf       *bytebufferpool.ByteBuffer
	closed    bool
	trailers  [][]byte
}

// NewChunkedReader wraps r, decoding a chunked body and enforcing maxlen
// (<=0 means unlimited) against the cumulative decoded size.
func NewChunkedReader(r rawReader, maxlen int64) *ChunkedReader {
	return &ChunkedReader{r: r, maxlen: maxlen, buf: bytebufferpool.Get()}
}

func (c *ChunkedReader) BytesRead() int64 { return c.bytesRead }

// Trailers returns the raw trailer header lines read after the terminating
// zero-size chunk, valid only after the body has been fully consumed.
func (c *ChunkedReader) Trailers() [][]byte { return c.trailers }

func trimCRLF(b []byte) []byte {
	return bytes.TrimRight(b, "\r\n")
}

func (c *ChunkedReader) fetchChunk() error {
	line, err := c.r.ReadLine(0)
	if err != nil {
		return err
	}
	line = trimCRLF(line)
	if idx := bytes.IndexByte(line, ';'); idx >= 0 {
		line = line[:idx]
	}
	size, n, err := readHexInt(line)
	if err != nil || n == 0 {
		return ErrFraming
	}
	if size == 0 {
		for {
			tline, err := c.r.ReadLine(0)
			if err != nil {
				return err
			}
			if len(trimCRLF(tline)) == 0 {
				break
			}
			c.trailers = append(c.trailers, append([]byte(nil), tline...))
		}
		c.closed = true
		return io.EOF
	}
	if c.maxlen > 0 && c.bytesRead+int64(size) > c.maxlen {
		return &MaxSizeExceededError{Limit: c.maxlen}
	}
	chunk := make([]byte, size+2)
	if _, err := io.ReadFull(c.r, chunk); err != nil {
		return err
	}
	if chunk[size] != '\r' || chunk[size+1] != '\n' {
		return ErrBadTrailer
	}
	c.buf.Reset()
	c.buf.Write(chunk[:size])
	c.bytesRead += int64(size)
	return nil
}

func (c *ChunkedReader) Read(p []byte) (int, error) {
	for c.buf.Len() == 0 {
		if c.closed {
			return 0, io.EOF
		}
		if err := c.fetchChunk(); err != nil {
			if err == io.EOF {
				return 0, io.EOF
			}
			return 0, err
		}
	}
	n := copy(p, c.buf.B)
	c.buf.B = c.buf.B[n:]
	return n, nil
}

// ReadLine reads up to and including the next LF in the decoded body, or up
// to limit bytes if limit > 0.
func (c *ChunkedReader) ReadLine(limit int) ([]byte, error) {
	var line []byte
	var b [1]byte
	for {
		n, err := c.Read(b[:])
		if n == 1 {
			line = append(line, b[0])
			if b[0] == '\n' {
				return line, nil
			}
			if limit > 0 && len(line) >= limit {
				return line, nil
			}
		}
		if err != nil {
			if err == io.EOF {
				return line, nil
			}
			return line, err
		}
	}
}

func (c *ChunkedReader) ReadLines(hint int) ([][]byte, error) {
	var lines [][]byte
	total := 0
	for {
		line, err := c.ReadLine(0)
		if err != nil {
			return lines, err
		}
		if len(line) == 0 {
			break
		}
		lines = append(lines, line)
		total += len(line)
		if hint > 0 && total >= hint {
			break
		}
	}
	return lines, nil
}

// Close drains any remaining chunks and the trailer block, releasing the
// pooled scratch buffer, so a pipelined connection can proceed to the
// next request.
func (c *ChunkedReader) Close() error {
	buf := make([]byte, 8192)
	for {
		_, err := c.Read(buf)
		if err != nil {
			bytebufferpool.Put(c.buf)
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}
