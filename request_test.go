package httpd

import (
	"strings"
	"testing"
)

func parseTestRequestLine(t *testing.T, raw string) (*Request, error) {
	t.Helper()
	wr := NewWireReader(strings.NewReader(raw), 0)
	sc := NewSizeCheckReader(wr, 64*1024)
	req := &Request{server: &Server{}}
	err := req.ParseRequestLine(sc)
	return req, err
}

func TestParseRequestLineBasic(t *testing.T) {
	req, err := parseTestRequestLine(t, "GET /foo HTTP/1.1\r\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Method != "GET" || req.URI.Path != "/foo" {
		t.Fatalf("got method=%q path=%q", req.Method, req.URI.Path)
	}
}

func TestParseRequestLineToleratesOneLeadingBareCRLF(t *testing.T) {
	req, err := parseTestRequestLine(t, "\r\nGET /foo HTTP/1.1\r\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Method != "GET" || req.URI.Path != "/foo" {
		t.Fatalf("got method=%q path=%q", req.Method, req.URI.Path)
	}
}

func TestParseRequestLineRejectsTwoLeadingBareCRLFs(t *testing.T) {
	_, err := parseTestRequestLine(t, "\r\n\r\nGET /foo HTTP/1.1\r\n")
	if err != ErrFraming {
		t.Fatalf("expected ErrFraming for a second leading bare CRLF, got %v", err)
	}
}
