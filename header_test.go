package httpd

import (
	"strings"
	"testing"
)

func TestTitleCase(t *testing.T) {
	tests := map[string]string{
		"content-type":      "Content-Type",
		"CONTENT-LENGTH":    "Content-Length",
		"x-forwarded-for":   "X-Forwarded-For",
		"te":                "Te",
		"host":              "Host",
	}
	for in, want := range tests {
		if got := titleCase(in); got != want {
			t.Errorf("titleCase(%q) = %q, want %q", in, got, want)
		}
	}
}

func parseTestHeaders(t *testing.T, raw string) InHeaders {
	t.Helper()
	wr := NewWireReader(strings.NewReader(raw), 0)
	sc := NewSizeCheckReader(wr, 64*1024)
	headers, err := NewHeaderParser(sc).Parse()
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	return headers
}

func TestHeaderParserBasic(t *testing.T) {
	h := parseTestHeaders(t, "Host: example.com\r\nContent-Length: 5\r\n\r\n")
	if h.Get("host") != "example.com" {
		t.Errorf("Host = %q", h.Get("host"))
	}
	if h.Get("Content-Length") != "5" {
		t.Errorf("Content-Length = %q", h.Get("Content-Length"))
	}
}

func TestHeaderParserContinuationLineAppends(t *testing.T) {
	h := parseTestHeaders(t, "X-Custom: first\r\n  second\r\n\r\n")
	if h.Get("X-Custom") != "first second" {
		t.Errorf("X-Custom = %q, want %q", h.Get("X-Custom"), "first second")
	}
}

func TestHeaderParserCommaFoldsRepeatedHeader(t *testing.T) {
	h := parseTestHeaders(t, "Accept: text/html\r\nAccept: application/json\r\n\r\n")
	want := "text/html, application/json"
	if h.Get("Accept") != want {
		t.Errorf("Accept = %q, want %q", h.Get("Accept"), want)
	}
}

// TestHeaderParserCommaFoldsMixedCaseNames guards against commaFoldHeaders
// being keyed with a casing titleCase never produces: "TE" and
// "WWW-Authenticate" normalize to "Te" and "Www-Authenticate".
func TestHeaderParserCommaFoldsMixedCaseNames(t *testing.T) {
	h := parseTestHeaders(t, "TE: gzip\r\nTE: trailers\r\nWWW-Authenticate: Basic\r\nWWW-Authenticate: Digest\r\n\r\n")
	if got, want := h.Get("TE"), "gzip, trailers"; got != want {
		t.Errorf("TE = %q, want %q", got, want)
	}
	if got, want := h.Get("WWW-Authenticate"), "Basic, Digest"; got != want {
		t.Errorf("WWW-Authenticate = %q, want %q", got, want)
	}
}

func TestHeaderParserNonFoldableOverwrites(t *testing.T) {
	h := parseTestHeaders(t, "Host: first.example\r\nHost: second.example\r\n\r\n")
	if h.Get("Host") != "second.example" {
		t.Errorf("Host = %q, want second.example", h.Get("Host"))
	}
}

func TestHeaderParserRejectsMissingColon(t *testing.T) {
	wr := NewWireReader(strings.NewReader("NotAHeaderLine\r\n\r\n"), 0)
	sc := NewSizeCheckReader(wr, 64*1024)
	if _, err := NewHeaderParser(sc).Parse(); err != ErrFraming {
		t.Fatalf("expected ErrFraming, got %v", err)
	}
}

func TestHeaderParserRejectsLeadingContinuation(t *testing.T) {
	wr := NewWireReader(strings.NewReader(" leading continuation\r\n\r\n"), 0)
	sc := NewSizeCheckReader(wr, 64*1024)
	if _, err := NewHeaderParser(sc).Parse(); err != ErrFraming {
		t.Fatalf("expected ErrFraming, got %v", err)
	}
}

func TestOutHeadersSetReplacesFirstAndDropsRest(t *testing.T) {
	var h OutHeaders
	h.Add("X-A", "1")
	h.Add("X-B", "2")
	h.Add("X-A", "3")
	h.Set("X-A", "final")

	got := []string{}
	for _, f := range h {
		got = append(got, f.Name+"="+f.Value)
	}
	want := []string{"X-A=final", "X-B=2"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestOutHeadersDel(t *testing.T) {
	var h OutHeaders
	h.Add("X-A", "1")
	h.Add("X-B", "2")
	h.Add("X-A", "3")
	h.Del("X-A")
	if h.Has("X-A") {
		t.Fatalf("X-A should be removed")
	}
	if !h.Has("X-B") {
		t.Fatalf("X-B should remain")
	}
}
