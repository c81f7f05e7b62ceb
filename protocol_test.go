package httpd

import "testing"

func TestParseProtocolVersion(t *testing.T) {
	v, err := parseProtocolVersion("HTTP/1.1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Major != 1 || v.Minor != 1 {
		t.Fatalf("got %+v", v)
	}
	if v.String() != "HTTP/1.1" {
		t.Fatalf("String() = %q", v.String())
	}
}

func TestParseProtocolVersionRejectsGarbage(t *testing.T) {
	if _, err := parseProtocolVersion("FOO/1.1"); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := parseProtocolVersion("HTTP/1"); err == nil {
		t.Fatalf("expected error for missing minor version")
	}
}

func TestNegotiateProtocolTakesMinimum(t *testing.T) {
	v, err := negotiateProtocol(ProtocolVersion{1, 0}, ProtocolVersion{1, 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Minor != 0 {
		t.Fatalf("expected HTTP/1.0, got %+v", v)
	}

	v, err = negotiateProtocol(ProtocolVersion{1, 1}, ProtocolVersion{1, 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Minor != 1 {
		t.Fatalf("expected HTTP/1.1, got %+v", v)
	}
}

func TestNegotiateProtocolRejectsMajorMismatch(t *testing.T) {
	if _, err := negotiateProtocol(ProtocolVersion{2, 0}, ProtocolVersion{1, 1}); err != ErrVersionNotSupported {
		t.Fatalf("expected ErrVersionNotSupported, got %v", err)
	}
}
