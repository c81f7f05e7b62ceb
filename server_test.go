package httpd

import (
	"bufio"
	"net"
	"strconv"
	"testing"
	"time"
)

// TestHandleAcceptErrorWritesNoSSLResponse covers scenario S6: a plaintext
// client on a TLS-only port gets a raw 400 Bad Request explaining the
// server only speaks HTTPS here, instead of just a dropped connection.
func TestHandleAcceptErrorWritesNoSSLResponse(t *testing.T) {
	client, srv := net.Pipe()
	defer client.Close()

	s := &Server{Protocol: ProtocolVersion{1, 1}}
	go s.handleAcceptError(srv, &NoSSLError{})

	client.SetDeadline(time.Now().Add(5 * time.Second))
	r := bufio.NewReader(client)

	status := readResponseLine(t, r)
	if status != "HTTP/1.1 400 Bad Request" {
		t.Fatalf("status = %q", status)
	}
	headers := readResponseHeaders(t, r)

	n, err := strconv.Atoi(headers["Content-Length"])
	if err != nil {
		t.Fatalf("Content-Length header missing or malformed: %v", headers)
	}
	body := make([]byte, n)
	if _, err := readFull(r, body); err != nil {
		t.Fatalf("reading body: %v", err)
	}
	if string(body) != noSSLMessage {
		t.Fatalf("body = %q, want %q", body, noSSLMessage)
	}
}
