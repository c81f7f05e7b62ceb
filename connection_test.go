package httpd

import (
	"bufio"
	"io"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"
)

func echoGateway() Gateway {
	return GatewayFunc(func(req *Request) Responder {
		return ResponderFunc(func(req *Request) error {
			req.Status = "200 OK"
			body := []byte(req.Method + " " + req.URI.Path)
			req.OutHeaders.Add("Content-Length", strconv.Itoa(len(body)))
			req.OutHeaders.Add("Content-Type", "text/plain")
			_, err := req.Write(body)
			return err
		})
	})
}

func newTestConnection(t *testing.T, gw Gateway) (client net.Conn, server *Server) {
	t.Helper()
	clientConn, serverConn := net.Pipe()
	server = &Server{Gateway: gw, Protocol: ProtocolVersion{1, 1}}
	conn := newConnection(serverConn, server, nil)
	go conn.Communicate()
	t.Cleanup(func() { clientConn.Close() })
	return clientConn, server
}

func readResponseLine(t *testing.T, r *bufio.Reader) string {
	t.Helper()
	line, err := r.ReadString('\n')
	if err != nil {
		t.Fatalf("reading status line: %v", err)
	}
	return strings.TrimRight(line, "\r\n")
}

func readResponseHeaders(t *testing.T, r *bufio.Reader) map[string]string {
	t.Helper()
	headers := map[string]string{}
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("reading headers: %v", err)
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			return headers
		}
		idx := strings.IndexByte(line, ':')
		if idx < 0 {
			t.Fatalf("malformed header line %q", line)
		}
		headers[strings.TrimSpace(line[:idx])] = strings.TrimSpace(line[idx+1:])
	}
}

func TestCommunicateSingleRequest(t *testing.T) {
	client, _ := newTestConnection(t, echoGateway())
	client.SetDeadline(time.Now().Add(5 * time.Second))

	_, err := client.Write([]byte("GET /hello HTTP/1.1\r\nHost: x\r\nConnection: close\r\n\r\n"))
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	r := bufio.NewReader(client)
	status := readResponseLine(t, r)
	if status != "HTTP/1.1 200 OK" {
		t.Fatalf("status = %q", status)
	}
	headers := readResponseHeaders(t, r)
	n, _ := strconv.Atoi(headers["Content-Length"])
	body := make([]byte, n)
	if _, err := readFull(r, body); err != nil {
		t.Fatalf("reading body: %v", err)
	}
	if string(body) != "GET /hello" {
		t.Fatalf("body = %q", body)
	}
}

func TestCommunicatePipelinedRequests(t *testing.T) {
	client, _ := newTestConnection(t, echoGateway())
	client.SetDeadline(time.Now().Add(5 * time.Second))

	req := "GET /one HTTP/1.1\r\nHost: x\r\n\r\n" +
		"GET /two HTTP/1.1\r\nHost: x\r\nConnection: close\r\n\r\n"
	if _, err := client.Write([]byte(req)); err != nil {
		t.Fatalf("write: %v", err)
	}

	r := bufio.NewReader(client)
	for _, want := range []string{"GET /one", "GET /two"} {
		status := readResponseLine(t, r)
		if status != "HTTP/1.1 200 OK" {
			t.Fatalf("status = %q", status)
		}
		headers := readResponseHeaders(t, r)
		n, _ := strconv.Atoi(headers["Content-Length"])
		body := make([]byte, n)
		if _, err := readFull(r, body); err != nil {
			t.Fatalf("reading body: %v", err)
		}
		if string(body) != want {
			t.Fatalf("body = %q, want %q", body, want)
		}
	}
}

func TestCommunicateChunkedRequestBody(t *testing.T) {
	gw := GatewayFunc(func(req *Request) Responder {
		return ResponderFunc(func(req *Request) error {
			body, err := readAllBody(req.Body)
			if err != nil {
				return err
			}
			req.Status = "200 OK"
			req.OutHeaders.Add("Content-Length", strconv.Itoa(len(body)))
			_, err = req.Write(body)
			return err
		})
	})
	client, _ := newTestConnection(t, gw)
	client.SetDeadline(time.Now().Add(5 * time.Second))

	reqLine := "POST /upload HTTP/1.1\r\nHost: x\r\nTransfer-Encoding: chunked\r\nConnection: close\r\n\r\n"
	chunked := "4\r\nWiki\r\n5\r\npedia\r\n0\r\n\r\n"
	if _, err := client.Write([]byte(reqLine + chunked)); err != nil {
		t.Fatalf("write: %v", err)
	}

	r := bufio.NewReader(client)
	status := readResponseLine(t, r)
	if status != "HTTP/1.1 200 OK" {
		t.Fatalf("status = %q", status)
	}
	headers := readResponseHeaders(t, r)
	n, _ := strconv.Atoi(headers["Content-Length"])
	body := make([]byte, n)
	if _, err := readFull(r, body); err != nil {
		t.Fatalf("reading body: %v", err)
	}
	if string(body) != "Wikipedia" {
		t.Fatalf("body = %q", body)
	}
}

func readFull(r *bufio.Reader, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func readAllBody(b BoundedReader) ([]byte, error) {
	var out []byte
	buf := make([]byte, 256)
	for {
		n, err := b.Read(buf)
		out = append(out, buf[:n]...)
		if err != nil {
			if err == io.EOF {
				return out, nil
			}
			return out, err
		}
	}
}
