// Package httpd implements the core of an HTTP/1.x server engine: an
// acceptor/worker-pool loop that turns raw stream sockets into parsed
// Request values and hands them to an application-supplied Gateway.
//
// httpd does not route URLs, decode bodies, or manage sessions. It parses
// HTTP/1.0 and HTTP/1.1 request lines and headers, enforces size limits,
// supports persistent connections and pipelining, decodes chunked request
// bodies, and frames chunked response bodies.
package httpd
