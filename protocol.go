package httpd

import (
	"strconv"
	"strings"
)

// ProtocolVersion is an HTTP major.minor version pair.
type ProtocolVersion struct {
	Major int
	Minor int
}

func (v ProtocolVersion) String() string {
	return "HTTP/" + strconv.Itoa(v.Major) + "." + strconv.Itoa(v.Minor)
}

// atLeast11 reports whether v is HTTP/1.1 or newer within the 1.x line.
func (v ProtocolVersion) atLeast11() bool {
	return v.Major > 1 || (v.Major == 1 && v.Minor >= 1)
}

// parseProtocolVersion parses a request-line or status-line protocol token
// such as "HTTP/1.1".
func parseProtocolVersion(s string) (ProtocolVersion, error) {
	if !strings.HasPrefix(s, "HTTP/") {
		return ProtocolVersion{}, ErrFraming
	}
	rest := s[len("HTTP/"):]
	dot := strings.IndexByte(rest, '.')
	if dot < 0 {
		return ProtocolVersion{}, ErrFraming
	}
	major, err := strconv.Atoi(rest[:dot])
	if err != nil {
		return ProtocolVersion{}, ErrFraming
	}
	minor, err := strconv.Atoi(rest[dot+1:])
	if err != nil {
		return ProtocolVersion{}, ErrFraming
	}
	return ProtocolVersion{Major: major, Minor: minor}, nil
}

// negotiateProtocol picks the response protocol version as the lexicographic
// minimum of the request's and the server's. A differing major version is
// not negotiable and maps to 505 HTTP Version Not Supported.
func negotiateProtocol(req, srv ProtocolVersion) (ProtocolVersion, error) {
	if req.Major != srv.Major {
		return ProtocolVersion{}, ErrVersionNotSupported
	}
	if req.Minor < srv.Minor {
		return req, nil
	}
	return srv, nil
}
