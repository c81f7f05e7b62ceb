package httpd

import "strings"

// RequestURI is the parsed form of a request-line's Request-URI, covering
// all four forms RFC 7230 section 5.3 allows: origin-form, absolute-form,
// authority-form (CONNECT), and asterisk-form.
type RequestURI struct {
	Raw       string
	Scheme    string
	Authority string
	// Path is the decoded path. A %2F (any case) escape is left exactly
	// as the client sent it rather than decoded to '/', so a gateway can
	// distinguish an encoded slash from a path separator. Every other
	// %HH escape is decoded.
	Path string
	// Query is the raw, undecoded query string (without the leading '?').
	Query string
}

// ParseRequestURI parses a request-line's Request-URI. It rejects a
// fragment component outright (RFC 7230 forbids "#" in a Request-URI) and
// preserves the query string undecoded; only the path component is
// percent-decoded, with %2F preserved literally.
func ParseRequestURI(uri string) (*RequestURI, error) {
	if uri == "" {
		return nil, ErrFraming
	}
	if strings.IndexByte(uri, '#') >= 0 {
		return nil, ErrFraming
	}
	if uri == "*" {
		return &RequestURI{Raw: uri, Path: "*"}, nil
	}

	scheme, authority, pathPart := splitURIForm(uri)

	query := ""
	if i := strings.IndexByte(pathPart, '?'); i >= 0 {
		query = pathPart[i+1:]
		pathPart = pathPart[:i]
	}

	path, err := decodePathPreservingEncodedSlash(pathPart)
	if err != nil {
		return nil, err
	}

	return &RequestURI{Raw: uri, Scheme: scheme, Authority: authority, Path: path, Query: query}, nil
}

// splitURIForm classifies uri into scheme/authority/path per RFC 7230
// section 5.3: absolute-form (scheme://authority[/path]), authority-form
// (bare "host:port", used only with CONNECT), or origin-form (abs_path
// starting with '/').
func splitURIForm(uri string) (scheme, authority, path string) {
	if i := strings.Index(uri, "://"); i > 0 && isValidScheme(uri[:i]) {
		scheme = uri[:i]
		rest := uri[i+3:]
		if j := strings.IndexByte(rest, '/'); j >= 0 {
			return scheme, rest[:j], rest[j:]
		}
		return scheme, rest, "/"
	}

	if strings.HasPrefix(uri, "/") {
		return "", "", uri
	}

	// authority-form: no slash anywhere, a colon separating host and port.
	if !strings.Contains(uri, "/") && strings.Contains(uri, ":") {
		return "", uri, ""
	}

	return "", "", uri
}

func isValidScheme(s string) bool {
	if s == "" {
		return false
	}
	c := s[0]
	if !(('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')) {
		return false
	}
	for i := 1; i < len(s); i++ {
		c := s[i]
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9',
			c == '+', c == '-', c == '.':
		default:
			return false
		}
	}
	return true
}

// decodePathPreservingEncodedSlash percent-decodes s, leaving any %2F/%2f
// escape untouched (case as received) instead of resolving it to '/'.
func decodePathPreservingEncodedSlash(s string) (string, error) {
	if strings.IndexByte(s, '%') < 0 {
		return s, nil
	}
	var out []byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '%' {
			out = append(out, c)
			continue
		}
		if i+2 >= len(s) {
			return "", ErrFraming
		}
		h1, h2 := s[i+1], s[i+2]
		if (h1 == '2') && (h2 == 'f' || h2 == 'F') {
			out = append(out, '%', h1, h2)
			i += 2
			continue
		}
		v, ok := decodeHexByte(h1, h2)
		if !ok {
			return "", ErrFraming
		}
		out = append(out, v)
		i += 2
	}
	return string(out), nil
}

func decodeHexByte(h1, h2 byte) (byte, bool) {
	hi, lo := hex2intTable[h1], hex2intTable[h2]
	if hi == 16 || lo == 16 {
		return 0, false
	}
	return hi<<4 | lo, true
}
