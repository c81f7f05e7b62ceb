package httpd

import (
	"bytes"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// commaFoldHeaders is the set of header names for which a repeated
// occurrence is folded into the existing value via ", " rather than
// overwriting it — RFC 7230's list of fields defined as a comma-separated
// list.
var commaFoldHeaders = map[string]bool{
	"Accept":              true,
	"Accept-Charset":      true,
	"Accept-Encoding":     true,
	"Accept-Language":     true,
	"Accept-Ranges":       true,
	"Allow":               true,
	"Cache-Control":       true,
	"Connection":          true,
	"Content-Encoding":    true,
	"Content-Language":    true,
	"Expect":              true,
	"If-Match":            true,
	"If-None-Match":       true,
	"Pragma":              true,
	"Proxy-Authenticate":  true,
	"Te":                  true,
	"Trailer":             true,
	"Transfer-Encoding":   true,
	"Upgrade":             true,
	"Vary":                true,
	"Via":                 true,
	"Warning":             true,
	"Www-Authenticate":    true,
}

// titleCase title-cases an HTTP header name in place: the byte after the
// start of the string and after every '-' is upper-cased, every other byte
// is lower-cased.
func titleCase(name string) string {
	b := []byte(name)
	upper := true
	for i, c := range b {
		if upper && 'a' <= c && c <= 'z' {
			b[i] = c - ('a' - 'A')
		} else if !upper && 'A' <= c && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
		upper = c == '-'
	}
	return string(b)
}

// InHeaders is the inbound request-header multimap: title-cased name to
// folded value. Repeated comma-foldable headers are joined with ", "; a
// second occurrence of a non-foldable header overwrites the first.
type InHeaders map[string]string

// Get looks up a header by name, case-insensitively.
func (h InHeaders) Get(name string) string {
	return h[titleCase(name)]
}

// HeaderField is a single outbound header line, preserving insertion order
// and permitting repeated names.
type HeaderField struct {
	Name  string
	Value string
}

// OutHeaders is the outbound response-header sequence. Order is
// significant and duplicates are permitted.
type OutHeaders []HeaderField

// Add appends a header, title-casing name, without checking for an
// existing occurrence.
func (h *OutHeaders) Add(name, value string) {
	*h = append(*h, HeaderField{Name: titleCase(name), Value: value})
}

// Get returns the value of the first header matching name, case-
// insensitively.
func (h OutHeaders) Get(name string) (string, bool) {
	tc := titleCase(name)
	for _, f := range h {
		if f.Name == tc {
			return f.Value, true
		}
	}
	return "", false
}

// Has reports whether any header matches name, case-insensitively.
func (h OutHeaders) Has(name string) bool {
	_, ok := h.Get(name)
	return ok
}

// Set replaces the first occurrence of name with value, removing any
// further occurrences; if name is absent it is appended.
func (h *OutHeaders) Set(name, value string) {
	tc := titleCase(name)
	out := (*h)[:0]
	set := false
	for _, f := range *h {
		if f.Name == tc {
			if !set {
				out = append(out, HeaderField{Name: tc, Value: value})
				set = true
			}
			continue
		}
		out = append(out, f)
	}
	if !set {
		out = append(out, HeaderField{Name: tc, Value: value})
	}
	*h = out
}

// Del removes every occurrence of name, case-insensitively.
func (h *OutHeaders) Del(name string) {
	tc := titleCase(name)
	out := (*h)[:0]
	for _, f := range *h {
		if f.Name != tc {
			out = append(out, f)
		}
	}
	*h = out
}

// HeaderParser reads a block of RFC 7230 header-field lines, terminated by
// a bare CRLF, into an InHeaders multimap. The previous header's key is
// always tracked explicitly across iterations so a continuation line folds
// into the right value, never an ambiguous loop variable.

// lineReader is the minimal contract HeaderParser needs: line-at-a-time
// reads with an explicit chunking limit. SizeCheckReader satisfies this
// directly; BoundedReader satisfies it too, so a header block can in
// principle be parsed from either.
type lineReader interface {
	ReadLine(limit int) ([]byte, error)
}

type HeaderParser struct {
	r lineReader
}

// NewHeaderParser wraps r (in practice a connection's SizeCheckReader for
// the header phase) for header-block parsing.
func NewHeaderParser(r lineReader) *HeaderParser {
	return &HeaderParser{r: r}
}

// Parse reads header lines until a bare CRLF, returning the accumulated
// headers. It returns ErrFraming for a line with no colon and no leading
// whitespace, or for a header name that fails RFC 7230 token syntax.
func (p *HeaderParser) Parse() (InHeaders, error) {
	headers := make(InHeaders)
	var lastKey string

	for {
		lineBytes, err := p.r.ReadLine(0)
		if err != nil {
			return headers, err
		}
		line := trimCRLF(lineBytes)
		if len(line) == 0 {
			return headers, nil
		}

		if lineBytes[0] == ' ' || lineBytes[0] == '\t' {
			if lastKey == "" {
				return headers, ErrFraming
			}
			v := strings.TrimSpace(string(line))
			headers[lastKey] = headers[lastKey] + " " + v
			continue
		}

		idx := bytes.IndexByte(line, ':')
		if idx < 0 {
			return headers, ErrFraming
		}
		rawName := strings.TrimSpace(string(line[:idx]))
		value := strings.TrimSpace(string(line[idx+1:]))
		if rawName == "" || !httpguts.ValidHeaderFieldName(rawName) {
			return headers, ErrFraming
		}
		if value != "" && !httpguts.ValidHeaderFieldValue(value) {
			return headers, ErrFraming
		}

		name := titleCase(rawName)
		if commaFoldHeaders[name] {
			if existing, ok := headers[name]; ok && existing != "" {
				value = existing + ", " + value
			}
		}
		headers[name] = value
		lastKey = name
	}
}
