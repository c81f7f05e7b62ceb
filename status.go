package httpd

import (
	"strconv"
	"strings"
)

// statusReasons holds the standard reason phrase for each well-known status
// code, with two overrides applied on top (see reasonFor): 500 keeps the
// bare RFC 7231 phrase, and 503 uses a longer locally customized wording.
var statusReasons = map[int]string{
	100: "Continue",
	101: "Switching Protocols",
	102: "Processing",
	103: "Early Hints",
	200: "OK",
	201: "Created",
	202: "Accepted",
	203: "Non-Authoritative Information",
	204: "No Content",
	205: "Reset Content",
	206: "Partial Content",
	207: "Multi-Status",
	208: "Already Reported",
	226: "IM Used",
	300: "Multiple Choices",
	301: "Moved Permanently",
	302: "Found",
	303: "See Other",
	304: "Not Modified",
	305: "Use Proxy",
	307: "Temporary Redirect",
	308: "Permanent Redirect",
	400: "Bad Request",
	401: "Unauthorized",
	402: "Payment Required",
	403: "Forbidden",
	404: "Not Found",
	405: "Method Not Allowed",
	406: "Not Acceptable",
	407: "Proxy Authentication Required",
	408: "Request Timeout",
	409: "Conflict",
	410: "Gone",
	411: "Length Required",
	412: "Precondition Failed",
	413: "Request Entity Too Large",
	414: "Request-URI Too Long",
	415: "Unsupported Media Type",
	416: "Requested Range Not Satisfiable",
	417: "Expectation Failed",
	418: "I'm a teapot",
	421: "Misdirected Request",
	422: "Unprocessable Entity",
	423: "Locked",
	424: "Failed Dependency",
	425: "Too Early",
	426: "Upgrade Required",
	428: "Precondition Required",
	429: "Too Many Requests",
	431: "Request Header Fields Too Large",
	451: "Unavailable For Legal Reasons",
	500: "Internal Server Error",
	501: "Not Implemented",
	502: "Bad Gateway",
	503: "Service Unavailable",
	504: "Gateway Timeout",
	505: "HTTP Version Not Supported",
	506: "Variant Also Negotiates",
	507: "Insufficient Storage",
	508: "Loop Detected",
	510: "Not Extended",
	511: "Network Authentication Required",
}

// reason500 and reason503 override the bare RFC phrases: 500 keeps the
// short form, 503 gets a longer maintenance-window explanation.
const (
	reason500 = "Internal Server Error"
	reason503 = "The server is currently unable to handle the request due to a " +
		"temporary overloading or maintenance of the server. Please try again later."
)

// reasonFor returns the standard reason phrase for code, or "" if code is
// legal (100-599) but not in the table.
func reasonFor(code int) string {
	switch code {
	case 500:
		return reason500
	case 503:
		return reason503
	}
	return statusReasons[code]
}

// parseStatus parses a Request.Status value, which is either a bare integer
// code or a "code reason" string, into a normalized "code reason" string.
// Unknown but legal codes get an empty reason; out-of-range or non-numeric
// input is an error that the caller turns into "500 Illegal Status".
func parseStatus(status string) (code int, normalized string, err error) {
	if status == "" {
		return 200, "200 " + reasonFor(200), nil
	}
	parts := strings.SplitN(status, " ", 2)
	code, err = strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, "", err
	}
	if code < 100 || code > 599 {
		return 0, "", errStatusOutOfRange
	}
	reason := ""
	if len(parts) == 2 {
		reason = strings.TrimSpace(parts[1])
	} else {
		reason = reasonFor(code)
	}
	if reason == "" {
		return code, strconv.Itoa(code), nil
	}
	return code, strconv.Itoa(code) + " " + reason, nil
}

var errStatusOutOfRange = &statusRangeError{}

type statusRangeError struct{}

func (*statusRangeError) Error() string { return "httpd: status code out of range" }
