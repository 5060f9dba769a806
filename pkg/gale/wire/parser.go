package wire

import (
	"bytes"
	"strconv"

	"github.com/galehttp/gale/pkg/gale"
)

// Status is the outcome of a single ParseRequest call, per spec.md §4.3.
type Status int

const (
	NeedMore Status = iota
	Complete
	Malformed
)

// Result reports a parse outcome. HeadersEnd is valid only when Status is
// Complete; Code is valid only when Status is Malformed.
type Result struct {
	Status     Status
	HeadersEnd int
	Code       int
}

var crlfcrlf = []byte("\r\n\r\n")
var crlf = []byte("\r\n")

// ParseRequest scans buf for a complete request-line-plus-headers section
// and, on success, populates req with the parsed method/target/proto and
// header entries. The parser is resumable: it records the last-scanned
// offset in buf so a subsequent call (after more bytes are appended) only
// rescans the new suffix, per spec.md §4.3.
func ParseRequest(req *gale.Request, buf *Buffer) Result {
	data := buf.Bytes()

	searchStart := buf.scanned - 3
	if searchStart < 0 {
		searchStart = 0
	}
	idx := bytes.Index(data[searchStart:], crlfcrlf)
	if idx == -1 {
		buf.scanned = len(data)
		limit := buf.max
		if limit <= 0 {
			limit = MaxHeaderBytes
		}
		if len(data) > limit {
			return Result{Status: Malformed, Code: 431}
		}
		return Result{Status: NeedMore}
	}
	headersEnd := searchStart + idx + 4

	section := data[:headersEnd]
	pos, code := parseRequestLine(req, section)
	if code != 0 {
		return Result{Status: Malformed, Code: code}
	}
	if code = parseHeaders(req, section[pos:headersEnd-2]); code != 0 {
		return Result{Status: Malformed, Code: code}
	}

	return Result{Status: Complete, HeadersEnd: headersEnd}
}

// parseRequestLine parses "METHOD SP target SP HTTP-version CRLF" and
// returns the offset immediately after it, or a non-zero HTTP status code
// on failure.
func parseRequestLine(req *gale.Request, section []byte) (int, int) {
	lineEnd := bytes.Index(section, crlf)
	if lineEnd == -1 {
		return 0, 400
	}
	line := section[:lineEnd]

	sp := bytes.IndexByte(line, ' ')
	if sp <= 0 {
		return 0, 400
	}
	method := line[:sp]
	if !isToken(method) {
		return 0, 400
	}

	rest := line[sp+1:]
	sp2 := bytes.IndexByte(rest, ' ')
	if sp2 <= 0 {
		return 0, 400
	}
	target := rest[:sp2]
	if bytes.IndexByte(target, ' ') != -1 {
		return 0, 400
	}

	version := rest[sp2+1:]
	if !isHTTPVersion(version) {
		return 0, 400
	}

	req.Method = string(method)
	req.Target = string(target)
	req.Proto = string(version)

	return lineEnd + 2, 0
}

// parseHeaders parses zero or more "name: OWS value OWS CRLF" lines
// (section ends with the last header line's CRLF and excludes the empty
// line that terminates the header block) into req.Headers, enforcing
// the Content-Length/Transfer-Encoding smuggling checks spec.md §4.4
// delegates to the parser/messenger boundary.
func parseHeaders(req *gale.Request, section []byte) int {
	pos := 0
	var clSeen bool
	var clValue string

	for pos < len(section) {
		lineEnd := bytes.Index(section[pos:], crlf)
		if lineEnd == -1 {
			return 400
		}
		lineEnd += pos
		line := section[pos:lineEnd]
		pos = lineEnd + 2

		colon := bytes.IndexByte(line, ':')
		if colon <= 0 {
			return 400
		}
		name := line[:colon]
		if !isToken(name) {
			return 400
		}
		value := trimOWS(line[colon+1:])

		req.Headers.Append(string(name), string(value))

		if equalFoldASCII(name, "Content-Length") {
			if clSeen && clValue != string(value) {
				return 400
			}
			if !isDigits(value) {
				return 400
			}
			clSeen = true
			clValue = string(value)
		}
	}

	if clSeen && req.Headers.Contains("Transfer-Encoding") {
		return 400
	}
	if clSeen {
		if n, err := strconv.ParseInt(clValue, 10, 64); err != nil || n < 0 {
			return 400
		}
	}

	return 0
}

func trimOWS(b []byte) []byte {
	for len(b) > 0 && (b[0] == ' ' || b[0] == '\t') {
		b = b[1:]
	}
	for len(b) > 0 && (b[len(b)-1] == ' ' || b[len(b)-1] == '\t') {
		b = b[:len(b)-1]
	}
	return b
}

func isDigits(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	for _, c := range b {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// isToken reports whether b is a non-empty token per spec.md §3: ASCII
// excluding controls, whitespace, and the delimiter set
// "(),/:;<=>?@[\]{}
func isToken(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	for _, c := range b {
		if c >= 128 || c <= 32 || c == 127 {
			return false
		}
		switch c {
		case '"', '(', ')', ',', '/', ':', ';', '<', '=', '>', '?', '@', '[', '\\', ']', '{', '}':
			return false
		}
	}
	return true
}

func isHTTPVersion(b []byte) bool {
	const prefix = "HTTP/"
	if len(b) < len(prefix)+3 || string(b[:len(prefix)]) != prefix {
		return false
	}
	rest := b[len(prefix):]
	dot := bytes.IndexByte(rest, '.')
	if dot <= 0 || dot == len(rest)-1 {
		return false
	}
	return isDigits(rest[:dot]) && isDigits(rest[dot+1:])
}

func equalFoldASCII(a []byte, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		ac, bc := a[i], b[i]
		if ac >= 'A' && ac <= 'Z' {
			ac += 32
		}
		if bc >= 'A' && bc <= 'Z' {
			bc += 32
		}
		if ac != bc {
			return false
		}
	}
	return true
}
