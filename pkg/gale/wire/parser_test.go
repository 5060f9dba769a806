package wire

import (
	"strings"
	"testing"

	"github.com/galehttp/gale/pkg/gale"
)

func TestParseSimpleGET(t *testing.T) {
	buf := NewBuffer()
	buf.Append([]byte("GET /api/users HTTP/1.1\r\nHost: example.com\r\n\r\n"))
	req := gale.NewRequest()

	result := ParseRequest(req, buf)
	if result.Status != Complete {
		t.Fatalf("Status = %v, want Complete", result.Status)
	}
	if req.Method != "GET" {
		t.Errorf("Method = %q, want GET", req.Method)
	}
	if req.Target != "/api/users" {
		t.Errorf("Target = %q, want /api/users", req.Target)
	}
	if req.Proto != "HTTP/1.1" {
		t.Errorf("Proto = %q, want HTTP/1.1", req.Proto)
	}
	if got := req.Headers.GetFirst("Host"); got != "example.com" {
		t.Errorf("Host header = %q, want example.com", got)
	}
}

func TestParseNeedsMoreAcrossCalls(t *testing.T) {
	buf := NewBuffer()
	req := gale.NewRequest()

	buf.Append([]byte("GET / HTTP/1.1\r\n"))
	if result := ParseRequest(req, buf); result.Status != NeedMore {
		t.Fatalf("Status = %v, want NeedMore before blank line", result.Status)
	}

	buf.Append([]byte("Host: x\r\n\r\n"))
	result := ParseRequest(req, buf)
	if result.Status != Complete {
		t.Fatalf("Status = %v, want Complete", result.Status)
	}
}

func TestParseDuplicateHeadersAppend(t *testing.T) {
	buf := NewBuffer()
	buf.Append([]byte("GET / HTTP/1.1\r\nX-Trace: a\r\nX-Trace: b\r\n\r\n"))
	req := gale.NewRequest()

	if result := ParseRequest(req, buf); result.Status != Complete {
		t.Fatalf("Status = %v, want Complete", result.Status)
	}
	vs := req.Headers.Get("X-Trace")
	if len(vs) != 2 || vs[0] != "a" || vs[1] != "b" {
		t.Fatalf("X-Trace = %v, want [a b]", vs)
	}
}

func TestParseMalformedMissingColon(t *testing.T) {
	buf := NewBuffer()
	buf.Append([]byte("GET / HTTP/1.1\r\nBroken-Header\r\n\r\n"))
	req := gale.NewRequest()

	result := ParseRequest(req, buf)
	if result.Status != Malformed || result.Code != 400 {
		t.Fatalf("got %+v, want Malformed(400)", result)
	}
}

func TestParseMalformedBadVersion(t *testing.T) {
	buf := NewBuffer()
	buf.Append([]byte("GET / FOO/1.1\r\n\r\n"))
	req := gale.NewRequest()

	result := ParseRequest(req, buf)
	if result.Status != Malformed || result.Code != 400 {
		t.Fatalf("got %+v, want Malformed(400)", result)
	}
}

func TestParseDuplicateContentLengthMismatchIsMalformed(t *testing.T) {
	buf := NewBuffer()
	buf.Append([]byte("POST / HTTP/1.1\r\nContent-Length: 5\r\nContent-Length: 6\r\n\r\n"))
	req := gale.NewRequest()

	result := ParseRequest(req, buf)
	if result.Status != Malformed || result.Code != 400 {
		t.Fatalf("got %+v, want Malformed(400)", result)
	}
}

func TestParseContentLengthAndTransferEncodingIsMalformed(t *testing.T) {
	buf := NewBuffer()
	buf.Append([]byte("POST / HTTP/1.1\r\nContent-Length: 5\r\nTransfer-Encoding: chunked\r\n\r\n"))
	req := gale.NewRequest()

	result := ParseRequest(req, buf)
	if result.Status != Malformed || result.Code != 400 {
		t.Fatalf("got %+v, want Malformed(400)", result)
	}
}

func TestParseOversizeHeaderIsMalformed431(t *testing.T) {
	buf := NewBuffer()
	buf.max = 64
	big := strings.Repeat("x", 128)
	buf.Append([]byte("GET / HTTP/1.1\r\nX-Big: " + big + "\r\n"))

	req := gale.NewRequest()
	result := ParseRequest(req, buf)
	if result.Status != Malformed || result.Code != 431 {
		t.Fatalf("got %+v, want Malformed(431)", result)
	}
}

func TestParseResumeOnlyRescansNewBytes(t *testing.T) {
	buf := NewBuffer()
	req := gale.NewRequest()

	buf.Append([]byte("GET / HTTP/1.1\r\nHost: a\r\n"))
	ParseRequest(req, buf)
	scannedAfterFirst := buf.scanned

	buf.Append([]byte("X-More: b\r\n\r\n"))
	result := ParseRequest(req, buf)

	if result.Status != Complete {
		t.Fatalf("Status = %v, want Complete", result.Status)
	}
	if scannedAfterFirst != len("GET / HTTP/1.1\r\nHost: a\r\n") {
		t.Fatalf("scanned = %d, want full prefix recorded", scannedAfterFirst)
	}
}
