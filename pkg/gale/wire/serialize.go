package wire

import (
	"strconv"

	"github.com/galehttp/gale/pkg/gale"
)

var (
	colonSpace = []byte(": ")
	crlfBytes  = []byte("\r\n")
)

// Serialize renders resp as the wire format of spec.md §6.1: status
// line, headers in insertion order (one line per value, first-seen
// casing), a blank line, then the body. Content-Length and Connection
// are expected to already be set by the messenger before this call.
func Serialize(resp *gale.Response) []byte {
	out := make([]byte, 0, 256+resp.Body.Len())

	out = append(out, resp.Proto...)
	out = append(out, ' ')
	out = strconv.AppendInt(out, int64(resp.Status), 10)
	out = append(out, ' ')
	out = append(out, resp.ReasonPhrase()...)
	out = append(out, crlfBytes...)

	resp.Headers.VisitAll(func(name, value string) {
		out = append(out, name...)
		out = append(out, colonSpace...)
		out = append(out, value...)
		out = append(out, crlfBytes...)
	})
	out = append(out, crlfBytes...)

	out = append(out, resp.Body.Bytes()...)
	return out
}
