package wire

import (
	"strconv"
	"strings"
	"time"

	"github.com/galehttp/gale/pkg/gale"
)

// Mode distinguishes the two read semantics the messenger needs from a
// Transport (spec.md §6.2): ReadAvailable returns whatever is ready right
// now; ReadExact blocks until exactly len(buf) bytes have arrived.
type Mode int

const (
	ReadAvailable Mode = iota
	ReadExact
)

// Transport is the minimal byte-stream the messenger consumes. It makes
// no assumption beyond ordered reads/writes, so the same state machine
// serves a TCP socket, a TLS session, or an in-memory pipe in tests.
type Transport interface {
	WaitForData(timeout time.Duration) bool
	Read(buf []byte, mode Mode) (int, error)
	Write(p []byte) (int, error)
	Flush() error
	Close() error
	Empty() bool
}

// Dispatcher routes a parsed request to a handler and fills in the
// response. It is implemented by pkg/gale/router.Router; wire stays
// agnostic of routing so it has no import on that package.
type Dispatcher interface {
	Dispatch(req *gale.Request, resp *gale.Response)
}

// DispatcherFunc adapts a plain function to Dispatcher.
type DispatcherFunc func(req *gale.Request, resp *gale.Response)

// Dispatch calls f(req, resp).
func (f DispatcherFunc) Dispatch(req *gale.Request, resp *gale.Response) {
	f(req, resp)
}

// Logger is the minimal external-logging seam the messenger writes
// handler panics through (spec.md §7 handler errors); I/O errors are
// not logged.
type Logger interface {
	Errorf(format string, args ...any)
}

// LoggerFunc adapts a plain function to Logger.
type LoggerFunc func(format string, args ...any)

// Errorf calls f(format, args...).
func (f LoggerFunc) Errorf(format string, args ...any) {
	f(format, args...)
}

type nopLogger struct{}

func (nopLogger) Errorf(string, ...any) {}

// Config holds the tunables spec.md §6.4 requires every implementation
// to accept.
type Config struct {
	MaxHeaderBytes           int
	MaxBodyBytes             int64
	HeaderReadTimeoutSeconds int
	BodyReadTimeoutSeconds   int
	InitialHeaderBuffer      int
	Logger                   Logger
}

// DefaultConfig returns the defaults listed in spec.md §6.4.
func DefaultConfig() Config {
	return Config{
		MaxHeaderBytes:           MaxHeaderBytes,
		MaxBodyBytes:             MaxBodyBytes,
		HeaderReadTimeoutSeconds: 120,
		BodyReadTimeoutSeconds:   120,
		InitialHeaderBuffer:      InitialHeaderBuffer,
	}
}

func (c Config) logger() Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return nopLogger{}
}

// state names the messenger's position in the per-connection state
// machine of spec.md §4.4.
type state int

const (
	awaitRequest state = iota
	readHeaders
	readBody
	dispatchState
	emitResponse
	closeConn
	closeSilent
)

// Messenger drives one connection's request/response cycles to
// completion, per spec.md §4.4. It holds no state across connections;
// callers construct one per accepted connection.
type Messenger struct {
	cfg        Config
	dispatcher Dispatcher
	buf        *Buffer
}

// NewMessenger returns a Messenger configured per cfg, dispatching
// completed requests to dispatcher.
func NewMessenger(cfg Config, dispatcher Dispatcher) *Messenger {
	buf := &Buffer{max: cfg.MaxHeaderBytes}
	if cap(buf.data) == 0 {
		size := cfg.InitialHeaderBuffer
		if size <= 0 {
			size = InitialHeaderBuffer
		}
		buf.data = make([]byte, 0, size)
	}
	return &Messenger{cfg: cfg, dispatcher: dispatcher, buf: buf}
}

// Serve runs the state machine to completion: one or more keep-alive
// request/response cycles, until a transition to CLOSE or CLOSE_SILENT.
func (m *Messenger) Serve(t Transport) {
	st := awaitRequest
	req := gale.NewRequest()
	var (
		pendingErr int
		headerEnd  int
		readBuf    [4096]byte
	)

	headerTimeout := time.Duration(m.cfg.HeaderReadTimeoutSeconds) * time.Second
	bodyTimeout := time.Duration(m.cfg.BodyReadTimeoutSeconds) * time.Second

	for {
		switch st {
		case awaitRequest:
			req.Reset()
			if m.buf.Len() == 0 && !t.WaitForData(headerTimeout) {
				st = closeSilent
				continue
			}
			st = readHeaders

		case readHeaders:
			for {
				result := ParseRequest(req, m.buf)
				switch result.Status {
				case Complete:
					headerEnd = result.HeadersEnd
					st = readBody
				case Malformed:
					pendingErr = result.Code
					st = closeConn
				case NeedMore:
					if !t.WaitForData(headerTimeout) {
						pendingErr = 408
						st = closeConn
						break
					}
					n, err := t.Read(readBuf[:], ReadAvailable)
					if err != nil || n == 0 {
						st = closeSilent
						break
					}
					m.buf.Append(readBuf[:n])
					continue
				}
				break
			}

		case readBody:
			st = m.enterReadBody(t, req, headerEnd, bodyTimeout, &pendingErr)

		case dispatchState:
			resp := gale.NewResponse()
			m.invokeDispatcher(req, resp)
			st = m.emit(t, req, resp)

		case closeConn:
			m.emitError(t, pendingErr)
			t.Close()
			return

		case closeSilent:
			t.Close()
			return
		}
	}
}

// invokeDispatcher runs the router's handler chain, recovering a panic
// into a synthesised 500 per spec.md §4.4's DISPATCH row and §7's
// handler-error taxonomy.
func (m *Messenger) invokeDispatcher(req *gale.Request, resp *gale.Response) {
	defer func() {
		if r := recover(); r != nil {
			m.cfg.logger().Errorf("handler panic: %v", r)
			resp.Reset()
			resp.Status = 500
		}
	}()
	m.dispatcher.Dispatch(req, resp)
}

// enterReadBody inspects Content-Length/Transfer-Encoding and either
// blocks to fill the body or fails per spec.md §4.4's READ_BODY row.
func (m *Messenger) enterReadBody(t Transport, req *gale.Request, headerEnd int, timeout time.Duration, pendingErr *int) state {
	clValues := req.Headers.Get("Content-Length")
	teValues := req.Headers.Get("Transfer-Encoding")

	if len(clValues) > 1 {
		*pendingErr = 400
		return closeConn
	}

	if len(clValues) == 0 {
		if len(teValues) > 0 {
			*pendingErr = 501
			return closeConn
		}
		req.Body = gale.NewBody()
		m.buf.Consume(headerEnd)
		return dispatchState
	}

	length, err := strconv.ParseInt(clValues[0], 10, 64)
	if err != nil || length < 0 {
		*pendingErr = 400
		return closeConn
	}
	if length > m.cfg.MaxBodyBytes {
		*pendingErr = 413
		return closeConn
	}
	if len(teValues) > 0 {
		*pendingErr = 400
		return closeConn
	}

	data := m.buf.Bytes()
	already := data[headerEnd:]
	body := make([]byte, length)
	n := copy(body, already)

	for int64(n) < length {
		if !t.WaitForData(timeout) {
			*pendingErr = 408
			return closeConn
		}
		read, err := t.Read(body[n:], ReadExact)
		if err != nil {
			*pendingErr = 408
			return closeConn
		}
		n += read
	}

	req.Body = gale.NewBody(body)
	m.buf.Consume(headerEnd + int(length))
	return dispatchState
}

// emit serialises resp per spec.md §6.1, decides the keep-alive header,
// writes it, and returns the next state.
func (m *Messenger) emit(t Transport, req *gale.Request, resp *gale.Response) state {
	keepAlive := decideKeepAlive(req, resp)

	// HEAD responses carry the Content-Length the matching GET body
	// would have had, already set by the router before it dropped the
	// body; emit must not clobber it with the now-empty body's length.
	if !(req.Method == "HEAD" && resp.Headers.Contains("Content-Length")) {
		resp.Headers.Set("Content-Length", strconv.Itoa(resp.Body.Len()))
	}
	if keepAlive {
		resp.Headers.Set("Connection", "keep-alive")
	} else {
		resp.Headers.Set("Connection", "close")
	}

	if _, err := t.Write(Serialize(resp)); err != nil {
		return closeSilent
	}
	if err := t.Flush(); err != nil {
		return closeSilent
	}

	if keepAlive {
		return awaitRequest
	}
	return closeSilent
}

// emitError writes the minimal error response of spec.md §4.4's
// EMIT_ERROR row. Write failures are ignored; the connection closes
// either way.
func (m *Messenger) emitError(t Transport, code int) {
	line := "HTTP/1.1 " + strconv.Itoa(code) + " " + gale.ReasonPhrase(code) + "\r\n\r\n"
	t.Write([]byte(line))
	t.Flush()
}

// decideKeepAlive implements spec.md §4.4's keep-alive decision: HTTP/1.1
// defaults to keep-alive unless Connection: close is present; HTTP/1.0
// defaults to close unless Connection: keep-alive is present; any other
// protocol string closes.
func decideKeepAlive(req *gale.Request, resp *gale.Response) bool {
	connHeader := strings.ToLower(firstOrEmpty(resp.Headers.Get("Connection")))
	if connHeader == "" {
		connHeader = strings.ToLower(firstOrEmpty(req.Headers.Get("Connection")))
	}

	switch req.Proto {
	case "HTTP/1.1":
		return connHeader != "close"
	case "HTTP/1.0":
		return connHeader == "keep-alive"
	default:
		return false
	}
}

func firstOrEmpty(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
