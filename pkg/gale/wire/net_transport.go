package wire

import (
	"bufio"
	"io"
	"net"
	"time"
)

// NetTransport adapts a net.Conn to the Transport interface the
// messenger consumes, using buffered I/O the way the teacher's
// Connection pairs a bufio.Reader/Writer with a raw socket.
type NetTransport struct {
	conn   net.Conn
	reader *bufio.Reader
	writer *bufio.Writer
}

// NewNetTransport wraps conn with buffered I/O sized bufSize.
func NewNetTransport(conn net.Conn, bufSize int) *NetTransport {
	if bufSize <= 0 {
		bufSize = 4096
	}
	return &NetTransport{
		conn:   conn,
		reader: bufio.NewReaderSize(conn, bufSize),
		writer: bufio.NewWriterSize(conn, bufSize),
	}
}

// WaitForData blocks until at least one byte is available to Read, or
// timeout elapses without any arriving. It sets and clears the
// connection's read deadline around the peek.
func (t *NetTransport) WaitForData(timeout time.Duration) bool {
	if timeout > 0 {
		t.conn.SetReadDeadline(time.Now().Add(timeout))
		defer t.conn.SetReadDeadline(time.Time{})
	}
	_, err := t.reader.Peek(1)
	return err == nil
}

// Read fills buf per mode: ReadAvailable returns whatever bufio has
// buffered or a single underlying read yields; ReadExact blocks until
// len(buf) bytes have been read or an error occurs.
func (t *NetTransport) Read(buf []byte, mode Mode) (int, error) {
	if mode == ReadExact {
		return io.ReadFull(t.reader, buf)
	}
	if t.reader.Buffered() > 0 {
		n := t.reader.Buffered()
		if n > len(buf) {
			n = len(buf)
		}
		return t.reader.Read(buf[:n])
	}
	return t.reader.Read(buf)
}

// Write buffers p for the next Flush.
func (t *NetTransport) Write(p []byte) (int, error) {
	return t.writer.Write(p)
}

// Flush pushes buffered writes to the socket.
func (t *NetTransport) Flush() error {
	return t.writer.Flush()
}

// Close closes the underlying connection.
func (t *NetTransport) Close() error {
	return t.conn.Close()
}

// Empty reports whether the read buffer holds no unconsumed bytes.
func (t *NetTransport) Empty() bool {
	return t.reader.Buffered() == 0
}
