// Package server accepts TCP connections and drives them through
// wire.Messenger, grounded on the teacher engine's accept loop and
// connection bookkeeping.
package server

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"github.com/galehttp/gale/pkg/gale"
	"github.com/galehttp/gale/pkg/gale/wire"
)

// Config holds Server configuration.
type Config struct {
	// Addr is the TCP address to listen on. Default ":8080".
	Addr string
	// MaxConcurrentConnections caps simultaneously open connections.
	// 0 means unlimited.
	MaxConcurrentConnections int
	// Messenger configures per-connection parsing/timeout behavior.
	Messenger wire.Config
	// ReadBufferSize sizes each connection's buffered reader/writer.
	// Default 4096.
	ReadBufferSize int
	// AccessLogPath, if set, routes the messenger's error log through a
	// rotating file at this path instead of stderr.
	AccessLogPath string
	// AccessLogMaxSizeMB is lumberjack's MaxSize for AccessLogPath.
	// Default 100.
	AccessLogMaxSizeMB int
	// AccessLogMaxBackups is lumberjack's MaxBackups for AccessLogPath.
	// Default 5.
	AccessLogMaxBackups int
}

// DefaultConfig returns a Config listening on :8080 with wire's default
// messenger settings.
func DefaultConfig() Config {
	return Config{
		Addr:                ":8080",
		Messenger:           wire.DefaultConfig(),
		AccessLogMaxSizeMB:  100,
		AccessLogMaxBackups: 5,
	}
}

// Server accepts connections on a net.Listener and feeds each one to a
// wire.Messenger wrapping the configured Dispatcher.
type Server struct {
	config     Config
	dispatcher wire.Dispatcher
	listener   net.Listener

	Stats Stats

	shutdown atomic.Bool
	done     chan struct{}
	wg       sync.WaitGroup

	connsMu sync.Mutex
	conns   map[net.Conn]struct{}

	connSem chan struct{}

	accessLog *lumberjack.Logger
}

// New returns a Server that dispatches accepted connections to
// dispatcher (typically a *router.Router or a *middleware.Global
// wrapping one).
func New(config Config, dispatcher wire.Dispatcher) *Server {
	if config.Addr == "" {
		config.Addr = ":8080"
	}
	if config.Messenger.MaxHeaderBytes == 0 {
		config.Messenger = wire.DefaultConfig()
	}
	if config.AccessLogMaxSizeMB == 0 {
		config.AccessLogMaxSizeMB = 100
	}
	if config.AccessLogMaxBackups == 0 {
		config.AccessLogMaxBackups = 5
	}
	if config.ReadBufferSize == 0 {
		config.ReadBufferSize = 4096
	}

	s := &Server{
		config:     config,
		dispatcher: dispatcher,
		done:       make(chan struct{}),
		conns:      make(map[net.Conn]struct{}),
	}
	s.Stats.StartTime = time.Now()

	if config.AccessLogPath != "" {
		s.accessLog = &lumberjack.Logger{
			Filename:   config.AccessLogPath,
			MaxSize:    config.AccessLogMaxSizeMB,
			MaxBackups: config.AccessLogMaxBackups,
		}
		s.config.Messenger.Logger = wire.LoggerFunc(func(format string, args ...any) {
			fmt.Fprintf(s.accessLog, format+"\n", args...)
		})
	}

	if config.MaxConcurrentConnections > 0 {
		s.connSem = make(chan struct{}, config.MaxConcurrentConnections)
	}

	return s
}

// ListenAndServe listens on config.Addr and serves until Shutdown or
// Close is called, or the listener errors.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("gale: listen on %s: %w", s.config.Addr, err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on l and dispatches each one, blocking
// until the listener closes (via Shutdown/Close) or Accept fails.
func (s *Server) Serve(l net.Listener) error {
	s.listener = l
	defer l.Close()

	for {
		if s.shutdown.Load() {
			return nil
		}

		if s.connSem != nil {
			select {
			case s.connSem <- struct{}{}:
			case <-s.done:
				return nil
			}
		}

		conn, err := l.Accept()
		if err != nil {
			if s.shutdown.Load() {
				return nil
			}
			s.Stats.ConnectionErrors.Add(1)
			if s.connSem != nil {
				<-s.connSem
			}
			continue
		}

		s.Stats.TotalConnections.Add(1)
		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	if s.connSem != nil {
		defer func() { <-s.connSem }()
	}

	s.trackConnection(conn)
	defer s.untrackConnection(conn)

	countingDispatcher := wire.DispatcherFunc(func(req *gale.Request, resp *gale.Response) {
		s.Stats.TotalRequests.Add(1)
		s.dispatcher.Dispatch(req, resp)
	})

	transport := wire.NewNetTransport(conn, s.config.ReadBufferSize)
	messenger := wire.NewMessenger(s.config.Messenger, countingDispatcher)
	messenger.Serve(transport)
}

func (s *Server) trackConnection(conn net.Conn) {
	s.connsMu.Lock()
	s.conns[conn] = struct{}{}
	s.connsMu.Unlock()
	s.Stats.ActiveConnections.Add(1)
}

func (s *Server) untrackConnection(conn net.Conn) {
	s.connsMu.Lock()
	delete(s.conns, conn)
	s.connsMu.Unlock()
	s.Stats.ActiveConnections.Add(-1)
}

func (s *Server) closeAllConnections() {
	s.connsMu.Lock()
	conns := make([]net.Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.connsMu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}

// Shutdown stops accepting new connections and waits for in-flight
// ones to finish on their own, or until ctx is done, at which point
// remaining connections are force-closed.
func (s *Server) Shutdown(ctx context.Context) error {
	if !s.shutdown.CompareAndSwap(false, true) {
		return nil
	}
	if s.listener != nil {
		s.listener.Close()
	}
	close(s.done)

	finished := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		if s.accessLog != nil {
			s.accessLog.Close()
		}
		return nil
	case <-ctx.Done():
		s.closeAllConnections()
		return ctx.Err()
	}
}

// Close immediately force-closes all connections and stops the
// server.
func (s *Server) Close() error {
	if !s.shutdown.CompareAndSwap(false, true) {
		return nil
	}
	if s.listener != nil {
		s.listener.Close()
	}
	close(s.done)
	s.closeAllConnections()
	s.wg.Wait()
	if s.accessLog != nil {
		s.accessLog.Close()
	}
	return nil
}
