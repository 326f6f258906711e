// Package server accepts telnet connections and runs one session per client.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ziadkadry99/telewiki/internal/telnet"
	"github.com/ziadkadry99/telewiki/internal/terminal"
)

// Config holds server configuration.
type Config struct {
	Port int
	// IdleTimeout disconnects clients that send nothing for this long.
	// Zero disables it.
	IdleTimeout time.Duration
	// MaxConnections caps concurrent sessions. Zero means unlimited.
	MaxConnections int
}

// Handler runs one client on its terminal. It returns when the client leaves.
type Handler func(ctx context.Context, t *terminal.Terminal) error

const busyMessage = "Server busy, try again later.\r\n"

// Server is the telnet front end.
type Server struct {
	cfg     Config
	handler Handler
	logger  *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	listener net.Listener
	conns    map[net.Conn]struct{}
	closing  bool
	wg       sync.WaitGroup
}

// New creates a server that runs handler for every accepted client.
func New(cfg Config, handler Handler, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:     cfg,
		handler: handler,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		conns:   make(map[net.Conn]struct{}),
	}
}

// Start listens on the configured port and serves until Shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.Port))
	if err != nil {
		return fmt.Errorf("listening on port %d: %w", s.cfg.Port, err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Shutdown. It returns nil after a
// shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		ln.Close()
		return nil
	}
	s.listener = ln
	s.mu.Unlock()

	s.logger.Info("telnet server listening", zap.String("addr", ln.Addr().String()))
	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.isClosing() {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return fmt.Errorf("accepting connection: %w", err)
		}
		if !s.track(conn) {
			s.logger.Warn("connection refused, server full", zap.String("remote", conn.RemoteAddr().String()))
			conn.Write([]byte(busyMessage))
			conn.Close()
			continue
		}
		go s.handle(conn)
	}
}

// Addr returns the listening address, or nil before Serve.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Active returns the number of connected clients.
func (s *Server) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *Server) isClosing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closing
}

// track registers conn unless the server is full or closing.
func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	if s.cfg.MaxConnections > 0 && len(s.conns) >= s.cfg.MaxConnections {
		return false
	}
	s.conns[conn] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	s.wg.Done()
}

func (s *Server) handle(conn net.Conn) {
	defer s.untrack(conn)
	defer conn.Close()

	log := s.logger.With(zap.String("remote", conn.RemoteAddr().String()))
	defer func() {
		if r := recover(); r != nil {
			log.Error("session panic", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()
	log.Info("client connected")

	tc := telnet.NewConn(&idleConn{Conn: conn, timeout: s.cfg.IdleTimeout})
	if err := tc.Negotiate(); err != nil {
		log.Debug("negotiation failed", zap.Error(err))
		return
	}
	term := terminal.New(tc, tc)
	defer term.Close()

	start := time.Now()
	err := s.handler(s.ctx, term)
	fields := []zap.Field{zap.Duration("duration", time.Since(start))}
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		log.Info("client left", fields...)
	case errors.Is(err, terminal.ErrTransport):
		log.Info("client disconnected", append(fields, zap.Error(err))...)
	default:
		log.Warn("session failed", append(fields, zap.Error(err))...)
	}
}

// Shutdown stops accepting, disconnects every client and waits for their
// sessions to return or ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closing = true
	if s.listener != nil {
		s.listener.Close()
	}
	for c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

const idleMessage = "\r\n\r\nIdle timeout, disconnecting.\r\n"

// idleConn arms a read deadline before every read and pushes it back on
// every write, so output streaming to the client counts as activity.
type idleConn struct {
	net.Conn
	timeout time.Duration
}

func (c *idleConn) Read(p []byte) (int, error) {
	if c.timeout > 0 {
		c.Conn.SetReadDeadline(time.Now().Add(c.timeout))
	}
	n, err := c.Conn.Read(p)
	var ne net.Error
	if err != nil && errors.As(err, &ne) && ne.Timeout() {
		c.Conn.SetWriteDeadline(time.Now().Add(time.Second))
		c.Conn.Write([]byte(idleMessage))
	}
	return n, err
}

func (c *idleConn) Write(p []byte) (int, error) {
	if c.timeout > 0 {
		c.Conn.SetReadDeadline(time.Now().Add(c.timeout))
	}
	return c.Conn.Write(p)
}
