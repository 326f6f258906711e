package chat

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WSChannel talks to the AI server over a websocket. Every text frame is a
// chunk of the answer and a normal close ends it.
type WSChannel struct {
	URI string
	// InsecureTLS skips certificate verification for wss URIs.
	InsecureTLS      bool
	HandshakeTimeout time.Duration
}

// Open dials the server and sends req.
func (c *WSChannel) Open(ctx context.Context, req Request) (Stream, error) {
	timeout := c.HandshakeTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	dialer := websocket.Dialer{
		HandshakeTimeout: timeout,
		TLSClientConfig:  &tls.Config{InsecureSkipVerify: c.InsecureTLS}, //nolint:gosec
	}
	conn, _, err := dialer.DialContext(ctx, c.URI, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", c.URI, err)
	}
	if err := conn.WriteJSON(req); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sending request: %w", err)
	}

	s := &wsStream{
		conn:   conn,
		chunks: make(chan string, 16),
		done:   make(chan struct{}),
	}
	go s.readPump()
	return s, nil
}

type wsStream struct {
	conn   *websocket.Conn
	chunks chan string
	done   chan struct{}
	err    error // set before chunks is closed

	closeOnce sync.Once
}

func (s *wsStream) readPump() {
	defer close(s.chunks)
	for {
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.err = io.EOF
			} else {
				s.err = fmt.Errorf("reading from AI server: %w", err)
			}
			return
		}
		select {
		case s.chunks <- string(msg):
		case <-s.done:
			return
		}
	}
}

func (s *wsStream) Recv(ctx context.Context) (string, error) {
	select {
	case chunk, ok := <-s.chunks:
		if !ok {
			if s.err == nil {
				return "", errors.New("stream closed")
			}
			return "", s.err
		}
		return chunk, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Close tears the connection down, which also stops the read pump.
func (s *wsStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.conn.Close()
	})
	return err
}
