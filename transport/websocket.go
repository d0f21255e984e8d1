/*
 * Copyright (c) 2019 The chirp authors.
 * See the LICENSE file for more information.
 */

package transport

import (
	"crypto/tls"
	"io"
	"net"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketConn represents a websocket connection interface.
type WebSocketConn interface {
	NextReader() (messageType int, r io.Reader, err error)
	NextWriter(int) (io.WriteCloser, error)
	Close() error
	UnderlyingConn() net.Conn
	SetReadDeadline(t time.Time) error
}

type webSocketTransport struct {
	conn      WebSocketConn
	keepAlive time.Duration
}

// NewWebSocketTransport creates a websocket class stream transport.
func NewWebSocketTransport(conn WebSocketConn, keepAlive time.Duration) Transport {
	return &webSocketTransport{
		conn:      conn,
		keepAlive: keepAlive,
	}
}

func (w *webSocketTransport) Type() Type {
	return WebSocket
}

func (w *webSocketTransport) Read(p []byte) (n int, err error) {
	_, r, err := w.conn.NextReader()
	if err != nil {
		return 0, err
	}
	if w.keepAlive > 0 {
		_ = w.conn.SetReadDeadline(time.Now().Add(w.keepAlive))
	}
	return r.Read(p)
}

func (w *webSocketTransport) Write(p []byte) (n int, err error) {
	nw, err := w.conn.NextWriter(websocket.TextMessage)
	if err != nil {
		return 0, err
	}
	defer func() { _ = nw.Close() }()

	return nw.Write(p)
}

func (w *webSocketTransport) WriteString(str string) (n int, err error) {
	return w.Write([]byte(str))
}

// Flush satisfies Transport interface. Each websocket write is
// already framed as a whole message, so there is nothing to flush.
func (w *webSocketTransport) Flush() error {
	return nil
}

func (w *webSocketTransport) Close() error {
	return w.conn.Close()
}

// StartTLS satisfies Transport interface. Security on a websocket
// transport is negotiated before upgrading, so this is a no-op.
func (w *webSocketTransport) StartTLS(_ *tls.Config) {
}
