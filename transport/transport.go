/*
 * Copyright (c) 2019 The chirp authors.
 * See the LICENSE file for more information.
 */

package transport

import (
	"crypto/tls"
	"io"
)

// Type represents a stream transport type (socket).
type Type int

const (
	// Socket represents a socket transport type.
	Socket Type = iota + 1

	// WebSocket represents a websocket transport type.
	WebSocket
)

// String returns Type string representation.
func (tt Type) String() string {
	switch tt {
	case Socket:
		return "socket"
	case WebSocket:
		return "websocket"
	}
	return ""
}

// Transport represents a stream transport mechanism.
type Transport interface {
	io.ReadWriteCloser

	// Type returns transport type value.
	Type() Type

	// WriteString writes a raw string to the transport.
	WriteString(s string) (n int, err error)

	// Flush writes any buffered data to the underlying connection.
	// Callers decide when batched writes should hit the wire.
	Flush() error

	// StartTLS secures the transport using SSL/TLS.
	StartTLS(cfg *tls.Config)
}
