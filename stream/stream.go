/*
 * Copyright (c) 2019 The chirp authors.
 * See the LICENSE file for more information.
 */

package stream

import (
	"sync"

	"github.com/chirp-im/chirp/xmpp"
)

// Listener represents a subscriber to the elements received on a connection.
type Listener interface {
	// ProcessElement is invoked for every inbound element accepted
	// by the listener filter.
	ProcessElement(elem xmpp.XElement)
}

// CloseListener is notified when a connection is permanently closed.
type CloseListener interface {
	ConnectionClosed()
}

// Connection represents the connection collaborator surface consumed by
// the outbound writer and the keepalive manager. The concrete object
// owning the raw socket lives outside this package.
type Connection interface {
	// ID returns the connection unique identifier.
	ID() string

	// ServiceName returns the name of the remote service this
	// connection is established against.
	ServiceName() string

	// SendStanza hands an outbound element to the connection write path.
	SendStanza(elem xmpp.XElement)

	// IsSocketClosed returns whether or not the underlying socket
	// has already been closed.
	IsSocketClosed() bool

	// NotifyConnectionError reports a connection level error.
	NotifyConnectionError(err error)

	// RegisterListener subscribes a listener to the inbound elements
	// accepted by a filter. A nil filter matches every element.
	RegisterListener(l Listener, f Filter)

	// UnregisterListener removes a previously registered listener.
	UnregisterListener(l Listener)

	// RegisterCloseListener subscribes to connection closure.
	RegisterCloseListener(l CloseListener)
}

// CreationListener is notified whenever a new connection is created.
type CreationListener interface {
	ConnectionCreated(conn Connection)
}

var (
	creationMu        sync.RWMutex
	creationListeners []CreationListener
)

// RegisterCreationListener subscribes a listener to connection creation.
func RegisterCreationListener(l CreationListener) {
	creationMu.Lock()
	defer creationMu.Unlock()
	creationListeners = append(creationListeners, l)
}

// UnregisterCreationListener removes a previously registered creation listener.
func UnregisterCreationListener(l CreationListener) {
	creationMu.Lock()
	defer creationMu.Unlock()
	for i, rl := range creationListeners {
		if rl == l {
			creationListeners = append(creationListeners[:i], creationListeners[i+1:]...)
			return
		}
	}
}

// NotifyConnectionCreated informs registered listeners about a newly
// created connection. Connection implementations must invoke it once
// the connection object is fully initialized.
func NotifyConnectionCreated(conn Connection) {
	creationMu.RLock()
	defer creationMu.RUnlock()
	for _, l := range creationListeners {
		l.ConnectionCreated(conn)
	}
}
