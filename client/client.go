/*
 * Copyright (c) 2019 The chirp authors.
 * See the LICENSE file for more information.
 */

package client

import (
	"sync"
	"sync/atomic"

	"github.com/chirp-im/chirp/log"
	"github.com/chirp-im/chirp/stream"
	"github.com/chirp-im/chirp/transport"
	"github.com/chirp-im/chirp/writer"
	"github.com/chirp-im/chirp/xmpp"
	"github.com/google/uuid"
)

const maxStanzaSize = 32768

type registeredListener struct {
	listener stream.Listener
	filter   stream.Filter
}

// Conn is a client connection to a remote service. It owns the
// transport, the outbound writer and the inbound read loop, and
// dispatches every parsed element to the registered listeners.
type Conn struct {
	id          string
	serviceName string
	w           *writer.Writer

	mu             sync.RWMutex
	tr             transport.Transport
	listeners      []registeredListener
	closeListeners []stream.CloseListener

	rdGen  int32
	closed int32
}

// NewConn returns a connection to serviceName running on top of tr.
// The outbound writer and the read loop are started right away and
// creation listeners are notified before returning.
func NewConn(serviceName string, tr transport.Transport, wCfg *writer.Config) *Conn {
	c := &Conn{
		id:          uuid.New().String(),
		serviceName: serviceName,
		tr:          tr,
	}
	c.w = writer.New(wCfg, c, tr)
	c.w.Start()
	go c.readLoop(atomic.LoadInt32(&c.rdGen), tr)

	stream.NotifyConnectionCreated(c)
	return c
}

// ID returns the connection unique identifier.
func (c *Conn) ID() string { return c.id }

// ServiceName returns the remote service name.
func (c *Conn) ServiceName() string { return c.serviceName }

// SendStanza satisfies stream.Connection interface.
func (c *Conn) SendStanza(elem xmpp.XElement) {
	c.w.Send(elem)
}

// IsSocketClosed satisfies stream.Connection interface.
func (c *Conn) IsSocketClosed() bool {
	return atomic.LoadInt32(&c.closed) == 1
}

// NotifyConnectionError reports a connection level error and tears
// the connection down. Listeners registered for closure are fired.
func (c *Conn) NotifyConnectionError(err error) {
	log.Errorf("connection %s error: %v", c.id, err)
	c.Close()
}

// RegisterListener satisfies stream.Connection interface.
func (c *Conn) RegisterListener(l stream.Listener, f stream.Filter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, registeredListener{listener: l, filter: f})
}

// UnregisterListener satisfies stream.Connection interface.
func (c *Conn) UnregisterListener(l stream.Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, rl := range c.listeners {
		if rl.listener == l {
			c.listeners = append(c.listeners[:i], c.listeners[i+1:]...)
			return
		}
	}
}

// RegisterCloseListener satisfies stream.Connection interface.
func (c *Conn) RegisterCloseListener(l stream.CloseListener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeListeners = append(c.closeListeners, l)
}

// Close shuts the connection down gracefully: pending outbound
// elements are drained, the stream is closed and close listeners are
// fired. Closing twice has no effect.
func (c *Conn) Close() {
	if !atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		return
	}
	c.w.Shutdown()

	c.mu.RLock()
	closeListeners := make([]stream.CloseListener, len(c.closeListeners))
	copy(closeListeners, c.closeListeners)
	c.mu.RUnlock()

	for _, l := range closeListeners {
		l.ConnectionClosed()
	}
}

// Resume rebinds the connection to a fresh transport after the
// previous one dropped. The outbound queue survives the swap, so
// elements enqueued before the drop are written onto tr.
func (c *Conn) Resume(tr transport.Transport) {
	c.mu.Lock()
	c.tr = tr
	gen := atomic.AddInt32(&c.rdGen, 1)
	c.mu.Unlock()

	atomic.StoreInt32(&c.closed, 0)
	c.w.Reinit(tr)
	c.w.Start()
	go c.readLoop(gen, tr)
}

// runs on its own goroutine, one per transport generation
func (c *Conn) readLoop(gen int32, tr transport.Transport) {
	p := xmpp.NewParser(tr, xmpp.SocketStream, maxStanzaSize)
	for {
		elem, err := p.ParseElement()
		if err != nil {
			if gen != atomic.LoadInt32(&c.rdGen) {
				return
			}
			switch err {
			case xmpp.ErrStreamClosedByPeer:
				c.Close()
			default:
				if c.IsSocketClosed() {
					return
				}
				c.NotifyConnectionError(err)
			}
			return
		}
		if elem != nil {
			c.dispatch(elem)
		}
	}
}

func (c *Conn) dispatch(elem xmpp.XElement) {
	c.mu.RLock()
	listeners := make([]registeredListener, len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.RUnlock()

	for _, rl := range listeners {
		if rl.filter == nil || rl.filter(elem) {
			rl.listener.ProcessElement(elem)
		}
	}
}
