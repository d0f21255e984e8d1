/*
 * Copyright (c) 2019 The chirp authors.
 * See the LICENSE file for more information.
 */

package stream

import (
	"bytes"
	"crypto/tls"
	"sync"
	"time"

	"github.com/chirp-im/chirp/transport"
	"github.com/chirp-im/chirp/xmpp"
)

// MockTransport represents an in-memory transport that records every
// written byte and flush mark. Intended for testing purposes.
type MockTransport struct {
	mu         sync.Mutex
	rbuf       bytes.Buffer
	wbuf       bytes.Buffer
	flushCount int
	closed     bool
	writeErr   error
}

// NewMockTransport returns a new mocked transport instance.
func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

// Type satisfies Transport interface.
func (t *MockTransport) Type() transport.Type { return transport.Socket }

func (t *MockTransport) Read(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rbuf.Read(p)
}

func (t *MockTransport) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.writeErr != nil {
		return 0, t.writeErr
	}
	return t.wbuf.Write(p)
}

// WriteString satisfies Transport interface.
func (t *MockTransport) WriteString(s string) (int, error) {
	return t.Write([]byte(s))
}

// Flush satisfies Transport interface.
func (t *MockTransport) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.writeErr != nil {
		return t.writeErr
	}
	t.flushCount++
	return nil
}

// Close satisfies Transport interface.
func (t *MockTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

// StartTLS satisfies Transport interface.
func (t *MockTransport) StartTLS(_ *tls.Config) {}

// SetWriteError makes every subsequent write or flush fail with an error.
func (t *MockTransport) SetWriteError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.writeErr = err
}

// FeedInbound appends bytes to the transport read buffer.
func (t *MockTransport) FeedInbound(s string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rbuf.WriteString(s)
}

// Stream returns everything written to the transport so far.
func (t *MockTransport) Stream() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.wbuf.String()
}

// FlushCount returns how many times the transport has been flushed.
func (t *MockTransport) FlushCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.flushCount
}

// IsClosed returns whether or not the transport has been closed.
func (t *MockTransport) IsClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

type mockListener struct {
	listener Listener
	filter   Filter
}

// MockConnection represents a mocked connection. Intended for testing purposes.
type MockConnection struct {
	id          string
	serviceName string

	mu             sync.RWMutex
	listeners      []mockListener
	closeListeners []CloseListener
	socketClosed   bool
	closed         bool

	sendCh chan xmpp.XElement
	errCh  chan error
}

// NewMockConnection returns a new mocked connection instance.
func NewMockConnection(id, serviceName string) *MockConnection {
	return &MockConnection{
		id:          id,
		serviceName: serviceName,
		sendCh:      make(chan xmpp.XElement, 64),
		errCh:       make(chan error, 8),
	}
}

// ID satisfies Connection interface.
func (c *MockConnection) ID() string { return c.id }

// ServiceName satisfies Connection interface.
func (c *MockConnection) ServiceName() string { return c.serviceName }

// SendStanza satisfies Connection interface.
func (c *MockConnection) SendStanza(elem xmpp.XElement) {
	c.sendCh <- elem
}

// IsSocketClosed satisfies Connection interface.
func (c *MockConnection) IsSocketClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.socketClosed
}

// SetSocketClosed sets the mocked socket closed state.
func (c *MockConnection) SetSocketClosed(closed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.socketClosed = closed
}

// NotifyConnectionError satisfies Connection interface.
func (c *MockConnection) NotifyConnectionError(err error) {
	c.errCh <- err
}

// RegisterListener satisfies Connection interface.
func (c *MockConnection) RegisterListener(l Listener, f Filter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, mockListener{listener: l, filter: f})
}

// UnregisterListener satisfies Connection interface.
func (c *MockConnection) UnregisterListener(l Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, ml := range c.listeners {
		if ml.listener == l {
			c.listeners = append(c.listeners[:i], c.listeners[i+1:]...)
			return
		}
	}
}

// RegisterCloseListener satisfies Connection interface.
func (c *MockConnection) RegisterCloseListener(l CloseListener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeListeners = append(c.closeListeners, l)
}

// DeliverElement dispatches an inbound element to matching listeners.
func (c *MockConnection) DeliverElement(elem xmpp.XElement) {
	c.mu.RLock()
	listeners := make([]mockListener, len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.RUnlock()

	for _, ml := range listeners {
		if ml.filter == nil || ml.filter(elem) {
			ml.listener.ProcessElement(elem)
		}
	}
}

// Close marks the socket as closed and fires close listeners.
func (c *MockConnection) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.socketClosed = true
	closeListeners := make([]CloseListener, len(c.closeListeners))
	copy(closeListeners, c.closeListeners)
	c.mu.Unlock()

	for _, l := range closeListeners {
		l.ConnectionClosed()
	}
}

// FetchSentElement returns the next element handed to SendStanza,
// or nil if none arrives in a reasonable time.
func (c *MockConnection) FetchSentElement() xmpp.XElement {
	select {
	case elem := <-c.sendCh:
		return elem
	case <-time.After(time.Second * 5):
		return nil
	}
}

// WaitError returns the next reported connection error, or nil if none
// arrives before the timeout elapses.
func (c *MockConnection) WaitError(timeout time.Duration) error {
	select {
	case err := <-c.errCh:
		return err
	case <-time.After(timeout):
		return nil
	}
}

// PendingSentCount returns how many sent elements remain unfetched.
func (c *MockConnection) PendingSentCount() int {
	return len(c.sendCh)
}
