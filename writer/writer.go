/*
 * Copyright (c) 2019 The chirp authors.
 * See the LICENSE file for more information.
 */

package writer

import (
	"strings"
	"sync"
	"sync/atomic"

	"github.com/chirp-im/chirp/log"
	"github.com/chirp-im/chirp/transport"
	"github.com/chirp-im/chirp/xmpp"
)

const (
	jabberClientNamespace = "jabber:client"
	streamNamespace       = "http://etherx.jabber.org/streams"
)

// State represents writer state.
type State int32

const (
	// Initialized represents a writer bound to a transport and
	// ready to be started.
	Initialized State = iota

	// Running represents a writer whose consumer is draining the
	// pending queue onto the transport.
	Running

	// Draining represents a writer shutting down: the consumer is
	// flushing out whatever is left on the queue.
	Draining

	// Closed represents a terminated writer.
	Closed
)

// String returns State string representation.
func (s State) String() string {
	switch s {
	case Initialized:
		return "initialized"
	case Running:
		return "running"
	case Draining:
		return "draining"
	case Closed:
		return "closed"
	}
	return ""
}

// Connection is the surface of the owning connection the writer
// interacts with.
type Connection interface {
	// ServiceName returns the remote service name announced on the
	// stream open element.
	ServiceName() string

	// IsSocketClosed returns whether or not the underlying socket
	// has already been closed.
	IsSocketClosed() bool

	// NotifyConnectionError reports a connection level error.
	NotifyConnectionError(err error)
}

// Writer serializes outbound elements onto a connection transport.
// Elements are sent using a single dedicated consumer goroutine that
// drains a bounded queue in strict arrival order, so callers never
// block on socket I/O themselves, only on queue capacity.
type Writer struct {
	conn Connection

	mu      sync.RWMutex
	tr      transport.Transport
	drainCh chan struct{}

	// queue is shared by every consumer generation: elements enqueued
	// before a reinit are written by the consumer spawned afterwards.
	queue chan xmpp.XElement

	state       int32
	gen         int32
	errNotified int32
}

// New returns an initialized outbound writer bound to a connection transport.
func New(cfg *Config, conn Connection, tr transport.Transport) *Writer {
	queueSize := defaultQueueSize
	if cfg != nil && cfg.QueueSize > 0 {
		queueSize = cfg.QueueSize
	}
	return &Writer{
		conn:    conn,
		tr:      tr,
		drainCh: make(chan struct{}),
		queue:   make(chan xmpp.XElement, queueSize),
	}
}

// State returns current writer state.
func (w *Writer) State() State {
	return State(atomic.LoadInt32(&w.state))
}

// Send enqueues an outbound element, blocking the caller while the
// queue is at capacity. Elements handed to a writer that has already
// begun shutting down are silently dropped.
func (w *Writer) Send(elem xmpp.XElement) {
	if st := w.State(); st == Draining || st == Closed {
		log.Warnf("failed to enqueue outbound element: writer is %s", st)
		return
	}
	w.mu.RLock()
	drainCh := w.drainCh
	w.mu.RUnlock()

	select {
	case w.queue <- elem:
	case <-drainCh:
		log.Warnf("failed to enqueue outbound element: writer is shutting down")
	}
}

// Start launches the writer consumer. The stream open element is
// written before any queued payload.
func (w *Writer) Start() {
	if !atomic.CompareAndSwapInt32(&w.state, int32(Initialized), int32(Running)) {
		log.Warnf("writer already started")
		return
	}
	w.mu.RLock()
	gen := atomic.LoadInt32(&w.gen)
	drainCh := w.drainCh
	tr := w.tr
	w.mu.RUnlock()

	go w.loop(gen, drainCh, tr)
}

// Shutdown signals the consumer to write out whatever is pending and
// close the stream. It never blocks waiting for the drain to complete
// and is safe to invoke multiple times.
func (w *Writer) Shutdown() {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch w.State() {
	case Draining, Closed:
		return
	}
	atomic.StoreInt32(&w.state, int32(Draining))
	close(w.drainCh)
}

// Reinit rebinds the writer to a fresh transport after a reconnection
// and prepares it for a new Start. The pending queue is preserved: any
// element enqueued before the connection dropped will be written onto
// the new transport.
func (w *Writer) Reinit(tr transport.Transport) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.tr = tr
	w.drainCh = make(chan struct{})
	atomic.AddInt32(&w.gen, 1)
	atomic.StoreInt32(&w.state, int32(Initialized))
	atomic.StoreInt32(&w.errNotified, 0)
}

// runs on its own goroutine
func (w *Writer) loop(gen int32, drainCh chan struct{}, tr transport.Transport) {
	if err := w.openStream(tr); err != nil {
		w.handleWriteError(err)
		return
	}
	for {
		// a reinit may have designated a fresh consumer while this one
		// was blocked: stale consumers exit quietly, closing duties
		// belong to the current one only.
		if !w.isCurrentConsumer(gen) {
			return
		}
		select {
		case elem := <-w.queue:
			if err := w.writeElement(tr, elem); err != nil {
				w.handleWriteError(err)
				return
			}

		case <-drainCh:
			w.drainAndClose(gen, tr)
			return
		}
	}
}

func (w *Writer) writeElement(tr transport.Transport, elem xmpp.XElement) error {
	if _, err := tr.WriteString(elem.String()); err != nil {
		return err
	}
	// flush in batches: only hit the wire once a burst has been
	// entirely written out.
	if len(w.queue) == 0 {
		return tr.Flush()
	}
	return nil
}

func (w *Writer) drainAndClose(gen int32, tr transport.Transport) {
	if !w.isCurrentConsumer(gen) {
		return
	}
	// write out the remainder of the queue without blocking for new
	// arrivals. If the queue is extremely large there may not be time
	// to entirely flush it before the socket is forced closed.
	for {
		select {
		case elem := <-w.queue:
			if _, err := tr.WriteString(elem.String()); err != nil {
				log.Warnf("error flushing queue during shutdown: %v", err)
			}
		default:
			goto closeStream
		}
	}
closeStream:
	if _, err := tr.WriteString("</stream:stream>"); err == nil {
		_ = tr.Flush()
	}
	_ = tr.Close()
	atomic.StoreInt32(&w.state, int32(Closed))
}

func (w *Writer) openStream(tr transport.Transport) error {
	ops := xmpp.NewElementName("stream:stream")
	ops.SetAttribute("to", w.conn.ServiceName())
	ops.SetAttribute("xmlns", jabberClientNamespace)
	ops.SetAttribute("xmlns:stream", streamNamespace)
	ops.SetAttribute("version", "1.0")

	buf := &strings.Builder{}
	ops.ToXML(buf, false)

	if _, err := tr.WriteString(buf.String()); err != nil {
		return err
	}
	return tr.Flush()
}

func (w *Writer) handleWriteError(err error) {
	// the error can be ignored if the writer is shutting down or if
	// the socket got independently closed.
	switch w.State() {
	case Draining, Closed:
		log.Debugf("writer I/O error during shutdown: %v", err)
		return
	}
	if w.conn != nil && w.conn.IsSocketClosed() {
		log.Debugf("writer I/O error on closed socket: %v", err)
		return
	}
	atomic.StoreInt32(&w.state, int32(Closed))

	// the connection may have been torn down by a concurrent
	// disconnect, so escalate at most once and only if still possible.
	if atomic.CompareAndSwapInt32(&w.errNotified, 0, 1) && w.conn != nil {
		w.conn.NotifyConnectionError(err)
	}
}

func (w *Writer) isCurrentConsumer(gen int32) bool {
	return atomic.LoadInt32(&w.gen) == gen
}
