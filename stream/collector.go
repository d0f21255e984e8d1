/*
 * Copyright (c) 2019 The chirp authors.
 * See the LICENSE file for more information.
 */

package stream

import (
	"sync/atomic"
	"time"

	"github.com/chirp-im/chirp/xmpp"
)

// Collector is a one-shot reply waiter: registered as a connection
// listener, it retains the first element accepted by its filter and
// ignores everything after that, including late deliveries following
// a Cancel.
type Collector struct {
	done  int32
	encCh chan xmpp.XElement
}

// NewCollector returns a new initialized collector.
func NewCollector() *Collector {
	return &Collector{
		encCh: make(chan xmpp.XElement, 1),
	}
}

// ProcessElement satisfies Listener interface.
func (c *Collector) ProcessElement(elem xmpp.XElement) {
	if !atomic.CompareAndSwapInt32(&c.done, 0, 1) {
		return
	}
	c.encCh <- elem
}

// Poll returns the collected element, or nil if none arrived yet.
func (c *Collector) Poll() xmpp.XElement {
	select {
	case elem := <-c.encCh:
		return elem
	default:
		return nil
	}
}

// Next returns the collected element, waiting up to a timeout for it
// to arrive. Returns nil on timeout.
func (c *Collector) Next(timeout time.Duration) xmpp.XElement {
	select {
	case elem := <-c.encCh:
		return elem
	case <-time.After(timeout):
		return nil
	}
}

// Cancel marks the collector as done so no further element is retained.
// It is the caller's responsibility to unregister it from the connection.
func (c *Collector) Cancel() {
	atomic.StoreInt32(&c.done, 1)
}
