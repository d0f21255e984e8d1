/*
 * Copyright (c) 2019 The chirp authors.
 * See the LICENSE file for more information.
 */

package xmpp

import (
	"bytes"
	"sync"
)

// serialization buffers are recycled across every element String call
var bufPool = bufferPool{
	pool: sync.Pool{New: func() interface{} {
		return new(bytes.Buffer)
	}},
}

type bufferPool struct {
	pool sync.Pool
}

func (p *bufferPool) get() *bytes.Buffer {
	return p.pool.Get().(*bytes.Buffer)
}

func (p *bufferPool) put(buf *bytes.Buffer) {
	buf.Reset()
	p.pool.Put(buf)
}
