/*
 * Copyright (c) 2019 The chirp authors.
 * See the LICENSE file for more information.
 */

package transport

import (
	"bytes"
	"crypto/tls"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeSocketConn struct {
	r      *bytes.Buffer
	w      *bytes.Buffer
	closed bool
}

func newFakeSocketConn() *fakeSocketConn {
	return &fakeSocketConn{
		r: new(bytes.Buffer),
		w: new(bytes.Buffer),
	}
}

func (c *fakeSocketConn) Read(b []byte) (n int, err error)   { return c.r.Read(b) }
func (c *fakeSocketConn) Write(b []byte) (n int, err error)  { return c.w.Write(b) }
func (c *fakeSocketConn) Close() error                       { c.closed = true; return nil }
func (c *fakeSocketConn) LocalAddr() net.Addr                { return localAddr }
func (c *fakeSocketConn) RemoteAddr() net.Addr               { return remoteAddr }
func (c *fakeSocketConn) SetDeadline(t time.Time) error      { return nil }
func (c *fakeSocketConn) SetReadDeadline(t time.Time) error  { return nil }
func (c *fakeSocketConn) SetWriteDeadline(t time.Time) error { return nil }

type fakeAddr int

var (
	localAddr  = fakeAddr(1)
	remoteAddr = fakeAddr(2)
)

func (a fakeAddr) Network() string { return "net" }
func (a fakeAddr) String() string  { return "str" }

func TestSocketTransport(t *testing.T) {
	buff := make([]byte, 4096)
	conn := newFakeSocketConn()
	st := NewSocketTransport(conn, time.Second)
	st2 := st.(*socketTransport)

	require.Equal(t, Socket, st.Type())
	require.Equal(t, "socket", st.Type().String())

	_, err := st.WriteString(`<ping xmlns="urn:xmpp:ping"/>`)
	require.Nil(t, err)

	// writes are buffered until flushed
	require.Equal(t, 0, conn.w.Len())

	require.Nil(t, st.Flush())
	require.Equal(t, `<ping xmlns="urn:xmpp:ping"/>`, conn.w.String())

	conn.r.WriteString(`<iq id="iq01" type="result"/>`)
	n, err := st.Read(buff)
	require.Nil(t, err)
	require.Equal(t, `<iq id="iq01" type="result"/>`, string(buff[:n]))

	st.StartTLS(&tls.Config{})
	_, ok := st2.conn.(*tls.Conn)
	require.True(t, ok)

	require.Nil(t, st.Close())
	require.True(t, conn.closed)
}
