/*
 * Copyright (c) 2019 The chirp authors.
 * See the LICENSE file for more information.
 */

package stream

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/chirp-im/chirp/xmpp"
)

func TestCollector_OneShot(t *testing.T) {
	t.Parallel()

	c := NewCollector()
	require.Nil(t, c.Poll())

	first := xmpp.NewIQType("iq01", xmpp.ResultType)
	second := xmpp.NewIQType("iq02", xmpp.ResultType)

	c.ProcessElement(first)
	c.ProcessElement(second) // ignored: collector already done

	got := c.Poll()
	require.NotNil(t, got)
	require.Equal(t, "iq01", got.ID())
	require.Nil(t, c.Poll())
}

func TestCollector_Cancel(t *testing.T) {
	t.Parallel()

	c := NewCollector()
	c.Cancel()

	c.ProcessElement(xmpp.NewIQType("iq01", xmpp.ResultType)) // late delivery
	require.Nil(t, c.Poll())
}

func TestCollector_Next(t *testing.T) {
	t.Parallel()

	c := NewCollector()
	go func() {
		time.Sleep(time.Millisecond * 20)
		c.ProcessElement(xmpp.NewIQType("iq01", xmpp.ResultType))
	}()
	got := c.Next(time.Second)
	require.NotNil(t, got)

	c2 := NewCollector()
	require.Nil(t, c2.Next(time.Millisecond*20))
}
