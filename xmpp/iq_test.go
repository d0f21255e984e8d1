/*
 * Copyright (c) 2019 The chirp authors.
 * See the LICENSE file for more information.
 */

package xmpp

import (
	"testing"

	"github.com/pborman/uuid"
	"github.com/stretchr/testify/require"
)

func TestIQ_Build(t *testing.T) {
	t.Parallel()

	iq := NewIQType("iq01", GetType)
	require.True(t, iq.IsGet())
	require.False(t, iq.IsSet())
	require.False(t, iq.IsResult())
	require.Equal(t, `<iq id="iq01" type="get"/>`, iq.String())
}

func TestIQ_FromElement(t *testing.T) {
	t.Parallel()

	e := NewElementName("message")
	_, err := NewIQFromElement(e)
	require.NotNil(t, err)

	e = NewElementName("iq")
	_, err = NewIQFromElement(e)
	require.NotNil(t, err) // missing id

	e.SetID("iq01")
	_, err = NewIQFromElement(e)
	require.NotNil(t, err) // missing type

	e.SetType("invalid")
	_, err = NewIQFromElement(e)
	require.NotNil(t, err)

	e.SetType(ResultType)
	iq, err := NewIQFromElement(e)
	require.Nil(t, err)
	require.True(t, iq.IsResult())
}

func TestIQ_Ping(t *testing.T) {
	t.Parallel()

	pingID := uuid.New()
	ping := NewPing(pingID)
	require.True(t, ping.IsPing())
	require.Equal(t, pingID, ping.ID())

	notPing := NewIQType(uuid.New(), GetType)
	require.False(t, notPing.IsPing())
}

func TestIQ_ResultIQ(t *testing.T) {
	t.Parallel()

	iq := NewIQType("iq01", GetType)
	iq.SetAttribute("from", "chirp.im")
	iq.SetAttribute("to", "juliet@chirp.im/balcony")

	result := iq.ResultIQ()
	require.Equal(t, "iq01", result.ID())
	require.True(t, result.IsResult())
	require.Equal(t, "chirp.im", result.To())
	require.Equal(t, "juliet@chirp.im/balcony", result.From())
}
