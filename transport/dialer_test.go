/*
 * Copyright (c) 2019 The chirp authors.
 * See the LICENSE file for more information.
 */

package transport

import (
	"net"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"
)

func TestDialer_Dial(t *testing.T) {
	t.Parallel()

	cfg := &Config{DialTimeout: time.Second * 5, KeepAlive: time.Second * 120}
	d := NewDialer(cfg)

	var dialedAddr string

	// SRV resolution error falls back to the standard port...
	d.srvResolve = func(_, _, _ string) (cname string, addrs []*net.SRV, err error) {
		return "", nil, errors.New("resolver mocked error")
	}
	d.dialTimeout = func(_, addr string, _ time.Duration) (net.Conn, error) {
		dialedAddr = addr
		return newFakeSocketConn(), nil
	}
	tr, err := d.Dial("chirp.im")
	require.Nil(t, err)
	require.NotNil(t, tr)
	require.Equal(t, "chirp.im:5222", dialedAddr)

	// SRV record target...
	d.srvResolve = func(service, proto, name string) (cname string, addrs []*net.SRV, err error) {
		require.Equal(t, "xmpp-client", service)
		return "", []*net.SRV{{Target: "xmpp.chirp.im.", Port: 15222}}, nil
	}
	tr, err = d.Dial("chirp.im")
	require.Nil(t, err)
	require.NotNil(t, tr)
	require.Equal(t, "xmpp.chirp.im:15222", dialedAddr)
}

func TestDialer_BreakerTrips(t *testing.T) {
	t.Parallel()

	d := NewDialer(&Config{DialTimeout: time.Second})
	d.srvResolve = func(_, _, _ string) (cname string, addrs []*net.SRV, err error) {
		return "", nil, nil
	}
	mockedErr := errors.New("dialer mocked error")
	d.dialTimeout = func(_, _ string, _ time.Duration) (net.Conn, error) {
		return nil, mockedErr
	}
	// gobreaker opens after enough consecutive failures
	for i := 0; i < 8; i++ {
		_, err := d.Dial("chirp.im")
		require.NotNil(t, err)
	}
	_, err := d.Dial("chirp.im")
	require.NotNil(t, err)
	require.Contains(t, err.Error(), "circuit breaker is open")
}

func TestDialer_ConfigUnmarshal(t *testing.T) {
	t.Parallel()

	doc := `
dial_timeout: 3
keep_alive: 120
`
	cfg := Config{}
	require.Nil(t, yaml.Unmarshal([]byte(doc), &cfg))
	require.Equal(t, time.Second*3, cfg.DialTimeout)
	require.Equal(t, time.Second*120, cfg.KeepAlive)

	cfg = Config{}
	require.Nil(t, yaml.Unmarshal([]byte(`{}`), &cfg))
	require.Equal(t, defaultDialTimeout, cfg.DialTimeout)

	require.NotNil(t, yaml.Unmarshal([]byte(`dial_timeout: [`), &cfg))
}
