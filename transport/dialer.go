/*
 * Copyright (c) 2019 The chirp authors.
 * See the LICENSE file for more information.
 */

package transport

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sony/gobreaker"
)

const defaultDialTimeout = time.Duration(15) * time.Second

// Config represents a dialer configuration.
type Config struct {
	DialTimeout time.Duration
	KeepAlive   time.Duration
}

type configProxy struct {
	DialTimeout int `yaml:"dial_timeout"`
	KeepAlive   int `yaml:"keep_alive"`
}

// UnmarshalYAML satisfies Unmarshaler interface.
func (c *Config) UnmarshalYAML(unmarshal func(interface{}) error) error {
	p := configProxy{}
	if err := unmarshal(&p); err != nil {
		return err
	}
	c.DialTimeout = time.Duration(p.DialTimeout) * time.Second
	if c.DialTimeout == 0 {
		c.DialTimeout = defaultDialTimeout
	}
	c.KeepAlive = time.Duration(p.KeepAlive) * time.Second
	return nil
}

// Dialer establishes socket transports against an XMPP service.
// Consecutive dial failures trip an internal circuit breaker so that
// reconnection attempts against a dead or unreachable server back off
// instead of hammering it.
type Dialer struct {
	cfg         *Config
	cb          *gobreaker.CircuitBreaker
	srvResolve  func(service, proto, name string) (cname string, addrs []*net.SRV, err error)
	dialTimeout func(network, address string, timeout time.Duration) (net.Conn, error)
}

// NewDialer returns a new initialized dialer.
func NewDialer(cfg *Config) *Dialer {
	return &Dialer{
		cfg: cfg,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name: "dialer",
		}),
		srvResolve:  net.LookupSRV,
		dialTimeout: net.DialTimeout,
	}
}

// Dial establishes a new socket transport to a remote XMPP service domain.
// The target address is resolved through an 'xmpp-client' SRV query, falling
// back to the standard client port when no record is published.
func (d *Dialer) Dial(remoteDomain string) (Transport, error) {
	tr, err := d.cb.Execute(func() (interface{}, error) {
		return d.dial(remoteDomain)
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to dial %s", remoteDomain)
	}
	return tr.(Transport), nil
}

// DialAddress establishes a new socket transport to an explicit
// host:port address, skipping SRV resolution.
func (d *Dialer) DialAddress(address string) (Transport, error) {
	tr, err := d.cb.Execute(func() (interface{}, error) {
		conn, err := d.dialTimeout("tcp", address, d.cfg.DialTimeout)
		if err != nil {
			return nil, err
		}
		return NewSocketTransport(conn, d.cfg.KeepAlive), nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to dial %s", address)
	}
	return tr.(Transport), nil
}

func (d *Dialer) dial(remoteDomain string) (Transport, error) {
	var target string

	_, addrs, err := d.srvResolve("xmpp-client", "tcp", remoteDomain)
	if err != nil || len(addrs) == 0 || (len(addrs) == 1 && addrs[0].Target == ".") {
		// fall back to standard client port
		target = remoteDomain + ":5222"
	} else {
		target = fmt.Sprintf("%s:%s", strings.TrimSuffix(addrs[0].Target, "."), strconv.Itoa(int(addrs[0].Port)))
	}
	conn, err := d.dialTimeout("tcp", target, d.cfg.DialTimeout)
	if err != nil {
		return nil, err
	}
	return NewSocketTransport(conn, d.cfg.KeepAlive), nil
}
