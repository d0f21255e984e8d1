/*
 * Copyright (c) 2019 The chirp authors.
 * See the LICENSE file for more information.
 */

package keepalive

import (
	"time"
)

// defaultReplyTimeout defines how long a probe reply is awaited before
// failure listeners are notified.
const defaultReplyTimeout = time.Duration(5) * time.Second

// Config represents a keepalive configuration. A non positive interval
// disables probing.
type Config struct {
	Interval     time.Duration
	ReplyTimeout time.Duration
}

type configProxy struct {
	Interval     int `yaml:"interval"`
	ReplyTimeout int `yaml:"reply_timeout"`
}

// UnmarshalYAML satisfies Unmarshaler interface.
func (c *Config) UnmarshalYAML(unmarshal func(interface{}) error) error {
	p := configProxy{}
	if err := unmarshal(&p); err != nil {
		return err
	}
	c.Interval = time.Duration(p.Interval) * time.Millisecond
	c.ReplyTimeout = time.Duration(p.ReplyTimeout) * time.Millisecond
	if c.ReplyTimeout <= 0 {
		c.ReplyTimeout = defaultReplyTimeout
	}
	return nil
}
