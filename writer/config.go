/*
 * Copyright (c) 2019 The chirp authors.
 * See the LICENSE file for more information.
 */

package writer

import (
	"fmt"
)

// defaultQueueSize defines the maximum number of outbound elements
// waiting to be written before enqueuers start blocking.
const defaultQueueSize = 500

// Config represents an outbound writer configuration.
type Config struct {
	QueueSize int
}

type configProxy struct {
	QueueSize int `yaml:"queue_size"`
}

// UnmarshalYAML satisfies Unmarshaler interface.
func (c *Config) UnmarshalYAML(unmarshal func(interface{}) error) error {
	p := configProxy{}
	if err := unmarshal(&p); err != nil {
		return err
	}
	if p.QueueSize < 0 {
		return fmt.Errorf("writer.Config: queue size must be 0 or higher")
	}
	c.QueueSize = p.QueueSize
	if c.QueueSize == 0 {
		c.QueueSize = defaultQueueSize
	}
	return nil
}
