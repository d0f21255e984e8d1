/*
 * Copyright (c) 2019 The chirp authors.
 * See the LICENSE file for more information.
 */

package app

import (
	"bytes"
	"io/ioutil"

	"github.com/chirp-im/chirp/keepalive"
	"github.com/chirp-im/chirp/log"
	"github.com/chirp-im/chirp/transport"
	"github.com/chirp-im/chirp/writer"
	"gopkg.in/yaml.v2"
)

// Config represents a global configuration.
type Config struct {
	PIDFile   string           `yaml:"pid_path"`
	Logger    log.Config       `yaml:"logger"`
	Transport transport.Config `yaml:"transport"`
	Writer    writer.Config    `yaml:"writer"`
	Keepalive keepalive.Config `yaml:"keepalive"`
	Service   string           `yaml:"service"`
	Address   string           `yaml:"address"`
}

// FromFile loads default global configuration from
// a specified file.
func (cfg *Config) FromFile(configFile string) error {
	b, err := ioutil.ReadFile(configFile)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(b, cfg)
}

// FromBuffer loads default global configuration from
// a specified byte buffer.
func (cfg *Config) FromBuffer(buf *bytes.Buffer) error {
	return yaml.Unmarshal(buf.Bytes(), cfg)
}
