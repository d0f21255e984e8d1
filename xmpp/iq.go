/*
 * Copyright (c) 2019 The chirp authors.
 * See the LICENSE file for more information.
 */

package xmpp

import (
	"errors"
	"fmt"
)

const (
	// GetType represents a 'get' IQ type.
	GetType = "get"

	// SetType represents a 'set' IQ type.
	SetType = "set"

	// ResultType represents a 'result' IQ type.
	ResultType = "result"
)

// PingNamespace represents the XEP-0199 ping namespace.
const PingNamespace = "urn:xmpp:ping"

// IQ type represents an <iq> element.
type IQ struct {
	Element
}

// NewIQType creates and returns a new IQ element.
func NewIQType(identifier string, iqType string) *IQ {
	iq := &IQ{}
	iq.SetName(IQName)
	iq.SetID(identifier)
	iq.SetType(iqType)
	return iq
}

// NewIQFromElement creates an IQ object from an XElement.
func NewIQFromElement(e XElement) (*IQ, error) {
	if e.Name() != IQName {
		return nil, fmt.Errorf("wrong IQ element name: %s", e.Name())
	}
	if len(e.ID()) == 0 {
		return nil, errors.New(`IQ "id" attribute is required`)
	}
	iqType := e.Type()
	if len(iqType) == 0 {
		return nil, errors.New(`IQ "type" attribute is required`)
	}
	if !isIQType(iqType) {
		return nil, fmt.Errorf(`invalid IQ "type" attribute: %s`, iqType)
	}
	iq := &IQ{}
	iq.copyFrom(e)
	return iq, nil
}

// NewPing creates a new XEP-0199 ping IQ with a given correlation identifier.
func NewPing(identifier string) *IQ {
	iq := NewIQType(identifier, GetType)
	iq.AppendElement(NewElementNamespace("ping", PingNamespace))
	return iq
}

// IsGet returns true if this is a 'get' type IQ.
func (iq *IQ) IsGet() bool {
	return iq.Type() == GetType
}

// IsSet returns true if this is a 'set' type IQ.
func (iq *IQ) IsSet() bool {
	return iq.Type() == SetType
}

// IsResult returns true if this is a 'result' type IQ.
func (iq *IQ) IsResult() bool {
	return iq.Type() == ResultType
}

// IsPing returns true if this is a 'get' type IQ carrying a ping child element.
func (iq *IQ) IsPing() bool {
	return iq.IsGet() && iq.Elements().ChildNamespace("ping", PingNamespace) != nil
}

// ResultIQ returns the instance associated result IQ.
func (iq *IQ) ResultIQ() *IQ {
	rs := &IQ{}
	rs.SetName(IQName)
	rs.SetAttribute("type", ResultType)
	rs.SetAttribute("id", iq.ID())
	if to := iq.From(); len(to) > 0 {
		rs.SetAttribute("to", to)
	}
	if from := iq.To(); len(from) > 0 {
		rs.SetAttribute("from", from)
	}
	return rs
}

func isIQType(tp string) bool {
	switch tp {
	case ErrorType, GetType, SetType, ResultType:
		return true
	}
	return false
}
