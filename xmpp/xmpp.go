/*
 * Copyright (c) 2019 The chirp authors.
 * See the LICENSE file for more information.
 */

package xmpp

import (
	"io"
)

const (
	// MessageName represents "message" stanza name.
	MessageName = "message"

	// PresenceName represents "presence" stanza name.
	PresenceName = "presence"

	// IQName represents "iq" stanza name.
	IQName = "iq"
)

// XElement represents a read-only XML node element.
type XElement interface {
	Name() string
	Attributes() AttributeSet
	Elements() ElementSet

	Text() string

	Namespace() string
	ID() string
	Type() string
	From() string
	To() string

	IsStanza() bool
	IsError() bool
	Error() XElement

	String() string
	ToXML(w io.Writer, includeClosing bool)
}
