/*
 * Copyright (c) 2019 The chirp authors.
 * See the LICENSE file for more information.
 */

package stream

import (
	"github.com/chirp-im/chirp/xmpp"
)

// Filter decides whether or not an inbound element should be
// delivered to a listener. A nil Filter matches every element.
type Filter func(elem xmpp.XElement) bool

// IDFilter returns a filter matching elements carrying a given 'id' attribute.
func IDFilter(identifier string) Filter {
	return func(elem xmpp.XElement) bool {
		return elem.ID() == identifier
	}
}

// NameFilter returns a filter matching elements with a given node name.
func NameFilter(name string) Filter {
	return func(elem xmpp.XElement) bool {
		return elem.Name() == name
	}
}

// AndFilter returns a filter matching elements accepted by every given filter.
func AndFilter(filters ...Filter) Filter {
	return func(elem xmpp.XElement) bool {
		for _, f := range filters {
			if f != nil && !f(elem) {
				return false
			}
		}
		return true
	}
}
