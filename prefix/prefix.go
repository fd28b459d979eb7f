// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package prefix implements binary prefix arithmetic over 256-bit Names
// and the map from prefix to elder set and key (spec component C2),
// grounded on the map+mutex shape of quorum/static.go.
package prefix

import (
	"strings"

	"github.com/luxfi/section/identity"
)

// MaxBits is the maximum length of a Prefix, matching identity.NameLen*8.
const MaxBits = identity.NameLen * 8

// Prefix is a bit-string of length 0..=256 over Names. Only the first
// Bits bits of the underlying Name are meaningful.
type Prefix struct {
	name identity.Name
	bits int
}

// Root is the zero-length prefix that matches every Name.
var Root = Prefix{}

// BitCount returns the number of significant bits in the prefix.
func (p Prefix) BitCount() int {
	return p.bits
}

// Matches reports whether name agrees with p on all of p's bits.
func (p Prefix) Matches(name identity.Name) bool {
	for i := 0; i < p.bits; i++ {
		if p.name.Bit(i) != name.Bit(i) {
			return false
		}
	}
	return true
}

// IsExtensionOf reports whether p is a strict, longer extension of other:
// p matches every bit of other and has strictly more bits.
func (p Prefix) IsExtensionOf(other Prefix) bool {
	if p.bits <= other.bits {
		return false
	}
	return p.commonBits(other) >= other.bits
}

// IsCompatible reports whether one of p, other is a prefix of the other
// (including equality).
func (p Prefix) IsCompatible(other Prefix) bool {
	minBits := p.bits
	if other.bits < minBits {
		minBits = other.bits
	}
	return p.commonBits(other) >= minBits
}

// Pushed returns the child prefix obtained by appending bit (0 or 1).
func (p Prefix) Pushed(bit int) Prefix {
	return Prefix{
		name: p.name.SetBit(p.bits, bit),
		bits: p.bits + 1,
	}
}

// Equal reports whether p and other denote the same prefix.
func (p Prefix) Equal(other Prefix) bool {
	return p.bits == other.bits && p.commonBits(other) >= p.bits
}

// commonBits returns the number of leading bits p and other agree on.
func (p Prefix) commonBits(other Prefix) int {
	max := p.bits
	if other.bits > max {
		max = other.bits
	}
	if max > MaxBits {
		max = MaxBits
	}
	for i := 0; i < max; i++ {
		if p.name.Bit(i) != other.name.Bit(i) {
			return i
		}
	}
	return max
}

// String renders the prefix as its bit pattern, e.g. "01".
func (p Prefix) String() string {
	var sb strings.Builder
	for i := 0; i < p.bits; i++ {
		if p.name.Bit(i) == 0 {
			sb.WriteByte('0')
		} else {
			sb.WriteByte('1')
		}
	}
	return sb.String()
}

// Value exposes the raw bit-pattern Name, used to break ties between
// prefixes of equal length (lower prefix value wins).
func (p Prefix) Value() identity.Name {
	return p.name
}

// Less orders prefixes first by bit pattern (only the common length is
// compared), then by length; used to break closest() ties deterministically.
func (p Prefix) Less(other Prefix) bool {
	n := p.bits
	if other.bits < n {
		n = other.bits
	}
	for i := 0; i < n; i++ {
		a, b := p.name.Bit(i), other.name.Bit(i)
		if a != b {
			return a < b
		}
	}
	return p.bits < other.bits
}

