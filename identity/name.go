// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package identity implements node identity (Name), the Peer record, and
// BLS key-share management (spec component C1), grounded on the
// teacher's crypto/bls stub and validator/validator.go.
package identity

import (
	"bytes"
	"encoding/hex"
)

// NameLen is the length in bytes of a Name, a 256-bit opaque value
// derived from a public key.
const NameLen = 32

// Name is a node's 256-bit identifier. Distance between two Names is
// bitwise XOR; comparison is numeric on XOR to a target.
type Name [NameLen]byte

// String returns the hex encoding of the name.
func (n Name) String() string {
	return hex.EncodeToString(n[:])
}

// Bytes returns a copy of the name's bytes.
func (n Name) Bytes() []byte {
	b := make([]byte, NameLen)
	copy(b, n[:])
	return b
}

// Less reports whether n sorts lexicographically before other.
func (n Name) Less(other Name) bool {
	return bytes.Compare(n[:], other[:]) < 0
}

// Xor returns the bitwise XOR distance between n and other.
func (n Name) Xor(other Name) Name {
	var out Name
	for i := range n {
		out[i] = n[i] ^ other[i]
	}
	return out
}

// CloserTo reports whether n is strictly closer to target than other is,
// measured by XOR distance, ties broken by Name ascending (the ordering
// rule used throughout chunk placement and routing).
func (n Name) CloserTo(target, other Name) bool {
	dn := n.Xor(target)
	do := other.Xor(target)
	cmp := bytes.Compare(dn[:], do[:])
	if cmp != 0 {
		return cmp < 0
	}
	return n.Less(other)
}

// Bit returns the value (0 or 1) of the i-th most significant bit.
func (n Name) Bit(i int) int {
	byteIdx := i / 8
	bitIdx := uint(7 - i%8)
	return int((n[byteIdx] >> bitIdx) & 1)
}

// NameFromBytes copies up to NameLen bytes of b into a Name, left-aligned,
// zero-padding any remainder.
func NameFromBytes(b []byte) Name {
	var n Name
	copy(n[:], b)
	return n
}

// SetBit sets the i-th most significant bit to bit (0 or 1), returning
// the modified name. Used by prefix.Pushed to build child prefixes.
func (n Name) SetBit(i, bit int) Name {
	byteIdx := i / 8
	bitIdx := uint(7 - i%8)
	if bit == 0 {
		n[byteIdx] &^= 1 << bitIdx
	} else {
		n[byteIdx] |= 1 << bitIdx
	}
	return n
}
