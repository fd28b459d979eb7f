// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package chain implements the section's append-only proof-of-history of
// BLS section keys (spec component C3), grounded on
// original_source/src/chain/chain.rs's validate_our_history and
// add_elders_info combine-signature machinery.
package chain

import (
	blst "github.com/supranational/blst/bindings/go"

	"github.com/luxfi/section/identity"
	"github.com/luxfi/section/internal/errs"
)

// Block is one link of the section chain: a BLS public key set together
// with the signature produced by the predecessor key over that key set's
// combined public key bytes. The genesis block is self-signed by trusted
// genesis material and is not verified against a predecessor.
type Block struct {
	Key       *identity.PublicKeySet
	Signature *blst.P2Affine
}

// Chain is the append-only list of Blocks. Every non-genesis block
// verifies under its predecessor.
type Chain struct {
	blocks []Block
}

// NewGenesis starts a chain at the given genesis key, which is trusted
// without verification.
func NewGenesis(genesisKey *identity.PublicKeySet) *Chain {
	return &Chain{blocks: []Block{{Key: genesisKey}}}
}

// Len returns the number of blocks in the chain.
func (c *Chain) Len() int {
	return len(c.blocks)
}

// Last returns the most recently appended block's key set.
func (c *Chain) Last() *identity.PublicKeySet {
	return c.blocks[len(c.blocks)-1].Key
}

// Extend appends newKey, signed by the current last key, to the chain.
// It fails with ErrInvalidNewSectionInfo if the signature does not verify
// under the current last key.
func (c *Chain) Extend(newKey *identity.PublicKeySet, signatureByCurrentKey *blst.P2Affine) error {
	current := c.Last()
	if !identity.VerifyCombined(current, newKey.CombinedPK.Serialize(), signatureByCurrentKey) {
		return errs.ErrInvalidNewSectionInfo
	}
	c.blocks = append(c.blocks, Block{Key: newKey, Signature: signatureByCurrentKey})
	return nil
}

// SliceFrom returns a proof fragment starting at idx, used to prove our
// history to a recipient that knows an older key.
func (c *Chain) SliceFrom(idx int) []Block {
	if idx < 0 {
		idx = 0
	}
	if idx > len(c.blocks) {
		return nil
	}
	out := make([]Block, len(c.blocks)-idx)
	copy(out, c.blocks[idx:])
	return out
}

// Validate re-verifies every block in the chain against its predecessor.
// It is deterministic and linear in chain length.
func (c *Chain) Validate() bool {
	for i := 1; i < len(c.blocks); i++ {
		prev := c.blocks[i-1]
		cur := c.blocks[i]
		if cur.Signature == nil {
			return false
		}
		if !identity.VerifyCombined(prev.Key, cur.Key.CombinedPK.Serialize(), cur.Signature) {
			return false
		}
	}
	return true
}
