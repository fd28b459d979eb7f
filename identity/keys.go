// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package identity

import (
	"crypto/rand"

	blst "github.com/supranational/blst/bindings/go"

	"github.com/luxfi/section/internal/errs"
)

// dst is the domain separation tag used for all section-core signing. It
// separates section-core signatures from BLS signatures made under other
// tags; every message kind inside the core (membership votes, chunk acks,
// chain links) is signed under this one tag.
var dst = []byte("LUXFI-SECTION-CORE-BLS-V1")

// SecretKeyShare is a node's share of a section's BLS secret key. A node
// holds at most one share per current SectionKey; absence means the node
// is an adult, or a newly promoted elder awaiting DKG completion.
type SecretKeyShare struct {
	Index uint32
	sk    blst.SecretKey
}

// GenerateSecretKeyShare creates a new, randomly seeded key share at the
// given index. Index must match the share's position in the EldersInfo
// ordering that produced it.
func GenerateSecretKeyShare(index uint32) (*SecretKeyShare, error) {
	var ikm [32]byte
	if _, err := rand.Read(ikm[:]); err != nil {
		return nil, err
	}
	sk := *blst.KeyGen(ikm[:])
	return &SecretKeyShare{Index: index, sk: sk}, nil
}

// PublicKey returns this share's public key on G1.
func (s *SecretKeyShare) PublicKey() *blst.P1Affine {
	return new(blst.P1Affine).From(&s.sk)
}

// ShareSignature is one elder's signature share over a message, produced
// by SecretKeyShare.Sign.
type ShareSignature struct {
	Index uint32
	Sig   *blst.P2Affine
}

// Sign produces this share's signature over msg.
func (s *SecretKeyShare) Sign(msg []byte) ShareSignature {
	sig := new(blst.P2Affine).Sign(&s.sk, msg, dst)
	return ShareSignature{Index: s.Index, Sig: sig}
}

// PublicKeySet is a section's BLS public key set: the combined public
// key, the signing threshold, and each elder's indexed share public key.
// A section holds at most one current PublicKeySet; a completed DKG
// produces the next one.
type PublicKeySet struct {
	Threshold  int
	SharePKs   map[uint32]*blst.P1Affine
	CombinedPK *blst.P1Affine
}

// NewPublicKeySet builds a key set from the per-elder share public keys
// and the signing threshold.
func NewPublicKeySet(threshold int, shares map[uint32]*blst.P1Affine) *PublicKeySet {
	pks := make(map[uint32]*blst.P1Affine, len(shares))
	agg := new(blst.P1Aggregate)
	affines := make([]*blst.P1Affine, 0, len(shares))
	for idx, pk := range shares {
		pks[idx] = pk
		affines = append(affines, pk)
	}
	if len(affines) > 0 {
		agg.Aggregate(affines, false)
		combined := agg.ToAffine()
		return &PublicKeySet{Threshold: threshold, SharePKs: pks, CombinedPK: combined}
	}
	return &PublicKeySet{Threshold: threshold, SharePKs: pks}
}

// Verify checks a single share signature against the share's registered
// public key in pks.
func Verify(pks *PublicKeySet, msg []byte, share ShareSignature) bool {
	pk, ok := pks.SharePKs[share.Index]
	if !ok {
		return false
	}
	return share.Sig.Verify(true, pk, true, msg, dst)
}

// Combine aggregates shares into a threshold signature verifiable under
// the set's combined public key. It fails with ErrInvalidElderDkgResult
// if any share's index does not match a known share of pks, since that
// indicates the DKG result used to build pks disagrees with the signer's
// EldersInfo ordering.
func Combine(pks *PublicKeySet, shares []ShareSignature) (*blst.P2Affine, error) {
	if len(shares) < pks.Threshold {
		return nil, errs.ErrInvalidElderDkgResult
	}
	sigs := make([]*blst.P2Affine, 0, len(shares))
	seen := make(map[uint32]bool, len(shares))
	for _, s := range shares {
		if _, ok := pks.SharePKs[s.Index]; !ok {
			return nil, errs.ErrInvalidElderDkgResult
		}
		if seen[s.Index] {
			continue
		}
		seen[s.Index] = true
		sigs = append(sigs, s.Sig)
	}
	agg := new(blst.P2Aggregate)
	agg.Aggregate(sigs, false)
	return agg.ToAffine(), nil
}

// VerifyCombined checks a combined signature under the set's combined
// public key.
func VerifyCombined(pks *PublicKeySet, msg []byte, sig *blst.P2Affine) bool {
	if pks.CombinedPK == nil {
		return false
	}
	return sig.Verify(true, pks.CombinedPK, true, msg, dst)
}
