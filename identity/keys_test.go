// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package identity

import (
	"testing"

	blst "github.com/supranational/blst/bindings/go"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/section/internal/errs"
)

func newTestKeySet(t *testing.T, n, threshold int) ([]*SecretKeyShare, *PublicKeySet) {
	t.Helper()
	shares := make([]*SecretKeyShare, n)
	pubs := make(map[uint32]*blst.P1Affine, n)
	for i := 0; i < n; i++ {
		sk, err := GenerateSecretKeyShare(uint32(i))
		require.NoError(t, err)
		shares[i] = sk
		pubs[uint32(i)] = sk.PublicKey()
	}
	return shares, NewPublicKeySet(threshold, pubs)
}

func TestCombineAndVerifyCombined(t *testing.T) {
	shares, pks := newTestKeySet(t, 4, 3)
	msg := []byte("Online(peer,age)")

	sigs := make([]ShareSignature, 0, 3)
	for i := 0; i < 3; i++ {
		sig := shares[i].Sign(msg)
		require.True(t, Verify(pks, msg, sig))
		sigs = append(sigs, sig)
	}

	combined, err := Combine(pks, sigs)
	require.NoError(t, err)
	require.True(t, VerifyCombined(pks, msg, combined))
}

func TestCombineRejectsUnknownShareIndex(t *testing.T) {
	shares, pks := newTestKeySet(t, 3, 3)
	msg := []byte("event")

	sigs := []ShareSignature{
		shares[0].Sign(msg),
		shares[1].Sign(msg),
		{Index: 99, Sig: shares[2].Sign(msg).Sig},
	}

	_, err := Combine(pks, sigs)
	require.ErrorIs(t, err, errs.ErrInvalidElderDkgResult)
}

func TestNameCloserTo(t *testing.T) {
	target := Name{0x00}
	a := Name{0x01}
	b := Name{0x02}
	require.True(t, a.CloserTo(target, b))
	require.False(t, b.CloserTo(target, a))
}
