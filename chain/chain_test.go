// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"testing"

	blst "github.com/supranational/blst/bindings/go"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/section/identity"
)

func newSingleKeySet(t *testing.T) (*identity.PublicKeySet, *identity.SecretKeyShare) {
	t.Helper()
	sk, err := identity.GenerateSecretKeyShare(0)
	require.NoError(t, err)
	pks := identity.NewPublicKeySet(1, map[uint32]*blst.P1Affine{0: sk.PublicKey()})
	return pks, sk
}

func TestExtendAndValidate(t *testing.T) {
	genesisPKS, genesisSK := newSingleKeySet(t)
	c := NewGenesis(genesisPKS)
	require.True(t, c.Validate())

	nextPKS, _ := newSingleKeySet(t)
	sig := genesisSK.Sign(nextPKS.CombinedPK.Serialize())
	combined, err := identity.Combine(genesisPKS, []identity.ShareSignature{sig})
	require.NoError(t, err)

	require.NoError(t, c.Extend(nextPKS, combined))
	require.Equal(t, 2, c.Len())
	require.True(t, c.Validate())
}

func TestExtendRejectsBadSignature(t *testing.T) {
	genesisPKS, _ := newSingleKeySet(t)
	c := NewGenesis(genesisPKS)

	nextPKS, otherSK := newSingleKeySet(t)
	badSig := otherSK.Sign([]byte("not the right message"))
	combined, err := identity.Combine(nextPKS, []identity.ShareSignature{badSig})
	require.NoError(t, err)

	err = c.Extend(nextPKS, combined)
	require.Error(t, err)
	require.Equal(t, 1, c.Len())
}

func TestSliceFrom(t *testing.T) {
	genesisPKS, genesisSK := newSingleKeySet(t)
	c := NewGenesis(genesisPKS)

	nextPKS, _ := newSingleKeySet(t)
	sig := genesisSK.Sign(nextPKS.CombinedPK.Serialize())
	combined, err := identity.Combine(genesisPKS, []identity.ShareSignature{sig})
	require.NoError(t, err)
	require.NoError(t, c.Extend(nextPKS, combined))

	require.Len(t, c.SliceFrom(1), 1)
	require.Len(t, c.SliceFrom(0), 2)
}
