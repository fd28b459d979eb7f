// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package accumulator

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/section/identity"
	"github.com/luxfi/section/prefix"
)

func peer(b byte) identity.Peer {
	return identity.Peer{Name: identity.Name{b}}
}

func threeElders() prefix.EldersInfo {
	return prefix.NewEldersInfo(prefix.Root, []identity.Peer{peer(1), peer(2), peer(3)}, 1)
}

func share(voter identity.Name) identity.ShareSignature {
	return identity.ShareSignature{Index: uint32(voter[0])}
}

func TestPollReturnsEventOnceQuorumReached(t *testing.T) {
	a := New(nil)
	elders := threeElders()
	e := Event{Kind: Offline, OfflineName: peer(9).Name}

	require.True(t, a.AddProof(e, peer(1).Name, share(peer(1).Name)))
	_, _, ok := a.Poll(ValidationContext{}, elders, 2)
	require.False(t, ok, "only one of two required votes cast")

	require.True(t, a.AddProof(e, peer(2).Name, share(peer(2).Name)))
	got, proof, ok := a.Poll(ValidationContext{}, elders, 2)
	require.True(t, ok)
	require.Equal(t, e.OfflineName, got.OfflineName)
	require.Len(t, proof, 2)

	_, _, ok = a.Poll(ValidationContext{}, elders, 2)
	require.False(t, ok, "event removed after first successful poll")
}

func TestAddProofSwallowsDuplicateVote(t *testing.T) {
	a := New(nil)
	e := Event{Kind: Offline, OfflineName: peer(9).Name}
	require.True(t, a.AddProof(e, peer(1).Name, share(peer(1).Name)))
	require.False(t, a.AddProof(e, peer(1).Name, share(peer(1).Name)))
}

func TestAddProofRejectsReplacedValue(t *testing.T) {
	a := New(nil)
	// key() for SectionInfo is keyed on Prefix alone, while sameValue also
	// compares Version; two versions for the same prefix therefore land in
	// the same slot but are a "Replaced" insertion, not a duplicate vote.
	v1 := Event{Kind: SectionInfo, SectionInfoValue: prefix.NewEldersInfo(prefix.Root, []identity.Peer{peer(1)}, 2)}
	v2 := Event{Kind: SectionInfo, SectionInfoValue: prefix.NewEldersInfo(prefix.Root, []identity.Peer{peer(1)}, 3)}

	require.True(t, a.AddProof(v1, peer(2).Name, share(peer(2).Name)))
	require.False(t, a.AddProof(v2, peer(3).Name, share(peer(3).Name)))
}

func TestPollRequiresTotalConsensusForAckMessage(t *testing.T) {
	a := New(nil)
	elders := threeElders()
	e := Event{Kind: AckMessage, AckValue: Ack{From: peer(5).Name}}

	require.True(t, a.AddProof(e, peer(1).Name, share(peer(1).Name)))
	require.True(t, a.AddProof(e, peer(2).Name, share(peer(2).Name)))
	_, _, ok := a.Poll(ValidationContext{}, elders, 2)
	require.False(t, ok, "ack requires all elders, not just quorum threshold")

	require.True(t, a.AddProof(e, peer(3).Name, share(peer(3).Name)))
	_, _, ok = a.Poll(ValidationContext{}, elders, 2)
	require.True(t, ok)
}

func TestPollRejectsNonSuccessorSectionInfo(t *testing.T) {
	a := New(nil)
	elders := threeElders()
	current := prefix.NewEldersInfo(prefix.Root, []identity.Peer{peer(1)}, 3)
	stale := prefix.NewEldersInfo(prefix.Root, []identity.Peer{peer(1), peer(2)}, 2) // not version 4
	e := Event{Kind: SectionInfo, SectionInfoValue: stale}

	require.True(t, a.AddProof(e, peer(1).Name, share(peer(1).Name)))
	require.True(t, a.AddProof(e, peer(2).Name, share(peer(2).Name)))

	_, _, ok := a.Poll(ValidationContext{CurrentInfo: current}, elders, 2)
	require.False(t, ok, "stale version is not a successor")
}

func TestPollAcceptsSuccessorSectionInfo(t *testing.T) {
	a := New(nil)
	elders := threeElders()
	current := prefix.NewEldersInfo(prefix.Root, []identity.Peer{peer(1)}, 3)
	next := prefix.NewEldersInfo(prefix.Root, []identity.Peer{peer(1), peer(2)}, 4)
	e := Event{Kind: SectionInfo, SectionInfoValue: next}

	require.True(t, a.AddProof(e, peer(1).Name, share(peer(1).Name)))
	require.True(t, a.AddProof(e, peer(2).Name, share(peer(2).Name)))

	got, _, ok := a.Poll(ValidationContext{CurrentInfo: current}, elders, 2)
	require.True(t, ok)
	require.Equal(t, uint64(4), got.SectionInfoValue.Version)
}

func TestPollAcceptsSplitSectionInfo(t *testing.T) {
	a := New(nil)
	elders := threeElders()
	current := prefix.NewEldersInfo(prefix.Root, []identity.Peer{peer(1), peer(2), peer(3)}, 3)
	child := prefix.NewEldersInfo(prefix.Root.Pushed(0), []identity.Peer{peer(1)}, 4)
	e := Event{Kind: SectionInfo, SectionInfoValue: child}

	require.True(t, a.AddProof(e, peer(1).Name, share(peer(1).Name)))
	require.True(t, a.AddProof(e, peer(2).Name, share(peer(2).Name)))

	got, _, ok := a.Poll(ValidationContext{CurrentInfo: current}, elders, 2)
	require.True(t, ok, "a split child's EldersInfo must pass isValid despite its extended prefix")
	require.Equal(t, child.Prefix, got.SectionInfoValue.Prefix)
}

func TestPollRejectsNonSequentialNeighbourInfo(t *testing.T) {
	a := New(nil)
	elders := threeElders()
	childPrefix := prefix.Root.Pushed(0)
	skippedVersion := prefix.NewEldersInfo(childPrefix, []identity.Peer{peer(1)}, 5)
	e := Event{Kind: NeighbourInfo, NeighbourInfoValue: skippedVersion}

	require.True(t, a.AddProof(e, peer(1).Name, share(peer(1).Name)))
	require.True(t, a.AddProof(e, peer(2).Name, share(peer(2).Name)))

	ctx := ValidationContext{NeighbourVersions: map[string]uint64{childPrefix.String(): 3}}
	_, _, ok := a.Poll(ctx, elders, 2)
	require.False(t, ok, "version 5 does not immediately follow known version 3")
}

func TestAddProofDropsStartDkg(t *testing.T) {
	a := New(nil)
	e := Event{Kind: StartDkg}
	require.False(t, a.AddProof(e, peer(1).Name, share(peer(1).Name)))
	require.False(t, a.Pending(e))
}
