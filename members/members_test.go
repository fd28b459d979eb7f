// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package members

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/section/identity"
	"github.com/luxfi/section/prefix"
)

func TestJoinLeave(t *testing.T) {
	tbl := NewTable()
	p := identity.Peer{Name: identity.Name{1}, Address: "127.0.0.1:1"}
	tbl.Join(p, 4)

	ns, ok := tbl.Get(p.Name)
	require.True(t, ok)
	require.Equal(t, Joined, ns.State)

	require.True(t, tbl.Leave(p.Name))
	_, ok = tbl.Get(p.Name)
	require.False(t, ok)
}

func TestRelocateQueueSkipsElders(t *testing.T) {
	tbl := NewTable()
	elder := identity.Peer{Name: identity.Name{1}}
	other := identity.Peer{Name: identity.Name{2}}
	tbl.Join(elder, 10)
	tbl.Join(other, 10)

	tbl.ScheduleRelocate(elder.Name, RelocateInfo{To: prefix.Root.Pushed(0)})

	isElder := func(n identity.Name) bool { return n == elder.Name }
	_, _, ok := tbl.PopRelocateCandidate(isElder)
	require.False(t, ok, "relocation deferred while node is our elder")

	_, _, ok = tbl.PopRelocateCandidate(func(identity.Name) bool { return false })
	require.True(t, ok)
}

func TestPopRelocateCandidateDropsDepartedMember(t *testing.T) {
	tbl := NewTable()
	p := identity.Peer{Name: identity.Name{3}}
	tbl.Join(p, 10)
	tbl.ScheduleRelocate(p.Name, RelocateInfo{})
	tbl.Leave(p.Name)

	_, _, ok := tbl.PopRelocateCandidate(nil)
	require.False(t, ok)
}

func TestMatureCount(t *testing.T) {
	tbl := NewTable()
	tbl.Join(identity.Peer{Name: identity.Name{0x00}}, 5)
	tbl.Join(identity.Peer{Name: identity.Name{0x80}}, 2)

	require.Equal(t, 1, tbl.MatureCount(prefix.Root, 4))
	require.Equal(t, 2, tbl.MatureCount(prefix.Root, 0))
}
