// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package membership

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/section/accumulator"
	"github.com/luxfi/section/capacity"
	"github.com/luxfi/section/chain"
	"github.com/luxfi/section/config"
	"github.com/luxfi/section/identity"
	"github.com/luxfi/section/internal/errs"
	"github.com/luxfi/section/members"
	"github.com/luxfi/section/prefix"
)

func peer(b byte) identity.Peer { return identity.Peer{Name: identity.Name{b}} }

func testParams() config.Parameters {
	p := config.Default()
	p.ElderCount = 2
	p.SafeSectionSize = 3
	p.MinAdultAge = 1
	return p
}

func newMachine(t *testing.T) (*Machine, *members.Table, *prefix.Map) {
	t.Helper()
	table := members.NewTable()
	info := prefix.NewEldersInfo(prefix.Root, []identity.Peer{peer(1)}, 1)
	sections := prefix.NewMap(info)
	acc := accumulator.New(nil)
	c := chain.NewGenesis(nil)
	m := New(peer(1).Name, testParams(), table, sections, acc, c, nil, nil)
	m.MarkGenesisHandled()
	return m, table, sections
}

func TestPollDrainsBacklogBeforeAnythingElse(t *testing.T) {
	m, _, _ := newMachine(t)
	m.churnInProgress = false
	m.backlog = append(m.backlog, accumulator.Event{Kind: accumulator.Offline, OfflineName: peer(9).Name})

	out := m.Poll(nil)
	require.Equal(t, OutputChurnEvent, out.Kind)
	require.Equal(t, peer(9).Name, out.Event.OfflineName)
	require.Empty(t, m.backlog)
}

func TestPollProposesReplacementWhenExpectedEldersDiffer(t *testing.T) {
	m, table, _ := newMachine(t)
	table.Join(peer(1), 5)
	table.Join(peer(2), 4)

	out := m.Poll(nil)
	require.Equal(t, OutputEldersProposal, out.Kind)
	require.Len(t, out.EldersProposals, 1)
	require.Len(t, out.EldersProposals[0].Members, 2)
}

func TestPollProposesSplitWhenBothChildrenSafe(t *testing.T) {
	m, table, _ := newMachine(t)
	// child 0 (high bit 0): names 0x00, 0x01, 0x02 all mature
	table.Join(identity.Peer{Name: identity.Name{0x00}}, 5)
	table.Join(identity.Peer{Name: identity.Name{0x01}}, 5)
	table.Join(identity.Peer{Name: identity.Name{0x02}}, 5)
	// child 1 (high bit 1): names 0x80, 0x81, 0x82
	table.Join(identity.Peer{Name: identity.Name{0x80}}, 5)
	table.Join(identity.Peer{Name: identity.Name{0x81}}, 5)
	table.Join(identity.Peer{Name: identity.Name{0x82}}, 5)

	out := m.Poll(nil)
	require.Equal(t, OutputEldersProposal, out.Kind)
	require.Len(t, out.EldersProposals, 2)
	require.True(t, out.EldersProposals[0].Prefix.IsExtensionOf(prefix.Root))
	require.True(t, out.EldersProposals[1].Prefix.IsExtensionOf(prefix.Root))
}

func TestPollRelocationDeferredWhileElder(t *testing.T) {
	m, table, _ := newMachine(t)
	table.Join(peer(1), 5) // peer(1) is us and our only elder
	table.ScheduleRelocate(peer(1).Name, members.RelocateInfo{To: prefix.Root.Pushed(0)})

	out := m.Poll(nil)
	require.NotEqual(t, OutputRelocate, out.Kind, "relocation for our own elder must be deferred")
}

func TestPollRelocationFiresForNonElder(t *testing.T) {
	m, table, sections := newMachine(t)
	table.Join(peer(1), 5)
	table.Join(peer(2), 3)
	table.Join(peer(3), 5)
	// peer(1) and peer(3) are the two oldest members, so the current elder
	// set already matches the expected one and no replacement is proposed.
	sections.SetOurInfo(prefix.NewEldersInfo(prefix.Root, []identity.Peer{peer(1), peer(3)}, 2))
	table.ScheduleRelocate(peer(2).Name, members.RelocateInfo{To: prefix.Root.Pushed(0)})

	var out Output
	for i := 0; i < 3; i++ {
		out = m.Poll(nil)
		if out.Kind == OutputRelocate {
			break
		}
	}
	require.Equal(t, OutputRelocate, out.Kind)
	require.Equal(t, peer(2).Name, out.RelocateName)
}

func TestOfflineEventRetainsCapacityMembers(t *testing.T) {
	m, table, _ := newMachine(t)
	table.Join(peer(1), 5)
	table.Join(peer(2), 3)

	cap := capacity.NewTracker()
	cap.SetLevel(peer(1).Name, 3)
	cap.SetLevel(peer(2).Name, 3)
	m.WithCapacityTracker(cap)

	out := m.processEvent(accumulator.Event{Kind: accumulator.Offline, OfflineName: peer(2).Name}, nil, nil)
	require.Equal(t, OutputChurnEvent, out.Kind)

	require.Len(t, cap.Levels(), 1)
	_, stillTracked := cap.Levels()[peer(2).Name]
	require.False(t, stillTracked)
}

func TestSplitSectionInfoCommitsEndToEndThroughAccumulator(t *testing.T) {
	m, table, sections := newMachine(t)
	table.Join(identity.Peer{Name: identity.Name{0x00}}, 5)
	table.Join(identity.Peer{Name: identity.Name{0x01}}, 5)
	table.Join(identity.Peer{Name: identity.Name{0x02}}, 5)
	table.Join(identity.Peer{Name: identity.Name{0x80}}, 5)
	table.Join(identity.Peer{Name: identity.Name{0x81}}, 5)
	table.Join(identity.Peer{Name: identity.Name{0x82}}, 5)

	out := m.Poll(nil)
	require.Equal(t, OutputEldersProposal, out.Kind)
	require.Len(t, out.EldersProposals, 2)

	for _, proposal := range out.EldersProposals {
		e := accumulator.Event{Kind: accumulator.SectionInfo, SectionInfoValue: proposal}
		require.True(t, m.acc.AddProof(e, peer(1).Name, identity.ShareSignature{Index: 1}))

		ctx := accumulator.ValidationContext{CurrentInfo: sections.OurInfo()}
		event, proof, ok := m.acc.Poll(ctx, sections.OurInfo(), 1)
		require.True(t, ok, "split EldersInfo must pass accumulator validity despite its extended prefix")

		polled := m.processEvent(event, proof, nil)
		require.Equal(t, OutputChurnEvent, polled.Kind)
	}

	require.Equal(t, uint64(2), sections.OurInfo().Version)
	require.True(t, sections.OurInfo().Prefix.IsExtensionOf(prefix.Root))
	require.Len(t, sections.Neighbours(), 1)
	require.True(t, sections.Neighbours()[0].Prefix.IsExtensionOf(prefix.Root))
	require.NotEqual(t, sections.OurInfo().Prefix, sections.Neighbours()[0].Prefix)
}

func TestResolveDkgResultRejectsUnknownParticipant(t *testing.T) {
	m, _, _ := newMachine(t)
	_, err := m.ResolveDkgResult(peer(1).Name, nil)
	require.ErrorIs(t, err, errs.ErrInvalidElderDkgResult)
}

func TestAddEldersInfoCommitsPlainReplacementWithoutKeyChange(t *testing.T) {
	m, _, sections := newMachine(t)
	next := prefix.NewEldersInfo(prefix.Root, []identity.Peer{peer(1), peer(2)}, 2)

	err := m.addEldersInfo(next, nil, nil, nil)
	require.NoError(t, err)
	require.Equal(t, uint64(2), sections.OurInfo().Version)
}
