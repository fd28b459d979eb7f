// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package membership implements the membership/churn state machine
// (spec component C6): it drains the churn backlog, promotes and
// demotes elders, drives splits and relocation, and applies accumulated
// events to the members table and section chain. Grounded on the
// handle_signed_vote dispatch shape of
// original_source/sn/src/node/core/messaging/handling/membership.rs,
// generalized from one vote handler into a full poll-cycle state
// machine per the specification.
package membership

import (
	"bytes"
	"sort"

	"github.com/luxfi/log"

	"github.com/luxfi/section/accumulator"
	"github.com/luxfi/section/capacity"
	"github.com/luxfi/section/chain"
	"github.com/luxfi/section/config"
	"github.com/luxfi/section/identity"
	"github.com/luxfi/section/internal/errs"
	xlog "github.com/luxfi/section/log"
	"github.com/luxfi/section/members"
	"github.com/luxfi/section/metrics"
	"github.com/luxfi/section/prefix"
	"github.com/luxfi/section/set"
)

// OutputKind discriminates what a Poll call produced.
type OutputKind int

const (
	// OutputNone means nothing was ready; the caller should wait for
	// more input before polling again.
	OutputNone OutputKind = iota
	// OutputChurnEvent carries an AccumulatedEvent ready for processing
	// (either freshly polled from the accumulator, or drained from the
	// backlog).
	OutputChurnEvent
	// OutputEldersProposal carries one or two new EldersInfo values for
	// the caller to drive through the consensus accumulator as a vote.
	OutputEldersProposal
	// OutputRelocate carries a relocation ready to act on.
	OutputRelocate
)

// Output is the result of one Poll call.
type Output struct {
	Kind OutputKind

	Event accumulator.Event

	EldersProposals []prefix.EldersInfo

	RelocateName identity.Name
	RelocateInfo members.RelocateInfo
}

// Machine is the per-section membership/churn state machine.
type Machine struct {
	log    log.Logger
	params config.Parameters

	us       identity.Name
	table    *members.Table
	sections *prefix.Map
	acc      *accumulator.Accumulator
	chain    *chain.Chain
	metrics  *metrics.Section
	capacity *capacity.Tracker

	churnInProgress     bool
	handledGenesisEvent bool
	backlog             []accumulator.Event
	neighbourVersions   map[string]uint64

	// newSectionBLSKeys maps the first DKG participant's Name to the key
	// that DKG round produced, awaiting the matching SectionInfo commit.
	newSectionBLSKeys map[identity.Name]*identity.PublicKeySet

	// splitCache buffers the first of a pair of split EldersInfo until
	// its sibling arrives, so our_info is always set before the sibling
	// is added as a neighbour.
	splitCache *prefix.EldersInfo
}

// New creates a Machine for peer us, operating over table/sections/chain
// with acc as its consensus accumulator. If logger is nil, a no-op
// logger is used. m may be nil to run without metrics reporting.
func New(us identity.Name, params config.Parameters, table *members.Table, sections *prefix.Map, acc *accumulator.Accumulator, c *chain.Chain, m *metrics.Section, logger log.Logger) *Machine {
	if logger == nil {
		logger = xlog.NewNoOpLogger()
	}
	return &Machine{
		log:               logger,
		params:            params,
		us:                us,
		table:             table,
		sections:          sections,
		acc:               acc,
		chain:             c,
		metrics:           m,
		newSectionBLSKeys: make(map[identity.Name]*identity.PublicKeySet),
		neighbourVersions: make(map[string]uint64),
	}
}

// MarkGenesisHandled records that the genesis churn event has been
// processed, a precondition for polling any further churn.
func (m *Machine) MarkGenesisHandled() { m.handledGenesisEvent = true }

// WithCapacityTracker attaches c so every committed churn retains only
// current members in its storage-level table (capacity/mod.rs's
// retain_members_only, invoked from the membership side). Returns m for
// chaining.
func (m *Machine) WithCapacityTracker(c *capacity.Tracker) *Machine {
	m.capacity = c
	return m
}

// retainCapacityMembers drops any adult no longer in the members table
// from the capacity tracker's level bookkeeping, if one is attached.
func (m *Machine) retainCapacityMembers() {
	if m.capacity == nil {
		return
	}
	joined := m.table.Joined()
	alive := make(set.Set[identity.Name], len(joined))
	for _, ns := range joined {
		alive.Add(ns.Name())
	}
	m.capacity.RetainMembersOnly(alive)
}

// canPollChurn reports whether a new churn-type event may be applied:
// the genesis event must be handled and no churn may already be in
// flight (only one churn at a time).
func (m *Machine) canPollChurn() bool {
	return m.handledGenesisEvent && !m.churnInProgress
}

// isElder reports whether name is one of our current elders.
func (m *Machine) isElder(name identity.Name) bool {
	return m.sections.OurInfo().Contains(name)
}

// Poll runs one step of the poll cycle: drain backlog, promote/demote
// elders, poll relocation, poll the consensus accumulator, or process a
// freshly polled event. It is not reentrant; callers serialize Poll
// calls for a given Machine (see the single exclusive section-state
// lock in the concurrency model).
func (m *Machine) Poll(currentKey *identity.PublicKeySet) Output {
	if m.canPollChurn() && len(m.backlog) > 0 {
		event := m.backlog[0]
		m.backlog = m.backlog[1:]
		return Output{Kind: OutputChurnEvent, Event: event}
	}

	if proposals := m.promoteDemoteElders(); len(proposals) > 0 {
		return Output{Kind: OutputEldersProposal, EldersProposals: proposals}
	}

	if len(m.backlog) == 0 && m.canPollChurn() {
		if name, info, ok := m.table.PopRelocateCandidate(m.isElder); ok {
			return Output{Kind: OutputRelocate, RelocateName: name, RelocateInfo: info}
		}
	}

	ctx := accumulator.ValidationContext{
		CurrentInfo:       m.sections.OurInfo(),
		NeighbourVersions: m.neighbourVersions,
	}
	threshold := 1
	if currentKey != nil {
		threshold = currentKey.Threshold
	}
	event, proof, ok := m.acc.Poll(ctx, m.sections.OurInfo(), threshold)
	if !ok {
		return Output{Kind: OutputNone}
	}
	return m.processEvent(event, proof, currentKey)
}

// isChurnEvent reports whether kind is one of the churn-type events that
// must be serialized behind churnInProgress.
func isChurnEvent(kind accumulator.Kind) bool {
	switch kind {
	case accumulator.Online, accumulator.Offline, accumulator.Relocate:
		return true
	default:
		return false
	}
}

// processEvent applies event to the members table / section map, or
// defers it to the backlog if a churn event arrives while another churn
// is already in progress. proof and currentKey are only consulted for
// SectionInfo, to extend the section chain under the outgoing key.
func (m *Machine) processEvent(event accumulator.Event, proof accumulator.Proof, currentKey *identity.PublicKeySet) Output {
	if isChurnEvent(event.Kind) && !m.canPollChurn() {
		m.backlog = append([]accumulator.Event{event}, m.backlog...)
		return Output{Kind: OutputNone}
	}

	switch event.Kind {
	case accumulator.Online:
		m.churnInProgress = true
		m.table.Join(event.OnlinePeer, event.OnlineAge)
		m.retainCapacityMembers()
		if m.metrics != nil {
			m.metrics.Joins.Inc()
			m.metrics.AdultsCount.Set(float64(len(m.table.Joined())))
		}
	case accumulator.Offline:
		m.churnInProgress = true
		m.table.Leave(event.OfflineName)
		m.retainCapacityMembers()
		if m.metrics != nil {
			m.metrics.Leaves.Inc()
			m.metrics.AdultsCount.Set(float64(len(m.table.Joined())))
		}
	case accumulator.Relocate:
		m.churnInProgress = true
		m.table.ScheduleRelocate(event.RelocateInfo.Name, members.RelocateInfo{
			To:           event.RelocateInfo.Destination,
			PreviousName: event.RelocateInfo.PreviousName,
		})
		if m.metrics != nil {
			m.metrics.Relocations.Inc()
		}
	case accumulator.NeighbourInfo:
		m.sections.AddNeighbour(event.NeighbourInfoValue)
		m.neighbourVersions[event.NeighbourInfoValue.Prefix.String()] = event.NeighbourInfoValue.Version
	case accumulator.SectionInfo:
		if err := m.addEldersInfo(event.SectionInfoValue, event.SectionKeyInfoValue.Key, proof, currentKey); err != nil {
			m.log.Error("rejected section info commit", "err", err)
			return Output{Kind: OutputNone}
		}
		m.churnInProgress = false
		if m.metrics != nil {
			m.metrics.EldersCount.Set(float64(len(m.sections.OurInfo().Members)))
		}
	}

	return Output{Kind: OutputChurnEvent, Event: event}
}

// addEldersInfo commits a newly accumulated EldersInfo, implementing the
// split-cache/sibling-commit rule: if info's prefix extends our_prefix
// it is one half of a split. The first half seen is buffered; on the
// sibling's arrival the half matching our Name becomes our_info (set
// first) and the other is added as a neighbour.
func (m *Machine) addEldersInfo(info prefix.EldersInfo, newKey *identity.PublicKeySet, proof accumulator.Proof, currentKey *identity.PublicKeySet) error {
	ourPrefix := m.sections.OurPrefix()

	if !info.Prefix.IsExtensionOf(ourPrefix) {
		if err := m.commitKey(newKey, proof, currentKey); err != nil {
			return err
		}
		m.sections.SetOurInfo(info)
		return nil
	}

	if m.splitCache == nil {
		cached := info
		m.splitCache = &cached
		return nil
	}

	first := *m.splitCache
	m.splitCache = nil

	ourHalf, neighbourHalf := info, first
	if first.Prefix.Matches(m.us) {
		ourHalf, neighbourHalf = first, info
	}
	if err := m.commitKey(newKey, proof, currentKey); err != nil {
		return err
	}
	m.sections.SetOurInfo(ourHalf)
	m.sections.AddNeighbour(neighbourHalf)
	return nil
}

// commitKey extends the section chain with newKey, combining proof's
// signature shares under currentKey (the outgoing section key). A nil
// newKey means this EldersInfo replacement did not accompany a DKG
// round (a plain elder reshuffle with no key change) and is a no-op.
func (m *Machine) commitKey(newKey *identity.PublicKeySet, proof accumulator.Proof, currentKey *identity.PublicKeySet) error {
	if newKey == nil {
		return nil
	}
	if currentKey == nil {
		return errs.ErrInvalidNewSectionInfo
	}
	shares := make([]identity.ShareSignature, 0, len(proof))
	for _, s := range proof {
		shares = append(shares, s)
	}
	combined, err := identity.Combine(currentKey, shares)
	if err != nil {
		return err
	}
	return m.chain.Extend(newKey, combined)
}

// RecordDkgResult stores the key produced by a completed DKG round,
// keyed by the first participant's Name, awaiting the matching
// SectionInfo commit.
func (m *Machine) RecordDkgResult(firstParticipant identity.Name, key *identity.PublicKeySet) {
	m.newSectionBLSKeys[firstParticipant] = key
}

// ResolveDkgResult returns the key stored for firstParticipant, or
// ErrInvalidElderDkgResult if the committing SectionInfo's key does not
// match what DKG produced.
func (m *Machine) ResolveDkgResult(firstParticipant identity.Name, committed *identity.PublicKeySet) (*identity.PublicKeySet, error) {
	stored, ok := m.newSectionBLSKeys[firstParticipant]
	if !ok {
		return nil, errs.ErrInvalidElderDkgResult
	}
	delete(m.newSectionBLSKeys, firstParticipant)
	if committed != nil && !bytes.Equal(stored.CombinedPK.Serialize(), committed.CombinedPK.Serialize()) {
		return nil, errs.ErrInvalidElderDkgResult
	}
	return stored, nil
}

// expectedElders returns up to ElderCount members of candidates, chosen
// oldest-age first, Name ascending on ties.
func expectedElders(candidates []members.NodeState, elderCount int) []identity.Peer {
	sorted := make([]members.NodeState, len(candidates))
	copy(sorted, candidates)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Age != sorted[j].Age {
			return sorted[i].Age > sorted[j].Age
		}
		return sorted[i].Name().Less(sorted[j].Name())
	})
	if len(sorted) > elderCount {
		sorted = sorted[:elderCount]
	}
	out := make([]identity.Peer, len(sorted))
	for i, ns := range sorted {
		out[i] = ns.Peer
	}
	return out
}

func membersMatching(all []members.NodeState, pfx prefix.Prefix) []members.NodeState {
	out := make([]members.NodeState, 0, len(all))
	for _, ns := range all {
		if pfx.Matches(ns.Name()) {
			out = append(out, ns)
		}
	}
	return out
}

func samePeerSet(a, b []identity.Peer) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name {
			return false
		}
	}
	return true
}

// promoteDemoteElders implements the promote/demote and split decision.
// If both child prefixes of our section would retain at least
// SafeSectionSize mature members, it returns two candidate EldersInfo
// (one per child). Otherwise, if the expected elder set differs from
// the current one, it returns a single replacement. Returns nil if no
// change is needed.
func (m *Machine) promoteDemoteElders() []prefix.EldersInfo {
	ourPrefix := m.sections.OurPrefix()
	ourInfo := m.sections.OurInfo()
	all := m.table.Joined()

	child0 := ourPrefix.Pushed(0)
	child1 := ourPrefix.Pushed(1)
	mature0 := m.table.MatureCount(child0, m.params.MinAdultAge)
	mature1 := m.table.MatureCount(child1, m.params.MinAdultAge)

	if mature0 >= m.params.SafeSectionSize && mature1 >= m.params.SafeSectionSize {
		elders0 := expectedElders(membersMatching(all, child0), m.params.ElderCount)
		elders1 := expectedElders(membersMatching(all, child1), m.params.ElderCount)
		if len(elders0) < m.params.ElderCount || len(elders1) < m.params.ElderCount {
			m.log.Error("split would drop below elder count, refusing split")
			return nil
		}
		if m.metrics != nil {
			m.metrics.Splits.Inc()
		}
		return []prefix.EldersInfo{
			prefix.NewEldersInfo(child0, elders0, ourInfo.Version+1),
			prefix.NewEldersInfo(child1, elders1, ourInfo.Version+1),
		}
	}

	expected := expectedElders(all, m.params.ElderCount)
	if samePeerSet(expected, ourInfo.Members) {
		return nil
	}
	if len(ourInfo.Members) >= m.params.ElderCount && len(expected) < m.params.ElderCount {
		m.log.Crit("elder count would drop below configured minimum; merging sections is unsupported")
		return nil
	}
	return []prefix.EldersInfo{prefix.NewEldersInfo(ourPrefix, expected, ourInfo.Version+1)}
}
