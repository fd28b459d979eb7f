// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package members implements the per-section roster (spec component C4),
// grounded on original_source/sn/src/types/mod.rs's NodeState/Peer shape
// and original_source/sn/.../membership.rs's vote handling.
package members

import (
	"sort"
	"sync"

	"github.com/luxfi/section/identity"
	"github.com/luxfi/section/prefix"
)

// State is a node's membership lifecycle state.
type State int

const (
	// Joined is the steady state of a member in good standing.
	Joined State = iota
	// Left marks a member that has exited the section.
	Left
	// Relocating marks a member that an elder vote has scheduled to move
	// to another section; it remains a member until the destination
	// section admits it as Online.
	Relocating
)

// RelocateInfo carries the destination of a Relocating member.
type RelocateInfo struct {
	To           prefix.Prefix
	PreviousName identity.Name
}

// NodeState is a member's roster entry.
type NodeState struct {
	Peer     identity.Peer
	Age      uint8
	State    State
	Relocate RelocateInfo
}

// Name is a convenience accessor for the member's Name.
func (n NodeState) Name() identity.Name { return n.Peer.Name }

// Table is the per-section roster: a map from Name to NodeState, plus a
// relocation queue ordered by scheduled relocation trigger. All writes go
// through Table's methods, guarded by a single lock.
type Table struct {
	mu      sync.RWMutex
	members map[identity.Name]NodeState
	// relocateQueue holds the Names of Relocating members in the order
	// their relocation was scheduled.
	relocateQueue []identity.Name
}

// NewTable creates an empty members table.
func NewTable() *Table {
	return &Table{members: make(map[identity.Name]NodeState)}
}

// Join adds a new Joined member. It is a no-op if the member already
// exists with a Joined/Relocating state.
func (t *Table) Join(peer identity.Peer, age uint8) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if ns, ok := t.members[peer.Name]; ok && (ns.State == Joined || ns.State == Relocating) {
		return
	}
	t.members[peer.Name] = NodeState{Peer: peer, Age: age, State: Joined}
}

// Leave removes a member from the roster and from the relocation queue.
// Reports whether the member was present.
func (t *Table) Leave(name identity.Name) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.members[name]; !ok {
		return false
	}
	delete(t.members, name)
	t.removeFromQueueLocked(name)
	return true
}

// Get returns a member's state.
func (t *Table) Get(name identity.Name) (NodeState, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ns, ok := t.members[name]
	return ns, ok
}

// SetAge updates a member's age, used when churn bumps it.
func (t *Table) SetAge(name identity.Name, age uint8) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if ns, ok := t.members[name]; ok {
		ns.Age = age
		t.members[name] = ns
	}
}

// ScheduleRelocate transitions a Joined member to Relocating and enqueues
// it onto the relocation queue.
func (t *Table) ScheduleRelocate(name identity.Name, info RelocateInfo) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ns, ok := t.members[name]
	if !ok || ns.State == Relocating {
		return
	}
	ns.State = Relocating
	ns.Relocate = info
	t.members[name] = ns
	t.relocateQueue = append(t.relocateQueue, name)
}

// PopRelocateCandidate pops and returns the first queued relocation whose
// member is still present and is not one of skipNames (current elders);
// entries for departed members are dropped, entries for skipNames are
// re-enqueued at the back. Returns false if nothing is eligible.
func (t *Table) PopRelocateCandidate(skip func(identity.Name) bool) (identity.Name, RelocateInfo, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	requeue := make([]identity.Name, 0)
	defer func() { t.relocateQueue = append(t.relocateQueue, requeue...) }()

	for len(t.relocateQueue) > 0 {
		name := t.relocateQueue[0]
		t.relocateQueue = t.relocateQueue[1:]

		ns, ok := t.members[name]
		if !ok || ns.State != Relocating {
			continue // member left before relocation fired
		}
		if skip != nil && skip(name) {
			requeue = append(requeue, name)
			continue
		}
		return name, ns.Relocate, true
	}
	return identity.Name{}, RelocateInfo{}, false
}

func (t *Table) removeFromQueueLocked(name identity.Name) {
	out := t.relocateQueue[:0]
	for _, n := range t.relocateQueue {
		if n != name {
			out = append(out, n)
		}
	}
	t.relocateQueue = out
}

// Joined returns all members currently in the Joined or Relocating state
// (both count as present members), sorted by Name ascending.
func (t *Table) Joined() []NodeState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]NodeState, 0, len(t.members))
	for _, ns := range t.members {
		if ns.State == Joined || ns.State == Relocating {
			out = append(out, ns)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name().Less(out[j].Name()) })
	return out
}

// Len returns the number of members currently in the table.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.members)
}

// MatureCount returns the number of Joined/Relocating members matching
// pfx whose age is at least minAge, used by the split decision.
func (t *Table) MatureCount(pfx prefix.Prefix, minAge uint8) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := 0
	for _, ns := range t.members {
		if (ns.State == Joined || ns.State == Relocating) && ns.Age >= minAge && pfx.Matches(ns.Name()) {
			n++
		}
	}
	return n
}
