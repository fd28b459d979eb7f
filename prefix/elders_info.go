// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package prefix

import (
	"sort"

	"github.com/luxfi/section/identity"
)

// EldersInfo is the elder set governing a prefix: members are drawn from
// the section's Joined members, ordered by Name ascending, of length at
// most config.Parameters.ElderCount. Version strictly increases on
// replacement.
type EldersInfo struct {
	Prefix  Prefix
	Members []identity.Peer
	Version uint64
}

// NewEldersInfo builds an EldersInfo with members sorted by Name ascending,
// the invariant the rest of the core relies on.
func NewEldersInfo(pfx Prefix, members []identity.Peer, version uint64) EldersInfo {
	sorted := make([]identity.Peer, len(members))
	copy(sorted, members)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name.Less(sorted[j].Name) })
	return EldersInfo{Prefix: pfx, Members: sorted, Version: version}
}

// IsSuccessorOf reports whether e is a valid replacement for prev: either
// a plain same-prefix replacement (version exactly one greater), or a
// split child (e.Prefix a strict extension of prev.Prefix, version
// exactly one greater) as produced by membership.Machine's split
// proposals. Either shape is required before a SectionInfo accumulated
// event may be accepted by the consensus accumulator.
func (e EldersInfo) IsSuccessorOf(prev EldersInfo) bool {
	if e.Version != prev.Version+1 {
		return false
	}
	return e.Prefix.Equal(prev.Prefix) || e.Prefix.IsExtensionOf(prev.Prefix)
}

// Contains reports whether name is one of the elders.
func (e EldersInfo) Contains(name identity.Name) bool {
	for _, m := range e.Members {
		if m.Name == name {
			return true
		}
	}
	return false
}

// MemberDelta returns the number of members present in exactly one of e
// and prev, used to check the elder-successor invariant
// (|new.members Δ old.members| <= 1 + split_delta).
func (e EldersInfo) MemberDelta(prev EldersInfo) int {
	in := make(map[identity.Name]bool, len(prev.Members))
	for _, m := range prev.Members {
		in[m.Name] = true
	}
	delta := 0
	seen := make(map[identity.Name]bool, len(e.Members))
	for _, m := range e.Members {
		seen[m.Name] = true
		if !in[m.Name] {
			delta++
		}
	}
	for name := range in {
		if !seen[name] {
			delta++
		}
	}
	return delta
}
