// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package prefix

import (
	"sync"

	"github.com/luxfi/section/identity"
)

// Map stores our prefix, our current EldersInfo, and the EldersInfo of
// known neighbouring sections (spec component C2).
type Map struct {
	mu          sync.RWMutex
	ourPrefix   Prefix
	ourInfo     EldersInfo
	neighbours  map[string]EldersInfo
}

// NewMap creates a Map seeded with our own section's EldersInfo.
func NewMap(ourInfo EldersInfo) *Map {
	return &Map{
		ourPrefix:  ourInfo.Prefix,
		ourInfo:    ourInfo,
		neighbours: make(map[string]EldersInfo),
	}
}

// OurPrefix returns our section's prefix.
func (m *Map) OurPrefix() Prefix {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ourPrefix
}

// OurInfo returns our section's current EldersInfo.
func (m *Map) OurInfo() EldersInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ourInfo
}

// SetOurInfo replaces our section's EldersInfo (and prefix, for a split).
func (m *Map) SetOurInfo(info EldersInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ourInfo = info
	m.ourPrefix = info.Prefix
}

// AddNeighbour replaces any strictly older version of info for the same
// prefix, then prunes any neighbour whose prefix is now covered by a
// longer-prefix neighbour.
func (m *Map) AddNeighbour(info EldersInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := info.Prefix.String()
	if existing, ok := m.neighbours[key]; ok && existing.Version >= info.Version {
		return
	}
	m.neighbours[key] = info
	m.pruneCoveredLocked()
}

// pruneCoveredLocked removes neighbours whose prefix is covered by a
// strictly longer-prefix neighbour (the longer one supersedes it).
func (m *Map) pruneCoveredLocked() {
	for key, n := range m.neighbours {
		for otherKey, other := range m.neighbours {
			if key == otherKey {
				continue
			}
			if other.Prefix.IsExtensionOf(n.Prefix) {
				delete(m.neighbours, key)
				break
			}
		}
	}
}

// Neighbours returns a snapshot of known neighbour EldersInfo.
func (m *Map) Neighbours() []EldersInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]EldersInfo, 0, len(m.neighbours))
	for _, n := range m.neighbours {
		out = append(out, n)
	}
	return out
}

// Closest returns the section whose prefix longest-matches target, ties
// broken by lower prefix value, among our own section and all known
// neighbours. If no known prefix matches target, our own section is
// returned.
func (m *Map) Closest(target identity.Name) (Prefix, EldersInfo) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	best := m.ourInfo
	bestMatches := best.Prefix.Matches(target)
	for _, n := range m.neighbours {
		if !n.Prefix.Matches(target) {
			continue
		}
		if !bestMatches || n.Prefix.BitCount() > best.Prefix.BitCount() ||
			(n.Prefix.BitCount() == best.Prefix.BitCount() && n.Prefix.Less(best.Prefix)) {
			best = n
			bestMatches = true
		}
	}
	return best.Prefix, best
}

// IsCoveredBy reports whether every Name matching pfx also matches some
// prefix in known.
func IsCoveredBy(pfx Prefix, known []Prefix) bool {
	// Exhaustive bit-level coverage check: pfx is covered iff, for every
	// extension of pfx appearing as (or containing) a leaf in known, both
	// branches are accounted for. We check this constructively: starting
	// from pfx, if some known prefix equals or is a parent of pfx (i.e.
	// pfx is an extension of or equal to a known prefix), it's covered.
	// Otherwise pfx must be covered by exactly the two children
	// recursively.
	for _, k := range known {
		if pfx.Equal(k) || pfx.IsExtensionOf(k) {
			return true
		}
	}
	if pfx.BitCount() >= MaxBits {
		return false
	}
	return IsCoveredBy(pfx.Pushed(0), known) && IsCoveredBy(pfx.Pushed(1), known)
}
