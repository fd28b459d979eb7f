// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package capacity shares storage-level information among the chunk
// storing nodes (adults) of a section (spec component C7), grounded on
// original_source/src/routing/core/capacity/mod.rs's Capacity type.
package capacity

import (
	"sort"
	"sync"

	"github.com/luxfi/section/identity"
	"github.com/luxfi/section/metrics"
	"github.com/luxfi/section/prefix"
	"github.com/luxfi/section/set"
)

// MinLevelWhenFull is the storage level (0-10) at or above which an adult
// is considered full.
const MinLevelWhenFull uint8 = 9

// Level is a self-reported, monotonic storage-fullness indicator in
// [0, 10]; 10 meaning at or beyond capacity.
type Level uint8

// Tracker shares adult storage levels within a section. A given adult's
// level only ever moves up: set_adult_level in the original keeps the
// larger of the current and reported value, since adults report levels
// as events fire and out-of-order delivery must never regress the
// recorded level.
type Tracker struct {
	mu      sync.RWMutex
	levels  map[identity.Name]Level
	metrics *metrics.Section
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return NewTrackerWithMetrics(nil)
}

// NewTrackerWithMetrics creates an empty Tracker reporting into m. m may
// be nil to run without metrics reporting.
func NewTrackerWithMetrics(m *metrics.Section) *Tracker {
	return &Tracker{levels: make(map[identity.Name]Level), metrics: m}
}

// SetLevel records newLevel for adult if it exceeds the currently known
// level (or none is known yet). Reports whether the recorded level
// changed.
func (t *Tracker) SetLevel(adult identity.Name, newLevel Level) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if current, ok := t.levels[adult]; ok && newLevel <= current {
		return false
	}
	t.levels[adult] = newLevel
	if t.metrics != nil {
		var total int
		for _, l := range t.levels {
			total += int(l)
		}
		t.metrics.AvgStorageUsed.Set(float64(total) / float64(len(t.levels)))
	}
	return true
}

// IsFull reports whether adult has reported a level at or above
// MinLevelWhenFull. An adult with no recorded level is not full.
func (t *Tracker) IsFull(adult identity.Name) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	level, ok := t.levels[adult]
	return ok && level >= MinLevelWhenFull
}

// AvgUsage returns the mean level (0-10) across all tracked adults, or 0
// if none are tracked.
func (t *Tracker) AvgUsage() uint8 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.levels) == 0 {
		return 0
	}
	var total int
	for _, l := range t.levels {
		total += int(l)
	}
	return uint8(total / len(t.levels))
}

// Levels returns a snapshot of every tracked adult's level.
func (t *Tracker) Levels() map[identity.Name]Level {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[identity.Name]Level, len(t.levels))
	for k, v := range t.levels {
		out[k] = v
	}
	return out
}

// LevelsMatching returns the tracked levels of adults whose Name matches
// pfx.
func (t *Tracker) LevelsMatching(pfx prefix.Prefix) map[identity.Name]Level {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[identity.Name]Level)
	for name, l := range t.levels {
		if pfx.Matches(name) {
			out[name] = l
		}
	}
	return out
}

// FullAdults returns the Names of every adult at or above
// MinLevelWhenFull, sorted ascending.
func (t *Tracker) FullAdults() []identity.Name {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]identity.Name, 0)
	for name, l := range t.levels {
		if l >= MinLevelWhenFull {
			out = append(out, name)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// RetainMembersOnly drops every tracked adult absent from members, so
// that churned-out nodes stop being considered for liveness/placement.
// Grounded on capacity/mod.rs's retain_members_only, called by the
// membership state machine on every committed churn.
func (t *Tracker) RetainMembersOnly(members set.Set[identity.Name]) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for name := range t.levels {
		if !members.Contains(name) {
			delete(t.levels, name)
		}
	}
}
