// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package accumulator

import (
	"sync"

	"github.com/luxfi/log"

	"github.com/luxfi/section/identity"
	"github.com/luxfi/section/prefix"
	xlog "github.com/luxfi/section/log"
)

// Proof is an AccumulatingProof: a set of (voter_name, signature_share).
type Proof map[identity.Name]identity.ShareSignature

// slot holds one logical event's in-flight proof.
type slot struct {
	event Event
	proof Proof
}

// Accumulator accumulates votes/proofs to BLS-threshold agreement.
// Events are polled FIFO among those complete and valid.
type Accumulator struct {
	mu    sync.Mutex
	log   log.Logger
	slots map[string]*slot
	order []string
}

// New creates an empty Accumulator. If logger is nil, a no-op logger is
// used.
func New(logger log.Logger) *Accumulator {
	if logger == nil {
		logger = xlog.NewNoOpLogger()
	}
	return &Accumulator{
		log:   logger,
		slots: make(map[string]*slot),
	}
}

// AddProof records a response from voter for event. It reports whether
// the share was newly accepted. Duplicate votes from the same voter are
// swallowed with a warning; a value that conflicts with an existing slot
// for the same logical key is a "Replaced" insertion, also swallowed
// with a warning, never accepted over the original.
func (a *Accumulator) AddProof(event Event, voter identity.Name, share identity.ShareSignature) bool {
	if event.Kind == StartDkg {
		// StartDkg is handled upstream of the accumulator (DKG
		// orchestration lives in membership.Machine); reaching here
		// indicates a caller wired the event path wrong.
		a.log.Error("StartDkg must never be accumulated", "voter", voter.String())
		return false
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	key := event.key()
	s, ok := a.slots[key]
	if !ok {
		s = &slot{event: event, proof: make(Proof)}
		a.slots[key] = s
		a.order = append(a.order, key)
	} else if !s.event.sameValue(event) {
		a.log.Warn("replaced event insertion rejected", "key", key)
		return false
	}

	if _, dup := s.proof[voter]; dup {
		a.log.Warn("duplicate vote", "key", key, "voter", voter.String())
		return false
	}
	s.proof[voter] = share
	return true
}

// ValidationContext supplies the state the accumulator needs to validate
// SectionInfo/NeighbourInfo transitions before polling them out.
type ValidationContext struct {
	CurrentInfo       prefix.EldersInfo
	NeighbourVersions map[string]uint64
}

func (a *Accumulator) isValid(e Event, ctx ValidationContext) bool {
	switch e.Kind {
	case SectionInfo:
		return e.SectionInfoValue.IsSuccessorOf(ctx.CurrentInfo)
	case NeighbourInfo:
		key := e.NeighbourInfoValue.Prefix.String()
		if last, ok := ctx.NeighbourVersions[key]; ok {
			return e.NeighbourInfoValue.Version == last+1
		}
		return true
	default:
		return true
	}
}

// requiredCount returns the number of matching elder shares required for
// event to reach consensus: total consensus (every elder) for
// AckMessage, quorum (threshold) otherwise.
func requiredCount(e Event, elders prefix.EldersInfo, threshold int) int {
	if e.Kind == AckMessage {
		return len(elders.Members)
	}
	return threshold
}

// Poll removes and returns the first (FIFO) event that is complete (its
// matching-elder share count reaches the required threshold) and valid
// against ctx/elders; non-qualifying events are left in place.
func (a *Accumulator) Poll(ctx ValidationContext, elders prefix.EldersInfo, threshold int) (Event, Proof, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i, key := range a.order {
		s, ok := a.slots[key]
		if !ok {
			continue
		}
		if s.event.Kind == StartDkg {
			panic("StartDkg reached the consensus accumulator output path")
		}

		matching := make(Proof)
		for voter, share := range s.proof {
			if elders.Contains(voter) {
				matching[voter] = share
			}
		}
		need := requiredCount(s.event, elders, threshold)
		if len(matching) < need {
			continue
		}
		if !a.isValid(s.event, ctx) {
			continue
		}

		delete(a.slots, key)
		a.order = append(a.order[:i:i], a.order[i+1:]...)
		return s.event, matching, true
	}
	return Event{}, nil, false
}

// Pending reports whether an event matching key is still accumulating.
func (a *Accumulator) Pending(event Event) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.slots[event.key()]
	return ok
}
