// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package events publishes the node-visible side effects of section churn
// (spec component C10) in commit order, modeled on the subscribe/forward
// shape of networking/handler/notifier.go.
package events

import (
	"sync"

	"github.com/luxfi/section/identity"
	"github.com/luxfi/section/prefix"
)

// Kind discriminates the event variants a subscriber may observe.
type Kind int

const (
	// AdultsChanged fires whenever the section's adult roster changes.
	AdultsChanged Kind = iota
	// EldersChanged fires whenever a new EldersInfo is committed.
	EldersChanged
	// Relocated fires when a member's relocation to another section
	// completes.
	Relocated
	// SectionSplit fires when the section splits into two children.
	SectionSplit
)

// Event is a tagged union over the variants above; only the fields
// relevant to Kind are meaningful.
type Event struct {
	Kind Kind

	// Added, Removed, and Remaining are populated for AdultsChanged: the
	// nodes that joined and left the roster in this churn step, and the
	// number of members left in the section's roster afterward (elders
	// included).
	Added     []identity.Name
	Removed   []identity.Name
	Remaining int

	Elders prefix.EldersInfo

	RelocatedName identity.Name
	RelocatedTo   prefix.Prefix

	SplitPrefixOne prefix.Prefix
	SplitPrefixTwo prefix.Prefix
}

// Bus is an in-process, commit-ordered event publisher. Subscribers
// receive events in the order Publish was called; a slow subscriber's
// channel is never dropped from under it, so callers must keep their
// channel drained.
type Bus struct {
	mu          sync.Mutex
	subscribers []chan Event
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe returns a channel that receives every event published after
// the call, buffered to the given depth. Publishers never block on it:
// once its buffer is full, further events are skipped for it (see
// Publish).
func (b *Bus) Subscribe(buffer int) <-chan Event {
	ch := make(chan Event, buffer)
	b.mu.Lock()
	b.subscribers = append(b.subscribers, ch)
	b.mu.Unlock()
	return ch
}

// Publish delivers event to every current subscriber, in commit order
// relative to other Publish calls. A subscriber whose buffer is full is
// skipped for this event rather than blocking the publisher.
func (b *Bus) Publish(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}
