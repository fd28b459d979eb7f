// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package router resolves message destinations to concrete peers and
// dispatches inbound messages to the membership and placement layers
// (spec component C9), grounded on the Router/ChainRouter interface
// split of networking/router/router.go and chain_router.go.
package router

import (
	"sort"

	"github.com/luxfi/log"

	"github.com/luxfi/section/identity"
	"github.com/luxfi/section/internal/errs"
	xlog "github.com/luxfi/section/log"
	"github.com/luxfi/section/prefix"
	"github.com/luxfi/section/set"
)

// Destination selects the recipients of an outbound message.
type Destination struct {
	kind   destKind
	name   identity.Name
	prefix prefix.Prefix
}

type destKind int

const (
	destNode destKind = iota
	destSection
	destPrefix
)

// Node targets a single named peer, routing toward it if not directly
// known.
func Node(name identity.Name) Destination { return Destination{kind: destNode, name: name} }

// Section targets the section whose prefix is closest to name.
func Section(name identity.Name) Destination { return Destination{kind: destSection, name: name} }

// ToPrefix targets the elders of one known section whose prefix is
// compatible with p, our own section first; further compatible sections
// are not included.
func ToPrefix(p prefix.Prefix) Destination { return Destination{kind: destPrefix, prefix: p} }

// Sender delivers a message to a single peer; the transport layer
// supplies the concrete implementation.
type Sender interface {
	SendToPeer(peer identity.Peer, msg any) error
}

// Router resolves destinations against the known section map and
// dispatches via Sender. It holds no message-framing or transport logic
// of its own.
type Router struct {
	us       identity.Name
	sections *prefix.Map
	sender   Sender
	log      log.Logger
	handler  Handler
}

// New creates a Router for peer us, resolving destinations against
// sections. If logger is nil, a no-op logger is used.
func New(us identity.Name, sections *prefix.Map, sender Sender, logger log.Logger) *Router {
	if logger == nil {
		logger = xlog.NewNoOpLogger()
	}
	return &Router{us: us, sections: sections, sender: sender, log: logger}
}

// WithHandler attaches handler so that, when us is itself among a send's
// resolved recipients, the message is dispatched locally through
// OnMessage instead of being silently dropped (there being no point
// round-tripping a message to ourselves through the transport). Returns
// r for chaining.
func (r *Router) WithHandler(h Handler) *Router {
	r.handler = h
	return r
}

// allKnownElders returns every elder we know of, across our own section
// and every tracked neighbour, deduplicated by Name (a node can in
// principle appear in more than one snapshot during a handover).
func (r *Router) allKnownElders() []identity.Peer {
	seen := set.Of[identity.Name]()
	our := r.sections.OurInfo()
	out := make([]identity.Peer, 0, len(our.Members))
	for _, p := range our.Members {
		if seen.Contains(p.Name) {
			continue
		}
		seen.Add(p.Name)
		out = append(out, p)
	}
	for _, nb := range r.sections.Neighbours() {
		for _, p := range nb.Members {
			if seen.Contains(p.Name) {
				continue
			}
			seen.Add(p.Name)
			out = append(out, p)
		}
	}
	return out
}

// closestElders returns the n elders (across everything we know about)
// closest to target by XOR distance, Name ascending on ties.
func (r *Router) closestElders(target identity.Name, n int) []identity.Peer {
	peers := r.allKnownElders()
	sort.Slice(peers, func(i, j int) bool {
		return peers[i].Name.CloserTo(target, peers[j].Name)
	})
	if n > len(peers) {
		n = len(peers)
	}
	return peers[:n]
}

// forwardCount is how many closest elders a forwarded message goes to:
// N/3 of the configured elder count, per the routing fan-out rule.
func forwardCount(elderCount int) int {
	n := elderCount / 3
	if n < 1 {
		n = 1
	}
	return n
}

// Resolve returns the concrete peers dest should be delivered to, given
// elderCount (our section's configured elder count, used for the N/3
// forwarding fan-out).
func (r *Router) Resolve(dest Destination, elderCount int) ([]identity.Peer, error) {
	switch dest.kind {
	case destNode:
		if dest.name == r.us {
			return []identity.Peer{{Name: r.us}}, nil
		}
		our := r.sections.OurInfo()
		for _, m := range our.Members {
			if m.Name == dest.name {
				return []identity.Peer{m}, nil
			}
		}
		closest := r.closestElders(dest.name, forwardCount(elderCount))
		if len(closest) == 0 {
			return nil, errs.ErrCannotRoute
		}
		return closest, nil

	case destSection:
		ourInfo := r.sections.OurInfo()
		closestPfx, info := r.sections.Closest(dest.name)
		if closestPfx.Equal(r.sections.OurPrefix()) {
			out := make([]identity.Peer, 0, len(ourInfo.Members))
			for _, m := range ourInfo.Members {
				if m.Name != r.us {
					out = append(out, m)
				}
			}
			return out, nil
		}
		_ = info
		closest := r.closestElders(dest.name, forwardCount(elderCount))
		if len(closest) == 0 {
			return nil, errs.ErrCannotRoute
		}
		return closest, nil

	case destPrefix:
		ourPfx := r.sections.OurPrefix()
		if ourPfx.IsCompatible(dest.prefix) {
			return r.sections.OurInfo().Members, nil
		}
		for _, info := range r.sections.Neighbours() {
			if info.Prefix.IsCompatible(dest.prefix) {
				return info.Members, nil
			}
		}
		closestPfx, info := r.sections.Closest(dest.prefix.Value())
		if closestPfx.IsCompatible(dest.prefix) {
			return info.Members, nil
		}
		return nil, errs.ErrCannotRoute

	default:
		return nil, errs.ErrCannotRoute
	}
}

// send resolves dest and delivers msg to every resolved peer. A
// recipient that happens to be us is dispatched locally via OnMessage
// when a Handler is attached (see WithHandler), rather than dropped.
// Transient per-peer send failures, and local-dispatch failures, are
// logged and do not abort delivery to the rest of the resolved set;
// routing-exhaustion errors from Resolve are returned to the caller.
func (r *Router) send(dest Destination, elderCount int, isVote bool, msg any) error {
	peers, err := r.Resolve(dest, elderCount)
	if err != nil {
		return err
	}
	r.deliver(peers, isVote, msg)
	return nil
}

// deliver sends msg to every peer in peers, dispatching the one that is
// us locally when a Handler is attached, as described on send.
func (r *Router) deliver(peers []identity.Peer, isVote bool, msg any) {
	for _, p := range peers {
		if p.Name == r.us {
			if r.handler != nil {
				if err := r.OnMessage(r.us, isVote, msg, r.handler); err != nil {
					r.log.Warn("local dispatch failed", "err", err)
				}
			}
			continue
		}
		if err := r.sender.SendToPeer(p, msg); err != nil {
			r.log.Warn("send failed", "to", p.Name.String(), "err", err)
		}
	}
}

// SendToElders sends msg to every elder of our own section, dispatching
// locally (see WithHandler) rather than over the transport for the
// elder that is us. isVote classifies msg for local dispatch.
func (r *Router) SendToElders(elderCount int, isVote bool, msg any) error {
	r.deliver(r.sections.OurInfo().Members, isVote, msg)
	return nil
}

// SendToSection resolves the section closest to target and sends msg to
// it. isVote classifies msg for local dispatch.
func (r *Router) SendToSection(target identity.Name, elderCount int, isVote bool, msg any) error {
	return r.send(Section(target), elderCount, isVote, msg)
}

// SendToNode resolves name and sends msg to it. isVote classifies msg
// for local dispatch.
func (r *Router) SendToNode(name identity.Name, elderCount int, isVote bool, msg any) error {
	return r.send(Node(name), elderCount, isVote, msg)
}

// Handler dispatches an inbound message to the owning component.
type Handler interface {
	HandleMembershipVote(from identity.Name, msg any) error
	HandleChunkOp(from identity.Name, msg any) error
}

// OnMessage routes an inbound message to handler based on whether it
// carries a membership vote or a chunk operation; the transport layer
// is responsible for that classification before calling this.
func (r *Router) OnMessage(from identity.Name, isVote bool, msg any, handler Handler) error {
	if isVote {
		return handler.HandleMembershipVote(from, msg)
	}
	return handler.HandleChunkOp(from, msg)
}
