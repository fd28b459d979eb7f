// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"fmt"

	"github.com/luxfi/log"

	"github.com/luxfi/section/identity"
	"github.com/luxfi/section/internal/errs"
	"github.com/luxfi/section/placement"
	"github.com/luxfi/section/prefix"
)

// chunkOpKind discriminates the chunk operations a nodeHandler dispatches
// to placement.Tracker.
type chunkOpKind int

const (
	chunkOpGet chunkOpKind = iota
	chunkOpGetFail
)

// chunkOpMessage is the payload router.Router.OnMessage hands to
// HandleChunkOp for a chunk-affecting message.
type chunkOpMessage struct {
	Kind      chunkOpKind
	ChunkName identity.Name
}

// voteMessage is the payload router.Router.OnMessage hands to
// HandleMembershipVote for a membership vote message.
type voteMessage struct {
	Proposal any
}

// nodeHandler implements router.Handler: it dispatches inbound chunk
// operations to this node's placement tracker, checked against the
// section map, and logs inbound membership votes without acting on them.
type nodeHandler struct {
	sections *prefix.Map
	place    *placement.Tracker
	log      log.Logger
}

func newNodeHandler(sections *prefix.Map, place *placement.Tracker, logger log.Logger) *nodeHandler {
	return &nodeHandler{sections: sections, place: place, log: logger}
}

// HandleMembershipVote logs the receipt of a vote at debug level and
// reports success. The vote is not passed to a consensus accumulator:
// nodeHandler holds no accumulator reference, so every inbound vote is
// dropped after logging.
func (h *nodeHandler) HandleMembershipVote(from identity.Name, msg any) error {
	h.log.Debug("received membership vote", "from", from.String())
	return nil
}

// HandleChunkOp dispatches a chunk operation addressed to us, returning
// ErrNotInCloseGroup if the chunk's address does not fall within our own
// section's prefix, matching the original's close-group membership
// check before touching an Account.
func (h *nodeHandler) HandleChunkOp(from identity.Name, msg any) error {
	op, ok := msg.(chunkOpMessage)
	if !ok {
		return fmt.Errorf("unrecognized chunk op payload: %T", msg)
	}
	if !h.sections.OurPrefix().Matches(op.ChunkName) {
		return errs.ErrNotInCloseGroup
	}
	switch op.Kind {
	case chunkOpGetFail:
		return h.place.HandleGetFail(op.ChunkName, from)
	case chunkOpGet:
		h.place.HandleGet(op.ChunkName, from)
		return nil
	default:
		return fmt.Errorf("unrecognized chunk op kind: %d", op.Kind)
	}
}
