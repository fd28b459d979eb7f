// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/section/identity"
	"github.com/luxfi/section/internal/errs"
	"github.com/luxfi/section/placement"
	"github.com/luxfi/section/prefix"
	"github.com/luxfi/section/router"
)

func TestNodeHandlerHandlesChunkGet(t *testing.T) {
	us := identity.Peer{Name: identity.Name{0x01}}
	info := prefix.NewEldersInfo(prefix.Root, []identity.Peer{us}, 1)
	sections := prefix.NewMap(info)
	place := placement.NewTracker(1, nil)
	handler := newNodeHandler(sections, place, nil)

	chunk := identity.Name{0x02}
	place.HandlePut(chunk, []identity.Name{us.Name})
	place.HandlePutAck(chunk, us.Name)

	err := handler.HandleChunkOp(us.Name, chunkOpMessage{Kind: chunkOpGet, ChunkName: chunk})
	require.NoError(t, err)
}

func TestRouterOnMessageDispatchesChunkOpsToHandler(t *testing.T) {
	us := identity.Peer{Name: identity.Name{0x01}}
	info := prefix.NewEldersInfo(prefix.Root, []identity.Peer{us}, 1)
	sections := prefix.NewMap(info)
	place := placement.NewTracker(1, nil)
	handler := newNodeHandler(sections, place, nil)
	r := router.New(us.Name, sections, fakeSender{}, nil)

	chunk := identity.Name{0x02}
	place.HandlePut(chunk, []identity.Name{us.Name})
	place.HandlePutAck(chunk, us.Name)

	err := r.OnMessage(us.Name, false, chunkOpMessage{Kind: chunkOpGet, ChunkName: chunk}, handler)
	require.NoError(t, err)
}

func TestHandleChunkOpOutsideOurPrefixReturnsErrNotInCloseGroup(t *testing.T) {
	us := identity.Peer{Name: identity.Name{0x01}}
	ourInfo := prefix.NewEldersInfo(prefix.Root.Pushed(1), []identity.Peer{us}, 1)
	sections := prefix.NewMap(ourInfo)
	place := placement.NewTracker(1, nil)
	handler := newNodeHandler(sections, place, nil)

	outsideChunk := identity.Name{0x00}
	err := handler.HandleChunkOp(us.Name, chunkOpMessage{Kind: chunkOpGet, ChunkName: outsideChunk})
	require.ErrorIs(t, err, errs.ErrNotInCloseGroup)
}

type fakeSender struct{}

func (fakeSender) SendToPeer(peer identity.Peer, msg any) error { return nil }
