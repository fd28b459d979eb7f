// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package accumulator implements vote/proof accumulation to BLS-threshold
// agreement (spec component C5), grounded on the map+mutex+threshold
// shape of quorum/static.go.
package accumulator

import (
	"fmt"

	"github.com/luxfi/section/identity"
	"github.com/luxfi/section/prefix"
)

// Kind discriminates the AccumulatingEvent variants named in the spec's
// data model.
type Kind int

const (
	Online Kind = iota
	Offline
	Relocate
	RelocatePrepare
	SectionInfo
	NeighbourInfo
	TheirKeyInfo
	AckMessage
	// StartDkg must never reach the accumulator's output path: AddProof
	// refuses to record it, and Poll panics if a slot of this kind is
	// ever found.
	StartDkg
	User
)

// RelocateDetails describes a scheduled relocation, mirroring the wire
// RelocateRequest message.
type RelocateDetails struct {
	Name         identity.Name
	PreviousName identity.Name
	Destination  prefix.Prefix
	Age          uint8
}

// SectionKeyInfo pairs a prefix with the BLS public key set governing it.
type SectionKeyInfo struct {
	Prefix prefix.Prefix
	Key    *identity.PublicKeySet
}

// Ack is the minimal acknowledgement payload for AckMessage events.
type Ack struct {
	From identity.Name
}

// Event is a tagged union over the AccumulatingEvent variants. Only the
// fields relevant to Kind are meaningful.
type Event struct {
	Kind Kind

	OnlinePeer identity.Peer
	OnlineAge  uint8

	OfflineName identity.Name

	RelocateInfo        RelocateDetails
	RelocatePrepareCount int

	SectionInfoValue   prefix.EldersInfo
	SectionKeyInfoValue SectionKeyInfo

	NeighbourInfoValue prefix.EldersInfo

	TheirKey *identity.PublicKeySet

	AckValue Ack

	DkgParticipants []identity.Peer

	UserBytes []byte
}

// key identifies the logical "slot" this event occupies: two events with
// the same key for which sameValue is false are a "Replaced" insertion, to be
// warned about and rejected, never accepted over one another.
func (e Event) key() string {
	switch e.Kind {
	case Online:
		return fmt.Sprintf("online:%s", e.OnlinePeer.Name)
	case Offline:
		return fmt.Sprintf("offline:%s", e.OfflineName)
	case Relocate:
		return fmt.Sprintf("relocate:%s", e.RelocateInfo.Name)
	case RelocatePrepare:
		return fmt.Sprintf("relocateprepare:%s", e.RelocateInfo.Name)
	case SectionInfo:
		return fmt.Sprintf("sectioninfo:%s", e.SectionInfoValue.Prefix)
	case NeighbourInfo:
		return fmt.Sprintf("neighbourinfo:%s", e.NeighbourInfoValue.Prefix)
	case TheirKeyInfo:
		return fmt.Sprintf("theirkey:%s", e.SectionKeyInfoValue.Prefix)
	case AckMessage:
		return fmt.Sprintf("ack:%s", e.AckValue.From)
	case StartDkg:
		return "startdkg"
	case User:
		return fmt.Sprintf("user:%x", e.UserBytes)
	default:
		return "unknown"
	}
}

// sameValue reports whether e and other carry the same logical payload
// for the same slot (as opposed to conflicting values for that slot).
func (e Event) sameValue(other Event) bool {
	if e.Kind != other.Kind {
		return false
	}
	switch e.Kind {
	case Online:
		return e.OnlinePeer == other.OnlinePeer && e.OnlineAge == other.OnlineAge
	case Offline:
		return e.OfflineName == other.OfflineName
	case Relocate, RelocatePrepare:
		return e.RelocateInfo == other.RelocateInfo
	case SectionInfo:
		return e.SectionInfoValue.Prefix.Equal(other.SectionInfoValue.Prefix) &&
			e.SectionInfoValue.Version == other.SectionInfoValue.Version
	case NeighbourInfo:
		return e.NeighbourInfoValue.Prefix.Equal(other.NeighbourInfoValue.Prefix) &&
			e.NeighbourInfoValue.Version == other.NeighbourInfoValue.Version
	case TheirKeyInfo:
		return e.SectionKeyInfoValue.Prefix.Equal(other.SectionKeyInfoValue.Prefix)
	case AckMessage:
		return e.AckValue == other.AckValue
	case User:
		return string(e.UserBytes) == string(other.UserBytes)
	default:
		return true
	}
}
