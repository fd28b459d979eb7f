// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package errs defines the sentinel errors shared across the section core.
package errs

import "github.com/cockroachdb/errors"

var (
	// ErrInvalidElderDkgResult is returned when a signature combine is
	// attempted without a share index matching the new EldersInfo ordering.
	ErrInvalidElderDkgResult = errors.New("invalid elder dkg result")

	// ErrInvalidNewSectionInfo is returned when a chain extension or an
	// EldersInfo successor check fails verification.
	ErrInvalidNewSectionInfo = errors.New("invalid new section info")

	// ErrCannotRoute is returned when a message destination cannot be
	// resolved to any known peer, section, or prefix.
	ErrCannotRoute = errors.New("cannot route message")

	// ErrNotInCloseGroup is returned when an operation is attempted against
	// a chunk address this section does not own.
	ErrNotInCloseGroup = errors.New("not in close group")

	// ErrUnableToAllocateNewPmidNode is returned when chunk placement has
	// no eligible adult left to replace a failed holder.
	ErrUnableToAllocateNewPmidNode = errors.New("unable to allocate new holder")

	// ErrNoSuchData is surfaced to a Get caller when no Good holder remains
	// for a chunk after recovery has been attempted.
	ErrNoSuchData = errors.New("no such data")
)
