// Copyright (C) 2019-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config exposes the tunable protocol parameters of the section
// core, the way sampling.Parameters exposes avalanche's k/alpha/beta.
package config

// Parameters holds the protocol constants named in the specification.
// The zero value is invalid; use Default.
type Parameters struct {
	// ElderCount is the maximum number of elders governing a section.
	ElderCount int `json:"elderCount" yaml:"elderCount"`

	// SafeSectionSize is the minimum mature-member count each child
	// prefix must retain for a split to be considered safe.
	SafeSectionSize int `json:"safeSectionSize" yaml:"safeSectionSize"`

	// ReplicantCount is the target number of active (Pending|Good) chunk
	// holders per ChunkAccount.
	ReplicantCount int `json:"replicantCount" yaml:"replicantCount"`

	// ChunkCopyCount is the replica count used by the larger placement
	// policy variant referenced by the spec's external interfaces.
	ChunkCopyCount int `json:"chunkCopyCount" yaml:"chunkCopyCount"`

	// MinAdultAge is the minimum age a joining node must have reached to
	// be considered a fully vested adult.
	MinAdultAge uint8 `json:"minAdultAge" yaml:"minAdultAge"`

	// FirstSectionMaxAge caps the age a node in the genesis section may
	// reach before relocation stops bumping it further.
	FirstSectionMaxAge uint8 `json:"firstSectionMaxAge" yaml:"firstSectionMaxAge"`

	// MinLevelWhenFull is the StorageLevel at or above which an adult is
	// considered full and excluded from new chunk placement.
	MinLevelWhenFull uint8 `json:"minLevelWhenFull" yaml:"minLevelWhenFull"`
}

// Default returns the parameters named in the specification's external
// interfaces section.
func Default() Parameters {
	return Parameters{
		ElderCount:         7,
		SafeSectionSize:    8,
		ReplicantCount:     2,
		ChunkCopyCount:     4,
		MinAdultAge:        4,
		FirstSectionMaxAge: 90,
		MinLevelWhenFull:   9,
	}
}

// Verify checks that every parameter is within its documented domain.
func (p Parameters) Verify() error {
	if p.ElderCount <= 0 {
		return errInvalidElderCount
	}
	if p.SafeSectionSize <= p.ElderCount {
		return errInvalidSafeSectionSize
	}
	if p.ReplicantCount <= 0 {
		return errInvalidReplicantCount
	}
	if p.ChunkCopyCount < p.ReplicantCount {
		return errInvalidChunkCopyCount
	}
	if p.MinLevelWhenFull == 0 {
		return errInvalidMinLevelWhenFull
	}
	return nil
}
