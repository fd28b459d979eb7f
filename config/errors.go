// Copyright (C) 2019-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import "github.com/cockroachdb/errors"

var (
	errInvalidElderCount       = errors.New("elder count must be positive")
	errInvalidSafeSectionSize  = errors.New("safe section size must exceed elder count")
	errInvalidReplicantCount   = errors.New("replicant count must be positive")
	errInvalidChunkCopyCount   = errors.New("chunk copy count must be at least replicant count")
	errInvalidMinLevelWhenFull = errors.New("min level when full must be positive")
)
