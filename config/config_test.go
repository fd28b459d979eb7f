// Copyright (C) 2019-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import "testing"

func TestDefaultVerifies(t *testing.T) {
	if err := Default().Verify(); err != nil {
		t.Fatalf("default parameters should verify, got %v", err)
	}
}

func TestVerifyRejectsUnsafeSplit(t *testing.T) {
	p := Default()
	p.SafeSectionSize = p.ElderCount
	if err := p.Verify(); err == nil {
		t.Fatal("expected error when safe section size does not exceed elder count")
	}
}

func TestVerifyRejectsZeroReplicantCount(t *testing.T) {
	p := Default()
	p.ReplicantCount = 0
	if err := p.Verify(); err == nil {
		t.Fatal("expected error for zero replicant count")
	}
}
