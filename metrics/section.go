// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package metrics instruments the section core with the counter/gauge
// shape of the teacher's metrics package, specialized to the churn and
// placement events a section emits.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Section bundles the Prometheus collectors the rest of the core
// reports into.
type Section struct {
	EldersCount    Gauge
	AdultsCount    Gauge
	ChunksTracked  Gauge
	AvgStorageUsed Gauge

	Joins       Counter
	Leaves      Counter
	Relocations Counter
	Splits      Counter
	PutFailures Counter
	GetFailures Counter
}

// NewSection registers a full set of section-core collectors with reg.
func NewSection(reg prometheus.Registerer) (*Section, error) {
	var err error
	s := &Section{}

	if s.EldersCount, err = NewGauge("section_elders_count", "current elder count", reg); err != nil {
		return nil, err
	}
	if s.AdultsCount, err = NewGauge("section_adults_count", "current adult count", reg); err != nil {
		return nil, err
	}
	if s.ChunksTracked, err = NewGauge("section_chunks_tracked", "chunk accounts tracked", reg); err != nil {
		return nil, err
	}
	if s.AvgStorageUsed, err = NewGauge("section_avg_storage_level", "average adult storage level", reg); err != nil {
		return nil, err
	}
	if s.Joins, err = NewCounter("section_joins_total", "members joined", reg); err != nil {
		return nil, err
	}
	if s.Leaves, err = NewCounter("section_leaves_total", "members left", reg); err != nil {
		return nil, err
	}
	if s.Relocations, err = NewCounter("section_relocations_total", "members relocated", reg); err != nil {
		return nil, err
	}
	if s.Splits, err = NewCounter("section_splits_total", "section splits committed", reg); err != nil {
		return nil, err
	}
	if s.PutFailures, err = NewCounter("section_put_failures_total", "chunk put failures", reg); err != nil {
		return nil, err
	}
	if s.GetFailures, err = NewCounter("section_get_failures_total", "chunk get failures", reg); err != nil {
		return nil, err
	}
	return s, nil
}
