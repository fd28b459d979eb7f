// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/luxfi/log"

	"github.com/luxfi/section/accumulator"
	"github.com/luxfi/section/capacity"
	"github.com/luxfi/section/chain"
	"github.com/luxfi/section/config"
	"github.com/luxfi/section/events"
	"github.com/luxfi/section/identity"
	xlog "github.com/luxfi/section/log"
	"github.com/luxfi/section/members"
	"github.com/luxfi/section/membership"
	"github.com/luxfi/section/metrics"
	"github.com/luxfi/section/placement"
	"github.com/luxfi/section/prefix"
	"github.com/luxfi/section/router"
)

func runCmd() *cobra.Command {
	var pollInterval time.Duration
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start a section node bootstrapped as the sole genesis elder",
		Long: `run wires up a single node that starts as its own section's only
elder, with no peers and no transport. It exists to exercise the poll cycle
and log the membership/placement decisions it produces; wiring a real
transport into router.Sender is left to the embedding application.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNode(cmd, pollInterval)
		},
	}
	cmd.Flags().DurationVar(&pollInterval, "poll-interval", 500*time.Millisecond, "interval between Poll calls")
	return cmd
}

// nopSender logs outbound sends instead of delivering them, standing in
// for a transport this command does not implement.
type nopSender struct {
	log log.Logger
}

func (s nopSender) SendToPeer(peer identity.Peer, msg any) error {
	s.log.Debug("dropping send, no transport wired", "to", peer.Name.String())
	return nil
}

func runNode(cmd *cobra.Command, pollInterval time.Duration) error {
	logger := xlog.NewNoOpLogger()

	us, err := randomName()
	if err != nil {
		return fmt.Errorf("generating our node name: %w", err)
	}

	params := config.Default()
	if err := params.Verify(); err != nil {
		return fmt.Errorf("default parameters invalid: %w", err)
	}

	ourInfo := prefix.NewEldersInfo(prefix.Root, []identity.Peer{{Name: us}}, 1)
	sections := prefix.NewMap(ourInfo)
	table := members.NewTable()
	table.Join(identity.Peer{Name: us}, params.FirstSectionMaxAge)
	sectionChain := chain.NewGenesis(nil)
	acc := accumulator.New(logger)

	reg := prometheus.NewRegistry()
	sectionMetrics, err := metrics.NewSection(reg)
	if err != nil {
		return fmt.Errorf("registering metrics: %w", err)
	}

	capTracker := capacity.NewTrackerWithMetrics(sectionMetrics)
	placeTracker := placement.NewTrackerWithMetrics(params.ReplicantCount, sectionMetrics, logger)
	bus := events.NewBus()
	handler := newNodeHandler(sections, placeTracker, logger)
	r := router.New(us, sections, nopSender{log: logger}, logger).WithHandler(handler)
	if _, err := r.Resolve(router.Node(us), params.ElderCount); err != nil {
		return fmt.Errorf("resolving our own node at startup: %w", err)
	}

	machine := membership.New(us, params, table, sections, acc, sectionChain, sectionMetrics, logger).
		WithCapacityTracker(capTracker)
	machine.MarkGenesisHandled()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	fmt.Fprintf(cmd.OutOrStdout(), "sectiond: %s started as sole elder of %s\n", us.String(), ourInfo.Prefix.String())
	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(cmd.OutOrStdout(), "sectiond: shutting down")
			return nil
		case <-ticker.C:
			out := machine.Poll(sectionChain.Last())
			dispatchOutput(bus, placeTracker, capTracker, table, logger, out)
		}
	}
}

// fullAdults builds the exclude-set OnChurn needs from capTracker's
// current capacity readings.
func fullAdults(capTracker *capacity.Tracker) map[identity.Name]bool {
	full := make(map[identity.Name]bool)
	for _, name := range capTracker.FullAdults() {
		full[name] = true
	}
	return full
}

// dispatchOutput translates a Poll Output into the events.Bus's
// node-visible notifications, driving placeTracker.OnChurn on every
// adult roster change so accounts below the replica floor are
// re-replicated onto newly-joined adults, or their deficit logged when
// none is available to cover it.
func dispatchOutput(bus *events.Bus, placeTracker *placement.Tracker, capTracker *capacity.Tracker, table *members.Table, logger log.Logger, out membership.Output) {
	switch out.Kind {
	case membership.OutputChurnEvent:
		switch out.Event.Kind {
		case accumulator.Online:
			added := []identity.Name{out.Event.OnlinePeer.Name}
			deficits := placeTracker.OnChurn(added, nil, fullAdults(capTracker))
			for chunk, deficit := range deficits {
				logger.Warn("chunk still below replica floor after adult join", "chunk", chunk.String(), "deficit", deficit)
			}
			bus.Publish(events.Event{Kind: events.AdultsChanged, Added: added, Remaining: table.Len()})
		case accumulator.Offline:
			removed := []identity.Name{out.Event.OfflineName}
			deficits := placeTracker.OnChurn(nil, removed, fullAdults(capTracker))
			for chunk, deficit := range deficits {
				logger.Warn("chunk still below replica floor after adult departure", "chunk", chunk.String(), "deficit", deficit)
			}
			bus.Publish(events.Event{Kind: events.AdultsChanged, Removed: removed, Remaining: table.Len()})
		case accumulator.SectionInfo:
			bus.Publish(events.Event{Kind: events.EldersChanged, Elders: out.Event.SectionInfoValue})
		}
	case membership.OutputEldersProposal:
		if len(out.EldersProposals) == 2 {
			bus.Publish(events.Event{
				Kind:           events.SectionSplit,
				SplitPrefixOne: out.EldersProposals[0].Prefix,
				SplitPrefixTwo: out.EldersProposals[1].Prefix,
			})
		}
	case membership.OutputRelocate:
		bus.Publish(events.Event{Kind: events.Relocated, RelocatedName: out.RelocateName, RelocatedTo: out.RelocateInfo.To})
	}
}
