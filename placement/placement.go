// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package placement tracks which adults hold a copy of a chunk and
// drives re-replication on churn (spec component C8), grounded on
// original_source/src/personas/immutable_data_manager.rs's
// Account/DataHolder state machine.
package placement

import (
	"sort"
	"sync"

	"github.com/luxfi/log"

	"github.com/luxfi/section/identity"
	"github.com/luxfi/section/internal/errs"
	xlog "github.com/luxfi/section/log"
	"github.com/luxfi/section/metrics"
)

// HolderState is a chunk holder's lifecycle state for one chunk.
type HolderState int

const (
	// Pending marks a holder chosen to store a chunk, awaiting the Put
	// acknowledgement.
	Pending HolderState = iota
	// Good marks a holder that has acknowledged the Put and has not since
	// failed a Get.
	Good
	// Failed marks a holder that failed to store or serve the chunk; it
	// is excluded from future placement decisions for this chunk.
	Failed
)

// Holder is one replica assignment for a chunk.
type Holder struct {
	Name  identity.Name
	State HolderState
}

// Account is the replica set for a single chunk, keyed by its Name in
// the chunk's content-addressed namespace.
type Account struct {
	ChunkName identity.Name
	Holders   map[identity.Name]HolderState
}

func newAccount(chunkName identity.Name) *Account {
	return &Account{ChunkName: chunkName, Holders: make(map[identity.Name]HolderState)}
}

// GoodCount returns the number of holders in the Good state.
func (a *Account) GoodCount() int {
	n := 0
	for _, s := range a.Holders {
		if s == Good {
			n++
		}
	}
	return n
}

// MarkGood transitions holder to Good, following a successful Put
// acknowledgement. Grounded on immutable_data_manager.rs's
// update_good_dataholder_in_account.
func (a *Account) MarkGood(holder identity.Name) {
	a.Holders[holder] = Good
}

// MarkFailed transitions holder to Failed, excluding it from future
// selection for this chunk. Grounded on immutable_data_manager.rs's
// handle_put_failure.
func (a *Account) MarkFailed(holder identity.Name) {
	a.Holders[holder] = Failed
}

// ChooseHolders selects up to count adults from candidates closest to
// address by XOR distance (Name ascending on ties), skipping any in
// full or exclude. Holder selection is otherwise deterministic given
// (address, candidates, full).
func ChooseHolders(address identity.Name, candidates []identity.Name, full map[identity.Name]bool, exclude map[identity.Name]bool, count int) []identity.Name {
	eligible := make([]identity.Name, 0, len(candidates))
	for _, c := range candidates {
		if full[c] || exclude[c] {
			continue
		}
		eligible = append(eligible, c)
	}
	sort.Slice(eligible, func(i, j int) bool {
		return eligible[i].CloserTo(address, eligible[j])
	})
	if count > len(eligible) {
		count = len(eligible)
	}
	return eligible[:count]
}

// Tracker maintains an Account per chunk and decides re-replication on
// churn, aiming to keep ReplicaFloor Good holders per chunk at all
// times.
type Tracker struct {
	mu           sync.Mutex
	log          log.Logger
	accounts     map[identity.Name]*Account
	replicaFloor int
	metrics      *metrics.Section

	// pendingGets coalesces concurrent Get requests for the same chunk
	// into a single outstanding fetch, mirroring
	// immutable_data_manager.rs's PendingGetRequest.
	pendingGets map[identity.Name][]identity.Name
}

// NewTracker creates a Tracker that maintains replicaFloor good replicas
// per chunk. If logger is nil, a no-op logger is used.
func NewTracker(replicaFloor int, logger log.Logger) *Tracker {
	return NewTrackerWithMetrics(replicaFloor, nil, logger)
}

// NewTrackerWithMetrics is NewTracker with an explicit metrics sink. m
// may be nil to run without metrics reporting.
func NewTrackerWithMetrics(replicaFloor int, m *metrics.Section, logger log.Logger) *Tracker {
	if logger == nil {
		logger = xlog.NewNoOpLogger()
	}
	return &Tracker{
		log:          logger,
		accounts:     make(map[identity.Name]*Account),
		replicaFloor: replicaFloor,
		metrics:      m,
		pendingGets:  make(map[identity.Name][]identity.Name),
	}
}

// HandlePutSelecting chooses t.replicaFloor holders for chunkName from
// candidates (adults close by XOR, excluding full ones) and registers
// them Pending, per the handle_put contract.
func (t *Tracker) HandlePutSelecting(chunkName identity.Name, candidates []identity.Name, full map[identity.Name]bool) *Account {
	chosen := ChooseHolders(chunkName, candidates, full, nil, t.replicaFloor)
	return t.HandlePut(chunkName, chosen)
}

// HandlePut registers chosen as Pending holders for chunkName, starting
// a new Account if one is not already tracked.
func (t *Tracker) HandlePut(chunkName identity.Name, chosen []identity.Name) *Account {
	t.mu.Lock()
	defer t.mu.Unlock()
	acc, ok := t.accounts[chunkName]
	if !ok {
		acc = newAccount(chunkName)
		t.accounts[chunkName] = acc
		if t.metrics != nil {
			t.metrics.ChunksTracked.Set(float64(len(t.accounts)))
		}
	}
	for _, name := range chosen {
		acc.Holders[name] = Pending
	}
	return acc
}

// HandlePutAck transitions holder from Pending to Good on a successful
// store acknowledgement.
func (t *Tracker) HandlePutAck(chunkName, holder identity.Name) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if acc, ok := t.accounts[chunkName]; ok {
		if state, held := acc.Holders[holder]; held && state == Pending {
			acc.MarkGood(holder)
		}
	}
}

// HandlePutFail marks holder Failed and returns the chunk's Account so
// the caller can choose a replacement holder from the close group,
// first node not already tried.
func (t *Tracker) HandlePutFail(chunkName, holder identity.Name) *Account {
	t.mu.Lock()
	defer t.mu.Unlock()
	acc, ok := t.accounts[chunkName]
	if !ok {
		return nil
	}
	acc.MarkFailed(holder)
	t.log.Warn("put failed", "chunk", chunkName.String(), "holder", holder.String())
	if t.metrics != nil {
		t.metrics.PutFailures.Inc()
	}
	return acc
}

// ChooseReplacement picks a replacement holder for chunkName from
// candidates, excluding every Name already tried (Pending, Good, or
// Failed) for this chunk, closest by XOR to the chunk's Name among the
// rest. Returns ErrUnableToAllocateNewPmidNode if no eligible candidate
// remains, per the original's handle_put_failure exhaustion path.
func (t *Tracker) ChooseReplacement(chunkName identity.Name, candidates []identity.Name, full map[identity.Name]bool) (identity.Name, error) {
	t.mu.Lock()
	acc, ok := t.accounts[chunkName]
	tried := make(map[identity.Name]bool)
	if ok {
		for name := range acc.Holders {
			tried[name] = true
		}
	}
	t.mu.Unlock()

	chosen := ChooseHolders(chunkName, candidates, full, tried, 1)
	if len(chosen) == 0 {
		return identity.Name{}, errs.ErrUnableToAllocateNewPmidNode
	}
	return chosen[0], nil
}

// HandleGet registers requester as wanting chunkName. If a fetch for
// this chunk is already outstanding, requester is coalesced onto it and
// dispatch is false: the caller must not send another Get to the
// holders, only remember to answer requester once CompleteGet fires.
// Otherwise this is the first request and dispatch is true: the caller
// should query every Good holder returned.
func (t *Tracker) HandleGet(chunkName, requester identity.Name) (holders []identity.Name, dispatch bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	waiters, inFlight := t.pendingGets[chunkName]
	t.pendingGets[chunkName] = append(waiters, requester)
	if inFlight {
		return nil, false
	}

	acc, ok := t.accounts[chunkName]
	if !ok {
		return nil, true
	}
	for name, state := range acc.Holders {
		if state == Good {
			holders = append(holders, name)
		}
	}
	return holders, true
}

// CompleteGet clears chunkName's pending fetch window and returns every
// requester that coalesced onto it, so the caller can answer them all
// once the data (or its absence) is known.
func (t *Tracker) CompleteGet(chunkName identity.Name) []identity.Name {
	t.mu.Lock()
	defer t.mu.Unlock()
	waiters := t.pendingGets[chunkName]
	delete(t.pendingGets, chunkName)
	return waiters
}

// HandleGetFail marks holder Failed following a failed serve attempt; it
// remains excluded from being chosen as a holder for this chunk again.
// If the chunk's Good holder count has now dropped below the replica
// floor, a re-replication warning is logged; if no Good holder remains
// at all, ErrNoSuchData is returned so the caller can surface a
// terminal failure to the requester instead of retrying a chunk this
// section can no longer serve, per handle_get_fail.
func (t *Tracker) HandleGetFail(chunkName, holder identity.Name) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	acc, ok := t.accounts[chunkName]
	if !ok {
		return errs.ErrNoSuchData
	}
	acc.MarkFailed(holder)
	if t.metrics != nil {
		t.metrics.GetFailures.Inc()
	}

	good := acc.GoodCount()
	if deficit := t.replicaFloor - good; deficit > 0 {
		t.log.Warn("chunk below replica floor after get failure", "chunk", chunkName.String(), "deficit", deficit)
	}
	if good == 0 {
		t.log.Error("no good holders remain for chunk", "chunk", chunkName.String())
		return errs.ErrNoSuchData
	}
	return nil
}

// NeedsReplicas reports whether chunkName's Good holder count is below
// the replica floor, and if so how many additional replicas are needed.
func (t *Tracker) NeedsReplicas(chunkName identity.Name) (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	acc, ok := t.accounts[chunkName]
	if !ok {
		return t.replicaFloor, true
	}
	deficit := t.replicaFloor - acc.GoodCount()
	return deficit, deficit > 0
}

// OnChurn applies a churn event to every tracked Account, per the
// original's on_churn(added, removed) contract: removed holders that
// left the section or fell out of a chunk's close group are dropped,
// and added (newly-joined, not-full adults) are selected via
// ChooseHolders and registered Pending for any account that remains
// below the replica floor afterward. Returns the chunks still needing
// further re-replication together with the remaining deficit once no
// more of added could be assigned.
func (t *Tracker) OnChurn(added, removed []identity.Name, full map[identity.Name]bool) map[identity.Name]int {
	t.mu.Lock()
	defer t.mu.Unlock()

	deficits := make(map[identity.Name]int)
	for chunkName, acc := range t.accounts {
		for _, departed := range removed {
			delete(acc.Holders, departed)
		}

		deficit := t.replicaFloor - acc.GoodCount()
		if deficit <= 0 {
			continue
		}
		if len(added) > 0 {
			exclude := make(map[identity.Name]bool, len(acc.Holders))
			for name := range acc.Holders {
				exclude[name] = true
			}
			for _, name := range ChooseHolders(chunkName, added, full, exclude, deficit) {
				acc.Holders[name] = Pending
			}
			deficit = t.replicaFloor - acc.GoodCount()
		}
		if deficit > 0 {
			deficits[chunkName] = deficit
		}
	}
	return deficits
}

// Account returns the tracked Account for chunkName, if any.
func (t *Tracker) Account(chunkName identity.Name) (*Account, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	acc, ok := t.accounts[chunkName]
	return acc, ok
}

// TrackedChunks returns every chunk Name currently tracked, sorted
// ascending.
func (t *Tracker) TrackedChunks() []identity.Name {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]identity.Name, 0, len(t.accounts))
	for name := range t.accounts {
		out = append(out, name)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}
