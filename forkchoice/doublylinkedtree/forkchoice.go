package doublylinkedtree

import (
	"context"
	"sync"

	"github.com/syjn99/ream-sub001/config/params"
	"github.com/syjn99/ream-sub001/consensus-types/primitives"
	"github.com/syjn99/ream-sub001/forkchoice"
	fctypes "github.com/syjn99/ream-sub001/forkchoice/types"
)

// ForkChoice wraps Store with the vote bookkeeping (latest_messages,
// equivocating_indices, effective balances) that §4.4's on_attestation and
// weight() need but which the tree of Nodes itself has no business owning.
// It implements forkchoice.ForkChoicer.
type ForkChoice struct {
	store *Store

	votesLock sync.RWMutex
	votes     map[primitives.ValidatorIndex]fctypes.VoteIntent
	balances  map[primitives.ValidatorIndex]uint64
	committeeWeight uint64
}

var _ forkchoice.ForkChoicer = (*ForkChoice)(nil)

// New returns a fork-choice store seeded at the given justified/finalized
// epoch, with no blocks inserted yet (the caller inserts the genesis /
// anchor-state block immediately after).
func New(justifiedEpoch, finalizedEpoch primitives.Epoch) *ForkChoice {
	return &ForkChoice{
		store:    newStore(justifiedEpoch, finalizedEpoch),
		votes:    make(map[primitives.ValidatorIndex]fctypes.VoteIntent),
		balances: make(map[primitives.ValidatorIndex]uint64),
	}
}

// SetBalances installs the effective-balance snapshot weight() reads from,
// normally taken from the justified checkpoint state (§4.4 "weight(root)").
func (f *ForkChoice) SetBalances(balances map[primitives.ValidatorIndex]uint64) {
	f.votesLock.Lock()
	defer f.votesLock.Unlock()
	f.balances = balances
	total := uint64(0)
	for _, b := range balances {
		total += b
	}
	f.committeeWeight = total / params.BeaconConfig().SlotsPerEpoch
}

// InsertNode implements on_block's store-mutation steps (3, 4, 5, 6 of
// §4.4): store the block, update block_timeliness, maybe install
// proposer-boost, cache the unrealized checkpoints the caller computed by
// simulating one epoch step forward, and adopt realized checkpoints if
// the caller's state moved them forward. Steps 1-2 (parent/ancestry
// pre-checks and the state-transition call itself) are the chain
// service's job; by the time InsertNode runs the block is already valid.
func (f *ForkChoice) InsertNode(ctx context.Context, b *forkchoice.BlockAndCheckpoints) error {
	n, err := f.store.insert(ctx, primitives.Slot(b.Slot), b.Root, b.ParentRoot, b.PayloadHash,
		primitives.Epoch(b.JustifiedEpoch), primitives.Epoch(b.FinalizedEpoch))
	if err != nil {
		return err
	}

	f.store.nodesLock.Lock()
	n.unrealizedJustifiedEpoch = b.UnrealizedJustified.Epoch
	n.unrealizedFinalizedEpoch = b.UnrealizedFinalized.Epoch
	n.timestamp = b.Timestamp
	n.timely = f.isTimely(n)
	parent := n.parent
	f.store.nodesLock.Unlock()

	// Proposer boost: a timely block whose parent is the current head
	// becomes the new boost root (§4.4 step 4, §9 reorg policy).
	if n.timely {
		head, herr := f.store.head(ctx)
		if herr == nil && parent != nil && parent.root == head {
			f.store.nodesLock.Lock()
			f.store.proposerBoostRoot = n.root
			f.store.nodesLock.Unlock()
		}
	}

	// Step 6: adopt the block's realized checkpoints if they beat the
	// store's, and keep the unrealized ones as the high-water mark so
	// on_tick's pull-up (§4.4 on_tick) has something to promote later.
	f.maybeUpdateCheckpoints(primitives.Epoch(b.JustifiedEpoch), primitives.Epoch(b.FinalizedEpoch), b.Root)
	f.maybeUpdateUnrealizedCheckpoints(b.UnrealizedJustified, b.UnrealizedFinalized)

	return f.recomputeWeights(ctx)
}

func (f *ForkChoice) isTimely(n *Node) bool {
	// A block is timely if it was received by the attestation-deadline
	// sub-slot of its own slot; we approximate "within the attestation
	// window" as: its insertion timestamp falls within the first interval
	// of the slot it claims.
	if !f.store.genesisTimeSet {
		return true
	}
	expected := f.store.genesisTime + uint64(n.slot)*params.BeaconConfig().SecondsPerSlot
	window := params.BeaconConfig().SecondsPerSlot / params.BeaconConfig().IntervalsPerSlot
	return n.timestamp >= expected && n.timestamp <= expected+window
}

func (f *ForkChoice) maybeUpdateCheckpoints(justified, finalized primitives.Epoch, root [32]byte) {
	f.store.nodesLock.Lock()
	defer f.store.nodesLock.Unlock()
	if justified > f.store.justifiedCheckpoint.Epoch {
		f.store.justifiedCheckpoint = &fctypes.Checkpoint{Epoch: justified, Root: root}
	}
	if finalized > f.store.finalizedCheckpoint.Epoch {
		f.store.finalizedCheckpoint = &fctypes.Checkpoint{Epoch: finalized, Root: root}
	}
}

func (f *ForkChoice) maybeUpdateUnrealizedCheckpoints(justified, finalized fctypes.Checkpoint) {
	f.store.nodesLock.Lock()
	defer f.store.nodesLock.Unlock()
	if justified.Epoch > f.store.unrealizedJustifiedCheckpoint.Epoch {
		cp := justified
		f.store.unrealizedJustifiedCheckpoint = &cp
	}
	if finalized.Epoch > f.store.unrealizedFinalizedCheckpoint.Epoch {
		cp := finalized
		f.store.unrealizedFinalizedCheckpoint = &cp
	}
}

// ProcessAttestation implements on_attestation (§4.4): each attesting index
// not in the equivocating set updates its latest message if the new target
// epoch is strictly greater than its previous one (§3 invariant, and §5's
// "weak" concurrent-attestation ordering — whichever update wins the lock
// last, older-epoch updates are simply dropped here).
func (f *ForkChoice) ProcessAttestation(ctx context.Context, indices []uint64, blockRoot [32]byte, targetEpoch uint64) {
	f.votesLock.Lock()
	defer f.votesLock.Unlock()
	for _, idx := range indices {
		vi := primitives.ValidatorIndex(idx)
		if f.store.equivocatingIndices[vi] {
			continue
		}
		prev, ok := f.votes[vi]
		if !ok || primitives.Epoch(targetEpoch) > prev.TargetEpoch {
			f.votes[vi] = fctypes.VoteIntent{ValidatorIndex: vi, TargetEpoch: primitives.Epoch(targetEpoch), Root: blockRoot}
		}
	}
	_ = f.recomputeWeights(ctx)
}

// InsertSlashedIndex implements on_attester_slashing (§4.4): the index's
// vote is removed from consideration for all future weight computations,
// immediately (§8 "Equivocation neutralization").
func (f *ForkChoice) InsertSlashedIndex(ctx context.Context, index uint64) {
	f.store.nodesLock.Lock()
	f.store.equivocatingIndices[primitives.ValidatorIndex(index)] = true
	f.store.nodesLock.Unlock()
	_ = f.recomputeWeights(ctx)
}

// recomputeWeights rebuilds every node's attributable balance from the
// current vote set and proposer-boost root, then propagates cumulative
// weights up the tree (Node.applyWeightChanges).
func (f *ForkChoice) recomputeWeights(ctx context.Context) error {
	f.store.nodesLock.Lock()
	for _, n := range f.store.nodeByRoot {
		n.balance = 0
	}
	f.store.nodesLock.Unlock()

	f.votesLock.RLock()
	contributions := make(map[[32]byte]uint64)
	for vi, vote := range f.votes {
		if f.store.equivocatingIndices[vi] {
			continue
		}
		contributions[vote.Root] += f.balances[vi]
	}
	f.votesLock.RUnlock()

	f.store.nodesLock.Lock()
	for root, bal := range contributions {
		if n, ok := f.store.nodeByRoot[root]; ok {
			n.balance += bal
		}
	}
	boostRoot := f.store.proposerBoostRoot
	if boostRoot != ([32]byte{}) {
		if n, ok := f.store.nodeByRoot[boostRoot]; ok {
			n.balance += f.committeeWeight * params.BeaconConfig().ProposerScoreBoost / 100
		}
	}
	root := f.store.treeRootNode
	f.store.nodesLock.Unlock()

	if root == nil {
		return nil
	}
	f.store.nodesLock.Lock()
	defer f.store.nodesLock.Unlock()
	return root.applyWeightChanges(ctx)
}

// Head implements get_head (§4.4).
func (f *ForkChoice) Head(ctx context.Context) ([32]byte, error) {
	return f.store.head(ctx)
}

// HasNode reports whether root is known to the store.
func (f *ForkChoice) HasNode(root [32]byte) bool {
	f.store.nodesLock.RLock()
	defer f.store.nodesLock.RUnlock()
	_, ok := f.store.nodeByRoot[root]
	return ok
}

// NodeCount returns the number of blocks currently tracked.
func (f *ForkChoice) NodeCount() int {
	f.store.nodesLock.RLock()
	defer f.store.nodesLock.RUnlock()
	return len(f.store.nodeByRoot)
}

// JustifiedCheckpoint returns the store's current justified checkpoint.
func (f *ForkChoice) JustifiedCheckpoint() *fctypes.Checkpoint {
	f.store.nodesLock.RLock()
	defer f.store.nodesLock.RUnlock()
	cp := *f.store.justifiedCheckpoint
	return &cp
}

// FinalizedCheckpoint returns the store's current finalized checkpoint.
func (f *ForkChoice) FinalizedCheckpoint() *fctypes.Checkpoint {
	f.store.nodesLock.RLock()
	defer f.store.nodesLock.RUnlock()
	cp := *f.store.finalizedCheckpoint
	return &cp
}

// UnrealizedJustifiedPayloadBlockHash returns the execution payload hash of
// the node at the unrealized-justified checkpoint, used by the HTTP
// optimistic-sync flag.
func (f *ForkChoice) UnrealizedJustifiedPayloadBlockHash() [32]byte {
	f.store.nodesLock.RLock()
	defer f.store.nodesLock.RUnlock()
	n, ok := f.store.nodeByRoot[f.store.unrealizedJustifiedCheckpoint.Root]
	if !ok {
		return [32]byte{}
	}
	return n.payloadHash
}

// ProposerBoost returns the current boost root, zero if none.
func (f *ForkChoice) ProposerBoost() [32]byte {
	f.store.nodesLock.RLock()
	defer f.store.nodesLock.RUnlock()
	return f.store.proposerBoostRoot
}

// IsCanonical reports whether root descends to the current head.
func (f *ForkChoice) IsCanonical(root [32]byte) bool {
	return f.store.isCanonical(context.Background(), root)
}

// Weight returns the cumulative weight of root's subtree.
func (f *ForkChoice) Weight(root [32]byte) (uint64, error) {
	return f.store.weight(root)
}
