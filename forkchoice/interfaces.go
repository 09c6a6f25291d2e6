// Package forkchoice defines the handler contract (§4.4) that every
// fork-choice store implementation must satisfy. The doublylinkedtree
// sub-package is the one implementation this module ships; protoarray
// (the teacher's older generation, see DESIGN.md Open Question a) is not
// reimplemented here.
package forkchoice

import (
	"context"

	fctypes "github.com/syjn99/ream-sub001/forkchoice/types"
)

// BlockAndCheckpoints is the minimal information on_block needs about a
// block beyond its root: its slot, parent, payload hash, and the
// justified/finalized checkpoints implied by its post-state. Building this
// from a processed block and post-state is the caller's (blockchain.Service)
// job; the fork-choice store only ever sees already-validated input.
type BlockAndCheckpoints struct {
	Slot                 uint64
	Root                 [32]byte
	ParentRoot           [32]byte
	PayloadHash          [32]byte
	JustifiedEpoch       uint64
	UnrealizedJustified  fctypes.Checkpoint
	UnrealizedFinalized  fctypes.Checkpoint
	FinalizedEpoch       uint64
	Timestamp            uint64
}

// ForkChoicer is the handler contract of §4.4: on_tick, on_block,
// on_attestation, on_attester_slashing, get_head, plus the read accessors
// the chain service and HTTP layer need.
type ForkChoicer interface {
	// Mutators.
	InsertNode(ctx context.Context, state *BlockAndCheckpoints) error
	OnTick(ctx context.Context, newSlotTime uint64) error
	ProcessAttestation(ctx context.Context, validatorIndices []uint64, blockRoot [32]byte, targetEpoch uint64)
	InsertSlashedIndex(ctx context.Context, index uint64)

	// Read accessors.
	Head(ctx context.Context) ([32]byte, error)
	HasNode(root [32]byte) bool
	JustifiedCheckpoint() *fctypes.Checkpoint
	FinalizedCheckpoint() *fctypes.Checkpoint
	UnrealizedJustifiedPayloadBlockHash() [32]byte
	ProposerBoost() [32]byte
	IsCanonical(root [32]byte) bool
	Weight(root [32]byte) (uint64, error)
	NodeCount() int
}
