package gossip

import (
	"context"

	"github.com/syjn99/ream-sub001/config/params"
	"github.com/syjn99/ream-sub001/consensus-types/blocks"
	"github.com/syjn99/ream-sub001/consensus-types/primitives"
	"github.com/syjn99/ream-sub001/corestate/helpers"
	"github.com/syjn99/ream-sub001/crypto/bls"
	"github.com/syjn99/ream-sub001/crypto/hash"
)

// BlockValidator implements the beacon_block gossip rule of §4.5: slot
// bounds with clock-disparity allowance, known parent, proposer-shuffling
// match, proposer signature, and a one-block-per-(slot,proposer)
// de-duplication cache.
type BlockValidator struct {
	chain ChainReader
	seen  *seenCache // keyed by (slot, proposerIndex)
}

// NewBlockValidator returns a validator backed by chain for head-state
// reads.
func NewBlockValidator(chain ChainReader) *BlockValidator {
	return &BlockValidator{chain: chain, seen: newSeenCache()}
}

type slotProposerKey struct {
	slot     primitives.Slot
	proposer primitives.ValidatorIndex
}

// Validate applies §4.5's beacon-block rule to signedBlock.
func (v *BlockValidator) Validate(ctx context.Context, signedBlock *blocks.SignedBeaconBlock) Result {
	if v.chain == nil {
		return ResultIgnore
	}
	b := signedBlock.Block
	cfg := params.BeaconConfig()
	current := v.chain.CurrentSlot()

	disparitySlots := primitives.Slot(cfg.MaximumGossipClockDisparity / (cfg.SecondsPerSlot * 1000))
	if b.Slot > current+disparitySlots+1 {
		return ResultIgnore // future slot beyond clock disparity
	}
	finalized := v.chain.FinalizedCheckpoint()
	if b.Slot <= finalized.Epoch.StartSlot() && finalized.Epoch > 0 {
		return ResultIgnore // before finalized checkpoint
	}
	if !v.chain.HasBlock(ctx, b.ParentRoot) {
		return ResultIgnore // unknown parent, gossip layer queues on parent_root
	}

	key := slotProposerKey{slot: b.Slot, proposer: b.ProposerIndex}
	if v.seen.Has(key) {
		return ResultIgnore // duplicate for (slot, proposer)
	}

	headState, err := v.chain.HeadState(ctx)
	if err != nil {
		return ResultIgnore
	}
	expected, err := helpers.ProposerIndex(headState)
	if err != nil || expected != b.ProposerIndex {
		return ResultReject
	}

	if int(b.ProposerIndex) >= len(headState.Validators) {
		return ResultReject
	}
	proposer := headState.Validators[b.ProposerIndex]
	pub, err := bls.PublicKeyFromBytes(proposer.PublicKey[:])
	if err != nil {
		return ResultReject
	}
	sig, err := bls.SignatureFromBytes(signedBlock.Signature[:])
	if err != nil {
		return ResultReject
	}
	domain := helpers.ComputeDomain(0x00000000, headState.Fork.CurrentVersion, headState.GenesisValidatorsRoot)
	root := hash.HashStruct(b)
	signingRoot := helpers.SigningRoot(root, domain)
	if !sig.Verify(pub, signingRoot[:]) {
		return ResultReject
	}

	v.seen.AddIfNew(key)
	return ResultAccept
}
