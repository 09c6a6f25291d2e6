package gossip

import (
	"context"

	"github.com/syjn99/ream-sub001/consensus-types/blocks"
	"github.com/syjn99/ream-sub001/consensus-types/primitives"
	"github.com/syjn99/ream-sub001/corestate/helpers"
	"github.com/syjn99/ream-sub001/crypto/bls"
	"github.com/syjn99/ream-sub001/crypto/hash"
)

// SyncCommitteeValidator implements §4.5's sync_committee_message rule:
// slot equals current, subnet is one the validator is assigned to, first
// message for (subnet, slot, validator), and a valid signature.
type SyncCommitteeValidator struct {
	chain ChainReader
	seen  *seenCache
}

// NewSyncCommitteeValidator returns a validator backed by chain.
func NewSyncCommitteeValidator(chain ChainReader) *SyncCommitteeValidator {
	return &SyncCommitteeValidator{chain: chain, seen: newSeenCache()}
}

type subnetSlotValidatorKey struct {
	subnet    uint64
	slot      primitives.Slot
	validator primitives.ValidatorIndex
}

// Validate applies §4.5's sync-committee-message rule to msg for the
// given subnet (the caller resolves subnet assignment from the local
// validator's sync-committee membership before calling this).
func (v *SyncCommitteeValidator) Validate(ctx context.Context, msg *blocks.SyncCommitteeMessage, subnet uint64) Result {
	if v.chain == nil {
		return ResultIgnore
	}
	if msg.Slot != v.chain.CurrentSlot() {
		return ResultIgnore
	}
	key := subnetSlotValidatorKey{subnet: subnet, slot: msg.Slot, validator: msg.ValidatorIndex}
	if v.seen.Has(key) {
		return ResultIgnore
	}
	headState, err := v.chain.HeadState(ctx)
	if err != nil {
		return ResultIgnore
	}
	if int(msg.ValidatorIndex) >= len(headState.Validators) {
		return ResultReject
	}
	pub, err := bls.PublicKeyFromBytes(headState.Validators[msg.ValidatorIndex].PublicKey[:])
	if err != nil {
		return ResultReject
	}
	sig, err := bls.SignatureFromBytes(msg.Signature[:])
	if err != nil {
		return ResultReject
	}
	domain := helpers.ComputeDomain(0x07000000, headState.Fork.CurrentVersion, headState.GenesisValidatorsRoot)
	root := hash.HashStruct(msg.BeaconBlockRoot)
	signingRoot := helpers.SigningRoot(root, domain)
	if !sig.Verify(pub, signingRoot[:]) {
		return ResultReject
	}
	v.seen.AddIfNew(key)
	return ResultAccept
}
