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

// AttestationValidator implements the single_attestation gossip rule of
// §4.5: committee/subnet bounds, slot/epoch freshness, attester
// committee membership, signature, known/ancestor block checks, and
// per-(subnet, target_epoch, attester_index) de-duplication.
type AttestationValidator struct {
	chain ChainReader
	seen  *seenCache
}

// NewAttestationValidator returns a validator backed by chain.
func NewAttestationValidator(chain ChainReader) *AttestationValidator {
	return &AttestationValidator{chain: chain, seen: newSeenCache()}
}

// ComputeSubnetForAttestation implements §4.5's
// compute_subnet_for_attestation(committees_per_slot, slot, index).
func ComputeSubnetForAttestation(committeesPerSlot uint64, slot primitives.Slot, index primitives.CommitteeIndex) uint64 {
	const attestationSubnetCount = 64
	slotsSinceEpochStart := uint64(slot) % params.BeaconConfig().SlotsPerEpoch
	committeesSinceEpochStart := committeesPerSlot * slotsSinceEpochStart
	return (committeesSinceEpochStart + uint64(index)) % attestationSubnetCount
}

type subnetTargetAttesterKey struct {
	subnet   uint64
	target   primitives.Epoch
	attester primitives.ValidatorIndex
}

// Validate applies §4.5's single-attestation rule to sa.
func (v *AttestationValidator) Validate(ctx context.Context, sa *blocks.SingleAttestation) Result {
	if v.chain == nil {
		return ResultIgnore
	}
	data := sa.Data
	current := v.chain.CurrentSlot()
	if data.Slot > current {
		return ResultIgnore
	}
	currentEpoch := current.ToEpoch()
	if data.Target.Epoch != currentEpoch && data.Target.Epoch != currentEpoch.SubEpoch(1) {
		return ResultReject
	}
	if data.Target.Epoch != data.Slot.ToEpoch() {
		return ResultReject
	}
	if !v.chain.HasBlock(ctx, data.BeaconBlockRoot) {
		return ResultIgnore
	}
	isAncestor, err := v.chain.IsAncestor(ctx, data.Target.Root, data.BeaconBlockRoot)
	if err != nil || !isAncestor {
		return ResultReject
	}
	finalized := v.chain.FinalizedCheckpoint()
	finalizedAncestor, err := v.chain.IsAncestor(ctx, finalized.Root, data.BeaconBlockRoot)
	if err != nil || !finalizedAncestor {
		return ResultReject
	}

	headState, err := v.chain.HeadState(ctx)
	if err != nil {
		return ResultIgnore
	}
	committee, err := helpers.BeaconCommittee(headState, data.Slot, sa.CommitteeIndex)
	if err != nil {
		return ResultReject
	}
	inCommittee := false
	for _, idx := range committee {
		if idx == sa.AttesterIndex {
			inCommittee = true
			break
		}
	}
	if !inCommittee {
		return ResultReject
	}

	cfg := params.BeaconConfig()
	committeesPerSlot := helpers.CommitteeCount(uint64(len(headState.ActiveValidatorIndices(data.Target.Epoch))), cfg.SlotsPerEpoch)
	subnet := ComputeSubnetForAttestation(committeesPerSlot, data.Slot, sa.CommitteeIndex)

	key := subnetTargetAttesterKey{subnet: subnet, target: data.Target.Epoch, attester: sa.AttesterIndex}
	if v.seen.Has(key) {
		return ResultIgnore
	}

	pub, err := bls.PublicKeyFromBytes(headState.Validators[sa.AttesterIndex].PublicKey[:])
	if err != nil {
		return ResultReject
	}
	sig, err := bls.SignatureFromBytes(sa.Signature[:])
	if err != nil {
		return ResultReject
	}
	domain := helpers.ComputeDomain(0x01000000, headState.Fork.CurrentVersion, headState.GenesisValidatorsRoot)
	root := hash.HashStruct(data)
	signingRoot := helpers.SigningRoot(root, domain)
	if !sig.Verify(pub, signingRoot[:]) {
		return ResultReject
	}

	v.seen.AddIfNew(key)
	return ResultAccept
}
