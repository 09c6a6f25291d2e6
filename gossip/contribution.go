package gossip

import (
	"context"

	"github.com/syjn99/ream-sub001/consensus-types/blocks"
	"github.com/syjn99/ream-sub001/consensus-types/primitives"
	"github.com/syjn99/ream-sub001/corestate/helpers"
	"github.com/syjn99/ream-sub001/crypto/bls"
	"github.com/syjn99/ream-sub001/crypto/hash"
)

// ContributionValidator implements §4.5's sync_contribution_and_proof
// rule in part: slot equals current, subcommittee index in range,
// contribution non-empty, first-seen for both (slot, root, subcommittee)
// and (aggregator, slot, subcommittee), and the selection-proof and outer
// signatures verify. It does not check that the selection proof selects an
// aggregator, that the aggregator belongs to the subcommittee, or that the
// contribution's aggregate signature verifies.
type ContributionValidator struct {
	chain      ChainReader
	seenByRoot *seenCache
	seenByAgg  *seenCache
}

// NewContributionValidator returns a validator backed by chain.
func NewContributionValidator(chain ChainReader) *ContributionValidator {
	return &ContributionValidator{chain: chain, seenByRoot: newSeenCache(), seenByAgg: newSeenCache()}
}

type slotRootSubcommitteeKey struct {
	slot          primitives.Slot
	root          [32]byte
	subcommittee  uint64
}

type aggregatorSlotSubcommitteeKey struct {
	aggregator    primitives.ValidatorIndex
	slot          primitives.Slot
	subcommittee  uint64
}

const syncCommitteeSubnetCount = 4

// Validate applies §4.5's contribution-and-proof rule to scp.
func (v *ContributionValidator) Validate(ctx context.Context, scp *blocks.SignedContributionAndProof) Result {
	if v.chain == nil {
		return ResultIgnore
	}
	contribution := scp.Message.Contribution
	if contribution.Slot != v.chain.CurrentSlot() {
		return ResultIgnore
	}
	if contribution.SubcommitteeIndex >= syncCommitteeSubnetCount {
		return ResultReject
	}
	if contribution.AggregationBits.Count() == 0 {
		return ResultReject
	}

	rootKey := slotRootSubcommitteeKey{slot: contribution.Slot, root: contribution.BeaconBlockRoot, subcommittee: contribution.SubcommitteeIndex}
	aggKey := aggregatorSlotSubcommitteeKey{aggregator: scp.Message.AggregatorIndex, slot: contribution.Slot, subcommittee: contribution.SubcommitteeIndex}
	if v.seenByRoot.Has(rootKey) || v.seenByAgg.Has(aggKey) {
		return ResultIgnore
	}

	headState, err := v.chain.HeadState(ctx)
	if err != nil {
		return ResultIgnore
	}
	if int(scp.Message.AggregatorIndex) >= len(headState.Validators) {
		return ResultReject
	}
	pub, err := bls.PublicKeyFromBytes(headState.Validators[scp.Message.AggregatorIndex].PublicKey[:])
	if err != nil {
		return ResultReject
	}

	selectionSig, err := bls.SignatureFromBytes(scp.Message.SelectionProof[:])
	if err != nil {
		return ResultReject
	}
	selectionDomain := helpers.ComputeDomain(0x08000000, headState.Fork.CurrentVersion, headState.GenesisValidatorsRoot)
	selectionRoot := hash.HashStruct(contribution.Slot)
	selectionSigningRoot := helpers.SigningRoot(selectionRoot, selectionDomain)
	if !selectionSig.Verify(pub, selectionSigningRoot[:]) {
		return ResultReject
	}

	outerSig, err := bls.SignatureFromBytes(scp.Signature[:])
	if err != nil {
		return ResultReject
	}
	outerDomain := helpers.ComputeDomain(0x09000000, headState.Fork.CurrentVersion, headState.GenesisValidatorsRoot)
	outerRoot := hash.HashStruct(scp.Message)
	outerSigningRoot := helpers.SigningRoot(outerRoot, outerDomain)
	if !outerSig.Verify(pub, outerSigningRoot[:]) {
		return ResultReject
	}

	v.seenByRoot.AddIfNew(rootKey)
	v.seenByAgg.AddIfNew(aggKey)
	return ResultAccept
}
