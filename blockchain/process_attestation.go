package blockchain

import (
	"context"

	"github.com/pkg/errors"

	"github.com/syjn99/ream-sub001/consensus-types/blocks"
	"github.com/syjn99/ream-sub001/consensus-types/primitives"
)

// ProcessAttestation implements on_attestation (§4.4): validate the
// attestation is for a known, non-future target and block, then forward
// every attesting index's vote to the fork-choice store. isFromBlock
// marks attestations carried inside a processed block (already covered
// by state transition's signature checks) versus gossip attestations
// (already checked by the C5 validator before reaching here); either way
// on_attestation itself does not re-verify signatures.
func (s *Service) ProcessAttestation(ctx context.Context, indexed *blocks.IndexedAttestation, isFromBlock bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data := indexed.Data
	if !s.cfg.DB.HasBlock(ctx, data.BeaconBlockRoot) {
		return errors.New("blockchain: attestation beacon block root unknown")
	}
	if data.Target.Epoch > s.CurrentSlot().ToEpoch() {
		return errors.New("blockchain: attestation target epoch is in the future")
	}
	isAncestor, err := s.IsAncestor(ctx, data.Target.Root, data.BeaconBlockRoot)
	if err != nil {
		return err
	}
	if !isAncestor {
		return errors.New("blockchain: attestation target is not an ancestor of its beacon block root")
	}

	indices := make([]uint64, len(indexed.AttestingIndices))
	for i, idx := range indexed.AttestingIndices {
		indices[i] = uint64(idx)
	}
	s.cfg.ForkChoice.ProcessAttestation(ctx, indices, data.BeaconBlockRoot, uint64(data.Target.Epoch))
	return nil
}

// ProcessAttesterSlashing implements on_attester_slashing (§4.4): any
// index present in both halves of an attester slashing's attesting-index
// sets is barred from future fork-choice votes.
func (s *Service) ProcessAttesterSlashing(ctx context.Context, slashing *blocks.AttesterSlashing) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set1 := make(map[primitives.ValidatorIndex]bool, len(slashing.Attestation1.AttestingIndices))
	for _, idx := range slashing.Attestation1.AttestingIndices {
		set1[idx] = true
	}
	for _, idx := range slashing.Attestation2.AttestingIndices {
		if set1[idx] {
			s.cfg.ForkChoice.InsertSlashedIndex(ctx, uint64(idx))
		}
	}
}
