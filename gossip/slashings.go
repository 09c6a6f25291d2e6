package gossip

import (
	"context"

	"github.com/syjn99/ream-sub001/consensus-types/blocks"
	"github.com/syjn99/ream-sub001/corestate/transition"
	"github.com/syjn99/ream-sub001/operations"
)

// AttesterSlashingValidator implements §4.5's attester_slashing rule: the
// intersection of the two attesting-index sets must contain at least one
// index not already seen in a prior processed slashing, and
// process_attester_slashing must pass on head state.
type AttesterSlashingValidator struct {
	chain ChainReader
	pool  *operations.SlashingPool
}

// NewAttesterSlashingValidator returns a validator backed by chain and pool.
func NewAttesterSlashingValidator(chain ChainReader, pool *operations.SlashingPool) *AttesterSlashingValidator {
	return &AttesterSlashingValidator{chain: chain, pool: pool}
}

// Validate applies §4.5's attester-slashing rule to s.
func (v *AttesterSlashingValidator) Validate(ctx context.Context, s *blocks.AttesterSlashing) Result {
	if v.chain == nil {
		return ResultIgnore
	}
	headState, err := v.chain.HeadState(ctx)
	if err != nil {
		return ResultIgnore
	}
	cpy := headState.Copy()
	if err := transition.ProcessAttesterSlashing(cpy, s); err != nil {
		return ResultReject
	}
	if !v.pool.InsertAttesterSlashing(s) {
		return ResultIgnore
	}
	return ResultAccept
}

// ProposerSlashingValidator implements §4.5's proposer_slashing rule: the
// proposer must not have been previously slashed via this mechanism, and
// process_proposer_slashing must pass on head state.
type ProposerSlashingValidator struct {
	chain ChainReader
	pool  *operations.SlashingPool
}

// NewProposerSlashingValidator returns a validator backed by chain and pool.
func NewProposerSlashingValidator(chain ChainReader, pool *operations.SlashingPool) *ProposerSlashingValidator {
	return &ProposerSlashingValidator{chain: chain, pool: pool}
}

// Validate applies §4.5's proposer-slashing rule to s.
func (v *ProposerSlashingValidator) Validate(ctx context.Context, s *blocks.ProposerSlashing) Result {
	if v.chain == nil {
		return ResultIgnore
	}
	headState, err := v.chain.HeadState(ctx)
	if err != nil {
		return ResultIgnore
	}
	cpy := headState.Copy()
	if err := transition.ProcessProposerSlashing(cpy, s, true); err != nil {
		return ResultReject
	}
	proposerIndex := s.Header1.Header.ProposerIndex
	if !v.pool.InsertProposerSlashing(proposerIndex, s) {
		return ResultIgnore
	}
	return ResultAccept
}

