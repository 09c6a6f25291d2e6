package gossip

import (
	"context"

	"github.com/syjn99/ream-sub001/config/params"
	"github.com/syjn99/ream-sub001/consensus-types/blocks"
	"github.com/syjn99/ream-sub001/corestate/transition"
	"github.com/syjn99/ream-sub001/operations"
)

// BLSToExecutionValidator implements §4.5's bls_to_execution_change rule:
// current epoch must be at or past the Capella fork epoch, the change
// must be first-seen for (from_public_key, validator_index), and
// process_bls_to_execution_change must pass.
type BLSToExecutionValidator struct {
	chain ChainReader
	pool  *operations.BLSToExecPool
}

// NewBLSToExecutionValidator returns a validator backed by chain and pool.
func NewBLSToExecutionValidator(chain ChainReader, pool *operations.BLSToExecPool) *BLSToExecutionValidator {
	return &BLSToExecutionValidator{chain: chain, pool: pool}
}

// Validate applies §4.5's bls-to-execution-change rule to c.
func (v *BLSToExecutionValidator) Validate(ctx context.Context, c *blocks.SignedBLSToExecutionChange) Result {
	if v.chain == nil {
		return ResultIgnore
	}
	cfg := params.BeaconConfig()
	currentEpoch := v.chain.CurrentSlot().ToEpoch()
	if currentEpoch < cfg.CapellaForkEpoch {
		return ResultIgnore
	}
	if v.pool.HasSeen(c.Change) {
		return ResultIgnore
	}
	headState, err := v.chain.HeadState(ctx)
	if err != nil {
		return ResultIgnore
	}
	cpy := headState.Copy()
	if err := transition.ProcessBLSToExecutionChange(cpy, c, true); err != nil {
		return ResultReject
	}
	v.pool.InsertBLSToExecChange(c)
	return ResultAccept
}
