package gossip

import (
	"context"

	"github.com/syjn99/ream-sub001/consensus-types/blocks"
	"github.com/syjn99/ream-sub001/corestate/transition"
	"github.com/syjn99/ream-sub001/operations"
)

// VoluntaryExitValidator implements §4.5's voluntary_exit rule: first-seen
// for validator_index, and validate_voluntary_exit (process_voluntary_exit
// run with signature verification) must pass.
type VoluntaryExitValidator struct {
	chain ChainReader
	pool  *operations.ExitPool
}

// NewVoluntaryExitValidator returns a validator backed by chain and pool.
func NewVoluntaryExitValidator(chain ChainReader, pool *operations.ExitPool) *VoluntaryExitValidator {
	return &VoluntaryExitValidator{chain: chain, pool: pool}
}

// Validate applies §4.5's voluntary-exit rule to e.
func (v *VoluntaryExitValidator) Validate(ctx context.Context, e *blocks.SignedVoluntaryExit) Result {
	if v.chain == nil {
		return ResultIgnore
	}
	if v.pool.HasSeen(e.Exit.ValidatorIndex) {
		return ResultIgnore
	}
	headState, err := v.chain.HeadState(ctx)
	if err != nil {
		return ResultIgnore
	}
	cpy := headState.Copy()
	if err := transition.ProcessVoluntaryExit(cpy, e, true); err != nil {
		return ResultReject
	}
	v.pool.InsertVoluntaryExit(e)
	return ResultAccept
}
