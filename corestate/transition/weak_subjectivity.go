package transition

import (
	"github.com/pkg/errors"
	"github.com/syjn99/ream-sub001/consensus-types/primitives"
	"github.com/syjn99/ream-sub001/consensus-types/state"
)

// ErrStaleCheckpoint is returned by VerifyWeakSubjectivity when a supplied
// checkpoint-sync state is too old relative to the current slot to be
// safely trusted without an independent finality source.
var ErrStaleCheckpoint = errors.New("weak subjectivity checkpoint state is too old to sync from safely")

// WeakSubjectivityPeriod computes, per the consensus spec's
// compute_weak_subjectivity_period, how many epochs a checkpoint sync's
// trusted state remains safe to build on. The result depends only on the
// active validator count (divided by ChurnLimitQuotient, scaled by the
// safety decay, added to MinValidatorWithdrawabilityDelay); balances are
// not read, and the cfg's SlotsPerEpoch and EffectiveBalanceIncrement
// fields are unused.
func WeakSubjectivityPeriod(st *state.BeaconState, cfg struct {
	SlotsPerEpoch                    uint64
	MinValidatorWithdrawabilityDelay uint64
	ChurnLimitQuotient                uint64
	EffectiveBalanceIncrement          uint64
}) primitives.Epoch {
	activeCount := uint64(len(st.ActiveValidatorIndices(st.Slot.ToEpoch())))
	if activeCount == 0 {
		return primitives.Epoch(cfg.MinValidatorWithdrawabilityDelay)
	}
	const safetyDecay = 10 // percent, SAFETY_DECAY constant of the weak-subjectivity spec
	period := cfg.MinValidatorWithdrawabilityDelay + (activeCount/cfg.ChurnLimitQuotient)*(100+safetyDecay)/(2*100)
	return primitives.Epoch(period)
}

// VerifyWeakSubjectivity checks that a checkpoint-synced state's epoch is
// within WeakSubjectivityPeriod of currentSlot's epoch, the §4.2
// "weak-subjectivity check" for a checkpoint-synced state. The chain
// service does not call it; running it before Start is the caller's job.
func VerifyWeakSubjectivity(st *state.BeaconState, currentSlot primitives.Slot, wsPeriod primitives.Epoch) error {
	currentEpoch := currentSlot.ToEpoch()
	stateEpoch := st.Slot.ToEpoch()
	if currentEpoch > stateEpoch && uint64(currentEpoch-stateEpoch) > uint64(wsPeriod) {
		return ErrStaleCheckpoint
	}
	return nil
}
