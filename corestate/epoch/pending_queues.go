package epoch

import (
	"github.com/syjn99/ream-sub001/config/params"
	"github.com/syjn99/ream-sub001/consensus-types/primitives"
	"github.com/syjn99/ream-sub001/consensus-types/state"
)

// processPendingDeposits drains the Electra pending-deposits queue into
// the validator registry/balances, respecting the per-epoch deposit
// churn (DepositBalanceToConsume), per SPEC_FULL.md's Electra supplement
// to §4.2's epoch-processing step list (original_source's
// crates/common/consensus/beacon/src/electra process_pending_deposits).
func processPendingDeposits(st *state.BeaconState, cfg *params.BeaconChainConfig) {
	currentEpoch := st.Slot.ToEpoch()
	availableChurn := depositChurnLimit(st, cfg) + st.DepositBalanceToConsume

	var processed int
	for _, d := range st.PendingDeposits {
		if availableChurn < cfg.MinDepositAmount {
			break
		}
		if d.Amount > availableChurn {
			break
		}
		idx, found := validatorIndexByPubkey(st, d.PublicKey)
		if !found {
			idx = registerNewValidator(st, d, currentEpoch)
		}
		st.Balances[idx] += d.Amount
		availableChurn -= d.Amount
		processed++
	}
	st.PendingDeposits = st.PendingDeposits[processed:]
	st.DepositBalanceToConsume = availableChurn
}

func depositChurnLimit(st *state.BeaconState, cfg *params.BeaconChainConfig) uint64 {
	currentEpoch := st.Slot.ToEpoch()
	activeCount := uint64(len(st.ActiveValidatorIndices(currentEpoch)))
	limit := activeCount / cfg.ChurnLimitQuotient
	if limit < cfg.MinPerEpochChurnLimit {
		limit = cfg.MinPerEpochChurnLimit
	}
	return limit * cfg.EffectiveBalanceIncrement
}

func validatorIndexByPubkey(st *state.BeaconState, pub [48]byte) (int, bool) {
	for i, v := range st.Validators {
		if v.PublicKey == pub {
			return i, true
		}
	}
	return 0, false
}

func registerNewValidator(st *state.BeaconState, d *state.PendingDeposit, currentEpoch primitives.Epoch) int {
	st.Validators = append(st.Validators, &state.Validator{
		PublicKey:                  d.PublicKey,
		WithdrawalCredentials:      d.WithdrawalCredentials,
		EffectiveBalance:           0,
		ActivationEligibilityEpoch: state.FarFutureEpoch,
		ActivationEpoch:            state.FarFutureEpoch,
		ExitEpoch:                  state.FarFutureEpoch,
		WithdrawableEpoch:          state.FarFutureEpoch,
	})
	st.Balances = append(st.Balances, 0)
	st.InactivityScores = append(st.InactivityScores, 0)
	if len(st.PreviousEpochParticipation) > 0 {
		st.PreviousEpochParticipation = append(st.PreviousEpochParticipation, 0)
	}
	if len(st.CurrentEpochParticipation) > 0 {
		st.CurrentEpochParticipation = append(st.CurrentEpochParticipation, 0)
	}
	return len(st.Validators) - 1
}

// processPendingConsolidations applies queued validator-to-validator
// balance consolidations in queue order, stopping at the first source
// that is not yet withdrawable: the source's balance above
// MIN_DEPOSIT_AMOUNT moves to the target. The source's exit and
// withdrawable epochs are not changed here.
func processPendingConsolidations(st *state.BeaconState, cfg *params.BeaconChainConfig) {
	currentEpoch := st.Slot.ToEpoch()
	var processed int
	for _, c := range st.PendingConsolidations {
		src := st.Validators[c.SourceIndex]
		if src.WithdrawableEpoch > currentEpoch {
			break
		}
		movable := uint64(0)
		if st.Balances[c.SourceIndex] > cfg.MinDepositAmount {
			movable = st.Balances[c.SourceIndex] - cfg.MinDepositAmount
		}
		st.Balances[c.SourceIndex] -= movable
		st.Balances[c.TargetIndex] += movable
		processed++
	}
	st.PendingConsolidations = st.PendingConsolidations[processed:]
}
