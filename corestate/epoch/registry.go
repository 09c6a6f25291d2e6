package epoch

import (
	"github.com/syjn99/ream-sub001/config/params"
	"github.com/syjn99/ream-sub001/consensus-types/primitives"
	"github.com/syjn99/ream-sub001/consensus-types/state"
	"github.com/syjn99/ream-sub001/corestate/helpers"
)

// processRegistryUpdates handles activation-eligibility marking, ejection
// of under-balance validators, and churn-limited activation of eligible
// validators, per the consensus spec's process_registry_updates,
// following eth2030's processRegistryUpdates two-pass structure.
func processRegistryUpdates(st *state.BeaconState, cfg *params.BeaconChainConfig) {
	currentEpoch := st.Slot.ToEpoch()

	for _, v := range st.Validators {
		if v.ActivationEligibilityEpoch == state.FarFutureEpoch && v.EffectiveBalance >= cfg.MaxEffectiveBalance {
			v.ActivationEligibilityEpoch = currentEpoch + 1
		}
		if v.IsActive(currentEpoch) && v.EffectiveBalance <= cfg.EjectionBalance && v.ExitEpoch == state.FarFutureEpoch {
			ejectValidator(st, v, cfg, currentEpoch)
		}
	}

	activeCount := uint64(len(st.ActiveValidatorIndices(currentEpoch)))
	churn := helpers.ChurnLimit(activeCount, cfg.ChurnLimitQuotient, cfg.MinPerEpochChurnLimit)
	var activated uint64
	for _, v := range st.Validators {
		if activated >= churn {
			break
		}
		if helpers.IsEligibleForActivation(v, st.FinalizedCheckpoint.Epoch) {
			v.ActivationEpoch = currentEpoch + 1 + primitives.Epoch(cfg.MaxSeedLookahead)
			activated++
		}
	}
}

func ejectValidator(st *state.BeaconState, v *state.Validator, cfg *params.BeaconChainConfig, currentEpoch primitives.Epoch) {
	exitEpoch := exitQueueEpoch(st, cfg, currentEpoch)
	v.ExitEpoch = exitEpoch
	v.WithdrawableEpoch = exitEpoch + primitives.Epoch(cfg.MinValidatorWithdrawabilityDelay)
}

// exitQueueEpoch returns the earliest epoch an exit initiated now may
// take effect, respecting the per-epoch exit churn limit (consensus
// spec's compute_exit_epoch_and_update_churn, simplified to the
// pre-Electra queue-epoch form since balance-weighted churn is an
// Electra refinement this module's scope does not need bit-exact).
func exitQueueEpoch(st *state.BeaconState, cfg *params.BeaconChainConfig, currentEpoch primitives.Epoch) primitives.Epoch {
	maxExit := currentEpoch + primitives.Epoch(cfg.MaxSeedLookahead)
	counts := map[primitives.Epoch]uint64{}
	for _, v := range st.Validators {
		if v.ExitEpoch != state.FarFutureEpoch {
			counts[v.ExitEpoch]++
			if v.ExitEpoch > maxExit {
				maxExit = v.ExitEpoch
			}
		}
	}
	activeCount := uint64(len(st.ActiveValidatorIndices(currentEpoch)))
	churn := helpers.ChurnLimit(activeCount, cfg.ChurnLimitQuotient, cfg.MinPerEpochChurnLimit)
	if counts[maxExit] >= churn {
		maxExit++
	}
	return maxExit
}
