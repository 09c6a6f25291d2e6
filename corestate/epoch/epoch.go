// Package epoch implements the epoch-boundary state transition (§4.2
// "Epoch processing"): the fixed fourteen-step sequence run every
// SLOTS_PER_EPOCH slots. Grounded on eth2030's
// pkg/consensus/epoch_processor.go (ProcessEpochTransition's ordered
// dispatch of processJustificationAndFinalization /
// processRewardsAndPenalties / processRegistryUpdates / ... through
// processParticipationRotation), reworked onto this module's BeaconState
// and extended with the Electra pending-queue steps SPEC_FULL.md adds.
package epoch

import (
	"github.com/syjn99/ream-sub001/config/params"
	"github.com/syjn99/ream-sub001/consensus-types/primitives"
	"github.com/syjn99/ream-sub001/consensus-types/state"
	"github.com/syjn99/ream-sub001/corestate/math"
)

// ProcessEpoch runs the fixed sequence of §4.2: justification and
// finalization, inactivity updates, reward/penalty deltas, registry
// updates, slashings, eth1-data reset, effective-balance updates,
// slashings-vector reset, RANDAO-mix carryover, historical-roots append,
// participation-flag rotation, sync-committee rotation, pending-deposits
// processing, pending-consolidations processing.
func ProcessEpoch(st *state.BeaconState) error {
	cfg := params.BeaconConfig()

	processJustificationAndFinalization(st, cfg)
	processInactivityUpdates(st, cfg)
	processRewardsAndPenalties(st, cfg)
	processRegistryUpdates(st, cfg)
	processSlashings(st, cfg)
	processEth1DataReset(st)
	processEffectiveBalanceUpdates(st, cfg)
	processSlashingsReset(st)
	processRandaoMixesReset(st, cfg)
	processHistoricalRootsUpdate(st, cfg)
	processParticipationFlagRotation(st)
	processSyncCommitteeRotation(st, cfg)
	processPendingDeposits(st, cfg)
	processPendingConsolidations(st, cfg)

	return nil
}

// totalActiveBalance sums effective balances of validators active during
// epoch, floored at EFFECTIVE_BALANCE_INCREMENT to avoid a division by
// zero downstream (consensus spec's get_total_active_balance).
func totalActiveBalance(st *state.BeaconState, cfg *params.BeaconChainConfig, epoch primitives.Epoch) uint64 {
	total := uint64(0)
	for _, v := range st.Validators {
		if v.IsActive(epoch) {
			total += v.EffectiveBalance
		}
	}
	if total < cfg.EffectiveBalanceIncrement {
		return cfg.EffectiveBalanceIncrement
	}
	return total
}

// finalityDelay returns how many epochs have elapsed since the previous
// epoch's finalized checkpoint, the inactivity-leak trigger (§4.2: "Tie-
// breaks and numeric policies follow the consensus specification").
func finalityDelay(st *state.BeaconState) uint64 {
	currentEpoch := st.Slot.ToEpoch()
	prevEpoch := currentEpoch.SubEpoch(1)
	if uint64(prevEpoch) < uint64(st.FinalizedCheckpoint.Epoch) {
		return 0
	}
	return uint64(prevEpoch) - uint64(st.FinalizedCheckpoint.Epoch)
}

func isInactivityLeak(st *state.BeaconState, cfg *params.BeaconChainConfig) bool {
	return finalityDelay(st) > cfg.MinEpochsToInactivityPenalty
}

func decreaseBalance(st *state.BeaconState, idx int, delta uint64) {
	if st.Balances[idx] >= delta {
		st.Balances[idx] -= delta
	} else {
		st.Balances[idx] = 0
	}
}

func increaseBalance(st *state.BeaconState, idx int, delta uint64) {
	st.Balances[idx] += delta
}

// isqrt exposes corestate/math.ISqrt under this package's naming for the
// reward-computation base value (§9 Open Question (b) applies the same
// integer-only discipline here that it requires of lean.IsJustifiableSlot).
func isqrt(n uint64) uint64 { return math.ISqrt(n) }
