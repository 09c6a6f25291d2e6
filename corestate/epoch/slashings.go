package epoch

import (
	"github.com/syjn99/ream-sub001/config/params"
	"github.com/syjn99/ream-sub001/consensus-types/primitives"
	"github.com/syjn99/ream-sub001/consensus-types/state"
	"github.com/syjn99/ream-sub001/crypto/hash"
)

func summarize(buf []byte) [32]byte {
	return hash.Hash(buf)
}

// processSlashings applies the effective-balance-proportional slashing
// penalty to validators reaching the midpoint of their slashed-balance
// vector window, per the consensus spec's process_slashings.
func processSlashings(st *state.BeaconState, cfg *params.BeaconChainConfig) {
	currentEpoch := st.Slot.ToEpoch()
	total := totalActiveBalance(st, cfg, currentEpoch)

	var totalSlashed uint64
	for _, s := range st.Slashings {
		totalSlashed += s
	}
	const proportionalSlashingMultiplier = 1
	adjusted := totalSlashed * proportionalSlashingMultiplier
	if adjusted > total {
		adjusted = total
	}
	inc := cfg.EffectiveBalanceIncrement
	if inc == 0 || total == 0 {
		return
	}

	halfWindow := primitives.Epoch(cfg.EpochsPerSlashingsVector / 2)
	for i, v := range st.Validators {
		if v.Slashed && currentEpoch+halfWindow == v.WithdrawableEpoch {
			penalty := v.EffectiveBalance / inc * adjusted / total * inc
			decreaseBalance(st, i, penalty)
		}
	}
}

// processEth1DataReset clears the eth1-data-vote accumulator at the
// boundary of each voting period (EPOCHS_PER_ETH1_VOTING_PERIOD).
func processEth1DataReset(st *state.BeaconState) {
	const epochsPerEth1VotingPeriod = 64
	currentEpoch := st.Slot.ToEpoch()
	if (uint64(currentEpoch)+1)%epochsPerEth1VotingPeriod == 0 {
		st.Eth1DataVotes = nil
	}
}

// processEffectiveBalanceUpdates rounds each validator's balance down to
// the effective-balance grid, applying hysteresis so effective balance
// only moves down when the balance falls more than a quarter increment
// below it, or up when the balance exceeds it by more than five quarters
// of an increment, per the consensus spec's process_effective_balance_updates.
func processEffectiveBalanceUpdates(st *state.BeaconState, cfg *params.BeaconChainConfig) {
	const hysteresisQuotient = 4
	const hysteresisDownwardMultiplier = 1
	const hysteresisUpwardMultiplier = 5
	inc := cfg.EffectiveBalanceIncrement
	if inc == 0 {
		return
	}
	downward := inc * hysteresisDownwardMultiplier / hysteresisQuotient
	upward := inc * hysteresisUpwardMultiplier / hysteresisQuotient

	for i, v := range st.Validators {
		balance := st.Balances[i]
		if balance+downward < v.EffectiveBalance || v.EffectiveBalance+upward < balance {
			newEffective := balance - balance%inc
			if newEffective > cfg.MaxEffectiveBalance {
				newEffective = cfg.MaxEffectiveBalance
			}
			v.EffectiveBalance = newEffective
		}
	}
}

// processSlashingsReset zeroes the slashings-vector entry for the next epoch,
// so the EPOCHS_PER_SLASHINGS_VECTOR ring buffer never retains stale data.
func processSlashingsReset(st *state.BeaconState) {
	n := len(st.Slashings)
	if n == 0 {
		return
	}
	nextEpoch := st.Slot.ToEpoch() + 1
	st.Slashings[uint64(nextEpoch)%uint64(n)] = 0
}

// processRandaoMixesReset carries the current epoch's RANDAO mix forward
// into the slot for the mix EPOCHS_PER_HISTORICAL_VECTOR epochs ahead, so
// future-epoch seed derivation always has a value to read.
func processRandaoMixesReset(st *state.BeaconState, cfg *params.BeaconChainConfig) {
	n := len(st.RandaoMixes)
	if n == 0 {
		return
	}
	currentEpoch := st.Slot.ToEpoch()
	nextEpoch := currentEpoch + 1
	cur := st.RandaoMixes[uint64(currentEpoch)%uint64(n)]
	st.RandaoMixes[uint64(nextEpoch)%uint64(n)] = cur
}

// processHistoricalRootsUpdate appends a historical-roots summary every
// SLOTS_PER_HISTORICAL_ROOT/SLOTS_PER_EPOCH epochs, per §4.2 epoch step.
func processHistoricalRootsUpdate(st *state.BeaconState, cfg *params.BeaconChainConfig) {
	if cfg.SlotsPerEpoch == 0 {
		return
	}
	period := cfg.SlotsPerHistoricalRoot / cfg.SlotsPerEpoch
	if period == 0 {
		return
	}
	nextEpoch := st.Slot.ToEpoch() + 1
	if uint64(nextEpoch)%period == 0 {
		var buf []byte
		for _, r := range st.BlockRoots {
			buf = append(buf, r[:]...)
		}
		for _, r := range st.StateRoots {
			buf = append(buf, r[:]...)
		}
		st.HistoricalRoots = append(st.HistoricalRoots, summarize(buf))
	}
}
