package epoch

import (
	"github.com/syjn99/ream-sub001/config/params"
	"github.com/syjn99/ream-sub001/consensus-types/state"
)

// processJustificationAndFinalization implements Casper FFG justification
// and finalization (§4.2 epoch step 1), grounded on eth2030's
// processJustificationAndFinalization: shift the four-bit justification
// bitvector, test previous- and current-epoch supermajority links, then
// apply the four ancestor-distance finalization rules.
func processJustificationAndFinalization(st *state.BeaconState, cfg *params.BeaconChainConfig) {
	currentEpoch := st.Slot.ToEpoch()
	if currentEpoch <= 1 {
		return
	}
	previousEpoch := currentEpoch.SubEpoch(1)
	oldPreviousJustified := st.PreviousJustifiedCheckpoint
	oldCurrentJustified := st.CurrentJustifiedCheckpoint

	st.PreviousJustifiedCheckpoint = st.CurrentJustifiedCheckpoint

	bits := justificationBits(st.JustificationBits)
	for i := 3; i > 0; i-- {
		bits[i] = bits[i-1]
	}
	bits[0] = false

	total := totalActiveBalance(st, cfg, currentEpoch)

	previousTargetBalance := participationBalance(st, st.PreviousEpochParticipation, participationTargetFlag)
	if previousTargetBalance*3 >= total*2 {
		slot := previousEpoch.StartSlot()
		st.CurrentJustifiedCheckpoint = state.Checkpoint{Epoch: previousEpoch, Root: blockRootAtSlot(st, cfg, slot)}
		bits[1] = true
	}

	currentTargetBalance := participationBalance(st, st.CurrentEpochParticipation, participationTargetFlag)
	if currentTargetBalance*3 >= total*2 {
		slot := currentEpoch.StartSlot()
		st.CurrentJustifiedCheckpoint = state.Checkpoint{Epoch: currentEpoch, Root: blockRootAtSlot(st, cfg, slot)}
		bits[0] = true
	}

	switch {
	case bits[1] && bits[2] && bits[3] && oldPreviousJustified.Epoch+3 == currentEpoch:
		st.FinalizedCheckpoint = oldPreviousJustified
	case bits[1] && bits[2] && oldPreviousJustified.Epoch+2 == currentEpoch:
		st.FinalizedCheckpoint = oldPreviousJustified
	case bits[0] && bits[1] && bits[2] && oldCurrentJustified.Epoch+2 == currentEpoch:
		st.FinalizedCheckpoint = oldCurrentJustified
	case bits[0] && bits[1] && oldCurrentJustified.Epoch+1 == currentEpoch:
		st.FinalizedCheckpoint = oldCurrentJustified
	}

	st.JustificationBits = packJustificationBits(bits)
}

func justificationBits(b [1]byte) [4]bool {
	var out [4]bool
	for i := 0; i < 4; i++ {
		out[i] = b[0]&(1<<uint(i)) != 0
	}
	return out
}

func packJustificationBits(b [4]bool) [1]byte {
	var out [1]byte
	for i, v := range b {
		if v {
			out[0] |= 1 << uint(i)
		}
	}
	return out
}

// participationBalance sums the effective balance of every validator whose
// participation byte for the given epoch has flag set.
func participationBalance(st *state.BeaconState, participation []byte, flag byte) uint64 {
	var total uint64
	for i, v := range st.Validators {
		if i >= len(participation) {
			break
		}
		if participation[i]&flag != 0 {
			total += v.EffectiveBalance
		}
	}
	return total
}

func blockRootAtSlot(st *state.BeaconState, cfg *params.BeaconChainConfig, slot uint64) [32]byte {
	n := uint64(len(st.BlockRoots))
	if n == 0 {
		return [32]byte{}
	}
	return st.BlockRoots[slot%n]
}
