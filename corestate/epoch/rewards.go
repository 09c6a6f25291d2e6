package epoch

import (
	"github.com/syjn99/ream-sub001/config/params"
	"github.com/syjn99/ream-sub001/consensus-types/state"
)

// baseRewardsPerEpoch mirrors the consensus spec's BASE_REWARDS_PER_EPOCH:
// one reward component each for source, target, and head votes, plus a
// fourth that this per-attestation pass does not pay out (only the three
// vote components are paid here).
const baseRewardsPerEpoch = 4

// processInactivityUpdates advances each active validator's inactivity
// score: decays toward zero outside a leak, grows during one, per the
// consensus spec's process_inactivity_updates (Altair+).
func processInactivityUpdates(st *state.BeaconState, cfg *params.BeaconChainConfig) {
	currentEpoch := st.Slot.ToEpoch()
	if currentEpoch == 0 {
		return
	}
	previousEpoch := currentEpoch.SubEpoch(1)
	leak := isInactivityLeak(st, cfg)
	for i, v := range st.Validators {
		if !v.IsActive(previousEpoch) {
			continue
		}
		if i >= len(st.InactivityScores) {
			continue
		}
		targetAttested := i < len(st.PreviousEpochParticipation) && st.PreviousEpochParticipation[i]&participationTargetFlag != 0
		if targetAttested {
			if st.InactivityScores[i] > 0 {
				st.InactivityScores[i]--
			}
		} else {
			st.InactivityScores[i] += cfg.InactivityScoreBias
		}
		if !leak && st.InactivityScores[i] > cfg.InactivityScoreRecoveryRate {
			st.InactivityScores[i] -= cfg.InactivityScoreRecoveryRate
		} else if !leak {
			st.InactivityScores[i] = 0
		}
	}
}

// processRewardsAndPenalties pays source/target/head attestation rewards
// (or applies penalties for non-participation) and an inactivity penalty
// during a finality leak, grounded on eth2030's
// processRewardsAndPenalties loop structure.
func processRewardsAndPenalties(st *state.BeaconState, cfg *params.BeaconChainConfig) {
	currentEpoch := st.Slot.ToEpoch()
	if currentEpoch == 0 {
		return
	}
	previousEpoch := currentEpoch.SubEpoch(1)
	total := totalActiveBalance(st, cfg, currentEpoch)
	sqrtTotal := isqrt(total)
	if sqrtTotal == 0 {
		return
	}
	leak := isInactivityLeak(st, cfg)
	inc := cfg.EffectiveBalanceIncrement

	sourceBalance := participationBalance(st, st.PreviousEpochParticipation, participationSourceFlag)
	targetBalance := participationBalance(st, st.PreviousEpochParticipation, participationTargetFlag)
	headBalance := participationBalance(st, st.PreviousEpochParticipation, participationHeadFlag)

	for i, v := range st.Validators {
		if !v.IsActive(previousEpoch) {
			continue
		}
		baseReward := v.EffectiveBalance * cfg.BaseRewardFactor / sqrtTotal / baseRewardsPerEpoch

		flags := byte(0)
		if i < len(st.PreviousEpochParticipation) {
			flags = st.PreviousEpochParticipation[i]
		}

		for _, comp := range []struct {
			attested bool
			weighted uint64
		}{
			{flags&participationSourceFlag != 0 && !v.Slashed, sourceBalance},
			{flags&participationTargetFlag != 0 && !v.Slashed, targetBalance},
			{flags&participationHeadFlag != 0 && !v.Slashed, headBalance},
		} {
			if comp.attested {
				if leak {
					increaseBalance(st, i, baseReward)
				} else {
					increaseBalance(st, i, baseReward*(comp.weighted/inc)/(total/inc))
				}
			} else {
				decreaseBalance(st, i, baseReward)
			}
		}

		if leak && (flags&participationTargetFlag == 0) && i < len(st.InactivityScores) {
			const inactivityPenaltyQuotient = 1 << 26
			penalty := v.EffectiveBalance * st.InactivityScores[i] / inactivityPenaltyQuotient
			decreaseBalance(st, i, penalty)
		}
	}
}
