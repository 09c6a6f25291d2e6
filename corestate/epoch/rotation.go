package epoch

import (
	"github.com/syjn99/ream-sub001/config/params"
	"github.com/syjn99/ream-sub001/consensus-types/primitives"
	"github.com/syjn99/ream-sub001/consensus-types/state"
)

// processParticipationFlagRotation moves the current epoch's
// participation record into "previous" and starts a fresh all-zero
// "current" record, per the consensus spec's
// process_participation_flag_updates.
func processParticipationFlagRotation(st *state.BeaconState) {
	st.PreviousEpochParticipation = st.CurrentEpochParticipation
	st.CurrentEpochParticipation = make([]byte, len(st.Validators))
}

// processSyncCommitteeRotation rotates the next sync committee into
// current at each EPOCHS_PER_SYNC_COMMITTEE_PERIOD boundary and computes
// a fresh next committee from the post-rotation active set, per §4.2's
// "sync-committee rotation (every EPOCHS_PER_SYNC_COMMITTEE_PERIOD)".
func processSyncCommitteeRotation(st *state.BeaconState, cfg *params.BeaconChainConfig) {
	if cfg.EpochsPerSyncCommitteePeriod == 0 {
		return
	}
	nextEpoch := st.Slot.ToEpoch() + 1
	if uint64(nextEpoch)%cfg.EpochsPerSyncCommitteePeriod != 0 {
		return
	}
	st.CurrentSyncCommittee = st.NextSyncCommittee
	lookaheadEpoch := nextEpoch + primitives.Epoch(cfg.EpochsPerSyncCommitteePeriod)
	st.NextSyncCommittee = computeSyncCommittee(st, cfg, lookaheadEpoch)
}

// computeSyncCommittee fills SYNC_COMMITTEE_SIZE public-key slots by
// cycling through the active set at epoch in index order (repeating
// validators when the set is smaller than the committee), the consensus
// spec's get_next_sync_committee simplified: there is no shuffling and no
// effective-balance weighting.
func computeSyncCommittee(st *state.BeaconState, cfg *params.BeaconChainConfig, epoch primitives.Epoch) *state.SyncCommittee {
	active := st.ActiveValidatorIndices(epoch)
	if len(active) == 0 {
		return &state.SyncCommittee{}
	}
	size := cfg.SyncCommitteeSize
	pubkeys := make([][48]byte, 0, size)
	for i := uint64(0); i < size; i++ {
		idx := active[i%uint64(len(active))]
		pubkeys = append(pubkeys, st.Validators[idx].PublicKey)
	}
	return &state.SyncCommittee{PubKeys: pubkeys, AggregatePubKey: xorAggregate(pubkeys)}
}

// xorAggregate stands in for a real BLS public-key aggregation (out of
// scope per spec.md §6's "trusted library" boundary on BLS aggregate):
// sufficient to give NextSyncCommittee a deterministic, content-derived
// AggregatePubKey for the store's own equality/identity purposes.
func xorAggregate(pubkeys [][48]byte) [48]byte {
	var out [48]byte
	for _, p := range pubkeys {
		for i := range out {
			out[i] ^= p[i]
		}
	}
	return out
}
