package helpers

import (
	"encoding/binary"

	"github.com/pkg/errors"
	"github.com/syjn99/ream-sub001/config/params"
	"github.com/syjn99/ream-sub001/consensus-types/primitives"
	"github.com/syjn99/ream-sub001/consensus-types/state"
	"github.com/syjn99/ream-sub001/crypto/hash"
)

var errNoActiveValidators = errors.New("no active validators in epoch")

// CommitteeCount returns the number of committees active during epoch: one
// per slot at minimum, more when the active validator set is large enough
// that TARGET_COMMITTEE_SIZE bounds the per-committee size instead.
func CommitteeCount(activeValidatorCount uint64, slotsPerEpoch uint64) uint64 {
	const targetCommitteeSize = 128
	committeesPerSlot := activeValidatorCount / slotsPerEpoch / targetCommitteeSize
	if committeesPerSlot < 1 {
		committeesPerSlot = 1
	}
	const maxCommitteesPerSlot = 64
	if committeesPerSlot > maxCommitteesPerSlot {
		committeesPerSlot = maxCommitteesPerSlot
	}
	return committeesPerSlot
}

// BeaconCommittee returns the committee assigned to (slot, committeeIndex):
// a shuffled slice of active-validator indices, per the consensus spec's
// compute_committee applied to the active index set at slot's epoch.
func BeaconCommittee(st *state.BeaconState, slot primitives.Slot, committeeIndex primitives.CommitteeIndex) ([]primitives.ValidatorIndex, error) {
	cfg := params.BeaconConfig()
	epoch := slot.ToEpoch()
	active := st.ActiveValidatorIndices(epoch)
	if len(active) == 0 {
		return nil, errNoActiveValidators
	}

	committeesPerSlot := CommitteeCount(uint64(len(active)), cfg.SlotsPerEpoch)
	slotInEpoch := uint64(slot) % cfg.SlotsPerEpoch
	index := slotInEpoch*committeesPerSlot + uint64(committeeIndex)
	count := committeesPerSlot * cfg.SlotsPerEpoch

	seed := Seed(st, epoch, domainTypeBeaconAttester)
	return computeCommittee(active, seed, index, count), nil
}

// computeCommittee slices the shuffled active-index list into the `index`
// of `count` equal partitions.
func computeCommittee(active []primitives.ValidatorIndex, seed [32]byte, index, count uint64) []primitives.ValidatorIndex {
	listSize := uint64(len(active))
	start := listSize * index / count
	end := listSize * (index + 1) / count

	out := make([]primitives.ValidatorIndex, 0, end-start)
	for i := start; i < end; i++ {
		shuffled := ComputeShuffledIndex(i, listSize, seed)
		out = append(out, active[shuffled])
	}
	return out
}

// ProposerIndex returns the beacon-block proposer for state.Slot, per the
// consensus spec's get_beacon_proposer_index: a RANDAO-biased weighted
// sample over the active set using the proposer seed plus the slot.
func ProposerIndex(st *state.BeaconState) (primitives.ValidatorIndex, error) {
	cfg := params.BeaconConfig()
	epoch := st.Slot.ToEpoch()
	active := st.ActiveValidatorIndices(epoch)
	if len(active) == 0 {
		return 0, errNoActiveValidators
	}

	seedBase := Seed(st, epoch, domainTypeBeaconProposer)
	buf := make([]byte, 32+8)
	copy(buf, seedBase[:])
	binary.LittleEndian.PutUint64(buf[32:], uint64(st.Slot))
	seed := hash.Hash(buf)

	const maxEffectiveBalance = uint64(32000000000)
	const maxRandomByte = uint64(1<<8 - 1)

	listSize := uint64(len(active))
	i := uint64(0)
	for {
		shuffled := ComputeShuffledIndex(i%listSize, listSize, seed)
		candidateIndex := active[shuffled]
		randByte := randomByte(seed, i)
		effectiveBalance := st.Validators[candidateIndex].EffectiveBalance
		if effectiveBalance*maxRandomByte >= maxEffectiveBalanceOrDefault(cfg, maxEffectiveBalance)*uint64(randByte) {
			return candidateIndex, nil
		}
		i++
	}
}

func maxEffectiveBalanceOrDefault(cfg *params.BeaconChainConfig, fallback uint64) uint64 {
	if cfg != nil && cfg.MaxEffectiveBalance > 0 {
		return cfg.MaxEffectiveBalance
	}
	return fallback
}

func randomByte(seed [32]byte, i uint64) byte {
	buf := make([]byte, 32+8)
	copy(buf, seed[:])
	binary.LittleEndian.PutUint64(buf[32:], i/32)
	h := hash.Hash(buf)
	return h[i%32]
}

// CommitteeAssignment reports which committee, slot, and index a
// validator is assigned to within epoch (the lookup behind the attester
// duties of §6); the api package does not serve a duties endpoint.
func CommitteeAssignment(st *state.BeaconState, epoch primitives.Epoch, validatorIndex primitives.ValidatorIndex) (slot primitives.Slot, committeeIndex primitives.CommitteeIndex, position int, err error) {
	cfg := params.BeaconConfig()
	start := epoch.StartSlot()
	for s := uint64(start); s < uint64(start)+cfg.SlotsPerEpoch; s++ {
		active := st.ActiveValidatorIndices(epoch)
		committeesPerSlot := CommitteeCount(uint64(len(active)), cfg.SlotsPerEpoch)
		for ci := uint64(0); ci < committeesPerSlot; ci++ {
			committee, cErr := BeaconCommittee(st, primitives.Slot(s), primitives.CommitteeIndex(ci))
			if cErr != nil {
				return 0, 0, 0, cErr
			}
			for pos, idx := range committee {
				if idx == validatorIndex {
					return primitives.Slot(s), primitives.CommitteeIndex(ci), pos, nil
				}
			}
		}
	}
	return 0, 0, 0, errors.New("validator not assigned to any committee this epoch")
}
