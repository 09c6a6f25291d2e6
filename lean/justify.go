package lean

import (
	"github.com/syjn99/ream-sub001/consensus-types/primitives"
	"github.com/syjn99/ream-sub001/corestate/math"
)

// IsJustifiableSlot reports whether candidate may be justified given the
// latest finalized slot: deltas of 5 or fewer are always justifiable, as
// are deltas that are a perfect square or a pronic ("oblong", x*(x+1))
// number, giving the protocol a geometric backoff so finality keeps
// progressing under high latency (§3, original_source lib.rs doc comment).
//
// REDESIGN FLAG applied (spec.md §9 Open Question b): the original float
// test `(delta as f64).sqrt().fract() == 0.0` is fragile — float sqrt of a
// large delta can round such that a true perfect square fails the fract
// check, or a non-square passes it. This replaces both float tests with
// integer equivalents from corestate/math.
func IsJustifiableSlot(finalized, candidate primitives.Slot) bool {
	if candidate < finalized {
		panic("candidate slot is less than finalized slot")
	}
	delta := uint64(candidate - finalized)
	if delta <= 5 {
		return true
	}
	return math.IsPerfectSquare(delta) || math.IsOblong(delta)
}

// ProcessBlock returns the state that results from applying block to
// preState: it extends the historical-hash/justified-slots history,
// zero-filling any gap slots, then tallies each vote's contribution
// toward justifying its target, applying the 2/3-supermajority rule and
// the finalization-follows-justification check (§3, original_source
// lib.rs process_block).
func ProcessBlock(preState *State, block *Block) (*State, error) {
	s := preState.Copy()

	s.HistoricalBlockHashes = append(s.HistoricalBlockHashes, block.ParentRoot)
	s.JustifiedSlots = append(s.JustifiedSlots, false)

	for primitives.Slot(len(s.HistoricalBlockHashes)) < block.Slot {
		s.JustifiedSlots = append(s.JustifiedSlots, false)
		s.HistoricalBlockHashes = append(s.HistoricalBlockHashes, [32]byte{})
	}

	for _, vote := range block.Votes {
		if int(vote.Source.Slot) >= len(s.JustifiedSlots) || int(vote.Target.Slot) >= len(s.HistoricalBlockHashes) {
			continue
		}
		if !s.JustifiedSlots[vote.Source.Slot] {
			continue
		}
		if vote.Source.Root != s.HistoricalBlockHashes[vote.Source.Slot] {
			continue
		}
		if vote.Target.Root != s.HistoricalBlockHashes[vote.Target.Slot] {
			continue
		}
		if vote.Target.Slot <= vote.Source.Slot {
			continue
		}
		if !IsJustifiableSlot(s.LatestFinalizedSlot, vote.Target.Slot) {
			continue
		}

		s.setJustification(vote.Target.Root, vote.ValidatorIndex)
		count := s.countJustifications(vote.Target.Root)

		if count == (2*s.Config.NumValidators)/3 {
			s.LatestJustifiedHash = vote.Target.Root
			s.LatestJustifiedSlot = vote.Target.Slot
			s.JustifiedSlots[vote.Target.Slot] = true
			s.removeJustifications(vote.Target.Root)

			if isNextValidJustifiableSlot(s.LatestFinalizedSlot, vote.Source.Slot, vote.Target.Slot) {
				s.LatestFinalizedHash = vote.Source.Root
				s.LatestFinalizedSlot = vote.Source.Slot
			}
		}
	}

	return s, nil
}

// isNextValidJustifiableSlot reports whether target is the next slot after
// source that IsJustifiableSlot admits, i.e. no justifiable slot lies
// strictly between them — the finalization condition of §3.
func isNextValidJustifiableSlot(finalized, source, target primitives.Slot) bool {
	for slot := source + 1; slot < target; slot++ {
		if IsJustifiableSlot(finalized, slot) {
			return false
		}
	}
	return true
}
