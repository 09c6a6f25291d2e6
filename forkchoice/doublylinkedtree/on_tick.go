package doublylinkedtree

import (
	"context"

	"github.com/syjn99/ream-sub001/config/params"
	"github.com/syjn99/ream-sub001/consensus-types/primitives"
)

// SetGenesisTime installs the genesis time used to convert on_tick's wall
// clock into a slot number. Called once at construction by the chain
// service.
func (f *ForkChoice) SetGenesisTime(t uint64) {
	f.store.nodesLock.Lock()
	defer f.store.nodesLock.Unlock()
	f.store.genesisTime = t
	f.store.genesisTimeSet = true
}

// OnTick implements on_tick (§4.4): advance current_slot; on a new slot,
// clear the proposer-boost root (§9 reorg policy, §8 "Proposer boost
// decay"); on crossing an epoch boundary, pull up the unrealized
// justification/finalization checkpoints into the canonical ones (§4.4
// step, tested by "Reorg after unrealized finality pull-up", §8 scenario 6).
// A tick that does not advance time is a no-op (§5 "on_tick is monotonic").
func (f *ForkChoice) OnTick(ctx context.Context, newSlotTime uint64) error {
	f.store.nodesLock.Lock()
	defer f.store.nodesLock.Unlock()

	if !f.store.genesisTimeSet || newSlotTime < f.store.genesisTime {
		return errInvalidTimestamp
	}

	newSlot := primitives.Slot((newSlotTime - f.store.genesisTime) / params.BeaconConfig().SecondsPerSlot)
	if newSlot <= f.store.currentSlot && f.store.currentSlot != 0 {
		return nil
	}
	prevSlot := f.store.currentSlot
	f.store.currentSlot = newSlot

	if newSlot > prevSlot {
		f.store.previousProposerBoostRoot = f.store.proposerBoostRoot
		f.store.proposerBoostRoot = [32]byte{}
	}

	prevEpoch := prevSlot.ToEpoch()
	newEpoch := newSlot.ToEpoch()
	if newEpoch > prevEpoch {
		if f.store.unrealizedJustifiedCheckpoint.Epoch > f.store.justifiedCheckpoint.Epoch {
			cp := *f.store.unrealizedJustifiedCheckpoint
			f.store.justifiedCheckpoint = &cp
		}
		if f.store.unrealizedFinalizedCheckpoint.Epoch > f.store.finalizedCheckpoint.Epoch {
			cp := *f.store.unrealizedFinalizedCheckpoint
			f.store.finalizedCheckpoint = &cp
		}
	}

	return nil
}
