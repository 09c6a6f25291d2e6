package blockchain

import (
	"context"

	"github.com/pkg/errors"

	"github.com/syjn99/ream-sub001/config/params"
	"github.com/syjn99/ream-sub001/consensus-types/primitives"
)

// ProcessTick implements on_tick (§4.4): advance the fork-choice store's
// wall-clock view and the service's own currentSlot cache, then
// recompute head since proposer-boost expiry or a new slot's arrival can
// change it even with no new block.
func (s *Service) ProcessTick(ctx context.Context, currentSlotTime uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.cfg.ForkChoice.OnTick(ctx, currentSlotTime); err != nil {
		return errors.Wrap(err, "on_tick failed")
	}

	cfg := params.BeaconConfig()
	if currentSlotTime >= s.genesisTime {
		elapsed := currentSlotTime - s.genesisTime
		newSlot := primitives.Slot(elapsed / cfg.SecondsPerSlot)
		s.slotLock.Lock()
		s.currentSlot = newSlot
		s.slotLock.Unlock()
	}

	return s.updateHead(ctx)
}
