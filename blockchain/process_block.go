package blockchain

import (
	"context"

	"github.com/pkg/errors"

	"github.com/syjn99/ream-sub001/async/event"
	"github.com/syjn99/ream-sub001/beacondb/kv"
	"github.com/syjn99/ream-sub001/config/params"
	"github.com/syjn99/ream-sub001/consensus-types/blocks"
	"github.com/syjn99/ream-sub001/consensus-types/primitives"
	"github.com/syjn99/ream-sub001/consensus-types/state"
	"github.com/syjn99/ream-sub001/corestate/transition"
	"github.com/syjn99/ream-sub001/forkchoice"
	fctypes "github.com/syjn99/ream-sub001/forkchoice/types"
)

var (
	errUnknownParent   = errors.New("blockchain: parent block unknown to the store")
	errBlockBeforeFinalized = errors.New("blockchain: block slot at or before finalized checkpoint epoch")
	errFinalizedAncestorMismatch = errors.New("blockchain: ancestor at finalized epoch does not match finalized checkpoint root")
	errFutureBlock     = errors.New("blockchain: block slot is after current slot")
)

// ProcessBlock implements on_block (§4.4 C4 handler + §4.2 C2 pipeline),
// the chain service's single entry point for importing a new block:
// pre-checks, parent-state fetch, full state transition against engine,
// durable storage, and fork-choice insertion (proposer boost, unrealized
// justification caching, checkpoint adoption). isRecent marks a
// gossip-delivered block as eligible for proposer boost; backfilled/
// synced blocks pass isRecent=false so old blocks never steal boost.
func (s *Service) ProcessBlock(ctx context.Context, signedBlock *blocks.SignedBeaconBlock, isRecent bool, receivedTime uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := signedBlock.Block
	cfg := params.BeaconConfig()

	if !s.cfg.DB.HasBlock(ctx, b.ParentRoot) {
		return errUnknownParent
	}

	finalized := s.cfg.ForkChoice.FinalizedCheckpoint()
	if uint64(b.Slot) <= uint64(finalized.Epoch)*cfg.SlotsPerEpoch && finalized.Epoch > 0 {
		return errBlockBeforeFinalized
	}
	if err := s.checkFinalizedAncestor(ctx, b.ParentRoot, finalized); err != nil {
		return err
	}
	if b.Slot > s.CurrentSlot() {
		return errFutureBlock
	}

	parentState, ok, err := s.cfg.DB.State(ctx, b.ParentRoot)
	if err != nil {
		return errors.Wrap(err, "could not load parent state")
	}
	if !ok {
		return errUnknownParent
	}

	postState, err := transition.StateTransition(ctx, parentState.Copy(), signedBlock, true, s.cfg.Engine)
	if err != nil {
		return errors.Wrap(err, "state transition failed")
	}

	root, err := kv.BlockRoot(signedBlock)
	if err != nil {
		return errors.Wrap(err, "could not compute block root")
	}

	if err := s.cfg.DB.SaveBlock(ctx, signedBlock); err != nil {
		return errors.Wrap(err, "could not save block")
	}
	if err := s.cfg.DB.SaveState(ctx, root, postState); err != nil {
		return errors.Wrap(err, "could not save post-state")
	}

	unrealizedJustified, unrealizedFinalized, err := s.simulateUnrealizedCheckpoints(ctx, postState)
	if err != nil {
		return errors.Wrap(err, "could not simulate unrealized checkpoints")
	}

	timestamp := receivedTime
	if !isRecent {
		// Backfilled/synced blocks never compete for proposer boost
		// (§9 reorg policy): give them a timestamp certain to fail
		// ForkChoice.isTimely's window check.
		timestamp = 0
	}

	var payloadHash [32]byte
	if b.Body.ExecutionPayload != nil {
		payloadHash = b.Body.ExecutionPayload.BlockHash
	}

	if err := s.cfg.ForkChoice.InsertNode(ctx, &forkchoice.BlockAndCheckpoints{
		Slot:                uint64(b.Slot),
		Root:                root,
		ParentRoot:          b.ParentRoot,
		PayloadHash:         payloadHash,
		JustifiedEpoch:      uint64(postState.CurrentJustifiedCheckpoint.Epoch),
		FinalizedEpoch:      uint64(postState.FinalizedCheckpoint.Epoch),
		UnrealizedJustified: unrealizedJustified,
		UnrealizedFinalized: unrealizedFinalized,
		Timestamp:           timestamp,
	}); err != nil {
		return errors.Wrap(err, "could not insert block into fork choice")
	}

	s.cleanOperationPools(postState)
	s.blocksProcessed.Inc()
	s.notifier.Send(event.Notification{Kind: event.BlockProcessed, Root: root, Slot: uint64(b.Slot)})

	return s.updateHead(ctx)
}

// checkFinalizedAncestor verifies that the ancestor of parentRoot at the
// finalized checkpoint's epoch is exactly the finalized root (§4.4 on_block
// pre-check 1). Genesis (epoch 0, zero root) is vacuously satisfied.
func (s *Service) checkFinalizedAncestor(ctx context.Context, parentRoot [32]byte, finalized *fctypes.Checkpoint) error {
	if finalized.Epoch == 0 && finalized.Root == ([32]byte{}) {
		return nil
	}
	isAncestor, err := s.IsAncestor(ctx, finalized.Root, parentRoot)
	if err != nil {
		return err
	}
	if !isAncestor {
		return errFinalizedAncestorMismatch
	}
	return nil
}

// simulateUnrealizedCheckpoints advances a copy of postState, slots-only,
// to the start of its next epoch, running epoch processing exactly once,
// and reports the checkpoints that boundary produces (§4.4 step 5: "cache
// unrealized_justification[root] by simulating epoch processing one step
// forward from the post-state").
func (s *Service) simulateUnrealizedCheckpoints(ctx context.Context, postState *state.BeaconState) (fctypes.Checkpoint, fctypes.Checkpoint, error) {
	cpy := postState.Copy()
	nextEpochStart := cpy.Slot.ToEpoch().AddEpoch(1).StartSlot()
	cpy, err := transition.ProcessSlots(ctx, cpy, nextEpochStart)
	if err != nil {
		return fctypes.Checkpoint{}, fctypes.Checkpoint{}, err
	}
	return fctypes.Checkpoint{Epoch: cpy.CurrentJustifiedCheckpoint.Epoch, Root: cpy.CurrentJustifiedCheckpoint.Root},
		fctypes.Checkpoint{Epoch: cpy.FinalizedCheckpoint.Epoch, Root: cpy.FinalizedCheckpoint.Root}, nil
}

// cleanOperationPools drops entries from C3's pools whose subject no
// longer needs tracking, per §4.3 "callers invoke clean(state) after each
// finalized-epoch advancement".
func (s *Service) cleanOperationPools(postState *state.BeaconState) {
	currentEpoch := postState.Slot.ToEpoch()
	withdrawableEpoch := func(idx primitives.ValidatorIndex) (primitives.Epoch, bool) {
		if int(idx) >= len(postState.Validators) {
			return 0, false
		}
		return postState.Validators[idx].WithdrawableEpoch, true
	}

	if s.cfg.ExitPool != nil {
		s.cfg.ExitPool.Clean(withdrawableEpoch, currentEpoch)
	}
	if s.cfg.SlashingPool != nil {
		s.cfg.SlashingPool.Clean(withdrawableEpoch, currentEpoch)
	}
	if s.cfg.BLSToExecPool != nil {
		s.cfg.BLSToExecPool.Clean(func(idx primitives.ValidatorIndex) bool {
			if int(idx) >= len(postState.Validators) {
				return false
			}
			return postState.Validators[idx].WithdrawalCredentials[0] != 0x00
		})
	}
}

// updateHead recomputes the fork-choice head and, if it changed, emits a
// HeadChanged (or Reorg, when the new head is not a descendant of the old
// one) notification.
func (s *Service) updateHead(ctx context.Context) error {
	prevHead := s.HeadRoot()
	newHead, err := s.cfg.ForkChoice.Head(ctx)
	if err != nil {
		return errors.Wrap(err, "could not compute new head")
	}
	if newHead == prevHead {
		return nil
	}
	headState, ok, err := s.cfg.DB.State(ctx, newHead)
	if err != nil {
		return errors.Wrap(err, "could not load new head state")
	}
	if !ok {
		return errors.New("blockchain: new head state missing from store")
	}
	isDescendant, err := s.IsAncestor(ctx, prevHead, newHead)
	if err != nil {
		return err
	}
	s.setHead(newHead, headState)
	if !isDescendant && prevHead != ([32]byte{}) {
		s.reorgsTotal.Inc()
		s.notifier.Send(event.Notification{Kind: event.Reorg, Root: newHead, Slot: uint64(headState.Slot), Reason: "new head is not a descendant of the previous head"})
	} else {
		s.notifier.Send(event.Notification{Kind: event.HeadChanged, Root: newHead, Slot: uint64(headState.Slot)})
	}
	return nil
}
