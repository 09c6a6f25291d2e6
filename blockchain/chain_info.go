package blockchain

import (
	"context"

	"github.com/syjn99/ream-sub001/consensus-types/blocks"
	"github.com/syjn99/ream-sub001/consensus-types/state"
)

// HeadState returns a copy of the current head's post-state. Returning a
// copy keeps callers (gossip validators, HTTP handlers) from mutating the
// service's canonical state out from under ProcessBlock (§5: readers "do
// not block writers").
func (s *Service) HeadState(ctx context.Context) (*state.BeaconState, error) {
	s.headLock.RLock()
	defer s.headLock.RUnlock()
	if s.headState == nil {
		return nil, errNoGenesisHead
	}
	return s.headState.Copy(), nil
}

// HeadRoot returns the current head block root.
func (s *Service) HeadRoot() [32]byte {
	s.headLock.RLock()
	defer s.headLock.RUnlock()
	return s.headRoot
}

// HasBlock reports whether root is stored, satisfying gossip.ChainReader.
func (s *Service) HasBlock(ctx context.Context, root [32]byte) bool {
	return s.cfg.DB.HasBlock(ctx, root)
}

// Block returns the stored block at root, satisfying gossip.ChainReader.
func (s *Service) Block(ctx context.Context, root [32]byte) (*blocks.SignedBeaconBlock, bool, error) {
	return s.cfg.DB.Block(ctx, root)
}

// FinalizedCheckpoint returns the fork-choice store's finalized checkpoint
// in the consensus-types/state shape gossip validators consume.
func (s *Service) FinalizedCheckpoint() state.Checkpoint {
	cp := s.cfg.ForkChoice.FinalizedCheckpoint()
	return state.Checkpoint{Epoch: cp.Epoch, Root: cp.Root}
}

// JustifiedCheckpoint returns the fork-choice store's justified checkpoint.
func (s *Service) JustifiedCheckpoint() state.Checkpoint {
	cp := s.cfg.ForkChoice.JustifiedCheckpoint()
	return state.Checkpoint{Epoch: cp.Epoch, Root: cp.Root}
}

// IsAncestor reports whether ancestor is an ancestor of (or equal to)
// descendant by walking parent_root links in the typed store, satisfying
// gossip.ChainReader's ancestry checks (§4.5 "target block is ancestor of
// beacon-block root", "finalized ancestor matches").
func (s *Service) IsAncestor(ctx context.Context, ancestor [32]byte, descendant [32]byte) (bool, error) {
	if ancestor == descendant {
		return true, nil
	}
	cur := descendant
	for {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		b, ok, err := s.cfg.DB.Block(ctx, cur)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
		if b.Block.ParentRoot == ancestor {
			return true, nil
		}
		if b.Block.ParentRoot == ([32]byte{}) {
			return false, nil
		}
		cur = b.Block.ParentRoot
	}
}

// Head returns the current fork-choice head root, recomputing it from the
// store rather than trusting the cached head field, the way HTTP reads
// of /eth/v1/beacon/headers want a fresh answer.
func (s *Service) Head(ctx context.Context) ([32]byte, error) {
	return s.cfg.ForkChoice.Head(ctx)
}

// IsCanonical reports whether root descends to the current head.
func (s *Service) IsCanonical(root [32]byte) bool {
	return s.cfg.ForkChoice.IsCanonical(root)
}

// NodeCount returns the number of blocks fork choice is tracking.
func (s *Service) NodeCount() int {
	return s.cfg.ForkChoice.NodeCount()
}
