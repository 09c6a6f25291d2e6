package blockchain

import (
	"context"

	"github.com/syjn99/ream-sub001/consensus-types/primitives"
	"github.com/syjn99/ream-sub001/crypto/hash"
)

// Status is the payload of the status/1 request/response protocol (§4.6):
// a single-chunk exchange of the peer's view of the chain's digest and
// finalized/head checkpoints, exchanged once per connection and used to
// decide whether a peer is worth syncing from.
type Status struct {
	ForkDigest     [4]byte
	FinalizedRoot  [32]byte
	FinalizedEpoch primitives.Epoch
	HeadRoot       [32]byte
	HeadSlot       primitives.Slot
}

// BuildStatusRequest composes this node's current Status (§4.7): reads
// the finalized checkpoint, best-effort reads the head (falling back to
// the finalized root if Head errors, e.g. before any block has been
// imported), reads that block's slot, and returns the result.
func (s *Service) BuildStatusRequest(ctx context.Context) (*Status, error) {
	finalized := s.FinalizedCheckpoint()

	headRoot, err := s.Head(ctx)
	if err != nil {
		headRoot = finalized.Root
	}

	var headSlot primitives.Slot
	if b, ok, err := s.cfg.DB.Block(ctx, headRoot); err == nil && ok {
		headSlot = b.Block.Slot
	}

	return &Status{
		ForkDigest:     s.forkDigest(),
		FinalizedRoot:  finalized.Root,
		FinalizedEpoch: finalized.Epoch,
		HeadRoot:       headRoot,
		HeadSlot:       headSlot,
	}, nil
}

// forkDigest derives a short fork identifier from the current fork
// version and genesis validators root, the same two inputs compute_fork_digest
// combines upstream; here a truncated hash stands in for the real
// domain-separated digest computation (§9: SSZ/digest details are out of
// scope, see DESIGN.md).
func (s *Service) forkDigest() [4]byte {
	s.headLock.RLock()
	defer s.headLock.RUnlock()
	var version [4]byte
	if s.headState != nil {
		version = s.headState.Fork.CurrentVersion
	}
	digest := hash.Hash(append(version[:], s.genesisValidatorsRoot[:]...))
	var out [4]byte
	copy(out[:], digest[:4])
	return out
}
