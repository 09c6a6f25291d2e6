// Package types holds the small value types the fork-choice store and its
// handlers pass around, kept separate from the doublylinkedtree package so
// callers (blockchain, gossip) can depend on them without pulling in the
// store implementation.
package types

import "github.com/syjn99/ream-sub001/consensus-types/primitives"

// Checkpoint is a (epoch, block root) pair marking a justification or
// finalization boundary.
type Checkpoint struct {
	Epoch primitives.Epoch
	Root  [32]byte
}

// Equal reports whether c and other designate the same checkpoint.
func (c *Checkpoint) Equal(other *Checkpoint) bool {
	if c == nil || other == nil {
		return c == other
	}
	return c.Epoch == other.Epoch && c.Root == other.Root
}

// VoteIntent is one validator's current LMD-GHOST vote: the highest target
// epoch it has attested to, and the beacon-block root it attested for. It
// corresponds to a single entry of the fork-choice store's latest_messages.
type VoteIntent struct {
	ValidatorIndex primitives.ValidatorIndex
	TargetEpoch    primitives.Epoch
	Root           [32]byte
}
