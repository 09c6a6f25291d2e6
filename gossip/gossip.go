// Package gossip implements the per-topic validation state machine (C5,
// §4.5): each exported Validate* function returns one of {Accept, Ignore,
// Reject} per a topic's testable conditions, backed by bounded LRU
// de-duplication caches (github.com/hashicorp/golang-lru, as wired in
// SPEC_FULL.md's DOMAIN STACK table — the same library prysm's
// beacon-chain/p2p/peers package uses for its own bounded caches).
// Each Validate method takes a context and the topic's decoded message
// type and returns this package's Result; none has the go-libp2p-pubsub
// validator signature, and nothing in this module registers them as
// topic validators.
package gossip

import (
	"context"

	"github.com/pkg/errors"
	"github.com/syjn99/ream-sub001/consensus-types/blocks"
	"github.com/syjn99/ream-sub001/consensus-types/primitives"
	"github.com/syjn99/ream-sub001/consensus-types/state"
)

// Result mirrors go-libp2p-pubsub's pubsub.ValidationResult three-way
// verdict (§4.5): Accept forwards and hands to the chain service, Ignore
// drops silently, Reject drops and penalizes the sender.
type Result int

const (
	ResultAccept Result = iota
	ResultIgnore
	ResultReject
)

// ChainReader is the read-only slice of the chain service (C7) and typed
// store (C1) the gossip validators consult: head state for committee/
// proposer lookups, and block/root lookups for ancestry checks. Gossip
// validators never mutate chain state directly (§5 "Gossip validation is
// parallel ... Successful validations forward to the chain service, which
// re-serializes them").
type ChainReader interface {
	HeadState(ctx context.Context) (*state.BeaconState, error)
	HasBlock(ctx context.Context, root [32]byte) bool
	Block(ctx context.Context, root [32]byte) (*blocks.SignedBeaconBlock, bool, error)
	FinalizedCheckpoint() state.Checkpoint
	CurrentSlot() primitives.Slot
	IsAncestor(ctx context.Context, ancestor [32]byte, descendant [32]byte) (bool, error)
}

var errNilChainReader = errors.New("gossip: nil chain reader")
