// Package lean implements the experimental "lean" consensus client's
// minimal chain state and LMD-GHOST fork choice (§1, §3, §9). It is a
// self-contained supplement to the main beacon-chain core: spec.md names
// the lean client as in-scope but the distillation gives it no
// operations, so this package is built directly from
// original_source/crates/common/consensus/lean and
// original_source/crates/common/chain/lean (the ream Rust client this
// spec was distilled from), re-expressed in the teacher's Go idiom rather
// than transliterated.
package lean

import (
	"github.com/pkg/errors"
	"github.com/syjn99/ream-sub001/consensus-types/primitives"
)

// Config is the lean chain's minimal network configuration (§3).
type Config struct {
	NumValidators uint64
	GenesisTime   uint64
}

// Checkpoint is a (slot, hash) pair in the lean chain's minimal block DAG.
// Unlike the main chain's epoch-based checkpoint, the lean chain justifies
// and finalizes individual slots.
type Checkpoint struct {
	Slot primitives.Slot
	Root [32]byte
}

// Vote is a validator's attestation in the lean protocol: a head vote plus
// the source/target checkpoints it is trying to justify.
type Vote struct {
	ValidatorIndex primitives.ValidatorIndex
	Slot           primitives.Slot
	Head           Checkpoint
	Target         Checkpoint
	Source         Checkpoint
}

// SignedVote pairs a Vote with its signature. The signature scheme itself
// (ream uses a post-quantum hash-based signature) is out of this module's
// scope, same trust boundary as BLS in crypto/bls.
type SignedVote struct {
	Data      Vote
	Signature []byte
}

// Block is the lean chain's minimal block: just enough to chain and vote
// on, no execution payload or operation lists.
type Block struct {
	Slot          primitives.Slot
	ProposerIndex primitives.ValidatorIndex
	ParentRoot    [32]byte
	BodyRoot      [32]byte
	Votes         []Vote
}

// State is the lean chain's minimal state (§3): historical block hashes,
// a justified-slots bitlist, the latest justified/finalized checkpoint,
// and an in-progress justification vote tally keyed by candidate root.
type State struct {
	Config Config

	HistoricalBlockHashes []([32]byte)
	JustifiedSlots        []bool

	LatestJustifiedHash [32]byte
	LatestJustifiedSlot primitives.Slot
	LatestFinalizedHash [32]byte
	LatestFinalizedSlot primitives.Slot

	// justifications tracks, per candidate target root, which validators
	// have voted to justify it so far (cleared once a root justifies).
	justifications map[[32]byte]map[primitives.ValidatorIndex]bool
}

// NewGenesisState returns the lean chain's state at slot 0.
func NewGenesisState(cfg Config) *State {
	return &State{
		Config:                cfg,
		HistoricalBlockHashes: []([32]byte){},
		JustifiedSlots:        []bool{},
		justifications:        make(map[[32]byte]map[primitives.ValidatorIndex]bool),
	}
}

func (s *State) initializeJustificationsFor(root [32]byte) {
	if s.justifications == nil {
		s.justifications = make(map[[32]byte]map[primitives.ValidatorIndex]bool)
	}
	if _, ok := s.justifications[root]; !ok {
		s.justifications[root] = make(map[primitives.ValidatorIndex]bool)
	}
}

func (s *State) setJustification(root [32]byte, validator primitives.ValidatorIndex) {
	s.initializeJustificationsFor(root)
	s.justifications[root][validator] = true
}

func (s *State) countJustifications(root [32]byte) uint64 {
	return uint64(len(s.justifications[root]))
}

func (s *State) removeJustifications(root [32]byte) {
	delete(s.justifications, root)
}

// Copy returns a deep copy, matching the caller-owns-state discipline of
// corestate/transition's BeaconState.Copy.
func (s *State) Copy() *State {
	cpy := &State{
		Config:                s.Config,
		HistoricalBlockHashes: append([][32]byte(nil), s.HistoricalBlockHashes...),
		JustifiedSlots:        append([]bool(nil), s.JustifiedSlots...),
		LatestJustifiedHash:   s.LatestJustifiedHash,
		LatestJustifiedSlot:   s.LatestJustifiedSlot,
		LatestFinalizedHash:   s.LatestFinalizedHash,
		LatestFinalizedSlot:   s.LatestFinalizedSlot,
		justifications:        make(map[[32]byte]map[primitives.ValidatorIndex]bool, len(s.justifications)),
	}
	for root, votes := range s.justifications {
		cp := make(map[primitives.ValidatorIndex]bool, len(votes))
		for k, v := range votes {
			cp[k] = v
		}
		cpy.justifications[root] = cp
	}
	return cpy
}

var errVoteSlotOutOfRange = errors.New("vote references a slot beyond known history")
