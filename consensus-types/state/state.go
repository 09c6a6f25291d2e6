package state

import (
	"github.com/syjn99/ream-sub001/consensus-types/primitives"
)

// Eth1Data is the most recently observed eth1 deposit-contract state, as
// voted on by block proposers.
type Eth1Data struct {
	DepositRoot  [32]byte
	DepositCount uint64
	BlockHash    [32]byte
}

// BeaconBlockHeader is the compact, bodiless header the state keeps of the
// most recently processed block, used to verify the next block's parent
// root without storing the whole body in state (§4.2 step 2).
type BeaconBlockHeader struct {
	Slot          primitives.Slot
	ProposerIndex primitives.ValidatorIndex
	ParentRoot    [32]byte
	StateRoot     [32]byte
	BodyRoot      [32]byte
}

// ExecutionPayloadHeader is the subset of the latest applied execution
// payload the beacon state tracks for the next block's continuity checks
// (§4.2 step 2: prev_randao, timestamp, parent_hash, block_hash).
type ExecutionPayloadHeader struct {
	ParentHash    [32]byte
	BlockHash     [32]byte
	PrevRandao    [32]byte
	Timestamp     uint64
	BlockNumber   uint64
	GasLimit      uint64
	GasUsed       uint64
	BaseFeePerGas [32]byte
	WithdrawalsRoot [32]byte
}

// SyncCommittee is the compact aggregate sync-committee record (§3).
type SyncCommittee struct {
	PubKeys         [][48]byte
	AggregatePubKey [48]byte
}

// PendingDeposit is an Electra-era deposit awaiting inclusion into the
// validator registry/balances via epoch processing (§4.2 "pending-deposits
// processing"), supplementing the distilled spec per SPEC_FULL.md.
type PendingDeposit struct {
	PublicKey             [48]byte
	WithdrawalCredentials [32]byte
	Amount                uint64
	Signature             [96]byte
	Slot                  primitives.Slot
}

// PendingPartialWithdrawal queues a partial withdrawal for a validator,
// processed in epoch processing.
type PendingPartialWithdrawal struct {
	ValidatorIndex    primitives.ValidatorIndex
	Amount            uint64
	WithdrawableEpoch primitives.Epoch
}

// PendingConsolidation queues a validator-to-validator balance
// consolidation, processed in epoch processing.
type PendingConsolidation struct {
	SourceIndex primitives.ValidatorIndex
	TargetIndex primitives.ValidatorIndex
}

// BeaconState is the canonical consensus-layer snapshot (§3). Individual
// field Merkleization is an SSZ-container concern (out of scope per
// spec.md §1); this struct holds the semantic fields the core packages
// operate on.
type BeaconState struct {
	Slot              primitives.Slot
	GenesisTime       uint64
	GenesisValidatorsRoot [32]byte
	Fork              ForkData

	LatestBlockHeader BeaconBlockHeader

	// Roots history, indexed modulo their respective list bound.
	BlockRoots [][32]byte
	StateRoots [][32]byte
	HistoricalRoots [][32]byte

	Eth1Data      Eth1Data
	Eth1DataVotes []Eth1Data
	Eth1DepositIndex uint64

	Validators []*Validator
	Balances   []uint64

	RandaoMixes [][32]byte

	Slashings []uint64 // per-epoch slashed-balance accumulator, ring-buffered

	PreviousEpochParticipation []byte
	CurrentEpochParticipation  []byte

	JustificationBits [1]byte // bitvector, low 4 bits meaningful
	PreviousJustifiedCheckpoint Checkpoint
	CurrentJustifiedCheckpoint  Checkpoint
	FinalizedCheckpoint         Checkpoint

	InactivityScores []uint64

	CurrentSyncCommittee *SyncCommittee
	NextSyncCommittee    *SyncCommittee

	LatestExecutionPayloadHeader ExecutionPayloadHeader

	NextWithdrawalIndex          uint64
	NextWithdrawalValidatorIndex primitives.ValidatorIndex

	// Electra-era pending queues (SPEC_FULL supplement).
	PendingDeposits           []*PendingDeposit
	PendingPartialWithdrawals []*PendingPartialWithdrawal
	PendingConsolidations     []*PendingConsolidation
	DepositBalanceToConsume   uint64
	ExitBalanceToConsume      uint64
	EarliestExitEpoch         primitives.Epoch
	ConsolidationBalanceToConsume uint64
	EarliestConsolidationEpoch   primitives.Epoch
}

// ForkData carries the two most recent fork versions and the epoch the
// fork schedule switched at.
type ForkData struct {
	PreviousVersion [4]byte
	CurrentVersion  [4]byte
	Epoch           primitives.Epoch
}

// Checkpoint mirrors forkchoice/types.Checkpoint; duplicated here (rather
// than imported) to avoid a state<->forkchoice import cycle, matching the
// teacher's proto-generated duplication of the same container across
// packages.
type Checkpoint struct {
	Epoch primitives.Epoch
	Root  [32]byte
}

// Copy returns a deep copy of the state. Every mutator in
// corestate/transition and corestate/epoch operates on a caller-owned copy
// so that a failed operation never corrupts shared state (§4.2 "Failure
// modes": state-transition failure "leaves the caller's state untouched").
func (s *BeaconState) Copy() *BeaconState {
	if s == nil {
		return nil
	}
	cpy := *s

	cpy.BlockRoots = append([][32]byte(nil), s.BlockRoots...)
	cpy.StateRoots = append([][32]byte(nil), s.StateRoots...)
	cpy.HistoricalRoots = append([][32]byte(nil), s.HistoricalRoots...)
	cpy.Eth1DataVotes = append([]Eth1Data(nil), s.Eth1DataVotes...)
	cpy.RandaoMixes = append([][32]byte(nil), s.RandaoMixes...)
	cpy.Slashings = append([]uint64(nil), s.Slashings...)
	cpy.PreviousEpochParticipation = append([]byte(nil), s.PreviousEpochParticipation...)
	cpy.CurrentEpochParticipation = append([]byte(nil), s.CurrentEpochParticipation...)
	cpy.InactivityScores = append([]uint64(nil), s.InactivityScores...)
	cpy.Balances = append([]uint64(nil), s.Balances...)

	cpy.Validators = make([]*Validator, len(s.Validators))
	for i, v := range s.Validators {
		val := *v
		cpy.Validators[i] = &val
	}

	cpy.PendingDeposits = append([]*PendingDeposit(nil), s.PendingDeposits...)
	cpy.PendingPartialWithdrawals = append([]*PendingPartialWithdrawal(nil), s.PendingPartialWithdrawals...)
	cpy.PendingConsolidations = append([]*PendingConsolidation(nil), s.PendingConsolidations...)

	if s.CurrentSyncCommittee != nil {
		sc := *s.CurrentSyncCommittee
		sc.PubKeys = append([][48]byte(nil), s.CurrentSyncCommittee.PubKeys...)
		cpy.CurrentSyncCommittee = &sc
	}
	if s.NextSyncCommittee != nil {
		sc := *s.NextSyncCommittee
		sc.PubKeys = append([][48]byte(nil), s.NextSyncCommittee.PubKeys...)
		cpy.NextSyncCommittee = &sc
	}

	return &cpy
}

// ActiveValidatorIndices returns the indices of validators active at epoch.
func (s *BeaconState) ActiveValidatorIndices(epoch primitives.Epoch) []primitives.ValidatorIndex {
	indices := make([]primitives.ValidatorIndex, 0, len(s.Validators))
	for i, v := range s.Validators {
		if v.IsActive(epoch) {
			indices = append(indices, primitives.ValidatorIndex(i))
		}
	}
	return indices
}

// TotalActiveBalance sums effective balances of validators active at the
// state's current epoch.
func (s *BeaconState) TotalActiveBalance(effectiveBalanceIncrement uint64) uint64 {
	epoch := s.Slot.ToEpoch()
	total := uint64(0)
	for _, v := range s.Validators {
		if v.IsActive(epoch) {
			total += v.EffectiveBalance
		}
	}
	if total < effectiveBalanceIncrement {
		return effectiveBalanceIncrement
	}
	return total
}
