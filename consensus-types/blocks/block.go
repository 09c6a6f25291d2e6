// Package blocks defines the beacon block and its constituent operations
// (§3). As with consensus-types/state, SSZ container framing is an
// external concern (spec.md §1); these are the semantic fields the gossip
// validator, state transition, and fork-choice store read.
package blocks

import (
	"github.com/syjn99/ream-sub001/consensus-types/primitives"
	"github.com/syjn99/ream-sub001/consensus-types/state"
)

// SignedBeaconBlock pairs a BeaconBlock with its proposer signature.
type SignedBeaconBlock struct {
	Block     *BeaconBlock
	Signature [96]byte
}

// BeaconBlock carries slot, proposer, parent/state roots and a body (§3).
type BeaconBlock struct {
	Slot          primitives.Slot
	ProposerIndex primitives.ValidatorIndex
	ParentRoot    [32]byte
	StateRoot     [32]byte
	Body          *BeaconBlockBody
}

// BeaconBlockBody is the operation-bearing part of a block (§3).
type BeaconBlockBody struct {
	RandaoReveal [96]byte
	Eth1Data     state.Eth1Data
	Graffiti     [32]byte

	ProposerSlashings []*ProposerSlashing
	AttesterSlashings []*AttesterSlashing
	Attestations      []*Attestation
	Deposits          []*Deposit
	VoluntaryExits    []*SignedVoluntaryExit

	SyncAggregate *SyncAggregate

	ExecutionPayload *ExecutionPayload

	BLSToExecutionChanges []*SignedBLSToExecutionChange
	BlobKZGCommitments    [][48]byte

	ExecutionRequests *ExecutionRequests
}

// ExecutionPayload is the execution-layer block embedded in a beacon
// block body. Field shape supplemented from original_source's Electra
// container per SPEC_FULL.md.
type ExecutionPayload struct {
	ParentHash    [32]byte
	FeeRecipient  [20]byte
	StateRoot     [32]byte
	ReceiptsRoot  [32]byte
	LogsBloom     [256]byte
	PrevRandao    [32]byte
	BlockNumber   uint64
	GasLimit      uint64
	GasUsed       uint64
	Timestamp     uint64
	ExtraData     []byte
	BaseFeePerGas [32]byte
	BlockHash     [32]byte
	Transactions  [][]byte
	Withdrawals   []*Withdrawal
	BlobGasUsed   uint64
	ExcessBlobGas uint64
}

// Withdrawal is one entry of an execution payload's withdrawal list.
type Withdrawal struct {
	Index          uint64
	ValidatorIndex primitives.ValidatorIndex
	Address        [20]byte
	Amount         uint64
}

// ExecutionRequests carries the Electra execution-layer-triggered request
// queues (deposits, withdrawals, consolidations) a block's execution
// payload produced, per SPEC_FULL.md's Electra supplement.
type ExecutionRequests struct {
	Deposits       []*DepositRequest
	Withdrawals    []*WithdrawalRequest
	Consolidations []*ConsolidationRequest
}

// DepositRequest is an execution-layer-triggered deposit.
type DepositRequest struct {
	PublicKey             [48]byte
	WithdrawalCredentials [32]byte
	Amount                uint64
	Signature             [96]byte
	Index                 uint64
}

// WithdrawalRequest is an execution-layer-triggered withdrawal.
type WithdrawalRequest struct {
	SourceAddress   [20]byte
	ValidatorPubKey [48]byte
	Amount          uint64
}

// ConsolidationRequest is an execution-layer-triggered consolidation.
type ConsolidationRequest struct {
	SourceAddress [20]byte
	SourcePubKey  [48]byte
	TargetPubKey  [48]byte
}
