// Package transition implements the state-transition pipeline (C2, §4.2):
// deterministic slot and block processing driving a BeaconState forward,
// calling the external execution engine's NewPayload once for each block
// that carries an execution payload when an engine is configured; nothing
// in this package calls ForkchoiceUpdated. Grounded on eth2030's
// pkg/core/state_transition.go structure (slot loop, then per-block
// operation dispatch) and on prysm's corresponding core/transition
// package name and shape as referenced by operations/* pool tests.
package transition

import (
	"context"

	"github.com/syjn99/ream-sub001/consensus-types/blocks"
)

// NewPayloadRequest is the argument state transition passes to the engine's
// NewPayload call: the execution payload plus the versioned-hash list (for
// blob commitments) and the Electra execution requests (§4.2 step 2(b)).
type NewPayloadRequest struct {
	Payload         *blocks.ExecutionPayload
	VersionedHashes [][32]byte
	ParentBeaconBlockRoot [32]byte
	ExecutionRequests *blocks.ExecutionRequests
}

// PayloadStatus is the execution engine's verdict on a NewPayload call.
type PayloadStatus int

const (
	PayloadValid PayloadStatus = iota
	PayloadInvalid
	PayloadSyncing
)

// ForkchoiceUpdatedRequest carries the head/safe/finalized hashes the
// engine needs to update its own local fork-choice view. Block import
// does not send it; no caller in this module calls ForkchoiceUpdated.
type ForkchoiceUpdatedRequest struct {
	HeadBlockHash      [32]byte
	SafeBlockHash      [32]byte
	FinalizedBlockHash [32]byte
}

// Engine is the external execution-layer collaborator state transition
// treats as a trusted dependency (§1 "out of scope... specified only by
// the interface the core consumes").
type Engine interface {
	NewPayload(ctx context.Context, req *NewPayloadRequest) (PayloadStatus, error)
	ForkchoiceUpdated(ctx context.Context, req *ForkchoiceUpdatedRequest) error
}
