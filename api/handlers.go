package api

import (
	"context"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/syjn99/ream-sub001/consensus-types/primitives"
	"github.com/syjn99/ream-sub001/consensus-types/state"
)

// handleNodeIdentity implements /eth/v1/node/identity. Transport (ENR,
// multiaddrs) is out of this package's scope (§1's "HTTP handler shells"
// boundary) so only the peer-agnostic fields are populated.
func (s *Server) handleNodeIdentity(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"peer_id":             "",
		"p2p_addresses":       []string{},
		"discovery_addresses": []string{},
	}, false)
}

// handleNodeVersion implements /eth/v1/node/version.
func (s *Server) handleNodeVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.Version}, false)
}

// handleNodeSyncing implements /eth/v1/node/syncing: head_slot,
// sync_distance (target minus head), is_syncing, is_optimistic.
func (s *Server) handleNodeSyncing(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	headRoot, err := s.Chain.Head(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not compute head")
		return
	}
	headSlot := primitives.Slot(0)
	if b, ok, err := s.DB.Block(ctx, headRoot); err == nil && ok {
		headSlot = b.Block.Slot
	}
	current := s.Chain.CurrentSlot()
	distance := uint64(0)
	if current > headSlot {
		distance = uint64(current - headSlot)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"head_slot":      strconv.FormatUint(uint64(headSlot), 10),
		"sync_distance":  strconv.FormatUint(distance, 10),
		"is_syncing":     distance > 1,
		"is_optimistic":  false,
	}, false)
}

// handleBlockHeader implements /eth/v1/beacon/headers/{block_id}.
func (s *Server) handleBlockHeader(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["block_id"]
	root, err := s.resolveBlockID(ctx, id)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	b, ok, err := s.DB.Block(ctx, root)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "block not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"root":      hex.EncodeToString(root[:]),
		"canonical": s.Chain.IsCanonical(root),
		"header": map[string]interface{}{
			"message": map[string]interface{}{
				"slot":           strconv.FormatUint(uint64(b.Block.Slot), 10),
				"proposer_index": strconv.FormatUint(uint64(b.Block.ProposerIndex), 10),
				"parent_root":    hex.EncodeToString(b.Block.ParentRoot[:]),
				"state_root":     hex.EncodeToString(b.Block.StateRoot[:]),
			},
			"signature": hex.EncodeToString(b.Signature[:]),
		},
	}, false)
}

// handleFinalityCheckpoints implements
// /eth/v1/beacon/states/{state_id}/finality_checkpoints.
func (s *Server) handleFinalityCheckpoints(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["state_id"]
	st, err := s.resolveState(ctx, id)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	if st == nil {
		writeError(w, http.StatusNotFound, "state not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"previous_justified": map[string]interface{}{
			"epoch": strconv.FormatUint(uint64(st.PreviousJustifiedCheckpoint.Epoch), 10),
			"root":  hex.EncodeToString(st.PreviousJustifiedCheckpoint.Root[:]),
		},
		"current_justified": map[string]interface{}{
			"epoch": strconv.FormatUint(uint64(st.CurrentJustifiedCheckpoint.Epoch), 10),
			"root":  hex.EncodeToString(st.CurrentJustifiedCheckpoint.Root[:]),
		},
		"finalized": map[string]interface{}{
			"epoch": strconv.FormatUint(uint64(st.FinalizedCheckpoint.Epoch), 10),
			"root":  hex.EncodeToString(st.FinalizedCheckpoint.Root[:]),
		},
	}, true)
}

// resolveBlockID implements §6's ID grammar: {head, genesis, finalized,
// justified, decimal slot, 0x-hex 32-byte root}.
func (s *Server) resolveBlockID(ctx context.Context, id string) ([32]byte, error) {
	switch id {
	case "head":
		return s.Chain.Head(ctx)
	case "genesis":
		root, ok, err := s.DB.GenesisRoot(ctx)
		if err != nil {
			return [32]byte{}, err
		}
		if !ok {
			return [32]byte{}, errBadRequest("genesis not set")
		}
		return root, nil
	case "finalized":
		return s.Chain.FinalizedCheckpoint().Root, nil
	case "justified":
		return s.Chain.JustifiedCheckpoint().Root, nil
	}
	if strings.HasPrefix(id, "0x") {
		raw, err := hex.DecodeString(strings.TrimPrefix(id, "0x"))
		if err != nil || len(raw) != 32 {
			return [32]byte{}, errBadRequest("invalid block root")
		}
		var root [32]byte
		copy(root[:], raw)
		return root, nil
	}
	slot, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return [32]byte{}, errBadRequest("invalid block_id")
	}
	root, ok, err := s.DB.BlockRootBySlot(ctx, slot)
	if err != nil {
		return [32]byte{}, err
	}
	if !ok {
		return [32]byte{}, errBadRequest("no block at slot")
	}
	return root, nil
}

// resolveState resolves a state_id to a BeaconState, returning (nil, nil)
// for a well-formed ID with no matching state (mapped to 404 by the
// caller).
func (s *Server) resolveState(ctx context.Context, id string) (*state.BeaconState, error) {
	root, err := s.resolveBlockID(ctx, id)
	if err != nil {
		return nil, err
	}
	st, ok, err := s.DB.State(ctx, root)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return st, nil
}

type badRequestError string

func (e badRequestError) Error() string { return string(e) }

func errBadRequest(msg string) error { return badRequestError(msg) }

// statusFor maps a resolveBlockID/resolveState error to §7's HTTP status
// classification: malformed or unresolvable IDs are client error (400),
// anything else is a store failure (500).
func statusFor(err error) int {
	if _, ok := err.(badRequestError); ok {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
