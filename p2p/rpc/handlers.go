package rpc

import (
	"bytes"
	"context"
	"encoding/gob"
	"sync/atomic"

	"github.com/libp2p/go-libp2p-core/network"
	"github.com/pkg/errors"

	"github.com/syjn99/ream-sub001/beacondb/kv"
	"github.com/syjn99/ream-sub001/blockchain"
	"github.com/syjn99/ream-sub001/p2p/encoder"
)

// Handlers wires the protocol-ID table of §4.6 to this node's chain
// service and typed store. cmd/beacon-node does not construct or register
// one.
type Handlers struct {
	Chain *blockchain.Service
	DB    *kv.Store

	// seqNumber backs both ping/1 and metadata/2. Nothing in this package
	// increments it (ENR sequence tracking is out of scope here), so both
	// report its zero value, which is enough to exercise the wire format.
	seqNumber atomic.Uint64
}

// NewHandlers returns Handlers bound to chain and db.
func NewHandlers(chain *blockchain.Service, db *kv.Store) *Handlers {
	return &Handlers{Chain: chain, DB: db}
}

// Register installs the status, goodbye, ping, metadata,
// beacon_blocks_by_range and beacon_blocks_by_root handlers on d. The
// blob_sidecars_by_range and blob_sidecars_by_root protocol IDs have no
// handler.
func (h *Handlers) Register(d *Dispatcher) {
	d.RegisterHandler(ProtocolStatus, h.Status)
	d.RegisterHandler(ProtocolGoodbye, h.Goodbye)
	d.RegisterHandler(ProtocolPing, h.Ping)
	d.RegisterHandler(ProtocolMetadata, h.Metadata)
	d.RegisterHandler(ProtocolBeaconBlocksByRange, h.BeaconBlocksByRange)
	d.RegisterHandler(ProtocolBeaconBlocksByRoot, h.BeaconBlocksByRoot)
}

// Status implements status/1: decode the peer's status (unused beyond
// framing here; peer-state bookkeeping is C8's job), then reply with
// this node's own single-chunk status.
func (h *Handlers) Status(ctx context.Context, stream network.Stream) error {
	if _, err := encoder.DecodeRequest(stream); err != nil {
		return errors.Wrap(err, "could not decode status request")
	}
	status, err := h.Chain.BuildStatusRequest(ctx)
	if err != nil {
		return errors.Wrap(err, "could not build status")
	}
	payload, err := gobEncode(StatusPayload{
		ForkDigest:     status.ForkDigest,
		FinalizedRoot:  status.FinalizedRoot,
		FinalizedEpoch: uint64(status.FinalizedEpoch),
		HeadRoot:       status.HeadRoot,
		HeadSlot:       uint64(status.HeadSlot),
	})
	if err != nil {
		return err
	}
	_, err = encoder.EncodeResponseChunk(stream, encoder.CodeSuccess, nil, payload)
	return err
}

// Goodbye implements goodbye/1: decode the peer's reason (logged only)
// and close the connection; §4.6 specifies no response chunk.
func (h *Handlers) Goodbye(ctx context.Context, stream network.Stream) error {
	raw, err := encoder.DecodeRequest(stream)
	if err != nil {
		return errors.Wrap(err, "could not decode goodbye request")
	}
	var reason GoodbyeReason
	if err := gobDecode(raw, &reason); err != nil {
		return err
	}
	log.WithField("reason", reason).Debug("received goodbye")
	return nil
}

// Ping implements ping/1: reply with this node's current metadata
// sequence number.
func (h *Handlers) Ping(ctx context.Context, stream network.Stream) error {
	if _, err := encoder.DecodeRequest(stream); err != nil {
		return errors.Wrap(err, "could not decode ping request")
	}
	payload, err := gobEncode(PingPayload{SeqNumber: h.seqNumber.Load()})
	if err != nil {
		return err
	}
	_, err = encoder.EncodeResponseChunk(stream, encoder.CodeSuccess, nil, payload)
	return err
}

// Metadata implements metadata/2: no request body, reply with the
// node's seq_number and subnet bitvectors (left zero-valued: subnet
// subscription bookkeeping lives in the gossip layer, out of this
// package's scope).
func (h *Handlers) Metadata(ctx context.Context, stream network.Stream) error {
	payload, err := gobEncode(MetadataPayload{SeqNumber: h.seqNumber.Load()})
	if err != nil {
		return err
	}
	_, err = encoder.EncodeResponseChunk(stream, encoder.CodeSuccess, nil, payload)
	return err
}

// BeaconBlocksByRange implements beacon_blocks_by_range/2: streams at
// most count blocks by ascending slot starting at start_slot, one chunk
// per block, skipping empty slots.
func (h *Handlers) BeaconBlocksByRange(ctx context.Context, stream network.Stream) error {
	raw, err := encoder.DecodeRequest(stream)
	if err != nil {
		return errors.Wrap(err, "could not decode beacon_blocks_by_range request")
	}
	var req BeaconBlocksByRangeRequest
	if err := gobDecode(raw, &req); err != nil {
		return err
	}
	if req.Step == 0 {
		req.Step = 1
	}
	for i := uint64(0); i < req.Count; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		slot := req.StartSlot + i*req.Step
		root, ok, err := h.DB.BlockRootBySlot(ctx, slot)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		b, ok, err := h.DB.Block(ctx, root)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		payload, err := gobEncode(b)
		if err != nil {
			return err
		}
		if _, err := encoder.EncodeResponseChunk(stream, encoder.CodeSuccess, h.forkDigestContext, payload); err != nil {
			return err
		}
	}
	return nil
}

// BeaconBlocksByRoot implements beacon_blocks_by_root/2: streams the
// blocks matching up to maxBeaconBlocksByRootRoots requested roots, in
// request order, skipping unknown roots.
func (h *Handlers) BeaconBlocksByRoot(ctx context.Context, stream network.Stream) error {
	raw, err := encoder.DecodeRequest(stream)
	if err != nil {
		return errors.Wrap(err, "could not decode beacon_blocks_by_root request")
	}
	var req BeaconBlocksByRootRequest
	if err := gobDecode(raw, &req); err != nil {
		return err
	}
	if len(req.Roots) > maxBeaconBlocksByRootRoots {
		req.Roots = req.Roots[:maxBeaconBlocksByRootRoots]
	}
	for _, root := range req.Roots {
		if err := ctx.Err(); err != nil {
			return err
		}
		b, ok, err := h.DB.Block(ctx, root)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		payload, err := gobEncode(b)
		if err != nil {
			return err
		}
		if _, err := encoder.EncodeResponseChunk(stream, encoder.CodeSuccess, h.forkDigestContext, payload); err != nil {
			return err
		}
	}
	return nil
}

// forkDigestContext supplies the 4-byte context bytes fork-versioned
// response protocols (beacon_blocks_by_range/root) attach to every chunk.
func (h *Handlers) forkDigestContext() ([4]byte, bool) {
	status, err := h.Chain.BuildStatusRequest(context.Background())
	if err != nil {
		return [4]byte{}, false
	}
	return status.ForkDigest, true
}

func gobEncode(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, errors.Wrap(err, "could not gob-encode rpc payload")
	}
	return buf.Bytes(), nil
}

func gobDecode(raw []byte, dst interface{}) error {
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(dst); err != nil {
		return errors.Wrap(err, "could not gob-decode rpc payload")
	}
	return nil
}
