// Package rpc implements C6's request/response engine: the protocol-ID
// table of §4.6, a stream-per-request outbound path with a 5s
// progress timeout, and a per-peer-per-protocol concurrency limiter of
// two outbound requests. Grounded on prysm's beacon-chain/p2p package
// (protocol IDs as plain strings fed to host.SetStreamHandler /
// host.NewStream, observed in p2p/sender_test.go) and on eth2030's
// pkg/p2p/reqresp.go for the length-prefixed codec discipline adapted
// into package encoder.
package rpc

import (
	"github.com/libp2p/go-libp2p-core/protocol"
)

// Protocol IDs of §4.6, following /eth2/beacon_chain/req/<name>/<version>/ssz_snappy.
const (
	ProtocolStatus               protocol.ID = "/eth2/beacon_chain/req/status/1/ssz_snappy"
	ProtocolGoodbye              protocol.ID = "/eth2/beacon_chain/req/goodbye/1/ssz_snappy"
	ProtocolPing                 protocol.ID = "/eth2/beacon_chain/req/ping/1/ssz_snappy"
	ProtocolMetadata             protocol.ID = "/eth2/beacon_chain/req/metadata/2/ssz_snappy"
	ProtocolBeaconBlocksByRange  protocol.ID = "/eth2/beacon_chain/req/beacon_blocks_by_range/2/ssz_snappy"
	ProtocolBeaconBlocksByRoot   protocol.ID = "/eth2/beacon_chain/req/beacon_blocks_by_root/2/ssz_snappy"
	ProtocolBlobSidecarsByRange  protocol.ID = "/eth2/beacon_chain/req/blob_sidecars_by_range/1/ssz_snappy"
	ProtocolBlobSidecarsByRoot   protocol.ID = "/eth2/beacon_chain/req/blob_sidecars_by_root/1/ssz_snappy"
)

// GoodbyeReason is the u64 carried by goodbye/1.
type GoodbyeReason uint64

const (
	GoodbyeClientShutdown     GoodbyeReason = 1
	GoodbyeIrrelevantNetwork  GoodbyeReason = 2
	GoodbyeFaultOrError       GoodbyeReason = 3
)

// StatusPayload is the wire shape of status/1's single chunk.
type StatusPayload struct {
	ForkDigest     [4]byte
	FinalizedRoot  [32]byte
	FinalizedEpoch uint64
	HeadRoot       [32]byte
	HeadSlot       uint64
}

// PingPayload is ping/1's single u64 sequence number.
type PingPayload struct {
	SeqNumber uint64
}

// MetadataPayload is metadata/2's response: no request body, this shape
// back.
type MetadataPayload struct {
	SeqNumber         uint64
	Attnets           [8]byte
	Syncnets          [1]byte
}

// BeaconBlocksByRangeRequest is beacon_blocks_by_range/2's request.
type BeaconBlocksByRangeRequest struct {
	StartSlot uint64
	Count     uint64
	Step      uint64
}

// BeaconBlocksByRootRequest is beacon_blocks_by_root/2's request: up to
// 1024 block roots.
type BeaconBlocksByRootRequest struct {
	Roots [][32]byte
}

// BlobSidecarsByRangeRequest is blob_sidecars_by_range/1's request.
type BlobSidecarsByRangeRequest struct {
	StartSlot uint64
	Count     uint64
}

// BlobIdentifier is one (block_root, index) pair as used by
// blob_sidecars_by_root/1.
type BlobIdentifier struct {
	BlockRoot [32]byte
	Index     uint64
}

// BlobSidecarsByRootRequest is blob_sidecars_by_root/1's request: up to
// MaxRequestBlobSidecars identifiers.
type BlobSidecarsByRootRequest struct {
	Identifiers []BlobIdentifier
}

const maxBeaconBlocksByRootRoots = 1024
