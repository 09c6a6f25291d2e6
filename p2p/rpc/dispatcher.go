package rpc

import (
	"context"
	"sync"
	"time"

	"github.com/libp2p/go-libp2p-core/host"
	"github.com/libp2p/go-libp2p-core/network"
	"github.com/libp2p/go-libp2p-core/peer"
	"github.com/libp2p/go-libp2p-core/protocol"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/syjn99/ream-sub001/p2p/encoder"
)

var log = logrus.WithField("prefix", "rpc")

// streamTimeout is the 5s stream-progress timeout of §4.6: an inbound or
// outbound stream that makes no framing progress within this window is
// dropped with StreamTimedOut.
const streamTimeout = 5 * time.Second

// maxOutboundPerProtocolPerPeer is §4.6's "at most two concurrent
// outbound requests per protocol-id per peer".
const maxOutboundPerProtocolPerPeer = 2

// ErrStreamTimedOut is returned when a stream makes no framing progress
// within streamTimeout.
var ErrStreamTimedOut = errors.New("rpc: stream timed out")

// Handler processes one inbound request stream already positioned past
// the protocol negotiation; it reads the request (if any), writes zero
// or more response chunks, and closes or resets the stream.
type Handler func(ctx context.Context, stream network.Stream) error

// Dispatcher registers Handlers against protocol IDs on a libp2p host and
// throttles this node's own outbound requests per protocol-per-peer.
type Dispatcher struct {
	host host.Host

	mu       sync.Mutex
	outbound map[peer.ID]map[protocol.ID]chan struct{}
}

// NewDispatcher returns a Dispatcher bound to h. Callers register
// handlers with RegisterHandler before the host starts accepting
// connections.
func NewDispatcher(h host.Host) *Dispatcher {
	return &Dispatcher{
		host:     h,
		outbound: make(map[peer.ID]map[protocol.ID]chan struct{}),
	}
}

// RegisterHandler installs handler for pid, enforcing streamTimeout via a
// read/write deadline on every inbound stream before delegating.
func (d *Dispatcher) RegisterHandler(pid protocol.ID, handler Handler) {
	d.host.SetStreamHandler(pid, func(stream network.Stream) {
		ctx, cancel := context.WithTimeout(context.Background(), streamTimeout)
		defer cancel()
		if err := stream.SetDeadline(time.Now().Add(streamTimeout)); err != nil {
			log.WithError(err).Debug("could not set stream deadline")
		}
		if err := handler(ctx, stream); err != nil {
			log.WithError(err).WithField("protocol", pid).Debug("request handler failed")
			_ = stream.Reset()
			return
		}
		_ = stream.Close()
	})
}

// acquire blocks until an outbound slot for (peer, pid) is free, per the
// two-concurrent-requests limit, returning a release function.
func (d *Dispatcher) acquire(ctx context.Context, p peer.ID, pid protocol.ID) (func(), error) {
	d.mu.Lock()
	perPeer, ok := d.outbound[p]
	if !ok {
		perPeer = make(map[protocol.ID]chan struct{})
		d.outbound[p] = perPeer
	}
	sem, ok := perPeer[pid]
	if !ok {
		sem = make(chan struct{}, maxOutboundPerProtocolPerPeer)
		perPeer[pid] = sem
	}
	d.mu.Unlock()

	select {
	case sem <- struct{}{}:
		return func() { <-sem }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// SendRequest opens a stream to p for pid, writes payload as a
// length-prefixed snappy-compressed frame, and returns the open stream
// for the caller to read response chunks from (closing it is the
// caller's responsibility). Subject to the 5s progress timeout. The
// per-peer-per-protocol concurrency slot is held only while the stream is
// opened and the request written: it is released when SendRequest
// returns, so requests whose responses are still being read do not count
// against the limit.
func (d *Dispatcher) SendRequest(ctx context.Context, p peer.ID, pid protocol.ID, payload []byte) (network.Stream, error) {
	release, err := d.acquire(ctx, p, pid)
	if err != nil {
		return nil, err
	}
	defer release()

	ctx, cancel := context.WithTimeout(ctx, streamTimeout)
	defer cancel()

	stream, err := d.host.NewStream(ctx, p, pid)
	if err != nil {
		return nil, errors.Wrap(err, "could not open stream")
	}
	if err := stream.SetDeadline(time.Now().Add(streamTimeout)); err != nil {
		log.WithError(err).Debug("could not set stream deadline")
	}
	if len(payload) > 0 {
		if _, err := encoder.EncodeRequest(stream, payload); err != nil {
			_ = stream.Reset()
			return nil, errors.Wrap(err, "could not write request")
		}
	}
	if err := stream.CloseWrite(); err != nil {
		log.WithError(err).Debug("could not close write side of stream")
	}
	return stream, nil
}
