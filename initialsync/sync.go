package initialsync

import (
	"context"
	"time"

	"github.com/libp2p/go-libp2p-core/peer"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/syjn99/ream-sub001/blockchain"
	"github.com/syjn99/ream-sub001/config/params"
	"github.com/syjn99/ream-sub001/consensus-types/blocks"
	"github.com/syjn99/ream-sub001/p2p/rpc"
)

var log = logrus.WithField("prefix", "initialsync")

// chunkSize is how many slots one beacon_blocks_by_range request asks
// for at a time (§4.8: "issues beacon_blocks_by_range for
// [next_slot, next_slot + CHUNK)").
const chunkSize = 64

// idlePollInterval is how long Run waits before re-checking for an idle
// peer when none was available.
const idlePollInterval = 500 * time.Millisecond

// maxParallelChunks bounds how many beacon_blocks_by_range requests Run
// fans out at once, one per idle peer, so a single slow peer no longer
// serializes the whole catch-up.
const maxParallelChunks = 8

// Fetcher is the network surface the sync driver consumes: one
// request/response round-trip per method, implemented by a p2p layer
// wrapping rpc.Dispatcher.SendRequest against the protocol-ID table.
type Fetcher interface {
	FetchStatus(ctx context.Context, p peer.ID) (*rpc.StatusPayload, error)
	FetchBeaconBlocksByRange(ctx context.Context, p peer.ID, req rpc.BeaconBlocksByRangeRequest) ([]*blocks.SignedBeaconBlock, error)
	FetchBeaconBlocksByRoot(ctx context.Context, p peer.ID, roots [][32]byte) ([]*blocks.SignedBeaconBlock, error)
}

// Driver is the sync driver of §4.8: it drives head_slot towards the
// peer-majority-reported finalized_epoch * SLOTS_PER_EPOCH target via
// round-robin range requests, and backfills orphans seen on gossip via
// root requests.
type Driver struct {
	chain   *blockchain.Service
	fetcher Fetcher
	peers   *PeerSet
}

// NewDriver returns a Driver wiring chain, fetcher, and peers together.
func NewDriver(chain *blockchain.Service, fetcher Fetcher, peers *PeerSet) *Driver {
	return &Driver{chain: chain, fetcher: fetcher, peers: peers}
}

// Run drives sync to completion or until ctx is cancelled: while
// head_slot < target, it claims every idle peer, fetches one
// non-overlapping chunk of slots per peer in parallel, and pipes the
// returned blocks into the chain service in ascending-slot order.
func (d *Driver) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		targetEpoch, ok := d.peers.MajorityFinalizedEpoch()
		if !ok {
			select {
			case <-time.After(idlePollInterval):
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		targetSlot := targetEpoch * params.BeaconConfig().SlotsPerEpoch

		headSlot, err := d.headSlot(ctx)
		if err != nil {
			return err
		}
		if headSlot >= targetSlot {
			return nil
		}

		batch := d.peers.IdlePeers(maxParallelChunks)
		if len(batch) == 0 {
			select {
			case <-time.After(idlePollInterval):
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if err := d.syncChunks(ctx, batch, headSlot+1); err != nil {
			log.WithError(err).Debug("parallel chunk sync failed")
			continue
		}
	}
}

// syncChunks fans out one beacon_blocks_by_range request per peer in
// batch, covering consecutive, non-overlapping [slot, slot+chunkSize)
// windows starting at startSlot, then imports every returned block in
// ascending-window order. Per-peer fetches run concurrently via
// errgroup; a single peer's failure only lowers that peer's score (it is
// banned once the score reaches zero); the window it owned is simply
// re-requested on Run's next pass.
func (d *Driver) syncChunks(ctx context.Context, batch []peer.ID, startSlot uint64) error {
	chunks := make([][]*blocks.SignedBeaconBlock, len(batch))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range batch {
		i, p := i, p
		chunkStart := startSlot + uint64(i)*chunkSize
		g.Go(func() error {
			fetched, err := d.fetcher.FetchBeaconBlocksByRange(gctx, p, rpc.BeaconBlocksByRangeRequest{
				StartSlot: chunkStart,
				Count:     chunkSize,
				Step:      1,
			})
			if err != nil {
				d.peers.ReportFailure(p, err.Error())
				return errors.Wrapf(err, "beacon_blocks_by_range from %s failed", p)
			}
			chunks[i] = fetched
			d.peers.MarkIdle(p)
			return nil
		})
	}
	err := g.Wait()

	for _, fetched := range chunks {
		for _, b := range fetched {
			if impErr := d.chain.ProcessBlock(ctx, b, false, 0); impErr != nil {
				return errors.Wrapf(impErr, "could not import block at slot %d", b.Block.Slot)
			}
		}
	}
	return err
}

// BackfillByRoot implements §4.8's "root-based backfill uses
// beacon_blocks_by_root for orphans seen on gossip": fetch roots (most
// likely a gossiped block's unknown ancestors) from p and import any
// returned blocks.
func (d *Driver) BackfillByRoot(ctx context.Context, p peer.ID, roots [][32]byte) error {
	fetched, err := d.fetcher.FetchBeaconBlocksByRoot(ctx, p, roots)
	if err != nil {
		d.peers.ReportFailure(p, err.Error())
		return errors.Wrap(err, "beacon_blocks_by_root failed")
	}
	for _, b := range fetched {
		if err := d.chain.ProcessBlock(ctx, b, false, 0); err != nil {
			return errors.Wrapf(err, "could not import backfilled block at slot %d", b.Block.Slot)
		}
	}
	return nil
}

func (d *Driver) headSlot(ctx context.Context) (uint64, error) {
	root, err := d.chain.Head(ctx)
	if err != nil {
		return 0, err
	}
	b, ok, err := d.chain.Block(ctx, root)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return uint64(b.Block.Slot), nil
}
