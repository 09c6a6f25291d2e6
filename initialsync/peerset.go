// Package initialsync implements the sync driver (C8, §4.8): a peer set
// tracking {Idle, Downloading} state and a ban list, majority-vote target
// selection over peers' reported finalized epochs, and a round-robin
// beacon_blocks_by_range fetch loop piping blocks into the chain service.
// Grounded on eth2030's pkg/sync/beacon_sync.go (BeaconSyncer's
// mutex-guarded status/semaphore/retry shape, SyncSlotRange's
// bounded-concurrency fan-out) adapted from its single-fetcher polling
// model to a multi-peer, scored peer set as §4.8 requires.
package initialsync

import (
	"sync"

	"github.com/libp2p/go-libp2p-core/peer"
)

// PeerState is a peer's sync-assignment state.
type PeerState int

const (
	PeerIdle PeerState = iota
	PeerDownloading
)

// defaultScore is every peer's starting score; repeated failures push a
// peer towards banThreshold.
const (
	defaultScore  = 100
	failurePenalty = 20
	banThreshold  = 0
)

// peerRecord is one tracked peer's sync bookkeeping.
type peerRecord struct {
	state          PeerState
	score          int
	banned         bool
	banReason      string
	finalizedEpoch uint64
}

// PeerSet tracks sync-eligible peers: their download-assignment state,
// their last-reported finalized epoch (for target selection), and a ban
// list with reasons (§4.8: "ban list with reasons").
type PeerSet struct {
	mu    sync.RWMutex
	peers map[peer.ID]*peerRecord
}

// NewPeerSet returns an empty peer set.
func NewPeerSet() *PeerSet {
	return &PeerSet{peers: make(map[peer.ID]*peerRecord)}
}

// AddPeer registers p as idle, reporting finalizedEpoch from its status
// handshake. Re-adding an already-known, non-banned peer just refreshes
// its reported epoch.
func (ps *PeerSet) AddPeer(p peer.ID, finalizedEpoch uint64) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	rec, ok := ps.peers[p]
	if !ok {
		rec = &peerRecord{state: PeerIdle, score: defaultScore}
		ps.peers[p] = rec
	}
	if rec.banned {
		return
	}
	rec.finalizedEpoch = finalizedEpoch
}

// RemovePeer drops p from the set entirely (disconnect).
func (ps *PeerSet) RemovePeer(p peer.ID) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	delete(ps.peers, p)
}

// IdlePeers claims up to max non-banned idle peers, marking each
// Downloading, for a parallel batch fetch (§4.8's round-robin fetch
// generalized to fan out across every idle peer at once rather than one
// chunk at a time).
func (ps *PeerSet) IdlePeers(max int) []peer.ID {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	claimed := make([]peer.ID, 0, max)
	for p, rec := range ps.peers {
		if len(claimed) >= max {
			break
		}
		if !rec.banned && rec.state == PeerIdle {
			rec.state = PeerDownloading
			claimed = append(claimed, p)
		}
	}
	return claimed
}

// MarkIdle returns p to the idle pool, the on-end-of-stream transition.
func (ps *PeerSet) MarkIdle(p peer.ID) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if rec, ok := ps.peers[p]; ok && !rec.banned {
		rec.state = PeerIdle
	}
}

// ReportFailure penalizes p (disconnect/timeout/decoding error) and bans
// it once its score reaches banThreshold (§4.8: "on repeated failure,
// bans").
func (ps *PeerSet) ReportFailure(p peer.ID, reason string) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	rec, ok := ps.peers[p]
	if !ok {
		return
	}
	rec.score -= failurePenalty
	rec.state = PeerIdle
	if rec.score <= banThreshold {
		rec.banned = true
		rec.banReason = reason
	}
}

// IsBanned reports whether p is on the ban list.
func (ps *PeerSet) IsBanned(p peer.ID) bool {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	rec, ok := ps.peers[p]
	return ok && rec.banned
}

// MajorityFinalizedEpoch returns the most-reported finalized epoch among
// non-banned peers (§4.8's sync-target selection), or ok=false with no
// peers to ask.
func (ps *PeerSet) MajorityFinalizedEpoch() (epoch uint64, ok bool) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	votes := make(map[uint64]int)
	for _, rec := range ps.peers {
		if rec.banned {
			continue
		}
		votes[rec.finalizedEpoch]++
	}
	best, bestCount := uint64(0), 0
	for epoch, count := range votes {
		if count > bestCount || (count == bestCount && epoch > best) {
			best, bestCount = epoch, count
		}
	}
	return best, bestCount > 0
}
