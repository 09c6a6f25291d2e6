// Package operations implements the operation pool (C3, §4.3): one
// deduplicated, keyed in-memory collection per operation kind, guarded by
// a read/write lock, mirroring prysm's beacon-chain/operations/* family
// (operations/voluntaryexits, operations/blstoexec, operations/slashings)
// as observed in that package's own test suite (pool_test.go,
// service_test.go): NewPool-style constructors, Insert*/Pending*Exits/
// MarkIncluded naming.
package operations

import (
	"sync"

	"github.com/syjn99/ream-sub001/consensus-types/blocks"
	"github.com/syjn99/ream-sub001/consensus-types/primitives"
)

// ExitPool is the voluntary-exit pool keyed by validator_index, one entry
// per subject per §4.3.
type ExitPool struct {
	lock    sync.RWMutex
	pending map[primitives.ValidatorIndex]*blocks.SignedVoluntaryExit
	included map[primitives.ValidatorIndex]bool
}

// NewExitPool returns an empty exit pool.
func NewExitPool() *ExitPool {
	return &ExitPool{
		pending:  make(map[primitives.ValidatorIndex]*blocks.SignedVoluntaryExit),
		included: make(map[primitives.ValidatorIndex]bool),
	}
}

// InsertVoluntaryExit adds exit to the pool, keyed by validator index. A
// second exit for an already-pending or already-included validator is a
// no-op (one-entry-per-subject, §4.3).
func (p *ExitPool) InsertVoluntaryExit(exit *blocks.SignedVoluntaryExit) {
	p.lock.Lock()
	defer p.lock.Unlock()
	idx := exit.Exit.ValidatorIndex
	if p.included[idx] {
		return
	}
	if _, ok := p.pending[idx]; ok {
		return
	}
	p.pending[idx] = exit
}

// PendingExits returns every exit not yet marked included.
func (p *ExitPool) PendingExits() []*blocks.SignedVoluntaryExit {
	p.lock.RLock()
	defer p.lock.RUnlock()
	out := make([]*blocks.SignedVoluntaryExit, 0, len(p.pending))
	for _, e := range p.pending {
		out = append(out, e)
	}
	return out
}

// MarkIncluded removes idx from the pending set and records it as
// included so a re-gossiped copy is never re-queued.
func (p *ExitPool) MarkIncluded(idx primitives.ValidatorIndex) {
	p.lock.Lock()
	defer p.lock.Unlock()
	delete(p.pending, idx)
	p.included[idx] = true
}

// HasSeen reports whether idx already has a pending or included exit,
// the de-duplication check the gossip validator (§4.5) consults.
func (p *ExitPool) HasSeen(idx primitives.ValidatorIndex) bool {
	p.lock.RLock()
	defer p.lock.RUnlock()
	if p.included[idx] {
		return true
	}
	_, ok := p.pending[idx]
	return ok
}

// Clean drops pending exits whose validator has already exited, per §4.3
// "callers invoke clean(state) after each finalized-epoch advancement".
func (p *ExitPool) Clean(withdrawableEpoch func(primitives.ValidatorIndex) (primitives.Epoch, bool), currentEpoch primitives.Epoch) {
	p.lock.Lock()
	defer p.lock.Unlock()
	for idx := range p.pending {
		if we, ok := withdrawableEpoch(idx); ok && we <= currentEpoch {
			delete(p.pending, idx)
		}
	}
}
