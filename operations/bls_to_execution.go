package operations

import (
	"sync"

	"github.com/syjn99/ream-sub001/consensus-types/blocks"
	"github.com/syjn99/ream-sub001/consensus-types/primitives"
)

// blsChangeKey is the (from_public_key, validator_index) composite key
// §4.3 specifies for BLS-to-execution-change de-duplication.
type blsChangeKey struct {
	fromPublicKey [48]byte
	validatorIndex primitives.ValidatorIndex
}

// BLSToExecPool is the BLS-to-execution-change pool.
type BLSToExecPool struct {
	lock    sync.RWMutex
	pending map[blsChangeKey]*blocks.SignedBLSToExecutionChange
	// included records validator indices whose change has already been
	// included in a block, so a re-gossiped copy is never re-queued
	// (mirrors ExitPool's included set).
	included map[primitives.ValidatorIndex]bool
}

// NewBLSToExecPool returns an empty pool.
func NewBLSToExecPool() *BLSToExecPool {
	return &BLSToExecPool{
		pending:  make(map[blsChangeKey]*blocks.SignedBLSToExecutionChange),
		included: make(map[primitives.ValidatorIndex]bool),
	}
}

func keyFor(c *blocks.BLSToExecutionChange) blsChangeKey {
	return blsChangeKey{fromPublicKey: c.FromBLSPublicKey, validatorIndex: c.ValidatorIndex}
}

// InsertBLSToExecChange adds change to the pool, first-seen-wins. A
// change for a validator already included in a block is a no-op.
func (p *BLSToExecPool) InsertBLSToExecChange(change *blocks.SignedBLSToExecutionChange) {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.included[change.Change.ValidatorIndex] {
		return
	}
	k := keyFor(change.Change)
	if _, ok := p.pending[k]; ok {
		return
	}
	p.pending[k] = change
}

// PendingBLSToExecChanges returns every queued change.
func (p *BLSToExecPool) PendingBLSToExecChanges() []*blocks.SignedBLSToExecutionChange {
	p.lock.RLock()
	defer p.lock.RUnlock()
	out := make([]*blocks.SignedBLSToExecutionChange, 0, len(p.pending))
	for _, c := range p.pending {
		out = append(out, c)
	}
	return out
}

// MarkIncluded removes change's key from the pending set and records its
// validator index as included, once it has been included in a block, so
// a re-gossiped copy is never re-queued.
func (p *BLSToExecPool) MarkIncluded(change *blocks.BLSToExecutionChange) {
	p.lock.Lock()
	defer p.lock.Unlock()
	delete(p.pending, keyFor(change))
	p.included[change.ValidatorIndex] = true
}

// HasSeen reports whether a change for change's key is already pending or
// already included, the gossip de-duplication check of §4.5.
func (p *BLSToExecPool) HasSeen(c *blocks.BLSToExecutionChange) bool {
	p.lock.RLock()
	defer p.lock.RUnlock()
	if p.included[c.ValidatorIndex] {
		return true
	}
	_, ok := p.pending[keyFor(c)]
	return ok
}

// Clean drops pending and included entries whose validator's withdrawal
// credentials are already execution-type, per §4.3 "callers invoke
// clean(state) after each finalized-epoch advancement": once a change
// has taken effect (via this pool or a block synced from elsewhere) it
// can never apply again, so tracking it further is pure growth.
// hasExecutionCredentials reports whether idx's withdrawal credentials no
// longer carry the BLS (0x00) prefix.
func (p *BLSToExecPool) Clean(hasExecutionCredentials func(idx primitives.ValidatorIndex) bool) {
	p.lock.Lock()
	defer p.lock.Unlock()
	for k := range p.pending {
		if hasExecutionCredentials(k.validatorIndex) {
			delete(p.pending, k)
		}
	}
	for idx := range p.included {
		if hasExecutionCredentials(idx) {
			delete(p.included, idx)
		}
	}
}
