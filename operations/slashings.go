package operations

import (
	"sync"

	"github.com/syjn99/ream-sub001/consensus-types/blocks"
	"github.com/syjn99/ream-sub001/consensus-types/primitives"
	"github.com/syjn99/ream-sub001/crypto/hash"
)

// SlashingPool holds proposer slashings (keyed by proposer index) and
// attester slashings (keyed by a hash of their attesting-index lists), per
// §4.3.
type SlashingPool struct {
	lock sync.RWMutex

	proposerSlashings map[primitives.ValidatorIndex]*blocks.ProposerSlashing
	attesterSlashings map[[32]byte]*blocks.AttesterSlashing

	// slashedProposers/slashedAttesters record subjects already included
	// in a processed slashing, so a later duplicate gossip message is
	// rejected by InsertX returning false (§4.5 de-duplication rules).
	slashedProposers  map[primitives.ValidatorIndex]bool
	slashedAttesters  map[primitives.ValidatorIndex]bool
}

// NewSlashingPool returns an empty pool.
func NewSlashingPool() *SlashingPool {
	return &SlashingPool{
		proposerSlashings: make(map[primitives.ValidatorIndex]*blocks.ProposerSlashing),
		attesterSlashings: make(map[[32]byte]*blocks.AttesterSlashing),
		slashedProposers:  make(map[primitives.ValidatorIndex]bool),
		slashedAttesters:  make(map[primitives.ValidatorIndex]bool),
	}
}

// InsertProposerSlashing adds slashing for proposerIndex. Returns false if
// that proposer was already slashed via this mechanism (§4.5 "Proposer
// slashing: Proposer not previously slashed via this mechanism").
func (p *SlashingPool) InsertProposerSlashing(proposerIndex primitives.ValidatorIndex, slashing *blocks.ProposerSlashing) bool {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.slashedProposers[proposerIndex] {
		return false
	}
	p.proposerSlashings[proposerIndex] = slashing
	return true
}

// MarkProposerSlashed records proposerIndex as slashed and removes it from
// the pending set, called once the slashing is included in a block.
func (p *SlashingPool) MarkProposerSlashed(proposerIndex primitives.ValidatorIndex) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.slashedProposers[proposerIndex] = true
	delete(p.proposerSlashings, proposerIndex)
}

// PendingProposerSlashings returns every queued proposer slashing.
func (p *SlashingPool) PendingProposerSlashings() []*blocks.ProposerSlashing {
	p.lock.RLock()
	defer p.lock.RUnlock()
	out := make([]*blocks.ProposerSlashing, 0, len(p.proposerSlashings))
	for _, s := range p.proposerSlashings {
		out = append(out, s)
	}
	return out
}

// slashingKey hashes the two attestations' attesting-index lists in the
// order given, so slashings naming the same indices in the same order
// collide to the same key. The attestation data is not hashed, and the
// same indices listed in a different order give a different key.
func slashingKey(s *blocks.AttesterSlashing) [32]byte {
	var buf []byte
	buf = append(buf, indicesBytes(s.Attestation1.AttestingIndices)...)
	buf = append(buf, indicesBytes(s.Attestation2.AttestingIndices)...)
	return hash.Hash(buf)
}

func indicesBytes(idx []primitives.ValidatorIndex) []byte {
	buf := make([]byte, 8*len(idx))
	for i, v := range idx {
		for b := 0; b < 8; b++ {
			buf[i*8+b] = byte(v >> (8 * b))
		}
	}
	return buf
}

// InsertAttesterSlashing adds slashing keyed by its content hash. Returns
// false if an identical slashing was already seen, or if every attesting
// index it implicates has already been slashed (§4.5: "the intersection
// ... contains >= 1 index not previously seen").
func (p *SlashingPool) InsertAttesterSlashing(slashing *blocks.AttesterSlashing) bool {
	p.lock.Lock()
	defer p.lock.Unlock()
	k := slashingKey(slashing)
	if _, ok := p.attesterSlashings[k]; ok {
		return false
	}
	if p.intersectionFullySlashed(slashing) {
		return false
	}
	p.attesterSlashings[k] = slashing
	return true
}

func (p *SlashingPool) intersectionFullySlashed(s *blocks.AttesterSlashing) bool {
	set := make(map[primitives.ValidatorIndex]bool, len(s.Attestation1.AttestingIndices))
	for _, idx := range s.Attestation1.AttestingIndices {
		set[idx] = true
	}
	anyNew := false
	for _, idx := range s.Attestation2.AttestingIndices {
		if set[idx] && !p.slashedAttesters[idx] {
			anyNew = true
		}
	}
	return !anyNew
}

// MarkAttesterSlashed records every index in the intersection of the two
// attestations as slashed, mirroring on_attester_slashing's immediate
// weight neutralization (§4.4).
func (p *SlashingPool) MarkAttesterSlashed(s *blocks.AttesterSlashing) {
	p.lock.Lock()
	defer p.lock.Unlock()
	set := make(map[primitives.ValidatorIndex]bool, len(s.Attestation1.AttestingIndices))
	for _, idx := range s.Attestation1.AttestingIndices {
		set[idx] = true
	}
	for _, idx := range s.Attestation2.AttestingIndices {
		if set[idx] {
			p.slashedAttesters[idx] = true
		}
	}
	delete(p.attesterSlashings, slashingKey(s))
}

// PendingAttesterSlashings returns every queued attester slashing.
func (p *SlashingPool) PendingAttesterSlashings() []*blocks.AttesterSlashing {
	p.lock.RLock()
	defer p.lock.RUnlock()
	out := make([]*blocks.AttesterSlashing, 0, len(p.attesterSlashings))
	for _, s := range p.attesterSlashings {
		out = append(out, s)
	}
	return out
}

// Clean drops pending and bookkeeping entries whose subject has already
// withdrawn, per §4.3 "callers invoke clean(state) after each
// finalized-epoch advancement": a slashing naming only withdrawn
// validators can no longer change fork-choice weight, and the
// slashedProposers/slashedAttesters sets otherwise grow without bound.
func (p *SlashingPool) Clean(withdrawableEpoch func(primitives.ValidatorIndex) (primitives.Epoch, bool), currentEpoch primitives.Epoch) {
	p.lock.Lock()
	defer p.lock.Unlock()

	withdrawn := func(idx primitives.ValidatorIndex) bool {
		we, ok := withdrawableEpoch(idx)
		return ok && we <= currentEpoch
	}

	for idx := range p.proposerSlashings {
		if withdrawn(idx) {
			delete(p.proposerSlashings, idx)
		}
	}
	for idx := range p.slashedProposers {
		if withdrawn(idx) {
			delete(p.slashedProposers, idx)
		}
	}
	for key, s := range p.attesterSlashings {
		if intersectionAllWithdrawn(s, withdrawn) {
			delete(p.attesterSlashings, key)
		}
	}
	for idx := range p.slashedAttesters {
		if withdrawn(idx) {
			delete(p.slashedAttesters, idx)
		}
	}
}

// intersectionAllWithdrawn reports whether every index in the
// intersection of s's two attesting-index sets has already withdrawn.
func intersectionAllWithdrawn(s *blocks.AttesterSlashing, withdrawn func(primitives.ValidatorIndex) bool) bool {
	set := make(map[primitives.ValidatorIndex]bool, len(s.Attestation1.AttestingIndices))
	for _, idx := range s.Attestation1.AttestingIndices {
		set[idx] = true
	}
	for _, idx := range s.Attestation2.AttestingIndices {
		if set[idx] && !withdrawn(idx) {
			return false
		}
	}
	return true
}
