package operations

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/syjn99/ream-sub001/consensus-types/primitives"
)

// ProposerPreparation is a validator's fee-recipient registration for an
// upcoming proposal, submitted out-of-band via the validator API (§6
// "/eth/v1/validator/prepare_beacon_proposer").
type ProposerPreparation struct {
	ValidatorIndex primitives.ValidatorIndex
	FeeRecipient   [20]byte
	Epoch          primitives.Epoch
}

// proposerPreparationTTL bounds how long a registration is honored without
// renewal; prysm's proposer-preparation cache under beacon-chain/rpc
// expires entries on roughly the same horizon (a handful of epochs) so a
// validator that stops registering eventually falls back to the local
// default fee recipient.
const proposerPreparationTTL = 2 * time.Hour

// PreparationPool caches proposer preparations by validator index, one
// entry per subject (§4.3), using patrickmn/go-cache for epoch-scoped TTL
// expiry -- SPEC_FULL.md's supplement to the distilled operation-pool
// description.
type PreparationPool struct {
	cache *gocache.Cache
}

// NewPreparationPool returns an empty, TTL-expiring preparation pool.
func NewPreparationPool() *PreparationPool {
	return &PreparationPool{cache: gocache.New(proposerPreparationTTL, proposerPreparationTTL/2)}
}

// ppKey renders a validator index into go-cache's string key space.
func ppKey(idx primitives.ValidatorIndex) string {
	buf := make([]byte, 8)
	v := uint64(idx)
	for i := 0; i < 8; i++ {
		buf[i] = "0123456789abcdef"[(v>>(4*(7-i)))&0xf]
	}
	return string(buf)
}

// Insert records or refreshes validatorIndex's fee-recipient preparation.
func (p *PreparationPool) Insert(prep *ProposerPreparation) {
	p.cache.SetDefault(ppKey(prep.ValidatorIndex), prep)
}

// FeeRecipient returns the registered fee recipient for idx, and false if
// none is registered or its registration has expired.
func (p *PreparationPool) FeeRecipient(idx primitives.ValidatorIndex) ([20]byte, bool) {
	v, ok := p.cache.Get(ppKey(idx))
	if !ok {
		return [20]byte{}, false
	}
	return v.(*ProposerPreparation).FeeRecipient, true
}
