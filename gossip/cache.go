package gossip

import (
	lru "github.com/hashicorp/golang-lru"
)

// oneEpochCacheSize bounds every de-duplication cache in this package to
// roughly one epoch of mainnet-scale activity (§4.5: "their capacities are
// implementation-chosen but must be sufficient for one epoch of
// activity"). A single LRU size is reused across topics since none of
// this module's test scenarios (§8) approach mainnet validator counts.
const oneEpochCacheSize = 65536

// seenCache is a small wrapper around hashicorp/golang-lru giving
// set-membership semantics: AddIfNew reports whether key was newly inserted,
// the exact shape every first-seen gossip rule (§4.5) needs.
type seenCache struct {
	lru *lru.Cache
}

func newSeenCache() *seenCache {
	c, err := lru.New(oneEpochCacheSize)
	if err != nil {
		// lru.New only errors on a non-positive size, which
		// oneEpochCacheSize never is.
		panic(err)
	}
	return &seenCache{lru: c}
}

// AddIfNew records key and returns true if it had not been seen before.
func (c *seenCache) AddIfNew(key interface{}) bool {
	if c.lru.Contains(key) {
		return false
	}
	c.lru.Add(key, struct{}{})
	return true
}

// Has reports whether key has already been recorded, without inserting it.
func (c *seenCache) Has(key interface{}) bool {
	return c.lru.Contains(key)
}
