// Package kv implements the typed, append-only chain store (C1, §4.1) on
// top of go.etcd.io/bbolt, mirroring prysm's beacon-chain/db/kv package:
// one bucket per logical collection, one bucket per secondary index, all
// writes inside a single bbolt.Update transaction so a block and its
// indices become visible atomically (§4.1 "partial failure is not
// observable").
package kv

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
	"golang.org/x/sync/singleflight"
)

var (
	blocksBucket           = []byte("blocks")
	statesBucket           = []byte("states")
	blockSlotIndexBucket   = []byte("block-slot-index")
	blockParentIndexBucket = []byte("block-parent-index")
	stateRootIndexBucket   = []byte("state-root-index")
	checkpointsBucket      = []byte("checkpoints")
	chainMetadataBucket    = []byte("chain-metadata")

	allBuckets = [][]byte{
		blocksBucket,
		statesBucket,
		blockSlotIndexBucket,
		blockParentIndexBucket,
		stateRootIndexBucket,
		checkpointsBucket,
		chainMetadataBucket,
	}
)

// ErrNotFound is never returned by this package: "missing" is an absence,
// reported via a (value, false) or (nil, nil) return, never as an error
// (§4.1 "Failure semantics"). It is kept only for callers that prefer a
// sentinel when bridging to error-returning interfaces; no package in this
// module currently uses it.
var ErrNotFound = errors.New("not found")

// stateCacheMaxEntries bounds the head-state read cache to a handful of
// the most recently touched post-states; a full BeaconState is heavy
// enough that caching more than the tip of a few active branches isn't
// worth the memory.
const stateCacheMaxEntries = 256

// Store is the typed key/value database described in §4.1.
type Store struct {
	db           *bolt.DB
	databasePath string

	// stateCache fronts State(root) with a read-through cache, mirroring
	// prysm's kv.Store.blockCache: state reads during fork-choice
	// re-evaluation and HTTP state lookups hit the same handful of
	// recent roots repeatedly, and bbolt decoding a full BeaconState on
	// every call is the dominant cost.
	stateCache *ristretto.Cache

	// stateLoads collapses concurrent cache-miss loads of the same
	// blockRoot (e.g. several HTTP state_id requests racing a
	// fork-choice recompute that just evicted it) into a single bbolt
	// transaction and decode.
	stateLoads singleflight.Group
}

// Config tunes Store construction.
type Config struct {
	// InitialMmapSize pre-sizes the memory map to reduce mid-session
	// resizes under sustained write load, mirroring prysm's kv.Config.
	InitialMmapSize int
}

// NewKVStore opens (creating if absent) a bbolt database at dirPath/ream.db
// and ensures every bucket in allBuckets exists. Database I/O errors here
// are fatal per §7 ("Database I/O errors ... abort startup").
func NewKVStore(ctx context.Context, dirPath string, cfg *Config) (*Store, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	opts := *bolt.DefaultOptions
	opts.Timeout = 1 * time.Second
	if cfg.InitialMmapSize > 0 {
		opts.InitialMmapSize = cfg.InitialMmapSize
	}

	db, err := bolt.Open(dirPath+"/ream.db", 0600, &opts)
	if err != nil {
		return nil, errors.Wrap(err, "could not open beacon chain db")
	}

	stateCache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10 * stateCacheMaxEntries,
		MaxCost:     stateCacheMaxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, errors.Wrap(err, "could not create state cache")
	}

	s := &Store{db: db, databasePath: dirPath, stateCache: stateCache}
	if err := db.Update(func(tx *bolt.Tx) error {
		for _, name := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "could not initialize buckets")
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	s.stateCache.Close()
	return s.db.Close()
}

// DatabasePath returns the directory the store was opened in.
func (s *Store) DatabasePath() string {
	return s.databasePath
}
