package kv

import (
	"context"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/syjn99/ream-sub001/consensus-types/state"
	"github.com/syjn99/ream-sub001/crypto/hash"
)

// SaveState stores the post-state associated with blockRoot and, in the
// same transaction, indexes it by the state's own hash_tree_root so
// lookups by state root (as required by the beacon API's
// states/{state_id} family) resolve back to blockRoot (§4.1).
func (s *Store) SaveState(ctx context.Context, blockRoot [32]byte, st *state.BeaconState) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	enc, err := encode(st)
	if err != nil {
		return errors.Wrap(err, "could not encode state")
	}
	stateRoot, err := stateRoot(st)
	if err != nil {
		return err
	}

	if err := s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(statesBucket).Put(blockRoot[:], enc); err != nil {
			return err
		}
		return tx.Bucket(stateRootIndexBucket).Put(stateRoot[:], blockRoot[:])
	}); err != nil {
		return err
	}
	s.stateCache.Set(string(blockRoot[:]), st, 1)
	return nil
}

// State returns the post-state indexed by blockRoot, consulting the
// read-through cache before falling back to bbolt.
func (s *Store) State(ctx context.Context, blockRoot [32]byte) (*state.BeaconState, bool, error) {
	if ctx.Err() != nil {
		return nil, false, ctx.Err()
	}
	key := string(blockRoot[:])
	if cached, ok := s.stateCache.Get(key); ok {
		return cached.(*state.BeaconState), true, nil
	}

	type loadResult struct {
		st    *state.BeaconState
		found bool
	}
	v, err, _ := s.stateLoads.Do(key, func() (interface{}, error) {
		var st state.BeaconState
		found := false
		if err := s.db.View(func(tx *bolt.Tx) error {
			raw := tx.Bucket(statesBucket).Get(blockRoot[:])
			if raw == nil {
				return nil
			}
			found = true
			return decode(raw, &st)
		}); err != nil {
			return nil, errors.Wrap(err, "could not decode state")
		}
		if !found {
			return loadResult{found: false}, nil
		}
		s.stateCache.Set(key, &st, 1)
		return loadResult{st: &st, found: true}, nil
	})
	if err != nil {
		return nil, false, err
	}
	res := v.(loadResult)
	return res.st, res.found, nil
}

// BlockRootByStateRoot resolves a state hash_tree_root back to the block
// root it was saved under, via state_root_index (§4.1).
func (s *Store) BlockRootByStateRoot(ctx context.Context, stRoot [32]byte) ([32]byte, bool, error) {
	var blockRoot [32]byte
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(stateRootIndexBucket).Get(stRoot[:])
		if raw == nil {
			return nil
		}
		copy(blockRoot[:], raw)
		found = true
		return nil
	})
	return blockRoot, found, err
}

// stateRoot computes the store's internal state identity the same way
// BlockRoot computes block identity: by hashing the store's own encoding,
// since real SSZ hash_tree_root is out of scope (spec.md §1).
func stateRoot(st *state.BeaconState) ([32]byte, error) {
	enc, err := encode(st)
	if err != nil {
		return [32]byte{}, err
	}
	return hash.Hash(enc), nil
}
