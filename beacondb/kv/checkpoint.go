package kv

import (
	"context"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	fctypes "github.com/syjn99/ream-sub001/forkchoice/types"
)

var (
	justifiedCheckpointKey = []byte("justified-checkpoint")
	finalizedCheckpointKey = []byte("finalized-checkpoint")
	genesisRootKey         = []byte("genesis-root")
)

// SaveJustifiedCheckpoint persists the single current justified checkpoint,
// overwriting whatever was previously stored (§4.1: the store keeps only
// the latest of each singleton checkpoint, fork-choice recomputes the rest
// from blocks on restart).
func (s *Store) SaveJustifiedCheckpoint(ctx context.Context, cp *fctypes.Checkpoint) error {
	return s.saveCheckpoint(ctx, justifiedCheckpointKey, cp)
}

// JustifiedCheckpoint returns the last-saved justified checkpoint.
func (s *Store) JustifiedCheckpoint(ctx context.Context) (*fctypes.Checkpoint, bool, error) {
	return s.checkpoint(ctx, justifiedCheckpointKey)
}

// SaveFinalizedCheckpoint persists the single current finalized checkpoint.
func (s *Store) SaveFinalizedCheckpoint(ctx context.Context, cp *fctypes.Checkpoint) error {
	return s.saveCheckpoint(ctx, finalizedCheckpointKey, cp)
}

// FinalizedCheckpoint returns the last-saved finalized checkpoint.
func (s *Store) FinalizedCheckpoint(ctx context.Context) (*fctypes.Checkpoint, bool, error) {
	return s.checkpoint(ctx, finalizedCheckpointKey)
}

func (s *Store) saveCheckpoint(ctx context.Context, key []byte, cp *fctypes.Checkpoint) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	enc, err := encode(cp)
	if err != nil {
		return errors.Wrap(err, "could not encode checkpoint")
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(checkpointsBucket).Put(key, enc)
	})
}

func (s *Store) checkpoint(ctx context.Context, key []byte) (*fctypes.Checkpoint, bool, error) {
	if ctx.Err() != nil {
		return nil, false, ctx.Err()
	}
	var cp fctypes.Checkpoint
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(checkpointsBucket).Get(key)
		if raw == nil {
			return nil
		}
		found = true
		return decode(raw, &cp)
	})
	if err != nil {
		return nil, false, errors.Wrap(err, "could not decode checkpoint")
	}
	if !found {
		return nil, false, nil
	}
	return &cp, true, nil
}

// SaveGenesisRoot records the root of the genesis block, the chain's
// fixed weak-subjectivity anchor (§4.2).
func (s *Store) SaveGenesisRoot(ctx context.Context, root [32]byte) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(chainMetadataBucket).Put(genesisRootKey, root[:])
	})
}

// GenesisRoot returns the previously saved genesis block root.
func (s *Store) GenesisRoot(ctx context.Context) ([32]byte, bool, error) {
	var root [32]byte
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(chainMetadataBucket).Get(genesisRootKey)
		if raw == nil {
			return nil
		}
		copy(root[:], raw)
		found = true
		return nil
	})
	return root, found, err
}
