package kv

import (
	"context"
	"encoding/binary"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/syjn99/ream-sub001/consensus-types/blocks"
	"github.com/syjn99/ream-sub001/crypto/hash"
)

// BlockRoot computes the store's internal identity for a block. Real SSZ
// signing-root computation is out of scope (spec.md §1); this hashes the
// DB's own gob encoding of the block, which is sufficient for the
// store's own identity/indexing purposes (the wire-facing signing root
// used for gossip message IDs is a p2p/encoder concern).
func BlockRoot(b *blocks.SignedBeaconBlock) ([32]byte, error) {
	enc, err := encode(b.Block)
	if err != nil {
		return [32]byte{}, err
	}
	return hash.Hash(enc), nil
}

func slotKey(slot uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, slot)
	return buf
}

// SaveBlock inserts a block and, in the same bbolt transaction, updates
// the slot and parent-root secondary indices (§4.1: "partial failure is
// not observable"). Re-saving an already-stored root is a cheap no-op,
// matching the teacher's SaveBlock_NoDuplicates behavior.
func (s *Store) SaveBlock(ctx context.Context, b *blocks.SignedBeaconBlock) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	root, err := BlockRoot(b)
	if err != nil {
		return err
	}
	enc, err := encode(b)
	if err != nil {
		return errors.Wrap(err, "could not encode block")
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(blocksBucket)
		if existing := bkt.Get(root[:]); existing != nil {
			return nil
		}
		if err := bkt.Put(root[:], enc); err != nil {
			return err
		}

		slotBkt := tx.Bucket(blockSlotIndexBucket)
		if err := slotBkt.Put(slotKey(uint64(b.Block.Slot)), root[:]); err != nil {
			return err
		}

		parentBkt := tx.Bucket(blockParentIndexBucket)
		var children [][32]byte
		if raw := parentBkt.Get(b.Block.ParentRoot[:]); raw != nil {
			if err := decode(raw, &children); err != nil {
				return errors.Wrap(err, "could not decode parent index")
			}
		}
		children = append(children, root)
		enc, err := encode(children)
		if err != nil {
			return err
		}
		return parentBkt.Put(b.Block.ParentRoot[:], enc)
	})
}

// Block returns the block stored at root, and false if none is stored
// (§4.1: absence is never an error).
func (s *Store) Block(ctx context.Context, root [32]byte) (*blocks.SignedBeaconBlock, bool, error) {
	if ctx.Err() != nil {
		return nil, false, ctx.Err()
	}
	var b blocks.SignedBeaconBlock
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(blocksBucket).Get(root[:])
		if raw == nil {
			return nil
		}
		found = true
		return decode(raw, &b)
	})
	if err != nil {
		return nil, false, errors.Wrap(err, "could not decode block")
	}
	if !found {
		return nil, false, nil
	}
	return &b, true, nil
}

// HasBlock reports whether root is stored, without incurring a decode.
func (s *Store) HasBlock(ctx context.Context, root [32]byte) bool {
	has := false
	_ = s.db.View(func(tx *bolt.Tx) error {
		has = tx.Bucket(blocksBucket).Get(root[:]) != nil
		return nil
	})
	return has
}

// BlockRootBySlot implements slot_index.get(s): the root stored at slot s,
// if the block at s is known (§4.1).
func (s *Store) BlockRootBySlot(ctx context.Context, slot uint64) ([32]byte, bool, error) {
	var root [32]byte
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(blockSlotIndexBucket).Get(slotKey(slot))
		if raw == nil {
			return nil
		}
		copy(root[:], raw)
		found = true
		return nil
	})
	return root, found, err
}

// ChildrenOf implements parent_root_index.get(p): every known child root of
// p (§4.1).
func (s *Store) ChildrenOf(ctx context.Context, parentRoot [32]byte) ([][32]byte, error) {
	var children [][32]byte
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(blockParentIndexBucket).Get(parentRoot[:])
		if raw == nil {
			return nil
		}
		return decode(raw, &children)
	})
	return children, err
}

// HighestBlockSlot returns the slot of the highest-slot stored block, and
// false if the store holds no blocks.
func (s *Store) HighestBlockSlot(ctx context.Context) (uint64, bool, error) {
	var slot uint64
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(blockSlotIndexBucket).Cursor()
		k, _ := c.Last()
		if k == nil {
			return nil
		}
		slot = binary.BigEndian.Uint64(k)
		found = true
		return nil
	})
	return slot, found, err
}
