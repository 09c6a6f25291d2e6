// Package filesystem implements the blob sidecar cold store (§4.1):
// append-only snappy-compressed files on disk, one per (block root,
// index) pair, kept separate from the typed bbolt store because blobs
// are large and pruned on their own retention schedule. Modeled on
// prysm's beacon-chain/db/filesystem package, including its use of
// github.com/spf13/afero so tests run against an in-memory filesystem.
package filesystem

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/golang/snappy"
	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/syjn99/ream-sub001/consensus-types/blocks"
	"github.com/syjn99/ream-sub001/crypto/hash"
)

// ErrNotFound is returned when a requested blob file does not exist.
var ErrNotFound = errors.New("blob not found")

const sszSnappyExt = ".ssz_snappy"

// BlobStorage stores blob sidecars as individual files under a
// per-block-root directory, mirroring prysm's filesystem.BlobStorage.
type BlobStorage struct {
	fs   afero.Fs
	root string

	mu sync.Mutex
}

// NewBlobStorage opens (creating if absent) a blob store rooted at dir on
// the real filesystem.
func NewBlobStorage(dir string) (*BlobStorage, error) {
	fs := afero.NewOsFs()
	if err := fs.MkdirAll(dir, 0700); err != nil {
		return nil, errors.Wrap(err, "could not create blob storage directory")
	}
	return &BlobStorage{fs: fs, root: dir}, nil
}

// NewEphemeralBlobStorage returns a BlobStorage backed entirely by memory,
// for tests.
func NewEphemeralBlobStorage() *BlobStorage {
	return &BlobStorage{fs: afero.NewMemMapFs(), root: "/blobs"}
}

func (b *BlobStorage) blockDir(root [32]byte) string {
	return filepath.Join(b.root, fmt.Sprintf("%x", root))
}

func (b *BlobStorage) sszPath(root [32]byte, index uint64) string {
	return filepath.Join(b.blockDir(root), fmt.Sprintf("%d%s", index, sszSnappyExt))
}

// BlockHeaderRoot computes the store's internal identity for the block a
// sidecar belongs to, the same way kv.BlockRoot does: by hashing the
// store's own encoding of the header, since real SSZ signing-root
// computation is a p2p/encoder concern out of scope here (spec.md §1).
func BlockHeaderRoot(h *blocks.SignedBeaconBlockHeader) ([32]byte, error) {
	enc, err := encodeGob(h.Header)
	if err != nil {
		return [32]byte{}, err
	}
	return hash.Hash(enc), nil
}

// Save writes sc to disk under its block's header root. Writing an
// already-present (root, index) is a no-op.
func (b *BlobStorage) Save(sc *blocks.BlobSidecar) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sc.SignedBlockHeader == nil || sc.SignedBlockHeader.Header == nil {
		return errors.New("blob sidecar missing block header")
	}
	blockRoot, err := BlockHeaderRoot(sc.SignedBlockHeader)
	if err != nil {
		return err
	}

	path := b.sszPath(blockRoot, sc.Index)
	if exists, err := afero.Exists(b.fs, path); err != nil {
		return err
	} else if exists {
		return nil
	}

	if err := b.fs.MkdirAll(b.blockDir(blockRoot), 0700); err != nil {
		return errors.Wrap(err, "could not create block blob directory")
	}

	enc, err := encodeGob(sc)
	if err != nil {
		return err
	}
	return afero.WriteFile(b.fs, path, snappy.Encode(nil, enc), 0600)
}

// Get reads back the blob sidecar saved for (blockRoot, index).
func (b *BlobStorage) Get(blockRoot [32]byte, index uint64) (*blocks.BlobSidecar, error) {
	path := b.sszPath(blockRoot, index)
	raw, err := afero.ReadFile(b.fs, path)
	if err != nil {
		return nil, ErrNotFound
	}
	decompressed, err := snappy.Decode(nil, raw)
	if err != nil {
		return nil, errors.Wrap(err, "could not decompress blob file")
	}
	var sc blocks.BlobSidecar
	if err := gob.NewDecoder(bytes.NewReader(decompressed)).Decode(&sc); err != nil {
		return nil, errors.Wrap(err, "could not decode blob file")
	}
	return &sc, nil
}

// Indices reports, for every index in [0, maxBlobsPerBlock), whether a
// sidecar is stored for blockRoot (§4.1 "blob indices").
func (b *BlobStorage) Indices(blockRoot [32]byte, maxBlobsPerBlock int) ([]bool, error) {
	out := make([]bool, maxBlobsPerBlock)
	entries, err := afero.ReadDir(b.fs, b.blockDir(blockRoot))
	if err != nil {
		return out, nil
	}
	for _, e := range entries {
		var idx int
		if _, err := fmt.Sscanf(e.Name(), "%d"+sszSnappyExt, &idx); err == nil && idx < maxBlobsPerBlock {
			out[idx] = true
		}
	}
	return out, nil
}

// Remove deletes every blob stored for blockRoot, used by the pruner.
func (b *BlobStorage) Remove(blockRoot [32]byte) error {
	return b.fs.RemoveAll(b.blockDir(blockRoot))
}

func encodeGob(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, errors.Wrap(err, "could not gob-encode value")
	}
	return buf.Bytes(), nil
}
