package filesystem

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/syjn99/ream-sub001/consensus-types/blocks"
	"github.com/syjn99/ream-sub001/consensus-types/primitives"
	"github.com/syjn99/ream-sub001/consensus-types/state"
)

func testSidecar(index uint64, slot primitives.Slot) *blocks.BlobSidecar {
	return &blocks.BlobSidecar{
		Index: index,
		Blob:  []byte{1, 2, 3},
		SignedBlockHeader: &blocks.SignedBeaconBlockHeader{
			Header: &state.BeaconBlockHeader{Slot: slot},
		},
	}
}

func TestBlobStorage_SaveAndGet(t *testing.T) {
	bs := NewEphemeralBlobStorage()
	sc := testSidecar(0, 5)

	root, err := BlockHeaderRoot(sc.SignedBlockHeader)
	require.NoError(t, err)

	require.NoError(t, bs.Save(sc))
	got, err := bs.Get(root, 0)
	require.NoError(t, err)
	require.Equal(t, sc.Blob, got.Blob)
}

func TestBlobStorage_SaveIsIdempotent(t *testing.T) {
	bs := NewEphemeralBlobStorage()
	sc := testSidecar(1, 6)
	require.NoError(t, bs.Save(sc))
	require.NoError(t, bs.Save(sc))

	root, _ := BlockHeaderRoot(sc.SignedBlockHeader)
	idx, err := bs.Indices(root, 6)
	require.NoError(t, err)
	require.True(t, idx[1])
}

func TestBlobStorage_Indices(t *testing.T) {
	bs := NewEphemeralBlobStorage()
	sc0 := testSidecar(0, 7)
	sc2 := testSidecar(2, 7)
	require.NoError(t, bs.Save(sc0))
	require.NoError(t, bs.Save(sc2))

	root, _ := BlockHeaderRoot(sc0.SignedBlockHeader)
	idx, err := bs.Indices(root, 6)
	require.NoError(t, err)
	require.Equal(t, []bool{true, false, true, false, false, false}, idx)
}

func TestBlobStorage_Get_NotFound(t *testing.T) {
	bs := NewEphemeralBlobStorage()
	_, err := bs.Get([32]byte{9}, 0)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestBlobStorage_PruneBefore(t *testing.T) {
	bs := NewEphemeralBlobStorage()
	keep := testSidecar(0, 10)
	drop := testSidecar(0, 20)
	require.NoError(t, bs.Save(keep))
	require.NoError(t, bs.Save(drop))

	keepRoot, _ := BlockHeaderRoot(keep.SignedBlockHeader)
	dropRoot, _ := BlockHeaderRoot(drop.SignedBlockHeader)

	summary, err := bs.PruneBefore(map[[32]byte]bool{keepRoot: true})
	require.NoError(t, err)
	require.Equal(t, 1, summary.BlocksPruned)

	_, err = bs.Get(keepRoot, 0)
	require.NoError(t, err)
	_, err = bs.Get(dropRoot, 0)
	require.ErrorIs(t, err, ErrNotFound)
}
