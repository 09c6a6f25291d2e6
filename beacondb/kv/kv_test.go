package kv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/syjn99/ream-sub001/consensus-types/blocks"
	"github.com/syjn99/ream-sub001/consensus-types/primitives"
	"github.com/syjn99/ream-sub001/consensus-types/state"
	fctypes "github.com/syjn99/ream-sub001/forkchoice/types"
)

func setupDB(t *testing.T) *Store {
	s, err := NewKVStore(context.Background(), t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, s.Close())
	})
	return s
}

func testBlock(slot primitives.Slot, parent [32]byte) *blocks.SignedBeaconBlock {
	return &blocks.SignedBeaconBlock{
		Block: &blocks.BeaconBlock{
			Slot:       slot,
			ParentRoot: parent,
			Body:       &blocks.BeaconBlockBody{},
		},
	}
}

func TestStore_SaveBlock_RoundTrip(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	b := testBlock(1, [32]byte{1})
	root, err := BlockRoot(b)
	require.NoError(t, err)

	require.False(t, db.HasBlock(ctx, root))
	require.NoError(t, db.SaveBlock(ctx, b))
	require.True(t, db.HasBlock(ctx, root))

	got, found, err := db.Block(ctx, root)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, b.Block.Slot, got.Block.Slot)
}

func TestStore_SaveBlock_NoDuplicates(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	b := testBlock(2, [32]byte{2})

	require.NoError(t, db.SaveBlock(ctx, b))
	require.NoError(t, db.SaveBlock(ctx, b))

	root, err := BlockRoot(b)
	require.NoError(t, err)
	children, err := db.ChildrenOf(ctx, b.Block.ParentRoot)
	require.NoError(t, err)
	require.Len(t, children, 1)
	require.Equal(t, root, children[0])
}

func TestStore_BlockIndices(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	parent := [32]byte{9}
	b1 := testBlock(5, parent)
	b2 := testBlock(6, parent)
	require.NoError(t, db.SaveBlock(ctx, b1))
	require.NoError(t, db.SaveBlock(ctx, b2))

	root1, _ := BlockRoot(b1)
	gotRoot, found, err := db.BlockRootBySlot(ctx, 5)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, root1, gotRoot)

	children, err := db.ChildrenOf(ctx, parent)
	require.NoError(t, err)
	require.Len(t, children, 2)

	highest, found, err := db.HighestBlockSlot(ctx)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, uint64(6), highest)
}

func TestStore_State_RoundTrip(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	st := &state.BeaconState{Slot: 10, Validators: []*state.Validator{{EffectiveBalance: 32e9}}}
	blockRoot := [32]byte{7}
	require.NoError(t, db.SaveState(ctx, blockRoot, st))

	got, found, err := db.State(ctx, blockRoot)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, st.Slot, got.Slot)
	require.Len(t, got.Validators, 1)
}

func TestStore_Checkpoints(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	_, found, err := db.JustifiedCheckpoint(ctx)
	require.NoError(t, err)
	require.False(t, found)

	cp := &fctypes.Checkpoint{Epoch: 3, Root: [32]byte{3}}
	require.NoError(t, db.SaveJustifiedCheckpoint(ctx, cp))

	got, found, err := db.JustifiedCheckpoint(ctx)
	require.NoError(t, err)
	require.True(t, found)
	require.True(t, cp.Equal(got))
}

func TestStore_GenesisRoot(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	root := [32]byte{4, 2}
	require.NoError(t, db.SaveGenesisRoot(ctx, root))

	got, found, err := db.GenesisRoot(ctx)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, root, got)
}
