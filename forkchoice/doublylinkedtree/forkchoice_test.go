package doublylinkedtree

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/syjn99/ream-sub001/consensus-types/primitives"
	"github.com/syjn99/ream-sub001/forkchoice"
	fctypes "github.com/syjn99/ream-sub001/forkchoice/types"
)

func indexToHash(i uint64) [32]byte {
	var h [32]byte
	h[31] = byte(i)
	h[30] = byte(i >> 8)
	return h
}

func insertBlock(t *testing.T, f *ForkChoice, slot uint64, root, parent [32]byte) {
	t.Helper()
	require.NoError(t, f.InsertNode(context.Background(), &forkchoice.BlockAndCheckpoints{
		Slot:       slot,
		Root:       root,
		ParentRoot: parent,
	}))
}

func setJustified(f *ForkChoice, root [32]byte) {
	f.store.nodesLock.Lock()
	defer f.store.nodesLock.Unlock()
	f.store.justifiedCheckpoint = &fctypes.Checkpoint{Epoch: 0, Root: root}
}

func TestForkChoice_HeadOnSingleChain(t *testing.T) {
	f := New(0, 0)
	ctx := context.Background()
	genesis := indexToHash(0)
	insertBlock(t, f, 0, genesis, [32]byte{})

	for i := uint64(1); i <= 32; i++ {
		insertBlock(t, f, i, indexToHash(i), indexToHash(i-1))
	}
	setJustified(f, genesis)

	head, err := f.Head(ctx)
	require.NoError(t, err)
	require.Equal(t, indexToHash(32), head)
}

func TestForkChoice_HeavierBranchWins(t *testing.T) {
	f := New(0, 0)
	ctx := context.Background()
	genesis := indexToHash(0)
	insertBlock(t, f, 0, genesis, [32]byte{})
	setJustified(f, genesis)

	// branch A: 1 attester, inserted first.
	a := indexToHash(11)
	insertBlock(t, f, 10, a, genesis)
	// branch B: 2 attesters, inserted after A.
	b := indexToHash(12)
	insertBlock(t, f, 10, b, genesis)

	f.SetBalances(map[primitives.ValidatorIndex]uint64{0: 32, 1: 32, 2: 32})
	f.ProcessAttestation(ctx, []uint64{0}, a, 1)
	f.ProcessAttestation(ctx, []uint64{1, 2}, b, 1)

	head, err := f.Head(ctx)
	require.NoError(t, err)
	require.Equal(t, b, head, "heavier branch B must win even though A was inserted first")
}

func TestForkChoice_EquivocationZeroesWeight(t *testing.T) {
	f := New(0, 0)
	ctx := context.Background()
	genesis := indexToHash(0)
	insertBlock(t, f, 0, genesis, [32]byte{})
	setJustified(f, genesis)

	a := indexToHash(21)
	b := indexToHash(22)
	insertBlock(t, f, 10, a, genesis)
	insertBlock(t, f, 10, b, genesis)

	f.SetBalances(map[primitives.ValidatorIndex]uint64{0: 32})
	f.ProcessAttestation(ctx, []uint64{0}, a, 1)
	w, err := f.Weight(a)
	require.NoError(t, err)
	require.Equal(t, uint64(32), w)

	f.InsertSlashedIndex(ctx, 0)
	w, err = f.Weight(a)
	require.NoError(t, err)
	require.Equal(t, uint64(0), w, "equivocating index must contribute zero weight")
}

func TestForkChoice_ProposerBoostDecaysOnTick(t *testing.T) {
	f := New(0, 0)
	ctx := context.Background()
	genesis := indexToHash(0)
	require.NoError(t, f.InsertNode(ctx, &forkchoice.BlockAndCheckpoints{Root: genesis}))
	f.SetGenesisTime(0)
	require.NoError(t, f.OnTick(ctx, 0))

	f.store.nodesLock.Lock()
	f.store.proposerBoostRoot = genesis
	f.store.nodesLock.Unlock()
	require.Equal(t, genesis, f.ProposerBoost())

	// Advance into the next slot: boost must clear (§8 "Proposer boost decay").
	require.NoError(t, f.OnTick(ctx, 12))
	require.Equal(t, [32]byte{}, f.ProposerBoost())
}

func TestForkChoice_OnTick_Monotonic(t *testing.T) {
	f := New(0, 0)
	ctx := context.Background()
	f.SetGenesisTime(100)
	require.NoError(t, f.OnTick(ctx, 112))
	require.Equal(t, primitives.Slot(1), f.store.currentSlot)
	require.NoError(t, f.OnTick(ctx, 100))
	require.Equal(t, primitives.Slot(1), f.store.currentSlot, "a tick with new_time <= current_time must be a no-op")
}

func TestForkChoice_ViableForHead_UnrealizedJustifiedAheadOfStore(t *testing.T) {
	f := New(0, 0)
	ctx := context.Background()
	genesis := indexToHash(0)
	insertBlock(t, f, 0, genesis, [32]byte{})
	setJustified(f, genesis)

	f.store.nodesLock.Lock()
	f.store.justifiedCheckpoint = &fctypes.Checkpoint{Epoch: 3, Root: genesis}
	f.store.nodesLock.Unlock()

	// branch X: unrealized-justified epoch equal to the store's (viable
	// under both the old and the fixed rule), lighter weight.
	x := indexToHash(31)
	require.NoError(t, f.InsertNode(ctx, &forkchoice.BlockAndCheckpoints{
		Slot: 10, Root: x, ParentRoot: genesis,
		UnrealizedJustified: fctypes.Checkpoint{Epoch: 3},
	}))
	// branch Y: unrealized-justified epoch strictly ahead of the store's
	// justified epoch (3 -> 4). Only viable under the `>=` rule; the
	// buggy `==` rule would wrongly exclude it from head candidacy.
	y := indexToHash(32)
	require.NoError(t, f.InsertNode(ctx, &forkchoice.BlockAndCheckpoints{
		Slot: 10, Root: y, ParentRoot: genesis,
		UnrealizedJustified: fctypes.Checkpoint{Epoch: 4},
	}))

	f.SetBalances(map[primitives.ValidatorIndex]uint64{0: 32, 1: 32})
	f.ProcessAttestation(ctx, []uint64{0}, x, 1)
	f.ProcessAttestation(ctx, []uint64{1}, y, 1)

	head, err := f.Head(ctx)
	require.NoError(t, err)
	require.Equal(t, y, head, "a node whose unrealized-justified epoch has advanced past the store's justified epoch must remain head-viable")
}

func TestForkChoice_HasNodeAndCount(t *testing.T) {
	f := New(0, 0)
	genesis := indexToHash(0)
	insertBlock(t, f, 0, genesis, [32]byte{})
	require.True(t, f.HasNode(genesis))
	require.False(t, f.HasNode(indexToHash(99)))
	require.Equal(t, 1, f.NodeCount())
}
