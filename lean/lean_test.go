package lean

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsJustifiableSlot_SmallDelta(t *testing.T) {
	require.True(t, IsJustifiableSlot(10, 15))
	require.True(t, IsJustifiableSlot(10, 10))
}

func TestIsJustifiableSlot_PerfectSquare(t *testing.T) {
	// delta 9 = 3^2.
	require.True(t, IsJustifiableSlot(0, 9))
	// delta 16 = 4^2.
	require.True(t, IsJustifiableSlot(0, 16))
	// delta 10 is neither <=5, square, nor oblong.
	require.False(t, IsJustifiableSlot(0, 10))
}

func TestIsJustifiableSlot_Oblong(t *testing.T) {
	// delta 6 = 2*3 is oblong.
	require.True(t, IsJustifiableSlot(0, 6))
	// delta 12 = 3*4 is oblong.
	require.True(t, IsJustifiableSlot(0, 12))
}

func hashByte(b byte) [32]byte {
	var h [32]byte
	h[31] = b
	return h
}

func TestGetForkChoiceHead_SimpleChain(t *testing.T) {
	genesis := hashByte(0)
	b1 := hashByte(1)
	b2 := hashByte(2)
	blocks := map[[32]byte]*Block{
		genesis: {Slot: 0, ParentRoot: [32]byte{}},
		b1:      {Slot: 1, ParentRoot: genesis},
		b2:      {Slot: 2, ParentRoot: b1},
	}
	votes := []Vote{
		{ValidatorIndex: 0, Slot: 2, Head: Checkpoint{Slot: 2, Root: b2}},
	}
	head, err := GetForkChoiceHead(blocks, genesis, votes, 0)
	require.NoError(t, err)
	require.Equal(t, b2, head)
}

func TestGetForkChoiceHead_MajorityBranchWins(t *testing.T) {
	genesis := hashByte(0)
	a := hashByte(1)
	b := hashByte(2)
	blocks := map[[32]byte]*Block{
		genesis: {Slot: 0, ParentRoot: [32]byte{}},
		a:       {Slot: 1, ParentRoot: genesis},
		b:       {Slot: 1, ParentRoot: genesis},
	}
	votes := []Vote{
		{ValidatorIndex: 0, Slot: 1, Head: Checkpoint{Slot: 1, Root: a}},
		{ValidatorIndex: 1, Slot: 1, Head: Checkpoint{Slot: 1, Root: b}},
		{ValidatorIndex: 2, Slot: 1, Head: Checkpoint{Slot: 1, Root: b}},
	}
	head, err := GetForkChoiceHead(blocks, genesis, votes, 0)
	require.NoError(t, err)
	require.Equal(t, b, head)
}

func TestProcessBlock_JustifiesAndFinalizes(t *testing.T) {
	cfg := Config{NumValidators: 3, GenesisTime: 0}
	st := NewGenesisState(cfg)

	genesis := hashByte(0)
	block1 := &Block{Slot: 1, ParentRoot: genesis}
	st1, err := ProcessBlock(st, block1)
	require.NoError(t, err)
	require.Len(t, st1.HistoricalBlockHashes, 1)

	source := Checkpoint{Slot: 0, Root: genesis}
	block2 := &Block{
		Slot:       2,
		ParentRoot: st1.HistoricalBlockHashes[0],
		Votes: []Vote{
			{ValidatorIndex: 0, Slot: 2, Source: source, Target: Checkpoint{Slot: 1, Root: st1.HistoricalBlockHashes[0]}},
			{ValidatorIndex: 1, Slot: 2, Source: source, Target: Checkpoint{Slot: 1, Root: st1.HistoricalBlockHashes[0]}},
		},
	}
	// Seed justified_slots[0] = true to simulate genesis being justified,
	// and historical hash at slot 0 = genesis, matching the Rust
	// implementation's genesis bootstrapping.
	st1.JustifiedSlots[0] = true
	st1.HistoricalBlockHashes[0] = genesis

	st2, err := ProcessBlock(st1, block2)
	require.NoError(t, err)
	require.Equal(t, st1.HistoricalBlockHashes[0], st2.LatestJustifiedHash)
	require.EqualValues(t, 1, st2.LatestJustifiedSlot)
	require.Equal(t, genesis, st2.LatestFinalizedHash)
}
