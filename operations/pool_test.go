package operations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syjn99/ream-sub001/consensus-types/blocks"
	"github.com/syjn99/ream-sub001/consensus-types/primitives"
)

func TestExitPool_InsertAndDedup(t *testing.T) {
	pool := NewExitPool()
	exit := &blocks.SignedVoluntaryExit{Exit: &blocks.VoluntaryExit{ValidatorIndex: 5, Epoch: 10}}

	pool.InsertVoluntaryExit(exit)
	require.Len(t, pool.PendingExits(), 1)
	assert.True(t, pool.HasSeen(5))
	assert.False(t, pool.HasSeen(6))

	// A second insert for the same validator index is a no-op.
	dup := &blocks.SignedVoluntaryExit{Exit: &blocks.VoluntaryExit{ValidatorIndex: 5, Epoch: 99}}
	pool.InsertVoluntaryExit(dup)
	require.Len(t, pool.PendingExits(), 1)
	assert.Equal(t, primitives.Epoch(10), pool.PendingExits()[0].Exit.Epoch)
}

func TestExitPool_MarkIncludedRejectsReplay(t *testing.T) {
	pool := NewExitPool()
	exit := &blocks.SignedVoluntaryExit{Exit: &blocks.VoluntaryExit{ValidatorIndex: 7}}
	pool.InsertVoluntaryExit(exit)
	pool.MarkIncluded(7)

	assert.Empty(t, pool.PendingExits())
	assert.True(t, pool.HasSeen(7))

	// A re-gossiped copy must never be re-queued once included.
	pool.InsertVoluntaryExit(exit)
	assert.Empty(t, pool.PendingExits())
}

func TestExitPool_Clean(t *testing.T) {
	pool := NewExitPool()
	pool.InsertVoluntaryExit(&blocks.SignedVoluntaryExit{Exit: &blocks.VoluntaryExit{ValidatorIndex: 1}})
	pool.InsertVoluntaryExit(&blocks.SignedVoluntaryExit{Exit: &blocks.VoluntaryExit{ValidatorIndex: 2}})

	withdrawable := map[primitives.ValidatorIndex]primitives.Epoch{1: 3}
	pool.Clean(func(idx primitives.ValidatorIndex) (primitives.Epoch, bool) {
		e, ok := withdrawable[idx]
		return e, ok
	}, 5)

	assert.False(t, pool.HasSeen(1))
	assert.True(t, pool.HasSeen(2))
}

func TestBLSToExecPool_InsertAndDedup(t *testing.T) {
	pool := NewBLSToExecPool()
	change := &blocks.SignedBLSToExecutionChange{
		Change: &blocks.BLSToExecutionChange{ValidatorIndex: 3, FromBLSPublicKey: [48]byte{1}},
	}
	pool.InsertBLSToExecChange(change)
	require.Len(t, pool.PendingBLSToExecChanges(), 1)
	assert.True(t, pool.HasSeen(change.Change))

	other := &blocks.BLSToExecutionChange{ValidatorIndex: 3, FromBLSPublicKey: [48]byte{1}}
	assert.True(t, pool.HasSeen(other))

	pool.MarkIncluded(change.Change)
	assert.True(t, pool.HasSeen(change.Change))
	assert.Empty(t, pool.PendingBLSToExecChanges())

	// A re-gossiped copy of an already-included change must not be
	// re-queued.
	pool.InsertBLSToExecChange(change)
	assert.Empty(t, pool.PendingBLSToExecChanges())
}

func TestBLSToExecPool_Clean(t *testing.T) {
	pool := NewBLSToExecPool()
	change := &blocks.SignedBLSToExecutionChange{
		Change: &blocks.BLSToExecutionChange{ValidatorIndex: 3, FromBLSPublicKey: [48]byte{1}},
	}
	pool.InsertBLSToExecChange(change)
	pool.MarkIncluded(change.Change)
	require.True(t, pool.HasSeen(change.Change))

	// Credentials still BLS-type: entry survives Clean.
	pool.Clean(func(idx primitives.ValidatorIndex) bool { return false })
	assert.True(t, pool.HasSeen(change.Change))

	// Credentials now execution-type: entry is dropped.
	pool.Clean(func(idx primitives.ValidatorIndex) bool { return idx == 3 })
	assert.False(t, pool.HasSeen(change.Change))
}

func TestSlashingPool_ProposerSlashing(t *testing.T) {
	pool := NewSlashingPool()
	slashing := &blocks.ProposerSlashing{}

	assert.True(t, pool.InsertProposerSlashing(9, slashing))
	require.Len(t, pool.PendingProposerSlashings(), 1)

	// Already-pending insert is allowed to replace, but once marked
	// slashed a further insert for the same proposer must be rejected.
	pool.MarkProposerSlashed(9)
	assert.False(t, pool.InsertProposerSlashing(9, slashing))
	assert.Empty(t, pool.PendingProposerSlashings())
}

func TestSlashingPool_AttesterSlashing(t *testing.T) {
	pool := NewSlashingPool()
	slashing := &blocks.AttesterSlashing{
		Attestation1: &blocks.IndexedAttestation{AttestingIndices: []primitives.ValidatorIndex{1, 2, 3}},
		Attestation2: &blocks.IndexedAttestation{AttestingIndices: []primitives.ValidatorIndex{2, 3, 4}},
	}

	require.True(t, pool.InsertAttesterSlashing(slashing))
	require.Len(t, pool.PendingAttesterSlashings(), 1)

	// An identical slashing is a duplicate and must be rejected.
	dup := &blocks.AttesterSlashing{
		Attestation1: &blocks.IndexedAttestation{AttestingIndices: []primitives.ValidatorIndex{1, 2, 3}},
		Attestation2: &blocks.IndexedAttestation{AttestingIndices: []primitives.ValidatorIndex{2, 3, 4}},
	}
	assert.False(t, pool.InsertAttesterSlashing(dup))

	pool.MarkAttesterSlashed(slashing)
	assert.Empty(t, pool.PendingAttesterSlashings())

	// Every index in the intersection {2,3} is now slashed, so a new
	// slashing naming only those indices as its intersection has nothing
	// left to contribute and must be rejected.
	noNewIndices := &blocks.AttesterSlashing{
		Attestation1: &blocks.IndexedAttestation{AttestingIndices: []primitives.ValidatorIndex{2, 3}},
		Attestation2: &blocks.IndexedAttestation{AttestingIndices: []primitives.ValidatorIndex{2, 3}},
	}
	assert.False(t, pool.InsertAttesterSlashing(noNewIndices))

	// A slashing whose intersection includes a not-yet-slashed index (5)
	// must still be accepted.
	freshIndex := &blocks.AttesterSlashing{
		Attestation1: &blocks.IndexedAttestation{AttestingIndices: []primitives.ValidatorIndex{2, 5}},
		Attestation2: &blocks.IndexedAttestation{AttestingIndices: []primitives.ValidatorIndex{2, 5}},
	}
	assert.True(t, pool.InsertAttesterSlashing(freshIndex))
}

func TestSlashingPool_Clean(t *testing.T) {
	pool := NewSlashingPool()
	proposerSlashing := &blocks.ProposerSlashing{}
	pool.InsertProposerSlashing(9, proposerSlashing)
	pool.MarkProposerSlashed(9)

	attesterSlashing := &blocks.AttesterSlashing{
		Attestation1: &blocks.IndexedAttestation{AttestingIndices: []primitives.ValidatorIndex{1, 2}},
		Attestation2: &blocks.IndexedAttestation{AttestingIndices: []primitives.ValidatorIndex{1, 2}},
	}
	require.True(t, pool.InsertAttesterSlashing(attesterSlashing))
	pool.MarkAttesterSlashed(attesterSlashing)

	withdrawable := map[primitives.ValidatorIndex]primitives.Epoch{}
	lookup := func(idx primitives.ValidatorIndex) (primitives.Epoch, bool) {
		e, ok := withdrawable[idx]
		return e, ok
	}

	// Nobody withdrawable yet: bookkeeping entries survive.
	pool.Clean(lookup, 10)
	assert.False(t, pool.InsertProposerSlashing(9, proposerSlashing))
	assert.False(t, pool.InsertAttesterSlashing(attesterSlashing))

	// Index 9 and both 1,2 withdrawable at epoch 5: all bookkeeping drops,
	// so a later (fresh) insert for the same subjects succeeds again.
	withdrawable[9] = 5
	withdrawable[1] = 5
	withdrawable[2] = 5
	pool.Clean(lookup, 10)
	assert.True(t, pool.InsertProposerSlashing(9, proposerSlashing))
	assert.True(t, pool.InsertAttesterSlashing(attesterSlashing))
}

func TestPreparationPool_InsertAndLookup(t *testing.T) {
	pool := NewPreparationPool()
	_, ok := pool.FeeRecipient(11)
	assert.False(t, ok)

	prep := &ProposerPreparation{ValidatorIndex: 11, FeeRecipient: [20]byte{0xAB}, Epoch: 4}
	pool.Insert(prep)

	recipient, ok := pool.FeeRecipient(11)
	require.True(t, ok)
	assert.Equal(t, [20]byte{0xAB}, recipient)

	// Re-registration refreshes the same subject rather than duplicating it.
	pool.Insert(&ProposerPreparation{ValidatorIndex: 11, FeeRecipient: [20]byte{0xCD}, Epoch: 5})
	recipient, ok = pool.FeeRecipient(11)
	require.True(t, ok)
	assert.Equal(t, [20]byte{0xCD}, recipient)
}
