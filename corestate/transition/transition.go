package transition

import (
	"context"

	"github.com/pkg/errors"
	"github.com/syjn99/ream-sub001/config/params"
	"github.com/syjn99/ream-sub001/consensus-types/blocks"
	"github.com/syjn99/ream-sub001/consensus-types/primitives"
	"github.com/syjn99/ream-sub001/consensus-types/state"
	"github.com/syjn99/ream-sub001/corestate/epoch"
	"github.com/syjn99/ream-sub001/corestate/helpers"
	"github.com/syjn99/ream-sub001/crypto/bls"
	"github.com/syjn99/ream-sub001/crypto/hash"
)

var (
	errBlockSlotMismatch    = errors.New("block slot does not match state slot")
	errProposerMismatch     = errors.New("block proposer index does not match expected proposer")
	errParentRootMismatch   = errors.New("block parent root does not match state's latest block header")
	errInvalidRandaoReveal  = errors.New("invalid randao reveal signature")
	errStateRootMismatch    = errors.New("post-state root does not match block's declared state root")
	errBlockInPast          = errors.New("block slot not after state slot")
	errInvalidPayloadLink   = errors.New("execution payload does not extend latest execution payload header")
	errPayloadRejected      = errors.New("execution engine rejected payload")
)

// treeHash stands in for full SSZ HashTreeRoot (out of scope per §1): a
// deterministic hash over the struct's encoded form, sufficient for the
// state-root equality check of §4.2 step 3 and for the store's own
// indexing (beacondb/kv.BlockRoot does the analogous thing for blocks).
func treeHash(v interface{}) [32]byte {
	return hash.HashStruct(v)
}

// ProcessSlots advances st from its current slot up to (but not including
// processing of a block at) targetSlot, running process_epoch at every
// epoch boundary crossed, per §4.2 step 1. It mutates and returns st; the
// caller must pass an owned copy (st.Copy()) if the pre-state must survive
// a failure, per §4.2 "Failure modes".
func ProcessSlots(ctx context.Context, st *state.BeaconState, targetSlot primitives.Slot) (*state.BeaconState, error) {
	if st.Slot > targetSlot {
		return nil, errBlockInPast
	}
	for st.Slot < targetSlot {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := processSlot(st); err != nil {
			return nil, err
		}
		st.Slot++
		if st.Slot.IsEpochStart() {
			if err := epoch.ProcessEpoch(st); err != nil {
				return nil, errors.Wrap(err, "could not process epoch")
			}
		}
	}
	return st, nil
}

// processSlot caches the pre-increment state and block root for the slot
// about to be vacated, per §4.2 step 1 "hash the state into
// state_roots[state.slot % N]... write the parent block root into
// block_roots slot".
func processSlot(st *state.BeaconState) error {
	n := len(st.StateRoots)
	if n == 0 {
		return nil
	}
	prevRoot := treeHash(st)
	st.StateRoots[uint64(st.Slot)%uint64(n)] = prevRoot

	if st.LatestBlockHeader.StateRoot == ([32]byte{}) {
		st.LatestBlockHeader.StateRoot = prevRoot
	}

	bn := len(st.BlockRoots)
	if bn > 0 {
		headerRoot := treeHash(st.LatestBlockHeader)
		st.BlockRoots[uint64(st.Slot)%uint64(bn)] = headerRoot
	}
	return nil
}

// StateTransition implements §4.2's top-level entry point: advance st to
// signedBlock's slot, apply the block, and (when validateSignatures) check
// the declared state root. On any failure st is left partially mutated but
// the caller's original, pre-call state object is never touched because
// every caller is required to pass a copy (state.BeaconState.Copy).
func StateTransition(ctx context.Context, st *state.BeaconState, signedBlock *blocks.SignedBeaconBlock, validateSignatures bool, engine Engine) (*state.BeaconState, error) {
	b := signedBlock.Block
	st, err := ProcessSlots(ctx, st, b.Slot)
	if err != nil {
		return nil, err
	}
	if err := ProcessBlock(ctx, st, signedBlock, validateSignatures, engine); err != nil {
		return nil, err
	}
	if validateSignatures {
		root := treeHash(st)
		if root != b.StateRoot {
			return nil, errStateRootMismatch
		}
	}
	return st, nil
}

// ProcessBlock implements §4.2 step 2: header/proposer/parent checks,
// RANDAO, eth1 data, the operation dispatch in the spec's fixed order,
// sync aggregate, withdrawals, and the execution-payload engine calls.
func ProcessBlock(ctx context.Context, st *state.BeaconState, signedBlock *blocks.SignedBeaconBlock, validateSignatures bool, engine Engine) error {
	b := signedBlock.Block
	if b.Slot != st.Slot {
		return errBlockSlotMismatch
	}
	if validateSignatures {
		proposer, err := helpers.ProposerIndex(st)
		if err != nil {
			return errors.Wrap(err, "could not compute proposer index")
		}
		if proposer != b.ProposerIndex {
			return errProposerMismatch
		}
	}
	if b.ParentRoot != treeHash(st.LatestBlockHeader) {
		return errParentRootMismatch
	}

	st.LatestBlockHeader = state.BeaconBlockHeader{
		Slot:          b.Slot,
		ProposerIndex: b.ProposerIndex,
		ParentRoot:    b.ParentRoot,
		StateRoot:     [32]byte{}, // filled in by the following slot's processSlot
		BodyRoot:      treeHash(b.Body),
	}

	if validateSignatures {
		if err := processRandao(st, b, engine); err != nil {
			return err
		}
	} else {
		mixInRandao(st, b.Body.RandaoReveal)
	}

	processEth1Data(st, b.Body.Eth1Data)

	if err := processOperations(ctx, st, b.Body, validateSignatures); err != nil {
		return err
	}

	if b.Body.SyncAggregate != nil {
		if err := processSyncAggregate(st, b.Body.SyncAggregate, validateSignatures); err != nil {
			return err
		}
	}

	processWithdrawals(st, b.Body.ExecutionPayload)

	if b.Body.ExecutionPayload != nil {
		if err := processExecutionPayload(ctx, st, b, engine); err != nil {
			return err
		}
	}

	processExecutionRequests(st, b.Body.ExecutionRequests)

	return nil
}

// processRandao verifies the proposer's RANDAO reveal signature against
// the domain-separated epoch root, then mixes it into the RANDAO vector.
// This is the first of the two engine-await points is NOT this call (it
// has none); the execution-payload step below is the first real await.
func processRandao(st *state.BeaconState, b *blocks.BeaconBlock, _ Engine) error {
	proposer := st.Validators[b.ProposerIndex]
	pub, err := bls.PublicKeyFromBytes(proposer.PublicKey[:])
	if err != nil {
		return errors.Wrap(err, "invalid proposer public key")
	}
	sig, err := bls.SignatureFromBytes(b.Body.RandaoReveal[:])
	if err != nil {
		return errors.Wrap(err, "invalid randao reveal encoding")
	}
	domain := helpers.ComputeDomain(0x02000000, st.Fork.CurrentVersion, st.GenesisValidatorsRoot)
	epochRoot := treeHash(b.Slot.ToEpoch())
	signingRoot := helpers.SigningRoot(epochRoot, domain)
	if !sig.Verify(pub, signingRoot[:]) {
		return errInvalidRandaoReveal
	}
	mixInRandao(st, b.Body.RandaoReveal)
	return nil
}

func mixInRandao(st *state.BeaconState, reveal [96]byte) {
	n := len(st.RandaoMixes)
	if n == 0 {
		return
	}
	epoch := st.Slot.ToEpoch()
	cur := st.RandaoMixes[uint64(epoch)%uint64(n)]
	revealHash := hash.Hash(reveal[:])
	mixed := hash.XOR(cur, revealHash)
	st.RandaoMixes[uint64(epoch)%uint64(n)] = mixed
}

// epochsPerEth1VotingPeriod mirrors the consensus spec's
// EPOCHS_PER_ETH1_VOTING_PERIOD.
const epochsPerEth1VotingPeriod = 64

// processEth1Data appends the proposer's eth1 vote and, once a majority of
// the voting-period window agrees, adopts it as state.Eth1Data.
func processEth1Data(st *state.BeaconState, vote state.Eth1Data) {
	st.Eth1DataVotes = append(st.Eth1DataVotes, vote)
	count := 0
	for _, v := range st.Eth1DataVotes {
		if v == vote {
			count++
		}
	}
	window := epochsPerEth1VotingPeriod * params.BeaconConfig().SlotsPerEpoch
	if uint64(count)*2 > window {
		st.Eth1Data = vote
	}
}
