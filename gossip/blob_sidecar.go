package gossip

import (
	"context"

	"github.com/syjn99/ream-sub001/config/params"
	"github.com/syjn99/ream-sub001/consensus-types/blocks"
	"github.com/syjn99/ream-sub001/consensus-types/primitives"
	"github.com/syjn99/ream-sub001/corestate/helpers"
	"github.com/syjn99/ream-sub001/crypto/bls"
	"github.com/syjn99/ream-sub001/crypto/hash"
	"github.com/syjn99/ream-sub001/crypto/kzg"
)

// BlobSidecarValidator implements §4.5's blob_sidecar rule: index bound,
// subnet equals index, slot not future and not at or before finalized
// slot, proposer signature on the header valid, parent known and of an
// older slot, finalized ancestry, inclusion proof verifies, KZG proof
// batch-verifies, first-seen for (slot, proposer, index), and the
// proposer matches the computed shuffling.
type BlobSidecarValidator struct {
	chain ChainReader
	seen  *seenCache
}

// NewBlobSidecarValidator returns a validator backed by chain.
func NewBlobSidecarValidator(chain ChainReader) *BlobSidecarValidator {
	return &BlobSidecarValidator{chain: chain, seen: newSeenCache()}
}

type slotProposerIndexKey struct {
	slot      primitives.Slot
	proposer  primitives.ValidatorIndex
	index     uint64
}

// blobBodyRootGeneralizedIndex is the generalized index of the first blob
// KZG commitment within the beacon block body's Merkle tree, offset by
// the sidecar's position among MAX_BLOBS_PER_BLOCK slots.
const blobBodyRootGeneralizedIndex = 6

// Validate applies §4.5's blob-sidecar rule to sidecar on subnet.
func (v *BlobSidecarValidator) Validate(ctx context.Context, sidecar *blocks.BlobSidecar, subnet uint64) Result {
	if v.chain == nil {
		return ResultIgnore
	}
	cfg := params.BeaconConfig()
	if sidecar.Index >= cfg.MaxBlobsPerBlock {
		return ResultReject
	}
	if sidecar.Index != subnet {
		return ResultReject
	}

	header := sidecar.SignedBlockHeader.Header
	currentSlot := v.chain.CurrentSlot()
	if header.Slot > currentSlot {
		return ResultIgnore
	}
	finalized := v.chain.FinalizedCheckpoint()
	finalizedSlot := finalized.Epoch.StartSlot()
	if header.Slot <= finalizedSlot {
		return ResultIgnore
	}

	parent, ok, err := v.chain.Block(ctx, header.ParentRoot)
	if err != nil {
		return ResultIgnore
	}
	if !ok {
		return ResultIgnore
	}
	if parent.Block.Slot >= header.Slot {
		return ResultReject
	}
	isAncestor, err := v.chain.IsAncestor(ctx, finalized.Root, header.ParentRoot)
	if err != nil || !isAncestor {
		return ResultReject
	}

	key := slotProposerIndexKey{slot: header.Slot, proposer: header.ProposerIndex, index: sidecar.Index}
	if v.seen.Has(key) {
		return ResultIgnore
	}

	commitmentLeaf := hash.Hash(sidecar.KZGCommitment[:])
	if !hash.VerifyMerkleProof(header.BodyRoot, commitmentLeaf, blobBodyRootGeneralizedIndex+sidecar.Index, sidecar.CommitmentInclusionProof) {
		return ResultReject
	}

	if err := kzg.VerifyBlobKZGProofBatch([]kzg.Blob{kzg.Blob(toBlobArray(sidecar.Blob))}, []kzg.Commitment{sidecar.KZGCommitment}, []kzg.Proof{sidecar.KZGProof}); err != nil {
		return ResultReject
	}

	headState, err := v.chain.HeadState(ctx)
	if err != nil {
		return ResultIgnore
	}
	proposerIndex, err := helpers.ProposerIndex(headState)
	if err != nil {
		return ResultIgnore
	}
	if proposerIndex != header.ProposerIndex {
		return ResultReject
	}
	if int(header.ProposerIndex) >= len(headState.Validators) {
		return ResultReject
	}
	pub, err := bls.PublicKeyFromBytes(headState.Validators[header.ProposerIndex].PublicKey[:])
	if err != nil {
		return ResultReject
	}
	sig, err := bls.SignatureFromBytes(sidecar.SignedBlockHeader.Signature[:])
	if err != nil {
		return ResultReject
	}
	domain := helpers.ComputeDomain(0x00000000, headState.Fork.CurrentVersion, headState.GenesisValidatorsRoot)
	root := hash.HashStruct(header)
	signingRoot := helpers.SigningRoot(root, domain)
	if !sig.Verify(pub, signingRoot[:]) {
		return ResultReject
	}
	v.seen.AddIfNew(key)
	return ResultAccept
}

func toBlobArray(b []byte) [131072]byte {
	var out [131072]byte
	copy(out[:], b)
	return out
}
