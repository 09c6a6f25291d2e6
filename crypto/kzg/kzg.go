// Package kzg wraps github.com/crate-crypto/go-eth-kzg with the batch
// verification surface blob-sidecar gossip validation (C5) needs. KZG is a
// trusted library dependency per spec.md §6, exactly like BLS in
// crypto/bls; this seam keeps that trust boundary explicit and testable
// in isolation.
package kzg

import (
	"github.com/crate-crypto/go-eth-kzg"
	"github.com/pkg/errors"
)

var ctx = gokzg4844.NewContext4096()

// Blob is a single data blob (BYTES_PER_BLOB).
type Blob = gokzg4844.Blob

// Commitment is a compressed KZG commitment.
type Commitment = gokzg4844.KZGCommitment

// Proof is a compressed KZG opening proof.
type Proof = gokzg4844.KZGProof

// VerifyBlobKZGProofBatch batch-verifies that each (blob, commitment,
// proof) triple is a valid KZG opening, as required by the blob-sidecar
// gossip validator (§4.5 "KZG proof batch-verifies").
func VerifyBlobKZGProofBatch(blobs []Blob, commitments []Commitment, proofs []Proof) error {
	if len(blobs) != len(commitments) || len(blobs) != len(proofs) {
		return errors.New("mismatched blob/commitment/proof batch lengths")
	}
	if len(blobs) == 0 {
		return nil
	}
	if err := ctx.VerifyBlobKZGProofBatch(blobs, commitments, proofs); err != nil {
		return errors.Wrap(err, "batch KZG proof verification failed")
	}
	return nil
}

// BlobToCommitment derives the KZG commitment for a blob, used by block
// proposal (outside this module's core scope) and by tests constructing
// fixtures.
func BlobToCommitment(b Blob) (Commitment, error) {
	return ctx.BlobToKZGCommitment(&b, 0)
}
