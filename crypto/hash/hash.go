// Package hash provides the SHA-256 and Merkle helpers the core treats as
// trusted primitives per spec.md §6. It also hosts a simplified
// Merkleization routine standing in for the real SSZ hash-tree-root
// algorithm: spec.md §1 places "individual SSZ container definitions"
// out of scope, so this package supplies a gob-based stand-in (HashStruct)
// without reproducing the full SSZ chunk/mixin/padding algorithm
// field-by-field (see DESIGN.md). consensus-types declares no
// Marshaler/HashTreeRoot interface for it to implement.
package hash

import (
	"bytes"
	"crypto/sha256"
	"encoding/gob"
)

// Hash returns SHA-256(data).
func Hash(data []byte) [32]byte {
	return sha256.Sum256(data)
}

// XOR returns the byte-wise exclusive-or of a and b, the combining step
// RANDAO mixing applies between the running mix and each proposer's reveal.
func XOR(a, b [32]byte) [32]byte {
	var out [32]byte
	for i := range out {
		out[i] = a[i] ^ b[i]
	}
	return out
}

// HashStruct stands in for SSZ hash-tree-root (out of scope per spec.md
// §1, see this package's doc comment): it gob-encodes v and hashes the
// result, giving every caller in corestate/transition and corestate/epoch
// a single deterministic, collision-resistant root function without
// reproducing the full SSZ Merkleization algorithm field-by-field.
func HashStruct(v interface{}) [32]byte {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		// Encoding a well-formed in-memory struct graph cannot fail;
		// a failure here means a caller passed an unencodable type
		// (e.g. a bare func/chan field), which is a programming error.
		panic(err)
	}
	return sha256.Sum256(buf.Bytes())
}

// HashPair returns SHA-256(a || b), the binary Merkle-tree combining step
// every SSZ hash-tree-root ultimately reduces to.
func HashPair(a, b [32]byte) [32]byte {
	var buf [64]byte
	copy(buf[:32], a[:])
	copy(buf[32:], b[:])
	return sha256.Sum256(buf[:])
}

// Merkleize builds a binary Merkle tree over leaves, zero-padding to the
// next power of two, and returns the root. This is the generic primitive
// SSZ container/list hash-tree-root and Merkle-inclusion-proof
// verification both reduce to.
func Merkleize(leaves [][32]byte) [32]byte {
	if len(leaves) == 0 {
		return [32]byte{}
	}
	n := nextPowerOfTwo(len(leaves))
	layer := make([][32]byte, n)
	copy(layer, leaves)
	for len(layer) > 1 {
		next := make([][32]byte, len(layer)/2)
		for i := range next {
			next[i] = HashPair(layer[2*i], layer[2*i+1])
		}
		layer = next
	}
	return layer[0]
}

// VerifyMerkleProof verifies that leaf, combined up through proof at the
// given generalized index, produces root. Used by blob-sidecar inclusion
// proofs (§3).
func VerifyMerkleProof(root, leaf [32]byte, index uint64, proof [][32]byte) bool {
	computed := leaf
	for _, p := range proof {
		if index&1 == 1 {
			computed = HashPair(p, computed)
		} else {
			computed = HashPair(computed, p)
		}
		index >>= 1
	}
	return computed == root
}

func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p *= 2
	}
	if p == 0 {
		p = 1
	}
	return p
}
