// Package bls wraps github.com/supranational/blst with the narrow
// sign/verify/aggregate surface the core consumes. BLS itself is a
// trusted library dependency per spec.md §6 ("Cryptographic primitives...
// are treated as trusted library dependencies with the signatures
// described in §6"); this package is the seam between that trust boundary
// and the rest of the module, mirroring prysm's crypto/bls package shape.
package bls

import (
	"github.com/pkg/errors"
	blst "github.com/supranational/blst/bindings/go"
)

const (
	// PublicKeyLength is the length of a compressed BLS12-381 G1 public key.
	PublicKeyLength = 48
	// SignatureLength is the length of a compressed BLS12-381 G2 signature.
	SignatureLength = 96
	// SecretKeyLength is the length of a BLS12-381 scalar secret key.
	SecretKeyLength = 32
)

var (
	// ErrInvalidSignature is returned when a signature fails to verify.
	ErrInvalidSignature = errors.New("invalid bls signature")
	dst                 = []byte("BLS_SIG_BLS12381G2_XMD:SHA-256_SSZ_RO_POP_")
)

// SecretKey wraps a blst secret scalar.
type SecretKey struct {
	inner *blst.SecretKey
}

// PublicKey wraps a compressed, deserialized blst G1 point.
type PublicKey struct {
	inner *blst.P1Affine
}

// Signature wraps a compressed, deserialized blst G2 point.
type Signature struct {
	inner *blst.P2Affine
}

// SecretKeyFromBytes deserializes a 32-byte scalar.
func SecretKeyFromBytes(b []byte) (*SecretKey, error) {
	if len(b) != SecretKeyLength {
		return nil, errors.Errorf("secret key must be %d bytes", SecretKeyLength)
	}
	sk := new(blst.SecretKey).Deserialize(b)
	if sk == nil {
		return nil, errors.New("could not deserialize secret key")
	}
	return &SecretKey{inner: sk}, nil
}

// PublicKey derives the public key for sk.
func (sk *SecretKey) PublicKey() *PublicKey {
	pk := new(blst.P1Affine).From(sk.inner)
	return &PublicKey{inner: pk}
}

// Sign signs msg, returning a compressed signature.
func (sk *SecretKey) Sign(msg []byte) *Signature {
	sig := new(blst.P2Affine).Sign(sk.inner, msg, dst)
	return &Signature{inner: sig}
}

// PublicKeyFromBytes deserializes a compressed 48-byte public key.
func PublicKeyFromBytes(b []byte) (*PublicKey, error) {
	if len(b) != PublicKeyLength {
		return nil, errors.Errorf("public key must be %d bytes", PublicKeyLength)
	}
	p := new(blst.P1Affine).Uncompress(b)
	if p == nil || !p.KeyValidate() {
		return nil, errors.New("invalid public key")
	}
	return &PublicKey{inner: p}, nil
}

// Marshal returns the compressed public key bytes.
func (p *PublicKey) Marshal() []byte {
	return p.inner.Compress()
}

// SignatureFromBytes deserializes a compressed 96-byte signature.
func SignatureFromBytes(b []byte) (*Signature, error) {
	if len(b) != SignatureLength {
		return nil, errors.Errorf("signature must be %d bytes", SignatureLength)
	}
	s := new(blst.P2Affine).Uncompress(b)
	if s == nil {
		return nil, errors.New("invalid signature")
	}
	return &Signature{inner: s}, nil
}

// Verify reports whether sig is a valid signature by pub over msg.
func (s *Signature) Verify(pub *PublicKey, msg []byte) bool {
	return s.inner.Verify(true, pub.inner, true, msg, dst)
}

// AggregateVerify verifies an aggregate signature over (pubkey, message)
// pairs, one message per public key.
func AggregateVerify(sig *Signature, pubs []*PublicKey, msgs [][]byte) bool {
	if len(pubs) != len(msgs) || len(pubs) == 0 {
		return false
	}
	raw := make([]*blst.P1Affine, len(pubs))
	for i, p := range pubs {
		raw[i] = p.inner
	}
	return sig.inner.AggregateVerify(true, raw, true, msgs, dst)
}

// FastAggregateVerify verifies an aggregate signature where every signer
// signed the same message (the sync-committee and proposer-signature
// case).
func FastAggregateVerify(sig *Signature, pubs []*PublicKey, msg []byte) bool {
	raw := make([]*blst.P1Affine, len(pubs))
	for i, p := range pubs {
		raw[i] = p.inner
	}
	return sig.inner.FastAggregateVerify(true, raw, msg, dst)
}

// AggregateSignatures combines n signatures into one.
func AggregateSignatures(sigs []*Signature) (*Signature, error) {
	if len(sigs) == 0 {
		return nil, errors.New("no signatures to aggregate")
	}
	agg := new(blst.P2Aggregate)
	for _, s := range sigs {
		if !agg.AggregateCompressed([][]byte{s.inner.Compress()}, true) {
			return nil, errors.New("could not aggregate signature")
		}
	}
	return &Signature{inner: agg.ToAffine()}, nil
}
