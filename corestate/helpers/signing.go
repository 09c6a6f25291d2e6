package helpers

import (
	"encoding/binary"

	"github.com/syjn99/ream-sub001/consensus-types/primitives"
	"github.com/syjn99/ream-sub001/consensus-types/state"
	"github.com/syjn99/ream-sub001/crypto/hash"
)

// ComputeDomain folds a domain type, fork version, and genesis validators
// root into the 32-byte signing domain BLS verification mixes into every
// signed object's signing root, per the consensus spec's compute_domain.
func ComputeDomain(domainType uint32, forkVersion [4]byte, genesisValidatorsRoot [32]byte) [32]byte {
	buf := make([]byte, 4+32)
	copy(buf[:4], forkVersion[:])
	copy(buf[4:], genesisValidatorsRoot[:])
	forkDataRoot := hash.Hash(buf)

	var domain [32]byte
	binary.LittleEndian.PutUint32(domain[:4], domainType)
	copy(domain[4:], forkDataRoot[:28])
	return domain
}

// SigningRoot combines an object root with its signing domain, the value
// BLS signatures are actually computed and verified over.
func SigningRoot(objectRoot [32]byte, domain [32]byte) [32]byte {
	buf := make([]byte, 64)
	copy(buf[:32], objectRoot[:])
	copy(buf[32:], domain[:])
	return hash.Hash(buf)
}

// ChurnLimit returns the per-epoch activation/exit churn limit for the
// active validator count, per the consensus spec's get_validator_churn_limit.
func ChurnLimit(activeValidatorCount, churnLimitQuotient, minPerEpochChurnLimit uint64) uint64 {
	limit := activeValidatorCount / churnLimitQuotient
	if limit < minPerEpochChurnLimit {
		return minPerEpochChurnLimit
	}
	return limit
}

// IsEligibleForActivation reports whether validator v may activate given
// the state's finalized checkpoint, per get_validator_activation_churn_limit
// preconditions.
func IsEligibleForActivation(v *state.Validator, finalizedEpoch primitives.Epoch) bool {
	return v.ActivationEligibilityEpoch <= finalizedEpoch && v.ActivationEpoch == state.FarFutureEpoch
}
