package blocks

import (
	bitfield "github.com/prysmaticlabs/go-bitfield"
	"github.com/syjn99/ream-sub001/consensus-types/primitives"
	"github.com/syjn99/ream-sub001/consensus-types/state"
)

// AttestationData binds a vote to a slot, committee, and the checkpoints it
// is attesting for (§3).
type AttestationData struct {
	Slot            primitives.Slot
	CommitteeIndex  primitives.CommitteeIndex
	BeaconBlockRoot [32]byte
	Source          state.Checkpoint
	Target          state.Checkpoint
}

// Attestation is the aggregated gossip/block form: an AttestationData, an
// aggregation bitlist over committee members, a committee_bits bitvector
// for multi-committee-per-slot aggregation (Electra), and an aggregate
// signature (§3).
type Attestation struct {
	AggregationBits bitfield.Bitlist
	Data            *AttestationData
	Signature       [96]byte
	CommitteeBits   bitfield.Bitvector64
}

// SingleAttestation is the unaggregated gossip form (§3): one validator's
// vote, not yet folded into a committee bitlist.
type SingleAttestation struct {
	CommitteeIndex primitives.CommitteeIndex
	AttesterIndex  primitives.ValidatorIndex
	Data           *AttestationData
	Signature      [96]byte
}

// IndexedAttestation is an Attestation resolved to the explicit list of
// attesting validator indices, as produced by committee lookup and
// consumed by BLS signature verification and slashing detection.
type IndexedAttestation struct {
	AttestingIndices []primitives.ValidatorIndex
	Data             *AttestationData
	Signature        [96]byte
}

// ProposerSlashing proves a proposer signed two distinct blocks for the
// same slot.
type ProposerSlashing struct {
	Header1 *SignedBeaconBlockHeader
	Header2 *SignedBeaconBlockHeader
}

// SignedBeaconBlockHeader pairs a block header with its signature.
type SignedBeaconBlockHeader struct {
	Header    *state.BeaconBlockHeader
	Signature [96]byte
}

// AttesterSlashing proves two IndexedAttestations from overlapping
// attesters are mutually slashable (double vote or surround vote).
type AttesterSlashing struct {
	Attestation1 *IndexedAttestation
	Attestation2 *IndexedAttestation
}

// Deposit is a validator-registry deposit proven by a Merkle branch into
// the eth1 deposit contract's tree.
type Deposit struct {
	Proof [][32]byte
	Data  DepositData
}

// DepositData is the deposit's payload: public key, withdrawal
// credentials, amount, and a signature over the first three.
type DepositData struct {
	PublicKey             [48]byte
	WithdrawalCredentials [32]byte
	Amount                uint64
	Signature             [96]byte
}

// VoluntaryExit signals a validator's intent to exit at or after epoch.
type VoluntaryExit struct {
	Epoch          primitives.Epoch
	ValidatorIndex primitives.ValidatorIndex
}

// SignedVoluntaryExit pairs a VoluntaryExit with the validator's signature.
type SignedVoluntaryExit struct {
	Exit      *VoluntaryExit
	Signature [96]byte
}

// BLSToExecutionChange repoints a validator's withdrawal credentials from
// a BLS key to an execution address.
type BLSToExecutionChange struct {
	ValidatorIndex     primitives.ValidatorIndex
	FromBLSPublicKey   [48]byte
	ToExecutionAddress [20]byte
}

// SignedBLSToExecutionChange pairs a BLSToExecutionChange with its
// signature.
type SignedBLSToExecutionChange struct {
	Change    *BLSToExecutionChange
	Signature [96]byte
}

// SyncAggregate is the block-included sync-committee aggregate (§3).
type SyncAggregate struct {
	SyncCommitteeBits      bitfield.Bitvector512
	SyncCommitteeSignature [96]byte
}

// SyncCommitteeMessage is a single validator's per-slot sync-committee
// gossip message.
type SyncCommitteeMessage struct {
	Slot           primitives.Slot
	BeaconBlockRoot [32]byte
	ValidatorIndex primitives.ValidatorIndex
	Signature      [96]byte
}

// ContributionAndProof is an aggregated sync-committee subcommittee
// contribution plus the aggregator's selection proof.
type ContributionAndProof struct {
	AggregatorIndex primitives.ValidatorIndex
	Contribution    *SyncCommitteeContribution
	SelectionProof  [96]byte
}

// SyncCommitteeContribution is one subcommittee's aggregate for a slot.
type SyncCommitteeContribution struct {
	Slot              primitives.Slot
	BeaconBlockRoot   [32]byte
	SubcommitteeIndex uint64
	AggregationBits   bitfield.Bitvector128
	Signature         [96]byte
}

// SignedContributionAndProof pairs a ContributionAndProof with the
// aggregator's signature.
type SignedContributionAndProof struct {
	Message   *ContributionAndProof
	Signature [96]byte
}

// BlobSidecar is (index, blob bytes, KZG commitment, KZG proof, signed
// block header, Merkle inclusion proof linking the commitment to the
// block body) per §3.
type BlobSidecar struct {
	Index                       uint64
	Blob                        []byte
	KZGCommitment               [48]byte
	KZGProof                    [48]byte
	SignedBlockHeader           *SignedBeaconBlockHeader
	CommitmentInclusionProof    [][32]byte
}
