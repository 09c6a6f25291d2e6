// Package params holds the network-parameter configuration consumed by
// every other package. A single process-wide config is installed once at
// startup (see OverrideBeaconConfig, LoadConfigFile, UseMinimalConfig); tests that need hermetic,
// independent configs use a minimal variant rather than mutating the
// global in place.
package params

import "sync"

// BeaconChainConfig mirrors the subset of consensus-spec constants this
// module's core actually reads. Values default to mainnet-like constants
// (mainnetLikeConfig); UseMinimalConfig installs a scaled-down variant
// with shorter epochs.
type BeaconChainConfig struct {
	// Time parameters.
	SecondsPerSlot uint64
	SlotsPerEpoch  uint64

	// Fork-choice parameters.
	ProposerScoreBoost          uint64 // percentage, e.g. 40 = 40%
	IntervalsPerSlot            uint64
	MaximumGossipClockDisparity uint64 // milliseconds

	// State-list bounds.
	SlotsPerHistoricalRoot   uint64
	EpochsPerHistoricalVector uint64
	EpochsPerSlashingsVector uint64
	HistoricalRootsLimit     uint64
	ValidatorRegistryLimit   uint64

	// Sync committee.
	EpochsPerSyncCommitteePeriod uint64
	SyncCommitteeSize            uint64

	// Rewards and penalties.
	EffectiveBalanceIncrement uint64
	MaxEffectiveBalance       uint64
	MinDepositAmount          uint64
	BaseRewardFactor          uint64
	InactivityScoreBias       uint64
	InactivityScoreRecoveryRate uint64

	// Time parameters for validator lifecycle.
	MaxSeedLookahead         uint64 // epochs
	MinValidatorWithdrawabilityDelay uint64 // epochs
	ShardCommitteePeriod      uint64 // epochs
	MinEpochsToInactivityPenalty uint64

	// Deposits / Electra churn.
	ChurnLimitQuotient       uint64
	MinPerEpochChurnLimit    uint64
	MaxPerEpochActivationChurnLimit uint64

	// Gwei caps.
	EjectionBalance uint64

	// Blob parameters.
	MaxBlobsPerBlock       uint64
	MaxRequestBlobSidecars uint64
	MaxBlockSize           uint64

	// Genesis.
	GenesisForkVersion [4]byte
	ZeroHash           [32]byte

	// Fork epochs, used by the gossip capella-gate check in BLS-to-execution
	// validation (set to 0 meaning "always active" for this module's scope).
	CapellaForkEpoch Epoch
}

// Epoch is re-declared locally to avoid an import cycle with
// consensus-types/primitives (which itself imports this package for
// SlotsPerEpoch). Call sites in primitives use uint64 math directly.
type Epoch = uint64

var (
	beaconConfig   = mainnetLikeConfig()
	beaconConfigMu sync.RWMutex
)

// BeaconConfig returns the active, process-wide configuration.
func BeaconConfig() *BeaconChainConfig {
	beaconConfigMu.RLock()
	defer beaconConfigMu.RUnlock()
	return beaconConfig
}

// OverrideBeaconConfig installs cfg as the process-wide configuration.
// Tests call this to get a hermetic, small-validator-count network.
func OverrideBeaconConfig(cfg *BeaconChainConfig) {
	beaconConfigMu.Lock()
	defer beaconConfigMu.Unlock()
	beaconConfig = cfg
}

func mainnetLikeConfig() *BeaconChainConfig {
	return &BeaconChainConfig{
		SecondsPerSlot:                    12,
		SlotsPerEpoch:                     32,
		ProposerScoreBoost:                40,
		IntervalsPerSlot:                  3,
		MaximumGossipClockDisparity:       500,
		SlotsPerHistoricalRoot:            8192,
		EpochsPerHistoricalVector:         65536,
		EpochsPerSlashingsVector:          8192,
		HistoricalRootsLimit:              16777216,
		ValidatorRegistryLimit:            1099511627776,
		EpochsPerSyncCommitteePeriod:      256,
		SyncCommitteeSize:                 512,
		EffectiveBalanceIncrement:         1000000000,
		MaxEffectiveBalance:               32000000000,
		MinDepositAmount:                  1000000000,
		BaseRewardFactor:                  64,
		InactivityScoreBias:               4,
		InactivityScoreRecoveryRate:       16,
		MaxSeedLookahead:                  4,
		MinValidatorWithdrawabilityDelay:  256,
		ShardCommitteePeriod:              256,
		MinEpochsToInactivityPenalty:      4,
		ChurnLimitQuotient:                65536,
		MinPerEpochChurnLimit:             4,
		MaxPerEpochActivationChurnLimit:   8,
		EjectionBalance:                   16000000000,
		MaxBlobsPerBlock:                  9,
		MaxRequestBlobSidecars:            128,
		MaxBlockSize:                      10485760,
		GenesisForkVersion:                [4]byte{0, 0, 0, 0},
		ZeroHash:                          [32]byte{},
		CapellaForkEpoch:                  0,
	}
}
