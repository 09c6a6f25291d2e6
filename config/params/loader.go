package params

import (
	"os"

	"github.com/ghodss/yaml"
	"github.com/pkg/errors"
)

// LoadConfigFile reads a network-parameter YAML file (the format the
// --network CLI flag accepts as a file path, per the external CLI surface) and
// installs it as the process-wide config. Fields absent from the YAML
// keep their mainnet-like default, mirroring prysm's loose config loader.
func LoadConfigFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "could not read chain config file")
	}
	cfg := mainnetLikeConfig()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return errors.Wrap(err, "could not unmarshal chain config file")
	}
	OverrideBeaconConfig(cfg)
	return nil
}

// UseMinimalConfig switches the active config to a small, fast-epoch
// network suitable for local devnets and the scenarios in spec.md §8
// (e.g. 64 validators over a handful of epochs).
func UseMinimalConfig() {
	cfg := mainnetLikeConfig()
	cfg.SlotsPerEpoch = 8
	cfg.SlotsPerHistoricalRoot = 64
	cfg.EpochsPerHistoricalVector = 64
	cfg.EpochsPerSlashingsVector = 64
	cfg.EpochsPerSyncCommitteePeriod = 8
	cfg.ShardCommitteePeriod = 64
	cfg.MinValidatorWithdrawabilityDelay = 256
	OverrideBeaconConfig(cfg)
}
