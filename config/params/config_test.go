package params

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBeaconConfig_DefaultsToMainnetLike(t *testing.T) {
	cfg := BeaconConfig()
	assert.Equal(t, uint64(12), cfg.SecondsPerSlot)
	assert.Equal(t, uint64(32), cfg.SlotsPerEpoch)
}

func TestOverrideBeaconConfig_IsProcessWide(t *testing.T) {
	original := BeaconConfig()
	defer OverrideBeaconConfig(original)

	custom := mainnetLikeConfig()
	custom.SlotsPerEpoch = 8
	OverrideBeaconConfig(custom)

	assert.Equal(t, uint64(8), BeaconConfig().SlotsPerEpoch)
}

func TestUseMinimalConfig(t *testing.T) {
	original := BeaconConfig()
	defer OverrideBeaconConfig(original)

	UseMinimalConfig()

	cfg := BeaconConfig()
	assert.Equal(t, uint64(8), cfg.SlotsPerEpoch)
	assert.Equal(t, uint64(64), cfg.SlotsPerHistoricalRoot)
}

func TestLoadConfigFile_OverridesNamedFields(t *testing.T) {
	original := BeaconConfig()
	defer OverrideBeaconConfig(original)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlContent := "SECONDS_PER_SLOT_UNUSED: 1\nSlotsPerEpoch: 16\n"
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0o644))

	require.NoError(t, LoadConfigFile(path))

	cfg := BeaconConfig()
	assert.Equal(t, uint64(16), cfg.SlotsPerEpoch)
	// Fields absent from the YAML keep their mainnet-like default.
	assert.Equal(t, uint64(12), cfg.SecondsPerSlot)
}

func TestLoadConfigFile_MissingFileErrors(t *testing.T) {
	err := LoadConfigFile(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	assert.Error(t, err)
}
