package world

import (
	"encoding/json"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/blocksim/blocksim/sampling"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(t *testing.T, dir, name string, v interface{}) string {
	t.Helper()
	path := filepath.Join(dir, name)
	b, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o644))
	return path
}

func dist(name, params string) map[string]interface{} {
	return map[string]interface{}{"name": name, "parameters": params}
}

func TestLoadConfigRejectsUnknownBlockchain(t *testing.T) {
	dir := t.TempDir()
	path := writeJSON(t, dir, "config.json", map[string]interface{}{
		"blockchain":                  "litecoin",
		"simulation_duration_seconds": 100,
	})
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfigRejectsFractionalDuration(t *testing.T) {
	dir := t.TempDir()
	path := writeJSON(t, dir, "config.json", map[string]interface{}{
		"blockchain":                  "bitcoin",
		"simulation_duration_seconds": 100.5,
		"bitcoin": map[string]interface{}{
			"number_transactions_per_block": dist("normal", "(10,2)"),
			"orphan_blocks_probability":     0,
		},
		"ethereum": map[string]interface{}{
			"orphan_blocks_probability": 0,
		},
	})
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfigAcceptsValidBitcoinConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeJSON(t, dir, "config.json", map[string]interface{}{
		"blockchain":                  "bitcoin",
		"simulation_duration_seconds": 3600,
		"bitcoin": map[string]interface{}{
			"block_size_limit_mb":           1,
			"number_transactions_per_block": dist("normal", "(2000,200)"),
			"orphan_blocks_probability":     0.01,
		},
		"ethereum": map[string]interface{}{
			"orphan_blocks_probability": 0,
		},
	})
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, Bitcoin, cfg.Blockchain)
	assert.Equal(t, float64(3600), cfg.DurationSeconds())
	assert.Equal(t, []float64{2000, 200}, cfg.Bitcoin.NumberTxPerBlock.Parameters)
}

func TestTransactionFactoryCfgWithDefaultsFillsZeroFields(t *testing.T) {
	cfg := TransactionFactoryCfg{}.WithDefaults()
	assert.Equal(t, 5, cfg.NumberOfBatches)
	assert.Equal(t, 6, cfg.TransactionsPerBatch)
	assert.Equal(t, 300.0, cfg.IntervalSeconds)
}

func TestTransactionFactoryCfgWithDefaultsPreservesNonZeroFields(t *testing.T) {
	cfg := TransactionFactoryCfg{NumberOfBatches: 10, TransactionsPerBatch: 3, IntervalSeconds: 42}.WithDefaults()
	assert.Equal(t, 10, cfg.NumberOfBatches)
	assert.Equal(t, 3, cfg.TransactionsPerBatch)
	assert.Equal(t, 42.0, cfg.IntervalSeconds)
}

func TestLoadLocationTableParsesParameters(t *testing.T) {
	dir := t.TempDir()
	path := writeJSON(t, dir, "latency.json", map[string]interface{}{
		"locations": map[string]interface{}{
			"EU": map[string]interface{}{
				"EU": dist("normal", "(0.01,0.001)"),
				"US": dist("normal", "(0.1,0.01)"),
			},
			"US": map[string]interface{}{
				"EU": dist("normal", "(0.1,0.01)"),
				"US": dist("normal", "(0.01,0.001)"),
			},
		},
	})
	table, err := LoadLocationTable(path)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.01, 0.001}, table.Locations["EU"]["EU"].Parameters)
}

func TestCheckLocationSetsMatchRejectsMismatchedLocations(t *testing.T) {
	latency := LocationTable{Locations: map[string]map[string]sampling.Distribution{"EU": {}}}
	download := LocationTable{Locations: map[string]map[string]sampling.Distribution{"US": {}}}
	assert.Error(t, checkLocationSetsMatch(latency, download, download))
}

func TestCheckLocationSetsMatchAcceptsIdenticalLocations(t *testing.T) {
	latency := LocationTable{Locations: map[string]map[string]sampling.Distribution{"EU": {}, "US": {}}}
	download := LocationTable{Locations: map[string]map[string]sampling.Distribution{"EU": {}, "US": {}}}
	assert.NoError(t, checkLocationSetsMatch(latency, download, download))
}

func TestHashrateBoundsMHsParsesTuple(t *testing.T) {
	spec := LocationSpec{MegaHashrateRange: "(10, 50)"}
	lo, hi, err := spec.HashrateBoundsMHs()
	require.NoError(t, err)
	assert.Equal(t, 10.0, lo)
	assert.Equal(t, 50.0, hi)
}

func TestHashrateBoundsMHsRejectsMalformedTuple(t *testing.T) {
	spec := LocationSpec{MegaHashrateRange: "10,50"}
	_, _, err := spec.HashrateBoundsMHs()
	assert.NoError(t, err)

	spec = LocationSpec{MegaHashrateRange: "(10)"}
	_, _, err = spec.HashrateBoundsMHs()
	assert.Error(t, err)
}

func TestCheckLocationsRejectsUnknownLocation(t *testing.T) {
	known := map[string]struct{}{"EU": {}}
	miners := LocationFactory{"EU": LocationSpec{HowMany: 1, MegaHashrateRange: "(10,10)"}}
	nonMiners := LocationFactory{"ASIA": LocationSpec{HowMany: 1}}
	err := CheckLocations(miners, nonMiners, known)
	assert.Error(t, err)
}

func TestCheckLocationsAcceptsKnownLocations(t *testing.T) {
	known := map[string]struct{}{"EU": {}, "US": {}}
	miners := LocationFactory{"EU": LocationSpec{HowMany: 1, MegaHashrateRange: "(10,10)"}}
	nonMiners := LocationFactory{"US": LocationSpec{HowMany: 2}}
	assert.NoError(t, CheckLocations(miners, nonMiners, known))
}

func TestRecorderRecordsPropagationOnFirstReceiveOnly(t *testing.T) {
	r := NewRecorder()
	r.RecordCreated("tx", "abc123de", "eu-1", 0)
	r.RecordReceived("tx", "abc123de", "us-1", 5)
	r.RecordReceived("tx", "abc123de", "us-1", 9)

	snap := r.Snapshot(nil)
	got := snap.TxPropagation["eu-1_us-1"]
	require.NotNil(t, got)
	assert.Equal(t, 5.0, got["abc123de"])
}

func TestRecorderRecordReceivedIgnoresOriginSelfDelivery(t *testing.T) {
	r := NewRecorder()
	r.RecordCreated("block", "h1", "eu-1", 0)
	r.RecordReceived("block", "h1", "eu-1", 0)

	snap := r.Snapshot(nil)
	assert.Empty(t, snap.BlockPropagation)
}

func TestRecorderIncrementQueueDepthTallyPerAddress(t *testing.T) {
	r := NewRecorder()
	r.IncrementQueueDepth("eu-1")
	r.IncrementQueueDepth("eu-1")
	r.IncrementQueueDepth("us-1")

	snap := r.Snapshot(nil)
	assert.Equal(t, 2, snap.QueueDepth["eu-1"])
	assert.Equal(t, 1, snap.QueueDepth["us-1"])
}

func TestRandomHashrateHzStaysWithinBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		v := randomHashrateHz(rng, 10, 50)
		assert.GreaterOrEqual(t, v, 10*1e6)
		assert.LessOrEqual(t, v, 50*1e6)
	}
}

func TestRandomHashrateHzDegeneratesToLowerBoundWhenRangeIsEmpty(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	assert.Equal(t, 10*1e6, randomHashrateHz(rng, 10, 10))
}

func TestSessionIDProducesDistinctValues(t *testing.T) {
	a := sessionID()
	b := sessionID()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}
