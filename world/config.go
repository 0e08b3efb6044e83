// Package world wires together every other package into a runnable
// simulation: configuration loading, the node factory, the transaction
// factory, the heartbeat, and the observability record, grounded on
// original_source/blocksim/world.py, node_factory.py,
// transaction_factory.py and main.py (spec.md section 4.9).
package world

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/blocksim/blocksim/log"
	"github.com/blocksim/blocksim/message/bitcoin"
	"github.com/blocksim/blocksim/message/ethereum"
	"github.com/blocksim/blocksim/sampling"
	"github.com/blocksim/blocksim/simerr"
)

var logger = log.NewModuleLogger(log.ModuleWorld)

// Blockchain names the protocol a simulation run simulates, spec.md
// section 6's `blockchain ∈ {"bitcoin","ethereum"}`.
type Blockchain string

const (
	Bitcoin  Blockchain = "bitcoin"
	Ethereum Blockchain = "ethereum"
)

// Config is the top-level `config.json` shape (spec.md section 6).
// SimulationDurationSeconds is validated to be integer-valued: a
// fractional duration is a ConfigError (spec.md section 7 category 1),
// mirroring world.py's `isinstance(sim_duration, int)` check.
type Config struct {
	Blockchain                Blockchain            `json:"blockchain"`
	SimulationDurationSeconds json.Number           `json:"simulation_duration_seconds"`
	Bitcoin                   BitcoinConfig         `json:"bitcoin"`
	Ethereum                  EthereumConfig        `json:"ethereum"`
	TransactionFactory        TransactionFactoryCfg `json:"transaction_factory"`
}

// TransactionFactoryCfg parameterizes the batching driver (spec.md
// section 9's supplemented feature 4). Zero values fall back to
// main.py's hardcoded call (5 batches of 6 transactions every 300s).
type TransactionFactoryCfg struct {
	NumberOfBatches      int     `json:"number_of_batches"`
	TransactionsPerBatch int     `json:"transactions_per_batch"`
	IntervalSeconds      float64 `json:"interval_seconds"`
}

// WithDefaults fills any zero field with main.py's literal call
// (`broadcast_transactions(world, 5, 6, 300, nodes_list)`).
func (c TransactionFactoryCfg) WithDefaults() TransactionFactoryCfg {
	if c.NumberOfBatches == 0 {
		c.NumberOfBatches = 5
	}
	if c.TransactionsPerBatch == 0 {
		c.TransactionsPerBatch = 6
	}
	if c.IntervalSeconds == 0 {
		c.IntervalSeconds = 300
	}
	return c
}

// BitcoinConfig mirrors spec.md section 6's `bitcoin.*` block.
type BitcoinConfig struct {
	MessageSizeKB           BitcoinSizeKB         `json:"message_size_kB"`
	BlockSizeLimitMB        float64               `json:"block_size_limit_mb"`
	NumberTxPerBlock        sampling.Distribution `json:"number_transactions_per_block"`
	OrphanBlocksProbability float64               `json:"orphan_blocks_probability"`
}

// BitcoinSizeKB is the kB-denominated per-field size table for the
// Bitcoin wire catalogue, converted into bitcoin.SizeTable (already
// MB-denominated internally via sampling.KBToMB at use time).
type BitcoinSizeKB struct {
	HeaderKB    float64 `json:"header"`
	VersionKB   float64 `json:"version"`
	VerackKB    float64 `json:"verack"`
	InvVectorKB float64 `json:"inv_vector"`
	TxKB        float64 `json:"tx"`
	BlockBaseKB float64 `json:"block_base"`
}

// SizeTable converts the loaded kB table into the bitcoin catalogue's
// own SizeTable type.
func (s BitcoinSizeKB) SizeTable() bitcoin.SizeTable {
	return bitcoin.SizeTable{
		HeaderKB:    s.HeaderKB,
		VersionKB:   s.VersionKB,
		VerackKB:    s.VerackKB,
		InvVectorKB: s.InvVectorKB,
		TxKB:        s.TxKB,
		BlockBaseKB: s.BlockBaseKB,
	}
}

// EthereumConfig mirrors spec.md section 6's `ethereum.*` block.
type EthereumConfig struct {
	MessageSizeKB           EthereumSizeKB        `json:"message_size_kB"`
	BlockGasLimit           uint64                `json:"block_gas_limit"`
	TxGasLimit              uint64                `json:"tx_gas_limit"`
	OrphanBlocksProbability float64               `json:"orphan_blocks_probability"`
}

// EthereumSizeKB is the kB-denominated per-field size table for the
// Ethereum wire catalogue.
type EthereumSizeKB struct {
	StatusKB      float64 `json:"status"`
	HashSizeKB    float64 `json:"hash_size"`
	TxKB          float64 `json:"tx"`
	HeaderKB      float64 `json:"header"`
	BlockBodiesKB float64 `json:"block_bodies"`
	GetHeadersKB  float64 `json:"get_headers"`
}

// SizeTable converts the loaded kB table into the ethereum catalogue's
// own SizeTable type.
func (s EthereumSizeKB) SizeTable() ethereum.SizeTable {
	return ethereum.SizeTable{
		StatusKB:      s.StatusKB,
		HashSizeKB:    s.HashSizeKB,
		TxKB:          s.TxKB,
		GetHeadersKB:  s.GetHeadersKB,
		HeaderKB:      s.HeaderKB,
		BlockBodiesKB: s.BlockBodiesKB,
	}
}

// LocationFactory is the `miners`/`non_miners` factory input shape
// (spec.md section 6): one entry per location, each naming how many
// nodes to create there and, for miners, the hashrate range to draw
// from.
type LocationFactory map[string]LocationSpec

// LocationSpec is one location's entry in the factory input. Miners
// carry a non-empty MegaHashrateRange ("(lo,hi)"); non-miners leave it
// empty.
type LocationSpec struct {
	HowMany           int    `json:"how_many"`
	MegaHashrateRange string `json:"mega_hashrate_range,omitempty"`
}

// HashrateBoundsMHs parses "(lo,hi)" into lo/hi mega-hashes/second,
// mirroring node_factory.py's `ast.literal_eval` of the tuple literal.
func (s LocationSpec) HashrateBoundsMHs() (lo, hi float64, err error) {
	raw := strings.TrimSpace(s.MegaHashrateRange)
	raw = strings.TrimPrefix(raw, "(")
	raw = strings.TrimSuffix(raw, ")")
	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		return 0, 0, simerr.NewConfigError(
			fmt.Sprintf("mega_hashrate_range %q must be a two-element tuple", s.MegaHashrateRange), nil)
	}
	lo, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, simerr.NewConfigError("invalid mega_hashrate_range lower bound", err)
	}
	hi, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, simerr.NewConfigError("invalid mega_hashrate_range upper bound", err)
	}
	return lo, hi, nil
}

// LocationTable is the `{"locations": {LOC: {LOC: distribution}}}` wire
// shape shared by the latency and throughput files (spec.md section 6).
type LocationTable struct {
	Locations map[string]map[string]sampling.Distribution `json:"locations"`
}

// locationSet returns the set of top-level location keys, used
// to cross-validate every measurement file agrees on the same set of
// locations (original_source/blocksim/world.py's
// `_set_download_bandwidths`/`_set_upload_bandwidths` equality checks).
func (t LocationTable) locationSet() map[string]struct{} {
	out := make(map[string]struct{}, len(t.Locations))
	for loc := range t.Locations {
		out[loc] = struct{}{}
	}
	return out
}

// DelaysConfig is the `delays.json` shape (spec.md section 6): per
// blockchain, the validation and inter-block timing distributions.
type DelaysConfig struct {
	Bitcoin  BlockchainDelays `json:"bitcoin"`
	Ethereum BlockchainDelays `json:"ethereum"`
}

// BlockchainDelays names the three distributions spec.md section 6's
// delays file carries per blockchain.
type BlockchainDelays struct {
	TxValidation             sampling.Distribution `json:"tx_validation"`
	BlockValidation          sampling.Distribution `json:"block_validation"`
	TimeBetweenBlocksSeconds sampling.Distribution `json:"time_between_blocks_seconds"`
}

// LoadConfig reads and parses config.json, validating every
// distribution descriptor and the integer-valued duration requirement.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	if err := readJSON(path, &cfg); err != nil {
		return Config{}, err
	}
	if cfg.Blockchain != Bitcoin && cfg.Blockchain != Ethereum {
		return Config{}, simerr.NewConfigError(
			fmt.Sprintf("blockchain must be %q or %q, got %q", Bitcoin, Ethereum, cfg.Blockchain), nil)
	}
	if err := validateIntegerSeconds(cfg.SimulationDurationSeconds); err != nil {
		return Config{}, err
	}
	if err := cfg.Bitcoin.NumberTxPerBlock.ParseParameters(); err != nil {
		return Config{}, err
	}
	if err := cfg.Bitcoin.NumberTxPerBlock.Validate(); err != nil {
		return Config{}, err
	}
	if err := validateProbability("bitcoin.orphan_blocks_probability", cfg.Bitcoin.OrphanBlocksProbability); err != nil {
		return Config{}, err
	}
	if err := validateProbability("ethereum.orphan_blocks_probability", cfg.Ethereum.OrphanBlocksProbability); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateProbability(field string, p float64) error {
	if p < 0 || p > 1 {
		return simerr.NewConfigError(fmt.Sprintf("%s must be in [0,1], got %v", field, p), nil)
	}
	return nil
}

// DurationSeconds returns the validated, integer-valued simulation
// duration.
func (c Config) DurationSeconds() float64 {
	f, _ := c.SimulationDurationSeconds.Float64()
	return f
}

func validateIntegerSeconds(n json.Number) error {
	f, err := n.Float64()
	if err != nil {
		return simerr.NewConfigError("simulation_duration_seconds must be a number", err)
	}
	if math.Trunc(f) != f {
		return simerr.NewConfigError(
			fmt.Sprintf("simulation_duration_seconds must be an integer, got %v", f), nil)
	}
	return nil
}

// LoadLocationTable reads a latency/throughput-received/throughput-sent
// file and parses every distribution's parameter tuple.
func LoadLocationTable(path string) (LocationTable, error) {
	var t LocationTable
	if err := readJSON(path, &t); err != nil {
		return LocationTable{}, err
	}
	for origin, row := range t.Locations {
		for dest, dist := range row {
			if err := dist.ParseParameters(); err != nil {
				return LocationTable{}, err
			}
			if err := dist.Validate(); err != nil {
				return LocationTable{}, err
			}
			row[dest] = dist
		}
		t.Locations[origin] = row
	}
	return t, nil
}

// FactoryInput is the `factory.json` shape (spec.md section 6's
// "Factory input"): which locations get how many miner/non-miner nodes.
type FactoryInput struct {
	Miners    LocationFactory `json:"miners"`
	NonMiners LocationFactory `json:"non_miners"`
}

// LoadFactoryInput reads factory.json.
func LoadFactoryInput(path string) (FactoryInput, error) {
	var f FactoryInput
	if err := readJSON(path, &f); err != nil {
		return FactoryInput{}, err
	}
	return f, nil
}

// LoadDelays reads delays.json and parses every distribution's
// parameter tuple.
func LoadDelays(path string) (DelaysConfig, error) {
	var d DelaysConfig
	if err := readJSON(path, &d); err != nil {
		return DelaysConfig{}, err
	}
	for _, bd := range []*BlockchainDelays{&d.Bitcoin, &d.Ethereum} {
		for _, dist := range []*sampling.Distribution{&bd.TxValidation, &bd.BlockValidation, &bd.TimeBetweenBlocksSeconds} {
			if err := dist.ParseParameters(); err != nil {
				return DelaysConfig{}, err
			}
			if err := dist.Validate(); err != nil {
				return DelaysConfig{}, err
			}
		}
	}
	return d, nil
}

func readJSON(path string, v interface{}) error {
	f, err := os.Open(path)
	if err != nil {
		return simerr.NewConfigError("cannot open "+path, err)
	}
	defer f.Close()
	dec := json.NewDecoder(f)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return simerr.NewConfigError("cannot parse "+path, err)
	}
	return nil
}

// checkLocationSetsMatch cross-validates that the latency, upload and
// download measurement files agree on the exact same set of locations,
// per original_source/blocksim/world.py's
// `_set_download_bandwidths`/`_set_upload_bandwidths`.
func checkLocationSetsMatch(latency, download, upload LocationTable) error {
	want := latency.locationSet()
	for name, t := range map[string]LocationTable{"download bandwidth": download, "upload bandwidth": upload} {
		got := t.locationSet()
		if !sameSet(want, got) {
			return simerr.NewConfigError(
				fmt.Sprintf("the locations in latency measurements are not equal to %s measurements", name), nil)
		}
	}
	return nil
}

func sameSet(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
