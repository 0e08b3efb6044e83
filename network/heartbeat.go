package network

import (
	"github.com/blocksim/blocksim/kernel"
	"github.com/blocksim/blocksim/node"
	"github.com/blocksim/blocksim/sampling"
)

// HeartbeatConfig carries the subset of spec.md section 6's per-
// blockchain configuration the heartbeat consults: the inter-block
// timing distribution and the probability of simulating a competing
// pair of miners at a given tick.
type HeartbeatConfig struct {
	TimeBetweenBlocks       sampling.Distribution
	OrphanBlocksProbability float64
}

// Heartbeat is the periodic process that elects miners to produce a
// block at each inter-block interval (spec.md section 4.8, GLOSSARY
// "Heartbeat"). total_hashrate is recomputed from the live miner slice
// on every tick so a miner's Hashrate changing between ticks (not used
// by this simulator today, but harmless to support) is honored.
type Heartbeat struct {
	k       *kernel.Kernel
	sampler sampling.Sampler
	cfg     HeartbeatConfig
	miners  []node.Miner
}

// NewHeartbeat builds a heartbeat over miners, which must already be
// filtered to IsMining() == true nodes.
func NewHeartbeat(k *kernel.Kernel, sampler sampling.Sampler, cfg HeartbeatConfig, miners []node.Miner) *Heartbeat {
	return &Heartbeat{k: k, sampler: sampler, cfg: cfg, miners: miners}
}

// Start spawns the heartbeat loop: sample Δ from time_between_blocks,
// wait Δ, draw whether to simulate a competing pair of miners this
// tick, then call BuildNewBlock on the elected miner(s). The double-
// miner case is the sole modelled source of competing siblings; forks
// may later arise from differing propagation paths of either outcome.
func (h *Heartbeat) Start() *kernel.Task {
	return h.k.Spawn(func(task *kernel.Task) {
		for {
			delta, err := sampling.SampleNonNegative(h.sampler, h.cfg.TimeBetweenBlocks, "", "")
			if err != nil {
				logger.Errorw("time_between_blocks sample failed", "error", err)
				return
			}
			if err := task.Wait(delta); err != nil {
				return
			}
			if len(h.miners) == 0 {
				continue
			}
			simulateOrphan := h.k.Rand().Float64() < h.cfg.OrphanBlocksProbability
			if simulateOrphan && len(h.miners) >= 2 {
				m1, m2 := h.pickTwoDistinct()
				m1.BuildNewBlock()
				m2.BuildNewBlock()
				continue
			}
			m := h.pickOne(h.miners)
			m.BuildNewBlock()
		}
	})
}

// pickOne draws a single miner from pool weighted by hashrate share.
func (h *Heartbeat) pickOne(pool []node.Miner) node.Miner {
	total := 0.0
	for _, m := range pool {
		total += m.Hashrate()
	}
	if total <= 0 {
		return pool[h.k.Rand().Intn(len(pool))]
	}
	r := h.k.Rand().Float64() * total
	cum := 0.0
	for _, m := range pool {
		cum += m.Hashrate()
		if r <= cum {
			return m
		}
	}
	return pool[len(pool)-1]
}

// pickTwoDistinct draws two distinct miners without replacement,
// weighted by hashrate/total_hashrate (spec.md section 4.8 step 4).
func (h *Heartbeat) pickTwoDistinct() (node.Miner, node.Miner) {
	first := h.pickOne(h.miners)
	remaining := make([]node.Miner, 0, len(h.miners)-1)
	for _, m := range h.miners {
		if m.Address() != first.Address() {
			remaining = append(remaining, m)
		}
	}
	second := h.pickOne(remaining)
	return first, second
}
