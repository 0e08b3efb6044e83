// Package network implements the node registry and the block-creation
// heartbeat (spec.md section 4.8): a flat address-keyed lookup plus a
// periodic task that stochastically elects one or two miners, weighted
// by hashrate, and calls BuildNewBlock on each. Grounded on
// original_source/blocksim/models/network.py's Network class (the
// heartbeat itself is not present in the retrieved source, only
// referenced from main.py's `network.start_heartbeat()`; its algorithm
// is built directly from spec.md section 4.8's literal description).
package network

import (
	"github.com/blocksim/blocksim/log"
	"github.com/blocksim/blocksim/node"
)

var logger = log.NewModuleLogger(log.ModuleNetwork)

// Network is the flat node registry every node and the heartbeat
// consult by address, grounded on
// original_source/blocksim/models/network.py's `_nodes` dict.
type Network struct {
	nodes map[string]node.Peer
}

// New builds an empty registry.
func New() *Network {
	return &Network{nodes: make(map[string]node.Peer)}
}

// AddNode registers a node under its address.
func (n *Network) AddNode(p node.Peer) {
	n.nodes[p.Address()] = p
}

// GetNode looks up a node by address.
func (n *Network) GetNode(address string) (node.Peer, bool) {
	p, ok := n.nodes[address]
	return p, ok
}

// Peers returns every registered node, in no defined order.
func (n *Network) Peers() []node.Peer {
	out := make([]node.Peer, 0, len(n.nodes))
	for _, p := range n.nodes {
		out = append(out, p)
	}
	return out
}
