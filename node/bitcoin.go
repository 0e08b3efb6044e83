package node

import (
	"github.com/blocksim/blocksim/chain"
	"github.com/blocksim/blocksim/message/bitcoin"
	"github.com/blocksim/blocksim/sampling"
	"github.com/blocksim/blocksim/tx"
	"github.com/blocksim/blocksim/txpool"

	"github.com/blocksim/blocksim/kernel"
	"github.com/blocksim/blocksim/transport"
)

// BTCNode is the Bitcoin protocol state machine (spec.md section 4.6):
// version/verack handshake, inv/getdata object pull for both txs and
// blocks, and an interruptible mining loop driven by the network
// heartbeat. Grounded on
// original_source/blocksim/models/bitcoin/node.py's BTCNode.
type BTCNode struct {
	*Node

	isMining   bool
	hashrate   float64
	sizeTable  bitcoin.SizeTable
	config     BitcoinConfig
	sampler    sampling.Sampler
	validation ValidationDelays

	mempool     txpool.Queue
	tempTxs     map[chain.Hash]tx.Transaction
	txOnTransit map[chain.Hash]bool
	sentVersion map[string]bool
	handshaking *latch
	miningTask  *kernel.Task
}

// NewBTCNode builds a Bitcoin node over an independent chain seeded
// with genesis (every node in a run must be given the same genesis
// block so their chains agree on block 0's hash).
func NewBTCNode(
	k *kernel.Kernel,
	tr *transport.Transport,
	db chain.Database,
	genesis chain.Block,
	address, location string,
	isMining bool,
	hashrate float64,
	sizeTable bitcoin.SizeTable,
	cfg BitcoinConfig,
	sampler sampling.Sampler,
	validation ValidationDelays,
	counter txpool.Counter,
) (*BTCNode, error) {
	c, err := chain.New(db, genesis, address, k.Rand())
	if err != nil {
		return nil, err
	}
	n := &BTCNode{
		Node:        NewNode(k, tr, c, address, location),
		isMining:    isMining,
		hashrate:    hashrate,
		sizeTable:   sizeTable,
		config:      cfg,
		sampler:     sampler,
		validation:  validation,
		tempTxs:     make(map[chain.Hash]tx.Transaction),
		txOnTransit: make(map[chain.Hash]bool),
		sentVersion: make(map[string]bool),
		handshaking: newLatch(k),
	}
	n.Handler = n
	if isMining {
		n.mempool = txpool.NewFIFOQueue(k, address, counter)
	}
	return n, nil
}

// IsMining reports whether this node participates in block creation.
func (n *BTCNode) IsMining() bool { return n.isMining }

// Hashrate is this node's share of the network's mining power
// (spec.md section 4.8), meaningless for a non-miner.
func (n *BTCNode) Hashrate() float64 { return n.hashrate }

// Mempool exposes the pending-transaction queue for tests and the
// seeding factory (world/); nil for a non-mining node.
func (n *BTCNode) Mempool() txpool.Queue { return n.mempool }

// Connect performs the base acknowledgement phase, then immediately
// sends `version` to every newly-contacted peer (spec.md section 4.6's
// "Handshake" paragraph).
func (n *BTCNode) Connect(peers []Peer) {
	n.Node.Connect(peers)
	for _, p := range peers {
		if p.Address() == n.AddressID {
			continue
		}
		addr := p.Address()
		if n.sentVersion[addr] {
			continue
		}
		n.sentVersion[addr] = true
		msg := bitcoin.Version{}
		n.SendAsync(addr, msg, msg.Size(n.sizeTable))
	}
}

// HandleEnvelope dispatches on the message id, per spec.md section
// 4.6's wire protocol table.
func (n *BTCNode) HandleEnvelope(env transport.Envelope) {
	switch msg := env.Msg.(type) {
	case bitcoin.Version:
		n.handleVersion(env.Origin)
	case bitcoin.Verack:
		n.handshaking.Arm()
	case bitcoin.Inv:
		switch msg.Type {
		case bitcoin.InvTypeTx:
			n.handleInvTx(env.Origin, msg.Hashes)
		case bitcoin.InvTypeBlock:
			n.handleInvBlock(env.Origin, msg.Hashes)
		}
	case bitcoin.GetData:
		switch msg.Type {
		case bitcoin.InvTypeTx:
			n.sendFullTransactions(env.Origin, msg.Hashes)
		case bitcoin.InvTypeBlock:
			n.sendFullBlocks(env.Origin, msg.Hashes)
		}
	case bitcoin.Tx:
		n.receiveFullTransaction(msg.Tx)
	case bitcoin.Block:
		n.receiveFullBlock(msg.Block)
	}
}

// handleVersion replies verack, and sends our own version first if we
// have not already (a race-safety net for near-simultaneous connects
// from both sides).
func (n *BTCNode) handleVersion(origin string) {
	reply := bitcoin.Verack{}
	n.SendAsync(origin, reply, reply.Size(n.sizeTable))
	if !n.sentVersion[origin] {
		n.sentVersion[origin] = true
		msg := bitcoin.Version{}
		n.SendAsync(origin, msg, msg.Size(n.sizeTable))
	}
}

// handleInvTx requests the full transaction for every advertised hash
// not already in flight.
func (n *BTCNode) handleInvTx(origin string, hashes []chain.Hash) {
	var request []chain.Hash
	for _, h := range hashes {
		if !n.txOnTransit[h] {
			request = append(request, h)
		}
	}
	if len(request) == 0 {
		return
	}
	for _, h := range request {
		n.txOnTransit[h] = true
	}
	msg := bitcoin.GetData{Type: bitcoin.InvTypeTx, Hashes: request}
	n.SendAsync(origin, msg, msg.Size(n.sizeTable))
}

// handleInvBlock interrupts an in-progress mining attempt (a new head
// candidate has appeared elsewhere) and requests full bodies for any
// hash not already stored locally.
func (n *BTCNode) handleInvBlock(origin string, hashes []chain.Hash) {
	if n.isMining && n.miningTask != nil && n.miningTask.Alive() {
		n.K.Interrupt(n.miningTask)
	}
	var request []chain.Hash
	for _, h := range hashes {
		if _, known := n.Chain.GetBlock(h); !known {
			request = append(request, h)
		}
	}
	if len(request) == 0 {
		return
	}
	msg := bitcoin.GetData{Type: bitcoin.InvTypeBlock, Hashes: request}
	n.SendAsync(origin, msg, msg.Size(n.sizeTable))
}

// sendFullTransactions replies to getdata[tx]: anything no longer in
// tempTxs was already served to someone else and is silently skipped
// (a TransientProtocolCondition, spec.md section 7 category 4).
func (n *BTCNode) sendFullTransactions(origin string, hashes []chain.Hash) {
	for _, h := range hashes {
		t, ok := n.tempTxs[h]
		if !ok {
			continue
		}
		delete(n.tempTxs, h)
		msg := bitcoin.Tx{Tx: t}
		n.SendAsync(origin, msg, msg.Size(n.sizeTable))
	}
}

// sendFullBlocks replies to getdata[block]; an unknown hash is
// likewise absorbed silently.
func (n *BTCNode) sendFullBlocks(origin string, hashes []chain.Hash) {
	for _, h := range hashes {
		b, ok := n.Chain.GetBlock(h)
		if !ok {
			continue
		}
		msg := bitcoin.Block{Block: b}
		n.SendAsync(origin, msg, msg.Size(n.sizeTable))
	}
}

// receiveFullTransaction drops the hash from the in-flight set, then
// either queues it (if mining) or rebroadcasts it onward.
func (n *BTCNode) receiveFullTransaction(t tx.Transaction) {
	delete(n.txOnTransit, t.Hash())
	n.Monitor.RecordReceived("tx", string(t.Hash()), n.AddressID, n.K.Now())
	if n.isMining {
		n.mempool.Put(t)
		return
	}
	n.broadcastTransactions([]tx.Transaction{t})
}

// receiveFullBlock attempts to add the block to the local chain.
// Orphaned/rejected outcomes are not errors (spec.md section 7
// category 5); AddBlock itself drains the orphan queue transitively.
func (n *BTCNode) receiveFullBlock(b chain.Block) {
	n.Monitor.RecordReceived("block", string(b.Header.Hash()), n.AddressID, n.K.Now())
	added, err := n.Chain.AddBlock(b)
	if err != nil {
		logger.Errorw("add block failed", "node", n.AddressID, "error", err)
		return
	}
	if !added {
		logger.Debugw("block orphaned, awaiting parent", "node", n.AddressID, "hash", b.Header.Hash())
	}
}

// broadcastTransactions fans txs out to every peer, paying a
// validate_transaction() delay per not-yet-known transaction per peer
// before marking it known and announcing it (spec.md section 9's
// supplemented feature 7, grounded on
// original_source/blocksim/models/bitcoin/node.py's
// broadcast_transactions). Omits any peer with nothing new to hear
// about; filtering is done per peer into a local slice, never a shared
// buffer mutated mid-iteration (REDESIGN flags 1 and 2).
// BroadcastTransactions is the exported entry point the transaction
// factory (world/) uses to inject a freshly generated batch into the
// network from a chosen origin node.
func (n *BTCNode) BroadcastTransactions(txs []tx.Transaction) {
	n.broadcastTransactions(txs)
}

func (n *BTCNode) broadcastTransactions(txs []tx.Transaction) {
	for _, t := range txs {
		n.tempTxs[t.Hash()] = t
	}
	n.K.Spawn(func(task *kernel.Task) {
		if err := n.AwaitConnecting(task); err != nil {
			return
		}
		n.BroadcastAsync(func(task *kernel.Task, destAddress string) (interface{}, float64, bool) {
			session, ok := n.PeerSession(destAddress)
			if !ok {
				return nil, 0, true
			}
			var hashes []chain.Hash
			for _, t := range txs {
				h := string(t.Hash())
				if session.KnowsTransaction(h) {
					continue
				}
				delay, err := n.validation.ValidateTransaction()
				if err != nil {
					logger.Errorw("tx validation sample failed", "node", n.AddressID, "error", err)
					continue
				}
				if err := task.Wait(delay); err != nil {
					return nil, 0, true
				}
				session.MarkTransaction(h)
				hashes = append(hashes, t.Hash())
			}
			if len(hashes) == 0 {
				return nil, 0, true
			}
			msg := bitcoin.Inv{Type: bitcoin.InvTypeTx, Hashes: hashes}
			return msg, msg.Size(n.sizeTable), false
		})
	})
}

// broadcastNewBlocks advertises freshly-mined or relayed blocks,
// per-peer duplicate-suppressed exactly like broadcastTransactions
// (blocks pay no validation delay on broadcast, matching spec.md
// section 4.6's mining loop, which validates nothing beyond assembly).
func (n *BTCNode) broadcastNewBlocks(blocks []chain.Block) {
	n.BroadcastAsync(func(task *kernel.Task, destAddress string) (interface{}, float64, bool) {
		session, ok := n.PeerSession(destAddress)
		if !ok {
			return nil, 0, true
		}
		var hashes []chain.Hash
		for _, b := range blocks {
			h := b.Header.Hash()
			hs := string(h)
			if session.KnowsBlock(hs) {
				continue
			}
			session.MarkBlock(hs)
			hashes = append(hashes, h)
		}
		if len(hashes) == 0 {
			return nil, 0, true
		}
		msg := bitcoin.Inv{Type: bitcoin.InvTypeBlock, Hashes: hashes}
		return msg, msg.Size(n.sizeTable), false
	})
}

// BuildNewBlock is the heartbeat's entry point into mining (spec.md
// section 4.6's "Mining loop"): drain the mempool up to the configured
// block size, assemble a candidate, add it locally, then broadcast.
// The drain can suspend on an empty mempool; an inbound block
// announcement interrupts it via handleInvBlock, and the task simply
// returns without producing a block, letting the next heartbeat call
// start over with fresh mempool contents.
func (n *BTCNode) BuildNewBlock() {
	if !n.isMining {
		return
	}
	n.miningTask = n.K.Spawn(func(task *kernel.Task) {
		txsPerUnit, err := sampling.SampleNonNegative(n.sampler, n.config.NumberTransactionsPerBlock, "", "")
		if err != nil {
			logger.Errorw("transactions_per_block sample failed", "node", n.AddressID, "error", err)
			return
		}
		maxTxs := int(txsPerUnit * n.config.BlockSizeLimitMB)
		pending := make([]tx.Transaction, 0, maxTxs)
		for len(pending) < maxTxs {
			v, err := n.mempool.Get(task)
			if err != nil {
				return
			}
			pending = append(pending, v.(tx.Transaction))
		}
		head := n.Chain.Head()
		difficulty := chain.CalcDifficultyBitcoin(head.Header, n.K.Now())
		header := chain.Header{
			PrevHash:   head.Header.Hash(),
			Number:     head.Header.HeaderNumber() + 1,
			Timestamp:  n.K.Now(),
			Coinbase:   n.AddressID,
			Difficulty: difficulty,
		}
		txsIface := make([]chain.Transaction, len(pending))
		for i, t := range pending {
			txsIface[i] = t
		}
		candidate := chain.Block{Header: header, Transactions: txsIface}
		added, err := n.Chain.AddBlock(candidate)
		if err != nil {
			logger.Errorw("add candidate block failed", "node", n.AddressID, "error", err)
			return
		}
		if added {
			n.Monitor.RecordCreated("block", string(header.Hash()), n.AddressID, n.K.Now())
			n.broadcastNewBlocks([]chain.Block{candidate})
		}
	})
}
