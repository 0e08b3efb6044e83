package node

import (
	"github.com/blocksim/blocksim/chain"
	"github.com/blocksim/blocksim/message/ethereum"
	"github.com/blocksim/blocksim/sampling"
	"github.com/blocksim/blocksim/tx"
	"github.com/blocksim/blocksim/txpool"

	"github.com/blocksim/blocksim/kernel"
	"github.com/blocksim/blocksim/transport"
)

// ETHNode is the Ethereum protocol state machine (spec.md section
// 4.7): status handshake, new_blocks -> get_headers -> block_headers ->
// get_block_bodies -> block_bodies header-then-body fetch, bulk
// transaction push, and a gas-limited interruptible mining loop.
// Grounded on original_source/blocksim/models/ethereum/node.py's
// ETHNode.
type ETHNode struct {
	*Node

	isMining   bool
	hashrate   float64
	sizeTable  ethereum.SizeTable
	config     EthereumConfig
	validation ValidationDelays

	mempool     txpool.Queue
	tempHeaders map[chain.Hash]chain.EthHeader
	peerStatus  map[string]ethereum.Status
	handshaking *latch
	miningTask  *kernel.Task
}

// NewETHNode builds an Ethereum node over an independent chain seeded
// with genesis.
func NewETHNode(
	k *kernel.Kernel,
	tr *transport.Transport,
	db chain.Database,
	genesis chain.Block,
	address, location string,
	isMining bool,
	hashrate float64,
	sizeTable ethereum.SizeTable,
	cfg EthereumConfig,
	validation ValidationDelays,
	counter txpool.Counter,
) (*ETHNode, error) {
	c, err := chain.New(db, genesis, address, k.Rand())
	if err != nil {
		return nil, err
	}
	n := &ETHNode{
		Node:        NewNode(k, tr, c, address, location),
		isMining:    isMining,
		hashrate:    hashrate,
		sizeTable:   sizeTable,
		config:      cfg,
		validation:  validation,
		tempHeaders: make(map[chain.Hash]chain.EthHeader),
		peerStatus:  make(map[string]ethereum.Status),
		handshaking: newLatch(k),
	}
	n.Handler = n
	if isMining {
		n.mempool = txpool.NewPriorityQueue(k, address, counter)
	}
	return n, nil
}

// IsMining reports whether this node participates in block creation.
func (n *ETHNode) IsMining() bool { return n.isMining }

// Hashrate is this node's share of the network's mining power.
func (n *ETHNode) Hashrate() float64 { return n.hashrate }

// Mempool exposes the pending-transaction queue for tests and the
// seeding factory; nil for a non-mining node.
func (n *ETHNode) Mempool() txpool.Queue { return n.mempool }

// Connect performs the base acknowledgement phase, then sends `status`
// to every peer (spec.md section 4.7's handshake), grounded on
// original_source/blocksim/models/ethereum/node.py's
// `connect`/`_handshake`.
func (n *ETHNode) Connect(peers []Peer) {
	n.Node.Connect(peers)
	for _, p := range peers {
		if p.Address() == n.AddressID {
			continue
		}
		msg := n.statusMessage()
		n.SendAsync(p.Address(), msg, msg.Size(n.sizeTable))
	}
}

func (n *ETHNode) statusMessage() ethereum.Status {
	head := n.Chain.Head()
	return ethereum.Status{
		ProtocolVersion: "eth/63",
		Network:         "blocksim",
		TotalDifficulty: n.Chain.PowDifficulty(head),
		BestHash:        head.Header.Hash(),
		GenesisHash:     n.Chain.GenesisHash(),
	}
}

// HandleEnvelope dispatches on the message id, per spec.md section
// 4.7's wire protocol table.
func (n *ETHNode) HandleEnvelope(env transport.Envelope) {
	switch msg := env.Msg.(type) {
	case ethereum.Status:
		n.receiveStatus(env.Origin, msg)
	case ethereum.NewBlocks:
		n.receiveNewBlocks(env.Origin, msg)
	case ethereum.Transactions:
		n.receiveTransactions(msg.Transactions)
	case ethereum.GetHeaders:
		n.sendBlockHeaders(env.Origin, msg)
	case ethereum.BlockHeaders:
		n.receiveBlockHeaders(env.Origin, msg)
	case ethereum.GetBlockBodies:
		n.sendBlockBodies(env.Origin, msg)
	case ethereum.BlockBodies:
		n.receiveBlockBodies(msg)
	}
}

func (n *ETHNode) receiveStatus(origin string, msg ethereum.Status) {
	n.peerStatus[origin] = msg
	n.handshaking.Arm()
}

// receiveNewBlocks interrupts an in-progress mining attempt, then
// requests headers starting at the lowest block number not already
// known locally.
func (n *ETHNode) receiveNewBlocks(origin string, msg ethereum.NewBlocks) {
	if n.isMining && n.miningTask != nil && n.miningTask.Alive() {
		n.K.Interrupt(n.miningTask)
	}
	var lowest uint64
	found := false
	for h, num := range msg.Blocks {
		if _, known := n.Chain.GetBlock(h); known {
			continue
		}
		if !found || num < lowest {
			lowest = num
			found = true
		}
	}
	if !found {
		return
	}
	req := ethereum.GetHeaders{BlockNumber: lowest, MaxHeaders: len(msg.Blocks)}
	n.SendAsync(origin, req, req.Size(n.sizeTable))
}

// receiveTransactions queues transactions directly if mining;
// otherwise it pays a validation delay (mirroring the Python source's
// `consensus.validate_transaction()`, whose result is only ever used
// to model a CPU cost, never to gate anything) and rebroadcasts.
func (n *ETHNode) receiveTransactions(txs []tx.EthTransaction) {
	for _, t := range txs {
		n.Monitor.RecordReceived("tx", string(t.Hash()), n.AddressID, n.K.Now())
	}
	if n.isMining {
		for _, t := range txs {
			n.mempool.Put(t)
		}
		return
	}
	n.K.Spawn(func(task *kernel.Task) {
		delay, err := n.validation.ValidateTransaction()
		if err != nil {
			logger.Errorw("tx validation sample failed", "node", n.AddressID, "error", err)
			return
		}
		task.Wait(delay)
	})
	n.broadcastTransactions(txs)
}

// sendBlockHeaders replies to get_headers, walking backward from the
// main-chain hash at BlockNumber.
func (n *ETHNode) sendBlockHeaders(origin string, req ethereum.GetHeaders) {
	startHash, ok := n.Chain.GetBlockHashByNumber(req.BlockNumber)
	if !ok {
		return
	}
	hashes := n.Chain.GetBlockHashesFromHash(startHash, req.MaxHeaders)
	headers := make([]chain.EthHeader, 0, len(hashes))
	for _, h := range hashes {
		b, ok := n.Chain.GetBlock(h)
		if !ok {
			continue
		}
		headers = append(headers, b.Header.(chain.EthHeader))
	}
	reply := ethereum.BlockHeaders{Headers: headers}
	n.SendAsync(origin, reply, reply.Size(n.sizeTable))
}

// receiveBlockHeaders pays a per-header validation delay before
// enqueueing each into tempHeaders, then requests bodies for all of
// them in one round trip.
func (n *ETHNode) receiveBlockHeaders(origin string, msg ethereum.BlockHeaders) {
	n.K.Spawn(func(task *kernel.Task) {
		hashes := make([]chain.Hash, 0, len(msg.Headers))
		for _, h := range msg.Headers {
			delay, err := n.validation.ValidateBlock()
			if err != nil {
				logger.Errorw("block validation sample failed", "node", n.AddressID, "error", err)
				continue
			}
			if err := task.Wait(delay); err != nil {
				return
			}
			n.tempHeaders[h.Hash()] = h
			hashes = append(hashes, h.Hash())
		}
		if len(hashes) == 0 {
			return
		}
		req := ethereum.GetBlockBodies{Hashes: hashes}
		n.SendAsync(origin, req, req.Size(n.sizeTable))
	})
}

// sendBlockBodies replies to get_block_bodies with the transactions of
// every requested block this node has stored; unknown hashes are
// silently skipped (spec.md section 7 category 4).
func (n *ETHNode) sendBlockBodies(origin string, req ethereum.GetBlockBodies) {
	bodies := make(map[chain.Hash][]tx.EthTransaction)
	for _, h := range req.Hashes {
		b, ok := n.Chain.GetBlock(h)
		if !ok {
			continue
		}
		txs := make([]tx.EthTransaction, 0, len(b.Transactions))
		for _, t := range b.Transactions {
			txs = append(txs, t.(tx.EthTransaction))
		}
		bodies[h] = txs
	}
	reply := ethereum.BlockBodies{Bodies: bodies}
	n.SendAsync(origin, reply, reply.Size(n.sizeTable))
}

// receiveBlockBodies assembles and adds every block whose header is
// still pending in tempHeaders, dropping it from there on success.
func (n *ETHNode) receiveBlockBodies(msg ethereum.BlockBodies) {
	for h, txs := range msg.Bodies {
		header, ok := n.tempHeaders[h]
		if !ok {
			continue
		}
		chainTxs := make([]chain.Transaction, len(txs))
		for i, t := range txs {
			chainTxs[i] = t
		}
		block := chain.Block{Header: header, Transactions: chainTxs}
		n.Monitor.RecordReceived("block", string(h), n.AddressID, n.K.Now())
		added, err := n.Chain.AddBlock(block)
		if err != nil {
			logger.Errorw("add block failed", "node", n.AddressID, "error", err)
			continue
		}
		if added {
			delete(n.tempHeaders, h)
		}
	}
}

// BroadcastTransactions is the exported entry point the transaction
// factory (world/) uses to inject a freshly generated batch into the
// network from a chosen origin node.
func (n *ETHNode) BroadcastTransactions(txs []tx.EthTransaction) {
	n.broadcastTransactions(txs)
}

// broadcastTransactions waits for connection setup and handshaking to
// complete, then bulk-pushes txs to every peer, omitting per peer
// whatever it has already seen.
func (n *ETHNode) broadcastTransactions(txs []tx.EthTransaction) {
	n.K.Spawn(func(task *kernel.Task) {
		if err := n.AwaitConnecting(task); err != nil {
			return
		}
		if err := n.handshaking.Await(task); err != nil {
			return
		}
		n.BroadcastAsync(func(task *kernel.Task, destAddress string) (interface{}, float64, bool) {
			session, ok := n.PeerSession(destAddress)
			if !ok {
				return nil, 0, true
			}
			var unknown []tx.EthTransaction
			for _, t := range txs {
				h := string(t.Hash())
				if session.KnowsTransaction(h) {
					continue
				}
				session.MarkTransaction(h)
				unknown = append(unknown, t)
			}
			if len(unknown) == 0 {
				return nil, 0, true
			}
			msg := ethereum.Transactions{Transactions: unknown}
			return msg, msg.Size(n.sizeTable), false
		})
	})
}

// broadcastNewBlocks advertises freshly-mined blocks by hash and
// number to every peer (spec.md section 4.7).
func (n *ETHNode) broadcastNewBlocks(blocks []chain.Block) {
	hashes := make(map[chain.Hash]uint64, len(blocks))
	for _, b := range blocks {
		hashes[b.Header.Hash()] = b.Header.HeaderNumber()
	}
	msg := ethereum.NewBlocks{Blocks: hashes}
	n.BroadcastAsync(func(task *kernel.Task, destAddress string) (interface{}, float64, bool) {
		return msg, msg.Size(n.sizeTable), false
	})
}

// BuildNewBlock is the heartbeat's entry point into mining: drain the
// fee-ordered mempool until the configured gas limit is reached,
// assemble and add the candidate, then broadcast.
func (n *ETHNode) BuildNewBlock() {
	if !n.isMining {
		return
	}
	n.miningTask = n.K.Spawn(func(task *kernel.Task) {
		gasLimit := n.config.BlockGasLimit
		var pending []tx.EthTransaction
		var gasUsed uint64
		for gasUsed < gasLimit {
			v, err := n.mempool.Get(task)
			if err != nil {
				return
			}
			t := v.(tx.EthTransaction)
			pending = append(pending, t)
			gasUsed += uint64(t.StartGas)
		}
		head := n.Chain.Head()
		headHeader := head.Header.(chain.EthHeader)
		difficulty := chain.CalcDifficultyEthereum(headHeader, n.K.Now())
		header := chain.EthHeader{
			Header: chain.Header{
				PrevHash:   head.Header.Hash(),
				Number:     head.Header.HeaderNumber() + 1,
				Timestamp:  n.K.Now(),
				Coinbase:   n.AddressID,
				Difficulty: difficulty,
			},
			GasLimit: gasLimit,
			GasUsed:  gasUsed,
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
