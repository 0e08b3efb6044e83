package chain

import (
	"fmt"
	"math/rand"
	"strconv"
)

func blockNumberKey(n uint64) string { return fmt.Sprintf("block:%d", n) }
func scoreKey(h Hash) string         { return "score:" + string(h) }
func childKey(h Hash) string         { return "child:" + string(h) }

// Chain is the keyed block store of spec.md section 3/4.2: orphan
// queueing, fork detection and head replacement by cumulative
// difficulty, grounded on the Python source's models/chain.py
// add_block algorithm (head-extension / side-branch-with-reorg /
// orphan-queue-with-transitive-drain).
//
// Block payloads live in an in-memory map keyed by hash: the Python
// store keeps arbitrary objects under a flat key, which a byte-keyed
// Database cannot do without an encoding scheme for the Transaction
// interface. The byte-keyed Database instead backs the three index
// keys (block:{number}, score:{hash}, child:{hash}) that are pure
// strings, so goleveldb/fastcache backends get real, persistence-
// relevant work instead of serializing opaque payloads.
type Chain struct {
	db          Database
	blocks      map[Hash]Block
	headHash    Hash
	genesisHash Hash
	parentQueue map[Hash][]Block
	rng         *rand.Rand
	nodeAddress string
	forks       int
}

// New seeds the chain with genesis and returns the store. rng is the
// kernel-owned PRNG used for the cumulative-difficulty tie-breaker
// (REDESIGN flag 3): scores are persisted once computed so repeated
// reads of the same block are deterministic within a run.
func New(db Database, genesis Block, nodeAddress string, rng *rand.Rand) (*Chain, error) {
	gh := genesis.Header.Hash()
	c := &Chain{
		db:          db,
		blocks:      map[Hash]Block{gh: genesis},
		headHash:    gh,
		genesisHash: gh,
		parentQueue: make(map[Hash][]Block),
		rng:         rng,
		nodeAddress: nodeAddress,
	}
	if err := db.Put(scoreKey(gh), []byte("0")); err != nil {
		return nil, err
	}
	if err := db.Put(blockNumberKey(genesis.Header.HeaderNumber()), []byte(gh)); err != nil {
		return nil, err
	}
	return c, nil
}

// Head returns the block at the tip of the main chain.
func (c *Chain) Head() Block {
	return c.blocks[c.headHash]
}

// GenesisHash returns the hash of block 0, used by the Ethereum status
// handshake (spec.md section 4.7: `status{..., genesis_hash}`).
func (c *Chain) GenesisHash() Hash {
	return c.genesisHash
}

// ForksCount is the `forks_{address}` monitor counter (spec.md section
// 4.2): incremented whenever a block lands on a non-head chain.
func (c *Chain) ForksCount() int { return c.forks }

// GetBlock returns the block with the given hash, or false if unknown.
func (c *Chain) GetBlock(h Hash) (Block, bool) {
	b, ok := c.blocks[h]
	return b, ok
}

// GetParent returns the parent of block, or false for genesis.
func (c *Chain) GetParent(b Block) (Block, bool) {
	if b.Header.HeaderNumber() == 0 {
		return Block{}, false
	}
	return c.GetBlock(b.Header.HeaderPrevHash())
}

// GetBlockHashByNumber returns the main-chain hash at height n.
func (c *Chain) GetBlockHashByNumber(n uint64) (Hash, bool) {
	raw, err := c.db.Get(blockNumberKey(n))
	if err != nil {
		return "", false
	}
	return Hash(raw), true
}

// GetBlockByNumber returns the main-chain block at height n.
func (c *Chain) GetBlockByNumber(n uint64) (Block, bool) {
	h, ok := c.GetBlockHashByNumber(n)
	if !ok {
		return Block{}, false
	}
	return c.GetBlock(h)
}

// Contains reports whether block's number maps to block's hash on the
// main chain index (the Python source's __contains__).
func (c *Chain) Contains(b Block) bool {
	h, ok := c.GetBlockHashByNumber(b.Header.HeaderNumber())
	return ok && h == b.Header.Hash()
}

func (c *Chain) addChild(child Block) error {
	parent := child.Header.HeaderPrevHash()
	key := childKey(parent)
	existing, _ := c.db.Get(key)
	hash := string(child.Header.Hash())
	for i := 0; i+64 <= len(existing); i += 64 {
		if string(existing[i:i+64]) == hash {
			return nil
		}
	}
	return c.db.Put(key, append(existing, []byte(hash)...))
}

// GetChildHashes returns the hashes of all known children of h.
func (c *Chain) GetChildHashes(h Hash) []Hash {
	data, err := c.db.Get(childKey(h))
	if err != nil {
		return nil
	}
	var out []Hash
	for i := 0; i+64 <= len(data); i += 64 {
		out = append(out, Hash(data[i:i+64]))
	}
	return out
}

// GetChildren returns the children of block.
func (c *Chain) GetChildren(b Block) []Block {
	hashes := c.GetChildHashes(b.Header.Hash())
	out := make([]Block, 0, len(hashes))
	for _, h := range hashes {
		if child, ok := c.GetBlock(h); ok {
			out = append(out, child)
		}
	}
	return out
}

// PowDifficulty returns the cumulative difficulty ("score") of block,
// walking back to the nearest block with a persisted score and then
// filling scores forward, each increment carrying a random tie-breaker
// so equal-difficulty branches still resolve deterministically within
// a run (REDESIGN flag 3).
func (c *Chain) PowDifficulty(b Block) int64 {
	if b.Header == nil {
		return 0
	}
	type fill struct {
		hash       Hash
		difficulty int64
	}
	var fills []fill
	cur := b
	key := scoreKey(cur.Header.Hash())
	for {
		if has, _ := c.db.Has(key); has {
			break
		}
		fills = append([]fill{{cur.Header.Hash(), cur.Header.HeaderDifficulty()}}, fills...)
		parent, ok := c.GetParent(cur)
		if !ok {
			return 0
		}
		cur = parent
		key = scoreKey(cur.Header.Hash())
	}
	raw, _ := c.db.Get(key)
	score, _ := strconv.ParseInt(string(raw), 10, 64)
	for _, f := range fills {
		score = score + f.difficulty + c.rng.Int63n(1000001)
		c.db.Put(scoreKey(f.hash), []byte(strconv.FormatInt(score, 10)))
	}
	return score
}

// AddBlock is the entry point on receiving a block (spec.md section
// 4.2): head-extension, side-branch insertion with reorg when the new
// branch's score exceeds the head's, or orphan queueing when the
// parent is unknown. Returns false only when the block was queued as
// an orphan.
func (c *Chain) AddBlock(b Block) (bool, error) {
	hash := b.Header.Hash()
	prev := b.Header.HeaderPrevHash()

	switch {
	case prev == c.headHash:
		if err := c.db.Put(blockNumberKey(b.Header.HeaderNumber()), []byte(hash)); err != nil {
			return false, err
		}
		c.headHash = hash

	case c.isKnown(prev):
		c.forks++
		blockScore := c.PowDifficulty(b)
		if blockScore > c.PowDifficulty(c.Head()) {
			if err := c.reorganize(b); err != nil {
				return false, err
			}
			c.headHash = hash
		}

	default:
		c.parentQueue[prev] = append(c.parentQueue[prev], b)
		return false, nil
	}

	if err := c.addChild(b); err != nil {
		return false, err
	}
	c.blocks[hash] = b

	if waiting, ok := c.parentQueue[hash]; ok {
		delete(c.parentQueue, hash)
		for _, child := range waiting {
			if _, err := c.AddBlock(child); err != nil {
				return false, err
			}
		}
	}
	return true, nil
}

func (c *Chain) isKnown(h Hash) bool {
	_, ok := c.blocks[h]
	return ok
}

// reorganize finds the common ancestor of b's branch and the current
// main chain, then rewrites the block:{number} index over the
// divergent range, mirroring the Python source's replace_from/
// itertools.count rewrite loop exactly.
func (c *Chain) reorganize(b Block) error {
	newChain := make(map[uint64]Block)
	cur := b
	for {
		newChain[cur.Header.HeaderNumber()] = cur
		origHash, hasOrig := c.GetBlockHashByNumber(cur.Header.HeaderNumber())
		if hasOrig && origHash == cur.Header.Hash() {
			break
		}
		parentHash := cur.Header.HeaderPrevHash()
		if !c.isKnown(parentHash) || parentHash == c.genesisHash {
			break
		}
		parent, ok := c.GetParent(cur)
		if !ok {
			break
		}
		cur = parent
	}
	replaceFrom := cur.Header.HeaderNumber()
	for i := replaceFrom; ; i++ {
		key := blockNumberKey(i)
		origHash, hasOrig := c.GetBlockHashByNumber(i)
		if hasOrig {
			if err := c.db.Delete(key); err != nil {
				return err
			}
		}
		newAtHeight, inNewChain := newChain[i]
		if inNewChain {
			if err := c.db.Put(key, []byte(newAtHeight.Header.Hash())); err != nil {
				return err
			}
		}
		if !inNewChain && !hasOrig {
			break
		}
	}
	return nil
}

// GetBlockHashesFromHash walks backwards from h, collecting up to
// maxNum hashes (used by Ethereum-style header sync).
func (c *Chain) GetBlockHashesFromHash(h Hash, maxNum int) []Hash {
	b, ok := c.GetBlock(h)
	if !ok {
		return nil
	}
	hashes := []Hash{b.Header.Hash()}
	for i := 0; i < maxNum-1; i++ {
		parent, ok := c.GetBlock(b.Header.HeaderPrevHash())
		if !ok {
			break
		}
		b = parent
		hashes = append(hashes, b.Header.Hash())
		if b.Header.HeaderNumber() == 0 {
			break
		}
	}
	return hashes
}
