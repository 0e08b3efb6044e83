package transport

import lru "github.com/hashicorp/golang-lru"

// MaxKnownTxs and MaxKnownBlocks cap per-peer duplicate-suppression
// membership (spec.md section 3, ActiveSession).
const (
	MaxKnownTxs    = 30000
	MaxKnownBlocks = 1024
)

// ActiveSession is a node's view of one peer (spec.md section 3):
// the connection plus bounded known-txs/known-blocks sets used to
// avoid re-announcing what the peer already has. The Python source
// evicts an arbitrary element from a plain set once a cap is hit
// (`while len(known) >= MAX: known.pop()`); an LRU cache gives the
// same "discard something, never the one just inserted" contract with
// a principled eviction order instead of dict-iteration-order luck.
type ActiveSession struct {
	Connection  *Connection
	knownTxs    *lru.Cache
	knownBlocks *lru.Cache
}

// NewActiveSession builds a session wrapping conn.
func NewActiveSession(conn *Connection) (*ActiveSession, error) {
	txs, err := lru.New(MaxKnownTxs)
	if err != nil {
		return nil, err
	}
	blocks, err := lru.New(MaxKnownBlocks)
	if err != nil {
		return nil, err
	}
	return &ActiveSession{Connection: conn, knownTxs: txs, knownBlocks: blocks}, nil
}

// MarkTransaction records hash as known to this peer.
func (s *ActiveSession) MarkTransaction(hash string) {
	s.knownTxs.Add(hash, struct{}{})
}

// KnowsTransaction reports whether hash was already marked.
func (s *ActiveSession) KnowsTransaction(hash string) bool {
	return s.knownTxs.Contains(hash)
}

// MarkBlock records hash as known to this peer.
func (s *ActiveSession) MarkBlock(hash string) {
	s.knownBlocks.Add(hash, struct{}{})
}

// KnowsBlock reports whether hash was already marked.
func (s *ActiveSession) KnowsBlock(hash string) bool {
	return s.knownBlocks.Contains(hash)
}
