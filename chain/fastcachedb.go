package chain

import "github.com/VictoriaMetrics/fastcache"

// FastCacheDatabase backs Database with an in-memory fastcache, for
// large simulations where the block-index keyspace outgrows a plain Go
// map. Grounded on the teacher's snapshot package, which caches trie
// nodes behind the same fastcache.New(maxBytes) constructor.
type FastCacheDatabase struct {
	cache *fastcache.Cache
}

// NewFastCacheDatabase returns a Database backed by a fastcache of the
// given max size in bytes.
func NewFastCacheDatabase(maxBytes int) *FastCacheDatabase {
	return &FastCacheDatabase{cache: fastcache.New(maxBytes)}
}

func (d *FastCacheDatabase) Put(key string, value []byte) error {
	d.cache.Set([]byte(key), value)
	return nil
}

func (d *FastCacheDatabase) Get(key string) ([]byte, error) {
	v, ok := d.cache.HasGet(nil, []byte(key))
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

func (d *FastCacheDatabase) Has(key string) (bool, error) {
	return d.cache.Has([]byte(key)), nil
}

func (d *FastCacheDatabase) Delete(key string) error {
	d.cache.Del([]byte(key))
	return nil
}
