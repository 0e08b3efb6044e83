package chain

import (
	"github.com/syndtr/goleveldb/leveldb"
	leveldberrors "github.com/syndtr/goleveldb/leveldb/errors"
)

// LevelDBDatabase backs Database with goleveldb, for simulation runs
// that persist chain indices to disk between processes. Grounded on
// the teacher's storage/database.levelDB wrapper (NewLDBDatabase's
// open-or-recover pattern), trimmed to the Put/Get/Has/Delete surface
// the Chain store actually needs.
type LevelDBDatabase struct {
	db *leveldb.DB
}

// OpenLevelDB opens (or creates) a goleveldb database at path,
// recovering from a corrupted file the way the teacher's
// NewLDBDatabase does.
func OpenLevelDB(path string) (*LevelDBDatabase, error) {
	db, err := leveldb.OpenFile(path, nil)
	if _, corrupted := err.(*leveldberrors.ErrCorrupted); corrupted {
		db, err = leveldb.RecoverFile(path, nil)
	}
	if err != nil {
		return nil, err
	}
	return &LevelDBDatabase{db: db}, nil
}

func (d *LevelDBDatabase) Put(key string, value []byte) error {
	return d.db.Put([]byte(key), value, nil)
}

func (d *LevelDBDatabase) Get(key string) ([]byte, error) {
	v, err := d.db.Get([]byte(key), nil)
	if err == leveldb.ErrNotFound {
		return nil, ErrNotFound
	}
	return v, err
}

func (d *LevelDBDatabase) Has(key string) (bool, error) {
	return d.db.Has([]byte(key), nil)
}

func (d *LevelDBDatabase) Delete(key string) error {
	return d.db.Delete([]byte(key), nil)
}

// Close releases the underlying file handles.
func (d *LevelDBDatabase) Close() error {
	return d.db.Close()
}
