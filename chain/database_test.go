package chain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDatabaseContract(t *testing.T, db Database) {
	t.Helper()

	_, err := db.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
	has, err := db.Has("missing")
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, db.Put("k", []byte("v")))
	v, err := db.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(v))
	has, err = db.Has("k")
	require.NoError(t, err)
	assert.True(t, has)

	require.NoError(t, db.Delete("k"))
	_, err = db.Get("k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemDatabaseSatisfiesContract(t *testing.T) {
	testDatabaseContract(t, NewMemDatabase())
}

func TestFastCacheDatabaseSatisfiesContract(t *testing.T) {
	testDatabaseContract(t, NewFastCacheDatabase(32*1024*1024))
}

func TestLevelDBDatabaseSatisfiesContract(t *testing.T) {
	db, err := OpenLevelDB(t.TempDir())
	require.NoError(t, err)
	defer db.Close()
	testDatabaseContract(t, db)
}
