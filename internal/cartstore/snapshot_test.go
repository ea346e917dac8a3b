package cartstore_test

import (
	"os"
	"path/filepath"
	"testing"

	"storefront/internal/cartstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSnapshotStore_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := cartstore.NewFileSnapshotStore(dir)

	//何も無ければ ok=false
	_, ok, err := store.Load()
	require.NoError(t, err)
	assert.False(t, ok)

	snap := cartstore.Snapshot{Items: []cartstore.SnapshotItem{
		{Product: product(1, 100), Quantity: 2},
	}}
	require.NoError(t, store.Save(snap))

	got, ok, err := store.Load()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, snap, got)

	require.NoError(t, store.Clear())
	_, ok, err = store.Load()
	require.NoError(t, err)
	assert.False(t, ok)

	//Clearは二重に呼んでもエラーにしない
	require.NoError(t, store.Clear())
}

func TestFileSnapshotStore_CorruptFileTreatedAsAbsent(t *testing.T) {
	dir := t.TempDir()
	store := cartstore.NewFileSnapshotStore(dir)

	path := filepath.Join(dir, cartstore.StoreName+".json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, ok, err := store.Load()
	require.NoError(t, err)
	assert.False(t, ok)
}
