package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/manas360/stepwise/pkg/adapters/sqlite"
	"github.com/manas360/stepwise/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.RecordStore = (*sqlite.Store)(nil)

func openTestStore(t *testing.T) (*sqlite.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "records.db")
	store, err := sqlite.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, path
}

func TestSQLiteStore_Contract(t *testing.T) {
	store, _ := openTestStore(t)
	ports.RunRecordStoreContract(t, store)
}

func TestSQLiteStore_RequiresPath(t *testing.T) {
	_, err := sqlite.Open("  ")
	assert.Error(t, err)
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	store, path := openTestStore(t)
	ctx := context.Background()
	ts := time.Date(2024, 2, 1, 8, 15, 30, 123456789, time.UTC)

	require.NoError(t, store.Append(ctx, ports.NewContractRecord("r1", "Asha", ts)))
	require.NoError(t, store.Close())

	reopened, err := sqlite.Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	rec, err := reopened.Get(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, ts.Equal(rec.Timestamp), "nanosecond timestamp survives")
	assert.Equal(t, []string{"situation", "emotions", "distortions", "alternativeThought"}, rec.Data.Keys())
}

func TestSQLiteStore_CloseNil(t *testing.T) {
	var s *sqlite.Store
	assert.NoError(t, s.Close())
}
