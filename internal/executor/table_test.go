package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"incresql/internal/catalog"
	"incresql/internal/storage"
	"incresql/internal/types"
)

func openTestStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testTableMeta(id storage.TableID) *catalog.TableMeta {
	return &catalog.TableMeta{
		DatabaseName: "db",
		Name:         "t",
		TableID:      id,
		Columns: []catalog.ColumnDef{
			{Name: "id", Type: types.Integer},
			{Name: "name", Type: types.Text},
		},
		PKLen:  1,
		PKDesc: []bool{false},
	}
}

func TestTableInsertThenScanRoundTrips(t *testing.T) {
	store := openTestStore(t)
	table := testTableMeta(100)
	handle := store.Table(table.TableID)

	source := NewValues([][]types.Datum{
		{types.NewInteger(1), types.NewTextString("alice")},
		{types.NewInteger(2), types.NewTextString("bob")},
	}, 2)
	insert := NewTableInsert(handle, table, 1, source)
	rows, freqs := drain(t, insert)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(2), rows[0][0].AsBigInt())
	assert.Equal(t, []int64{1}, freqs)

	scan := NewTableScan(handle, table, storage.MaxTimestamp)
	scanned, scanFreqs := drain(t, scan)
	require.Len(t, scanned, 2)
	assert.Equal(t, int32(1), scanned[0][0].AsInteger())
	assert.Equal(t, "alice", scanned[0][1].AsText())
	assert.Equal(t, int32(2), scanned[1][0].AsInteger())
	assert.Equal(t, "bob", scanned[1][1].AsText())
	assert.Equal(t, []int64{1, 1}, scanFreqs)
}

func TestTableScanIsEmptyOverEmptyTable(t *testing.T) {
	store := openTestStore(t)
	table := testTableMeta(102)
	handle := store.Table(table.TableID)

	scan := NewTableScan(handle, table, storage.MaxTimestamp)
	scanned, _ := drain(t, scan)
	assert.Empty(t, scanned)
}
