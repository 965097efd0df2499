package executor

import (
	"incresql/internal/catalog"
	"incresql/internal/codec"
	"incresql/internal/storage"
	"incresql/internal/types"
)

// encodeRow splits a full tuple into its pk bytes (the first table.PKLen
// columns, sortable-encoded respecting table.PKDesc) and its rest bytes
// (every remaining column, sortable-encoded ascending) — the storage
// write path's row format (table_scan.rs / table_insert.rs).
func encodeRow(table *catalog.TableMeta, row []types.Datum) (pk []byte, rest []byte) {
	pk = codec.EncodeKey(row[:table.PKLen], table.PKDesc)
	for _, d := range row[table.PKLen:] {
		rest = codec.WriteDatum(rest, d, codec.Asc)
	}
	return pk, rest
}

// decodeRow rebuilds a full tuple from a storage.Row given the table's
// column type list: pk columns decode with ReadDatum against each pk
// column's declared type (mirroring the order encodeRow used), rest
// columns likewise against the remaining columns' types.
func decodeRow(table *catalog.TableMeta, row storage.Row) ([]types.Datum, error) {
	out := make([]types.Datum, len(table.Columns))
	buf := row.PK
	for i := 0; i < table.PKLen; i++ {
		d, rem, err := codec.ReadDatum(buf, table.Columns[i].Type)
		if err != nil {
			return nil, err
		}
		out[i] = d
		buf = rem
	}
	buf = row.Rest
	for i := table.PKLen; i < len(table.Columns); i++ {
		d, rem, err := codec.ReadDatum(buf, table.Columns[i].Type)
		if err != nil {
			return nil, err
		}
		out[i] = d
		buf = rem
	}
	return out, nil
}

// tableScanIter performs a forward prefix scan over a table's index
// section at a fixed logical timestamp (table_scan.rs), decoding each
// visible storage.Row back into a tuple as it is pulled.
type tableScanIter struct {
	table      *catalog.TableMeta
	scanHandle *storage.Table
	ts         storage.Timestamp

	rows    []storage.Row
	scanned bool
	pos     int
}

func NewTableScan(handle *storage.Table, table *catalog.TableMeta, ts storage.Timestamp) TupleIter {
	return &tableScanIter{table: table, ts: ts, scanHandle: handle, pos: -1}
}

func (t *tableScanIter) ensureScanned() error {
	if t.scanned {
		return nil
	}
	err := t.scanHandle.Scan(t.ts, func(r storage.Row) (bool, error) {
		t.rows = append(t.rows, r)
		return true, nil
	})
	t.scanned = true
	return err
}

func (t *tableScanIter) Advance() error {
	if err := t.ensureScanned(); err != nil {
		return err
	}
	t.pos++
	return nil
}

func (t *tableScanIter) Get() ([]types.Datum, int64, bool) {
	if t.pos < 0 || t.pos >= len(t.rows) {
		return nil, 0, false
	}
	row, err := decodeRow(t.table, t.rows[t.pos])
	if err != nil {
		return nil, 0, false
	}
	return row, t.rows[t.pos].Freq, true
}

func (t *tableScanIter) ColumnCount() int { return len(t.table.Columns) }

// tableInsertIter consumes its source fully inside one atomic write batch
// (table_insert.rs), then yields a single row reporting the net row count
// written, matching the teacher's "DML returns affected-row-count" idiom
// (core/ package's migration-apply result reporting).
type tableInsertIter struct {
	table  *catalog.TableMeta
	handle *storage.Table
	source TupleIter
	ts     storage.Timestamp

	done      bool
	emittedOK bool
	count     int64
}

func NewTableInsert(handle *storage.Table, table *catalog.TableMeta, ts storage.Timestamp, source TupleIter) TupleIter {
	return &tableInsertIter{table: table, handle: handle, source: source, ts: ts}
}

func (t *tableInsertIter) Advance() error {
	if t.done {
		t.emittedOK = false
		return nil
	}
	wb := t.handle.NewWriteBatch(t.ts)
	var n int64
	for {
		row, freq, ok, err := Next(t.source)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		pk, rest := encodeRow(t.table, row)
		if err := wb.Write(pk, rest, freq); err != nil {
			return err
		}
		n += freq
	}
	if err := wb.Commit(); err != nil {
		return err
	}
	t.count = n
	t.done = true
	t.emittedOK = true
	return nil
}

func (t *tableInsertIter) Get() ([]types.Datum, int64, bool) {
	if !t.emittedOK {
		return nil, 0, false
	}
	t.emittedOK = false
	return []types.Datum{types.NewBigInt(t.count)}, 1, true
}

func (t *tableInsertIter) ColumnCount() int { return 1 }
