package catalog

import (
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"

	"incresql/internal/codec"
	"incresql/internal/jsontape"
	"incresql/internal/storage"
	"incresql/internal/types"
)

// nowMillis derives the logical write timestamp from wall-clock
// milliseconds (§4.4: "a monotonically increasing logical clock derived
// from wall-clock milliseconds").
func nowMillis() int64 {
	return time.Now().UnixMilli()
}

func codecText(s string) []byte {
	return codec.WriteDatum(nil, types.NewTextString(s), codec.Asc)
}

func encodePKInt64(v int64) []byte {
	return codec.WriteDatum(nil, types.NewBigInt(v), codec.Asc)
}

func tablesRowPK(db, name string) []byte {
	buf := codec.WriteDatum(nil, types.NewTextString(db), codec.Asc)
	return codec.WriteDatum(buf, types.NewTextString(name), codec.Asc)
}

func encodeRestInt32AndJSON(columnLen int32, pkSortJSON []byte) []byte {
	buf := codec.WriteDatum(nil, types.NewInteger(columnLen), codec.Asc)
	tape, err := jsontape.Parse(pkSortJSON)
	if err != nil {
		// pk_sort is built in-process from a well-formed struct; a parse
		// failure here indicates a programming error, not user input.
		panic(errors.Wrap(err, "catalog: encode pk_sort tape"))
	}
	return codec.WriteDatum(buf, types.NewJSON(tape, true), codec.Asc)
}

func encodeTablesRest(tableID int64, columnsJSON []byte, system bool) []byte {
	buf := codec.WriteDatum(nil, types.NewBigInt(tableID), codec.Asc)
	tape, err := jsontape.Parse(columnsJSON)
	if err != nil {
		panic(errors.Wrap(err, "catalog: encode columns tape"))
	}
	buf = codec.WriteDatum(buf, types.NewJSON(tape, true), codec.Asc)
	return codec.WriteDatum(buf, types.NewBoolean(system), codec.Asc)
}

// decodeTablesRow reconstructs a TableMeta from a `tables` system-table row.
func decodeTablesRow(row storage.Row) (*TableMeta, error) {
	rest, pk := row.Rest, row.PK
	dbName, pk, err := decodeTextKey(pk)
	if err != nil {
		return nil, errors.Wrap(err, "catalog: decode tables pk database_name")
	}
	name, _, err := decodeTextKey(pk)
	if err != nil {
		return nil, errors.Wrap(err, "catalog: decode tables pk name")
	}

	idDatum, rest, err := codec.ReadDatum(rest, types.BigInt)
	if err != nil {
		return nil, errors.Wrap(err, "catalog: decode tables table_id")
	}
	colsDatum, rest, err := codec.ReadDatum(rest, types.JSON)
	if err != nil {
		return nil, errors.Wrap(err, "catalog: decode tables columns")
	}
	sysDatum, _, err := codec.ReadDatum(rest, types.Boolean)
	if err != nil {
		return nil, errors.Wrap(err, "catalog: decode tables system")
	}

	var cols []ColumnDef
	text := jsontape.NewNode(colsDatum.AsJSONTape()).ToJSONText()
	if err := json.Unmarshal([]byte(text), &cols); err != nil {
		return nil, errors.Wrap(err, "catalog: unmarshal columns")
	}

	return &TableMeta{
		DatabaseName: dbName,
		Name:         name,
		TableID:      storage.TableID(idDatum.AsBigInt()),
		Columns:      cols,
		System:       sysDatum.AsBoolean(),
	}, nil
}

// fillPKSortLocked looks up tm's prefix_tables row and fills in its PKLen
// and PKDesc from the stored pk_sort tape.
func (c *Catalog) fillPKSortLocked(tm *TableMeta) error {
	row, found, err := c.store.Table(PrefixTablesID).PointLookup(encodePKInt64(int64(tm.TableID)), storage.MaxTimestamp)
	if err != nil {
		return errors.Wrapf(err, "catalog: lookup prefix_tables for table_id %d", tm.TableID)
	}
	if !found {
		return nil // system tables written before prefix_tables existed in-memory during bootstrap itself
	}
	_, rest, err := codec.ReadDatum(row.Rest, types.Integer)
	if err != nil {
		return errors.Wrap(err, "catalog: decode prefix_tables column_len")
	}
	pkSortDatum, _, err := codec.ReadDatum(rest, types.JSON)
	if err != nil {
		return errors.Wrap(err, "catalog: decode prefix_tables pk_sort")
	}
	var pkSort PKSort
	text := jsontape.NewNode(pkSortDatum.AsJSONTape()).ToJSONText()
	if err := json.Unmarshal([]byte(text), &pkSort); err != nil {
		return errors.Wrap(err, "catalog: unmarshal pk_sort")
	}
	tm.PKLen = pkSort.PKLen
	tm.PKDesc = pkSort.Desc
	return nil
}

func decodeDatabasesRow(row storage.Row) (string, error) {
	name, _, err := decodeTextKey(row.PK)
	return name, errors.Wrap(err, "catalog: decode databases pk")
}

func viewsRowPK(db, name string) []byte {
	buf := codec.WriteDatum(nil, types.NewTextString(db), codec.Asc)
	return codec.WriteDatum(buf, types.NewTextString(name), codec.Asc)
}

func encodeViewRest(query string) []byte {
	return codec.WriteDatum(nil, types.NewTextString(query), codec.Asc)
}

// decodeViewsRow reconstructs a View from a `views` system-table row.
func decodeViewsRow(row storage.Row) (*View, error) {
	dbName, pk, err := decodeTextKey(row.PK)
	if err != nil {
		return nil, errors.Wrap(err, "catalog: decode views pk database_name")
	}
	name, _, err := decodeTextKey(pk)
	if err != nil {
		return nil, errors.Wrap(err, "catalog: decode views pk name")
	}
	queryDatum, _, err := codec.ReadDatum(row.Rest, types.Text)
	if err != nil {
		return nil, errors.Wrap(err, "catalog: decode views query")
	}
	return &View{DatabaseName: dbName, Name: name, Query: string(queryDatum.AsBytes())}, nil
}

func decodeTextKey(pk []byte) (string, []byte, error) {
	d, rest, err := codec.ReadDatum(pk, types.Text)
	if err != nil {
		return "", nil, err
	}
	return string(d.AsBytes()), rest, nil
}
