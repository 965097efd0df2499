// Package storage implements the table handle over a sorted KV engine
// (§4.4): the index/log key layout, the MVCC read path, the
// insert-with-negative-frequency write path, and the freq-summing merge
// operator, backed by github.com/cockroachdb/pebble.
package storage

import (
	"encoding/binary"

	"incresql/internal/codec"
)

// TableID identifies a table; IDs are even and the id+1 slot is reserved
// for that table's incremental log section (§3, §4.4).
type TableID uint32

// LogTableID returns the log-section table ID paired with id.
func (id TableID) LogTableID() TableID { return id + 1 }

// Timestamp is a monotonically increasing logical clock derived from
// wall-clock milliseconds; higher is newer.
type Timestamp uint64

// MaxTimestamp reads the most-recently-committed version of every row. Its
// ¬timestamp is exactly zero, which is also, by construction, the key
// suffix spec §4.4 reserves for a pk's "latest" slot — so addressing the
// latest row is just IndexKey(id, pk, MaxTimestamp), no separate sentinel
// needed, and point lookups for it are a single-key get.
const MaxTimestamp = Timestamp(^uint64(0))

// IndexKey builds an index-section key: be32(table_id) ∥ encoded_pk ∥
// be64(¬timestamp).
func IndexKey(id TableID, pk []byte, ts Timestamp) []byte {
	buf := make([]byte, 0, 4+len(pk)+8)
	buf = appendBE32(buf, uint32(id))
	buf = append(buf, pk...)
	return codec.AppendUint64BE(buf, ^uint64(ts))
}

// IndexPrefix returns the byte prefix bounding every key belonging to
// table id's index section.
func IndexPrefix(id TableID) []byte {
	return appendBE32(nil, uint32(id))
}

// IndexPKPrefix returns the prefix bounding every version of a single pk.
func IndexPKPrefix(id TableID, pk []byte) []byte {
	buf := make([]byte, 0, 4+len(pk))
	buf = appendBE32(buf, uint32(id))
	return append(buf, pk...)
}

// TableKeyRange returns the [start, end) range spanning a table's index
// AND log sections together, i.e. [id, id+2) — used by drop_table (§4.3)
// to delete the full [id, id+1) range named in spec §3's invariants (the
// log section at id+1 is included since both belong to the dropped table).
func TableKeyRange(id TableID) (start, end []byte) {
	return appendBE32(nil, uint32(id)), appendBE32(nil, uint32(id)+2)
}

// LogKey builds a log-section key: be32(table_id+1) ∥ be64(timestamp) ∥
// encoded_pk.
func LogKey(id TableID, ts Timestamp, pk []byte) []byte {
	buf := make([]byte, 0, 4+8+len(pk))
	buf = appendBE32(buf, uint32(id.LogTableID()))
	buf = codec.AppendUint64BE(buf, uint64(ts))
	return append(buf, pk...)
}

func appendBE32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

// pkFromIndexKey strips the table-id prefix and timestamp suffix from an
// index-section key, returning just the encoded pk bytes.
func pkFromIndexKey(key []byte) []byte {
	if len(key) < 12 {
		return nil
	}
	return key[4 : len(key)-8]
}

func notTimestampOf(key []byte) uint64 {
	return binary.BigEndian.Uint64(key[len(key)-8:])
}

// SignedVarint encodes a freq delta (i64) compactly as a sortable signed
// varint. Stored index and log values carry freq in merge.go's fixed-width
// appendFreq encoding instead.
func AppendSignedVarint(buf []byte, v int64) []byte {
	return codec.WriteSigned(buf, v, codec.Asc)
}

func ReadSignedVarint(buf []byte) (int64, []byte, error) {
	return codec.ReadSigned(buf, codec.Asc)
}
