package storage

import (
	"bytes"
	"encoding/binary"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
)

// Store wraps a single pebble.DB holding every table's index and log
// sections, keyed by the table-id prefixes built in keys.go. One Store is
// opened per IncreSQL process (§5: "a single process-wide runtime holds
// shared immutable references to the storage handle").
type Store struct {
	db *pebble.DB
}

// Open opens (creating if necessary) a Store backed by a pebble database
// at dir, registering the frequency-summing merge operator (§4.4).
func Open(dir string) (*Store, error) {
	db, err := pebble.Open(dir, &pebble.Options{
		Merger: Merger,
	})
	if err != nil {
		return nil, errors.Wrap(err, "storage: open pebble store")
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return errors.Wrap(s.db.Close(), "storage: close pebble store")
}

// Table returns a handle over table id's key range.
func (s *Store) Table(id TableID) *Table {
	return &Table{store: s, id: id}
}

// CompactRange triggers a full compaction over [start, end) — the backing
// store for catalog's compact_table DDL (§4.3).
func (s *Store) CompactRange(start, end []byte) error {
	return errors.Wrap(s.db.Compact(start, end, true), "storage: compact range")
}

// DeleteRange removes every key in [start, end) in one atomic batch —
// used by drop_table (§4.3) over TableKeyRange(id).
func (s *Store) DeleteRange(start, end []byte) error {
	b := s.db.NewBatch()
	defer b.Close()
	if err := b.DeleteRange(start, end, nil); err != nil {
		return errors.Wrap(err, "storage: delete range")
	}
	return errors.Wrap(b.Commit(pebble.Sync), "storage: commit delete range")
}

// Table is a handle over one table's key range within a Store.
type Table struct {
	store *Store
	id    TableID
}

func (t *Table) ID() TableID { return t.id }

// Row is one visible version read back from the index section.
type Row struct {
	PK        []byte
	Rest      []byte
	Freq      int64
	Timestamp Timestamp
}

// PointLookup implements §4.4's read path: ts == MaxTimestamp performs a
// single get at the latest-row slot; any other ts performs a prefix scan
// bounded below by (pk, ¬ts) and returns the first (i.e. newest-qualifying)
// row.
func (t *Table) PointLookup(pk []byte, ts Timestamp) (Row, bool, error) {
	if ts == MaxTimestamp {
		key := IndexKey(t.id, pk, MaxTimestamp)
		val, closer, err := t.store.db.Get(key)
		if errors.Is(err, pebble.ErrNotFound) {
			return Row{}, false, nil
		}
		if err != nil {
			return Row{}, false, errors.Wrap(err, "storage: point lookup")
		}
		rest, freq, actualTS := splitLatestValue(val)
		row := Row{PK: append([]byte(nil), pk...), Rest: append([]byte(nil), rest...), Freq: freq, Timestamp: actualTS}
		_ = closer.Close()
		if freq == 0 {
			return Row{}, false, nil
		}
		return row, true, nil
	}

	lower := IndexKey(t.id, pk, ts)
	upper := prefixSuccessor(IndexPKPrefix(t.id, pk))
	iter, err := t.store.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return Row{}, false, errors.Wrap(err, "storage: point lookup iter")
	}
	defer iter.Close()
	if !iter.First() {
		return Row{}, false, nil
	}
	rest, freq := splitFreq(iter.Value())
	actualTS := Timestamp(^notTimestampOf(iter.Key()))
	if freq == 0 {
		return Row{}, false, nil
	}
	return Row{PK: append([]byte(nil), pk...), Rest: append([]byte(nil), rest...), Freq: freq, Timestamp: actualTS}, true, nil
}

// ScanFunc is invoked once per visible row during a Scan, in pk order.
type ScanFunc func(Row) (keepGoing bool, err error)

// Scan performs a forward prefix scan over the table's index section at
// logical timestamp ts: for each pk group, the first row (smallest
// ¬timestamp ≥ ¬ts) is the visible version; the rest of that pk's
// historical versions are skipped (§4.4).
func (t *Table) Scan(ts Timestamp, fn ScanFunc) error {
	lower := IndexPrefix(t.id)
	upper := prefixSuccessor(lower)
	iter, err := t.store.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return errors.Wrap(err, "storage: scan iter")
	}
	defer iter.Close()

	notTSBound := ^uint64(ts)
	var lastPK []byte
	for valid := iter.First(); valid; valid = iter.Next() {
		key := iter.Key()
		pk := pkFromIndexKey(key)
		if lastPK != nil && bytes.Equal(pk, lastPK) {
			continue // already emitted this pk's visible version
		}
		notTS := notTimestampOf(key)
		if notTS < notTSBound {
			// Newer than the requested snapshot; this pk's visible row (if
			// any) lives further down the group — keep scanning it.
			continue
		}
		lastPK = append([]byte(nil), pk...)
		rest, freq := splitFreq(iter.Value())
		if ts == MaxTimestamp {
			rest, freq, _ = splitLatestValue(iter.Value())
		}
		if freq == 0 {
			continue
		}
		row := Row{PK: lastPK, Rest: append([]byte(nil), rest...), Freq: freq, Timestamp: Timestamp(^notTS)}
		keepGoing, err := fn(row)
		if err != nil {
			return err
		}
		if !keepGoing {
			return nil
		}
	}
	return iter.Error()
}

// WriteBatch accumulates tuple writes for one atomic statement-level write
// (§4.4's write path, §5's "writes are atomic per statement").
type WriteBatch struct {
	table *Table
	batch *pebble.Batch
	ts    Timestamp
}

// NewWriteBatch opens an atomic write batch stamped with logical timestamp
// ts (derived from wall-clock milliseconds by the caller).
func (t *Table) NewWriteBatch(ts Timestamp) *WriteBatch {
	return &WriteBatch{table: t, batch: t.store.db.NewIndexedBatch(), ts: ts}
}

// Write records one tuple write: rest is the sortable encoding of every
// non-pk column, freq is the signed delta being recorded (positive insert,
// negative retraction). Per §4.4: read the current latest version (if
// any), rewrite it into history, write the new latest slot, and append a
// log-section merge.
func (wb *WriteBatch) Write(pk []byte, rest []byte, freq int64) error {
	latestKey := IndexKey(wb.table.id, pk, MaxTimestamp)
	cur, closer, err := wb.batch.Get(latestKey)
	switch {
	case errors.Is(err, pebble.ErrNotFound):
		// No prior version; nothing to move into history.
	case err != nil:
		return errors.Wrap(err, "storage: write read current")
	default:
		payload, _, oldTS := splitLatestValueKeepPayload(cur)
		_ = closer.Close()
		histKey := IndexKey(wb.table.id, pk, oldTS)
		if err := wb.batch.Set(histKey, payload, nil); err != nil {
			return errors.Wrap(err, "storage: write history")
		}
	}

	newValue := appendFreq(append([]byte(nil), rest...), freq)
	newValue = appendTimestamp(newValue, wb.ts)
	if err := wb.batch.Set(latestKey, newValue, nil); err != nil {
		return errors.Wrap(err, "storage: write latest")
	}

	logKey := LogKey(wb.table.id, wb.ts, pk)
	logVal := appendFreq(nil, freq)
	if err := wb.batch.Merge(logKey, logVal, nil); err != nil {
		return errors.Wrap(err, "storage: write log")
	}
	return nil
}

// Commit atomically applies every Write call made on this batch. Any error
// aborts the whole batch (§4.4, §7): pebble batches are all-or-nothing.
func (wb *WriteBatch) Commit() error {
	return errors.Wrap(wb.batch.Commit(pebble.NoSync), "storage: commit write batch")
}

func (wb *WriteBatch) Close() error {
	return wb.batch.Close()
}

// --- latest-slot value framing: payload(rest ∥ freq) ∥ be64(actual_ts) ---

func appendTimestamp(v []byte, ts Timestamp) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(ts))
	return append(v, b[:]...)
}

func splitLatestValue(v []byte) (rest []byte, freq int64, ts Timestamp) {
	payload, freq, ts := splitLatestValueKeepPayload(v)
	rest, _ = splitFreq(payload)
	return rest, freq, ts
}

// splitLatestValueKeepPayload separates a latest-slot value into the
// rest∥freq payload (suitable to re-store verbatim as a historical-slot
// value) and the embedded actual timestamp.
func splitLatestValueKeepPayload(v []byte) (payload []byte, freq int64, ts Timestamp) {
	if len(v) < 8 {
		return v, 0, 0
	}
	n := len(v) - 8
	payload = v[:n]
	ts = Timestamp(binary.BigEndian.Uint64(v[n:]))
	_, freq = splitFreq(payload)
	return payload, freq, ts
}

// prefixSuccessor returns the smallest byte string greater than every
// string with the given prefix — the conventional pebble upper bound for a
// prefix scan.
func prefixSuccessor(prefix []byte) []byte {
	succ := append([]byte(nil), prefix...)
	for i := len(succ) - 1; i >= 0; i-- {
		if succ[i] != 0xFF {
			succ[i]++
			return succ[:i+1]
		}
	}
	return nil // prefix is all 0xFF: unbounded above
}
