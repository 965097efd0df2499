package executor

import (
	"incresql/internal/codec"
	"incresql/internal/types"
)

// bucketEntry is one whole right-side row (join key included) kept for the
// probe phase to combine with matching left rows.
type bucketEntry struct {
	row  []types.Datum
	freq int64
}

// hashJoinIter implements the restricted single-equi-join-column case the
// planner's lowerJoin produces: column 0 of both sides is the join key
// (hash_join.rs). Build consumes the right input fully into a key->rows
// map, discarding any row with a null key (equi-join never matches nulls);
// probe streams the left input, emitting combined rows with freq =
// left_freq * right_freq for every bucket hit.
type hashJoinIter struct {
	left  TupleIter
	right TupleIter

	buckets map[string][]bucketEntry
	built   bool

	leftRow  []types.Datum
	leftFreq int64
	bucket   []bucketEntry
	bucketAt int
	haveLeft bool

	out     []types.Datum
	curFreq int64
}

func NewHashJoin(left, right TupleIter) TupleIter {
	return &hashJoinIter{left: left, right: right}
}

func (h *hashJoinIter) build() error {
	h.buckets = make(map[string][]bucketEntry)
	for {
		row, freq, ok, err := Next(h.right)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if row[0].IsNull() {
			continue
		}
		k := string(codec.EncodeKey(row[:1], nil))
		h.buckets[k] = append(h.buckets[k], bucketEntry{row: append([]types.Datum(nil), row...), freq: freq})
	}
	h.built = true
	return nil
}

func (h *hashJoinIter) Advance() error {
	if !h.built {
		if err := h.build(); err != nil {
			return err
		}
	}

	for {
		if h.haveLeft && h.bucketAt < len(h.bucket) {
			entry := h.bucket[h.bucketAt]
			h.bucketAt++
			h.out = combineRows(h.leftRow, entry.row)
			h.curFreq = h.leftFreq * entry.freq
			return nil
		}

		row, freq, ok, err := Next(h.left)
		if err != nil {
			return err
		}
		if !ok {
			h.haveLeft = false
			h.out = nil
			return nil
		}
		if row[0].IsNull() {
			continue
		}
		h.leftRow = row
		h.leftFreq = freq
		k := string(codec.EncodeKey(row[:1], nil))
		h.bucket = h.buckets[k]
		h.bucketAt = 0
		h.haveLeft = true
	}
}

func combineRows(left, right []types.Datum) []types.Datum {
	out := make([]types.Datum, 0, len(left)+len(right))
	out = append(out, left...)
	out = append(out, right...)
	return out
}

func (h *hashJoinIter) Get() ([]types.Datum, int64, bool) {
	if h.out == nil {
		return nil, 0, false
	}
	return h.out, h.curFreq, true
}

func (h *hashJoinIter) ColumnCount() int {
	return h.left.ColumnCount() + h.right.ColumnCount()
}
