package executor

import (
	"bytes"
	"encoding/binary"
	"sort"

	"github.com/cockroachdb/errors"

	"incresql/internal/codec"
	"incresql/internal/expr"
	"incresql/internal/types"
)

// maxSortBufferBytes bounds sortIter's in-memory buffer (§4.8: "input
// buffer size must fit in u32::MAX bytes; exceeding this is a defined
// failure — external sort is a non-goal").
const maxSortBufferBytes = int(^uint32(0))

var ErrSortBufferTooLarge = errors.New("executor: sort input exceeds the in-memory sort buffer limit")

// rowSlot indexes one ingested row inside buf: buf[start:keyEnd] is the
// sort-key encoding (compared to order rows), buf[keyEnd:end] is a
// self-describing tuple ∥ freq encoding (decoded to serve Get).
type rowSlot struct {
	start, keyEnd, end uint32
}

// sortIter fully consumes upstream into an in-memory sort buffer rather
// than retaining Datums directly (sort.rs): avoids one allocation per
// Datum/row in exchange for one growing byte buffer, which starts at a
// fixed initial capacity and grows as rows are appended.
type sortIter struct {
	sortExprs []expr.Expression
	source    TupleIter

	buf   []byte
	slots []rowSlot

	ingested bool
	pos      int
	curRow   []types.Datum
	curFreq  int64
}

func NewSort(sortExprs []expr.Expression, source TupleIter) TupleIter {
	return &sortIter{sortExprs: sortExprs, source: source, pos: -1}
}

func (s *sortIter) ingest() error {
	s.buf = make([]byte, 0, 4096)
	s.slots = make([]rowSlot, 0, 64)
	for {
		row, freq, ok, err := Next(s.source)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		start := uint32(len(s.buf))
		for _, se := range s.sortExprs {
			v := se.Eval(row)
			order := se.SortOrder
			s.buf = codec.WriteDatum(s.buf, v, order)
		}
		keyEnd := uint32(len(s.buf))
		for _, d := range row {
			s.buf = append(s.buf, byte(d.Kind))
			s.buf = codec.WriteDatum(s.buf, d, codec.Asc)
		}
		s.buf = appendVarintFreq(s.buf, freq)
		end := uint32(len(s.buf))
		if len(s.buf) > maxSortBufferBytes {
			return ErrSortBufferTooLarge
		}
		s.slots = append(s.slots, rowSlot{start: start, keyEnd: keyEnd, end: end})
	}
	sort.SliceStable(s.slots, func(i, j int) bool {
		a, b := s.slots[i], s.slots[j]
		return bytes.Compare(s.buf[a.start:a.keyEnd], s.buf[b.start:b.keyEnd]) < 0
	})
	return nil
}

func (s *sortIter) Advance() error {
	if !s.ingested {
		if err := s.ingest(); err != nil {
			return err
		}
		s.ingested = true
	}
	s.pos++
	if s.pos >= len(s.slots) {
		s.curRow = nil
		return nil
	}
	slot := s.slots[s.pos]
	rest := s.buf[slot.keyEnd:slot.end]
	row := make([]types.Datum, s.source.ColumnCount())
	for i := range row {
		kind := types.Kind(rest[0])
		rest = rest[1:]
		d, remaining, err := codec.ReadDatum(rest, types.DataType{Kind: kind})
		if err != nil {
			return err
		}
		row[i] = d
		rest = remaining
	}
	freq, _ := readVarintFreq(rest)
	s.curRow = row
	s.curFreq = freq
	return nil
}

func (s *sortIter) Get() ([]types.Datum, int64, bool) {
	if s.curRow == nil {
		return nil, 0, false
	}
	return s.curRow, s.curFreq, true
}

func (s *sortIter) ColumnCount() int { return s.source.ColumnCount() }

func appendVarintFreq(buf []byte, freq int64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutVarint(tmp[:], freq)
	return append(buf, tmp[:n]...)
}

func readVarintFreq(buf []byte) (int64, []byte) {
	v, n := binary.Varint(buf)
	return v, buf[n:]
}
