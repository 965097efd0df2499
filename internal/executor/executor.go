// Package executor implements §4.8's streaming pull-iterator executors:
// one TupleIter implementation per ast.PointInTimeOperator.PhysicalKind,
// wired together by Build. Grounded on
// original_source/src/executor/src/point_in_time/*.rs, translated from
// Rust's trait-object BoxedExecutor chain into a Go interface value chain
// per the teacher's own "small interface, concrete structs behind it"
// idiom (internal/dialect.Dialect).
package executor

import (
	"incresql/internal/types"
)

// TupleIter is the streaming contract every operator implements: advance
// must be called once before the first get; a Datum returned by get may
// borrow from a buffer the iterator owns, valid only until the next
// advance call.
type TupleIter interface {
	Advance() error
	Get() ([]types.Datum, int64, bool)
	ColumnCount() int
}

// Next combines Advance and Get, the common case for callers that don't
// need to separate the two steps.
func Next(it TupleIter) ([]types.Datum, int64, bool, error) {
	if err := it.Advance(); err != nil {
		return nil, 0, false, err
	}
	row, freq, ok := it.Get()
	return row, freq, ok, nil
}

// singleIter yields exactly one empty tuple with freq 1, then terminates.
type singleIter struct {
	done bool
	live bool
}

func NewSingle() TupleIter { return &singleIter{} }

func (s *singleIter) Advance() error {
	if s.done {
		s.live = false
		return nil
	}
	s.done = true
	s.live = true
	return nil
}

func (s *singleIter) Get() ([]types.Datum, int64, bool) {
	if !s.live {
		return nil, 0, false
	}
	return nil, 1, true
}

func (s *singleIter) ColumnCount() int { return 0 }

// valuesIter yields each pre-evaluated row with freq 1 in order.
type valuesIter struct {
	rows        [][]types.Datum
	pos         int
	columnCount int
}

func NewValues(rows [][]types.Datum, columnCount int) TupleIter {
	return &valuesIter{rows: rows, pos: -1, columnCount: columnCount}
}

func (v *valuesIter) Advance() error {
	v.pos++
	return nil
}

func (v *valuesIter) Get() ([]types.Datum, int64, bool) {
	if v.pos < 0 || v.pos >= len(v.rows) {
		return nil, 0, false
	}
	return v.rows[v.pos], 1, true
}

func (v *valuesIter) ColumnCount() int { return v.columnCount }
