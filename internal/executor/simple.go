package executor

import (
	"github.com/cockroachdb/errors"

	"incresql/internal/expr"
	"incresql/internal/types"
)

// projectIter evaluates each output expression into an owned buffer per
// upstream tuple (project.rs: "projects own their buffer so borrowed
// datums in it remain valid until the next advance").
type projectIter struct {
	exprs  []expr.Expression
	source TupleIter
	buf    []types.Datum
}

func NewProject(exprs []expr.Expression, source TupleIter) TupleIter {
	return &projectIter{exprs: exprs, source: source, buf: make([]types.Datum, len(exprs))}
}

func (p *projectIter) Advance() error { return p.source.Advance() }

func (p *projectIter) Get() ([]types.Datum, int64, bool) {
	row, freq, ok := p.source.Get()
	if !ok {
		return nil, 0, false
	}
	expr.EvalRow(p.exprs, row, p.buf)
	return p.buf, freq, true
}

func (p *projectIter) ColumnCount() int { return len(p.exprs) }

// filterIter yields only upstream tuples whose predicate evaluates to
// Boolean(true) (filter.rs: not Null, not false), propagating freq
// unchanged.
type filterIter struct {
	predicate expr.Expression
	source    TupleIter
}

func NewFilter(predicate expr.Expression, source TupleIter) TupleIter {
	return &filterIter{predicate: predicate, source: source}
}

func (f *filterIter) Advance() error {
	for {
		if err := f.source.Advance(); err != nil {
			return err
		}
		row, _, ok := f.source.Get()
		if !ok {
			return nil
		}
		result := f.predicate.Eval(row)
		if !result.IsNull() && result.AsBoolean() {
			return nil
		}
	}
}

func (f *filterIter) Get() ([]types.Datum, int64, bool) { return f.source.Get() }

func (f *filterIter) ColumnCount() int { return f.source.ColumnCount() }

// limitIter consumes tuples accounting for their frequencies: skips until
// cumulative frequency passes offset, emits at most limit total frequency,
// splitting a straddling tuple's residual frequency (limit.rs).
type limitIter struct {
	source    TupleIter
	offset    int64
	limit     int64
	skipped   int64
	emitted   int64
	done      bool
	curRow    []types.Datum
	curFreq   int64
	haveCur   bool
}

func NewLimit(offset, limit int64, source TupleIter) TupleIter {
	return &limitIter{source: source, offset: offset, limit: limit}
}

func (l *limitIter) Advance() error {
	if l.done {
		l.haveCur = false
		return nil
	}
	if l.emitted >= l.limit {
		l.done = true
		l.haveCur = false
		return nil
	}
	for {
		if err := l.source.Advance(); err != nil {
			return err
		}
		row, freq, ok := l.source.Get()
		if !ok {
			l.done = true
			l.haveCur = false
			return nil
		}
		if l.skipped < l.offset {
			remaining := l.offset - l.skipped
			if freq <= remaining {
				l.skipped += freq
				continue
			}
			freq -= remaining
			l.skipped = l.offset
		}
		if freq > l.limit-l.emitted {
			freq = l.limit - l.emitted
		}
		l.emitted += freq
		l.curRow = row
		l.curFreq = freq
		l.haveCur = true
		return nil
	}
}

func (l *limitIter) Get() ([]types.Datum, int64, bool) {
	if !l.haveCur {
		return nil, 0, false
	}
	return l.curRow, l.curFreq, true
}

func (l *limitIter) ColumnCount() int { return l.source.ColumnCount() }

// negateFreqIter passes through tuples with freq negated (delete =
// insert-with-negative-frequency, §3, §4.8).
type negateFreqIter struct {
	source TupleIter
}

func NewNegateFreq(source TupleIter) TupleIter { return &negateFreqIter{source: source} }

func (n *negateFreqIter) Advance() error { return n.source.Advance() }

func (n *negateFreqIter) Get() ([]types.Datum, int64, bool) {
	row, freq, ok := n.source.Get()
	if !ok {
		return nil, 0, false
	}
	return row, -freq, true
}

func (n *negateFreqIter) ColumnCount() int { return n.source.ColumnCount() }

// unionAllIter exhausts sources in order (union_all.rs).
type unionAllIter struct {
	sources []TupleIter
	idx     int
}

func NewUnionAll(sources []TupleIter) TupleIter {
	return &unionAllIter{sources: sources}
}

func (u *unionAllIter) Advance() error {
	for u.idx < len(u.sources) {
		if err := u.sources[u.idx].Advance(); err != nil {
			return err
		}
		if _, _, ok := u.sources[u.idx].Get(); ok {
			return nil
		}
		u.idx++
	}
	return nil
}

func (u *unionAllIter) Get() ([]types.Datum, int64, bool) {
	if u.idx >= len(u.sources) {
		return nil, 0, false
	}
	return u.sources[u.idx].Get()
}

func (u *unionAllIter) ColumnCount() int {
	if len(u.sources) == 0 {
		return 0
	}
	return u.sources[0].ColumnCount()
}

var ErrExecution = errors.New("executor: execution error")
