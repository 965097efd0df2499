package executor

import (
	"incresql/internal/codec"
	"incresql/internal/expr"
	"incresql/internal/types"
)

// splitGroupExprs separates the planner's flat "key columns ∥ aggregate
// expressions" list (see internal/planner/lower.go) into its aggregate
// suffix: by the time rows reach a group executor, the planner's
// key-prepending Project has already placed the grouping key in the row's
// first keyLen positions, so the key prefix of exprs names no further work
// for the executor — it's read straight off the row.
func splitGroupExprs(exprs []expr.Expression, keyLen int) (aggregates []expr.Expression) {
	return exprs[keyLen:]
}

// sortedGroupIter assumes input sorted by the first keyLen columns
// (sorted_group.rs): for the current group, reset aggregate state, apply
// every matching incoming tuple, finalize when the next peeked tuple's key
// differs. key_len == 0 emits exactly one row even over an empty input.
type sortedGroupIter struct {
	source        TupleIter
	aggregateExpr []expr.Expression
	keyLen        int

	peeked    []types.Datum
	peekFreq  int64
	havePeek  bool
	sourceEnd bool

	out  []types.Datum
	done bool
	// zeroKeyEmitted tracks the key_len==0 special case's two-row
	// lifecycle: one emitted row, then Done.
	zeroKeyEmitted bool
}

func NewSortedGroup(exprs []expr.Expression, keyLen int, source TupleIter) TupleIter {
	aggs := splitGroupExprs(exprs, keyLen)
	return &sortedGroupIter{source: source, aggregateExpr: aggs, keyLen: keyLen}
}

func (g *sortedGroupIter) fill() error {
	if g.havePeek || g.sourceEnd {
		return nil
	}
	row, freq, ok, err := Next(g.source)
	if err != nil {
		return err
	}
	if !ok {
		g.sourceEnd = true
		return nil
	}
	g.peeked = row
	g.peekFreq = freq
	g.havePeek = true
	return nil
}

func sameKey(a, b []types.Datum, keyLen int) bool {
	for i := 0; i < keyLen; i++ {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

func (g *sortedGroupIter) Advance() error {
	if g.keyLen == 0 {
		if g.zeroKeyEmitted {
			g.done = true
			return nil
		}
		state := expr.NewAggregateState(g.aggregateExpr)
		for {
			if err := g.fill(); err != nil {
				return err
			}
			if g.sourceEnd {
				break
			}
			state.Apply(g.aggregateExpr, g.peeked, g.peekFreq)
			g.havePeek = false
		}
		g.out = state.Finalize(g.aggregateExpr)
		g.zeroKeyEmitted = true
		return nil
	}

	if err := g.fill(); err != nil {
		return err
	}
	if g.sourceEnd {
		g.done = true
		return nil
	}

	groupKey := append([]types.Datum(nil), g.peeked[:g.keyLen]...)
	state := expr.NewAggregateState(g.aggregateExpr)
	state.Apply(g.aggregateExpr, g.peeked, g.peekFreq)
	g.havePeek = false

	for {
		if err := g.fill(); err != nil {
			return err
		}
		if g.sourceEnd {
			break
		}
		if !sameKey(groupKey, g.peeked, g.keyLen) {
			break
		}
		state.Apply(g.aggregateExpr, g.peeked, g.peekFreq)
		g.havePeek = false
	}

	finalized := state.Finalize(g.aggregateExpr)
	out := make([]types.Datum, 0, g.keyLen+len(finalized))
	out = append(out, groupKey...)
	out = append(out, finalized...)
	g.out = out
	return nil
}

func (g *sortedGroupIter) Get() ([]types.Datum, int64, bool) {
	if g.done || g.out == nil {
		return nil, 0, false
	}
	return g.out, 1, true
}

func (g *sortedGroupIter) ColumnCount() int { return g.keyLen + len(g.aggregateExpr) }

// hashGroupIter maintains a map from the group key's sortable-codec
// encoding to an aggregate-state vector (hash_group.rs), for inputs with
// no useful sort order; drains the map after the source is exhausted.
type hashGroupIter struct {
	source        TupleIter
	aggregateExpr []expr.Expression
	keyLen        int

	states  map[string]*expr.AggregateState
	keys    map[string][]types.Datum
	order   []string
	pos     int
	drained bool
}

func NewHashGroup(exprs []expr.Expression, keyLen int, source TupleIter) TupleIter {
	aggs := splitGroupExprs(exprs, keyLen)
	return &hashGroupIter{source: source, aggregateExpr: aggs, keyLen: keyLen, pos: -1}
}

func (h *hashGroupIter) drain() error {
	h.states = make(map[string]*expr.AggregateState)
	h.keys = make(map[string][]types.Datum)
	for {
		row, freq, ok, err := Next(h.source)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		keyBytes := codec.EncodeKey(row[:h.keyLen], nil)
		k := string(keyBytes)
		state, exists := h.states[k]
		if !exists {
			state = expr.NewAggregateState(h.aggregateExpr)
			h.states[k] = state
			h.keys[k] = append([]types.Datum(nil), row[:h.keyLen]...)
			h.order = append(h.order, k)
		}
		state.Apply(h.aggregateExpr, row, freq)
	}
	h.drained = true
	return nil
}

func (h *hashGroupIter) Advance() error {
	if !h.drained {
		if err := h.drain(); err != nil {
			return err
		}
	}
	h.pos++
	return nil
}

func (h *hashGroupIter) Get() ([]types.Datum, int64, bool) {
	if h.pos < 0 || h.pos >= len(h.order) {
		return nil, 0, false
	}
	k := h.order[h.pos]
	finalized := h.states[k].Finalize(h.aggregateExpr)
	out := make([]types.Datum, 0, h.keyLen+len(finalized))
	out = append(out, h.keys[k]...)
	out = append(out, finalized...)
	return out, 1, true
}

func (h *hashGroupIter) ColumnCount() int { return h.keyLen + len(h.aggregateExpr) }
