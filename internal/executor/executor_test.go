package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"incresql/internal/codec"
	"incresql/internal/expr"
	"incresql/internal/functions"
	"incresql/internal/types"
)

func drain(t *testing.T, it TupleIter) ([][]types.Datum, []int64) {
	t.Helper()
	var rows [][]types.Datum
	var freqs []int64
	for {
		row, freq, ok, err := Next(it)
		require.NoError(t, err)
		if !ok {
			break
		}
		rows = append(rows, append([]types.Datum(nil), row...))
		freqs = append(freqs, freq)
	}
	return rows, freqs
}

func valuesOf(rows ...[]types.Datum) TupleIter {
	cols := 0
	if len(rows) > 0 {
		cols = len(rows[0])
	}
	return NewValues(rows, cols)
}

func TestSingleYieldsOneEmptyRow(t *testing.T) {
	rows, freqs := drain(t, NewSingle())
	require.Len(t, rows, 1)
	assert.Empty(t, rows[0])
	assert.Equal(t, []int64{1}, freqs)
}

func TestProjectEvaluatesExpressionsPerRow(t *testing.T) {
	source := valuesOf([]types.Datum{types.NewInteger(1)}, []types.Datum{types.NewInteger(2)})
	col := expr.NewCompiledColumnReference(0, types.Integer)
	proj := NewProject([]expr.Expression{col}, source)

	rows, freqs := drain(t, proj)
	require.Len(t, rows, 2)
	assert.Equal(t, int32(1), rows[0][0].AsInteger())
	assert.Equal(t, int32(2), rows[1][0].AsInteger())
	assert.Equal(t, []int64{1, 1}, freqs)
}

func TestFilterDropsRowsFailingPredicate(t *testing.T) {
	source := valuesOf(
		[]types.Datum{types.NewInteger(1), types.NewBoolean(true)},
		[]types.Datum{types.NewInteger(2), types.NewBoolean(false)},
		[]types.Datum{types.NewInteger(3), types.NewBoolean(true)},
	)
	predicate := expr.NewCompiledColumnReference(1, types.Boolean)
	f := NewFilter(predicate, source)

	rows, _ := drain(t, f)
	require.Len(t, rows, 2)
	assert.Equal(t, int32(1), rows[0][0].AsInteger())
	assert.Equal(t, int32(3), rows[1][0].AsInteger())
}

func TestLimitSkipsOffsetAndCapsAtLimit(t *testing.T) {
	rows := [][]types.Datum{
		{types.NewInteger(1)}, {types.NewInteger(2)}, {types.NewInteger(3)}, {types.NewInteger(4)}, {types.NewInteger(5)},
	}
	lim := NewLimit(1, 2, NewValues(rows, 1))
	got, freqs := drain(t, lim)
	require.Len(t, got, 2)
	assert.Equal(t, int32(2), got[0][0].AsInteger())
	assert.Equal(t, int32(3), got[1][0].AsInteger())
	assert.Equal(t, []int64{1, 1}, freqs)
}

func TestNegateFreqFlipsSign(t *testing.T) {
	source := NewValues([][]types.Datum{{types.NewInteger(1)}}, 1)
	n := NewNegateFreq(source)
	_, freqs := drain(t, n)
	assert.Equal(t, []int64{-1}, freqs)
}

func TestUnionAllExhaustsSourcesInOrder(t *testing.T) {
	a := NewValues([][]types.Datum{{types.NewInteger(1)}}, 1)
	b := NewValues([][]types.Datum{{types.NewInteger(2)}, {types.NewInteger(3)}}, 1)
	u := NewUnionAll([]TupleIter{a, b})
	rows, _ := drain(t, u)
	require.Len(t, rows, 3)
	assert.Equal(t, int32(1), rows[0][0].AsInteger())
	assert.Equal(t, int32(2), rows[1][0].AsInteger())
	assert.Equal(t, int32(3), rows[2][0].AsInteger())
}

func TestSortOrdersByKeyAscending(t *testing.T) {
	source := NewValues([][]types.Datum{
		{types.NewInteger(3)},
		{types.NewInteger(1)},
		{types.NewInteger(2)},
	}, 1)
	keyCol := expr.NewCompiledColumnReference(0, types.Integer)
	sortExpr := expr.NewSortExpression(keyCol, codec.Asc)
	s := NewSort([]expr.Expression{sortExpr}, source)
	rows, _ := drain(t, s)
	require.Len(t, rows, 3)
	assert.Equal(t, int32(1), rows[0][0].AsInteger())
	assert.Equal(t, int32(2), rows[1][0].AsInteger())
	assert.Equal(t, int32(3), rows[2][0].AsInteger())
}

func TestSortedGroupZeroKeyCountsAcrossAllRows(t *testing.T) {
	registry := functions.NewRegistry()
	resolved, err := registry.Resolve("count", nil, types.BigInt)
	require.NoError(t, err)
	agg := expr.NewCompiledAggregate(resolved.Signature, resolved.Def.Aggregate, nil, 0)

	source := NewValues([][]types.Datum{{types.NewInteger(1)}, {types.NewInteger(2)}, {types.NewInteger(3)}}, 1)
	g := NewSortedGroup([]expr.Expression{agg}, 0, source)
	rows, freqs := drain(t, g)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(3), rows[0][0].AsBigInt())
	assert.Equal(t, []int64{1}, freqs)
}

func TestSortedGroupZeroKeyOverEmptyInputStillEmitsOneRow(t *testing.T) {
	registry := functions.NewRegistry()
	resolved, err := registry.Resolve("count", nil, types.BigInt)
	require.NoError(t, err)
	agg := expr.NewCompiledAggregate(resolved.Signature, resolved.Def.Aggregate, nil, 0)

	source := NewValues(nil, 1)
	g := NewSortedGroup([]expr.Expression{agg}, 0, source)
	rows, _ := drain(t, g)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(0), rows[0][0].AsBigInt())
}

func TestSortedGroupGroupsContiguousKeys(t *testing.T) {
	registry := functions.NewRegistry()
	resolved, err := registry.Resolve("count", nil, types.BigInt)
	require.NoError(t, err)
	agg := expr.NewCompiledAggregate(resolved.Signature, resolved.Def.Aggregate, nil, 0)

	keyCol := expr.NewCompiledColumnReference(0, types.Integer)
	source := NewValues([][]types.Datum{
		{types.NewInteger(1)},
		{types.NewInteger(1)},
		{types.NewInteger(2)},
	}, 1)
	g := NewSortedGroup([]expr.Expression{keyCol, agg}, 1, source)
	rows, _ := drain(t, g)
	require.Len(t, rows, 2)
	assert.Equal(t, int32(1), rows[0][0].AsInteger())
	assert.Equal(t, int64(2), rows[0][1].AsBigInt())
	assert.Equal(t, int32(2), rows[1][0].AsInteger())
	assert.Equal(t, int64(1), rows[1][1].AsBigInt())
}

func TestHashGroupGroupsOutOfOrderKeys(t *testing.T) {
	registry := functions.NewRegistry()
	resolved, err := registry.Resolve("count", nil, types.BigInt)
	require.NoError(t, err)
	agg := expr.NewCompiledAggregate(resolved.Signature, resolved.Def.Aggregate, nil, 0)

	keyCol := expr.NewCompiledColumnReference(0, types.Integer)
	source := NewValues([][]types.Datum{
		{types.NewInteger(1)},
		{types.NewInteger(2)},
		{types.NewInteger(1)},
	}, 1)
	g := NewHashGroup([]expr.Expression{keyCol, agg}, 1, source)
	rows, _ := drain(t, g)
	require.Len(t, rows, 2)

	byKey := map[int32]int64{}
	for _, r := range rows {
		byKey[r[0].AsInteger()] = r[1].AsBigInt()
	}
	assert.Equal(t, int64(2), byKey[1])
	assert.Equal(t, int64(1), byKey[2])
}

func TestHashJoinEmitsOnlyMatchingKeys(t *testing.T) {
	left := NewValues([][]types.Datum{
		{types.NewInteger(1), types.NewTextString("a")},
		{types.NewInteger(2), types.NewTextString("b")},
	}, 2)
	right := NewValues([][]types.Datum{
		{types.NewInteger(1), types.NewTextString("x")},
		{types.NewInteger(3), types.NewTextString("y")},
	}, 2)
	j := NewHashJoin(left, right)
	rows, freqs := drain(t, j)
	require.Len(t, rows, 1)
	assert.Equal(t, int32(1), rows[0][0].AsInteger())
	assert.Equal(t, "a", rows[0][1].AsText())
	assert.Equal(t, int32(1), rows[0][2].AsInteger())
	assert.Equal(t, "x", rows[0][3].AsText())
	assert.Equal(t, []int64{1}, freqs)
}

func TestHashJoinSkipsNullKeys(t *testing.T) {
	left := NewValues([][]types.Datum{{types.NullDatum}}, 1)
	right := NewValues([][]types.Datum{{types.NullDatum}}, 1)
	j := NewHashJoin(left, right)
	rows, _ := drain(t, j)
	assert.Empty(t, rows)
}
