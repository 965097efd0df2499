package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"incresql/internal/functions"
	"incresql/internal/types"
)

func TestAggregateStateAppliesAndFinalizes(t *testing.T) {
	r := functions.NewRegistry()
	resolved, err := r.Resolve("count", nil, types.Null)
	require.NoError(t, err)

	aggregates := []Expression{
		NewCompiledAggregate(resolved.Signature, resolved.Def.Aggregate, nil, 0),
	}
	AssignStateOffsets(aggregates)

	state := NewAggregateState(aggregates)
	state.Apply(aggregates, nil, 3)
	state.Apply(aggregates, nil, -1)

	results := state.Finalize(aggregates)
	assert.Equal(t, int64(2), results[0].AsBigInt())
}

func TestAggregateStateLaysOutMultipleAggregatesContiguously(t *testing.T) {
	r := functions.NewRegistry()
	countResolved, err := r.Resolve("count", nil, types.Null)
	require.NoError(t, err)
	sumResolved, err := r.Resolve("sum", []types.DataType{types.BigInt}, types.Null)
	require.NoError(t, err)

	aggregates := []Expression{
		NewCompiledAggregate(countResolved.Signature, countResolved.Def.Aggregate, nil, 0),
		NewCompiledAggregate(sumResolved.Signature, sumResolved.Def.Aggregate,
			[]Expression{NewCompiledColumnReference(0, types.BigInt)}, 0),
	}
	width := AssignStateOffsets(aggregates)
	assert.Equal(t, aggregates[0].AggregateFn.StateSize()+aggregates[1].AggregateFn.StateSize(), width)
	assert.Equal(t, 0, aggregates[0].StateOffset)
	assert.Equal(t, aggregates[0].AggregateFn.StateSize(), aggregates[1].StateOffset)

	state := NewAggregateState(aggregates)
	state.Apply(aggregates, []types.Datum{types.NewBigInt(10)}, 1)
	state.Apply(aggregates, []types.Datum{types.NewBigInt(5)}, 1)

	results := state.Finalize(aggregates)
	assert.Equal(t, int64(2), results[0].AsBigInt())
	assert.Equal(t, int64(15), results[1].AsBigInt())
}

func TestAggregateStateMerge(t *testing.T) {
	r := functions.NewRegistry()
	resolved, err := r.Resolve("count", nil, types.Null)
	require.NoError(t, err)

	aggregates := []Expression{
		NewCompiledAggregate(resolved.Signature, resolved.Def.Aggregate, nil, 0),
	}
	AssignStateOffsets(aggregates)

	left := NewAggregateState(aggregates)
	left.Apply(aggregates, nil, 4)

	right := NewAggregateState(aggregates)
	right.Apply(aggregates, nil, 6)

	left.Merge(aggregates, right)
	results := left.Finalize(aggregates)
	assert.Equal(t, int64(10), results[0].AsBigInt())
}
