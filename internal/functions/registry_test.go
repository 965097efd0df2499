package functions

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"incresql/internal/types"
)

func TestRegistryResolveExactMatch(t *testing.T) {
	r := NewRegistry()

	resolved, err := r.Resolve("+", []types.DataType{types.BigInt, types.BigInt}, types.Null)
	require.NoError(t, err)
	assert.Equal(t, types.BigInt, resolved.Signature.Ret)
}

func TestRegistryResolveUnknownFunction(t *testing.T) {
	r := NewRegistry()

	_, err := r.Resolve("not_a_function", []types.DataType{types.BigInt}, types.Null)
	require.ErrorIs(t, err, ErrFunctionNotFound)
}

func TestRegistryResolveNoMatchingArity(t *testing.T) {
	r := NewRegistry()

	_, err := r.Resolve("+", []types.DataType{types.BigInt, types.BigInt, types.BigInt}, types.Null)
	require.ErrorIs(t, err, ErrNoMatchingSignature)
}

func TestRegistryResolveWidensIntToBigint(t *testing.T) {
	r := NewRegistry()

	t.Run("int widens to bigint overload when no int overload fits", func(t *testing.T) {
		resolved, err := r.Resolve("+", []types.DataType{types.Integer, types.BigInt}, types.Null)
		require.NoError(t, err)
		assert.Equal(t, types.BigInt, resolved.Signature.Ret)
	})
}

func TestRegistryResolveDecimalCustomResolver(t *testing.T) {
	r := NewRegistry()

	resolved, err := r.Resolve("+", []types.DataType{types.Decimal(10, 2), types.Decimal(6, 4)}, types.Null)
	require.NoError(t, err)
	assert.Equal(t, int32(4), resolved.Signature.Ret.Scale)
}

func TestRegistryResolveExplicitCastOverridesReturnType(t *testing.T) {
	r := NewRegistry()

	resolved, err := r.Resolve("to_int", []types.DataType{types.BigInt}, types.Integer)
	require.NoError(t, err)
	assert.Equal(t, types.Integer, resolved.Signature.Ret)
}

func TestDatatypeRank(t *testing.T) {
	cases := []struct {
		name string
		from types.DataType
		to   types.DataType
		want int
	}{
		{"identity", types.BigInt, types.BigInt, 0},
		{"null from", types.Null, types.BigInt, 0},
		{"null to", types.BigInt, types.Null, 0},
		{"decimal to decimal", types.Decimal(1, 1), types.Decimal(2, 2), 0},
		{"int to bigint", types.Integer, types.BigInt, 1},
		{"bigint to decimal", types.BigInt, types.Decimal(0, 0), 1},
		{"int to decimal", types.Integer, types.Decimal(0, 0), 2},
		{"incompatible", types.Text, types.BigInt, -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, datatypeRank(tc.from, tc.to))
		})
	}
}

func TestCountAggregateRetraction(t *testing.T) {
	agg := countAgg{countStar: true}
	state := make([]types.Datum, agg.StateSize())
	agg.Initialize(state)

	sig := Signature{Name: "count"}
	agg.Apply(sig, nil, 10, state)
	agg.Apply(sig, nil, -2, state)

	assert.Equal(t, int64(8), agg.Finalize(sig, state).AsBigInt())
}

func TestAvgAggregateFinalizesNullOnEmptyGroup(t *testing.T) {
	agg := avgAgg{valueOf: func(d types.Datum) decimal.Decimal { return decimal.NewFromInt32(d.AsInteger()) }}
	state := make([]types.Datum, agg.StateSize())
	agg.Initialize(state)

	assert.True(t, agg.Finalize(Signature{Name: "avg"}, state).IsNull())
}
