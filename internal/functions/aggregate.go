package functions

import (
	"github.com/shopspring/decimal"

	"incresql/internal/types"
)

// countAgg implements count(*) and count(expr): only the expr form checks
// nullness; both accumulate a bigint that can go negative under retraction
// (§4.5, grounded on aggregate/misc/count.rs).
type countAgg struct{ countStar bool }

func (c countAgg) StateSize() int { return 1 }
func (c countAgg) Initialize(state []types.Datum) {
	state[0] = types.NewBigInt(0)
}
func (c countAgg) Apply(_ Signature, args []types.Datum, freq int64, state []types.Datum) {
	if c.countStar || len(args) == 0 || !args[0].IsNull() {
		state[0] = types.NewBigInt(state[0].AsBigInt() + freq)
	}
}
func (c countAgg) Merge(_ Signature, inputState []types.Datum, state []types.Datum) {
	state[0] = types.NewBigInt(state[0].AsBigInt() + inputState[0].AsBigInt())
}
func (c countAgg) Finalize(_ Signature, state []types.Datum) types.Datum { return state[0] }
func (c countAgg) SupportsRetract() bool                                { return true }

// intSumAgg/bigintSumAgg/decimalSumAgg: sum += freq * value (§3's tuple
// frequency-folding invariant), grounded on aggregate/maths/sum.rs.
type intSumAgg struct{}

func (intSumAgg) StateSize() int                   { return 1 }
func (intSumAgg) Initialize(state []types.Datum)   { state[0] = types.NewInteger(0) }
func (intSumAgg) Apply(_ Signature, args []types.Datum, freq int64, state []types.Datum) {
	if !args[0].IsNull() {
		state[0] = types.NewInteger(state[0].AsInteger() + int32(freq)*args[0].AsInteger())
	}
}
func (intSumAgg) Merge(_ Signature, inputState []types.Datum, state []types.Datum) {
	state[0] = types.NewInteger(state[0].AsInteger() + inputState[0].AsInteger())
}
func (intSumAgg) Finalize(_ Signature, state []types.Datum) types.Datum { return state[0] }
func (intSumAgg) SupportsRetract() bool                                { return true }

type bigintSumAgg struct{}

func (bigintSumAgg) StateSize() int                 { return 1 }
func (bigintSumAgg) Initialize(state []types.Datum) { state[0] = types.NewBigInt(0) }
func (bigintSumAgg) Apply(_ Signature, args []types.Datum, freq int64, state []types.Datum) {
	if !args[0].IsNull() {
		state[0] = types.NewBigInt(state[0].AsBigInt() + freq*args[0].AsBigInt())
	}
}
func (bigintSumAgg) Merge(_ Signature, inputState []types.Datum, state []types.Datum) {
	state[0] = types.NewBigInt(state[0].AsBigInt() + inputState[0].AsBigInt())
}
func (bigintSumAgg) Finalize(_ Signature, state []types.Datum) types.Datum { return state[0] }
func (bigintSumAgg) SupportsRetract() bool                                { return true }

type decimalSumAgg struct{}

func (decimalSumAgg) StateSize() int { return 1 }
func (decimalSumAgg) Initialize(state []types.Datum) {
	state[0] = types.NewDecimal(decimal.Zero)
}
func (decimalSumAgg) Apply(_ Signature, args []types.Datum, freq int64, state []types.Datum) {
	if !args[0].IsNull() {
		delta := args[0].AsDecimal().Mul(decimal.NewFromInt(freq))
		state[0] = types.NewDecimal(state[0].AsDecimal().Add(delta))
	}
}
func (decimalSumAgg) Merge(_ Signature, inputState []types.Datum, state []types.Datum) {
	state[0] = types.NewDecimal(state[0].AsDecimal().Add(inputState[0].AsDecimal()))
}
func (decimalSumAgg) Finalize(_ Signature, state []types.Datum) types.Datum { return state[0] }
func (decimalSumAgg) SupportsRetract() bool                                { return true }

// avgAgg keeps a running (sum, count) pair and divides at Finalize time
// (§4.5, grounded on aggregate/maths/avg.rs); value is read via valueOf and
// written back via wrap so one implementation covers int/bigint/decimal.
type avgAgg struct {
	valueOf func(types.Datum) decimal.Decimal
}

func (a avgAgg) StateSize() int { return 2 }
func (a avgAgg) Initialize(state []types.Datum) {
	state[0] = types.NewDecimal(decimal.Zero)
	state[1] = types.NewBigInt(0)
}
func (a avgAgg) Apply(_ Signature, args []types.Datum, freq int64, state []types.Datum) {
	if args[0].IsNull() {
		return
	}
	delta := a.valueOf(args[0]).Mul(decimal.NewFromInt(freq))
	state[0] = types.NewDecimal(state[0].AsDecimal().Add(delta))
	state[1] = types.NewBigInt(state[1].AsBigInt() + freq)
}
func (a avgAgg) Merge(_ Signature, inputState []types.Datum, state []types.Datum) {
	state[0] = types.NewDecimal(state[0].AsDecimal().Add(inputState[0].AsDecimal()))
	state[1] = types.NewBigInt(state[1].AsBigInt() + inputState[1].AsBigInt())
}
func (a avgAgg) Finalize(_ Signature, state []types.Datum) types.Datum {
	count := state[1].AsBigInt()
	if count == 0 {
		return types.NullDatum
	}
	return types.NewDecimal(state[0].AsDecimal().Div(decimal.NewFromInt(count)))
}
func (a avgAgg) SupportsRetract() bool { return true }

// minMaxAgg tracks the running extreme; does not support retraction since
// removing the current extreme requires re-scanning the group (§4.5:
// "aggregates that do not [support retraction] must be rejected by the
// planner for incremental maintenance").
type minMaxAgg struct {
	wantMax bool
}

func (m minMaxAgg) StateSize() int { return 1 }
func (m minMaxAgg) Initialize(state []types.Datum) {
	state[0] = types.NullDatum
}
func (m minMaxAgg) Apply(_ Signature, args []types.Datum, freq int64, state []types.Datum) {
	if freq <= 0 || args[0].IsNull() {
		return
	}
	if state[0].IsNull() {
		state[0] = args[0]
		return
	}
	cmp := compareDatums(args[0], state[0])
	if (m.wantMax && cmp > 0) || (!m.wantMax && cmp < 0) {
		state[0] = args[0]
	}
}
func (m minMaxAgg) Merge(_ Signature, inputState []types.Datum, state []types.Datum) {
	if state[0].IsNull() {
		state[0] = inputState[0]
		return
	}
	if inputState[0].IsNull() {
		return
	}
	cmp := compareDatums(inputState[0], state[0])
	if (m.wantMax && cmp > 0) || (!m.wantMax && cmp < 0) {
		state[0] = inputState[0]
	}
}
func (m minMaxAgg) Finalize(_ Signature, state []types.Datum) types.Datum { return state[0] }
func (m minMaxAgg) SupportsRetract() bool                                { return false }

func registerAggregateBuiltins(r *Registry) {
	r.register(Definition{Signature: Signature{Name: "count", Args: nil, Ret: types.BigInt}, Kind: KindAggregate, Aggregate: countAgg{countStar: true}})
	r.register(Definition{Signature: Signature{Name: "count", Args: []types.DataType{types.Null}, Ret: types.BigInt}, Kind: KindAggregate, Aggregate: countAgg{}})

	r.register(Definition{Signature: Signature{Name: "sum", Args: []types.DataType{types.Integer}, Ret: types.Integer}, Kind: KindAggregate, Aggregate: intSumAgg{}})
	r.register(Definition{Signature: Signature{Name: "sum", Args: []types.DataType{types.BigInt}, Ret: types.BigInt}, Kind: KindAggregate, Aggregate: bigintSumAgg{}})
	r.register(Definition{
		Signature:    Signature{Name: "sum", Args: []types.DataType{types.Decimal(0, 0)}, Ret: types.Null},
		Kind:         KindAggregate,
		Aggregate:    decimalSumAgg{},
		TypeResolver: func(args []types.DataType) types.DataType { return args[0] },
	})

	r.register(Definition{Signature: Signature{Name: "avg", Args: []types.DataType{types.Integer}, Ret: types.Decimal(types.DecimalMaxPrecision, 4)},
		Kind: KindAggregate, Aggregate: avgAgg{valueOf: func(d types.Datum) decimal.Decimal { return decimal.NewFromInt32(d.AsInteger()) }}})
	r.register(Definition{Signature: Signature{Name: "avg", Args: []types.DataType{types.BigInt}, Ret: types.Decimal(types.DecimalMaxPrecision, 4)},
		Kind: KindAggregate, Aggregate: avgAgg{valueOf: func(d types.Datum) decimal.Decimal { return decimal.NewFromInt(d.AsBigInt()) }}})
	r.register(Definition{
		Signature:    Signature{Name: "avg", Args: []types.DataType{types.Decimal(0, 0)}, Ret: types.Null},
		Kind:         KindAggregate,
		Aggregate:    avgAgg{valueOf: func(d types.Datum) decimal.Decimal { return d.AsDecimal() }},
		TypeResolver: func(args []types.DataType) types.DataType { return types.Decimal(types.DecimalMaxPrecision, args[0].Scale) },
	})

	for _, t := range []types.DataType{types.Integer, types.BigInt, types.Decimal(0, 0), types.Text, types.Date, types.Timestamp} {
		t := t
		minDef := Definition{Signature: Signature{Name: "min", Args: []types.DataType{t}, Ret: t}, Kind: KindAggregate, Aggregate: minMaxAgg{wantMax: false}}
		maxDef := Definition{Signature: Signature{Name: "max", Args: []types.DataType{t}, Ret: t}, Kind: KindAggregate, Aggregate: minMaxAgg{wantMax: true}}
		if t.Kind == types.KindDecimal {
			minDef.Signature.Ret, minDef.TypeResolver = types.Null, func(args []types.DataType) types.DataType { return args[0] }
			maxDef.Signature.Ret, maxDef.TypeResolver = types.Null, func(args []types.DataType) types.DataType { return args[0] }
		}
		r.register(minDef)
		r.register(maxDef)
	}
}
