package functions

import (
	"github.com/shopspring/decimal"

	"incresql/internal/types"
)

// decimalResolver mirrors the original `+`/`-`/`*` resolver: the result
// scale is the max of the input scales, and precision grows to cover the
// widened integer part plus that scale (§4.5).
func decimalResolver(args []types.DataType) types.DataType {
	p1, s1 := args[0].Precision, args[0].Scale
	p2, s2 := args[1].Precision, args[1].Scale
	scale := s1
	if s2 > scale {
		scale = s2
	}
	intDigits1, intDigits2 := p1-s1, p2-s2
	intDigits := intDigits1
	if intDigits2 > intDigits {
		intDigits = intDigits2
	}
	precision := intDigits + scale
	if precision > types.DecimalMaxPrecision {
		precision = types.DecimalMaxPrecision
	}
	return types.Decimal(precision, scale)
}

// divideResolver grows scale since division can produce more fractional
// digits than either operand carried.
func divideResolver(args []types.DataType) types.DataType {
	s1, s2 := args[0].Scale, args[1].Scale
	scale := s1 + s2
	if scale > types.DecimalMaxScale {
		scale = types.DecimalMaxScale
	}
	return types.Decimal(types.DecimalMaxPrecision, scale)
}

func registerMathBuiltins(r *Registry) {
	arith := func(name string, intFn func(a, b int32) int32, bigFn func(a, b int64) int64, decFn func(a, b decimal.Decimal) decimal.Decimal) {
		r.register(Definition{
			Signature: Signature{Name: name, Args: []types.DataType{types.Integer, types.Integer}, Ret: types.Integer},
			Kind:      KindScalar,
			Scalar: ScalarFunc(func(args []types.Datum) types.Datum {
				if args[0].IsNull() || args[1].IsNull() {
					return types.NullDatum
				}
				return types.NewInteger(intFn(args[0].AsInteger(), args[1].AsInteger()))
			}),
		})
		r.register(Definition{
			Signature: Signature{Name: name, Args: []types.DataType{types.BigInt, types.BigInt}, Ret: types.BigInt},
			Kind:      KindScalar,
			Scalar: ScalarFunc(func(args []types.Datum) types.Datum {
				if args[0].IsNull() || args[1].IsNull() {
					return types.NullDatum
				}
				return types.NewBigInt(bigFn(args[0].AsBigInt(), args[1].AsBigInt()))
			}),
		})
		r.register(Definition{
			Signature:    Signature{Name: name, Args: []types.DataType{types.Decimal(0, 0), types.Decimal(0, 0)}, Ret: types.Null},
			Kind:         KindScalar,
			TypeResolver: decimalResolver,
			Scalar: ScalarFunc(func(args []types.Datum) types.Datum {
				if args[0].IsNull() || args[1].IsNull() {
					return types.NullDatum
				}
				return types.NewDecimal(decFn(args[0].AsDecimal(), args[1].AsDecimal()))
			}),
		})
	}

	arith("+",
		func(a, b int32) int32 { return a + b },
		func(a, b int64) int64 { return a + b },
		func(a, b decimal.Decimal) decimal.Decimal { return a.Add(b) })
	arith("-",
		func(a, b int32) int32 { return a - b },
		func(a, b int64) int64 { return a - b },
		func(a, b decimal.Decimal) decimal.Decimal { return a.Sub(b) })
	arith("*",
		func(a, b int32) int32 { return a * b },
		func(a, b int64) int64 { return a * b },
		func(a, b decimal.Decimal) decimal.Decimal { return a.Mul(b) })

	r.register(Definition{
		Signature: Signature{Name: "/", Args: []types.DataType{types.BigInt, types.BigInt}, Ret: types.Decimal(types.DecimalMaxPrecision, types.DecimalMaxScale)},
		Kind:      KindScalar,
		Scalar: ScalarFunc(func(args []types.Datum) types.Datum {
			if args[0].IsNull() || args[1].IsNull() || args[1].AsBigInt() == 0 {
				return types.NullDatum
			}
			return types.NewDecimal(decimal.NewFromInt(args[0].AsBigInt()).Div(decimal.NewFromInt(args[1].AsBigInt())))
		}),
	})
	r.register(Definition{
		Signature:    Signature{Name: "/", Args: []types.DataType{types.Decimal(0, 0), types.Decimal(0, 0)}, Ret: types.Null},
		Kind:         KindScalar,
		TypeResolver: divideResolver,
		Scalar: ScalarFunc(func(args []types.Datum) types.Datum {
			if args[0].IsNull() || args[1].IsNull() || args[1].AsDecimal().IsZero() {
				return types.NullDatum
			}
			return types.NewDecimal(args[0].AsDecimal().Div(args[1].AsDecimal()))
		}),
	})

	r.register(Definition{
		Signature: Signature{Name: "abs", Args: []types.DataType{types.BigInt}, Ret: types.BigInt},
		Kind:      KindScalar,
		Scalar: ScalarFunc(func(args []types.Datum) types.Datum {
			if args[0].IsNull() {
				return types.NullDatum
			}
			v := args[0].AsBigInt()
			if v < 0 {
				v = -v
			}
			return types.NewBigInt(v)
		}),
	})
}
