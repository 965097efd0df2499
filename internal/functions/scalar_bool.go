package functions

import (
	"incresql/internal/types"
)

// registerBoolBuiltins wires comparison and logical connective functions,
// grounded on the scalar/bool family (eq/ne/lt/lte/gt/gte/and/or/not/
// is_null/is_true/is_false).
func registerBoolBuiltins(r *Registry) {
	cmp := func(name string, pred func(a, b types.Datum) bool) {
		for _, t := range []types.DataType{types.Integer, types.BigInt, types.Decimal(0, 0), types.Text, types.Boolean, types.Date, types.Timestamp} {
			r.register(Definition{
				Signature: Signature{Name: name, Args: []types.DataType{t, t}, Ret: types.Boolean},
				Kind:      KindScalar,
				Scalar: ScalarFunc(func(args []types.Datum) types.Datum {
					if args[0].IsNull() || args[1].IsNull() {
						return types.NullDatum
					}
					return types.NewBoolean(pred(args[0], args[1]))
				}),
			})
		}
	}

	cmp("=", datumsEqual)
	cmp("!=", func(a, b types.Datum) bool { return !datumsEqual(a, b) })
	cmp("<", func(a, b types.Datum) bool { return compareDatums(a, b) < 0 })
	cmp("<=", func(a, b types.Datum) bool { return compareDatums(a, b) <= 0 })
	cmp(">", func(a, b types.Datum) bool { return compareDatums(a, b) > 0 })
	cmp(">=", func(a, b types.Datum) bool { return compareDatums(a, b) >= 0 })

	r.register(Definition{
		Signature: Signature{Name: "and", Args: []types.DataType{types.Boolean, types.Boolean}, Ret: types.Boolean},
		Kind:      KindScalar,
		Scalar: ScalarFunc(func(args []types.Datum) types.Datum {
			if (!args[0].IsNull() && !args[0].AsBoolean()) || (!args[1].IsNull() && !args[1].AsBoolean()) {
				return types.FalseDatum // short-circuit: FALSE and anything is FALSE, even NULL
			}
			if args[0].IsNull() || args[1].IsNull() {
				return types.NullDatum
			}
			return types.NewBoolean(args[0].AsBoolean() && args[1].AsBoolean())
		}),
	})
	r.register(Definition{
		Signature: Signature{Name: "or", Args: []types.DataType{types.Boolean, types.Boolean}, Ret: types.Boolean},
		Kind:      KindScalar,
		Scalar: ScalarFunc(func(args []types.Datum) types.Datum {
			if (!args[0].IsNull() && args[0].AsBoolean()) || (!args[1].IsNull() && args[1].AsBoolean()) {
				return types.TrueDatum
			}
			if args[0].IsNull() || args[1].IsNull() {
				return types.NullDatum
			}
			return types.NewBoolean(args[0].AsBoolean() || args[1].AsBoolean())
		}),
	})
	r.register(Definition{
		Signature: Signature{Name: "not", Args: []types.DataType{types.Boolean}, Ret: types.Boolean},
		Kind:      KindScalar,
		Scalar: ScalarFunc(func(args []types.Datum) types.Datum {
			if args[0].IsNull() {
				return types.NullDatum
			}
			return types.NewBoolean(!args[0].AsBoolean())
		}),
	})
	r.register(Definition{
		Signature: Signature{Name: "is_null", Args: []types.DataType{types.Null}, Ret: types.Boolean},
		Kind:      KindScalar,
		Scalar: ScalarFunc(func(args []types.Datum) types.Datum {
			return types.NewBoolean(args[0].IsNull())
		}),
	})
	r.register(Definition{
		Signature: Signature{Name: "is_true", Args: []types.DataType{types.Boolean}, Ret: types.Boolean},
		Kind:      KindScalar,
		Scalar: ScalarFunc(func(args []types.Datum) types.Datum {
			return types.NewBoolean(!args[0].IsNull() && args[0].AsBoolean())
		}),
	})
	r.register(Definition{
		Signature: Signature{Name: "is_false", Args: []types.DataType{types.Boolean}, Ret: types.Boolean},
		Kind:      KindScalar,
		Scalar: ScalarFunc(func(args []types.Datum) types.Datum {
			return types.NewBoolean(!args[0].IsNull() && !args[0].AsBoolean())
		}),
	})
}

func datumsEqual(a, b types.Datum) bool { return a.Equal(b) }

// compareDatums orders two non-null datums of the same kind; used by the
// ordering comparison functions above. Sort operators use the sortable
// codec directly rather than this, which exists only for scalar predicate
// evaluation.
func compareDatums(a, b types.Datum) int {
	switch a.Kind {
	case types.KindInteger:
		return int(a.AsInteger()) - int(b.AsInteger())
	case types.KindBigInt:
		switch {
		case a.AsBigInt() < b.AsBigInt():
			return -1
		case a.AsBigInt() > b.AsBigInt():
			return 1
		default:
			return 0
		}
	case types.KindDecimal:
		return a.AsDecimal().Cmp(b.AsDecimal())
	case types.KindText:
		return compareStrings(a.AsText(), b.AsText())
	case types.KindBoolean:
		return boolToInt(a.AsBoolean()) - boolToInt(b.AsBoolean())
	case types.KindDate:
		return int(a.AsDateDays()) - int(b.AsDateDays())
	case types.KindTimestamp:
		switch {
		case a.AsTimestampMicros() < b.AsTimestampMicros():
			return -1
		case a.AsTimestampMicros() > b.AsTimestampMicros():
			return 1
		default:
			return 0
		}
	default:
		return 0
	}
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
