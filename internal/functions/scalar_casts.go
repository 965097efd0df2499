package functions

import (
	"strconv"

	"github.com/shopspring/decimal"

	"incresql/internal/jsontape"
	"incresql/internal/types"
)

// registerCastBuiltins wires the explicit cast family (to_int, to_bigint,
// to_decimal, to_text, to_bool, to_json, to_jsonpath, compile_jsonpath)
// plus type_of, grounded on scalar/casts (§4.5, §4.6's
// Cast{expr, DataType} node).
func registerCastBuiltins(r *Registry) {
	allTypes := []types.DataType{types.Boolean, types.Integer, types.BigInt, types.Decimal(0, 0), types.Text, types.ByteA, types.Date, types.Timestamp, types.JSON}

	for _, from := range allTypes {
		from := from
		r.register(Definition{
			Signature: Signature{Name: "to_int", Args: []types.DataType{from}, Ret: types.Integer},
			Kind:      KindScalar,
			Scalar:    ScalarFunc(func(args []types.Datum) types.Datum { return toInteger(args[0]) }),
		})
		r.register(Definition{
			Signature: Signature{Name: "to_bigint", Args: []types.DataType{from}, Ret: types.BigInt},
			Kind:      KindScalar,
			Scalar:    ScalarFunc(func(args []types.Datum) types.Datum { return toBigInt(args[0]) }),
		})
		r.register(Definition{
			Signature: Signature{Name: "to_decimal", Args: []types.DataType{from}, Ret: types.Null},
			Kind:      KindScalar,
			Scalar:    ScalarFunc(func(args []types.Datum) types.Datum { return toDecimal(args[0]) }),
		})
		r.register(Definition{
			Signature: Signature{Name: "to_text", Args: []types.DataType{from}, Ret: types.Text},
			Kind:      KindScalar,
			Scalar: ScalarFunc(func(args []types.Datum) types.Datum {
				if args[0].IsNull() {
					return types.NullDatum
				}
				return types.NewTextString(args[0].String())
			}),
		})
		r.register(Definition{
			Signature: Signature{Name: "to_bool", Args: []types.DataType{from}, Ret: types.Boolean},
			Kind:      KindScalar,
			Scalar:    ScalarFunc(func(args []types.Datum) types.Datum { return toBool(args[0]) }),
		})
		r.register(Definition{
			Signature: Signature{Name: "type_of", Args: []types.DataType{from}, Ret: types.Text},
			Kind:      KindScalar,
			Scalar: ScalarFunc(func(args []types.Datum) types.Datum {
				return types.NewTextString(args[0].DataType().String())
			}),
		})
	}

	r.register(Definition{
		Signature: Signature{Name: "to_json", Args: []types.DataType{types.Text}, Ret: types.JSON},
		Kind:      KindScalar,
		Scalar: ScalarFunc(func(args []types.Datum) types.Datum {
			if args[0].IsNull() {
				return types.NullDatum
			}
			tape, err := jsontape.Parse([]byte(args[0].AsText()))
			if err != nil {
				return types.NullDatum
			}
			return types.NewJSON(tape, true)
		}),
	})

	r.register(Definition{
		Signature: Signature{Name: "to_jsonpath", Args: []types.DataType{types.Text}, Ret: types.JSONPath},
		Kind:      KindScalar,
		Scalar: ScalarFunc(func(args []types.Datum) types.Datum {
			if args[0].IsNull() {
				return types.NullDatum
			}
			path, err := jsontape.Compile(args[0].AsText())
			if err != nil {
				return types.NullDatum
			}
			return types.NewJSONPath(path)
		}),
	})

	r.register(Definition{
		Signature: Signature{Name: "compile_jsonpath", Args: []types.DataType{types.Text}, Ret: types.JSONPath},
		Kind:      KindScalar,
		Scalar: ScalarFunc(func(args []types.Datum) types.Datum {
			if args[0].IsNull() {
				return types.NullDatum
			}
			path, err := jsontape.Compile(args[0].AsText())
			if err != nil {
				return types.NullDatum
			}
			return types.NewJSONPath(path)
		}),
	})
}

func toInteger(d types.Datum) types.Datum {
	if d.IsNull() {
		return types.NullDatum
	}
	switch d.Kind {
	case types.KindInteger:
		return d
	case types.KindBigInt:
		return types.NewInteger(int32(d.AsBigInt()))
	case types.KindDecimal:
		return types.NewInteger(int32(d.AsDecimal().IntPart()))
	case types.KindBoolean:
		if d.AsBoolean() {
			return types.NewInteger(1)
		}
		return types.NewInteger(0)
	case types.KindText:
		v, err := strconv.ParseInt(d.AsText(), 10, 32)
		if err != nil {
			return types.NullDatum
		}
		return types.NewInteger(int32(v))
	default:
		return types.NullDatum
	}
}

func toBigInt(d types.Datum) types.Datum {
	if d.IsNull() {
		return types.NullDatum
	}
	switch d.Kind {
	case types.KindInteger:
		return types.NewBigInt(int64(d.AsInteger()))
	case types.KindBigInt:
		return d
	case types.KindDecimal:
		return types.NewBigInt(d.AsDecimal().IntPart())
	case types.KindBoolean:
		if d.AsBoolean() {
			return types.NewBigInt(1)
		}
		return types.NewBigInt(0)
	case types.KindText:
		v, err := strconv.ParseInt(d.AsText(), 10, 64)
		if err != nil {
			return types.NullDatum
		}
		return types.NewBigInt(v)
	default:
		return types.NullDatum
	}
}

func toDecimal(d types.Datum) types.Datum {
	if d.IsNull() {
		return types.NullDatum
	}
	switch d.Kind {
	case types.KindInteger:
		return types.NewDecimal(decimal.NewFromInt32(d.AsInteger()))
	case types.KindBigInt:
		return types.NewDecimal(decimal.NewFromInt(d.AsBigInt()))
	case types.KindDecimal:
		return d
	case types.KindText:
		v, err := decimal.NewFromString(d.AsText())
		if err != nil {
			return types.NullDatum
		}
		return types.NewDecimal(v)
	default:
		return types.NullDatum
	}
}

func toBool(d types.Datum) types.Datum {
	if d.IsNull() {
		return types.NullDatum
	}
	switch d.Kind {
	case types.KindBoolean:
		return d
	case types.KindInteger:
		return types.NewBoolean(d.AsInteger() != 0)
	case types.KindBigInt:
		return types.NewBoolean(d.AsBigInt() != 0)
	case types.KindText:
		return types.NewBoolean(d.AsText() == "true" || d.AsText() == "1")
	default:
		return types.NullDatum
	}
}
