package functions

import (
	"incresql/internal/types"
)

// registerMiscBuiltins wires coalesce (variadic-by-registered-arity, per
// scalar/misc/coalesce.rs) and if (scalar/misc/if_fn.rs).
func registerMiscBuiltins(r *Registry) {
	variadicTypes := []types.DataType{types.Boolean, types.Integer, types.BigInt, types.Text, types.ByteA, types.Date, types.Timestamp, types.JSON, types.Decimal(0, 0)}

	for _, dt := range variadicTypes {
		dt := dt
		for arity := 1; arity <= 10; arity++ {
			args := make([]types.DataType, arity)
			for i := range args {
				args[i] = dt
			}
			def := Definition{
				Signature: Signature{Name: "coalesce", Args: args, Ret: dt},
				Kind:      KindScalar,
				Scalar: ScalarFunc(func(args []types.Datum) types.Datum {
					for _, d := range args {
						if !d.IsNull() {
							return d
						}
					}
					return types.NullDatum
				}),
			}
			if dt.Kind == types.KindDecimal {
				def.Signature.Ret = types.Null
				def.TypeResolver = coalesceDecimalResolver
			}
			r.register(def)
		}

		ifArgs := []types.DataType{types.Boolean, dt, dt}
		ifDef := Definition{
			Signature: Signature{Name: "if", Args: ifArgs, Ret: dt},
			Kind:      KindScalar,
			Scalar: ScalarFunc(func(args []types.Datum) types.Datum {
				if !args[0].IsNull() && args[0].AsBoolean() {
					return args[1]
				}
				return args[2]
			}),
		}
		if dt.Kind == types.KindDecimal {
			ifDef.Signature.Ret = types.Null
			ifDef.TypeResolver = func(args []types.DataType) types.DataType { return decimalResolver(args[1:]) }
		}
		r.register(ifDef)
	}
}

// coalesceDecimalResolver mirrors the Rust resolver: each arg's (p,s) is
// split into whole-digits/scale, the result takes the max of each, clamped
// to DecimalMaxPrecision.
func coalesceDecimalResolver(args []types.DataType) types.DataType {
	var whole, scale int32
	for _, a := range args {
		if a.IsNull() {
			continue
		}
		w := a.Precision - a.Scale
		if w > whole {
			whole = w
		}
		if a.Scale > scale {
			scale = a.Scale
		}
	}
	precision := whole + scale
	if precision > types.DecimalMaxPrecision {
		precision = types.DecimalMaxPrecision
	}
	return types.Decimal(precision, scale)
}
