package functions

import (
	"strings"

	"incresql/internal/types"
)

// registerStringBuiltins wires the scalar text functions (concat, length,
// upper, lower, substring) — these have no direct original_source
// counterpart but follow the same per-type overload-registration shape as
// scalar/casts and scalar/bool, extended to round out the Text type.
func registerStringBuiltins(r *Registry) {
	r.register(Definition{
		Signature: Signature{Name: "concat", Args: []types.DataType{types.Text, types.Text}, Ret: types.Text},
		Kind:      KindScalar,
		Scalar: ScalarFunc(func(args []types.Datum) types.Datum {
			if args[0].IsNull() || args[1].IsNull() {
				return types.NullDatum
			}
			return types.NewTextString(args[0].AsText() + args[1].AsText())
		}),
	})
	r.register(Definition{
		Signature: Signature{Name: "length", Args: []types.DataType{types.Text}, Ret: types.Integer},
		Kind:      KindScalar,
		Scalar: ScalarFunc(func(args []types.Datum) types.Datum {
			if args[0].IsNull() {
				return types.NullDatum
			}
			return types.NewInteger(int32(len(args[0].AsBytes())))
		}),
	})
	r.register(Definition{
		Signature: Signature{Name: "upper", Args: []types.DataType{types.Text}, Ret: types.Text},
		Kind:      KindScalar,
		Scalar: ScalarFunc(func(args []types.Datum) types.Datum {
			if args[0].IsNull() {
				return types.NullDatum
			}
			return types.NewTextString(strings.ToUpper(args[0].AsText()))
		}),
	})
	r.register(Definition{
		Signature: Signature{Name: "lower", Args: []types.DataType{types.Text}, Ret: types.Text},
		Kind:      KindScalar,
		Scalar: ScalarFunc(func(args []types.Datum) types.Datum {
			if args[0].IsNull() {
				return types.NullDatum
			}
			return types.NewTextString(strings.ToLower(args[0].AsText()))
		}),
	})
	r.register(Definition{
		Signature: Signature{Name: "substring", Args: []types.DataType{types.Text, types.Integer, types.Integer}, Ret: types.Text},
		Kind:      KindScalar,
		Scalar: ScalarFunc(func(args []types.Datum) types.Datum {
			if args[0].IsNull() || args[1].IsNull() || args[2].IsNull() {
				return types.NullDatum
			}
			s := args[0].AsText()
			start := int(args[1].AsInteger()) - 1
			length := int(args[2].AsInteger())
			if start < 0 {
				start = 0
			}
			if start >= len(s) {
				return types.NewTextString("")
			}
			end := start + length
			if end > len(s) || length < 0 {
				end = len(s)
			}
			return types.NewTextString(s[start:end])
		}),
	})
}
