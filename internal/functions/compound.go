package functions

import "incresql/internal/types"

// registerCompoundBuiltins records the compound rewrite signatures (§4.5:
// "rewrite into a tree of other functions, e.g. ->> = json_unquote(
// json_extract(_, _))"). The planner looks these up by name via
// Definitions and performs the actual tree rewrite using its own
// expression type; the functions package only owns the declaration that a
// name is compound and which two functions it expands to.
type JSONUnquoteExtractRewrite struct {
	ExtractFunctionName string
	UnquoteFunctionName string
}

func registerCompoundBuiltins(r *Registry) {
	r.register(Definition{
		Signature: Signature{Name: "->>", Args: []types.DataType{types.JSON, types.JSONPath}, Ret: types.Text},
		Kind:      KindCompound,
		Compound: CompoundRewriter(func(args []any) any {
			return JSONUnquoteExtractRewrite{ExtractFunctionName: "json_extract", UnquoteFunctionName: "json_unquote"}
		}),
	})
}
