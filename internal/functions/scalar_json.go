package functions

import (
	"incresql/internal/jsontape"
	"incresql/internal/types"
)

// registerJSONBuiltins wires json_extract (also as "->"), json_unquote and
// json_extract_unquote (§4.2, §4.5); "->>" is registered in compound.go and
// compile_jsonpath in scalar_casts.go.
func registerJSONBuiltins(r *Registry) {
	extract := func(name string) {
		r.register(Definition{
			Signature: Signature{Name: name, Args: []types.DataType{types.JSON, types.JSONPath}, Ret: types.JSON},
			Kind:      KindScalar,
			Scalar:    ScalarFunc(jsonExtract),
		})
	}
	extract("json_extract")
	extract("->")

	r.register(Definition{
		Signature: Signature{Name: "json_unquote", Args: []types.DataType{types.JSON}, Ret: types.Text},
		Kind:      KindScalar,
		Scalar: ScalarFunc(func(args []types.Datum) types.Datum {
			if args[0].IsNull() {
				return types.NullDatum
			}
			node := jsontape.NewNode(args[0].AsJSONTape())
			if s, ok := node.String(); ok {
				return types.NewTextString(s)
			}
			return types.NewTextString(node.ToJSONText())
		}),
	})

	// json_extract_unquote is registered as a plain scalar (its own named
	// function); ->> is instead a compound rewrite onto json_extract +
	// json_unquote (see compound.go), per §4.5's worked example.
	r.register(Definition{
		Signature: Signature{Name: "json_extract_unquote", Args: []types.DataType{types.JSON, types.JSONPath}, Ret: types.Text},
		Kind:      KindScalar,
		Scalar: ScalarFunc(func(args []types.Datum) types.Datum {
			extracted := jsonExtract(args)
			if extracted.IsNull() {
				return types.NullDatum
			}
			node := jsontape.NewNode(extracted.AsJSONTape())
			if s, ok := node.String(); ok {
				return types.NewTextString(s)
			}
			return types.NewTextString(node.ToJSONText())
		}),
	})
}

// jsonExtract implements json_extract/"->": evaluate the compiled jsonpath
// against the json tape, wrapping multiple matches into a json array when
// the path could_return_many (§4.2).
func jsonExtract(args []types.Datum) types.Datum {
	if args[0].IsNull() || args[1].IsNull() {
		return types.NullDatum
	}
	path, ok := args[1].AsJSONPath().(*jsontape.Path)
	if !ok || path == nil {
		return types.NullDatum
	}
	root := jsontape.NewNode(args[0].AsJSONTape())

	if path.CouldReturnMany() {
		var matches [][]byte
		path.Evaluate(root, func(n jsontape.Node) {
			matches = append(matches, n.Raw())
		})
		return types.NewJSON(jsontape.BuildArray(matches), true)
	}

	match, found := path.EvaluateSingle(root)
	if !found {
		return types.NullDatum
	}
	return types.NewJSON(match.Raw(), true)
}
