package expr

import (
	"fmt"
	"strings"
)

// String renders e the way EXPLAIN's expression column does: column
// references by offset, calls in prefix-function-call form, and constants
// via their Datum's text rendering.
func (e Expression) String() string {
	switch e.Kind {
	case KindConstant:
		return e.Value.AsText()
	case KindColumnReference:
		if e.Qualifier != "" {
			return e.Qualifier + "." + e.Alias
		}
		return e.Alias
	case KindCompiledColumnReference:
		return fmt.Sprintf("$%d", e.Offset)
	case KindFunctionCall:
		return callString(e.FunctionName, e.Args)
	case KindCompiledFunctionCall, KindCompiledAggregate:
		return callString(e.Signature.Name, e.Args)
	case KindCast:
		return fmt.Sprintf("CAST(%s AS %s)", e.Inner.String(), e.DataType)
	case KindSortExpression:
		if e.SortOrder == 0 {
			return e.Inner.String() + " ASC"
		}
		return e.Inner.String() + " DESC"
	default:
		return "?"
	}
}

func callString(name string, args []Expression) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	return name + "(" + strings.Join(parts, ", ") + ")"
}
