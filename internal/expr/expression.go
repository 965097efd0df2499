// Package expr implements the scalar and aggregate expression evaluator
// (§4.6): a single Expression tagged-variant tree that carries both its
// pre-resolution parser shape (ColumnReference, FunctionCall, Cast) and its
// post-resolution compiled shape (CompiledColumnReference,
// CompiledFunctionCall, CompiledAggregate, SortExpression), evaluated by
// walking the tree and writing into per-node reusable argument buffers so a
// result Datum can borrow from a source tuple without allocating.
package expr

import (
	"incresql/internal/codec"
	"incresql/internal/functions"
	"incresql/internal/types"
)

// Kind discriminates an Expression's variant (§4.6).
type Kind uint8

const (
	KindConstant Kind = iota
	KindColumnReference
	KindFunctionCall
	KindCast
	KindCompiledColumnReference
	KindCompiledFunctionCall
	KindCompiledAggregate
	KindSortExpression
)

// Expression is the tagged sum type the planner builds, resolves, and the
// executor evaluates. Exactly one group of fields is meaningful per Kind —
// modelled as a flat tagged struct rather than an interface, per the
// teacher corpus's "narrow execute(...) dispatch, not virtual dispatch"
// idiom applied to expression trees.
type Expression struct {
	Kind Kind

	// Constant
	Value    types.Datum
	DataType types.DataType

	// ColumnReference (pre-resolution)
	Qualifier string
	Alias     string
	Star      bool

	// FunctionCall / CompiledFunctionCall / CompiledAggregate
	FunctionName string
	Args         []Expression
	Signature    functions.Signature
	ScalarFn     functions.ScalarFunction
	AggregateFn  functions.AggregateFunction
	// argBuf is reused across Eval calls on the same compiled node so a
	// scalar function's Datum result can borrow from its evaluated
	// argument buffer without reallocating it every row.
	argBuf []types.Datum

	// Cast
	Inner *Expression

	// CompiledColumnReference
	Offset int

	// CompiledAggregate: indexes into the executor's flat shared state
	// slice (§4.6: "per-call state buffers").
	StateOffset int

	// SortExpression
	SortOrder codec.SortOrder
}

func NewConstant(v types.Datum, dt types.DataType) Expression {
	return Expression{Kind: KindConstant, Value: v, DataType: dt}
}

func NewColumnReference(qualifier, alias string, star bool) Expression {
	return Expression{Kind: KindColumnReference, Qualifier: qualifier, Alias: alias, Star: star}
}

func NewFunctionCall(name string, args []Expression) Expression {
	return Expression{Kind: KindFunctionCall, FunctionName: name, Args: args}
}

func NewCast(inner Expression, dt types.DataType) Expression {
	return Expression{Kind: KindCast, Inner: &inner, DataType: dt}
}

func NewCompiledColumnReference(offset int, dt types.DataType) Expression {
	return Expression{Kind: KindCompiledColumnReference, Offset: offset, DataType: dt}
}

func NewCompiledFunctionCall(sig functions.Signature, fn functions.ScalarFunction, args []Expression) Expression {
	return Expression{Kind: KindCompiledFunctionCall, Signature: sig, ScalarFn: fn, Args: args}
}

func NewCompiledAggregate(sig functions.Signature, fn functions.AggregateFunction, args []Expression, stateOffset int) Expression {
	return Expression{Kind: KindCompiledAggregate, Signature: sig, AggregateFn: fn, Args: args, StateOffset: stateOffset}
}

func NewSortExpression(inner Expression, order codec.SortOrder) Expression {
	return Expression{Kind: KindSortExpression, Inner: &inner, SortOrder: order}
}

// Eval evaluates a fully-compiled expression against row, a tuple's value
// slice. ColumnReference, FunctionCall, and Cast are pre-resolution shapes
// the planner must have already rewritten away by this point; evaluating
// one here is a programming error, mirroring the original's "should be
// compiled away by this point" panics.
func (e *Expression) Eval(row []types.Datum) types.Datum {
	switch e.Kind {
	case KindConstant:
		return e.Value
	case KindCompiledColumnReference:
		return row[e.Offset]
	case KindCompiledFunctionCall:
		if len(e.argBuf) != len(e.Args) {
			e.argBuf = make([]types.Datum, len(e.Args))
		}
		for i := range e.Args {
			e.argBuf[i] = e.Args[i].Eval(row)
		}
		return e.ScalarFn.Execute(e.argBuf)
	case KindSortExpression:
		return e.Inner.Eval(row)
	default:
		panic("expr: evaluated an uncompiled expression node")
	}
}

// EvalRow evaluates every expression in exprs against source, writing
// results into target (§4.6's per-row projection path).
func EvalRow(exprs []Expression, source []types.Datum, target []types.Datum) {
	for i := range exprs {
		target[i] = exprs[i].Eval(source)
	}
}
