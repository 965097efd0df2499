package planner

import (
	"fmt"

	"incresql/internal/ast"
	"incresql/internal/expr"
	"incresql/internal/types"
)

// logicalColumnCount returns how many columns op's resolved output carries,
// needed by predicate pushdown and join normalization to tell which side of
// a Join a CompiledColumnReference's offset falls into before the tree is
// lowered (PointInTimeOperator.ColumnCountOf does the equivalent job after
// lowering).
func logicalColumnCount(op ast.LogicalOperator) int {
	switch op.Kind {
	case ast.LogicalSingle:
		return 0
	case ast.LogicalProject:
		return len(op.NamedExpressions)
	case ast.LogicalValues:
		if len(op.Data) == 0 {
			return len(op.Fields)
		}
		return len(op.Data[0])
	case ast.LogicalResolvedTable:
		return len(op.Table.Columns)
	case ast.LogicalGroupBy:
		return len(op.GroupExpressions)
	case ast.LogicalJoin:
		return logicalColumnCount(*op.Left) + logicalColumnCount(*op.Right)
	case ast.LogicalUnionAll:
		if len(op.Sources) == 0 {
			return 0
		}
		return logicalColumnCount(op.Sources[0])
	case ast.LogicalFilter, ast.LogicalLimit, ast.LogicalSort, ast.LogicalTableInsert, ast.LogicalTableAlias, ast.LogicalNegateFreq:
		return logicalColumnCount(*op.Source)
	default:
		return 0
	}
}

// decomposeAnd splits e at every top-level "and" call into its conjuncts
// (§4.7 phase 2 step 2: "decompose predicates at their top-level AND
// nodes"). A predicate with no top-level AND decomposes to itself.
func decomposeAnd(e expr.Expression) []expr.Expression {
	if e.Kind == expr.KindCompiledFunctionCall && e.Signature.Name == "and" && len(e.Args) == 2 {
		return append(decomposeAnd(e.Args[0]), decomposeAnd(e.Args[1])...)
	}
	return []expr.Expression{e}
}

// conjoin is decomposeAnd's inverse: it ANDs a list of conjuncts back
// together, re-resolving the "and" function so the result is a properly
// compiled expression. An empty list conjoins to the literal true.
func (p *Planner) conjoin(conjuncts []expr.Expression) expr.Expression {
	if len(conjuncts) == 0 {
		return expr.NewConstant(types.NewBoolean(true), types.Boolean)
	}
	out := conjuncts[0]
	for _, c := range conjuncts[1:] {
		resolved, err := p.Registry.Resolve("and", []types.DataType{types.Boolean, types.Boolean}, types.Boolean)
		if err != nil {
			// "and" is a built-in registered at startup; its absence would
			// be a programmer error, not a runtime condition.
			panic(err)
		}
		out = expr.NewCompiledFunctionCall(resolved.Signature, resolved.Def.Scalar, []expr.Expression{out, c})
	}
	return out
}

// columnOffsetRange returns the lowest and highest CompiledColumnReference
// offset reachable inside e, and whether e references any column at all
// (a wholly constant expression doesn't). Used to classify a predicate
// conjunct against a Join's left/right column-offset ranges.
func columnOffsetRange(e expr.Expression) (lo, hi int, hasCol bool) {
	switch e.Kind {
	case expr.KindCompiledColumnReference:
		return e.Offset, e.Offset, true
	case expr.KindCompiledFunctionCall, expr.KindCompiledAggregate:
		for _, a := range e.Args {
			alo, ahi, aok := columnOffsetRange(a)
			if !aok {
				continue
			}
			if !hasCol {
				lo, hi = alo, ahi
			} else {
				if alo < lo {
					lo = alo
				}
				if ahi > hi {
					hi = ahi
				}
			}
			hasCol = true
		}
		return lo, hi, hasCol
	case expr.KindSortExpression:
		return columnOffsetRange(*e.Inner)
	default:
		return 0, 0, false
	}
}

// conjunctSide classifies a conjunct against a Join's column layout: left
// if every column reference it contains falls below leftCount, right if
// every one falls at or above it, residual otherwise (including constants,
// which spec groups with "both-sides" conjuncts as residual rather than
// duplicating into both children).
type side int

const (
	sideLeft side = iota
	sideRight
	sideResidual
)

func conjunctSide(e expr.Expression, leftCount int) side {
	lo, hi, hasCol := columnOffsetRange(e)
	if !hasCol {
		return sideResidual
	}
	if hi < leftCount {
		return sideLeft
	}
	if lo >= leftCount {
		return sideRight
	}
	return sideResidual
}

// inlineProjectRefs rewrites every CompiledColumnReference inside e to the
// Project expression it names, so a predicate pushed below a Project is
// restated in terms of the Project's own source columns (§4.7 phase 2 step
// 2: "a project inlines its output expressions into the predicate before
// pushing further").
func inlineProjectRefs(e expr.Expression, named []ast.NamedExpression) expr.Expression {
	switch e.Kind {
	case expr.KindCompiledColumnReference:
		return named[e.Offset].Expression
	case expr.KindCompiledFunctionCall, expr.KindCompiledAggregate:
		newArgs := make([]expr.Expression, len(e.Args))
		for i, a := range e.Args {
			newArgs[i] = inlineProjectRefs(a, named)
		}
		e.Args = newArgs
		return e
	case expr.KindSortExpression:
		inner := inlineProjectRefs(*e.Inner, named)
		e.Inner = &inner
		return e
	default:
		return e
	}
}

// pushdown implements §4.7 phase 2 step 2: it walks the resolved tree and,
// at every Filter, tries to push its predicate's conjuncts as far toward
// the leaves as the operator graph allows.
func (p *Planner) pushdown(op ast.LogicalOperator) ast.LogicalOperator {
	switch op.Kind {
	case ast.LogicalFilter:
		child := p.pushdown(*op.Source)
		return p.pushBelow(child, decomposeAnd(op.Predicate))

	case ast.LogicalProject, ast.LogicalLimit, ast.LogicalSort, ast.LogicalTableInsert,
		ast.LogicalTableAlias, ast.LogicalGroupBy, ast.LogicalNegateFreq:
		child := p.pushdown(*op.Source)
		op.Source = &child
		return op

	case ast.LogicalUnionAll:
		for i := range op.Sources {
			op.Sources[i] = p.pushdown(op.Sources[i])
		}
		return op

	case ast.LogicalJoin:
		left := p.pushdown(*op.Left)
		right := p.pushdown(*op.Right)
		op.Left = &left
		op.Right = &right
		return op

	default:
		return op
	}
}

// pushBelow tries to re-home conjuncts underneath op, recursing through the
// operators §4.7 names as transparent (Sort, NegateFreq, TableAlias),
// inlining through Project, duplicating into every UnionAll branch, and
// splitting across a Join's left/right/residual. Anything that can't be
// pushed further stops at op and is wrapped in a new Filter above it.
func (p *Planner) pushBelow(op ast.LogicalOperator, conjuncts []expr.Expression) ast.LogicalOperator {
	if len(conjuncts) == 0 {
		return op
	}

	switch op.Kind {
	case ast.LogicalSort, ast.LogicalNegateFreq, ast.LogicalTableAlias:
		newSource := p.pushBelow(*op.Source, conjuncts)
		op.Source = &newSource
		return op

	case ast.LogicalProject:
		inlined := make([]expr.Expression, len(conjuncts))
		for i, c := range conjuncts {
			inlined[i] = inlineProjectRefs(c, op.NamedExpressions)
		}
		newSource := p.pushBelow(*op.Source, inlined)
		op.Source = &newSource
		return op

	case ast.LogicalUnionAll:
		for i := range op.Sources {
			op.Sources[i] = p.pushBelow(op.Sources[i], conjuncts)
		}
		return op

	case ast.LogicalFilter:
		merged := append(decomposeAnd(op.Predicate), conjuncts...)
		op.Predicate = p.conjoin(merged)
		return op

	case ast.LogicalJoin:
		return p.pushIntoJoin(op, conjuncts)

	default:
		return ast.NewFilter(p.conjoin(conjuncts), op)
	}
}

// pushIntoJoin classifies each conjunct by the column-offset ranges it
// touches and routes left-only conjuncts into a filter over the left child,
// right-only into a filter over the right child, and everything else
// (constants and conjuncts referencing both sides) into the join's
// on-condition as an additional residual predicate.
func (p *Planner) pushIntoJoin(op ast.LogicalOperator, conjuncts []expr.Expression) ast.LogicalOperator {
	leftCount := logicalColumnCount(*op.Left)

	var leftOnly, rightOnly, residual []expr.Expression
	for _, c := range conjuncts {
		switch conjunctSide(c, leftCount) {
		case sideLeft:
			leftOnly = append(leftOnly, c)
		case sideRight:
			rightOnly = append(rightOnly, shiftColumnOffsets(c, -leftCount))
		default:
			residual = append(residual, c)
		}
	}

	left := p.pushBelow(*op.Left, leftOnly)
	right := p.pushBelow(*op.Right, rightOnly)
	op.Left = &left
	op.Right = &right
	if len(residual) > 0 {
		op.OnPredicate = p.conjoin(append(decomposeAnd(op.OnPredicate), residual...))
	}
	return op
}

// collapseProjects implements §4.7 phase 2 step 4: a Project directly atop
// another Project merges into one, with the outer's expressions rewritten
// in terms of the inner's source columns. Recursion is post-order, so by
// the time a Project inspects its (already-collapsed) child, that child's
// own source is guaranteed not to be a Project itself.
func collapseProjects(op ast.LogicalOperator) ast.LogicalOperator {
	switch op.Kind {
	case ast.LogicalProject:
		child := collapseProjects(*op.Source)
		if child.Kind == ast.LogicalProject {
			merged := make([]ast.NamedExpression, len(op.NamedExpressions))
			for i, ne := range op.NamedExpressions {
				merged[i] = ast.NamedExpression{Alias: ne.Alias, Expression: inlineProjectRefs(ne.Expression, child.NamedExpressions)}
			}
			op.NamedExpressions = merged
			op.Source = child.Source
			return op
		}
		op.Source = &child
		return op

	case ast.LogicalFilter, ast.LogicalLimit, ast.LogicalSort, ast.LogicalTableInsert,
		ast.LogicalTableAlias, ast.LogicalGroupBy, ast.LogicalNegateFreq:
		child := collapseProjects(*op.Source)
		op.Source = &child
		return op

	case ast.LogicalUnionAll:
		for i := range op.Sources {
			op.Sources[i] = collapseProjects(op.Sources[i])
		}
		return op

	case ast.LogicalJoin:
		left := collapseProjects(*op.Left)
		right := collapseProjects(*op.Right)
		op.Left = &left
		op.Right = &right
		return op

	default:
		return op
	}
}

// normalizeJoins implements §4.7 phase 3 step 1: every Join's on-condition
// is AND-decomposed into equi-join pairs (one side referencing only the
// left input, the other only the right) plus a residual. The equi-pairs'
// key expressions are hoisted into Projects over each side so HashJoin's
// "first key_len columns are the key" contract is satisfied for any number
// of keys, not just one bare-column pair.
func (p *Planner) normalizeJoins(op ast.LogicalOperator) ast.LogicalOperator {
	switch op.Kind {
	case ast.LogicalJoin:
		left := p.normalizeJoins(*op.Left)
		right := p.normalizeJoins(*op.Right)
		op.Left = &left
		op.Right = &right
		return p.normalizeOneJoin(op)

	case ast.LogicalProject, ast.LogicalFilter, ast.LogicalLimit, ast.LogicalSort,
		ast.LogicalTableInsert, ast.LogicalTableAlias, ast.LogicalGroupBy, ast.LogicalNegateFreq:
		child := p.normalizeJoins(*op.Source)
		op.Source = &child
		return op

	case ast.LogicalUnionAll:
		for i := range op.Sources {
			op.Sources[i] = p.normalizeJoins(op.Sources[i])
		}
		return op

	default:
		return op
	}
}

// asEquiPair recognizes `left_expr = right_expr` where each side's column
// references fall entirely on one side of the join, returning the pair
// re-expressed against each side's own column offsets (key_left, key_right,
// ok).
func asEquiPair(c expr.Expression, leftCount int) (expr.Expression, expr.Expression, bool) {
	if c.Kind != expr.KindCompiledFunctionCall || c.Signature.Name != "=" || len(c.Args) != 2 {
		return expr.Expression{}, expr.Expression{}, false
	}
	a, b := c.Args[0], c.Args[1]
	aSide, bSide := conjunctSide(a, leftCount), conjunctSide(b, leftCount)
	switch {
	case aSide == sideLeft && bSide == sideRight:
		return a, shiftColumnOffsets(b, -leftCount), true
	case aSide == sideRight && bSide == sideLeft:
		return b, shiftColumnOffsets(a, -leftCount), true
	default:
		return expr.Expression{}, expr.Expression{}, false
	}
}

// prependKeys builds a Project over child emitting keyExprs (against
// child's own column offsets) first, followed by every one of child's
// original childCount columns unchanged.
func prependKeys(keyExprs []expr.Expression, child ast.LogicalOperator, childCount int) ast.LogicalOperator {
	named := make([]ast.NamedExpression, 0, len(keyExprs)+childCount)
	for i, k := range keyExprs {
		named = append(named, ast.NamedExpression{Alias: fmt.Sprintf("_joinkey%d", i), Expression: k})
	}
	for i := 0; i < childCount; i++ {
		named = append(named, ast.NamedExpression{Expression: expr.NewCompiledColumnReference(i, types.Null)})
	}
	return ast.NewProject(false, named, child)
}

// normalizeOneJoin rewrites a single Join node, hoisting any equi-pairs it
// can find in the on-condition. A Join whose condition contains no equi-pair
// at all is left untouched; lower.go's lowerJoin surfaces ErrUnsupportedJoin
// for it, since HashJoin requires at least one equality.
func (p *Planner) normalizeOneJoin(op ast.LogicalOperator) ast.LogicalOperator {
	leftCount := logicalColumnCount(*op.Left)
	rightCount := logicalColumnCount(*op.Right)

	var equiLeft, equiRight, residual []expr.Expression
	for _, c := range decomposeAnd(op.OnPredicate) {
		if le, re, ok := asEquiPair(c, leftCount); ok {
			equiLeft = append(equiLeft, le)
			equiRight = append(equiRight, re)
			continue
		}
		residual = append(residual, c)
	}

	if len(equiLeft) == 0 {
		return op
	}

	k := len(equiLeft)
	leftProj := prependKeys(equiLeft, *op.Left, leftCount)
	rightProj := prependKeys(equiRight, *op.Right, rightCount)

	var keyEquals []expr.Expression
	for i := 0; i < k; i++ {
		eq, err := p.Registry.Resolve("=", []types.DataType{types.Null, types.Null}, types.Boolean)
		if err != nil {
			panic(err)
		}
		leftKey := expr.NewCompiledColumnReference(i, types.Null)
		rightKey := expr.NewCompiledColumnReference(leftCount+k+i, types.Null)
		keyEquals = append(keyEquals, expr.NewCompiledFunctionCall(eq.Signature, eq.Def.Scalar, []expr.Expression{leftKey, rightKey}))
	}
	op.OnPredicate = p.conjoin(keyEquals)
	op.Left = &leftProj
	op.Right = &rightProj

	joined := op

	result := joined
	if len(residual) > 0 {
		rewritten := make([]expr.Expression, len(residual))
		for i, r := range residual {
			// residual conjuncts reference the pre-hoist combined schema
			// (offsets 0..leftCount-1 for the left side,
			// leftCount..leftCount+rightCount-1 for the right); after
			// hoisting, the left side gained k leading columns and the
			// right side's columns now start at leftCount+k rather than
			// leftCount.
			rewritten[i] = rehomeResidual(r, leftCount, k)
		}
		result = ast.NewFilter(p.conjoin(rewritten), joined)
	}

	// Discard the k hoisted key columns from each side so the join's
	// externally visible schema is unchanged from before normalization.
	return discardHoistedKeys(result, k, leftCount, rightCount)
}

// rehomeResidual shifts a residual predicate's column offsets to account
// for the k key columns normalizeOneJoin prepended to each side: left-side
// offsets (< leftCount) shift up by k, right-side offsets (>= leftCount)
// shift up by 2*k (k hoisted columns on each side precede them now).
func rehomeResidual(e expr.Expression, leftCount, k int) expr.Expression {
	switch e.Kind {
	case expr.KindCompiledColumnReference:
		if e.Offset < leftCount {
			e.Offset += k
		} else {
			e.Offset += 2 * k
		}
		return e
	case expr.KindCompiledFunctionCall, expr.KindCompiledAggregate:
		newArgs := make([]expr.Expression, len(e.Args))
		for i, a := range e.Args {
			newArgs[i] = rehomeResidual(a, leftCount, k)
		}
		e.Args = newArgs
		return e
	case expr.KindSortExpression:
		inner := rehomeResidual(*e.Inner, leftCount, k)
		e.Inner = &inner
		return e
	default:
		return e
	}
}

// discardHoistedKeys wraps op (whose schema is k hoisted left keys, the
// original leftCount left columns, k hoisted right keys, the original
// rightCount right columns) in a Project that drops the 2*k hoisted key
// columns, restoring the plain left++right schema callers expect.
func discardHoistedKeys(op ast.LogicalOperator, k, leftCount, rightCount int) ast.LogicalOperator {
	named := make([]ast.NamedExpression, 0, leftCount+rightCount)
	for i := 0; i < leftCount; i++ {
		named = append(named, ast.NamedExpression{Expression: expr.NewCompiledColumnReference(k+i, types.Null)})
	}
	for i := 0; i < rightCount; i++ {
		named = append(named, ast.NamedExpression{Expression: expr.NewCompiledColumnReference(2*k+leftCount+i, types.Null)})
	}
	return ast.NewProject(false, named, op)
}
