package planner

import (
	"github.com/cockroachdb/errors"

	"incresql/internal/ast"
	"incresql/internal/codec"
	"incresql/internal/expr"
	"incresql/internal/storage"
	"incresql/internal/types"
)

var ErrUnsupportedJoin = errors.New("planner: only single-column equi-joins are supported")

// lower implements §4.7 phase 4: convert the resolved (and folded)
// LogicalOperator tree into the executable PointInTimeOperator tree.
func (p *Planner) lower(op ast.LogicalOperator) ast.PointInTimeOperator {
	switch op.Kind {
	case ast.LogicalSingle:
		return ast.NewSinglePhysical()

	case ast.LogicalValues:
		data := make([][]types.Datum, len(op.Data))
		for i, row := range op.Data {
			vals := make([]types.Datum, len(row))
			for j, cell := range row {
				vals[j] = cell.Eval(nil)
			}
			data[i] = vals
		}
		return ast.NewValuesPhysical(data, len(op.Fields))

	case ast.LogicalProject:
		exprs := make([]expr.Expression, len(op.NamedExpressions))
		for i, ne := range op.NamedExpressions {
			exprs[i] = ne.Expression
		}
		return ast.NewProjectPhysical(exprs, p.lower(*op.Source))

	case ast.LogicalFilter:
		return ast.NewFilterPhysical(op.Predicate, p.lower(*op.Source))

	case ast.LogicalLimit:
		return ast.NewLimitPhysical(op.Offset, op.Limit, p.lower(*op.Source))

	case ast.LogicalSort:
		return ast.NewSortPhysical(op.SortExpressions, p.lower(*op.Source))

	case ast.LogicalUnionAll:
		sources := make([]ast.PointInTimeOperator, len(op.Sources))
		for i := range op.Sources {
			sources[i] = p.lower(op.Sources[i])
		}
		return ast.NewUnionAllPhysical(sources)

	case ast.LogicalTableInsert:
		return ast.NewTableInsertPhysical(op.Table, p.lower(*op.Source))

	case ast.LogicalTableAlias:
		return p.lower(*op.Source)

	case ast.LogicalNegateFreq:
		return ast.NewNegateFreq(p.lower(*op.Source))

	case ast.LogicalUse:
		return ast.NewSinglePhysical()

	case ast.LogicalResolvedTable:
		return ast.NewTableScan(op.Table, storage.MaxTimestamp)

	case ast.LogicalGroupBy:
		return p.lowerGroupBy(op)

	case ast.LogicalJoin:
		joined, err := p.lowerJoin(op)
		if err != nil {
			// The resolved tree is validated before lowering is reached;
			// a join predicate this planner can't lower is a planning
			// limitation, not a runtime condition, so surface it loudly
			// rather than returning a zero-value operator silently.
			panic(err)
		}
		return joined

	default:
		panic(errors.Newf("planner: cannot lower logical operator kind %d", op.Kind))
	}
}

// lowerGroupBy implements phase 4's GroupBy lowering: a non-empty key
// prepends the key expressions via a Project, sorts by those first
// key_len columns, then runs SortedGroup; an empty key (key_len == 0)
// lowers directly to SortedGroup with no reshaping needed, guaranteeing
// exactly one output row even over an empty input (spec's `count(*)
// FROM t WHERE false` invariant).
func (p *Planner) lowerGroupBy(op ast.LogicalOperator) ast.PointInTimeOperator {
	source := p.lower(*op.Source)
	keyLen := op.KeyLen
	keyExprs := op.GroupExpressions[:keyLen]
	aggExprs := op.GroupExpressions[keyLen:]

	if keyLen == 0 {
		return ast.NewSortedGroup(aggExprs, 0, source)
	}

	originalColCount := source.ColumnCountOf()
	prepend := make([]expr.Expression, 0, keyLen+originalColCount)
	prepend = append(prepend, keyExprs...)
	for i := 0; i < originalColCount; i++ {
		prepend = append(prepend, expr.NewCompiledColumnReference(i, types.Null))
	}
	projected := ast.NewProjectPhysical(prepend, source)

	sortExprs := make([]expr.Expression, keyLen)
	for i := 0; i < keyLen; i++ {
		sortExprs[i] = expr.NewSortExpression(expr.NewCompiledColumnReference(i, types.Null), codec.Asc)
	}
	sorted := ast.NewSortPhysical(sortExprs, projected)

	finalExprs := make([]expr.Expression, 0, keyLen+len(aggExprs))
	for i := 0; i < keyLen; i++ {
		finalExprs = append(finalExprs, expr.NewCompiledColumnReference(i, types.Null))
	}
	for _, a := range aggExprs {
		finalExprs = append(finalExprs, shiftColumnOffsets(a, keyLen))
	}
	return ast.NewSortedGroup(finalExprs, keyLen, sorted)
}

// shiftColumnOffsets rewrites every CompiledColumnReference offset inside
// e by delta, needed after lowerGroupBy's key-prepending Project shifts
// every original column's position.
func shiftColumnOffsets(e expr.Expression, delta int) expr.Expression {
	switch e.Kind {
	case expr.KindCompiledColumnReference:
		e.Offset += delta
		return e
	case expr.KindCompiledFunctionCall, expr.KindCompiledAggregate:
		newArgs := make([]expr.Expression, len(e.Args))
		for i, a := range e.Args {
			newArgs[i] = shiftColumnOffsets(a, delta)
		}
		e.Args = newArgs
		return e
	case expr.KindSortExpression:
		inner := shiftColumnOffsets(*e.Inner, delta)
		e.Inner = &inner
		return e
	default:
		return e
	}
}

// lowerJoin expects op.OnPredicate to already be in the shape
// normalizeOneJoin (phase 3 step 1) leaves it in: an AND-chain of exactly k
// equalities `col(i) = col(leftCount+i)`, because the k join keys were
// already hoisted to the front of each side by a Project. A Join whose
// on-condition contains no equi-pair at all is left untouched by
// normalization and is rejected here, since HashJoin requires at least one
// equality.
func (p *Planner) lowerJoin(op ast.LogicalOperator) (ast.PointInTimeOperator, error) {
	left := p.lower(*op.Left)
	right := p.lower(*op.Right)
	leftCount := left.ColumnCountOf()

	conjuncts := decomposeAnd(op.OnPredicate)
	for i, c := range conjuncts {
		a, b, ok := equalityColumns(c)
		if !ok {
			return ast.PointInTimeOperator{}, errors.Wrap(ErrUnsupportedJoin, "on-condition is not an AND of bare-column equalities")
		}
		if a != i || b != leftCount+i {
			return ast.PointInTimeOperator{}, errors.Wrap(ErrUnsupportedJoin, "on-condition keys are not in normalized position")
		}
	}
	if len(conjuncts) == 0 {
		return ast.PointInTimeOperator{}, errors.Wrap(ErrUnsupportedJoin, "on-condition has no equi-join key")
	}

	return ast.NewHashJoin(len(conjuncts), left, right), nil
}

// equalityColumns recognizes a compiled `col = col` equality and returns
// both sides' offsets.
func equalityColumns(c expr.Expression) (int, int, bool) {
	if c.Kind != expr.KindCompiledFunctionCall || c.Signature.Name != "=" || len(c.Args) != 2 {
		return 0, 0, false
	}
	a, b := c.Args[0], c.Args[1]
	if a.Kind != expr.KindCompiledColumnReference || b.Kind != expr.KindCompiledColumnReference {
		return 0, 0, false
	}
	return a.Offset, b.Offset, true
}
