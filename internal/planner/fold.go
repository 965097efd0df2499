package planner

import (
	"incresql/internal/ast"
	"incresql/internal/expr"
)

// FoldingSession carries the small per-planning-pass state constant
// folding needs (§4.7 phase 2 step 1, grounded on session.rs's
// per-session folding scratch state): a frozen `now()` so folding a
// session containing `now()`-like calls is deterministic within one pass.
type FoldingSession struct {
	NowMicros int64
}

// Fold replaces any CompiledFunctionCall all of whose arguments are
// already Constant with the Constant result of evaluating it once
// (§4.7 phase 2 step 1 and step 3: folding runs again after predicate
// pushdown exposes more opportunities, so callers may fold the same tree
// more than once).
func (s *FoldingSession) Fold(e expr.Expression) expr.Expression {
	switch e.Kind {
	case expr.KindCompiledFunctionCall:
		allConst := true
		newArgs := make([]expr.Expression, len(e.Args))
		for i, a := range e.Args {
			newArgs[i] = s.Fold(a)
			if newArgs[i].Kind != expr.KindConstant {
				allConst = false
			}
		}
		e.Args = newArgs
		if !allConst {
			return e
		}
		return expr.NewConstant(e.Eval(nil), e.Signature.Ret)
	case expr.KindSortExpression:
		inner := s.Fold(*e.Inner)
		e.Inner = &inner
		return e
	default:
		return e
	}
}

func (s *FoldingSession) foldSlice(exprs []expr.Expression) {
	for i := range exprs {
		exprs[i] = s.Fold(exprs[i])
	}
}

// foldOperatorShallow walks op's expression slots (not its children's — callers
// walk the tree via op.Children()) and folds every contained expression
// in place.
func (s *FoldingSession) foldOperatorShallow(op *ast.LogicalOperator) {
	switch op.Kind {
	case ast.LogicalProject:
		for i := range op.NamedExpressions {
			op.NamedExpressions[i].Expression = s.Fold(op.NamedExpressions[i].Expression)
		}
	case ast.LogicalFilter:
		op.Predicate = s.Fold(op.Predicate)
	case ast.LogicalSort:
		s.foldSlice(op.SortExpressions)
	case ast.LogicalGroupBy:
		s.foldSlice(op.GroupExpressions)
	case ast.LogicalJoin:
		op.OnPredicate = s.Fold(op.OnPredicate)
	case ast.LogicalValues:
		for i := range op.Data {
			s.foldSlice(op.Data[i])
		}
	}
}

// FoldOperator recursively folds every expression in the tree rooted at
// op.
func (s *FoldingSession) FoldOperator(op *ast.LogicalOperator) {
	s.foldOperatorShallow(op)
	for _, child := range op.Children() {
		s.FoldOperator(child)
	}
}
