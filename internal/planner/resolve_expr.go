package planner

import (
	"fmt"

	"github.com/cockroachdb/errors"

	"incresql/internal/ast"
	"incresql/internal/expr"
	"incresql/internal/functions"
	"incresql/internal/types"
)

// groupContext carries the state needed to resolve a Project's expressions
// when it sits above a (possibly implicit) GroupBy: the pre-group row's
// fields for resolving aggregate arguments, the already-resolved grouping
// key expressions (in GroupBy output order), and an accumulator for every
// CompiledAggregate leaf encountered along the way (§4.6's "aggregate
// expression tree": Constant, ScalarFunctionCall-of-aggregates, or
// CompiledAggregate leaves sharing one flat state buffer).
type groupContext struct {
	childFields []Field
	keyExprs    []expr.Expression
	aggregates  *[]expr.Expression
}

// resolveProject implements phase 1 steps 1, 4, 6, 7, 9 for a Project
// node: default aliasing, star expansion, bottom-up compilation, and
// aggregate/group-by detection and rewriting.
func (p *Planner) resolveProject(op ast.LogicalOperator) (ast.LogicalOperator, []Field, error) {
	var source ast.LogicalOperator
	var childFields []Field
	var explicitGroupBy *ast.LogicalOperator

	if op.Source.Kind == ast.LogicalGroupBy {
		resolvedGroupBy, fields, err := p.resolve(*op.Source)
		if err != nil {
			return op, nil, err
		}
		source = *resolvedGroupBy.Source
		childFields = fields
		explicitGroupBy = &resolvedGroupBy
	} else {
		resolvedSource, fields, err := p.resolve(*op.Source)
		if err != nil {
			return op, nil, err
		}
		source = resolvedSource
		childFields = fields
	}

	named := expandStars(op.NamedExpressions, childFields)

	hasAggregate := explicitGroupBy != nil
	if !hasAggregate {
		for _, ne := range named {
			if p.containsAggregateCall(ne.Expression) {
				hasAggregate = true
				break
			}
		}
	}

	var grp *groupContext
	var aggAccum []expr.Expression
	if hasAggregate {
		grp = &groupContext{childFields: childFields, aggregates: &aggAccum}
		if explicitGroupBy != nil {
			grp.keyExprs = explicitGroupBy.GroupExpressions
		}
	}

	outFields := make([]Field, len(named))
	newNamed := make([]ast.NamedExpression, len(named))
	for i, ne := range named {
		resolved, dt, err := p.resolveExpr(ne.Expression, childFields, grp)
		if err != nil {
			return op, nil, err
		}
		alias := ne.Alias
		if alias == "" {
			alias = defaultAlias(ne.Expression, i)
		}
		newNamed[i] = ast.NamedExpression{Alias: alias, Expression: resolved}
		outFields[i] = Field{Name: alias, Type: dt}
	}
	op.NamedExpressions = newNamed

	if grp != nil {
		keyLen := len(grp.keyExprs)
		all := make([]expr.Expression, 0, keyLen+len(aggAccum))
		all = append(all, grp.keyExprs...)
		all = append(all, aggAccum...)
		if len(aggAccum) > 0 {
			expr.AssignStateOffsets(all[keyLen:])
		}
		groupBy := ast.NewGroupBy(all, keyLen, source)
		op.Source = &groupBy
	} else {
		op.Source = &source
	}

	return op, outFields, nil
}

// resolveExpr bottom-up compiles a pre-resolution expr.Expression against
// fields (and, inside a group-by, grp): ColumnReference -> offset lookup,
// FunctionCall -> overload resolution (dispatching aggregate, compound,
// and plain scalar calls differently), Cast -> a pinned to_<type> lookup.
func (p *Planner) resolveExpr(e expr.Expression, fields []Field, grp *groupContext) (expr.Expression, types.DataType, error) {
	switch e.Kind {
	case expr.KindConstant:
		return e, e.DataType, nil

	case expr.KindColumnReference:
		col, dt, err := lookupColumn(e, fields)
		if err != nil {
			return expr.Expression{}, types.Null, err
		}
		if grp == nil {
			return col, dt, nil
		}
		for i, k := range grp.keyExprs {
			if k.Kind == expr.KindCompiledColumnReference && k.Offset == col.Offset {
				return expr.NewCompiledColumnReference(i, dt), dt, nil
			}
		}
		return expr.Expression{}, types.Null, errors.Wrapf(ErrAggregateOutsideGroup, "column %q is not a grouping key", e.Alias)

	case expr.KindFunctionCall:
		return p.resolveFunctionCall(e, fields, grp)

	case expr.KindCast:
		inner, innerType, err := p.resolveExpr(*e.Inner, fields, grp)
		if err != nil {
			return expr.Expression{}, types.Null, err
		}
		castName := "to_" + castSuffix(e.DataType)
		resolved, err := p.Registry.Resolve(castName, []types.DataType{innerType}, e.DataType)
		if err != nil {
			return expr.Expression{}, types.Null, errors.Wrapf(err, "cast to %s", e.DataType)
		}
		return expr.NewCompiledFunctionCall(resolved.Signature, resolved.Def.Scalar, []expr.Expression{inner}), resolved.Signature.Ret, nil

	default:
		return expr.Expression{}, types.Null, errors.Newf("planner: cannot resolve already-compiled expression kind %d", e.Kind)
	}
}

func (p *Planner) resolveFunctionCall(e expr.Expression, fields []Field, grp *groupContext) (expr.Expression, types.DataType, error) {
	defs := p.Registry.Definitions(e.FunctionName)
	if len(defs) == 0 {
		return expr.Expression{}, types.Null, errors.Wrapf(functions.ErrFunctionNotFound, "function %q", e.FunctionName)
	}

	switch defs[0].Kind {
	case functions.KindAggregate:
		if grp == nil {
			return expr.Expression{}, types.Null, errors.Wrapf(ErrAggregateOutsideGroup, "function %q", e.FunctionName)
		}
		argFields := grp.childFields
		args := make([]expr.Expression, len(e.Args))
		argTypes := make([]types.DataType, len(e.Args))
		for i, a := range e.Args {
			ra, dt, err := p.resolveExpr(a, argFields, nil)
			if err != nil {
				return expr.Expression{}, types.Null, err
			}
			args[i] = ra
			argTypes[i] = dt
		}
		resolved, err := p.Registry.Resolve(e.FunctionName, argTypes, types.Null)
		if err != nil {
			return expr.Expression{}, types.Null, err
		}
		agg := expr.NewCompiledAggregate(resolved.Signature, resolved.Def.Aggregate, args, 0)
		*grp.aggregates = append(*grp.aggregates, agg)
		offset := len(grp.keyExprs) + len(*grp.aggregates) - 1
		return expr.NewCompiledColumnReference(offset, resolved.Signature.Ret), resolved.Signature.Ret, nil

	case functions.KindCompound:
		rewrite, ok := defs[0].Compound(nil).(functions.JSONUnquoteExtractRewrite)
		if !ok {
			return expr.Expression{}, types.Null, errors.Newf("planner: unrecognized compound rewrite for %q", e.FunctionName)
		}
		extract := expr.NewFunctionCall(rewrite.ExtractFunctionName, e.Args)
		unquote := expr.NewFunctionCall(rewrite.UnquoteFunctionName, []expr.Expression{extract})
		return p.resolveExpr(unquote, fields, grp)

	default:
		args := make([]expr.Expression, len(e.Args))
		argTypes := make([]types.DataType, len(e.Args))
		for i, a := range e.Args {
			ra, dt, err := p.resolveExpr(a, fields, grp)
			if err != nil {
				return expr.Expression{}, types.Null, err
			}
			args[i] = ra
			argTypes[i] = dt
		}
		resolved, err := p.Registry.Resolve(e.FunctionName, argTypes, types.Null)
		if err != nil {
			return expr.Expression{}, types.Null, err
		}
		return expr.NewCompiledFunctionCall(resolved.Signature, resolved.Def.Scalar, args), resolved.Signature.Ret, nil
	}
}

// containsAggregateCall walks a pre-resolution expression tree looking for
// any FunctionCall naming an aggregate (phase 1 step 7: Projects whose
// output contains aggregate expressions become an implicit group-by).
func (p *Planner) containsAggregateCall(e expr.Expression) bool {
	switch e.Kind {
	case expr.KindFunctionCall:
		defs := p.Registry.Definitions(e.FunctionName)
		if len(defs) > 0 && defs[0].Kind == functions.KindAggregate {
			return true
		}
		for _, a := range e.Args {
			if p.containsAggregateCall(a) {
				return true
			}
		}
		return false
	case expr.KindCast:
		return p.containsAggregateCall(*e.Inner)
	default:
		return false
	}
}

// lookupColumn resolves a ColumnReference against fields by qualifier+name.
func lookupColumn(e expr.Expression, fields []Field) (expr.Expression, types.DataType, error) {
	matchIdx := -1
	for i, f := range fields {
		if e.Qualifier != "" && f.Qualifier != e.Qualifier {
			continue
		}
		if f.Name != e.Alias {
			continue
		}
		if matchIdx != -1 {
			return expr.Expression{}, types.Null, errors.Wrapf(ErrAmbiguousColumn, "%q", e.Alias)
		}
		matchIdx = i
	}
	if matchIdx == -1 {
		return expr.Expression{}, types.Null, errors.Wrapf(ErrUnresolvedColumn, "%q", e.Alias)
	}
	f := fields[matchIdx]
	return expr.NewCompiledColumnReference(matchIdx, f.Type), f.Type, nil
}

// expandStars replaces `*`/`qualifier.*` NamedExpressions with one
// explicit ColumnReference per matching source field (phase 1 step 4).
func expandStars(named []ast.NamedExpression, fields []Field) []ast.NamedExpression {
	out := make([]ast.NamedExpression, 0, len(named))
	for _, ne := range named {
		if ne.Expression.Kind != expr.KindColumnReference || !ne.Expression.Star {
			out = append(out, ne)
			continue
		}
		for _, f := range fields {
			if ne.Expression.Qualifier != "" && f.Qualifier != ne.Expression.Qualifier {
				continue
			}
			out = append(out, ast.NamedExpression{
				Alias:      f.Name,
				Expression: expr.NewColumnReference(f.Qualifier, f.Name, false),
			})
		}
	}
	return out
}

// defaultAlias implements phase 1 step 1: bare column refs keep their
// source name, everything else gets a positional `_col{n}` alias.
func defaultAlias(e expr.Expression, index int) string {
	if e.Kind == expr.KindColumnReference && !e.Star {
		return e.Alias
	}
	return fmt.Sprintf("_col%d", index+1)
}

// castSuffix maps a DataType to the function-name suffix the cast
// registry uses (to_int, to_bigint, to_decimal, to_text, to_bool, to_json).
func castSuffix(dt types.DataType) string {
	switch dt.Kind {
	case types.KindInteger:
		return "int"
	case types.KindBigInt:
		return "bigint"
	case types.KindDecimal:
		return "decimal"
	case types.KindText:
		return "text"
	case types.KindBoolean:
		return "bool"
	case types.KindJSON:
		return "json"
	default:
		return dt.String()
	}
}
