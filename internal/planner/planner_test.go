package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"incresql/internal/ast"
	"incresql/internal/expr"
	"incresql/internal/functions"
	"incresql/internal/types"
)

func newTestPlanner() *Planner {
	return New(nil, functions.NewRegistry())
}

func TestResolveProjectAssignsDefaultAliases(t *testing.T) {
	p := newTestPlanner()
	lit := expr.NewConstant(types.NewInteger(1), types.Integer)
	proj := ast.NewProject(false, []ast.NamedExpression{{Expression: lit}}, ast.NewSingle())

	resolved, fields, err := p.resolve(proj)
	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.Equal(t, "_col1", resolved.NamedExpressions[0].Alias)
	assert.Equal(t, types.Integer, fields[0].Type)
}

func TestResolveProjectKeepsExplicitColumnAlias(t *testing.T) {
	p := newTestPlanner()
	col := expr.NewColumnReference("", "x", false)
	proj := ast.NewProject(false, []ast.NamedExpression{{Expression: col}}, ast.NewValues(
		[]ast.FieldDef{{Name: "x", Type: types.Integer}},
		[][]expr.Expression{{expr.NewConstant(types.NewInteger(7), types.Integer)}},
	))

	resolved, fields, err := p.resolve(proj)
	require.NoError(t, err)
	assert.Equal(t, "x", resolved.NamedExpressions[0].Alias)
	assert.Equal(t, "x", fields[0].Name)
}

func TestResolveUnknownColumnReturnsError(t *testing.T) {
	p := newTestPlanner()
	col := expr.NewColumnReference("", "missing", false)
	proj := ast.NewProject(false, []ast.NamedExpression{{Expression: col}}, ast.NewSingle())

	_, _, err := p.resolve(proj)
	assert.ErrorIs(t, err, ErrUnresolvedColumn)
}

func TestResolveFilterRejectsNonBooleanPredicate(t *testing.T) {
	p := newTestPlanner()
	filter := ast.NewFilter(expr.NewConstant(types.NewInteger(1), types.Integer), ast.NewSingle())

	_, _, err := p.resolve(filter)
	assert.ErrorIs(t, err, ErrNonBooleanPredicate)
}

func TestResolveImplicitGroupByDetectsAggregate(t *testing.T) {
	p := newTestPlanner()
	values := ast.NewValues(
		[]ast.FieldDef{{Name: "a", Type: types.Integer}},
		[][]expr.Expression{
			{expr.NewConstant(types.NewInteger(1), types.Integer)},
			{expr.NewConstant(types.NewInteger(2), types.Integer)},
		},
	)
	countCall := expr.NewFunctionCall("count", []expr.Expression{expr.NewColumnReference("", "a", false)})
	proj := ast.NewProject(false, []ast.NamedExpression{{Alias: "c", Expression: countCall}}, values)

	resolved, fields, err := p.resolve(proj)
	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.Equal(t, ast.LogicalGroupBy, resolved.Source.Kind)
	assert.Equal(t, 0, resolved.Source.KeyLen)
	require.Len(t, resolved.Source.GroupExpressions, 1)
	assert.Equal(t, expr.KindCompiledAggregate, resolved.Source.GroupExpressions[0].Kind)
}

func TestResolveAggregateOutsideGroupIsRejected(t *testing.T) {
	p := newTestPlanner()
	countCall := expr.NewFunctionCall("count", []expr.Expression{expr.NewColumnReference("", "a", false)})

	// A bare column alongside an aggregate with no matching group key is
	// an aggregate-outside-group error once the column fails to match
	// any grouping key.
	values := ast.NewValues(
		[]ast.FieldDef{{Name: "a", Type: types.Integer}, {Name: "b", Type: types.Integer}},
		[][]expr.Expression{{expr.NewConstant(types.NewInteger(1), types.Integer), expr.NewConstant(types.NewInteger(2), types.Integer)}},
	)
	proj := ast.NewProject(false, []ast.NamedExpression{
		{Alias: "b", Expression: expr.NewColumnReference("", "b", false)},
		{Alias: "c", Expression: countCall},
	}, values)

	_, _, err := p.resolve(proj)
	assert.ErrorIs(t, err, ErrAggregateOutsideGroup)
}

func TestFoldConstantArithmeticExpression(t *testing.T) {
	r := functions.NewRegistry()
	plus, err := r.Resolve("+", []types.DataType{types.Integer, types.Integer}, types.Null)
	require.NoError(t, err)
	minus, err := r.Resolve("-", []types.DataType{types.Integer, types.Integer}, types.Null)
	require.NoError(t, err)
	mul, err := r.Resolve("*", []types.DataType{types.Integer, types.Integer}, types.Null)
	require.NoError(t, err)

	one := expr.NewConstant(types.NewInteger(1), types.Integer)
	two := expr.NewConstant(types.NewInteger(2), types.Integer)
	three := expr.NewConstant(types.NewInteger(3), types.Integer)
	four := expr.NewConstant(types.NewInteger(4), types.Integer)

	twoTimesThree := expr.NewCompiledFunctionCall(mul.Signature, mul.Def.Scalar, []expr.Expression{two, three})
	onePlus := expr.NewCompiledFunctionCall(plus.Signature, plus.Def.Scalar, []expr.Expression{one, twoTimesThree})
	full := expr.NewCompiledFunctionCall(minus.Signature, minus.Def.Scalar, []expr.Expression{onePlus, four})

	session := &FoldingSession{}
	folded := session.Fold(full)

	require.Equal(t, expr.KindConstant, folded.Kind)
	assert.Equal(t, int32(3), folded.Value.AsInteger())
}

func TestLowerGroupByZeroKeyProducesSortedGroupDirectly(t *testing.T) {
	p := newTestPlanner()
	count, err := p.Registry.Resolve("count", []types.DataType{types.Integer}, types.Null)
	require.NoError(t, err)
	agg := expr.NewCompiledAggregate(count.Signature, count.Def.Aggregate, []expr.Expression{expr.NewCompiledColumnReference(0, types.Integer)}, 0)

	groupBy := ast.NewGroupBy([]expr.Expression{agg}, 0, ast.LogicalOperator{Kind: ast.LogicalValues, Data: nil, Fields: []ast.FieldDef{{Name: "a", Type: types.Integer}}})

	lowered := p.lowerGroupBy(groupBy)
	assert.Equal(t, ast.PhysicalSortedGroup, lowered.Kind)
	assert.Equal(t, 0, lowered.KeyLen)
}

func TestExplainRendersProjectOverValues(t *testing.T) {
	p := newTestPlanner()
	values := ast.NewValues(
		[]ast.FieldDef{{Name: "a", Type: types.Integer}},
		[][]expr.Expression{{expr.NewConstant(types.NewInteger(1), types.Integer)}},
	)
	proj := ast.NewProject(false, []ast.NamedExpression{{Expression: expr.NewColumnReference("", "a", false)}}, values)

	explained, err := p.Explain(proj)
	require.NoError(t, err)
	assert.Equal(t, ast.LogicalValues, explained.Kind)
	require.NotEmpty(t, explained.Data)
	assert.Equal(t, "PROJECT", explained.Data[0][0].Value.AsText())
}
