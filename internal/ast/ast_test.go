package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"incresql/internal/catalog"
	"incresql/internal/expr"
	"incresql/internal/storage"
	"incresql/internal/types"
)

func TestLogicalOperatorChildren(t *testing.T) {
	single := NewSingle()
	op := NewProject(false, []NamedExpression{{Alias: "one", Expression: expr.NewConstant(types.NewInteger(1), types.Integer)}}, single)

	children := op.Children()
	assert.Len(t, children, 1)
	assert.Equal(t, LogicalSingle, children[0].Kind)
}

func TestLogicalOperatorUnionAllChildren(t *testing.T) {
	op := NewUnionAll([]LogicalOperator{NewSingle(), NewSingle()})
	assert.Len(t, op.Children(), 2)
}

func TestLogicalOperatorJoinChildren(t *testing.T) {
	op := NewJoin(JoinInner, expr.NewConstant(types.NewBoolean(true), types.Boolean), NewSingle(), NewSingle())
	children := op.Children()
	assert.Len(t, children, 2)
}

func TestLogicalValuesOutputExpressionCount(t *testing.T) {
	op := NewValues(
		[]FieldDef{{Name: "a", Type: types.Integer}, {Name: "b", Type: types.Text}},
		nil,
	)
	assert.Equal(t, 2, op.OutputExpressionCount())
}

func TestPhysicalOperatorColumnCountOf(t *testing.T) {
	table := &catalog.TableMeta{
		TableID: 14,
		Columns: []catalog.ColumnDef{{Name: "id", Type: types.BigInt}, {Name: "name", Type: types.Text}},
	}
	scan := NewTableScan(table, storage.MaxTimestamp)
	assert.Equal(t, 2, scan.ColumnCountOf())

	filtered := NewFilterPhysical(expr.NewConstant(types.NewBoolean(true), types.Boolean), scan)
	assert.Equal(t, 2, filtered.ColumnCountOf())
}

func TestPhysicalHashJoinColumnCountOf(t *testing.T) {
	left := NewValuesPhysical([][]types.Datum{{types.NewBigInt(1)}}, 1)
	right := NewValuesPhysical([][]types.Datum{{types.NewBigInt(1), types.NewTextString("x")}}, 2)
	join := NewHashJoin(1, left, right)
	assert.Equal(t, 3, join.ColumnCountOf())
}

func TestPhysicalOperatorChildrenHashJoin(t *testing.T) {
	left := NewSinglePhysical()
	right := NewSinglePhysical()
	join := NewHashJoin(0, left, right)
	assert.Len(t, join.Children(), 2)
}
