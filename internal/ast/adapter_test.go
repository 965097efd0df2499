package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdapterConvertsSimpleSelectWithNoFromClause(t *testing.T) {
	a := NewAdapter(nil)

	ops, err := a.ParseStatements("SELECT 1 + 2 AS total", "incresql")
	require.NoError(t, err)
	require.Len(t, ops, 1)

	op := ops[0]
	assert.Equal(t, LogicalProject, op.Kind)
	assert.Len(t, op.NamedExpressions, 1)
	assert.Equal(t, "total", op.NamedExpressions[0].Alias)
	assert.Equal(t, LogicalSingle, op.Source.Kind)
}

func TestAdapterConvertsWhereAndLimit(t *testing.T) {
	a := NewAdapter(nil)

	ops, err := a.ParseStatements("SELECT 1 WHERE 1 = 1 LIMIT 10 OFFSET 5", "incresql")
	require.NoError(t, err)
	require.Len(t, ops, 1)

	// Limit -> Project -> Filter -> Single
	limitOp := ops[0]
	assert.Equal(t, LogicalLimit, limitOp.Kind)
	assert.Equal(t, int64(5), limitOp.Offset)
	assert.Equal(t, int64(10), limitOp.Limit)

	projectOp := limitOp.Source
	assert.Equal(t, LogicalProject, projectOp.Kind)
	assert.Equal(t, LogicalFilter, projectOp.Source.Kind)
}

func TestAdapterRejectsUnsupportedStatement(t *testing.T) {
	a := NewAdapter(nil)

	_, err := a.ParseStatements("CREATE TABLE foo (id INT)", "incresql")
	require.Error(t, err)
}

func TestLiteralFromTextParsesNumericAndString(t *testing.T) {
	assert.Equal(t, int32(42), literalFromText("42").Value.AsInteger())
	assert.Equal(t, "hi", literalFromText("'hi'").Value.AsText())
	assert.True(t, literalFromText("NULL").Value.IsNull())
}
