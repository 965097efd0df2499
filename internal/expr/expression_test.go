package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"incresql/internal/codec"
	"incresql/internal/functions"
	"incresql/internal/types"
)

func TestEvalConstant(t *testing.T) {
	e := NewConstant(types.NewBigInt(42), types.BigInt)
	assert.Equal(t, int64(42), e.Eval(nil).AsBigInt())
}

func TestEvalCompiledColumnReference(t *testing.T) {
	e := NewCompiledColumnReference(1, types.Text)
	row := []types.Datum{types.NewBigInt(1), types.NewTextString("hello")}
	assert.Equal(t, "hello", e.Eval(row).AsText())
}

func TestEvalCompiledFunctionCall(t *testing.T) {
	r := functions.NewRegistry()
	resolved, err := r.Resolve("+", []types.DataType{types.BigInt, types.BigInt}, types.Null)
	assert.NoError(t, err)

	e := NewCompiledFunctionCall(resolved.Signature, resolved.Def.Scalar, []Expression{
		NewConstant(types.NewBigInt(2), types.BigInt),
		NewConstant(types.NewBigInt(3), types.BigInt),
	})

	assert.Equal(t, int64(5), e.Eval(nil).AsBigInt())
}

func TestEvalSortExpressionDelegatesToInner(t *testing.T) {
	e := NewSortExpression(NewCompiledColumnReference(0, types.BigInt), codec.Asc)
	row := []types.Datum{types.NewBigInt(7)}
	assert.Equal(t, int64(7), e.Eval(row).AsBigInt())
}

func TestEvalUncompiledNodePanics(t *testing.T) {
	e := NewColumnReference("t", "c", false)
	assert.Panics(t, func() { e.Eval(nil) })
}

func TestEvalRowProjectsEachExpression(t *testing.T) {
	exprs := []Expression{
		NewCompiledColumnReference(1, types.BigInt),
		NewCompiledColumnReference(0, types.BigInt),
	}
	source := []types.Datum{types.NewBigInt(10), types.NewBigInt(20)}
	target := make([]types.Datum, 2)
	EvalRow(exprs, source, target)

	assert.Equal(t, int64(20), target[0].AsBigInt())
	assert.Equal(t, int64(10), target[1].AsBigInt())
}
