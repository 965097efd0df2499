package planner

import (
	"fmt"
	"strings"

	"incresql/internal/ast"
	"incresql/internal/catalog"
	"incresql/internal/expr"
	"incresql/internal/types"
)

// explainRow is one line of EXPLAIN's three-column output (§6: "a
// three-column tree rendering (tree, column index, datatype, expression)"),
// grounded on explain.rs's (String, Option<usize>, Option<String>) tuple.
type explainRow struct {
	tree       string
	idx        string
	expression string
}

// padding accumulates the tree-drawing prefix as render descends, exactly
// mirroring explain.rs's push/pop-per-level Padding helper rather than
// passing a depth int and re-deriving the prefix.
type padding struct {
	pads []string
}

func (p *padding) push(s string) { p.pads = append(p.pads, s) }
func (p *padding) pop()          { p.pads = p.pads[:len(p.pads)-1] }
func (p *padding) String() string {
	return strings.Join(p.pads, "")
}

// Explain resolves (but does not fold or lower) query and renders its
// logical plan as a LogicalValues operator with columns (tree, idx,
// expression), ready to be planned and executed like any other query.
func (p *Planner) Explain(query ast.LogicalOperator) (ast.LogicalOperator, error) {
	resolved, _, err := p.resolve(query)
	if err != nil {
		return ast.LogicalOperator{}, err
	}

	var rows []explainRow
	pad := &padding{}
	renderPlan(resolved, &rows, pad, "")

	fields := []ast.FieldDef{
		{Name: "tree", Type: types.Text},
		{Name: "idx", Type: types.Text},
		{Name: "expression", Type: types.Text},
	}
	data := make([][]expr.Expression, len(rows))
	for i, r := range rows {
		data[i] = []expr.Expression{
			expr.NewConstant(types.NewTextString(r.tree), types.Text),
			expr.NewConstant(types.NewTextString(r.idx), types.Text),
			expr.NewConstant(types.NewTextString(r.expression), types.Text),
		}
	}
	return ast.NewValues(fields, data), nil
}

func renderPlan(op ast.LogicalOperator, rows *[]explainRow, pad *padding, alias string) {
	switch op.Kind {
	case ast.LogicalSingle:
		*rows = append(*rows, explainRow{tree: pad.String() + "SINGLE"})

	case ast.LogicalProject:
		*rows = append(*rows, explainRow{tree: pad.String() + header("PROJECT", alias)})
		pad.push(" |")
		*rows = append(*rows, explainRow{tree: pad.String() + "exprs:"})
		for i, ne := range op.NamedExpressions {
			*rows = append(*rows, explainRow{
				tree:       fmt.Sprintf("%s  %s <%s>", pad.String(), ne.Alias, exprDataType(ne.Expression)),
				idx:        fmt.Sprintf("%d", i),
				expression: ne.Expression.String(),
			})
		}
		*rows = append(*rows, explainRow{tree: pad.String() + "source:"})
		pad.push("  ")
		renderPlan(*op.Source, rows, pad, "")
		pad.pop()
		pad.pop()

	case ast.LogicalFilter:
		*rows = append(*rows, explainRow{tree: pad.String() + header("FILTER", alias)})
		pad.push(" |")
		*rows = append(*rows, explainRow{tree: pad.String() + "predicate:", expression: op.Predicate.String()})
		*rows = append(*rows, explainRow{tree: pad.String() + "source:"})
		pad.push("  ")
		renderPlan(*op.Source, rows, pad, "")
		pad.pop()
		pad.pop()

	case ast.LogicalLimit:
		*rows = append(*rows, explainRow{tree: pad.String() + header("LIMIT", alias)})
		pad.push(" |")
		*rows = append(*rows, explainRow{tree: fmt.Sprintf("%soffset: %d", pad.String(), op.Offset)})
		*rows = append(*rows, explainRow{tree: fmt.Sprintf("%slimit: %d", pad.String(), op.Limit)})
		*rows = append(*rows, explainRow{tree: pad.String() + "source:"})
		pad.push("  ")
		renderPlan(*op.Source, rows, pad, "")
		pad.pop()
		pad.pop()

	case ast.LogicalSort:
		*rows = append(*rows, explainRow{tree: pad.String() + header("SORT", alias)})
		pad.push(" |")
		for i, se := range op.SortExpressions {
			*rows = append(*rows, explainRow{
				tree:       fmt.Sprintf("%s  %d:", pad.String(), i),
				expression: se.String(),
			})
		}
		*rows = append(*rows, explainRow{tree: pad.String() + "source:"})
		pad.push("  ")
		renderPlan(*op.Source, rows, pad, "")
		pad.pop()
		pad.pop()

	case ast.LogicalValues:
		*rows = append(*rows, explainRow{tree: pad.String() + header("VALUES", alias)})
		pad.push(" |")
		*rows = append(*rows, explainRow{tree: pad.String() + "values:"})
		for _, row := range op.Data {
			cells := make([]string, len(row))
			for i, c := range row {
				cells[i] = c.String()
			}
			*rows = append(*rows, explainRow{tree: pad.String() + "  " + strings.Join(cells, ", ")})
		}
		pad.pop()

	case ast.LogicalUnionAll:
		*rows = append(*rows, explainRow{tree: pad.String() + header("UNION_ALL", alias)})
		pad.push(" |")
		*rows = append(*rows, explainRow{tree: pad.String() + "sources:"})
		pad.push("  ")
		for _, source := range op.Sources {
			renderPlan(source, rows, pad, "")
		}
		pad.pop()
		pad.pop()

	case ast.LogicalResolvedTable:
		*rows = append(*rows, explainRow{tree: pad.String() + header("TABLE", alias)})
		pad.push(" |")
		*rows = append(*rows, explainRow{tree: pad.String() + "cols:"})
		renderTableColumns(op.Table, rows, pad)
		pad.pop()

	case ast.LogicalTableInsert:
		*rows = append(*rows, explainRow{tree: pad.String() + header("INSERT", alias)})
		pad.push(" |")
		*rows = append(*rows, explainRow{tree: pad.String() + "cols:"})
		renderTableColumns(op.Table, rows, pad)
		*rows = append(*rows, explainRow{tree: pad.String() + "source:"})
		pad.push("  ")
		renderPlan(*op.Source, rows, pad, "")
		pad.pop()
		pad.pop()

	case ast.LogicalTableAlias:
		// Not rendered itself: the alias is threaded down to annotate the
		// operator it wraps, matching explain.rs's TableAlias handling.
		renderPlan(*op.Source, rows, pad, op.Alias)

	case ast.LogicalGroupBy:
		*rows = append(*rows, explainRow{tree: pad.String() + header("GROUP_BY", alias)})
		pad.push(" |")
		*rows = append(*rows, explainRow{tree: fmt.Sprintf("%skey_len: %d", pad.String(), op.KeyLen)})
		for i, ge := range op.GroupExpressions {
			*rows = append(*rows, explainRow{
				tree:       fmt.Sprintf("%s  %d:", pad.String(), i),
				expression: ge.String(),
			})
		}
		*rows = append(*rows, explainRow{tree: pad.String() + "source:"})
		pad.push("  ")
		renderPlan(*op.Source, rows, pad, "")
		pad.pop()
		pad.pop()

	case ast.LogicalJoin:
		*rows = append(*rows, explainRow{tree: pad.String() + header("JOIN", alias), expression: op.OnPredicate.String()})
		pad.push(" |")
		*rows = append(*rows, explainRow{tree: pad.String() + "left:"})
		pad.push("  ")
		renderPlan(*op.Left, rows, pad, "")
		pad.pop()
		*rows = append(*rows, explainRow{tree: pad.String() + "right:"})
		pad.push("  ")
		renderPlan(*op.Right, rows, pad, "")
		pad.pop()
		pad.pop()

	default:
		*rows = append(*rows, explainRow{tree: fmt.Sprintf("%s<unrenderable kind %d>", pad.String(), op.Kind)})
	}
}

func renderTableColumns(table *catalog.TableMeta, rows *[]explainRow, pad *padding) {
	for i, c := range table.Columns {
		*rows = append(*rows, explainRow{
			tree: fmt.Sprintf("%s  %s <%s>", pad.String(), c.Name, c.Type),
			idx:  fmt.Sprintf("%d", i),
		})
	}
}

func header(kind, alias string) string {
	if alias != "" {
		return fmt.Sprintf("%s(%s)", kind, alias)
	}
	return kind
}

// exprDataType reports e's static type for the exprs: column of a PROJECT
// line, falling back to the Null wildcard for expression shapes that don't
// carry a resolved type at render time (e.g. an unresolved aggregate
// placeholder).
func exprDataType(e expr.Expression) types.DataType {
	switch e.Kind {
	case expr.KindConstant, expr.KindCast:
		return e.DataType
	case expr.KindCompiledColumnReference:
		return e.DataType
	case expr.KindCompiledFunctionCall, expr.KindCompiledAggregate:
		return e.Signature.Ret
	default:
		return types.Null
	}
}
